package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/videoflix/videoflix/internal/domain/model"
)

// VideoRepository defines the interface for video persistence operations.
// Implementations should be provided by the infrastructure layer (e.g., PostgreSQL).
type VideoRepository interface {
	// Create persists a new video entity.
	// Returns ErrDuplicateVideo if the video already exists.
	Create(ctx context.Context, video *model.Video) error

	// GetByID retrieves a video by its unique identifier.
	// Returns nil and ErrVideoNotFound if the video does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error)

	// List retrieves all videos ordered by creation time, newest first.
	List(ctx context.Context) ([]*model.Video, error)

	// UpdateDerived writes every derived field in a single atomic update.
	// A concurrent reader observes either none or all of the new values.
	// Returns ErrVideoNotFound if the video does not exist.
	UpdateDerived(ctx context.Context, id uuid.UUID, derived model.Derived) error

	// Delete destroys the video record.
	// Returns ErrVideoNotFound if the video does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}
