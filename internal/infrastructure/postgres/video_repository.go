package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/videoflix/videoflix/internal/domain/model"
	"github.com/videoflix/videoflix/internal/domain/repository"
)

// DBTX abstracts pgxpool.Pool and pgx.Tx for testability.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// VideoRepository implements repository.VideoRepository using PostgreSQL.
type VideoRepository struct {
	db DBTX
}

// Compile-time verification that VideoRepository implements repository.VideoRepository.
var _ repository.VideoRepository = (*VideoRepository)(nil)

// NewVideoRepository creates a new VideoRepository instance.
func NewVideoRepository(db DBTX) *VideoRepository {
	return &VideoRepository{db: db}
}

const videoColumns = `id, title, genre, description, source_path, duration_seconds,
		quality_levels, master_manifest_path, preview_path, thumbnail_path, sprite_path,
		created_at, updated_at`

// Create persists a new video entity.
func (r *VideoRepository) Create(ctx context.Context, video *model.Video) error {
	const query = `
		INSERT INTO videos (id, title, genre, description, source_path, duration_seconds,
			quality_levels, master_manifest_path, preview_path, thumbnail_path, sprite_path,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	levels, err := json.Marshal(video.QualityLevels)
	if err != nil {
		return fmt.Errorf("marshal quality levels: %w", err)
	}

	_, err = r.db.Exec(ctx, query,
		video.ID,
		video.Title,
		video.Genre,
		video.Description,
		nullString(video.SourcePath),
		video.DurationSeconds,
		levels,
		nullString(video.MasterManifestPath),
		nullString(video.PreviewPath),
		nullString(video.ThumbnailPath),
		nullString(video.SpritePath),
		video.CreatedAt,
		video.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateVideo
		}
		return fmt.Errorf("failed to create video: %w", err)
	}

	return nil
}

// GetByID retrieves a video by its unique identifier.
func (r *VideoRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`

	video, err := scanVideo(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to get video by ID: %w", err)
	}

	return video, nil
}

// List retrieves all videos ordered by creation time, newest first.
func (r *VideoRepository) List(ctx context.Context) ([]*model.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	var videos []*model.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating videos: %w", err)
	}

	return videos, nil
}

// UpdateDerived writes every derived field in one UPDATE statement, so a
// concurrent reader sees either the old or the new set, never a mix.
func (r *VideoRepository) UpdateDerived(ctx context.Context, id uuid.UUID, derived model.Derived) error {
	const query = `
		UPDATE videos
		SET duration_seconds = $2,
			quality_levels = $3,
			master_manifest_path = $4,
			preview_path = $5,
			thumbnail_path = $6,
			sprite_path = $7,
			updated_at = $8
		WHERE id = $1
	`

	levels, err := json.Marshal(derived.QualityLevels)
	if err != nil {
		return fmt.Errorf("marshal quality levels: %w", err)
	}

	tag, err := r.db.Exec(ctx, query,
		id,
		derived.DurationSeconds,
		levels,
		nullString(derived.MasterManifestPath),
		nullString(derived.PreviewPath),
		nullString(derived.ThumbnailPath),
		nullString(derived.SpritePath),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update derived fields: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}

	return nil
}

// Delete destroys the video record.
func (r *VideoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM videos WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrVideoNotFound
	}

	return nil
}

// scanVideo scans a single row into a Video model.
func scanVideo(row pgx.Row) (*model.Video, error) {
	var (
		video      model.Video
		levels     []byte
		sourcePath *string
		master     *string
		preview    *string
		thumbnail  *string
		sprite     *string
	)

	err := row.Scan(
		&video.ID,
		&video.Title,
		&video.Genre,
		&video.Description,
		&sourcePath,
		&video.DurationSeconds,
		&levels,
		&master,
		&preview,
		&thumbnail,
		&sprite,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(levels) > 0 {
		if err := json.Unmarshal(levels, &video.QualityLevels); err != nil {
			return nil, fmt.Errorf("unmarshal quality levels: %w", err)
		}
	}
	video.SourcePath = deref(sourcePath)
	video.MasterManifestPath = deref(master)
	video.PreviewPath = deref(preview)
	video.ThumbnailPath = deref(thumbnail)
	video.SpritePath = deref(sprite)

	return &video, nil
}

// nullString returns nil for empty strings, otherwise a pointer to the string.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
