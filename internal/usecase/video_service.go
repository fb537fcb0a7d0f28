package usecase

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/videoflix/videoflix/internal/domain/model"
	"github.com/videoflix/videoflix/internal/domain/repository"
)

// ErrOriginalNotUploaded is returned when processing is triggered before the
// original file landed in object storage.
var ErrOriginalNotUploaded = errors.New("original file has not been uploaded")

// CreateVideoInput contains the input parameters for creating a video.
type CreateVideoInput struct {
	Title       string
	Genre       string
	Description string
	FileName    string
}

// CreateVideoOutput contains the result of creating a video.
type CreateVideoOutput struct {
	Video     *model.Video
	UploadURL string
}

// VideoService defines the interface for video business logic operations.
type VideoService interface {
	// CreateVideo creates video metadata and returns a presigned upload URL
	// for the original file.
	CreateVideo(ctx context.Context, input CreateVideoInput) (*CreateVideoOutput, error)

	// TriggerProcess enqueues a processing job for an uploaded video.
	// This is the explicit end of the upload flow; nothing is enqueued
	// implicitly on save.
	TriggerProcess(ctx context.Context, videoID uuid.UUID) error

	// GetVideo retrieves video information by ID.
	GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error)

	// ListVideos retrieves all videos, newest first.
	ListVideos(ctx context.Context) ([]*model.Video, error)

	// DeleteVideo removes every stored file the video references, then
	// destroys the record.
	DeleteVideo(ctx context.Context, videoID uuid.UUID) error
}

// VideoServiceConfig holds configuration for VideoService.
type VideoServiceConfig struct {
	UploadURLExpiry time.Duration
}

// DefaultVideoServiceConfig returns the default configuration.
func DefaultVideoServiceConfig() VideoServiceConfig {
	return VideoServiceConfig{
		UploadURLExpiry: 15 * time.Minute,
	}
}

type videoService struct {
	repo      repository.VideoRepository
	storage   repository.ObjectStorage
	queue     repository.MessageQueue
	lifecycle *StorageLifecycle

	uploadURLExpiry time.Duration
}

// NewVideoService creates a new VideoService instance.
func NewVideoService(
	repo repository.VideoRepository,
	storage repository.ObjectStorage,
	queue repository.MessageQueue,
	cfg VideoServiceConfig,
) VideoService {
	return &videoService{
		repo:            repo,
		storage:         storage,
		queue:           queue,
		lifecycle:       NewStorageLifecycle(storage),
		uploadURLExpiry: cfg.UploadURLExpiry,
	}
}

// CreateVideo creates video metadata and generates a presigned upload URL.
func (s *videoService) CreateVideo(ctx context.Context, input CreateVideoInput) (*CreateVideoOutput, error) {
	video, err := model.NewVideo(input.Title, input.Genre, input.Description)
	if err != nil {
		return nil, err
	}

	key := s.originalKey(video.ID, input.FileName)

	uploadURL, err := s.storage.GeneratePresignedUploadURL(ctx, key, s.uploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate presigned upload URL: %w", err)
	}

	video.SetSourcePath(key)

	if err := s.repo.Create(ctx, video); err != nil {
		return nil, fmt.Errorf("create video: %w", err)
	}

	return &CreateVideoOutput{
		Video:     video,
		UploadURL: uploadURL,
	}, nil
}

// TriggerProcess publishes a ProcessingJob for the video. The original must
// already be in object storage; the presigned URL alone proves nothing. Safe
// to call again for reprocessing: the pipeline overwrites prior outputs.
func (s *videoService) TriggerProcess(ctx context.Context, videoID uuid.UUID) error {
	video, err := s.repo.GetByID(ctx, videoID)
	if err != nil {
		return err
	}

	if video.SourcePath == "" {
		return ErrOriginalNotUploaded
	}
	uploaded, err := s.storage.Exists(ctx, video.SourcePath)
	if err != nil {
		return fmt.Errorf("check original upload: %w", err)
	}
	if !uploaded {
		return ErrOriginalNotUploaded
	}

	if err := s.queue.PublishProcessingJob(ctx, repository.ProcessingJob{
		VideoID: video.ID,
	}); err != nil {
		return fmt.Errorf("publish processing job: %w", err)
	}
	return nil
}

// GetVideo retrieves video information by ID.
func (s *videoService) GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	return s.repo.GetByID(ctx, videoID)
}

// ListVideos retrieves all videos, newest first.
func (s *videoService) ListVideos(ctx context.Context) ([]*model.Video, error) {
	return s.repo.List(ctx)
}

// DeleteVideo removes stored files first, then the record. Already-missing
// files do not block the delete.
func (s *videoService) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	video, err := s.repo.GetByID(ctx, videoID)
	if err != nil {
		return err
	}

	if err := s.lifecycle.RemoveAll(ctx, video); err != nil {
		return fmt.Errorf("remove stored files: %w", err)
	}

	if err := s.repo.Delete(ctx, videoID); err != nil {
		return fmt.Errorf("delete video: %w", err)
	}
	return nil
}

// originalKey creates the storage key for original video files.
// Format: originals/{video_id}/{filename}
func (s *videoService) originalKey(videoID uuid.UUID, filename string) string {
	return path.Join("originals", videoID.String(), filename)
}
