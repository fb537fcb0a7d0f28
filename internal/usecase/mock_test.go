package usecase

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/videoflix/videoflix/internal/domain/model"
	"github.com/videoflix/videoflix/internal/domain/repository"
	"github.com/videoflix/videoflix/internal/transcoder"
)

// mockVideoRepository provides a configurable mock for VideoRepository.
type mockVideoRepository struct {
	createFn        func(ctx context.Context, video *model.Video) error
	getByIDFn       func(ctx context.Context, id uuid.UUID) (*model.Video, error)
	listFn          func(ctx context.Context) ([]*model.Video, error)
	updateDerivedFn func(ctx context.Context, id uuid.UUID, derived model.Derived) error
	deleteFn        func(ctx context.Context, id uuid.UUID) error
}

func (m *mockVideoRepository) Create(ctx context.Context, video *model.Video) error {
	if m.createFn != nil {
		return m.createFn(ctx, video)
	}
	return nil
}

func (m *mockVideoRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Video, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockVideoRepository) List(ctx context.Context) ([]*model.Video, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockVideoRepository) UpdateDerived(ctx context.Context, id uuid.UUID, derived model.Derived) error {
	if m.updateDerivedFn != nil {
		return m.updateDerivedFn(ctx, id, derived)
	}
	return nil
}

func (m *mockVideoRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

// mockObjectStorage provides a configurable mock for ObjectStorage.
type mockObjectStorage struct {
	generatePresignedUploadURLFn func(ctx context.Context, key string, expiry time.Duration) (string, error)
	uploadFn                     func(ctx context.Context, key string, reader io.Reader, contentType string) error
	downloadFn                   func(ctx context.Context, key string) (io.ReadCloser, error)
	deleteFn                     func(ctx context.Context, key string) error
	removeByPrefixFn             func(ctx context.Context, prefix string) error
	existsFn                     func(ctx context.Context, key string) (bool, error)
}

func (m *mockObjectStorage) GeneratePresignedUploadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if m.generatePresignedUploadURLFn != nil {
		return m.generatePresignedUploadURLFn(ctx, key, expiry)
	}
	return "http://example.com/upload", nil
}

func (m *mockObjectStorage) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, key, reader, contentType)
	}
	return nil
}

func (m *mockObjectStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.downloadFn != nil {
		return m.downloadFn(ctx, key)
	}
	return io.NopCloser(nil), nil
}

func (m *mockObjectStorage) Delete(ctx context.Context, key string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, key)
	}
	return nil
}

func (m *mockObjectStorage) RemoveByPrefix(ctx context.Context, prefix string) error {
	if m.removeByPrefixFn != nil {
		return m.removeByPrefixFn(ctx, prefix)
	}
	return nil
}

func (m *mockObjectStorage) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return true, nil
}

// mockMessageQueue provides a configurable mock for MessageQueue.
type mockMessageQueue struct {
	publishProcessingJobFn  func(ctx context.Context, job repository.ProcessingJob) error
	consumeProcessingJobsFn func(ctx context.Context, handler func(job repository.ProcessingJob) error) error
}

func (m *mockMessageQueue) PublishProcessingJob(ctx context.Context, job repository.ProcessingJob) error {
	if m.publishProcessingJobFn != nil {
		return m.publishProcessingJobFn(ctx, job)
	}
	return nil
}

func (m *mockMessageQueue) ConsumeProcessingJobs(ctx context.Context, handler func(job repository.ProcessingJob) error) error {
	if m.consumeProcessingJobsFn != nil {
		return m.consumeProcessingJobsFn(ctx, handler)
	}
	return nil
}

func (m *mockMessageQueue) Close() error {
	return nil
}

// mockProber provides a configurable mock for transcoder.Prober.
type mockProber struct {
	durationFn func(ctx context.Context, sourcePath string) (float64, error)
}

func (m *mockProber) Duration(ctx context.Context, sourcePath string) (float64, error) {
	if m.durationFn != nil {
		return m.durationFn(ctx, sourcePath)
	}
	return 0, nil
}

// mockRungTranscoder provides a configurable mock for transcoder.RungTranscoder.
type mockRungTranscoder struct {
	transcodeRungFn func(ctx context.Context, sourcePath, outputDir string, rung transcoder.Rung) (*transcoder.RungOutput, error)
}

func (m *mockRungTranscoder) TranscodeRung(ctx context.Context, sourcePath, outputDir string, rung transcoder.Rung) (*transcoder.RungOutput, error) {
	if m.transcodeRungFn != nil {
		return m.transcodeRungFn(ctx, sourcePath, outputDir, rung)
	}
	return &transcoder.RungOutput{Rung: rung}, nil
}

// mockAssetGenerator provides a configurable mock for transcoder.AssetGenerator.
type mockAssetGenerator struct {
	previewFn   func(ctx context.Context, sourcePath, outPath string) error
	thumbnailFn func(ctx context.Context, sourcePath, outPath string) error
	spriteFn    func(ctx context.Context, sourcePath, outPath string, durationSeconds float64) error
}

func (m *mockAssetGenerator) Preview(ctx context.Context, sourcePath, outPath string) error {
	if m.previewFn != nil {
		return m.previewFn(ctx, sourcePath, outPath)
	}
	return nil
}

func (m *mockAssetGenerator) Thumbnail(ctx context.Context, sourcePath, outPath string) error {
	if m.thumbnailFn != nil {
		return m.thumbnailFn(ctx, sourcePath, outPath)
	}
	return nil
}

func (m *mockAssetGenerator) Sprite(ctx context.Context, sourcePath, outPath string, durationSeconds float64) error {
	if m.spriteFn != nil {
		return m.spriteFn(ctx, sourcePath, outPath, durationSeconds)
	}
	return nil
}

// mockVideoCache provides a configurable mock for cache.VideoCache.
type mockVideoCache struct {
	getFn    func(ctx context.Context, videoID uuid.UUID) (*model.Video, error)
	setFn    func(ctx context.Context, video *model.Video, ttl time.Duration) error
	deleteFn func(ctx context.Context, videoID uuid.UUID) error
}

func (m *mockVideoCache) Get(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	if m.getFn != nil {
		return m.getFn(ctx, videoID)
	}
	return nil, nil
}

func (m *mockVideoCache) Set(ctx context.Context, video *model.Video, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, video, ttl)
	}
	return nil
}

func (m *mockVideoCache) Delete(ctx context.Context, videoID uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, videoID)
	}
	return nil
}

// mockVideoService provides a configurable mock for VideoService, used by
// decorator tests.
type mockVideoService struct {
	createVideoFn    func(ctx context.Context, input CreateVideoInput) (*CreateVideoOutput, error)
	triggerProcessFn func(ctx context.Context, videoID uuid.UUID) error
	getVideoFn       func(ctx context.Context, videoID uuid.UUID) (*model.Video, error)
	listVideosFn     func(ctx context.Context) ([]*model.Video, error)
	deleteVideoFn    func(ctx context.Context, videoID uuid.UUID) error
}

func (m *mockVideoService) CreateVideo(ctx context.Context, input CreateVideoInput) (*CreateVideoOutput, error) {
	if m.createVideoFn != nil {
		return m.createVideoFn(ctx, input)
	}
	return nil, nil
}

func (m *mockVideoService) TriggerProcess(ctx context.Context, videoID uuid.UUID) error {
	if m.triggerProcessFn != nil {
		return m.triggerProcessFn(ctx, videoID)
	}
	return nil
}

func (m *mockVideoService) GetVideo(ctx context.Context, videoID uuid.UUID) (*model.Video, error) {
	if m.getVideoFn != nil {
		return m.getVideoFn(ctx, videoID)
	}
	return nil, nil
}

func (m *mockVideoService) ListVideos(ctx context.Context) ([]*model.Video, error) {
	if m.listVideosFn != nil {
		return m.listVideosFn(ctx)
	}
	return nil, nil
}

func (m *mockVideoService) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	if m.deleteVideoFn != nil {
		return m.deleteVideoFn(ctx, videoID)
	}
	return nil
}
