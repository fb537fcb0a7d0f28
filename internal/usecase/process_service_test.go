package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/videoflix/videoflix/internal/domain/model"
	"github.com/videoflix/videoflix/internal/domain/repository"
	"github.com/videoflix/videoflix/internal/transcoder"
)

// pipelineFixture wires a ProcessService with working mocks: the rung
// transcoder and asset generator write real files so the upload stage has
// something to read.
type pipelineFixture struct {
	video   *model.Video
	repo    *mockVideoRepository
	storage *mockObjectStorage
	prober  *mockProber
	rungs   *mockRungTranscoder
	assets  *mockAssetGenerator
	cache   *mockVideoCache

	mu       sync.Mutex
	uploads  []string
	purges   []string
	attempts []string
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()

	video := &model.Video{
		ID:         uuid.New(),
		Title:      "Breakout",
		SourcePath: "originals/abc/Breakout.mp4",
	}

	f := &pipelineFixture{video: video}

	f.repo = &mockVideoRepository{
		getByIDFn: func(_ context.Context, id uuid.UUID) (*model.Video, error) {
			if id != video.ID {
				return nil, repository.ErrVideoNotFound
			}
			return video, nil
		},
	}

	f.storage = &mockObjectStorage{
		downloadFn: func(_ context.Context, _ string) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("original bytes")), nil
		},
		uploadFn: func(_ context.Context, key string, _ io.Reader, _ string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.uploads = append(f.uploads, key)
			return nil
		},
		removeByPrefixFn: func(_ context.Context, prefix string) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.purges = append(f.purges, prefix)
			return nil
		},
	}

	f.prober = &mockProber{
		durationFn: func(_ context.Context, _ string) (float64, error) {
			return 125.4, nil
		},
	}

	f.rungs = &mockRungTranscoder{
		transcodeRungFn: func(_ context.Context, _, outputDir string, rung transcoder.Rung) (*transcoder.RungOutput, error) {
			f.mu.Lock()
			f.attempts = append(f.attempts, rung.Name)
			f.mu.Unlock()
			return writeRungOutput(t, outputDir, rung)
		},
	}

	f.assets = &mockAssetGenerator{
		previewFn: func(_ context.Context, _, outPath string) error {
			return writeTestFile(outPath)
		},
		thumbnailFn: func(_ context.Context, _, outPath string) error {
			return writeTestFile(outPath)
		},
		spriteFn: func(_ context.Context, _, outPath string, _ float64) error {
			return writeTestFile(outPath)
		},
	}

	f.cache = &mockVideoCache{}

	return f
}

func (f *pipelineFixture) service(t *testing.T) ProcessService {
	t.Helper()
	return NewProcessService(f.repo, f.storage, f.prober, f.rungs, f.assets, f.cache, ProcessServiceConfig{
		TempDir:         t.TempDir(),
		RungParallelism: 2,
	})
}

func (f *pipelineFixture) uploadedKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

func writeRungOutput(t *testing.T, outputDir string, rung transcoder.Rung) (*transcoder.RungOutput, error) {
	t.Helper()
	rungDir := filepath.Join(outputDir, rung.Name)
	if err := os.MkdirAll(rungDir, 0755); err != nil {
		return nil, err
	}
	manifest := filepath.Join(rungDir, "index.m3u8")
	if err := os.WriteFile(manifest, []byte("#EXTM3U"), 0644); err != nil {
		return nil, err
	}
	var segments []string
	for i := 0; i < 2; i++ {
		seg := filepath.Join(rungDir, fmt.Sprintf("seg_%03d.ts", i))
		if err := os.WriteFile(seg, []byte("ts"), 0644); err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return &transcoder.RungOutput{Rung: rung, ManifestPath: manifest, SegmentPaths: segments}, nil
}

func writeTestFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte("asset"), 0644)
}

func TestProcessService_Process_Success(t *testing.T) {
	f := newPipelineFixture(t)

	var committed *model.Derived
	f.repo.updateDerivedFn = func(_ context.Context, id uuid.UUID, derived model.Derived) error {
		if id != f.video.ID {
			t.Errorf("commit for wrong video: %s", id)
		}
		committed = &derived
		return nil
	}

	svc := f.service(t)
	report, err := svc.Process(context.Background(), repository.ProcessingJob{VideoID: f.video.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Status != StatusSucceeded {
		t.Errorf("status: got %s, expected %s", report.Status, StatusSucceeded)
	}
	if report.DurationSeconds != 125.4 {
		t.Errorf("duration: got %v, expected 125.4", report.DurationSeconds)
	}
	if len(report.RungFailures) != 0 || len(report.AssetFailures) != 0 {
		t.Errorf("unexpected failures: %v %v", report.RungFailures, report.AssetFailures)
	}

	if committed == nil {
		t.Fatal("derived fields were not committed")
	}
	if committed.DurationSeconds != 125.4 {
		t.Errorf("committed duration: got %v", committed.DurationSeconds)
	}
	if committed.MasterManifestPath != "videos/breakout/hls/master.m3u8" {
		t.Errorf("master manifest path: got %q", committed.MasterManifestPath)
	}
	if len(committed.QualityLevels) != 4 {
		t.Fatalf("quality levels: got %d, expected 4", len(committed.QualityLevels))
	}
	expectedLevels := []model.QualityLevel{
		{Label: "1080p", Source: "videos/breakout/hls/1080p/index.m3u8"},
		{Label: "720p", Source: "videos/breakout/hls/720p/index.m3u8"},
		{Label: "360p", Source: "videos/breakout/hls/360p/index.m3u8"},
		{Label: "144p", Source: "videos/breakout/hls/144p/index.m3u8"},
	}
	for i, expected := range expectedLevels {
		if committed.QualityLevels[i] != expected {
			t.Errorf("level[%d]: got %+v, expected %+v", i, committed.QualityLevels[i], expected)
		}
	}
	if committed.PreviewPath != "videos/breakout/previews/preview.mp4" {
		t.Errorf("preview path: got %q", committed.PreviewPath)
	}
	if committed.ThumbnailPath != "videos/breakout/thumbs/thumb.jpg" {
		t.Errorf("thumbnail path: got %q", committed.ThumbnailPath)
	}
	if committed.SpritePath != "videos/breakout/sprites/sprite.jpg" {
		t.Errorf("sprite path: got %q", committed.SpritePath)
	}

	uploads := f.uploadedKeys()
	var hasMaster bool
	for _, key := range uploads {
		if key == "videos/breakout/hls/master.m3u8" {
			hasMaster = true
		}
	}
	if !hasMaster {
		t.Errorf("master manifest was not uploaded: %v", uploads)
	}
}

func TestProcessService_Process_PurgesBeforeUpload(t *testing.T) {
	f := newPipelineFixture(t)

	var events []string
	f.storage.removeByPrefixFn = func(_ context.Context, prefix string) error {
		events = append(events, "purge:"+prefix)
		return nil
	}
	f.storage.uploadFn = func(_ context.Context, key string, _ io.Reader, _ string) error {
		events = append(events, "upload:"+key)
		return nil
	}

	svc := f.service(t)
	if _, err := svc.Process(context.Background(), repository.ProcessingJob{VideoID: f.video.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(events) == 0 || events[0] != "purge:videos/breakout/" {
		t.Fatalf("expected purge of the derived prefix before any upload, got %v", events)
	}
}

func TestProcessService_Process_PartialRungFailure(t *testing.T) {
	f := newPipelineFixture(t)

	f.rungs.transcodeRungFn = func(_ context.Context, _, outputDir string, rung transcoder.Rung) (*transcoder.RungOutput, error) {
		f.mu.Lock()
		f.attempts = append(f.attempts, rung.Name)
		f.mu.Unlock()
		if rung.Name == "720p" {
			return nil, &transcoder.RungError{Rung: rung, ExitCode: 1, Err: errors.New("encoder crashed")}
		}
		return writeRungOutput(t, outputDir, rung)
	}

	var committed *model.Derived
	f.repo.updateDerivedFn = func(_ context.Context, _ uuid.UUID, derived model.Derived) error {
		committed = &derived
		return nil
	}

	svc := f.service(t)
	report, err := svc.Process(context.Background(), repository.ProcessingJob{VideoID: f.video.ID})
	if err != nil {
		t.Fatalf("a single rung failure must not fail the job: %v", err)
	}

	if report.Status != StatusSucceeded {
		t.Errorf("status: got %s, expected %s", report.Status, StatusSucceeded)
	}
	if len(report.RungFailures) != 1 {
		t.Fatalf("rung failures: got %d, expected 1", len(report.RungFailures))
	}
	if report.RungFailures[0].Rung.Name != "720p" {
		t.Errorf("failed rung: got %q, expected 720p", report.RungFailures[0].Rung.Name)
	}

	// Every rung is still attempted.
	f.mu.Lock()
	attempts := len(f.attempts)
	f.mu.Unlock()
	if attempts != 4 {
		t.Errorf("rung attempts: got %d, expected 4", attempts)
	}

	if committed == nil {
		t.Fatal("derived fields were not committed")
	}
	if len(committed.QualityLevels) != 3 {
		t.Fatalf("quality levels: got %d, expected 3", len(committed.QualityLevels))
	}
	for _, level := range committed.QualityLevels {
		if level.Label == "720p" {
			t.Error("failed rung must not appear in quality levels")
		}
	}
}

func TestProcessService_Process_AllRungsFailed(t *testing.T) {
	f := newPipelineFixture(t)

	f.rungs.transcodeRungFn = func(_ context.Context, _, _ string, rung transcoder.Rung) (*transcoder.RungOutput, error) {
		return nil, &transcoder.RungError{Rung: rung, ExitCode: 1, Err: errors.New("encoder crashed")}
	}

	committed := false
	f.repo.updateDerivedFn = func(_ context.Context, _ uuid.UUID, _ model.Derived) error {
		committed = true
		return nil
	}

	svc := f.service(t)
	report, err := svc.Process(context.Background(), repository.ProcessingJob{VideoID: f.video.ID})

	if !errors.Is(err, ErrAllRungsFailed) {
		t.Fatalf("expected ErrAllRungsFailed, got %v", err)
	}
	if report.Status != StatusFailed {
		t.Errorf("status: got %s, expected %s", report.Status, StatusFailed)
	}
	if len(report.RungFailures) != 4 {
		t.Errorf("rung failures: got %d, expected 4", len(report.RungFailures))
	}
	if committed {
		t.Error("derived fields must not be committed when the job fails")
	}
	if len(f.uploadedKeys()) != 0 {
		t.Errorf("nothing should be uploaded: %v", f.uploadedKeys())
	}
}

func TestProcessService_Process_AssetFailureIsNotFatal(t *testing.T) {
	f := newPipelineFixture(t)

	f.assets.thumbnailFn = func(_ context.Context, _, _ string) error {
		return &transcoder.AssetError{Kind: transcoder.AssetThumbnail, ExitCode: 1, Err: errors.New("no frame")}
	}

	var committed *model.Derived
	f.repo.updateDerivedFn = func(_ context.Context, _ uuid.UUID, derived model.Derived) error {
		committed = &derived
		return nil
	}

	svc := f.service(t)
	report, err := svc.Process(context.Background(), repository.ProcessingJob{VideoID: f.video.ID})
	if err != nil {
		t.Fatalf("an asset failure must not fail the job: %v", err)
	}

	if len(report.AssetFailures) != 1 {
		t.Fatalf("asset failures: got %d, expected 1", len(report.AssetFailures))
	}
	if report.AssetFailures[0].Kind != transcoder.AssetThumbnail {
		t.Errorf("failed asset: got %q", report.AssetFailures[0].Kind)
	}

	if committed == nil {
		t.Fatal("derived fields were not committed")
	}
	if committed.ThumbnailPath != "" {
		t.Errorf("thumbnail path must stay empty, got %q", committed.ThumbnailPath)
	}
	if committed.PreviewPath == "" || committed.SpritePath == "" {
		t.Error("the other asset paths must still be set")
	}
}

func TestProcessService_Process_ProbeFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(t)

	f.prober.durationFn = func(_ context.Context, sourcePath string) (float64, error) {
		return 0, &transcoder.ProbeError{Source: sourcePath, Err: errors.New("ffprobe unavailable")}
	}

	svc := f.service(t)
	_, err := svc.Process(context.Background(), repository.ProcessingJob{VideoID: f.video.ID})

	var probeErr *transcoder.ProbeError
	if !errors.As(err, &probeErr) {
		t.Fatalf("expected ProbeError, got %v", err)
	}

	f.mu.Lock()
	attempts := len(f.attempts)
	f.mu.Unlock()
	if attempts != 0 {
		t.Error("no rung should be attempted after a fatal probe failure")
	}
}

func TestProcessService_Process_CommitFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(t)

	f.repo.updateDerivedFn = func(_ context.Context, _ uuid.UUID, _ model.Derived) error {
		return errors.New("connection lost")
	}

	svc := f.service(t)
	report, err := svc.Process(context.Background(), repository.ProcessingJob{VideoID: f.video.ID})
	if err == nil {
		t.Fatal("expected error when the commit fails")
	}
	if report.Status != StatusFailed {
		t.Errorf("status: got %s, expected %s", report.Status, StatusFailed)
	}
}

func TestProcessService_Process_MissingSourcePath(t *testing.T) {
	f := newPipelineFixture(t)
	f.video.SourcePath = ""

	svc := f.service(t)
	_, err := svc.Process(context.Background(), repository.ProcessingJob{VideoID: f.video.ID})
	if err == nil {
		t.Fatal("expected error for a video without an uploaded original")
	}
}

func TestProcessService_Process_RejectsDuplicateInFlight(t *testing.T) {
	f := newPipelineFixture(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var enteredOnce sync.Once
	f.repo.getByIDFn = func(_ context.Context, _ uuid.UUID) (*model.Video, error) {
		enteredOnce.Do(func() { close(entered) })
		<-release
		return f.video, nil
	}

	svc := f.service(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.Process(context.Background(), repository.ProcessingJob{VideoID: f.video.ID})
	}()

	<-entered
	_, err := svc.Process(context.Background(), repository.ProcessingJob{VideoID: f.video.ID})
	if !errors.Is(err, ErrJobInFlight) {
		t.Errorf("expected ErrJobInFlight, got %v", err)
	}

	close(release)
	<-done

	// The guard is released once the first job finishes.
	if _, err := svc.Process(context.Background(), repository.ProcessingJob{VideoID: f.video.ID}); err != nil {
		t.Errorf("unexpected error after the first job completed: %v", err)
	}
}

func TestProcessService_Process_InvalidatesCache(t *testing.T) {
	f := newPipelineFixture(t)

	invalidated := false
	f.cache.deleteFn = func(_ context.Context, id uuid.UUID) error {
		if id == f.video.ID {
			invalidated = true
		}
		return nil
	}

	svc := f.service(t)
	if _, err := svc.Process(context.Background(), repository.ProcessingJob{VideoID: f.video.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !invalidated {
		t.Error("cache entry must be invalidated after a successful run")
	}
}
