package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/videoflix/videoflix/internal/domain/model"
	"github.com/videoflix/videoflix/internal/domain/repository"
	"github.com/videoflix/videoflix/internal/infrastructure/cache"
	"github.com/videoflix/videoflix/internal/infrastructure/metrics"
	"github.com/videoflix/videoflix/internal/transcoder"
)

// ProcessStatus is the terminal status of one pipeline invocation.
type ProcessStatus string

const (
	StatusSucceeded ProcessStatus = "SUCCEEDED"
	StatusFailed    ProcessStatus = "FAILED"
)

var (
	// ErrJobInFlight is returned when a second job for the same video id
	// arrives while one is still running. The output prefix is exclusively
	// owned by the running job.
	ErrJobInFlight = errors.New("a processing job for this video is already in flight")

	// ErrAllRungsFailed is returned when no rung of the ladder transcoded
	// successfully. Zero renditions is never playable.
	ErrAllRungsFailed = errors.New("every ladder rung failed to transcode")
)

// Report is the structured summary of one pipeline invocation. Scoped
// failures are listed individually so callers can see exactly which parts
// succeeded; they are never collapsed into one opaque error.
type Report struct {
	VideoID         uuid.UUID
	Status          ProcessStatus
	DurationSeconds float64
	RungFailures    []*transcoder.RungError
	AssetFailures   []*transcoder.AssetError
	Derived         *model.Derived // populated only on success
}

// ProcessService runs the full processing pipeline for one video.
type ProcessService interface {
	// Process handles one processing job: probe, transcode the ladder,
	// assemble the master manifest, generate derived assets, upload, and
	// commit all derived fields in a single atomic write.
	//
	// The returned Report is non-nil whenever the pipeline ran; a non-nil
	// error means the job terminated as Failed and the queue may retry.
	Process(ctx context.Context, job repository.ProcessingJob) (*Report, error)
}

// ProcessServiceConfig holds configuration for ProcessService.
type ProcessServiceConfig struct {
	// TempDir is the base directory for per-job working directories.
	TempDir string
	// RungParallelism bounds how many rungs transcode concurrently.
	RungParallelism int
	// Ladder is the fixed, ordered list of quality rungs.
	Ladder []transcoder.Rung
}

type processService struct {
	repo      repository.VideoRepository
	storage   repository.ObjectStorage
	lifecycle *StorageLifecycle
	prober    transcoder.Prober
	rungs     transcoder.RungTranscoder
	assets    transcoder.AssetGenerator
	cache     cache.VideoCache

	tempDir     string
	parallelism int
	ladder      []transcoder.Rung

	mu       sync.Mutex
	inFlight map[uuid.UUID]struct{}
}

// NewProcessService creates a new ProcessService instance.
// videoCache may be nil when the deployment runs without Redis.
func NewProcessService(
	repo repository.VideoRepository,
	storage repository.ObjectStorage,
	prober transcoder.Prober,
	rungs transcoder.RungTranscoder,
	assets transcoder.AssetGenerator,
	videoCache cache.VideoCache,
	cfg ProcessServiceConfig,
) ProcessService {
	parallelism := cfg.RungParallelism
	if parallelism < 1 {
		parallelism = 1
	}
	ladder := cfg.Ladder
	if len(ladder) == 0 {
		ladder = transcoder.DefaultLadder()
	}
	return &processService{
		repo:        repo,
		storage:     storage,
		lifecycle:   NewStorageLifecycle(storage),
		prober:      prober,
		rungs:       rungs,
		assets:      assets,
		cache:       videoCache,
		tempDir:     cfg.TempDir,
		parallelism: parallelism,
		ladder:      ladder,
		inFlight:    make(map[uuid.UUID]struct{}),
	}
}

func (s *processService) Process(ctx context.Context, job repository.ProcessingJob) (*Report, error) {
	if !s.acquire(job.VideoID) {
		return nil, ErrJobInFlight
	}
	defer s.release(job.VideoID)

	start := time.Now()
	report := &Report{VideoID: job.VideoID, Status: StatusFailed}

	err := s.run(ctx, job.VideoID, report)

	metrics.PipelineJobDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PipelineJobsTotal.WithLabelValues(metrics.JobStatusFailed).Inc()
		return report, err
	}
	report.Status = StatusSucceeded
	metrics.PipelineJobsTotal.WithLabelValues(metrics.JobStatusSucceeded).Inc()
	return report, nil
}

// run executes the pipeline stages in order. Any returned error is the
// job's terminal failure reason; scoped rung/asset failures are recorded on
// the report instead of being returned.
func (s *processService) run(ctx context.Context, videoID uuid.UUID, report *Report) error {
	video, err := s.repo.GetByID(ctx, videoID)
	if err != nil {
		return fmt.Errorf("load video: %w", err)
	}
	if video.SourcePath == "" {
		return fmt.Errorf("video %s has no source file", videoID)
	}

	workDir := filepath.Join(s.tempDir, videoID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create work directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	srcPath, err := s.downloadOriginal(ctx, video.SourcePath, workDir)
	if err != nil {
		return fmt.Errorf("download original: %w", err)
	}

	// Probing: I/O-level failure here is fatal, no transcoding is attempted.
	duration, err := s.prober.Duration(ctx, srcPath)
	if err != nil {
		return fmt.Errorf("probe duration: %w", err)
	}

	// Transcoding: every rung is attempted regardless of earlier failures;
	// this is a join point, not a race.
	hlsDir := filepath.Join(workDir, "hls")
	outputs := s.transcodeLadder(ctx, srcPath, hlsDir, report)
	if len(outputs) == 0 {
		return ErrAllRungsFailed
	}

	masterPath := filepath.Join(hlsDir, "master.m3u8")
	if err := transcoder.WriteMasterManifest(masterPath, outputs); err != nil {
		return fmt.Errorf("build master manifest: %w", err)
	}

	derived := s.generateAssets(ctx, srcPath, workDir, duration, report)
	derived.DurationSeconds = duration

	name := video.OutputName()
	derived.MasterManifestPath = path.Join("videos", name, "hls", "master.m3u8")
	for _, out := range outputs {
		derived.QualityLevels = append(derived.QualityLevels, model.QualityLevel{
			Label:  out.Rung.Name,
			Source: path.Join("videos", name, "hls", out.Rung.Name, "index.m3u8"),
		})
	}

	// Replace, never accumulate: the previous run's files go away before the
	// new set is uploaded.
	if err := s.lifecycle.PurgeDerived(ctx, name); err != nil {
		return err
	}
	if err := s.uploadResults(ctx, name, workDir, masterPath, outputs, derived); err != nil {
		return fmt.Errorf("upload results: %w", err)
	}

	// Asset paths were tracked relative to the work directory; persist them
	// as storage keys under the video's derived prefix.
	for _, p := range []*string{&derived.PreviewPath, &derived.ThumbnailPath, &derived.SpritePath} {
		if *p != "" {
			*p = path.Join("videos", name, *p)
		}
	}

	// Committing: one atomic write for all derived fields.
	if err := s.repo.UpdateDerived(ctx, videoID, derived); err != nil {
		return fmt.Errorf("commit derived fields: %w", err)
	}
	report.Derived = &derived
	report.DurationSeconds = duration

	s.invalidateCache(ctx, videoID)
	return nil
}

// transcodeLadder attempts every configured rung, bounded-parallel, and
// returns the successful outputs in ladder order. Failures land on the
// report, one RungError per failed rung.
func (s *processService) transcodeLadder(ctx context.Context, srcPath, hlsDir string, report *Report) []transcoder.RungOutput {
	results := make([]*transcoder.RungOutput, len(s.ladder))
	failures := make([]*transcoder.RungError, len(s.ladder))

	g := &errgroup.Group{}
	g.SetLimit(s.parallelism)
	for i, rung := range s.ladder {
		g.Go(func() error {
			out, err := s.rungs.TranscodeRung(ctx, srcPath, hlsDir, rung)
			if err != nil {
				var rungErr *transcoder.RungError
				if !errors.As(err, &rungErr) {
					rungErr = &transcoder.RungError{Rung: rung, ExitCode: -1, Err: err}
				}
				failures[i] = rungErr
				slog.Warn("rung transcode failed",
					slog.String("rung", rung.Name),
					slog.Int("exit_code", rungErr.ExitCode),
					slog.String("error", rungErr.Error()),
				)
				return nil
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait() // barrier: all rung attempts have resolved

	var outputs []transcoder.RungOutput
	for i := range s.ladder {
		if results[i] != nil {
			outputs = append(outputs, *results[i])
		}
		if failures[i] != nil {
			report.RungFailures = append(report.RungFailures, failures[i])
			metrics.RungFailuresTotal.WithLabelValues(failures[i].Rung.Name).Inc()
		}
	}
	return outputs
}

// generateAssets produces preview, thumbnail and sprite independently.
// Each failure only suppresses its own field.
func (s *processService) generateAssets(ctx context.Context, srcPath, workDir string, duration float64, report *Report) model.Derived {
	var derived model.Derived

	record := func(kind transcoder.AssetKind, err error) {
		var assetErr *transcoder.AssetError
		if !errors.As(err, &assetErr) {
			assetErr = &transcoder.AssetError{Kind: kind, ExitCode: -1, Err: err}
		}
		report.AssetFailures = append(report.AssetFailures, assetErr)
		metrics.AssetFailuresTotal.WithLabelValues(string(kind)).Inc()
		slog.Warn("derived asset generation failed",
			slog.String("kind", string(kind)),
			slog.Int("exit_code", assetErr.ExitCode),
			slog.String("error", assetErr.Error()),
		)
	}

	if err := s.assets.Preview(ctx, srcPath, filepath.Join(workDir, "previews", "preview.mp4")); err != nil {
		record(transcoder.AssetPreview, err)
	} else {
		derived.PreviewPath = "previews/preview.mp4"
	}

	if err := s.assets.Thumbnail(ctx, srcPath, filepath.Join(workDir, "thumbs", "thumb.jpg")); err != nil {
		record(transcoder.AssetThumbnail, err)
	} else {
		derived.ThumbnailPath = "thumbs/thumb.jpg"
	}

	if err := s.assets.Sprite(ctx, srcPath, filepath.Join(workDir, "sprites", "sprite.jpg"), duration); err != nil {
		record(transcoder.AssetSprite, err)
	} else {
		derived.SpritePath = "sprites/sprite.jpg"
	}

	return derived
}

// downloadOriginal fetches the uploaded original into the work directory.
func (s *processService) downloadOriginal(ctx context.Context, key, workDir string) (string, error) {
	reader, err := s.storage.Download(ctx, key)
	if err != nil {
		return "", fmt.Errorf("storage download: %w", err)
	}
	defer func() { _ = reader.Close() }()

	filename := filepath.Base(key)
	if filename == "." || filename == "/" {
		filename = "original.mp4"
	}

	localPath := filepath.Join(workDir, filename)
	file, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("create local file: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("copy to local file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close local file: %w", err)
	}

	return localPath, nil
}

// uploadResults pushes the manifest, every rung's files and the generated
// assets under the video's derived prefix. Asset paths on derived are still
// work-directory-relative at this point.
func (s *processService) uploadResults(ctx context.Context, name, workDir, masterPath string, outputs []transcoder.RungOutput, derived model.Derived) error {
	base := path.Join("videos", name)

	if err := s.uploadFile(ctx, masterPath, path.Join(base, "hls", "master.m3u8")); err != nil {
		return err
	}

	for _, out := range outputs {
		rungBase := path.Join(base, "hls", out.Rung.Name)
		if err := s.uploadFile(ctx, out.ManifestPath, path.Join(rungBase, "index.m3u8")); err != nil {
			return err
		}
		for _, seg := range out.SegmentPaths {
			if err := s.uploadFile(ctx, seg, path.Join(rungBase, filepath.Base(seg))); err != nil {
				return err
			}
		}
	}

	for _, rel := range []string{derived.PreviewPath, derived.ThumbnailPath, derived.SpritePath} {
		if rel == "" {
			continue
		}
		if err := s.uploadFile(ctx, filepath.Join(workDir, filepath.FromSlash(rel)), path.Join(base, rel)); err != nil {
			return err
		}
	}
	return nil
}

func (s *processService) uploadFile(ctx context.Context, localPath, key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer func() { _ = file.Close() }()

	if err := s.storage.Upload(ctx, key, file, contentTypeFor(key)); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func contentTypeFor(key string) string {
	switch path.Ext(key) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".mp4":
		return "video/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}

func (s *processService) invalidateCache(ctx context.Context, videoID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, videoID); err != nil {
		slog.Warn("failed to invalidate cache after processing",
			slog.String("video_id", videoID.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *processService) acquire(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.inFlight[id]; running {
		return false
	}
	s.inFlight[id] = struct{}{}
	return true
}

func (s *processService) release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}
