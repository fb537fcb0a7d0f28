package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FFmpegConfig holds the encoder settings shared by every rung.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// SegmentSeconds is the target duration of each HLS segment.
	// Constant across all rungs.
	SegmentSeconds int

	// Preset controls the encoding speed/quality tradeoff.
	Preset string

	// CRF is the constant rate factor for libx264.
	CRF int
}

// DefaultFFmpegConfig returns an FFmpegConfig with production defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath:     "ffmpeg",
		SegmentSeconds: 2,
		Preset:         "medium",
		CRF:            20,
	}
}

// FFmpegTranscoder implements RungTranscoder using the ffmpeg CLI.
type FFmpegTranscoder struct {
	runner ToolRunner
	config FFmpegConfig
}

// Compile-time verification that FFmpegTranscoder implements RungTranscoder.
var _ RungTranscoder = (*FFmpegTranscoder)(nil)

// NewFFmpegTranscoder creates a new ffmpeg-based rung transcoder.
func NewFFmpegTranscoder(runner ToolRunner, cfg FFmpegConfig) *FFmpegTranscoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &FFmpegTranscoder{runner: runner, config: cfg}
}

// TranscodeRung produces one segmented rendition under outputDir/<rung.Name>/.
// The rung directory is recreated from scratch so a rerun with a different
// segment count leaves no stale segments behind.
func (t *FFmpegTranscoder) TranscodeRung(ctx context.Context, sourcePath, outputDir string, rung Rung) (*RungOutput, error) {
	rungDir := filepath.Join(outputDir, rung.Name)
	if err := resetDir(rungDir); err != nil {
		return nil, &RungError{Rung: rung, ExitCode: -1, Err: err}
	}

	manifestPath := filepath.Join(rungDir, "index.m3u8")
	segmentPattern := filepath.Join(rungDir, "seg_%03d.ts")

	args := t.buildRungArgs(sourcePath, manifestPath, segmentPattern, rung)

	if err := t.runner.Run(ctx, t.config.FFmpegPath, args...); err != nil {
		return nil, &RungError{Rung: rung, ExitCode: exitCodeOf(err), Err: err}
	}

	segments, err := collectSegments(rungDir)
	if err != nil {
		return nil, &RungError{Rung: rung, ExitCode: -1, Err: err}
	}

	return &RungOutput{
		Rung:         rung,
		ManifestPath: manifestPath,
		SegmentPaths: segments,
	}, nil
}

// buildRungArgs constructs the ffmpeg command arguments for one rung.
func (t *FFmpegTranscoder) buildRungArgs(sourcePath, manifestPath, segmentPattern string, rung Rung) []string {
	return []string{
		"-y",
		"-i", sourcePath,
		"-c:v", "libx264",
		"-profile:v", "high",
		"-level:v", "4.0",
		"-preset", t.config.Preset,
		"-crf", fmt.Sprintf("%d", t.config.CRF),
		"-s:v", rung.Resolution(),
		"-b:v", rung.VideoBitrate,
		"-maxrate", rung.VideoBitrate,
		"-bufsize", "2M",
		"-sc_threshold", "0",
		"-force_key_frames", fmt.Sprintf("expr:gte(t,n_forced*%d)", t.config.SegmentSeconds),
		"-c:a", "aac",
		"-ac", "2",
		"-b:a", "128k",
		"-hls_time", fmt.Sprintf("%d", t.config.SegmentSeconds),
		"-hls_playlist_type", "vod",
		"-hls_flags", "independent_segments",
		"-hls_segment_filename", segmentPattern,
		manifestPath,
	}
}

// resetDir recreates dir empty, discarding any prior contents.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clear output directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// collectSegments finds all generated .ts segment files in dir, sorted by
// name so the deterministic seg_NNN numbering gives a stable order.
func collectSegments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read output directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".ts") {
			segments = append(segments, filepath.Join(dir, entry.Name()))
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments generated in output directory")
	}

	sort.Strings(segments)
	return segments, nil
}

// exitCodeOf pulls the tool exit code out of a runner error, -1 otherwise.
func exitCodeOf(err error) int {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.ExitCode
	}
	return -1
}
