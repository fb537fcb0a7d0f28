package transcoder

import (
	"context"
	"fmt"
)

// Rung is one entry in the fixed quality ladder. Name doubles as the output
// subdirectory and the quality label persisted on the video record.
type Rung struct {
	Name             string
	Width            int
	Height           int
	VideoBitrate     string // ffmpeg rate string, e.g. "2800k"
	PeakBandwidth    int    // bits/s, BANDWIDTH in the master manifest
	AverageBandwidth int    // bits/s, AVERAGE-BANDWIDTH in the master manifest
}

// Resolution returns the rung's target size as "WxH".
func (r Rung) Resolution() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// DefaultLadder returns the fixed rendition ladder produced for every video,
// highest quality first. The ladder is a deployment constant, not per-asset
// configuration.
func DefaultLadder() []Rung {
	return []Rung{
		{Name: "1080p", Width: 1920, Height: 1080, VideoBitrate: "5000k", PeakBandwidth: 6000000, AverageBandwidth: 5000000},
		{Name: "720p", Width: 1280, Height: 720, VideoBitrate: "2800k", PeakBandwidth: 3500000, AverageBandwidth: 2800000},
		{Name: "360p", Width: 640, Height: 360, VideoBitrate: "800k", PeakBandwidth: 1200000, AverageBandwidth: 1000000},
		{Name: "144p", Width: 256, Height: 144, VideoBitrate: "200k", PeakBandwidth: 400000, AverageBandwidth: 300000},
	}
}

// RungOutput describes one successfully transcoded rung.
type RungOutput struct {
	Rung Rung
	// ManifestPath is the local path to the rung's index.m3u8.
	ManifestPath string
	// SegmentPaths are local paths to the rung's .ts segments, in order.
	SegmentPaths []string
}

// ProbeError is an I/O-level probe failure: missing source file or an
// ffprobe binary that cannot be invoked. A present-but-malformed file is
// not a ProbeError; it probes to a zero duration.
type ProbeError struct {
	Source string
	Err    error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s: %v", e.Source, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// RungError is a transcode failure scoped to a single rung. One rung
// failing never cancels the others; the orchestrator aggregates.
type RungError struct {
	Rung     Rung
	ExitCode int
	Err      error
}

func (e *RungError) Error() string {
	return fmt.Sprintf("transcode rung %s (exit %d): %v", e.Rung.Name, e.ExitCode, e.Err)
}

func (e *RungError) Unwrap() error { return e.Err }

// AssetKind identifies one independently generated derived asset.
type AssetKind string

const (
	AssetPreview   AssetKind = "preview"
	AssetThumbnail AssetKind = "thumbnail"
	AssetSprite    AssetKind = "sprite"
)

// AssetError is a generation failure scoped to a single derived asset kind.
// Asset failures are never fatal to the job; they only suppress their field.
type AssetError struct {
	Kind     AssetKind
	ExitCode int
	Err      error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("generate %s (exit %d): %v", e.Kind, e.ExitCode, e.Err)
}

func (e *AssetError) Unwrap() error { return e.Err }

// Prober extracts the duration of a source media file.
type Prober interface {
	// Duration returns the source duration in seconds. A malformed duration
	// yields 0.0 and no error; only I/O-level failures return a *ProbeError.
	Duration(ctx context.Context, sourcePath string) (float64, error)
}

// RungTranscoder produces one segmented rendition per invocation.
type RungTranscoder interface {
	// TranscodeRung writes fixed-duration segments plus an index manifest
	// into outputDir/<rung.Name>/, replacing any prior contents of that
	// directory. Returns a *RungError on tool failure.
	TranscodeRung(ctx context.Context, sourcePath, outputDir string, rung Rung) (*RungOutput, error)
}

// AssetGenerator produces the optional derived assets. Each method is
// independent; a failure in one never blocks the others.
type AssetGenerator interface {
	// Preview writes a short re-encoded clip from the start of the source.
	Preview(ctx context.Context, sourcePath, outPath string) error

	// Thumbnail writes a single still frame extracted near the start.
	Thumbnail(ctx context.Context, sourcePath, outPath string) error

	// Sprite writes a tiled contact sheet sampled at a fixed interval.
	// durationSeconds sizes the grid.
	Sprite(ctx context.Context, sourcePath, outPath string, durationSeconds float64) error
}
