package transcoder

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// AssetConfig holds the parameters for derived-asset generation.
type AssetConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	FFmpegPath string

	// PreviewSeconds is the length of the preview clip.
	PreviewSeconds int

	// ThumbnailOffset is the timestamp, in seconds, of the extracted frame.
	ThumbnailOffset float64

	// SpriteInterval is the seconds between sampled sprite frames.
	SpriteInterval int

	// SpriteColumns is the number of columns in the sprite grid.
	SpriteColumns int
}

// DefaultAssetConfig returns an AssetConfig with production defaults.
func DefaultAssetConfig() AssetConfig {
	return AssetConfig{
		FFmpegPath:      "ffmpeg",
		PreviewSeconds:  10,
		ThumbnailOffset: 5,
		SpriteInterval:  10,
		SpriteColumns:   5,
	}
}

// FFmpegAssetGenerator implements AssetGenerator using the ffmpeg CLI.
type FFmpegAssetGenerator struct {
	runner ToolRunner
	config AssetConfig
}

// Compile-time verification that FFmpegAssetGenerator implements AssetGenerator.
var _ AssetGenerator = (*FFmpegAssetGenerator)(nil)

// NewFFmpegAssetGenerator creates a new ffmpeg-based asset generator.
func NewFFmpegAssetGenerator(runner ToolRunner, cfg AssetConfig) *FFmpegAssetGenerator {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	return &FFmpegAssetGenerator{runner: runner, config: cfg}
}

// Preview writes a short re-encoded clip from the start of the source.
func (g *FFmpegAssetGenerator) Preview(ctx context.Context, sourcePath, outPath string) error {
	args := []string{
		"-y",
		"-ss", "0",
		"-t", fmt.Sprintf("%d", g.config.PreviewSeconds),
		"-i", sourcePath,
		"-c:v", "libx264",
		"-c:a", "aac",
		outPath,
	}
	return g.generate(ctx, AssetPreview, outPath, args)
}

// Thumbnail extracts a single still frame at the configured offset.
func (g *FFmpegAssetGenerator) Thumbnail(ctx context.Context, sourcePath, outPath string) error {
	args := []string{
		"-y",
		"-ss", fmt.Sprintf("%g", g.config.ThumbnailOffset),
		"-i", sourcePath,
		"-frames:v", "1",
		"-q:v", "2",
		outPath,
	}
	return g.generate(ctx, AssetThumbnail, outPath, args)
}

// Sprite writes a tiled contact sheet, one frame every SpriteInterval
// seconds, SpriteColumns wide.
func (g *FFmpegAssetGenerator) Sprite(ctx context.Context, sourcePath, outPath string, durationSeconds float64) error {
	rows := g.spriteRows(durationSeconds)
	vf := fmt.Sprintf("fps=1/%d,scale=320:-1,tile=%dx%d",
		g.config.SpriteInterval, g.config.SpriteColumns, rows)

	args := []string{
		"-y",
		"-i", sourcePath,
		"-vf", vf,
		"-q:v", "2",
		"-frames:v", "1",
		outPath,
	}
	return g.generate(ctx, AssetSprite, outPath, args)
}

// spriteRows sizes the sprite grid: ceil(duration / interval / columns),
// at least one row.
func (g *FFmpegAssetGenerator) spriteRows(durationSeconds float64) int {
	frames := durationSeconds / float64(g.config.SpriteInterval)
	rows := int(math.Ceil(frames / float64(g.config.SpriteColumns)))
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (g *FFmpegAssetGenerator) generate(ctx context.Context, kind AssetKind, outPath string, args []string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return &AssetError{Kind: kind, ExitCode: -1, Err: err}
	}
	if err := g.runner.Run(ctx, g.config.FFmpegPath, args...); err != nil {
		return &AssetError{Kind: kind, ExitCode: exitCodeOf(err), Err: err}
	}
	return nil
}
