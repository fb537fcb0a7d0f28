package transcoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
)

// FFprobeProber implements Prober using the ffprobe CLI.
type FFprobeProber struct {
	runner      ToolRunner
	ffprobePath string
}

// Compile-time verification that FFprobeProber implements Prober.
var _ Prober = (*FFprobeProber)(nil)

// NewFFprobeProber creates a prober that shells out to ffprobe.
// If ffprobePath is empty, "ffprobe" is resolved from PATH.
func NewFFprobeProber(runner ToolRunner, ffprobePath string) *FFprobeProber {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFprobeProber{runner: runner, ffprobePath: ffprobePath}
}

// probeFormat mirrors the "format" object of ffprobe's JSON output.
type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Duration returns the source duration in seconds.
func (p *FFprobeProber) Duration(ctx context.Context, sourcePath string) (float64, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return 0, &ProbeError{Source: sourcePath, Err: err}
	}

	out, err := p.runner.Output(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		sourcePath,
	)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) && !toolErr.NotFound && toolErr.ExitCode >= 0 {
			// ffprobe ran and rejected the file. Treat as unknown duration
			// rather than a pipeline failure.
			return 0, nil
		}
		// No exit code means the tool never ran: missing binary, permission
		// denied, or the probe was interrupted.
		return 0, &ProbeError{Source: sourcePath, Err: fmt.Errorf("invoke ffprobe: %w", err)}
	}

	var data probeFormat
	if err := json.Unmarshal(out, &data); err != nil {
		return 0, nil
	}

	dur, err := strconv.ParseFloat(data.Format.Duration, 64)
	if err != nil || dur < 0 {
		return 0, nil
	}
	return dur, nil
}
