package transcoder

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ToolRunner executes an external media tool. Probing, rung transcoding and
// derived-asset generation all go through this single abstraction so that
// exit-code checks and missing-binary detection are implemented once.
type ToolRunner interface {
	// Run executes the tool and waits for completion, discarding output.
	Run(ctx context.Context, name string, args ...string) error

	// Output executes the tool and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ToolError describes a failed external tool invocation.
type ToolError struct {
	Tool     string
	ExitCode int  // -1 when the tool never ran
	NotFound bool // binary missing or not executable
	Err      error
}

func (e *ToolError) Error() string {
	if e.NotFound {
		return fmt.Sprintf("%s: binary not available: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s exited with code %d: %v", e.Tool, e.ExitCode, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// execRunner runs tools as subprocesses via os/exec.
type execRunner struct{}

// NewExecRunner returns the production ToolRunner.
func NewExecRunner() ToolRunner {
	return &execRunner{}
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil // ffmpeg writes progress to stderr

	if err := cmd.Run(); err != nil {
		return classifyExecErr(name, err)
	}
	return nil
}

func (r *execRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, classifyExecErr(name, err)
	}
	return out, nil
}

func classifyExecErr(tool string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ToolError{Tool: tool, ExitCode: exitErr.ExitCode(), Err: err}
	}
	if errors.Is(err, exec.ErrNotFound) {
		return &ToolError{Tool: tool, ExitCode: -1, NotFound: true, Err: err}
	}
	return &ToolError{Tool: tool, ExitCode: -1, Err: err}
}
