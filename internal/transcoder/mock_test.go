package transcoder

import (
	"context"
	"sync"
)

// call records one tool invocation handed to the fake runner.
type call struct {
	Name string
	Args []string
}

// fakeRunner provides a configurable in-memory ToolRunner.
type fakeRunner struct {
	mu       sync.Mutex
	calls    []call
	runFn    func(name string, args []string) error
	outputFn func(name string, args []string) ([]byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) error {
	f.record(name, args)
	if f.runFn != nil {
		return f.runFn(name, args)
	}
	return nil
}

func (f *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	f.record(name, args)
	if f.outputFn != nil {
		return f.outputFn(name, args)
	}
	return nil, nil
}

func (f *fakeRunner) record(name string, args []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Name: name, Args: args})
}

func (f *fakeRunner) lastCall() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return call{}
	}
	return f.calls[len(f.calls)-1]
}
