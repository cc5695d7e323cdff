// Copyright (C) 2026 Berth Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package process abstracts external process execution.

Every engine invocation in this repository goes through the Runner interface
so that unit tests never spawn a real process. The production implementation
is a thin wrapper over os/exec; the mock records invocations and answers from
configurable function fields.
*/
package process

import (
	"bytes"
	"context"
	"os/exec"
	"sync"
)

// Runner executes external commands.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple goroutines.
//
// # Context Handling
//
// Run must honor ctx cancellation and deadline; a timed-out process is killed
// and reported as a failure, never left running.
type Runner interface {
	// Run executes a command and waits for it to exit.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - dir: Working directory ("" means inherit)
	//   - name: Executable name or path
	//   - args: Command arguments
	//
	// # Outputs
	//
	//   - stdout, stderr: Captured output
	//   - exitCode: Process exit code (-1 if the process never ran)
	//   - err: Non-nil on spawn failure, non-zero exit, or cancellation
	Run(ctx context.Context, dir string, name string, args ...string) (stdout, stderr string, exitCode int, err error)
}

// ExecRunner is the production Runner backed by os/exec.
type ExecRunner struct{}

// NewExecRunner creates a Runner that spawns real processes.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes the command and captures its output.
func (r *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		// Context errors take priority so a timeout is reported as a
		// timeout and not as an opaque "signal: killed".
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return stdout.String(), stderr.String(), exitCode,
			NewCommandError(commandLine(name, args), exitCode, stderr.String(), err)
	}

	return stdout.String(), stderr.String(), exitCode, nil
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockRunner is a test double for Runner.
//
// Configure RunFunc before use; calling Run with a nil RunFunc panics so a
// missing stub fails loudly instead of returning zero values.
type MockRunner struct {
	// RunFunc is called when Run is invoked.
	RunFunc func(ctx context.Context, dir string, name string, args ...string) (string, string, int, error)

	// Calls records all invocations for verification.
	Calls []RunnerCall

	mu sync.Mutex
}

// RunnerCall records a single Run invocation.
type RunnerCall struct {
	Dir  string
	Name string
	Args []string
}

// Run delegates to RunFunc and records the call.
func (m *MockRunner) Run(ctx context.Context, dir string, name string, args ...string) (string, string, int, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, RunnerCall{Dir: dir, Name: name, Args: args})
	fn := m.RunFunc
	m.mu.Unlock()

	if fn == nil {
		panic("MockRunner.RunFunc not set")
	}
	return fn(ctx, dir, name, args...)
}

// CallCount returns the number of recorded invocations.
func (m *MockRunner) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// GetCalls returns a copy of all recorded calls.
func (m *MockRunner) GetCalls() []RunnerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RunnerCall, len(m.Calls))
	copy(out, m.Calls)
	return out
}

// Compile-time interface compliance checks.
var (
	_ Runner = (*ExecRunner)(nil)
	_ Runner = (*MockRunner)(nil)
)
