// Package executor defines the contract for running snippet code in isolation.
package executor

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupportedLanguage is returned for a language the runner can't execute.
var ErrUnsupportedLanguage = errors.New("executor: unsupported language")

// ExecutionRequest is one snippet to run.
type ExecutionRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// ExecutionResult is the captured output of a run.
type ExecutionResult struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
}

// TimedOut reports whether the run was cut off by the runner's time limit.
func (r *ExecutionResult) TimedOut() bool {
	return r.ExitCode == ExitCodeTimeout
}

// ExitCodeTimeout mirrors the exit status of the coreutils `timeout` command.
const ExitCodeTimeout = 124

// Executor runs code in an isolated environment.
type Executor interface {
	Execute(ctx context.Context, req ExecutionRequest) (*ExecutionResult, error)
}
