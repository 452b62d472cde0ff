// Package runner defines the contract with the external code-execution
// collaborator. The engine treats it as an untrusted, possibly-slow function:
// every call carries a bounded timeout, and any failure degrades to a
// zero-credit test case rather than a fault.
package runner

import (
	"context"
	"time"
)

// ExecuteRequest is one run of participant code against a single input.
type ExecuteRequest struct {
	Source   string `json:"source"`
	Language string `json:"language"`
	Stdin    string `json:"stdin"`
}

// ExecuteResult is the captured outcome of one execution.
type ExecuteResult struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Runner executes code against one input.
type Runner interface {
	Execute(ctx context.Context, req ExecuteRequest) (ExecuteResult, error)
}
