// Package executor defines the seam between the orchestration engine and the
// external "run one work item" function. Domain-specific work (file edits,
// network calls, code generation) lives behind this boundary.
package executor

import "context"

// ItemExecutor runs one work item's payload under the given context. The
// engine enforces timeouts through ctx; implementations should honor
// cancellation promptly but termination is best-effort.
type ItemExecutor interface {
	// Execute runs the payload and returns its opaque output.
	Execute(ctx context.Context, payload string) (output string, err error)
}

// Func adapts a plain function to the ItemExecutor interface. Useful for
// tests and embedding callers.
type Func func(ctx context.Context, payload string) (string, error)

// Execute implements ItemExecutor.
func (f Func) Execute(ctx context.Context, payload string) (string, error) {
	return f(ctx, payload)
}
