package executor

import "github.com/hazeltoft/browsercore/internal/ipc"

// DirectExecutor executes commands by calling the handler directly.
// No IPC round-trip is involved.
type DirectExecutor struct {
	handler ipc.Handler
}

// NewDirectExecutor creates a new direct executor with the given handler.
func NewDirectExecutor(handler ipc.Handler) *DirectExecutor {
	return &DirectExecutor{handler: handler}
}

// Execute calls the handler directly and returns the response.
func (e *DirectExecutor) Execute(req ipc.Request) (ipc.Response, error) {
	return e.handler(req), nil
}

// Close is a no-op for direct executor.
func (e *DirectExecutor) Close() error {
	return nil
}
