package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/hazeltoft/browsercore/internal/executor"
	"github.com/hazeltoft/browsercore/internal/ipc"
)

// ExecutorFactory builds the executor.Executor each command uses to reach
// the daemon, and reports whether a daemon is reachable at all. Swapping
// the factory lets commands run against an in-process handler without a
// socket round-trip, and lets tests substitute a fake without touching the
// filesystem.
type ExecutorFactory interface {
	NewExecutor() (executor.Executor, error)
	IsDaemonRunning() bool
}

// ipcExecutorFactory is the default factory: every command talks to the
// daemon over its Unix socket.
type ipcExecutorFactory struct{}

func (ipcExecutorFactory) NewExecutor() (executor.Executor, error) {
	return executor.NewIPCExecutor()
}

func (ipcExecutorFactory) IsDaemonRunning() bool {
	return ipc.IsDaemonRunning()
}

// directExecutorFactory drives a handler in-process, with no socket
// round-trip. The daemon's REPL does not use it; it calls its handler
// directly.
type directExecutorFactory struct {
	handler ipc.Handler
}

// NewDirectExecutorFactory returns a factory that always reports the
// daemon as running and executes requests directly against handler.
func NewDirectExecutorFactory(handler ipc.Handler) ExecutorFactory {
	return directExecutorFactory{handler: handler}
}

func (f directExecutorFactory) NewExecutor() (executor.Executor, error) {
	return executor.NewDirectExecutor(f.handler), nil
}

func (f directExecutorFactory) IsDaemonRunning() bool {
	return true
}

// execFactory is the package-level factory every command resolves against.
var execFactory ExecutorFactory = ipcExecutorFactory{}

// SetExecutorFactory overrides the package's executor factory.
func SetExecutorFactory(f ExecutorFactory) {
	execFactory = f
}

// ResetExecutorFactory restores the default IPC-backed factory.
func ResetExecutorFactory() {
	execFactory = ipcExecutorFactory{}
}

// outputHint prints a short follow-up suggestion to stderr, skipped in
// JSON mode since machine consumers don't want prose mixed into output.
func outputHint(msg string) {
	if JSONOutput {
		return
	}
	if shouldUseColor() {
		color.New(color.FgYellow).Fprint(os.Stderr, "hint:")
		fmt.Fprintf(os.Stderr, " %s\n", msg)
		return
	}
	fmt.Fprintf(os.Stderr, "hint: %s\n", msg)
}
