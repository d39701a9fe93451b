// Package errs provides the typed error sum type shared across browsercore's
// components, generalizing the teacher's loose errors.New sentinels
// (browser.ErrChromeNotFound, browser.ErrStartTimeout, browser.ErrNoPageTarget)
// into a single carrier so callers can branch on a stable code.
package errs

import "fmt"

// Kind is one of the error kinds named in the error handling design.
type Kind string

const (
	CDPError              Kind = "CDP_ERROR"
	BrowserNotRunning      Kind = "BROWSER_NOT_RUNNING"
	BrowserError           Kind = "BROWSER_ERROR"
	ElementNotFound        Kind = "ELEMENT_NOT_FOUND"
	ChromeNotFound         Kind = "CHROME_NOT_FOUND"
	WatcherError           Kind = "WATCHER_ERROR"
	WatcherLimitExceeded   Kind = "WATCHER_LIMIT_EXCEEDED"
)

// Code is a finer-grained identifier within a Kind, e.g. one of the
// Supervisor's fixed failure codes. Most Kinds have exactly one natural
// Code; BrowserError has several.
type Code string

const (
	CodeBrowserDaemonStopFailed Code = "BROWSER_DAEMON_STOP_FAILED"
	CodeBrowserLaunchHeadedFailed Code = "BROWSER_LAUNCH_HEADED_FAILED"
	CodeBrowserNotRunning       Code = "BROWSER_NOT_RUNNING"
	CodeScreenshotFailed        Code = "SCREENSHOT_FAILED"
)

// Error is the typed error sum carried across component boundaries.
// Retryability is a function of Kind, not an independently-settable field,
// per the design notes.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the kind of failure is one a caller may
// reasonably retry without a fresh snapshot or reconnect.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case CDPError:
		return true
	default:
		return false
	}
}

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind wrapping an existing cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithCode attaches a finer-grained Code to an Error, returning a new value.
func (e *Error) WithCode(code Code) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// Timeout wraps cause as a CDP_ERROR with the message "command timed out".
// Its Retryable result is the Kind-level CDP_ERROR one (true); Retryable
// does not tell a timeout apart from any other CDP_ERROR.
func Timeout(cause error) *Error {
	e := Wrap(CDPError, cause, "command timed out")
	return e
}
