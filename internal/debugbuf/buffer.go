package debugbuf

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hazeltoft/browsercore/internal/cdp"
	"github.com/hazeltoft/browsercore/internal/ipc"
)

const capacity = 100

// Subscriber is the narrow slice of *cdp.Client the buffer depends on.
type Subscriber interface {
	On(method string, handler func(cdp.Event)) (unsubscribe func())
}

// Sender is the narrow slice of *cdp.Client used to enable CDP domains.
type Sender interface {
	SendToSession(ctx context.Context, sessionID, method string, params interface{}) (json.RawMessage, error)
}

// Buffer holds three rolling 100-entry buffers (console, exception,
// network) for a single CDP session, populated by subscribing to
// Console.messageAdded, Runtime.exceptionThrown, Network.responseReceived,
// and Network.loadingFailed, and cleared entirely on Page.frameNavigated.
type Buffer struct {
	sessionID string

	console   *RingBuffer[ipc.ConsoleEntry]
	exception *RingBuffer[ipc.ConsoleEntry]
	network   *RingBuffer[ipc.NetworkEntry]

	unsubscribes []func()
}

// New creates a Buffer for the given session, enables the CDP domains
// needed for the events it consumes, and subscribes every handler.
func New(ctx context.Context, subscriber Subscriber, sender Sender, sessionID string) (*Buffer, error) {
	b := &Buffer{
		sessionID: sessionID,
		console:   NewRingBuffer[ipc.ConsoleEntry](capacity),
		exception: NewRingBuffer[ipc.ConsoleEntry](capacity),
		network:   NewRingBuffer[ipc.NetworkEntry](capacity),
	}

	for _, method := range []string{"Console.enable", "Runtime.enable", "Network.enable"} {
		if _, err := sender.SendToSession(ctx, sessionID, method, map[string]any{}); err != nil {
			return nil, err
		}
	}

	b.subscribe(subscriber)
	return b, nil
}

func (b *Buffer) subscribe(subscriber Subscriber) {
	b.unsubscribes = append(b.unsubscribes,
		subscriber.On("Console.messageAdded", func(evt cdp.Event) {
			if evt.SessionID != b.sessionID {
				return
			}
			if entry, ok := parseConsoleMessage(evt); ok {
				b.console.Push(entry)
			}
		}),
		subscriber.On("Runtime.exceptionThrown", func(evt cdp.Event) {
			if evt.SessionID != b.sessionID {
				return
			}
			if entry, ok := parseExceptionThrown(evt); ok {
				b.exception.Push(entry)
			}
		}),
		subscriber.On("Network.responseReceived", func(evt cdp.Event) {
			if evt.SessionID != b.sessionID {
				return
			}
			if entry, ok := parseResponseReceived(evt); ok {
				b.network.Push(entry)
			}
		}),
		subscriber.On("Network.loadingFailed", func(evt cdp.Event) {
			if evt.SessionID != b.sessionID {
				return
			}
			if entry, ok := parseLoadingFailed(evt); ok {
				b.network.Push(entry)
			}
		}),
		subscriber.On("Page.frameNavigated", func(evt cdp.Event) {
			if evt.SessionID != b.sessionID {
				return
			}
			b.console.Clear()
			b.exception.Clear()
			b.network.Clear()
		}),
	)
}

// Unsubscribe removes every handler this Buffer added. Safe to call once;
// the underlying cdp.Client unsubscribe closures are themselves
// idempotent.
func (b *Buffer) Unsubscribe() {
	for _, fn := range b.unsubscribes {
		fn()
	}
	b.unsubscribes = nil
}

// ConsoleEntries returns buffered console messages, oldest first.
func (b *Buffer) ConsoleEntries() []ipc.ConsoleEntry {
	return b.console.All()
}

// ExceptionEntries returns buffered uncaught exceptions, oldest first.
func (b *Buffer) ExceptionEntries() []ipc.ConsoleEntry {
	return b.exception.All()
}

// NetworkEntries returns buffered network responses/failures, oldest first.
func (b *Buffer) NetworkEntries() []ipc.NetworkEntry {
	return b.network.All()
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
