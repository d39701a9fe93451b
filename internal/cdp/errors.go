package cdp

import "errors"

// Sentinel errors returned by Client operations. Wrapped where context adds value.
var (
	// ErrClosed is returned when an operation is attempted after Disconnect.
	ErrClosed = errors.New("cdp: client is closed")

	// ErrDisconnected is returned to outstanding commands when the socket closes
	// unexpectedly, and to any command rejected during a reconnect cycle.
	ErrDisconnected = errors.New("cdp: disconnected")

	// ErrReconnectExhausted is returned by send() once all reconnect attempts
	// have failed and the client has given up permanently.
	ErrReconnectExhausted = errors.New("cdp: disconnect and reconnect attempts were exhausted")

	// ErrMissingDebuggerURL is returned by Connect when discovery succeeds but the
	// response carries no webSocketDebuggerUrl field.
	ErrMissingDebuggerURL = errors.New("cdp: discovery response missing webSocketDebuggerUrl")
)
