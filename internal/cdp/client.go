package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

// DefaultTimeout is the default per-command timeout.
const DefaultTimeout = 30 * time.Second

// DefaultOpenTimeout is the default timeout for discovering and opening the
// debugger socket, during both the initial Connect and each reconnect attempt.
const DefaultOpenTimeout = 5 * time.Second

// reconnectDelays are the fixed backoff delays between reconnect attempts.
var reconnectDelays = []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, 750 * time.Millisecond}

// Synthetic event method names emitted by the reconnect protocol. Prefixed
// with "$" so they can never collide with a real CDP method name.
const (
	EventReconnecting = "$reconnecting"
	EventReconnected  = "$reconnected"
	EventDisconnected = "$disconnected"
)

type connState int32

const (
	stateDisconnected connState = iota
	stateConnecting
	stateConnected
	stateReconnecting
	statePermanentlyDisconnected
)

// DialFunc opens a transport connection to a debugger WebSocket URL.
type DialFunc func(ctx context.Context, wsURL string) (Conn, error)

// Options configures a Client constructed via New.
type Options struct {
	// Port is the Chromium remote-debugging port used for discovery.
	Port int

	// OpenTimeout bounds discovery plus socket-open, for both Connect and
	// each individual reconnect attempt. Defaults to DefaultOpenTimeout.
	OpenTimeout time.Duration

	// CommandTimeout is the default per-command timeout used by Send.
	// Defaults to DefaultTimeout.
	CommandTimeout time.Duration

	// DialFunc opens the transport. Defaults to dialing with coder/websocket.
	DialFunc DialFunc

	// FetchVersion discovers the debugger WebSocket URL. Defaults to FetchVersion.
	FetchVersion FetchVersionFunc
}

// Client is a CDP protocol client: a single-connection request/response and
// event multiplexer, with automatic reconnect and enabled-domain replay.
type Client struct {
	port           int
	openTimeout    time.Duration
	commandTimeout time.Duration
	dialFunc       DialFunc
	fetchVersion   FetchVersionFunc
	sleep          func(time.Duration)

	writeMu sync.Mutex
	msgID   atomic.Int64

	pending   sync.Map // map[int64]*pendingCall
	listeners sync.Map // map[string]*eventHandlers

	mu             sync.Mutex
	conn           Conn
	generation     int64
	st             connState
	wsURL          string
	closeRequested bool
	reconnecting   bool
	connectWaiter  *connectWaiter
	currentDone    chan struct{}
	permanentErr   error

	enabled     *enabledDomains
	sessionHint atomic.Value // string
}

type connectWaiter struct {
	done chan struct{}
	err  error
}

type pendingCall struct {
	resp chan *Response
	err  chan error
}

// NewClient wraps an already-open connection and starts its read loop
// immediately. This is the low-level constructor used directly by tests
// (and by Dial); production code normally uses New + Connect instead, which
// also gets discovery and reconnect for free.
func NewClient(conn Conn) *Client {
	c := &Client{
		commandTimeout: DefaultTimeout,
		openTimeout:    DefaultOpenTimeout,
		sleep:          time.Sleep,
		enabled:        newEnabledDomains(),
		st:             stateConnected,
		generation:     1,
		conn:           conn,
	}
	c.currentDone = make(chan struct{})
	go c.readLoop(conn, 1, c.currentDone)
	return c
}

// New constructs a Client that performs its own discovery and dial when
// Connect is called. No connection is opened by New itself.
func New(opts Options) *Client {
	c := &Client{
		port:           opts.Port,
		openTimeout:    opts.OpenTimeout,
		commandTimeout: opts.CommandTimeout,
		dialFunc:       opts.DialFunc,
		fetchVersion:   opts.FetchVersion,
		sleep:          time.Sleep,
		enabled:        newEnabledDomains(),
		st:             stateDisconnected,
	}
	if c.openTimeout <= 0 {
		c.openTimeout = DefaultOpenTimeout
	}
	if c.commandTimeout <= 0 {
		c.commandTimeout = DefaultTimeout
	}
	if c.dialFunc == nil {
		c.dialFunc = defaultDial
	}
	if c.fetchVersion == nil {
		c.fetchVersion = FetchVersion
	}
	return c
}

func defaultDial(ctx context.Context, wsURL string) (Conn, error) {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Dial discovers nothing; it connects directly to a known debugger WebSocket
// URL and returns a ready client. Kept for callers (and tests) that already
// have a wsURL in hand.
func Dial(ctx context.Context, wsURL string) (*Client, error) {
	conn, err := defaultDial(ctx, wsURL)
	if err != nil {
		return nil, fmt.Errorf("cdp: dial: %w", err)
	}
	return NewClient(conn), nil
}

// Connect is idempotent: if already connected it returns immediately.
// Otherwise it discovers the debugger WebSocket URL via the configured
// FetchVersion and opens the socket, coalescing concurrent callers onto a
// single in-flight attempt.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	switch c.st {
	case stateConnected:
		c.mu.Unlock()
		return nil
	case statePermanentlyDisconnected:
		err := c.permanentErr
		c.mu.Unlock()
		if err != nil {
			return err
		}
		return ErrClosed
	}
	if w := c.connectWaiter; w != nil {
		c.mu.Unlock()
		select {
		case <-w.done:
			return w.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	w := &connectWaiter{done: make(chan struct{})}
	c.connectWaiter = w
	c.st = stateConnecting
	c.mu.Unlock()

	err := c.dialAndStore(ctx)

	c.mu.Lock()
	c.connectWaiter = nil
	if err == nil {
		c.st = stateConnected
	} else {
		c.st = stateDisconnected
	}
	c.mu.Unlock()

	w.err = err
	close(w.done)
	return err
}

func (c *Client) dialAndStore(ctx context.Context) error {
	openCtx, cancel := context.WithTimeout(ctx, c.openTimeout)
	defer cancel()

	v, err := c.fetchVersion(openCtx, c.port)
	if err != nil {
		return fmt.Errorf("cdp: discover debugger endpoint: %w", err)
	}
	if v.WebSocketDebuggerURL == "" {
		return ErrMissingDebuggerURL
	}

	conn, err := c.dialFunc(openCtx, v.WebSocketDebuggerURL)
	if err != nil {
		return fmt.Errorf("cdp: dial: %w", err)
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.wsURL = v.WebSocketDebuggerURL
	c.generation++
	gen := c.generation
	c.conn = conn
	c.currentDone = done
	c.mu.Unlock()

	go c.readLoop(conn, gen, done)
	return nil
}

// Disconnect marks the client permanently disconnected: no further
// reconnects are attempted, every outstanding command is rejected, and the
// socket is closed with the clean-close status code.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.st == statePermanentlyDisconnected {
		c.mu.Unlock()
		return nil
	}
	conn := c.conn
	done := c.currentDone
	c.closeRequested = true
	c.st = statePermanentlyDisconnected
	c.permanentErr = ErrClosed
	c.mu.Unlock()

	c.sessionHint.Store("")
	c.rejectAllPending(ErrClosed)

	var closeErr error
	if conn != nil {
		closeErr = conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	if done != nil {
		<-done
	}
	return closeErr
}

// Close is an alias for Disconnect, kept for parity with the lower-level
// constructors used directly in tests.
func (c *Client) Close() error {
	return c.Disconnect()
}

// Connected reports whether the client currently holds a live connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st == stateConnected
}

// SessionHint returns the most recent sessionId observed on a
// Target.attachToTarget response, or "" if none has been seen.
func (c *Client) SessionHint() string {
	v, _ := c.sessionHint.Load().(string)
	return v
}

// WebSocketURL returns the debugger WebSocket URL the client dialed (or
// most recently redialed after a reconnect), or "" if it hasn't connected.
func (c *Client) WebSocketURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wsURL
}

// Send sends a CDP command with the client's default command timeout and
// waits for the response.
func (c *Client) Send(method string, params interface{}) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.commandTimeout)
	defer cancel()
	return c.SendContext(ctx, method, params)
}

// SendContext sends a browser-level CDP command.
func (c *Client) SendContext(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return c.sendRequest(ctx, Request{Method: method, Params: params})
}

// SendToSession sends a CDP command scoped to a specific session (tab or
// frame), set via the Target.attachToTarget session id.
func (c *Client) SendToSession(ctx context.Context, sessionID string, method string, params interface{}) (json.RawMessage, error) {
	return c.sendRequest(ctx, Request{Method: method, Params: params, SessionID: sessionID})
}

func (c *Client) sendRequest(ctx context.Context, req Request) (json.RawMessage, error) {
	c.mu.Lock()
	if c.st == statePermanentlyDisconnected {
		err := c.permanentErr
		c.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return nil, ErrClosed
	}
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil, ErrDisconnected
	}

	id := c.msgID.Add(1)
	req.ID = id

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("cdp: marshal request: %w", err)
	}

	call := &pendingCall{resp: make(chan *Response, 1), err: make(chan error, 1)}
	c.pending.Store(id, call)
	defer c.pending.Delete(id)

	c.writeMu.Lock()
	werr := conn.Write(ctx, websocket.MessageText, data)
	c.writeMu.Unlock()
	if werr != nil {
		return nil, fmt.Errorf("cdp: write request: %w", werr)
	}

	if strings.HasSuffix(req.Method, ".enable") {
		c.enabled.record(req.Method, req.Params)
	}

	select {
	case resp := <-call.resp:
		if resp.Error != nil {
			return nil, resp.Error
		}
		if req.Method == "Target.attachToTarget" {
			var r struct {
				SessionID string `json:"sessionId"`
			}
			if json.Unmarshal(resp.Result, &r) == nil && r.SessionID != "" {
				c.sessionHint.Store(r.SessionID)
			}
		}
		return resp.Result, nil
	case err := <-call.err:
		return nil, err
	case <-ctx.Done():
		return nil, fmt.Errorf("cdp: command timed out: %w", ctx.Err())
	}
}

// Subscribe registers a handler for CDP events matching the given method.
// Kept alongside On for callers that do not need to unsubscribe.
func (c *Client) Subscribe(method string, handler func(Event)) {
	c.On(method, handler)
}

// On subscribes to a CDP event (or a synthetic "$reconnecting" /
// "$reconnected" / "$disconnected" lifecycle event) by method name. The
// returned function removes exactly this handler; calling it more than
// once is a no-op.
func (c *Client) On(method string, handler func(Event)) (unsubscribe func()) {
	actual, _ := c.listeners.LoadOrStore(method, newEventHandlers())
	handlers := actual.(*eventHandlers)
	id := handlers.add(handler)
	var once sync.Once
	return func() {
		once.Do(func() { handlers.remove(id) })
	}
}

func (c *Client) readLoop(conn Conn, gen int64, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			c.mu.Lock()
			stale := c.generation != gen
			closeReq := c.closeRequested
			c.mu.Unlock()
			if stale || closeReq {
				return
			}
			c.triggerReconnect()
			return
		}

		resp, evt, perr := parseMessage(data)
		if perr != nil {
			continue
		}
		if resp != nil {
			c.dispatchResponse(resp)
		} else if evt != nil {
			c.dispatchEvent(evt)
		}
	}
}

func (c *Client) triggerReconnect() {
	c.mu.Lock()
	if c.reconnecting || c.closeRequested || c.st == statePermanentlyDisconnected {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.st = stateReconnecting
	c.mu.Unlock()

	c.rejectAllPending(ErrDisconnected)

	go c.reconnectLoop()
}

func (c *Client) reconnectLoop() {
	for i, delay := range reconnectDelays {
		attempt := i + 1
		c.sleep(delay)

		c.mu.Lock()
		if c.closeRequested {
			c.reconnecting = false
			c.mu.Unlock()
			return
		}
		wsURL := c.wsURL
		c.mu.Unlock()

		dialCtx, cancel := context.WithTimeout(context.Background(), c.openTimeout)
		conn, err := c.dialFunc(dialCtx, wsURL)
		cancel()
		if err != nil {
			c.emitSynthetic(EventReconnecting, map[string]any{
				"attempt":     attempt,
				"maxAttempts": len(reconnectDelays),
				"delayMs":     delay.Milliseconds(),
			})
			continue
		}

		done := make(chan struct{})
		c.mu.Lock()
		c.generation++
		gen := c.generation
		c.conn = conn
		c.currentDone = done
		c.st = stateConnected
		c.reconnecting = false
		c.mu.Unlock()

		go c.readLoop(conn, gen, done)
		c.emitSynthetic(EventReconnected, map[string]any{"attempt": attempt})
		c.replayEnabledDomains()
		return
	}

	c.mu.Lock()
	c.st = statePermanentlyDisconnected
	c.permanentErr = ErrReconnectExhausted
	c.reconnecting = false
	c.mu.Unlock()

	c.rejectAllPending(ErrReconnectExhausted)
	c.emitSynthetic(EventDisconnected, map[string]any{})
}

func (c *Client) replayEnabledDomains() {
	for _, d := range c.enabled.snapshot() {
		ctx, cancel := context.WithTimeout(context.Background(), c.commandTimeout)
		_, _ = c.SendContext(ctx, d.method, d.params)
		cancel()
	}
}

func (c *Client) rejectAllPending(err error) {
	c.pending.Range(func(key, value any) bool {
		call := value.(*pendingCall)
		select {
		case call.err <- err:
		default:
		}
		c.pending.Delete(key)
		return true
	})
}

func (c *Client) dispatchResponse(resp *Response) {
	if v, ok := c.pending.Load(resp.ID); ok {
		call := v.(*pendingCall)
		select {
		case call.resp <- resp:
		default:
		}
	}
}

func (c *Client) dispatchEvent(evt *Event) {
	if actual, ok := c.listeners.Load(evt.Method); ok {
		actual.(*eventHandlers).call(*evt)
	}
}

func (c *Client) emitSynthetic(method string, params map[string]any) {
	data, _ := json.Marshal(params)
	c.dispatchEvent(&Event{Method: method, Params: data})
}

// eventHandlers manages a thread-safe, individually-removable set of
// handlers for one event method.
type eventHandlers struct {
	mu       sync.Mutex
	next     int
	handlers map[int]func(Event)
}

func newEventHandlers() *eventHandlers {
	return &eventHandlers{handlers: make(map[int]func(Event))}
}

func (h *eventHandlers) add(handler func(Event)) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.next++
	h.handlers[id] = handler
	return id
}

func (h *eventHandlers) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.handlers, id)
}

func (h *eventHandlers) call(evt Event) {
	h.mu.Lock()
	fns := make([]func(Event), 0, len(h.handlers))
	for _, fn := range h.handlers {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(evt)
	}
}

// enabledDomains records every "<Domain>.enable" command in insertion
// order, keeping only the most recent params for a given method, so they
// can be replayed after a reconnect.
type enabledDomains struct {
	mu       sync.Mutex
	order    []string
	byMethod map[string]interface{}
}

func newEnabledDomains() *enabledDomains {
	return &enabledDomains{byMethod: make(map[string]interface{})}
}

type enabledDomain struct {
	method string
	params interface{}
}

func (e *enabledDomains) record(method string, params interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.byMethod[method]; !ok {
		e.order = append(e.order, method)
	}
	e.byMethod[method] = params
}

func (e *enabledDomains) snapshot() []enabledDomain {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]enabledDomain, 0, len(e.order))
	for _, m := range e.order {
		out = append(out, enabledDomain{method: m, params: e.byMethod[m]})
	}
	return out
}
