package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
)

// sequencedConn lets a test script a sequence of dial outcomes (via New's
// DialFunc) and then drop the active connection on demand to exercise the
// reconnect protocol.
type sequencedConn struct {
	mu        sync.Mutex
	responses chan []byte
	written   [][]byte
	closeCh   chan struct{}
	closed    bool
}

func newSequencedConn() *sequencedConn {
	return &sequencedConn{responses: make(chan []byte, 16), closeCh: make(chan struct{})}
}

func (m *sequencedConn) Read(ctx context.Context) (websocket.MessageType, []byte, error) {
	select {
	case resp := <-m.responses:
		return websocket.MessageText, resp, nil
	case <-m.closeCh:
		return 0, nil, errors.New("abnormal close")
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	}
}

func (m *sequencedConn) Write(ctx context.Context, typ websocket.MessageType, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, data)

	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	resp := Response{ID: req.ID, Result: json.RawMessage(`{}`)}
	respData, _ := json.Marshal(resp)
	m.responses <- respData
	return nil
}

func (m *sequencedConn) Close(code websocket.StatusCode, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.closeCh)
	}
	return nil
}

func (m *sequencedConn) drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.closeCh)
	}
}

func (m *sequencedConn) firstWrittenMethod() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.written) == 0 {
		return ""
	}
	var req Request
	_ = json.Unmarshal(m.written[0], &req)
	return req.Method
}

// TestClient_Reconnect_ReplaysEnabledDomains drives scenario 2 from the
// testable-properties list: two failed reconnect attempts, a third that
// succeeds, and enabled-domain replay as the first message on the new wire.
func TestClient_Reconnect_ReplaysEnabledDomains(t *testing.T) {
	t.Parallel()

	first := newSequencedConn()

	var dialCount int
	var mu sync.Mutex
	var reconnected *sequencedConn

	c := New(Options{
		Port:        9222,
		OpenTimeout: time.Second,
		DialFunc: func(ctx context.Context, wsURL string) (Conn, error) {
			mu.Lock()
			defer mu.Unlock()
			dialCount++
			switch dialCount {
			case 1:
				return first, nil
			case 2, 3:
				return nil, errors.New("dial refused")
			default:
				reconnected = newSequencedConn()
				return reconnected, nil
			}
		},
		FetchVersion: func(ctx context.Context, port int) (*VersionInfo, error) {
			return &VersionInfo{WebSocketDebuggerURL: "ws://127.0.0.1:9222/fake"}, nil
		},
	})
	c.sleep = func(time.Duration) {} // don't actually wait in tests
	defer c.Disconnect()

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	var reconnectingAttempts []int
	var reconnectedAttempt int
	var evMu sync.Mutex
	reconnectedCh := make(chan struct{})

	c.On(EventReconnecting, func(e Event) {
		var p struct {
			Attempt int `json:"attempt"`
		}
		_ = json.Unmarshal(e.Params, &p)
		evMu.Lock()
		reconnectingAttempts = append(reconnectingAttempts, p.Attempt)
		evMu.Unlock()
	})
	c.On(EventReconnected, func(e Event) {
		var p struct {
			Attempt int `json:"attempt"`
		}
		_ = json.Unmarshal(e.Params, &p)
		evMu.Lock()
		reconnectedAttempt = p.Attempt
		evMu.Unlock()
		close(reconnectedCh)
	})

	if _, err := c.SendContext(context.Background(), "Page.enable", nil); err != nil {
		t.Fatalf("Page.enable: %v", err)
	}

	first.drop()

	select {
	case <-reconnectedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reconnect")
	}

	evMu.Lock()
	defer evMu.Unlock()
	if len(reconnectingAttempts) != 2 || reconnectingAttempts[0] != 1 || reconnectingAttempts[1] != 2 {
		t.Fatalf("expected reconnecting attempts [1 2], got %v", reconnectingAttempts)
	}
	if reconnectedAttempt != 3 {
		t.Fatalf("expected reconnected on attempt 3, got %d", reconnectedAttempt)
	}

	mu.Lock()
	rc := reconnected
	mu.Unlock()
	if rc == nil {
		t.Fatal("no reconnected conn recorded")
	}
	if method := rc.firstWrittenMethod(); method != "Page.enable" {
		t.Fatalf("expected Page.enable replayed first, got %q", method)
	}
}

func TestClient_On_UnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	t.Parallel()

	conn := newMockConn()
	client := NewClient(conn)
	defer client.Close()

	var aCount, bCount int
	var mu sync.Mutex

	unsubA := client.On("Page.frameNavigated", func(Event) {
		mu.Lock()
		aCount++
		mu.Unlock()
	})
	client.On("Page.frameNavigated", func(Event) {
		mu.Lock()
		bCount++
		mu.Unlock()
	})

	unsubA()
	unsubA() // repeated unsubscribe is a no-op

	client.dispatchEvent(&Event{Method: "Page.frameNavigated", Params: json.RawMessage(`{}`)})

	mu.Lock()
	defer mu.Unlock()
	if aCount != 0 {
		t.Errorf("expected unsubscribed handler not to run, ran %d times", aCount)
	}
	if bCount != 1 {
		t.Errorf("expected remaining handler to run once, ran %d times", bCount)
	}
}

func TestClient_SendToSession_SetsSessionID(t *testing.T) {
	t.Parallel()

	conn := newEchoMockConn()
	client := NewClient(conn)
	defer client.Close()

	_, err := client.SendToSession(context.Background(), "session-1", "Runtime.evaluate", map[string]string{"expression": "1+1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	written := conn.getWritten()
	if len(written) != 1 {
		t.Fatalf("expected 1 written message, got %d", len(written))
	}
	var req Request
	if err := json.Unmarshal(written[0], &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.SessionID != "session-1" {
		t.Errorf("expected sessionId session-1, got %q", req.SessionID)
	}
}
