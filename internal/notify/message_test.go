package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/hazeltoft/browsercore/internal/watcher"
)

func TestFormatMessage_IncludesHeaderFields(t *testing.T) {
	ts := time.Date(2026, 3, 5, 14, 30, 0, 0, time.UTC)
	diff := watcher.DiffResult{
		Timestamp: ts,
		Added:     []string{`e1:button "Go"`},
		Changed:   []string{`e2:link "Home"`},
		Removed:   []string{`e3:checkbox "Agree"`},
		HasChanges: true,
	}

	msg := FormatMessage("watcher-001", "http://example.com", diff)

	if !strings.Contains(msg, "watcher-001") {
		t.Error("expected watcher id in message")
	}
	if !strings.Contains(msg, "2026-03-05T14:30:00Z") {
		t.Error("expected ISO-8601 timestamp in message")
	}
	if !strings.Contains(msg, "http://example.com") {
		t.Error("expected URL in message")
	}
	if !strings.Contains(msg, "Added: 1, Changed: 1, Removed: 1") {
		t.Errorf("expected counts line, got: %s", msg)
	}
	if !strings.Contains(msg, `Added: e1:button "Go"`) {
		t.Error("expected added section")
	}
	if !strings.Contains(msg, `Changed: e2:link "Home"`) {
		t.Error("expected changed section")
	}
	if !strings.Contains(msg, `Removed: e3:checkbox "Agree"`) {
		t.Error("expected removed section")
	}
}

func TestFormatMessage_OmitsEmptySections(t *testing.T) {
	diff := watcher.DiffResult{
		Timestamp: time.Now(),
		Added:     []string{`e1:button "Go"`},
	}

	msg := FormatMessage("watcher-001", "http://example.com", diff)

	for _, l := range strings.Split(msg, "\n") {
		if strings.HasPrefix(l, "Changed: ") || strings.HasPrefix(l, "Removed: ") {
			t.Errorf("did not expect a Changed/Removed section line, got %q", l)
		}
	}
}

func TestFormatMessage_TruncatesLongBody(t *testing.T) {
	labels := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		labels = append(labels, `e1:button "a very long label to pad out the body text"`)
	}
	diff := watcher.DiffResult{
		Timestamp: time.Now(),
		Added:     labels,
	}

	msg := FormatMessage("watcher-001", "http://example.com", diff)

	if !strings.Contains(msg, "[...truncated]") {
		t.Error("expected truncation marker for an oversized body")
	}
}

func TestTruncateBody_LeavesShortBodyUntouched(t *testing.T) {
	body := "Added: e1:button \"Go\""
	if got := truncateBody(body); got != body {
		t.Errorf("expected body unchanged, got %q", got)
	}
}

func TestTruncateBody_TruncatesAtExactLimit(t *testing.T) {
	body := strings.Repeat("x", maxBodyChars+50)
	got := truncateBody(body)
	if !strings.HasSuffix(got, truncationMarker) {
		t.Error("expected truncation marker suffix")
	}
	if len(got) != maxBodyChars+len(truncationMarker) {
		t.Errorf("unexpected truncated length: %d", len(got))
	}
}
