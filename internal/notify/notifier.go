package notify

import (
	"context"

	"github.com/hazeltoft/browsercore/internal/debuglog"
	"github.com/hazeltoft/browsercore/internal/watcher"
)

// Notifier delivers watcher diffs to a conversation sink, implementing
// watcher.NotificationSink. Delivery never propagates an error to the
// caller; every failure is logged and dropped, matching the daemon's
// general "don't let a background subscriber crash a request path" shape.
type Notifier struct {
	sink Sink
}

// NewNotifier builds a Notifier backed by the given conversation sink.
func NewNotifier(sink Sink) *Notifier {
	return &Notifier{sink: sink}
}

// SendWatcherNotification implements watcher.NotificationSink.
func (n *Notifier) SendWatcherNotification(watcherID, url string, diff watcher.DiffResult) {
	ctx := context.Background()

	conversations, err := n.sink.List(ctx, ListOptions{OrderBy: "updated", Limit: 1})
	if err != nil {
		debuglog.Printf("notify", "list conversations failed: %v", err)
		return
	}
	if len(conversations) == 0 {
		debuglog.Printf("notify", "no active conversation, dropping notification for %s", watcherID)
		return
	}

	message := FormatMessage(watcherID, url, diff)
	if err := n.sink.AppendMessage(ctx, conversations[0].ID, "system", message); err != nil {
		debuglog.Printf("notify", "append message failed: %v", err)
		return
	}
}
