package notify

import (
	"fmt"
	"strings"

	"github.com/hazeltoft/browsercore/internal/watcher"
)

const (
	maxBodyChars     = 500
	truncationMarker = "\n[...truncated]"
)

// FormatMessage renders a watcher diff into the human-readable block
// described for notification delivery: watcher id, ISO-8601 timestamp,
// URL, added/changed/removed counts, and a body of non-empty section
// lines, truncated to maxBodyChars with a trailing marker if it overflows.
func FormatMessage(watcherID, url string, diff watcher.DiffResult) string {
	var sections []string
	if len(diff.Added) > 0 {
		sections = append(sections, "Added: "+strings.Join(diff.Added, ", "))
	}
	if len(diff.Changed) > 0 {
		sections = append(sections, "Changed: "+strings.Join(diff.Changed, ", "))
	}
	if len(diff.Removed) > 0 {
		sections = append(sections, "Removed: "+strings.Join(diff.Removed, ", "))
	}

	header := fmt.Sprintf(
		"Watcher %s detected changes at %s\nURL: %s\nAdded: %d, Changed: %d, Removed: %d",
		watcherID,
		diff.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		url,
		len(diff.Added), len(diff.Changed), len(diff.Removed),
	)

	body := strings.Join(sections, "\n")
	body = truncateBody(body)
	if body == "" {
		return header
	}
	return header + "\n" + body
}

func truncateBody(body string) string {
	if len(body) <= maxBodyChars {
		return body
	}
	return body[:maxBodyChars] + truncationMarker
}
