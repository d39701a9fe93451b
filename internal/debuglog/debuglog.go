// Package debuglog provides the categorized, timestamped debug logging used
// across browsercore's components, generalizing the teacher's debugf/
// debugRequest/debugResponse family (internal/cli/root.go) so cdp, browser,
// watcher, and daemon all log in the same voice.
package debuglog

import (
	"fmt"
	"os"
	"time"
)

// Enabled gates all debug output. Off by default. Nothing in this module
// sets it: the CLI's --debug flag sets the CLI's own Debug variable, and
// the daemon has no debug option.
var Enabled bool

// Printf logs a debug message if Enabled.
// Format: [DEBUG] [HH:MM:SS.mmm] [CATEGORY] message
func Printf(category, format string, args ...any) {
	if !Enabled {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(os.Stderr, "[DEBUG] [%s] [%s] "+format+"\n",
		append([]any{timestamp, category}, args...)...)
}

// Timer measures and logs the duration of a named operation.
type Timer struct {
	start time.Time
	name  string
}

// Start begins timing an operation under the given category.
func Start(category string) *Timer {
	return &Timer{start: time.Now(), name: category}
}

// Stop logs the elapsed time since Start.
func (t *Timer) Stop() {
	Printf(t.name, "completed in %dms", time.Since(t.start).Milliseconds())
}
