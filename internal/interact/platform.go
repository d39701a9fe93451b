package interact

import "runtime"

// isDarwinSelectAll reports whether the select-all shortcut on this host
// uses Meta (Cmd) instead of Ctrl, matching the OS-aware choice the
// teacher's handleType made inline.
func isDarwinSelectAll() bool {
	return runtime.GOOS == "darwin"
}
