// Package config resolves browsercore's environment-variable configuration,
// generalizing the teacher's single WEBCTL_CHROME override and its
// getBodiesDir XDG_STATE_HOME pattern (internal/daemon/daemon.go) into the
// BROWSERCORE_BROWSER_* family.
package config

import (
	"os"
	"path/filepath"
)

const (
	envBrowserBinary      = "BROWSERCORE_BROWSER_BINARY"
	envBrowserProfile     = "BROWSERCORE_BROWSER_PROFILE"
	envBrowserScreenshots = "BROWSERCORE_BROWSER_SCREENSHOTS"
	envBrowserWatchers    = "BROWSERCORE_BROWSER_WATCHERS_FILE"
)

// BrowserBinary returns an operator-supplied Chromium binary override, or ""
// if BROWSERCORE_BROWSER_BINARY is unset (in which case FindChrome's own
// search path applies).
func BrowserBinary() string {
	return os.Getenv(envBrowserBinary)
}

// ProfileDir returns the Chromium profile directory: the
// BROWSERCORE_BROWSER_PROFILE override if set, else
// $stateHome/browsercore/profile.
func ProfileDir() string {
	if v := os.Getenv(envBrowserProfile); v != "" {
		return v
	}
	return filepath.Join(stateHome(), "profile")
}

// ScreenshotsDir returns the directory screenshots are written to: the
// BROWSERCORE_BROWSER_SCREENSHOTS override if set, else
// $stateHome/browsercore/screenshots.
func ScreenshotsDir() string {
	if v := os.Getenv(envBrowserScreenshots); v != "" {
		return v
	}
	return filepath.Join(stateHome(), "screenshots")
}

// WatchersFile returns the watcher persistence path: the
// BROWSERCORE_BROWSER_WATCHERS_FILE override if set, else
// $stateHome/browsercore/watchers.json.
func WatchersFile() string {
	if v := os.Getenv(envBrowserWatchers); v != "" {
		return v
	}
	return filepath.Join(stateHome(), "watchers.json")
}

// stateHome mirrors the teacher's getBodiesDir fallback chain:
// $XDG_STATE_HOME, else ~/.local/state, else the OS temp dir.
func stateHome() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return filepath.Join(v, "browsercore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "browsercore")
	}
	return filepath.Join(home, ".local", "state", "browsercore")
}
