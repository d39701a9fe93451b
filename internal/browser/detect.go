// Package browser owns the Chromium child process lifecycle and the single
// active CDP client (the Browser Supervisor), plus Chromium binary
// discovery and CDP target/version queries.
package browser

import (
	"os"
	"os/exec"
	"runtime"

	"github.com/hazeltoft/browsercore/internal/config"
	"github.com/hazeltoft/browsercore/internal/errs"
)

// chromePaths returns the list of paths to search for Chrome on the current platform.
func chromePaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Google Chrome Canary.app/Contents/MacOS/Google Chrome Canary",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/google-chrome",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
		}
	case "linux":
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
			"google-chrome",
			"google-chrome-stable",
			"chromium",
			"chromium-browser",
		}
	default:
		return nil
	}
}

// FindChrome searches for a Chrome or Chromium binary on the system.
// It first checks the BROWSERCORE_BROWSER_BINARY environment variable, then
// searches common installation paths for the current platform.
func FindChrome() (string, error) {
	if envPath := config.BrowserBinary(); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", errs.New(errs.ChromeNotFound, "BROWSERCORE_BROWSER_BINARY path does not exist: %s", envPath)
	}

	for _, path := range chromePaths() {
		found, err := exec.LookPath(path)
		if err == nil {
			return found, nil
		}
	}

	return "", errs.New(errs.ChromeNotFound, "no Chrome or Chromium binary found")
}
