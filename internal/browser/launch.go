package browser

import (
	"fmt"
	"os/exec"
)

// LaunchOptions configures browser launch behavior.
type LaunchOptions struct {
	// Headless runs the browser without a visible window.
	Headless bool

	// Port for CDP remote debugging. If 0, uses DefaultPort.
	Port int

	// ProfileDir is the Chromium profile directory. Unlike the teacher's
	// optional-temp-dir model, the Supervisor always resolves this to a
	// concrete, pre-created directory (see config.ProfileDir) before launch.
	ProfileDir string
}

// DefaultPort is the default CDP debugging port.
const DefaultPort = 9222

// buildArgs constructs the exact Chromium flag set the automation core
// requires: first-run/default-browser suppression, background-activity and
// throttling disables that would otherwise break CDP responsiveness,
// monitoring/telemetry disables, plus the debugging port, profile dir, and
// headless flag.
func buildArgs(opts LaunchOptions) []string {
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}

	args := []string{
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-default-apps",
		"--disable-extensions",
		"--disable-popup-blocking",
		"--disable-background-networking",
		"--disable-background-timer-throttling",
		"--disable-backgrounding-occluded-windows",
		"--disable-renderer-backgrounding",
		"--disable-breakpad",
		"--disable-client-side-phishing-detection",
		"--disable-component-extensions-with-background-pages",
		"--disable-ipc-flooding-protection",
		"--disable-hang-monitor",
		"--disable-sync",
		"--metrics-recording-only",
		"--safebrowsing-disable-auto-update",
		fmt.Sprintf("--remote-debugging-port=%d", port),
		fmt.Sprintf("--user-data-dir=%s", opts.ProfileDir),
	}

	if opts.Headless {
		args = append(args, "--headless=new")
	}

	return args
}

// spawnProcess starts the browser process with the given binary and
// options. It does not wait for the process to exit. The caller is
// responsible for ensuring opts.ProfileDir already exists.
func spawnProcess(binPath string, opts LaunchOptions) (*exec.Cmd, error) {
	args := buildArgs(opts)
	cmd := exec.Command(binPath, args...)

	// Detach from controlling terminal.
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return cmd, nil
}
