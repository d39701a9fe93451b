package browser

import (
	"strings"
	"testing"
)

func TestBuildArgs_DefaultPort(t *testing.T) {
	t.Parallel()

	args := buildArgs(LaunchOptions{})

	found := false
	for _, arg := range args {
		if arg == "--remote-debugging-port=9222" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected default port 9222, args: %v", args)
	}
}

func TestBuildArgs_CustomPort(t *testing.T) {
	t.Parallel()

	args := buildArgs(LaunchOptions{Port: 9333})

	found := false
	for _, arg := range args {
		if arg == "--remote-debugging-port=9333" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected port 9333, args: %v", args)
	}
}

func TestBuildArgs_Headless(t *testing.T) {
	t.Parallel()

	args := buildArgs(LaunchOptions{Headless: true})

	found := false
	for _, arg := range args {
		if arg == "--headless=new" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected --headless=new flag, args: %v", args)
	}
}

func TestBuildArgs_NotHeadless(t *testing.T) {
	t.Parallel()

	args := buildArgs(LaunchOptions{Headless: false})

	for _, arg := range args {
		if strings.Contains(arg, "headless") {
			t.Errorf("unexpected headless flag: %s", arg)
		}
	}
}

func TestBuildArgs_ProfileDir(t *testing.T) {
	t.Parallel()

	args := buildArgs(LaunchOptions{ProfileDir: "/tmp/test-profile"})

	found := false
	for _, arg := range args {
		if arg == "--user-data-dir=/tmp/test-profile" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("expected user-data-dir flag, args: %v", args)
	}
}

func TestBuildArgs_RequiredFlags(t *testing.T) {
	t.Parallel()

	args := buildArgs(LaunchOptions{})

	required := []string{
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
	}

	for _, req := range required {
		found := false
		for _, arg := range args {
			if arg == req {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing required arg %s, args: %v", req, args)
		}
	}
}
