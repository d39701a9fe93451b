package format

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/hazeltoft/browsercore/internal/ipc"
)

func init() {
	color.NoColor = true
}

func TestNewOutputOptions(t *testing.T) {
	tests := []struct {
		name             string
		jsonOutput       bool
		noColorFlag      bool
		noColorEnv       string
		expectedUseColor bool
	}{
		{
			name:             "JSON output disables color",
			jsonOutput:       true,
			noColorFlag:      false,
			expectedUseColor: false,
		},
		{
			name:             "no-color flag disables color",
			jsonOutput:       false,
			noColorFlag:      true,
			expectedUseColor: false,
		},
		{
			name:             "NO_COLOR env disables color",
			jsonOutput:       false,
			noColorFlag:      false,
			noColorEnv:       "1",
			expectedUseColor: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.noColorEnv != "" {
				old := os.Getenv("NO_COLOR")
				os.Setenv("NO_COLOR", tt.noColorEnv)
				defer os.Setenv("NO_COLOR", old)
			}

			opts := NewOutputOptions(tt.jsonOutput, tt.noColorFlag)
			if opts.UseColor != tt.expectedUseColor {
				t.Errorf("UseColor = %v, want %v", opts.UseColor, tt.expectedUseColor)
			}
		})
	}
}

func TestActionSuccess(t *testing.T) {
	var buf bytes.Buffer
	err := ActionSuccess(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := buf.String()
	expected := "OK\n"
	if got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestActionError(t *testing.T) {
	var buf bytes.Buffer
	opts := OutputOptions{UseColor: false}
	err := ActionError(&buf, "test error", opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := buf.String()
	expected := "Error: test error\n"
	if got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name     string
		data     ipc.StatusData
		expected string
	}{
		{
			name:     "not running",
			data:     ipc.StatusData{Running: false},
			expected: "Not running (start with: browserctl start)\n",
		},
		{
			name:     "running with PID but no page",
			data:     ipc.StatusData{Running: true, PID: 1234},
			expected: "No page\npid: 1234\n",
		},
		{
			name:     "running with page, no title",
			data:     ipc.StatusData{Running: true, PID: 1234, URL: "https://example.com"},
			expected: "OK\npid: 1234\nhttps://example.com\n",
		},
		{
			name:     "running with page and title",
			data:     ipc.StatusData{Running: true, PID: 1234, URL: "https://example.com", Title: "Example"},
			expected: "OK\npid: 1234\nhttps://example.com - Example\n",
		},
	}

	opts := OutputOptions{UseColor: false}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Status(&buf, tt.data, opts)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := buf.String()
			if got != tt.expected {
				t.Errorf("got:\n%q\nwant:\n%q", got, tt.expected)
			}
		})
	}
}

func TestConsole(t *testing.T) {
	entries := []ipc.ConsoleEntry{
		{Type: "log", Text: "test message", Timestamp: 1609459200000, URL: "http://example.com", Line: 42},
		{Type: "error", Text: "error message", Timestamp: 1609459200000},
	}

	var buf bytes.Buffer
	opts := OutputOptions{UseColor: false}
	err := Console(&buf, entries, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "LOG test message") {
		t.Error("output should contain log message")
	}
	if !strings.Contains(output, "ERROR error message") {
		t.Error("output should contain error message")
	}
	if !strings.Contains(output, "http://example.com:42") {
		t.Error("output should contain URL and line number")
	}
}

func TestNetwork(t *testing.T) {
	entries := []ipc.NetworkEntry{
		{Method: "GET", URL: "https://api.example.com", Status: 200, Duration: 0.123},
		{Method: "POST", URL: "https://api.example.com", Status: 404, Duration: 0.456, Body: `{"key":"value"}`},
	}

	var buf bytes.Buffer
	opts := OutputOptions{UseColor: false}
	err := Network(&buf, entries, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "GET https://api.example.com 200 123ms") {
		t.Error("output should contain GET request")
	}
	if !strings.Contains(output, "POST https://api.example.com 404 456ms") {
		t.Error("output should contain POST request")
	}
	if !strings.Contains(output, `{"key":"value"}`) {
		t.Error("output should contain request body")
	}
}

func TestCookies(t *testing.T) {
	cookies := []ipc.Cookie{
		{Name: "session", Value: "abc123", Domain: ".example.com", Path: "/", Secure: true, HTTPOnly: true},
		{Name: "simple", Value: "value"},
	}

	var buf bytes.Buffer
	opts := OutputOptions{UseColor: false}
	err := Cookies(&buf, cookies, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "session=abc123") {
		t.Error("output should contain session cookie")
	}
	if !strings.Contains(output, "domain=.example.com") {
		t.Error("output should contain domain")
	}
	if !strings.Contains(output, "secure") {
		t.Error("output should contain secure flag")
	}
	if !strings.Contains(output, "httponly") {
		t.Error("output should contain httponly flag")
	}
}

func TestFilePath(t *testing.T) {
	var buf bytes.Buffer
	err := FilePath(&buf, "/tmp/test.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := buf.String()
	expected := "/tmp/test.txt\n"
	if got != expected {
		t.Errorf("got %q, want %q", got, expected)
	}
}
