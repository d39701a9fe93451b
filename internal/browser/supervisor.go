package browser

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hazeltoft/browsercore/internal/cdp"
	"github.com/hazeltoft/browsercore/internal/config"
	"github.com/hazeltoft/browsercore/internal/debuglog"
	"github.com/hazeltoft/browsercore/internal/errs"
)

// WatcherHooks is the late-bound, two-method interface the Supervisor calls
// into for watcher lifecycle events, resolving the Supervisor/Cron-Manager
// cyclic dependency per the "small two-method interface, not a constructor
// argument" pattern. Wired by the caller after both sides are constructed.
type WatcherHooks interface {
	ResumeWatchers() error
	StopAllCronJobs() error
}

// NewClientFunc constructs a CDP client bound to a debugger port. Injectable
// for tests.
type NewClientFunc func(port int) *cdp.Client

// SpawnFunc starts the Chromium child process. Injectable for tests.
type SpawnFunc func(binPath string, opts LaunchOptions) (*exec.Cmd, error)

// SupervisorOptions configures a Supervisor.
type SupervisorOptions struct {
	Headless       bool
	Port           int
	ProfileDir     string
	ScreenshotsDir string

	FindChrome func() (string, error)
	Spawn      SpawnFunc
	NewClient  NewClientFunc

	// CheckReady polls whether the debugger endpoint is up, before a CDP
	// client is attempted. Defaults to cdp.FetchVersion. Overridable so
	// tests don't need a real Chromium process to exercise launch.
	CheckReady func(ctx context.Context, port int) error
}

// ChromeInfo mirrors the "chrome" sub-object of a Status snapshot.
type ChromeInfo struct {
	PID                  int
	Port                 int
	WebSocketDebuggerURL string
	StartedAt            time.Time
}

// Status is the synthesized view returned by Supervisor.GetStatus.
type Status struct {
	Running       bool
	Chrome        *ChromeInfo
	Tabs          []string
	ActiveTabID   string
	Headless      bool
	ProfilePath   string
	MemoryUsageMB *int
}

// Supervisor owns the Chromium child process and the single active CDP
// client. All launch requests are serialized through ensureBrowser so at
// most one child process and one CDP client exist at a time.
type Supervisor struct {
	mu             sync.Mutex
	headless       bool
	port           int
	profileDir     string
	screenshotsDir string

	findChrome func() (string, error)
	spawn      SpawnFunc
	newClient  NewClientFunc
	checkReady func(ctx context.Context, port int) error

	cmd         *exec.Cmd
	client      *cdp.Client
	startedAt   time.Time
	tabs        []string
	activeTabID string

	launchMu sync.Mutex
	inFlight *launchWaiter

	hooks WatcherHooks
}

type launchWaiter struct {
	done   chan struct{}
	client *cdp.Client
	err    error
}

// NewSupervisor constructs a Supervisor. No Chromium process is started;
// launch is always lazy, triggered by EnsureBrowser.
func NewSupervisor(opts SupervisorOptions) *Supervisor {
	s := &Supervisor{
		headless:       opts.Headless,
		port:           opts.Port,
		profileDir:     opts.ProfileDir,
		screenshotsDir: opts.ScreenshotsDir,
		findChrome:     opts.FindChrome,
		spawn:          opts.Spawn,
		newClient:      opts.NewClient,
		checkReady:     opts.CheckReady,
	}
	if s.port == 0 {
		s.port = DefaultPort
	}
	if s.profileDir == "" {
		s.profileDir = config.ProfileDir()
	}
	if s.screenshotsDir == "" {
		s.screenshotsDir = config.ScreenshotsDir()
	}
	if s.findChrome == nil {
		s.findChrome = FindChrome
	}
	if s.spawn == nil {
		s.spawn = spawnProcess
	}
	if s.newClient == nil {
		s.newClient = func(port int) *cdp.Client {
			return cdp.New(cdp.Options{Port: port})
		}
	}
	if s.checkReady == nil {
		s.checkReady = func(ctx context.Context, port int) error {
			_, err := cdp.FetchVersion(ctx, port)
			return err
		}
	}
	return s
}

// SetWatcherHooks wires the watcher lifecycle collaborator after
// construction, resolving the Supervisor/Cron-Manager cycle.
func (s *Supervisor) SetWatcherHooks(hooks WatcherHooks) {
	s.mu.Lock()
	s.hooks = hooks
	s.mu.Unlock()
}

// Start is a best-effort resume hook. It does not launch the browser
// itself; launch stays lazy, triggered by the first EnsureBrowser call.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	hooks := s.hooks
	s.mu.Unlock()

	if hooks != nil {
		if err := hooks.ResumeWatchers(); err != nil {
			debuglog.Printf("supervisor", "resume watchers failed: %v", err)
		}
	}
	return nil
}

// Stop cleanly tears the browser down: watcher cron jobs first (best
// effort), then the Chromium child itself.
func (s *Supervisor) Stop(sig os.Signal) error {
	s.mu.Lock()
	hooks := s.hooks
	s.mu.Unlock()

	if hooks != nil {
		if err := hooks.StopAllCronJobs(); err != nil {
			debuglog.Printf("supervisor", "stop all cron jobs failed: %v", err)
		}
	}

	if err := s.stopChrome(sig); err != nil {
		return errs.Wrap(errs.BrowserError, err, "stop chrome").WithCode(errs.CodeBrowserDaemonStopFailed)
	}
	return nil
}

func (s *Supervisor) stopChrome(sig os.Signal) error {
	s.mu.Lock()
	client := s.client
	cmd := s.cmd
	s.client = nil
	s.cmd = nil
	s.tabs = nil
	s.activeTabID = ""
	s.startedAt = time.Time{}
	s.mu.Unlock()

	if client != nil {
		_ = client.Disconnect()
	}

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := cmd.Process.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
		_ = cmd.Process.Kill()
	}

	waitDone := make(chan error, 1)
	go func() { waitDone <- cmd.Wait() }()

	select {
	case err := <-waitDone:
		return err
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		<-waitDone
		return nil
	}
}

// EnsureBrowser returns the live CDP client, launching Chromium first if
// necessary. Concurrent callers are coalesced onto a single in-flight
// launch.
func (s *Supervisor) EnsureBrowser(ctx context.Context) (*cdp.Client, error) {
	s.mu.Lock()
	if s.client != nil && s.client.Connected() {
		client := s.client
		s.mu.Unlock()
		return client, nil
	}
	s.mu.Unlock()

	s.launchMu.Lock()
	if w := s.inFlight; w != nil {
		s.launchMu.Unlock()
		select {
		case <-w.done:
			return w.client, w.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	w := &launchWaiter{done: make(chan struct{})}
	s.inFlight = w
	s.launchMu.Unlock()

	client, err := s.launch(ctx)

	s.launchMu.Lock()
	s.inFlight = nil
	s.launchMu.Unlock()

	w.client, w.err = client, err
	close(w.done)
	return client, err
}

func (s *Supervisor) launch(ctx context.Context) (*cdp.Client, error) {
	binPath, err := s.findChrome()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	profileDir := s.profileDir
	headless := s.headless
	port := s.port
	s.mu.Unlock()

	if err := os.MkdirAll(profileDir, 0o700); err != nil {
		return nil, errs.Wrap(errs.BrowserError, err, "create profile directory")
	}

	cmd, err := s.spawn(binPath, LaunchOptions{Headless: headless, Port: port, ProfileDir: profileDir})
	if err != nil {
		return nil, errs.Wrap(errs.BrowserError, err, "spawn chromium")
	}

	pollCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = s.waitForReady(pollCtx, port)
	cancel()
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, errs.Wrap(errs.BrowserError, err, "browser did not become ready")
	}

	client := s.newClient(port)
	connectCtx, cancel2 := context.WithTimeout(ctx, 5*time.Second)
	err = client.Connect(connectCtx)
	cancel2()
	if err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, errs.Wrap(errs.CDPError, err, "connect to browser")
	}

	if _, err := client.Send("Page.addScriptToEvaluateOnNewDocument", map[string]any{
		"source": stealthScript,
	}); err != nil {
		debuglog.Printf("supervisor", "stealth script injection failed: %v", err)
	}

	s.mu.Lock()
	s.cmd = cmd
	s.client = client
	s.startedAt = time.Now()
	s.mu.Unlock()

	return client, nil
}

// waitForReady polls checkReady every 100ms until it succeeds or the
// context is done.
func (s *Supervisor) waitForReady(ctx context.Context, port int) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.checkReady(ctx, port); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LaunchHeaded restarts Chromium in headed mode. Watcher cron jobs are not
// touched; this is a browser restart, not a service shutdown.
func (s *Supervisor) LaunchHeaded(ctx context.Context) (*cdp.Client, error) {
	return s.relaunch(ctx, false)
}

// LaunchHeadless restarts Chromium in headless mode.
func (s *Supervisor) LaunchHeadless(ctx context.Context) (*cdp.Client, error) {
	return s.relaunch(ctx, true)
}

func (s *Supervisor) relaunch(ctx context.Context, headless bool) (*cdp.Client, error) {
	if err := s.stopChrome(syscall.SIGTERM); err != nil {
		return nil, errs.Wrap(errs.BrowserError, err, "stop chrome before relaunch").WithCode(errs.CodeBrowserLaunchHeadedFailed)
	}

	s.mu.Lock()
	s.headless = headless
	s.mu.Unlock()

	client, err := s.EnsureBrowser(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.BrowserError, err, "relaunch chrome").WithCode(errs.CodeBrowserLaunchHeadedFailed)
	}
	return client, nil
}

// TakeScreenshot captures the current page as a JPEG at the given quality
// (0-100) and writes it under the configured screenshots directory,
// returning the absolute path.
func (s *Supervisor) TakeScreenshot(ctx context.Context, quality int) (string, error) {
	s.mu.Lock()
	client := s.client
	dir := s.screenshotsDir
	s.mu.Unlock()

	if client == nil || !client.Connected() {
		return "", errs.New(errs.BrowserNotRunning, "browser is not running").WithCode(errs.CodeBrowserNotRunning)
	}

	result, err := client.SendContext(ctx, "Page.captureScreenshot", map[string]any{
		"format":  "jpeg",
		"quality": quality,
	})
	if err != nil {
		return "", errs.Wrap(errs.BrowserError, err, "capture screenshot").WithCode(errs.CodeScreenshotFailed)
	}

	var payload struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return "", errs.Wrap(errs.BrowserError, err, "parse screenshot response").WithCode(errs.CodeScreenshotFailed)
	}

	raw, err := base64.StdEncoding.DecodeString(payload.Data)
	if err != nil {
		return "", errs.Wrap(errs.BrowserError, err, "decode screenshot data").WithCode(errs.CodeScreenshotFailed)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", errs.Wrap(errs.BrowserError, err, "create screenshots directory").WithCode(errs.CodeScreenshotFailed)
	}

	path := filepath.Join(dir, fmt.Sprintf("screenshot-%d.jpg", time.Now().UnixMilli()))
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", errs.Wrap(errs.BrowserError, err, "write screenshot file").WithCode(errs.CodeScreenshotFailed)
	}

	return path, nil
}

// Targets fetches the list of CDP targets for the running browser.
func (s *Supervisor) Targets(ctx context.Context) ([]Target, error) {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	return FetchTargets(ctx, "127.0.0.1", port)
}

// PageTarget returns the first page-type target, used to resolve which tab
// an element-ref or snapshot operation should address by default.
func (s *Supervisor) PageTarget(ctx context.Context) (*Target, error) {
	targets, err := s.Targets(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.BrowserError, err, "fetch targets")
	}
	target := FindPageTarget(targets)
	if target == nil {
		return nil, errs.New(errs.BrowserNotRunning, "no page target found").WithCode(errs.CodeBrowserNotRunning)
	}
	return target, nil
}

// UpdateTabState normalizes the active tab to one that still exists,
// falling back to the first tab, and stores both.
func (s *Supervisor) UpdateTabState(tabs []string, preferredActive string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tabs = tabs
	if preferredActive != "" && containsString(tabs, preferredActive) {
		s.activeTabID = preferredActive
		return
	}
	if len(tabs) > 0 {
		s.activeTabID = tabs[0]
		return
	}
	s.activeTabID = ""
}

func containsString(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}

// Healthy reports whether the child process exists, has not exited, and the
// CDP client reports connected.
func (s *Supervisor) Healthy() bool {
	s.mu.Lock()
	cmd := s.cmd
	client := s.client
	s.mu.Unlock()

	if cmd == nil || cmd.Process == nil || client == nil {
		return false
	}
	if cmd.ProcessState != nil && cmd.ProcessState.Exited() {
		return false
	}
	return client.Connected()
}

// GetStatus returns a synthesized snapshot of Supervisor state.
func (s *Supervisor) GetStatus() Status {
	s.mu.Lock()
	cmd := s.cmd
	client := s.client
	startedAt := s.startedAt
	tabs := append([]string(nil), s.tabs...)
	activeTabID := s.activeTabID
	headless := s.headless
	profileDir := s.profileDir
	port := s.port
	s.mu.Unlock()

	status := Status{
		Running:     s.Healthy(),
		Tabs:        tabs,
		ActiveTabID: activeTabID,
		Headless:    headless,
		ProfilePath: profileDir,
	}

	if cmd != nil && cmd.Process != nil {
		info := &ChromeInfo{PID: cmd.Process.Pid, Port: port, StartedAt: startedAt}
		if client != nil {
			info.WebSocketDebuggerURL = client.WebSocketURL()
		}
		status.Chrome = info
		status.MemoryUsageMB = memoryUsageMB(cmd.Process.Pid)
	}

	return status
}

// memoryUsageMB reads resident memory for pid: VmRSS from /proc/<pid>/status
// on Linux, `ps -o rss=` on macOS, and is omitted (nil) elsewhere.
func memoryUsageMB(pid int) *int {
	switch runtime.GOOS {
	case "linux":
		return memoryUsageLinux(pid)
	case "darwin":
		return memoryUsageDarwin(pid)
	default:
		return nil
	}
}

func memoryUsageLinux(pid int) *int {
	f, err := os.Open(fmt.Sprintf("/proc/%d/status", pid))
	if err != nil {
		return nil
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "VmRSS:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil
		}
		kb, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil
		}
		mb := kb / 1024
		return &mb
	}
	return nil
}

func memoryUsageDarwin(pid int) *int {
	out, err := exec.Command("ps", "-o", "rss=", "-p", strconv.Itoa(pid)).Output()
	if err != nil {
		return nil
	}
	kb, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return nil
	}
	mb := kb / 1024
	return &mb
}

// stealthScript is injected on every new document to reduce the most common
// headless-automation fingerprints.
const stealthScript = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`
