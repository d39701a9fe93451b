// Package daemon wires together the browser supervisor, snapshot engine,
// element ref registry, watcher manager, interactor, and debug buffer
// behind a single IPC request dispatcher, generalizing the teacher's
// daemon.go (CSS-selector handlers over a multi-session target tracker)
// to the element-ref-addressed, single-current-page model the wire
// protocol names.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"

	"github.com/hazeltoft/browsercore/internal/browser"
	"github.com/hazeltoft/browsercore/internal/cdp"
	"github.com/hazeltoft/browsercore/internal/config"
	"github.com/hazeltoft/browsercore/internal/debugbuf"
	"github.com/hazeltoft/browsercore/internal/errs"
	"github.com/hazeltoft/browsercore/internal/interact"
	"github.com/hazeltoft/browsercore/internal/ipc"
	"github.com/hazeltoft/browsercore/internal/notify"
	"github.com/hazeltoft/browsercore/internal/refs"
	"github.com/hazeltoft/browsercore/internal/snapshot"
	"github.com/hazeltoft/browsercore/internal/watcher"
)

// DefaultWatcherCapacity is the default number of concurrently registered
// watchers.
const DefaultWatcherCapacity = 10

// Config holds daemon configuration.
type Config struct {
	Headless        bool
	Port            int
	SocketPath      string
	PIDPath         string
	WatcherCapacity int
	WatchersFile    string
	// NotifyBaseURL, if non-empty, is the conversation store the Notifier
	// delivers watcher-change messages to. Empty disables notification
	// delivery entirely (CronManager tolerates a nil Notifier).
	NotifyBaseURL string
}

// DefaultConfig returns the default daemon configuration.
func DefaultConfig() Config {
	return Config{
		Headless:        false,
		Port:            browser.DefaultPort,
		SocketPath:      ipc.DefaultSocketPath(),
		PIDPath:         ipc.DefaultPIDPath(),
		WatcherCapacity: DefaultWatcherCapacity,
		WatchersFile:    config.WatchersFile(),
	}
}

// Daemon is the persistent browsercore daemon process.
type Daemon struct {
	config Config

	supervisor *browser.Supervisor
	refs       *refs.Registry
	snapEngine *snapshot.Engine

	cdpClient       *cdp.Client
	resolver        *watcher.PageTargetResolver
	watcherRegistry *watcher.Registry
	cronManager     *watcher.CronManager
	interactor      *interact.Interactor
	server          *ipc.Server

	pageMu   sync.Mutex
	page     *watcher.PageContext
	debugBuf *debugbuf.Buffer

	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// New creates a new daemon with the given configuration. Construction
// never touches the network; the browser is launched lazily by Run.
func New(cfg Config) *Daemon {
	if cfg.WatcherCapacity <= 0 {
		cfg.WatcherCapacity = DefaultWatcherCapacity
	}
	if cfg.WatchersFile == "" {
		cfg.WatchersFile = config.WatchersFile()
	}

	refsRegistry := refs.NewRegistry()

	return &Daemon{
		config:     cfg,
		supervisor: browser.NewSupervisor(browser.SupervisorOptions{Headless: cfg.Headless, Port: cfg.Port}),
		refs:       refsRegistry,
		snapEngine: snapshot.NewEngine(refsRegistry),
		shutdown:   make(chan struct{}),
	}
}

// Handler returns the IPC request handler, used by the REPL to drive the
// daemon in-process without a round-trip through the Unix socket.
func (d *Daemon) Handler() ipc.Handler {
	return d.handleRequest
}

// Run starts the daemon and blocks until shutdown.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer d.removePIDFile()

	client, err := d.supervisor.EnsureBrowser(ctx)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	d.cdpClient = client
	defer d.supervisor.Stop(syscall.SIGTERM)

	d.resolver = watcher.NewPageTargetResolver(d.supervisor, client)
	d.watcherRegistry = watcher.NewRegistry(d.config.WatcherCapacity, d.snapEngine, client, d.resolver)

	// Declared as the interface type so an empty NotifyBaseURL leaves a
	// true nil in CronManagerOptions.Notifier rather than a nil *Notifier.
	var notifier watcher.NotificationSink
	if d.config.NotifyBaseURL != "" {
		notifier = notify.NewNotifier(notify.NewHTTPSink(d.config.NotifyBaseURL))
	}

	d.cronManager = watcher.NewCronManager(watcher.CronManagerOptions{
		Registry:    d.watcherRegistry,
		Scheduler:   watcher.NewCronScheduler(),
		Notifier:    notifier,
		PersistPath: d.config.WatchersFile,
	})
	d.supervisor.SetWatcherHooks(d.cronManager)
	d.interactor = interact.New(client, d.refs)

	if err := d.supervisor.Start(); err != nil {
		return fmt.Errorf("failed to resume watchers: %w", err)
	}

	server, err := ipc.NewServer(d.config.SocketPath, d.handleRequest)
	if err != nil {
		return fmt.Errorf("failed to start IPC server: %w", err)
	}
	d.server = server
	defer d.server.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.server.Serve(ctx)
	}()

	replDone := make(chan struct{})
	if IsStdinTTY() {
		repl := NewREPL(d.handleRequest, d.requestShutdown)
		go func() {
			defer close(replDone)
			repl.Run()
		}()
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-sigCh:
		return nil
	case <-d.shutdown:
		return nil
	case err := <-errCh:
		return err
	case <-replDone:
		return nil
	}
}

func (d *Daemon) requestShutdown() {
	d.shutdownOnce.Do(func() {
		close(d.shutdown)
	})
}

// currentPage returns the cached current page, resolving (attaching to the
// active or first page target, creating one if neither exists) if no page
// has been resolved yet this run.
func (d *Daemon) currentPage(ctx context.Context) (watcher.PageContext, error) {
	d.pageMu.Lock()
	defer d.pageMu.Unlock()

	if d.page != nil {
		return *d.page, nil
	}
	return d.resolveAndCachePageLocked(ctx, "")
}

// navigateTo always re-resolves the page and navigates it to url.
func (d *Daemon) navigateTo(ctx context.Context, url string) (watcher.PageContext, error) {
	d.pageMu.Lock()
	defer d.pageMu.Unlock()
	return d.resolveAndCachePageLocked(ctx, url)
}

func (d *Daemon) resolveAndCachePageLocked(ctx context.Context, url string) (watcher.PageContext, error) {
	page, err := d.resolver.ResolvePage(ctx, url)
	if err != nil {
		return watcher.PageContext{}, errs.Wrap(errs.BrowserError, err, "resolve current page")
	}

	if d.debugBuf != nil {
		d.debugBuf.Unsubscribe()
		d.debugBuf = nil
	}
	if buf, err := debugbuf.New(ctx, d.cdpClient, d.cdpClient, page.SessionID); err == nil {
		d.debugBuf = buf
	}

	d.page = &page
	return page, nil
}

// handleRequest processes an IPC request and returns a response.
func (d *Daemon) handleRequest(req ipc.Request) ipc.Response {
	ctx := context.Background()

	switch req.Cmd {
	case "status":
		return d.handleStatus()
	case "navigate":
		return d.handleNavigate(ctx, req)
	case "snapshot":
		return d.handleSnapshot(ctx, req)
	case "watch-create":
		return d.handleWatchCreate(ctx, req)
	case "watch-list":
		return d.handleWatchList()
	case "watch-remove":
		return d.handleWatchRemove(req)
	case "watch-pause":
		return d.handleWatchPause(req)
	case "watch-resume":
		return d.handleWatchResume(req)
	case "watch-check":
		return d.handleWatchCheck(ctx, req)
	case "click":
		return d.handleClick(ctx, req)
	case "focus":
		return d.handleFocus(ctx, req)
	case "type":
		return d.handleType(ctx, req)
	case "key":
		return d.handleKey(ctx, req)
	case "select":
		return d.handleSelect(ctx, req)
	case "scroll":
		return d.handleScroll(ctx, req)
	case "cookies-list":
		return d.handleCookiesList(ctx)
	case "cookies-set":
		return d.handleCookiesSet(ctx, req)
	case "cookies-delete":
		return d.handleCookiesDelete(ctx, req)
	case "cookies-clear":
		return d.handleCookiesClear(ctx)
	case "console":
		return d.handleConsole()
	case "network":
		return d.handleNetwork()
	case "screenshot":
		return d.handleScreenshot(ctx, req)
	case "clear":
		return d.handleClear(ctx, req)
	case "shutdown":
		return d.handleShutdown()
	default:
		return ipc.ErrorResponse(fmt.Sprintf("unknown command: %s", req.Cmd))
	}
}

func (d *Daemon) handleShutdown() ipc.Response {
	go d.requestShutdown()
	return ipc.SuccessResponse(map[string]string{"message": "shutting down"})
}

func (d *Daemon) handleStatus() ipc.Response {
	status := d.supervisor.GetStatus()
	data := ipc.StatusData{Running: status.Running, PID: os.Getpid()}

	d.pageMu.Lock()
	page := d.page
	d.pageMu.Unlock()
	if page != nil {
		data.URL = page.URL
		data.Title = page.Title
	}
	return ipc.SuccessResponse(data)
}

func (d *Daemon) handleNavigate(ctx context.Context, req ipc.Request) ipc.Response {
	var params ipc.NavigateParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	if params.URL == "" {
		return ipc.ErrorResponse("navigate requires a url")
	}

	page, err := d.navigateTo(ctx, params.URL)
	if err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	return ipc.SuccessResponse(ipc.StatusData{Running: true, URL: page.URL, Title: page.Title, PID: os.Getpid()})
}

func (d *Daemon) handleSnapshot(ctx context.Context, req ipc.Request) ipc.Response {
	var params ipc.SnapshotParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return ipc.ErrorResponse(err.Error())
	}

	page, err := d.currentPage(ctx)
	if err != nil {
		return ipc.ErrorResponse(err.Error())
	}

	format := snapshot.Format(params.Format)
	if format == "" {
		format = snapshot.FormatCompact
	}
	profile := snapshot.Profile(params.Filter)
	if profile == "" {
		profile = snapshot.ProfileInteractive
	}

	snap, err := d.snapEngine.TakeSnapshot(ctx, d.cdpClient, page.SessionID, page.TabID, page.URL, page.Title, snapshot.TakeOptions{
		Profile:   profile,
		MaxTokens: params.MaxTokens,
		Format:    format,
	})
	if err != nil {
		return ipc.ErrorResponse(err.Error())
	}

	content := snapshot.Serialize(snap, format)
	// Token estimate of the serialized content: UTF-8 bytes / 3 for JSON,
	// / 4 for text and compact, rounded up.
	divisor := 4
	if format == snapshot.FormatJSON {
		divisor = 3
	}
	return ipc.SuccessResponse(ipc.SnapshotData{
		TabID:      snap.TabID,
		URL:        snap.URL,
		Title:      snap.Title,
		Content:    content,
		TokenCount: (len(content) + divisor - 1) / divisor,
		Truncated:  snap.Truncated,
	})
}

func (d *Daemon) handleWatchCreate(ctx context.Context, req ipc.Request) ipc.Response {
	var params ipc.WatcherCreateParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return ipc.ErrorResponse(err.Error())
	}

	w, err := d.cronManager.CreateWatcher(ctx, watcher.RegisterInput{
		ID:              params.ID,
		URL:             params.URL,
		IntervalSeconds: float64(params.IntervalSeconds),
		Format:          snapshot.Format(params.Format),
		Filter:          snapshot.Profile(params.Filter),
		MaxTokens:       params.MaxTokens,
	})
	if err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	return ipc.SuccessResponse(watcherData(w))
}

func (d *Daemon) handleWatchList() ipc.Response {
	list := d.watcherRegistry.List()
	out := make([]ipc.WatcherData, len(list))
	for i, w := range list {
		out[i] = watcherData(w)
	}
	return ipc.SuccessResponse(ipc.WatcherListData{Watchers: out})
}

func (d *Daemon) handleWatchRemove(req ipc.Request) ipc.Response {
	if req.Target == "" {
		return ipc.ErrorResponse("watch-remove requires a target watcher id")
	}
	d.cronManager.RemoveWatcher(req.Target)
	return ipc.SuccessResponse(nil)
}

func (d *Daemon) handleWatchPause(req ipc.Request) ipc.Response {
	if !d.cronManager.PauseWatcher(req.Target) {
		return ipc.ErrorResponse(fmt.Sprintf("watcher %q not found", req.Target))
	}
	return ipc.SuccessResponse(nil)
}

func (d *Daemon) handleWatchResume(req ipc.Request) ipc.Response {
	if !d.cronManager.ResumeWatcher(req.Target) {
		return ipc.ErrorResponse(fmt.Sprintf("watcher %q not found", req.Target))
	}
	return ipc.SuccessResponse(nil)
}

func (d *Daemon) handleWatchCheck(ctx context.Context, req ipc.Request) ipc.Response {
	diff, err := d.cronManager.CheckWatcher(ctx, req.Target)
	if err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	return ipc.SuccessResponse(ipc.DiffData{
		WatcherID:  req.Target,
		HasChanges: diff.HasChanges,
		Added:      diff.Added,
		Changed:    diff.Changed,
		Removed:    diff.Removed,
	})
}

func watcherData(w *watcher.Watcher) ipc.WatcherData {
	cfg := w.Config()
	state := w.ExportState()
	data := ipc.WatcherData{
		ID:              cfg.ID,
		URL:             cfg.URL,
		IntervalSeconds: int(cfg.IntervalSeconds),
		Status:          string(w.Status()),
		LastError:       state.LastError,
	}
	if state.LastCheckedAt != nil {
		data.LastCheckedAt = state.LastCheckedAt.Unix()
	}
	return data
}

func (d *Daemon) handleClick(ctx context.Context, req ipc.Request) ipc.Response {
	params, page, errResp := d.interactParams(ctx, req)
	if errResp != nil {
		return *errResp
	}
	if err := d.interactor.Click(ctx, page.SessionID, page.TabID, params.Ref); err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	return ipc.SuccessResponse(nil)
}

func (d *Daemon) handleFocus(ctx context.Context, req ipc.Request) ipc.Response {
	params, page, errResp := d.interactParams(ctx, req)
	if errResp != nil {
		return *errResp
	}
	if err := d.interactor.Focus(ctx, page.SessionID, page.TabID, params.Ref); err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	return ipc.SuccessResponse(nil)
}

func (d *Daemon) handleType(ctx context.Context, req ipc.Request) ipc.Response {
	params, page, errResp := d.interactParams(ctx, req)
	if errResp != nil {
		return *errResp
	}
	opts := interact.TypeOptions{Clear: params.Clear, Key: params.Key}
	if err := d.interactor.Type(ctx, page.SessionID, page.TabID, params.Ref, params.Text, opts); err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	return ipc.SuccessResponse(nil)
}

func (d *Daemon) handleKey(ctx context.Context, req ipc.Request) ipc.Response {
	params, page, errResp := d.interactParams(ctx, req)
	if errResp != nil {
		return *errResp
	}
	mods := interact.KeyModifiers{
		Alt:   params.Modifiers.Alt,
		Ctrl:  params.Modifiers.Ctrl,
		Meta:  params.Modifiers.Meta,
		Shift: params.Modifiers.Shift,
	}
	if err := d.interactor.Key(ctx, page.SessionID, params.Key, mods); err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	return ipc.SuccessResponse(nil)
}

func (d *Daemon) handleSelect(ctx context.Context, req ipc.Request) ipc.Response {
	params, page, errResp := d.interactParams(ctx, req)
	if errResp != nil {
		return *errResp
	}
	if err := d.interactor.Select(ctx, page.SessionID, page.TabID, params.Ref, params.Value); err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	return ipc.SuccessResponse(nil)
}

func (d *Daemon) handleScroll(ctx context.Context, req ipc.Request) ipc.Response {
	params, page, errResp := d.interactParams(ctx, req)
	if errResp != nil {
		return *errResp
	}
	mode := interact.ScrollMode(params.Mode)
	if mode == "" {
		mode = interact.ScrollToElement
	}
	if err := d.interactor.Scroll(ctx, page.SessionID, page.TabID, mode, params.Ref, params.X, params.Y); err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	return ipc.SuccessResponse(nil)
}

// interactParams decodes InteractParams and resolves the current page in
// one step, since every interact command needs both.
func (d *Daemon) interactParams(ctx context.Context, req ipc.Request) (ipc.InteractParams, watcher.PageContext, *ipc.Response) {
	var params ipc.InteractParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		resp := ipc.ErrorResponse(err.Error())
		return params, watcher.PageContext{}, &resp
	}
	page, err := d.currentPage(ctx)
	if err != nil {
		resp := ipc.ErrorResponse(err.Error())
		return params, watcher.PageContext{}, &resp
	}
	return params, page, nil
}

func (d *Daemon) handleCookiesList(ctx context.Context) ipc.Response {
	page, err := d.currentPage(ctx)
	if err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	cookies, err := d.interactor.ListCookies(ctx, page.SessionID)
	if err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	out := make([]ipc.Cookie, len(cookies))
	for i, c := range cookies {
		out[i] = ipc.Cookie{
			Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path,
			Expires: c.Expires, HTTPOnly: c.HTTPOnly, Secure: c.Secure, SameSite: c.SameSite,
		}
	}
	return ipc.SuccessResponse(ipc.CookiesData{Cookies: out})
}

func (d *Daemon) handleCookiesSet(ctx context.Context, req ipc.Request) ipc.Response {
	var params ipc.CookiesParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	page, err := d.currentPage(ctx)
	if err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	in := interact.SetCookieInput{
		Name: params.Name, Value: params.Value, URL: params.URL, Domain: params.Domain,
		Path: params.Path, Secure: params.Secure, HTTPOnly: params.HTTPOnly,
		SameSite: params.SameSite, MaxAgeSeconds: params.MaxAgeSeconds,
	}
	if in.URL == "" {
		in.URL = page.URL
	}
	if err := d.interactor.SetCookie(ctx, page.SessionID, in); err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	return ipc.SuccessResponse(nil)
}

func (d *Daemon) handleCookiesDelete(ctx context.Context, req ipc.Request) ipc.Response {
	var params ipc.CookiesParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	if params.Name == "" {
		return ipc.ErrorResponse("cookies-delete requires a name")
	}
	page, err := d.currentPage(ctx)
	if err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	if err := d.interactor.DeleteCookie(ctx, page.SessionID, params.Name, params.Domain); err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	return ipc.SuccessResponse(nil)
}

func (d *Daemon) handleCookiesClear(ctx context.Context) ipc.Response {
	page, err := d.currentPage(ctx)
	if err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	if err := d.interactor.ClearCookies(ctx, page.SessionID); err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	return ipc.SuccessResponse(nil)
}

func (d *Daemon) handleConsole() ipc.Response {
	d.pageMu.Lock()
	buf := d.debugBuf
	d.pageMu.Unlock()
	if buf == nil {
		return ipc.ErrorResponse("no active page - console has not been captured yet")
	}
	entries := append(buf.ConsoleEntries(), buf.ExceptionEntries()...)
	return ipc.SuccessResponse(ipc.ConsoleData{Entries: entries, Count: len(entries)})
}

func (d *Daemon) handleNetwork() ipc.Response {
	d.pageMu.Lock()
	buf := d.debugBuf
	d.pageMu.Unlock()
	if buf == nil {
		return ipc.ErrorResponse("no active page - network has not been captured yet")
	}
	entries := buf.NetworkEntries()
	return ipc.SuccessResponse(ipc.NetworkData{Entries: entries, Count: len(entries)})
}

func (d *Daemon) handleScreenshot(ctx context.Context, req ipc.Request) ipc.Response {
	var params ipc.ScreenshotParams
	if err := unmarshalParams(req.Params, &params); err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	if params.Quality <= 0 {
		params.Quality = 80
	}

	if _, err := d.currentPage(ctx); err != nil {
		return ipc.ErrorResponse(err.Error())
	}

	path, err := d.supervisor.TakeScreenshot(ctx, params.Quality)
	if err != nil {
		return ipc.ErrorResponse(err.Error())
	}
	return ipc.SuccessResponse(ipc.ScreenshotData{Path: path})
}

// handleClear forces a re-subscribe of the debug buffer against the
// current page. "console", "network", or "" are all accepted for
// symmetry with the teacher's target argument; both buffers always clear
// together since they share one subscription.
func (d *Daemon) handleClear(ctx context.Context, req ipc.Request) ipc.Response {
	d.pageMu.Lock()
	page := d.page
	d.pageMu.Unlock()
	if page == nil {
		return ipc.SuccessResponse(nil)
	}

	d.pageMu.Lock()
	defer d.pageMu.Unlock()
	if d.debugBuf != nil {
		d.debugBuf.Unsubscribe()
		d.debugBuf = nil
	}
	if buf, err := debugbuf.New(ctx, d.cdpClient, d.cdpClient, page.SessionID); err == nil {
		d.debugBuf = buf
	}
	return ipc.SuccessResponse(nil)
}

func unmarshalParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

func (d *Daemon) writePIDFile() error {
	dir := filepath.Dir(d.config.PIDPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	pid := strconv.Itoa(os.Getpid())
	return os.WriteFile(d.config.PIDPath, []byte(pid), 0o600)
}

func (d *Daemon) removePIDFile() {
	os.Remove(d.config.PIDPath)
}
