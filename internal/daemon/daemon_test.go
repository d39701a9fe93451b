package daemon

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hazeltoft/browsercore/internal/browser"
	"github.com/hazeltoft/browsercore/internal/errs"
	"github.com/hazeltoft/browsercore/internal/interact"
	"github.com/hazeltoft/browsercore/internal/ipc"
	"github.com/hazeltoft/browsercore/internal/snapshot"
	"github.com/hazeltoft/browsercore/internal/watcher"
)

// fakeSender answers DOM.getBoxModel with a 20x10 content box and every
// other SendToSession call with an empty JSON object.
type fakeSender struct{}

func (fakeSender) SendToSession(ctx context.Context, sessionID, method string, params interface{}) (json.RawMessage, error) {
	if method == "DOM.getBoxModel" {
		return json.RawMessage(`{"model":{"content":[0,0,20,0,20,10,0,10]}}`), nil
	}
	return json.RawMessage(`{}`), nil
}

// fakeRefResolver resolves any non-empty ref to the same backend node id.
type fakeRefResolver struct{}

func (fakeRefResolver) LookupRef(tabID, ref string) (int64, bool) {
	if ref == "" {
		return 0, false
	}
	return 42, true
}

// fakeResolver satisfies watcher.Resolver, always returning the same page.
type fakeResolver struct {
	page watcher.PageContext
	err  error
}

func (f *fakeResolver) ResolvePage(ctx context.Context, url string) (watcher.PageContext, error) {
	return f.page, f.err
}

// fakeCapturer satisfies watcher.Capturer, returning a canned snapshot.
type fakeCapturer struct {
	snap snapshot.Snapshot
	err  error
}

func (f *fakeCapturer) TakeSnapshot(ctx context.Context, sender snapshot.Sender, sessionID, tabID, url, title string, opts snapshot.TakeOptions) (snapshot.Snapshot, error) {
	return f.snap, f.err
}

// fakeScheduler satisfies watcher.Scheduler without ever actually firing.
type fakeScheduler struct{}

func (fakeScheduler) Submit(id, schedule string, run func()) error { return nil }
func (fakeScheduler) Remove(id string) error                       { return nil }

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()

	page := watcher.PageContext{SessionID: "sess-1", TabID: "tab-1", URL: "https://example.com", Title: "Example"}
	resolver := &fakeResolver{page: page}
	capturer := &fakeCapturer{snap: snapshot.Snapshot{TabID: "tab-1", URL: page.URL, Title: page.Title}}
	sender := fakeSender{}

	registry := watcher.NewRegistry(10, capturer, sender, resolver)
	cronManager := watcher.NewCronManager(watcher.CronManagerOptions{
		Registry:  registry,
		Scheduler: fakeScheduler{},
	})

	d := New(DefaultConfig())
	d.watcherRegistry = registry
	d.cronManager = cronManager
	d.interactor = interact.New(sender, fakeRefResolver{})
	d.page = &page

	return d
}

func TestHandleRequest_UnknownCommand(t *testing.T) {
	d := newTestDaemon(t)
	resp := d.handleRequest(ipc.Request{Cmd: "bogus"})
	if resp.OK {
		t.Fatal("expected error response for unknown command")
	}
}

func TestHandleStatus_NoBrowserRunning(t *testing.T) {
	d := New(DefaultConfig())
	resp := d.handleRequest(ipc.Request{Cmd: "status"})
	if !resp.OK {
		t.Fatalf("expected ok response, got error: %s", resp.Error)
	}

	var status ipc.StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Running {
		t.Error("expected Running false before EnsureBrowser")
	}
}

func TestHandleStatus_ReportsCachedPage(t *testing.T) {
	d := newTestDaemon(t)
	resp := d.handleRequest(ipc.Request{Cmd: "status"})
	if !resp.OK {
		t.Fatalf("unexpected error: %s", resp.Error)
	}

	var status ipc.StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.URL != "https://example.com" {
		t.Errorf("expected cached page url, got %q", status.URL)
	}
}

func TestHandleClick_ResolvesRef(t *testing.T) {
	d := newTestDaemon(t)
	params, _ := json.Marshal(ipc.InteractParams{Ref: "e1"})
	resp := d.handleRequest(ipc.Request{Cmd: "click", Params: params})
	if !resp.OK {
		t.Fatalf("expected success, got error: %s", resp.Error)
	}
}

func TestHandleClick_UnknownRef(t *testing.T) {
	d := newTestDaemon(t)
	params, _ := json.Marshal(ipc.InteractParams{Ref: ""})
	resp := d.handleRequest(ipc.Request{Cmd: "click", Params: params})
	if resp.OK {
		t.Fatal("expected failure for an unresolvable ref")
	}
}

func TestHandleType_PassesClearAndText(t *testing.T) {
	d := newTestDaemon(t)
	params, _ := json.Marshal(ipc.InteractParams{Ref: "e1", Text: "hello", Clear: true})
	resp := d.handleRequest(ipc.Request{Cmd: "type", Params: params})
	if !resp.OK {
		t.Fatalf("expected success, got error: %s", resp.Error)
	}
}

func TestHandleCookiesList(t *testing.T) {
	d := newTestDaemon(t)
	resp := d.handleRequest(ipc.Request{Cmd: "cookies-list"})
	if !resp.OK {
		t.Fatalf("expected success, got error: %s", resp.Error)
	}
}

func TestHandleCookiesSet_RequiresName(t *testing.T) {
	d := newTestDaemon(t)
	params, _ := json.Marshal(ipc.CookiesParams{Value: "x"})
	resp := d.handleRequest(ipc.Request{Cmd: "cookies-set", Params: params})
	if resp.OK {
		t.Fatal("expected failure when name is missing")
	}
}

func TestWatchLifecycle(t *testing.T) {
	d := newTestDaemon(t)

	createParams, _ := json.Marshal(ipc.WatcherCreateParams{ID: "watcher-1", URL: "https://example.com", IntervalSeconds: 60})
	resp := d.handleRequest(ipc.Request{Cmd: "watch-create", Params: createParams})
	if !resp.OK {
		t.Fatalf("create failed: %s", resp.Error)
	}

	resp = d.handleRequest(ipc.Request{Cmd: "watch-list"})
	if !resp.OK {
		t.Fatalf("list failed: %s", resp.Error)
	}
	var list ipc.WatcherListData
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		t.Fatalf("unmarshal list: %v", err)
	}
	if len(list.Watchers) != 1 || list.Watchers[0].ID != "watcher-1" {
		t.Fatalf("unexpected watcher list: %+v", list)
	}

	resp = d.handleRequest(ipc.Request{Cmd: "watch-pause", Target: "watcher-1"})
	if !resp.OK {
		t.Fatalf("pause failed: %s", resp.Error)
	}

	resp = d.handleRequest(ipc.Request{Cmd: "watch-resume", Target: "watcher-1"})
	if !resp.OK {
		t.Fatalf("resume failed: %s", resp.Error)
	}

	resp = d.handleRequest(ipc.Request{Cmd: "watch-check", Target: "watcher-1"})
	if !resp.OK {
		t.Fatalf("check failed: %s", resp.Error)
	}

	resp = d.handleRequest(ipc.Request{Cmd: "watch-remove", Target: "watcher-1"})
	if !resp.OK {
		t.Fatalf("remove failed: %s", resp.Error)
	}

	resp = d.handleRequest(ipc.Request{Cmd: "watch-pause", Target: "watcher-1"})
	if resp.OK {
		t.Fatal("expected pause on removed watcher to fail")
	}
}

func TestHandleWatchCreate_InvalidInterval(t *testing.T) {
	d := newTestDaemon(t)
	params, _ := json.Marshal(ipc.WatcherCreateParams{URL: "https://example.com", IntervalSeconds: 5})
	resp := d.handleRequest(ipc.Request{Cmd: "watch-create", Params: params})
	if resp.OK {
		t.Fatal("expected failure for an interval below the 60s minimum")
	}
}

func TestResolveAndCachePage_WrapsResolverError(t *testing.T) {
	d := New(DefaultConfig())
	d.resolver = watcher.NewPageTargetResolver(stubSupervisor{}, nil)
	_, err := d.currentPage(context.Background())
	if err == nil {
		t.Fatal("expected an error when resolution fails")
	}
}

// stubSupervisor satisfies watcher.Supervisor and always fails Targets with
// BROWSER_NOT_RUNNING, so PageTargetResolver fails at the target-listing
// step before it touches its nil client.
type stubSupervisor struct{}

func (stubSupervisor) Targets(ctx context.Context) ([]browser.Target, error) {
	return nil, errs.New(errs.BrowserNotRunning, "no browser running")
}

func (stubSupervisor) GetStatus() browser.Status {
	return browser.Status{}
}
