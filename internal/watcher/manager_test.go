package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/hazeltoft/browsercore/internal/snapshot"
)

type fakeScheduler struct {
	jobs       map[string]func()
	submitErrs map[string]error
	removed    []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: make(map[string]func())}
}

func (s *fakeScheduler) Submit(id, schedule string, run func()) error {
	if s.submitErrs != nil {
		if err, ok := s.submitErrs[id]; ok {
			return err
		}
	}
	s.jobs[id] = run
	return nil
}

func (s *fakeScheduler) Remove(id string) error {
	if _, ok := s.jobs[id]; !ok {
		return errors.New("no such job")
	}
	delete(s.jobs, id)
	s.removed = append(s.removed, id)
	return nil
}

type fakeNotifier struct {
	calls int
	last  DiffResult
}

func (n *fakeNotifier) SendWatcherNotification(watcherID, url string, diff DiffResult) {
	n.calls++
	n.last = diff
}

type memFS struct {
	files map[string][]byte
}

func newMemFS() *memFS { return &memFS{files: make(map[string][]byte)} }

func (m *memFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (m *memFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	m.files[path] = append([]byte(nil), data...)
	return nil
}

func (m *memFS) Rename(oldpath, newpath string) error {
	data, ok := m.files[oldpath]
	if !ok {
		return os.ErrNotExist
	}
	m.files[newpath] = data
	delete(m.files, oldpath)
	return nil
}

func (m *memFS) MkdirAll(path string, perm os.FileMode) error { return nil }

func newTestManager(t *testing.T, registry *Registry, scheduler *fakeScheduler, notifier NotificationSink, fs *memFS, persistPath string) *CronManager {
	t.Helper()
	return NewCronManager(CronManagerOptions{
		Registry:    registry,
		Scheduler:   scheduler,
		Notifier:    notifier,
		PersistPath: persistPath,
		ReadFile:    fs.ReadFile,
		WriteFile:   fs.WriteFile,
		Rename:      fs.Rename,
		MkdirAll:    fs.MkdirAll,
	})
}

func TestCronManager_CreateWatcher_SubmitsJobAndPersists(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{{}}}
	registry := newTestRegistry(10, capturer)
	scheduler := newFakeScheduler()
	fs := newMemFS()
	mgr := newTestManager(t, registry, scheduler, nil, fs, "/state/watchers.json")

	w, err := mgr.CreateWatcher(context.Background(), RegisterInput{URL: "http://example.com", IntervalSeconds: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := scheduler.jobs[cronJobID(w.ID())]; !ok {
		t.Error("expected cron job submitted")
	}
	if _, ok := fs.files["/state/watchers.json"]; !ok {
		t.Error("expected watchers file to be persisted")
	}
}

func TestCronManager_CreateWatcher_RollsBackOnScheduleFailure(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{{}}}
	registry := newTestRegistry(10, capturer)
	scheduler := newFakeScheduler()
	scheduler.submitErrs = map[string]error{}
	fs := newMemFS()
	mgr := newTestManager(t, registry, scheduler, nil, fs, "")

	// force the submit to fail by pre-populating the error map after we know the id scheme
	scheduler.submitErrs[cronJobID("watcher-001")] = errors.New("scheduler down")

	_, err := mgr.CreateWatcher(context.Background(), RegisterInput{IntervalSeconds: 60})
	if err == nil {
		t.Fatal("expected scheduling failure to propagate")
	}
	if registry.Count() != 0 {
		t.Errorf("expected watcher rolled back, count=%d", registry.Count())
	}
}

func TestCronManager_HandleCronExecution_NotifiesOnChanges(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{
		{Nodes: []snapshot.Node{{Ref: "e0", Role: "button", Name: "Go", BackendNodeID: 1}}},
		{Nodes: []snapshot.Node{{Ref: "e1", Role: "link", Name: "New", BackendNodeID: 2}}},
	}}
	registry := newTestRegistry(10, capturer)
	scheduler := newFakeScheduler()
	notifier := &fakeNotifier{}
	fs := newMemFS()
	mgr := newTestManager(t, registry, scheduler, notifier, fs, "")

	w, err := mgr.CreateWatcher(context.Background(), RegisterInput{URL: "http://example.com", IntervalSeconds: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	run := scheduler.jobs[cronJobID(w.ID())]
	run()

	if notifier.calls != 1 {
		t.Errorf("expected one notification, got %d", notifier.calls)
	}
	if !notifier.last.HasChanges {
		t.Error("expected delivered diff to have changes")
	}
}

func TestCronManager_HandleCronExecution_NoNotifierIsSafe(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{{}, {}}}
	registry := newTestRegistry(10, capturer)
	scheduler := newFakeScheduler()
	fs := newMemFS()
	mgr := newTestManager(t, registry, scheduler, nil, fs, "")

	w, err := mgr.CreateWatcher(context.Background(), RegisterInput{IntervalSeconds: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	scheduler.jobs[cronJobID(w.ID())]()
}

func TestCronManager_RemoveWatcher_RemovesRegistryEntryAndJob(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{{}}}
	registry := newTestRegistry(10, capturer)
	scheduler := newFakeScheduler()
	fs := newMemFS()
	mgr := newTestManager(t, registry, scheduler, nil, fs, "/state/watchers.json")

	w, _ := mgr.CreateWatcher(context.Background(), RegisterInput{IntervalSeconds: 60})
	mgr.RemoveWatcher(w.ID())

	if _, ok := registry.Get(w.ID()); ok {
		t.Error("expected watcher removed from registry")
	}
	if _, ok := scheduler.jobs[cronJobID(w.ID())]; ok {
		t.Error("expected cron job removed")
	}
}

func TestCronManager_ResumeWatchers_MissingFileIsNoop(t *testing.T) {
	registry := newTestRegistry(10, &fakeCapturer{})
	scheduler := newFakeScheduler()
	fs := newMemFS()
	mgr := newTestManager(t, registry, scheduler, nil, fs, "/state/watchers.json")

	if err := mgr.ResumeWatchers(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if registry.Count() != 0 {
		t.Errorf("expected no watchers hydrated, got %d", registry.Count())
	}
}

func TestCronManager_ResumeWatchers_CorruptFileStartsEmpty(t *testing.T) {
	registry := newTestRegistry(10, &fakeCapturer{})
	scheduler := newFakeScheduler()
	fs := newMemFS()
	fs.files["/state/watchers.json"] = []byte("not json")
	mgr := newTestManager(t, registry, scheduler, nil, fs, "/state/watchers.json")

	if err := mgr.ResumeWatchers(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if registry.Count() != 0 {
		t.Errorf("expected no watchers hydrated from corrupt file, got %d", registry.Count())
	}
}

func TestCronManager_ResumeWatchers_HydratesAndSchedules(t *testing.T) {
	registry := newTestRegistry(10, &fakeCapturer{})
	scheduler := newFakeScheduler()
	fs := newMemFS()

	states := []State{{Config: Config{ID: "watcher-001", IntervalSeconds: 300}, Status: StatusActive}}
	data, _ := json.Marshal(states)
	fs.files["/state/watchers.json"] = data

	mgr := newTestManager(t, registry, scheduler, nil, fs, "/state/watchers.json")
	if err := mgr.ResumeWatchers(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if registry.Count() != 1 {
		t.Fatalf("expected 1 hydrated watcher, got %d", registry.Count())
	}
	if _, ok := scheduler.jobs[cronJobID("watcher-001")]; !ok {
		t.Error("expected cron job resubmitted for hydrated watcher")
	}
}

func TestCronManager_StopAllCronJobs_RemovesEveryJob(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{{}, {}}}
	registry := newTestRegistry(10, capturer)
	scheduler := newFakeScheduler()
	fs := newMemFS()
	mgr := newTestManager(t, registry, scheduler, nil, fs, "")

	_, _ = mgr.CreateWatcher(context.Background(), RegisterInput{ID: "a", IntervalSeconds: 60})
	_, _ = mgr.CreateWatcher(context.Background(), RegisterInput{ID: "b", IntervalSeconds: 60})

	if err := mgr.StopAllCronJobs(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scheduler.jobs) != 0 {
		t.Errorf("expected all jobs removed, got %d remaining", len(scheduler.jobs))
	}
}

func TestCronManager_PauseAndResumeWatcher(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{{}, {}, {}}}
	registry := newTestRegistry(10, capturer)
	scheduler := newFakeScheduler()
	fs := newMemFS()
	mgr := newTestManager(t, registry, scheduler, nil, fs, "/state/watchers.json")

	w, _ := mgr.CreateWatcher(context.Background(), RegisterInput{IntervalSeconds: 60})

	if !mgr.PauseWatcher(w.ID()) {
		t.Fatal("expected pause to find watcher")
	}
	if w.Status() != StatusPaused {
		t.Errorf("expected paused status, got %s", w.Status())
	}

	if !mgr.ResumeWatcher(w.ID()) {
		t.Fatal("expected resume to find watcher")
	}
	if w.Status() != StatusActive {
		t.Errorf("expected active status, got %s", w.Status())
	}

	if mgr.PauseWatcher("missing") {
		t.Error("expected pause of unknown id to report not found")
	}
}

func TestCronManager_CheckWatcher_NotifiesOnChange(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{
		{Nodes: []snapshot.Node{{Ref: "e0", Role: "button", Name: "Go", BackendNodeID: 1}}},
		{Nodes: []snapshot.Node{{Ref: "e1", Role: "link", Name: "New", BackendNodeID: 2}}},
	}}
	registry := newTestRegistry(10, capturer)
	scheduler := newFakeScheduler()
	notifier := &fakeNotifier{}
	fs := newMemFS()
	mgr := newTestManager(t, registry, scheduler, notifier, fs, "")

	w, err := mgr.CreateWatcher(context.Background(), RegisterInput{URL: "http://example.com", IntervalSeconds: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	diff, err := mgr.CheckWatcher(context.Background(), w.ID())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !diff.HasChanges {
		t.Error("expected diff to have changes")
	}
	if notifier.calls != 1 {
		t.Errorf("expected one notification, got %d", notifier.calls)
	}
}

func TestCronManager_CheckWatcher_UnknownID(t *testing.T) {
	registry := newTestRegistry(10, &fakeCapturer{})
	scheduler := newFakeScheduler()
	fs := newMemFS()
	mgr := newTestManager(t, registry, scheduler, nil, fs, "")

	if _, err := mgr.CheckWatcher(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown watcher id")
	}
}

func TestIntervalToCron(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{30, "* * * * *"},
		{60, "* * * * *"},
		{120, "*/2 * * * *"},
		{59 * 60, "*/59 * * * *"},
		{3600, "0 * * * *"},
		{7200, "0 */2 * * *"},
		{5400, "*/59 * * * *"}, // 90 min, non-hour-aligned, rounds and caps at 59
	}
	for _, c := range cases {
		if got := intervalToCron(c.seconds); got != c.want {
			t.Errorf("intervalToCron(%v) = %q, want %q", c.seconds, got, c.want)
		}
	}
}
