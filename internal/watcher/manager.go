package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazeltoft/browsercore/internal/debuglog"
	"github.com/hazeltoft/browsercore/internal/errs"
)

const cronJobPrefix = "watcher-cron-"

func cronJobID(watcherID string) string { return cronJobPrefix + watcherID }

// NotificationSink delivers a changed-watcher notification. The method has
// no error return, so an implementation handles its own delivery failures;
// CronManager never sees them.
type NotificationSink interface {
	SendWatcherNotification(watcherID, url string, diff DiffResult)
}

// CronManagerOptions configures a CronManager. Registry and Scheduler are
// required; Notifier, PersistPath, and the file I/O primitives are
// optional and default to real file operations, following the same
// injectable-primitive idiom as browser.SupervisorOptions.
type CronManagerOptions struct {
	Registry    *Registry
	Scheduler   Scheduler
	Notifier    NotificationSink
	PersistPath string

	ReadFile  func(path string) ([]byte, error)
	WriteFile func(path string, data []byte, perm os.FileMode) error
	Rename    func(oldpath, newpath string) error
	MkdirAll  func(path string, perm os.FileMode) error
}

// CronManager wraps a Watcher Registry and a cron Scheduler, scheduling one
// recurring check per watcher and persisting Registry state to disk.
type CronManager struct {
	registry    *Registry
	scheduler   Scheduler
	notifier    NotificationSink
	persistPath string

	readFile  func(string) ([]byte, error)
	writeFile func(string, []byte, os.FileMode) error
	rename    func(string, string) error
	mkdirAll  func(string, os.FileMode) error
}

// NewCronManager constructs a CronManager, filling unset I/O primitives
// with the real os package equivalents.
func NewCronManager(opts CronManagerOptions) *CronManager {
	if opts.ReadFile == nil {
		opts.ReadFile = os.ReadFile
	}
	if opts.WriteFile == nil {
		opts.WriteFile = os.WriteFile
	}
	if opts.Rename == nil {
		opts.Rename = os.Rename
	}
	if opts.MkdirAll == nil {
		opts.MkdirAll = os.MkdirAll
	}
	return &CronManager{
		registry:    opts.Registry,
		scheduler:   opts.Scheduler,
		notifier:    opts.Notifier,
		persistPath: opts.PersistPath,
		readFile:    opts.ReadFile,
		writeFile:   opts.WriteFile,
		rename:      opts.Rename,
		mkdirAll:    opts.MkdirAll,
	}
}

// CreateWatcher registers a new watcher and submits its cron job. If
// scheduling fails, the watcher is rolled back out of the Registry.
func (m *CronManager) CreateWatcher(ctx context.Context, input RegisterInput) (*Watcher, error) {
	w, err := m.registry.Register(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := m.submit(w); err != nil {
		m.registry.Remove(w.ID())
		return nil, err
	}

	m.saveWatchers()
	return w, nil
}

// RemoveWatcher removes a watcher from the Registry and its cron job.
// Best-effort: scheduler removal failures are logged, not returned.
func (m *CronManager) RemoveWatcher(id string) {
	m.registry.Remove(id)
	if err := m.scheduler.Remove(cronJobID(id)); err != nil {
		debuglog.Printf("watcher", "remove cron job for %s: %v", id, err)
	}
	m.saveWatchers()
}

// handleCronExecution runs when jobID's schedule fires: it checks the
// named watcher for changes and delivers a notification if configured.
// Every failure is logged and swallowed so the scheduler is never
// disrupted by one watcher's trouble.
func (m *CronManager) handleCronExecution(jobID string) {
	id := strings.TrimPrefix(jobID, cronJobPrefix)
	w, ok := m.registry.Get(id)
	if !ok {
		debuglog.Printf("watcher", "cron fired for unknown watcher %s", id)
		return
	}

	diff, err := w.CheckForChanges(context.Background())
	if err != nil {
		debuglog.Printf("watcher", "check failed for %s: %v", id, err)
		return
	}

	if diff.HasChanges && m.notifier != nil {
		m.notifier.SendWatcherNotification(id, w.Config().URL, diff)
	}
}

// ResumeWatchers reads the persistence file, hydrates the Registry, and
// submits a fresh cron job per watcher. A missing file is a no-op; corrupt
// JSON logs a warning and starts empty. Individual scheduling failures are
// logged but do not abort the batch. Matches browser.WatcherHooks.
func (m *CronManager) ResumeWatchers() error {
	if m.persistPath == "" {
		return nil
	}

	data, err := m.readFile(m.persistPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		debuglog.Printf("watcher", "read watchers file: %v", err)
		return nil
	}

	var states []State
	if err := json.Unmarshal(data, &states); err != nil {
		debuglog.Printf("watcher", "corrupt watchers file, starting empty: %v", err)
		return nil
	}

	m.registry.Deserialize(states)

	for _, w := range m.registry.List() {
		if err := m.submit(w); err != nil {
			debuglog.Printf("watcher", "resume: %v", err)
		}
	}
	return nil
}

// StopAllCronJobs best-effort removes every watcher's cron job. Matches
// browser.WatcherHooks.
func (m *CronManager) StopAllCronJobs() error {
	for _, w := range m.registry.List() {
		if err := m.scheduler.Remove(cronJobID(w.ID())); err != nil {
			debuglog.Printf("watcher", "stop: remove cron job for %s: %v", w.ID(), err)
		}
	}
	return nil
}

// PauseWatcher flips a watcher to paused and persists the change.
// Reports whether id was found.
func (m *CronManager) PauseWatcher(id string) bool {
	w, ok := m.registry.Get(id)
	if !ok {
		return false
	}
	w.Pause()
	m.saveWatchers()
	return true
}

// ResumeWatcher flips a watcher back to active and persists the change.
// Reports whether id was found.
func (m *CronManager) ResumeWatcher(id string) bool {
	w, ok := m.registry.Get(id)
	if !ok {
		return false
	}
	w.Resume()
	m.saveWatchers()
	return true
}

// CheckWatcher runs an on-demand check for id outside the cron schedule,
// delivering a notification on change just like a scheduled firing, and
// persists the updated state.
func (m *CronManager) CheckWatcher(ctx context.Context, id string) (DiffResult, error) {
	w, ok := m.registry.Get(id)
	if !ok {
		return DiffResult{}, errs.New(errs.WatcherError, "watcher %q not found", id)
	}

	diff, err := w.CheckForChanges(ctx)
	if err != nil {
		return DiffResult{}, err
	}

	m.saveWatchers()
	if diff.HasChanges && m.notifier != nil {
		m.notifier.SendWatcherNotification(id, w.Config().URL, diff)
	}
	return diff, nil
}

func (m *CronManager) submit(w *Watcher) error {
	jobID := cronJobID(w.ID())
	schedule := intervalToCron(float64(w.Config().IntervalSeconds))
	if err := m.scheduler.Submit(jobID, schedule, func() { m.handleCronExecution(jobID) }); err != nil {
		return fmt.Errorf("schedule watcher %s: %w", w.ID(), err)
	}
	return nil
}

// saveWatchers serializes the Registry to pretty JSON and atomically
// replaces the persistence file: write to a sibling .tmp file, then rename
// over the target. Any I/O error is logged and swallowed.
func (m *CronManager) saveWatchers() {
	if m.persistPath == "" {
		return
	}

	states := make([]State, 0, m.registry.Count())
	for _, w := range m.registry.List() {
		states = append(states, w.ExportState())
	}

	data, err := json.MarshalIndent(states, "", "  ")
	if err != nil {
		debuglog.Printf("watcher", "marshal watchers: %v", err)
		return
	}

	if err := m.mkdirAll(filepath.Dir(m.persistPath), 0o700); err != nil {
		debuglog.Printf("watcher", "mkdir watchers dir: %v", err)
		return
	}

	tmpPath := m.persistPath + ".tmp"
	if err := m.writeFile(tmpPath, data, 0o600); err != nil {
		debuglog.Printf("watcher", "write watchers tmp file: %v", err)
		return
	}
	if err := m.rename(tmpPath, m.persistPath); err != nil {
		debuglog.Printf("watcher", "rename watchers file: %v", err)
	}
}
