// Package watcher implements a single Watcher's baseline/check lifecycle,
// the capacity-limited Watcher Registry, and the cron-driven Watcher Cron
// Manager that schedules recurring checks and persists state.
package watcher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hazeltoft/browsercore/internal/errs"
	"github.com/hazeltoft/browsercore/internal/snapshot"
)

// Status is the lifecycle state of a Watcher.
type Status string

const (
	StatusActive Status = "active"
	StatusPaused Status = "paused"
	StatusError  Status = "error"
)

// Config is the immutable configuration a Watcher was registered with.
type Config struct {
	ID              string          `json:"id"`
	URL             string          `json:"url"`
	IntervalSeconds int             `json:"intervalSeconds"`
	Format          snapshot.Format `json:"format"`
	Filter          snapshot.Profile `json:"filter"`
	MaxTokens       int             `json:"maxTokens"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// DiffResult is the outcome of one checkForChanges call: compact
// "<ref>:<role>" labels rather than full nodes, since a diff result is for
// display/notification, not for further ref lookups.
type DiffResult struct {
	Timestamp  time.Time `json:"timestamp"`
	Added      []string  `json:"added"`
	Changed    []string  `json:"changed"`
	Removed    []string  `json:"removed"`
	HasChanges bool      `json:"hasChanges"`
}

// State is the full persistable Watcher state: configuration plus the
// mutable fields a Watcher accumulates across baseline/check calls.
type State struct {
	Config           Config      `json:"config"`
	Status           Status      `json:"status"`
	BaselineSnapshot string      `json:"baselineSnapshot"`
	LastDiff         *DiffResult `json:"lastDiff,omitempty"`
	LastCheckedAt    *time.Time  `json:"lastCheckedAt,omitempty"`
	LastError        string      `json:"lastError,omitempty"`
}

// PageContext is the resolved page target a capture will run against.
type PageContext struct {
	SessionID string
	TabID     string
	URL       string
	Title     string
}

// Resolver resolves the page a Watcher should capture against, navigating
// it to the watcher's configured URL.
type Resolver interface {
	ResolvePage(ctx context.Context, url string) (PageContext, error)
}

// Capturer is the subset of *snapshot.Engine a Watcher needs to take a
// capture. Matches (*snapshot.Engine).TakeSnapshot's signature exactly.
type Capturer interface {
	TakeSnapshot(ctx context.Context, sender snapshot.Sender, sessionID, tabID, url, title string, opts snapshot.TakeOptions) (snapshot.Snapshot, error)
}

// Watcher owns one Watcher Config and its mutable Watcher State: a
// baseline snapshot, the most recent diff, and error/status bookkeeping.
// Construction validates intervalSeconds via the Registry, not here.
type Watcher struct {
	mu sync.Mutex

	config Config
	status Status

	baseline           *snapshot.Snapshot
	baselineSerialized string
	lastDiff           *DiffResult
	lastCheckedAt      *time.Time
	lastError          string

	engine   Capturer
	sender   snapshot.Sender
	resolver Resolver
}

// NewWatcher constructs a Watcher in the active status with no baseline.
func NewWatcher(config Config, engine Capturer, sender snapshot.Sender, resolver Resolver) *Watcher {
	return &Watcher{
		config:   config,
		status:   StatusActive,
		engine:   engine,
		sender:   sender,
		resolver: resolver,
	}
}

// HydrateWatcher reconstructs a Watcher from a persisted State. The
// baseline snapshot's nodes are recovered from the persisted JSON so
// checkForChanges works immediately after a process restart, without
// requiring a fresh takeBaseline call.
func HydrateWatcher(state State, engine Capturer, sender snapshot.Sender, resolver Resolver) *Watcher {
	w := &Watcher{
		config:              state.Config,
		status:              state.Status,
		baselineSerialized:  state.BaselineSnapshot,
		lastDiff:            state.LastDiff,
		lastCheckedAt:        state.LastCheckedAt,
		lastError:           state.LastError,
		engine:              engine,
		sender:              sender,
		resolver:            resolver,
	}
	if state.BaselineSnapshot != "" {
		var nodes []snapshot.Node
		if err := json.Unmarshal([]byte(state.BaselineSnapshot), &nodes); err == nil {
			w.baseline = &snapshot.Snapshot{URL: state.Config.URL, Nodes: nodes}
		}
	}
	return w
}

// ID returns the watcher's registered id.
func (w *Watcher) ID() string {
	return w.config.ID
}

// Config returns the watcher's immutable configuration.
func (w *Watcher) Config() Config {
	return w.config
}

// Status returns the watcher's current lifecycle status.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// TakeBaseline captures a fresh snapshot and stores it as the watcher's
// baseline. Refuses if the watcher is paused. On any failure, records the
// error, marks the watcher's status error, and returns the error.
func (w *Watcher) TakeBaseline(ctx context.Context) error {
	w.mu.Lock()
	paused := w.status == StatusPaused
	w.mu.Unlock()
	if paused {
		return errs.New(errs.WatcherError, "watcher %s is paused", w.config.ID)
	}

	snap, err := w.capture(ctx)
	if err != nil {
		w.mu.Lock()
		w.status = StatusError
		w.lastError = err.Error()
		w.mu.Unlock()
		return err
	}

	serialized, err := json.MarshalIndent(snap.Nodes, "", "  ")
	if err != nil {
		w.mu.Lock()
		w.status = StatusError
		w.lastError = err.Error()
		w.mu.Unlock()
		return fmt.Errorf("serialize baseline: %w", err)
	}

	now := time.Now()
	w.mu.Lock()
	w.baseline = &snap
	w.baselineSerialized = string(serialized)
	w.lastCheckedAt = &now
	w.lastError = ""
	w.mu.Unlock()
	return nil
}

// CheckForChanges captures a fresh snapshot and diffs it against the
// stored baseline. Refuses if paused; fails if no baseline exists yet.
func (w *Watcher) CheckForChanges(ctx context.Context) (DiffResult, error) {
	w.mu.Lock()
	paused := w.status == StatusPaused
	baseline := w.baseline
	w.mu.Unlock()

	if paused {
		return DiffResult{}, errs.New(errs.WatcherError, "watcher %s is paused", w.config.ID)
	}
	if baseline == nil {
		return DiffResult{}, errs.New(errs.WatcherError, "watcher %s has no baseline", w.config.ID)
	}

	snap, err := w.capture(ctx)
	if err != nil {
		w.mu.Lock()
		w.status = StatusError
		w.lastError = err.Error()
		w.mu.Unlock()
		return DiffResult{}, err
	}

	d := snapshot.ComputeDiff(*baseline, snap)
	result := DiffResult{
		Timestamp: time.Now(),
		Added:     labelsOf(d.Added),
		Changed:   labelsOf(d.Changed),
		Removed:   labelsOf(d.Removed),
	}
	result.HasChanges = len(result.Added) > 0 || len(result.Changed) > 0 || len(result.Removed) > 0

	now := time.Now()
	w.mu.Lock()
	w.lastDiff = &result
	w.lastCheckedAt = &now
	w.lastError = ""
	w.mu.Unlock()

	return result, nil
}

// Pause flips the watcher's status to paused.
func (w *Watcher) Pause() {
	w.mu.Lock()
	w.status = StatusPaused
	w.mu.Unlock()
}

// Resume flips the watcher's status to active, clearing lastError when
// transitioning out of the error status.
func (w *Watcher) Resume() {
	w.mu.Lock()
	if w.status == StatusError {
		w.lastError = ""
	}
	w.status = StatusActive
	w.mu.Unlock()
}

// ExportState returns a snapshot of the watcher's full persistable state.
func (w *Watcher) ExportState() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	var lastCheckedAt *time.Time
	if w.lastCheckedAt != nil {
		t := *w.lastCheckedAt
		lastCheckedAt = &t
	}
	var lastDiff *DiffResult
	if w.lastDiff != nil {
		d := *w.lastDiff
		lastDiff = &d
	}

	return State{
		Config:           w.config,
		Status:           w.status,
		BaselineSnapshot: w.baselineSerialized,
		LastDiff:         lastDiff,
		LastCheckedAt:    lastCheckedAt,
		LastError:        w.lastError,
	}
}

func (w *Watcher) capture(ctx context.Context) (snapshot.Snapshot, error) {
	page, err := w.resolver.ResolvePage(ctx, w.config.URL)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("resolve page: %w", err)
	}
	return w.engine.TakeSnapshot(ctx, w.sender, page.SessionID, page.TabID, page.URL, page.Title, snapshot.TakeOptions{
		Profile:   w.config.Filter,
		MaxTokens: w.config.MaxTokens,
		Format:    w.config.Format,
	})
}

func labelsOf(nodes []snapshot.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = snapshot.CompactLabel(n)
	}
	return out
}
