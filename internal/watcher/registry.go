package watcher

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hazeltoft/browsercore/internal/errs"
	"github.com/hazeltoft/browsercore/internal/snapshot"
)

const (
	defaultCapacity        = 10
	defaultIntervalSeconds = 300
	defaultMaxTokens       = 2000
)

// RegisterInput is the caller-supplied configuration for a new watcher.
// Zero values are filled with defaults by Register.
type RegisterInput struct {
	ID              string
	URL             string
	IntervalSeconds float64
	Format          snapshot.Format
	Filter          snapshot.Profile
	MaxTokens       int
}

// Registry is an in-memory, capacity-limited map from watcher id to
// Watcher, with a monotonic id-generation counter that survives
// Deserialize (lifted above any hydrated id's numeric suffix).
type Registry struct {
	mu       sync.Mutex
	capacity int
	counter  int
	watchers map[string]*Watcher
	reserved map[string]bool

	engine   Capturer
	sender   snapshot.Sender
	resolver Resolver
}

// NewRegistry constructs a Registry with the given capacity (defaulting to
// 10 when <= 0), backed by engine/sender/resolver for every Watcher it
// constructs.
func NewRegistry(capacity int, engine Capturer, sender snapshot.Sender, resolver Resolver) *Registry {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Registry{
		capacity: capacity,
		watchers: make(map[string]*Watcher),
		reserved: make(map[string]bool),
		engine:   engine,
		sender:   sender,
		resolver: resolver,
	}
}

// Register validates input, constructs a Watcher, takes its baseline, and
// stores it. The watcher is not added if the baseline capture fails.
func (r *Registry) Register(ctx context.Context, input RegisterInput) (*Watcher, error) {
	r.mu.Lock()
	if len(r.watchers)+len(r.reserved) >= r.capacity {
		r.mu.Unlock()
		return nil, errs.New(errs.WatcherLimitExceeded, "watcher registry is at capacity (%d)", r.capacity)
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		r.counter++
		id = fmt.Sprintf("watcher-%03d", r.counter)
	} else if n, ok := parseWatcherNumber(id); ok && n > r.counter {
		r.counter = n
	}

	if _, exists := r.watchers[id]; exists {
		r.mu.Unlock()
		return nil, errs.New(errs.WatcherError, "watcher id %q is already registered", id)
	}
	if r.reserved[id] {
		r.mu.Unlock()
		return nil, errs.New(errs.WatcherError, "watcher id %q is already registered", id)
	}
	r.reserved[id] = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.reserved, id)
		r.mu.Unlock()
	}()

	interval := input.IntervalSeconds
	switch {
	case math.IsNaN(interval) || math.IsInf(interval, 0) || interval <= 0:
		interval = defaultIntervalSeconds
	case interval != math.Trunc(interval) || interval < 60:
		return nil, errs.New(errs.WatcherError, "intervalSeconds must be an integer >= 60, got %v", input.IntervalSeconds)
	}

	format := input.Format
	if format == "" {
		format = snapshot.FormatCompact
	}
	filter := input.Filter
	if filter == "" {
		filter = snapshot.ProfileInteractive
	}
	maxTokens := input.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	config := Config{
		ID:              id,
		URL:             input.URL,
		IntervalSeconds: int(interval),
		Format:          format,
		Filter:          filter,
		MaxTokens:       maxTokens,
		CreatedAt:       time.Now(),
	}

	w := NewWatcher(config, r.engine, r.sender, r.resolver)
	if err := w.TakeBaseline(ctx); err != nil {
		return nil, fmt.Errorf("take baseline for watcher %s: %w", id, err)
	}

	r.mu.Lock()
	r.watchers[id] = w
	r.mu.Unlock()

	return w, nil
}

// Get returns the watcher registered under id, if any.
func (r *Registry) Get(id string) (*Watcher, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.watchers[id]
	return w, ok
}

// List returns every registered watcher, ordered by id.
func (r *Registry) List() []*Watcher {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Watcher, 0, len(r.watchers))
	for _, w := range r.watchers {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Remove drops id from the registry, reporting whether it was present.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.watchers[id]; !ok {
		return false
	}
	delete(r.watchers, id)
	return true
}

// Count returns the number of registered watchers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.watchers)
}

// Deserialize replaces the entire map with hydrated watchers built from
// states, lifting the id counter above any id matching "watcher-<N>".
func (r *Registry) Deserialize(states []State) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.watchers = make(map[string]*Watcher, len(states))
	for _, state := range states {
		if n, ok := parseWatcherNumber(state.Config.ID); ok && n > r.counter {
			r.counter = n
		}
		r.watchers[state.Config.ID] = HydrateWatcher(state, r.engine, r.sender, r.resolver)
	}
}

func parseWatcherNumber(id string) (int, bool) {
	const prefix = "watcher-"
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
	if err != nil {
		return 0, false
	}
	return n, true
}
