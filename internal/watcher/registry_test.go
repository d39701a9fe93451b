package watcher

import (
	"context"
	"errors"
	"testing"

	"github.com/hazeltoft/browsercore/internal/errs"
	"github.com/hazeltoft/browsercore/internal/snapshot"
)

func newTestRegistry(capacity int, capturer *fakeCapturer) *Registry {
	return NewRegistry(capacity, capturer, fakeSender{}, &fakeResolver{})
}

func TestRegistry_Register_GeneratesZeroPaddedID(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{{}, {}}}
	r := newTestRegistry(10, capturer)

	w1, err := r.Register(context.Background(), RegisterInput{URL: "http://a", IntervalSeconds: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w2, err := r.Register(context.Background(), RegisterInput{URL: "http://b", IntervalSeconds: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w1.ID() != "watcher-001" || w2.ID() != "watcher-002" {
		t.Errorf("expected watcher-001/002, got %s/%s", w1.ID(), w2.ID())
	}
}

func TestRegistry_Register_RejectsAtCapacity(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{{}}}
	r := newTestRegistry(1, capturer)

	if _, err := r.Register(context.Background(), RegisterInput{IntervalSeconds: 60}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := r.Register(context.Background(), RegisterInput{IntervalSeconds: 60})
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind != errs.WatcherLimitExceeded {
		t.Fatalf("expected WatcherLimitExceeded, got %v", err)
	}
}

func TestRegistry_Register_RejectsDuplicateID(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{{}, {}}}
	r := newTestRegistry(10, capturer)

	if _, err := r.Register(context.Background(), RegisterInput{ID: "custom", IntervalSeconds: 60}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := r.Register(context.Background(), RegisterInput{ID: "custom", IntervalSeconds: 60}); err == nil {
		t.Fatal("expected duplicate id rejection")
	}
}

func TestRegistry_Register_DefaultsInterval(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{{}}}
	r := newTestRegistry(10, capturer)

	w, err := r.Register(context.Background(), RegisterInput{IntervalSeconds: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Config().IntervalSeconds != defaultIntervalSeconds {
		t.Errorf("expected default interval %d, got %d", defaultIntervalSeconds, w.Config().IntervalSeconds)
	}
}

func TestRegistry_Register_RejectsNonIntegerOrSubMinuteInterval(t *testing.T) {
	capturer := &fakeCapturer{}
	r := newTestRegistry(10, capturer)

	if _, err := r.Register(context.Background(), RegisterInput{IntervalSeconds: 59}); err == nil {
		t.Error("expected rejection of sub-minute interval")
	}
	if _, err := r.Register(context.Background(), RegisterInput{IntervalSeconds: 90.5}); err == nil {
		t.Error("expected rejection of non-integer interval")
	}
}

func TestRegistry_Register_FillsFormatFilterMaxTokensDefaults(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{{}}}
	r := newTestRegistry(10, capturer)

	w, err := r.Register(context.Background(), RegisterInput{IntervalSeconds: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := w.Config()
	if cfg.Format != snapshot.FormatCompact || cfg.Filter != snapshot.ProfileInteractive || cfg.MaxTokens != defaultMaxTokens {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestRegistry_Register_BaselineFailureLeavesWatcherUnregistered(t *testing.T) {
	capturer := &fakeCapturer{errs: []error{errors.New("boom")}}
	r := newTestRegistry(10, capturer)

	_, err := r.Register(context.Background(), RegisterInput{IntervalSeconds: 60})
	if err == nil {
		t.Fatal("expected baseline failure to propagate")
	}
	if r.Count() != 0 {
		t.Errorf("expected watcher not added, count=%d", r.Count())
	}
}

func TestRegistry_GetListRemove(t *testing.T) {
	capturer := &fakeCapturer{snapshots: []snapshot.Snapshot{{}, {}}}
	r := newTestRegistry(10, capturer)

	w1, _ := r.Register(context.Background(), RegisterInput{ID: "b", IntervalSeconds: 60})
	_, _ = r.Register(context.Background(), RegisterInput{ID: "a", IntervalSeconds: 60})

	got, ok := r.Get(w1.ID())
	if !ok || got != w1 {
		t.Error("expected Get to find registered watcher")
	}

	list := r.List()
	if len(list) != 2 || list[0].ID() != "a" || list[1].ID() != "b" {
		t.Errorf("expected sorted ids [a b], got %v", []string{list[0].ID(), list[1].ID()})
	}

	if !r.Remove("a") {
		t.Error("expected removal to succeed")
	}
	if r.Remove("a") {
		t.Error("expected second removal to report absence")
	}
}

func TestRegistry_Deserialize_LiftsCounterAboveHydratedIDs(t *testing.T) {
	capturer := &fakeCapturer{}
	r := newTestRegistry(10, capturer)

	r.Deserialize([]State{
		{Config: Config{ID: "watcher-007", IntervalSeconds: 60}, Status: StatusActive},
	})

	if r.Count() != 1 {
		t.Fatalf("expected 1 hydrated watcher, got %d", r.Count())
	}

	capturer.snapshots = []snapshot.Snapshot{{}}
	w, err := r.Register(context.Background(), RegisterInput{IntervalSeconds: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.ID() != "watcher-008" {
		t.Errorf("expected counter lifted to watcher-008, got %s", w.ID())
	}
}
