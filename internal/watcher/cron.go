package watcher

import (
	"fmt"
	"math"
	"sync"

	"github.com/robfig/cron/v3"
)

// intervalToCron maps an interval in seconds to a 5-field cron expression.
// The last branch (a non-hour-aligned multi-hour interval) is a deliberate
// approximation: minutes are rounded and capped at 59.
func intervalToCron(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 60 {
		return "* * * * *"
	}

	minutes := seconds / 60
	if minutes <= 1 {
		return "* * * * *"
	}
	if minutes < 60 {
		return fmt.Sprintf("*/%d * * * *", int(math.Round(minutes)))
	}

	hours := minutes / 60
	if hours == math.Trunc(hours) {
		h := int(hours)
		if h == 1 {
			return "0 * * * *"
		}
		return fmt.Sprintf("0 */%d * * *", h)
	}

	m := int(math.Round(minutes))
	if m > 59 {
		m = 59
	}
	return fmt.Sprintf("*/%d * * * *", m)
}

// Scheduler is the subset of a cron scheduler the manager needs. Satisfied
// by *cronScheduler, which adapts github.com/robfig/cron/v3's integer
// EntryID scheme to string job ids.
type Scheduler interface {
	Submit(id, schedule string, run func()) error
	Remove(id string) error
}

// cronScheduler adapts *cron.Cron to the Scheduler interface, keyed by the
// caller's string job id rather than cron's own integer EntryID.
type cronScheduler struct {
	mu      sync.Mutex
	engine  *cron.Cron
	entries map[string]cron.EntryID
}

// NewCronScheduler starts a new background cron engine.
func NewCronScheduler() Scheduler {
	c := cron.New()
	c.Start()
	return &cronScheduler{engine: c, entries: make(map[string]cron.EntryID)}
}

func (s *cronScheduler) Submit(id, schedule string, run func()) error {
	entryID, err := s.engine.AddFunc(schedule, run)
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", id, err)
	}

	s.mu.Lock()
	if old, exists := s.entries[id]; exists {
		s.engine.Remove(old)
	}
	s.entries[id] = entryID
	s.mu.Unlock()
	return nil
}

func (s *cronScheduler) Remove(id string) error {
	s.mu.Lock()
	entryID, exists := s.entries[id]
	if exists {
		delete(s.entries, id)
	}
	s.mu.Unlock()

	if !exists {
		return fmt.Errorf("no cron job registered for %s", id)
	}
	s.engine.Remove(entryID)
	return nil
}
