package risk

import (
	"sync"
	"time"
)

// ThrottleGuard counts order attempts inside a trailing window. Timestamps
// are kept oldest-first; pruning pops from the head while the head has aged
// out, so both operations are amortized O(1). Safe for concurrent use from
// parallel admission checks.
type ThrottleGuard struct {
	mu    sync.Mutex
	times []time.Time
	now   func() time.Time
}

func NewThrottleGuard() *ThrottleGuard {
	return &ThrottleGuard{now: time.Now}
}

// SetClock injects a clock for deterministic tests.
func (g *ThrottleGuard) SetClock(now func() time.Time) {
	g.mu.Lock()
	g.now = now
	g.mu.Unlock()
}

// RecordAttempt appends the current timestamp.
func (g *ThrottleGuard) RecordAttempt() {
	g.mu.Lock()
	g.times = append(g.times, g.now())
	g.mu.Unlock()
}

// CountRecent returns the number of attempts strictly within the trailing
// window, pruning expired entries as a side effect. Prune and count happen
// under one critical section so a racing RecordAttempt can never be
// undercounted.
func (g *ThrottleGuard) CountRecent(window time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-window)
	i := 0
	for i < len(g.times) && !g.times[i].After(cutoff) {
		i++
	}
	if i > 0 {
		g.times = g.times[i:]
	}
	return len(g.times)
}
