package risk

import (
	"context"
	"sync/atomic"
	"time"

	"RiskGate/internal/domain/models"
	domrepo "RiskGate/internal/domain/repository"
	"RiskGate/pkg/logger"
)

// CircuitBreaker is the global trip/reset switch. Two states: open
// (trading allowed) and tripped (blocked). Tripping happens explicitly or
// whenever an observed budget snapshot is exhausted; resetting is only ever
// a deliberate operator action, never timeout-based.
//
// The current state lives behind an atomic pointer updated by a
// compare-and-swap loop, so reads on the admission path are lock-free and
// always observe the most recent in-process write. Each flip appends a
// CircuitState row and is broadcast exactly once: only the CAS winner
// persists and publishes, so repeated identical observations cannot cause
// notification storms.
type CircuitBreaker struct {
	state  atomic.Pointer[models.CircuitState]
	store  domrepo.RiskStore
	events domrepo.EventSink
	mx     domrepo.Metrics
	l      *logger.Logger
	now    func() time.Time
}

func NewCircuitBreaker(store domrepo.RiskStore, events domrepo.EventSink, mx domrepo.Metrics, l *logger.Logger) *CircuitBreaker {
	cb := &CircuitBreaker{store: store, events: events, mx: mx, l: l, now: time.Now}
	initial := models.CircuitState{Tripped: false, Reason: "init", AsOf: cb.now().UTC()}
	cb.state.Store(&initial)
	return cb
}

// SetClock injects a clock for deterministic tests.
func (cb *CircuitBreaker) SetClock(now func() time.Time) { cb.now = now }

// Tripped reports the current state.
func (cb *CircuitBreaker) Tripped() bool {
	return cb.state.Load().Tripped
}

// Current returns the authoritative state row.
func (cb *CircuitBreaker) Current() models.CircuitState {
	return *cb.state.Load()
}

// Trip moves the breaker to tripped. Returns true if this call performed
// the flip (edge), false if it was already tripped.
func (cb *CircuitBreaker) Trip(ctx context.Context, reason string) bool {
	return cb.transition(ctx, true, reason)
}

// Reset moves the breaker back to open. Explicit operator/scheduler action
// only. Returns true if this call performed the flip.
func (cb *CircuitBreaker) Reset(ctx context.Context) bool {
	return cb.transition(ctx, false, "manual reset")
}

// Observe trips the breaker when the budget snapshot shows exhaustion.
// Called opportunistically from summary computation and admission checks.
func (cb *CircuitBreaker) Observe(ctx context.Context, s models.RiskBudgetSnapshot) {
	if s.Exhausted() {
		cb.Trip(ctx, "daily loss budget exhausted")
	}
}

func (cb *CircuitBreaker) transition(ctx context.Context, tripped bool, reason string) bool {
	next := models.CircuitState{Tripped: tripped, Reason: reason, AsOf: cb.now().UTC()}
	for {
		cur := cb.state.Load()
		if cur.Tripped == tripped {
			return false
		}
		if cb.state.CompareAndSwap(cur, &next) {
			break
		}
	}

	if cb.mx != nil {
		cb.mx.RecordCircuitState(tripped)
	}
	if cb.l != nil {
		cb.l.Warn("circuit state changed",
			logger.Bool("tripped", tripped),
			logger.String("reason", reason),
		)
	}
	if cb.store != nil {
		if err := cb.store.AppendCircuitState(ctx, next); err != nil {
			if cb.mx != nil {
				cb.mx.RecordError("circuit_persist")
			}
			if cb.l != nil {
				cb.l.Error("circuit state persist failed", logger.Error(err))
			}
		}
	}
	if cb.events != nil {
		if err := cb.events.Publish(ctx, domrepo.TopicRiskCircuit, next); err != nil {
			if cb.mx != nil {
				cb.mx.RecordError("circuit_publish")
			}
		}
	}
	return true
}
