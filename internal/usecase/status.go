package usecase

import (
	"context"
	"fmt"
	"time"

	"RiskGate/internal/domain/models"
	domrepo "RiskGate/internal/domain/repository"
	"RiskGate/internal/risk"
	"RiskGate/pkg/logger"
)

// RiskSummary is the point-in-time operator view of every guard.
type RiskSummary struct {
	AsOf           time.Time                 `json:"as_of"`
	Limits         models.RiskLimitsConfig   `json:"limits"`
	Budget         models.RiskBudgetSnapshot `json:"budget"`
	Circuit        models.CircuitState       `json:"circuit"`
	OpenLots       int                       `json:"open_lots"`
	RecentAttempts int                       `json:"recent_attempts"`
}

// RiskStatusService assembles RiskSummary snapshots and runs the periodic
// budget poll that keeps the circuit breaker honest between admissions.
type RiskStatusService struct {
	riskStore domrepo.RiskStore
	positions domrepo.PositionSource
	throttle  *risk.ThrottleGuard
	breaker   *risk.CircuitBreaker
	events    domrepo.EventSink
	mx        domrepo.Metrics
	l         *logger.Logger
	now       func() time.Time
}

func NewRiskStatusService(
	riskStore domrepo.RiskStore,
	positions domrepo.PositionSource,
	throttle *risk.ThrottleGuard,
	breaker *risk.CircuitBreaker,
	events domrepo.EventSink,
	mx domrepo.Metrics,
	l *logger.Logger,
) *RiskStatusService {
	return &RiskStatusService{
		riskStore: riskStore,
		positions: positions,
		throttle:  throttle,
		breaker:   breaker,
		events:    events,
		mx:        mx,
		l:         l,
		now:       time.Now,
	}
}

// SetClock injects a clock for deterministic tests.
func (s *RiskStatusService) SetClock(now func() time.Time) { s.now = now }

// Summary reads every guard's current state. The budget snapshot is also fed
// to the breaker so an exhausted budget trips it even with no order flow.
func (s *RiskStatusService) Summary(ctx context.Context) (RiskSummary, error) {
	limits, err := s.riskStore.Limits(ctx)
	if err != nil {
		return RiskSummary{}, fmt.Errorf("read limits: %w", err)
	}
	budget, err := s.riskStore.LatestBudget(ctx)
	if err != nil {
		return RiskSummary{}, fmt.Errorf("read budget: %w", err)
	}
	s.breaker.Observe(ctx, budget)

	positions, err := s.positions.OpenPositions(ctx)
	if err != nil {
		return RiskSummary{}, fmt.Errorf("read positions: %w", err)
	}

	return RiskSummary{
		AsOf:           s.now().UTC(),
		Limits:         limits,
		Budget:         budget,
		Circuit:        s.breaker.Current(),
		OpenLots:       risk.UsedLots(positions),
		RecentAttempts: s.throttle.CountRecent(throttleWindow),
	}, nil
}

// PollBudget is the scheduler task body: compute a summary and broadcast it.
func (s *RiskStatusService) PollBudget(ctx context.Context) error {
	summary, err := s.Summary(ctx)
	if err != nil {
		if s.mx != nil {
			s.mx.RecordError("budget_poll")
		}
		return err
	}
	if s.events != nil {
		if err := s.events.Publish(ctx, domrepo.TopicRiskSummary, summary); err != nil {
			if s.mx != nil {
				s.mx.RecordError("event_publish")
			}
		}
	}
	if s.l != nil {
		s.l.Debug("risk summary",
			logger.Bool("tripped", summary.Circuit.Tripped),
			logger.Float64("budget_used", summary.Budget.BudgetUsed),
			logger.Int("open_lots", summary.OpenLots),
			logger.Int("recent_attempts", summary.RecentAttempts),
		)
	}
	return nil
}

// ResetCircuit is the deliberate operator action that reopens trading.
func (s *RiskStatusService) ResetCircuit(ctx context.Context) bool {
	return s.breaker.Reset(ctx)
}
