package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskGate/internal/domain/models"
	domrepo "RiskGate/internal/domain/repository"
	internalrepo "RiskGate/internal/repository"
	"RiskGate/internal/risk"
)

type captureSink struct {
	mu       sync.Mutex
	payloads map[domrepo.Topic][]interface{}
}

func newCaptureSink() *captureSink {
	return &captureSink{payloads: make(map[domrepo.Topic][]interface{})}
}

func (s *captureSink) Publish(_ context.Context, topic domrepo.Topic, payload interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads[topic] = append(s.payloads[topic], payload)
	return nil
}
func (s *captureSink) Close() error { return nil }

func (s *captureSink) count(topic domrepo.Topic) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payloads[topic])
}

func TestSummaryAssemblesGuardState(t *testing.T) {
	store := internalrepo.NewMemoryStore()
	require.NoError(t, store.SaveLimits(context.Background(), models.RiskLimitsConfig{
		DailyLossCapAmount: 1000, LotsCap: 6, OrdersPerMinuteCap: 5,
	}))
	require.NoError(t, store.SaveBudget(context.Background(), models.RiskBudgetSnapshot{
		AsOf: time.Now(), BudgetTotal: 1000, BudgetUsed: 250,
	}))
	store.SetPositions([]models.Position{{Symbol: "NIFTY", Quantity: 100, LotSize: 50}})

	throttle := risk.NewThrottleGuard()
	throttle.RecordAttempt()
	breaker := risk.NewCircuitBreaker(store, nil, nil, nil)

	svc := NewRiskStatusService(store, store, throttle, breaker, nil, nil, nil)
	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, sum.Limits.LotsCap)
	assert.Equal(t, 250.0, sum.Budget.BudgetUsed)
	assert.False(t, sum.Circuit.Tripped)
	assert.Equal(t, 2, sum.OpenLots)
	assert.Equal(t, 1, sum.RecentAttempts)
}

func TestSummaryObservesExhaustedBudget(t *testing.T) {
	store := internalrepo.NewMemoryStore()
	require.NoError(t, store.SaveBudget(context.Background(), models.RiskBudgetSnapshot{
		AsOf: time.Now(), BudgetTotal: 500, BudgetUsed: 600,
	}))

	breaker := risk.NewCircuitBreaker(store, nil, nil, nil)
	svc := NewRiskStatusService(store, store, risk.NewThrottleGuard(), breaker, nil, nil, nil)

	sum, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, sum.Circuit.Tripped, "summary must trip the breaker on exhaustion")
}

func TestPollBudgetPublishesSummary(t *testing.T) {
	store := internalrepo.NewMemoryStore()
	sink := newCaptureSink()
	breaker := risk.NewCircuitBreaker(store, sink, nil, nil)
	svc := NewRiskStatusService(store, store, risk.NewThrottleGuard(), breaker, sink, nil, nil)

	require.NoError(t, svc.PollBudget(context.Background()))
	assert.Equal(t, 1, sink.count(domrepo.TopicRiskSummary))
}

func TestResetCircuitReopens(t *testing.T) {
	store := internalrepo.NewMemoryStore()
	breaker := risk.NewCircuitBreaker(store, nil, nil, nil)
	svc := NewRiskStatusService(store, store, risk.NewThrottleGuard(), breaker, nil, nil, nil)

	breaker.Trip(context.Background(), "halt")
	assert.True(t, svc.ResetCircuit(context.Background()))
	assert.False(t, breaker.Tripped())

	history := store.CircuitHistory()
	require.Len(t, history, 2)
	assert.True(t, history[0].Tripped)
	assert.False(t, history[1].Tripped)
}
