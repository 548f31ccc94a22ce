package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskGate/internal/domain/models"
	internalrepo "RiskGate/internal/repository"
	"RiskGate/internal/risk"
	"RiskGate/internal/services/broker"
	"RiskGate/pkg/cache"
)

type gateFixture struct {
	store    *internalrepo.MemoryStore
	throttle *risk.ThrottleGuard
	breaker  *risk.CircuitBreaker
	fast     cache.Service
	broker   *broker.PaperBroker
	gate     *OrderAdmissionGate
}

func newGateFixture(t *testing.T, limits models.RiskLimitsConfig) *gateFixture {
	t.Helper()
	store := internalrepo.NewMemoryStore()
	require.NoError(t, store.SaveLimits(context.Background(), limits))

	throttle := risk.NewThrottleGuard()
	breaker := risk.NewCircuitBreaker(store, nil, nil, nil)
	fast := cache.NewMemoryCache()
	gw := broker.NewPaperBroker(nil)

	gate := NewOrderAdmissionGate(store, store, store, throttle, breaker, fast, gw, nil, nil, nil, time.Minute)
	return &gateFixture{store: store, throttle: throttle, breaker: breaker, fast: fast, broker: gw, gate: gate}
}

func (f *gateFixture) pendingAdvice(t *testing.T, symbol string, side models.Side, qty, lotSize int) models.Advice {
	t.Helper()
	a := models.NewAdvice(symbol, side, 80, "composite", "test", qty, lotSize)
	require.NoError(t, f.store.Save(context.Background(), a))
	return a
}

func TestExecuteAdviceHappyPath(t *testing.T) {
	f := newGateFixture(t, models.RiskLimitsConfig{DailyLossCapAmount: 1000, LotsCap: 10, OrdersPerMinuteCap: 5})
	a := f.pendingAdvice(t, "NIFTY", models.SideBuy, 50, 50)

	res := f.gate.ExecuteAdvice(context.Background(), a.ID)
	require.True(t, res.OK(), "unexpected rejection: %s %s", res.Code, res.Reason)
	assert.NotEmpty(t, res.OrderID)

	got, err := f.store.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdviceExecuted, got.Status)
	assert.Equal(t, res.OrderID, got.BrokerOrderID)

	// exactly one attempt recorded, only after placement
	assert.Equal(t, 1, f.throttle.CountRecent(time.Minute))
	assert.Equal(t, 1, f.broker.Placed())
}

func TestExecuteAdviceNotPending(t *testing.T) {
	f := newGateFixture(t, models.RiskLimitsConfig{})
	a := f.pendingAdvice(t, "NIFTY", models.SideBuy, 50, 50)

	res := f.gate.ExecuteAdvice(context.Background(), a.ID)
	require.True(t, res.OK())

	// the same advice cannot execute twice
	res = f.gate.ExecuteAdvice(context.Background(), a.ID)
	assert.Equal(t, risk.CodeDuplicate, res.Code)
	assert.Equal(t, 1, f.broker.Placed())
}

func TestExecuteAdviceConcurrentDedupe(t *testing.T) {
	f := newGateFixture(t, models.RiskLimitsConfig{OrdersPerMinuteCap: 100})

	const n = 16
	ids := make([]string, n)
	for i := range ids {
		ids[i] = f.pendingAdvice(t, "NIFTY", models.SideBuy, 50, 50).ID
	}

	results := make([]risk.Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.gate.ExecuteAdvice(context.Background(), ids[i])
		}(i)
	}
	wg.Wait()

	okCount, dupCount := 0, 0
	for _, r := range results {
		switch r.Code {
		case risk.CodeOK:
			okCount++
		case risk.CodeDuplicate:
			dupCount++
		default:
			t.Fatalf("unexpected code %s: %s", r.Code, r.Reason)
		}
	}
	assert.Equal(t, 1, okCount, "exactly one concurrent execution must win")
	assert.Equal(t, n-1, dupCount)
	assert.Equal(t, 1, f.broker.Placed())
}

func TestExecuteAdviceCircuitTripped(t *testing.T) {
	f := newGateFixture(t, models.RiskLimitsConfig{})
	a := f.pendingAdvice(t, "NIFTY", models.SideBuy, 50, 50)

	f.breaker.Trip(context.Background(), "operator halt")
	res := f.gate.ExecuteAdvice(context.Background(), a.ID)
	assert.Equal(t, risk.CodeCircuitTripped, res.Code)
	assert.Equal(t, 0, f.broker.Placed())

	// a rejected attempt releases the dedupe window; reset reopens trading
	f.breaker.Reset(context.Background())
	res = f.gate.ExecuteAdvice(context.Background(), a.ID)
	require.True(t, res.OK(), "after reset: %s %s", res.Code, res.Reason)
}

func TestExecuteAdviceBudgetExhaustedTripsBreaker(t *testing.T) {
	f := newGateFixture(t, models.RiskLimitsConfig{DailyLossCapAmount: 500})
	a := f.pendingAdvice(t, "NIFTY", models.SideSell, 50, 50)

	require.NoError(t, f.store.SaveBudget(context.Background(), models.RiskBudgetSnapshot{
		AsOf: time.Now(), BudgetTotal: 500, BudgetUsed: 500,
	}))

	res := f.gate.ExecuteAdvice(context.Background(), a.ID)
	assert.Equal(t, risk.CodeDailyLossCap, res.Code)
	assert.True(t, f.breaker.Tripped(), "exhausted budget must trip the breaker")

	// every later attempt short-circuits on the breaker
	b := f.pendingAdvice(t, "NIFTY", models.SideBuy, 50, 50)
	res = f.gate.ExecuteAdvice(context.Background(), b.ID)
	assert.Equal(t, risk.CodeCircuitTripped, res.Code)
}

func TestExecuteAdviceLotsCap(t *testing.T) {
	f := newGateFixture(t, models.RiskLimitsConfig{LotsCap: 6})
	f.store.SetPositions([]models.Position{{Symbol: "NIFTY", Quantity: 200, LotSize: 50}}) // 4 lots

	// 3 more lots over a cap of 6 rejects
	over := f.pendingAdvice(t, "NIFTY", models.SideBuy, 150, 50)
	res := f.gate.ExecuteAdvice(context.Background(), over.ID)
	assert.Equal(t, risk.CodeLotsCap, res.Code)

	// 2 more lots exactly at the cap passes
	at := f.pendingAdvice(t, "NIFTY", models.SideSell, 100, 50)
	res = f.gate.ExecuteAdvice(context.Background(), at.ID)
	require.True(t, res.OK(), "at-cap order should pass: %s %s", res.Code, res.Reason)
}

func TestExecuteAdviceThrottled(t *testing.T) {
	f := newGateFixture(t, models.RiskLimitsConfig{OrdersPerMinuteCap: 2})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	f.throttle.SetClock(func() time.Time { return now })

	for i, sym := range []string{"NIFTY", "BANKNIFTY"} {
		a := f.pendingAdvice(t, sym, models.SideBuy, 50, 50)
		res := f.gate.ExecuteAdvice(context.Background(), a.ID)
		require.True(t, res.OK(), "order %d: %s %s", i, res.Code, res.Reason)
	}

	blocked := f.pendingAdvice(t, "FINNIFTY", models.SideBuy, 50, 50)
	res := f.gate.ExecuteAdvice(context.Background(), blocked.ID)
	assert.Equal(t, risk.CodeThrottled, res.Code)

	// window expiry frees capacity
	now = base.Add(61 * time.Second)
	retry := f.pendingAdvice(t, "MIDCPNIFTY", models.SideBuy, 50, 50)
	res = f.gate.ExecuteAdvice(context.Background(), retry.ID)
	require.True(t, res.OK(), "after window expiry: %s %s", res.Code, res.Reason)
}

func TestExecuteAdviceBrokerFailure(t *testing.T) {
	f := newGateFixture(t, models.RiskLimitsConfig{OrdersPerMinuteCap: 5})
	a := f.pendingAdvice(t, "NIFTY", models.SideBuy, 50, 50)

	f.broker.FailNext = true
	res := f.gate.ExecuteAdvice(context.Background(), a.ID)
	assert.Equal(t, risk.CodeInfraError, res.Code)

	// failed placement is not an attempt and not tripped state
	assert.Equal(t, 0, f.throttle.CountRecent(time.Minute))
	assert.False(t, f.breaker.Tripped())

	got, err := f.store.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvicePending, got.Status)

	// the dedupe window was released, so the retry can go through
	res = f.gate.ExecuteAdvice(context.Background(), a.ID)
	require.True(t, res.OK(), "retry after broker failure: %s %s", res.Code, res.Reason)
	assert.Equal(t, 1, f.throttle.CountRecent(time.Minute))
}

func TestDismissAdvice(t *testing.T) {
	f := newGateFixture(t, models.RiskLimitsConfig{})
	a := f.pendingAdvice(t, "NIFTY", models.SideBuy, 50, 50)

	require.NoError(t, f.gate.Dismiss(context.Background(), a.ID, "operator override"))

	got, err := f.store.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdviceDismissed, got.Status)
	assert.Equal(t, "operator override", got.Reason)

	// only PENDING advices can be dismissed
	assert.Error(t, f.gate.Dismiss(context.Background(), a.ID, "again"))
}
