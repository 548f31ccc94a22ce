package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskGate/internal/domain/models"
	internalrepo "RiskGate/internal/repository"
	"RiskGate/internal/risk"
	"RiskGate/pkg/cache"
)

func defaultDecisionConfig(strategy string) DecisionConfig {
	return DecisionConfig{
		Strategy:        strategy,
		MinConfidence:   60,
		EntryLongScore:  70,
		EntryShortScore: 30,
		WeightRegime:    0.40,
		WeightMomentum:  0.35,
		WeightSentiment: 0.25,
		EmitThreshold:   0.35,
		Quantity:        50,
		LotSize:         50,
		DedupeWindow:    time.Minute,
	}
}

func newEngine(t *testing.T, strategy string) (*DecisionEngine, *internalrepo.MemoryStore, *risk.CircuitBreaker) {
	t.Helper()
	store := internalrepo.NewMemoryStore()
	breaker := risk.NewCircuitBreaker(store, nil, nil, nil)
	e := NewDecisionEngine(defaultDecisionConfig(strategy), store, store, breaker, cache.NewMemoryCache(), nil, nil, nil)
	return e, store, breaker
}

func saveSentiment(t *testing.T, store *internalrepo.MemoryStore, symbol string, score, conf float64) {
	t.Helper()
	require.NoError(t, store.SaveSentiment(context.Background(), models.SentimentSnapshot{
		Symbol: symbol, AsOf: time.Now(), Score: score, Confidence: conf,
	}))
}

func saveRegime(t *testing.T, store *internalrepo.MemoryStore, symbol string, regime models.Regime, strength, z float64) {
	t.Helper()
	require.NoError(t, store.SaveRegime(context.Background(), models.RegimeSnapshot{
		Symbol: symbol, AsOf: time.Now(), Regime: regime, Strength: strength, MomentumZ: z,
	}))
}

func TestSentimentStrategyBuy(t *testing.T) {
	e, store, _ := newEngine(t, StrategySentiment)
	saveSentiment(t, store, "NIFTY", 80, 90)

	d, err := e.Evaluate(context.Background(), "NIFTY")
	require.NoError(t, err)
	require.True(t, d.Emitted(), "expected advice, got %s: %s", d.Code, d.Reason)
	assert.Equal(t, models.SideBuy, d.Advice.Side)
	assert.Equal(t, models.AdvicePending, d.Advice.Status)

	persisted, err := store.Get(context.Background(), d.Advice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdvicePending, persisted.Status)
}

func TestSentimentStrategySell(t *testing.T) {
	e, store, _ := newEngine(t, StrategySentiment)
	saveSentiment(t, store, "NIFTY", 20, 90)

	d, err := e.Evaluate(context.Background(), "NIFTY")
	require.NoError(t, err)
	require.True(t, d.Emitted())
	assert.Equal(t, models.SideSell, d.Advice.Side)
}

func TestSentimentStrategyNeutralBand(t *testing.T) {
	e, store, _ := newEngine(t, StrategySentiment)
	saveSentiment(t, store, "NIFTY", 50, 90)

	d, err := e.Evaluate(context.Background(), "NIFTY")
	require.NoError(t, err)
	assert.False(t, d.Emitted())
	assert.Equal(t, risk.CodeSentimentInconclusive, d.Code)
}

func TestSentimentStrategyLowConfidence(t *testing.T) {
	e, store, _ := newEngine(t, StrategySentiment)
	saveSentiment(t, store, "NIFTY", 95, 10)

	d, err := e.Evaluate(context.Background(), "NIFTY")
	require.NoError(t, err)
	assert.False(t, d.Emitted())
	assert.Equal(t, risk.CodeConfLow, d.Code)
}

func TestCompositeStrategyEmitsBuy(t *testing.T) {
	e, store, _ := newEngine(t, StrategyComposite)
	saveRegime(t, store, "NIFTY", models.RegimeBullish, 0.8, 1.2)
	saveSentiment(t, store, "NIFTY", 80, 100)

	// raw = 0.40*0.8 + 0.35*1.0 + 0.25*0.6 = 0.82
	d, err := e.Evaluate(context.Background(), "NIFTY")
	require.NoError(t, err)
	require.True(t, d.Emitted(), "got %s: %s", d.Code, d.Reason)
	assert.Equal(t, models.SideBuy, d.Advice.Side)
	assert.InDelta(t, 82, d.Advice.Confidence, 0.5)
}

func TestCompositeStrategyEmitsSell(t *testing.T) {
	e, store, _ := newEngine(t, StrategyComposite)
	saveRegime(t, store, "NIFTY", models.RegimeBearish, 0.8, -1.2)
	saveSentiment(t, store, "NIFTY", 20, 100)

	d, err := e.Evaluate(context.Background(), "NIFTY")
	require.NoError(t, err)
	require.True(t, d.Emitted())
	assert.Equal(t, models.SideSell, d.Advice.Side)
}

func TestCompositeStrategyAbstainsBelowThreshold(t *testing.T) {
	e, store, _ := newEngine(t, StrategyComposite)
	saveRegime(t, store, "NIFTY", models.RegimeRange, 0, 0.1)
	saveSentiment(t, store, "NIFTY", 52, 50)

	d, err := e.Evaluate(context.Background(), "NIFTY")
	require.NoError(t, err)
	assert.False(t, d.Emitted())
	assert.Equal(t, risk.CodeScoreLow, d.Code)
}

func TestEvaluateDedupesPendingWindow(t *testing.T) {
	e, store, _ := newEngine(t, StrategySentiment)
	saveSentiment(t, store, "NIFTY", 80, 90)

	first, err := e.Evaluate(context.Background(), "NIFTY")
	require.NoError(t, err)
	require.True(t, first.Emitted())

	second, err := e.Evaluate(context.Background(), "NIFTY")
	require.NoError(t, err)
	assert.False(t, second.Emitted())
	assert.Equal(t, risk.CodeDuplicate, second.Code)

	advices, err := store.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, advices, 1, "only one advice per side per window")
}

func TestEvaluateBlockedWhenCircuitTripped(t *testing.T) {
	e, store, breaker := newEngine(t, StrategySentiment)
	saveSentiment(t, store, "NIFTY", 80, 90)

	breaker.Trip(context.Background(), "halt")
	d, err := e.Evaluate(context.Background(), "NIFTY")
	require.NoError(t, err)
	assert.False(t, d.Emitted())
	assert.Equal(t, risk.CodeCircuitTripped, d.Code)
}
