package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskGate/internal/domain/models"
	internalrepo "RiskGate/internal/repository"
	"RiskGate/internal/services/analytics"
)

func seedRisingBars(store *internalrepo.MemoryStore, symbol string, n int) {
	base := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	price := 100.0
	bars := make([]models.PriceBar, n)
	for i := range bars {
		if i == n-1 {
			price *= 1.02
		} else if i > 0 {
			price *= 1.001
		}
		bars[i] = models.PriceBar{
			Symbol: symbol, OpenTime: base.Add(time.Duration(i) * time.Minute),
			Open: price, High: price * 1.01, Low: price * 0.99, Close: price,
		}
	}
	store.AppendBars(symbol, bars...)
}

func TestRegimeRefreshPersistsSnapshot(t *testing.T) {
	store := internalrepo.NewMemoryStore()
	seedRisingBars(store, "NIFTY", 150)

	r := NewRegimeRefresher(store, analytics.NewClassifier(analytics.DefaultConfig()), store, 150, nil)
	snap, err := r.Refresh(context.Background(), "NIFTY")
	require.NoError(t, err)
	assert.Equal(t, models.RegimeBullish, snap.Regime)

	persisted, err := store.LatestRegime(context.Background(), "NIFTY")
	require.NoError(t, err)
	assert.Equal(t, snap.Regime, persisted.Regime)
}

func TestRegimeRefreshLeavesPreviousOnFailure(t *testing.T) {
	store := internalrepo.NewMemoryStore()
	require.NoError(t, store.SaveRegime(context.Background(), models.RegimeSnapshot{
		Symbol: "NIFTY", AsOf: time.Now(), Regime: models.RegimeBearish,
	}))
	// only a handful of bars: classification must fail, snapshot untouched
	seedRisingBars(store, "NIFTY", 10)

	r := NewRegimeRefresher(store, analytics.NewClassifier(analytics.DefaultConfig()), store, 150, nil)
	_, err := r.Refresh(context.Background(), "NIFTY")
	require.Error(t, err)
	assert.True(t, errors.Is(err, analytics.ErrNotEnoughCandles))

	prev, err := store.LatestRegime(context.Background(), "NIFTY")
	require.NoError(t, err)
	assert.Equal(t, models.RegimeBearish, prev.Regime)
}

func TestRefreshAllContinuesPastFailures(t *testing.T) {
	store := internalrepo.NewMemoryStore()
	seedRisingBars(store, "GOOD", 150)
	// "BAD" has no bars at all

	r := NewRegimeRefresher(store, analytics.NewClassifier(analytics.DefaultConfig()), store, 150, nil)
	err := r.RefreshAll(context.Background(), []string{"BAD", "GOOD"})
	require.Error(t, err, "first failure is reported")

	// the healthy symbol still refreshed
	_, err = store.LatestRegime(context.Background(), "GOOD")
	assert.NoError(t, err)
}
