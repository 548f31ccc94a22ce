package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RiskGate/internal/domain/models"
	domsvc "RiskGate/internal/domain/service"
	internalrepo "RiskGate/internal/repository"
	"RiskGate/internal/services/sentiment"
)

type failingProvider struct{ name string }

func (p *failingProvider) Name() string    { return p.name }
func (p *failingProvider) Weight() float64 { return 1 }
func (p *failingProvider) FetchScore(context.Context) (float64, bool, error) {
	return 0, false, errors.New("feed down")
}

func TestDecayedAverageHalfLife(t *testing.T) {
	a := NewSentimentAggregator(SentimentConfig{WindowMinutes: 60, HalfLifeMinutes: 20, MaxSamples: 100}, nil, nil, nil, nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	a.SetClock(func() time.Time { return now })

	a.AddSample(models.SentimentSample{Score: 90, Weight: 1, Source: "x", Timestamp: base})

	// fresh sample carries its full score
	assert.InDelta(t, 90, a.DecayedAverage(), 0.01)

	// one half-life later it has decayed to half
	now = base.Add(20 * time.Minute)
	assert.InDelta(t, 45, a.DecayedAverage(), 0.01)

	// two half-lives: a quarter
	now = base.Add(40 * time.Minute)
	assert.InDelta(t, 22.5, a.DecayedAverage(), 0.01)
}

func TestSamplePruneByWindow(t *testing.T) {
	a := NewSentimentAggregator(SentimentConfig{WindowMinutes: 60, HalfLifeMinutes: 20, MaxSamples: 100}, nil, nil, nil, nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	a.SetClock(func() time.Time { return now })

	a.AddSample(models.SentimentSample{Score: 70, Timestamp: base})
	now = base.Add(30 * time.Minute)
	a.AddSample(models.SentimentSample{Score: 80, Timestamp: now})
	assert.Equal(t, 2, a.SampleCount())

	// first sample ages out of the 60 minute window
	now = base.Add(65 * time.Minute)
	a.DecayedAverage()
	assert.Equal(t, 1, a.SampleCount())
}

func TestSampleCapEnforced(t *testing.T) {
	a := NewSentimentAggregator(SentimentConfig{WindowMinutes: 60, HalfLifeMinutes: 20, MaxSamples: 10}, nil, nil, nil, nil)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a.SetClock(func() time.Time { return base })

	for i := 0; i < 25; i++ {
		a.AddSample(models.SentimentSample{Score: float64(i), Timestamp: base})
	}
	assert.Equal(t, 10, a.SampleCount())
}

func TestRefreshBlendsProviders(t *testing.T) {
	store := internalrepo.NewMemoryStore()
	a := NewSentimentAggregator(
		SentimentConfig{WindowMinutes: 60, HalfLifeMinutes: 20, MaxSamples: 100},
		[]domsvc.SentimentProvider{
			sentiment.NewStaticProvider("bullish-desk", 1, 80),
			sentiment.NewStaticProvider("bearish-desk", 3, 60),
		},
		store, nil, nil,
	)

	snap, err := a.Refresh(context.Background(), "NIFTY", 0)
	require.NoError(t, err)

	// multiSource = (80*1 + 60*3) / 4 = 65; price = 50 + 20*0 = 50
	// blended = 0.6*65 + 0.4*50 = 59; fresh decayed avg = (80+60)/2 = 70
	// score = 0.7*59 + 0.3*70 = 62.3
	assert.InDelta(t, 62.3, snap.Score, 0.01)
	assert.Equal(t, "NIFTY", snap.Symbol)
	assert.Greater(t, snap.Confidence, 0.0)

	persisted, err := store.LatestSentiment(context.Background(), "NIFTY")
	require.NoError(t, err)
	assert.InDelta(t, snap.Score, persisted.Score, 0.001)
}

func TestRefreshSkipsFailingProviders(t *testing.T) {
	store := internalrepo.NewMemoryStore()
	a := NewSentimentAggregator(
		SentimentConfig{WindowMinutes: 60, HalfLifeMinutes: 20, MaxSamples: 100},
		[]domsvc.SentimentProvider{
			&failingProvider{name: "down-feed"},
			sentiment.NewStaticProvider("desk", 1, 80),
		},
		store, nil, nil,
	)

	snap, err := a.Refresh(context.Background(), "NIFTY", 0)
	require.NoError(t, err)

	// only the healthy provider contributes: multiSource = 80
	// blended = 0.6*80 + 0.4*50 = 68; decayed avg = 80
	// score = 0.7*68 + 0.3*80 = 71.6
	assert.InDelta(t, 71.6, snap.Score, 0.01)
}

func TestRefreshAllProvidersDown(t *testing.T) {
	a := NewSentimentAggregator(
		SentimentConfig{WindowMinutes: 60, HalfLifeMinutes: 20, MaxSamples: 100},
		[]domsvc.SentimentProvider{&failingProvider{name: "a"}, &failingProvider{name: "b"}},
		internalrepo.NewMemoryStore(), nil, nil,
	)

	// momentum carries the reading when nothing external answers
	snap, err := a.Refresh(context.Background(), "NIFTY", 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 70, snap.Score, 0.01) // 50 + 20*1
	assert.Equal(t, 0.0, snap.Confidence)
}
