package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"RiskGate/internal/domain/models"
	domrepo "RiskGate/internal/domain/repository"
	domsvc "RiskGate/internal/domain/service"
	"RiskGate/internal/services/features"
	"RiskGate/pkg/logger"
)

// SentimentConfig holds the aggregation policy.
type SentimentConfig struct {
	WindowMinutes   int     // prune samples older than this
	HalfLifeMinutes float64 // exponential decay half-life
	MaxSamples      int     // hard cap on buffered samples
}

// SentimentAggregator combines weighted provider readings with exponential
// time decay into a single 0-100 score. It keeps a bounded, time-ordered
// sample buffer; newest samples append at the tail, expired ones are pruned
// from the head.
type SentimentAggregator struct {
	cfg       SentimentConfig
	providers []domsvc.SentimentProvider
	snapshots domrepo.SnapshotStore
	mx        domrepo.Metrics
	l         *logger.Logger
	now       func() time.Time

	mu      sync.Mutex
	samples []models.SentimentSample
}

func NewSentimentAggregator(cfg SentimentConfig, providers []domsvc.SentimentProvider, snapshots domrepo.SnapshotStore, mx domrepo.Metrics, l *logger.Logger) *SentimentAggregator {
	if cfg.WindowMinutes <= 0 {
		cfg.WindowMinutes = 60
	}
	if cfg.HalfLifeMinutes <= 0 {
		cfg.HalfLifeMinutes = 20
	}
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = 2000
	}
	return &SentimentAggregator{
		cfg:       cfg,
		providers: providers,
		snapshots: snapshots,
		mx:        mx,
		l:         l,
		now:       time.Now,
	}
}

// SetClock injects a clock for deterministic tests.
func (a *SentimentAggregator) SetClock(now func() time.Time) { a.now = now }

// AddSample appends a raw reading and prunes the buffer.
func (a *SentimentAggregator) AddSample(s models.SentimentSample) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = append(a.samples, s)
	a.pruneLocked(a.now())
}

// SampleCount returns the current buffer size.
func (a *SentimentAggregator) SampleCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.samples)
}

// pruneLocked drops samples past the window and enforces the hard cap.
func (a *SentimentAggregator) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Duration(a.cfg.WindowMinutes) * time.Minute)
	i := 0
	for i < len(a.samples) && a.samples[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		a.samples = a.samples[i:]
	}
	if len(a.samples) > a.cfg.MaxSamples {
		a.samples = a.samples[len(a.samples)-a.cfg.MaxSamples:]
	}
}

// DecayedAverage computes the decay-weighted historical score. Each
// sample's weight is 0.5^(ageMinutes/halfLife); the sum is normalized by
// sample count, so a lone aged sample decays toward zero rather than
// holding its original value.
func (a *SentimentAggregator) DecayedAverage() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	a.pruneLocked(now)
	if len(a.samples) == 0 {
		return 0
	}

	sum := 0.0
	for _, s := range a.samples {
		ageMin := now.Sub(s.Timestamp).Minutes()
		if ageMin < 0 {
			ageMin = 0
		}
		w := math.Pow(0.5, ageMin/a.cfg.HalfLifeMinutes)
		sum += s.Score * w
	}
	return features.Clip(sum/float64(len(a.samples)), 0, 100)
}

// Refresh polls every provider, folds the readings into the buffer, and
// produces a new snapshot blending three components: the multi-source
// weighted score, a price-momentum component (50 + 20z, clipped), and the
// decayed historical average. Providers that fail or return no opinion are
// skipped, never counted as zero.
func (a *SentimentAggregator) Refresh(ctx context.Context, symbol string, momentumZ float64) (models.SentimentSnapshot, error) {
	now := a.now()

	weightedSum := 0.0
	weightTotal := 0.0
	opinions := 0
	for _, p := range a.providers {
		score, ok, err := p.FetchScore(ctx)
		if err != nil {
			if a.mx != nil {
				a.mx.RecordProviderFetch(p.Name(), "error")
			}
			if a.l != nil {
				a.l.Debug("sentiment provider failed",
					logger.String("provider", p.Name()),
					logger.Error(err),
				)
			}
			continue
		}
		if !ok {
			if a.mx != nil {
				a.mx.RecordProviderFetch(p.Name(), "empty")
			}
			continue
		}
		if a.mx != nil {
			a.mx.RecordProviderFetch(p.Name(), "ok")
		}
		w := p.Weight()
		if w <= 0 {
			w = 1
		}
		weightedSum += score * w
		weightTotal += w
		opinions++

		a.AddSample(models.SentimentSample{
			Score:     score,
			Weight:    w,
			Source:    p.Name(),
			Timestamp: now,
		})
	}

	priceComponent := features.Clip(50+20*momentumZ, 0, 100)

	var blended float64
	if opinions > 0 {
		multiSource := weightedSum / weightTotal
		blended = 0.6*multiSource + 0.4*priceComponent
	} else {
		// nothing external to blend; momentum carries the reading
		blended = priceComponent
	}

	score := blended
	if a.SampleCount() > 0 {
		score = 0.7*blended + 0.3*a.DecayedAverage()
	}
	score = features.Clip(score, 0, 100)

	snap := models.SentimentSnapshot{
		Symbol:     symbol,
		AsOf:       now.UTC(),
		Score:      score,
		Confidence: a.confidence(opinions),
	}

	if a.snapshots != nil {
		if err := a.snapshots.SaveSentiment(ctx, snap); err != nil {
			return models.SentimentSnapshot{}, err
		}
	}
	return snap, nil
}

// confidence scales with provider coverage and buffer depth.
func (a *SentimentAggregator) confidence(opinions int) float64 {
	coverage := 0.0
	if len(a.providers) > 0 {
		coverage = float64(opinions) / float64(len(a.providers))
	}
	depth := math.Min(1, float64(a.SampleCount())/30.0)
	return features.Clip(100*(0.6*coverage+0.4*depth), 0, 100)
}
