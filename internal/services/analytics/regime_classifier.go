package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"RiskGate/internal/domain/models"
	domsvc "RiskGate/internal/domain/service"
	"RiskGate/internal/services/features"
)

var (
	// ErrNotEnoughCandles is returned when the bar window is too short for a
	// statistically meaningful classification.
	ErrNotEnoughCandles = errors.New("not enough candles")
	// ErrNotEnoughReturns is returned when the return series is shorter than
	// the z-score window.
	ErrNotEnoughReturns = errors.New("not enough returns")
)

const atrWindow = 14

// Config holds the classification thresholds. All values are policy, not
// hardcoded behavior.
type Config struct {
	LookbackCandles int     // bars requested per cycle
	ZScoreWindow    int     // trailing returns for mean/stddev
	ZUp             float64 // z at or above which trend is bullish
	ZDown           float64 // z at or below which trend is bearish
	RVLow           float64 // realized-vol floor for trend regimes
	RVHigh          float64 // realized-vol ceiling before HIGH_VOLATILITY
	ATRPctRange     float64 // atr% below which the market is range-bound
}

// DefaultConfig mirrors the tuned production thresholds.
func DefaultConfig() Config {
	return Config{
		LookbackCandles: 120,
		ZScoreWindow:    60,
		ZUp:             1.0,
		ZDown:           -1.0,
		RVLow:           0.0005,
		RVHigh:          0.02,
		ATRPctRange:     0.002,
	}
}

// Classifier computes a momentum z-score over a bar window and classifies
// the market regime with a strength value.
type Classifier struct {
	cfg Config
	now func() time.Time
}

func NewClassifier(cfg Config) *Classifier {
	if cfg.LookbackCandles <= 0 {
		cfg.LookbackCandles = 120
	}
	if cfg.ZScoreWindow <= 0 {
		cfg.ZScoreWindow = 60
	}
	return &Classifier{cfg: cfg, now: time.Now}
}

// SetClock injects a clock for deterministic tests.
func (c *Classifier) SetClock(now func() time.Time) { c.now = now }

// MinBars is the smallest usable window: max(30, zscoreWindow+2).
func (c *Classifier) MinBars() int {
	if n := c.cfg.ZScoreWindow + 2; n > 30 {
		return n
	}
	return 30
}

// Classify runs the classification over bars ordered oldest-to-newest. On
// insufficient data it fails explicitly; no partial snapshot is produced.
func (c *Classifier) Classify(_ context.Context, symbol string, bars []models.PriceBar) (models.RegimeSnapshot, error) {
	if len(bars) < c.MinBars() {
		return models.RegimeSnapshot{}, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughCandles, len(bars), c.MinBars())
	}

	rets := features.ComputeSimpleReturns(bars)
	if len(rets) < c.cfg.ZScoreWindow {
		return models.RegimeSnapshot{}, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughReturns, len(rets), c.cfg.ZScoreWindow)
	}

	window := rets[len(rets)-c.cfg.ZScoreWindow:]
	mean, sigma := features.MeanStd(window)
	z := features.ZScore(rets[len(rets)-1], mean, sigma)

	lastClose := bars[len(bars)-1].Close
	atrPct := 0.0
	if lastClose > 0 {
		atrPct = features.AvgTrueRange(bars, atrWindow) / lastClose
	}

	regime := c.classify(z, sigma, atrPct)

	return models.RegimeSnapshot{
		Symbol:    symbol,
		AsOf:      c.now().UTC(),
		Regime:    regime,
		Strength:  math.Min(1.0, math.Abs(z)/2.0),
		MomentumZ: z,
		ATRPct:    atrPct,
		Sigma:     sigma,
	}, nil
}

// classify applies the rules in priority order: trend first, then range,
// then volatility bands.
func (c *Classifier) classify(z, realizedVol, atrPct float64) models.Regime {
	switch {
	case z >= c.cfg.ZUp && realizedVol >= c.cfg.RVLow:
		return models.RegimeBullish
	case z <= c.cfg.ZDown && realizedVol >= c.cfg.RVLow:
		return models.RegimeBearish
	case atrPct < c.cfg.ATRPctRange:
		return models.RegimeRange
	case realizedVol > c.cfg.RVHigh:
		return models.RegimeHighVol
	case realizedVol < c.cfg.RVLow:
		return models.RegimeLowVol
	default:
		return models.RegimeUnknown
	}
}

var _ domsvc.RegimeClassifier = (*Classifier)(nil)
