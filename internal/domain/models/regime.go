package models

import "time"

// Regime classifies current market behavior for an instrument.
type Regime string

const (
	RegimeBullish Regime = "BULLISH"
	RegimeBearish Regime = "BEARISH"
	RegimeRange   Regime = "RANGE_BOUND"
	RegimeHighVol Regime = "HIGH_VOLATILITY"
	RegimeLowVol  Regime = "LOW_VOLATILITY"
	RegimeUnknown Regime = "UNKNOWN"
)

// Direction maps a regime onto a directional sign: +1 bullish, -1 bearish,
// 0 for everything else.
func (r Regime) Direction() float64 {
	switch r {
	case RegimeBullish:
		return 1
	case RegimeBearish:
		return -1
	default:
		return 0
	}
}

// RegimeSnapshot is the output of one classification cycle. Snapshots are
// append-only; the latest AsOf is authoritative.
type RegimeSnapshot struct {
	Symbol    string
	AsOf      time.Time
	Regime    Regime
	Strength  float64 // [0,1], min(1, |z|/2)
	MomentumZ float64
	ATRPct    float64
	Sigma     float64 // realized vol over the z-score window
}
