package models

import "time"

// PriceBar represents a single OHLCV bar for an instrument. Bars are
// immutable once written; the core only ever reads them.
type PriceBar struct {
	Symbol   string
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Range returns the high-low spread of the bar.
func (b PriceBar) Range() float64 {
	return b.High - b.Low
}

// MomentumSample is a derived value computed on demand from a bar window.
// It is never persisted on its own.
type MomentumSample struct {
	ReturnPct float64
	Timestamp time.Time
}
