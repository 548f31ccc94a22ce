package features

import (
	"math"

	"RiskGate/internal/domain/models"
)

// ComputeSimpleReturns computes r_t = (C_t - C_{t-1}) / C_{t-1} for
// consecutive bars. It returns a slice of length len(bars)-1, or nil if
// insufficient data.
func ComputeSimpleReturns(bars []models.PriceBar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		cur := bars[i].Close
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (cur-prev)/prev)
	}
	return out
}

// MeanStd computes the mean and population standard deviation of xs.
func MeanStd(xs []float64) (mean, std float64) {
	n := float64(len(xs))
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	mean = sum / n
	sum2 := 0.0
	for _, x := range xs {
		d := x - mean
		sum2 += d * d
	}
	return mean, math.Sqrt(sum2 / n)
}

// ZScore standardizes x against the trailing window's mean and stddev.
// Returns 0 when the window is degenerate (sigma ~ 0).
func ZScore(x, mean, std float64) float64 {
	if std < 1e-12 {
		return 0
	}
	return (x - mean) / std
}

// AvgTrueRange computes the mean high-low range over the last window bars.
// Returns 0 if fewer bars are available than requested.
func AvgTrueRange(bars []models.PriceBar, window int) float64 {
	if window <= 0 || len(bars) < window {
		return 0
	}
	sum := 0.0
	for i := len(bars) - window; i < len(bars); i++ {
		sum += bars[i].Range()
	}
	return sum / float64(window)
}

// Clip bounds x to [lo, hi].
func Clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
