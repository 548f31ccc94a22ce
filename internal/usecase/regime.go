package usecase

import (
	"context"
	"fmt"

	"RiskGate/internal/domain/models"
	domrepo "RiskGate/internal/domain/repository"
	domsvc "RiskGate/internal/domain/service"
	"RiskGate/pkg/logger"
)

// RegimeRefresher runs one classification cycle per symbol: read the recent
// bar window, classify, persist the snapshot. A failed cycle (typically
// insufficient history) writes nothing, leaving the previous snapshot
// authoritative for downstream consumers.
type RegimeRefresher struct {
	bars       domrepo.BarSource
	classifier domsvc.RegimeClassifier
	snapshots  domrepo.SnapshotStore
	lookback   int
	l          *logger.Logger
}

func NewRegimeRefresher(bars domrepo.BarSource, classifier domsvc.RegimeClassifier, snapshots domrepo.SnapshotStore, lookback int, l *logger.Logger) *RegimeRefresher {
	if lookback <= 0 {
		lookback = 120
	}
	return &RegimeRefresher{
		bars:       bars,
		classifier: classifier,
		snapshots:  snapshots,
		lookback:   lookback,
		l:          l,
	}
}

// Refresh classifies one symbol and persists the result.
func (r *RegimeRefresher) Refresh(ctx context.Context, symbol string) (models.RegimeSnapshot, error) {
	bars, err := r.bars.ListRecentBars(ctx, symbol, r.lookback)
	if err != nil {
		return models.RegimeSnapshot{}, fmt.Errorf("list bars: %w", err)
	}

	snap, err := r.classifier.Classify(ctx, symbol, bars)
	if err != nil {
		return models.RegimeSnapshot{}, err
	}

	if err := r.snapshots.SaveRegime(ctx, snap); err != nil {
		return models.RegimeSnapshot{}, fmt.Errorf("save regime: %w", err)
	}

	if r.l != nil {
		r.l.Debug("regime refreshed",
			logger.String("symbol", symbol),
			logger.String("regime", string(snap.Regime)),
			logger.Float64("strength", snap.Strength),
			logger.Float64("z", snap.MomentumZ),
		)
	}
	return snap, nil
}

// RefreshAll runs Refresh for each symbol, continuing past per-symbol
// failures.
func (r *RegimeRefresher) RefreshAll(ctx context.Context, symbols []string) error {
	var firstErr error
	for _, sym := range symbols {
		if _, err := r.Refresh(ctx, sym); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", sym, err)
			}
		}
	}
	return firstErr
}
