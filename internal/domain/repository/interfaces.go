package repository

import (
	"context"
	"time"

	"RiskGate/internal/domain/models"
)

// BarSource reads recent price bars for a symbol, oldest-first.
type BarSource interface {
	ListRecentBars(ctx context.Context, symbol string, count int) ([]models.PriceBar, error)
}

// AdviceStore persists advices. Transitions append rows; the latest row per
// id is authoritative.
type AdviceStore interface {
	Save(ctx context.Context, a models.Advice) error
	Get(ctx context.Context, id string) (models.Advice, error)
	ListRecent(ctx context.Context, limit int) ([]models.Advice, error)
}

// RiskStore persists risk limits, budget snapshots and circuit states.
// Reads return the latest row by timestamp.
type RiskStore interface {
	Limits(ctx context.Context) (models.RiskLimitsConfig, error)
	SaveLimits(ctx context.Context, l models.RiskLimitsConfig) error
	LatestBudget(ctx context.Context) (models.RiskBudgetSnapshot, error)
	SaveBudget(ctx context.Context, s models.RiskBudgetSnapshot) error
	AppendCircuitState(ctx context.Context, s models.CircuitState) error
}

// SnapshotStore persists regime and sentiment snapshots (append-only).
type SnapshotStore interface {
	SaveRegime(ctx context.Context, s models.RegimeSnapshot) error
	LatestRegime(ctx context.Context, symbol string) (models.RegimeSnapshot, error)
	SaveSentiment(ctx context.Context, s models.SentimentSnapshot) error
	LatestSentiment(ctx context.Context, symbol string) (models.SentimentSnapshot, error)
}

// PositionSource reads currently open positions for exposure aggregation.
type PositionSource interface {
	OpenPositions(ctx context.Context) ([]models.Position, error)
}

// Metrics records operational counters and latencies.
type Metrics interface {
	RecordAdmission(code string)
	RecordAdvice(side, strategy string)
	RecordCircuitState(tripped bool)
	RecordRefreshLatency(task string, seconds float64)
	RecordProviderFetch(provider, result string)
	RecordError(kind string)
}

// Clock abstracts time for deterministic tests.
type Clock func() time.Time
