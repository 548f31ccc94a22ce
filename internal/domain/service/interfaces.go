package service

import (
	"context"

	"RiskGate/internal/domain/models"
)

// SentimentProvider is one pluggable sentiment source. FetchScore returns
// (score, true) for an opinion in [0,100], or (0, false) when the source has
// no opinion. Errors and empty results are treated as "no opinion", never as
// a zero score.
type SentimentProvider interface {
	Name() string
	Weight() float64
	FetchScore(ctx context.Context) (float64, bool, error)
}

// BrokerGateway places orders with the external broker. Errors surface as
// the operation's failure but do not trip the circuit breaker.
type BrokerGateway interface {
	PlaceOrder(ctx context.Context, draft models.OrderDraft) (orderID string, err error)
	CancelOrder(ctx context.Context, orderID string) error
}

// RegimeClassifier produces a regime snapshot from a bar window.
type RegimeClassifier interface {
	Classify(ctx context.Context, symbol string, bars []models.PriceBar) (models.RegimeSnapshot, error)
}
