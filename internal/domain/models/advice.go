package models

import (
	"time"

	"github.com/google/uuid"
)

// Side is the directional leg of an advice or order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// AdviceStatus tracks the lifecycle of an advice. Advices are never
// deleted; status transitions append new rows.
type AdviceStatus string

const (
	AdvicePending   AdviceStatus = "PENDING"
	AdviceExecuted  AdviceStatus = "EXECUTED"
	AdviceDismissed AdviceStatus = "DISMISSED"
	AdviceExpired   AdviceStatus = "EXPIRED"
)

// Advice is a system-generated, not-yet-executed trade recommendation.
type Advice struct {
	ID            string
	CreatedAt     time.Time
	Symbol        string
	Side          Side
	Confidence    float64 // [0,100]
	Status        AdviceStatus
	Reason        string
	Strategy      string
	BrokerOrderID string // set on execution
	Quantity      int
	LotSize       int
}

// NewAdvice creates a PENDING advice with a fresh id.
func NewAdvice(symbol string, side Side, confidence float64, strategy, reason string, qty, lotSize int) Advice {
	return Advice{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		Symbol:     symbol,
		Side:       side,
		Confidence: confidence,
		Status:     AdvicePending,
		Reason:     reason,
		Strategy:   strategy,
		Quantity:   qty,
		LotSize:    lotSize,
	}
}
