package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"RiskGate/internal/domain/models"
	"RiskGate/pkg/logger"
)

// PaperBroker is an in-process broker that accepts every order and hands
// back a synthetic order id. It stands in for a live gateway in development
// and tests; the admission chain treats it exactly like a real one.
type PaperBroker struct {
	mu     sync.Mutex
	orders map[string]models.OrderDraft
	l      *logger.Logger

	// FailNext, when set, makes the next PlaceOrder return an error once.
	FailNext bool
}

func NewPaperBroker(l *logger.Logger) *PaperBroker {
	return &PaperBroker{
		orders: make(map[string]models.OrderDraft),
		l:      l,
	}
}

func (b *PaperBroker) PlaceOrder(_ context.Context, draft models.OrderDraft) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailNext {
		b.FailNext = false
		return "", fmt.Errorf("paper broker: injected failure")
	}
	id := uuid.NewString()
	b.orders[id] = draft
	if b.l != nil {
		b.l.Info("paper order accepted",
			logger.String("order_id", id),
			logger.String("symbol", draft.Symbol),
			logger.String("side", string(draft.Side)),
			logger.Int("quantity", draft.Quantity),
		)
	}
	return id, nil
}

func (b *PaperBroker) CancelOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[orderID]; !ok {
		return fmt.Errorf("paper broker: order %s not found", orderID)
	}
	delete(b.orders, orderID)
	return nil
}

// Placed returns the number of orders currently held.
func (b *PaperBroker) Placed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.orders)
}
