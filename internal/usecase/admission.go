package usecase

import (
	"context"
	"fmt"
	"time"

	"RiskGate/internal/domain/models"
	domrepo "RiskGate/internal/domain/repository"
	domsvc "RiskGate/internal/domain/service"
	"RiskGate/internal/risk"
	"RiskGate/pkg/cache"
	"RiskGate/pkg/logger"
)

const throttleWindow = 60 * time.Second

// OrderAdmissionGate validates an order draft derived from an advice
// against the ordered guard chain before it may reach the broker:
// dedupe, circuit/budget, lots cap, throttle. The chain short-circuits on
// the first failure, each with a distinct code. Checks are in-memory and
// non-blocking; the only network call is the final broker placement.
type OrderAdmissionGate struct {
	advices   domrepo.AdviceStore
	riskStore domrepo.RiskStore
	positions domrepo.PositionSource
	throttle  *risk.ThrottleGuard
	breaker   *risk.CircuitBreaker
	fast      cache.Service
	broker    domsvc.BrokerGateway
	events    domrepo.EventSink
	mx        domrepo.Metrics
	l         *logger.Logger

	dedupeWindow time.Duration
}

func NewOrderAdmissionGate(
	advices domrepo.AdviceStore,
	riskStore domrepo.RiskStore,
	positions domrepo.PositionSource,
	throttle *risk.ThrottleGuard,
	breaker *risk.CircuitBreaker,
	fast cache.Service,
	broker domsvc.BrokerGateway,
	events domrepo.EventSink,
	mx domrepo.Metrics,
	l *logger.Logger,
	dedupeWindow time.Duration,
) *OrderAdmissionGate {
	if dedupeWindow <= 0 {
		dedupeWindow = 60 * time.Second
	}
	return &OrderAdmissionGate{
		advices:      advices,
		riskStore:    riskStore,
		positions:    positions,
		throttle:     throttle,
		breaker:      breaker,
		fast:         fast,
		broker:       broker,
		events:       events,
		mx:           mx,
		l:            l,
		dedupeWindow: dedupeWindow,
	}
}

// ExecuteAdvice runs the full admission chain for a PENDING advice and, if
// every guard passes, forwards the draft to the broker and transitions the
// advice to EXECUTED. The returned Result always carries a stable code.
func (g *OrderAdmissionGate) ExecuteAdvice(ctx context.Context, adviceID string) risk.Result {
	res := g.execute(ctx, adviceID)
	if g.mx != nil {
		g.mx.RecordAdmission(string(res.Code))
	}
	if !res.OK() && g.l != nil {
		g.l.Info("order rejected",
			logger.String("advice_id", adviceID),
			logger.String("code", string(res.Code)),
			logger.String("reason", res.Reason),
		)
	}
	return res
}

func (g *OrderAdmissionGate) execute(ctx context.Context, adviceID string) risk.Result {
	a, err := g.advices.Get(ctx, adviceID)
	if err != nil {
		return risk.Reject(risk.CodeInfraError, fmt.Sprintf("load advice: %v", err))
	}
	if a.Status != models.AdvicePending {
		return risk.Reject(risk.CodeDuplicate, fmt.Sprintf("advice is %s, not PENDING", a.Status))
	}

	draft := models.DraftFromAdvice(a)

	// 1. dedupe: atomic claim of the (instrument, side) execution window.
	// Of two concurrent executions exactly one wins the claim.
	dedupeKey := fmt.Sprintf("exec:%s:%s", draft.Symbol, draft.Side)
	claimed, err := g.fast.SetIfAbsent(ctx, dedupeKey, a.ID, g.dedupeWindow)
	if err != nil {
		// fast state unreachable: fail closed, never open
		return risk.Reject(risk.CodeInfraError, fmt.Sprintf("dedupe state: %v", err))
	}
	if !claimed {
		return risk.Reject(risk.CodeDuplicate, fmt.Sprintf("execution window active for %s %s", draft.Symbol, draft.Side))
	}
	// a rejected attempt does not hold the window; only a placed order does
	release := func() { _ = g.fast.Delete(ctx, dedupeKey) }

	// 2. circuit breaker / daily loss budget
	if g.breaker.Tripped() {
		release()
		return risk.Reject(risk.CodeCircuitTripped, "circuit breaker tripped")
	}
	budget, err := g.riskStore.LatestBudget(ctx)
	if err != nil {
		release()
		return risk.Reject(risk.CodeInfraError, fmt.Sprintf("read budget: %v", err))
	}
	if budget.Exhausted() {
		g.breaker.Trip(ctx, "daily loss budget exhausted")
		release()
		return risk.Reject(risk.CodeDailyLossCap, fmt.Sprintf("budget used %.2f of %.2f", budget.BudgetUsed, budget.BudgetTotal))
	}

	// limits are re-read on every check; operators may hot-swap them
	limits, err := g.riskStore.Limits(ctx)
	if err != nil {
		release()
		return risk.Reject(risk.CodeInfraError, fmt.Sprintf("read limits: %v", err))
	}

	// 3. lots cap against current open exposure
	positions, err := g.positions.OpenPositions(ctx)
	if err != nil {
		release()
		return risk.Reject(risk.CodeInfraError, fmt.Sprintf("read positions: %v", err))
	}
	used := risk.UsedLots(positions)
	if risk.ExceedsLotsCap(draft.Lots(), used, limits.LotsCap) {
		release()
		return risk.Reject(risk.CodeLotsCap, fmt.Sprintf("requested %d lots, used %d, cap %d", draft.Lots(), used, limits.LotsCap))
	}

	// 4. orders-per-minute throttle
	if limits.OrdersPerMinuteCap > 0 {
		if recent := g.throttle.CountRecent(throttleWindow); recent >= limits.OrdersPerMinuteCap {
			release()
			return risk.Reject(risk.CodeThrottled, fmt.Sprintf("%d orders in window, cap %d", recent, limits.OrdersPerMinuteCap))
		}
	}

	// all guards passed; the broker call is the only network hop
	orderID, err := g.broker.PlaceOrder(ctx, draft)
	if err != nil {
		release()
		// broker failures do not trip the circuit; that is budget-driven only
		return risk.Reject(risk.CodeInfraError, fmt.Sprintf("place order: %v", err))
	}

	// record after placement so rejected attempts are not penalized
	g.throttle.RecordAttempt()

	a.Status = models.AdviceExecuted
	a.BrokerOrderID = orderID
	if err := g.advices.Save(ctx, a); err != nil {
		// order is live; surface the persistence failure loudly but keep
		// the admission successful
		if g.mx != nil {
			g.mx.RecordError("advice_persist")
		}
		if g.l != nil {
			g.l.Error("advice transition persist failed",
				logger.String("advice_id", a.ID),
				logger.Error(err),
			)
		}
	}

	if g.l != nil {
		g.l.Info("order placed",
			logger.String("advice_id", a.ID),
			logger.String("symbol", draft.Symbol),
			logger.String("side", string(draft.Side)),
			logger.Int("quantity", draft.Quantity),
			logger.String("order_id", orderID),
		)
	}
	g.publish(ctx, domrepo.TopicAdviceUpdated, a)
	g.publish(ctx, domrepo.TopicOrderPlaced, map[string]interface{}{
		"advice_id": a.ID,
		"order_id":  orderID,
		"symbol":    draft.Symbol,
		"side":      draft.Side,
		"quantity":  draft.Quantity,
	})

	return risk.Accept(orderID)
}

// Dismiss transitions a PENDING advice to DISMISSED.
func (g *OrderAdmissionGate) Dismiss(ctx context.Context, adviceID, reason string) error {
	a, err := g.advices.Get(ctx, adviceID)
	if err != nil {
		return fmt.Errorf("load advice: %w", err)
	}
	if a.Status != models.AdvicePending {
		return fmt.Errorf("advice is %s, not PENDING", a.Status)
	}
	a.Status = models.AdviceDismissed
	a.Reason = reason
	if err := g.advices.Save(ctx, a); err != nil {
		return fmt.Errorf("save advice: %w", err)
	}
	g.publish(ctx, domrepo.TopicAdviceUpdated, a)
	return nil
}

// publish is fire-and-forget: a sink failure never fails the transition.
func (g *OrderAdmissionGate) publish(ctx context.Context, topic domrepo.Topic, payload interface{}) {
	if g.events == nil {
		return
	}
	if err := g.events.Publish(ctx, topic, payload); err != nil {
		if g.mx != nil {
			g.mx.RecordError("event_publish")
		}
	}
}
