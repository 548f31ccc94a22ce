package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"RiskGate/internal/domain/models"
	domrepo "RiskGate/internal/domain/repository"
	"RiskGate/internal/risk"
	"RiskGate/internal/services/features"
	"RiskGate/pkg/cache"
	"RiskGate/pkg/logger"
)

// Strategy names. Selected by configuration.
const (
	StrategySentiment = "sentiment"
	StrategyComposite = "composite"
)

// DecisionConfig holds fusion weights and emission thresholds. These are
// tuned policy values; the defaults must be preserved for behavioral
// parity.
type DecisionConfig struct {
	Strategy        string
	MinConfidence   float64 // sentiment strategy: abstain below this
	EntryLongScore  float64 // sentiment strategy: BUY at or above
	EntryShortScore float64 // sentiment strategy: SELL at or below
	WeightRegime    float64 // composite: 0.40
	WeightMomentum  float64 // composite: 0.35
	WeightSentiment float64 // composite: 0.25
	EmitThreshold   float64 // composite: abstain below |raw| 0.35
	Quantity        int
	LotSize         int
	DedupeWindow    time.Duration
}

// Decision is the outcome of one evaluation: either an emitted advice or
// an abstention with its reason code.
type Decision struct {
	Code   risk.Code
	Reason string
	Advice *models.Advice

	pending emitted
}

// Emitted reports whether an advice was produced.
func (d Decision) Emitted() bool { return d.Advice != nil }

// DecisionEngine fuses regime, momentum and sentiment snapshots into a
// directional score and either abstains or emits a PENDING advice.
type DecisionEngine struct {
	cfg       DecisionConfig
	snapshots domrepo.SnapshotStore
	advices   domrepo.AdviceStore
	breaker   *risk.CircuitBreaker
	fast      cache.Service
	events    domrepo.EventSink
	mx        domrepo.Metrics
	l         *logger.Logger
}

func NewDecisionEngine(cfg DecisionConfig, snapshots domrepo.SnapshotStore, advices domrepo.AdviceStore, breaker *risk.CircuitBreaker, fast cache.Service, events domrepo.EventSink, mx domrepo.Metrics, l *logger.Logger) *DecisionEngine {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyComposite
	}
	if cfg.DedupeWindow <= 0 {
		cfg.DedupeWindow = 60 * time.Second
	}
	return &DecisionEngine{
		cfg:       cfg,
		snapshots: snapshots,
		advices:   advices,
		breaker:   breaker,
		fast:      fast,
		events:    events,
		mx:        mx,
		l:         l,
	}
}

// Evaluate runs the configured strategy for one symbol. Abstentions are
// deliberate non-emissions, reported with their code, never as errors.
func (e *DecisionEngine) Evaluate(ctx context.Context, symbol string) (Decision, error) {
	if e.breaker != nil && e.breaker.Tripped() {
		return Decision{Code: risk.CodeCircuitTripped, Reason: "circuit breaker tripped"}, nil
	}

	sent, err := e.snapshots.LatestSentiment(ctx, symbol)
	if err != nil {
		return Decision{}, fmt.Errorf("latest sentiment: %w", err)
	}

	var side models.Side
	var confidence float64
	var reason string

	switch e.cfg.Strategy {
	case StrategySentiment:
		d, done := e.sentimentOnly(sent)
		if done {
			return d, nil
		}
		side, confidence, reason = d.sideConf()
	default:
		regime, err := e.snapshots.LatestRegime(ctx, symbol)
		if err != nil {
			return Decision{}, fmt.Errorf("latest regime: %w", err)
		}
		d, done := e.composite(regime, sent)
		if done {
			return d, nil
		}
		side, confidence, reason = d.sideConf()
	}

	return e.emit(ctx, symbol, side, confidence, reason)
}

// emitted is an internal carrier for a would-be emission.
type emitted struct {
	side       models.Side
	confidence float64
	reason     string
}

func (d Decision) sideConf() (models.Side, float64, string) {
	return d.pending.side, d.pending.confidence, d.pending.reason
}

// sentimentOnly implements the score-band strategy: BUY at or above the
// long entry, SELL at or below the short entry, abstain otherwise.
func (e *DecisionEngine) sentimentOnly(s models.SentimentSnapshot) (Decision, bool) {
	if s.Confidence < e.cfg.MinConfidence {
		return Decision{
			Code:   risk.CodeConfLow,
			Reason: fmt.Sprintf("confidence %.1f below %.1f", s.Confidence, e.cfg.MinConfidence),
		}, true
	}
	switch {
	case s.Score >= e.cfg.EntryLongScore:
		return Decision{pending: emitted{
			side:       models.SideBuy,
			confidence: s.Confidence,
			reason:     fmt.Sprintf("sentiment %.1f >= %.1f", s.Score, e.cfg.EntryLongScore),
		}}, false
	case s.Score <= e.cfg.EntryShortScore:
		return Decision{pending: emitted{
			side:       models.SideSell,
			confidence: s.Confidence,
			reason:     fmt.Sprintf("sentiment %.1f <= %.1f", s.Score, e.cfg.EntryShortScore),
		}}, false
	default:
		return Decision{
			Code:   risk.CodeSentimentInconclusive,
			Reason: fmt.Sprintf("sentiment %.1f inside neutral band", s.Score),
		}, true
	}
}

// composite fuses R (signed regime strength), M (clipped momentum z) and S
// (centered sentiment scaled by confidence) into raw = wR·R + wM·M + wS·S.
func (e *DecisionEngine) composite(r models.RegimeSnapshot, s models.SentimentSnapshot) (Decision, bool) {
	R := r.Regime.Direction() * r.Strength
	M := features.Clip(r.MomentumZ, -1, 1)
	S := ((s.Score - 50) / 50) * (s.Confidence / 100)

	raw := e.cfg.WeightRegime*R + e.cfg.WeightMomentum*M + e.cfg.WeightSentiment*S

	if math.Abs(raw) < e.cfg.EmitThreshold {
		return Decision{
			Code:   risk.CodeScoreLow,
			Reason: fmt.Sprintf("composite %.3f below threshold %.2f", raw, e.cfg.EmitThreshold),
		}, true
	}

	side := models.SideBuy
	if raw < 0 {
		side = models.SideSell
	}
	return Decision{pending: emitted{
		side:       side,
		confidence: features.Clip(math.Abs(raw)*100, 0, 100),
		reason:     fmt.Sprintf("composite %.3f (R=%.2f M=%.2f S=%.2f)", raw, R, M, S),
	}}, false
}

func (e *DecisionEngine) emit(ctx context.Context, symbol string, side models.Side, confidence float64, reason string) (Decision, error) {
	// one PENDING advice per (instrument, side) per window; same atomic
	// set-if-absent mechanism as the admission dedupe, separate key space
	// so emitting never consumes the execution window
	key := fmt.Sprintf("advice:pending:%s:%s", symbol, side)
	a := models.NewAdvice(symbol, side, confidence, e.cfg.Strategy, reason, e.cfg.Quantity, e.cfg.LotSize)

	claimed, err := e.fast.SetIfAbsent(ctx, key, a.ID, e.cfg.DedupeWindow)
	if err != nil {
		return Decision{}, fmt.Errorf("advice dedupe: %w", err)
	}
	if !claimed {
		return Decision{
			Code:   risk.CodeDuplicate,
			Reason: fmt.Sprintf("pending advice window active for %s %s", symbol, side),
		}, nil
	}

	if err := e.advices.Save(ctx, a); err != nil {
		return Decision{}, fmt.Errorf("save advice: %w", err)
	}

	if e.mx != nil {
		e.mx.RecordAdvice(string(side), e.cfg.Strategy)
	}
	if e.l != nil {
		e.l.Info("advice emitted",
			logger.String("id", a.ID),
			logger.String("symbol", symbol),
			logger.String("side", string(side)),
			logger.Float64("confidence", confidence),
			logger.String("reason", reason),
		)
	}
	if e.events != nil {
		if err := e.events.Publish(ctx, domrepo.TopicAdviceNew, a); err != nil && e.mx != nil {
			e.mx.RecordError("advice_publish")
		}
	}

	return Decision{Code: risk.CodeOK, Reason: reason, Advice: &a}, nil
}
