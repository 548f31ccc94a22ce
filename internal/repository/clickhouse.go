package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"RiskGate/internal/domain/models"
	pkgch "RiskGate/pkg/clickhouse"
	applogger "RiskGate/pkg/logger"
)

// Schema holds the idempotent DDL for the ClickHouse-backed store. Advices
// and snapshots are append-only; reads take the latest row per key.
var Schema = []string{
	`CREATE DATABASE IF NOT EXISTS riskgate`,
	`CREATE TABLE IF NOT EXISTS riskgate.bars (
        symbol    LowCardinality(String),
        open_time DateTime64(3, 'UTC'),
        open      Float64,
        high      Float64,
        low       Float64,
        close     Float64,
        vol       Float64
    ) ENGINE = ReplacingMergeTree()
    ORDER BY (symbol, open_time)`,
	`CREATE TABLE IF NOT EXISTS riskgate.advices (
        id         String,
        created_at DateTime64(3, 'UTC'),
        updated_at DateTime64(3, 'UTC'),
        symbol     LowCardinality(String),
        side       LowCardinality(String),
        confidence Float64,
        status     LowCardinality(String),
        reason     String,
        strategy   LowCardinality(String),
        order_id   String,
        quantity   Int64,
        lot_size   Int64
    ) ENGINE = ReplacingMergeTree(updated_at)
    ORDER BY id`,
	`CREATE TABLE IF NOT EXISTS riskgate.regime_snapshots (
        symbol     LowCardinality(String),
        as_of      DateTime64(3, 'UTC'),
        regime     LowCardinality(String),
        strength   Float64,
        momentum_z Float64,
        atr_pct    Float64,
        sigma      Float64
    ) ENGINE = MergeTree()
    ORDER BY (symbol, as_of)`,
	`CREATE TABLE IF NOT EXISTS riskgate.sentiment_snapshots (
        symbol     LowCardinality(String),
        as_of      DateTime64(3, 'UTC'),
        score      Float64,
        confidence Float64
    ) ENGINE = MergeTree()
    ORDER BY (symbol, as_of)`,
	`CREATE TABLE IF NOT EXISTS riskgate.risk_budgets (
        as_of              DateTime64(3, 'UTC'),
        budget_total       Float64,
        budget_used        Float64,
        lots_used          Int64,
        lots_cap           Int64,
        orders_per_min_used Int64,
        orders_per_min_cap  Int64
    ) ENGINE = MergeTree()
    ORDER BY as_of`,
	`CREATE TABLE IF NOT EXISTS riskgate.circuit_states (
        as_of   DateTime64(3, 'UTC'),
        tripped UInt8,
        reason  String
    ) ENGINE = MergeTree()
    ORDER BY as_of`,
	`CREATE TABLE IF NOT EXISTS riskgate.risk_limits (
        as_of                DateTime64(3, 'UTC'),
        daily_loss_cap       Float64,
        lots_cap             Int64,
        orders_per_minute_cap Int64
    ) ENGINE = MergeTree()
    ORDER BY as_of`,
}

// CHStore implements the durable stores backed by ClickHouse: BarSource,
// AdviceStore, SnapshotStore and RiskStore.
type CHStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHStore(ch *pkgch.Client) *CHStore {
	return &CHStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHStore) SetLogger(l *applogger.Logger) { s.l = l }

// --- BarSource ---

func (s *CHStore) ListRecentBars(ctx context.Context, symbol string, count int) ([]models.PriceBar, error) {
	start := time.Now()
	const q = `
        SELECT symbol, open_time, open, high, low, close, vol
        FROM riskgate.bars FINAL
        WHERE symbol = ?
        ORDER BY open_time DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, count)
	if err != nil {
		s.logErr("bars query error", symbol, err)
		return nil, fmt.Errorf("list bars: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.PriceBar, 0, count)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Symbol, &b.OpenTime, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			s.logErr("bars scan error", symbol, err)
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		tmp = append(tmp, b)
	}
	if err := rows.Err(); err != nil {
		s.logErr("bars rows error", symbol, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to oldest-first
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	if s.l != nil {
		s.l.Debug("clickhouse list_bars ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(tmp)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return tmp, nil
}

// --- AdviceStore ---

func (s *CHStore) Save(ctx context.Context, a models.Advice) error {
	const q = `
        INSERT INTO riskgate.advices
            (id, created_at, updated_at, symbol, side, confidence, status, reason, strategy, order_id, quantity, lot_size)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, q,
		a.ID, a.CreatedAt, time.Now().UTC(), a.Symbol, string(a.Side), a.Confidence,
		string(a.Status), a.Reason, a.Strategy, a.BrokerOrderID, int64(a.Quantity), int64(a.LotSize),
	)
	if err != nil {
		s.logErr("advice insert error", a.Symbol, err)
		return fmt.Errorf("save advice: %w", err)
	}
	return nil
}

func (s *CHStore) Get(ctx context.Context, id string) (models.Advice, error) {
	const q = `
        SELECT id, created_at, symbol, side, confidence, status, reason, strategy, order_id, quantity, lot_size
        FROM riskgate.advices FINAL
        WHERE id = ?
        LIMIT 1
    `
	var (
		a        models.Advice
		side     string
		status   string
		qty, lot int64
	)
	row := s.db.QueryRowContext(ctx, q, id)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.Symbol, &side, &a.Confidence, &status, &a.Reason, &a.Strategy, &a.BrokerOrderID, &qty, &lot); err != nil {
		if err == sql.ErrNoRows {
			return models.Advice{}, fmt.Errorf("advice %s not found", id)
		}
		s.logErr("advice get error", id, err)
		return models.Advice{}, fmt.Errorf("get advice: %w", err)
	}
	a.Side = models.Side(side)
	a.Status = models.AdviceStatus(status)
	a.Quantity = int(qty)
	a.LotSize = int(lot)
	return a, nil
}

func (s *CHStore) ListRecent(ctx context.Context, limit int) ([]models.Advice, error) {
	const q = `
        SELECT id, created_at, symbol, side, confidence, status, reason, strategy, order_id, quantity, lot_size
        FROM riskgate.advices FINAL
        ORDER BY created_at DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		s.logErr("advice list error", "", err)
		return nil, fmt.Errorf("list advices: %w", err)
	}
	defer rows.Close()

	out := make([]models.Advice, 0, limit)
	for rows.Next() {
		var (
			a        models.Advice
			side     string
			status   string
			qty, lot int64
		)
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.Symbol, &side, &a.Confidence, &status, &a.Reason, &a.Strategy, &a.BrokerOrderID, &qty, &lot); err != nil {
			s.logErr("advice scan error", "", err)
			return nil, fmt.Errorf("scan advice: %w", err)
		}
		a.Side = models.Side(side)
		a.Status = models.AdviceStatus(status)
		a.Quantity = int(qty)
		a.LotSize = int(lot)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

// --- SnapshotStore ---

func (s *CHStore) SaveRegime(ctx context.Context, snap models.RegimeSnapshot) error {
	const q = `
        INSERT INTO riskgate.regime_snapshots (symbol, as_of, regime, strength, momentum_z, atr_pct, sigma)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, q, snap.Symbol, snap.AsOf, string(snap.Regime), snap.Strength, snap.MomentumZ, snap.ATRPct, snap.Sigma)
	if err != nil {
		s.logErr("regime insert error", snap.Symbol, err)
		return fmt.Errorf("save regime: %w", err)
	}
	return nil
}

func (s *CHStore) LatestRegime(ctx context.Context, symbol string) (models.RegimeSnapshot, error) {
	const q = `
        SELECT symbol, as_of, regime, strength, momentum_z, atr_pct, sigma
        FROM riskgate.regime_snapshots
        WHERE symbol = ?
        ORDER BY as_of DESC
        LIMIT 1
    `
	var (
		snap   models.RegimeSnapshot
		regime string
	)
	row := s.db.QueryRowContext(ctx, q, symbol)
	if err := row.Scan(&snap.Symbol, &snap.AsOf, &regime, &snap.Strength, &snap.MomentumZ, &snap.ATRPct, &snap.Sigma); err != nil {
		if err == sql.ErrNoRows {
			return models.RegimeSnapshot{}, fmt.Errorf("no regime snapshot for %s", symbol)
		}
		s.logErr("regime get error", symbol, err)
		return models.RegimeSnapshot{}, fmt.Errorf("latest regime: %w", err)
	}
	snap.Regime = models.Regime(regime)
	return snap, nil
}

func (s *CHStore) SaveSentiment(ctx context.Context, snap models.SentimentSnapshot) error {
	const q = `
        INSERT INTO riskgate.sentiment_snapshots (symbol, as_of, score, confidence)
        VALUES (?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, q, snap.Symbol, snap.AsOf, snap.Score, snap.Confidence)
	if err != nil {
		s.logErr("sentiment insert error", snap.Symbol, err)
		return fmt.Errorf("save sentiment: %w", err)
	}
	return nil
}

func (s *CHStore) LatestSentiment(ctx context.Context, symbol string) (models.SentimentSnapshot, error) {
	const q = `
        SELECT symbol, as_of, score, confidence
        FROM riskgate.sentiment_snapshots
        WHERE symbol = ?
        ORDER BY as_of DESC
        LIMIT 1
    `
	var snap models.SentimentSnapshot
	row := s.db.QueryRowContext(ctx, q, symbol)
	if err := row.Scan(&snap.Symbol, &snap.AsOf, &snap.Score, &snap.Confidence); err != nil {
		if err == sql.ErrNoRows {
			return models.SentimentSnapshot{}, fmt.Errorf("no sentiment snapshot for %s", symbol)
		}
		s.logErr("sentiment get error", symbol, err)
		return models.SentimentSnapshot{}, fmt.Errorf("latest sentiment: %w", err)
	}
	return snap, nil
}

// --- RiskStore ---

func (s *CHStore) Limits(ctx context.Context) (models.RiskLimitsConfig, error) {
	const q = `
        SELECT daily_loss_cap, lots_cap, orders_per_minute_cap
        FROM riskgate.risk_limits
        ORDER BY as_of DESC
        LIMIT 1
    `
	var (
		l      models.RiskLimitsConfig
		lots   int64
		perMin int64
	)
	row := s.db.QueryRowContext(ctx, q)
	if err := row.Scan(&l.DailyLossCapAmount, &lots, &perMin); err != nil {
		if err == sql.ErrNoRows {
			return models.RiskLimitsConfig{}, nil
		}
		s.logErr("limits get error", "", err)
		return models.RiskLimitsConfig{}, fmt.Errorf("read limits: %w", err)
	}
	l.LotsCap = int(lots)
	l.OrdersPerMinuteCap = int(perMin)
	return l, nil
}

func (s *CHStore) SaveLimits(ctx context.Context, l models.RiskLimitsConfig) error {
	const q = `
        INSERT INTO riskgate.risk_limits (as_of, daily_loss_cap, lots_cap, orders_per_minute_cap)
        VALUES (?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, q, time.Now().UTC(), l.DailyLossCapAmount, int64(l.LotsCap), int64(l.OrdersPerMinuteCap))
	if err != nil {
		s.logErr("limits insert error", "", err)
		return fmt.Errorf("save limits: %w", err)
	}
	return nil
}

func (s *CHStore) LatestBudget(ctx context.Context) (models.RiskBudgetSnapshot, error) {
	const q = `
        SELECT as_of, budget_total, budget_used, lots_used, lots_cap, orders_per_min_used, orders_per_min_cap
        FROM riskgate.risk_budgets
        ORDER BY as_of DESC
        LIMIT 1
    `
	var (
		b              models.RiskBudgetSnapshot
		lu, lc, ou, oc int64
	)
	row := s.db.QueryRowContext(ctx, q)
	if err := row.Scan(&b.AsOf, &b.BudgetTotal, &b.BudgetUsed, &lu, &lc, &ou, &oc); err != nil {
		if err == sql.ErrNoRows {
			return models.RiskBudgetSnapshot{}, nil
		}
		s.logErr("budget get error", "", err)
		return models.RiskBudgetSnapshot{}, fmt.Errorf("read budget: %w", err)
	}
	b.LotsUsed = int(lu)
	b.LotsCap = int(lc)
	b.OrdersPerMinUsed = int(ou)
	b.OrdersPerMinCap = int(oc)
	return b, nil
}

func (s *CHStore) SaveBudget(ctx context.Context, b models.RiskBudgetSnapshot) error {
	const q = `
        INSERT INTO riskgate.risk_budgets
            (as_of, budget_total, budget_used, lots_used, lots_cap, orders_per_min_used, orders_per_min_cap)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, q, b.AsOf, b.BudgetTotal, b.BudgetUsed,
		int64(b.LotsUsed), int64(b.LotsCap), int64(b.OrdersPerMinUsed), int64(b.OrdersPerMinCap))
	if err != nil {
		s.logErr("budget insert error", "", err)
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

func (s *CHStore) AppendCircuitState(ctx context.Context, c models.CircuitState) error {
	const q = `
        INSERT INTO riskgate.circuit_states (as_of, tripped, reason)
        VALUES (?, ?, ?)
    `
	tripped := uint8(0)
	if c.Tripped {
		tripped = 1
	}
	_, err := s.db.ExecContext(ctx, q, c.AsOf, tripped, c.Reason)
	if err != nil {
		s.logErr("circuit insert error", "", err)
		return fmt.Errorf("append circuit state: %w", err)
	}
	return nil
}

func (s *CHStore) logErr(msg, key string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("key", key),
		applogger.Error(err),
	)
}
