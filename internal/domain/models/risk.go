package models

import "time"

// RiskLimitsConfig is the operator-configured set of hard limits. The core
// treats it as read-only and re-reads it on every check; zero means the
// corresponding cap is not enforced.
type RiskLimitsConfig struct {
	DailyLossCapAmount float64
	LotsCap            int
	OrdersPerMinuteCap int
}

// RiskBudgetSnapshot is produced by an external PnL rollup. The core only
// reads the latest row by AsOf and never computes P&L itself.
type RiskBudgetSnapshot struct {
	AsOf             time.Time
	BudgetTotal      float64
	BudgetUsed       float64
	LotsUsed         int
	LotsCap          int
	OrdersPerMinUsed int
	OrdersPerMinCap  int
}

// Exhausted reports whether the daily loss budget is used up.
func (s RiskBudgetSnapshot) Exhausted() bool {
	return s.BudgetTotal > 0 && s.BudgetUsed >= s.BudgetTotal
}

// CircuitState is one row of the append-only breaker history. The latest
// AsOf is the authoritative state.
type CircuitState struct {
	Tripped bool
	Reason  string
	AsOf    time.Time
}

// Position is an open position as reported by the position store.
type Position struct {
	Symbol   string
	Quantity int
	LotSize  int
}
