package repository

import (
	"context"
	"fmt"
	"sync"

	"RiskGate/internal/domain/models"
)

// MemoryStore is the in-process backing store used for development and
// tests. It implements AdviceStore, RiskStore, SnapshotStore, BarSource and
// PositionSource behind one mutex; every method copies on the way in and
// out so callers never share slices with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	advices   map[string]models.Advice
	order     []string // advice ids, insertion order
	limits    models.RiskLimitsConfig
	budgets   []models.RiskBudgetSnapshot
	circuits  []models.CircuitState
	regimes   map[string]models.RegimeSnapshot
	sentiment map[string]models.SentimentSnapshot
	bars      map[string][]models.PriceBar
	positions []models.Position
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		advices:   make(map[string]models.Advice),
		regimes:   make(map[string]models.RegimeSnapshot),
		sentiment: make(map[string]models.SentimentSnapshot),
		bars:      make(map[string][]models.PriceBar),
	}
}

// --- AdviceStore ---

func (m *MemoryStore) Save(_ context.Context, a models.Advice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.advices[a.ID]; !ok {
		m.order = append(m.order, a.ID)
	}
	m.advices[a.ID] = a
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (models.Advice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.advices[id]
	if !ok {
		return models.Advice{}, fmt.Errorf("advice %s not found", id)
	}
	return a, nil
}

func (m *MemoryStore) ListRecent(_ context.Context, limit int) ([]models.Advice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.order)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.Advice, 0, n)
	for i := len(m.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.advices[m.order[i]])
	}
	return out, nil
}

// --- RiskStore ---

func (m *MemoryStore) Limits(_ context.Context) (models.RiskLimitsConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.limits, nil
}

func (m *MemoryStore) SaveLimits(_ context.Context, l models.RiskLimitsConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limits = l
	return nil
}

func (m *MemoryStore) LatestBudget(_ context.Context) (models.RiskBudgetSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.budgets) == 0 {
		return models.RiskBudgetSnapshot{}, nil
	}
	return m.budgets[len(m.budgets)-1], nil
}

func (m *MemoryStore) SaveBudget(_ context.Context, s models.RiskBudgetSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgets = append(m.budgets, s)
	return nil
}

func (m *MemoryStore) AppendCircuitState(_ context.Context, s models.CircuitState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.circuits = append(m.circuits, s)
	return nil
}

// CircuitHistory returns the append-only breaker log, oldest first.
func (m *MemoryStore) CircuitHistory() []models.CircuitState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.CircuitState, len(m.circuits))
	copy(out, m.circuits)
	return out
}

// --- SnapshotStore ---

func (m *MemoryStore) SaveRegime(_ context.Context, s models.RegimeSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regimes[s.Symbol] = s
	return nil
}

func (m *MemoryStore) LatestRegime(_ context.Context, symbol string) (models.RegimeSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.regimes[symbol]
	if !ok {
		return models.RegimeSnapshot{}, fmt.Errorf("no regime snapshot for %s", symbol)
	}
	return s, nil
}

func (m *MemoryStore) SaveSentiment(_ context.Context, s models.SentimentSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentiment[s.Symbol] = s
	return nil
}

func (m *MemoryStore) LatestSentiment(_ context.Context, symbol string) (models.SentimentSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sentiment[symbol]
	if !ok {
		return models.SentimentSnapshot{}, fmt.Errorf("no sentiment snapshot for %s", symbol)
	}
	return s, nil
}

// --- BarSource ---

func (m *MemoryStore) ListRecentBars(_ context.Context, symbol string, count int) ([]models.PriceBar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bars := m.bars[symbol]
	if count > 0 && count < len(bars) {
		bars = bars[len(bars)-count:]
	}
	out := make([]models.PriceBar, len(bars))
	copy(out, bars)
	return out, nil
}

// AppendBars appends bars for a symbol, oldest-first ordering assumed.
func (m *MemoryStore) AppendBars(symbol string, bars ...models.PriceBar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[symbol] = append(m.bars[symbol], bars...)
}

// --- PositionSource ---

func (m *MemoryStore) OpenPositions(_ context.Context) ([]models.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Position, len(m.positions))
	copy(out, m.positions)
	return out, nil
}

// SetPositions replaces the open position set.
func (m *MemoryStore) SetPositions(positions []models.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = append(m.positions[:0], positions...)
}
