package risk

import (
	"context"
	"sync"
	"testing"

	"RiskGate/internal/domain/models"
	domrepo "RiskGate/internal/domain/repository"
)

type circuitStoreStub struct {
	mu     sync.Mutex
	states []models.CircuitState
}

func (s *circuitStoreStub) Limits(context.Context) (models.RiskLimitsConfig, error) {
	return models.RiskLimitsConfig{}, nil
}
func (s *circuitStoreStub) SaveLimits(context.Context, models.RiskLimitsConfig) error { return nil }
func (s *circuitStoreStub) LatestBudget(context.Context) (models.RiskBudgetSnapshot, error) {
	return models.RiskBudgetSnapshot{}, nil
}
func (s *circuitStoreStub) SaveBudget(context.Context, models.RiskBudgetSnapshot) error { return nil }
func (s *circuitStoreStub) AppendCircuitState(_ context.Context, c models.CircuitState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, c)
	return nil
}
func (s *circuitStoreStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

type sinkStub struct {
	mu     sync.Mutex
	topics []domrepo.Topic
}

func (s *sinkStub) Publish(_ context.Context, topic domrepo.Topic, _ interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, topic)
	return nil
}
func (s *sinkStub) Close() error { return nil }
func (s *sinkStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.topics)
}

func TestCircuitTripAndReset(t *testing.T) {
	store := &circuitStoreStub{}
	sink := &sinkStub{}
	cb := NewCircuitBreaker(store, sink, nil, nil)

	if cb.Tripped() {
		t.Fatalf("breaker should start open")
	}

	if !cb.Trip(context.Background(), "budget exhausted") {
		t.Fatalf("first trip should flip")
	}
	if !cb.Tripped() {
		t.Fatalf("breaker should be tripped")
	}
	// repeated trip is not an edge
	if cb.Trip(context.Background(), "again") {
		t.Fatalf("second trip should be a no-op")
	}
	if store.count() != 1 || sink.count() != 1 {
		t.Fatalf("expected exactly one persist and publish, got %d/%d", store.count(), sink.count())
	}

	if !cb.Reset(context.Background()) {
		t.Fatalf("reset should flip back")
	}
	if cb.Tripped() {
		t.Fatalf("breaker should be open after reset")
	}
	if store.count() != 2 || sink.count() != 2 {
		t.Fatalf("expected two persists and publishes, got %d/%d", store.count(), sink.count())
	}
}

func TestCircuitNoAutoReset(t *testing.T) {
	cb := NewCircuitBreaker(&circuitStoreStub{}, nil, nil, nil)
	cb.Trip(context.Background(), "manual")

	// nothing but an explicit Reset reopens
	cb.Observe(context.Background(), models.RiskBudgetSnapshot{BudgetTotal: 100, BudgetUsed: 0})
	if !cb.Tripped() {
		t.Fatalf("healthy budget must not auto-reset a tripped breaker")
	}
}

func TestCircuitObserveTripsOnExhaustion(t *testing.T) {
	cb := NewCircuitBreaker(&circuitStoreStub{}, nil, nil, nil)

	cb.Observe(context.Background(), models.RiskBudgetSnapshot{BudgetTotal: 100, BudgetUsed: 40})
	if cb.Tripped() {
		t.Fatalf("under-budget snapshot must not trip")
	}

	cb.Observe(context.Background(), models.RiskBudgetSnapshot{BudgetTotal: 100, BudgetUsed: 100})
	if !cb.Tripped() {
		t.Fatalf("exhausted budget must trip")
	}
}

func TestCircuitConcurrentTripSingleEdge(t *testing.T) {
	store := &circuitStoreStub{}
	sink := &sinkStub{}
	cb := NewCircuitBreaker(store, sink, nil, nil)

	var wg sync.WaitGroup
	wins := make(chan bool, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- cb.Trip(context.Background(), "race")
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for w := range wins {
		if w {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one CAS winner, got %d", winners)
	}
	if store.count() != 1 || sink.count() != 1 {
		t.Fatalf("expected exactly one persist and publish, got %d/%d", store.count(), sink.count())
	}
}
