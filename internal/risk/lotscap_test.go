package risk

import (
	"testing"

	"RiskGate/internal/domain/models"
)

func TestExceedsLotsCap(t *testing.T) {
	// 4 used + 3 requested over a cap of 6 must reject
	if !ExceedsLotsCap(3, 4, 6) {
		t.Fatalf("4+3 over cap 6 should exceed")
	}
	// 4 used + 2 requested exactly hits the cap and passes
	if ExceedsLotsCap(2, 4, 6) {
		t.Fatalf("4+2 at cap 6 should pass")
	}
	// cap 0 means unlimited
	if ExceedsLotsCap(1000, 1000, 0) {
		t.Fatalf("zero cap should never exceed")
	}
}

func TestUsedLots(t *testing.T) {
	positions := []models.Position{
		{Symbol: "NIFTY", Quantity: 100, LotSize: 50},    // 2 lots
		{Symbol: "NIFTY", Quantity: -75, LotSize: 50},    // abs floor: 1 lot
		{Symbol: "BANKNIFTY", Quantity: 30, LotSize: 15}, // 2 lots
	}
	if got := UsedLots(positions); got != 5 {
		t.Fatalf("expected 5 used lots, got %d", got)
	}
}

func TestUsedLotsNoLotSize(t *testing.T) {
	positions := []models.Position{{Symbol: "X", Quantity: 7}}
	if got := UsedLots(positions); got != 7 {
		t.Fatalf("expected raw quantity when lot size unset, got %d", got)
	}
}
