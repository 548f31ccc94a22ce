package risk

import "RiskGate/internal/domain/models"

// ExceedsLotsCap reports whether admitting requested lots on top of the
// currently used lots would break the cap. A cap of zero (or negative)
// means no cap is enforced.
func ExceedsLotsCap(requestedLots, currentUsedLots, cap int) bool {
	return cap > 0 && currentUsedLots+requestedLots > cap
}

// UsedLots sums absolute exposure across open positions, in lot units.
// Positions are re-read on every check; nothing here is cached.
func UsedLots(positions []models.Position) int {
	total := 0
	for _, p := range positions {
		qty := p.Quantity
		if qty < 0 {
			qty = -qty
		}
		if p.LotSize > 0 {
			total += qty / p.LotSize
		} else {
			total += qty
		}
	}
	return total
}
