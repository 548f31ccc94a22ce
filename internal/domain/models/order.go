package models

// OrderKind distinguishes market, limit and stop-trigger drafts.
type OrderKind string

const (
	OrderMarket OrderKind = "MARKET"
	OrderLimit  OrderKind = "LIMIT"
	OrderStop   OrderKind = "STOP"
)

// OrderDraft is an ephemeral order request derived from an Advice at
// execution time. It is consumed once by the admission gate; the broker
// order id is the durable artifact.
type OrderDraft struct {
	Symbol       string
	Side         Side
	Quantity     int
	LotSize      int
	Kind         OrderKind
	Price        float64 // limit price, 0 for market
	TriggerPrice float64 // stop trigger, 0 if unused
}

// Lots converts quantity to whole lots. Integer floor division: a
// fractional remainder does not count as an extra lot.
func (d OrderDraft) Lots() int {
	if d.LotSize <= 0 {
		return d.Quantity
	}
	return d.Quantity / d.LotSize
}

// DraftFromAdvice builds a market order draft from an advice.
func DraftFromAdvice(a Advice) OrderDraft {
	return OrderDraft{
		Symbol:   a.Symbol,
		Side:     a.Side,
		Quantity: a.Quantity,
		LotSize:  a.LotSize,
		Kind:     OrderMarket,
	}
}
