package risk

// Code is a stable machine-readable outcome of an admission or decision
// check. Rejections are ordinary control flow, not errors.
type Code string

const (
	CodeOK             Code = "OK"
	CodeDuplicate      Code = "DUPLICATE"
	CodeCircuitTripped Code = "CIRCUIT_TRIPPED"
	CodeDailyLossCap   Code = "DAILY_LOSS_CAP"
	CodeLotsCap        Code = "LOTS_CAP"
	CodeThrottled      Code = "THROTTLED"
	CodeInfraError     Code = "INFRA_ERROR"

	// Decision-engine abstain reasons. Deliberate non-emission, not errors.
	CodeScoreLow              Code = "SCORE_LOW"
	CodeConfLow               Code = "CONF_LOW"
	CodeSentimentInconclusive Code = "SENTIMENT_INCONCLUSIVE"
)

// Result is the tagged outcome of a gated operation: either Ok with a
// value (the broker order id for admissions) or a rejection with a stable
// code and human-readable reason.
type Result struct {
	Code    Code
	Reason  string
	OrderID string
}

// OK reports whether the operation passed every gate.
func (r Result) OK() bool { return r.Code == CodeOK }

// Reject builds a rejection result.
func Reject(code Code, reason string) Result {
	return Result{Code: code, Reason: reason}
}

// Accept builds a passing result carrying the broker order id.
func Accept(orderID string) Result {
	return Result{Code: CodeOK, OrderID: orderID}
}
