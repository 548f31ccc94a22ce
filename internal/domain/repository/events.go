package repository

import "context"

// Topic names the closed set of notifications this core emits.
type Topic string

const (
	TopicAdviceNew     Topic = "advice.new"
	TopicAdviceUpdated Topic = "advice.updated"
	TopicRiskSummary   Topic = "risk.summary"
	TopicRiskCircuit   Topic = "risk.circuit"
	TopicOrderPlaced   Topic = "order.placed"
)

// EventSink publishes named notifications. Delivery is best-effort:
// implementations may drop on error, callers must never let a failed
// publish fail the underlying state transition.
type EventSink interface {
	Publish(ctx context.Context, topic Topic, payload interface{}) error
	Close() error
}
