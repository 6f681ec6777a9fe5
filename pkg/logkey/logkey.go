// Package logkey holds the shared attribute names used in structured logs so
// log aggregation can rely on consistent keys across handlers.
package logkey

const (
	TraceID = "trace_id"
	ERROR   = "error"
	UserID  = "user_id"
	OrderID = "order_id"
)
