// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Status values for visit and notification counters.
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
	StatusThrottled = "throttled"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Visit recording
	IncVisitTracked(status string) // status: "success" or "failed"

	// Aggregation
	IncAggregationQuery(status string)

	// Event store latency, op is the store operation name
	ObserveStoreDuration(op string, duration time.Duration)

	// Notifications
	IncNotification(kind, status string) // kind: "click" or "visit"
	ObserveNotificationDuration(duration time.Duration)
}
