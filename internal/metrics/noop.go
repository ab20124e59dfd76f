package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncVisitTracked(status string) {}

func (n *NoopRecorder) IncAggregationQuery(status string) {}

func (n *NoopRecorder) ObserveStoreDuration(op string, duration time.Duration) {}

func (n *NoopRecorder) IncNotification(kind, status string) {}

func (n *NoopRecorder) ObserveNotificationDuration(duration time.Duration) {}
