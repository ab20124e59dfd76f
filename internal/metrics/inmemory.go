package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	VisitsTracked       uint64
	VisitsFailed        uint64
	AggregationsOK      uint64
	AggregationsFailed  uint64
	StoreDurationCount  uint64
	StoreDurationNs     int64
	Notifications       map[string]uint64 // key: kind + "/" + status
	NotificationCount   uint64
	NotificationTotalNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	visitsTracked       uint64
	visitsFailed        uint64
	aggregationsOK      uint64
	aggregationsFailed  uint64
	storeDurationCount  uint64
	storeDurationNs     int64
	notificationCount   uint64
	notificationTotalNs int64

	mu            sync.Mutex
	notifications map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{notifications: make(map[string]uint64)}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	notifications := make(map[string]uint64, len(m.notifications))
	for k, v := range m.notifications {
		notifications[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		VisitsTracked:       atomic.LoadUint64(&m.visitsTracked),
		VisitsFailed:        atomic.LoadUint64(&m.visitsFailed),
		AggregationsOK:      atomic.LoadUint64(&m.aggregationsOK),
		AggregationsFailed:  atomic.LoadUint64(&m.aggregationsFailed),
		StoreDurationCount:  atomic.LoadUint64(&m.storeDurationCount),
		StoreDurationNs:     atomic.LoadInt64(&m.storeDurationNs),
		Notifications:       notifications,
		NotificationCount:   atomic.LoadUint64(&m.notificationCount),
		NotificationTotalNs: atomic.LoadInt64(&m.notificationTotalNs),
	}
}

// IncVisitTracked increments the tracked or failed visit counter.
func (m *InMemoryRecorder) IncVisitTracked(status string) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.visitsTracked, 1)
		return
	}
	atomic.AddUint64(&m.visitsFailed, 1)
}

// IncAggregationQuery increments the aggregation counters.
func (m *InMemoryRecorder) IncAggregationQuery(status string) {
	if status == StatusSuccess {
		atomic.AddUint64(&m.aggregationsOK, 1)
		return
	}
	atomic.AddUint64(&m.aggregationsFailed, 1)
}

// ObserveStoreDuration records store latency.
func (m *InMemoryRecorder) ObserveStoreDuration(op string, duration time.Duration) {
	atomic.AddUint64(&m.storeDurationCount, 1)
	atomic.AddInt64(&m.storeDurationNs, duration.Nanoseconds())
}

// IncNotification increments the counter for kind/status.
func (m *InMemoryRecorder) IncNotification(kind, status string) {
	m.mu.Lock()
	m.notifications[kind+"/"+status]++
	m.mu.Unlock()
}

// ObserveNotificationDuration records send latency.
func (m *InMemoryRecorder) ObserveNotificationDuration(duration time.Duration) {
	atomic.AddUint64(&m.notificationCount, 1)
	atomic.AddInt64(&m.notificationTotalNs, duration.Nanoseconds())
}
