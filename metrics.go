package authflow

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one internal counter or histogram.
type MetricID uint16

const (
	// MetricCallSuccess counts business calls that returned a 2xx status,
	// including calls that succeeded after the single refresh-driven retry.
	MetricCallSuccess MetricID = iota
	// MetricCallUnauthorized counts 401 responses observed on business calls.
	MetricCallUnauthorized
	// MetricCallRetried counts calls re-dispatched after a successful refresh.
	MetricCallRetried
	// MetricCallTransportError counts network failures and timeouts.
	MetricCallTransportError
	// MetricCallServerError counts non-401 error statuses.
	MetricCallServerError
	// MetricLoginSuccess counts successful logins and registrations.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected logins and registrations.
	MetricLoginFailure
	// MetricLogout counts logout operations, including best-effort ones
	// whose server notification failed.
	MetricLogout
	// MetricRefreshSuccess counts refresh calls that produced a new pair.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refresh attempts that ended the session.
	MetricRefreshFailure
	// MetricRefreshCoalesced counts callers whose refresh outcome was
	// served by a shared flight.
	MetricRefreshCoalesced
	// MetricRefreshProactive counts refreshes triggered by the scheduler
	// rather than by a 401.
	MetricRefreshProactive
	// MetricPersistFailure counts best-effort storage writes that failed.
	MetricPersistFailure
	// MetricCallLatency is the business-call latency histogram.
	MetricCallLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the client's internal counters. Counters are padded to a
// cache line each so concurrent calls do not contend.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics creates the counter set according to cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded at all.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc adds one to the counter. A nil or disabled receiver is a no-op.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records a latency sample. Only MetricCallLatency is histogrammed.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricCallLatency {
		return
	}
	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current counter value.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and histogram. Disabled metrics snapshot
// as empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricCallLatency].buckets[i])
		}
		s.Histograms[MetricCallLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
