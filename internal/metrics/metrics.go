package metrics

import (
	"fmt"
	"sync"
	"time"
)

// Counter names
const (
	CounterHTTPRequests      = "http_requests_total"
	CounterHTTPRequestsError = "http_requests_error_total"
	CounterDBQueries         = "db_queries_total"
	CounterDBQueriesError    = "db_queries_error_total"
	CounterRemoteCalls       = "remote_calls_total"
	CounterRemoteCallsError  = "remote_calls_error_total"
	CounterNotifications     = "notifications_sent_total"
	CounterNotificationsFail = "notifications_error_total"
)

// Database query types
const (
	DBQueryTypeSelect = "select"
	DBQueryTypeInsert = "insert"
	DBQueryTypeUpdate = "update"
	DBQueryTypeDelete = "delete"
)

// Collector keeps in-process counters and latency samples
type Collector struct {
	mutex               sync.RWMutex
	counters            map[string]int64
	latencies           map[string][]time.Duration
	startTime           time.Time
	maxHistogramSamples int
}

var (
	defaultCollector *Collector
	once             sync.Once
)

// GetMetricsCollector returns the process wide collector
func GetMetricsCollector() *Collector {
	once.Do(func() {
		defaultCollector = NewCollector()
	})
	return defaultCollector
}

// NewCollector creates an empty collector
func NewCollector() *Collector {
	return &Collector{
		counters:            make(map[string]int64),
		latencies:           make(map[string][]time.Duration),
		startTime:           time.Now(),
		maxHistogramSamples: 1000,
	}
}

// IncrementCounter adds value to the named counter
func (m *Collector) IncrementCounter(name string, value int64) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.counters[name] += value
}

// Counter returns the current value of a counter
func (m *Collector) Counter(name string) int64 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.counters[name]
}

// RecordLatency stores a latency sample, keeping the newest samples only
func (m *Collector) RecordLatency(name string, value time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	samples := append(m.latencies[name], value)
	if len(samples) > m.maxHistogramSamples {
		samples = samples[len(samples)-m.maxHistogramSamples:]
	}
	m.latencies[name] = samples
}

// RecordHTTPRequest records a served request
func (m *Collector) RecordHTTPRequest(route string, statusCode int, latency time.Duration) {
	m.IncrementCounter(CounterHTTPRequests, 1)
	if statusCode >= 500 {
		m.IncrementCounter(CounterHTTPRequestsError, 1)
	}
	m.RecordLatency("http:"+route, latency)
}

// RecordDatabaseQuery records a gorm operation
func (m *Collector) RecordDatabaseQuery(queryType string, success bool, latency time.Duration) {
	m.IncrementCounter(CounterDBQueries, 1)
	m.IncrementCounter(fmt.Sprintf("db_queries_%s_total", queryType), 1)
	if !success {
		m.IncrementCounter(CounterDBQueriesError, 1)
	}
	m.RecordLatency("db:"+queryType, latency)
}

// RecordRemoteCall records a call to the sourcing platform or a collaborator
func (m *Collector) RecordRemoteCall(target string, success bool, latency time.Duration) {
	m.IncrementCounter(CounterRemoteCalls, 1)
	if !success {
		m.IncrementCounter(CounterRemoteCallsError, 1)
	}
	m.RecordLatency("remote:"+target, latency)
}

// GetMetrics returns a snapshot suitable for JSON rendering
func (m *Collector) GetMetrics() map[string]interface{} {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for k, v := range m.counters {
		counters[k] = v
	}

	latencies := make(map[string]interface{}, len(m.latencies))
	for k, samples := range m.latencies {
		latencies[k] = summarize(samples)
	}

	return map[string]interface{}{
		"uptime_seconds": int64(time.Since(m.startTime).Seconds()),
		"counters":       counters,
		"latencies":      latencies,
	}
}

func summarize(samples []time.Duration) map[string]interface{} {
	if len(samples) == 0 {
		return map[string]interface{}{"count": 0}
	}
	var total, max time.Duration
	min := samples[0]
	for _, s := range samples {
		total += s
		if s > max {
			max = s
		}
		if s < min {
			min = s
		}
	}
	return map[string]interface{}{
		"count":  len(samples),
		"avg_ms": float64(total.Microseconds()) / float64(len(samples)) / 1000,
		"min_ms": float64(min.Microseconds()) / 1000,
		"max_ms": float64(max.Microseconds()) / 1000,
	}
}
