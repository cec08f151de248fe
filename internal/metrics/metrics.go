package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// TimerMetric captures timing information
type TimerMetric struct {
	Count         int64   `json:"count"`
	TotalTimeMs   int64   `json:"total_time_ms"`
	AverageTimeMs float64 `json:"average_time_ms"`
	MinTimeMs     int64   `json:"min_time_ms"`
	MaxTimeMs     int64   `json:"max_time_ms"`
}

// ErrorRateMetric captures error rates
type ErrorRateMetric struct {
	Total     int64   `json:"total"`
	Errors    int64   `json:"errors"`
	ErrorRate float64 `json:"error_rate"`
}

type timer struct {
	count       int64
	totalTimeMs int64
	minTimeMs   int64
	maxTimeMs   int64
}

type errorRate struct {
	total  int64
	errors int64
}

// Metrics is an in-process collector for counters, gauges, timers, error rates and health
type Metrics struct {
	mu           sync.RWMutex
	counters     map[string]*int64
	gauges       map[string]*int64
	timers       map[string]*timer
	errorRates   map[string]*errorRate
	healthChecks map[string]*int64
	startTime    time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	return &Metrics{
		counters:     make(map[string]*int64),
		gauges:       make(map[string]*int64),
		timers:       make(map[string]*timer),
		errorRates:   make(map[string]*errorRate),
		healthChecks: make(map[string]*int64),
		startTime:    time.Now(),
	}
}

// lookup returns the entry for name, creating it with create on first use
func lookup[T any](m *Metrics, entries map[string]*T, name string, create func() *T) *T {
	m.mu.RLock()
	entry, ok := entries[name]
	m.mu.RUnlock()
	if ok {
		return entry
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok = entries[name]; !ok {
		entry = create()
		entries[name] = entry
	}
	return entry
}

func newInt64() *int64 {
	return new(int64)
}

// IncrementCounter increments a counter by 1
func (m *Metrics) IncrementCounter(name string) {
	m.IncrementCounterBy(name, 1)
}

// IncrementCounterBy increments a counter by the specified value
func (m *Metrics) IncrementCounterBy(name string, value int64) {
	atomic.AddInt64(lookup(m, m.counters, name, newInt64), value)
}

// SetGauge sets a gauge to a specific value
func (m *Metrics) SetGauge(name string, value int64) {
	atomic.StoreInt64(lookup(m, m.gauges, name, newInt64), value)
}

// RecordDuration records a timing measurement
func (m *Metrics) RecordDuration(name string, d time.Duration) {
	t := lookup(m, m.timers, name, func() *timer {
		return &timer{minTimeMs: math.MaxInt64}
	})
	ms := d.Milliseconds()

	atomic.AddInt64(&t.count, 1)
	atomic.AddInt64(&t.totalTimeMs, ms)
	for {
		cur := atomic.LoadInt64(&t.minTimeMs)
		if ms >= cur || atomic.CompareAndSwapInt64(&t.minTimeMs, cur, ms) {
			break
		}
	}
	for {
		cur := atomic.LoadInt64(&t.maxTimeMs)
		if ms <= cur || atomic.CompareAndSwapInt64(&t.maxTimeMs, cur, ms) {
			break
		}
	}
}

// RecordResult records a success or an error for error rate tracking
func (m *Metrics) RecordResult(name string, err error) {
	r := lookup(m, m.errorRates, name, func() *errorRate { return &errorRate{} })
	atomic.AddInt64(&r.total, 1)
	if err != nil {
		atomic.AddInt64(&r.errors, 1)
	}
}

// Track starts timing an operation. Calling the returned function with the
// operation's error records both its duration and its outcome.
func (m *Metrics) Track(name string) func(err error) {
	start := time.Now()
	return func(err error) {
		m.RecordDuration(name, time.Since(start))
		m.RecordResult(name, err)
	}
}

// SetHealth sets the health status of a component
func (m *Metrics) SetHealth(component string, healthy bool) {
	var value int64
	if healthy {
		value = 1
	}
	atomic.StoreInt64(lookup(m, m.healthChecks, component, newInt64), value)
}

// GetCounters returns all counters
func (m *Metrics) GetCounters() map[string]int64 {
	return snapshot(m, m.counters)
}

// GetGauges returns all gauges
func (m *Metrics) GetGauges() map[string]int64 {
	return snapshot(m, m.gauges)
}

func snapshot(m *Metrics, entries map[string]*int64) map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64, len(entries))
	for name, v := range entries {
		out[name] = atomic.LoadInt64(v)
	}
	return out
}

// GetTimers returns all timers
func (m *Metrics) GetTimers() map[string]TimerMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	timers := make(map[string]TimerMetric, len(m.timers))
	for name, t := range m.timers {
		count := atomic.LoadInt64(&t.count)
		total := atomic.LoadInt64(&t.totalTimeMs)

		var average float64
		if count > 0 {
			average = float64(total) / float64(count)
		}

		timers[name] = TimerMetric{
			Count:         count,
			TotalTimeMs:   total,
			AverageTimeMs: average,
			MinTimeMs:     atomic.LoadInt64(&t.minTimeMs),
			MaxTimeMs:     atomic.LoadInt64(&t.maxTimeMs),
		}
	}
	return timers
}

// GetErrorRates returns all error rates
func (m *Metrics) GetErrorRates() map[string]ErrorRateMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rates := make(map[string]ErrorRateMetric, len(m.errorRates))
	for name, r := range m.errorRates {
		total := atomic.LoadInt64(&r.total)
		errs := atomic.LoadInt64(&r.errors)

		var rate float64
		if total > 0 {
			rate = float64(errs) / float64(total) * 100.0
		}

		rates[name] = ErrorRateMetric{Total: total, Errors: errs, ErrorRate: rate}
	}
	return rates
}

// GetHealthChecks returns all health checks
func (m *Metrics) GetHealthChecks() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	checks := make(map[string]bool, len(m.healthChecks))
	for name, h := range m.healthChecks {
		checks[name] = atomic.LoadInt64(h) > 0
	}
	return checks
}

// GetUptimeSeconds returns the service uptime in seconds
func (m *Metrics) GetUptimeSeconds() int64 {
	return int64(time.Since(m.startTime).Seconds())
}

// GetAllMetrics returns all metrics in a structured format
func (m *Metrics) GetAllMetrics() map[string]interface{} {
	return map[string]interface{}{
		"uptime_seconds": m.GetUptimeSeconds(),
		"counters":       m.GetCounters(),
		"gauges":         m.GetGauges(),
		"timers":         m.GetTimers(),
		"error_rates":    m.GetErrorRates(),
		"health_checks":  m.GetHealthChecks(),
	}
}
