package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCountersAndGauges(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncrementCounter("envelopes_sent")
		}()
	}
	wg.Wait()
	m.IncrementCounterBy("envelopes_sent", 5)
	m.SetGauge("queue", 7)
	m.SetGauge("queue", 3)

	assert.Equal(t, int64(55), m.GetCounters()["envelopes_sent"])
	assert.Equal(t, int64(3), m.GetGauges()["queue"])
}

func TestRecordDuration(t *testing.T) {
	m := NewMetrics()
	m.RecordDuration("db.select", 10*time.Millisecond)
	m.RecordDuration("db.select", 30*time.Millisecond)

	timer := m.GetTimers()["db.select"]
	assert.Equal(t, int64(2), timer.Count)
	assert.Equal(t, int64(40), timer.TotalTimeMs)
	assert.Equal(t, int64(10), timer.MinTimeMs)
	assert.Equal(t, int64(30), timer.MaxTimeMs)
	assert.InDelta(t, 20.0, timer.AverageTimeMs, 0.001)
}

func TestTrack(t *testing.T) {
	m := NewMetrics()

	m.Track("envelope.send")(nil)
	m.Track("envelope.send")(errors.New("boom"))

	rate := m.GetErrorRates()["envelope.send"]
	assert.Equal(t, int64(2), rate.Total)
	assert.Equal(t, int64(1), rate.Errors)
	assert.InDelta(t, 50.0, rate.ErrorRate, 0.001)
	assert.Equal(t, int64(2), m.GetTimers()["envelope.send"].Count)
}

func TestHealthAndSnapshot(t *testing.T) {
	m := NewMetrics()
	m.SetHealth("database", true)
	m.SetHealth("redis", false)

	checks := m.GetHealthChecks()
	assert.True(t, checks["database"])
	assert.False(t, checks["redis"])

	all := m.GetAllMetrics()
	for _, key := range []string{"uptime_seconds", "counters", "gauges", "timers", "error_rates", "health_checks"} {
		assert.Contains(t, all, key)
	}
}
