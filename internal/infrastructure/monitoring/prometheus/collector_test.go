package prometheus

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/activetext/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	cfg := CollectorConfig{
		Namespace: "test",
		Subsystem: "unit",
	}
	c, err := NewMetricsCollector(cfg, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, collector.WriteText(&buf))
	return buf.String()
}

// metricValue sums counter, gauge and histogram sample counts of the named
// family whose labels include every pair in labels.
func metricValue(t *testing.T, collector MetricsCollector, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := collector.Gatherer().Gather()
	require.NoError(t, err)

	var total float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched != len(labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return total
}

func TestNewMetricsCollector_ValidConfig(t *testing.T) {
	c := newTestCollector(t)
	assert.NotNil(t, c)
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{Subsystem: "unit"}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestNewMetricsCollector_NilLogger(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestNewMetricsCollector_WithGoMetrics(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", EnableGoMetrics: true}, logging.NewNopLogger())
	require.NoError(t, err)
	assert.Contains(t, scrapeMetrics(t, c), "go_goroutines")
}

func TestRegisterCounter_Success(t *testing.T) {
	c := newTestCollector(t)
	counter := c.RegisterCounter("requests_total", "Requests", "status")
	counter.WithLabelValues("ok").Inc()
	counter.WithLabelValues("ok").Add(2)

	assert.Equal(t, 3.0, metricValue(t, c, "test_unit_requests_total", map[string]string{"status": "ok"}))
	n, err := testutil.GatherAndCount(c.Gatherer(), "test_unit_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRegisterCounter_Duplicate(t *testing.T) {
	c := newTestCollector(t)
	first := c.RegisterCounter("dup_total", "Dup", "k")
	second := c.RegisterCounter("dup_total", "Dup", "k")

	first.WithLabelValues("a").Inc()
	second.WithLabelValues("a").Inc()
	assert.Equal(t, 2.0, metricValue(t, c, "test_unit_dup_total", map[string]string{"k": "a"}))
}

func TestRegister_TypeMismatchFallsBackToNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("shared", "Shared")
	gauge := c.RegisterGauge("shared", "Shared")

	assert.NotPanics(t, func() { gauge.WithLabelValues().Set(5) })
	assert.Equal(t, 0.0, metricValue(t, c, "test_unit_shared", nil))
}

func TestRegisterGauge(t *testing.T) {
	c := newTestCollector(t)
	g := c.RegisterGauge("in_flight", "In flight")
	g.WithLabelValues().Inc()
	g.WithLabelValues().Inc()
	g.WithLabelValues().Dec()
	assert.Equal(t, 1.0, metricValue(t, c, "test_unit_in_flight", nil))

	g.WithLabelValues().Set(7)
	assert.Equal(t, 7.0, metricValue(t, c, "test_unit_in_flight", nil))
}

func TestRegisterHistogram_DefaultBuckets(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("latency_seconds", "Latency", nil, "op")
	h.WithLabelValues("read").Observe(0.2)
	h.WithLabelValues("read").Observe(0.4)

	assert.Equal(t, 2.0, metricValue(t, c, "test_unit_latency_seconds", map[string]string{"op": "read"}))
	assert.Contains(t, scrapeMetrics(t, c), `test_unit_latency_seconds_bucket{op="read",le="0.25"} 1`)
}

func TestWriteText_Format(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("events_total", "Events seen").WithLabelValues().Add(4)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, "# HELP test_unit_events_total Events seen")
	assert.Contains(t, out, "# TYPE test_unit_events_total counter")
	assert.Contains(t, out, "test_unit_events_total 4")
}

func TestConstLabels(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{
		Namespace:   "test",
		ConstLabels: map[string]string{"instance": "cli"},
	}, logging.NewNopLogger())
	require.NoError(t, err)

	c.RegisterCounter("runs_total", "Runs").WithLabelValues().Inc()
	assert.Equal(t, 1.0, metricValue(t, c, "test_runs_total", map[string]string{"instance": "cli"}))
}

func TestConcurrentRegistration(t *testing.T) {
	c := newTestCollector(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RegisterCounter("concurrent_total", "Concurrent").WithLabelValues().Inc()
		}()
	}
	wg.Wait()
	assert.Equal(t, 16.0, metricValue(t, c, "test_unit_concurrent_total", nil))
}

func TestNoopMetrics(t *testing.T) {
	assert.NotPanics(t, func() {
		noopCounterVec{}.WithLabelValues("x").Inc()
		noopGaugeVec{}.WithLabelValues().Set(1)
		noopHistogramVec{}.WithLabelValues().Observe(1)
	})
}

func TestTimer(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("op_seconds", "Op", nil)
	timer := NewTimer(h.WithLabelValues())
	time.Sleep(time.Millisecond)
	d := timer.ObserveDuration()

	assert.GreaterOrEqual(t, d, time.Millisecond)
	assert.Equal(t, 1.0, metricValue(t, c, "test_unit_op_seconds", nil))

	assert.NotPanics(t, func() { NewTimer(nil).ObserveDuration() })
}
