package prometheus

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{Namespace: "test", Subsystem: "unit"}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrapeMetrics(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollector_EmptyNamespace(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{}, nil)
	assert.Error(t, err)
	assert.Nil(t, c)
}

func TestNewMetricsCollector_RuntimeCollectors(t *testing.T) {
	c, err := NewMetricsCollector(CollectorConfig{
		Namespace:            "test",
		EnableGoMetrics:      true,
		EnableProcessMetrics: true,
	}, nil)
	require.NoError(t, err)
	assert.Contains(t, scrapeMetrics(t, c), "go_goroutines")
}

func TestRegisterCounter_Increments(t *testing.T) {
	c := newTestCollector(t)
	vec := c.RegisterCounter("requests_total", "requests", "locale")
	vec.WithLabelValues("de").Inc()
	vec.WithLabelValues("de").Add(2)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_requests_total{locale="de"} 3`)
}

func TestRegisterCounter_Idempotent(t *testing.T) {
	c := newTestCollector(t)
	a := c.RegisterCounter("dup_total", "dup", "x")
	b := c.RegisterCounter("dup_total", "dup", "x")
	a.WithLabelValues("1").Inc()
	b.WithLabelValues("1").Inc()

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_dup_total{x="1"} 2`)
}

func TestRegister_TypeMismatchIsNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterCounter("shared", "shared")
	g := c.RegisterGauge("shared", "shared")

	assert.NotPanics(t, func() { g.WithLabelValues().Set(1) })
}

func TestRegisterGauge_Set(t *testing.T) {
	c := newTestCollector(t)
	g := c.RegisterGauge("slots", "slots", "state")
	g.WithLabelValues("ready").Set(2)
	g.WithLabelValues("ready").Inc()
	g.WithLabelValues("ready").Dec()

	assert.Contains(t, scrapeMetrics(t, c), `test_unit_slots{state="ready"} 2`)
}

func TestRegisterHistogram_DefaultBuckets(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("latency_seconds", "latency", nil, "locale")
	h.WithLabelValues("en").Observe(0.2)

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_latency_seconds_count{locale="en"} 1`)
	assert.Contains(t, out, `le="0.25"`)
}

func TestMustRegisterAndUnregister(t *testing.T) {
	c := newTestCollector(t)
	extra := prometheus.NewCounter(prometheus.CounterOpts{Name: "extra_total", Help: "extra"})
	c.MustRegister(extra)
	assert.True(t, c.Unregister(extra))
	assert.False(t, c.Unregister(extra))
}

func TestRegisterCounter_Concurrent(t *testing.T) {
	c := newTestCollector(t)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RegisterCounter("concurrent_total", "c").WithLabelValues().Inc()
		}()
	}
	wg.Wait()
	assert.Contains(t, scrapeMetrics(t, c), "test_unit_concurrent_total 20")
}

func TestTimer_ObserveDuration(t *testing.T) {
	c := newTestCollector(t)
	h := c.RegisterHistogram("timer_seconds", "timer", nil)
	timer := NewTimer(h.WithLabelValues())
	time.Sleep(time.Millisecond)
	assert.Greater(t, timer.ObserveDuration(), time.Duration(0))

	nilTimer := NewTimer(nil)
	assert.NotPanics(t, func() { nilTimer.ObserveDuration() })
}

//Personal.AI order the ending
