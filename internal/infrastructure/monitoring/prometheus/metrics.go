package prometheus

import (
	"strconv"
	"time"
)

// NLUMetrics holds every metric MultiNLU exports.
type NLUMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	// Dispatch
	ParseRequestsTotal  CounterVec
	ParseDuration       HistogramVec
	TaxonomyMatchTotal  CounterVec
	TaxonomyEntityCount GaugeVec

	// Registry
	ModelLoadDuration HistogramVec
	LocaleState       GaugeVec

	// Infrastructure
	CacheHitsTotal        CounterVec
	CacheMissesTotal      CounterVec
	EventsPublishedTotal  CounterVec
	ArtifactDownloadTotal CounterVec
}

// Default buckets.
var (
	DefaultHTTPDurationBuckets  = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultParseDurationBuckets = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultLoadDurationBuckets  = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800}
)

// Locale states as exported on the locale_state gauge.
var localeStates = []string{"loading", "ready", "failed"}

// NewNLUMetrics registers all metrics on collector.
func NewNLUMetrics(collector MetricsCollector) *NLUMetrics {
	m := &NLUMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")

	m.ParseRequestsTotal = collector.RegisterCounter("parse_requests_total", "Parse requests by locale and outcome", "locale", "status")
	m.ParseDuration = collector.RegisterHistogram("parse_duration_seconds", "End-to-end parse duration", DefaultParseDurationBuckets, "locale")
	m.TaxonomyMatchTotal = collector.RegisterCounter("taxonomy_matches_total", "Entities recognised through the taxonomy", "group")
	m.TaxonomyEntityCount = collector.RegisterGauge("taxonomy_size", "Size of the loaded taxonomy", "kind")

	m.ModelLoadDuration = collector.RegisterHistogram("model_load_duration_seconds", "Locale model load duration", DefaultLoadDurationBuckets, "locale", "status")
	m.LocaleState = collector.RegisterGauge("locale_state", "1 for the current state of each locale slot", "locale", "state")

	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Parse cache hits", "locale")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Parse cache misses", "locale")
	m.EventsPublishedTotal = collector.RegisterCounter("events_published_total", "Parse events handed to the broker", "status")
	m.ArtifactDownloadTotal = collector.RegisterCounter("artifact_downloads_total", "Model artifacts fetched from object storage", "locale", "status")

	return m
}

// RecordHTTPRequest records an HTTP request.
func (m *NLUMetrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordParse records one dispatched parse request.
func (m *NLUMetrics) RecordParse(locale, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ParseRequestsTotal.WithLabelValues(locale, status).Inc()
	m.ParseDuration.WithLabelValues(locale).Observe(d.Seconds())
}

// RecordTaxonomyMatch counts one recognised entity of group.
func (m *NLUMetrics) RecordTaxonomyMatch(group string) {
	if m == nil {
		return
	}
	m.TaxonomyMatchTotal.WithLabelValues(group).Inc()
}

// SetTaxonomySize exports the group, entity and value counts.
func (m *NLUMetrics) SetTaxonomySize(groups, entities, values int) {
	if m == nil {
		return
	}
	m.TaxonomyEntityCount.WithLabelValues("groups").Set(float64(groups))
	m.TaxonomyEntityCount.WithLabelValues("entities").Set(float64(entities))
	m.TaxonomyEntityCount.WithLabelValues("values").Set(float64(values))
}

// SetLocaleState marks state as current for locale and clears the others.
func (m *NLUMetrics) SetLocaleState(locale, state string) {
	if m == nil {
		return
	}
	for _, s := range localeStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.LocaleState.WithLabelValues(locale, s).Set(v)
	}
}

// RecordModelLoad records how long a locale took to reach a terminal state.
func (m *NLUMetrics) RecordModelLoad(locale, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.ModelLoadDuration.WithLabelValues(locale, status).Observe(d.Seconds())
}

// RecordCache records a cache lookup outcome.
func (m *NLUMetrics) RecordCache(locale string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(locale).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(locale).Inc()
}

// RecordEvent records a publish outcome ("ok" or "error").
func (m *NLUMetrics) RecordEvent(status string) {
	if m == nil {
		return
	}
	m.EventsPublishedTotal.WithLabelValues(status).Inc()
}

// RecordArtifactDownload records an object storage fetch.
func (m *NLUMetrics) RecordArtifactDownload(locale, status string) {
	if m == nil {
		return
	}
	m.ArtifactDownloadTotal.WithLabelValues(locale, status).Inc()
}

//Personal.AI order the ending
