package prometheus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewNLUMetrics_RecordHelpers(t *testing.T) {
	c := newTestCollector(t)
	m := NewNLUMetrics(c)

	m.RecordHTTPRequest("POST", "/nlu/", 200, 10*time.Millisecond)
	m.RecordParse("de", "ok", 20*time.Millisecond)
	m.RecordTaxonomyMatch("color")
	m.SetTaxonomySize(1, 2, 5)
	m.RecordModelLoad("de", "ready", 3*time.Second)
	m.RecordCache("de", true)
	m.RecordCache("de", false)
	m.RecordEvent("ok")
	m.RecordArtifactDownload("de", "ok")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_http_requests_total{method="POST",path="/nlu/",status_code="200"} 1`)
	assert.Contains(t, out, `test_unit_parse_requests_total{locale="de",status="ok"} 1`)
	assert.Contains(t, out, `test_unit_taxonomy_matches_total{group="color"} 1`)
	assert.Contains(t, out, `test_unit_taxonomy_size{kind="values"} 5`)
	assert.Contains(t, out, `test_unit_model_load_duration_seconds_count{locale="de",status="ready"} 1`)
	assert.Contains(t, out, `test_unit_cache_hits_total{locale="de"} 1`)
	assert.Contains(t, out, `test_unit_cache_misses_total{locale="de"} 1`)
	assert.Contains(t, out, `test_unit_events_published_total{status="ok"} 1`)
	assert.Contains(t, out, `test_unit_artifact_downloads_total{locale="de",status="ok"} 1`)
}

func TestSetLocaleState_OneHot(t *testing.T) {
	c := newTestCollector(t)
	m := NewNLUMetrics(c)

	m.SetLocaleState("en", "loading")
	m.SetLocaleState("en", "failed")

	out := scrapeMetrics(t, c)
	assert.Contains(t, out, `test_unit_locale_state{locale="en",state="failed"} 1`)
	assert.Contains(t, out, `test_unit_locale_state{locale="en",state="loading"} 0`)
	assert.Contains(t, out, `test_unit_locale_state{locale="en",state="ready"} 0`)
}

func TestNLUMetrics_NilReceiver(t *testing.T) {
	var m *NLUMetrics
	assert.NotPanics(t, func() {
		m.RecordParse("de", "ok", time.Second)
		m.SetLocaleState("de", "ready")
		m.RecordCache("de", true)
		m.RecordEvent("ok")
	})
}

//Personal.AI order the ending
