// Package reporting aggregates the parse events published by MultiNLU
// servers into per-locale usage reports and Prometheus series.
package reporting

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/MultiNLU/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

// NoIntent labels events whose model returned no intent.
const NoIntent = "none"

// LocaleUsage summarises the events of one resolved locale.
type LocaleUsage struct {
	Locale          string           `json:"locale"`
	Requests        int64            `json:"requests"`
	CacheHits       int64            `json:"cache_hits"`
	Entities        int64            `json:"entities"`
	TaxonomyMatches int64            `json:"taxonomy_matches"`
	AvgDurationMS   float64          `json:"avg_duration_ms"`
	Intents         map[string]int64 `json:"intents"`
	LastSeen        time.Time        `json:"last_seen"`

	totalDurationMS int64
}

// CacheHitRatio is CacheHits over Requests, or 0 without requests.
func (u LocaleUsage) CacheHitRatio() float64 {
	if u.Requests == 0 {
		return 0
	}
	return float64(u.CacheHits) / float64(u.Requests)
}

// Report is a point-in-time view over every locale seen so far.
type Report struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Since       time.Time     `json:"since"`
	Skipped     int64         `json:"skipped"`
	Locales     []LocaleUsage `json:"locales"`
}

// Aggregator consumes parse events. It is safe for concurrent use.
type Aggregator struct {
	logger logging.Logger
	now    func() time.Time

	events   prometheus.CounterVec
	duration prometheus.HistogramVec
	skipped  prometheus.CounterVec

	mu      sync.RWMutex
	since   time.Time
	locales map[string]*LocaleUsage
	dropped int64
}

// NewAggregator registers the report series on collector. A nil collector
// keeps the report in memory only.
func NewAggregator(collector prometheus.MetricsCollector, logger logging.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	a := &Aggregator{
		logger:  logger,
		now:     time.Now,
		locales: make(map[string]*LocaleUsage),
	}
	a.since = a.now().UTC()
	if collector != nil {
		a.events = collector.RegisterCounter("report_parse_events_total",
			"Parse events consumed, by resolved locale, intent and cache outcome.",
			"locale", "intent", "cached")
		a.duration = collector.RegisterHistogram("report_parse_duration_seconds",
			"Server side parse duration reported by parse events.", nil, "locale")
		a.skipped = collector.RegisterCounter("report_events_skipped_total",
			"Messages on the events topic that were not parse events.", "reason")
	}
	return a
}

// Handle is a kafka.MessageHandler. Messages that do not decode are counted
// and skipped so that the consumer commits them.
func (a *Aggregator) Handle(ctx context.Context, msg *kafka.Message) error {
	ev, err := kafka.DecodeParseEvent(msg)
	if err != nil {
		a.mu.Lock()
		a.dropped++
		a.mu.Unlock()
		if a.skipped != nil {
			a.skipped.WithLabelValues("undecodable").Inc()
		}
		a.logger.Warn("skipping undecodable event",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
		return nil
	}
	a.Record(ev)
	return nil
}

// Record adds one event to the report.
func (a *Aggregator) Record(ev nlu.ParseEvent) {
	intent := ev.Intent
	if intent == "" {
		intent = NoIntent
	}

	a.mu.Lock()
	u, ok := a.locales[ev.Locale]
	if !ok {
		u = &LocaleUsage{Locale: ev.Locale, Intents: make(map[string]int64)}
		a.locales[ev.Locale] = u
	}
	u.Requests++
	if ev.Cached {
		u.CacheHits++
	}
	u.Entities += int64(ev.EntityCount)
	u.TaxonomyMatches += int64(ev.TaxonomyMatches)
	u.totalDurationMS += ev.DurationMS
	u.AvgDurationMS = float64(u.totalDurationMS) / float64(u.Requests)
	u.Intents[intent]++
	if ev.OccurredAt.After(u.LastSeen) {
		u.LastSeen = ev.OccurredAt
	}
	a.mu.Unlock()

	if a.events != nil {
		a.events.WithLabelValues(ev.Locale, intent, boolLabel(ev.Cached)).Inc()
	}
	if a.duration != nil && !ev.Cached {
		a.duration.WithLabelValues(ev.Locale).Observe(float64(ev.DurationMS) / 1000)
	}
}

// Report returns a copy of the current aggregates, locales sorted by code.
func (a *Aggregator) Report() Report {
	a.mu.RLock()
	defer a.mu.RUnlock()

	r := Report{
		GeneratedAt: a.now().UTC(),
		Since:       a.since,
		Skipped:     a.dropped,
		Locales:     make([]LocaleUsage, 0, len(a.locales)),
	}
	for _, u := range a.locales {
		c := *u
		c.Intents = make(map[string]int64, len(u.Intents))
		for k, v := range u.Intents {
			c.Intents[k] = v
		}
		r.Locales = append(r.Locales, c)
	}
	sort.Slice(r.Locales, func(i, j int) bool { return r.Locales[i].Locale < r.Locales[j].Locale })
	return r
}

// Reset clears the aggregates and starts a new reporting window.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.locales = make(map[string]*LocaleUsage)
	a.dropped = 0
	a.since = a.now().UTC()
}

// TopIntents returns up to n intents of u by count, ties broken by name.
func (u LocaleUsage) TopIntents(n int) []IntentCount {
	out := make([]IntentCount, 0, len(u.Intents))
	for name, c := range u.Intents {
		out = append(out, IntentCount{Intent: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Intent < out[j].Intent
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// IntentCount is one row of TopIntents.
type IntentCount struct {
	Intent string `json:"intent"`
	Count  int64  `json:"count"`
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

//Personal.AI order the ending
