// Package nlu dispatches parse requests to the locale's model and overlays
// taxonomy entities on the model output.
package nlu

import (
	"context"
	"time"

	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/MultiNLU/internal/intelligence/common"
	"github.com/turtacn/MultiNLU/internal/intelligence/taxonomy"
	"github.com/turtacn/MultiNLU/pkg/errors"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

// Models is the locale registry as seen by the service.
type Models interface {
	Get(ctx context.Context, code string) (common.Interpreter, error)
	Has(code string) bool
	Statuses() []nlu.LocaleStatus
}

// ResultCache memoizes complete parse results per locale and text.
type ResultCache interface {
	GetOrLoad(ctx context.Context, locale, text string,
		load func(ctx context.Context) (nlu.ParseResult, error)) (nlu.ParseResult, bool, error)
}

// EventPublisher emits one event per dispatched request.
type EventPublisher interface {
	PublishParse(ctx context.Context, ev nlu.ParseEvent) error
}

// Service is the request dispatcher.
type Service interface {
	Parse(ctx context.Context, locale, text string) (nlu.ParseResult, error)
	Locales() []nlu.LocaleStatus
}

type service struct {
	models    Models
	matcher   *taxonomy.Matcher
	cache     ResultCache
	publisher EventPublisher
	metrics   *prometheus.NLUMetrics
	logger    logging.Logger
}

// Option configures the service.
type Option func(*service)

// WithCache enables result caching.
func WithCache(c ResultCache) Option {
	return func(s *service) { s.cache = c }
}

// WithPublisher enables parse events.
func WithPublisher(p EventPublisher) Option {
	return func(s *service) { s.publisher = p }
}

// WithMetrics records parse metrics.
func WithMetrics(m *prometheus.NLUMetrics) Option {
	return func(s *service) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService wires a dispatcher. A nil matcher behaves like an empty taxonomy.
func NewService(models Models, matcher *taxonomy.Matcher, opts ...Option) Service {
	if matcher == nil {
		matcher = taxonomy.NewMatcher(taxonomy.Empty())
	}
	s := &service{models: models, matcher: matcher, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("dispatcher")
	return s
}

// Parse resolves locale, waits for its model if it is still loading, parses
// text and appends the taxonomy matches to the result's entities.
func (s *service) Parse(ctx context.Context, requested, text string) (nlu.ParseResult, error) {
	start := time.Now()
	locale := ResolveLocale(requested)
	if !s.models.Has(locale) {
		s.metrics.RecordParse("unknown", "unknown_locale", time.Since(start))
		return nil, errors.UnknownLocale(locale)
	}

	var (
		result  nlu.ParseResult
		matches []nlu.EntityMatch
		cached  bool
		err     error
	)
	load := func(ctx context.Context) (nlu.ParseResult, error) {
		interp, err := s.models.Get(ctx, locale)
		if err != nil {
			return nil, err
		}
		res, err := interp.Parse(ctx, text)
		if err != nil {
			code := errors.GetCode(err)
			if code == errors.CodeUnknown {
				code = errors.ErrCodeParseFailed
			}
			return nil, errors.Wrap(err, code, "model parse failed").WithDetail(locale)
		}
		if res == nil {
			res = nlu.ParseResult{}
		}
		matches = s.matcher.Recognize(text)
		res.AppendEntities(matches)
		return res, nil
	}

	if s.cache != nil {
		result, cached, err = s.cache.GetOrLoad(ctx, locale, text, load)
		s.metrics.RecordCache(locale, cached)
	} else {
		result, err = load(ctx)
	}

	elapsed := time.Since(start)
	if err != nil {
		s.metrics.RecordParse(locale, statusFor(err), elapsed)
		s.logger.Warn("parse failed",
			logging.String("locale", locale),
			logging.String("requested", requested),
			logging.String("code", errors.GetCode(err).String()),
			logging.Err(err))
		return nil, err
	}

	s.metrics.RecordParse(locale, "ok", elapsed)
	for _, m := range matches {
		s.metrics.RecordTaxonomyMatch(m.Entity)
	}
	s.publish(ctx, requested, locale, result, len(matches), cached, elapsed)

	s.logger.Debug("parsed",
		logging.String("locale", locale),
		logging.Int("taxonomy_matches", len(matches)),
		logging.Bool("cached", cached),
		logging.Duration("elapsed", elapsed))
	return result, nil
}

func (s *service) publish(ctx context.Context, requested, locale string, result nlu.ParseResult,
	matches int, cached bool, elapsed time.Duration) {
	if s.publisher == nil {
		return
	}
	ev := nlu.NewParseEvent(locale, requested)
	ev.Intent = result.Intent()
	ev.EntityCount = len(result.Entities())
	ev.TaxonomyMatches = matches
	ev.Cached = cached
	ev.DurationMS = elapsed.Milliseconds()

	if err := s.publisher.PublishParse(ctx, ev); err != nil {
		s.metrics.RecordEvent("error")
		return
	}
	s.metrics.RecordEvent("ok")
}

// Locales returns a snapshot of every slot.
func (s *service) Locales() []nlu.LocaleStatus {
	return s.models.Statuses()
}

func statusFor(err error) string {
	switch errors.GetCode(err) {
	case errors.ErrCodeUnknownLocale:
		return "unknown_locale"
	case errors.ErrCodeModelLoadFailed:
		return "model_failed"
	case errors.ErrCodeTimeout:
		return "timeout"
	default:
		return "error"
	}
}

//Personal.AI order the ending
