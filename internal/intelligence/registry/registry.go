// Package registry serves locale-scoped models that load in the background.
//
// Build creates one slot per locale and starts one loader goroutine per
// slot. Each slot carries a one-shot gate, a channel that the loader closes
// exactly once after it has stored either the model or the failure. Readers
// that arrive while a locale is still loading wait on the gate; readers that
// arrive afterwards see the closed channel and return without locking.
package registry

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MultiNLU/pkg/errors"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

// Loader builds the model for one locale. It runs on its own goroutine and
// must be safe to call concurrently for different locales.
type Loader[M any] func(ctx context.Context, locale string) (M, error)

// Transition describes a slot entering a state. Err and Duration are set for
// terminal states only.
type Transition struct {
	Locale   string
	State    nlu.LocaleState
	Err      error
	Duration time.Duration
}

// Observer is notified of every slot transition. Loading transitions are
// delivered synchronously from Build; terminal transitions from the loader
// goroutine after the gate has closed.
type Observer func(Transition)

type slot[M any] struct {
	locale string
	done   chan struct{}

	// written by the loader goroutine before done is closed, read-only after
	model    M
	err      error
	duration time.Duration
}

func (s *slot[M]) terminal() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Registry maps locale codes to slots. The key set is fixed by Build.
type Registry[M any] struct {
	slots     map[string]*slot[M]
	order     []string
	logger    logging.Logger
	observers []Observer
	loadCtx   context.Context
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	logger    logging.Logger
	observers []Observer
	loadCtx   context.Context
}

// WithLogger sets the logger used for load progress.
func WithLogger(l logging.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver registers a transition callback. It may be given several times.
func WithObserver(fn Observer) Option {
	return func(o *options) {
		if fn != nil {
			o.observers = append(o.observers, fn)
		}
	}
}

// WithLoadContext sets the context handed to every loader. Defaults to
// context.Background.
func WithLoadContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.loadCtx = ctx
		}
	}
}

// Build creates a Loading slot for every distinct locale and starts the
// loaders. It returns immediately; it never waits for a load to finish.
func Build[M any](locales []string, loader Loader[M], opts ...Option) *Registry[M] {
	o := options{logger: logging.NewNopLogger(), loadCtx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Registry[M]{
		slots:     make(map[string]*slot[M], len(locales)),
		logger:    o.logger.Named("registry"),
		observers: o.observers,
		loadCtx:   o.loadCtx,
	}
	for _, code := range locales {
		if _, dup := r.slots[code]; dup {
			continue
		}
		r.slots[code] = &slot[M]{locale: code, done: make(chan struct{})}
		r.order = append(r.order, code)
	}

	// the map is complete before any goroutine starts and never written again
	for _, code := range r.order {
		r.notify(Transition{Locale: code, State: nlu.LocaleLoading})
	}
	for _, code := range r.order {
		go r.load(r.slots[code], loader)
	}
	return r
}

func (r *Registry[M]) load(s *slot[M], loader Loader[M]) {
	start := time.Now()
	r.logger.Info("loading model", logging.String("locale", s.locale))

	defer func() {
		if p := recover(); p != nil {
			var zero M
			s.model = zero
			s.err = errors.ModelLoadFailed(s.locale, fmt.Errorf("loader panic: %v", p))
		}
		s.duration = time.Since(start)
		close(s.done)

		t := Transition{Locale: s.locale, State: nlu.LocaleReady, Duration: s.duration}
		if s.err != nil {
			t.State = nlu.LocaleFailed
			t.Err = s.err
			r.logger.Error("model load failed",
				logging.String("locale", s.locale),
				logging.Duration("duration", s.duration),
				logging.Err(s.err))
		} else {
			r.logger.Info("model ready",
				logging.String("locale", s.locale),
				logging.Duration("duration", s.duration))
		}
		r.notify(t)
	}()

	model, err := loader(r.loadCtx, s.locale)
	switch {
	case err != nil:
		s.err = errors.ModelLoadFailed(s.locale, err)
	case isNil(model):
		s.err = errors.ModelLoadFailed(s.locale, fmt.Errorf("loader returned no model"))
	default:
		s.model = model
	}
}

func (r *Registry[M]) notify(t Transition) {
	for _, fn := range r.observers {
		fn(t)
	}
}

// Get returns the model for code. It blocks only while that locale is still
// loading, and returns early with the context error when ctx ends first.
// Unknown locales fail with ErrCodeUnknownLocale and failed loads with
// ErrCodeModelLoadFailed; the failure is the same for every caller.
func (r *Registry[M]) Get(ctx context.Context, code string) (M, error) {
	var zero M
	s, ok := r.slots[code]
	if !ok {
		return zero, errors.UnknownLocale(code)
	}

	select {
	case <-s.done:
	default:
		select {
		case <-s.done:
		case <-ctx.Done():
			return zero, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "gave up waiting for locale model").WithDetail(code)
		}
	}

	if s.err != nil {
		return zero, s.err
	}
	return s.model, nil
}

// Has reports whether code has a slot.
func (r *Registry[M]) Has(code string) bool {
	_, ok := r.slots[code]
	return ok
}

// Locales returns the locale codes in the order given to Build.
func (r *Registry[M]) Locales() []string {
	return append([]string(nil), r.order...)
}

// Status returns a snapshot of one slot without blocking.
func (r *Registry[M]) Status(code string) (nlu.LocaleStatus, bool) {
	s, ok := r.slots[code]
	if !ok {
		return nlu.LocaleStatus{}, false
	}
	st := nlu.LocaleStatus{Locale: code, State: nlu.LocaleLoading}
	if !s.terminal() {
		return st, true
	}
	st.LoadDuration = s.duration.Round(time.Millisecond).String()
	if s.err != nil {
		st.State = nlu.LocaleFailed
		st.Error = s.err.Error()
		return st, true
	}
	st.State = nlu.LocaleReady
	return st, true
}

// Statuses returns a snapshot of every slot in Build order.
func (r *Registry[M]) Statuses() []nlu.LocaleStatus {
	out := make([]nlu.LocaleStatus, 0, len(r.order))
	for _, code := range r.order {
		st, _ := r.Status(code)
		out = append(out, st)
	}
	return out
}

// Failed returns the locales whose load failed.
func (r *Registry[M]) Failed() []string {
	var out []string
	for _, code := range r.order {
		s := r.slots[code]
		if s.terminal() && s.err != nil {
			out = append(out, code)
		}
	}
	return out
}

// Wait blocks until every slot is terminal or ctx ends.
func (r *Registry[M]) Wait(ctx context.Context) error {
	for _, code := range r.order {
		select {
		case <-r.slots[code].done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// isNil reports whether v is a nil interface, pointer, map, slice, func or chan.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

//Personal.AI order the ending
