package registry

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/MultiNLU/internal/testutil"
	"github.com/turtacn/MultiNLU/pkg/errors"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

type fakeModel struct{ locale string }

// gatedLoader lets a test decide when each locale finishes loading.
type gatedLoader struct {
	mu      sync.Mutex
	release map[string]chan struct{}
	errs    map[string]error
	calls   map[string]int
}

func newGatedLoader(locales ...string) *gatedLoader {
	g := &gatedLoader{
		release: make(map[string]chan struct{}),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
	for _, l := range locales {
		g.release[l] = make(chan struct{})
	}
	return g
}

func (g *gatedLoader) load(ctx context.Context, locale string) (*fakeModel, error) {
	g.mu.Lock()
	g.calls[locale]++
	ch := g.release[locale]
	g.mu.Unlock()

	if ch != nil {
		<-ch
	}
	g.mu.Lock()
	err := g.errs[locale]
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &fakeModel{locale: locale}, nil
}

func (g *gatedLoader) finish(locale string, err error) {
	g.mu.Lock()
	g.errs[locale] = err
	ch := g.release[locale]
	g.mu.Unlock()
	close(ch)
}

func (g *gatedLoader) callCount(locale string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[locale]
}

func waitAll(t *testing.T, r interface{ Wait(context.Context) error }) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))
}

func TestBuild_ReturnsBeforeLoadsFinish(t *testing.T) {
	g := newGatedLoader("de", "en")
	r := Build([]string{"de", "en"}, g.load)

	st, ok := r.Status("de")
	require.True(t, ok)
	assert.Equal(t, nlu.LocaleLoading, st.State)

	g.finish("de", nil)
	g.finish("en", nil)
	waitAll(t, r)
}

func TestGet_UnknownLocale(t *testing.T) {
	r := Build([]string{"de"}, func(context.Context, string) (*fakeModel, error) { return &fakeModel{}, nil })

	_, err := r.Get(context.Background(), "fr")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownLocale))
	assert.Contains(t, err.Error(), "Locale fr not found")
	assert.False(t, r.Has("fr"))
}

func TestGet_ConcurrentWaitersSeeSameInstance(t *testing.T) {
	g := newGatedLoader("de")
	r := Build([]string{"de"}, g.load)

	const n = 64
	results := make([]*fakeModel, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := r.Get(context.Background(), "de")
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}

	g.finish("de", nil)
	wg.Wait()

	require.NotNil(t, results[0])
	for _, m := range results {
		assert.Same(t, results[0], m)
	}
	assert.Equal(t, 1, g.callCount("de"), "exactly one load per locale")
}

func TestGet_FailedLoadIsStickyForEveryCaller(t *testing.T) {
	g := newGatedLoader("en")
	r := Build([]string{"en"}, g.load)
	cause := stderrors.New("artifact corrupt")

	const n = 16
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.Get(context.Background(), "en")
		}(i)
	}
	g.finish("en", cause)
	wg.Wait()

	for _, err := range errs {
		require.Error(t, err)
		assert.Same(t, errs[0], err)
		assert.True(t, errors.IsCode(err, errors.ErrCodeModelLoadFailed))
		assert.True(t, stderrors.Is(err, cause))
	}

	// later readers get the same error and no retry happens
	_, err := r.Get(context.Background(), "en")
	assert.Same(t, errs[0], err)
	assert.Equal(t, 1, g.callCount("en"))
	assert.Equal(t, []string{"en"}, r.Failed())
}

func TestGet_ReadyLocaleDoesNotWaitForOthers(t *testing.T) {
	g := newGatedLoader("de", "en")
	r := Build([]string{"de", "en"}, g.load)
	g.finish("de", nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m, err := r.Get(ctx, "de")
	require.NoError(t, err)
	assert.Equal(t, "de", m.locale)

	st, _ := r.Status("en")
	assert.Equal(t, nlu.LocaleLoading, st.State)

	g.finish("en", nil)
	waitAll(t, r)
}

func TestGet_LoadsRunInParallel(t *testing.T) {
	var inFlight, peak int32
	barrier := make(chan struct{})
	loader := func(ctx context.Context, locale string) (*fakeModel, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		<-barrier
		atomic.AddInt32(&inFlight, -1)
		return &fakeModel{locale: locale}, nil
	}

	r := Build([]string{"de", "en", "fr"}, loader)
	require.Eventually(t, func() bool { return atomic.LoadInt32(&inFlight) == 3 }, time.Second, time.Millisecond)
	close(barrier)
	waitAll(t, r)
	assert.Equal(t, int32(3), atomic.LoadInt32(&peak))
}

func TestGet_ContextCancelledWhileLoading(t *testing.T) {
	g := newGatedLoader("de")
	r := Build([]string{"de"}, g.load)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Get(ctx, "de")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))

	// the slot is unaffected by the abandoned wait
	g.finish("de", nil)
	m, err := r.Get(context.Background(), "de")
	require.NoError(t, err)
	assert.Equal(t, "de", m.locale)
}

func TestLoad_PanicBecomesFailure(t *testing.T) {
	r := Build([]string{"de"}, func(context.Context, string) (*fakeModel, error) {
		panic("model file truncated")
	})

	_, err := r.Get(context.Background(), "de")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelLoadFailed))
	assert.Contains(t, stderrors.Unwrap(err).Error(), "model file truncated")
}

func TestLoad_NilModelBecomesFailure(t *testing.T) {
	r := Build([]string{"de"}, func(context.Context, string) (*fakeModel, error) { return nil, nil })

	m, err := r.Get(context.Background(), "de")
	assert.Nil(t, m)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelLoadFailed))
}

func TestLoad_InterfaceModel(t *testing.T) {
	type parser interface{ Name() string }
	r := Build([]string{"de"}, func(context.Context, string) (parser, error) { return nil, nil })

	_, err := r.Get(context.Background(), "de")
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelLoadFailed))
}

func TestBuild_DuplicateLocalesLoadOnce(t *testing.T) {
	var calls int32
	r := Build([]string{"de", "en", "de"}, func(_ context.Context, l string) (*fakeModel, error) {
		atomic.AddInt32(&calls, 1)
		return &fakeModel{locale: l}, nil
	})
	waitAll(t, r)

	assert.Equal(t, []string{"de", "en"}, r.Locales())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestStatuses_Snapshot(t *testing.T) {
	g := newGatedLoader("de", "en", "fr")
	r := Build([]string{"de", "en", "fr"}, g.load)
	g.finish("de", nil)
	g.finish("en", stderrors.New("no artifact"))

	require.Eventually(t, func() bool {
		st, _ := r.Status("en")
		return st.State == nlu.LocaleFailed
	}, time.Second, time.Millisecond)
	_, _ = r.Get(context.Background(), "de")

	statuses := r.Statuses()
	require.Len(t, statuses, 3)
	assert.Equal(t, nlu.LocaleReady, statuses[0].State)
	assert.NotEmpty(t, statuses[0].LoadDuration)
	assert.Equal(t, nlu.LocaleFailed, statuses[1].State)
	assert.Contains(t, statuses[1].Error, "no artifact")
	assert.Equal(t, nlu.LocaleLoading, statuses[2].State)

	_, ok := r.Status("xx")
	assert.False(t, ok)

	g.finish("fr", nil)
	waitAll(t, r)
}

func TestWait_ContextEnds(t *testing.T) {
	g := newGatedLoader("de")
	r := Build([]string{"de"}, g.load)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.Canceled)
	g.finish("de", nil)
}

func TestObserver_ReceivesTransitions(t *testing.T) {
	var mu sync.Mutex
	var seen []Transition
	observer := func(tr Transition) {
		mu.Lock()
		seen = append(seen, tr)
		mu.Unlock()
	}

	g := newGatedLoader("de", "en")
	logger := testutil.NewMockLogger()
	r := Build([]string{"de", "en"}, g.load, WithObserver(observer), WithLogger(logger), WithObserver(nil))

	mu.Lock()
	require.Len(t, seen, 2)
	assert.Equal(t, nlu.LocaleLoading, seen[0].State)
	mu.Unlock()

	g.finish("de", nil)
	g.finish("en", stderrors.New("boom"))
	waitAll(t, r)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 4
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	states := map[string]nlu.LocaleState{}
	for _, tr := range seen[2:] {
		states[tr.Locale] = tr.State
		if tr.State == nlu.LocaleFailed {
			assert.ErrorContains(t, tr.Err, "boom")
		}
	}
	assert.Equal(t, nlu.LocaleReady, states["de"])
	assert.Equal(t, nlu.LocaleFailed, states["en"])

	assert.Eventually(t, func() bool { return logger.HasMessage("error", "model load failed") }, time.Second, time.Millisecond)
	failed, _ := logger.Find("error", "model load failed")
	var logged interface{}
	for _, f := range failed.Fields {
		if f.Key == "error" {
			logged = f.Value
		}
	}
	assert.Contains(t, logged, "boom")
	assert.Equal(t, "registry", func() string { m, _ := logger.Find("info", "loading model"); return m.Logger }())
}

func TestWithLoadContext_PassedToLoader(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")
	got := make(chan interface{}, 1)

	r := Build([]string{"de"}, func(ctx context.Context, l string) (*fakeModel, error) {
		got <- ctx.Value(key{})
		return &fakeModel{locale: l}, nil
	}, WithLoadContext(ctx))
	waitAll(t, r)

	assert.Equal(t, "marker", <-got)
}

func TestIsNil(t *testing.T) {
	var p *fakeModel
	var m map[string]int
	assert.True(t, isNil(nil))
	assert.True(t, isNil(p))
	assert.True(t, isNil(m))
	assert.False(t, isNil(&fakeModel{}))
	assert.False(t, isNil(fakeModel{}))
	assert.False(t, isNil(0))
}

//Personal.AI order the ending
