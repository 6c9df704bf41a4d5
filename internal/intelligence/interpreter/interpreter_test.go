package interpreter

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/MultiNLU/internal/testutil"
	"github.com/turtacn/MultiNLU/pkg/errors"
)

// fakeRasa emulates the model server endpoints the interpreter uses.
type fakeRasa struct {
	statusCalls int32
	notReadyFor int32
	activated   atomic.Value
	parseStatus int
	lastToken   atomic.Value
}

func (f *fakeRasa) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&f.statusCalls, 1)
		if n <= atomic.LoadInt32(&f.notReadyFor) {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"model_file": "current.tar.gz"}`))
	})
	mux.HandleFunc("/model", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.activated.Store(body["model_file"])
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/model/parse", func(w http.ResponseWriter, r *http.Request) {
		f.lastToken.Store(r.URL.Query().Get("token"))
		if f.parseStatus != 0 {
			w.WriteHeader(f.parseStatus)
			_, _ = w.Write([]byte("model exploded"))
			return
		}
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"text":     body["text"],
			"intent":   map[string]interface{}{"name": "greet", "confidence": 0.97},
			"entities": []interface{}{map[string]interface{}{"entity": "name", "value": "anna", "confidence": 0.81}},
		})
	})
	return mux
}

type staticEndpoints map[string]string

func (s staticEndpoints) EndpointFor(lang string) string { return s[lang] }
func (s staticEndpoints) TokenFor(lang string) string    { return "" }

func writeArtifact(t *testing.T, dir, name string, mod time.Time) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("model"), 0o600))
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

// ─────────────────────────────────────────────────────────────────────────────
// HTTPInterpreter
// ─────────────────────────────────────────────────────────────────────────────

func TestHTTPInterpreter_Parse(t *testing.T) {
	fake := &fakeRasa{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	interp := NewHTTPInterpreter("en", srv.URL, "s3cret", nil)
	result, err := interp.Parse(context.Background(), "hi I am Anna")
	require.NoError(t, err)

	assert.Equal(t, "greet", result.Intent())
	assert.Equal(t, "hi I am Anna", result["text"])
	assert.Len(t, result.Entities(), 1)
	assert.Equal(t, "s3cret", fake.lastToken.Load())
	assert.Equal(t, "en", interp.Locale())
}

func TestHTTPInterpreter_Parse_MissingEntitiesBecomesEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"intent": {"name": "bye"}}`))
	}))
	defer srv.Close()

	result, err := NewHTTPInterpreter("de", srv.URL, "", nil).Parse(context.Background(), "tschüss")
	require.NoError(t, err)
	assert.NotNil(t, result.Entities())
	assert.Empty(t, result.Entities())
}

func TestHTTPInterpreter_Parse_ServerError(t *testing.T) {
	fake := &fakeRasa{parseStatus: http.StatusInternalServerError}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	_, err := NewHTTPInterpreter("en", srv.URL, "", nil).Parse(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeParseFailed))
	assert.Contains(t, err.Error(), "model exploded")
}

func TestHTTPInterpreter_Parse_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	_, err := NewHTTPInterpreter("en", srv.URL, "", nil).Parse(context.Background(), "x")
	assert.True(t, errors.IsCode(err, errors.ErrCodeParseFailed))
}

func TestHTTPInterpreter_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewHTTPInterpreter("en", url, "", nil).Ping(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeParseFailed))
}

// ─────────────────────────────────────────────────────────────────────────────
// Resolver
// ─────────────────────────────────────────────────────────────────────────────

func TestResolver_LatestPicksNewest(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root, "models_")
	dir := r.ModelDir("de")
	assert.Equal(t, filepath.Join(root, "models_de"), dir)

	now := time.Now()
	writeArtifact(t, dir, "20230101-000000.tar.gz", now.Add(-2*time.Hour))
	newest := writeArtifact(t, dir, "20230201-000000.tar.gz", now.Add(-time.Hour))
	writeArtifact(t, dir, "notes.txt", now)

	got, err := r.Latest(context.Background(), "de")
	require.NoError(t, err)
	assert.Equal(t, newest, got)
}

func TestResolver_NoArtifact(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root, "models_")

	_, err := r.Latest(context.Background(), "en")
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelNotFound), "missing directory")

	require.NoError(t, os.MkdirAll(r.ModelDir("en"), 0o755))
	_, err = r.Latest(context.Background(), "en")
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelNotFound), "empty directory")
}

type fakeFetcher struct {
	err  error
	name string
}

func (f fakeFetcher) FetchLatest(_ context.Context, lang, dest string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(dest, f.name)
	return path, os.WriteFile(path, []byte(lang), 0o600)
}

func TestResolver_FetcherFirst(t *testing.T) {
	r := NewResolver(t.TempDir(), "models_", WithFetcher(fakeFetcher{name: "remote.tar.gz"}))

	got, err := r.Latest(context.Background(), "de")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.ModelDir("de"), "remote.tar.gz"), got)
}

func TestResolver_FetcherFailureFallsBackToLocal(t *testing.T) {
	logger := testutil.NewMockLogger()
	r := NewResolver(t.TempDir(), "models_",
		WithFetcher(fakeFetcher{err: stderrors.New("bucket offline")}),
		WithResolverLogger(logger))
	local := writeArtifact(t, r.ModelDir("de"), "local.tar.gz", time.Now())

	got, err := r.Latest(context.Background(), "de")
	require.NoError(t, err)
	assert.Equal(t, local, got)
	assert.True(t, logger.HasMessage("warn", "model artifact download failed, using local copy"))
}

// ─────────────────────────────────────────────────────────────────────────────
// Loader
// ─────────────────────────────────────────────────────────────────────────────

func TestLoader_ActivatesNewestArtifact(t *testing.T) {
	fake := &fakeRasa{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	resolver := NewResolver(t.TempDir(), "models_")
	artifact := writeArtifact(t, resolver.ModelDir("de"), "nlu.tar.gz", time.Now())

	loader := NewLoader(LoaderConfig{Activate: true, ReadyTimeout: time.Second},
		staticEndpoints{"de": srv.URL}, resolver, nil)

	interp, err := loader.Load(context.Background(), "de")
	require.NoError(t, err)
	assert.Equal(t, artifact, fake.activated.Load())
	assert.Equal(t, artifact, interp.(*HTTPInterpreter).Artifact())

	result, err := interp.Parse(context.Background(), "hallo")
	require.NoError(t, err)
	assert.Equal(t, "greet", result.Intent())
}

func TestLoader_WaitsForServer(t *testing.T) {
	fake := &fakeRasa{notReadyFor: 2}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	loader := NewLoader(LoaderConfig{ReadyTimeout: 2 * time.Second, PollInterval: 5 * time.Millisecond},
		staticEndpoints{"en": srv.URL}, nil, nil)

	_, err := loader.Load(context.Background(), "en")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&fake.statusCalls))
	assert.Nil(t, fake.activated.Load(), "activation disabled")
}

func TestLoader_ServerNeverReady(t *testing.T) {
	fake := &fakeRasa{notReadyFor: 1 << 20}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	loader := NewLoader(LoaderConfig{ReadyTimeout: 30 * time.Millisecond, PollInterval: 5 * time.Millisecond},
		staticEndpoints{"en": srv.URL}, nil, nil)

	_, err := loader.Load(context.Background(), "en")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelLoadFailed))
}

func TestLoader_MissingArtifact(t *testing.T) {
	fake := &fakeRasa{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	loader := NewLoader(LoaderConfig{Activate: true}, staticEndpoints{"de": srv.URL},
		NewResolver(t.TempDir(), "models_"), nil)

	_, err := loader.Load(context.Background(), "de")
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelNotFound))
}

func TestLoader_NoEndpoint(t *testing.T) {
	loader := NewLoader(LoaderConfig{}, staticEndpoints{}, nil, nil)
	_, err := loader.Load(context.Background(), "fr")
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelNotFound))
}

func TestLoader_ActivateWithoutResolver(t *testing.T) {
	fake := &fakeRasa{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	loader := NewLoader(LoaderConfig{Activate: true}, staticEndpoints{"de": srv.URL}, nil, nil)
	_, err := loader.Load(context.Background(), "de")
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelNotFound))
}

//Personal.AI order the ending
