package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MultiNLU/pkg/errors"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	parse    func(ctx context.Context, locale, text string) (nlu.ParseResult, error)
	statuses []nlu.LocaleStatus

	gotLocale, gotText string
}

func (f *fakeService) Parse(ctx context.Context, locale, text string) (nlu.ParseResult, error) {
	f.gotLocale, f.gotText = locale, text
	if f.parse != nil {
		return f.parse(ctx, locale, text)
	}
	return nlu.ParseResult{"text": text, "entities": []interface{}{}}, nil
}

func (f *fakeService) Locales() []nlu.LocaleStatus { return f.statuses }

func nluEngine(svc *fakeService) *gin.Engine {
	h := NewNLUHandler(svc)
	r := gin.New()
	r.GET("/nlu/", h.Hello)
	r.POST("/nlu/", h.Parse)
	r.GET("/nlu/locales", h.Locales)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) nlu.ErrorResponse {
	t.Helper()
	var body nlu.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHello(t *testing.T) {
	w := do(nluEngine(&fakeService{}), http.MethodGet, "/nlu/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	assert.Equal(t, "Hello from MultiNLU 1.0", w.Body.String())
}

func TestParse_OK(t *testing.T) {
	svc := &fakeService{}
	w := do(nluEngine(svc), http.MethodPost, "/nlu/", `{"locale":"de_DE","text":"Hallo Welt"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "de_DE", svc.gotLocale)
	assert.Equal(t, "Hallo Welt", svc.gotText)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "Hallo Welt", res["text"])
	assert.Equal(t, []interface{}{}, res["entities"])
}

func TestParse_EmptyTextAllowed(t *testing.T) {
	w := do(nluEngine(&fakeService{}), http.MethodPost, "/nlu/", `{"locale":"en","text":""}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestParse_BadRequests(t *testing.T) {
	cases := map[string]string{
		"not json":       `locale=en`,
		"missing locale": `{"text":"hi"}`,
		"empty locale":   `{"locale":"","text":"hi"}`,
		"missing text":   `{"locale":"en"}`,
		"wrong type":     `{"locale":1,"text":"hi"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(nluEngine(&fakeService{}), http.MethodPost, "/nlu/", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "COMMON_002", decodeError(t, w).Code)
		})
	}
}

func TestParse_ErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"unknown locale", errors.UnknownLocale("fr"), http.StatusNotFound, "NLU_002", "Locale fr not found"},
		{"model failed", errors.ModelLoadFailed("de", fmt.Errorf("boom")), http.StatusServiceUnavailable, "NLU_003", "model for locale de failed to load"},
		{"parse failed", errors.New(errors.ErrCodeParseFailed, "model parse failed"), http.StatusBadGateway, "NLU_004", "model parse failed"},
		{"timeout", errors.New(errors.ErrCodeTimeout, "gave up"), http.StatusGatewayTimeout, "COMMON_009", "gave up"},
		{"plain error", fmt.Errorf("secret internals"), http.StatusInternalServerError, "COMMON_001", "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{parse: func(context.Context, string, string) (nlu.ParseResult, error) {
				return nil, tc.err
			}}
			w := do(nluEngine(svc), http.MethodPost, "/nlu/", `{"locale":"xx","text":"hi"}`)

			assert.Equal(t, tc.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tc.code, body.Code)
			assert.Equal(t, tc.message, body.Message)
		})
	}
}

func TestLocales(t *testing.T) {
	svc := &fakeService{statuses: []nlu.LocaleStatus{
		{Locale: "de", State: nlu.LocaleReady},
		{Locale: "en", State: nlu.LocaleLoading},
	}}
	w := do(nluEngine(svc), http.MethodGet, "/nlu/locales", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Locales []nlu.LocaleStatus `json:"locales"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, svc.statuses, body.Locales)
}

// ---------------------------------------------------------------------------
// health
// ---------------------------------------------------------------------------

func healthEngine(h *HealthHandler) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	return r
}

func readiness(t *testing.T, h *HealthHandler) (int, ReadinessResponse) {
	t.Helper()
	w := do(healthEngine(h), http.MethodGet, "/readyz", "")
	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestLiveness(t *testing.T) {
	w := do(healthEngine(NewHealthHandler("v1", nil)), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp LivenessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alive", resp.Status)
	assert.Equal(t, "v1", resp.Version)
}

func TestReadiness(t *testing.T) {
	ok := CheckFunc{ComponentName: "cache", Fn: func(context.Context) error { return nil }}
	down := CheckFunc{ComponentName: "artifacts", Fn: func(context.Context) error { return fmt.Errorf("unreachable") }}

	cases := []struct {
		name     string
		states   []nlu.LocaleState
		checkers []HealthChecker
		status   int
		want     string
	}{
		{"all ready", []nlu.LocaleState{nlu.LocaleReady, nlu.LocaleReady}, []HealthChecker{ok}, http.StatusOK, "ready"},
		{"loading", []nlu.LocaleState{nlu.LocaleReady, nlu.LocaleLoading}, nil, http.StatusOK, "degraded"},
		{"component down", []nlu.LocaleState{nlu.LocaleReady}, []HealthChecker{ok, down}, http.StatusOK, "degraded"},
		{"locale failed", []nlu.LocaleState{nlu.LocaleReady, nlu.LocaleFailed}, []HealthChecker{ok}, http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &fakeService{}
			for i, st := range tc.states {
				svc.statuses = append(svc.statuses, nlu.LocaleStatus{Locale: fmt.Sprintf("l%d", i), State: st})
			}
			code, resp := readiness(t, NewHealthHandler("v1", svc, tc.checkers...))
			assert.Equal(t, tc.status, code)
			assert.Equal(t, tc.want, resp.Status)
			assert.Len(t, resp.Locales, len(tc.states))
			assert.Len(t, resp.Components, len(tc.checkers))
		})
	}
}

func TestReadiness_ComponentDetail(t *testing.T) {
	down := CheckFunc{ComponentName: "cache", Fn: func(context.Context) error { return fmt.Errorf("dial tcp: refused") }}
	_, resp := readiness(t, NewHealthHandler("v1", &fakeService{}, down))

	require.Contains(t, resp.Components, "cache")
	assert.Equal(t, nlu.HealthDown, resp.Components["cache"].Status)
	assert.Equal(t, "dial tcp: refused", resp.Components["cache"].Message)
}

//Personal.AI order the ending
