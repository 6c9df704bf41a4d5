// Package client is the Go SDK for the MultiNLU HTTP API.
//
//	c, err := client.NewClient("http://localhost:5005")
//	res, err := c.Parse(ctx, "de_DE", "Ich hätte gern einen Kaffee")
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/MultiNLU/pkg/errors"
)

// Version is sent in the User-Agent header.
const Version = "1.0.0"

// ErrInvalidConfig is returned by NewClient for an unusable base URL.
var ErrInvalidConfig = errors.New(errors.ErrCodeBadRequest, "invalid client configuration")

// Logger defines the logging interface used by the Client.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...interface{}) {}
func (noopLogger) Infof(string, ...interface{})  {}
func (noopLogger) Errorf(string, ...interface{}) {}

// Client talks to one MultiNLU server. It is safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	token        string
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	RequestID  string `json:"request_id"`

	// RetryAfter is the server's Retry-After hint, if any.
	RetryAfter time.Duration `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("multinlu: %s (HTTP %d): %s [request_id=%s]", e.Code, e.StatusCode, e.Message, e.RequestID)
}

// IsNotFound reports an unknown locale or route.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsRateLimited reports a 429.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsServerError reports a 5xx.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsModelUnavailable reports a locale whose model failed to load. The
// server never retries the load, so neither does the client.
func (e *APIError) IsModelUnavailable() bool {
	return e.Code == errors.ErrCodeModelLoadFailed.String()
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, ErrInvalidConfig.WithDetail("baseURL is empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, ErrInvalidConfig.WithDetail("invalid baseURL").WithCause(err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, ErrInvalidConfig.WithDetail("baseURL scheme must be http or https")
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		userAgent:    "multinlu-go-sdk/" + Version,
		logger:       noopLogger{},
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// request is one logical call; do may send it several times.
type request struct {
	method string
	path   string
	body   interface{}
	accept string
}

// do sends r, retrying network errors and 5xx answers with jittered
// exponential backoff, and 429 answers after Retry-After. The raw body of
// the final 2xx answer is returned.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	var payload []byte
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = b
	}
	if r.accept == "" {
		r.accept = "application/json"
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			wait := c.calculateBackoff(attempt)
			if apiErr, ok := lastErr.(*APIError); ok && apiErr.RetryAfter > 0 {
				wait = apiErr.RetryAfter
			}
			c.logger.Debugf("retry attempt %d after %v", attempt, wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, err := c.send(ctx, r, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !c.shouldRetry(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) send(ctx context.Context, r request, payload []byte) ([]byte, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.New().String()
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", r.accept)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Errorf("request failed: %v", err)
		return nil, err
	}
	defer resp.Body.Close()
	c.logger.Debugf("%s %s %d (%v)", r.method, r.path, resp.StatusCode, time.Since(start))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 400 {
		return respBody, nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, RequestID: requestID}
	if id := resp.Header.Get("X-Request-ID"); id != "" {
		apiErr.RequestID = id
	}
	if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && seconds > 0 {
		apiErr.RetryAfter = time.Duration(seconds) * time.Second
	}
	var errResp struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if len(respBody) > 0 && json.Unmarshal(respBody, &errResp) == nil {
		apiErr.Code = errResp.Code
		apiErr.Message = errResp.Message
		apiErr.Detail = errResp.Detail
	} else {
		apiErr.Message = string(respBody)
	}
	return nil, apiErr
}

// shouldRetry retries transport errors, 429 and 5xx, except a locale whose
// model failed to load.
func (c *Client) shouldRetry(err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return true
	}
	if apiErr.IsModelUnavailable() {
		return false
	}
	return apiErr.IsServerError() || apiErr.IsRateLimited()
}

// calculateBackoff is exponential from retryWaitMin, capped at retryWaitMax,
// plus up to 25% jitter.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax || backoff <= 0 {
		backoff = c.retryWaitMax
	}
	if q := int64(backoff / 4); q > 0 {
		backoff += time.Duration(rand.Int63n(q))
	}
	return backoff
}

//Personal.AI order the ending
