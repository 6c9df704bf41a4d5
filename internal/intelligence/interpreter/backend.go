// Package interpreter connects locale slots to Rasa-compatible model servers.
// A Loader resolves the newest artifact of a language, optionally activates
// it on the language's model server, and returns an HTTPInterpreter bound to
// that server.
package interpreter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/turtacn/MultiNLU/pkg/errors"
	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

const maxErrorBody = 512

// HTTPInterpreter parses text through POST {endpoint}/model/parse.
type HTTPInterpreter struct {
	locale   string
	endpoint string
	token    string
	client   *http.Client
	artifact string
}

// NewHTTPInterpreter returns an interpreter for endpoint. A nil client gets a
// 30 second timeout.
func NewHTTPInterpreter(locale, endpoint, token string, client *http.Client) *HTTPInterpreter {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPInterpreter{locale: locale, endpoint: endpoint, token: token, client: client}
}

// Locale returns the locale the interpreter serves.
func (h *HTTPInterpreter) Locale() string { return h.locale }

// Artifact returns the artifact activated for this interpreter, if any.
func (h *HTTPInterpreter) Artifact() string { return h.artifact }

// Parse sends text to the model server. The result always carries an
// "entities" list.
func (h *HTTPInterpreter) Parse(ctx context.Context, text string) (nlu.ParseResult, error) {
	var result nlu.ParseResult
	if err := h.call(ctx, http.MethodPost, "/model/parse", map[string]string{"text": text}, &result); err != nil {
		return nil, err
	}
	if result == nil {
		result = nlu.ParseResult{}
	}
	if result.Entities() == nil {
		result[nlu.EntitiesKey] = []interface{}{}
	}
	return result, nil
}

// Ping checks that the model server answers GET /status.
func (h *HTTPInterpreter) Ping(ctx context.Context) error {
	return h.call(ctx, http.MethodGet, "/status", nil, nil)
}

// Activate replaces the model served by the backend with the artifact at path.
func (h *HTTPInterpreter) Activate(ctx context.Context, path string) error {
	if err := h.call(ctx, http.MethodPut, "/model", map[string]string{"model_file": path}, nil); err != nil {
		return err
	}
	h.artifact = path
	return nil
}

func (h *HTTPInterpreter) call(ctx context.Context, method, path string, body, out interface{}) error {
	target := h.endpoint + path
	if h.token != "" {
		target += "?token=" + url.QueryEscape(h.token)
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "encode model server request")
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeParseFailed, "build model server request").WithDetail(target)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeParseFailed, "model server unreachable").
			WithDetail(fmt.Sprintf("locale=%s %s %s", h.locale, method, path))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.New(errors.ErrCodeParseFailed, fmt.Sprintf("model server returned %d", resp.StatusCode)).
			WithDetail(fmt.Sprintf("locale=%s %s %s: %s", h.locale, method, path, bytes.TrimSpace(snippet)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.ErrCodeParseFailed, "decode model server response").WithDetail("locale=" + h.locale)
	}
	return nil
}

//Personal.AI order the ending
