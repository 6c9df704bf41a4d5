package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

// Parse classifies text in locale. Region tags such as "de_DE" are accepted.
func (c *Client) Parse(ctx context.Context, locale, text string) (nlu.ParseResult, error) {
	body, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/nlu/",
		body:   nlu.ParseRequest{Locale: locale, Text: text},
	})
	if err != nil {
		return nil, err
	}
	var res nlu.ParseResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return res, nil
}

// Hello returns the server greeting.
func (c *Client) Hello(ctx context.Context) (string, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/nlu/", accept: "text/plain"})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Locales returns the load state of every locale.
func (c *Client) Locales(ctx context.Context) ([]nlu.LocaleStatus, error) {
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/nlu/locales"})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Locales []nlu.LocaleStatus `json:"locales"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return resp.Locales, nil
}

//Personal.AI order the ending
