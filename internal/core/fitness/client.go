package fitness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/aftr-app/aftr-backend/internal/core"
)

// ErrLookupFailed wraps any fitness-backend failure. The session layer
// degrades it to an apology; it never aborts a session.
var ErrLookupFailed = errors.New("fitness lookup failed")

// Client queries the RapidAPI fitness service.
type Client struct {
	http *resty.Client
	log  zerolog.Logger
}

func NewClient(baseURL, apiKey, apiHost string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("X-RapidAPI-Key", apiKey).
		SetHeader("X-RapidAPI-Host", apiHost)
	return &Client{http: c, log: log}
}

// Query sends the user message to the fitness service and returns
// display-ready text. One attempt, no retry.
func (c *Client) Query(ctx context.Context, message string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("message", message).
		Get("/query")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if resp.IsError() {
		c.log.Warn().Int("status", resp.StatusCode()).Msg("fitness API returned error status")
		return "", fmt.Errorf("%w: status %s", ErrLookupFailed, resp.Status())
	}

	text, err := FormatResult(resp.Body())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return text, nil
}

// FormatResult renders the service's JSON body as assistant text. An
// "answer" or "summary" field wins outright; otherwise the remaining
// scalar fields are listed "key: value" in sorted key order.
func FormatResult(body []byte) (string, error) {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("decode fitness response: %w", err)
	}

	for _, key := range []string{"answer", "summary"} {
		if s, ok := data[key].(string); ok && s != "" {
			return s, nil
		}
	}

	keys := make([]string, 0, len(data))
	for k, v := range data {
		switch v.(type) {
		case string, float64, bool:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %v\n", k, data[k])
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("no displayable fields in fitness response")
	}
	return out, nil
}

var _ core.FitnessProvider = (*Client)(nil)
