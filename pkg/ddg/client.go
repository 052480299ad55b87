// Package ddg provides DuckDuckGo web search clients: the RapidAPI JSON
// endpoint and a keyless HTML fallback.
package ddg

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	defaultBaseURL   = "https://duckduckgo8.p.rapidapi.com"
	defaultAPIHost   = "duckduckgo8.p.rapidapi.com"
	defaultRateLimit = 4.5
	minAPIKeyLength  = 10
)

var (
	// ErrRateLimited is returned when the API keeps answering 429 after all
	// retries.
	ErrRateLimited = eris.New("ddg: rate limited")
	// ErrInvalidAPIKey is returned for a missing, malformed or rejected key.
	ErrInvalidAPIKey = eris.New("ddg: invalid api key")
)

// Client performs web searches.
type Client interface {
	// Search returns up to maxResults results for query in provider order.
	Search(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// Result is a single search hit. Position is 1-based.
type Result struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Snippet  string `json:"description"`
	Position int    `json:"position"`
}

type searchResponse struct {
	Results []json.RawMessage `json:"results"`
}

type rawResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Option configures a client.
type Option func(*options)

type options struct {
	baseURL    string
	apiHost    string
	http       *http.Client
	rateLimit  float64
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func defaultOptions() options {
	return options{
		rateLimit:  defaultRateLimit,
		maxRetries: 5,
		baseDelay:  1 * time.Second,
		maxDelay:   120 * time.Second,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// WithBaseURL sets a custom endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = strings.TrimRight(u, "/")
	}
}

// WithAPIHost overrides the X-RapidAPI-Host header.
func WithAPIHost(host string) Option {
	return func(o *options) {
		o.apiHost = host
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.http = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.http.Timeout = d
		}
	}
}

// WithRateLimit sets the initial requests per second.
func WithRateLimit(rps float64) Option {
	return func(o *options) {
		if rps > 0 {
			o.rateLimit = rps
		}
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithBackoff sets the first retry delay and the delay cap.
func WithBackoff(base, max time.Duration) Option {
	return func(o *options) {
		o.baseDelay = base
		o.maxDelay = max
	}
}

type rapidAPIClient struct {
	apiKey  string
	opts    options
	limiter *AdaptiveLimiter
}

// NewRapidAPIClient creates a client for the DuckDuckGo RapidAPI endpoint.
func NewRapidAPIClient(apiKey string, opts ...Option) (Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if len(apiKey) < minAPIKeyLength {
		return nil, eris.Wrapf(ErrInvalidAPIKey, "ddg: key must be at least %d characters", minAPIKeyLength)
	}
	o := defaultOptions()
	o.baseURL = defaultBaseURL
	o.apiHost = defaultAPIHost
	for _, opt := range opts {
		opt(&o)
	}
	return &rapidAPIClient{
		apiKey:  apiKey,
		opts:    o,
		limiter: NewAdaptiveLimiter(o.rateLimit, 1),
	}, nil
}

func (c *rapidAPIClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("max_results", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "ddg: create request")
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.opts.apiHost)
	req.Header.Set("Accept", "application/json")

	body, status, err := retryDo(ctx, c.opts, c.limiter, req)
	if err != nil {
		return nil, eris.Wrapf(err, "ddg: search %q", query)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return nil, eris.Wrapf(ErrRateLimited, "ddg: search %q", query)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return nil, eris.Wrapf(ErrInvalidAPIKey, "ddg: status %d", status)
	case status != http.StatusOK:
		return nil, eris.Errorf("ddg: unexpected status %d: %s", status, truncate(string(body), 200))
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "ddg: unmarshal response")
	}

	results := make([]Result, 0, len(resp.Results))
	for i, raw := range resp.Results {
		var r rawResult
		if err := json.Unmarshal(raw, &r); err != nil {
			continue
		}
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		results = append(results, Result{
			URL:      r.URL,
			Title:    r.Title,
			Snippet:  r.Description,
			Position: i + 1,
		})
		if len(results) == maxResults {
			break
		}
	}
	return results, nil
}

// retryDo executes req with rate limiting and exponential backoff on 429,
// 5xx and network errors. It returns the last response once retries are
// exhausted so callers can map the final status.
func retryDo(ctx context.Context, o options, limiter *AdaptiveLimiter, req *http.Request) ([]byte, int, error) {
	var lastErr error
	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, 0, eris.Wrap(err, "ddg: rate limiter wait")
		}

		resp, err := o.http.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			zap.L().Warn("ddg: request failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			if attempt < o.maxRetries {
				if err := sleep(ctx, backoff(o, attempt)); err != nil {
					return nil, 0, err
				}
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "ddg: read response body")
		}

		retryable := false
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			limiter.OnRateLimit()
			retryable = true
		case resp.StatusCode >= http.StatusInternalServerError:
			limiter.OnServerError()
			retryable = true
		default:
			limiter.OnSuccess()
		}

		if !retryable || attempt == o.maxRetries {
			return body, resp.StatusCode, nil
		}

		delay := backoff(o, attempt)
		zap.L().Warn("ddg: transient status, retrying",
			zap.Int("status", resp.StatusCode),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)
		if err := sleep(ctx, delay); err != nil {
			return nil, 0, err
		}
	}
	return nil, 0, eris.Wrapf(lastErr, "ddg: request failed after %d retries", o.maxRetries)
}

func backoff(o options, attempt int) time.Duration {
	d := o.baseDelay << attempt
	if d <= 0 || d > o.maxDelay {
		return o.maxDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
