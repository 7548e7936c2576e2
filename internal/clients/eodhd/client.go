// Package eodhd provides a client for the EODHD API.
package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/openquant/tidemark/internal/common"
)

const (
	DefaultBaseURL    = "https://eodhd.com/api"
	DefaultTimeout    = 30 * time.Second
	DefaultRateLimit  = 10 // requests per second
	DefaultPoolSize   = 8  // max concurrent in-flight calls
	DefaultRetries    = 3  // extra attempts after a timeout
	DefaultRetryDelay = 500 * time.Millisecond
)

// Client talks to the EODHD API with a bounded connection pool, a rate
// limiter and timeout-only retries.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	sem        chan struct{}
	retries    int
	retryDelay time.Duration
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithPoolSize bounds the number of concurrent in-flight calls.
func WithPoolSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.sem = make(chan struct{}, n)
		}
	}
}

// WithRetries sets the number of extra attempts after a timeout.
func WithRetries(n int) ClientOption {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithRetryDelay sets the delay between retry attempts.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// NewClient creates a new EODHD client.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		sem:        make(chan struct{}, DefaultPoolSize),
		retries:    DefaultRetries,
		retryDelay: DefaultRetryDelay,
		logger:     common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a provider-rejected response. It is never retried.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// FetchError represents a fetch that exhausted its retry budget.
type FetchError struct {
	Path string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.Path, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// isTimeout reports whether err is a transport-level timeout. Only timeouts
// are retried; provider-reported errors and malformed responses are not.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

// get performs a rate-limited GET request and returns the raw body. The
// authentication token and JSON format parameter are always merged in. On a
// transport timeout the call is retried up to the retry budget; any other
// failure surfaces immediately.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		c.logger.Debug().Str("path", path).Int("attempt", attempt).Msg("EODHD API request")

		data, err := c.doOnce(ctx, path, reqURL)
		if err != nil {
			if isTimeout(err) {
				return err // retryable
			}
			return backoff.Permanent(err)
		}
		body = data
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.retries)),
		ctx)

	if err := backoff.Retry(op, policy); err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		if isTimeout(err) {
			err = &FetchError{Path: path, Err: err}
		}
		c.logger.Warn().Str("path", path).Int("attempts", attempt).Err(err).Msg("EODHD API request failed")
		return nil, err
	}

	return body, nil
}

// doOnce executes a single request attempt.
func (c *Client) doOnce(ctx context.Context, path, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(msg),
			Endpoint:   path,
		}
	}

	return io.ReadAll(resp.Body)
}

// decode unmarshals a response body into result, treating an empty body as an
// empty table.
func decode(path string, body []byte, result interface{}) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", path, err)
	}
	return nil
}

// flexFloat64 handles JSON values that may be either a number or a string.
// Some exchanges return bulk price and volume fields as strings.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}
