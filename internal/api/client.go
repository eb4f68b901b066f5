// Package api provides typed clients for the backend REST endpoints.
// Every call goes through one shared Client that owns retries, a circuit
// breaker, and request logging.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ab-esl-ai/caption-gateway/internal/observability"
	"github.com/ab-esl-ai/caption-gateway/internal/resilience"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Endpoint   string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Config configures the shared REST client.
type Config struct {
	BaseURL string
	Token   string // bearer token, empty for unauthenticated deployments
	Timeout time.Duration

	Retry   *resilience.RetryConfig
	Breaker *resilience.CircuitBreaker
}

// Client is the shared transport for all backend REST calls.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	retry   *resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	logger  zerolog.Logger
}

// NewClient creates a REST client for the backend
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported backend url scheme %q", u.Scheme)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	retry := cfg.Retry
	if retry == nil {
		retry = resilience.DefaultRetryConfig()
	}

	breaker := cfg.Breaker
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker("backend-api", 5, 30*time.Second)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		retry:   retry,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// postJSON sends a JSON body and decodes a JSON response into out.
func (c *Client) postJSON(ctx context.Context, endpoint string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, endpoint, "application/json", func() io.Reader {
		return bytes.NewReader(payload)
	}, out)
}

// getJSON fetches an endpoint and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	return c.do(ctx, http.MethodGet, endpoint, "", nil, out)
}

// do runs one logical request: circuit breaker outermost, retries inside,
// so a fast-failing backend trips the breaker instead of burning the retry
// budget on every call. makeBody is re-invoked per attempt because a reader
// can only be consumed once.
func (c *Client) do(ctx context.Context, method, endpoint, contentType string, makeBody func() io.Reader, out interface{}) error {
	start := time.Now()

	err := c.breaker.Call(func() error {
		return resilience.Retry(func() error {
			return c.once(ctx, method, endpoint, contentType, makeBody, out)
		}, c.retry, retryable)
	})

	latency := time.Since(start)
	observability.RecordAPIRequest(endpoint, err == nil, latency)

	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("method", method).
			Str("endpoint", endpoint).
			Dur("latency", latency).
			Msg("api request failed")
		return err
	}

	c.logger.Debug().
		Str("method", method).
		Str("endpoint", endpoint).
		Dur("latency", latency).
		Msg("api request")
	return nil
}

// once performs a single HTTP exchange. Transport faults and 5xx/429
// responses come back wrapped retryable; 4xx responses do not.
func (c *Client) once(ctx context.Context, method, endpoint, contentType string, makeBody func() io.Reader, out interface{}) error {
	var body io.Reader
	if makeBody != nil {
		body = makeBody()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return resilience.NewRetryableError(fmt.Errorf("request %s: %w", endpoint, err))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	resp.Body.Close()
	if err != nil {
		return resilience.NewRetryableError(fmt.Errorf("read response %s: %w", endpoint, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Body: truncate(string(data), 512)}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return resilience.NewRetryableError(apiErr)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response %s: %w", endpoint, err)
	}
	return nil
}

func retryable(err error) bool {
	return resilience.IsRetryable(err) || resilience.IsRetryableNetworkError(err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
