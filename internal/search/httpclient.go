package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	tabiErrors "github.com/harunnryd/tabi/internal/errors"
	"github.com/harunnryd/tabi/internal/logger"
	"golang.org/x/time/rate"
	"gopkg.in/cenkalti/backoff.v1"
)

const maxResponseBytes = 2 << 20

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %s: %s", e.Status, e.Body)
}

func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

type HTTPOptions struct {
	// Name labels log lines ("amadeus", "serpapi", "wttr").
	Name       string
	Timeout    time.Duration
	RateLimit  float64
	Burst      int
	MaxRetries int
	UserAgent  string
	Transport  http.RoundTripper
}

// HTTPClient is the upstream client shared by provider backends: a
// per-provider rate limit, bounded retries with exponential backoff on
// transport errors, 429 and 5xx, and a capped response size.
type HTTPClient struct {
	name       string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int
	userAgent  string
}

func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &HTTPClient{
		name:       opts.Name,
		client:     &http.Client{Timeout: timeout, Transport: opts.Transport},
		limiter:    limiter,
		maxRetries: max(opts.MaxRetries, 0),
		userAgent:  opts.UserAgent,
	}
}

// Do sends the request built by newReq, retrying retryable failures.
// newReq is called once per attempt so bodies can be replayed.
func (c *HTTPClient) Do(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	bctx := backoff.WithContext(b, ctx)

	for attempt := 0; ; attempt++ {
		body, err := c.once(ctx, newReq)
		if err == nil {
			return body, nil
		}
		if attempt >= c.maxRetries || !retryable(err) {
			return nil, err
		}

		wait := bctx.NextBackOff()
		if wait == backoff.Stop {
			return nil, err
		}
		slog.Debug("Retrying upstream request", "provider", c.name, "attempt", attempt+1, "wait", wait, "error", err, "trace_id", logger.GetTraceID(ctx))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// GetJSON performs a GET and decodes the JSON response into out.
func (c *HTTPClient) GetJSON(ctx context.Context, endpoint string, header http.Header, out any) error {
	body, err := c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return tabiErrors.WrapWithCategory(err, fmt.Sprintf("decode %s response", c.name), tabiErrors.ErrMalformedPayload)
	}
	return nil
}

func (c *HTTPClient) once(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := newReq(ctx)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, tabiErrors.WrapWithCategory(err, fmt.Sprintf("%s request failed", c.name), tabiErrors.ErrProviderUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, tabiErrors.WrapWithCategory(err, fmt.Sprintf("read %s response", c.name), tabiErrors.ErrProviderUnavailable)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet := string(body)
		if len(snippet) > 256 {
			snippet = snippet[:256]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: snippet}
	}
	return body, nil
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return tabiErrors.IsRetryable(err)
}
