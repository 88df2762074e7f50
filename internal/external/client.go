// Package external routes all outbound HTTP to third-party endpoints through
// a single resilient client: circuit breaking, bounded retries with jittered
// backoff, trace propagation, and mapping of transport failures into
// types.AppError.
package external

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"stockwatch/internal/types"
)

// RetryPolicy bounds the retry behavior of the BaseClient.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns the platform defaults for outbound calls.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 2,
		MinWait:    250 * time.Millisecond,
		MaxWait:    5 * time.Second,
	}
}

// BaseClient wraps an *http.Client with a circuit breaker and retry policy.
// Endpoint clients (the partner webhook relay) embed it to inherit the
// resilience behavior.
type BaseClient struct {
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	policy    RetryPolicy
	userAgent string
	sleep     func(time.Duration)
}

// Option configures a BaseClient.
type Option func(*BaseClient)

// WithSleep overrides the inter-retry sleep, for tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(c *BaseClient) { c.sleep = fn }
}

// NewBaseClient creates a resilient outbound client. The breaker trips after
// five consecutive failures and probes again after 30 seconds.
func NewBaseClient(httpClient *http.Client, name string, policy RetryPolicy, userAgent string, opts ...Option) *BaseClient {
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})
	c := &BaseClient{
		client:    httpClient,
		breaker:   breaker,
		policy:    policy,
		userAgent: userAgent,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes the request with trace and User-Agent headers, circuit
// breaking, and retries on 429/5xx (honoring Retry-After). A 2xx/3xx/4xx
// response other than 429 is returned as-is; the caller closes the body.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	if traceID := types.GetRequestID(req.Context()); traceID != "" {
		req.Header.Set("X-Request-Id", traceID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	// Snapshot the body so retries can replay it.
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to buffer request body", err)
		}
		req.Body.Close()
	}

	var lastResp *http.Response
	var lastErr error
	attempts := 1 + c.policy.MaxRetries

	for attempt := 0; attempt < attempts; attempt++ {
		if body != nil {
			req.Body = io.NopCloser(bytes.NewReader(body))
			req.ContentLength = int64(len(body))
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.client.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if attempt < attempts-1 {
				resp.Body.Close()
			} else {
				lastResp = resp
			}
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if attempt < attempts-1 {
			c.sleep(c.backoff(attempt, resp))
		}
	}

	if lastResp != nil {
		lastResp.Body.Close()
	}
	return nil, c.mapError(lastResp, lastErr)
}

// backoff picks the pre-retry wait: Retry-After when the upstream sent one,
// otherwise exponential backoff with full jitter clamped to [MinWait, MaxWait].
func (c *BaseClient) backoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
				return min(time.Duration(seconds)*time.Second, c.policy.MaxWait)
			}
			if t, err := http.ParseTime(header); err == nil {
				if wait := time.Until(t); wait > 0 {
					return min(wait, c.policy.MaxWait)
				}
				return c.policy.MinWait
			}
		}
	}

	base := float64(c.policy.MinWait) * math.Pow(2, float64(attempt))
	base = math.Min(base, float64(c.policy.MaxWait))
	lo := float64(c.policy.MinWait)
	if base <= lo {
		return c.policy.MinWait
	}
	return time.Duration(lo + rand.Float64()*(base-lo))
}

func (c *BaseClient) mapError(resp *http.Response, err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppError(types.ErrCodeUpstreamPartner, "circuit breaker open; upstream unavailable", err)
	}
	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return types.NewAppError(types.ErrCodeUpstreamRateLimited, "upstream rate limit exceeded", err)
		case resp.StatusCode >= 500:
			return types.NewAppError(types.ErrCodeUpstreamPartner,
				fmt.Sprintf("upstream returned %d after retries", resp.StatusCode), err)
		}
	}
	return types.NewAppError(types.ErrCodeUpstreamPartner, "upstream request failed", err)
}
