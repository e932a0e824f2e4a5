// Package external talks to third-party upstreams, currently the road
// weather observation API. Observation fetches are idempotent GETs, so the
// transport retries freely with exponential backoff behind a circuit
// breaker and decodes the JSON payload itself, mapping every failure mode
// to a domain error.
package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"brineguard/internal/types"

	"github.com/sony/gobreaker/v2"
)

// maxObservationBytes caps how much of an upstream response body is read.
// A current-conditions observation is a few hundred bytes; anything near
// the cap is a broken upstream.
const maxObservationBytes = 1 << 20

// RetryPolicy configures retry behavior for observation fetches.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns the defaults used for the weather upstream.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// observationTransport issues observation GETs with circuit breaking,
// retries, trace propagation, and JSON decoding. Weather clients hold one
// transport per upstream.
type observationTransport struct {
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	retry     RetryPolicy
	userAgent string
	authToken types.SecretString
	sleep     func(time.Duration)
}

// Option configures an observation transport.
type Option func(*observationTransport)

// WithSleepFunc overrides the sleep function used between retries.
// Intended for tests, which should not wait out real backoff.
func WithSleepFunc(fn func(time.Duration)) Option {
	return func(t *observationTransport) {
		t.sleep = fn
	}
}

// WithBreaker replaces the default circuit breaker. Useful for sharing a
// breaker across clients or for driving breaker states in tests.
func WithBreaker(b *gobreaker.CircuitBreaker[*http.Response]) Option {
	return func(t *observationTransport) {
		t.breaker = b
	}
}

func newObservationTransport(
	httpClient *http.Client,
	breakerName string,
	retry RetryPolicy,
	userAgent string,
	authToken types.SecretString,
	opts ...Option,
) *observationTransport {
	t := &observationTransport{
		http: httpClient,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:        breakerName,
			MaxRequests: 1,
			Interval:    60 * time.Second,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			IsSuccessful: func(err error) bool {
				return err == nil
			},
		}),
		retry:     retry,
		userAgent: userAgent,
		authToken: authToken,
		sleep:     time.Sleep,
	}

	for _, opt := range opts {
		opt(t)
	}
	return t
}

// getJSON fetches endpoint and decodes the 200 body into out.
//
// 429 and 5xx responses are retried up to the policy limit, honoring
// Retry-After when the upstream sends one. Any other status is final: the
// observation API has nothing useful behind a 404 or 403, so those map
// straight to an upstream error without burning retries. Decode failures
// are upstream errors too; a payload we cannot parse is as useless as no
// payload.
func (t *observationTransport) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "building observation request", err)
	}
	if traceID := types.GetRequestID(ctx); traceID != "" {
		req.Header.Set("X-B3-TraceId", traceID)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if token := t.authToken.Unmask(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	var lastStatus int
	var lastErr error

	maxAttempts := 1 + t.retry.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		resp, err := t.breaker.Execute(func() (*http.Response, error) {
			r, doErr := t.http.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			// 5xx and 429 count as breaker failures.
			if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
				return r, fmt.Errorf("observation upstream returned %d", r.StatusCode)
			}
			return r, nil
		})

		if err == nil {
			return t.decode(resp, out)
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}

		if resp != nil {
			lastStatus = resp.StatusCode
			resp.Body.Close()
		}
		if attempt < maxAttempts-1 {
			t.sleep(t.backoff(attempt, resp))
		}
	}

	return t.upstreamError(lastStatus, lastErr)
}

// decode consumes and closes the response body. Only a 200 carries an
// observation; everything else that survived the retry loop is a hard
// upstream failure.
func (t *observationTransport) decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("observation endpoint returned %d", resp.StatusCode),
			nil,
		)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxObservationBytes)).Decode(out); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamWeather, "decoding observation payload", err)
	}
	return nil
}

// backoff determines the wait before the next attempt. A parseable
// Retry-After wins, clamped to MaxWait; otherwise exponential backoff with
// full jitter over [MinWait, min(MaxWait, MinWait*2^attempt)].
func (t *observationTransport) backoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
				return min(time.Duration(seconds)*time.Second, t.retry.MaxWait)
			}
			if at, err := http.ParseTime(retryAfter); err == nil {
				wait := time.Until(at)
				if wait <= 0 {
					return t.retry.MinWait
				}
				return min(wait, t.retry.MaxWait)
			}
		}
	}

	ceiling := float64(t.retry.MinWait) * math.Pow(2, float64(attempt))
	ceiling = math.Min(ceiling, float64(t.retry.MaxWait))

	floor := float64(t.retry.MinWait)
	if ceiling <= floor {
		return t.retry.MinWait
	}
	return time.Duration(floor + rand.Float64()*(ceiling-floor))
}

// upstreamError translates an exhausted retry loop into a domain error.
// Rate limiting and an open breaker share a code because both mean the
// same thing to the caller: back off the weather upstream.
func (t *observationTransport) upstreamError(lastStatus int, err error) *types.AppError {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimited,
			"weather upstream circuit breaker is open",
			err,
		)
	case lastStatus == http.StatusTooManyRequests:
		return types.NewAppError(
			types.ErrCodeUpstreamRateLimited,
			"weather upstream rate limit exceeded",
			err,
		)
	case lastStatus >= 500:
		return types.NewAppError(
			types.ErrCodeUpstreamWeather,
			fmt.Sprintf("weather upstream returned %d after retries", lastStatus),
			err,
		)
	}
	// Network error, DNS failure, timeout.
	return types.NewAppError(types.ErrCodeUpstreamWeather, "weather upstream unreachable", err)
}
