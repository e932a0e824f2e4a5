package external

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"brineguard/internal/types"

	"github.com/sony/gobreaker/v2"
)

// noopSleep is a sleep function that does nothing, for fast tests.
func noopSleep(time.Duration) {}

// newTestTransport creates an observation transport with fast retries and
// no real sleep.
func newTestTransport(t *testing.T, policy RetryPolicy, opts ...Option) *observationTransport {
	t.Helper()
	opts = append([]Option{WithSleepFunc(noopSleep)}, opts...)
	return newObservationTransport(
		&http.Client{Timeout: 5 * time.Second},
		"test-breaker",
		policy,
		"BrineGuard-Test/1.0",
		types.SecretString("key-123"),
		opts...,
	)
}

type testPayload struct {
	Status string `json:"status"`
}

func TestGetJSON_DecodesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	transport := newTestTransport(t, DefaultRetryPolicy())

	var out testPayload
	if err := transport.getJSON(context.Background(), server.URL+"/test", &out); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if out.Status != "ok" {
		t.Errorf("expected status 'ok', got %q", out.Status)
	}
}

func TestGetJSON_InjectsTraceAuthAndUserAgent(t *testing.T) {
	var gotTraceID, gotUA, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraceID = r.Header.Get("X-B3-TraceId")
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	transport := newTestTransport(t, DefaultRetryPolicy())

	ctx := types.WithRequestID(context.Background(), "trace-abc-123")
	var out testPayload
	if err := transport.getJSON(ctx, server.URL+"/test", &out); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if gotTraceID != "trace-abc-123" {
		t.Errorf("expected trace ID 'trace-abc-123', got %q", gotTraceID)
	}
	if gotUA != "BrineGuard-Test/1.0" {
		t.Errorf("expected User-Agent 'BrineGuard-Test/1.0', got %q", gotUA)
	}
	if gotAuth != "Bearer key-123" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
}

func TestGetJSON_RetriesOn500(t *testing.T) {
	var callCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callCount.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"status":"recovered"}`))
	}))
	defer server.Close()

	transport := newTestTransport(t, RetryPolicy{
		MaxRetries: 3,
		MinWait:    10 * time.Millisecond,
		MaxWait:    100 * time.Millisecond,
	})

	var out testPayload
	if err := transport.getJSON(context.Background(), server.URL+"/test", &out); err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}
	if out.Status != "recovered" {
		t.Errorf("expected decoded body from the successful attempt, got %q", out.Status)
	}
	if calls := callCount.Load(); calls != 3 {
		t.Errorf("expected 3 calls (2 failures + 1 success), got %d", calls)
	}
}

func TestGetJSON_RetriesOn429(t *testing.T) {
	var callCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callCount.Add(1) <= 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	transport := newTestTransport(t, RetryPolicy{
		MaxRetries: 2,
		MinWait:    10 * time.Millisecond,
		MaxWait:    5 * time.Second,
	})

	var out testPayload
	if err := transport.getJSON(context.Background(), server.URL+"/test", &out); err != nil {
		t.Fatalf("expected success after 429 retry, got error: %v", err)
	}
	if calls := callCount.Load(); calls != 2 {
		t.Errorf("expected 2 calls (1 rate-limited + 1 success), got %d", calls)
	}
}

func TestGetJSON_ExhaustedRetriesReturnsWeatherUnavailable(t *testing.T) {
	var callCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	transport := newTestTransport(t, RetryPolicy{
		MaxRetries: 2,
		MinWait:    10 * time.Millisecond,
		MaxWait:    50 * time.Millisecond,
	})

	var out testPayload
	err := transport.getJSON(context.Background(), server.URL+"/test", &out)
	if err == nil {
		t.Fatal("expected error on exhausted retries, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	if appErr.Code != types.ErrCodeUpstreamWeather {
		t.Errorf("expected error code %s, got %s", types.ErrCodeUpstreamWeather, appErr.Code)
	}
	if calls := callCount.Load(); calls != 3 {
		t.Errorf("expected 3 total attempts (1 + 2 retries), got %d", calls)
	}
}

func TestGetJSON_ExhaustedRetriesOn429ReturnsRateLimitedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	transport := newTestTransport(t, RetryPolicy{
		MaxRetries: 1,
		MinWait:    10 * time.Millisecond,
		MaxWait:    50 * time.Millisecond,
	})

	var out testPayload
	err := transport.getJSON(context.Background(), server.URL+"/test", &out)
	if err == nil {
		t.Fatal("expected error on exhausted 429 retries, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	if appErr.Code != types.ErrCodeUpstreamRateLimited {
		t.Errorf("expected error code %s, got %s", types.ErrCodeUpstreamRateLimited, appErr.Code)
	}
}

func TestGetJSON_CircuitBreakerOpensAfterThreshold(t *testing.T) {
	var callCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// A breaker that opens after 3 consecutive failures, for faster testing.
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "test-open",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
	})

	// No retries so each getJSON call = exactly 1 attempt.
	transport := newTestTransport(t, RetryPolicy{
		MaxRetries: 0,
		MinWait:    1 * time.Millisecond,
		MaxWait:    1 * time.Millisecond,
	}, WithBreaker(breaker))

	var out testPayload
	for i := 0; i < 4; i++ {
		_ = transport.getJSON(context.Background(), server.URL+"/test", &out)
	}

	// 4 consecutive failures; the breaker is now open and the next request
	// must fail without reaching the server.
	serverCallsBefore := callCount.Load()

	err := transport.getJSON(context.Background(), server.URL+"/test", &out)
	if err == nil {
		t.Fatal("expected error when circuit breaker is open, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	if appErr.Code != types.ErrCodeUpstreamRateLimited {
		t.Errorf("expected error code %s, got %s", types.ErrCodeUpstreamRateLimited, appErr.Code)
	}
	if !strings.Contains(appErr.Message, "circuit breaker") {
		t.Errorf("expected message to mention circuit breaker, got: %s", appErr.Message)
	}

	if serverCallsAfter := callCount.Load(); serverCallsAfter != serverCallsBefore {
		t.Errorf("expected no additional server calls when breaker is open, got %d more",
			serverCallsAfter-serverCallsBefore)
	}
}

func TestGetJSON_RespectsRetryAfterHeader(t *testing.T) {
	var callCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callCount.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var sleepDurations []time.Duration
	trackingSleep := func(d time.Duration) {
		sleepDurations = append(sleepDurations, d)
	}

	transport := newTestTransport(t, RetryPolicy{
		MaxRetries: 1,
		MinWait:    100 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}, WithSleepFunc(trackingSleep))

	var out testPayload
	if err := transport.getJSON(context.Background(), server.URL+"/test", &out); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if len(sleepDurations) != 1 {
		t.Fatalf("expected 1 sleep call, got %d", len(sleepDurations))
	}
	if sleepDurations[0] != 2*time.Second {
		t.Errorf("expected sleep of 2s (Retry-After), got %v", sleepDurations[0])
	}
}

func TestGetJSON_RetryAfterCappedByMaxWait(t *testing.T) {
	var callCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if callCount.Add(1) == 1 {
			w.Header().Set("Retry-After", "3600") // 1 hour
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var sleepDurations []time.Duration
	trackingSleep := func(d time.Duration) {
		sleepDurations = append(sleepDurations, d)
	}

	transport := newTestTransport(t, RetryPolicy{
		MaxRetries: 1,
		MinWait:    100 * time.Millisecond,
		MaxWait:    5 * time.Second,
	}, WithSleepFunc(trackingSleep))

	var out testPayload
	if err := transport.getJSON(context.Background(), server.URL+"/test", &out); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if len(sleepDurations) != 1 {
		t.Fatalf("expected 1 sleep, got %d", len(sleepDurations))
	}
	if sleepDurations[0] != 5*time.Second {
		t.Errorf("expected sleep capped at 5s, got %v", sleepDurations[0])
	}
}

func TestGetJSON_4xxIsFinal(t *testing.T) {
	var callCount atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	transport := newTestTransport(t, RetryPolicy{
		MaxRetries: 3,
		MinWait:    10 * time.Millisecond,
		MaxWait:    50 * time.Millisecond,
	})

	var out testPayload
	err := transport.getJSON(context.Background(), server.URL+"/test", &out)
	if err == nil {
		t.Fatal("expected error for 404, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	if appErr.Code != types.ErrCodeUpstreamWeather {
		t.Errorf("expected error code %s, got %s", types.ErrCodeUpstreamWeather, appErr.Code)
	}
	if calls := callCount.Load(); calls != 1 {
		t.Errorf("expected exactly 1 call for 4xx, got %d", calls)
	}
}

func TestGetJSON_MalformedBodyIsUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{truncated`))
	}))
	defer server.Close()

	transport := newTestTransport(t, DefaultRetryPolicy())

	var out testPayload
	err := transport.getJSON(context.Background(), server.URL+"/test", &out)
	if err == nil {
		t.Fatal("expected error for malformed body, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	if appErr.Code != types.ErrCodeUpstreamWeather {
		t.Errorf("expected error code %s, got %s", types.ErrCodeUpstreamWeather, appErr.Code)
	}
}

func TestGetJSON_NetworkErrorMapsToAppError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close() // Close immediately so connections fail.

	transport := newTestTransport(t, RetryPolicy{
		MaxRetries: 1,
		MinWait:    1 * time.Millisecond,
		MaxWait:    1 * time.Millisecond,
	})

	var out testPayload
	err := transport.getJSON(context.Background(), serverURL+"/test", &out)
	if err == nil {
		t.Fatal("expected error for network error, got nil")
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T: %v", err, err)
	}
	if appErr.Code != types.ErrCodeUpstreamWeather {
		t.Errorf("expected error code %s, got %s", types.ErrCodeUpstreamWeather, appErr.Code)
	}
}

func TestBackoff_StaysInBounds(t *testing.T) {
	transport := &observationTransport{
		retry: RetryPolicy{
			MaxRetries: 5,
			MinWait:    100 * time.Millisecond,
			MaxWait:    10 * time.Second,
		},
	}

	// Jitter makes exact values unpredictable; check bounds only.
	for attempt := 0; attempt < 5; attempt++ {
		backoff := transport.backoff(attempt, nil)
		if backoff < transport.retry.MinWait {
			t.Errorf("attempt %d: backoff %v < MinWait %v", attempt, backoff, transport.retry.MinWait)
		}
		if backoff > transport.retry.MaxWait {
			t.Errorf("attempt %d: backoff %v > MaxWait %v", attempt, backoff, transport.retry.MaxWait)
		}
	}
}
