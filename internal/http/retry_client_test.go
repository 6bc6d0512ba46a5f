package httpclient

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pweiskircher/buganize/internal/contracts"
)

func TestRetryClientReplaysPayloadWithExponentialBackoff(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		bodies []string
	)
	sleeper := &recordingSleeper{}
	client := NewRetryClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		payload, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		mu.Lock()
		bodies = append(bodies, string(payload))
		attempt := len(bodies)
		mu.Unlock()

		if attempt < 3 {
			return responseWithStatus(http.StatusServiceUnavailable, "retry"), nil
		}
		return responseWithStatus(http.StatusOK, ")]}'\n[]"), nil
	}), Options{
		Timeout:     time.Second,
		MaxAttempts: 3,
		BaseBackoff: 25 * time.Millisecond,
	}).WithSleeper(sleeper)

	req := newRequest(t, context.Background(), http.MethodPost, `[null,null,null,null,null,["157"],["status:open",null,25]]`)
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, bodies, 3)
	for _, body := range bodies {
		assert.Equal(t, `[null,null,null,null,null,["157"],["status:open",null,25]]`, body)
	}
	assert.Equal(t, []time.Duration{25 * time.Millisecond, 50 * time.Millisecond}, sleeper.calls)
}

func TestRetryClientReturnsNonRetryableStatusImmediately(t *testing.T) {
	t.Parallel()

	attempts := 0
	sleeper := &recordingSleeper{}
	client := NewRetryClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		return responseWithStatus(http.StatusNotFound, "<html>missing</html>"), nil
	}), Options{MaxAttempts: 3}).WithSleeper(sleeper)

	resp, err := client.Do(newRequest(t, context.Background(), http.MethodPost, "[1]"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, sleeper.calls)
}

func TestRetryClientReportsExhaustedRetries(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := NewRetryClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		return responseWithStatus(http.StatusBadGateway, "down"), nil
	}), Options{MaxAttempts: 2}).WithSleeper(&recordingSleeper{})

	_, err := client.Do(newRequest(t, context.Background(), http.MethodGet, ""))
	require.Error(t, err)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)
	assert.Equal(t, http.StatusBadGateway, exhausted.StatusCode)
	assert.Equal(t, 2, attempts)
}

func TestRetryClientRetriesAttemptTimeouts(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := NewRetryClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		if attempts < 3 {
			return nil, context.DeadlineExceeded
		}
		return responseWithStatus(http.StatusOK, "ok"), nil
	}), Options{MaxAttempts: 3, BaseBackoff: 20 * time.Millisecond}).WithSleeper(&recordingSleeper{})

	resp, err := client.Do(newRequest(t, context.Background(), http.MethodGet, ""))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, 3, attempts)
}

func TestRetryClientStopsWhenCallerContextIsDone(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	client := NewRetryClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		cancel()
		return nil, req.Context().Err()
	}), Options{MaxAttempts: 5}).WithSleeper(&recordingSleeper{})

	_, err := client.Do(newRequest(t, ctx, http.MethodGet, ""))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestRetryClientAppliesPerAttemptTimeout(t *testing.T) {
	t.Parallel()

	client := NewRetryClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}), Options{Timeout: 15 * time.Millisecond, MaxAttempts: 1})

	start := time.Now()
	_, err := client.Do(newRequest(t, context.Background(), http.MethodGet, ""))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 250*time.Millisecond)
}

func TestRetryClientHonoursRetryAfterUpToMaxBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		retryAfter string
		want       time.Duration
	}{
		{name: "longer than backoff", retryAfter: "2", want: 2 * time.Second},
		{name: "capped", retryAfter: "120", want: 5 * time.Second},
		{name: "ignored when shorter", retryAfter: "0", want: 10 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			attempts := 0
			sleeper := &recordingSleeper{}
			client := NewRetryClient(doerFunc(func(req *http.Request) (*http.Response, error) {
				attempts++
				if attempts == 1 {
					resp := responseWithStatus(http.StatusTooManyRequests, "rate limited")
					resp.Header.Set("Retry-After", tt.retryAfter)
					return resp, nil
				}
				return responseWithStatus(http.StatusOK, "ok"), nil
			}), Options{
				MaxAttempts: 2,
				BaseBackoff: 10 * time.Millisecond,
				MaxBackoff:  5 * time.Second,
			}).WithSleeper(sleeper)

			resp, err := client.Do(newRequest(t, context.Background(), http.MethodGet, ""))
			require.NoError(t, err)
			t.Cleanup(func() { _ = resp.Body.Close() })
			assert.Equal(t, []time.Duration{tt.want}, sleeper.calls)
		})
	}
}

func TestParseRetryAfterHTTPDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 30*time.Second, parseRetryAfter(now.Add(30*time.Second).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter(now.Add(-time.Minute).Format(http.TimeFormat), now))
	assert.Zero(t, parseRetryAfter("soon", now))
	assert.Zero(t, parseRetryAfter("-3", now))
}

func TestRetryClientLogsRetries(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	attempts := 0
	client := NewRetryClient(doerFunc(func(req *http.Request) (*http.Response, error) {
		attempts++
		if attempts == 1 {
			return responseWithStatus(http.StatusInternalServerError, "oops"), nil
		}
		return responseWithStatus(http.StatusOK, "ok"), nil
	}), Options{
		MaxAttempts: 2,
		Logger:      slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}).WithSleeper(&recordingSleeper{})

	resp, err := client.Do(newRequest(t, context.Background(), http.MethodPost, "[1]"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	assert.Contains(t, logs.String(), `msg="retrying tracker request"`)
	assert.Contains(t, logs.String(), "url=/action/issues/list")
	assert.Contains(t, logs.String(), "status=500")
}

func TestTimerSleeperReturnsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := timerSleeper{}.Sleep(ctx, time.Hour)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), time.Second)
	assert.NoError(t, timerSleeper{}.Sleep(context.Background(), 0))
}

func TestRetryClientUsesContractDefaultsWhenOptionsUnset(t *testing.T) {
	t.Parallel()

	client := NewRetryClient(nil, Options{})
	assert.Equal(t, contracts.DefaultHTTPTimeout, client.timeout)
	assert.Equal(t, contracts.DefaultRetryMaxAttempts, client.maxAttempts)
	assert.Equal(t, contracts.DefaultRetryBaseBackoff, client.baseBackoff)
	assert.Equal(t, contracts.DefaultRetryMaxBackoff, client.maxBackoff)
	assert.Contains(t, client.retryCodes, http.StatusTooManyRequests)
	assert.NotContains(t, client.retryCodes, http.StatusNotFound)

	httpClient, ok := client.doer.(*http.Client)
	require.True(t, ok)
	assert.Equal(t, contracts.DefaultHTTPTimeout, httpClient.Timeout)
}

type doerFunc func(req *http.Request) (*http.Response, error)

func (f doerFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

type recordingSleeper struct {
	calls []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

func newRequest(t *testing.T, ctx context.Context, method string, body string) *http.Request {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, "https://issuetracker.example/action/issues/list", reader)
	require.NoError(t, err)
	return req
}

func responseWithStatus(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}
