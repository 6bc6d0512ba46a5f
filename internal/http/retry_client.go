package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pweiskircher/buganize/internal/contracts"
)

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	// MaxBackoff caps both the exponential backoff and any Retry-After the
	// server asks for.
	MaxBackoff   time.Duration
	RetryOnCodes map[int]struct{}
	Logger       *slog.Logger
}

// Sleeper waits between attempts. It returns early with the context error
// when ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// ExhaustedError is returned when every attempt hit a retryable status.
type ExhaustedError struct {
	Attempts   int
	StatusCode int
}

func (err *ExhaustedError) Error() string {
	return fmt.Sprintf("tracker request failed after %d attempts: HTTP %d", err.Attempts, err.StatusCode)
}

type RetryClient struct {
	doer        Doer
	timeout     time.Duration
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	retryCodes  map[int]struct{}
	sleeper     Sleeper
	logger      *slog.Logger
}

// NewRetryClient wraps doer with per-attempt timeouts and exponential
// backoff. A nil doer gets a pooled http.Client.
func NewRetryClient(doer Doer, options Options) *RetryClient {
	resolved := resolveOptions(options)
	if doer == nil {
		doer = NewHTTPClient(resolved.Timeout)
	}

	return &RetryClient{
		doer:        doer,
		timeout:     resolved.Timeout,
		maxAttempts: resolved.MaxAttempts,
		baseBackoff: resolved.BaseBackoff,
		maxBackoff:  resolved.MaxBackoff,
		retryCodes:  resolved.RetryOnCodes,
		sleeper:     timerSleeper{},
		logger:      resolved.Logger,
	}
}

// NewHTTPClient returns a client with a pooled transport so paginated and
// batched calls reuse connections.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 60 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

func (c *RetryClient) WithSleeper(sleeper Sleeper) *RetryClient {
	if c == nil || sleeper == nil {
		return c
	}

	clone := *c
	clone.sleeper = sleeper
	return &clone
}

// Do sends req, replaying its body on every attempt. The final response is
// returned as-is when its status is not retryable; a retryable status on the
// last attempt becomes an *ExhaustedError.
func (c *RetryClient) Do(req *http.Request) (*http.Response, error) {
	if c == nil {
		return nil, errors.New("retry client is nil")
	}
	if req == nil {
		return nil, errors.New("request is nil")
	}

	body, err := snapshotBody(req.Body)
	if err != nil {
		return nil, err
	}

	ctx := req.Context()
	lastStatus := 0
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		attemptReq, cancel := withRequestTimeout(cloneRequest(req, body), c.timeout)

		resp, err := c.doer.Do(attemptReq)
		if err != nil {
			cancel()
			if !shouldRetryError(ctx, err) || attempt == c.maxAttempts {
				return nil, err
			}
			backoff := c.backoff(attempt, 0)
			c.logger.Debug("retrying tracker request", "url", req.URL.Path, "attempt", attempt, "backoff", backoff, "error", err)
			if err := c.sleeper.Sleep(ctx, backoff); err != nil {
				return nil, err
			}
			continue
		}

		if !c.shouldRetryStatus(resp.StatusCode) {
			if resp.Body != nil {
				resp.Body = &cancelOnCloseReadCloser{ReadCloser: resp.Body, cancel: cancel}
			} else {
				cancel()
			}
			return resp, nil
		}

		lastStatus = resp.StatusCode
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		drainAndClose(resp.Body)
		cancel()
		if attempt == c.maxAttempts {
			break
		}

		backoff := c.backoff(attempt, retryAfter)
		c.logger.Debug("retrying tracker request", "url", req.URL.Path, "attempt", attempt, "status", resp.StatusCode, "backoff", backoff)
		if err := c.sleeper.Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, &ExhaustedError{Attempts: c.maxAttempts, StatusCode: lastStatus}
}

// backoff doubles the base delay per attempt, prefers a longer Retry-After
// and never exceeds maxBackoff.
func (c *RetryClient) backoff(attempt int, retryAfter time.Duration) time.Duration {
	delay := c.baseBackoff << (attempt - 1)
	if delay <= 0 || delay > c.maxBackoff {
		delay = c.maxBackoff
	}
	if retryAfter > delay {
		delay = min(retryAfter, c.maxBackoff)
	}
	return delay
}

func (c *RetryClient) shouldRetryStatus(statusCode int) bool {
	_, ok := c.retryCodes[statusCode]
	return ok
}

func resolveOptions(options Options) Options {
	resolved := options
	if resolved.Timeout <= 0 {
		resolved.Timeout = contracts.DefaultHTTPTimeout
	}
	if resolved.MaxAttempts <= 0 {
		resolved.MaxAttempts = contracts.DefaultRetryMaxAttempts
	}
	if resolved.BaseBackoff <= 0 {
		resolved.BaseBackoff = contracts.DefaultRetryBaseBackoff
	}
	if resolved.MaxBackoff <= 0 {
		resolved.MaxBackoff = contracts.DefaultRetryMaxBackoff
	}
	if resolved.Logger == nil {
		resolved.Logger = slog.New(slog.DiscardHandler)
	}
	if len(resolved.RetryOnCodes) == 0 {
		resolved.RetryOnCodes = map[int]struct{}{
			http.StatusTooManyRequests:     {},
			http.StatusInternalServerError: {},
			http.StatusBadGateway:          {},
			http.StatusServiceUnavailable:  {},
			http.StatusGatewayTimeout:      {},
		}
	}
	return resolved
}

func snapshotBody(body io.ReadCloser) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	defer body.Close()
	return io.ReadAll(body)
}

func cloneRequest(req *http.Request, body []byte) *http.Request {
	clone := req.Clone(req.Context())
	if body == nil {
		clone.Body = nil
		clone.GetBody = nil
		clone.ContentLength = 0
		return clone
	}

	clone.Body = io.NopCloser(bytes.NewReader(body))
	clone.ContentLength = int64(len(body))
	clone.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return clone
}

func withRequestTimeout(req *http.Request, timeout time.Duration) (*http.Request, context.CancelFunc) {
	if timeout <= 0 {
		return req, func() {}
	}

	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	return req.WithContext(ctx), cancel
}

// shouldRetryError retries attempt timeouts and network timeouts, but not
// a cancelled or expired parent context.
func shouldRetryError(parent context.Context, err error) bool {
	if err == nil || parent.Err() != nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func parseRetryAfter(value string, now time.Time) time.Duration {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(trimmed); err == nil {
		if seconds <= 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if when, err := http.ParseTime(trimmed); err == nil {
		if delta := when.Sub(now); delta > 0 {
			return delta
		}
	}

	return 0
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type cancelOnCloseReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnCloseReadCloser) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	return c.ReadCloser.Close()
}
