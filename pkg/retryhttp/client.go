// Package retryhttp executes one logical HTTP call against an attempt budget,
// retrying transient transport failures and (optionally) retryable statuses.
package retryhttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"couple-summary-be/pkg/metrics"

	"github.com/cenkalti/backoff/v5"
)

// MaxTimeout caps any per-attempt timeout, including the long generation calls.
const MaxTimeout = 120 * time.Second

// ErrLocalTimeout means our own per-attempt deadline fired. The remote side may
// still be working on the request.
var ErrLocalTimeout = errors.New("request timed out locally")

// Request is a buffered request so every attempt can resend the same body.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Config is the attempt budget for one call.
type Config struct {
	MaxRetries     int
	BaseDelay      time.Duration
	Timeout        time.Duration
	RetryOnStatus  bool
	RetryOnTimeout bool
}

// DefaultConfig returns the budget used for store and identity calls.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		BaseDelay:      350 * time.Millisecond,
		Timeout:        12 * time.Second,
		RetryOnStatus:  true,
		RetryOnTimeout: true,
	}
}

type Option func(*Config)

func WithMaxRetries(n int) Option {
	return func(c *Config) {
		if n >= 0 {
			c.MaxRetries = n
		}
	}
}

func WithBaseDelay(d time.Duration) Option {
	return func(c *Config) {
		c.BaseDelay = d
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithStatusRetry toggles retrying on 429/502/503/504.
func WithStatusRetry(enabled bool) Option {
	return func(c *Config) {
		c.RetryOnStatus = enabled
	}
}

// WithTimeoutRetry toggles retrying after a local timeout.
func WithTimeoutRetry(enabled bool) Option {
	return func(c *Config) {
		c.RetryOnTimeout = enabled
	}
}

type Client struct {
	httpClient *http.Client
	defaults   Config
	sleep      func(ctx context.Context, d time.Duration) error
}

func New(httpClient *http.Client, defaults Config) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		httpClient: httpClient,
		defaults:   defaults,
		sleep:      sleepContext,
	}
}

// Do runs the request until it succeeds, fails permanently, or the budget is spent.
// When retries run out on a retryable status, the last response is returned
// without an error; the caller decides what the status means.
func (c *Client) Do(ctx context.Context, req Request, opts ...Option) (*Response, error) {
	cfg := c.defaults
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Timeout <= 0 || cfg.Timeout > MaxTimeout {
		cfg.Timeout = MaxTimeout
	}

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = cfg.BaseDelay
	schedule.Multiplier = 2
	schedule.RandomizationFactor = 0
	schedule.MaxInterval = MaxTimeout
	schedule.Reset()

	for attempt := 0; ; attempt++ {
		res, err := c.attempt(ctx, req, cfg.Timeout)
		if err == nil {
			if cfg.RetryOnStatus && IsRetryableStatus(res.StatusCode) && attempt < cfg.MaxRetries {
				metrics.RecordHTTPRetry(strconv.Itoa(res.StatusCode))
				if werr := c.sleep(ctx, schedule.NextBackOff()); werr != nil {
					return nil, werr
				}
				continue
			}
			return res, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var retryable bool
		reason := "transport"
		if errors.Is(err, ErrLocalTimeout) {
			retryable = cfg.RetryOnTimeout
			reason = "local_timeout"
		} else {
			retryable = IsTransient(err)
		}
		if !retryable || attempt >= cfg.MaxRetries {
			return nil, err
		}

		metrics.RecordHTTPRetry(reason)
		if werr := c.sleep(ctx, schedule.NextBackOff()); werr != nil {
			return nil, werr
		}
	}
}

func (c *Client) attempt(ctx context.Context, req Request, timeout time.Duration) (*Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, attemptCtx, timeout, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, classify(ctx, attemptCtx, timeout, err)
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       data,
	}, nil
}

func classify(parent, attemptCtx context.Context, timeout time.Duration, err error) error {
	if parent.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", ErrLocalTimeout, timeout, err)
	}
	return err
}

// IsRetryableStatus reports whether a status is worth another attempt.
func IsRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsTransient classifies transport failures. Typed checks come first; the
// message match covers errors that arrive already flattened to text.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

var transientPatterns = []string{
	"connection reset",
	"connection error",
	"connection refused",
	"broken pipe",
	"timed out",
	"timeout",
	"network",
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
