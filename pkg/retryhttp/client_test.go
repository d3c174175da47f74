package retryhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// recordSleeps swaps the real sleep for one that records requested delays.
func recordSleeps(c *Client) *[]time.Duration {
	var delays []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	return &delays
}

func TestDo_RetriesRetryableStatusThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.Client(), DefaultConfig())
	delays := recordSleeps(c)

	res, err := c.Do(context.Background(), Request{Method: http.MethodPost, URL: srv.URL, Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(res.Body))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{350 * time.Millisecond, 700 * time.Millisecond}, *delays)
}

func TestDo_ExhaustedStatusRetryReturnsLastResponse(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := New(srv.Client(), DefaultConfig())
	delays := recordSleeps(c)

	res, err := c.Do(context.Background(), Request{URL: srv.URL}, WithMaxRetries(2))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
	assert.Equal(t, "slow down", string(res.Body))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
	// no wait after the final attempt
	assert.Len(t, *delays, 2)
}

func TestDo_StatusRetryDisabled(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.Client(), DefaultConfig())
	recordSleeps(c)

	res, err := c.Do(context.Background(), Request{URL: srv.URL}, WithStatusRetry(false))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDo_TransientTransportErrorIsRetried(t *testing.T) {
	var calls int32
	rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, fmt.Errorf("read tcp 10.0.0.1:443: %w", syscall.ECONNRESET)
		}
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Header: http.Header{}}, nil
	})

	c := New(&http.Client{Transport: rt}, DefaultConfig())
	recordSleeps(c)

	res, err := c.Do(context.Background(), Request{URL: "http://provider.invalid"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestDo_PermanentTransportErrorIsNotRetried(t *testing.T) {
	var calls int32
	rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("x509: certificate signed by unknown authority")
	})

	c := New(&http.Client{Transport: rt}, DefaultConfig())
	recordSleeps(c)

	_, err := c.Do(context.Background(), Request{URL: "http://provider.invalid"})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDo_LocalTimeoutIsDistinct(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(srv.Client(), DefaultConfig())
	recordSleeps(c)

	_, err := c.Do(context.Background(), Request{URL: srv.URL},
		WithTimeout(30*time.Millisecond),
		WithTimeoutRetry(false),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocalTimeout)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestDo_CallerCancellationIsNotRetried(t *testing.T) {
	var calls int32
	ctx, cancel := context.WithCancel(context.Background())
	rt := roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		cancel()
		return nil, context.Canceled
	})

	c := New(&http.Client{Transport: rt}, DefaultConfig())
	recordSleeps(c)

	_, err := c.Do(ctx, Request{URL: "http://provider.invalid"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection reset", fmt.Errorf("wrapped: %w", syscall.ECONNRESET), true},
		{"flattened network text", errors.New("client: Network is unreachable"), true},
		{"sendrequest timed out", errors.New("error sending request: operation timed out"), true},
		{"canceled", context.Canceled, false},
		{"bad request", errors.New("invalid character 'x'"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsRetryableStatus(t *testing.T) {
	for _, s := range []int{429, 502, 503, 504} {
		assert.True(t, IsRetryableStatus(s), "status %d", s)
	}
	for _, s := range []int{200, 400, 401, 404, 500} {
		assert.False(t, IsRetryableStatus(s), "status %d", s)
	}
}
