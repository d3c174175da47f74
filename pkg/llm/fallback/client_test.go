package fallback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"couple-summary-be/internal/pkg/logger"
	"couple-summary-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reply struct {
	text string
	err  error
}

// scriptedProvider answers each model from its own queue.
type scriptedProvider struct {
	mu      sync.Mutex
	replies map[string][]reply
	calls   []string
	seen    []llm.Options
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return p.Generate(ctx, history[len(history)-1].Content, opts...)
}

func (p *scriptedProvider) Generate(_ context.Context, _ string, opts ...llm.Option) (string, error) {
	o := llm.Apply(llm.Options{}, opts...)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, o.Model)
	p.seen = append(p.seen, o)

	queue := p.replies[o.Model]
	if len(queue) == 0 {
		return "", errors.New("unexpected call to " + o.Model)
	}
	next := queue[0]
	p.replies[o.Model] = queue[1:]
	return next.text, next.err
}

func httpErr(status int, body string) error {
	return &llm.ProviderError{Kind: llm.KindHTTP, StatusCode: status, Body: body}
}

func newTestClient(p llm.LLMProvider, models ...string) (*Client, *[]time.Duration) {
	c := NewClient(p, models, logger.NewNop())
	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return c, &waits
}

func TestGenerate_FirstModelSucceeds(t *testing.T) {
	p := &scriptedProvider{replies: map[string][]reply{
		"a": {{text: `{"headline":"x"}`}},
	}}
	c, _ := newTestClient(p, "a", "b")

	gen, err := c.Generate(context.Background(), "prompt", llm.WithTemperature(0.4), llm.WithJSONResponse())
	require.NoError(t, err)
	assert.Equal(t, "a", gen.Model)
	assert.Equal(t, `{"headline":"x"}`, gen.Text)
	assert.Equal(t, []string{"a"}, p.calls)
	assert.True(t, p.seen[0].JSONMode)
	assert.Equal(t, 0.4, p.seen[0].Temperature)
}

func TestGenerate_GenericFailureFallsThrough(t *testing.T) {
	p := &scriptedProvider{replies: map[string][]reply{
		"a": {{err: httpErr(500, "boom")}},
		"b": {{text: "ok"}},
	}}
	c, waits := newTestClient(p, "a", "b")

	gen, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "b", gen.Model)
	assert.Equal(t, []string{"a", "b"}, p.calls)
	assert.Empty(t, *waits)
}

func TestGenerate_LocalTimeoutStopsImmediately(t *testing.T) {
	p := &scriptedProvider{replies: map[string][]reply{
		"a": {{err: &llm.ProviderError{Kind: llm.KindTimeout, Model: "a"}}},
		"b": {{text: "never"}},
	}}
	c, _ := newTestClient(p, "a", "b")

	_, err := c.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, llm.ErrStillGenerating)
	assert.Equal(t, []string{"a"}, p.calls)
}

func TestGenerate_OverloadedRetriesSameModelOnce(t *testing.T) {
	p := &scriptedProvider{replies: map[string][]reply{
		"a": {{err: httpErr(503, "overloaded")}, {text: "second try"}},
	}}
	c, waits := newTestClient(p, "a", "b")

	gen, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "a", gen.Model)
	assert.Equal(t, "second try", gen.Text)
	assert.Equal(t, []string{"a", "a"}, p.calls)
	assert.Equal(t, []time.Duration{650 * time.Millisecond}, *waits)
}

func TestGenerate_OverloadedTwiceMovesOn(t *testing.T) {
	p := &scriptedProvider{replies: map[string][]reply{
		"a": {{err: httpErr(503, "overloaded")}, {err: httpErr(503, "still overloaded")}},
		"b": {{text: "ok"}},
	}}
	c, _ := newTestClient(p, "a", "b")

	gen, err := c.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "b", gen.Model)
	assert.Equal(t, []string{"a", "a", "b"}, p.calls)
}

func TestGenerate_RateLimitParsesRetryDelay(t *testing.T) {
	body := `{"error":{"code":429,"details":[
		{"@type":"type.googleapis.com/google.rpc.QuotaFailure"},
		{"@type":"type.googleapis.com/google.rpc.RetryInfo","retryDelay":"37s"}
	]}}`
	p := &scriptedProvider{replies: map[string][]reply{
		"a": {{err: httpErr(429, body)}},
		"b": {{text: "never"}},
	}}
	c, _ := newTestClient(p, "a", "b")

	_, err := c.Generate(context.Background(), "prompt")
	var rl *llm.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 37*time.Second, rl.RetryAfter)
	assert.Equal(t, body, rl.Body)
	assert.Equal(t, []string{"a"}, p.calls)
}

func TestGenerate_RateLimitDefaultsWithoutRetryInfo(t *testing.T) {
	p := &scriptedProvider{replies: map[string][]reply{
		"a": {{err: httpErr(429, "quota exceeded")}},
	}}
	c, _ := newTestClient(p, "a")

	_, err := c.Generate(context.Background(), "prompt")
	var rl *llm.RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 20*time.Second, rl.RetryAfter)
}

func TestGenerate_ExhaustedReturnsLastFailure(t *testing.T) {
	p := &scriptedProvider{replies: map[string][]reply{
		"a": {{err: httpErr(500, "first")}},
		"b": {{err: httpErr(400, "second")}},
	}}
	c, _ := newTestClient(p, "a", "b")

	_, err := c.Generate(context.Background(), "prompt")
	pe, ok := llm.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, 400, pe.StatusCode)
	assert.Equal(t, "second", pe.Body)
}

func TestGenerate_NoModels(t *testing.T) {
	c, _ := newTestClient(&scriptedProvider{}, []string{}...)
	_, err := c.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrNoModels)
}
