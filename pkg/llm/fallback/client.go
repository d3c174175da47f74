// Package fallback walks an ordered model list and decides, per failure,
// whether to retry, move on, or stop.
package fallback

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"couple-summary-be/internal/pkg/logger"
	"couple-summary-be/pkg/llm"
	"couple-summary-be/pkg/llm/gemini"
	"couple-summary-be/pkg/metrics"
)

const (
	DefaultOverloadWait = 650 * time.Millisecond
	DefaultRetryAfter   = gemini.DefaultRetryDelay
)

var ErrNoModels = errors.New("no generation models configured")

// Generation is a successful call and the model that produced it.
type Generation struct {
	Model string
	Text  string
}

// RetryDelayParser reads a provider-advised delay out of a 429 body.
type RetryDelayParser func(body string) (time.Duration, bool)

type Client struct {
	provider     llm.LLMProvider
	models       []string
	retryDelay   RetryDelayParser
	overloadWait time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
	logger       logger.ILogger
}

type ClientOption func(*Client)

func WithRetryDelayParser(p RetryDelayParser) ClientOption {
	return func(c *Client) {
		c.retryDelay = p
	}
}

func WithOverloadWait(d time.Duration) ClientOption {
	return func(c *Client) {
		c.overloadWait = d
	}
}

func NewClient(provider llm.LLMProvider, models []string, log logger.ILogger, opts ...ClientOption) *Client {
	c := &Client{
		provider:     provider,
		models:       models,
		retryDelay:   gemini.RetryDelay,
		overloadWait: DefaultOverloadWait,
		sleep:        sleepContext,
		logger:       log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Models() []string {
	return append([]string(nil), c.models...)
}

// Generate tries each model in order. It stops early with llm.ErrStillGenerating
// on a local timeout and with *llm.RateLimitError on a 429; otherwise it
// returns the last failure once every model has been tried.
func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.Option) (*Generation, error) {
	if len(c.models) == 0 {
		return nil, ErrNoModels
	}

	var lastErr error
	for _, model := range c.models {
		text, err := c.call(ctx, model, prompt, opts)
		if err == nil {
			return &Generation{Model: model, Text: text}, nil
		}
		if stop := c.terminal(ctx, model, err); stop != nil {
			return nil, stop
		}

		if pe, ok := llm.AsProviderError(err); ok && pe.Kind == llm.KindHTTP && pe.StatusCode == http.StatusServiceUnavailable {
			c.logger.Warn("GENERATION", "Model overloaded, retrying once", map[string]interface{}{
				"model": model,
			})
			if werr := c.sleep(ctx, c.overloadWait); werr != nil {
				return nil, werr
			}
			text, err = c.call(ctx, model, prompt, opts)
			if err == nil {
				return &Generation{Model: model, Text: text}, nil
			}
			if stop := c.terminal(ctx, model, err); stop != nil {
				return nil, stop
			}
		}

		c.logger.Warn("GENERATION", "Model failed, trying next", map[string]interface{}{
			"model": model,
			"error": err.Error(),
		})
		lastErr = err
	}

	return nil, lastErr
}

func (c *Client) call(ctx context.Context, model, prompt string, opts []llm.Option) (string, error) {
	callOpts := append(append([]llm.Option(nil), opts...), llm.WithModel(model))
	text, err := c.provider.Generate(ctx, prompt, callOpts...)
	metrics.RecordProviderAttempt(model, result(err))
	return text, err
}

// terminal returns a non-nil error when err must end the whole walk.
func (c *Client) terminal(ctx context.Context, model string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	pe, ok := llm.AsProviderError(err)
	if !ok {
		return nil
	}

	switch {
	case pe.Kind == llm.KindTimeout:
		c.logger.Warn("GENERATION", "Local timeout, leaving generation to finish upstream", map[string]interface{}{
			"model": model,
		})
		return errors.Join(llm.ErrStillGenerating, err)
	case pe.Kind == llm.KindHTTP && pe.StatusCode == http.StatusTooManyRequests:
		delay, found := c.retryDelay(pe.Body)
		if !found {
			delay = DefaultRetryAfter
		}
		return &llm.RateLimitError{Model: model, RetryAfter: delay, Body: pe.Body}
	}
	return nil
}

func result(err error) string {
	if err == nil {
		return "ok"
	}
	if pe, ok := llm.AsProviderError(err); ok {
		if pe.Kind == llm.KindHTTP {
			return strconv.Itoa(pe.StatusCode)
		}
		return pe.Kind.String()
	}
	return "error"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
