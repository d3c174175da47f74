package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
	JSONMode    bool
}

// Apply returns the defaults with every option applied on top.
func Apply(defaults Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// WithJSONResponse asks the backend to constrain output to JSON where supported.
func WithJSONResponse() Option {
	return func(o *Options) {
		o.JSONMode = true
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

type ErrorKind int

const (
	// KindTransport covers failures before a response arrived.
	KindTransport ErrorKind = iota
	// KindTimeout is our own deadline. The backend may still be working.
	KindTimeout
	// KindHTTP is a non-2xx response; StatusCode and Body are set.
	KindHTTP
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	default:
		return "transport"
	}
}

// ProviderError is the classified failure every provider returns.
type ProviderError struct {
	Kind       ErrorKind
	Model      string
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("%s: status %d: %s", e.Model, e.StatusCode, e.Body)
	case KindTimeout:
		return fmt.Sprintf("%s: request timed out locally", e.Model)
	default:
		return fmt.Sprintf("%s: %v", e.Model, e.Err)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// AsProviderError unwraps err into a ProviderError when it is one.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// ErrStillGenerating means the call was abandoned locally and may still
// complete upstream. Callers should report "in progress", not failure.
var ErrStillGenerating = errors.New("generation still in progress upstream")

// RateLimitError is terminal for the current call chain.
type RateLimitError struct {
	Model      string
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: rate limited, retry after %s", e.Model, e.RetryAfter)
}
