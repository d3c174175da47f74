package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"couple-summary-be/pkg/llm"
	"couple-summary-be/pkg/retryhttp"
)

type OllamaProvider struct {
	BaseURL   string
	ModelName string
	Client    *retryhttp.Client
}

// Ensure OllamaProvider implements LLMProvider
var _ llm.LLMProvider = &OllamaProvider{}

func NewOllamaProvider(baseURL, modelName string, httpClient *http.Client) *OllamaProvider {
	return &OllamaProvider{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		ModelName: modelName,
		Client: retryhttp.New(httpClient, retryhttp.Config{
			MaxRetries:     1,
			BaseDelay:      650 * time.Millisecond,
			Timeout:        retryhttp.MaxTimeout,
			RetryOnStatus:  false,
			RetryOnTimeout: false,
		}),
	}
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(llm.Options{
		Temperature: 0.4,
		Model:       o.ModelName,
	}, opts...)

	messages := make([]ollamaMessage, len(history))
	for i, msg := range history {
		role := msg.Role
		if role == "model" {
			role = "assistant"
		}
		messages[i] = ollamaMessage{Role: role, Content: msg.Content}
	}

	reqPayload := ollamaChatRequest{
		Model:    options.Model,
		Messages: messages,
		Stream:   false,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
			NumPredict:  options.MaxTokens,
		},
	}
	if options.JSONMode {
		reqPayload.Format = "json"
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	res, err := o.Client.Do(ctx, retryhttp.Request{
		Method: http.MethodPost,
		URL:    o.BaseURL + "/api/chat",
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   payloadBytes,
	})
	if err != nil {
		kind := llm.KindTransport
		if errors.Is(err, retryhttp.ErrLocalTimeout) {
			kind = llm.KindTimeout
		}
		return "", &llm.ProviderError{Kind: kind, Model: options.Model, Err: err}
	}

	if res.StatusCode != http.StatusOK {
		return "", &llm.ProviderError{
			Kind:       llm.KindHTTP,
			Model:      options.Model,
			StatusCode: res.StatusCode,
			Body:       string(res.Body),
		}
	}

	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(res.Body, &ollamaResp); err != nil {
		return "", &llm.ProviderError{
			Kind:  llm.KindTransport,
			Model: options.Model,
			Err:   fmt.Errorf("unmarshal response: %w", err),
		}
	}

	return ollamaResp.Message.Content, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	// Reuse Chat; the backends we run are chat-tuned.
	return o.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}
