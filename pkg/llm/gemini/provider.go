package gemini

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

	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type GeminiProvider struct {
	BaseURL   string
	APIKey    string
	ModelName string
	Client    *retryhttp.Client
}

var _ llm.LLMProvider = &GeminiProvider{}

// NewGeminiProvider returns a provider whose calls allow long generations
// and leave status handling to the caller.
func NewGeminiProvider(baseURL, apiKey, modelName string, httpClient *http.Client) *GeminiProvider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &GeminiProvider{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIKey:    apiKey,
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

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

func (g *GeminiProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(llm.Options{
		Temperature: 0.4,
		MaxTokens:   4096,
		Model:       g.ModelName,
	}, opts...)

	contents := make([]geminiContent, 0, len(history))
	for _, msg := range history {
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}

	payload := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     options.Temperature,
			MaxOutputTokens: options.MaxTokens,
		},
	}
	if options.JSONMode {
		payload.GenerationConfig.ResponseMimeType = "application/json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	res, err := g.Client.Do(ctx, retryhttp.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/models/%s:generateContent", g.BaseURL, options.Model),
		Header: http.Header{
			"Content-Type":   []string{"application/json"},
			"X-Goog-Api-Key": []string{g.APIKey},
		},
		Body: body,
	})
	if err != nil {
		if errors.Is(err, retryhttp.ErrLocalTimeout) {
			return "", &llm.ProviderError{Kind: llm.KindTimeout, Model: options.Model, Err: err}
		}
		return "", &llm.ProviderError{Kind: llm.KindTransport, Model: options.Model, Err: err}
	}

	if !res.OK() {
		return "", &llm.ProviderError{
			Kind:       llm.KindHTTP,
			Model:      options.Model,
			StatusCode: res.StatusCode,
			Body:       string(res.Body),
		}
	}

	return ExtractText(res.Body), nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return g.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

// ExtractText pulls the candidate text out of a generateContent response.
// A body that is not JSON is returned as-is.
func ExtractText(body []byte) string {
	if !gjson.ValidBytes(body) {
		return string(body)
	}

	if first := gjson.GetBytes(body, "candidates.0.content.parts.0.text"); first.Exists() {
		return first.String()
	}

	var sb strings.Builder
	gjson.GetBytes(body, "candidates.0.content.parts").ForEach(func(_, part gjson.Result) bool {
		sb.WriteString(part.Get("text").String())
		return true
	})
	return sb.String()
}

// DefaultRetryDelay applies when a rate-limit response carries no RetryInfo.
const DefaultRetryDelay = 20 * time.Second

// RetryDelay reads google.rpc.RetryInfo.retryDelay ("27s") from an error body.
func RetryDelay(body string) (time.Duration, bool) {
	if !gjson.Valid(body) {
		return 0, false
	}

	details := gjson.Get(body, "error.details")
	if !details.IsArray() {
		return 0, false
	}

	var delay time.Duration
	found := false
	details.ForEach(func(_, d gjson.Result) bool {
		if !d.IsObject() || !strings.Contains(d.Map()["@type"].String(), "google.rpc.RetryInfo") {
			return true
		}
		raw := d.Get("retryDelay")
		if raw.Type != gjson.String || !strings.HasSuffix(raw.Str, "s") {
			return false
		}
		parsed, err := time.ParseDuration(raw.Str)
		if err != nil || parsed < 0 {
			return false
		}
		delay, found = parsed, true
		return false
	})
	return delay, found
}
