package factory

import (
	"net/http"
	"testing"

	"couple-summary-be/pkg/llm/gemini"
	"couple-summary-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	p, err := NewLLMProvider(Config{Provider: "gemini", ModelName: "gemini-2.5-flash", APIKey: "k"}, http.DefaultClient)
	require.NoError(t, err)
	assert.IsType(t, &gemini.GeminiProvider{}, p)

	p, err = NewLLMProvider(Config{Provider: "ollama", ModelName: "llama3"}, http.DefaultClient)
	require.NoError(t, err)
	require.IsType(t, &ollama.OllamaProvider{}, p)
	assert.Equal(t, "http://localhost:11434", p.(*ollama.OllamaProvider).BaseURL)

	_, err = NewLLMProvider(Config{Provider: "gemini"}, http.DefaultClient)
	assert.Error(t, err)

	_, err = NewLLMProvider(Config{Provider: "huggingface"}, http.DefaultClient)
	assert.Error(t, err)
}
