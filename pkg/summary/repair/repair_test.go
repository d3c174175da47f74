package repair

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"couple-summary-be/internal/pkg/logger"
	"couple-summary-be/pkg/llm"
	"couple-summary-be/pkg/llm/fallback"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}```", `{"a":1}`},
		{"upper case tag", "```JSON {\"a\":1} ```", `{"a":1}`},
		{"leading language word", "json\n{\"a\":1}", `{"a":1}`},
		{"no fence", `  {"a":1}  `, `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestExtractFirstObject(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"prose around object", `Here you go: {"a":{"b":1}} thanks`, `{"a":{"b":1}}`, true},
		{"two objects", `{"a":1} {"b":2}`, `{"a":1}`, true},
		{"unbalanced falls back to last brace", `{"a":{"b":1},"c":{} tail`, `{"a":{"b":1},"c":{}`, true},
		{"truncated keeps tail", `{"headline":"x","strengths":["a"`, `{"headline":"x","strengths":["a"`, true},
		{"no object", `["a","b"]`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFirstObject(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRemoveTrailingCommas(t *testing.T) {
	assert.Equal(t, `{"a":[1,2],"b":3}`, RemoveTrailingCommas(`{"a":[1,2, ],"b":3,
}`))
}

func TestBalanceBrackets(t *testing.T) {
	assert.Equal(t, `{"s":["a"]}`, BalanceBrackets(`{"s":["a"`))
	assert.Equal(t, `{"a":1}`, BalanceBrackets(`{"a":1}`))
}

func TestParseObject(t *testing.T) {
	t.Run("fenced with trailing comma", func(t *testing.T) {
		obj, err := ParseObject("```json\n{\"headline\":\"x\",\"strengths\":[\"a\",\"b\"],}\n```")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"headline":  "x",
			"strengths": []any{"a", "b"},
		}, obj)
	})

	t.Run("truncated output is closed", func(t *testing.T) {
		obj, err := ParseObject(`{"headline":"x","strengths":["a"`)
		require.NoError(t, err)
		assert.Equal(t, "x", obj["headline"])
		assert.Equal(t, []any{"a"}, obj["strengths"])
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseObject(`{"headline": x}`)
		var pe *ParseError
		require.ErrorAs(t, err, &pe)
	})

	t.Run("no object", func(t *testing.T) {
		_, err := ParseObject(`just words`)
		require.Error(t, err)
	})
}

func TestShape(t *testing.T) {
	risks := make([]any, 20)
	for i := range risks {
		risks[i] = fmt.Sprintf("risk %d", i)
	}
	obj := map[string]any{
		"headline":           42.0,
		"strengths":          []any{"a", 3.0, true, nil, map[string]any{"k": "v"}},
		"risks":              risks,
		"discussion_prompts": "not a list",
		"extra":              "dropped",
	}

	got := Shape(obj)

	assert.Equal(t, "", got.Headline)
	assert.Equal(t, []string{"a", "3", "true", "null", `{"k":"v"}`}, got.Strengths)
	assert.Len(t, got.Risks, 8)
	assert.Equal(t, "risk 7", got.Risks[7])
	assert.Equal(t, []string{}, got.DiscussionPrompts)
	assert.Equal(t, []string{}, got.NextSteps)

	encoded, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"next_steps":[]`)
}

func TestShape_Idempotent(t *testing.T) {
	first := Shape(map[string]any{
		"headline":  "h",
		"strengths": []any{"a", 1.5},
		"risks":     []any{"r"},
	})

	encoded, err := json.Marshal(first)
	require.NoError(t, err)
	obj, err := ParseObject(string(encoded))
	require.NoError(t, err)

	assert.Equal(t, first, Shape(obj))
	assert.Equal(t, first, Normalize(first))
}

func TestPlaceholder(t *testing.T) {
	p := Placeholder("because")
	assert.Equal(t, "Summary temporarily unavailable", p.Headline)
	assert.Equal(t, []string{"because"}, p.Risks)
	assert.Len(t, p.DiscussionPrompts, 2)
	assert.Len(t, p.NextSteps, 2)
	assert.Equal(t, p, Placeholder("because"))
}

type stubGenerator struct {
	text  string
	err   error
	calls int
	opts  llm.Options
}

func (s *stubGenerator) Generate(_ context.Context, _ string, opts ...llm.Option) (*fallback.Generation, error) {
	s.calls++
	s.opts = llm.Apply(llm.Options{}, opts...)
	if s.err != nil {
		return nil, s.err
	}
	return &fallback.Generation{Model: "m", Text: s.text}, nil
}

func TestPipeline_Run(t *testing.T) {
	valid := `{"headline":"ok","strengths":["s"],"risks":[],"discussion_prompts":[],"next_steps":[]}`

	t.Run("valid output needs no fix", func(t *testing.T) {
		gen := &stubGenerator{}
		out := NewPipeline(gen, 0, logger.NewNop()).Run(context.Background(), valid)
		assert.False(t, out.Fallback)
		assert.False(t, out.Repaired)
		assert.Equal(t, "ok", out.Summary.Headline)
		assert.Zero(t, gen.calls)
	})

	t.Run("one corrective call", func(t *testing.T) {
		gen := &stubGenerator{text: valid}
		out := NewPipeline(gen, 0, logger.NewNop()).Run(context.Background(), `not json at all`)
		assert.True(t, out.Repaired)
		assert.False(t, out.Fallback)
		assert.Equal(t, 1, gen.calls)
		assert.Equal(t, 0.0, gen.opts.Temperature)
		assert.Equal(t, 3072, gen.opts.MaxTokens)
	})

	t.Run("corrective call fails", func(t *testing.T) {
		gen := &stubGenerator{err: errors.New("down")}
		out := NewPipeline(gen, 0, logger.NewNop()).Run(context.Background(), `nope`)
		assert.True(t, out.Fallback)
		assert.Equal(t, ReasonRepairCallFailed, out.Reason)
		assert.Equal(t, "json_repair_failed", out.FailureEvent)
		assert.Equal(t, Placeholder(ReasonRepairCallFailed), out.Summary)
	})

	t.Run("corrected output still broken", func(t *testing.T) {
		gen := &stubGenerator{text: `still nope`}
		out := NewPipeline(gen, 0, logger.NewNop()).Run(context.Background(), `nope`)
		assert.True(t, out.Fallback)
		assert.Equal(t, ReasonInvalidAfterFix, out.Reason)
		assert.Equal(t, "json_invalid_after_repair", out.FailureEvent)
		assert.Equal(t, 1, gen.calls)
	})
}
