// Package repair turns unreliable model text into a summary that always
// matches the stored schema.
package repair

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"couple-summary-be/internal/entity"
)

const (
	MaxStrengths         = 8
	MaxRisks             = 8
	MaxDiscussionPrompts = 12
	MaxNextSteps         = 8
)

// ParseError explains why text could not be read as a JSON object.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return e.Reason }

var (
	openingFence  = regexp.MustCompile("(?i)^\\s*```(?:json)?\\s*")
	closingFence  = regexp.MustCompile("\\s*```\\s*$")
	languageTag   = regexp.MustCompile(`(?i)^\s*json\s*`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
)

func StripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	t = openingFence.ReplaceAllString(t, "")
	t = closingFence.ReplaceAllString(t, "")
	t = languageTag.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// ExtractFirstObject returns the first balanced top-level {...}. When braces
// never balance it falls back to everything up to the last '}'.
func ExtractFirstObject(s string) (string, bool) {
	t := StripCodeFences(s)
	start := strings.IndexByte(t, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	for i := start; i < len(t); i++ {
		switch t[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return strings.TrimSpace(t[start : i+1]), true
			}
		}
	}

	end := strings.LastIndexByte(t, '}')
	if end <= start {
		// Truncated output: keep the tail so the balancer can close it.
		return strings.TrimSpace(t[start:]), true
	}
	return strings.TrimSpace(t[start : end+1]), true
}

func RemoveTrailingCommas(s string) string {
	return trailingComma.ReplaceAllString(s, "$1")
}

// BalanceBrackets appends missing closers, squares first then curlies.
func BalanceBrackets(s string) string {
	var curlyOpen, curlyClose, squareOpen, squareClose int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			curlyOpen++
		case '}':
			curlyClose++
		case '[':
			squareOpen++
		case ']':
			squareClose++
		}
	}

	var b strings.Builder
	b.WriteString(s)
	b.WriteString(strings.Repeat("]", max(0, squareOpen-squareClose)))
	b.WriteString(strings.Repeat("}", max(0, curlyOpen-curlyClose)))
	return b.String()
}

// ParseObject runs the textual repairs and parses the result. Only a JSON
// object is accepted.
func ParseObject(raw string) (map[string]any, error) {
	extracted, ok := ExtractFirstObject(raw)
	if !ok {
		return nil, &ParseError{Reason: "no JSON object found in model output"}
	}

	repaired := BalanceBrackets(RemoveTrailingCommas(extracted))

	var parsed any
	if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("parse failed after repair: %v", err)}
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: "parsed JSON is not an object"}
	}
	return obj, nil
}

// Shape coerces a parsed object into the summary schema. Shaping an already
// shaped summary returns it unchanged.
func Shape(obj map[string]any) entity.Summary {
	headline, _ := obj["headline"].(string)
	return entity.Summary{
		Headline:          headline,
		Strengths:         stringList(obj["strengths"], MaxStrengths),
		Risks:             stringList(obj["risks"], MaxRisks),
		DiscussionPrompts: stringList(obj["discussion_prompts"], MaxDiscussionPrompts),
		NextSteps:         stringList(obj["next_steps"], MaxNextSteps),
	}
}

// Normalize re-applies the caps to a typed summary.
func Normalize(s entity.Summary) entity.Summary {
	return entity.Summary{
		Headline:          s.Headline,
		Strengths:         capList(s.Strengths, MaxStrengths),
		Risks:             capList(s.Risks, MaxRisks),
		DiscussionPrompts: capList(s.DiscussionPrompts, MaxDiscussionPrompts),
		NextSteps:         capList(s.NextSteps, MaxNextSteps),
	}
}

// Placeholder is served when model output cannot be recovered.
func Placeholder(reason string) entity.Summary {
	return Normalize(entity.Summary{
		Headline:  "Summary temporarily unavailable",
		Strengths: []string{"Try generating again in a moment."},
		Risks:     []string{reason},
		DiscussionPrompts: []string{
			"What felt most aligned during this session?",
			"What topic felt most different, and why?",
		},
		NextSteps: []string{
			"Retry generating the summary.",
			"Discuss one key mismatch together.",
		},
	})
}

func stringList(v any, limit int) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, min(len(items), limit))
	for _, item := range items {
		if len(out) == limit {
			break
		}
		out = append(out, stringify(item))
	}
	return out
}

func capList(items []string, limit int) []string {
	if len(items) > limit {
		items = items[:limit]
	}
	return append(make([]string, 0, len(items)), items...)
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
