package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"couple-summary-be/pkg/compat"
	"couple-summary-be/pkg/summary/tone"
)

// DefaultMaxAnswerChars bounds the serialized answer set regardless of how
// many questions the session has.
const DefaultMaxAnswerChars = 90000

// Answer is one compacted response: question, user, value.
type Answer struct {
	Q string          `json:"q"`
	U string          `json:"u"`
	A json.RawMessage `json:"a"`
}

type Input struct {
	SessionStatus  string
	Answers        []Answer
	Metrics        *compat.Metrics
	Tone           tone.Profile
	MaxAnswerChars int
}

// BuildSummary assembles the generation prompt. Output depends only on the input.
func BuildSummary(in Input) string {
	limit := in.MaxAnswerChars
	if limit <= 0 {
		limit = DefaultMaxAnswerChars
	}

	var b strings.Builder
	b.WriteString("You generate a relationship compatibility summary for TWO people.\n\n")
	b.WriteString("Return ONLY valid JSON (no markdown, no code fences, no commentary).\n")
	b.WriteString("JSON keys EXACTLY:\n")
	b.WriteString("headline (string),\n")
	b.WriteString("strengths (array of 3-6 strings),\n")
	b.WriteString("risks (array of 3-6 strings),\n")
	b.WriteString("discussion_prompts (array of 5-10 strings),\n")
	b.WriteString("next_steps (array of 3-6 strings)\n\n")

	b.WriteString("GLOBAL RULES:\n")
	b.WriteString("- Be culturally sensitive and respectful.\n")
	b.WriteString("- Avoid moralizing. Avoid diagnosis/therapy language. Do not shame either person.\n")
	b.WriteString("- Do not mention \"AI\", \"model\", \"Gemini\", \"prompt\", \"tokens\", or internal systems.\n\n")

	b.WriteString("SESSION CONTEXT:\n")
	fmt.Fprintf(&b, "session_status=%s\n\n", in.SessionStatus)

	b.WriteString(tone.Directives(in.Tone))
	b.WriteString("\n\n")

	b.WriteString(metricsBlock(in.Metrics))
	b.WriteString("\n\n")

	b.WriteString("SUPPORTING ANSWERS (compact; may include free-text):\n")
	b.WriteString("answers=")
	b.WriteString(truncate(answersJSON(in.Answers), limit))
	b.WriteString("\n\n")

	b.WriteString("QUALITY RULES:\n")
	b.WriteString("- Prioritize top mismatched questions for Risks + Discussion Prompts.\n")
	b.WriteString("- Use strongest modules for Strengths.\n")
	b.WriteString("- Do not invent facts not supported by metrics/answers.")

	return b.String()
}

// BuildRepair asks for the broken text back as strict JSON and nothing else.
func BuildRepair(broken string) string {
	return "Fix the following to be STRICTLY valid JSON.\n" +
		"Return ONLY the corrected JSON object (no markdown).\n\n" +
		"BROKEN_JSON:\n" + broken
}

func metricsBlock(m *compat.Metrics) string {
	if m == nil {
		return "COMPATIBILITY METRICS:\n" +
			"- Not available. Use answers only; avoid numeric claims about compatibility."
	}

	overall := "null"
	if m.OverallScore != nil {
		overall = fmt.Sprintf("%v", *m.OverallScore)
	}

	lines := []string{
		"COMPATIBILITY METRICS (primary evidence; use these to prioritize what matters):",
		fmt.Sprintf("- overall_score: %s / 100", overall),
		"",
		"- strongest_modules (top 3):",
		string(m.StrongestModules),
		"",
		"- highest_mismatch_modules (top 3):",
		string(m.HighestMismatchModules),
		"",
		"- top_mismatched_questions (top 5):",
		string(m.TopMismatchedRaw()),
		"",
		"How to use:",
		"- Use strongest_modules to choose Strengths that feel specific (not generic).",
		"- Use highest_mismatch_modules + top_mismatched_questions to choose Risks + Discussion Prompts.",
		"- Do NOT mention UUIDs or internal IDs in the final output.",
		"- Paraphrase question_text naturally.",
		"- If values are short (e.g., \"3\", \"yes/no\"), interpret as preferences/importance without overclaiming.",
	}
	return strings.Join(lines, "\n")
}

func answersJSON(answers []Answer) string {
	if answers == nil {
		answers = []Answer{}
	}
	normalized := make([]Answer, len(answers))
	for i, a := range answers {
		if len(bytes.TrimSpace(a.A)) == 0 {
			a.A = json.RawMessage("null")
		}
		normalized[i] = a
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return "[]"
	}
	return strings.TrimRight(buf.String(), "\n")
}

// truncate cuts on a rune boundary.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
