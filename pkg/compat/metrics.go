// Package compat reads the compatibility-metrics snapshot produced by the
// store. The snapshot is opaque JSON; fields are read tolerantly so a
// malformed value degrades to "absent" rather than failing the request.
package compat

import (
	"bytes"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// MismatchedQuestion is one entry of top_mismatched_questions.
// MismatchPct is nil when the snapshot carried no usable number.
type MismatchedQuestion struct {
	QuestionText string
	MismatchPct  *float64
	Weight       float64
}

type Metrics struct {
	OverallScore           *float64
	StrongestModules       json.RawMessage
	HighestMismatchModules json.RawMessage
	TopMismatchedQuestions []MismatchedQuestion

	// Raw is the snapshot as received. It is what gets persisted.
	Raw json.RawMessage
}

// Parse returns nil for empty input, JSON null, or anything that is not an object.
func Parse(raw []byte) *Metrics {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !gjson.ValidBytes(trimmed) {
		return nil
	}

	root := gjson.ParseBytes(trimmed)
	// RPCs sometimes wrap a single row in an array.
	if root.IsArray() {
		first := root.Get("0")
		if !first.Exists() {
			return nil
		}
		root = first
		trimmed = []byte(first.Raw)
	}
	if !root.IsObject() {
		return nil
	}

	m := &Metrics{
		Raw:                    json.RawMessage(trimmed),
		StrongestModules:       rawOrNull(root.Get("strongest_modules")),
		HighestMismatchModules: rawOrNull(root.Get("highest_mismatch_modules")),
	}

	if overall := root.Get("overall_score"); overall.Type == gjson.Number {
		v := overall.Float()
		m.OverallScore = &v
	}

	questions := root.Get("top_mismatched_questions")
	if !questions.IsArray() {
		return m
	}
	questions.ForEach(func(_, q gjson.Result) bool {
		item := MismatchedQuestion{
			QuestionText: q.Get("question_text").String(),
			Weight:       1,
		}
		if pct := q.Get("mismatch_pct"); pct.Type == gjson.Number {
			v := pct.Float()
			item.MismatchPct = &v
		}
		if w := q.Get("weight"); w.Type == gjson.Number {
			item.Weight = w.Float()
		}
		m.TopMismatchedQuestions = append(m.TopMismatchedQuestions, item)
		return true
	})

	return m
}

// TopMismatchedRaw returns the question list as it appeared in the snapshot.
func (m *Metrics) TopMismatchedRaw() json.RawMessage {
	if m == nil {
		return json.RawMessage("null")
	}
	return rawOrNull(gjson.GetBytes(m.Raw, "top_mismatched_questions"))
}

func rawOrNull(r gjson.Result) json.RawMessage {
	if !r.Exists() {
		return json.RawMessage("null")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(r.Raw)); err != nil {
		return json.RawMessage(r.Raw)
	}
	return json.RawMessage(buf.Bytes())
}
