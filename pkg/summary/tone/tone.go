// Package tone picks the stylistic profile for a summary from the
// compatibility metrics. It performs no I/O.
package tone

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"couple-summary-be/pkg/compat"
)

type Profile string

const (
	CelebratoryGrowth Profile = "CELEBRATORY_GROWTH"
	BalancedGrowth    Profile = "BALANCED_GROWTH"
	GentleStructured  Profile = "GENTLE_STRUCTURED"
)

const (
	HighSeverityThreshold = 0.72
	MidSeverityThreshold  = 0.45

	celebratoryFloor = 80.0
	balancedFloor    = 55.0
)

// Selection is the chosen tone plus the audit trail that produced it.
// Rationale is for logs only and never reaches end users.
type Selection struct {
	Tone      Profile
	Rationale string
	Severity  *float64
	Overall   *float64
}

// Severity is the worst weighted mismatch normalised to 0..1, or nil when
// the snapshot has no mismatched-question data.
func Severity(m *compat.Metrics) *float64 {
	if m == nil || len(m.TopMismatchedQuestions) == 0 {
		return nil
	}

	maxWeighted := 0.0
	for _, q := range m.TopMismatchedQuestions {
		if q.MismatchPct == nil {
			continue
		}
		weight := math.Max(1, math.Min(3, q.Weight))
		weighted := (*q.MismatchPct / 100) * weight
		if weighted > maxWeighted {
			maxWeighted = weighted
		}
	}

	severity := math.Min(1, maxWeighted/3)
	return &severity
}

func Select(m *compat.Metrics) Selection {
	var overall *float64
	if m != nil {
		overall = m.OverallScore
	}
	severity := Severity(m)

	high := severity != nil && *severity >= HighSeverityThreshold
	mid := severity != nil && *severity >= MidSeverityThreshold

	var tone Profile
	switch {
	case overall == nil:
		tone = BalancedGrowth
	case *overall >= celebratoryFloor:
		tone = CelebratoryGrowth
		if high {
			tone = BalancedGrowth
		}
	case *overall >= balancedFloor:
		tone = BalancedGrowth
		if high {
			tone = GentleStructured
		}
	default:
		tone = GentleStructured
	}

	return Selection{
		Tone:      tone,
		Rationale: rationale(overall, severity, tone, high, mid),
		Severity:  severity,
		Overall:   overall,
	}
}

func rationale(overall, severity *float64, tone Profile, high, mid bool) string {
	overallStr := "n/a"
	if overall != nil {
		overallStr = strconv.FormatFloat(*overall, 'f', -1, 64)
	}
	severityStr := "n/a"
	if severity != nil {
		severityStr = fmt.Sprintf("%.2f", *severity)
	}

	note := ""
	switch {
	case high:
		note = " (severity override)"
	case mid:
		note = " (severity noted)"
	}

	return fmt.Sprintf("overall=%s, severity=%s, rule=%s%s", overallStr, severityStr, tone, note)
}

// Directives returns the fixed instruction block for a tone, consumed
// verbatim by the prompt builder.
func Directives(t Profile) string {
	switch t {
	case CelebratoryGrowth:
		return strings.Join([]string{
			"TONE_PROFILE=CELEBRATORY_GROWTH",
			"- Style: warm, optimistic, celebratory, affectionate but not cheesy.",
			"- Still include 1–2 meaningful growth edges (no perfection language).",
			`- Avoid minimizing mismatches; frame them as "tuning" and "alignment choices".`,
		}, "\n")
	case GentleStructured:
		return strings.Join([]string{
			"TONE_PROFILE=GENTLE_STRUCTURED",
			"- Style: gentle, supportive, structured, non-judgmental.",
			`- Avoid doom language. Avoid "red flag" phrasing.`,
			"- Focus on clarity, values, boundaries, and step-by-step conversations.",
			"- Make next_steps especially concrete and paced.",
		}, "\n")
	default:
		return strings.Join([]string{
			"TONE_PROFILE=BALANCED_GROWTH",
			"- Style: practical, calm, constructive, emotionally intelligent.",
			"- Normalize differences; emphasize tradeoffs, negotiation, and curiosity.",
			"- Keep risks gentle and actionable (no alarmist language).",
		}, "\n")
	}
}
