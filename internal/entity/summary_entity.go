package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type SummaryStatus string

const (
	SummaryStatusNone       SummaryStatus = "none"
	SummaryStatusGenerating SummaryStatus = "generating"
	SummaryStatusReady      SummaryStatus = "ready"
	SummaryStatusError      SummaryStatus = "error"
)

// Summary is the shaped artifact shown to both partners.
type Summary struct {
	Headline          string   `json:"headline"`
	Strengths         []string `json:"strengths"`
	Risks             []string `json:"risks"`
	DiscussionPrompts []string `json:"discussion_prompts"`
	NextSteps         []string `json:"next_steps"`
}

// CoupleSummary is the shared lease record, one per session.
// Summary is set only while Status is ready.
type CoupleSummary struct {
	SessionId      uuid.UUID
	Status         SummaryStatus
	GeneratedBy    *uuid.UUID
	LeaseExpiresAt *time.Time
	ClaimToken     *uuid.UUID
	Summary        *string
	Metrics        json.RawMessage
	ErrorMessage   *string
	UpdatedAt      time.Time
}

// HasReadySummary reports whether the record can be served as-is.
func (c *CoupleSummary) HasReadySummary() bool {
	return c != nil && c.Status == SummaryStatusReady && c.Summary != nil && *c.Summary != ""
}

// UserSummary is the per-participant copy keyed by (session, user).
type UserSummary struct {
	SessionId uuid.UUID
	UserId    uuid.UUID
	Summary   string
	Metrics   json.RawMessage
	UpdatedAt time.Time
}

// Claimable reports whether a new holder may take the lease at now.
// A nil record has never been claimed.
func (c *CoupleSummary) Claimable(now time.Time) bool {
	if c == nil {
		return true
	}
	switch c.Status {
	case SummaryStatusNone, SummaryStatusError, "":
		return true
	case SummaryStatusReady:
		return !c.HasReadySummary()
	case SummaryStatusGenerating:
		return c.LeaseExpiresAt == nil || !now.Before(*c.LeaseExpiresAt)
	}
	return false
}
