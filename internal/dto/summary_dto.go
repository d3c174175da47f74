package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	SourceSharedCache = "shared_cache"
	SourceGenerated   = "generated"
	SourceFallback    = "fallback"
)

type SummaryRequest struct {
	SessionId string `json:"sessionId" validate:"required,uuid"`
}

// SummaryResult is what the summary flow hands back to the controller:
// an HTTP status, the body to encode, and an optional Retry-After.
type SummaryResult struct {
	StatusCode        int
	Body              interface{}
	RetryAfterSeconds int
}

type SummaryReadyResponse struct {
	Ok      bool            `json:"ok"`
	Summary json.RawMessage `json:"summary"`
	Source  string          `json:"source"`
	Note    string          `json:"note,omitempty"`
}

type SummaryPendingResponse struct {
	Ok     bool   `json:"ok"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

type SummaryRateLimitedResponse struct {
	Error             string      `json:"error"`
	RetryAfterSeconds int         `json:"retryAfterSeconds"`
	Details           interface{} `json:"details"`
}

type SummaryErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details"`
}

type SummaryStatusResponse struct {
	SessionId    uuid.UUID       `json:"sessionId"`
	Status       string          `json:"status"`
	Summary      json.RawMessage `json:"summary,omitempty"`
	ErrorMessage *string         `json:"errorMessage"`
	UpdatedAt    *time.Time      `json:"updatedAt"`
}
