package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"couple-summary-be/internal/dto"
	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/pkg/logger"
	"couple-summary-be/internal/repository/cache"
	"couple-summary-be/internal/repository/specification"
	"couple-summary-be/internal/repository/unitofwork"
	"couple-summary-be/pkg/audit"
	"couple-summary-be/pkg/compat"
	"couple-summary-be/pkg/llm"
	"couple-summary-be/pkg/metrics"
	"couple-summary-be/pkg/summary/lease"
	"couple-summary-be/pkg/summary/persist"
	"couple-summary-be/pkg/summary/prompt"
	"couple-summary-be/pkg/summary/repair"
	"couple-summary-be/pkg/summary/tone"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotParticipant  = errors.New("caller is not a participant in this session")
)

const (
	notePendingOther   = "Summary is being generated by another request."
	notePendingTimeout = "Generation is taking longer; please poll."
	noteFallback       = "Fallback summary returned"
)

type SummaryConfig struct {
	Temperature     float64
	MaxOutputTokens int
	MaxAnswerChars  int
}

type ISummaryService interface {
	GenerateSummary(ctx context.Context, userId, sessionId uuid.UUID) (*dto.SummaryResult, error)
	GetSummaryStatus(ctx context.Context, userId, sessionId uuid.UUID) (*dto.SummaryStatusResponse, error)
}

type SummaryServiceDeps struct {
	UowFactory  unitofwork.RepositoryFactory
	Entitlement IEntitlementService
	Lease       *lease.Coordinator
	Writer      *persist.Writer
	Generator   repair.Generator
	Repair      *repair.Pipeline
	Cache       *cache.SummaryCache
	Audit       audit.Recorder
	Config      SummaryConfig
	Logger      logger.ILogger
}

type summaryService struct {
	SummaryServiceDeps
}

func NewSummaryService(deps SummaryServiceDeps) ISummaryService {
	if deps.Audit == nil {
		deps.Audit = audit.Nop{}
	}
	if deps.Config.Temperature == 0 {
		deps.Config.Temperature = 0.4
	}
	if deps.Config.MaxOutputTokens <= 0 {
		deps.Config.MaxOutputTokens = 4096
	}
	return &summaryService{SummaryServiceDeps: deps}
}

func (s *summaryService) GenerateSummary(ctx context.Context, userId, sessionId uuid.UUID) (*dto.SummaryResult, error) {
	uow := s.UowFactory.NewUnitOfWork(ctx)
	session, err := uow.PairSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return s.done("session_error", failure(http.StatusInternalServerError, "Failed to load session", err.Error())), nil
	}
	if session == nil {
		return s.done("not_found", failure(http.StatusNotFound, "Session not found", nil)), nil
	}
	if !session.IsParticipant(userId) {
		return s.done("forbidden", failure(http.StatusForbidden, "Not a participant in this session", nil)), nil
	}

	// A ready summary is served to either partner without an entitlement check.
	if res := s.fromSharedCache(ctx, userId, sessionId); res != nil {
		return s.done("shared_cache", res), nil
	}

	hasAccess, err := s.Entitlement.HasAccess(ctx, userId)
	if err != nil {
		return s.done("entitlement_error", failure(http.StatusInternalServerError, "Failed to check Pro", err.Error())), nil
	}
	if !hasAccess {
		return s.done("forbidden", failure(http.StatusForbidden, "Pro required", nil)), nil
	}
	if !session.IsCompleted() {
		return s.done("not_completed", failure(http.StatusConflict, "Session not completed", "AI summary is only available after completion.")), nil
	}

	claim, err := s.Lease.Claim(ctx, sessionId, userId)
	if err != nil {
		s.Logger.Error("SUMMARY", "Claim failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		s.Audit.Record(ctx, sessionId, userId, audit.EventClaimFailed, nil)
		return s.done("claim_error", failure(http.StatusInternalServerError, "Failed to claim generation lock", err.Error())), nil
	}
	if !claim.Claimed {
		s.Audit.Record(ctx, sessionId, userId, audit.EventAlreadyGenerating, map[string]interface{}{
			"current_status": string(claim.Status),
		})
		if claim.Status == entity.SummaryStatusReady && claim.Summary != nil {
			s.warmCache(ctx, sessionId, *claim.Summary)
			return s.done("shared_cache", ready(*claim.Summary, dto.SourceSharedCache, "")), nil
		}
		return s.done("contended", pending(notePendingOther)), nil
	}

	s.Audit.Record(ctx, sessionId, userId, audit.EventClaimed, nil)
	started := time.Now()
	res, outcome := s.generate(ctx, claim.Lease, session)
	metrics.ObserveGeneration(outcome, time.Since(started))
	return s.done(outcome, res), nil
}

// generate runs everything after a successful claim. The caller holds the
// lease for the whole call; each exit leaves the record in a state a poller
// can act on.
func (s *summaryService) generate(ctx context.Context, l lease.Lease, session *entity.PairSession) (*dto.SummaryResult, string) {
	sessionId, userId := session.Id, l.Holder

	if err := s.Lease.MarkGenerating(ctx, l); err != nil {
		s.Logger.Warn("SUMMARY", "Failed to mark generating", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}

	uow := s.UowFactory.NewUnitOfWork(ctx)
	responses, err := uow.PairSessionRepository().FindResponses(ctx, specification.BySessionID{SessionID: sessionId})
	if err != nil {
		s.Audit.Record(ctx, sessionId, userId, audit.EventResponsesFailed, map[string]interface{}{
			"error": lease.Truncate(err.Error(), 500),
		})
		s.markError(ctx, l, "Failed to load responses: "+err.Error())
		return failure(http.StatusInternalServerError, "Failed to load responses", err.Error()), "responses_error"
	}

	snapshot := s.loadMetrics(ctx, uow, sessionId)
	selection := tone.Select(snapshot)
	s.Logger.Info("SUMMARY", "Tone selected", map[string]interface{}{
		"session_id": sessionId.String(),
		"tone":       string(selection.Tone),
		"rationale":  selection.Rationale,
	})
	s.Audit.Record(ctx, sessionId, userId, audit.EventToneSelected, map[string]interface{}{
		"tone":      string(selection.Tone),
		"rationale": selection.Rationale,
	})

	summaryPrompt := prompt.BuildSummary(prompt.Input{
		SessionStatus:  session.Status,
		Answers:        compactAnswers(responses),
		Metrics:        snapshot,
		Tone:           selection.Tone,
		MaxAnswerChars: s.Config.MaxAnswerChars,
	})

	gen, err := s.Generator.Generate(ctx, summaryPrompt,
		llm.WithTemperature(s.Config.Temperature),
		llm.WithMaxTokens(s.Config.MaxOutputTokens),
		llm.WithJSONResponse(),
	)
	if err != nil {
		return s.generationFailed(ctx, l, err)
	}

	out := s.Repair.Run(ctx, gen.Text)
	if out.Fallback {
		s.Audit.Record(ctx, sessionId, userId, out.FailureEvent, nil)
	}

	summaryJSON, err := json.Marshal(out.Summary)
	if err != nil {
		s.markError(ctx, l, "Failed to encode summary: "+err.Error())
		return failure(http.StatusInternalServerError, "Failed to encode summary", err.Error()), "encode_error"
	}

	var metricsRaw json.RawMessage
	if snapshot != nil {
		metricsRaw = snapshot.Raw
	}

	source, note, outcome := dto.SourceGenerated, "", "generated"
	if out.Fallback {
		source, note, outcome = dto.SourceFallback, noteFallback, "fallback"
	}

	if err := s.Writer.SaveUser(ctx, sessionId, userId, string(summaryJSON), metricsRaw); err != nil {
		s.Audit.Record(ctx, sessionId, userId, audit.EventSaveFailed, map[string]interface{}{
			"details": err.Error(),
		})
		s.markError(ctx, l, "Failed to save per-user summary: "+err.Error())
		return failure(http.StatusInternalServerError, "Failed to save summary", err.Error()), "save_error"
	}

	if err := s.Writer.SaveShared(ctx, l, string(summaryJSON), metricsRaw); err != nil {
		if errors.Is(err, lease.ErrLeaseLost) {
			// A newer holder owns the record; leave it alone.
			s.Audit.Record(ctx, sessionId, userId, audit.EventLeaseLost, map[string]interface{}{
				"model": gen.Model,
			})
			return ready(string(summaryJSON), source, note), "lease_lost"
		}
		s.Audit.Record(ctx, sessionId, userId, audit.EventSaveFailed, map[string]interface{}{
			"details": err.Error(),
			"target":  "shared",
		})
		s.markError(ctx, l, "Failed to save shared summary: "+err.Error())
		return failure(http.StatusInternalServerError, "Failed to save summary", err.Error()), "save_error"
	}

	s.warmCache(ctx, sessionId, string(summaryJSON))

	kind := "final"
	if out.Fallback {
		kind = "fallback"
	}
	s.Audit.Record(ctx, sessionId, userId, audit.EventSaved, map[string]interface{}{
		"kind":     kind,
		"model":    gen.Model,
		"repaired": out.Repaired,
	})
	return ready(string(summaryJSON), source, note), outcome
}

func (s *summaryService) generationFailed(ctx context.Context, l lease.Lease, err error) (*dto.SummaryResult, string) {
	sessionId, userId := l.SessionId, l.Holder
	if errors.Is(err, llm.ErrStillGenerating) {
		s.Audit.Record(ctx, sessionId, userId, audit.EventAbortedReturn202, map[string]interface{}{
			"note": lease.Truncate(err.Error(), 200),
		})
		// The upstream call may still finish; keep the record generating.
		if merr := s.Lease.MarkGenerating(ctx, l); merr != nil {
			s.Logger.Warn("SUMMARY", "Failed to re-mark generating", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      merr.Error(),
			})
		}
		return pending(notePendingTimeout), "generating"
	}

	var rl *llm.RateLimitError
	if errors.As(err, &rl) {
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		s.Audit.Record(ctx, sessionId, userId, audit.EventRateLimited, map[string]interface{}{
			"retryAfterSeconds": secs,
			"model":             rl.Model,
		})
		s.markError(ctx, l, fmt.Sprintf("Rate limit exceeded. Retry in ~%ds.", secs))
		return &dto.SummaryResult{
			StatusCode: http.StatusTooManyRequests,
			Body: dto.SummaryRateLimitedResponse{
				Error:             "Gemini rate limited",
				RetryAfterSeconds: secs,
				Details:           bodyDetails(rl.Body),
			},
			RetryAfterSeconds: secs,
		}, "rate_limited"
	}

	status, raw := 0, err.Error()
	if pe, ok := llm.AsProviderError(err); ok {
		status = pe.StatusCode
		if pe.Body != "" {
			raw = pe.Body
		}
	}
	s.Audit.Record(ctx, sessionId, userId, audit.EventGenerationFailed, map[string]interface{}{
		"status": status,
		"raw":    lease.Truncate(raw, 500),
	})
	s.markError(ctx, l, "Gemini failed: "+raw)
	return failure(http.StatusInternalServerError, "Gemini failed", bodyDetails(raw)), "generation_error"
}

func (s *summaryService) GetSummaryStatus(ctx context.Context, userId, sessionId uuid.UUID) (*dto.SummaryStatusResponse, error) {
	uow := s.UowFactory.NewUnitOfWork(ctx)
	session, err := uow.PairSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if !session.IsParticipant(userId) {
		return nil, ErrNotParticipant
	}

	rec, err := s.Lease.Current(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	res := &dto.SummaryStatusResponse{
		SessionId: sessionId,
		Status:    string(entity.SummaryStatusNone),
	}
	if rec == nil {
		return res, nil
	}

	res.Status = string(rec.Status)
	res.ErrorMessage = rec.ErrorMessage
	updated := rec.UpdatedAt
	res.UpdatedAt = &updated
	if rec.HasReadySummary() {
		res.Summary = rawSummary(*rec.Summary)
	}
	return res, nil
}

func (s *summaryService) fromSharedCache(ctx context.Context, userId, sessionId uuid.UUID) *dto.SummaryResult {
	cached, err := s.Cache.Get(ctx, sessionId)
	if err != nil {
		s.Logger.Warn("CACHE", "Summary cache read failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
	if cached == "" {
		rec, err := s.Lease.Current(ctx, sessionId)
		if err != nil {
			s.Logger.Warn("SUMMARY", "Shared record lookup failed", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
			return nil
		}
		if !rec.HasReadySummary() {
			return nil
		}
		cached = *rec.Summary
		s.warmCache(ctx, sessionId, cached)
	}

	s.Audit.Record(ctx, sessionId, userId, audit.EventAlreadyReady, map[string]interface{}{
		"source": dto.SourceSharedCache,
	})
	return ready(cached, dto.SourceSharedCache, "")
}

func (s *summaryService) loadMetrics(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID) *compat.Metrics {
	raw, err := uow.PairSessionRepository().CompatibilityMetrics(ctx, sessionId)
	if err != nil {
		s.Logger.Warn("SUMMARY", "Compatibility metrics unavailable", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return nil
	}
	return compat.Parse(raw)
}

func (s *summaryService) markError(ctx context.Context, l lease.Lease, message string) {
	if err := s.Lease.MarkError(ctx, l, message); err != nil {
		s.Logger.Warn("SUMMARY", "Failed to mark error", map[string]interface{}{
			"session_id": l.SessionId.String(),
			"error":      err.Error(),
		})
	}
}

func (s *summaryService) warmCache(ctx context.Context, sessionId uuid.UUID, summaryJSON string) {
	if err := s.Cache.Set(ctx, sessionId, summaryJSON); err != nil {
		s.Logger.Warn("CACHE", "Summary cache write failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
}

func (s *summaryService) done(outcome string, res *dto.SummaryResult) *dto.SummaryResult {
	metrics.RecordOutcome(outcome)
	return res
}

func compactAnswers(responses []*entity.Response) []prompt.Answer {
	answers := make([]prompt.Answer, 0, len(responses))
	for _, r := range responses {
		answers = append(answers, prompt.Answer{
			Q: r.QuestionId.String(),
			U: r.UserId.String(),
			A: r.Value,
		})
	}
	return answers
}

func ready(summaryJSON, source, note string) *dto.SummaryResult {
	return &dto.SummaryResult{
		StatusCode: http.StatusOK,
		Body: dto.SummaryReadyResponse{
			Ok:      true,
			Summary: rawSummary(summaryJSON),
			Source:  source,
			Note:    note,
		},
	}
}

func pending(note string) *dto.SummaryResult {
	return &dto.SummaryResult{
		StatusCode: http.StatusAccepted,
		Body: dto.SummaryPendingResponse{
			Ok:     false,
			Status: string(entity.SummaryStatusGenerating),
			Note:   note,
		},
	}
}

func failure(status int, message string, details interface{}) *dto.SummaryResult {
	return &dto.SummaryResult{
		StatusCode: status,
		Body:       dto.SummaryErrorResponse{Error: message, Details: details},
	}
}

// rawSummary embeds stored summary JSON as-is; anything that is not valid
// JSON is sent as a string.
func rawSummary(stored string) json.RawMessage {
	if json.Valid([]byte(stored)) {
		return json.RawMessage(stored)
	}
	quoted, _ := json.Marshal(stored)
	return quoted
}

// bodyDetails returns the provider body parsed when it is JSON.
func bodyDetails(body string) interface{} {
	if body == "" {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(body), &v); err == nil {
		return v
	}
	return body
}
