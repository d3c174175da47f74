package repair

import (
	"context"

	"couple-summary-be/internal/entity"
	"couple-summary-be/internal/pkg/logger"
	"couple-summary-be/pkg/llm"
	"couple-summary-be/pkg/llm/fallback"
	"couple-summary-be/pkg/summary/prompt"
)

const (
	ReasonRepairCallFailed = "AI output could not be repaired into JSON."
	ReasonInvalidAfterFix  = "AI output was invalid JSON."

	DefaultRepairMaxTokens = 3072
)

// Generator is the part of the fallback client the pipeline needs.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts ...llm.Option) (*fallback.Generation, error)
}

type Outcome struct {
	Summary entity.Summary
	// Repaired is set when the corrective call produced the summary.
	Repaired bool
	// Fallback is set when Summary is the placeholder.
	Fallback bool
	// Reason is the placeholder reason; FailureEvent names it for the audit trail.
	Reason       string
	FailureEvent string
}

type Pipeline struct {
	generator Generator
	maxTokens int
	logger    logger.ILogger
}

func NewPipeline(generator Generator, maxTokens int, log logger.ILogger) *Pipeline {
	if maxTokens <= 0 {
		maxTokens = DefaultRepairMaxTokens
	}
	return &Pipeline{
		generator: generator,
		maxTokens: maxTokens,
		logger:    log,
	}
}

// Run always yields a schema-valid summary. At most one corrective call is made.
func (p *Pipeline) Run(ctx context.Context, raw string) Outcome {
	obj, err := ParseObject(raw)
	if err == nil {
		return Outcome{Summary: Shape(obj)}
	}

	p.logger.Warn("REPAIR", "Model output is not valid JSON, requesting a fix", map[string]interface{}{
		"reason": err.Error(),
		"length": len(raw),
	})

	fixed, genErr := p.generator.Generate(ctx, prompt.BuildRepair(raw),
		llm.WithTemperature(0),
		llm.WithMaxTokens(p.maxTokens),
		llm.WithJSONResponse(),
	)
	if genErr != nil {
		p.logger.Error("REPAIR", "Corrective call failed", map[string]interface{}{
			"error": genErr.Error(),
		})
		return Outcome{
			Summary:      Placeholder(ReasonRepairCallFailed),
			Fallback:     true,
			Reason:       ReasonRepairCallFailed,
			FailureEvent: "json_repair_failed",
		}
	}

	obj, err = ParseObject(fixed.Text)
	if err != nil {
		p.logger.Error("REPAIR", "Corrected output still not valid JSON", map[string]interface{}{
			"model":  fixed.Model,
			"reason": err.Error(),
		})
		return Outcome{
			Summary:      Placeholder(ReasonInvalidAfterFix),
			Fallback:     true,
			Reason:       ReasonInvalidAfterFix,
			FailureEvent: "json_invalid_after_repair",
		}
	}

	return Outcome{Summary: Shape(obj), Repaired: true}
}
