package domain

import (
	"errors"
	"fmt"
	"time"
)

// Result row errors.
var (
	// ErrInvalidRow is returned when a result row fails validation.
	ErrInvalidRow = errors.New("invalid result row")
)

// Outcome is the terminal state of one experiment cell. Every enumerated
// cell ends a run in exactly one of these states; silence is a bug.
type Outcome string

const (
	// OutcomeSuccess means generation and judging both completed and the
	// verdict scored the release.
	OutcomeSuccess Outcome = "success"

	// OutcomeRefusal means the model declined the generation task; the
	// judge classified the refusal. A valid terminal outcome, not an error.
	OutcomeRefusal Outcome = "refusal"

	// OutcomeGenerationFailed means the generation call failed at the
	// transport level after retries; the cell was never judged.
	OutcomeGenerationFailed Outcome = "generation_failed"

	// OutcomeJudgeFailed means the judge call failed at the transport
	// level after retries.
	OutcomeJudgeFailed Outcome = "judge_failed"

	// OutcomeJudgeParseFailed means the judge responded but its output was
	// not valid structured data. Distinct from refusal and from any score.
	OutcomeJudgeParseFailed Outcome = "judge_parse_failed"
)

// IsValidOutcome reports whether the outcome is a recognized terminal state.
func IsValidOutcome(o Outcome) bool {
	switch o {
	case OutcomeSuccess, OutcomeRefusal, OutcomeGenerationFailed,
		OutcomeJudgeFailed, OutcomeJudgeParseFailed:
		return true
	default:
		return false
	}
}

// IsFailure reports whether the outcome is a cell-level failure (as
// opposed to a success or a model refusal).
func (o Outcome) IsFailure() bool {
	switch o {
	case OutcomeGenerationFailed, OutcomeJudgeFailed, OutcomeJudgeParseFailed:
		return true
	default:
		return false
	}
}

// TokenUsage aggregates token accounting reported by the provider.
type TokenUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// ResultRow is the flattened merge of a cell, its generation result, and
// its verdict (or failure markers). One row is persisted per cell that
// reached a terminal state; rows are never updated in place.
type ResultRow struct {
	// Timestamp marks when the cell's generation was issued.
	Timestamp time.Time `json:"timestamp"`

	// Cell identifies the trial this row belongs to.
	Cell Cell `json:"cell"`

	// ScenarioName is the human-readable scenario title.
	ScenarioName string `json:"scenario_name"`

	// ModelFullID is the provider-qualified model identifier.
	ModelFullID string `json:"model_full_id"`

	// Outcome is the cell's terminal state.
	Outcome Outcome `json:"outcome"`

	// PressRelease is the generated text. Empty when generation failed.
	PressRelease string `json:"press_release,omitempty"`

	// HeuristicRefusal records the advisory pattern-based refusal
	// pre-screen. The judge's verdict is authoritative.
	HeuristicRefusal bool `json:"heuristic_refusal,omitempty"`

	// GenerationLatencyMs is the wall-clock latency of the successful
	// generation attempt.
	GenerationLatencyMs int64 `json:"generation_latency_ms,omitempty"`

	// Usage is the provider-reported token accounting, when available.
	Usage *TokenUsage `json:"token_usage,omitempty"`

	// Verdict is the judge's assessment. Nil for failure outcomes.
	Verdict *Verdict `json:"verdict,omitempty"`

	// FailureReason describes the terminal error for failure outcomes.
	FailureReason string `json:"failure_reason,omitempty"`
}

// Validate enforces row shape invariants: outcomes carry a verdict or a
// failure reason, never both, matching the outcome kind.
func (r *ResultRow) Validate() error {
	if err := r.Cell.Validate(); err != nil {
		return err
	}
	if !IsValidOutcome(r.Outcome) {
		return fmt.Errorf("%w: unknown outcome %q", ErrInvalidRow, r.Outcome)
	}

	if r.Outcome.IsFailure() {
		if r.FailureReason == "" {
			return fmt.Errorf("%w: failure outcome %q requires failure_reason", ErrInvalidRow, r.Outcome)
		}
		if r.Verdict != nil {
			return fmt.Errorf("%w: failure outcome %q must not carry a verdict", ErrInvalidRow, r.Outcome)
		}
		return nil
	}

	if r.Verdict == nil {
		return fmt.Errorf("%w: outcome %q requires a verdict", ErrInvalidRow, r.Outcome)
	}
	if err := r.Verdict.Validate(); err != nil {
		return err
	}
	if r.Outcome == OutcomeRefusal != r.Verdict.Refused {
		return fmt.Errorf("%w: outcome %q disagrees with verdict refused=%t",
			ErrInvalidRow, r.Outcome, r.Verdict.Refused)
	}
	return nil
}
