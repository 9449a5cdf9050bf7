package runner

import (
	"fmt"
	"log/slog"

	"github.com/ahrav/stakesbench/internal/domain"
)

// Summary accounts for every cell the run touched. Planned equals
// Skipped plus Completed when the run finishes cleanly; a shortfall
// means the run was interrupted.
type Summary struct {
	// Planned is the size of the enumerated cross-product.
	Planned int

	// Skipped counts cells already persisted by a previous run.
	Skipped int

	// Completed counts cells persisted by this run, across all outcomes.
	Completed int

	// Per-outcome breakdown of Completed.
	Successes       int
	Refusals        int
	GenerationFails int
	JudgeFails      int
	JudgeParseFails int
}

// Record folds one persisted row into the summary.
func (s *Summary) Record(row *domain.ResultRow) {
	s.Completed++
	switch row.Outcome {
	case domain.OutcomeSuccess:
		s.Successes++
	case domain.OutcomeRefusal:
		s.Refusals++
	case domain.OutcomeGenerationFailed:
		s.GenerationFails++
	case domain.OutcomeJudgeFailed:
		s.JudgeFails++
	case domain.OutcomeJudgeParseFailed:
		s.JudgeParseFails++
	}
}

// Failures returns the count of cell-level failures.
func (s *Summary) Failures() int {
	return s.GenerationFails + s.JudgeFails + s.JudgeParseFails
}

// String renders the one-line run report.
func (s *Summary) String() string {
	return fmt.Sprintf(
		"planned=%d skipped=%d completed=%d successes=%d refusals=%d failures=%d (generation=%d judge=%d parse=%d)",
		s.Planned, s.Skipped, s.Completed, s.Successes, s.Refusals,
		s.Failures(), s.GenerationFails, s.JudgeFails, s.JudgeParseFails)
}

// LogValue renders the summary as structured attributes.
func (s *Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("planned", s.Planned),
		slog.Int("skipped", s.Skipped),
		slog.Int("completed", s.Completed),
		slog.Int("successes", s.Successes),
		slog.Int("refusals", s.Refusals),
		slog.Int("generation_failed", s.GenerationFails),
		slog.Int("judge_failed", s.JudgeFails),
		slog.Int("judge_parse_failed", s.JudgeParseFails),
	)
}
