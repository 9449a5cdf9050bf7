package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ahrav/stakesbench/internal/domain"
	"github.com/ahrav/stakesbench/internal/judge"
	"github.com/ahrav/stakesbench/internal/llm"
	"github.com/ahrav/stakesbench/internal/llm/configuration"
	"github.com/ahrav/stakesbench/internal/llm/transport"
	"github.com/ahrav/stakesbench/internal/scenario"
	"github.com/ahrav/stakesbench/internal/sink"
)

// disclosureTolerance bounds accepted drift between the judge's
// disclosure score and the score recomputed from its own fact bits.
// Reported scores within this distance (rounding slop) are kept as is.
const disclosureTolerance = 0.01

// Orchestrator runs the experiment cross-product batch by batch.
// Batches are strictly sequential; concurrency exists only inside a
// batch phase. Each batch runs generation, then judging, then a single
// durable persist, so an interrupted run can resume at the next batch.
type Orchestrator struct {
	cfg       *configuration.Config
	client    llm.Client
	sink      sink.Sink
	scheduler *Scheduler
	logger    *slog.Logger
	rubric    domain.RubricKind
}

// NewOrchestrator wires the run pipeline. The configuration must have
// passed Validate.
func NewOrchestrator(cfg *configuration.Config, client llm.Client, resultSink sink.Sink, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:       cfg,
		client:    client,
		sink:      resultSink,
		scheduler: NewScheduler(client, cfg.Experiment.MaxConcurrent, logger),
		logger:    logger,
		rubric:    domain.RubricKind(cfg.Experiment.Rubric),
	}
}

// BuildPlan derives the experiment plan from configuration, defaulting
// each axis to the full catalog. Smoke-test mode collapses the
// cross-product to a single cell.
func BuildPlan(cfg *configuration.Config) (domain.Plan, error) {
	exp := cfg.Experiment
	plan := domain.Plan{
		Scenarios:        exp.Scenarios,
		Tiers:            exp.Tiers,
		Conditions:       exp.Conditions,
		Models:           exp.Models,
		RunsPerCell:      exp.RunsPerCell,
		ControlScenarios: scenario.ControlScenarioIDs(),
	}
	if len(plan.Scenarios) == 0 {
		plan.Scenarios = scenario.ScenarioIDs()
	}
	if len(plan.Tiers) == 0 {
		plan.Tiers = scenario.StakesTiers
	}
	if len(plan.Conditions) == 0 {
		plan.Conditions = scenario.MeasurementConditions
	}
	if len(plan.Models) == 0 {
		plan.Models = scenario.ModelIDs()
	}

	if exp.SmokeTest {
		plan.Scenarios = plan.Scenarios[:1]
		plan.Tiers = plan.Tiers[:1]
		plan.Conditions = plan.Conditions[:1]
		plan.Models = plan.Models[:1]
		plan.RunsPerCell = 1
	}

	for _, s := range plan.Scenarios {
		if _, err := scenario.Lookup(s); err != nil {
			return domain.Plan{}, err
		}
	}
	for _, m := range plan.Models {
		if _, err := scenario.FullModelID(m); err != nil {
			return domain.Plan{}, err
		}
	}
	return plan, nil
}

// Run executes the plan to completion or cancellation. Cells already
// persisted by a previous run are skipped. The returned summary is
// valid even when err is non-nil; it covers everything persisted before
// the interruption.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	plan, err := BuildPlan(o.cfg)
	if err != nil {
		return nil, err
	}
	cells, err := plan.Enumerate()
	if err != nil {
		return nil, err
	}

	summary := &Summary{Planned: len(cells)}

	completed := o.sink.CompletedCells()
	pending := make([]domain.Cell, 0, len(cells))
	for _, cell := range cells {
		if completed[cell.Key()] {
			summary.Skipped++
			continue
		}
		pending = append(pending, cell)
	}

	batchSize := o.cfg.Experiment.BatchSize
	batches := (len(pending) + batchSize - 1) / batchSize
	o.logger.Info("run starting",
		"planned", summary.Planned,
		"skipped", summary.Skipped,
		"pending", len(pending),
		"batches", batches,
		"rubric", string(o.rubric))

	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))
		batch := pending[start:end]
		batchNum := start/batchSize + 1

		rows, err := o.runBatch(ctx, batch)
		if err != nil {
			return summary, fmt.Errorf("batch %d/%d: %w", batchNum, batches, err)
		}
		if err := o.sink.Append(ctx, rows); err != nil {
			return summary, fmt.Errorf("persist batch %d/%d: %w", batchNum, batches, err)
		}
		for i := range rows {
			summary.Record(&rows[i])
		}
		o.logger.Info("batch persisted",
			"batch", batchNum,
			"batches", batches,
			"cells", len(rows),
			"completed", summary.Completed)
	}

	o.logger.Info("run complete", "summary", summary)
	return summary, nil
}

// runBatch takes one batch of cells through generation and judging and
// returns exactly one terminal row per cell. Only cancellation and
// prompt-construction errors propagate; per-cell call failures become
// failure rows.
func (o *Orchestrator) runBatch(ctx context.Context, batch []domain.Cell) ([]domain.ResultRow, error) {
	rows := make([]domain.ResultRow, len(batch))
	for i, cell := range batch {
		s, err := scenario.Lookup(cell.Scenario)
		if err != nil {
			return nil, err
		}
		fullID, err := scenario.FullModelID(cell.Model)
		if err != nil {
			return nil, err
		}
		rows[i] = domain.ResultRow{
			Timestamp:    time.Now().UTC(),
			Cell:         cell,
			ScenarioName: s.Name,
			ModelFullID:  fullID,
		}
	}

	genReqs := make([]*transport.Request, len(batch))
	for i, cell := range batch {
		messages, err := scenario.BuildGenerationPrompt(cell)
		if err != nil {
			return nil, err
		}
		genReqs[i] = &transport.Request{
			Operation:   transport.OpGeneration,
			CellKey:     cell.Key(),
			Model:       rows[i].ModelFullID,
			Messages:    messages,
			Temperature: o.cfg.Experiment.GenerationTemperature,
			MaxTokens:   o.cfg.Experiment.MaxTokens,
		}
	}

	genResults := o.scheduler.Execute(ctx, genReqs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Judge every cell whose generation call settled, refusal-looking
	// drafts included. The judge classifies refusals; only transport
	// failures skip judging.
	var judgeReqs []*transport.Request
	judgeIdx := make(map[string]int)
	for i, cell := range batch {
		key := cell.Key()
		result := genResults[key]
		if result.Err != nil {
			rows[i].Outcome = domain.OutcomeGenerationFailed
			rows[i].FailureReason = result.Err.Error()
			continue
		}

		rows[i].PressRelease = result.Response.Content
		rows[i].GenerationLatencyMs = result.Response.Usage.LatencyMs
		rows[i].Usage = &domain.TokenUsage{
			PromptTokens:     result.Response.Usage.PromptTokens,
			CompletionTokens: result.Response.Usage.CompletionTokens,
			TotalTokens:      result.Response.Usage.TotalTokens,
		}
		rows[i].HeuristicRefusal = scenario.LooksLikeRefusal(result.Response.Content)

		messages, err := scenario.BuildJudgePrompt(o.rubric, cell, result.Response.Content)
		if err != nil {
			return nil, err
		}
		req := &transport.Request{
			Operation:   transport.OpJudge,
			CellKey:     key,
			Model:       o.judgeModel(),
			Messages:    messages,
			Temperature: 0,
			MaxTokens:   o.cfg.Experiment.MaxTokens,
		}
		judgeIdx[key] = i
		judgeReqs = append(judgeReqs, req)
	}

	judgeResults := o.scheduler.Execute(ctx, judgeReqs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for key, i := range judgeIdx {
		o.settleJudgment(&rows[i], judgeResults[key])
	}
	return rows, nil
}

// settleJudgment converts a judge call result into the row's terminal
// outcome.
func (o *Orchestrator) settleJudgment(row *domain.ResultRow, result CallResult) {
	if result.Err != nil {
		row.Outcome = domain.OutcomeJudgeFailed
		row.FailureReason = result.Err.Error()
		return
	}

	verdict, err := judge.Parse(o.rubric, result.Response.Content)
	if err != nil {
		row.Outcome = domain.OutcomeJudgeParseFailed
		row.FailureReason = err.Error()
		return
	}

	o.reconcileDisclosure(row.Cell, verdict)

	row.Verdict = verdict
	if verdict.Refused {
		row.Outcome = domain.OutcomeRefusal
	} else {
		row.Outcome = domain.OutcomeSuccess
	}

	if row.HeuristicRefusal != verdict.Refused {
		o.logger.Debug("refusal heuristic disagrees with judge",
			"cell", row.Cell.Key(),
			"heuristic", row.HeuristicRefusal,
			"judge", verdict.Refused)
	}
}

// reconcileDisclosure cross-checks the judge's disclosure score against
// the score implied by its own per-fact bits. On disagreement the
// recomputed value wins and the mismatch is logged.
func (o *Orchestrator) reconcileDisclosure(cell domain.Cell, verdict *domain.Verdict) {
	if verdict.Rubric != domain.RubricFacts || verdict.Refused {
		return
	}
	if len(verdict.FactsDisclosed) == 0 || verdict.DisclosureScore == nil {
		return
	}
	recomputed := verdict.RecomputedDisclosureScore()
	if math.Abs(recomputed-*verdict.DisclosureScore) <= disclosureTolerance {
		return
	}
	o.logger.Warn("disclosure score mismatch, using recomputed value",
		"cell", cell.Key(),
		"reported", *verdict.DisclosureScore,
		"recomputed", recomputed)
	*verdict.DisclosureScore = recomputed
}

func (o *Orchestrator) judgeModel() string {
	if m := o.cfg.Experiment.JudgeModel; m != "" {
		return m
	}
	return scenario.JudgeModel
}
