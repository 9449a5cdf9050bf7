// Package runner drives the experiment: it enumerates the plan,
// executes generation and judge calls in bounded-concurrency batches,
// assembles terminal result rows, and persists them incrementally.
package runner

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ahrav/stakesbench/internal/llm"
	"github.com/ahrav/stakesbench/internal/llm/transport"
)

// CallResult is the settled outcome of one scheduled call. Exactly one
// of Response and Err is set.
type CallResult struct {
	Response *transport.Response
	Err      error
}

// Scheduler fans a slice of requests out to the client with a hard
// in-flight ceiling. Failures are isolated per call: one request
// exhausting its retries never cancels its siblings.
type Scheduler struct {
	client        llm.Client
	maxConcurrent int64
	logger        *slog.Logger
}

// NewScheduler returns a scheduler bounded to maxConcurrent in-flight
// calls. maxConcurrent of 1 recovers fully sequential execution.
func NewScheduler(client llm.Client, maxConcurrent int, logger *slog.Logger) *Scheduler {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		client:        client,
		maxConcurrent: int64(maxConcurrent),
		logger:        logger,
	}
}

// Execute dispatches every request and returns the settled results
// keyed by cell key. Cancellation abandons requests still waiting for
// an admission slot with ctx.Err(); results already settled are kept.
func (s *Scheduler) Execute(ctx context.Context, reqs []*transport.Request) map[string]CallResult {
	results := make([]CallResult, len(reqs))
	sem := semaphore.NewWeighted(s.maxConcurrent)

	// The group carries no error: per-call failures land in the
	// result slots so sibling calls keep running.
	var g errgroup.Group
	var abandoned atomic.Int64
	for i := range reqs {
		i := i
		g.Go(func() error {
			if err := sem.Acquire(ctx, 1); err != nil {
				results[i] = CallResult{Err: err}
				abandoned.Add(1)
				return nil
			}
			defer sem.Release(1)

			resp, err := s.client.Complete(ctx, reqs[i])
			results[i] = CallResult{Response: resp, Err: err}
			return nil
		})
	}
	g.Wait()

	if n := abandoned.Load(); n > 0 {
		s.logger.Warn("requests abandoned before dispatch",
			"abandoned", n,
			"total", len(reqs))
	}

	out := make(map[string]CallResult, len(reqs))
	for i, req := range reqs {
		out[req.CellKey] = results[i]
	}
	return out
}
