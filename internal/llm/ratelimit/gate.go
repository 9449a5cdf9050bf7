// Package ratelimit provides the shared dispatch gate for LLM requests.
//
// The gate is the one piece of mutable state shared by all concurrent
// callers: every request blocks on Wait before dispatch, and the gate
// guarantees that no more than the configured number of requests are
// admitted in any rolling 60-second window. The gate is an explicitly
// owned, injectable component rather than a process-wide singleton, so
// tests can substitute a deterministic double.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Gate admits one request per successful Wait call. Implementations
// must be safe for concurrent use.
type Gate interface {
	// Wait blocks until the caller may dispatch, or the context ends.
	// A nil return means one admission slot has been consumed.
	Wait(ctx context.Context) error
}

// NopGate admits every caller immediately. Used when the configured
// ceiling is 0 (unlimited).
type NopGate struct{}

// Wait implements Gate.
func (NopGate) Wait(context.Context) error { return nil }

// LimiterGate enforces a requests-per-minute ceiling with a token
// bucket paced at one admission per minute/N interval. Burst is 1, so
// admissions are evenly spaced and no rolling 60-second window ever
// sees more than N dispatches.
type LimiterGate struct {
	limiter *rate.Limiter
}

// NewGate returns the gate for the given ceiling: a LimiterGate, or a
// NopGate when maxPerMinute is 0 (unlimited).
func NewGate(maxPerMinute int) Gate {
	if maxPerMinute <= 0 {
		return NopGate{}
	}
	return NewLimiterGate(maxPerMinute)
}

// NewLimiterGate creates a gate with the given per-minute ceiling.
// The ceiling must be positive.
func NewLimiterGate(maxPerMinute int) *LimiterGate {
	interval := rate.Every(time.Minute / time.Duration(maxPerMinute))
	return &LimiterGate{limiter: rate.NewLimiter(interval, 1)}
}

// Wait blocks until an admission slot is free, or the context ends.
func (g *LimiterGate) Wait(ctx context.Context) error {
	return g.limiter.Wait(ctx)
}
