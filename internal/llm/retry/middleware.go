package retry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahrav/stakesbench/internal/llm/configuration"
	"github.com/ahrav/stakesbench/internal/llm/llmerrors"
	"github.com/ahrav/stakesbench/internal/llm/transport"
)

// Attempt records one failed try for the terminal error's history.
type Attempt struct {
	// Number is the 1-based attempt index.
	Number int `json:"number"`

	// Error is the failure message.
	Error string `json:"error"`

	// Type is the classified error type.
	Type llmerrors.ErrorType `json:"type"`

	// Backoff is the delay slept after this attempt (zero for the last).
	Backoff time.Duration `json:"backoff"`
}

// ExhaustedError is returned when a call fails its entire attempt
// budget or hits a fatal classification. It carries the full attempt
// history and unwraps to the final underlying error.
type ExhaustedError struct {
	Attempts []Attempt
	Last     error
}

// Error summarizes the attempt history.
func (e *ExhaustedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "call failed after %d attempt(s): %v", len(e.Attempts), e.Last)
	for _, a := range e.Attempts {
		fmt.Fprintf(&b, "; attempt %d: %s (%s)", a.Number, a.Error, a.Type)
	}
	return b.String()
}

// Unwrap exposes the final underlying error for classification.
func (e *ExhaustedError) Unwrap() error { return e.Last }

// NewMiddleware creates retry middleware with the given configuration.
// Guarantees: total attempts never exceed MaxAttempts, and a fatal
// classification is never retried.
func NewMiddleware(cfg configuration.RetryConfig, logger *slog.Logger) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	rm := &retryMiddleware{
		config: cfg,
		logger: logger.With("component", "retry"),
		sleep:  sleepContext,
	}
	return rm.middleware()
}

type retryMiddleware struct {
	config configuration.RetryConfig
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func (r *retryMiddleware) middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			maxAttempts := r.config.MaxAttempts
			if maxAttempts < 1 {
				maxAttempts = 1
			}

			var history []Attempt
			for attempt := 1; attempt <= maxAttempts; attempt++ {
				select {
				case <-ctx.Done():
					return nil, fmt.Errorf("context cancelled before attempt %d: %w", attempt, ctx.Err())
				default:
				}

				resp, err := next.Handle(ctx, req)
				if err == nil {
					return resp, nil
				}

				errType := llmerrors.Classify(err)
				record := Attempt{Number: attempt, Error: err.Error(), Type: errType}

				if !llmerrors.IsRetryable(err) {
					history = append(history, record)
					return nil, &ExhaustedError{Attempts: history, Last: err}
				}
				if attempt == maxAttempts {
					history = append(history, record)
					return nil, fmt.Errorf("%w: %w",
						llmerrors.ErrMaxRetriesExceeded,
						&ExhaustedError{Attempts: history, Last: err})
				}

				delay := backoffFor(attempt, r.config, err)
				record.Backoff = delay
				history = append(history, record)

				r.logger.Warn("retryable failure, backing off",
					"trace_id", req.TraceID,
					"cell", req.CellKey,
					"attempt", attempt,
					"max_attempts", maxAttempts,
					"error_type", errType,
					"backoff", delay.Round(time.Millisecond),
					"error", err)

				if err := r.sleep(ctx, delay); err != nil {
					return nil, fmt.Errorf("context cancelled during backoff: %w", err)
				}
			}

			// Unreachable: the loop always returns.
			return nil, llmerrors.ErrMaxRetriesExceeded
		})
	}
}

// sleepContext sleeps for d or until the context ends.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
