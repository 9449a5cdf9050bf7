package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahrav/stakesbench/internal/llm/transport"
)

// NewMiddleware wraps a handler so every attempt blocks on the shared
// gate before dispatch. The middleware sits inside the retry layer so
// each retry attempt re-takes an admission slot.
func NewMiddleware(gate Gate, logger *slog.Logger) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "ratelimit")

	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			start := time.Now()
			if err := gate.Wait(ctx); err != nil {
				return nil, err
			}
			if waited := time.Since(start); waited > time.Second {
				logger.Info("rate limit gate delayed dispatch",
					"trace_id", req.TraceID,
					"cell", req.CellKey,
					"waited", waited.Round(time.Millisecond))
			}
			return next.Handle(ctx, req)
		})
	}
}
