package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahrav/stakesbench/internal/llm/llmerrors"
	"github.com/ahrav/stakesbench/internal/llm/transport"
)

// responsePreviewLen bounds logged response previews.
const responsePreviewLen = 200

// LoggingMiddleware captures structured logs and metrics for the full
// request lifecycle (outermost layer, so one entry per logical call
// rather than per attempt).
type LoggingMiddleware struct {
	logger        *slog.Logger
	metrics       Metrics
	redactPrompts bool
}

// NewLoggingMiddleware creates observability middleware. A nil logger
// falls back to slog.Default; nil metrics to the no-op collector.
func NewLoggingMiddleware(logger *slog.Logger, metrics Metrics, redactPrompts bool) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewNoOpMetrics()
	}
	lm := &LoggingMiddleware{
		logger:        logger.With("component", "llm"),
		metrics:       metrics,
		redactPrompts: redactPrompts,
	}
	return lm.middleware
}

func (m *LoggingMiddleware) middleware(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		tags := map[string]string{
			"model":     req.Model,
			"operation": string(req.Operation),
		}

		m.logRequest(req)
		m.metrics.IncrementCounter("llm.requests.total", tags, 1)

		start := time.Now()
		resp, err := next.Handle(ctx, req)
		duration := time.Since(start)

		m.metrics.RecordHistogram("llm.request.duration_ms", tags, float64(duration.Milliseconds()))

		if err != nil {
			errTags := map[string]string{
				"model":      req.Model,
				"operation":  string(req.Operation),
				"error_type": string(llmerrors.Classify(err)),
			}
			m.metrics.IncrementCounter("llm.requests.errors", errTags, 1)
			m.logger.Error("LLM request failed",
				"trace_id", req.TraceID,
				"cell", req.CellKey,
				"model", req.Model,
				"operation", req.Operation,
				"duration_ms", duration.Milliseconds(),
				"error_type", llmerrors.Classify(err),
				"error", err)
			return resp, err
		}

		m.metrics.IncrementCounter("llm.requests.success", tags, 1)
		m.metrics.RecordHistogram("llm.tokens.total", tags, float64(resp.Usage.TotalTokens))
		m.logSuccess(req, resp, duration)
		return resp, nil
	})
}

func (m *LoggingMiddleware) logRequest(req *transport.Request) {
	fields := []any{
		"trace_id", req.TraceID,
		"cell", req.CellKey,
		"model", req.Model,
		"operation", req.Operation,
		"temperature", req.Temperature,
	}
	if m.redactPrompts {
		total := 0
		for _, msg := range req.Messages {
			total += len(msg.Content)
		}
		fields = append(fields, "prompt_length", total)
	} else if len(req.Messages) > 0 {
		fields = append(fields, "prompt", req.Messages[len(req.Messages)-1].Content)
	}
	m.logger.Info("LLM request started", fields...)
}

func (m *LoggingMiddleware) logSuccess(req *transport.Request, resp *transport.Response, duration time.Duration) {
	fields := []any{
		"trace_id", req.TraceID,
		"cell", req.CellKey,
		"model", req.Model,
		"operation", req.Operation,
		"duration_ms", duration.Milliseconds(),
		"finish_reason", resp.FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	}
	if m.redactPrompts {
		fields = append(fields, "response_length", len(resp.Content))
	} else {
		preview := resp.Content
		if len(preview) > responsePreviewLen {
			preview = preview[:responsePreviewLen] + "..."
		}
		fields = append(fields, "response_preview", preview)
	}
	m.logger.Info("LLM request completed", fields...)
}
