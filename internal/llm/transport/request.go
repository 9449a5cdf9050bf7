// Package transport defines the request/response model and the
// composable middleware pipeline every LLM call flows through. The core
// handler speaks HTTP to the provider; middleware layers retry, rate
// limiting, call logging, and observability around it.
package transport

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Request validation errors.
var (
	// ErrInvalidRequest is returned when a request is missing required fields.
	ErrInvalidRequest = errors.New("invalid request")
)

// Operation distinguishes the two call kinds the harness issues.
type Operation string

const (
	// OpGeneration asks a model to draft a press release.
	OpGeneration Operation = "generation"

	// OpJudge asks the judge model to score a generated press release.
	OpJudge Operation = "judge"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one fully-rendered unit of work against the model-serving
// endpoint. The scheduler owns a request exclusively while it is in
// flight; nothing mutates it after construction.
type Request struct {
	// Operation identifies the call kind for logging and bookkeeping.
	Operation Operation

	// CellKey ties this request back to its experiment cell.
	CellKey string

	// TraceID correlates log and call-log entries across attempts.
	TraceID string

	// Model is the provider-qualified model identifier.
	Model string

	// Messages is the ordered role-tagged prompt.
	Messages []Message

	// Temperature is the sampling temperature.
	Temperature float64

	// MaxTokens caps the completion length. 0 leaves the provider default.
	MaxTokens int

	// Timeout bounds this individual call. 0 disables the per-call bound.
	Timeout time.Duration
}

// Validate reports whether the request is dispatchable.
func (r *Request) Validate() error {
	if r.Model == "" {
		return fmt.Errorf("%w: model is required", ErrInvalidRequest)
	}
	if len(r.Messages) == 0 {
		return fmt.Errorf("%w: at least one message is required", ErrInvalidRequest)
	}
	for i, m := range r.Messages {
		if m.Role == "" || m.Content == "" {
			return fmt.Errorf("%w: message %d requires role and content", ErrInvalidRequest, i)
		}
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return fmt.Errorf("%w: temperature %f out of range", ErrInvalidRequest, r.Temperature)
	}
	return nil
}

// Usage is the provider-reported token accounting for one response.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`

	// LatencyMs is measured by the HTTP core, not reported by the provider.
	LatencyMs int64 `json:"latency_ms"`
}

// Response is the parsed text payload of a successful call.
type Response struct {
	// Content is the first choice's message content.
	Content string `json:"content"`

	// FinishReason is the provider's stop reason, when reported.
	FinishReason string `json:"finish_reason,omitempty"`

	// Usage carries token accounting and measured latency.
	Usage Usage `json:"usage"`
}

// Handler processes one request to a definite outcome: a parsed response
// or a typed error. Handlers never panic through to callers.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler. Middleware
// executes in the order provided, first middleware outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
