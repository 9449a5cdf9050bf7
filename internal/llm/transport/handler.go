package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Adapter abstracts provider-specific HTTP communication. The single
// production implementation speaks the OpenRouter chat-completions
// format; tests substitute stubs.
type Adapter interface {
	// Build constructs the provider HTTP request from a normalized Request.
	Build(ctx context.Context, req *Request) (*http.Request, error)

	// Parse extracts a normalized Response from the provider's HTTP
	// response, or a typed error from its error body.
	Parse(httpResp *http.Response) (*Response, error)

	// Name returns the canonical provider identifier for logging.
	Name() string
}

// NewHTTPHandler creates the core handler that performs the actual HTTP
// round trip through the given adapter.
func NewHTTPHandler(client *http.Client, adapter Adapter) Handler {
	return &httpHandler{client: client, adapter: adapter}
}

type httpHandler struct {
	client  *http.Client
	adapter Adapter
}

// Handle implements Handler by dispatching one HTTP request. The request
// carries its own timeout; a slow call never blocks unrelated calls.
func (h *httpHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reqCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := h.adapter.Build(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	latency := time.Since(start)

	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	resp, err := h.adapter.Parse(httpResp)
	if err != nil {
		return nil, err
	}

	resp.Usage.LatencyMs = latency.Milliseconds()
	return resp, nil
}
