// Package providers implements the provider-specific HTTP format. The
// harness speaks to a single OpenRouter-compatible chat-completions
// endpoint; all configured models are addressed through it by their
// provider-qualified identifiers.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ahrav/stakesbench/internal/llm/configuration"
	"github.com/ahrav/stakesbench/internal/llm/llmerrors"
	"github.com/ahrav/stakesbench/internal/llm/transport"
)

// ProviderOpenRouter is the canonical provider identifier.
const ProviderOpenRouter = "openrouter"

// OpenRouterAdapter implements transport.Adapter for the OpenRouter
// chat-completions API. OpenRouter multiplexes many upstream models
// behind the OpenAI wire format.
type OpenRouterAdapter struct {
	config configuration.ProviderConfig
}

// NewOpenRouterAdapter creates an adapter with the default endpoint if
// none is configured.
func NewOpenRouterAdapter(cfg configuration.ProviderConfig) *OpenRouterAdapter {
	if cfg.Endpoint == "" {
		cfg.Endpoint = configuration.DefaultEndpoint
	}
	return &OpenRouterAdapter{config: cfg}
}

// Name returns the provider name.
func (a *OpenRouterAdapter) Name() string { return ProviderOpenRouter }

// chatRequest is the chat-completions request body.
type chatRequest struct {
	Model       string              `json:"model"`
	Messages    []transport.Message `json:"messages"`
	Temperature float64             `json:"temperature"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

// chatResponse is the subset of the chat-completions response the
// harness consumes.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// chatError is the provider's error envelope.
type chatError struct {
	Error struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Build constructs the HTTP request with bearer auth and JSON body.
func (a *OpenRouterAdapter) Build(ctx context.Context, req *transport.Request) (*http.Request, error) {
	if a.config.APIKey == "" {
		return nil, llmerrors.ErrMissingAPIKey
	}

	body := chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.Endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

// Parse extracts the normalized response or maps the error body onto
// the error taxonomy.
func (a *OpenRouterAdapter) Parse(httpResp *http.Response) (*transport.Response, error) {
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, a.parseError(httpResp, body)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", llmerrors.ErrInvalidResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", llmerrors.ErrInvalidResponse)
	}

	resp := &transport.Response{
		Content:      parsed.Choices[0].Message.Content,
		FinishReason: parsed.Choices[0].FinishReason,
	}
	if parsed.Usage != nil {
		resp.Usage.PromptTokens = parsed.Usage.PromptTokens
		resp.Usage.CompletionTokens = parsed.Usage.CompletionTokens
		resp.Usage.TotalTokens = parsed.Usage.TotalTokens
	}
	return resp, nil
}

// parseError maps a non-200 status onto the error taxonomy. 429 and 5xx
// are retryable; auth failures and other 4xx are fatal for the call.
func (a *OpenRouterAdapter) parseError(httpResp *http.Response, body []byte) error {
	message := string(body)
	var envelope chatError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		message = envelope.Error.Message
	}

	status := httpResp.StatusCode
	perr := &llmerrors.ProviderError{
		Provider:   ProviderOpenRouter,
		StatusCode: status,
		Message:    message,
	}

	switch {
	case status == http.StatusTooManyRequests:
		perr.Type = llmerrors.ErrorTypeRateLimit
		perr.RetryAfter = parseRetryAfter(httpResp.Header.Get("Retry-After"))
	case status >= 500:
		perr.Type = llmerrors.ErrorTypeProvider
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		perr.Type = llmerrors.ErrorTypeAuth
	default:
		perr.Type = llmerrors.ErrorTypeBadRequest
	}
	return perr
}

// parseRetryAfter reads a numeric Retry-After header value in seconds.
func parseRetryAfter(value string) int {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}
