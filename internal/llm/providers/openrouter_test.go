package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/stakesbench/internal/llm/configuration"
	"github.com/ahrav/stakesbench/internal/llm/llmerrors"
	"github.com/ahrav/stakesbench/internal/llm/transport"
)

func testAdapter() *OpenRouterAdapter {
	return NewOpenRouterAdapter(configuration.ProviderConfig{
		Endpoint: "https://openrouter.test/api/v1/chat/completions",
		APIKey:   "sk-test",
		Headers:  map[string]string{"X-Title": "stakesbench"},
	})
}

func TestBuildRequest(t *testing.T) {
	adapter := testAdapter()
	req := &transport.Request{
		Operation:   transport.OpGeneration,
		Model:       "anthropic/claude-sonnet-4.5",
		Messages:    []transport.Message{{Role: "user", Content: "draft a release"}},
		Temperature: 0.7,
		MaxTokens:   1024,
	}

	httpReq, err := adapter.Build(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, httpReq.Method)
	assert.Equal(t, "https://openrouter.test/api/v1/chat/completions", httpReq.URL.String())
	assert.Equal(t, "Bearer sk-test", httpReq.Header.Get("Authorization"))
	assert.Equal(t, "application/json", httpReq.Header.Get("Content-Type"))
	assert.Equal(t, "stakesbench", httpReq.Header.Get("X-Title"))

	body, err := io.ReadAll(httpReq.Body)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "anthropic/claude-sonnet-4.5", payload["model"])
	assert.InDelta(t, 0.7, payload["temperature"], 1e-9)
	assert.EqualValues(t, 1024, payload["max_tokens"])
}

func TestBuildRequestMissingAPIKey(t *testing.T) {
	adapter := NewOpenRouterAdapter(configuration.ProviderConfig{Endpoint: "https://openrouter.test"})
	_, err := adapter.Build(context.Background(), &transport.Request{Model: "m"})
	require.ErrorIs(t, err, llmerrors.ErrMissingAPIKey)
}

func httpResponse(status int, body string, headers map[string]string) *http.Response {
	resp := &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
	for k, v := range headers {
		resp.Header.Set(k, v)
	}
	return resp
}

func TestParseSuccess(t *testing.T) {
	body := `{
		"choices": [{"message": {"content": "FOR IMMEDIATE RELEASE..."}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 210, "completion_tokens": 180, "total_tokens": 390}
	}`

	resp, err := testAdapter().Parse(httpResponse(http.StatusOK, body, nil))
	require.NoError(t, err)
	assert.Equal(t, "FOR IMMEDIATE RELEASE...", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.EqualValues(t, 210, resp.Usage.PromptTokens)
	assert.EqualValues(t, 390, resp.Usage.TotalTokens)
}

func TestParseInvalidBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not JSON", body: "<html>gateway error</html>"},
		{name: "no choices", body: `{"choices": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testAdapter().Parse(httpResponse(http.StatusOK, tt.body, nil))
			require.ErrorIs(t, err, llmerrors.ErrInvalidResponse)
		})
	}
}

func TestParseErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		headers   map[string]string
		wantType  llmerrors.ErrorType
		retryable bool
	}{
		{
			name:      "rate limited",
			status:    http.StatusTooManyRequests,
			headers:   map[string]string{"Retry-After": "12"},
			wantType:  llmerrors.ErrorTypeRateLimit,
			retryable: true,
		},
		{
			name:      "server error",
			status:    http.StatusBadGateway,
			wantType:  llmerrors.ErrorTypeProvider,
			retryable: true,
		},
		{
			name:     "unauthorized",
			status:   http.StatusUnauthorized,
			wantType: llmerrors.ErrorTypeAuth,
		},
		{
			name:     "forbidden",
			status:   http.StatusForbidden,
			wantType: llmerrors.ErrorTypeAuth,
		},
		{
			name:     "bad request",
			status:   http.StatusBadRequest,
			wantType: llmerrors.ErrorTypeBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"error": {"message": "upstream says no"}}`
			_, err := testAdapter().Parse(httpResponse(tt.status, body, tt.headers))
			require.Error(t, err)

			var perr *llmerrors.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.wantType, perr.Type)
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.Equal(t, "upstream says no", perr.Message)
			assert.Equal(t, tt.retryable, perr.IsRetryable())
		})
	}
}

func TestParseErrorRetryAfter(t *testing.T) {
	resp := httpResponse(http.StatusTooManyRequests, `{"error": {"message": "slow down"}}`,
		map[string]string{"Retry-After": "30"})

	_, err := testAdapter().Parse(resp)
	var perr *llmerrors.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 30*time.Second, perr.GetRetryAfter())
}
