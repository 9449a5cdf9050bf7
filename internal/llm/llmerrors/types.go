// Package llmerrors categorizes LLM transport failures for retry
// classification. Types determine whether a call should be retried and
// with what backoff, separating transient provider trouble from
// permanent request problems.
package llmerrors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType classifies a transport failure.
type ErrorType string

const (
	// ErrorTypeTimeout indicates request timeout or deadline exceeded (retryable).
	ErrorTypeTimeout ErrorType = "timeout"

	// ErrorTypeRateLimit indicates a rate limit was exceeded (retryable with backoff).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates network connectivity trouble (retryable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeProvider indicates the provider service is unavailable, 5xx (retryable).
	ErrorTypeProvider ErrorType = "provider_unavailable"

	// ErrorTypeAuth indicates authentication failed (non-retryable).
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeBadRequest indicates a malformed or rejected request, 4xx
	// other than 429 (non-retryable).
	ErrorTypeBadRequest ErrorType = "bad_request"

	// ErrorTypeInvalidResponse indicates the provider returned a body that
	// does not match its own schema (non-retryable for this call).
	ErrorTypeInvalidResponse ErrorType = "invalid_response"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Sentinel errors shared across the transport stack.
var (
	// ErrProviderUnavailable indicates the provider is down or unreachable.
	ErrProviderUnavailable = errors.New("provider service unavailable")

	// ErrRateLimitExceeded indicates a rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidResponse indicates the provider returned an invalid response.
	ErrInvalidResponse = errors.New("invalid provider response")

	// ErrMaxRetriesExceeded indicates the retry budget was exhausted.
	ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")

	// ErrMissingAPIKey indicates no API key was configured.
	ErrMissingAPIKey = errors.New("API key not configured")
)

// ProviderError captures a structured error response from the provider.
// Includes the HTTP status, provider error code, and retry timing so the
// retry middleware can act on provider guidance.
type ProviderError struct {
	Provider   string    `json:"provider"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	Type       ErrorType `json:"type"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, from Retry-After header
}

// Error returns the formatted provider error with status code context.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// IsRetryable reports whether the provider error warrants another attempt.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider:
		return true
	default:
		return false
	}
}

// GetRetryAfter returns the provider-specified retry delay, if any.
func (e *ProviderError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// RateLimitError provides rate limit context for backoff calculation.
// Raised both by the local gate and by provider 429 responses.
type RateLimitError struct {
	Scope      string `json:"scope"` // "local" or provider name
	Limit      int    `json:"limit"`
	RetryAfter int    `json:"retry_after,omitempty"` // seconds
}

// Error returns the formatted rate limit error.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded (limit %d, retry after %ds)",
			e.Scope, e.Limit, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded (limit %d)", e.Scope, e.Limit)
}

// GetRetryAfter returns the recommended wait before the next attempt.
func (e *RateLimitError) GetRetryAfter() time.Duration {
	return time.Duration(e.RetryAfter) * time.Second
}
