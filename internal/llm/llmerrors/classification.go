package llmerrors

import (
	"context"
	"errors"
	"net"
)

// Classify maps an arbitrary transport error onto the taxonomy.
// Strongly-typed errors are inspected first, then sentinels, then
// network error interfaces; anything else is unknown.
func Classify(err error) ErrorType {
	if err == nil {
		return ""
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Type
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return ErrorTypeRateLimit
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, ErrRateLimitExceeded):
		return ErrorTypeRateLimit
	case errors.Is(err, ErrProviderUnavailable):
		return ErrorTypeProvider
	case errors.Is(err, ErrInvalidResponse):
		return ErrorTypeInvalidResponse
	case errors.Is(err, ErrMissingAPIKey):
		return ErrorTypeAuth
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTypeTimeout
		}
		return ErrorTypeNetwork
	}

	return ErrorTypeUnknown
}

// IsRetryable reports whether the error represents a transient condition
// worth another attempt. Fatal classifications (auth, bad request,
// malformed response) are never retried.
func IsRetryable(err error) bool {
	switch Classify(err) {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider:
		return true
	default:
		return false
	}
}
