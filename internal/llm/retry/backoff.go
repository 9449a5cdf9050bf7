// Package retry wraps the transport with bounded exponential backoff.
// Retryable failures (timeouts, 429, 5xx, network trouble) are retried
// up to the attempt budget; fatal classifications return immediately.
// The terminal error carries the full attempt history for logging.
package retry

import (
	"errors"
	"math/rand"
	"time"

	"github.com/ahrav/stakesbench/internal/llm/configuration"
)

// AfterProvider is implemented by error types that carry a
// provider-specified retry delay (Retry-After guidance).
type AfterProvider interface {
	// GetRetryAfter returns the recommended wait before the next attempt,
	// or zero when no guidance is available.
	GetRetryAfter() time.Duration
}

// backoffFor computes the delay before the given retry attempt
// (attempt is 1-based: the delay after the attempt-th failure).
// Provider Retry-After guidance takes precedence; otherwise exponential
// backoff with optional full jitter applies.
func backoffFor(attempt int, cfg configuration.RetryConfig, err error) time.Duration {
	var provider AfterProvider
	if errors.As(err, &provider) {
		if after := provider.GetRetryAfter(); after > 0 {
			return after
		}
	}
	return ExponentialBackoff(attempt, cfg)
}

// ExponentialBackoff calculates the retry delay for a 1-based attempt
// number: base * multiplier^(attempt-1), capped at MaxInterval, with
// optional full jitter. Thread-safe via math/rand.
func ExponentialBackoff(attempt int, cfg configuration.RetryConfig) time.Duration {
	if attempt <= 0 {
		return 0
	}

	backoff := cfg.InitialInterval
	if backoff <= 0 {
		backoff = time.Millisecond
	}
	multiplier := cfg.Multiplier
	if multiplier < 1.0 {
		multiplier = 1.0
	}
	for i := 1; i < attempt; i++ {
		backoff = time.Duration(float64(backoff) * multiplier)
		if backoff > cfg.MaxInterval {
			backoff = cfg.MaxInterval
			break
		}
	}

	if cfg.UseJitter {
		// Full jitter: uniform in [0, backoff].
		jitterMs := rand.Int63n(backoff.Milliseconds() + 1) // #nosec G404 -- non-cryptographic jitter
		return time.Duration(jitterMs) * time.Millisecond
	}
	return backoff
}
