package configuration

import "time"

// Default resilience and experiment parameters.
const (
	// DefaultEndpoint is the OpenRouter chat-completions endpoint.
	DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

	// DefaultAPIKeyEnv names the environment variable for the API key.
	DefaultAPIKeyEnv = "OPENROUTER_API_KEY"

	// DefaultRequestTimeout bounds each individual HTTP call.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultMaxAttempts is the per-call attempt budget.
	DefaultMaxAttempts = 3

	// DefaultInitialInterval is the base backoff before the first retry.
	DefaultInitialInterval = 5 * time.Second

	// DefaultMaxInterval caps backoff growth.
	DefaultMaxInterval = 60 * time.Second

	// DefaultBackoffMultiplier doubles the delay between attempts.
	DefaultBackoffMultiplier = 2.0

	// DefaultMaxPerMinute is the rolling-window RPM ceiling.
	DefaultMaxPerMinute = 60

	// DefaultBatchSize is the number of cells per persist cycle.
	DefaultBatchSize = 50

	// DefaultMaxConcurrent bounds in-flight requests per batch phase.
	DefaultMaxConcurrent = 10

	// DefaultRunsPerCell repeats each condition this many times.
	DefaultRunsPerCell = 3

	// DefaultGenerationTemperature is the drafting temperature.
	DefaultGenerationTemperature = 0.7
)

// DefaultConfig returns the harness defaults. The API key is not
// populated here; Load resolves it from the environment.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Endpoint:       DefaultEndpoint,
			APIKeyEnv:      DefaultAPIKeyEnv,
			RequestTimeout: DefaultRequestTimeout,
		},
		Retry: RetryConfig{
			MaxAttempts:     DefaultMaxAttempts,
			InitialInterval: DefaultInitialInterval,
			MaxInterval:     DefaultMaxInterval,
			Multiplier:      DefaultBackoffMultiplier,
			UseJitter:       true,
		},
		RateLimit: RateLimitConfig{
			MaxPerMinute: DefaultMaxPerMinute,
		},
		Experiment: ExperimentConfig{
			Rubric:                "measurement",
			BatchSize:             DefaultBatchSize,
			MaxConcurrent:         DefaultMaxConcurrent,
			RunsPerCell:           DefaultRunsPerCell,
			GenerationTemperature: DefaultGenerationTemperature,
		},
		Output: OutputConfig{
			Dir:          "data",
			ResultsCSV:   "results.csv",
			RecordsJSONL: "press_releases.jsonl",
			CallLog:      "api_calls.log",
		},
		Observability: ObservabilityConfig{
			LogLevel:      "info",
			RedactPrompts: false,
		},
	}
}
