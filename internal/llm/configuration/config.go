// Package configuration holds the typed configuration surface for the
// harness: provider endpoint and credentials, resilience parameters,
// experiment shape, and output locations. Values come from defaults,
// then an optional YAML file, then environment overrides.
package configuration

import (
	"errors"
	"fmt"
	"time"
)

// Configuration errors detected before any request is issued. These are
// the only errors that abort a run outright.
var (
	// ErrMissingAPIKey indicates no provider API key was found.
	ErrMissingAPIKey = errors.New("provider API key not found")

	// ErrInvalidConfig is returned for out-of-range configuration values.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is the complete harness configuration.
type Config struct {
	// Provider configures the model-serving endpoint.
	Provider ProviderConfig `yaml:"provider"`

	// Retry configures exponential backoff behavior.
	Retry RetryConfig `yaml:"retry"`

	// RateLimit configures the global requests-per-minute gate.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Experiment configures the cross-product and batching.
	Experiment ExperimentConfig `yaml:"experiment"`

	// Output configures the persisted artifacts.
	Output OutputConfig `yaml:"output"`

	// Observability configures logging.
	Observability ObservabilityConfig `yaml:"observability"`
}

// ProviderConfig holds endpoint and authentication settings.
type ProviderConfig struct {
	// Endpoint is the chat-completions URL.
	Endpoint string `yaml:"endpoint"`

	// APIKey is the bearer token. Never serialized; populated from the
	// environment variable named by APIKeyEnv.
	APIKey string `yaml:"-"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	// RequestTimeout bounds each individual HTTP call.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// Headers are extra headers attached to every request.
	Headers map[string]string `yaml:"headers"`
}

// RetryConfig controls exponential backoff for retryable failures.
type RetryConfig struct {
	// MaxAttempts is the total attempt budget per call, including the
	// first attempt.
	MaxAttempts int `yaml:"max_attempts"`

	// InitialInterval is the base backoff before the first retry.
	InitialInterval time.Duration `yaml:"initial_interval"`

	// MaxInterval caps the backoff growth.
	MaxInterval time.Duration `yaml:"max_interval"`

	// Multiplier grows the backoff between attempts.
	Multiplier float64 `yaml:"multiplier"`

	// UseJitter enables jitter on top of the exponential delay.
	UseJitter bool `yaml:"use_jitter"`
}

// RateLimitConfig controls the shared dispatch gate.
type RateLimitConfig struct {
	// MaxPerMinute is the rolling-window requests-per-minute ceiling
	// shared by all concurrent callers. 0 means unlimited.
	MaxPerMinute int `yaml:"max_per_minute"`
}

// ExperimentConfig shapes the cross-product and its execution.
type ExperimentConfig struct {
	// Rubric selects the judge schema: "facts" or "measurement".
	Rubric string `yaml:"rubric"`

	// BatchSize is the number of cells processed between persists.
	BatchSize int `yaml:"batch_size"`

	// MaxConcurrent bounds in-flight requests within a batch phase.
	// 1 recovers fully sequential execution.
	MaxConcurrent int `yaml:"max_concurrent"`

	// RunsPerCell is the number of repeated runs per condition.
	RunsPerCell int `yaml:"runs_per_cell"`

	// SmokeTest collapses the cross-product to exactly one cell.
	SmokeTest bool `yaml:"smoke_test"`

	// Scenarios, Tiers, Conditions, and Models select slices of the
	// catalog. Empty means "all known".
	Scenarios  []string `yaml:"scenarios"`
	Tiers      []string `yaml:"tiers"`
	Conditions []string `yaml:"conditions"`
	Models     []string `yaml:"models"`

	// JudgeModel overrides the catalog's judge model id when set.
	JudgeModel string `yaml:"judge_model"`

	// GenerationTemperature is the sampling temperature for drafts.
	// Judge calls always run at temperature 0.
	GenerationTemperature float64 `yaml:"generation_temperature"`

	// MaxTokens caps completion length. 0 leaves the provider default.
	MaxTokens int `yaml:"max_tokens"`
}

// OutputConfig locates the persisted artifacts.
type OutputConfig struct {
	// Dir is the base directory for all artifacts.
	Dir string `yaml:"dir"`

	// ResultsCSV is the tabular rows file, relative to Dir.
	ResultsCSV string `yaml:"results_csv"`

	// RecordsJSONL is the detailed per-row records file, relative to Dir.
	RecordsJSONL string `yaml:"records_jsonl"`

	// CallLog is the append-only raw API call log, relative to Dir.
	CallLog string `yaml:"call_log"`
}

// ObservabilityConfig controls structured logging.
type ObservabilityConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// RedactPrompts replaces prompt/response bodies with lengths in the
	// structured log. The raw call log is unaffected.
	RedactPrompts bool `yaml:"redact_prompts"`
}

// Validate checks the configuration before any request is issued.
// A failure here is fatal to the run.
func (c *Config) Validate() error {
	if c.Provider.Endpoint == "" {
		return fmt.Errorf("%w: provider endpoint is required", ErrInvalidConfig)
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("%w: set %s", ErrMissingAPIKey, c.Provider.APIKeyEnv)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry max_attempts must be >= 1, got %d",
			ErrInvalidConfig, c.Retry.MaxAttempts)
	}
	if c.Retry.InitialInterval <= 0 {
		return fmt.Errorf("%w: retry initial_interval must be > 0", ErrInvalidConfig)
	}
	if c.Retry.MaxInterval < c.Retry.InitialInterval {
		return fmt.Errorf("%w: retry max_interval must be >= initial_interval", ErrInvalidConfig)
	}
	if c.Retry.Multiplier < 1.0 {
		return fmt.Errorf("%w: retry multiplier must be >= 1.0, got %f",
			ErrInvalidConfig, c.Retry.Multiplier)
	}
	if c.RateLimit.MaxPerMinute < 0 {
		return fmt.Errorf("%w: rate limit max_per_minute must be >= 0, got %d",
			ErrInvalidConfig, c.RateLimit.MaxPerMinute)
	}
	if c.Experiment.BatchSize < 1 {
		return fmt.Errorf("%w: batch_size must be >= 1, got %d",
			ErrInvalidConfig, c.Experiment.BatchSize)
	}
	if c.Experiment.MaxConcurrent < 1 {
		return fmt.Errorf("%w: max_concurrent must be >= 1, got %d",
			ErrInvalidConfig, c.Experiment.MaxConcurrent)
	}
	if c.Experiment.RunsPerCell < 1 {
		return fmt.Errorf("%w: runs_per_cell must be >= 1, got %d",
			ErrInvalidConfig, c.Experiment.RunsPerCell)
	}
	if r := c.Experiment.Rubric; r != "facts" && r != "measurement" {
		return fmt.Errorf("%w: rubric must be facts or measurement, got %q", ErrInvalidConfig, r)
	}
	return nil
}
