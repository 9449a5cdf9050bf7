// Package llm assembles the resilient LLM client: an HTTP core wrapped
// in call-log, rate-limit, retry, and observability middleware.
package llm

// Metrics provides observability data collection for LLM operations.
// Tag-based counters and histograms keep the hook provider-agnostic.
type Metrics interface {
	IncrementCounter(name string, tags map[string]string, value float64)
	RecordHistogram(name string, tags map[string]string, value float64)
}

// NoOpMetrics satisfies Metrics without collecting anything.
type NoOpMetrics struct{}

// NewNoOpMetrics creates a metrics collector that discards all data.
func NewNoOpMetrics() *NoOpMetrics { return &NoOpMetrics{} }

func (n *NoOpMetrics) IncrementCounter(_ string, _ map[string]string, _ float64) {}

func (n *NoOpMetrics) RecordHistogram(_ string, _ map[string]string, _ float64) {}
