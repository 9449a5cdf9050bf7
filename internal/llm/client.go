package llm

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ahrav/stakesbench/internal/llm/calllog"
	"github.com/ahrav/stakesbench/internal/llm/configuration"
	"github.com/ahrav/stakesbench/internal/llm/providers"
	"github.com/ahrav/stakesbench/internal/llm/ratelimit"
	"github.com/ahrav/stakesbench/internal/llm/retry"
	"github.com/ahrav/stakesbench/internal/llm/transport"
)

// Client issues LLM calls through the full middleware chain. Every call
// returns a definite outcome: a parsed response or a typed error.
type Client interface {
	Complete(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// Option customizes client construction, chiefly for tests.
type Option func(*options)

type options struct {
	gate       ratelimit.Gate
	callLog    *calllog.Log
	logger     *slog.Logger
	metrics    Metrics
	core       transport.Handler
	httpClient *http.Client
}

// WithGate injects the shared dispatch gate. Defaults to a gate built
// from the configured requests-per-minute ceiling.
func WithGate(g ratelimit.Gate) Option { return func(o *options) { o.gate = g } }

// WithCallLog injects the append-only call log. Nil disables call logging.
func WithCallLog(l *calllog.Log) Option { return func(o *options) { o.callLog = l } }

// WithLogger injects the structured logger.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithMetrics injects the metrics collector.
func WithMetrics(m Metrics) Option { return func(o *options) { o.metrics = m } }

// WithCoreHandler replaces the HTTP core while keeping the middleware
// chain intact. Tests use this to stub the provider.
func WithCoreHandler(h transport.Handler) Option { return func(o *options) { o.core = h } }

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

type client struct {
	handler transport.Handler
	timeout configuration.ProviderConfig
}

// NewClient assembles the middleware chain around the OpenRouter core:
//
//	logging → retry → rate limit → call log → HTTP
//
// The rate gate sits inside retry so each attempt re-takes an admission
// slot; the call log sits innermost so every attempt is audited.
func NewClient(cfg *configuration.Config, opts ...Option) (Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	core := o.core
	if core == nil {
		httpClient := o.httpClient
		if httpClient == nil {
			httpClient = &http.Client{}
		}
		adapter := providers.NewOpenRouterAdapter(cfg.Provider)
		core = transport.NewHTTPHandler(httpClient, adapter)
	}

	gate := o.gate
	if gate == nil {
		gate = ratelimit.NewGate(cfg.RateLimit.MaxPerMinute)
	}

	middlewares := []transport.Middleware{
		NewLoggingMiddleware(o.logger, o.metrics, cfg.Observability.RedactPrompts),
		retry.NewMiddleware(cfg.Retry, o.logger),
		ratelimit.NewMiddleware(gate, o.logger),
	}
	if o.callLog != nil {
		middlewares = append(middlewares, calllog.NewMiddleware(o.callLog))
	}

	return &client{
		handler: transport.Chain(core, middlewares...),
		timeout: cfg.Provider,
	}, nil
}

// Complete dispatches one request through the chain. A missing trace id
// or timeout is filled in from defaults.
func (c *client) Complete(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if req.TraceID == "" {
		req.TraceID = uuid.New().String()
	}
	if req.Timeout == 0 {
		req.Timeout = c.timeout.RequestTimeout
	}
	return c.handler.Handle(ctx, req)
}
