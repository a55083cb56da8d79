package engine

import (
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// ============================================================================
// ENGINE OPTIONS — Functional options for NewFactory()
// ============================================================================

// Option configures a Factory via the functional options pattern.
type Option func(*config)

type config struct {
	Logger         *slog.Logger
	Workers        int // patterns run concurrently; <=1 runs them in order
	Metrics        *Metrics
	TracerProvider trace.TracerProvider
}

// WithLogger sets the structured logger. Builds are silent by default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithWorkers runs up to n inclusion patterns concurrently.
// The merge stays single-threaded, so results match a sequential build exactly.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.Workers = n
	}
}

// WithMetrics records build counts, durations and cell counts.
func WithMetrics(m *Metrics) Option {
	return func(c *config) {
		c.Metrics = m
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.TracerProvider = tp
		}
	}
}

// applyOptions creates a config from functional options.
func applyOptions(opts []Option) *config {
	cfg := &config{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Workers:        1,
		TracerProvider: otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
