package main

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/library-chain-mirror/chainstream"
	"github.com/AntonStoeckl/library-chain-mirror/config"
	"github.com/AntonStoeckl/library-chain-mirror/mirror"
	"github.com/AntonStoeckl/library-chain-mirror/mirror/oteladapters"
	"github.com/AntonStoeckl/library-chain-mirror/mirror/postgresengine"
	"github.com/AntonStoeckl/library-chain-mirror/projection"
)

// observability carries the logger and collectors handed to every component.
// Without OpenTelemetry only the JSON logger is set.
type observability struct {
	logger           *slog.Logger
	contextualLogger mirror.ContextualLogger
	metricsCollector mirror.MetricsCollector
	tracingCollector mirror.TracingCollector
	providers        *config.ObservabilityProviders
}

func newObservability(ctx context.Context, cfg config.Config, logger *slog.Logger) (*observability, error) {
	obs := &observability{logger: logger}

	if !cfg.ObservabilityEnabled {
		return obs, nil
	}

	providers, err := config.NewObservabilityProviders(ctx, cfg)
	if err != nil {
		return nil, err
	}

	obs.providers = providers
	obs.contextualLogger = oteladapters.NewSlogBridgeLogger(cfg.ServiceName)
	obs.metricsCollector = oteladapters.NewMetricsCollector(otel.Meter(cfg.ServiceName))
	obs.tracingCollector = oteladapters.NewTracingCollector(otel.Tracer(cfg.ServiceName))

	logger.Info("observability enabled", "otlp_endpoint", cfg.OTLPEndpoint)

	return obs, nil
}

func (o *observability) gatewayOptions() []postgresengine.Option {
	options := []postgresengine.Option{postgresengine.WithLogger(o.logger)}

	if o.contextualLogger != nil {
		options = append(options, postgresengine.WithContextualLogger(o.contextualLogger))
	}

	if o.metricsCollector != nil {
		options = append(options, postgresengine.WithMetrics(o.metricsCollector))
	}

	if o.tracingCollector != nil {
		options = append(options, postgresengine.WithTracing(o.tracingCollector))
	}

	return options
}

func (o *observability) projectionOptions() []projection.Option {
	options := []projection.Option{projection.WithLogger(o.logger)}

	if o.contextualLogger != nil {
		options = append(options, projection.WithContextualLogger(o.contextualLogger))
	}

	if o.metricsCollector != nil {
		options = append(options, projection.WithMetrics(o.metricsCollector))
	}

	if o.tracingCollector != nil {
		options = append(options, projection.WithTracing(o.tracingCollector))
	}

	return options
}

func (o *observability) streamOptions() []chainstream.Option {
	options := []chainstream.Option{chainstream.WithLogger(o.logger)}

	if o.contextualLogger != nil {
		options = append(options, chainstream.WithContextualLogger(o.contextualLogger))
	}

	if o.metricsCollector != nil {
		options = append(options, chainstream.WithMetrics(o.metricsCollector))
	}

	return options
}

func (o *observability) shutdown(logger *slog.Logger, timeout time.Duration) {
	if o.providers == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := o.providers.Shutdown(ctx); err != nil {
		logger.Warn("failed to shut down observability providers", "error", err.Error())
	}
}
