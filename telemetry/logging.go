package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

var loggerProvider *sdklog.LoggerProvider

// InitializeLogging sets up an OTLP-backed slog logger. When telemetry is
// disabled or no logs endpoint is configured it returns slog.Default, so the
// result is always usable.
func InitializeLogging(ctx context.Context, config *Config) (*slog.Logger, error) {
	if !config.Enabled {
		slog.Info("OpenTelemetry logging is disabled")

		return slog.Default(), nil
	}

	if config.LogsEndpoint == "" {
		slog.Warn("OpenTelemetry logs endpoint not configured, log export will be disabled")

		return slog.Default(), nil
	}

	res, err := newResource(ctx, config)
	if err != nil {
		return nil, err
	}

	exporter, err := otlploghttp.New(ctx,
		otlploghttp.WithEndpointURL(config.LogsEndpoint),
		otlploghttp.WithTimeout(config.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	loggerProvider = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	)

	slog.Info("OpenTelemetry logging initialized",
		"service", config.ServiceName,
		"endpoint", config.LogsEndpoint,
	)

	return otelslog.NewLogger(config.ServiceName, otelslog.WithLoggerProvider(loggerProvider)), nil
}

// ShutdownLogging gracefully shuts down the OpenTelemetry logger provider.
func ShutdownLogging(ctx context.Context) error {
	if loggerProvider == nil {
		return nil
	}

	slog.Info("Shutting down OpenTelemetry logger provider")

	return loggerProvider.Shutdown(ctx)
}
