package telemetry

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string        `env:"OTEL_SERVICE_NAME" envDefault:"mobius"`
	ServiceVersion string        `env:"OTEL_SERVICE_VERSION" envDefault:"1.0.0"`
	Environment    string        `env:"ENVIRONMENT" envDefault:"dev"`
	TracesEndpoint string        `env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`
	LogsEndpoint   string        `env:"OTEL_EXPORTER_OTLP_LOGS_ENDPOINT"`
	Enabled        bool          `env:"OTEL_ENABLED" envDefault:"false"`
	Timeout        time.Duration `env:"OTEL_EXPORTER_OTLP_TIMEOUT" envDefault:"5s"`
}

// LoadConfigFromEnv loads OpenTelemetry configuration from environment
// variables.
func LoadConfigFromEnv() (*Config, error) {
	var config Config

	err := env.Parse(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse telemetry environment: %w", err)
	}

	return &config, nil
}
