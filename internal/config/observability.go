package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const serviceName = "hooklog"

type ObservabilityConfig struct {
	ServiceName string `koanf:"service_name"`
	Environment string `koanf:"environment"`
	LogLevel    string `koanf:"log_level"`
	// LogFormat is "console" or "json".
	LogFormat          string `koanf:"log_format"`
	NewRelicLicenseKey string `koanf:"newrelic_license_key"`
	NewRelicAppName    string `koanf:"newrelic_app_name"`
	// MetricsEnabled serves Prometheus metrics on /metrics.
	MetricsEnabled bool `koanf:"metrics_enabled"`
}

// NewRelicEnabled reports whether a New Relic agent should be started.
func (o *ObservabilityConfig) NewRelicEnabled() bool { return o.NewRelicLicenseKey != "" }

func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{
		ServiceName:    serviceName,
		LogLevel:       "info",
		LogFormat:      "console",
		MetricsEnabled: true,
	}
}

func (o *ObservabilityConfig) Validate() error {
	if o.ServiceName == "" {
		o.ServiceName = serviceName
	}
	if o.LogLevel == "" {
		o.LogLevel = "info"
	}
	if _, err := zerolog.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("log level %q: %w", o.LogLevel, err)
	}
	switch o.LogFormat {
	case "", "console", "json":
	default:
		return fmt.Errorf("log format %q: must be console or json", o.LogFormat)
	}
	if o.NewRelicLicenseKey != "" && len(o.NewRelicLicenseKey) != 40 {
		return errors.New("newrelic license key must be 40 characters")
	}
	return nil
}
