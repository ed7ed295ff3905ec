package config

import (
	"time"
)

// JobServiceConfig locates the remote Job Service that actually executes
// diagnostic tests.
type JobServiceConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	// Token is usually populated through the secrets mappings rather than
	// the config file itself.
	Token string `mapstructure:"token,omitempty"`
}

// PollingConfig bounds the status tracking loop per run.
type PollingConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	// FailureBudget is the number of consecutive transient probe failures
	// tolerated before tracking gives up. Zero means the first probe error
	// aborts tracking.
	FailureBudget int `mapstructure:"failure_budget"`
	HistoryLimit  int `mapstructure:"history_limit"`
}

// TracingConfig controls the OpenTelemetry trace exporter.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Endpoint is the OTLP/HTTP collector endpoint. When empty and Stdout
	// is false, tracing stays disabled.
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
	// Stdout selects the stdout exporter, useful in local mode.
	Stdout bool `mapstructure:"stdout"`
}
