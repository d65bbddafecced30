package config

import (
	"os"
	"strconv"

	"github.com/spf13/pflag"
)

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"log_level"`
	Format string `json:"log_format"`
	Output string `json:"log_output"`

	OTel OTelConfig `json:"otel"`
}

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	Enabled      bool    `json:"enabled"`
	SamplingRate float64 `json:"sampling_rate"`
}

// NewLoggingConfig creates a new LoggingConfig with default values
func NewLoggingConfig() *LoggingConfig {
	return &LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
		OTel: OTelConfig{
			Enabled:      false,
			SamplingRate: 1.0,
		},
	}
}

// AddFlags adds CLI flags for core logging configuration
func (l *LoggingConfig) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&l.Level, "log-level", l.Level, "Log level (debug, info, warn, error)")
	fs.StringVar(&l.Format, "log-format", l.Format, "Log format (text, json)")
	fs.StringVar(&l.Output, "log-output", l.Output, "Log output (stdout, stderr)")
}

// ReadFiles satisfies the config interface
func (l *LoggingConfig) ReadFiles() error {
	return nil
}

// BindEnv reads configuration from environment variables.
// Priority: flags > env vars > defaults.
// If fs is nil, all env vars are applied (backward compatibility).
func (l *LoggingConfig) BindEnv(fs *pflag.FlagSet) {
	// Fields with flags: only apply env if flag not set
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		if fs == nil || !fs.Changed("log-level") {
			l.Level = val
		}
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		if fs == nil || !fs.Changed("log-format") {
			l.Format = val
		}
	}
	if val := os.Getenv("LOG_OUTPUT"); val != "" {
		if fs == nil || !fs.Changed("log-output") {
			l.Output = val
		}
	}

	// Fields without flags: always apply env vars
	if val := os.Getenv("OTEL_ENABLED"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err == nil {
			l.OTel.Enabled = enabled
		}
	}
	if val := os.Getenv("OTEL_SAMPLING_RATE"); val != "" {
		rate, err := strconv.ParseFloat(val, 64)
		if err == nil && rate >= 0.0 && rate <= 1.0 {
			l.OTel.SamplingRate = rate
		}
	}
}
