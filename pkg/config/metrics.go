package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// MetricsConfig configures the Prometheus metrics endpoint oldman's store
// and session layers publish query latency, error, and connection-pool
// gauges to.
type MetricsConfig struct {
	Host        string `mapstructure:"host" json:"host" validate:""`
	Port        int    `mapstructure:"port" json:"port" validate:"min=1,max=65535"`
	EnableHTTPS bool   `mapstructure:"enable_https" json:"enable_https"`

	// Legacy field for backward compatibility
	BindAddress string `mapstructure:"bind_address" json:"bind_address,omitempty"`
}

func NewMetricsConfig() *MetricsConfig {
	return &MetricsConfig{
		Host:        "localhost",
		Port:        8080,
		EnableHTTPS: false,
		BindAddress: "localhost:8080",
	}
}

// defineAndBindFlags defines & binds flags to viper keys in a single pass
func (s *MetricsConfig) defineAndBindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	defineAndBindStringFlag(v, fs, "metrics.host", "metrics-host", "", s.Host, "Metrics server bind host")
	defineAndBindIntFlag(v, fs, "metrics.port", "metrics-port", "", s.Port, "Metrics server bind port")
	defineAndBindBoolFlag(v, fs, "metrics.enable_https", "metrics-https-enabled", "", s.EnableHTTPS, "Enable HTTPS for metrics server")
}

// GetBindAddress returns the bind address in host:port format
func (s *MetricsConfig) GetBindAddress() string {
	if s.BindAddress != "" {
		return s.BindAddress
	}
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
