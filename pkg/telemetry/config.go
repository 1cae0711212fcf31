package telemetry

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config is the telemetry section of the settings file.
type Config struct {
	ServiceName    string        `yaml:"service_name"`
	ServiceVersion string        `yaml:"service_version"`
	Logging        LoggingConfig `yaml:"logging"`
	Tracing        TracingConfig `yaml:"tracing"`
	Metrics        MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the zerolog sink.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// Format is console or json. Files always get json.
	Format string `yaml:"format"`
	// Output is stderr, stdout or a file path.
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
	// TimeFormat is unix, unixms or rfc3339.
	TimeFormat string `yaml:"time_format"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
	// Exporter is otlp, stdout or none.
	Exporter      string            `yaml:"exporter"`
	Endpoint      string            `yaml:"endpoint"`
	SamplingRate  float64           `yaml:"sampling_rate"`
	ExportTimeout time.Duration     `yaml:"export_timeout"`
	Headers       map[string]string `yaml:"headers"`
	Insecure      bool              `yaml:"insecure"`
}

// MetricsConfig configures the metrics endpoint. Collection always happens
// in process; Enabled only controls the HTTP listener.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
	Path          string `yaml:"path"`
	Namespace     string `yaml:"namespace"`
}

// DefaultConfig returns a default telemetry configuration: console logs on
// stderr, no tracing and no metrics endpoint.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "agentcore",
		ServiceVersion: "dev",
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Output:     "stderr",
			TimeFormat: "rfc3339",
		},
		Tracing: TracingConfig{
			Enabled:       false,
			Exporter:      "none",
			SamplingRate:  1.0,
			ExportTimeout: 10 * time.Second,
			Headers:       make(map[string]string),
			Insecure:      true,
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			ListenAddress: ":9464",
			Path:          "/metrics",
			Namespace:     "agentcore",
		},
	}
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil || c.Logging.Level == "" {
		errs = append(errs, fmt.Errorf("invalid log level: %q", c.Logging.Level))
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("invalid log format: %q (must be console or json)", c.Logging.Format))
	}
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "stdout", "none":
		case "otlp":
			if c.Tracing.Endpoint == "" {
				errs = append(errs, errors.New("otlp exporter requires an endpoint"))
			}
		default:
			errs = append(errs, fmt.Errorf("invalid trace exporter: %q", c.Tracing.Exporter))
		}
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		errs = append(errs, fmt.Errorf("trace sampling rate must be between 0 and 1, got %g", c.Tracing.SamplingRate))
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddress == "" {
		errs = append(errs, errors.New("metrics listen address is required when metrics are enabled"))
	}
	return errors.Join(errs...)
}
