package telemetry

import (
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const defaultExportTimeout = 10 * time.Second

// Config selects where force-sync and scan spans are exported.
type Config struct {
	Enabled bool

	ServiceName    string
	ServiceVersion string

	// Endpoint is the OTLP gRPC collector, host:port.
	Endpoint string
	Insecure bool

	// Headers are sent with every export, typically collector auth.
	Headers map[string]string

	// ExportTimeout bounds a single batch export. Zero means 10s.
	ExportTimeout time.Duration

	// SampleRate is the fraction of root spans kept, 0.0 to 1.0.
	SampleRate float64
}

// DefaultConfig returns tracing disabled with a local collector endpoint.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "flushwatch",
		ServiceVersion: "dev",
		Endpoint:       "localhost:4317",
		Insecure:       true,
		ExportTimeout:  defaultExportTimeout,
		SampleRate:     1.0,
	}
}

func (c Config) exportTimeout() time.Duration {
	if c.ExportTimeout <= 0 {
		return defaultExportTimeout
	}
	return c.ExportTimeout
}

// exporterOptions builds the OTLP gRPC exporter options for c.
func (c Config) exporterOptions() []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(c.Endpoint),
		otlptracegrpc.WithTimeout(c.exportTimeout()),
	}
	if len(c.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(c.Headers))
	}
	if c.Insecure {
		opts = append(opts,
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			otlptracegrpc.WithInsecure(),
		)
	}
	return opts
}
