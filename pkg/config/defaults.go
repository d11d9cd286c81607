package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/flushwatch/pkg/api"
	"github.com/marmos91/flushwatch/pkg/filecache"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Zero values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyShutdownTimeoutDefaults(cfg)
	applyAPIDefaults(&cfg.API)
	for i := range cfg.Caches {
		applyCacheDefaults(&cfg.Caches[i])
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	if cfg.ExportTimeout == 0 {
		cfg.ExportTimeout = 10 * time.Second
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

func applyShutdownTimeoutDefaults(cfg *Config) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyAPIDefaults(cfg *api.APIConfig) {
	cfg.ApplyDefaults()
}

// applyCacheDefaults fills queue and buffer sizes. ID, path, and flush
// interval have no defaults.
func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.QueueSize == 0 {
		cfg.QueueSize = filecache.DefaultQueueSize
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = ByteSize(filecache.DefaultBufferSize)
	}
}

// GetDefaultConfig returns a Config with one sample cache and all defaults
// applied. Used when no config file exists and to generate sample files.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Caches: []CacheConfig{
			{
				ID:            "default",
				Path:          filepath.Join(os.TempDir(), "flushwatch", "default.log"),
				FlushInterval: 5 * time.Second,
			},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}

// FileCacheConfig converts a cache entry into the filecache configuration.
func (c CacheConfig) FileCacheConfig() filecache.Config {
	return filecache.Config{
		ID:            c.ID,
		Path:          c.Path,
		FlushInterval: c.FlushInterval,
		QueueSize:     c.QueueSize,
		BufferSize:    c.BufferSize.Int(),
	}
}
