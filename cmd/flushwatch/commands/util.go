package commands

import (
	"fmt"

	"github.com/marmos91/flushwatch/internal/logger"
	"github.com/marmos91/flushwatch/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// resolveConfigPath returns the file a configuration was loaded from, or ""
// when defaults were used.
func resolveConfigPath(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return ""
}

// getConfigSource describes where the configuration came from.
func getConfigSource(configFile string) string {
	if path := resolveConfigPath(configFile); path != "" {
		return path
	}
	return "defaults"
}
