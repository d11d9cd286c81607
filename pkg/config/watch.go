package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/marmos91/flushwatch/internal/logger"
)

// Watch re-reads the config file at path whenever it changes and passes
// each valid result to fn. Invalid edits are logged and ignored.
//
// Only settings that are safe to change at runtime should be applied by fn;
// the cache list and scan interval are fixed once the scheduler starts.
func Watch(path string, fn func(*Config)) error {
	if path == "" {
		return fmt.Errorf("config watch requires an explicit file path")
	}

	v := viper.New()
	setupViper(v, path)

	found, err := readConfigFile(v)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("configuration file not found: %s", path)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := decode(v)
		if err != nil {
			logger.Warn("Ignoring invalid configuration change",
				logger.Path(e.Name), logger.Err(err))
			return
		}
		logger.Info("Configuration reloaded", logger.Path(e.Name))
		fn(cfg)
	})
	v.WatchConfig()

	return nil
}
