package config

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/flushwatch/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Load and validate a flushwatch configuration file.

Prints the scan interval the scheduler would use: the smallest
flush_interval among the configured caches.`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	var scan time.Duration
	for _, c := range cfg.Caches {
		if scan == 0 || c.FlushInterval < scan {
			scan = c.FlushInterval
		}
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %d cache(s), scan interval %s\n", len(cfg.Caches), scan)
	return nil
}
