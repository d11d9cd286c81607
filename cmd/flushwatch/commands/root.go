// Package commands implements the flushwatch CLI.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/flushwatch/cmd/flushwatch/commands/config"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "flushwatch",
	Short: "flushwatch - adaptive background flush scheduler",
	Long: `flushwatch keeps a set of write-buffered append-only files durable.

Writes are queued and buffered per file. A single watcher scans all files at
the smallest configured flush interval and forces an out-of-band durable sync
of every file whose queue is drained and whose interval has elapsed.

Use "flushwatch [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/flushwatch/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(config.Cmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// GetConfigFile returns the config file path from the global flag.
func GetConfigFile() string {
	return cfgFile
}
