package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/flushwatch/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample flushwatch configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/flushwatch/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  flushwatch init

  # Initialize with custom path
  flushwatch init --config /etc/flushwatch/config.yaml

  # Force overwrite existing config
  flushwatch init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. List the files to keep durable under 'caches'")
	_, _ = fmt.Fprintln(out, "  2. Start the scheduler with: flushwatch start")
	_, _ = fmt.Fprintf(out, "  3. Or specify custom config: flushwatch start --config %s\n", configPath)

	return nil
}
