package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rvolution/internal/hub"
	"rvolution/internal/integration"
	"rvolution/internal/logger"
)

var driverConfigPath string

var driverCmd = &cobra.Command{
	Use:   "driver",
	Short: "Start the integration driver daemon",
	Long: `Start the R_volution integration driver daemon.
The daemon loads the device registry, starts a status poller per enabled
device, and serves the integration API (REST and WebSocket) until it
receives SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.SetSilentMode(false)
		logger.SetLevel("info")
		if verbose {
			logger.SetLevel("debug")
		}

		path := driverConfigPath
		if path == "" {
			path = configPath()
		}

		log.Info().
			Str("config_path", path).
			Msg("Starting R_volution driver daemon")

		if _, err := os.Stat(path); os.IsNotExist(err) {
			defaultConfig := hub.NewDefaultConfig()
			if err := hub.SaveConfig(defaultConfig, path); err != nil {
				log.Error().Err(err).Msg("Failed to create default config file")
				return fmt.Errorf("failed to create default config file: %w", err)
			}
			log.Info().
				Str("config_path", path).
				Msg("Created default configuration file")
		}

		config, err := hub.LoadConfig(path)
		if err != nil {
			log.Error().Err(err).Msg("Failed to load config file")
			return fmt.Errorf("failed to load config file: %w", err)
		}

		registry := hub.NewRegistry(config, path)
		daemon := hub.NewDaemon(registry)

		driver := registry.Driver()
		server := integration.NewServer(daemon, driver.ListenAddress, driver.APISecret)
		daemon.SetAPIServer(server)

		// Blocks until shutdown
		if err := daemon.Start(); err != nil {
			log.Error().Err(err).Msg("Driver daemon stopped with error")
			return fmt.Errorf("driver daemon error: %w", err)
		}

		return nil
	},
}

func init() {
	driverCmd.Flags().StringVarP(&driverConfigPath, "config", "c", "", "path to config file (default: $RVOLUTION_CONFIG_HOME/rvolution.yaml)")
}
