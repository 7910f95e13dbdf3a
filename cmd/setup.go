package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rvolution/cmd/wizard"
	"rvolution/internal/hub"
	"rvolution/internal/logger"
)

var setupDebugFlag bool

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Run the interactive device setup wizard",
	Long: `Launch the interactive setup wizard for registering R_volution devices.
The wizard probes each device over HTTP before committing it to a registry
slot, so unreachable players are never saved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if setupDebugFlag {
			logger.SetSilentMode(false)
			logger.SetLevel("debug")
		} else {
			logger.SetSilentMode(true) // Keep the TUI clean
		}

		path := configPath()
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := hub.SaveConfig(hub.NewDefaultConfig(), path); err != nil {
				return fmt.Errorf("failed to create config file: %w", err)
			}
		}

		config, err := hub.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}

		registry := hub.NewRegistry(config, path)
		if err := wizard.StartTUI(registry); err != nil {
			log.Error().Err(err).Msg("Failed to start setup wizard")
			return err
		}

		return nil
	},
}

func init() {
	setupCmd.Flags().BoolVar(&setupDebugFlag, "debug", false, "Enable debug logging during setup")
}
