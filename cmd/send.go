package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rvolution/internal/hub"
	"rvolution/internal/logger"
	"rvolution/internal/rvolution"
)

var sendCmd = &cobra.Command{
	Use:   "send <device-id> <command>",
	Short: "Send a single command to a registered device",
	Long: `Send one named command to a registered device and exit.
The command name must exist in the device family's catalog, e.g.
"Power Toggle", "Play/Pause" or "Cursor Up". Use quotes for names
containing spaces.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.SetSilentMode(true)

		config, err := hub.LoadConfig(configPath())
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}

		registry := hub.NewRegistry(config, configPath())
		device, err := registry.Get(args[0])
		if err != nil {
			return fmt.Errorf("device %q: %w", args[0], err)
		}

		client := rvolution.NewClient(device.Address, device.Family, time.Duration(device.Timeout)*time.Second)

		ctx, cancel := context.WithTimeout(context.Background(), rvolution.DefaultTimeout)
		defer cancel()

		if err := client.Send(ctx, args[1]); err != nil {
			return fmt.Errorf("send %q to %s: %w", args[1], device.Name, err)
		}

		cmd.Printf("Sent %q to %s (%s)\n", args[1], device.Name, device.Address)
		return nil
	},
}
