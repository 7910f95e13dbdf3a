package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"rvolution/internal/hub"
	"rvolution/internal/integration"
	"rvolution/internal/logger"
)

var tokenClientName string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token",
	Long: `Issue a bearer token for the integration API, signed with the
driver's API secret from the config file. Pass the token in the
Authorization header or the token query parameter.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.SetSilentMode(true)

		config, err := hub.LoadConfig(configPath())
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}

		jwtService := integration.NewJWTService(config.Driver.APISecret)
		token, err := jwtService.GenerateToken(tokenClientName)
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}

		cmd.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenClientName, "client", "cli", "client name embedded in the token")
}
