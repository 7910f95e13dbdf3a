package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rvolution/internal/logger"
)

var (
	verbose bool
	log     = logger.New()
)

var rootCmd = &cobra.Command{
	Use:   "rvolution",
	Short: "R_volution - media player integration driver",
	Long: `R_volution is an integration driver for R_volution media players.
It manages up to ten players over their HTTP IR-code interface, polls their
playback status, and exposes them as media player and remote entities.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel("debug")
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(driverCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(tokenCmd)
}

// configPath resolves the config file location. RVOLUTION_CONFIG_HOME
// overrides the directory; otherwise the file lives next to the binary's
// working directory.
func configPath() string {
	if home := os.Getenv("RVOLUTION_CONFIG_HOME"); home != "" {
		return filepath.Join(home, "rvolution.yaml")
	}
	return "rvolution.yaml"
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
