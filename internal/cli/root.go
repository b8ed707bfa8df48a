package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "shiori",
	Short:         "Manga catalog tools",
	Long:          `Command-line access to the MangaDex lookups served by the shiori API, plus admin helpers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SHIORI_CONFIG"), "path to a TOML config file")
}

func Execute() error {
	return rootCmd.Execute()
}
