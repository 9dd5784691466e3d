package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/adstech/opensink/internal/configuration"
	"github.com/adstech/opensink/internal/ui"
)

var configCmd = &cobra.Command{
	Use:              "config",
	Short:            "Configuration related commands",
	TraverseChildren: true,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validates the current configuration",
	Long:  ``,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// note: config file path parameter comes from the root command (-c)
		configuration.DetectAndReadConfigFile()
		configuration.LoadConfig()

		if err := configuration.Validate(); err != nil {
			ui.Error("Validation failed: %v", err)
			os.Exit(1)
		}

		ui.Success("Config looks good! :)")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
