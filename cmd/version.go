package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adstech/opensink/internal/controller"
	"github.com/adstech/opensink/internal/ui"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of opensink",
	Long:  `All software has versions. This is opensink's`,
	Run: func(cmd *cobra.Command, args []string) {
		ui.Printfln(controller.FirmwareVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
