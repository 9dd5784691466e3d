package cmd

import (
	"bytes"
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/mgutz/ansi"
	"github.com/spf13/cobra"
	"github.com/tomlazar/table"

	"github.com/adstech/opensink/cmd/global"
	"github.com/adstech/opensink/internal/configuration"
	"github.com/adstech/opensink/internal/luts"
	"github.com/adstech/opensink/internal/ui"
)

var curveCmd = &cobra.Command{
	Use:   "curve",
	Short: "Print the configured fan curve to console",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		configuration.DetectAndReadConfigFile()
		configuration.LoadConfig()

		err = configuration.Validate()
		if err != nil {
			ui.Fatal(err.Error())
		}

		lut, err := configuration.CurrentConfig.BootTempDuty()
		if err != nil {
			return err
		}

		printCurveTable(lut)
		printCurveGraph(lut)

		return nil
	},
}

func printCurveTable(lut luts.TempToDuty) {
	rows := make([][]string, 0, len(lut))
	for idx, point := range lut {
		rows = append(rows, []string{
			fmt.Sprintf("%d", idx),
			fmt.Sprintf("%.1f", point.TempC),
			fmt.Sprintf("%.0f%%", point.Duty*100),
		})
	}

	tab := table.Table{
		Headers: []string{"Step", "Temp (°C)", "Duty"},
		Rows:    rows,
	}
	var buf bytes.Buffer
	tableErr := tab.WriteTable(&buf, &table.Config{
		ShowIndex:       false,
		Color:           !global.NoColor,
		AlternateColors: true,
		TitleColorCode:  ansi.ColorCode("white+buf"),
		AltColorCodes: []string{
			ansi.ColorCode("white"),
			ansi.ColorCode("white:236"),
		},
	})
	if tableErr != nil {
		panic(tableErr)
	}
	ui.Printfln(buf.String())
}

func printCurveGraph(lut luts.TempToDuty) {
	start := int(lut[0].TempC) - 10
	stop := int(lut[len(lut)-1].TempC) + 10

	// step response without hysteresis, one sample per degree
	values := make([]float64, 0, stop-start+1)
	for t := start; t <= stop; t++ {
		duty := 0.0
		for _, point := range lut {
			if float64(t) >= point.TempC {
				duty = point.Duty * 100
			}
		}
		values = append(values, duty)
	}

	caption := fmt.Sprintf("Duty %% / Temp °C (%d..%d)", start, stop)
	graph := asciigraph.Plot(values, asciigraph.Height(15), asciigraph.Width(100), asciigraph.Caption(caption))
	ui.Printfln(graph)
}

func init() {
	rootCmd.AddCommand(curveCmd)
}
