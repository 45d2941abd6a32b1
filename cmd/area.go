package cmd

import (
	"encoding/json"
	"fmt"

	"urban-growth/rastertools"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var areaCmd = &cobra.Command{
	Use:   "area [mask.tif]",
	Short: "Report the built-up area of a mask GeoTIFF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mask, _, err := rastertools.ReadMask(args[0])
		if err != nil {
			return err
		}
		out, err := json.Marshal(struct {
			BuiltUpPixels int     `json:"builtUpPixels"`
			BuiltUpAreaHa float64 `json:"builtUpAreaHa"`
		}{
			BuiltUpPixels: mask.CountBuiltUp(),
			BuiltUpAreaHa: rastertools.BuiltUpHectares(mask, viper.GetFloat64("areaPixelEdge")),
		})
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(areaCmd)
	areaCmd.Flags().Float64("areaPixelEdge", 10, "Ground pixel edge in metres")
	bindFlags(areaCmd, "areaPixelEdge")
}
