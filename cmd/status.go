package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"urban-growth/predictionstore"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statusCmd = &cobra.Command{
	Use:   "status [job id]",
	Short: "Show the latest recorded prediction of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		connStr := viper.GetString("postgresURL")
		if connStr == "" {
			return errors.New("no database configured, set --postgresURL or DATABASE_URL")
		}
		store, err := predictionstore.NewPostgresStore(cmd.Context(), connStr)
		if err != nil {
			return err
		}
		defer store.Close()

		rec, err := store.Latest(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out, err := json.MarshalIndent(map[string]interface{}{
			"jobId":         rec.JobID,
			"resultUrl":     rec.ResultURL,
			"builtUpAreaHa": rec.BuiltUpAreaHa,
			"growthPercent": rec.GrowthPercent,
			"iou":           rec.IoU,
			"confidence":    rec.Confidence,
			"processedAt":   rec.ProcessedAt,
		}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
