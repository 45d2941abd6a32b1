package cmd

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "urban-growth",
	Short: "Built-up area detection on Sentinel-2 scenes",
	Long: `Detects built-up land inside an area of interest of a Sentinel-2
	scene and reports its area.

	./urban-growth predict [opts] [scene] [aoi.geojson]
	./urban-growth area [opts] [mask.tif]
	./urban-growth status [opts] [job id]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return err
		}
		setLogLevels()
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command. It is called once from main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initConfig layers the config file and URBAN_* environment variables under
// the command line flags.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return err
		}
		logrus.Infof("Using config file %s", viper.ConfigFileUsed())
	}
	viper.SetEnvPrefix("URBAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	return nil
}

func setLogLevels() {
	if viper.GetBool("debug") {
		logrus.SetLevel(logrus.DebugLevel)
	} else if viper.GetBool("verbose") {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(logrus.WarnLevel)
	}
}

// bindFlags binds every local flag of cmd to the viper key of the same name.
func bindFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if err := viper.BindPFlag(name, cmd.Flags().Lookup(name)); err != nil {
			logrus.Fatalf("bind flag %s: %v", name, err)
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose output")
	err := viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	if err != nil {
		logrus.Exit(1)
	}
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Debug output")
	err = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	if err != nil {
		logrus.Exit(1)
	}

	// predict records into the database, status reads from it.
	rootCmd.PersistentFlags().String("postgresURL", "", "Postgres database of predictions")
	err = viper.BindPFlag("postgresURL", rootCmd.PersistentFlags().Lookup("postgresURL"))
	if err != nil {
		logrus.Exit(1)
	}
	err = viper.BindEnv("postgresURL", "URBAN_POSTGRESURL", "DATABASE_URL")
	if err != nil {
		logrus.Exit(1)
	}
}
