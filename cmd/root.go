package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zpam/playtennis/pkg/config"
	"github.com/zpam/playtennis/pkg/logging"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "playtennis",
	Short: "Naive Bayes classifier for the PlayTennis dataset",
	Long: `playtennis learns class priors and per-feature conditional probabilities
from a categorical CSV dataset and predicts the most probable class for a
weather sample.

Run it from the command line or serve the single-page prediction form.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run:           func(cmd *cobra.Command, args []string) {
		fmt.Println("playtennis - Naive Bayes Play Tennis classifier")
		fmt.Println("Use 'playtennis --help' for usage information")
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the file named by --config, or the defaults
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	return logger, nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file (YAML)")

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(benchmarkCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
}
