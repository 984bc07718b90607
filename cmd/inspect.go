package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zpam/playtennis/pkg/bayes"
	"github.com/zpam/playtennis/pkg/dataset"
)

var (
	inspectJSON    bool
	inspectPreview int
)

type inspectOutput struct {
	*bayes.ModelInfo
	Priors       map[string]float64                  `json:"priors"`
	Conditionals map[string][]bayes.ConditionalEntry `json:"conditionals"`
	Fingerprint  string                              `json:"fingerprint"`
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the learned priors and conditional tables",
	Long: `Build the model from the configured dataset and print its class priors
and P(value | class) tables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ds, err := dataset.Load(cfg.Dataset.Path, cfg.Dataset.Label, cfg.Dataset.Features)
		if err != nil {
			return fmt.Errorf("failed to load dataset: %w", err)
		}
		model, err := bayes.NewModel(ds, bayes.WithFloor(cfg.Model.Floor))
		if err != nil {
			return fmt.Errorf("failed to build model: %w", err)
		}

		if inspectJSON {
			out := inspectOutput{
				ModelInfo:    model.Info(),
				Priors:       make(map[string]float64),
				Conditionals: make(map[string][]bayes.ConditionalEntry),
				Fingerprint:  ds.Fingerprint(),
			}
			for _, l := range model.Labels() {
				out.Priors[l], _ = model.Priors().Prob(l)
			}
			for _, f := range model.Features() {
				out.Conditionals[f] = model.Entries(f)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}

		fmt.Printf("📁 Dataset: %s (%s)\n", cfg.Dataset.Path, ds.Fingerprint())
		model.PrintStats(os.Stdout)

		if inspectPreview > 0 {
			fmt.Printf("\n📋 Dataset Preview:\n")
			fmt.Printf("  %s\n", strings.Join(ds.Columns, "\t"))
			for _, row := range ds.Preview(inspectPreview) {
				fmt.Printf("  %s\n", strings.Join(row.Record, "\t"))
			}
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print the model as JSON")
	inspectCmd.Flags().IntVar(&inspectPreview, "preview", 0, "Also print the first N dataset rows")
}
