package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zpam/playtennis/pkg/bayes"
	"github.com/zpam/playtennis/pkg/predictor"
)

var (
	predictQuery     []string
	predictFloor     float64
	predictJSON      bool
	predictNormalize bool
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the class of one sample",
	Long: `Predict whether tennis will be played for the given weather conditions.

Every feature of the dataset must be given exactly once:

  playtennis predict -q Outlook=Sunny -q Temperature=Cool -q Humidity=High -q Wind=Strong

Posteriors are the unnormalized products P(class) * prod P(value | class).
Use --normalize to print them scaled to sum to 1.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sample, err := parseSample(predictQuery)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("floor") {
			cfg.Model.Floor = predictFloor
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer logger.Sync()

		p, err := predictor.Load(cfg, logger)
		if err != nil {
			return err
		}
		defer p.Close()

		pred, err := p.Predict(context.Background(), sample)
		if err != nil {
			return err
		}
		if predictNormalize {
			pred.Posteriors = pred.Posteriors.Normalized()
		}

		if predictJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(pred)
		}

		fmt.Printf("🎯 Prediction: %s\n", pred.Label)
		fmt.Printf("═══════════════════════════════════════\n")
		if predictNormalize {
			fmt.Printf("📊 Posterior Probabilities (normalized):\n")
		} else {
			fmt.Printf("📊 Posterior Probabilities:\n")
		}
		for _, label := range pred.Posteriors.Labels() {
			score, _ := pred.Posteriors.Score(label)
			fmt.Printf("  %-15s %.6g\n", label, score)
		}
		fmt.Printf("\n✅ Model Prediction: %s\n", pred.Label)
		return nil
	},
}

// parseSample turns Feature=Value pairs into a sample
func parseSample(pairs []string) (bayes.Sample, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("at least one --query Feature=Value is required")
	}

	sample := make(bayes.Sample, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid query %q: expected Feature=Value", pair)
		}
		if _, dup := sample[key]; dup {
			return nil, fmt.Errorf("feature %q given more than once", key)
		}
		sample[key] = strings.TrimSpace(value)
	}
	return sample, nil
}

func init() {
	predictCmd.Flags().StringArrayVarP(&predictQuery, "query", "q", nil, "Feature=Value pair (repeatable)")
	predictCmd.Flags().Float64Var(&predictFloor, "floor", bayes.DefaultFloor, "Probability used for unseen (value, class) pairs")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "Print the prediction as JSON")
	predictCmd.Flags().BoolVar(&predictNormalize, "normalize", false, "Scale posteriors to sum to 1")
}
