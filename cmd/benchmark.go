package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/zpam/playtennis/pkg/bayes"
	"github.com/zpam/playtennis/pkg/dataset"
	"github.com/zpam/playtennis/pkg/profiler"
)

var (
	benchmarkRuns   int
	benchmarkBuilds int
)

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Time model building and prediction",
	Long: `Build the model repeatedly, then predict every combination of the
observed feature values, and report timing statistics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if benchmarkRuns < 1 || benchmarkBuilds < 1 {
			return fmt.Errorf("--runs and --builds must be >= 1")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		prof := profiler.NewProfiler()

		var ds *dataset.Dataset
		err = prof.Time(profiler.OpLoadDataset, func() error {
			var err error
			ds, err = dataset.Load(cfg.Dataset.Path, cfg.Dataset.Label, cfg.Dataset.Features)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to load dataset: %w", err)
		}

		var model *bayes.Model
		for i := 0; i < benchmarkBuilds; i++ {
			err := prof.Time(profiler.OpBuildModel, func() error {
				var err error
				model, err = bayes.NewModel(ds, bayes.WithFloor(cfg.Model.Floor))
				return err
			})
			if err != nil {
				return fmt.Errorf("failed to build model: %w", err)
			}
		}

		samples := combinations(model)

		fmt.Printf("🚀 Naive Bayes Benchmark\n")
		fmt.Printf("📁 Dataset: %s (%d rows)\n", cfg.Dataset.Path, ds.Len())
		fmt.Printf("🔢 Combinations: %d\n", len(samples))
		fmt.Printf("🔄 Runs: %d\n\n", benchmarkRuns)

		outcomes := make(map[string]int)
		for run := 0; run < benchmarkRuns; run++ {
			for _, sample := range samples {
				var pred bayes.Prediction
				err := prof.Time(profiler.OpPredict, func() error {
					var err error
					pred, err = model.Predict(sample)
					return err
				})
				if err != nil {
					return err
				}
				if run == 0 {
					outcomes[pred.Label]++
				}
			}
		}

		prof.PrintReport(os.Stdout)

		if s := prof.GetStats(profiler.OpPredict); s.Count > 0 {
			fmt.Printf("\n⚡ Throughput: %.0f predictions/sec\n", s.Throughput())
		}
		fmt.Printf("\n📊 Predicted classes over all combinations:\n")
		for _, label := range model.Labels() {
			fmt.Printf("  %-15s %d\n", label, outcomes[label])
		}
		return nil
	},
}

// combinations returns the cartesian product of every feature domain
func combinations(model *bayes.Model) []bayes.Sample {
	features := model.Features()
	sort.Strings(features)

	samples := []bayes.Sample{{}}
	for _, f := range features {
		var next []bayes.Sample
		for _, base := range samples {
			for _, v := range model.Domain(f) {
				s := make(bayes.Sample, len(base)+1)
				for k, bv := range base {
					s[k] = bv
				}
				s[f] = v
				next = append(next, s)
			}
		}
		samples = next
	}
	return samples
}

func init() {
	benchmarkCmd.Flags().IntVarP(&benchmarkRuns, "runs", "n", 1000, "Passes over every feature combination")
	benchmarkCmd.Flags().IntVar(&benchmarkBuilds, "builds", 10, "Number of model builds to time")
}
