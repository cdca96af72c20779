package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"lcsweep/adapters/connectors"
	"lcsweep/adapters/csvreport"
	"lcsweep/adapters/excel"
	"lcsweep/app"
	"lcsweep/domain/star"
	"lcsweep/internal"
	"lcsweep/internal/config"
	"lcsweep/internal/tuning"
	"lcsweep/ports"
)

func main() {
	tuningPath := flag.String("tuning", "", "hyperparameter combinations file")
	staticPath := flag.String("static", "", "optional fixed parameters applied to every combination")
	positivesDir := flag.String("positives", "", "directory of positive sample light curves")
	negativesDir := flag.String("negatives", "", "directory of negative sample light curves")
	templatesDir := flag.String("templates", "", "directory of template light curves for comparative descriptors")
	flag.Parse()

	if *tuningPath == "" || *positivesDir == "" || *negativesDir == "" {
		fmt.Fprintln(os.Stderr, "-tuning, -positives and -negatives are required")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}
	log := internal.NewDefaultLogger()

	combos, err := readTuning(*tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reading tuning file:", err)
		os.Exit(1)
	}

	var static tuning.Combination
	if *staticPath != "" {
		statics, err := readTuning(*staticPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "reading static params:", err)
			os.Exit(1)
		}
		if len(statics) != 1 {
			fmt.Fprintf(os.Stderr, "static params expand to %d combinations, want exactly 1\n", len(statics))
			os.Exit(1)
		}
		static = statics[0]
	}

	positives, err := loadSamples(*positivesDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading positives:", err)
		os.Exit(1)
	}
	negatives, err := loadSamples(*negativesDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "loading negatives:", err)
		os.Exit(1)
	}
	if *templatesDir != "" {
		templates, err := loadSamples(*templatesDir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "loading templates:", err)
			os.Exit(1)
		}
		log.Info("[Tune] %d template stars loaded", len(templates))
		for i, c := range combos {
			combos[i] = app.InjectTemplates(c, templates)
		}
		static = app.InjectTemplates(static, templates)
	}

	log.Info("[Tune] %d combinations, %d positive and %d negative stars",
		len(combos), len(positives), len(negatives))

	estimator := &app.ParamsEstimator{
		Positives:    positives,
		Negatives:    negatives,
		Combinations: combos,
		StaticParams: static,
		SplitRatio:   cfg.Tuning.SplitRatio,
		Shuffle:      cfg.Tuning.Shuffle,
		Seed:         cfg.Tuning.Seed,
		Parallel:     cfg.Tuning.Parallel,
		Writer:       newReportWriter(cfg.Paths.ReportFile),
		Log:          log,
	}

	result, err := estimator.Run(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "estimation failed:", err)
		os.Exit(1)
	}

	fmt.Printf("Best score: %.3f\n", result.Score)
	for class, params := range result.Params {
		for key, value := range params {
			fmt.Printf("  %s:%s = %v\n", class, key, value)
		}
	}
	for _, key := range ports.StatisticKeys {
		fmt.Printf("%s: %.3f\n", key, result.Stats.Map()[key])
	}
	fmt.Printf("Report written to %s\n", cfg.Paths.ReportFile)
}

func readTuning(path string) ([]tuning.Combination, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tuning.ParseTuningFile(f)
}

func loadSamples(dir string) ([]*star.Star, error) {
	return ports.GetStarsWithCurves(context.Background(), connectors.NewFileConnector(), []ports.Query{{"path": dir}})
}

// newReportWriter picks the report format from the file extension:
// spreadsheets for .xlsx, flattened CSV for everything else.
func newReportWriter(path string) ports.StatsWriter {
	if filepath.Ext(path) == ".xlsx" {
		return excel.NewWriter(path)
	}
	return csvreport.NewWriter(path)
}
