package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"lcsweep/adapters/connectors"
	"lcsweep/adapters/postgres"
	"lcsweep/adapters/starfile"
	"lcsweep/app"
	"lcsweep/domain/star"
	"lcsweep/internal"
	"lcsweep/internal/config"
	"lcsweep/internal/search"
	"lcsweep/internal/tuning"
	"lcsweep/ports"
)

const idlePoll = 5 * time.Second

func main() {
	job := flag.String("job", "", "job to work on (default JOB_ID)")
	tuningPath := flag.String("params", "", "filter parameter file; omit to pass every star with a light curve")
	positivesDir := flag.String("positives", "", "directory of positive sample light curves")
	negativesDir := flag.String("negatives", "", "directory of negative sample light curves")
	templatesDir := flag.String("templates", "", "directory of template light curves for comparative descriptors")
	follow := flag.Bool("follow", false, "keep polling after the queue drains")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}
	if *job == "" {
		*job = cfg.Search.Job
	}
	if *job == "" {
		fmt.Fprintln(os.Stderr, "-job or JOB_ID is required")
		os.Exit(2)
	}
	if cfg.Database.URL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(2)
	}
	log := internal.NewDefaultLogger()

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connecting to database:", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(db); err != nil {
		fmt.Fprintln(os.Stderr, "ensuring schema:", err)
		os.Exit(1)
	}

	filter, err := loadFilter(*tuningPath, *positivesDir, *negativesDir, *templatesDir, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "building filter:", err)
		os.Exit(1)
	}

	searcher := &search.Searcher{
		Connector:  connectors.NewFileConnector(),
		Filter:     filter,
		PassMethod: app.PassMethod(cfg.Search.PassMethod),
		Store:      starfile.NewStore(cfg.Paths.StarsDir),
		Ledger:     postgres.NewLedger(db),
		Job:        *job,
		SaveCoords: cfg.Search.SaveCoords,
		Log:        log,
	}
	qs := search.NewQueueSearcher(postgres.NewBroker(db), searcher, *job)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("[Worker] processing job %s", *job)
	for {
		if err := qs.Work(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "worker failed:", err)
			os.Exit(1)
		}
		if !*follow {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(idlePoll):
		}
	}

	remaining, err := qs.Broker.Remaining(ctx, *job)
	if err == nil {
		log.Info("[Worker] queue drained, %d tasks outstanding", remaining)
	}
}

// loadFilter mirrors the search command so workers evaluate with the same
// trained filter as a sequential run would.
func loadFilter(paramsPath, positivesDir, negativesDir, templatesDir string, log *internal.Logger) (*app.StarsFilter, error) {
	if paramsPath == "" {
		return nil, nil
	}

	f, err := os.Open(paramsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	combos, err := tuning.ParseTuningFile(f)
	if err != nil {
		return nil, err
	}
	if len(combos) != 1 {
		return nil, fmt.Errorf("parameter file expands to %d combinations, want exactly 1", len(combos))
	}

	combo := combos[0]
	if templatesDir != "" {
		templates, err := loadSamples(templatesDir)
		if err != nil {
			return nil, err
		}
		log.Info("[Worker] %d template stars loaded", len(templates))
		combo = app.InjectTemplates(combo, templates)
	}

	filter, err := app.BuildFilter(combo)
	if err != nil {
		return nil, err
	}

	if positivesDir == "" || negativesDir == "" {
		return nil, fmt.Errorf("-positives and -negatives are required to train the filter")
	}
	positives, err := loadSamples(positivesDir)
	if err != nil {
		return nil, err
	}
	negatives, err := loadSamples(negativesDir)
	if err != nil {
		return nil, err
	}
	log.Info("[Worker] training filter on %d positive and %d negative stars", len(positives), len(negatives))
	if err := filter.Learn(positives, negatives); err != nil {
		return nil, err
	}
	return filter, nil
}

func loadSamples(dir string) ([]*star.Star, error) {
	return ports.GetStarsWithCurves(context.Background(), connectors.NewFileConnector(), []ports.Query{{"path": dir}})
}
