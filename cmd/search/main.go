package main

import (
	"context"
	"flag"
	"fmt"
	"os"

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

func main() {
	queriesPath := flag.String("queries", "", "query file (';' delimited, '#' header)")
	tuningPath := flag.String("params", "", "filter parameter file; omit to pass every star with a light curve")
	positivesDir := flag.String("positives", "", "directory of positive sample light curves")
	negativesDir := flag.String("negatives", "", "directory of negative sample light curves")
	templatesDir := flag.String("templates", "", "directory of template light curves for comparative descriptors")
	resume := flag.Bool("resume", false, "skip queries already recorded in the job's ledger")
	flag.Parse()

	if *queriesPath == "" {
		fmt.Fprintln(os.Stderr, "-queries is required")
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(2)
	}
	log := internal.NewDefaultLogger()

	queries, err := readQueries(*queriesPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reading queries:", err)
		os.Exit(1)
	}

	filter, err := loadFilter(*tuningPath, *positivesDir, *negativesDir, *templatesDir, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "building filter:", err)
		os.Exit(1)
	}

	job := cfg.Search.Job
	if job == "" {
		job = search.NewJobID()
	}

	searcher := &search.Searcher{
		Connector:  connectors.NewFileConnector(),
		Filter:     filter,
		PassMethod: app.PassMethod(cfg.Search.PassMethod),
		Store:      starfile.NewStore(cfg.Paths.StarsDir),
		Ledger:     newLedger(cfg, filter),
		Job:        job,
		UnfoundLim: cfg.Search.UnfoundLim,
		SaveCoords: cfg.Search.SaveCoords,
		Log:        log,
	}

	ctx := context.Background()

	if *resume {
		if cfg.Search.Job == "" {
			fmt.Fprintln(os.Stderr, "-resume needs JOB_ID to locate the existing ledger")
			os.Exit(2)
		}
		recorded, err := searcher.Ledger.Rows(ctx, job)
		if err != nil {
			fmt.Fprintln(os.Stderr, "reading ledger:", err)
			os.Exit(1)
		}
		remaining := search.RemainingQueries(queries, recorded)
		log.Info("[Search] resuming job %s: %d of %d queries left", job, len(remaining), len(queries))
		queries = remaining
	}

	if cfg.Search.Broker == "postgres" {
		if err := enqueue(ctx, cfg, searcher, queries); err != nil {
			fmt.Fprintln(os.Stderr, "enqueueing:", err)
			os.Exit(1)
		}
		fmt.Printf("Enqueued %d queries for job %s\n", len(queries), job)
		return
	}

	if err := searcher.QueryStars(ctx, queries); err != nil {
		fmt.Fprintln(os.Stderr, "search failed:", err)
		os.Exit(1)
	}

	rows, err := searcher.Ledger.Rows(ctx, job)
	if err != nil {
		fmt.Fprintln(os.Stderr, "reading ledger:", err)
		os.Exit(1)
	}
	sum := search.Summarize(rows)
	fmt.Printf("Job %s: %d queries, %d found, %d with light curves, %d passed\n",
		job, sum.Rows, sum.Found, sum.WithLC, sum.Passed)
}

func readQueries(path string) ([]ports.Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return tuning.ParseQueryFile(f)
}

// loadFilter builds an unlearned filter from the parameter file and, when
// sample directories are given, trains it on their stars.
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
		log.Info("[Search] %d template stars loaded", len(templates))
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
	log.Info("[Search] training filter on %d positive and %d negative stars", len(positives), len(negatives))
	if err := filter.Learn(positives, negatives); err != nil {
		return nil, err
	}
	return filter, nil
}

func loadSamples(dir string) ([]*star.Star, error) {
	return ports.GetStarsWithCurves(context.Background(), connectors.NewFileConnector(), []ports.Query{{"path": dir}})
}

func newLedger(cfg *config.Config, filter *app.StarsFilter) ports.LedgerStore {
	var coordLabels, deciderNames []string
	if filter != nil {
		if cfg.Search.SaveCoords {
			for _, d := range filter.Descriptors() {
				coordLabels = append(coordLabels, d.Labels()...)
			}
		}
		for _, d := range filter.Deciders() {
			deciderNames = append(deciderNames, d.Name())
		}
	}
	return starfile.NewLedger(cfg.Paths.LedgerDir, coordLabels, deciderNames)
}

func enqueue(ctx context.Context, cfg *config.Config, searcher *search.Searcher, queries []ports.Query) error {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.EnsureSchema(db); err != nil {
		return err
	}
	qs := search.NewQueueSearcher(postgres.NewBroker(db), searcher, searcher.Job)
	return qs.QueryStars(ctx, queries)
}
