package app

import (
	"context"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"lcsweep/domain/star"
	"lcsweep/internal"
	"lcsweep/internal/errors"
	"lcsweep/internal/registry"
	"lcsweep/internal/tuning"
	"lcsweep/ports"
)

// DefaultSplitRatio is the train fraction used when none is configured.
const DefaultSplitRatio = 0.7

// ScoreFunc ranks a combination by its classification statistic.
type ScoreFunc func(ports.Statistic) float64

// ParamsEstimator grid-searches hyperparameter combinations for the best
// performing StarsFilter. Combinations evaluate independently and may run
// in parallel.
type ParamsEstimator struct {
	Positives []*star.Star
	Negatives []*star.Star

	Combinations []tuning.Combination
	StaticParams tuning.Combination

	SplitRatio float64
	Shuffle    bool
	Seed       int64

	// Parallel bounds the worker pool; zero means one worker per CPU.
	Parallel int

	// Score ranks combinations; the default is precision. Minimize flips
	// the optimization direction.
	Score    ScoreFunc
	Minimize bool

	// Writer, when set, receives per-combination statistics and the ROC
	// sequence after the run.
	Writer ports.StatsWriter

	Log *internal.Logger
}

// Result is the outcome of an estimation run.
type Result struct {
	Filter *StarsFilter
	Stats  ports.Statistic
	Params tuning.Combination
	Score  float64

	// AllStats holds every combination's outcome, in combination order.
	AllStats []ports.CombinationStats
}

// Run evaluates every combination and returns the winner. A construction
// failure in any combination aborts the run, as does any evaluation error.
func (e *ParamsEstimator) Run(ctx context.Context) (*Result, error) {
	if len(e.Combinations) == 0 {
		return nil, errors.QueryInput("no hyperparameter combinations to evaluate")
	}
	ratio := e.SplitRatio
	if ratio == 0 {
		ratio = DefaultSplitRatio
	}
	if ratio <= 0 || ratio >= 1 {
		return nil, errors.QueryInputf("split ratio must lie in (0, 1), got %v", ratio)
	}
	log := e.Log
	if log == nil {
		log = internal.DefaultLogger
	}
	score := e.Score
	if score == nil {
		score = func(s ports.Statistic) float64 { return s.Precision }
	}

	trainPos, testPos, err := split(e.Positives, ratio, e.Shuffle, e.Seed)
	if err != nil {
		return nil, err
	}
	trainNeg, testNeg, err := split(e.Negatives, ratio, e.Shuffle, e.Seed+1)
	if err != nil {
		return nil, err
	}
	log.Info("[ParamsEstimator] Evaluating %d combinations on %d/%d train and %d/%d test stars",
		len(e.Combinations), len(trainPos), len(trainNeg), len(testPos), len(testNeg))

	type outcome struct {
		filter *StarsFilter
		stats  ports.Statistic
	}
	outcomes := make([]outcome, len(e.Combinations))

	workers := e.Parallel
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, combo := range e.Combinations {
		i, combo := i, combo
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			filter, err := e.buildFilter(combo)
			if err != nil {
				return err
			}
			if err := filter.Learn(trainPos, trainNeg); err != nil {
				return err
			}
			stats, err := filter.GetStatistic(testPos, testNeg, 0)
			if err != nil {
				return err
			}
			outcomes[i] = outcome{filter: filter, stats: stats}
			log.Debug("[ParamsEstimator] Combination %d scored precision=%.3f tpr=%.3f",
				i, stats.Precision, stats.TruePositiveRate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{AllStats: make([]ports.CombinationStats, len(e.Combinations))}
	bestIdx := -1
	var bestScore float64
	for i, o := range outcomes {
		s := score(o.stats)
		result.AllStats[i] = ports.CombinationStats{
			Index:  i,
			Params: comboParams(e.Combinations[i]),
			Stats:  o.stats,
			Score:  s,
		}
		better := bestIdx < 0 || s > bestScore
		if e.Minimize {
			better = bestIdx < 0 || s < bestScore
		}
		if better {
			bestIdx = i
			bestScore = s
		}
	}

	result.Filter = outcomes[bestIdx].filter
	result.Stats = outcomes[bestIdx].stats
	result.Params = e.Combinations[bestIdx]
	result.Score = bestScore
	log.Info("[ParamsEstimator] Best combination %d with score %.3f", bestIdx, bestScore)

	if e.Writer != nil {
		if err := e.persist(result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// buildFilter instantiates the combination's classes merged with matching
// static params. Classes appearing only in the static params are included
// too.
func (e *ParamsEstimator) buildFilter(combo tuning.Combination) (*StarsFilter, error) {
	classes := tuning.Combination{}
	for class, params := range e.StaticParams {
		classes[class] = params
	}
	for class, params := range combo {
		if static, ok := classes[class]; ok {
			classes[class] = static.Merge(params)
		} else {
			classes[class] = params
		}
	}
	return BuildFilter(classes)
}

// InjectTemplates returns a copy of the combination with the comparison
// stars set on every class that requires them. A "comp_stars" value
// already present in a class is left untouched.
func InjectTemplates(combo tuning.Combination, templates []*star.Star) tuning.Combination {
	out := make(tuning.Combination, len(combo))
	for class, params := range combo {
		if registry.NeedsTemplates(class) {
			if _, ok := params.Stars("comp_stars"); !ok {
				params = params.Merge(registry.Params{"comp_stars": templates})
			}
		}
		out[class] = params
	}
	return out
}

// BuildFilter instantiates every class named in the combination through
// the registry and assembles an unlearned StarsFilter from them.
func BuildFilter(combo tuning.Combination) (*StarsFilter, error) {
	// keep instantiation order deterministic across workers
	names := make([]string, 0, len(combo))
	for class := range combo {
		names = append(names, class)
	}
	sort.Strings(names)

	var descr []ports.Descriptor
	var dec []ports.Decider
	for _, class := range names {
		params := combo[class]
		switch {
		case registry.HasDescriptor(class):
			d, err := registry.NewDescriptor(class, params)
			if err != nil {
				return nil, err
			}
			descr = append(descr, d)
		case registry.HasDecider(class):
			d, err := registry.NewDecider(class, params)
			if err != nil {
				return nil, err
			}
			dec = append(dec, d)
		default:
			return nil, errors.QueryInputf("unknown descriptor or decider %q", class)
		}
	}
	return NewStarsFilter(descr, dec)
}

func comboParams(combo tuning.Combination) map[string]map[string]interface{} {
	out := make(map[string]map[string]interface{}, len(combo))
	for class, params := range combo {
		inner := make(map[string]interface{}, len(params))
		for k, v := range params {
			inner[k] = v
		}
		out[class] = inner
	}
	return out
}

func (e *ParamsEstimator) persist(result *Result) error {
	if err := e.Writer.WriteCombinations(result.AllStats); err != nil {
		return err
	}
	points := make([]ports.ROCPoint, len(result.AllStats))
	for i, cs := range result.AllStats {
		points[i] = ports.ROCPoint{FPRate: cs.Stats.FalsePositiveRate, TPRate: cs.Stats.TruePositiveRate}
	}
	sort.Slice(points, func(a, b int) bool { return points[a].FPRate < points[b].FPRate })
	if err := e.Writer.WriteROC(points); err != nil {
		return err
	}
	return e.Writer.Flush()
}

// split shuffles (optionally, seeded) and partitions stars into train and
// test slices by the given ratio.
func split(stars []*star.Star, ratio float64, shuffle bool, seed int64) ([]*star.Star, []*star.Star, error) {
	if len(stars) < 2 {
		return nil, nil, errors.QueryInput("need at least two stars per class to split into train and test")
	}
	ordered := append([]*star.Star(nil), stars...)
	if shuffle {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(len(ordered), func(i, j int) {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		})
	}
	cut := int(ratio * float64(len(ordered)))
	if cut < 1 {
		cut = 1
	}
	if cut >= len(ordered) {
		cut = len(ordered) - 1
	}
	return ordered[:cut], ordered[cut:], nil
}
