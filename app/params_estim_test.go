package app

import (
	"context"
	"testing"

	"lcsweep/internal/errors"
	"lcsweep/internal/registry"
	"lcsweep/internal/tuning"
	"lcsweep/ports"
)

func testCombinations() []tuning.Combination {
	return []tuning.Combination{
		{
			"AbbeValueDescr": registry.Params{},
			"GaussianNBDec":  registry.Params{"treshold": 0.5},
		},
		{
			"AbbeValueDescr": registry.Params{"bins": 20},
			"GaussianNBDec":  registry.Params{"treshold": 0.5},
		},
	}
}

// TestEstimatorPicksACombination tests the end to end grid search
func TestEstimatorPicksACombination(t *testing.T) {
	e := &ParamsEstimator{
		Positives:    smoothStars(t, 20),
		Negatives:    noisyStars(t, 20),
		Combinations: testCombinations(),
		SplitRatio:   0.7,
		Seed:         1,
	}

	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Filter == nil || !result.Filter.Learned() {
		t.Fatal("Expected a trained winning filter")
	}
	if len(result.AllStats) != 2 {
		t.Fatalf("Expected stats for 2 combinations, got %d", len(result.AllStats))
	}
	// the two classes are cleanly separable, so the winner must be perfect
	if result.Stats.Precision < 0.99 {
		t.Errorf("Expected perfect precision on separable classes, got %f", result.Stats.Precision)
	}
	if result.Score < 0.99 {
		t.Errorf("Expected winning score near 1, got %f", result.Score)
	}
	if _, ok := result.Params["GaussianNBDec"]; !ok {
		t.Error("Winning params should carry the decider class")
	}
}

// TestEstimatorReproducibleWithSeed tests that a fixed seed pins the split
// and therefore the outcome
func TestEstimatorReproducibleWithSeed(t *testing.T) {
	run := func() *Result {
		e := &ParamsEstimator{
			Positives:    smoothStars(t, 16),
			Negatives:    noisyStars(t, 16),
			Combinations: testCombinations(),
			SplitRatio:   0.7,
			Shuffle:      true,
			Seed:         99,
			Parallel:     2,
		}
		result, err := e.Run(context.Background())
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return result
	}

	a, b := run(), run()
	if a.Score != b.Score {
		t.Errorf("Scores differ across identically seeded runs: %f vs %f", a.Score, b.Score)
	}
	if len(a.AllStats) != len(b.AllStats) {
		t.Fatalf("Stat counts differ: %d vs %d", len(a.AllStats), len(b.AllStats))
	}
	for i := range a.AllStats {
		if a.AllStats[i].Stats != b.AllStats[i].Stats {
			t.Errorf("Combination %d stats differ: %+v vs %+v",
				i, a.AllStats[i].Stats, b.AllStats[i].Stats)
		}
	}
}

// TestEstimatorValidation tests input preconditions
func TestEstimatorValidation(t *testing.T) {
	pos, neg := smoothStars(t, 10), noisyStars(t, 10)

	e := &ParamsEstimator{Positives: pos, Negatives: neg}
	if _, err := e.Run(context.Background()); err == nil {
		t.Error("Expected error for empty combination list")
	}

	e = &ParamsEstimator{
		Positives:    pos,
		Negatives:    neg,
		Combinations: testCombinations(),
		SplitRatio:   1.5,
	}
	if _, err := e.Run(context.Background()); err == nil {
		t.Error("Expected error for split ratio above 1")
	}

	e = &ParamsEstimator{
		Positives:    pos[:1],
		Negatives:    neg,
		Combinations: testCombinations(),
		SplitRatio:   0.7,
	}
	if _, err := e.Run(context.Background()); err == nil {
		t.Error("Expected error for a class too small to split")
	}
}

// TestEstimatorUnknownClass tests grid construction failure
func TestEstimatorUnknownClass(t *testing.T) {
	e := &ParamsEstimator{
		Positives:    smoothStars(t, 10),
		Negatives:    noisyStars(t, 10),
		Combinations: []tuning.Combination{{"NoSuchDescr": registry.Params{}}},
		SplitRatio:   0.7,
	}
	if _, err := e.Run(context.Background()); err == nil {
		t.Error("Expected error for an unknown class name")
	}
}

// TestBuildFilterMixesComponentKinds tests registry-driven assembly
func TestBuildFilterMixesComponentKinds(t *testing.T) {
	f, err := BuildFilter(tuning.Combination{
		"AbbeValueDescr": registry.Params{},
		"SkewnessDescr":  registry.Params{"absolute": true},
		"GaussianNBDec":  registry.Params{},
		"LDADec":         registry.Params{"treshold": 0.7},
	})
	if err != nil {
		t.Fatalf("BuildFilter failed: %v", err)
	}
	if len(f.Descriptors()) != 2 {
		t.Errorf("Expected 2 descriptors, got %d", len(f.Descriptors()))
	}
	if len(f.Deciders()) != 2 {
		t.Errorf("Expected 2 deciders, got %d", len(f.Deciders()))
	}
}

// TestEstimatorMinimizeFlipsDirection tests optimization direction with a
// custom score
func TestEstimatorMinimizeFlipsDirection(t *testing.T) {
	e := &ParamsEstimator{
		Positives:    smoothStars(t, 16),
		Negatives:    noisyStars(t, 16),
		Combinations: testCombinations(),
		SplitRatio:   0.7,
		Seed:         5,
		Score:        func(s ports.Statistic) float64 { return s.FalsePositiveRate },
		Minimize:     true,
	}
	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Score > 0.01 {
		t.Errorf("Minimizing false positives on separable classes should reach 0, got %f", result.Score)
	}
}

// TestInjectTemplatesEnablesComparativeDescriptors tests that template stars
// merged as comp_stars make the shape descriptors constructible and usable
func TestInjectTemplatesEnablesComparativeDescriptors(t *testing.T) {
	combo := tuning.Combination{
		"CurvesShapeDescr": registry.Params{"days_per_bin": 2.0, "alphabet_size": 6},
		"GaussianNBDec":    registry.Params{"treshold": 0.5},
	}

	if _, err := BuildFilter(combo); err == nil {
		t.Fatal("Expected an error building a comparative descriptor without templates")
	} else if !errors.IsCode(err, errors.CodeQueryInput) {
		t.Errorf("Expected QUERY_INPUT code, got %v", err)
	}

	injected := InjectTemplates(combo, smoothStars(t, 3))
	filter, err := BuildFilter(injected)
	if err != nil {
		t.Fatalf("BuildFilter with templates failed: %v", err)
	}
	if err := filter.Learn(smoothStars(t, 20), noisyStars(t, 20)); err != nil {
		t.Fatalf("Learn failed: %v", err)
	}
	evals, err := filter.EvaluateStars(smoothStars(t, 2), PassMean)
	if err != nil {
		t.Fatalf("EvaluateStars failed: %v", err)
	}
	if len(evals) != 2 {
		t.Fatalf("Expected 2 evaluations, got %d", len(evals))
	}

	// the original combination must stay untouched
	if _, ok := combo["CurvesShapeDescr"].Stars("comp_stars"); ok {
		t.Error("InjectTemplates should not mutate its input")
	}
}

// TestInjectTemplatesKeepsExplicitCompStars tests that caller-provided
// comparison stars win over the injected defaults
func TestInjectTemplatesKeepsExplicitCompStars(t *testing.T) {
	own := smoothStars(t, 2)
	combo := tuning.Combination{
		"HistShapeDescr": registry.Params{"comp_stars": own, "bins": 10, "alphabet_size": 4},
	}
	injected := InjectTemplates(combo, noisyStars(t, 5))
	got, ok := injected["HistShapeDescr"].Stars("comp_stars")
	if !ok || len(got) != 2 {
		t.Fatalf("Expected the explicit 2 comparison stars to survive, got %d", len(got))
	}
}
