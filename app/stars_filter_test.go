package app

import (
	"math"
	"testing"

	"lcsweep/adapters/deciders"
	"lcsweep/adapters/descriptors"
	"lcsweep/domain/star"
	"lcsweep/internal/errors"
	"lcsweep/ports"
)

func curveStar(t *testing.T, name string, mags []float64) *star.Star {
	t.Helper()
	times := make([]float64, len(mags))
	for i := range times {
		times[i] = 0.5 * float64(i)
	}
	lc, err := star.NewLightCurve(times, mags, nil, star.Meta{})
	if err != nil {
		t.Fatalf("NewLightCurve failed: %v", err)
	}
	s := star.New(name)
	s.PutLightCurve(lc)
	return s
}

// smoothStars yields slowly varying curves, noisyStars alternating ones.
// The Abbe value separates the two groups cleanly.
func smoothStars(t *testing.T, n int) []*star.Star {
	t.Helper()
	out := make([]*star.Star, n)
	for i := range out {
		mags := make([]float64, 80)
		for j := range mags {
			mags[j] = 14 + 0.01*float64(j)*(1+0.1*float64(i))
		}
		out[i] = curveStar(t, "smooth", mags)
	}
	return out
}

func noisyStars(t *testing.T, n int) []*star.Star {
	t.Helper()
	out := make([]*star.Star, n)
	for i := range out {
		mags := make([]float64, 80)
		for j := range mags {
			if (i+j)%2 == 0 {
				mags[j] = 14
			} else {
				mags[j] = 16
			}
		}
		out[i] = curveStar(t, "noisy", mags)
	}
	return out
}

func trainedFilter(t *testing.T) *StarsFilter {
	t.Helper()
	f, err := NewStarsFilter(
		[]ports.Descriptor{&descriptors.AbbeValue{}},
		[]ports.Decider{&deciders.GaussianNB{}, &deciders.LDA{}},
	)
	if err != nil {
		t.Fatalf("NewStarsFilter failed: %v", err)
	}
	if err := f.Learn(smoothStars(t, 20), noisyStars(t, 20)); err != nil {
		t.Fatalf("Learn failed: %v", err)
	}
	return f
}

// TestNewStarsFilterValidation tests the non-empty component requirement
func TestNewStarsFilterValidation(t *testing.T) {
	if _, err := NewStarsFilter(nil, []ports.Decider{&deciders.GaussianNB{}}); err == nil {
		t.Error("Expected error for empty descriptor list")
	}
	if _, err := NewStarsFilter([]ports.Descriptor{&descriptors.AbbeValue{}}, nil); err == nil {
		t.Error("Expected error for empty decider list")
	}
}

// TestFilterRequiresTraining tests the learned guard on evaluating calls
func TestFilterRequiresTraining(t *testing.T) {
	f, err := NewStarsFilter(
		[]ports.Descriptor{&descriptors.AbbeValue{}},
		[]ports.Decider{&deciders.GaussianNB{}},
	)
	if err != nil {
		t.Fatalf("NewStarsFilter failed: %v", err)
	}
	if f.Learned() {
		t.Error("Fresh filter should not report learned")
	}

	stars := smoothStars(t, 3)
	if _, err := f.EvaluateStars(stars, PassMean); err == nil {
		t.Error("Expected error evaluating before training")
	} else if !errors.IsCode(err, errors.CodeLearning) {
		t.Errorf("Expected LEARNING_ERROR, got %v", err)
	}
	if _, err := f.FilterStars(stars, PassMean); err == nil {
		t.Error("Expected error filtering before training")
	}
	if _, err := f.GetStatistic(stars, stars, 0); err == nil {
		t.Error("Expected error computing statistics before training")
	}
}

// TestFilterSeparatesClasses tests end to end classification
func TestFilterSeparatesClasses(t *testing.T) {
	f := trainedFilter(t)
	if !f.Learned() {
		t.Fatal("Filter should report learned after training")
	}

	passed, err := f.FilterStars(smoothStars(t, 10), PassMean)
	if err != nil {
		t.Fatalf("FilterStars failed: %v", err)
	}
	if len(passed) != 10 {
		t.Errorf("Expected all 10 smooth stars to pass, got %d", len(passed))
	}

	rejected, err := f.FilterStars(noisyStars(t, 10), PassMean)
	if err != nil {
		t.Fatalf("FilterStars failed: %v", err)
	}
	if len(rejected) != 0 {
		t.Errorf("Expected no noisy stars to pass, got %d", len(rejected))
	}
}

// TestEvaluateStarsRowShape tests per-star verdict structure
func TestEvaluateStarsRowShape(t *testing.T) {
	f := trainedFilter(t)
	stars := append(smoothStars(t, 3), noisyStars(t, 2)...)

	evals, err := f.EvaluateStars(stars, PassMean)
	if err != nil {
		t.Fatalf("EvaluateStars failed: %v", err)
	}
	if len(evals) != 5 {
		t.Fatalf("Expected 5 evaluations, got %d", len(evals))
	}
	for i, ev := range evals {
		if ev.Star == nil {
			t.Fatalf("Evaluation %d lost its star", i)
		}
		if ev.Probability < 0 || ev.Probability > 1 {
			t.Errorf("Evaluation %d probability out of range: %f", i, ev.Probability)
		}
		// probabilities are reported with two decimals
		if math.Abs(ev.Probability*100-math.Round(ev.Probability*100)) > 1e-9 {
			t.Errorf("Evaluation %d probability not rounded: %v", i, ev.Probability)
		}
		if len(ev.PerDecider) != 2 {
			t.Errorf("Evaluation %d has %d per-decider verdicts, expected 2", i, len(ev.PerDecider))
		}
		if len(ev.Coords) != 1 {
			t.Errorf("Evaluation %d has %d coordinates, expected 1", i, len(ev.Coords))
		}
		if _, ok := ev.Coords["Abbe value"]; !ok {
			t.Errorf("Evaluation %d misses the descriptor coordinate", i)
		}
	}
}

// TestPassMethods tests the combination semantics ordering
func TestPassMethods(t *testing.T) {
	f := trainedFilter(t)
	stars := smoothStars(t, 4)

	for _, method := range []PassMethod{PassAll, PassMean, PassOne} {
		evals, err := f.EvaluateStars(stars, method)
		if err != nil {
			t.Fatalf("EvaluateStars(%s) failed: %v", method, err)
		}
		if len(evals) != 4 {
			t.Fatalf("EvaluateStars(%s): expected 4 rows, got %d", method, len(evals))
		}
	}

	// all <= mean <= one for any star
	all, _ := f.EvaluateStars(stars, PassAll)
	mean, _ := f.EvaluateStars(stars, PassMean)
	one, _ := f.EvaluateStars(stars, PassOne)
	for i := range stars {
		if all[i].Probability > mean[i].Probability+1e-9 ||
			mean[i].Probability > one[i].Probability+1e-9 {
			t.Errorf("Star %d: combination ordering violated: all=%f mean=%f one=%f",
				i, all[i].Probability, mean[i].Probability, one[i].Probability)
		}
	}

	if _, err := f.EvaluateStars(stars, PassMethod("median")); err == nil {
		t.Error("Expected error for an unknown pass method")
	}
}

// TestFilterThresholdIsDeciderMean tests the aggregate threshold
func TestFilterThresholdIsDeciderMean(t *testing.T) {
	f, err := NewStarsFilter(
		[]ports.Descriptor{&descriptors.AbbeValue{}},
		[]ports.Decider{
			&deciders.GaussianNB{Thresh: 0.4},
			&deciders.LDA{Thresh: 0.8},
		},
	)
	if err != nil {
		t.Fatalf("NewStarsFilter failed: %v", err)
	}
	if th := f.Threshold(); math.Abs(th-0.6) > 1e-9 {
		t.Errorf("Expected mean threshold 0.6, got %f", th)
	}
}

// TestLearnRejectsUnusableSamples tests training with no clean feature rows
func TestLearnRejectsUnusableSamples(t *testing.T) {
	f, err := NewStarsFilter(
		[]ports.Descriptor{&descriptors.AbbeValue{}},
		[]ports.Decider{&deciders.GaussianNB{}},
	)
	if err != nil {
		t.Fatalf("NewStarsFilter failed: %v", err)
	}

	// bare stars produce NaN coordinates only
	bare := []*star.Star{star.New("a"), star.New("b")}
	if err := f.Learn(bare, noisyStars(t, 5)); err == nil {
		t.Error("Expected error learning from stars without light curves")
	}
}

// TestGetStatisticOnHoldout tests the aggregated statistic
func TestGetStatisticOnHoldout(t *testing.T) {
	f := trainedFilter(t)
	stat, err := f.GetStatistic(smoothStars(t, 10), noisyStars(t, 10), 0)
	if err != nil {
		t.Fatalf("GetStatistic failed: %v", err)
	}
	if stat.Precision < 0.9 || stat.TruePositiveRate < 0.9 {
		t.Errorf("Expected strong holdout statistic, got %+v", stat)
	}
}

// TestTrainingCoordsCached tests the table cache after learning
func TestTrainingCoordsCached(t *testing.T) {
	f := trainedFilter(t)
	pos, neg := f.TrainingCoords()
	if pos == nil || neg == nil {
		t.Fatal("Expected cached training tables after Learn")
	}
	if pos.Len() != 20 || neg.Len() != 20 {
		t.Errorf("Expected 20 rows per class, got %d and %d", pos.Len(), neg.Len())
	}
	if pos.Dim() != 1 {
		t.Errorf("Expected one feature column, got %d", pos.Dim())
	}
}
