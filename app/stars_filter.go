// Package app composes descriptors, deciders and connectors into the two
// user-facing workflows: filtering stars and tuning filter parameters.
package app

import (
	"math"

	"lcsweep/adapters/deciders"
	"lcsweep/domain/features"
	"lcsweep/domain/star"
	"lcsweep/internal"
	"lcsweep/internal/errors"
	"lcsweep/ports"
)

// PassMethod selects how per-decider probabilities combine into one verdict.
type PassMethod string

const (
	// PassAll requires every decider to pass: the lowest probability rules.
	PassAll PassMethod = "all"
	// PassMean averages the decider probabilities.
	PassMean PassMethod = "mean"
	// PassOne requires any decider to pass: the highest probability rules.
	PassOne PassMethod = "one"
)

const evalPrecision = 2

// Evaluation is one star's combined verdict.
type Evaluation struct {
	Star        *star.Star
	Probability float64
	Passed      bool
	PerDecider  map[string]bool
	Coords      map[string]float64
}

// StarsFilter extracts features through its descriptors and judges them
// through its deciders. It must be trained before any evaluating call.
// A trained filter is not safe for concurrent use; give each worker its
// own instance.
type StarsFilter struct {
	descriptors []ports.Descriptor
	deciders    []ports.Decider

	learned  bool
	trainPos *features.Table
	trainNeg *features.Table

	log *internal.Logger
}

// NewStarsFilter builds a filter over the given descriptors and deciders.
// Both lists must be non-empty.
func NewStarsFilter(descr []ports.Descriptor, dec []ports.Decider) (*StarsFilter, error) {
	if len(descr) == 0 {
		return nil, errors.QueryInput("stars filter needs at least one descriptor")
	}
	if len(dec) == 0 {
		return nil, errors.QueryInput("stars filter needs at least one decider")
	}
	return &StarsFilter{
		descriptors: descr,
		deciders:    dec,
		log:         internal.DefaultLogger,
	}, nil
}

// Learned reports whether the filter has been trained.
func (f *StarsFilter) Learned() bool { return f.learned }

// Descriptors returns the filter's descriptors in order.
func (f *StarsFilter) Descriptors() []ports.Descriptor { return f.descriptors }

// Deciders returns the filter's deciders in order.
func (f *StarsFilter) Deciders() []ports.Decider { return f.deciders }

// TrainingCoords returns the cached positive and negative feature tables of
// the last Learn call, nil before training.
func (f *StarsFilter) TrainingCoords() (*features.Table, *features.Table) {
	return f.trainPos, f.trainNeg
}

// SpaceCoordinates extracts every descriptor's features for the stars,
// concatenated horizontally, and drops rows containing NaN. The surviving
// rows keep their star association.
func (f *StarsFilter) SpaceCoordinates(stars []*star.Star) (*features.Table, error) {
	tables := make([]*features.Table, len(f.descriptors))
	for i, d := range f.descriptors {
		t, err := ports.SpaceCoordinates(d, stars)
		if err != nil {
			return nil, err
		}
		tables[i] = t
	}
	joined, err := features.Concat(tables...)
	if err != nil {
		return nil, err
	}
	return joined.DropNaNRows(), nil
}

// Learn extracts features for both classes and trains every decider on
// them. Re-training replaces all decider state.
func (f *StarsFilter) Learn(positives, negatives []*star.Star) error {
	pos, err := f.SpaceCoordinates(positives)
	if err != nil {
		return err
	}
	neg, err := f.SpaceCoordinates(negatives)
	if err != nil {
		return err
	}
	if pos.Len() == 0 || neg.Len() == 0 {
		return errors.Learning("no usable feature rows to train on")
	}
	if dropped := len(positives) + len(negatives) - pos.Len() - neg.Len(); dropped > 0 {
		f.log.Warn("[StarsFilter] %d training stars dropped for missing features", dropped)
	}

	for _, d := range f.deciders {
		if err := d.Learn(pos.Values(), neg.Values()); err != nil {
			return err
		}
	}
	f.trainPos = pos
	f.trainNeg = neg
	f.learned = true
	f.log.Info("[StarsFilter] Trained %d deciders on %d positive and %d negative rows",
		len(f.deciders), pos.Len(), neg.Len())
	return nil
}

// Threshold is the mean of the per-decider thresholds.
func (f *StarsFilter) Threshold() float64 {
	var sum float64
	for _, d := range f.deciders {
		sum += d.Threshold()
	}
	return sum / float64(len(f.deciders))
}

// EvaluateStars combines the per-decider probabilities of each star with a
// usable feature row under the given pass method, rounded to two decimals.
// Stars with missing features are absent from the result.
func (f *StarsFilter) EvaluateStars(stars []*star.Star, method PassMethod) ([]Evaluation, error) {
	if !f.learned {
		return nil, errors.Learning("stars filter has not been trained")
	}
	table, err := f.SpaceCoordinates(stars)
	if err != nil {
		return nil, err
	}
	return f.evaluateTable(table, method)
}

func (f *StarsFilter) evaluateTable(table *features.Table, method PassMethod) ([]Evaluation, error) {
	X := table.Values()
	perDecider := make([][]float64, len(f.deciders))
	for i, d := range f.deciders {
		probs, err := d.Evaluate(X)
		if err != nil {
			return nil, err
		}
		perDecider[i] = probs
	}

	threshold := f.Threshold()
	out := make([]Evaluation, table.Len())
	for r := range out {
		combined, err := combine(perDecider, r, method)
		if err != nil {
			return nil, err
		}
		combined = roundTo(combined, evalPrecision)

		verdicts := make(map[string]bool, len(f.deciders))
		for i, d := range f.deciders {
			verdicts[d.Name()] = perDecider[i][r] >= d.Threshold()
		}
		coords := make(map[string]float64, table.Dim())
		for c, label := range table.Labels {
			coords[label] = table.Rows[r].Coords[c]
		}
		out[r] = Evaluation{
			Star:        table.Rows[r].Star,
			Probability: combined,
			Passed:      combined >= threshold,
			PerDecider:  verdicts,
			Coords:      coords,
		}
	}
	return out, nil
}

func combine(perDecider [][]float64, row int, method PassMethod) (float64, error) {
	switch method {
	case PassAll:
		lowest := math.Inf(1)
		for _, probs := range perDecider {
			lowest = math.Min(lowest, probs[row])
		}
		return lowest, nil
	case PassOne:
		highest := math.Inf(-1)
		for _, probs := range perDecider {
			highest = math.Max(highest, probs[row])
		}
		return highest, nil
	case PassMean, "":
		var sum float64
		for _, probs := range perDecider {
			sum += probs[row]
		}
		return sum / float64(len(perDecider)), nil
	}
	return 0, errors.QueryInputf("unrecognized pass method %q", method)
}

// FilterStars returns the subset of stars whose combined probability meets
// the filter threshold under the given pass method.
func (f *StarsFilter) FilterStars(stars []*star.Star, method PassMethod) ([]*star.Star, error) {
	evals, err := f.EvaluateStars(stars, method)
	if err != nil {
		return nil, err
	}
	var passed []*star.Star
	for _, e := range evals {
		if e.Passed {
			passed = append(passed, e.Star)
		}
	}
	return passed, nil
}

// GetStatistic evaluates every decider on the labeled stars and returns the
// arithmetic mean of the per-decider statistics.
func (f *StarsFilter) GetStatistic(positives, negatives []*star.Star, threshold float64) (ports.Statistic, error) {
	if !f.learned {
		return ports.Statistic{}, errors.Learning("stars filter has not been trained")
	}
	pos, err := f.SpaceCoordinates(positives)
	if err != nil {
		return ports.Statistic{}, err
	}
	neg, err := f.SpaceCoordinates(negatives)
	if err != nil {
		return ports.Statistic{}, err
	}

	var sums [5]float64
	for _, d := range f.deciders {
		st, err := deciders.GetStatistic(d, pos.Values(), neg.Values(), threshold)
		if err != nil {
			return ports.Statistic{}, err
		}
		for i, v := range st.Values() {
			sums[i] += v
		}
	}
	n := float64(len(f.deciders))
	return ports.Statistic{
		Precision:         roundTo(sums[0]/n, 3),
		TruePositiveRate:  roundTo(sums[1]/n, 3),
		TrueNegativeRate:  roundTo(sums[2]/n, 3),
		FalsePositiveRate: roundTo(sums[3]/n, 3),
		FalseNegativeRate: roundTo(sums[4]/n, 3),
	}, nil
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
