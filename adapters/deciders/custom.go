package deciders

import (
	"math"

	"lcsweep/internal/errors"
	"lcsweep/ports"
)

// Box is a per-dimension half-open interval. A nil bound is unbounded.
type Box struct {
	Lower *float64
	Upper *float64
}

// Contains reports whether v lies within the box. NaN never does.
func (b Box) Contains(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	if b.Lower != nil && v < *b.Lower {
		return false
	}
	if b.Upper != nil && v >= *b.Upper {
		return false
	}
	return true
}

// Custom is a rule-based decider: a row passes iff every coordinate lies in
// its box. Learn only validates that the training data matches the boxes'
// dimensionality.
type Custom struct {
	Thresh float64
	Boxes  []Box

	learned bool
}

func (d *Custom) Name() string { return "CustomDecider" }

func (d *Custom) Threshold() float64 {
	if d.Thresh > 0 {
		return d.Thresh
	}
	return ports.DefaultThreshold
}

func (d *Custom) Learn(positives, negatives [][]float64) error {
	if len(d.Boxes) == 0 {
		return errors.QueryInput("custom decider needs at least one box")
	}
	dim, err := validateTraining(positives, negatives)
	if err != nil {
		return err
	}
	if dim != len(d.Boxes) {
		return errors.QueryInputf("custom decider has %d boxes but samples have %d coordinates", len(d.Boxes), dim)
	}
	d.learned = true
	return nil
}

func (d *Custom) Evaluate(X [][]float64) ([]float64, error) {
	if !d.learned {
		return nil, errors.Learning("decider has not been trained")
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != len(d.Boxes) {
			return nil, errors.QueryInputf("sample row has %d coordinates, decider has %d boxes", len(row), len(d.Boxes))
		}
		pass := 1.0
		for j, box := range d.Boxes {
			if !box.Contains(row[j]) {
				pass = 0
				break
			}
		}
		out[i] = pass
	}
	return out, nil
}
