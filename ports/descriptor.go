package ports

import (
	"lcsweep/domain/features"
	"lcsweep/domain/star"
)

// Descriptor maps a star to a fixed-length feature vector. Missing inputs
// yield NaN coordinates rather than errors; the filter layer drops NaN rows
// before training.
type Descriptor interface {
	// Name identifies the descriptor for registries, tuning files and
	// ledger columns.
	Name() string

	// Labels names each output coordinate, in order. Its length is the
	// descriptor's output dimension.
	Labels() []string

	// Coords computes the feature vector of one star.
	Coords(s *star.Star) ([]float64, error)
}

// SpaceCoordinates applies a descriptor to a batch of stars and collects
// the results in a labeled table. NaN rows are kept; callers decide when
// to drop them.
func SpaceCoordinates(d Descriptor, stars []*star.Star) (*features.Table, error) {
	table := features.NewTable(d.Labels()...)
	for _, s := range stars {
		coords, err := d.Coords(s)
		if err != nil {
			return nil, err
		}
		if err := table.Append(s, coords); err != nil {
			return nil, err
		}
	}
	return table, nil
}
