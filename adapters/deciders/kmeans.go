package deciders

import (
	"math"
	"math/rand"

	"lcsweep/internal/errors"
)

// KMeans is an unsupervised clusterer for exploratory inspection of feature
// spaces. It is not a Decider and takes no part in the search pipeline.
type KMeans struct {
	K        int
	MaxIter  int
	Seed     int64

	dim       int
	centroids [][]float64
}

// Fit clusters the samples into K groups with Lloyd's algorithm. Centroids
// are seeded from random samples using the configured seed.
func (m *KMeans) Fit(X [][]float64) error {
	if len(X) == 0 {
		return errors.Learning("cannot cluster an empty sample")
	}
	k := m.K
	if k <= 0 {
		k = 2
	}
	if k > len(X) {
		k = len(X)
	}
	maxIter := m.MaxIter
	if maxIter <= 0 {
		maxIter = 300
	}
	m.dim = len(X[0])
	for _, row := range X {
		if len(row) != m.dim {
			return errors.Learning("sample rows have inconsistent dimensions")
		}
	}

	rng := rand.New(rand.NewSource(m.Seed))
	m.centroids = make([][]float64, k)
	for i, idx := range rng.Perm(len(X))[:k] {
		m.centroids[i] = append([]float64(nil), X[idx]...)
	}

	assign := make([]int, len(X))
	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, row := range X {
			c := m.nearest(row)
			if c != assign[i] {
				assign[i] = c
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		sums := make([][]float64, k)
		for c := range sums {
			sums[c] = make([]float64, m.dim)
		}
		for i, row := range X {
			c := assign[i]
			counts[c]++
			for j, v := range row {
				sums[c][j] += v
			}
		}
		for c := range m.centroids {
			if counts[c] == 0 {
				continue
			}
			for j := range m.centroids[c] {
				m.centroids[c][j] = sums[c][j] / float64(counts[c])
			}
		}
	}
	return nil
}

// Predict returns the index of the closest cluster per sample.
func (m *KMeans) Predict(X [][]float64) ([]int, error) {
	if m.centroids == nil {
		return nil, errors.Learning("clusterer has not been fitted")
	}
	out := make([]int, len(X))
	for i, row := range X {
		if len(row) != m.dim {
			return nil, errors.Learning("sample rows have inconsistent dimensions")
		}
		out[i] = m.nearest(row)
	}
	return out, nil
}

func (m *KMeans) nearest(row []float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range m.centroids {
		var dist float64
		for j, v := range row {
			d := v - centroid[j]
			dist += d * d
		}
		if dist < bestDist {
			best = c
			bestDist = dist
		}
	}
	return best
}
