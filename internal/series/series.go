// Package series provides the numeric reductions shared by light curve
// descriptors: piecewise aggregate approximation, equidistant resampling,
// Abbe value, variograms and magnitude histograms.
package series

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"lcsweep/internal/errors"
)

// MinBins is the lower clamp applied when a days-per-bin rate yields too
// few windows.
const MinBins = 5

const normEps = 1e-6

// PAA performs piecewise aggregate approximation, reducing the series x to
// bins discrete levels. It returns the reduced series together with the
// (start, end) index pairs of the original data covered by each level.
func PAA(x []float64, bins int) ([]float64, [][2]int) {
	n := len(x)
	if bins <= 0 || n == 0 {
		return nil, nil
	}
	if bins > n {
		bins = n
	}

	stepFloat := float64(n) / float64(bins)
	step := int(math.Ceil(stepFloat))

	var approx []float64
	var indices [][2]int
	frameStart := 0
	for i := 0; frameStart <= n-step; i++ {
		frame := x[frameStart : frameStart+step]
		approx = append(approx, nanMean(frame))
		indices = append(indices, [2]int{frameStart, frameStart + step})
		frameStart = int(float64(i+1) * stepFloat)
	}
	return approx, indices
}

// EquiPAA resamples the unevenly sampled series (t, y) onto bins equal time
// windows. Each window with at least one sample contributes the mean time and
// mean value of its members; empty windows are dropped, so the output may be
// shorter than bins. Pairs are sorted by time first.
func EquiPAA(t, y []float64, bins int) ([]float64, []float64, error) {
	if len(t) != len(y) {
		return nil, nil, errors.StarAttribute("time and value series have different lengths")
	}
	n := len(t)
	if n == 0 {
		return nil, nil, nil
	}
	if bins <= 0 {
		bins = n
	}
	if bins > n {
		bins = n
	}

	ts, ys := SortPairs(t, y)

	tmin, tmax := ts[0], ts[n-1]
	halfStep := (tmax - tmin) / float64(bins) / 2
	lo := tmin - halfStep
	width := (tmax + halfStep - lo) / float64(bins)

	outT := make([]float64, 0, bins)
	outY := make([]float64, 0, bins)
	j := 0
	for i := 0; i < bins; i++ {
		hi := lo + width
		var sumT, sumY float64
		count := 0
		for j < n && ts[j] < hi {
			sumT += ts[j]
			sumY += ys[j]
			count++
			j++
		}
		if count > 0 {
			outT = append(outT, sumT/float64(count))
			outY = append(outY, sumY/float64(count))
		}
		lo = hi
	}
	return outT, outY, nil
}

// EquiPAAByRate resamples (t, y) using a days-per-bin rate instead of an
// explicit window count. Rates producing fewer than MinBins windows are
// clamped up with a warning.
func EquiPAAByRate(t, y []float64, daysPerBin float64) ([]float64, []float64, error) {
	return EquiPAA(t, y, ComputeBins(t, daysPerBin))
}

// ComputeBins converts a days-per-bin rate into a window count for the time
// series t, clamped to at least MinBins.
func ComputeBins(t []float64, daysPerBin float64) int {
	if len(t) == 0 || daysPerBin <= 0 {
		return MinBins
	}
	tmin, tmax := minMax(t)
	bins := int(math.Round((tmax - tmin) / daysPerBin))
	if bins < MinBins {
		warnf("too few bins (%d) for %.3f days per bin, clamping to %d", bins, daysPerBin, MinBins)
		bins = MinBins
	}
	if bins > len(t) {
		bins = len(t)
	}
	return bins
}

// RepairMissing fills leading NaNs with the first finite value, trailing NaNs
// with the last finite value, and drops rows whose interior value is NaN.
// Both slices are returned as fresh copies.
func RepairMissing(t, y []float64) ([]float64, []float64) {
	n := len(y)
	tt := append([]float64(nil), t...)
	yy := append([]float64(nil), y...)

	first, last := -1, -1
	for i, v := range yy {
		if !math.IsNaN(v) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil, nil
	}
	for i := 0; i < first; i++ {
		yy[i] = yy[first]
	}
	for i := last + 1; i < n; i++ {
		yy[i] = yy[last]
	}

	outT := tt[:0]
	outY := yy[:0]
	for i := range yy {
		if math.IsNaN(yy[i]) {
			continue
		}
		outT = append(outT, tt[i])
		outY = append(outY, yy[i])
	}
	return outT, outY
}

// Normalize z-normalizes the series (zero mean, unit standard deviation).
// Series with near-zero spread come back as all zeros.
func Normalize(x []float64) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	mean := nanMean(x)
	std := nanStd(x)
	if std < normEps {
		return out
	}
	for i, v := range x {
		out[i] = (v - mean) / std
	}
	return out
}

// Abbe computes the Abbe value of x against the original sample dimension n.
// NaN entries are dropped first. Values near 1 indicate white-noise-like
// series, values near 0 smooth ones.
func Abbe(x []float64, n int) float64 {
	clean := dropNaN(x)
	if len(clean) < 2 || n < 2 {
		return math.NaN()
	}

	mean := nanMean(clean)
	var sumDiff, sumDev float64
	for i, v := range clean {
		if i > 0 {
			d := v - clean[i-1]
			sumDiff += d * d
		}
		dev := v - mean
		sumDev += dev * dev
	}
	if sumDev == 0 {
		return math.NaN()
	}
	return float64(n) / (2 * float64(n-1)) * sumDiff / sumDev
}

// Variogram aggregates squared value differences by time lag. Both input
// series are reduced to bins levels, all ordered pairs contribute
// (|t_i - t_j|, (y_i - y_j)^2), and the pair set is re-aggregated to bins
// lag windows. With logScale both axes come back in log10.
func Variogram(t, y []float64, bins int, logScale bool) ([]float64, []float64) {
	if bins <= 0 {
		bins = 20
	}
	tp, _ := PAA(t, bins)
	yp, _ := PAA(y, bins)

	var lags, vals []float64
	for i := range tp {
		if math.IsNaN(tp[i]) || math.IsNaN(yp[i]) {
			continue
		}
		for j := range tp {
			if i == j || math.IsNaN(tp[j]) || math.IsNaN(yp[j]) {
				continue
			}
			lags = append(lags, math.Abs(tp[i]-tp[j]))
			d := yp[i] - yp[j]
			vals = append(vals, d*d)
		}
	}
	if len(lags) == 0 {
		return nil, nil
	}

	lags, vals = SortPairs(lags, vals)
	lags, _ = PAA(lags, bins)
	vals, _ = PAA(vals, bins)

	if logScale {
		for i := range lags {
			lags[i] = math.Log10(lags[i])
			vals[i] = math.Log10(vals[i])
		}
	}
	return lags, vals
}

// Histogram computes the value distribution of the magnitude series over a
// fixed bin count. The magnitudes are equidistantly resampled first to remove
// sampling bias, optionally mean-centred and optionally z-normalized.
// It returns the counts and the bin edges (len(edges) == bins+1).
func Histogram(t, y []float64, bins int, centred, normed bool) ([]float64, []float64, error) {
	if bins <= 0 {
		warnf("histogram bin count not specified, using default of 10")
		bins = 10
	}

	_, vals, err := EquiPAA(t, y, len(t))
	if err != nil {
		return nil, nil, err
	}
	vals = dropNaN(vals)
	if len(vals) == 0 {
		return nil, nil, errors.StarAttribute("no finite values to build a histogram from")
	}
	if centred {
		mean := nanMean(vals)
		for i := range vals {
			vals[i] -= mean
		}
	}

	lo, hi := minMax(vals)
	if hi == lo {
		hi = lo + 1
	}
	edges := make([]float64, bins+1)
	for i := range edges {
		edges[i] = lo + (hi-lo)*float64(i)/float64(bins)
	}

	counts := make([]float64, bins)
	width := (hi - lo) / float64(bins)
	for _, v := range vals {
		idx := int((v - lo) / width)
		if idx == bins {
			idx = bins - 1 // top edge is inclusive
		}
		if idx >= 0 && idx < bins {
			counts[idx]++
		}
	}

	if normed {
		counts = Normalize(counts)
	}
	return counts, edges, nil
}

// SortPairs sorts the two slices as pairs according to the first one and
// returns sorted copies.
func SortPairs(x, y []float64) ([]float64, []float64) {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	xs := make([]float64, len(x))
	ys := make([]float64, len(y))
	for i, j := range idx {
		xs[i] = x[j]
		ys[i] = y[j]
	}
	return xs, ys
}

// Skewness computes the population skewness g1 = m3 / m2^(3/2).
func Skewness(x []float64) float64 {
	clean := dropNaN(x)
	if len(clean) < 3 {
		return math.NaN()
	}
	mean := nanMean(clean)
	var m2, m3 float64
	for _, v := range clean {
		d := v - mean
		m2 += d * d
		m3 += d * d * d
	}
	n := float64(len(clean))
	m2 /= n
	m3 /= n
	if m2 == 0 {
		return math.NaN()
	}
	return m3 / math.Pow(m2, 1.5)
}

// Kurtosis computes the population excess kurtosis g2 = m4 / m2^2 - 3.
func Kurtosis(x []float64) float64 {
	clean := dropNaN(x)
	if len(clean) < 4 {
		return math.NaN()
	}
	mean := nanMean(clean)
	var m2, m4 float64
	for _, v := range clean {
		d := v - mean
		m2 += d * d
		m4 += d * d * d * d
	}
	n := float64(len(clean))
	m2 /= n
	m4 /= n
	if m2 == 0 {
		return math.NaN()
	}
	return m4/(m2*m2) - 3
}

// Mean returns the arithmetic mean, NaN for an empty slice.
func Mean(x []float64) float64 {
	m, err := stats.Mean(x)
	if err != nil {
		return math.NaN()
	}
	return m
}

// Std returns the population standard deviation, NaN for an empty slice.
func Std(x []float64) float64 {
	s, err := stats.StandardDeviation(x)
	if err != nil {
		return math.NaN()
	}
	return s
}

func dropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func nanMean(x []float64) float64 {
	var sum float64
	count := 0
	for _, v := range x {
		if !math.IsNaN(v) {
			sum += v
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

func nanStd(x []float64) float64 {
	mean := nanMean(x)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	var sum float64
	count := 0
	for _, v := range x {
		if !math.IsNaN(v) {
			d := v - mean
			sum += d * d
			count++
		}
	}
	if count == 0 {
		return math.NaN()
	}
	return math.Sqrt(sum / float64(count))
}

func minMax(x []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
