// Package descriptors provides the built-in feature extractors: intrinsic
// ones computed from a single star and comparative ones measuring
// dissimilarity to a set of template stars.
package descriptors

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"lcsweep/domain/star"
	"lcsweep/internal/errors"
	"lcsweep/internal/series"
)

// AbbeValue extracts the Abbe value of a star's light curve. With Bins > 0
// the curve is equidistantly resampled first; otherwise the raw magnitude
// series is used.
type AbbeValue struct {
	Bins int
}

func (d *AbbeValue) Name() string     { return "AbbeValueDescr" }
func (d *AbbeValue) Labels() []string { return []string{"Abbe value"} }

func (d *AbbeValue) Coords(s *star.Star) ([]float64, error) {
	lc := s.LightCurve()
	if lc == nil {
		return []float64{math.NaN()}, nil
	}
	if d.Bins > 0 {
		v, err := lc.Abbe(d.Bins)
		if err != nil {
			return nil, err
		}
		return []float64{v}, nil
	}
	return []float64{series.Abbe(lc.Mags, lc.Len())}, nil
}

// Skewness extracts the population skewness of the magnitude series,
// optionally resampled to Bins windows and optionally as an absolute value.
type Skewness struct {
	Bins     int
	Absolute bool
}

func (d *Skewness) Name() string     { return "SkewnessDescr" }
func (d *Skewness) Labels() []string { return []string{"Skewness"} }

func (d *Skewness) Coords(s *star.Star) ([]float64, error) {
	mags, err := resampledMags(s, d.Bins)
	if err != nil {
		return nil, err
	}
	if mags == nil {
		return []float64{math.NaN()}, nil
	}
	v := series.Skewness(mags)
	if d.Absolute {
		v = math.Abs(v)
	}
	return []float64{v}, nil
}

// Kurtosis extracts the population excess kurtosis of the magnitude series.
type Kurtosis struct {
	Bins     int
	Absolute bool
}

func (d *Kurtosis) Name() string     { return "KurtosisDescr" }
func (d *Kurtosis) Labels() []string { return []string{"Kurtosis"} }

func (d *Kurtosis) Coords(s *star.Star) ([]float64, error) {
	mags, err := resampledMags(s, d.Bins)
	if err != nil {
		return nil, err
	}
	if mags == nil {
		return []float64{math.NaN()}, nil
	}
	v := series.Kurtosis(mags)
	if d.Absolute {
		v = math.Abs(v)
	}
	return []float64{v}, nil
}

func resampledMags(s *star.Star, bins int) ([]float64, error) {
	lc := s.LightCurve()
	if lc == nil {
		return nil, nil
	}
	if bins <= 0 {
		return lc.Mags, nil
	}
	_, mags, err := lc.Resample(bins)
	return mags, err
}

// VariogramSlope extracts the slope of the log-log variogram fitted by
// least squares.
type VariogramSlope struct {
	DaysPerBin float64
	Absolute   bool
}

func (d *VariogramSlope) Name() string     { return "VariogramSlopeDescr" }
func (d *VariogramSlope) Labels() []string { return []string{"Variogram slope"} }

func (d *VariogramSlope) Coords(s *star.Star) ([]float64, error) {
	lc := s.LightCurve()
	if lc == nil {
		return []float64{math.NaN()}, nil
	}
	bins := series.ComputeBins(lc.Times, d.DaysPerBin)
	lags, vals := lc.Variogram(bins, true)

	// log10 of a zero lag or value is not finite, keep only usable pairs
	var xs, ys []float64
	for i := range lags {
		if math.IsInf(lags[i], 0) || math.IsNaN(lags[i]) ||
			math.IsInf(vals[i], 0) || math.IsNaN(vals[i]) {
			continue
		}
		xs = append(xs, lags[i])
		ys = append(ys, vals[i])
	}
	if len(xs) < 2 {
		return []float64{math.NaN()}, nil
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	if d.Absolute {
		slope = math.Abs(slope)
	}
	return []float64{slope}, nil
}

// ColorIndex extracts magnitude differences from the star's More
// attributes: one coordinate per (magA, magB) pair, each magB - magA.
// Missing magnitudes yield NaN, or zero when PassNotFound is set so the
// star survives NaN-row dropping.
type ColorIndex struct {
	Colors       [][2]string
	PassNotFound bool
}

func (d *ColorIndex) Name() string { return "ColorIndexDescr" }

func (d *ColorIndex) Labels() []string {
	labels := make([]string, len(d.Colors))
	for i, c := range d.Colors {
		labels[i] = c[1] + "-" + c[0]
	}
	return labels
}

func (d *ColorIndex) Coords(s *star.Star) ([]float64, error) {
	if len(d.Colors) == 0 {
		return nil, errors.QueryInput("color index needs at least one magnitude pair")
	}
	coords := make([]float64, len(d.Colors))
	for i, c := range d.Colors {
		magA, okA := s.MoreFloat(c[0])
		magB, okB := s.MoreFloat(c[1])
		if !okA || !okB {
			if d.PassNotFound {
				coords[i] = 0
			} else {
				coords[i] = math.NaN()
			}
			continue
		}
		coords[i] = magB - magA
	}
	return coords, nil
}

// Position extracts the star's celestial position in degrees, (NaN, NaN)
// when no coordinates are attached.
type Position struct{}

func (d *Position) Name() string     { return "PositionDescr" }
func (d *Position) Labels() []string { return []string{"Right ascension", "Declination"} }

func (d *Position) Coords(s *star.Star) ([]float64, error) {
	if s.Coo == nil {
		return []float64{math.NaN(), math.NaN()}, nil
	}
	return []float64{s.Coo.RA, s.Coo.Dec}, nil
}

// Property extracts raw numeric attributes from the star's More map.
type Property struct {
	Attributes []string
}

func (d *Property) Name() string     { return "PropertyDescr" }
func (d *Property) Labels() []string { return append([]string(nil), d.Attributes...) }

func (d *Property) Coords(s *star.Star) ([]float64, error) {
	if len(d.Attributes) == 0 {
		return nil, errors.QueryInput("property descriptor needs at least one attribute name")
	}
	coords := make([]float64, len(d.Attributes))
	for i, name := range d.Attributes {
		v, ok := s.MoreFloat(name)
		if !ok {
			v = math.NaN()
		}
		coords[i] = v
	}
	return coords, nil
}

// Curve extracts the equidistantly resampled magnitude vector itself,
// range-normalized and mean-centred. With Height > 0 the values are scaled
// to that integer range instead of the unit one.
type Curve struct {
	Bins   int
	Height float64
}

func (d *Curve) Name() string { return "CurveDescr" }

func (d *Curve) Labels() []string {
	labels := make([]string, d.Bins)
	for i := range labels {
		labels[i] = fmt.Sprintf("Light curve point %d", i+1)
	}
	return labels
}

func (d *Curve) Coords(s *star.Star) ([]float64, error) {
	if d.Bins <= 0 {
		return nil, errors.QueryInput("curve descriptor needs a positive bin count")
	}
	lc := s.LightCurve()
	if lc == nil {
		out := make([]float64, d.Bins)
		for i := range out {
			out[i] = math.NaN()
		}
		return out, nil
	}

	_, mags, err := lc.Resample(lc.Len())
	if err != nil {
		return nil, err
	}
	if len(mags) > d.Bins {
		mags, _ = series.PAA(mags, d.Bins)
	} else {
		mags, _ = series.PAA(lc.Mags, d.Bins)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range mags {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	out := make([]float64, len(mags))
	for i, v := range mags {
		if d.Height > 0 {
			out[i] = math.Round(d.Height * v / span)
		} else {
			out[i] = v / span
		}
	}
	mean := series.Mean(out)
	for i := range out {
		out[i] -= mean
	}
	// pad so the dimension stays stable when the curve is shorter than Bins
	for len(out) < d.Bins {
		out = append(out, math.NaN())
	}
	return out, nil
}
