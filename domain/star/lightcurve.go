package star

import (
	"math"

	"lcsweep/internal/errors"
	"lcsweep/internal/series"
)

// Sentinel magnitude used by several surveys to mark an invalid sample.
const invalidSample = -99.0

const (
	timePrecision = 5
	magPrecision  = 3
)

// Meta carries presentation metadata of a light curve. Zero fields are filled
// with survey-agnostic defaults on construction.
type Meta struct {
	XLabel      string
	XLabelUnit  string
	YLabel      string
	YLabelUnit  string
	Color       string
	Origin      string
	InvertYAxis bool
}

// DefaultMeta returns the metadata applied when a curve arrives without any.
func DefaultMeta() Meta {
	return Meta{
		XLabel:      "HJD",
		XLabelUnit:  "days",
		YLabel:      "Magnitudes",
		YLabelUnit:  "mag",
		Color:       "N/A",
		InvertYAxis: true,
	}
}

func (m Meta) withDefaults() Meta {
	def := DefaultMeta()
	if m.XLabel == "" {
		m.XLabel = def.XLabel
	}
	if m.XLabelUnit == "" {
		m.XLabelUnit = def.XLabelUnit
	}
	if m.YLabel == "" {
		m.YLabel = def.YLabel
	}
	if m.YLabelUnit == "" {
		m.YLabelUnit = def.YLabelUnit
	}
	if m.Color == "" {
		m.Color = def.Color
	}
	return m
}

// LightCurve holds a cleaned photometric time series. Times, Mags and Errs
// are always the same length; samples carrying a sentinel or NaN time or
// magnitude were dropped on construction.
type LightCurve struct {
	Times []float64
	Mags  []float64
	Errs  []float64
	Meta  Meta
}

// NewLightCurve builds a light curve from raw parallel slices. Errs may be
// nil, in which case zero uncertainties are assumed. Samples whose time or
// magnitude is NaN or the -99 survey sentinel are discarded, times are
// rounded to 5 decimal places and magnitudes and errors to 3.
func NewLightCurve(times, mags, errs []float64, meta Meta) (*LightCurve, error) {
	if len(times) != len(mags) {
		return nil, errors.StarAttribute("time and magnitude series have different lengths")
	}
	if errs != nil && len(errs) != len(times) {
		return nil, errors.StarAttribute("uncertainty series has a different length")
	}

	lc := &LightCurve{Meta: meta.withDefaults()}
	for i := range times {
		if banned(times[i]) || banned(mags[i]) {
			continue
		}
		e := 0.0
		if errs != nil && !banned(errs[i]) {
			e = errs[i]
		}
		lc.Times = append(lc.Times, roundTo(times[i], timePrecision))
		lc.Mags = append(lc.Mags, roundTo(mags[i], magPrecision))
		lc.Errs = append(lc.Errs, roundTo(e, magPrecision))
	}
	return lc, nil
}

func banned(v float64) bool {
	return math.IsNaN(v) || v == invalidSample
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

// Len returns the number of samples.
func (lc *LightCurve) Len() int {
	return len(lc.Times)
}

// MeanMag returns the mean magnitude.
func (lc *LightCurve) MeanMag() float64 {
	return series.Mean(lc.Mags)
}

// StdMag returns the magnitude standard deviation.
func (lc *LightCurve) StdMag() float64 {
	return series.Std(lc.Mags)
}

// Abbe computes the Abbe value of the curve after equidistant resampling to
// bins windows. The original sample count is kept as the dimension so that
// sparsely resampled curves are not artificially smoothed.
func (lc *LightCurve) Abbe(bins int) (float64, error) {
	_, mags, err := series.EquiPAA(lc.Times, lc.Mags, bins)
	if err != nil {
		return math.NaN(), err
	}
	return series.Abbe(mags, lc.Len()), nil
}

// Variogram computes the log-log variogram of the curve reduced to bins lag
// windows.
func (lc *LightCurve) Variogram(bins int, logScale bool) ([]float64, []float64) {
	return series.Variogram(lc.Times, lc.Mags, bins, logScale)
}

// Histogram computes the magnitude distribution over bins windows, optionally
// mean-centred and z-normalized.
func (lc *LightCurve) Histogram(bins int, centred, normed bool) ([]float64, []float64, error) {
	return series.Histogram(lc.Times, lc.Mags, bins, centred, normed)
}

// Resample returns the curve resampled onto bins equidistant time windows.
func (lc *LightCurve) Resample(bins int) ([]float64, []float64, error) {
	return series.EquiPAA(lc.Times, lc.Mags, bins)
}

// ResampleByRate resamples the curve using a days-per-window rate.
func (lc *LightCurve) ResampleByRate(daysPerBin float64) ([]float64, []float64, error) {
	return series.EquiPAAByRate(lc.Times, lc.Mags, daysPerBin)
}
