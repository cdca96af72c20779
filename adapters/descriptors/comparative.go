package descriptors

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"lcsweep/domain/star"
	"lcsweep/internal/errors"
	"lcsweep/internal/sax"
	"lcsweep/internal/series"
)

// Reduction collapses a vector of per-template dissimilarities into one
// feature value.
type Reduction struct {
	kind     string
	count    int
	fraction float64
}

// ParseReduction accepts "average", "closest", "best<K>" with integer K, or
// "best<F>" with F strictly between 0 and 1 (fraction of templates).
// Ambiguous tokens such as "best1.0" are rejected.
func ParseReduction(token string) (Reduction, error) {
	switch token {
	case "", "average":
		return Reduction{kind: "average"}, nil
	case "closest":
		return Reduction{kind: "closest"}, nil
	}
	if rest, ok := strings.CutPrefix(token, "best"); ok {
		if k, err := strconv.Atoi(rest); err == nil && k >= 1 {
			return Reduction{kind: "bestN", count: k}, nil
		}
		if f, err := strconv.ParseFloat(rest, 64); err == nil && f > 0 && f < 1 {
			return Reduction{kind: "bestF", fraction: f}, nil
		}
		return Reduction{}, errors.QueryInputf(
			"cannot resolve %q: 'best' must be followed by an integer count or a fraction in (0, 1)", token)
	}
	return Reduction{}, errors.QueryInputf("unrecognized reduction method %q", token)
}

// Apply reduces the dissimilarity vector. NaN entries are skipped; an
// all-NaN vector reduces to NaN.
func (r Reduction) Apply(coords []float64) float64 {
	clean := make([]float64, 0, len(coords))
	for _, v := range coords {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return math.NaN()
	}

	switch r.kind {
	case "closest":
		best := clean[0]
		for _, v := range clean[1:] {
			best = math.Min(best, v)
		}
		return best
	case "bestN", "bestF":
		n := r.count
		if r.kind == "bestF" {
			n = int(math.Ceil(r.fraction * float64(len(clean))))
		}
		if n > len(clean) {
			n = len(clean)
		}
		sort.Float64s(clean)
		return series.Mean(clean[:n])
	default:
		return series.Mean(clean)
	}
}

// wordFunc turns a star's light curve into a SAX word.
type wordFunc func(s *star.Star) (string, error)

// comparative is the shared scaffold of the shape descriptors: it owns the
// template set, compares words and reduces the per-template dissimilarities.
type comparative struct {
	compStars    []*star.Star
	alphabetSize int
	slide        bool
	overlay      float64
	reduce       Reduction
	word         wordFunc
}

func newComparative(compStars []*star.Star, alphabetSize int, slide bool, overlay float64, method string) (comparative, error) {
	if len(compStars) == 0 {
		return comparative{}, errors.QueryInput("comparative descriptor needs a non-empty template set")
	}
	if alphabetSize < sax.MinAlphabetSize || alphabetSize > sax.MaxAlphabetSize {
		return comparative{}, errors.QueryInputf("alphabet size %d is not supported, must be in [%d, %d]",
			alphabetSize, sax.MinAlphabetSize, sax.MaxAlphabetSize)
	}
	reduce, err := ParseReduction(method)
	if err != nil {
		return comparative{}, err
	}
	return comparative{
		compStars:    compStars,
		alphabetSize: alphabetSize,
		slide:        slide,
		overlay:      overlay,
		reduce:       reduce,
	}, nil
}

func (c *comparative) coords(s *star.Star) ([]float64, error) {
	if s.LightCurve() == nil {
		return []float64{math.NaN()}, nil
	}
	word, err := c.word(s)
	if err != nil {
		return nil, err
	}

	dissim := make([]float64, len(c.compStars))
	for i, tmpl := range c.compStars {
		if tmpl.LightCurve() == nil {
			dissim[i] = math.NaN()
			continue
		}
		tmplWord, err := c.word(tmpl)
		if err != nil {
			return nil, err
		}
		curveLen := max(s.LightCurve().Len(), tmpl.LightCurve().Len())
		d, err := c.dissimilarity(word, tmplWord, curveLen)
		if err != nil {
			return nil, err
		}
		dissim[i] = d
	}
	return []float64{c.reduce.Apply(dissim)}, nil
}

// dissimilarity slides the shorter word across the longer one and takes the
// minimum scaled distance. Without slide only the aligned prefix is
// compared.
func (c *comparative) dissimilarity(a, b string, curveLen int) (float64, error) {
	short, long := a, b
	if len(long) < len(short) {
		short, long = long, short
	}
	if len(short) == 0 {
		return math.NaN(), errors.QueryInput("cannot compare empty words")
	}

	step := 1
	if c.slide && c.overlay > 0 && c.overlay < 1 {
		step = int((1 - c.overlay) * float64(len(short)))
		if step < 1 {
			step = 1
		}
	}
	scaling := math.Sqrt(float64(curveLen) / float64(len(short)))

	best := math.Inf(1)
	for shift := 0; shift+len(short) <= len(long); shift += step {
		d, err := sax.Distance(short, long[shift:shift+len(short)], c.alphabetSize, scaling)
		if err != nil {
			return math.NaN(), err
		}
		best = math.Min(best, d)
		if !c.slide {
			break
		}
	}
	return best, nil
}

// CurvesShape measures the SAX dissimilarity of the raw magnitude series
// from a set of template stars. The word length adapts to each curve's time
// span through the days-per-bin rate, so two compared stars may produce
// words of different lengths.
type CurvesShape struct {
	comparative
	DaysPerBin float64
}

// NewCurvesShape builds the descriptor. Slide should be enabled when the
// template curves span different time ranges than the inspected ones.
func NewCurvesShape(compStars []*star.Star, daysPerBin float64, alphabetSize int, slide bool, overlay float64, method string) (*CurvesShape, error) {
	core, err := newComparative(compStars, alphabetSize, slide, overlay, method)
	if err != nil {
		return nil, err
	}
	d := &CurvesShape{comparative: core, DaysPerBin: daysPerBin}
	d.comparative.word = func(s *star.Star) (string, error) {
		lc := s.LightCurve()
		wordSize := series.ComputeBins(lc.Times, d.DaysPerBin)
		enc, err := sax.New(wordSize, d.alphabetSize)
		if err != nil {
			return "", err
		}
		word, _ := enc.Encode(lc.Mags)
		return word, nil
	}
	return d, nil
}

func (d *CurvesShape) Name() string { return "CurvesShapeDescr" }
func (d *CurvesShape) Labels() []string {
	return []string{"Dissimilarity of the curve from the template"}
}
func (d *CurvesShape) Coords(s *star.Star) ([]float64, error) { return d.coords(s) }

// HistShape measures the SAX dissimilarity of the magnitude histogram from
// a set of template stars.
type HistShape struct {
	comparative
	Bins int
}

func NewHistShape(compStars []*star.Star, bins, alphabetSize int, slide bool, overlay float64, method string) (*HistShape, error) {
	core, err := newComparative(compStars, alphabetSize, slide, overlay, method)
	if err != nil {
		return nil, err
	}
	d := &HistShape{comparative: core, Bins: bins}
	d.comparative.word = func(s *star.Star) (string, error) {
		hist, _, err := s.LightCurve().Histogram(d.Bins, false, true)
		if err != nil {
			return "", err
		}
		enc, err := sax.New(d.Bins, d.alphabetSize)
		if err != nil {
			return "", err
		}
		word, _ := enc.Encode(hist)
		return word, nil
	}
	return d, nil
}

func (d *HistShape) Name() string { return "HistShapeDescr" }
func (d *HistShape) Labels() []string {
	return []string{"Dissimilarity of the light curves histogram from the template"}
}
func (d *HistShape) Coords(s *star.Star) ([]float64, error) { return d.coords(s) }

// VariogramShape measures the SAX dissimilarity of the log-log variogram
// from a set of template stars.
type VariogramShape struct {
	comparative
	Bins int
}

func NewVariogramShape(compStars []*star.Star, bins, alphabetSize int, slide bool, overlay float64, method string) (*VariogramShape, error) {
	core, err := newComparative(compStars, alphabetSize, slide, overlay, method)
	if err != nil {
		return nil, err
	}
	d := &VariogramShape{comparative: core, Bins: bins}
	d.comparative.word = func(s *star.Star) (string, error) {
		_, vals := s.LightCurve().Variogram(d.Bins, true)
		enc, err := sax.New(d.Bins, d.alphabetSize)
		if err != nil {
			return "", err
		}
		word, _ := enc.Encode(vals)
		return word, nil
	}
	return d, nil
}

func (d *VariogramShape) Name() string { return "VariogramShapeDescr" }
func (d *VariogramShape) Labels() []string {
	return []string{"Dissimilarity of the light curve's variogram from the template"}
}
func (d *VariogramShape) Coords(s *star.Star) ([]float64, error) { return d.coords(s) }
