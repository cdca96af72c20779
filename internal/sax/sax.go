// Package sax implements Symbolic Aggregate approXimation: series are
// z-normalized, reduced by piecewise aggregation and quantized against
// Gaussian breakpoints into words over a lowercase alphabet. Word
// dissimilarity is the scaled Euclidean letter distance.
package sax

import (
	"fmt"
	"math"

	"lcsweep/internal/errors"
	"lcsweep/internal/series"
)

// Supported alphabet size range.
const (
	MinAlphabetSize = 3
	MaxAlphabetSize = 20
)

// breakpoints holds the standard-normal quantile cut points per alphabet
// size. For size k there are k-1 cut points.
var breakpoints = map[int][]float64{
	3:  {-0.43, 0.43},
	4:  {-0.67, 0, 0.67},
	5:  {-0.84, -0.25, 0.25, 0.84},
	6:  {-0.97, -0.43, 0, 0.43, 0.97},
	7:  {-1.07, -0.57, -0.18, 0.18, 0.57, 1.07},
	8:  {-1.15, -0.67, -0.32, 0, 0.32, 0.67, 1.15},
	9:  {-1.22, -0.76, -0.43, -0.14, 0.14, 0.43, 0.76, 1.22},
	10: {-1.28, -0.84, -0.52, -0.25, 0, 0.25, 0.52, 0.84, 1.28},
	11: {-1.34, -0.91, -0.6, -0.35, -0.11, 0.11, 0.35, 0.6, 0.91, 1.34},
	12: {-1.38, -0.97, -0.67, -0.43, -0.21, 0, 0.21, 0.43, 0.67, 0.97, 1.38},
	13: {-1.43, -1.02, -0.74, -0.5, -0.29, -0.1, 0.1, 0.29, 0.5, 0.74, 1.02, 1.43},
	14: {-1.47, -1.07, -0.79, -0.57, -0.37, -0.18, 0, 0.18, 0.37, 0.57, 0.79, 1.07, 1.47},
	15: {-1.5, -1.11, -0.84, -0.62, -0.43, -0.25, -0.08, 0.08, 0.25, 0.43, 0.62, 0.84, 1.11, 1.5},
	16: {-1.53, -1.15, -0.89, -0.67, -0.49, -0.32, -0.16, 0, 0.16, 0.32, 0.49, 0.67, 0.89, 1.15, 1.53},
	17: {-1.56, -1.19, -0.93, -0.72, -0.54, -0.38, -0.22, -0.07, 0.07, 0.22, 0.38, 0.54, 0.72, 0.93, 1.19, 1.56},
	18: {-1.59, -1.22, -0.97, -0.76, -0.59, -0.43, -0.28, -0.14, 0, 0.14, 0.28, 0.43, 0.59, 0.76, 0.97, 1.22, 1.59},
	19: {-1.62, -1.25, -1, -0.8, -0.63, -0.48, -0.34, -0.2, -0.07, 0.07, 0.2, 0.34, 0.48, 0.63, 0.8, 1, 1.25, 1.62},
	20: {-1.64, -1.28, -1.04, -0.84, -0.67, -0.52, -0.39, -0.25, -0.13, 0, 0.13, 0.25, 0.39, 0.52, 0.67, 0.84, 1.04, 1.28, 1.64},
}

// Encoder turns numeric series into SAX words of a fixed length over a
// fixed alphabet. The zero value is not usable; construct with New.
type Encoder struct {
	wordSize     int
	alphabetSize int
	beta         []float64

	// scalingFactor carries sqrt(n/w) of the last encoded series and is
	// applied by Compare. It can also be set explicitly via SetScaling.
	scalingFactor float64
}

// New builds an encoder producing words of wordSize letters over
// alphabetSize symbols. The alphabet size must lie in
// [MinAlphabetSize, MaxAlphabetSize].
func New(wordSize, alphabetSize int) (*Encoder, error) {
	if alphabetSize < MinAlphabetSize || alphabetSize > MaxAlphabetSize {
		return nil, errors.QueryInputf("alphabet size %d is not supported, must be in [%d, %d]",
			alphabetSize, MinAlphabetSize, MaxAlphabetSize)
	}
	if wordSize < 1 {
		return nil, errors.QueryInputf("word size must be positive, got %d", wordSize)
	}
	return &Encoder{
		wordSize:      wordSize,
		alphabetSize:  alphabetSize,
		beta:          breakpoints[alphabetSize],
		scalingFactor: 1,
	}, nil
}

// WordSize returns the encoder's word length.
func (e *Encoder) WordSize() int { return e.wordSize }

// AlphabetSize returns the encoder's alphabet size.
func (e *Encoder) AlphabetSize() int { return e.alphabetSize }

// Encode z-normalizes x, reduces it to the word length and quantizes each
// level into a letter. It returns the word and the (start, end) index ranges
// each letter covers. Encoding updates the scaling factor used by Compare to
// sqrt(len(x) / wordSize).
func (e *Encoder) Encode(x []float64) (string, [][2]int) {
	paa, indices := series.PAA(series.Normalize(x), e.wordSize)
	e.scalingFactor = math.Sqrt(float64(len(x)) / float64(e.wordSize))
	return e.alphabetize(paa), indices
}

func (e *Encoder) alphabetize(paa []float64) string {
	word := make([]byte, len(paa))
	for i, v := range paa {
		j := 0
		for j < len(e.beta) && v >= e.beta[j] {
			j++
		}
		word[i] = byte('a' + j)
	}
	return string(word)
}

// SetScaling overrides the dissimilarity scaling factor.
func (e *Encoder) SetScaling(f float64) { e.scalingFactor = f }

// Compare returns the scaled dissimilarity of two equal-length words:
// sqrt of the summed squared letter distances times the scaling factor.
func (e *Encoder) Compare(a, b string) (float64, error) {
	if len(a) != len(b) {
		return math.NaN(), errors.QueryInputf("cannot compare words of different lengths (%d vs %d)", len(a), len(b))
	}
	var sum float64
	for i := 0; i < len(a); i++ {
		d, err := e.letterDistance(a[i], b[i])
		if err != nil {
			return math.NaN(), err
		}
		sum += d * d
	}
	return e.scalingFactor * math.Sqrt(sum), nil
}

// letterDistance gives the breakpoint gap between two letters. Adjacent or
// equal letters are at distance zero.
func (e *Encoder) letterDistance(la, lb byte) (float64, error) {
	i, j := int(la-'a'), int(lb-'a')
	if i < 0 || i >= e.alphabetSize || j < 0 || j >= e.alphabetSize {
		return math.NaN(), errors.QueryInputf("letter %q or %q outside alphabet of size %d", la, lb, e.alphabetSize)
	}
	if abs(i-j) <= 1 {
		return 0, nil
	}
	high := max(i, j) - 1
	low := min(i, j)
	return e.beta[high] - e.beta[low], nil
}

// SlidingWindow encodes every window of windowSize samples in x, advancing
// by (1 - overlapFraction) * windowSize samples between windows with a
// minimum step of one sample. The default overlap fraction is 0.01. It
// returns the words and the index range of each window.
func (e *Encoder) SlidingWindow(x []float64, windowSize int, overlapFraction float64) ([]string, [][2]int, error) {
	if windowSize < 1 || windowSize > len(x) {
		return nil, nil, errors.QueryInput(fmt.Sprintf(
			"window of %d samples does not fit a series of %d", windowSize, len(x)))
	}
	if overlapFraction <= 0 {
		overlapFraction = 0.01
	}
	move := int(float64(windowSize) - float64(windowSize)*overlapFraction)
	if move < 1 {
		move = 1
	}

	var words []string
	var spans [][2]int
	for ptr := 0; ptr < len(x)-windowSize+1; ptr += move {
		word, _ := e.Encode(x[ptr : ptr+windowSize])
		words = append(words, word)
		spans = append(spans, [2]int{ptr, ptr + windowSize})
	}
	return words, spans, nil
}

// Distance compares two equal-length words over the given alphabet with an
// explicit scaling factor, without going through a shared encoder.
func Distance(a, b string, alphabetSize int, scaling float64) (float64, error) {
	wordSize := len(a)
	if wordSize == 0 {
		wordSize = 1
	}
	e, err := New(wordSize, alphabetSize)
	if err != nil {
		return math.NaN(), err
	}
	e.SetScaling(scaling)
	return e.Compare(a, b)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
