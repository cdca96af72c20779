// Package deciders provides the built-in binary classifiers used to judge
// star feature vectors: discriminant analysis, naive Bayes, a CART-style
// tree, a small feed-forward neural net, a rule-based box decider and an
// exploratory k-means clusterer.
package deciders

import (
	"math"

	"lcsweep/internal/errors"
	"lcsweep/ports"
)

const statPrecision = 3

// validateTraining checks both classes are non-empty and dimensionally
// consistent, returning the feature dimension.
func validateTraining(positives, negatives [][]float64) (int, error) {
	if len(positives) == 0 || len(negatives) == 0 {
		return 0, errors.Learning("cannot train on an empty class sample")
	}
	dim := len(positives[0])
	if dim == 0 {
		return 0, errors.Learning("cannot train on zero-dimensional samples")
	}
	for _, row := range positives {
		if len(row) != dim {
			return 0, errors.Learning("positive sample rows have inconsistent dimensions")
		}
	}
	for _, row := range negatives {
		if len(row) != dim {
			return 0, errors.Learning("negative sample rows differ in dimension from positives")
		}
	}
	return dim, nil
}

// Filter applies the decider's probability output against a threshold.
// Pass threshold <= 0 to use the decider's own.
func Filter(d ports.Decider, X [][]float64, threshold float64) ([]bool, error) {
	if threshold <= 0 {
		threshold = d.Threshold()
	}
	probs, err := d.Evaluate(X)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(probs))
	for i, p := range probs {
		out[i] = p >= threshold
	}
	return out, nil
}

// GetStatistic evaluates the decider on labeled samples and tabulates the
// classification rates, rounded to three decimals. Precision is zero by
// convention when nothing was predicted positive.
func GetStatistic(d ports.Decider, positives, negatives [][]float64, threshold float64) (ports.Statistic, error) {
	posPass, err := Filter(d, positives, threshold)
	if err != nil {
		return ports.Statistic{}, err
	}
	negPass, err := Filter(d, negatives, threshold)
	if err != nil {
		return ports.Statistic{}, err
	}

	var tp, fn, fp, tn float64
	for _, pass := range posPass {
		if pass {
			tp++
		} else {
			fn++
		}
	}
	for _, pass := range negPass {
		if pass {
			fp++
		} else {
			tn++
		}
	}

	precision := 0.0
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	return ports.Statistic{
		Precision:         roundTo(precision, statPrecision),
		TruePositiveRate:  roundTo(rate(tp, tp+fn), statPrecision),
		TrueNegativeRate:  roundTo(rate(tn, tn+fp), statPrecision),
		FalsePositiveRate: roundTo(rate(fp, fp+tn), statPrecision),
		FalseNegativeRate: roundTo(rate(fn, fn+tp), statPrecision),
	}, nil
}

func rate(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}
