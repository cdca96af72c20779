package ports

// DefaultThreshold is the decision boundary used when a decider is not
// configured with its own.
const DefaultThreshold = 0.5

// Decider is a learnable binary classifier over feature vectors.
// A trained instance is not safe for concurrent use; give each worker
// its own copy.
type Decider interface {
	// Name identifies the decider for registries, tuning files and
	// ledger columns.
	Name() string

	// Learn trains on positive and negative feature matrices. Both must
	// be non-empty. Re-training replaces any previous state.
	Learn(positives, negatives [][]float64) error

	// Evaluate returns one probability in [0, 1] per input row.
	// Label-output classifiers return hard {0, 1} values.
	Evaluate(X [][]float64) ([]float64, error)

	// Threshold is the probability above which a row counts as positive.
	Threshold() float64
}

// Statistic is the classification quality summary of a decider on a
// labeled sample, all values rounded to three decimals.
type Statistic struct {
	Precision         float64
	TruePositiveRate  float64
	TrueNegativeRate  float64
	FalsePositiveRate float64
	FalseNegativeRate float64
}

// StatisticKeys lists the statistic fields in their canonical order, as
// used in reports and persisted sheets.
var StatisticKeys = []string{
	"precision",
	"true_positive_rate",
	"true_negative_rate",
	"false_positive_rate",
	"false_negative_rate",
}

// Values returns the fields in StatisticKeys order.
func (s Statistic) Values() []float64 {
	return []float64{
		s.Precision,
		s.TruePositiveRate,
		s.TrueNegativeRate,
		s.FalsePositiveRate,
		s.FalseNegativeRate,
	}
}

// Map returns the statistic as a key-value mapping.
func (s Statistic) Map() map[string]float64 {
	out := make(map[string]float64, len(StatisticKeys))
	for i, k := range StatisticKeys {
		out[k] = s.Values()[i]
	}
	return out
}
