package ports

// CombinationStats is the evaluation outcome of one hyperparameter
// combination during tuning: the parameters per class, the aggregated
// classification statistic and the score used for ranking.
type CombinationStats struct {
	Index  int
	Params map[string]map[string]interface{}
	Stats  Statistic
	Score  float64
}

// ROCPoint is one (false-positive rate, true-positive rate) pair.
type ROCPoint struct {
	FPRate float64
	TPRate float64
}

// StatsWriter persists tuning results to an external report.
type StatsWriter interface {
	// WriteCombinations records the per-combination statistics.
	WriteCombinations(stats []CombinationStats) error

	// WriteROC records the ROC sequence, ordered by ascending
	// false-positive rate.
	WriteROC(points []ROCPoint) error

	// Flush finalizes the report.
	Flush() error
}
