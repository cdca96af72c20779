package ports

import "context"

// LedgerRow is one search outcome: whether the query matched a star,
// whether the star carried a light curve and whether it passed the filter.
// Coords holds the extracted feature vector under its descriptor labels,
// PerDecider the individual decider verdicts. Query is the canonical text
// of the originating query, so a resumed run can diff its plan against
// rows already recorded.
type LedgerRow struct {
	StarName   string
	Query      string
	Found      bool
	LC         bool
	Passed     bool
	Coords     map[string]float64
	PerDecider map[string]bool
}

// LedgerStore records search outcomes per job. Rows may duplicate when a
// task is redelivered; readers must tolerate that.
type LedgerStore interface {
	// Append adds rows to the job's ledger.
	Append(ctx context.Context, job string, rows []LedgerRow) error

	// Rows returns all recorded rows of a job, in write order.
	Rows(ctx context.Context, job string) ([]LedgerRow, error)
}
