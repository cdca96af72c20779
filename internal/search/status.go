package search

import "lcsweep/ports"

// StatusFilter selects ledger rows by outcome. A nil field matches any
// value of that flag.
type StatusFilter struct {
	Found  *bool
	LC     *bool
	Passed *bool
}

// Flag is a convenience for building StatusFilter literals.
func Flag(v bool) *bool { return &v }

// FilterRows returns the rows matching every set flag of the filter.
func FilterRows(rows []ports.LedgerRow, f StatusFilter) []ports.LedgerRow {
	var out []ports.LedgerRow
	for _, row := range rows {
		if f.Found != nil && row.Found != *f.Found {
			continue
		}
		if f.LC != nil && row.LC != *f.LC {
			continue
		}
		if f.Passed != nil && row.Passed != *f.Passed {
			continue
		}
		out = append(out, row)
	}
	return out
}

// RemainingQueries diffs a query plan against recorded ledger rows and
// returns the queries with no row yet, in plan order. An interrupted run
// can be resumed by feeding the result back into QueryStars or Enqueue.
// Rows written before query tracking carry no descriptor and match
// nothing, so such ledgers resume from the start.
func RemainingQueries(plan []ports.Query, rows []ports.LedgerRow) []ports.Query {
	done := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.Query != "" {
			done[row.Query] = struct{}{}
		}
	}

	var out []ports.Query
	for _, q := range plan {
		if _, ok := done[DescribeQuery(q)]; ok {
			continue
		}
		out = append(out, q)
	}
	return out
}
