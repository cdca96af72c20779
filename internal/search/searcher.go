package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"lcsweep/app"
	"lcsweep/domain/star"
	"lcsweep/internal"
	"lcsweep/ports"
)

// DefaultUnfoundLimit is the number of consecutive empty queries after
// which the sequential mode gives up.
const DefaultUnfoundLimit = 150

// Searcher runs queries against a connector, filters the resulting stars
// and records every outcome in the ledger. Passing stars are persisted to
// the star store.
type Searcher struct {
	Connector ports.Connector

	// Filter is optional; without one every star with a light curve
	// counts as passed.
	Filter     *app.StarsFilter
	PassMethod app.PassMethod

	Store  ports.StarStore
	Ledger ports.LedgerStore
	Job    string

	// UnfoundLim bounds consecutive empty queries in sequential mode;
	// zero means DefaultUnfoundLimit.
	UnfoundLim int

	// SaveCoords records the extracted feature vector in the ledger.
	SaveCoords bool

	Log *internal.Logger
}

func (s *Searcher) logger() *internal.Logger {
	if s.Log != nil {
		return s.Log
	}
	return internal.DefaultLogger
}

// QueryStars runs the queries sequentially, appending ledger rows after
// each one. Connector failures record an error row and never abort the
// run; too many consecutive unmatched queries terminate it early.
func (s *Searcher) QueryStars(ctx context.Context, queries []ports.Query) error {
	limit := s.UnfoundLim
	if limit <= 0 {
		limit = DefaultUnfoundLimit
	}

	unfound := 0
	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			return err
		}
		rows, err := s.QueryStar(ctx, q)
		if err != nil {
			// a recorded failure row means the query itself broke and
			// the run can continue; a nil row set means the ledger did
			if rows == nil {
				return err
			}
		}

		found := false
		for _, row := range rows {
			if row.Found {
				found = true
				break
			}
		}
		if found {
			unfound = 0
		} else {
			unfound++
			if unfound >= limit {
				s.logger().Warn("[Searcher] %d consecutive queries without a match, stopping after query %d of %d",
					unfound, i+1, len(queries))
				return nil
			}
		}
	}
	return nil
}

// QueryStar resolves one query, filters each returned star and appends the
// outcomes to the ledger. A connector failure is recorded as an error row
// and returned together with it, so callers can distinguish a broken query
// (rows plus error) from a broken ledger (nil rows plus error).
func (s *Searcher) QueryStar(ctx context.Context, q ports.Query) ([]ports.LedgerRow, error) {
	var rows []ports.LedgerRow
	desc := DescribeQuery(q)

	stars, queryErr := s.Connector.GetStar(ctx, q, true)
	if queryErr != nil {
		s.logger().Warn("[Searcher] Query %s failed: %v", desc, queryErr)
		rows = append(rows, ports.LedgerRow{StarName: desc, Query: desc})
	} else if len(stars) == 0 {
		rows = append(rows, ports.LedgerRow{StarName: desc, Query: desc})
	} else {
		for _, st := range stars {
			row := s.inspect(ctx, st)
			row.Query = desc
			rows = append(rows, row)
		}
	}

	if s.Ledger != nil {
		if err := s.Ledger.Append(ctx, s.Job, rows); err != nil {
			return nil, err
		}
	}
	return rows, queryErr
}

// inspect runs the filter on one found star. Filter errors are logged and
// count as not passed.
func (s *Searcher) inspect(ctx context.Context, st *star.Star) ports.LedgerRow {
	row := ports.LedgerRow{
		StarName: st.Name,
		Found:    true,
		LC:       st.LightCurve() != nil,
	}
	if !row.LC {
		return row
	}

	if s.Filter == nil {
		row.Passed = true
	} else {
		evals, err := s.Filter.EvaluateStars([]*star.Star{st}, s.PassMethod)
		if err != nil {
			s.logger().Warn("[Searcher] Could not evaluate star %s: %v", st.Name, err)
			return row
		}
		if len(evals) == 0 {
			// features contained NaN, star cannot be judged
			return row
		}
		row.Passed = evals[0].Passed
		row.PerDecider = evals[0].PerDecider
		if s.SaveCoords {
			row.Coords = evals[0].Coords
		}
	}

	if row.Passed && s.Store != nil {
		if err := s.Store.Save(ctx, s.Job, st); err != nil {
			s.logger().Error("[Searcher] Could not persist star %s: %v", st.Name, err)
		}
	}
	return row
}

// DescribeQuery renders a query as a stable, delimiter-free identifier:
// sorted key=value pairs joined by commas. Every ledger row carries it, so
// two runs over the same plan describe each query identically.
func DescribeQuery(q ports.Query) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, q[k])
	}
	return sanitizeCell(strings.Join(parts, ","))
}
