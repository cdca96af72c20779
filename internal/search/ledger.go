// Package search implements the systematic search over catalog queries:
// a sequential mode and a queue-backed distributed mode sharing one
// filtering contract, plus the CSV ledger that records every outcome.
package search

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"lcsweep/internal/errors"
	"lcsweep/internal/tuning"
	"lcsweep/ports"
)

const (
	ledgerDelimiter    = ";"
	ledgerPassedPrefix = "passed_"
)

var ledgerBaseColumns = []string{"star_name", "found", "lc", "passed"}

// ledgerQueryColumn is written with every ledger but stays optional on
// read, so ledgers from before query tracking still parse.
const ledgerQueryColumn = "query"

// WriteLedger appends rows in the ';'-delimited ledger format with a
// '#'-prefixed header. Optional columns carry coordinate labels and one
// passed_<Decider> column per decider. When header is false only the data
// rows are written, so a ledger file can be appended to query by query.
func WriteLedger(w io.Writer, rows []ports.LedgerRow, coordLabels, deciderNames []string, header bool) error {
	columns := append([]string{}, ledgerBaseColumns...)
	columns = append(columns, ledgerQueryColumn)
	columns = append(columns, coordLabels...)
	for _, name := range deciderNames {
		columns = append(columns, ledgerPassedPrefix+name)
	}

	if header {
		if _, err := fmt.Fprintln(w, "#"+strings.Join(columns, ledgerDelimiter)); err != nil {
			return errors.Wrap(err, "could not write ledger header")
		}
	}
	for _, row := range rows {
		cells := make([]string, 0, len(columns))
		cells = append(cells,
			sanitizeCell(row.StarName),
			strconv.FormatBool(row.Found),
			strconv.FormatBool(row.LC),
			strconv.FormatBool(row.Passed),
			sanitizeCell(row.Query),
		)
		for _, label := range coordLabels {
			v, ok := row.Coords[label]
			if !ok {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, strconv.FormatFloat(v, 'g', -1, 64))
		}
		for _, name := range deciderNames {
			v, ok := row.PerDecider[name]
			if !ok {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, strconv.FormatBool(v))
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, ledgerDelimiter)); err != nil {
			return errors.Wrap(err, "could not write ledger row")
		}
	}
	return nil
}

// sanitizeCell keeps embedded delimiters out of a cell with a naive comma
// replacement, matching what the readers expect.
func sanitizeCell(s string) string {
	return strings.ReplaceAll(s, ledgerDelimiter, ",")
}

// ReadLedger reconstructs rows from a ledger stream. Unknown columns are
// returned inside Coords when numeric, otherwise ignored; backtick literals
// are reparsed.
func ReadLedger(r io.Reader) ([]ports.LedgerRow, error) {
	header, rawRows, err := readLedgerLines(r)
	if err != nil {
		return nil, err
	}

	index := map[string]int{}
	for i, col := range header {
		index[col] = i
	}
	for _, col := range ledgerBaseColumns {
		if _, ok := index[col]; !ok {
			return nil, errors.InvalidFile(fmt.Sprintf("ledger is missing mandatory column %q", col))
		}
	}

	rows := make([]ports.LedgerRow, 0, len(rawRows))
	for _, cells := range rawRows {
		if len(cells) != len(header) {
			return nil, errors.InvalidFile(fmt.Sprintf(
				"ledger row has %d cells, header has %d", len(cells), len(header)))
		}
		row := ports.LedgerRow{
			StarName:   cells[index["star_name"]],
			Found:      parseBool(cells[index["found"]]),
			LC:         parseBool(cells[index["lc"]]),
			Passed:     parseBool(cells[index["passed"]]),
			Coords:     map[string]float64{},
			PerDecider: map[string]bool{},
		}
		for i, col := range header {
			switch {
			case isBaseColumn(col):
			case col == ledgerQueryColumn:
				row.Query = cells[i]
			case strings.HasPrefix(col, ledgerPassedPrefix):
				if cells[i] != "" {
					row.PerDecider[strings.TrimPrefix(col, ledgerPassedPrefix)] = parseBool(cells[i])
				}
			default:
				if cells[i] == "" {
					continue
				}
				if v, err := strconv.ParseFloat(cells[i], 64); err == nil {
					row.Coords[col] = v
				} else if strings.HasPrefix(cells[i], "`") {
					if lit, err := tuning.ParseLiteral(strings.Trim(cells[i], "`")); err == nil {
						if f, ok := lit.(float64); ok {
							row.Coords[col] = f
						}
					}
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readLedgerLines(r io.Reader) ([]string, [][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not read ledger")
	}
	var header []string
	var rows [][]string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cells := strings.Split(line, ledgerDelimiter)
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}
		if strings.HasPrefix(line, "#") {
			if header == nil {
				cells[0] = strings.TrimPrefix(cells[0], "#")
				header = cells
			}
			continue
		}
		rows = append(rows, cells)
	}
	if header == nil {
		return nil, nil, errors.InvalidFile("ledger has no '#'-prefixed header")
	}
	return header, rows, nil
}

func isBaseColumn(col string) bool {
	for _, c := range ledgerBaseColumns {
		if c == col {
			return true
		}
	}
	return false
}

func parseBool(s string) bool {
	v, _ := strconv.ParseBool(strings.ToLower(s))
	return v
}

// Summary tabulates a ledger: how many queries matched a star, carried a
// light curve and passed the filter.
type Summary struct {
	Rows   int
	Found  int
	WithLC int
	Passed int
}

// Summarize reduces rows to their counts.
func Summarize(rows []ports.LedgerRow) Summary {
	s := Summary{Rows: len(rows)}
	for _, row := range rows {
		if row.Found {
			s.Found++
		}
		if row.LC {
			s.WithLC++
		}
		if row.Passed {
			s.Passed++
		}
	}
	return s
}

// CoordLabels collects every coordinate label seen across rows, sorted, so
// a ledger written from heterogeneous rows has a stable column set.
func CoordLabels(rows []ports.LedgerRow) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		for label := range row.Coords {
			seen[label] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for label := range seen {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// DeciderNames collects every decider name seen across rows, sorted.
func DeciderNames(rows []ports.LedgerRow) []string {
	seen := map[string]struct{}{}
	for _, row := range rows {
		for name := range row.PerDecider {
			seen[name] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
