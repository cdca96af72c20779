// Package tuning parses the CSV-shaped input files of the framework: tuning
// files enumerating hyperparameter combinations and query files enumerating
// catalog queries. Both use ';'-delimited columns with a '#'-prefixed
// header row.
package tuning

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"lcsweep/internal/errors"
	"lcsweep/internal/registry"
	"lcsweep/ports"
)

// Delimiter separates columns in tuning, query and ledger files.
const Delimiter = ";"

// Combination is one hyperparameter assignment: class name to parameter bag.
type Combination map[string]registry.Params

// ParseTuningFile reads a tuning file whose header columns are of the form
// "ClassName:param". Cell values may be scalars, "from:to" integer ranges,
// "from:to:step" float ranges, comma enumerations or backtick literals;
// ranged rows expand into the cartesian product of their cells.
func ParseTuningFile(r io.Reader) ([]Combination, error) {
	header, rows, err := readDelimited(r)
	if err != nil {
		return nil, err
	}

	type column struct {
		class string
		param string
	}
	columns := make([]column, len(header))
	for i, h := range header {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, errors.QueryInputf(
				"cannot parse tuning header %q, columns must be of the form 'ClassName:param'", h)
		}
		columns[i] = column{class: strings.TrimSpace(parts[0]), param: strings.TrimSpace(parts[1])}
	}

	var combos []Combination
	for _, row := range rows {
		if len(row) != len(header) {
			return nil, errors.QueryInputf("tuning row has %d cells, header has %d", len(row), len(header))
		}
		expanded, err := expandRow(row)
		if err != nil {
			return nil, err
		}
		for _, values := range expanded {
			combo := Combination{}
			for i, v := range values {
				c := columns[i]
				if combo[c.class] == nil {
					combo[c.class] = registry.Params{}
				}
				combo[c.class][c.param] = v
			}
			combos = append(combos, combo)
		}
	}
	return combos, nil
}

// ParseQueryFile reads a query file whose header columns are connector
// keys. Ranged cells expand one row into multiple queries.
func ParseQueryFile(r io.Reader) ([]ports.Query, error) {
	header, rows, err := readDelimited(r)
	if err != nil {
		return nil, err
	}

	var queries []ports.Query
	for _, row := range rows {
		if len(row) != len(header) {
			return nil, errors.QueryInputf("query row has %d cells, header has %d", len(row), len(header))
		}
		expanded, err := expandRow(row)
		if err != nil {
			return nil, err
		}
		for _, values := range expanded {
			q := ports.Query{}
			for i, v := range values {
				q[strings.TrimSpace(header[i])] = v
			}
			queries = append(queries, q)
		}
	}
	return queries, nil
}

// readDelimited splits the stream into a '#'-prefixed header and data rows.
func readDelimited(r io.Reader) ([]string, [][]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var header []string
	var rows [][]string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if header == nil {
			if !strings.HasPrefix(line, "#") {
				return nil, nil, errors.InvalidFile("first row must be a '#'-prefixed header")
			}
			header = splitCells(strings.TrimPrefix(line, "#"))
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		rows = append(rows, splitCells(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "could not read delimited file")
	}
	if header == nil {
		return nil, nil, errors.InvalidFile("file has no header row")
	}
	return header, rows, nil
}

func splitCells(line string) []string {
	cells := strings.Split(line, Delimiter)
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}
	return cells
}

// expandRow turns each cell into its value set and yields the cartesian
// product across cells.
func expandRow(row []string) ([][]interface{}, error) {
	valueSets := make([][]interface{}, len(row))
	for i, cell := range row {
		values, err := expandCell(cell)
		if err != nil {
			return nil, err
		}
		valueSets[i] = values
	}

	combos := [][]interface{}{{}}
	for _, values := range valueSets {
		var next [][]interface{}
		for _, prefix := range combos {
			for _, v := range values {
				combo := make([]interface{}, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, v))
			}
		}
		combos = next
	}
	return combos, nil
}

// expandCell resolves one cell into its set of values.
func expandCell(cell string) ([]interface{}, error) {
	cell = strings.TrimSpace(cell)

	if strings.HasPrefix(cell, "`") && strings.HasSuffix(cell, "`") && len(cell) >= 2 {
		v, err := ParseLiteral(cell[1 : len(cell)-1])
		if err != nil {
			return nil, err
		}
		return []interface{}{v}, nil
	}

	if strings.Contains(cell, ",") {
		parts := strings.Split(cell, ",")
		values := make([]interface{}, len(parts))
		for i, part := range parts {
			values[i] = ConvertValue(part)
		}
		return values, nil
	}

	parts := strings.Split(cell, ":")
	switch len(parts) {
	case 1:
		return []interface{}{ConvertValue(cell)}, nil
	case 2:
		from, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		to, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return nil, errors.QueryInputf("range %q must be 'from:to' with integer bounds", cell)
		}
		var values []interface{}
		for v := from; v < to; v++ {
			values = append(values, v)
		}
		return values, nil
	case 3:
		from, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		to, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		step, err3 := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err1 != nil || err2 != nil || err3 != nil || step <= 0 {
			return nil, errors.QueryInputf("range %q must be 'from:to:step' with float bounds and positive step", cell)
		}
		var values []interface{}
		for v := from; v <= to+step/1e9; v += step {
			values = append(values, v)
		}
		return values, nil
	}
	return nil, errors.QueryInputf("cell %q contains too many range separators", cell)
}
