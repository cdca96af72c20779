// Package features holds labeled feature tables: per-star coordinate rows
// produced by descriptors, keyed by the star they came from.
package features

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"lcsweep/domain/star"
	"lcsweep/internal/errors"
)

// Row is one star's feature vector.
type Row struct {
	Star   *star.Star
	Coords []float64
}

// Table is a labeled feature matrix with one row per star. Columns carry the
// descriptor labels that produced them.
type Table struct {
	Labels []string
	Rows   []Row
}

// NewTable creates an empty table with the given column labels.
func NewTable(labels ...string) *Table {
	return &Table{Labels: labels}
}

// Append adds a star's coordinate row. The row must match the column count.
func (t *Table) Append(s *star.Star, coords []float64) error {
	if len(coords) != len(t.Labels) {
		return errors.QueryInputf("row for %s has %d coordinates, table has %d columns",
			s.Name, len(coords), len(t.Labels))
	}
	t.Rows = append(t.Rows, Row{Star: s, Coords: coords})
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Dim returns the number of columns.
func (t *Table) Dim() int { return len(t.Labels) }

// DropNaNRows returns a copy of the table without rows containing any NaN
// coordinate.
func (t *Table) DropNaNRows() *Table {
	out := &Table{Labels: t.Labels}
	for _, row := range t.Rows {
		if hasNaN(row.Coords) {
			continue
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Stars returns the stars backing each row, in row order.
func (t *Table) Stars() []*star.Star {
	out := make([]*star.Star, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row.Star
	}
	return out
}

// Values returns the coordinate rows as a plain slice of slices. The rows
// share backing arrays with the table.
func (t *Table) Values() [][]float64 {
	out := make([][]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row.Coords
	}
	return out
}

// Matrix materializes the table as a dense matrix. Nil for an empty table.
func (t *Table) Matrix() *mat.Dense {
	if t.Len() == 0 || t.Dim() == 0 {
		return nil
	}
	m := mat.NewDense(t.Len(), t.Dim(), nil)
	for i, row := range t.Rows {
		m.SetRow(i, row.Coords)
	}
	return m
}

// Column returns a copy of the idx-th column.
func (t *Table) Column(idx int) ([]float64, error) {
	if idx < 0 || idx >= t.Dim() {
		return nil, errors.QueryInputf("column %d out of range, table has %d columns", idx, t.Dim())
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row.Coords[idx]
	}
	return out, nil
}

// Concat joins tables horizontally. All tables must have the same row count
// and their rows must refer to the same stars in the same order.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return NewTable(), nil
	}
	out := &Table{}
	for _, t := range tables {
		out.Labels = append(out.Labels, t.Labels...)
	}
	n := tables[0].Len()
	for _, t := range tables[1:] {
		if t.Len() != n {
			return nil, errors.QueryInputf("cannot join tables with %d and %d rows", n, t.Len())
		}
	}
	for i := 0; i < n; i++ {
		row := Row{Star: tables[0].Rows[i].Star}
		for _, t := range tables {
			if t.Rows[i].Star != row.Star && t.Rows[i].Star.Name != row.Star.Name {
				return nil, errors.QueryInputf("row %d refers to different stars (%s vs %s)",
					i, row.Star.Name, t.Rows[i].Star.Name)
			}
			row.Coords = append(row.Coords, t.Rows[i].Coords...)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

func hasNaN(coords []float64) bool {
	for _, v := range coords {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
