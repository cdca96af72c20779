package features

import (
	"math"
	"testing"

	"lcsweep/domain/star"
)

// TestAppendDimensionCheck tests row width validation
func TestAppendDimensionCheck(t *testing.T) {
	table := NewTable("a", "b")
	s := star.New("s1")

	if err := table.Append(s, []float64{1, 2}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := table.Append(s, []float64{1}); err == nil {
		t.Error("Expected error for a short row")
	}
	if err := table.Append(s, []float64{1, 2, 3}); err == nil {
		t.Error("Expected error for a wide row")
	}
	if table.Len() != 1 || table.Dim() != 2 {
		t.Errorf("Expected 1x2 table, got %dx%d", table.Len(), table.Dim())
	}
}

// TestDropNaNRows tests NaN row filtering
func TestDropNaNRows(t *testing.T) {
	table := NewTable("x")
	_ = table.Append(star.New("clean"), []float64{1})
	_ = table.Append(star.New("broken"), []float64{math.NaN()})
	_ = table.Append(star.New("clean2"), []float64{2})

	clean := table.DropNaNRows()
	if clean.Len() != 2 {
		t.Fatalf("Expected 2 clean rows, got %d", clean.Len())
	}
	for _, row := range clean.Rows {
		if row.Star.Name == "broken" {
			t.Error("NaN row survived filtering")
		}
	}
	// original table stays intact
	if table.Len() != 3 {
		t.Errorf("Source table was modified, has %d rows", table.Len())
	}
}

// TestConcatJoinsColumns tests horizontal joining
func TestConcatJoinsColumns(t *testing.T) {
	s1, s2 := star.New("s1"), star.New("s2")

	left := NewTable("a")
	_ = left.Append(s1, []float64{1})
	_ = left.Append(s2, []float64{2})

	right := NewTable("b", "c")
	_ = right.Append(s1, []float64{3, 4})
	_ = right.Append(s2, []float64{5, 6})

	joined, err := Concat(left, right)
	if err != nil {
		t.Fatalf("Concat failed: %v", err)
	}
	if joined.Dim() != 3 || joined.Len() != 2 {
		t.Fatalf("Expected 2x3 table, got %dx%d", joined.Len(), joined.Dim())
	}
	want := [][]float64{{1, 3, 4}, {2, 5, 6}}
	for i, row := range joined.Rows {
		for j, v := range row.Coords {
			if v != want[i][j] {
				t.Errorf("Cell (%d,%d): expected %f, got %f", i, j, want[i][j], v)
			}
		}
	}
}

// TestConcatRejectsMismatches tests row count and star alignment checks
func TestConcatRejectsMismatches(t *testing.T) {
	s1, s2 := star.New("s1"), star.New("s2")

	left := NewTable("a")
	_ = left.Append(s1, []float64{1})

	tall := NewTable("b")
	_ = tall.Append(s1, []float64{1})
	_ = tall.Append(s2, []float64{2})

	if _, err := Concat(left, tall); err == nil {
		t.Error("Expected error for differing row counts")
	}

	misaligned := NewTable("b")
	_ = misaligned.Append(s2, []float64{1})
	if _, err := Concat(left, misaligned); err == nil {
		t.Error("Expected error for rows referring to different stars")
	}
}

// TestMatrixAndColumn tests dense matrix export
func TestMatrixAndColumn(t *testing.T) {
	table := NewTable("a", "b")
	_ = table.Append(star.New("s1"), []float64{1, 2})
	_ = table.Append(star.New("s2"), []float64{3, 4})

	m := table.Matrix()
	if m == nil {
		t.Fatal("Expected a matrix for a populated table")
	}
	r, c := m.Dims()
	if r != 2 || c != 2 {
		t.Fatalf("Expected 2x2 matrix, got %dx%d", r, c)
	}
	if m.At(1, 0) != 3 {
		t.Errorf("Expected 3 at (1,0), got %f", m.At(1, 0))
	}

	col, err := table.Column(1)
	if err != nil {
		t.Fatalf("Column failed: %v", err)
	}
	if col[0] != 2 || col[1] != 4 {
		t.Errorf("Unexpected column values %v", col)
	}

	if _, err := table.Column(5); err == nil {
		t.Error("Expected error for out of range column")
	}

	if NewTable().Matrix() != nil {
		t.Error("Empty table should produce a nil matrix")
	}
}
