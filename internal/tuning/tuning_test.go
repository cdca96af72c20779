package tuning

import (
	"math"
	"strings"
	"testing"

	"lcsweep/internal/errors"
)

// TestParseTuningFileScalars tests a single-combination file
func TestParseTuningFileScalars(t *testing.T) {
	input := "#AbbeValueDescr:bins;GaussianNBDec:treshold\n30;0.5\n"

	combos, err := ParseTuningFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTuningFile failed: %v", err)
	}
	if len(combos) != 1 {
		t.Fatalf("Expected 1 combination, got %d", len(combos))
	}
	combo := combos[0]
	if bins, ok := combo["AbbeValueDescr"].Int("bins"); !ok || bins != 30 {
		t.Errorf("Expected bins 30, got %v", combo["AbbeValueDescr"]["bins"])
	}
	if th, ok := combo["GaussianNBDec"].Float("treshold"); !ok || th != 0.5 {
		t.Errorf("Expected treshold 0.5, got %v", combo["GaussianNBDec"]["treshold"])
	}
}

// TestParseTuningFileRangeExpansion tests integer and float ranges
func TestParseTuningFileRangeExpansion(t *testing.T) {
	// 2:5 yields 2,3,4 and 0.1:0.3:0.1 yields 0.1,0.2,0.3
	input := "#AbbeValueDescr:bins;LDADec:treshold\n2:5;0.1:0.3:0.1\n"

	combos, err := ParseTuningFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTuningFile failed: %v", err)
	}
	if len(combos) != 9 {
		t.Fatalf("Expected 3x3 = 9 combinations, got %d", len(combos))
	}

	seenBins := map[int]bool{}
	for _, combo := range combos {
		bins, ok := combo["AbbeValueDescr"].Int("bins")
		if !ok {
			t.Fatal("Combination misses bins")
		}
		seenBins[bins] = true
		th, ok := combo["LDADec"].Float("treshold")
		if !ok || th < 0.1-1e-9 || th > 0.3+1e-9 {
			t.Errorf("Threshold %v outside expanded range", combo["LDADec"]["treshold"])
		}
	}
	for _, want := range []int{2, 3, 4} {
		if !seenBins[want] {
			t.Errorf("Expected bins value %d in expansion", want)
		}
	}
	if seenBins[5] {
		t.Error("Integer range upper bound must be exclusive")
	}
}

// TestParseTuningFileEnumAndTypes tests comma enumerations and value typing
func TestParseTuningFileEnumAndTypes(t *testing.T) {
	input := "#SkewnessDescr:absolute;HistShapeDescr:meth\nTrue,False;average,closest,best2\n"

	combos, err := ParseTuningFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTuningFile failed: %v", err)
	}
	if len(combos) != 6 {
		t.Fatalf("Expected 2x3 = 6 combinations, got %d", len(combos))
	}
	if _, ok := combos[0]["SkewnessDescr"].Bool("absolute"); !ok {
		t.Errorf("Expected boolean typing, got %T", combos[0]["SkewnessDescr"]["absolute"])
	}
	if _, ok := combos[0]["HistShapeDescr"].String("meth"); !ok {
		t.Errorf("Expected string typing, got %T", combos[0]["HistShapeDescr"]["meth"])
	}
}

// TestParseTuningFileBacktickLiteral tests structured cell values
func TestParseTuningFileBacktickLiteral(t *testing.T) {
	input := "#ColorIndexDescr:colors\n`[[\"b_mag\", \"v_mag\"]]`\n"

	combos, err := ParseTuningFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTuningFile failed: %v", err)
	}
	if len(combos) != 1 {
		t.Fatalf("Expected 1 combination, got %d", len(combos))
	}
	pairs, ok := combos[0]["ColorIndexDescr"].StringPairs("colors")
	if !ok {
		t.Fatalf("Expected string pairs, got %T", combos[0]["ColorIndexDescr"]["colors"])
	}
	if len(pairs) != 1 || pairs[0][0] != "b_mag" || pairs[0][1] != "v_mag" {
		t.Errorf("Unexpected pairs %v", pairs)
	}
}

// TestParseTuningFileHeaderValidation tests the header contract
func TestParseTuningFileHeaderValidation(t *testing.T) {
	if _, err := ParseTuningFile(strings.NewReader("AbbeValueDescr:bins\n30\n")); err == nil {
		t.Error("Expected error for a file without a '#' header")
	} else if !errors.IsCode(err, errors.CodeInvalidFile) {
		t.Errorf("Expected INVALID_FILE, got %v", err)
	}

	if _, err := ParseTuningFile(strings.NewReader("#binscolumn\n30\n")); err == nil {
		t.Error("Expected error for a header without 'Class:param' form")
	}

	if _, err := ParseTuningFile(strings.NewReader("#A:bins;B:treshold\n30\n")); err == nil {
		t.Error("Expected error for a row with missing cells")
	}

	if _, err := ParseTuningFile(strings.NewReader("")); err == nil {
		t.Error("Expected error for an empty file")
	}
}

// TestParseQueryFile tests query expansion
func TestParseQueryFile(t *testing.T) {
	input := "#path;starts_with\nsamples/quasars;LMC\nsamples/be_stars;SMC\n"

	queries, err := ParseQueryFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseQueryFile failed: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("Expected 2 queries, got %d", len(queries))
	}
	if queries[0]["path"] != "samples/quasars" || queries[0]["starts_with"] != "LMC" {
		t.Errorf("Unexpected first query %v", queries[0])
	}
}

// TestParseQueryFileRanges tests ranged query cells
func TestParseQueryFileRanges(t *testing.T) {
	input := "#field;tile\n1:4;33\n"

	queries, err := ParseQueryFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseQueryFile failed: %v", err)
	}
	if len(queries) != 3 {
		t.Fatalf("Expected 3 queries from the 1:4 range, got %d", len(queries))
	}
	for i, q := range queries {
		if q["field"] != i+1 {
			t.Errorf("Query %d: expected field %d, got %v", i, i+1, q["field"])
		}
		if q["tile"] != 33 {
			t.Errorf("Query %d: expected tile 33, got %v", i, q["tile"])
		}
	}
}

// TestConvertValue tests scalar typing rules
func TestConvertValue(t *testing.T) {
	cases := []struct {
		in   string
		want interface{}
	}{
		{"True", true},
		{"false", false},
		{"None", nil},
		{"42", 42},
		{"-7", -7},
		{"0.25", 0.25},
		{" spaced ", "spaced"},
		{"OGLE-LMC-01", "OGLE-LMC-01"},
	}
	for _, c := range cases {
		if got := ConvertValue(c.in); got != c.want {
			t.Errorf("ConvertValue(%q): expected %v (%T), got %v (%T)", c.in, c.want, c.want, got, got)
		}
	}
}

// TestParseLiteral tests the structured literal grammar
func TestParseLiteral(t *testing.T) {
	v, err := ParseLiteral(`[1, 2.5, "three", True, None]`)
	if err != nil {
		t.Fatalf("ParseLiteral failed: %v", err)
	}
	list, ok := v.([]interface{})
	if !ok {
		t.Fatalf("Expected a list, got %T", v)
	}
	if len(list) != 5 {
		t.Fatalf("Expected 5 elements, got %d", len(list))
	}
	if list[0] != 1 || list[1] != 2.5 || list[2] != "three" || list[3] != true || list[4] != nil {
		t.Errorf("Unexpected list %v", list)
	}

	v, err = ParseLiteral(`{"a": [1, 2], "b": "x"}`)
	if err != nil {
		t.Fatalf("ParseLiteral failed: %v", err)
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected a map, got %T", v)
	}
	if _, ok := m["a"].([]interface{}); !ok {
		t.Errorf("Expected nested list under 'a', got %T", m["a"])
	}
	if m["b"] != "x" {
		t.Errorf("Expected 'x' under 'b', got %v", m["b"])
	}

	if _, err := ParseLiteral(`[1, 2`); err == nil {
		t.Error("Expected error for an unterminated list")
	}
	if _, err := ParseLiteral(`[1] trailing`); err == nil {
		t.Error("Expected error for trailing characters")
	}
}

// TestFloatRangeEndpointIncluded tests the inclusive float upper bound
func TestFloatRangeEndpointIncluded(t *testing.T) {
	input := "#LDADec:treshold\n0.5:0.9:0.2\n"

	combos, err := ParseTuningFile(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseTuningFile failed: %v", err)
	}
	if len(combos) != 3 {
		t.Fatalf("Expected values 0.5, 0.7, 0.9, got %d combinations", len(combos))
	}
	last, _ := combos[2]["LDADec"].Float("treshold")
	if math.Abs(last-0.9) > 1e-9 {
		t.Errorf("Expected inclusive endpoint 0.9, got %f", last)
	}
}
