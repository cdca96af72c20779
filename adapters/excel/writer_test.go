package excel

import (
	"path/filepath"
	"testing"

	"lcsweep/ports"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

// TestWriterRoundTrip writes a small report and reads it back through
// excelize, checking the statistics header, one data row, and the ROC sheet.
func TestWriterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	w := NewWriter(path)

	stats := []ports.CombinationStats{
		{
			Index: 0,
			Params: map[string]map[string]interface{}{
				"AbbeValueDescr": {"bins": 20},
				"GaussianNBDec":  {"treshold": 0.5},
			},
			Stats: ports.Statistic{
				Precision:        0.9,
				TruePositiveRate: 0.8,
				TrueNegativeRate: 0.95,
			},
			Score: 0.9,
		},
		{
			Index:  1,
			Params: map[string]map[string]interface{}{"AbbeValueDescr": {"bins": 30}},
			Stats:  ports.Statistic{Precision: 0.7},
			Score:  0.7,
		},
	}
	assert.NoError(t, w.WriteCombinations(stats))
	assert.NoError(t, w.WriteROC([]ports.ROCPoint{
		{FPRate: 0.0, TPRate: 0.0},
		{FPRate: 0.2, TPRate: 0.8},
		{FPRate: 1.0, TPRate: 1.0},
	}))
	assert.NoError(t, w.Flush())

	file, err := excelize.OpenFile(path)
	assert.NoError(t, err)
	defer file.Close()

	name, err := file.GetCellValue(statsSheet, "A1")
	assert.NoError(t, err)
	assert.Equal(t, "combination", name)
	name, err = file.GetCellValue(statsSheet, "D1")
	assert.NoError(t, err)
	assert.Equal(t, "precision", name)

	params, err := file.GetCellValue(statsSheet, "B2")
	assert.NoError(t, err)
	assert.Equal(t, "AbbeValueDescr:bins=20 GaussianNBDec:treshold=0.5", params)
	precision, err := file.GetCellValue(statsSheet, "D2")
	assert.NoError(t, err)
	assert.Equal(t, "0.9", precision)

	rows, err := file.GetRows(statsSheet)
	assert.NoError(t, err)
	assert.Len(t, rows, 3)

	tpr, err := file.GetCellValue(rocSheet, "B3")
	assert.NoError(t, err)
	assert.Equal(t, "0.8", tpr)
}

// TestFormatParamsDeterministic verifies the single-cell rendering sorts
// classes and keys so identical bags always format identically.
func TestFormatParamsDeterministic(t *testing.T) {
	params := map[string]map[string]interface{}{
		"TreeDec":        {"treshold": 0.5, "max_depth": 3},
		"AbbeValueDescr": {"bins": 10},
	}
	want := "AbbeValueDescr:bins=10 TreeDec:max_depth=3 TreeDec:treshold=0.5"
	for i := 0; i < 5; i++ {
		assert.Equal(t, want, formatParams(params))
	}
}

// TestFormatParamsEmpty verifies an empty bag renders as an empty cell.
func TestFormatParamsEmpty(t *testing.T) {
	assert.Equal(t, "", formatParams(nil))
}
