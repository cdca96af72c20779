// Package excel writes tuning reports as spreadsheets: one sheet with the
// per-combination statistics and one with the ROC sequence.
package excel

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"lcsweep/internal/errors"
	"lcsweep/ports"
)

const (
	statsSheet = "Combinations"
	rocSheet   = "ROC"
)

// Writer persists tuning statistics through excelize.
type Writer struct {
	path string
	file *excelize.File
}

// NewWriter builds a writer targeting the given file path.
func NewWriter(path string) *Writer {
	return &Writer{path: path, file: excelize.NewFile()}
}

func (w *Writer) WriteCombinations(stats []ports.CombinationStats) error {
	index, err := w.file.NewSheet(statsSheet)
	if err != nil {
		return errors.Wrap(err, "could not create statistics sheet")
	}
	w.file.SetActiveSheet(index)

	header := append([]string{"combination", "params", "score"}, ports.StatisticKeys...)
	for col, name := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return errors.Wrap(err, "could not address header cell")
		}
		if err := w.file.SetCellValue(statsSheet, cell, name); err != nil {
			return errors.Wrap(err, "could not write header cell")
		}
	}

	for i, cs := range stats {
		values := []interface{}{cs.Index, formatParams(cs.Params), cs.Score}
		for _, v := range cs.Stats.Values() {
			values = append(values, v)
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return errors.Wrap(err, "could not address statistics cell")
			}
			if err := w.file.SetCellValue(statsSheet, cell, v); err != nil {
				return errors.Wrap(err, "could not write statistics cell")
			}
		}
	}
	return nil
}

func (w *Writer) WriteROC(points []ports.ROCPoint) error {
	if _, err := w.file.NewSheet(rocSheet); err != nil {
		return errors.Wrap(err, "could not create ROC sheet")
	}
	if err := w.file.SetCellValue(rocSheet, "A1", "false_positive_rate"); err != nil {
		return errors.Wrap(err, "could not write ROC header")
	}
	if err := w.file.SetCellValue(rocSheet, "B1", "true_positive_rate"); err != nil {
		return errors.Wrap(err, "could not write ROC header")
	}
	for i, p := range points {
		if err := w.file.SetCellValue(rocSheet, fmt.Sprintf("A%d", i+2), p.FPRate); err != nil {
			return errors.Wrap(err, "could not write ROC point")
		}
		if err := w.file.SetCellValue(rocSheet, fmt.Sprintf("B%d", i+2), p.TPRate); err != nil {
			return errors.Wrap(err, "could not write ROC point")
		}
	}
	return nil
}

func (w *Writer) Flush() error {
	if err := w.file.SaveAs(w.path); err != nil {
		return errors.Wrap(err, "could not save report to "+w.path)
	}
	return w.file.Close()
}

// formatParams renders a parameter bag deterministically for one cell.
func formatParams(params map[string]map[string]interface{}) string {
	classes := make([]string, 0, len(params))
	for class := range params {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	out := ""
	for _, class := range classes {
		keys := make([]string, 0, len(params[class]))
		for k := range params[class] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if out != "" {
				out += " "
			}
			out += fmt.Sprintf("%s:%s=%v", class, k, params[class][k])
		}
	}
	return out
}
