// Package csvreport writes tuning reports as CSV files: one file with
// the per-combination statistics, flattening every Class:param into its
// own column, and one with the ROC sequence.
package csvreport

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"lcsweep/internal/errors"
	"lcsweep/ports"
)

// Writer persists tuning statistics through encoding/csv. The ROC file
// lands next to the statistics file with a "_roc" suffix.
type Writer struct {
	path  string
	stats [][]string
	roc   [][]string
}

// NewWriter builds a writer targeting the given .csv path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) WriteCombinations(stats []ports.CombinationStats) error {
	paramCols := paramColumns(stats)
	header := append([]string{"combination"}, paramCols...)
	header = append(header, "score")
	header = append(header, ports.StatisticKeys...)

	rows := [][]string{header}
	for _, cs := range stats {
		row := []string{strconv.Itoa(cs.Index)}
		for _, col := range paramCols {
			row = append(row, paramCell(cs.Params, col))
		}
		row = append(row, formatFloat(cs.Score))
		for _, v := range cs.Stats.Values() {
			row = append(row, formatFloat(v))
		}
		rows = append(rows, row)
	}
	w.stats = rows
	return nil
}

func (w *Writer) WriteROC(points []ports.ROCPoint) error {
	rows := [][]string{{"false_positive_rate", "true_positive_rate"}}
	for _, p := range points {
		rows = append(rows, []string{formatFloat(p.FPRate), formatFloat(p.TPRate)})
	}
	w.roc = rows
	return nil
}

func (w *Writer) Flush() error {
	if err := writeFile(w.path, w.stats); err != nil {
		return err
	}
	if w.roc == nil {
		return nil
	}
	return writeFile(rocPath(w.path), w.roc)
}

func writeFile(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.InvalidFilesPath(path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.WriteAll(rows); err != nil {
		return errors.Wrap(err, "could not write report to "+path)
	}
	cw.Flush()
	return cw.Error()
}

// rocPath derives the ROC file name: report.csv -> report_roc.csv.
func rocPath(path string) string {
	ext := ".csv"
	if i := strings.LastIndex(path, "."); i > 0 {
		ext = path[i:]
		path = path[:i]
	}
	return path + "_roc" + ext
}

// paramColumns collects every Class:param seen across combinations,
// sorted, so sparse parameter bags still align.
func paramColumns(stats []ports.CombinationStats) []string {
	seen := map[string]struct{}{}
	for _, cs := range stats {
		for class, params := range cs.Params {
			for key := range params {
				seen[class+":"+key] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for col := range seen {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

func paramCell(params map[string]map[string]interface{}, col string) string {
	parts := strings.SplitN(col, ":", 2)
	v, ok := params[parts[0]][parts[1]]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
