package starfile

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"lcsweep/internal/errors"
	"lcsweep/internal/search"
	"lcsweep/ports"
)

// Ledger is a CSV-file ledger store: one ';'-delimited file per job,
// appended after every query. The column set must be fixed up front so
// appended rows stay aligned with the header.
type Ledger struct {
	Root         string
	CoordLabels  []string
	DeciderNames []string

	mu sync.Mutex
}

// NewLedger builds a file ledger rooted at dir with the given optional
// column sets.
func NewLedger(dir string, coordLabels, deciderNames []string) *Ledger {
	return &Ledger{Root: dir, CoordLabels: coordLabels, DeciderNames: deciderNames}
}

func (l *Ledger) path(job string) string {
	return filepath.Join(l.Root, job+".ledger.csv")
}

func (l *Ledger) Append(ctx context.Context, job string, rows []ports.LedgerRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.Root, 0o755); err != nil {
		return errors.InvalidFilesPath(l.Root, err)
	}
	path := l.path(job)
	_, statErr := os.Stat(path)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.InvalidFilesPath(path, err)
	}
	defer f.Close()

	return search.WriteLedger(f, rows, l.CoordLabels, l.DeciderNames, writeHeader)
}

func (l *Ledger) Rows(ctx context.Context, job string) ([]ports.LedgerRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path(job))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.InvalidFilesPath(l.path(job), err)
	}
	defer f.Close()
	return search.ReadLedger(f)
}
