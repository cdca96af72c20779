package postgres

import (
	"context"
	"encoding/json"

	"github.com/jmoiron/sqlx"

	"lcsweep/internal/errors"
	"lcsweep/ports"
)

// Ledger records search outcomes in PostgreSQL, keeping write order
// through the serial primary key.
type Ledger struct {
	db *sqlx.DB
}

// NewLedger wraps an open connection pool.
func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) Append(ctx context.Context, job string, rows []ports.LedgerRow) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "could not begin ledger transaction")
	}
	defer tx.Rollback()

	for _, row := range rows {
		coords, err := json.Marshal(row.Coords)
		if err != nil {
			return errors.Wrap(err, "could not serialize ledger coords")
		}
		perDecider, err := json.Marshal(row.PerDecider)
		if err != nil {
			return errors.Wrap(err, "could not serialize ledger verdicts")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO search_ledger (job, star_name, query, found, lc, passed, coords, per_decider)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			job, row.StarName, row.Query, row.Found, row.LC, row.Passed, coords, perDecider)
		if err != nil {
			return errors.Wrap(err, "could not append ledger row")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "could not commit ledger transaction")
	}
	return nil
}

func (l *Ledger) Rows(ctx context.Context, job string) ([]ports.LedgerRow, error) {
	var raw []struct {
		StarName   string `db:"star_name"`
		Query      string `db:"query"`
		Found      bool   `db:"found"`
		LC         bool   `db:"lc"`
		Passed     bool   `db:"passed"`
		Coords     []byte `db:"coords"`
		PerDecider []byte `db:"per_decider"`
	}
	err := l.db.SelectContext(ctx, &raw, `
		SELECT star_name, query, found, lc, passed, coords, per_decider
		FROM search_ledger
		WHERE job = $1
		ORDER BY id`, job)
	if err != nil {
		return nil, errors.Wrap(err, "could not load ledger rows")
	}

	rows := make([]ports.LedgerRow, len(raw))
	for i, r := range raw {
		rows[i] = ports.LedgerRow{
			StarName: r.StarName,
			Query:    r.Query,
			Found:    r.Found,
			LC:       r.LC,
			Passed:   r.Passed,
		}
		if len(r.Coords) > 0 {
			if err := json.Unmarshal(r.Coords, &rows[i].Coords); err != nil {
				return nil, errors.Wrap(err, "could not deserialize ledger coords")
			}
		}
		if len(r.PerDecider) > 0 {
			if err := json.Unmarshal(r.PerDecider, &rows[i].PerDecider); err != nil {
				return nil, errors.Wrap(err, "could not deserialize ledger verdicts")
			}
		}
	}
	return rows, nil
}
