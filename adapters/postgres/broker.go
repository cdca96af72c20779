// Package postgres backs the broker and ledger ports with PostgreSQL so
// workers on different hosts can share one job.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"lcsweep/internal/errors"
	"lcsweep/ports"
)

// DefaultVisibility bounds how long a claimed task may stay unresolved
// before Dequeue hands it out again.
const DefaultVisibility = 10 * time.Minute

// Schema creates the tables the adapters need.
const Schema = `
CREATE TABLE IF NOT EXISTS search_tasks (
	job        TEXT    NOT NULL,
	seq        INTEGER NOT NULL,
	query      JSONB   NOT NULL,
	claimed    BOOLEAN NOT NULL DEFAULT FALSE,
	claimed_at TIMESTAMPTZ,
	state      TEXT    NOT NULL DEFAULT 'PENDING',
	PRIMARY KEY (job, seq)
);

CREATE TABLE IF NOT EXISTS search_ledger (
	id          BIGSERIAL PRIMARY KEY,
	job         TEXT    NOT NULL,
	star_name   TEXT    NOT NULL,
	query       TEXT    NOT NULL DEFAULT '',
	found       BOOLEAN NOT NULL,
	lc          BOOLEAN NOT NULL,
	passed      BOOLEAN NOT NULL,
	coords      JSONB,
	per_decider JSONB
);

CREATE INDEX IF NOT EXISTS search_ledger_job_idx ON search_ledger (job);
`

// Broker is a PostgreSQL task broker. Dequeue claims tasks with
// FOR UPDATE SKIP LOCKED, so concurrent workers never grab the same row,
// and stamps the claim time. A claim whose holder never reaches a
// terminal state is reclaimed after the visibility deadline, so a worker
// crash redelivers the task instead of parking it.
type Broker struct {
	db         *sqlx.DB
	visibility time.Duration
}

// NewBroker wraps an open connection pool.
func NewBroker(db *sqlx.DB) *Broker {
	return &Broker{db: db, visibility: DefaultVisibility}
}

// SetVisibility overrides the reclaim deadline applied to claimed tasks.
func (b *Broker) SetVisibility(d time.Duration) {
	b.visibility = d
}

// EnsureSchema applies the table definitions.
func EnsureSchema(db *sqlx.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return errors.Wrap(err, "could not create search tables")
	}
	return nil
}

func (b *Broker) Enqueue(ctx context.Context, job string, tasks []ports.Task) error {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "could not begin enqueue transaction")
	}
	defer tx.Rollback()

	for _, t := range tasks {
		query, err := json.Marshal(t.Query)
		if err != nil {
			return errors.Wrap(err, "could not serialize query")
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO search_tasks (job, seq, query, state)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (job, seq) DO NOTHING`,
			job, t.Seq, query, ports.StateEnqueued)
		if err != nil {
			return errors.Wrap(err, "could not enqueue task")
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "could not commit enqueue transaction")
	}
	return nil
}

func (b *Broker) Dequeue(ctx context.Context, job string) (*ports.Task, error) {
	tx, err := b.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not begin dequeue transaction")
	}
	defer tx.Rollback()

	var row struct {
		Seq   int    `db:"seq"`
		Query []byte `db:"query"`
	}
	err = tx.GetContext(ctx, &row, `
		SELECT seq, query FROM search_tasks
		WHERE job = $1
		  AND state NOT IN ($2, $3, $4)
		  AND (claimed = FALSE OR claimed_at < now() - make_interval(secs => $5))
		ORDER BY seq
		LIMIT 1
		FOR UPDATE SKIP LOCKED`,
		job, ports.StateDoneOK, ports.StateDoneNoStar, ports.StateDoneError,
		b.visibility.Seconds())
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not claim task")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE search_tasks SET claimed = TRUE, claimed_at = now() WHERE job = $1 AND seq = $2`,
		job, row.Seq); err != nil {
		return nil, errors.Wrap(err, "could not mark task claimed")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "could not commit dequeue transaction")
	}

	task := &ports.Task{Job: job, Seq: row.Seq}
	if err := json.Unmarshal(row.Query, &task.Query); err != nil {
		return nil, errors.Wrap(err, "could not deserialize query")
	}
	return task, nil
}

func (b *Broker) SetState(ctx context.Context, job string, seq int, state ports.QueryState) error {
	_, err := b.db.ExecContext(ctx,
		`UPDATE search_tasks SET state = $3 WHERE job = $1 AND seq = $2`,
		job, seq, state)
	if err != nil {
		return errors.Wrap(err, "could not update task state")
	}
	return nil
}

func (b *Broker) States(ctx context.Context, job string) (map[int]ports.QueryState, error) {
	var rows []struct {
		Seq   int    `db:"seq"`
		State string `db:"state"`
	}
	err := b.db.SelectContext(ctx, &rows,
		`SELECT seq, state FROM search_tasks WHERE job = $1`, job)
	if err != nil {
		return nil, errors.Wrap(err, "could not load task states")
	}
	out := make(map[int]ports.QueryState, len(rows))
	for _, r := range rows {
		out[r.Seq] = ports.QueryState(r.State)
	}
	return out, nil
}

func (b *Broker) Remaining(ctx context.Context, job string) (int, error) {
	var count int
	err := b.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM search_tasks
		WHERE job = $1 AND state NOT IN ($2, $3, $4)`,
		job, ports.StateDoneOK, ports.StateDoneNoStar, ports.StateDoneError)
	if err != nil {
		return 0, errors.Wrap(err, "could not count remaining tasks")
	}
	return count, nil
}
