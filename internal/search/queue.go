package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lcsweep/domain/star"
	"lcsweep/internal"
	"lcsweep/internal/errors"
	"lcsweep/ports"
)

// pollInterval is how often a waiting caller checks the remaining task
// count of a job.
const pollInterval = time.Second

// NewJobID returns a random 32-character job identifier.
func NewJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// QueueSearcher coordinates distributed search through a task broker with
// at-least-once delivery. Producers enqueue one task per query; workers on
// any host drain the queue with Work; the producer collects results with
// GetPassedStars or GetStatus.
type QueueSearcher struct {
	Broker   ports.Broker
	Searcher *Searcher
	Job      string

	Log *internal.Logger
}

// NewQueueSearcher wires a broker to a searcher. An empty job name gets a
// random identifier.
func NewQueueSearcher(broker ports.Broker, searcher *Searcher, job string) *QueueSearcher {
	if job == "" {
		job = NewJobID()
	}
	searcher.Job = job
	return &QueueSearcher{
		Broker:   broker,
		Searcher: searcher,
		Job:      job,
		Log:      internal.DefaultLogger,
	}
}

// QueryStars enqueues one task per query under the job name.
func (qs *QueueSearcher) QueryStars(ctx context.Context, queries []ports.Query) error {
	tasks := make([]ports.Task, len(queries))
	for i, q := range queries {
		tasks[i] = ports.Task{Job: qs.Job, Seq: i, Query: q}
	}
	if err := qs.Broker.Enqueue(ctx, qs.Job, tasks); err != nil {
		return err
	}
	qs.Log.Info("[QueueSearcher] Enqueued %d queries under job %s", len(queries), qs.Job)
	return nil
}

// Work drains the job's queue: each task runs the single-query search and
// records a terminal state. Work returns once the queue is observed empty.
func (qs *QueueSearcher) Work(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		task, err := qs.Broker.Dequeue(ctx, qs.Job)
		if err != nil {
			return err
		}
		if task == nil {
			return nil
		}

		if err := qs.Broker.SetState(ctx, qs.Job, task.Seq, ports.StateProcessing); err != nil {
			return err
		}
		rows, err := qs.Searcher.QueryStar(ctx, task.Query)
		if err != nil {
			if rows == nil {
				// the ledger is unavailable, stop instead of burning tasks
				return err
			}
			qs.Log.Error("[QueueSearcher] Task %d of job %s failed: %v", task.Seq, qs.Job, err)
		}
		state := taskState(rows, err)
		if err := qs.Broker.SetState(ctx, qs.Job, task.Seq, state); err != nil {
			return err
		}
	}
}

func taskState(rows []ports.LedgerRow, err error) ports.QueryState {
	if err != nil {
		return ports.StateDoneError
	}
	for _, row := range rows {
		if row.Found {
			return ports.StateDoneOK
		}
	}
	return ports.StateDoneNoStar
}

// GetPassedStars collects the persisted passing stars of the job. With
// wait it polls the broker's remaining count at one-second intervals and
// fails with a timeout error once the budget elapses with tasks still
// outstanding.
func (qs *QueueSearcher) GetPassedStars(ctx context.Context, wait bool, timeout time.Duration) ([]*star.Star, error) {
	if wait {
		if err := qs.waitDrained(ctx, timeout); err != nil {
			return nil, err
		}
	}
	return qs.Searcher.Store.List(ctx, qs.Job)
}

// GetStatus returns the tabulated ledger of the job.
func (qs *QueueSearcher) GetStatus(ctx context.Context) ([]ports.LedgerRow, error) {
	return qs.Searcher.Ledger.Rows(ctx, qs.Job)
}

// States returns each task's recorded state.
func (qs *QueueSearcher) States(ctx context.Context) (map[int]ports.QueryState, error) {
	return qs.Broker.States(ctx, qs.Job)
}

func (qs *QueueSearcher) waitDrained(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		remaining, err := qs.Broker.Remaining(ctx, qs.Job)
		if err != nil {
			return err
		}
		if remaining == 0 {
			return nil
		}
		if timeout > 0 && time.Now().After(deadline) {
			return errors.Timeout(fmt.Sprintf("job %s still has tasks outstanding after %s", qs.Job, timeout))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
