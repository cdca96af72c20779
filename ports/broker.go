package ports

import "context"

// QueryState tracks one query through the distributed search pipeline.
type QueryState string

const (
	StatePending    QueryState = "PENDING"
	StateEnqueued   QueryState = "ENQUEUED"
	StateProcessing QueryState = "PROCESSING"
	StateDoneOK     QueryState = "DONE_OK"
	StateDoneNoStar QueryState = "DONE_NOSTAR"
	StateDoneError  QueryState = "DONE_ERROR"
)

// Done reports whether the state is terminal.
func (s QueryState) Done() bool {
	return s == StateDoneOK || s == StateDoneNoStar || s == StateDoneError
}

// Task is one unit of distributed search work: a single query belonging
// to a named job.
type Task struct {
	Job   string `json:"job"`
	Seq   int    `json:"seq"`
	Query Query  `json:"query"`
}

// Broker is the coordination point of distributed search: a multi-consumer
// FIFO with at-least-once delivery plus per-task state tracking. Tasks may
// be redelivered after a worker crash, so consumers must tolerate a query
// observed in PROCESSING twice.
type Broker interface {
	// Enqueue appends tasks to the job's queue and marks them ENQUEUED.
	Enqueue(ctx context.Context, job string, tasks []Task) error

	// Dequeue pops the next task of the job. It returns (nil, nil) when
	// the queue is currently empty.
	Dequeue(ctx context.Context, job string) (*Task, error)

	// SetState records the state of one task.
	SetState(ctx context.Context, job string, seq int, state QueryState) error

	// States returns the recorded state per task sequence number.
	States(ctx context.Context, job string) (map[int]QueryState, error)

	// Remaining counts the job's tasks not yet in a terminal state.
	Remaining(ctx context.Context, job string) (int, error)
}
