// Package memory provides in-process implementations of the broker and
// store ports, used for single-host runs and as test doubles for the
// database-backed adapters.
package memory

import (
	"context"
	"sync"
	"time"

	"lcsweep/domain/star"
	"lcsweep/ports"
)

// DefaultVisibility bounds how long a dequeued task may stay unresolved
// before Dequeue hands it out again.
const DefaultVisibility = 10 * time.Minute

type lease struct {
	task     ports.Task
	deadline time.Time
}

// Broker is a mutex-guarded FIFO broker. Dequeued tasks are leased: one
// whose lease expires without reaching a terminal state is redelivered,
// so delivery is at-least-once even after a worker dies mid-task.
type Broker struct {
	mu         sync.Mutex
	queues     map[string][]ports.Task
	leases     map[string]map[int]lease
	states     map[string]map[int]ports.QueryState
	visibility time.Duration
}

// NewBroker builds an empty broker with the default lease duration.
func NewBroker() *Broker {
	return &Broker{
		queues:     map[string][]ports.Task{},
		leases:     map[string]map[int]lease{},
		states:     map[string]map[int]ports.QueryState{},
		visibility: DefaultVisibility,
	}
}

// SetVisibility overrides the lease duration applied to dequeued tasks.
func (b *Broker) SetVisibility(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.visibility = d
}

func (b *Broker) Enqueue(ctx context.Context, job string, tasks []ports.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues[job] = append(b.queues[job], tasks...)
	if b.states[job] == nil {
		b.states[job] = map[int]ports.QueryState{}
	}
	for _, t := range tasks {
		b.states[job][t.Seq] = ports.StateEnqueued
	}
	return nil
}

func (b *Broker) Dequeue(ctx context.Context, job string) (*ports.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if task := b.expiredLease(job, now); task != nil {
		b.leases[job][task.Seq] = lease{task: *task, deadline: now.Add(b.visibility)}
		return task, nil
	}

	queue := b.queues[job]
	if len(queue) == 0 {
		return nil, nil
	}
	task := queue[0]
	b.queues[job] = queue[1:]
	if b.leases[job] == nil {
		b.leases[job] = map[int]lease{}
	}
	b.leases[job][task.Seq] = lease{task: task, deadline: now.Add(b.visibility)}
	return &task, nil
}

// expiredLease picks the lowest-sequence leased task whose deadline has
// passed without the task reaching a terminal state.
func (b *Broker) expiredLease(job string, now time.Time) *ports.Task {
	var pick *ports.Task
	for seq, l := range b.leases[job] {
		if now.Before(l.deadline) || b.states[job][seq].Done() {
			continue
		}
		if pick == nil || seq < pick.Seq {
			task := l.task
			pick = &task
		}
	}
	return pick
}

func (b *Broker) SetState(ctx context.Context, job string, seq int, state ports.QueryState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.states[job] == nil {
		b.states[job] = map[int]ports.QueryState{}
	}
	b.states[job][seq] = state
	if state.Done() {
		delete(b.leases[job], seq)
	}
	return nil
}

func (b *Broker) States(ctx context.Context, job string) (map[int]ports.QueryState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[int]ports.QueryState, len(b.states[job]))
	for seq, state := range b.states[job] {
		out[seq] = state
	}
	return out, nil
}

func (b *Broker) Remaining(ctx context.Context, job string) (int, error) {
	states, err := b.States(ctx, job)
	if err != nil {
		return 0, err
	}
	remaining := 0
	for _, state := range states {
		if !state.Done() {
			remaining++
		}
	}
	return remaining, nil
}

// Ledger is an in-memory ledger store.
type Ledger struct {
	mu   sync.Mutex
	rows map[string][]ports.LedgerRow
}

// NewLedger builds an empty ledger store.
func NewLedger() *Ledger {
	return &Ledger{rows: map[string][]ports.LedgerRow{}}
}

func (l *Ledger) Append(ctx context.Context, job string, rows []ports.LedgerRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows[job] = append(l.rows[job], rows...)
	return nil
}

func (l *Ledger) Rows(ctx context.Context, job string) ([]ports.LedgerRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ports.LedgerRow(nil), l.rows[job]...), nil
}

// StarStore is an in-memory star store keyed by job and star name, so a
// retried save overwrites instead of duplicating.
type StarStore struct {
	mu    sync.Mutex
	stars map[string]map[string]*star.Star
	order map[string][]string
}

// NewStarStore builds an empty star store.
func NewStarStore() *StarStore {
	return &StarStore{
		stars: map[string]map[string]*star.Star{},
		order: map[string][]string{},
	}
}

func (st *StarStore) Save(ctx context.Context, job string, s *star.Star) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.stars[job] == nil {
		st.stars[job] = map[string]*star.Star{}
	}
	if _, exists := st.stars[job][s.Name]; !exists {
		st.order[job] = append(st.order[job], s.Name)
	}
	st.stars[job][s.Name] = s
	return nil
}

func (st *StarStore) List(ctx context.Context, job string) ([]*star.Star, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]*star.Star, 0, len(st.order[job]))
	for _, name := range st.order[job] {
		out = append(out, st.stars[job][name])
	}
	return out, nil
}
