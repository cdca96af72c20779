package search

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"lcsweep/adapters/memory"
	"lcsweep/domain/star"
	"lcsweep/internal/errors"
	"lcsweep/ports"
)

// fakeConnector resolves queries from a fixed name-keyed star map. Queries
// carry a "name" key; unknown names come back empty.
type fakeConnector struct {
	stars map[string]*star.Star
	calls int
	fail  map[string]error
}

func (c *fakeConnector) Name() string { return "fake" }

func (c *fakeConnector) GetStar(ctx context.Context, q ports.Query, loadLC bool) ([]*star.Star, error) {
	c.calls++
	name, _ := q["name"].(string)
	if err, ok := c.fail[name]; ok {
		return nil, err
	}
	if s, ok := c.stars[name]; ok {
		return []*star.Star{s}, nil
	}
	return nil, nil
}

func (c *fakeConnector) GetStars(ctx context.Context, queries []ports.Query, loadLC bool) ([]*star.Star, error) {
	var out []*star.Star
	for _, q := range queries {
		stars, err := c.GetStar(ctx, q, loadLC)
		if err != nil {
			return nil, err
		}
		out = append(out, stars...)
	}
	return out, nil
}

func namedQuery(name string) ports.Query {
	return ports.Query{"name": name}
}

func withCurve(t *testing.T, name string) *star.Star {
	t.Helper()
	times := []float64{1, 2, 3, 4, 5}
	mags := []float64{10, 11, 10, 11, 10}
	lc, err := star.NewLightCurve(times, mags, nil, star.Meta{})
	if err != nil {
		t.Fatalf("NewLightCurve failed: %v", err)
	}
	s := star.New(name)
	s.PutLightCurve(lc)
	return s
}

func testSearcher(t *testing.T, conn ports.Connector) (*Searcher, *memory.Ledger, *memory.StarStore) {
	t.Helper()
	ledger := memory.NewLedger()
	store := memory.NewStarStore()
	return &Searcher{
		Connector: conn,
		Store:     store,
		Ledger:    ledger,
		Job:       "test-job",
	}, ledger, store
}

// TestQueryStarsRecordsEveryOutcome tests the ledger row per query contract
func TestQueryStarsRecordsEveryOutcome(t *testing.T) {
	conn := &fakeConnector{
		stars: map[string]*star.Star{
			"with-lc":    withCurve(t, "with-lc"),
			"without-lc": star.New("without-lc"),
		},
		fail: map[string]error{"broken": fmt.Errorf("catalog offline")},
	}
	s, ledger, store := testSearcher(t, conn)
	ctx := context.Background()

	queries := []ports.Query{
		namedQuery("with-lc"),
		namedQuery("without-lc"),
		namedQuery("missing"),
		namedQuery("broken"),
	}
	if err := s.QueryStars(ctx, queries); err != nil {
		t.Fatalf("QueryStars failed: %v", err)
	}

	rows, err := ledger.Rows(ctx, "test-job")
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected 4 ledger rows, got %d", len(rows))
	}

	sum := Summarize(rows)
	if sum.Found != 2 {
		t.Errorf("Expected 2 found stars, got %d", sum.Found)
	}
	if sum.WithLC != 1 {
		t.Errorf("Expected 1 star with a light curve, got %d", sum.WithLC)
	}
	// without a filter, any star with a light curve passes
	if sum.Passed != 1 {
		t.Errorf("Expected 1 passed star, got %d", sum.Passed)
	}

	saved, err := store.List(ctx, "test-job")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(saved) != 1 || saved[0].Name != "with-lc" {
		t.Errorf("Expected only the passing star persisted, got %v", saved)
	}
}

// TestQueryStarsUnfoundLimit tests early termination after consecutive
// empty queries
func TestQueryStarsUnfoundLimit(t *testing.T) {
	conn := &fakeConnector{stars: map[string]*star.Star{}}
	s, ledger, _ := testSearcher(t, conn)
	s.UnfoundLim = 5

	queries := make([]ports.Query, 20)
	for i := range queries {
		queries[i] = namedQuery(fmt.Sprintf("missing-%d", i))
	}
	if err := s.QueryStars(context.Background(), queries); err != nil {
		t.Fatalf("QueryStars failed: %v", err)
	}
	if conn.calls != 5 {
		t.Errorf("Expected stop after 5 empty queries, connector saw %d", conn.calls)
	}

	rows, _ := ledger.Rows(context.Background(), "test-job")
	if len(rows) != 5 {
		t.Errorf("Expected 5 ledger rows before the stop, got %d", len(rows))
	}
}

// TestQueryStarsUnfoundCounterResets tests that a match resets the counter
func TestQueryStarsUnfoundCounterResets(t *testing.T) {
	conn := &fakeConnector{
		stars: map[string]*star.Star{"hit": withCurve(t, "hit")},
	}
	s, _, _ := testSearcher(t, conn)
	s.UnfoundLim = 3

	queries := []ports.Query{
		namedQuery("miss-1"), namedQuery("miss-2"),
		namedQuery("hit"),
		namedQuery("miss-3"), namedQuery("miss-4"),
	}
	if err := s.QueryStars(context.Background(), queries); err != nil {
		t.Fatalf("QueryStars failed: %v", err)
	}
	if conn.calls != 5 {
		t.Errorf("Expected all 5 queries to run, connector saw %d", conn.calls)
	}
}

// TestLedgerRoundTrip tests writing and reparsing the CSV ledger
func TestLedgerRoundTrip(t *testing.T) {
	rows := []ports.LedgerRow{
		{
			StarName: "OGLE-LMC-01",
			Query:    "name=OGLE-LMC-01",
			Found:    true,
			LC:       true,
			Passed:   true,
			Coords:   map[string]float64{"Abbe value": 0.125},
			PerDecider: map[string]bool{
				"GaussianNBDec": true,
				"LDADec":        false,
			},
		},
		{StarName: "name;with;delims", Found: true},
		{StarName: "empty"},
	}

	var buf bytes.Buffer
	err := WriteLedger(&buf, rows, []string{"Abbe value"}, []string{"GaussianNBDec", "LDADec"}, true)
	if err != nil {
		t.Fatalf("WriteLedger failed: %v", err)
	}

	parsed, err := ReadLedger(&buf)
	if err != nil {
		t.Fatalf("ReadLedger failed: %v", err)
	}
	if len(parsed) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(parsed))
	}

	first := parsed[0]
	if first.StarName != "OGLE-LMC-01" || !first.Found || !first.LC || !first.Passed {
		t.Errorf("First row flags corrupted: %+v", first)
	}
	if first.Query != "name=OGLE-LMC-01" {
		t.Errorf("Query descriptor corrupted: %q", first.Query)
	}
	if v, ok := first.Coords["Abbe value"]; !ok || math.Abs(v-0.125) > 1e-12 {
		t.Errorf("Coordinate corrupted: %v", first.Coords)
	}
	if !first.PerDecider["GaussianNBDec"] || first.PerDecider["LDADec"] {
		t.Errorf("Per-decider verdicts corrupted: %v", first.PerDecider)
	}

	// embedded delimiters are flattened to commas
	if parsed[1].StarName != "name,with,delims" {
		t.Errorf("Expected sanitized name, got %q", parsed[1].StarName)
	}
	if parsed[2].Found || parsed[2].LC || parsed[2].Passed {
		t.Errorf("Empty row should carry false flags: %+v", parsed[2])
	}
}

// TestReadLedgerMandatoryColumns tests header validation
func TestReadLedgerMandatoryColumns(t *testing.T) {
	input := "#star_name;found;lc\nA;true;true\n"
	if _, err := ReadLedger(bytes.NewReader([]byte(input))); err == nil {
		t.Error("Expected error for a ledger without the passed column")
	} else if !errors.IsCode(err, errors.CodeInvalidFile) {
		t.Errorf("Expected INVALID_FILE, got %v", err)
	}
}

// TestCollectors tests label and decider name extraction from rows
func TestCollectors(t *testing.T) {
	rows := []ports.LedgerRow{
		{Coords: map[string]float64{"b": 1, "a": 2}, PerDecider: map[string]bool{"Z": true}},
		{Coords: map[string]float64{"c": 3}, PerDecider: map[string]bool{"A": false}},
	}
	labels := CoordLabels(rows)
	if len(labels) != 3 || labels[0] != "a" || labels[2] != "c" {
		t.Errorf("Expected sorted labels [a b c], got %v", labels)
	}
	names := DeciderNames(rows)
	if len(names) != 2 || names[0] != "A" || names[1] != "Z" {
		t.Errorf("Expected sorted names [A Z], got %v", names)
	}
}

// TestQueueSearcherLifecycle tests the distributed state machine end to end
func TestQueueSearcherLifecycle(t *testing.T) {
	conn := &fakeConnector{
		stars: map[string]*star.Star{
			"with-lc":    withCurve(t, "with-lc"),
			"without-lc": star.New("without-lc"),
		},
		fail: map[string]error{},
	}
	s, _, _ := testSearcher(t, conn)
	broker := memory.NewBroker()
	qs := NewQueueSearcher(broker, s, "queue-job")
	ctx := context.Background()

	queries := []ports.Query{
		namedQuery("with-lc"),
		namedQuery("without-lc"),
		namedQuery("missing"),
	}
	if err := qs.QueryStars(ctx, queries); err != nil {
		t.Fatalf("QueryStars failed: %v", err)
	}

	remaining, err := broker.Remaining(ctx, "queue-job")
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	if remaining != 3 {
		t.Fatalf("Expected 3 outstanding tasks, got %d", remaining)
	}

	if err := qs.Work(ctx); err != nil {
		t.Fatalf("Work failed: %v", err)
	}

	states, err := qs.States(ctx)
	if err != nil {
		t.Fatalf("States failed: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("Expected 3 task states, got %d", len(states))
	}
	if states[0] != ports.StateDoneOK {
		t.Errorf("Task 0 should be DONE_OK, got %s", states[0])
	}
	if states[1] != ports.StateDoneOK {
		t.Errorf("Task 1 found its star, expected DONE_OK, got %s", states[1])
	}
	if states[2] != ports.StateDoneNoStar {
		t.Errorf("Task 2 matched nothing, expected DONE_NOSTAR, got %s", states[2])
	}

	passed, err := qs.GetPassedStars(ctx, true, time.Second)
	if err != nil {
		t.Fatalf("GetPassedStars failed: %v", err)
	}
	if len(passed) != 1 || passed[0].Name != "with-lc" {
		t.Errorf("Expected the single passing star, got %v", passed)
	}

	status, err := qs.GetStatus(ctx)
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if len(status) != 3 {
		t.Errorf("Expected 3 status rows, got %d", len(status))
	}
}

// TestQueueSearcherErrorState tests DONE_ERROR on connector failure
func TestQueueSearcherErrorState(t *testing.T) {
	conn := &fakeConnector{
		stars: map[string]*star.Star{},
		fail:  map[string]error{"broken": fmt.Errorf("catalog offline")},
	}
	s, _, _ := testSearcher(t, conn)
	broker := memory.NewBroker()
	qs := NewQueueSearcher(broker, s, "err-job")
	ctx := context.Background()

	if err := qs.QueryStars(ctx, []ports.Query{namedQuery("broken")}); err != nil {
		t.Fatalf("QueryStars failed: %v", err)
	}
	if err := qs.Work(ctx); err != nil {
		t.Fatalf("Work failed: %v", err)
	}

	states, _ := qs.States(ctx)
	if states[0] != ports.StateDoneError {
		t.Errorf("Expected DONE_ERROR for a failing query, got %s", states[0])
	}
	if remaining, _ := broker.Remaining(ctx, "err-job"); remaining != 0 {
		t.Errorf("Terminal tasks should not count as remaining, got %d", remaining)
	}
}

// TestGetPassedStarsTimeout tests the drain timeout
func TestGetPassedStarsTimeout(t *testing.T) {
	conn := &fakeConnector{stars: map[string]*star.Star{}}
	s, _, _ := testSearcher(t, conn)
	broker := memory.NewBroker()
	qs := NewQueueSearcher(broker, s, "slow-job")
	ctx := context.Background()

	if err := qs.QueryStars(ctx, []ports.Query{namedQuery("never-worked")}); err != nil {
		t.Fatalf("QueryStars failed: %v", err)
	}

	// no worker runs, so the queue never drains
	_, err := qs.GetPassedStars(ctx, true, 100*time.Millisecond)
	if err == nil {
		t.Fatal("Expected timeout waiting on an unworked queue")
	}
	if !errors.IsCode(err, errors.CodeTimeout) {
		t.Errorf("Expected TIMEOUT, got %v", err)
	}
}

// TestNewJobIDUniqueness tests job identifier generation
func TestNewJobIDUniqueness(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewJobID()
		if id == "" {
			t.Fatal("Generated empty job id")
		}
		if seen[id] {
			t.Fatalf("Generated duplicate job id %s", id)
		}
		seen[id] = true
	}
}
