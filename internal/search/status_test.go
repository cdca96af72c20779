package search

import (
	"testing"

	"lcsweep/ports"
)

// TestFilterRowsByOutcome tests selecting ledger rows by their flags.
func TestFilterRowsByOutcome(t *testing.T) {
	rows := []ports.LedgerRow{
		{StarName: "A", Found: true, LC: true, Passed: true},
		{StarName: "B", Found: true, LC: true, Passed: false},
		{StarName: "C", Found: true, LC: false, Passed: false},
		{StarName: "D", Found: false},
	}

	passed := FilterRows(rows, StatusFilter{Passed: Flag(true)})
	if len(passed) != 1 || passed[0].StarName != "A" {
		t.Errorf("Expected only A to pass, got %+v", passed)
	}

	foundNoCurve := FilterRows(rows, StatusFilter{Found: Flag(true), LC: Flag(false)})
	if len(foundNoCurve) != 1 || foundNoCurve[0].StarName != "C" {
		t.Errorf("Expected only C found without curve, got %+v", foundNoCurve)
	}

	all := FilterRows(rows, StatusFilter{})
	if len(all) != 4 {
		t.Errorf("Empty filter should match all rows, got %d", len(all))
	}
}

// TestRemainingQueriesDiffsPlan tests resuming a plan against an existing
// ledger: recorded queries are skipped, the rest keep plan order.
func TestRemainingQueriesDiffsPlan(t *testing.T) {
	plan := []ports.Query{
		{"name": "LMC_0001"},
		{"name": "LMC_0002"},
		{"name": "LMC_0003"},
	}
	rows := []ports.LedgerRow{
		{StarName: "LMC_0001", Query: DescribeQuery(plan[0]), Found: true},
		{StarName: DescribeQuery(plan[2]), Query: DescribeQuery(plan[2])},
	}

	remaining := RemainingQueries(plan, rows)
	if len(remaining) != 1 {
		t.Fatalf("Expected 1 remaining query, got %d", len(remaining))
	}
	if remaining[0]["name"] != "LMC_0002" {
		t.Errorf("Expected LMC_0002 to remain, got %v", remaining[0])
	}
}

// TestRemainingQueriesLegacyRows tests that rows without a recorded query
// descriptor never mark a plan query as done.
func TestRemainingQueriesLegacyRows(t *testing.T) {
	plan := []ports.Query{{"name": "LMC_0001"}}
	rows := []ports.LedgerRow{{StarName: "LMC_0001", Found: true}}

	if remaining := RemainingQueries(plan, rows); len(remaining) != 1 {
		t.Errorf("Legacy rows must not complete queries, got %d remaining", len(remaining))
	}
}

// TestDescribeQueryStable tests that the descriptor is key-order
// independent and keeps the ledger delimiter out.
func TestDescribeQueryStable(t *testing.T) {
	a := DescribeQuery(ports.Query{"ra": 12.5, "dec": -70.1})
	b := DescribeQuery(ports.Query{"dec": -70.1, "ra": 12.5})
	if a != b {
		t.Errorf("Descriptor depends on key order: %q vs %q", a, b)
	}
	if got := DescribeQuery(ports.Query{"name": "a;b"}); got != "name=a,b" {
		t.Errorf("Delimiter not sanitized: %q", got)
	}
}
