package snapshot

import "testing"

func TestApplyTokenCap_NoCapReturnsAllNodes(t *testing.T) {
	nodes := []Node{{Ref: "e0", Role: "button"}, {Ref: "e1", Role: "link"}}
	got, truncated := applyTokenCap(nodes, 0, FormatCompact)
	if truncated || len(got) != 2 {
		t.Fatalf("expected all nodes untruncated, got %d truncated=%v", len(got), truncated)
	}
}

func TestApplyTokenCap_StopsBeforeExceedingBudget(t *testing.T) {
	nodes := []Node{
		{Ref: "e0", Role: "button", Name: "AAAAAAAAAAAAAAAAAAAA"},
		{Ref: "e1", Role: "button", Name: "BBBBBBBBBBBBBBBBBBBB"},
		{Ref: "e2", Role: "button", Name: "CCCCCCCCCCCCCCCCCCCC"},
	}
	got, truncated := applyTokenCap(nodes, 5, FormatCompact)
	if !truncated {
		t.Fatal("expected truncation with a tight budget")
	}
	if len(got) >= len(nodes) {
		t.Fatalf("expected fewer than %d nodes accepted, got %d", len(nodes), len(got))
	}
}

func TestApplyTokenCap_GenerousBudgetAcceptsAllUntruncated(t *testing.T) {
	nodes := []Node{{Ref: "e0", Role: "button"}, {Ref: "e1", Role: "link"}}
	got, truncated := applyTokenCap(nodes, 10000, FormatCompact)
	if truncated || len(got) != 2 {
		t.Fatalf("expected all nodes accepted untruncated, got %d truncated=%v", len(got), truncated)
	}
}
