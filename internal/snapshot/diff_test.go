package snapshot

import "testing"

func TestComputeDiff_AddedChangedRemoved(t *testing.T) {
	prev := Snapshot{Nodes: []Node{
		{Ref: "e0", Role: "button", Name: "Submit", BackendNodeID: 1},
		{Ref: "e1", Role: "textbox", Name: "Email", BackendNodeID: 2, Value: "old"},
		{Ref: "e2", Role: "link", Name: "Leave", BackendNodeID: 3},
	}}
	current := Snapshot{Nodes: []Node{
		{Ref: "e10", Role: "button", Name: "Submit", BackendNodeID: 1},
		{Ref: "e11", Role: "textbox", Name: "Email", BackendNodeID: 2, Value: "new"},
		{Ref: "e12", Role: "checkbox", Name: "Agree", BackendNodeID: 4},
	}}

	d := ComputeDiff(prev, current)

	if len(d.Added) != 1 || d.Added[0].Ref != "e12" {
		t.Errorf("expected e12 added, got %+v", d.Added)
	}
	if len(d.Changed) != 1 || d.Changed[0].Ref != "e11" {
		t.Errorf("expected e11 changed (value diff), got %+v", d.Changed)
	}
	if len(d.Removed) != 1 || d.Removed[0].Ref != "e2" {
		t.Errorf("expected e2 removed (prev ref), got %+v", d.Removed)
	}
	if !d.HasChanges() {
		t.Error("expected HasChanges to be true")
	}
}

func TestComputeDiff_NoChanges(t *testing.T) {
	snap := Snapshot{Nodes: []Node{{Ref: "e0", Role: "button", Name: "Go", BackendNodeID: 1}}}
	d := ComputeDiff(snap, snap)
	if d.HasChanges() {
		t.Errorf("expected no changes, got %+v", d)
	}
}

func TestSerializeDiff_Sections(t *testing.T) {
	d := Diff{Added: []Node{{Ref: "e1", Role: "button"}}}
	got := SerializeDiff(d, FormatCompact)
	if got == "" {
		t.Fatal("expected non-empty output")
	}
}

func TestCompactLabel_QuotesNonEmptyName(t *testing.T) {
	n := Node{Ref: "e0", Role: "button", Name: "Go"}
	if got := CompactLabel(n); got != `e0:button "Go"` {
		t.Errorf("got %q", got)
	}
	n.Name = ""
	if got := CompactLabel(n); got != "e0:button" {
		t.Errorf("got %q", got)
	}
}
