package refs

import (
	"fmt"
	"testing"
)

func TestRegistry_AssignRefs_MonotonicAcrossTabs(t *testing.T) {
	r := NewRegistry()
	t.Cleanup(r.resetForTest)

	a := r.AssignRefs("tab-a", []Node{{BackendNodeID: 1}, {BackendNodeID: 2}})
	b := r.AssignRefs("tab-b", []Node{{BackendNodeID: 3}})

	if a[0].Ref != "e0" || a[1].Ref != "e1" {
		t.Fatalf("expected e0, e1 for tab-a, got %v", a)
	}
	if b[0].Ref != "e2" {
		t.Fatalf("expected e2 for tab-b, got %v", b)
	}
}

func TestRegistry_AssignRefs_PreservesInputOrder(t *testing.T) {
	r := NewRegistry()
	t.Cleanup(r.resetForTest)

	nodes := []Node{
		{BackendNodeID: 10, Role: "button", Name: "Submit"},
		{BackendNodeID: 11, Role: "textbox", Name: "Email"},
		{BackendNodeID: 12, Role: "link", Name: "Home"},
	}
	got := r.AssignRefs("tab-a", nodes)

	for i, n := range nodes {
		if got[i].BackendNodeID != n.BackendNodeID || got[i].Role != n.Role || got[i].Name != n.Name {
			t.Errorf("index %d: expected %+v, got %+v", i, n, got[i])
		}
	}
}

func TestRegistry_LookupRef_ReturnsBackendNodeID(t *testing.T) {
	r := NewRegistry()
	t.Cleanup(r.resetForTest)

	assigned := r.AssignRefs("tab-a", []Node{{BackendNodeID: 42}})

	id, ok := r.LookupRef("tab-a", assigned[0].Ref)
	if !ok || id != 42 {
		t.Errorf("expected (42, true), got (%d, %v)", id, ok)
	}

	_, ok = r.LookupRef("tab-a", "e999")
	if ok {
		t.Error("expected lookup of unknown ref to fail")
	}

	_, ok = r.LookupRef("tab-missing", assigned[0].Ref)
	if ok {
		t.Error("expected lookup in unknown tab to fail")
	}
}

func TestRegistry_LookupRefInfo_ReturnsFullMetadata(t *testing.T) {
	r := NewRegistry()
	t.Cleanup(r.resetForTest)

	assigned := r.AssignRefs("tab-a", []Node{{
		BackendNodeID: 7, Role: "checkbox", Name: "Accept", Value: "true",
		Depth: 3, Focused: true, Disabled: false,
	}})

	info, ok := r.LookupRefInfo("tab-a", assigned[0].Ref)
	if !ok {
		t.Fatal("expected to find ref info")
	}
	if info.Role != "checkbox" || info.Name != "Accept" || info.Depth != 3 || !info.Focused {
		t.Errorf("unexpected info: %+v", info)
	}
}

func TestRegistry_ClearTab_DropsMappingKeepsCounter(t *testing.T) {
	r := NewRegistry()
	t.Cleanup(r.resetForTest)

	first := r.AssignRefs("tab-a", []Node{{BackendNodeID: 1}})
	r.ClearTab("tab-a")

	_, ok := r.LookupRef("tab-a", first[0].Ref)
	if ok {
		t.Error("expected ref to be gone after ClearTab")
	}

	second := r.AssignRefs("tab-a", []Node{{BackendNodeID: 2}})
	if second[0].Ref == first[0].Ref {
		t.Errorf("expected a fresh ref after clear, counter was reused: %s", second[0].Ref)
	}
	if second[0].Ref != "e1" {
		t.Errorf("expected counter to continue from e1, got %s", second[0].Ref)
	}
}

func TestRegistry_ClearTab_UnknownTabIsNoop(t *testing.T) {
	r := NewRegistry()
	t.Cleanup(r.resetForTest)
	r.ClearTab("never-existed")
}

func TestRegistry_AssignRefs_ConcurrentCallersNeverCollide(t *testing.T) {
	r := NewRegistry()
	t.Cleanup(r.resetForTest)

	const goroutines = 20
	const perGoroutine = 10

	results := make(chan []Info, goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			nodes := make([]Node, perGoroutine)
			for i := range nodes {
				nodes[i] = Node{BackendNodeID: int64(g*perGoroutine + i)}
			}
			results <- r.AssignRefs(fmt.Sprintf("tab-%d", g), nodes)
		}(g)
	}

	seen := make(map[string]bool)
	for g := 0; g < goroutines; g++ {
		for _, info := range <-results {
			if seen[info.Ref] {
				t.Fatalf("duplicate ref issued: %s", info.Ref)
			}
			seen[info.Ref] = true
		}
	}
	if len(seen) != goroutines*perGoroutine {
		t.Errorf("expected %d unique refs, got %d", goroutines*perGoroutine, len(seen))
	}
}
