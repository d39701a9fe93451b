package debugbuf

import "testing"

func TestRingBuffer_PushAndAll_OrdersOldestFirst(t *testing.T) {
	b := NewRingBuffer[int](3)
	b.Push(1)
	b.Push(2)
	b.Push(3)

	got := b.All()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("unexpected length: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %d want %d", i, got[i], want[i])
		}
	}
}

func TestRingBuffer_OverwritesOldestWhenFull(t *testing.T) {
	b := NewRingBuffer[int](3)
	b.Push(1)
	b.Push(2)
	b.Push(3)
	b.Push(4)

	got := b.All()
	want := []int{2, 3, 4}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %d want %d", i, got[i], want[i])
		}
	}
	if b.Len() != 3 || b.Cap() != 3 {
		t.Errorf("unexpected len/cap: %d/%d", b.Len(), b.Cap())
	}
}

func TestRingBuffer_Update_StopsAtFirstMatch(t *testing.T) {
	b := NewRingBuffer[int](5)
	b.Push(1)
	b.Push(2)
	b.Push(3)

	calls := 0
	b.Update(func(v *int) bool {
		calls++
		if *v == 2 {
			*v = 20
			return true
		}
		return false
	})

	if calls != 2 {
		t.Errorf("expected update to stop after finding match, got %d calls", calls)
	}
	found := false
	for _, v := range b.All() {
		if v == 20 {
			found = true
		}
	}
	if !found {
		t.Error("expected matched item to be updated")
	}
}

func TestRingBuffer_Clear_EmptiesBuffer(t *testing.T) {
	b := NewRingBuffer[int](3)
	b.Push(1)
	b.Push(2)
	b.Clear()

	if b.Len() != 0 {
		t.Errorf("expected empty buffer after clear, got len %d", b.Len())
	}
	if b.All() != nil {
		t.Errorf("expected nil from All() on empty buffer, got %v", b.All())
	}
}
