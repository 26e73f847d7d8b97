package core

import "testing"

func TestRegistry_SetGetDelete(t *testing.T) {
	r := NewRegistry()
	n := NewNode(5, nil, nil)
	r.Set(n)

	got, ok := r.Get(5)
	if !ok || got != n {
		t.Fatalf("Get(5) = (%v, %v), want (%v, true)", got, ok, n)
	}
	if !r.Has(5) {
		t.Error("Has(5) = false, want true")
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}

	r.Delete(5)
	if r.Has(5) {
		t.Error("Has(5) = true after Delete, want false")
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d after Delete, want 0", r.Len())
	}
}

func TestRegistry_GetOrThrow(t *testing.T) {
	r := NewRegistry()
	if _, err := r.GetOrThrow(9); err == nil {
		t.Fatal("GetOrThrow on empty registry returned nil error")
	}

	n := NewNode(9, nil, nil)
	r.Set(n)
	got, err := r.GetOrThrow(9)
	if err != nil {
		t.Fatalf("GetOrThrow(9) error = %v", err)
	}
	if got != n {
		t.Errorf("GetOrThrow(9) = %v, want %v", got, n)
	}
}

func TestRegistry_AllAndIDs(t *testing.T) {
	r := NewRegistry()
	r.Set(NewNode(1, nil, nil))
	r.Set(NewNode(2, nil, nil))
	r.Set(NewNode(3, nil, nil))

	if len(r.All()) != 3 {
		t.Errorf("All() len = %d, want 3", len(r.All()))
	}
	ids := map[uint8]bool{}
	for _, id := range r.IDs() {
		ids[id] = true
	}
	for _, want := range []uint8{1, 2, 3} {
		if !ids[want] {
			t.Errorf("IDs() missing %d", want)
		}
	}

	r.Clear()
	if r.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", r.Len())
	}
}
