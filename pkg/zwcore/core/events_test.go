package core

import "testing"

func TestEventBus_PublishOrder(t *testing.T) {
	b := NewEventBus()
	var order []int
	b.Subscribe(func(Event) { order = append(order, 1) })
	b.Subscribe(func(Event) { order = append(order, 2) })
	b.Subscribe(func(Event) { order = append(order, 3) })

	b.Publish(Event{Kind: EventNodeAdded})

	if len(order) != 3 {
		t.Fatalf("listeners invoked %d times, want 3", len(order))
	}
	for i, v := range order {
		if v != i+1 {
			t.Errorf("order[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestEventBus_Unsubscribe(t *testing.T) {
	b := NewEventBus()
	called := false
	unsubscribe := b.Subscribe(func(Event) { called = true })
	unsubscribe()

	b.Publish(Event{Kind: EventNodeAdded})
	if called {
		t.Error("unsubscribed listener was invoked")
	}
}

func TestSnapshotHeal_IsDefensiveCopy(t *testing.T) {
	src := map[uint8]HealStatus{1: HealPending}
	snap := SnapshotHeal(src)
	snap[1] = HealDone
	if src[1] != HealPending {
		t.Error("SnapshotHeal did not return a defensive copy")
	}
}
