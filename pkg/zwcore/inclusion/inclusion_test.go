package inclusion

import (
	"context"
	"testing"

	"github.com/zwave-network/zwcore/pkg/zwcore/association"
	"github.com/zwave-network/zwcore/pkg/zwcore/core"
	"github.com/zwave-network/zwcore/pkg/zwcore/lifeline"
	"github.com/zwave-network/zwcore/pkg/zwcore/security"
	"github.com/zwave-network/zwcore/pkg/zwcore/transport"
)

const ownID uint8 = 1

func newTestManager(t *testing.T) (*Manager, *transport.Fake, *core.Registry, *core.EventBus) {
	t.Helper()
	registry := core.NewRegistry()
	identity := core.NewIdentity()
	bus := core.NewEventBus()
	tr := transport.NewFake()
	assoc := association.NewManager(registry, core.NewDeviceConfigTable(nil), ownID)
	m := NewManager(registry, identity, bus, tr, security.NewBootstrap(nil), lifeline.NewBootstrap(ownID), assoc, nil)
	return m, tr, registry, bus
}

func TestManager_MutualExclusion(t *testing.T) {
	m, tr, _, _ := newTestManager(t)
	ctx := context.Background()

	m.BeginInclusion(ctx, false)
	tr.Deliver(ctx, core.FunctionTypeAddNodeToNetwork, core.AddNodeStatusReport{Status: core.AddNodeStatusReady})
	if !m.IsInclusionActive() {
		t.Fatal("inclusion not active after Ready report")
	}

	sig := m.BeginExclusion(ctx)
	ok, err := sig.Wait()
	if err != nil || ok {
		t.Errorf("BeginExclusion during inclusion = (%v, %v), want (false, nil)", ok, err)
	}
	if m.IsExclusionActive() {
		t.Error("exclusion became active while inclusion was active")
	}
}

func TestManager_ExclusionHappyPath(t *testing.T) {
	m, tr, _, bus := newTestManager(t)
	ctx := context.Background()

	var events []core.Event
	bus.Subscribe(func(ev core.Event) { events = append(events, ev) })

	sig := m.BeginExclusion(ctx)
	tr.Deliver(ctx, core.FunctionTypeRemoveNodeFromNetwork, core.RemoveNodeStatusReport{Status: core.RemoveNodeStatusReady})

	ok, err := sig.Wait()
	if err != nil || !ok {
		t.Fatalf("beginExclusion signal = (%v, %v), want (true, nil)", ok, err)
	}
	if !m.IsExclusionActive() {
		t.Error("exclusionActive not set after Ready report")
	}
	if len(events) != 1 || events[0].Kind != core.EventExclusionStarted {
		t.Errorf("events = %v, want [EventExclusionStarted]", events)
	}

	sent := tr.Sent()
	if len(sent) != 1 || sent[0].Opts.CorrelationID == "" {
		t.Fatalf("sent = %v, want one request carrying a correlation id", sent)
	}
	if events[0].CorrelationID != sent[0].Opts.CorrelationID {
		t.Errorf("event correlation id %q != request correlation id %q", events[0].CorrelationID, sent[0].Opts.CorrelationID)
	}
}

func TestManager_ExclusionFailedBeforeReady(t *testing.T) {
	m, tr, _, bus := newTestManager(t)
	ctx := context.Background()

	var failed bool
	bus.Subscribe(func(ev core.Event) {
		if ev.Kind == core.EventExclusionFailed {
			failed = true
		}
	})

	sig := m.BeginExclusion(ctx)
	tr.Deliver(ctx, core.FunctionTypeRemoveNodeFromNetwork, core.RemoveNodeStatusReport{Status: core.RemoveNodeStatusFailed})

	ok, err := sig.Wait()
	if ok || err == nil {
		t.Errorf("beginExclusion signal = (%v, %v), want (false, non-nil)", ok, err)
	}
	if _, isExclusionErr := err.(*core.ExclusionFailedError); !isExclusionErr {
		t.Errorf("beginExclusion error = %T, want *core.ExclusionFailedError", err)
	}
	if failed {
		t.Error("EventExclusionFailed published even though beginExclusionSignal was rejected directly")
	}
	if m.IsExclusionActive() {
		t.Error("exclusionActive still set after Failed")
	}
}

func TestManager_StopInclusion_Idempotent(t *testing.T) {
	m, tr, _, _ := newTestManager(t)
	ctx := context.Background()

	if m.StopInclusion(ctx) {
		t.Error("StopInclusion on an idle manager returned true")
	}

	m.BeginInclusion(ctx, false)
	tr.Deliver(ctx, core.FunctionTypeAddNodeToNetwork, core.AddNodeStatusReport{Status: core.AddNodeStatusReady})
	if !m.StopInclusion(ctx) {
		t.Error("StopInclusion while active returned false")
	}
	tr.Deliver(ctx, core.FunctionTypeAddNodeToNetwork, core.AddNodeStatusReport{Status: core.AddNodeStatusDone, NewNodeID: core.BroadcastNodeID})

	if m.StopInclusion(ctx) {
		t.Error("StopInclusion after inclusion ended returned true, want idempotent false")
	}
}

func TestManager_InclusionHappyPath(t *testing.T) {
	m, tr, registry, bus := newTestManager(t)
	ctx := context.Background()

	var events []core.Event
	bus.Subscribe(func(ev core.Event) { events = append(events, ev) })

	sig := m.BeginInclusion(ctx, false)
	tr.Deliver(ctx, core.FunctionTypeAddNodeToNetwork, core.AddNodeStatusReport{Status: core.AddNodeStatusReady})
	tr.Deliver(ctx, core.FunctionTypeAddNodeToNetwork, core.AddNodeStatusReport{
		Status:    core.AddNodeStatusAddingSlave,
		NewNodeID: 5,
		Basic:     1, Generic: 2, Specific: 3,
	})
	tr.Deliver(ctx, core.FunctionTypeAddNodeToNetwork, core.AddNodeStatusReport{Status: core.AddNodeStatusDone, NewNodeID: 5})

	ok, err := sig.Wait()
	if err != nil || !ok {
		t.Fatalf("beginInclusion signal = (%v, %v), want (true, nil)", ok, err)
	}
	if !registry.Has(5) {
		t.Fatal("node 5 not present in registry after inclusion")
	}
	if m.IsInclusionActive() {
		t.Error("inclusionActive still set after Done")
	}

	wantKinds := []core.EventKind{core.EventInclusionStarted, core.EventNodeAdded}
	if len(events) != len(wantKinds) {
		t.Fatalf("events = %v, want %v", events, wantKinds)
	}
	if events[0].CorrelationID == "" {
		t.Error("EventInclusionStarted carries no correlation id")
	}
	if events[0].CorrelationID != events[1].CorrelationID {
		t.Errorf("EventInclusionStarted and EventNodeAdded correlation ids differ: %q != %q",
			events[0].CorrelationID, events[1].CorrelationID)
	}
	for i, k := range wantKinds {
		if events[i].Kind != k {
			t.Errorf("events[%d].Kind = %v, want %v", i, events[i].Kind, k)
		}
	}
}

func TestManager_InclusionFailedBeforeReady(t *testing.T) {
	m, tr, _, bus := newTestManager(t)
	ctx := context.Background()

	var failed bool
	bus.Subscribe(func(ev core.Event) {
		if ev.Kind == core.EventInclusionFailed {
			failed = true
		}
	})

	sig := m.BeginInclusion(ctx, false)
	tr.Deliver(ctx, core.FunctionTypeAddNodeToNetwork, core.AddNodeStatusReport{Status: core.AddNodeStatusFailed})

	ok, err := sig.Wait()
	if ok || err == nil {
		t.Errorf("beginInclusion signal = (%v, %v), want (false, non-nil)", ok, err)
	}
	if failed {
		t.Error("EventInclusionFailed published even though beginInclusionSignal was rejected directly")
	}
}

func TestManager_MutualExclusion_BlockedByHeal(t *testing.T) {
	m, _, _, _ := newTestManager(t)
	ctx := context.Background()
	m.SetHealActiveFunc(func() bool { return true })

	sig := m.BeginInclusion(ctx, false)
	ok, err := sig.Wait()
	if err != nil || ok {
		t.Errorf("BeginInclusion during a heal = (%v, %v), want (false, nil)", ok, err)
	}

	sig = m.BeginExclusion(ctx)
	ok, err = sig.Wait()
	if err != nil || ok {
		t.Errorf("BeginExclusion during a heal = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestManager_NoHealFunc_DoesNotBlock(t *testing.T) {
	m, tr, _, _ := newTestManager(t)
	ctx := context.Background()

	sig := m.BeginInclusion(ctx, false)
	tr.Deliver(ctx, core.FunctionTypeAddNodeToNetwork, core.AddNodeStatusReport{Status: core.AddNodeStatusReady})
	ok, err := sig.Wait()
	if err != nil || !ok {
		t.Errorf("BeginInclusion with no heal func wired = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestManager_RemoveFailedNode_NodeStillResponding(t *testing.T) {
	m, tr, registry, _ := newTestManager(t)
	ctx := context.Background()

	node := core.NewNode(7, tr, nil)
	registry.Set(node)
	tr.SetResponder(core.FunctionTypePing, func(any) (any, error) {
		return core.PingResponse{NodeID: 7}, nil
	})

	err := m.RemoveFailedNode(ctx, 7)
	if err == nil {
		t.Fatal("RemoveFailedNode on a responding node returned nil error")
	}
	if _, ok := err.(*core.RemoveFailedNodeOKError); !ok {
		t.Errorf("RemoveFailedNode error = %T, want *core.RemoveFailedNodeOKError", err)
	}
}

func TestManager_RemoveFailedNode_StartFlagsRejected(t *testing.T) {
	m, tr, registry, _ := newTestManager(t)
	ctx := context.Background()

	node := core.NewNode(7, tr, nil)
	registry.Set(node)
	tr.SetResponder(core.FunctionTypePing, func(any) (any, error) {
		return nil, &core.NodeTimeoutError{Step: "ping"}
	})
	tr.SetResponder(core.FunctionTypeRemoveFailedNode, func(any) (any, error) {
		return core.RemoveFailedNodeResponse{HasStartFlags: true, StartFlags: core.RemoveFailedStartNotPrimary}, nil
	})

	err := m.RemoveFailedNode(ctx, 7)
	if _, ok := err.(*core.RemoveFailedNodeFailedError); !ok {
		t.Errorf("RemoveFailedNode error = %T, want *core.RemoveFailedNodeFailedError", err)
	}
}

func TestManager_ReplaceFailedNode_NodeStillResponding(t *testing.T) {
	m, tr, registry, _ := newTestManager(t)
	ctx := context.Background()

	node := core.NewNode(7, tr, nil)
	registry.Set(node)
	tr.SetResponder(core.FunctionTypePing, func(any) (any, error) {
		return core.PingResponse{NodeID: 7}, nil
	})

	if _, err := m.ReplaceFailedNode(ctx, 7); err == nil {
		t.Fatal("ReplaceFailedNode on a responding node returned nil error")
	}
}

func TestManager_ReplaceFailedNode_PreservesID(t *testing.T) {
	m, tr, registry, bus := newTestManager(t)
	ctx := context.Background()

	node := core.NewNode(7, tr, nil)
	registry.Set(node)

	tr.SetResponder(core.FunctionTypeReplaceFailedNode, func(any) (any, error) {
		return core.ReplaceFailedNodeResponse{OK: true}, nil
	})

	var added *core.Node
	bus.Subscribe(func(ev core.Event) {
		if ev.Kind == core.EventNodeAdded {
			added = ev.Node
		}
	})

	sig, err := m.ReplaceFailedNode(ctx, 7)
	if err != nil {
		t.Fatalf("ReplaceFailedNode error = %v", err)
	}

	tr.Deliver(ctx, core.FunctionTypeReplaceFailedNode, core.ReplaceFailedNodeStatusReport{Status: core.ReplaceFailedNodeStatusReplace})
	ok, err := sig.Wait()
	if err != nil || !ok {
		t.Fatalf("replace signal = (%v, %v), want (true, nil)", ok, err)
	}

	tr.Deliver(ctx, core.FunctionTypeReplaceFailedNode, core.ReplaceFailedNodeStatusReport{Status: core.ReplaceFailedNodeStatusReplaceDone})

	if added == nil || added.ID() != 7 {
		t.Fatalf("replacement node id = %v, want 7", added)
	}
	got, ok := registry.Get(7)
	if !ok || got != added {
		t.Fatal("registry does not hold the replacement node under the original id")
	}
}
