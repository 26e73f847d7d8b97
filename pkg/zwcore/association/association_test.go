package association

import (
	"context"
	"testing"

	"github.com/zwave-network/zwcore/pkg/zwcore/core"
	"github.com/zwave-network/zwcore/pkg/zwcore/transport"
)

const ownID uint8 = 1

func newAssocFixture() (*Manager, *core.Registry) {
	registry := core.NewRegistry()
	m := NewManager(registry, core.NewDeviceConfigTable(nil), ownID)
	return m, registry
}

func TestGetAssociationGroups_DefaultLifelineGroup(t *testing.T) {
	m, registry := newAssocFixture()
	n := core.NewNode(2, nil, nil)
	n.AddCC(core.CCAssociation, core.CCInfo{Version: 1})
	registry.Set(n)

	groups, err := m.GetAssociationGroups(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetAssociationGroups error = %v", err)
	}
	if len(groups) != 1 {
		t.Fatalf("groups = %v, want exactly one group (no device config, no AGI)", groups)
	}
	if !groups[0].IsLifeline {
		t.Error("group 1 not marked as lifeline without a device config")
	}
}

func TestGetAssociationGroups_NotSupported(t *testing.T) {
	m, registry := newAssocFixture()
	registry.Set(core.NewNode(2, nil, nil))

	if _, err := m.GetAssociationGroups(context.Background(), 2); err == nil {
		t.Fatal("GetAssociationGroups on a node without Association CC returned nil error")
	}
}

func TestGetAssociations_Dedup(t *testing.T) {
	m, registry := newAssocFixture()
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)
	n.AddCC(core.CCAssociation, core.CCInfo{Version: 1})
	registry.Set(n)

	tr.SetResponder(core.FunctionTypeAssociationGet, func(any) (any, error) {
		return core.AssociationGetResponse{Targets: []core.Association{
			{NodeID: 9}, {NodeID: 9}, {NodeID: 10},
		}}, nil
	})

	dests, err := m.GetAssociations(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetAssociations error = %v", err)
	}
	group1 := dests[1]
	if len(group1) != 2 {
		t.Fatalf("group 1 destinations = %v, want exactly 2 after dedup", group1)
	}
}

func TestAddAssociations_InvalidGroup(t *testing.T) {
	m, registry := newAssocFixture()
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)
	n.AddCC(core.CCAssociation, core.CCInfo{Version: 1})
	registry.Set(n)

	err := m.AddAssociations(context.Background(), 2, 2, []core.Association{{NodeID: ownID}})
	if err == nil {
		t.Fatal("AddAssociations on a group beyond the node's group count returned nil error")
	}
	if _, ok := err.(*core.AssociationInvalidGroupError); !ok {
		t.Errorf("error = %T, want *core.AssociationInvalidGroupError", err)
	}
}

func TestAddAssociations_LifelineToOwnID(t *testing.T) {
	m, registry := newAssocFixture()
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)
	n.AddCC(core.CCAssociation, core.CCInfo{Version: 1})
	registry.Set(n)

	var sent core.AssociationSetRequest
	tr.SetResponder(core.FunctionTypeAssociationSet, func(req any) (any, error) {
		sent = req.(core.AssociationSetRequest)
		return nil, nil
	})

	if err := m.AddAssociations(context.Background(), 2, 1, []core.Association{{NodeID: ownID}}); err != nil {
		t.Fatalf("AddAssociations(lifeline, ownID) error = %v", err)
	}
	if len(sent.Destinations) != 1 || sent.Destinations[0].NodeID != ownID {
		t.Errorf("AssociationSet destinations = %v, want [ownID]", sent.Destinations)
	}
}

func TestAddAssociations_RejectsDisallowedTarget(t *testing.T) {
	m, registry := newAssocFixture()
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)
	n.AddCC(core.CCAssociation, core.CCInfo{Version: 1})
	n.AddCC(core.CCAssociationGroupInfo, core.CCInfo{Version: 1})
	registry.Set(n)

	tr.SetResponder(core.FunctionTypeAssociationGroupInfoGet, func(any) (any, error) {
		return AGIGroupInfoGetResponse{Name: "sensor", IssuedCCs: []core.CommandClass{core.CCSwitchBinary}}, nil
	})

	target := core.NewNode(3, nil, nil)
	target.SetEndpoint(core.EndpointInfo{Index: 0, SupportedCCs: map[core.CommandClass]struct{}{
		core.CCBasic: {},
	}})
	registry.Set(target)

	var sent bool
	tr.SetResponder(core.FunctionTypeAssociationSet, func(any) (any, error) {
		sent = true
		return nil, nil
	})

	ep := uint8(0)
	err := m.AddAssociations(context.Background(), 2, 1, []core.Association{{NodeID: 3, Endpoint: &ep}})
	if err == nil {
		t.Fatal("AddAssociations with a disallowed target returned nil error")
	}
	if _, ok := err.(*core.AssociationNotAllowedError); !ok {
		t.Errorf("error = %T, want *core.AssociationNotAllowedError", err)
	}
	if sent {
		t.Error("Association Set was sent to the stick despite the target being disallowed")
	}
}

func TestIsAssociationAllowed_DisallowedByIssuedCC(t *testing.T) {
	m, registry := newAssocFixture()
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)
	n.AddCC(core.CCAssociation, core.CCInfo{Version: 1})
	n.AddCC(core.CCAssociationGroupInfo, core.CCInfo{Version: 1})
	registry.Set(n)

	tr.SetResponder(core.FunctionTypeAssociationGroupInfoGet, func(any) (any, error) {
		return AGIGroupInfoGetResponse{Name: "sensor", IssuedCCs: []core.CommandClass{core.CCSwitchBinary}}, nil
	})

	target := core.NewNode(3, nil, nil)
	target.SetEndpoint(core.EndpointInfo{Index: 0, SupportedCCs: map[core.CommandClass]struct{}{
		core.CCBasic: {},
	}})
	registry.Set(target)

	ep := uint8(0)
	allowed, err := m.IsAssociationAllowed(context.Background(), 2, 1, core.Association{NodeID: 3, Endpoint: &ep})
	if err != nil {
		t.Fatalf("IsAssociationAllowed error = %v", err)
	}
	if allowed {
		t.Error("target endpoint supporting only CCBasic (not an actuator CC) was allowed against a group issuing CCSwitchBinary")
	}
}

func TestIsAssociationAllowed_AllowedByMatchingIssuedCC(t *testing.T) {
	m, registry := newAssocFixture()
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)
	n.AddCC(core.CCAssociation, core.CCInfo{Version: 1})
	n.AddCC(core.CCAssociationGroupInfo, core.CCInfo{Version: 1})
	registry.Set(n)

	tr.SetResponder(core.FunctionTypeAssociationGroupInfoGet, func(any) (any, error) {
		return AGIGroupInfoGetResponse{Name: "sensor", IssuedCCs: []core.CommandClass{core.CCSwitchBinary}}, nil
	})

	target := core.NewNode(3, nil, nil)
	target.SetEndpoint(core.EndpointInfo{Index: 0, SupportedCCs: map[core.CommandClass]struct{}{
		core.CCSwitchBinary: {},
	}})
	registry.Set(target)

	ep := uint8(0)
	allowed, err := m.IsAssociationAllowed(context.Background(), 2, 1, core.Association{NodeID: 3, Endpoint: &ep})
	if err != nil {
		t.Fatalf("IsAssociationAllowed error = %v", err)
	}
	if !allowed {
		t.Error("target endpoint supporting the issued CC was disallowed")
	}
}
