package lifeline

import (
	"context"
	"testing"

	"github.com/zwave-network/zwcore/pkg/zwcore/core"
	"github.com/zwave-network/zwcore/pkg/zwcore/transport"
)

const ownID uint8 = 1

func TestRun_NotZWavePlus_NoOp(t *testing.T) {
	b := NewBootstrap(ownID)
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)
	n.AddCC(core.CCAssociation, core.CCInfo{Version: 1})

	if err := b.Run(context.Background(), n); err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if len(tr.Sent()) != 0 {
		t.Errorf("transport calls = %v, want none for a non-Z-Wave-Plus node", tr.Sent())
	}
}

func TestRun_AssignsLifelineAndReturnRoute(t *testing.T) {
	b := NewBootstrap(ownID)
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)
	n.AddCC(core.CCZWavePlusInfo, core.CCInfo{Version: 1})
	n.AddCC(core.CCAssociation, core.CCInfo{Version: 1})

	var sent core.AssociationSetRequest
	tr.SetResponder(core.FunctionTypeAssociationSet, func(req any) (any, error) {
		sent = req.(core.AssociationSetRequest)
		return nil, nil
	})
	tr.SetResponder(core.FunctionTypeAssignSUCReturnRoute, func(any) (any, error) {
		return core.AssignSUCReturnRouteResponse{OK: true}, nil
	})

	if err := b.Run(context.Background(), n); err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if sent.GroupID != lifelineGroup {
		t.Errorf("AssociationSet group = %d, want %d", sent.GroupID, lifelineGroup)
	}
	if len(sent.Destinations) != 1 || sent.Destinations[0].NodeID != ownID {
		t.Errorf("AssociationSet destinations = %v, want [ownID]", sent.Destinations)
	}
	if !n.HasSUCReturnRoute() {
		t.Error("node does not have a SUC return route after a successful assignment")
	}
}

func TestRun_AssignsMultiChannelLifeline(t *testing.T) {
	b := NewBootstrap(ownID)
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)
	n.AddCC(core.CCZWavePlusInfo, core.CCInfo{Version: 1})
	n.AddCC(core.CCMultiChannelAssociation, core.CCInfo{Version: 1})

	var calledMC bool
	tr.SetResponder(core.FunctionTypeMultiChannelAssociationSet, func(req any) (any, error) {
		calledMC = true
		r := req.(core.AssociationSetRequest)
		if len(r.Destinations) != 1 || r.Destinations[0].Endpoint == nil || *r.Destinations[0].Endpoint != 0 {
			t.Errorf("multi-channel lifeline destination = %v, want endpoint 0", r.Destinations)
		}
		return nil, nil
	})
	tr.SetResponder(core.FunctionTypeAssignSUCReturnRoute, func(any) (any, error) {
		return core.AssignSUCReturnRouteResponse{OK: true}, nil
	})

	if err := b.Run(context.Background(), n); err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if !calledMC {
		t.Error("multi-channel association set never sent for a node advertising Multi Channel Association")
	}
}

func TestRun_WakeUpBootstrap(t *testing.T) {
	b := NewBootstrap(ownID)
	tr := transport.NewFake()
	n := core.NewNode(2, tr, nil)
	n.AddCC(core.CCWakeUp, core.CCInfo{})

	tr.SetResponder(core.FunctionTypeVersionCCGet, func(any) (any, error) {
		return core.VersionCCGetResponse{Version: 2}, nil
	})
	var interviewed bool
	tr.SetResponder(core.FunctionTypeWakeUpCCInterview, func(any) (any, error) {
		interviewed = true
		return nil, nil
	})

	if err := b.Run(context.Background(), n); err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if !interviewed {
		t.Error("Wake Up CC interview never sent")
	}
	info, ok := n.CCInfo(core.CCWakeUp)
	if !ok || info.Version != 2 {
		t.Errorf("CCWakeUp info = %+v, want version 2 from VersionCCGet", info)
	}
}

func TestRun_PropagatesNonRecoverableError(t *testing.T) {
	b := NewBootstrap(ownID)
	n := core.NewNode(2, nil, nil)
	n.AddCC(core.CCZWavePlusInfo, core.CCInfo{Version: 1})
	n.AddCC(core.CCAssociation, core.CCInfo{Version: 1})

	err := b.Run(context.Background(), n)
	if _, ok := err.(*core.DriverNotReadyError); !ok {
		t.Fatalf("Run error = %v, want *core.DriverNotReadyError to propagate without a transport", err)
	}
}
