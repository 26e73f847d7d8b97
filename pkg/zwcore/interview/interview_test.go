package interview

import (
	"context"
	"testing"

	"github.com/zwave-network/zwcore/pkg/zwcore/core"
	"github.com/zwave-network/zwcore/pkg/zwcore/transport"
)

func setResponders(tr *transport.Fake, nodeIDs []uint8) {
	tr.SetResponder(core.FunctionTypeGetControllerVersion, func(any) (any, error) {
		return core.ControllerVersionResponse{LibraryVersion: "7.19", LibraryType: core.LibraryTypeStaticController}, nil
	})
	tr.SetResponder(core.FunctionTypeGetControllerIDs, func(any) (any, error) {
		return core.ControllerIDsResponse{HomeID: 0xCAFEBABE, OwnNodeID: 1}, nil
	})
	tr.SetResponder(core.FunctionTypeGetControllerCapabilities, func(any) (any, error) {
		return core.ControllerCapabilitiesResponse{}, nil
	})
	tr.SetResponder(core.FunctionTypeSerialAPIGetCapabilities, func(any) (any, error) {
		return core.SerialAPICapabilitiesResponse{SerialAPIVersion: "1.0", ManufacturerID: 1, ProductType: 2, ProductID: 3}, nil
	})
	tr.SetResponder(core.FunctionTypeGetSUCNodeID, func(any) (any, error) {
		return core.GetSUCNodeIDResponse{SUCNodeID: 0}, nil
	})
	tr.SetResponder(core.FunctionTypeGetSerialAPIInitData, func(any) (any, error) {
		return core.GetSerialAPIInitDataResponse{NodeIDs: nodeIDs}, nil
	})
}

func newTestOrchestrator(tr *transport.Fake, nodeIDs []uint8, cache core.Cache) (*Orchestrator, *core.Identity, *core.Registry) {
	identity := core.NewIdentity()
	registry := core.NewRegistry()
	hooks := Hooks{
		InitValueDBs:     func(context.Context) (PerNodeStore, error) { return func(uint8) core.NodeValueStore { return nil }, nil },
		RestoreFromCache: func(context.Context) (core.Cache, error) { return cache, nil },
	}
	o := New(tr, identity, registry, hooks, core.Timeouts{})
	return o, identity, registry
}

func TestOrchestrator_PromotesToSUC(t *testing.T) {
	tr := transport.NewFake()
	setResponders(tr, []uint8{1})

	var promoted core.SetSUCNodeIDRequest
	tr.SetResponder(core.FunctionTypeSetSUCNodeID, func(req any) (any, error) {
		promoted = req.(core.SetSUCNodeIDRequest)
		return core.SetSUCNodeIDResponse{OK: true}, nil
	})

	o, identity, _ := newTestOrchestrator(tr, []uint8{1}, core.Cache{Nodes: map[string]core.NodeCache{}})
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run error = %v", err)
	}

	if !promoted.EnableSUC || !promoted.EnableSIS {
		t.Errorf("SetSUCNodeID request = %+v, want EnableSUC and EnableSIS set", promoted)
	}
	if identity.SUCNodeID() != identity.OwnNodeID() {
		t.Errorf("SUCNodeID = %d, want own node id %d after self-promotion", identity.SUCNodeID(), identity.OwnNodeID())
	}
	if !identity.IsStaticUpdateController() {
		t.Error("IsStaticUpdateController = false after self-promotion")
	}
}

func TestOrchestrator_DoesNotPromoteWhenSISPresent(t *testing.T) {
	tr := transport.NewFake()
	setResponders(tr, []uint8{1})
	tr.SetResponder(core.FunctionTypeGetControllerCapabilities, func(any) (any, error) {
		return core.ControllerCapabilitiesResponse{IsSISPresent: true}, nil
	})

	called := false
	tr.SetResponder(core.FunctionTypeSetSUCNodeID, func(any) (any, error) {
		called = true
		return core.SetSUCNodeIDResponse{OK: true}, nil
	})

	o, identity, _ := newTestOrchestrator(tr, []uint8{1}, core.Cache{Nodes: map[string]core.NodeCache{}})
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if called {
		t.Error("SetSUCNodeID was sent even though an SIS is already present")
	}
	if identity.IsStaticUpdateController() {
		t.Error("IsStaticUpdateController = true without ever promoting")
	}
}

func TestOrchestrator_SeedsRegistryFromCache(t *testing.T) {
	tr := transport.NewFake()
	setResponders(tr, []uint8{1, 5})
	tr.SetResponder(core.FunctionTypeSetSUCNodeID, func(any) (any, error) {
		return core.SetSUCNodeIDResponse{OK: true}, nil
	})

	cache := core.Cache{Nodes: map[string]core.NodeCache{
		"5": {ID: 5, IsSecure: true, SupportedCCs: map[core.CommandClass]core.CCInfo{
			core.CCBasic: {Version: 1},
		}},
	}}

	o, _, registry := newTestOrchestrator(tr, []uint8{1, 5}, cache)
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("Run error = %v", err)
	}

	n, ok := registry.Get(5)
	if !ok {
		t.Fatal("node 5 not seeded into the registry")
	}
	if !n.IsSecure() {
		t.Error("node 5 restored from cache lost its secure flag")
	}
	if !n.SupportsCC(core.CCBasic) {
		t.Error("node 5 restored from cache lost its supported CC")
	}

	if _, ok := registry.Get(1); !ok {
		t.Error("own controller node (not present in cache) was not created fresh")
	}
}

func TestOrchestrator_AbortsOnTransportError(t *testing.T) {
	tr := transport.NewFake()
	tr.SetResponder(core.FunctionTypeGetControllerVersion, func(any) (any, error) {
		return nil, &core.NodeTimeoutError{Step: "get controller version"}
	})
	o, identity, _ := newTestOrchestrator(tr, nil, core.Cache{Nodes: map[string]core.NodeCache{}})

	if err := o.Run(context.Background()); err == nil {
		t.Fatal("Run with a failing first query returned nil error")
	}
	if identity.IsReady() {
		t.Error("identity marked ready after an aborted interview")
	}
}
