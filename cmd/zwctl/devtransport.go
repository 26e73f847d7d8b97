package main

import (
	"github.com/zwave-network/zwcore/pkg/zwcore/core"
	"github.com/zwave-network/zwcore/pkg/zwcore/transport"
)

// newDevTransport builds a Fake transport pre-seeded with the interview
// responses for a single simulated stick. Serial-port framing is explicitly
// out of scope for this module (spec.md §1's non-goals), so zwctl has no
// real driver to attach; this lets the CLI stand up a Controller against a
// predictable in-memory stick instead of requiring one.
func newDevTransport(homeID uint32, ownNodeID uint8) *transport.Fake {
	t := transport.NewFake()

	t.SetResponder(core.FunctionTypeGetControllerVersion, func(any) (any, error) {
		return core.ControllerVersionResponse{
			LibraryVersion: "Z-Wave 6.81",
			LibraryType:    core.LibraryTypeStaticController,
		}, nil
	})
	t.SetResponder(core.FunctionTypeGetControllerIDs, func(any) (any, error) {
		return core.ControllerIDsResponse{HomeID: homeID, OwnNodeID: ownNodeID}, nil
	})
	t.SetResponder(core.FunctionTypeGetControllerCapabilities, func(any) (any, error) {
		return core.ControllerCapabilitiesResponse{}, nil
	})
	t.SetResponder(core.FunctionTypeSerialAPIGetCapabilities, func(any) (any, error) {
		return core.SerialAPICapabilitiesResponse{
			SerialAPIVersion: "1.0",
			SupportedFunctions: []core.FunctionType{
				core.FunctionTypeSetSerialAPITimeouts,
				core.FunctionTypeSetSUCNodeID,
				core.FunctionTypeAddNodeToNetwork,
				core.FunctionTypeRemoveNodeFromNetwork,
				core.FunctionTypeReplaceFailedNode,
				core.FunctionTypeRemoveFailedNode,
			},
		}, nil
	})
	t.SetResponder(core.FunctionTypeGetSUCNodeID, func(any) (any, error) {
		return core.GetSUCNodeIDResponse{SUCNodeID: 0}, nil
	})
	t.SetResponder(core.FunctionTypeSetSUCNodeID, func(req any) (any, error) {
		return core.SetSUCNodeIDResponse{OK: true}, nil
	})
	t.SetResponder(core.FunctionTypeSetSerialAPITimeouts, func(any) (any, error) {
		return struct{}{}, nil
	})
	t.SetResponder(core.FunctionTypeGetSerialAPIInitData, func(any) (any, error) {
		return core.GetSerialAPIInitDataResponse{NodeIDs: []uint8{ownNodeID}}, nil
	})
	return t
}
