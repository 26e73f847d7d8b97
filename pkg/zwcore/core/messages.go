package core

import "time"

// FunctionType codes used by the controller core. Values are illustrative
// (wire encoding is a non-goal, spec.md §1) but stable within this module so
// tests and RejectTransactions predicates can match on them.
const (
	FunctionTypePing FunctionType = iota + 1
	FunctionTypeGetControllerVersion
	FunctionTypeGetControllerIDs
	FunctionTypeGetControllerCapabilities
	FunctionTypeSerialAPIGetCapabilities
	FunctionTypeSetSerialAPITimeouts
	FunctionTypeGetSUCNodeID
	FunctionTypeSetSUCNodeID
	FunctionTypeGetSerialAPIInitData
	FunctionTypeHardReset

	FunctionTypeAddNodeToNetwork
	FunctionTypeRemoveNodeFromNetwork
	FunctionTypeReplaceFailedNode
	FunctionTypeRemoveFailedNode

	FunctionTypeRequestNodeNeighborUpdate
	FunctionTypeGetRoutingInfo
	FunctionTypeDeleteReturnRoute
	FunctionTypeAssignReturnRoute
	FunctionTypeAssignSUCReturnRoute

	FunctionTypeSecuritySchemeGet
	FunctionTypeSecurityNonceGet
	FunctionTypeSecurityNetworkKeySet
	FunctionTypeSecurityInheritScheme

	FunctionTypeVersionCCGet
	FunctionTypeWakeUpCCInterview

	FunctionTypeAssociationGet
	FunctionTypeAssociationSet
	FunctionTypeAssociationRemove
	FunctionTypeMultiChannelAssociationGet
	FunctionTypeMultiChannelAssociationSet
	FunctionTypeMultiChannelAssociationRemove
	FunctionTypeAssociationGroupInfoGet
)

// DefaultPingExpiry bounds a single ping round-trip.
const DefaultPingExpiry = 3 * time.Second

// PingRequest/PingResponse implement node liveness checks used by
// replace/remove-failed-node (spec.md §4.2, §4.7).
type PingRequest struct{ NodeID uint8 }
type PingResponse struct{ NodeID uint8 }

// GetRoutingInfoRequest/Response back heal phase 2 (spec.md §4.5).
type GetRoutingInfoRequest struct{ NodeID uint8 }
type GetRoutingInfoResponse struct{ Neighbors []uint8 }

// ControllerVersionResponse answers interview query 1 (spec.md §4.1).
type ControllerVersionResponse struct {
	LibraryVersion string
	LibraryType    LibraryType
}

// ControllerIDsResponse answers interview query 2.
type ControllerIDsResponse struct {
	HomeID    uint32
	OwnNodeID uint8
}

// ControllerCapabilitiesResponse answers interview query 3.
type ControllerCapabilitiesResponse struct {
	IsSecondary                   bool
	IsUsingHomeIdFromOtherNetwork bool
	IsSISPresent                  bool
	WasRealPrimary                bool
	IsStaticUpdateController      bool
}

// SerialAPICapabilitiesResponse answers interview query 4.
type SerialAPICapabilitiesResponse struct {
	SerialAPIVersion   string
	ManufacturerID     uint16
	ProductType        uint16
	ProductID          uint16
	SupportedFunctions []FunctionType
}

// GetSUCNodeIDResponse answers interview query 5.
type GetSUCNodeIDResponse struct{ SUCNodeID uint8 }

// SetSUCNodeIDRequest promotes the controller to SUC/SIS (spec.md §4.1 and
// scenario 1 in spec.md §8).
type SetSUCNodeIDRequest struct {
	SUCNodeID  uint8
	EnableSUC  bool
	EnableSIS  bool
}
type SetSUCNodeIDResponse struct{ OK bool }

// SetSerialAPITimeoutsRequest pushes the configured ack/byte timeouts.
type SetSerialAPITimeoutsRequest struct {
	Ack  time.Duration
	Byte time.Duration
}

// GetSerialAPIInitDataResponse carries the bootstrap node-id list.
type GetSerialAPIInitDataResponse struct {
	NodeIDs []uint8
}

// HardResetRequest/Confirmation back C4.8.
type HardResetRequest struct{}
type HardResetConfirmation struct{}

// AddNodeStatus enumerates AddNodeToNetwork status reports (spec.md §4.2).
type AddNodeStatus int

const (
	AddNodeStatusReady AddNodeStatus = iota
	AddNodeStatusFailed
	AddNodeStatusAddingController
	AddNodeStatusAddingSlave
	AddNodeStatusProtocolDone
	AddNodeStatusDone
)

// AddNodeToNetworkRequest begins/stops inclusion.
type AddNodeToNetworkRequest struct {
	Stop          bool
	HighPower     bool
	NetworkWide   bool
}

// AddNodeStatusReport is delivered to the handler registered by
// beginInclusion (spec.md §4.2's inclusion table).
type AddNodeStatusReport struct {
	Status       AddNodeStatus
	NewNodeID    uint8 // valid when Status is AddingSlave/AddingController/Done
	Basic        uint8
	Generic      uint8
	Specific     uint8
	SupportedCCs []CommandClass
	ControlledCCs []CommandClass
}

// BroadcastNodeID is the node id used to signal "no node" in a Done report.
const BroadcastNodeID uint8 = 0xFF

// RemoveNodeStatus enumerates RemoveNodeFromNetwork status reports.
type RemoveNodeStatus int

const (
	RemoveNodeStatusReady RemoveNodeStatus = iota
	RemoveNodeStatusFailed
	RemoveNodeStatusRemovingController
	RemoveNodeStatusRemovingSlave
	RemoveNodeStatusDone
)

// RemoveNodeFromNetworkRequest begins/stops exclusion.
type RemoveNodeFromNetworkRequest struct {
	Stop bool
}

// RemoveNodeStatusReport is delivered to the handler registered by beginExclusion.
type RemoveNodeStatusReport struct {
	Status    RemoveNodeStatus
	NodeID    uint8
}

// ReplaceFailedNodeRequest/Response implement C4's replace-failed flow step 3.
type ReplaceFailedNodeRequest struct{ NodeID uint8 }

// ReplaceFailedNodeStartFlag enumerates reasons a replace could not start.
type ReplaceFailedNodeStartFlag int

const (
	ReplaceFailedStartNodeNotFound ReplaceFailedNodeStartFlag = 1 << iota
	ReplaceFailedStartNodeRemoved
	ReplaceFailedStartBusy
	ReplaceFailedStartTransmitFailed
)

// ReplaceFailedNodeResponse reports whether the start request was accepted
// and, if not, which start-flags were set.
type ReplaceFailedNodeResponse struct {
	OK         bool
	StartFlags ReplaceFailedNodeStartFlag
}

// ReplaceFailedNodeStatus enumerates ReplaceFailedNode status reports
// (spec.md §4.2's replace table).
type ReplaceFailedNodeStatus int

const (
	ReplaceFailedNodeStatusNodeOK ReplaceFailedNodeStatus = iota
	ReplaceFailedNodeStatusReplaceFailed
	ReplaceFailedNodeStatusReplace
	ReplaceFailedNodeStatusReplaceDone
)

// ReplaceFailedNodeStatusReport is delivered to the handler registered
// inside replaceFailedNode.
type ReplaceFailedNodeStatusReport struct {
	Status        ReplaceFailedNodeStatus
	Basic         uint8
	Generic       uint8
	Specific      uint8
	SupportedCCs  []CommandClass
	ControlledCCs []CommandClass
}

// RemoveFailedNodeRequest/Response implement C4.7.
type RemoveFailedNodeRequest struct{ NodeID uint8 }

// RemoveFailedNodeStartFlag enumerates reasons a remove could not start.
type RemoveFailedNodeStartFlag int

const (
	RemoveFailedStartNodeNotFound RemoveFailedNodeStartFlag = 1 << iota
	RemoveFailedStartNotPrimary
	RemoveFailedStartBusy
)

// RemoveFailedNodeResponse reports whether the request carries start-flags
// (failure to start) or will be followed by a status report.
type RemoveFailedNodeResponse struct {
	StartFlags RemoveFailedNodeStartFlag
	HasStartFlags bool
}

// RemoveFailedNodeStatus enumerates RemoveFailedNode status reports
// (spec.md §4.7).
type RemoveFailedNodeStatus int

const (
	RemoveFailedNodeStatusOK RemoveFailedNodeStatus = iota
	RemoveFailedNodeStatusNotRemoved
	RemoveFailedNodeStatusRemoved
)

// RemoveFailedNodeStatusReport is delivered to the handler registered by removeFailedNode.
type RemoveFailedNodeStatusReport struct {
	Status RemoveFailedNodeStatus
}

// RequestNodeNeighborUpdateRequest/Report implement heal phase 1.
type RequestNodeNeighborUpdateRequest struct{ NodeID uint8 }

// NeighborUpdateStatus enumerates RequestNodeNeighborUpdate status reports.
type NeighborUpdateStatus int

const (
	NeighborUpdateStarted NeighborUpdateStatus = iota
	NeighborUpdateDone
	NeighborUpdateFailed
)

type RequestNodeNeighborUpdateReport struct {
	Status NeighborUpdateStatus
}

// DeleteReturnRouteRequest implements heal phase 3.
type DeleteReturnRouteRequest struct{ NodeID uint8 }
type DeleteReturnRouteResponse struct{ OK bool }

// AssignReturnRouteRequest implements heal phase 4.
type AssignReturnRouteRequest struct {
	SourceNodeID uint8
	DestNodeID   uint8
}
type AssignReturnRouteResponse struct{ OK bool }

// AssignSUCReturnRouteRequest assigns a route back to the SUC, issued on
// inclusion/replace completion (spec.md §4.2).
type AssignSUCReturnRouteRequest struct{ NodeID uint8 }
type AssignSUCReturnRouteResponse struct{ OK bool }

// Security CC messages (spec.md §4.3).
type SecuritySchemeGetRequest struct{ NodeID uint8 }
type SecuritySchemeGetResponse struct{ Scheme int }

type SecurityNonceGetRequest struct{ NodeID uint8 }
type SecurityNonceGetResponse struct{ Nonce [8]byte }

type SecurityNetworkKeySetRequest struct {
	NodeID     uint8
	NetworkKey [16]byte
}
type SecurityNetworkKeySetResponse struct{ OK bool }

type SecurityInheritSchemeRequest struct{ NodeID uint8 }
type SecurityInheritSchemeResponse struct{ OK bool }

// Version CC query (spec.md §4.4).
type VersionCCGetRequest struct {
	NodeID uint8
	CC     CommandClass
}
type VersionCCGetResponse struct{ Version int }

// Wake-Up CC interview (spec.md §4.4).
type WakeUpCCInterviewRequest struct{ NodeID uint8 }
type WakeUpCCInterviewResponse struct{ OK bool }

// Association CC messages (spec.md §4.6).
type AssociationGetRequest struct {
	NodeID  uint8
	GroupID uint8
}
type AssociationGetResponse struct {
	MaxNodes  uint8
	Targets   []Association
}

type AssociationSetRequest struct {
	NodeID       uint8
	GroupID      uint8
	Destinations []Association
}
type AssociationSetResponse struct{ OK bool }

type AssociationRemoveRequest struct {
	NodeID       uint8
	GroupID      uint8
	Destinations []Association
}
type AssociationRemoveResponse struct{ OK bool }

// Multi-Channel Association CC messages mirror plain Association.
type MultiChannelAssociationGetRequest = AssociationGetRequest
type MultiChannelAssociationGetResponse = AssociationGetResponse
type MultiChannelAssociationSetRequest = AssociationSetRequest
type MultiChannelAssociationSetResponse = AssociationSetResponse
type MultiChannelAssociationRemoveRequest = AssociationRemoveRequest
type MultiChannelAssociationRemoveResponse = AssociationRemoveResponse
