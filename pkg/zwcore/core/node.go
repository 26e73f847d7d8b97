package core

import (
	"context"
	"strconv"
	"sync"
)

// NodeStatus tracks liveness as observed by the controller.
type NodeStatus int

const (
	NodeStatusUnknown NodeStatus = iota
	NodeStatusAlive
	NodeStatusAsleep
	NodeStatusDead
)

// InterviewStage tracks how far a node's own (device-level) interview has
// progressed. Heal eligibility (spec.md §4.5) depends on whether a sleeping
// node ever advanced past ProtocolInfo.
type InterviewStage int

const (
	InterviewStageNone InterviewStage = iota
	InterviewStageProtocolInfo
	InterviewStageNodeInfo
	InterviewStageComplete
)

// CommandClass identifies a Z-Wave command class by its protocol code.
// Command-class-specific behavior beyond "does node N support capability C"
// is out of scope (spec.md §1); CommandClass is an opaque comparable code.
type CommandClass uint8

// Command classes referenced by name elsewhere in the controller core.
const (
	CCBasic                    CommandClass = 0x20
	CCAssociation               CommandClass = 0x85
	CCAssociationGroupInfo      CommandClass = 0x59
	CCMultiChannelAssociation   CommandClass = 0x8E
	CCMultiChannel              CommandClass = 0x60
	CCVersion                   CommandClass = 0x86
	CCSecurity                  CommandClass = 0x98
	CCWakeUp                    CommandClass = 0x84
	CCZWavePlusInfo             CommandClass = 0x5E
	CCSwitchMultilevel          CommandClass = 0x26
	CCSwitchBinary              CommandClass = 0x25
)

// CCInfo records what the controller knows about a node's support for one
// command class.
type CCInfo struct {
	Version   int
	IsSecure  bool
	Version1  bool // true if added without a version query (replace-without-NIF, spec.md §4.3 step 1)
}

// DeviceClass is the basic/generic/specific device class triple advertised
// on inclusion.
type DeviceClass struct {
	Basic    uint8
	Generic  uint8
	Specific uint8
}

// EndpointInfo describes one multi-channel endpoint's capabilities, enough
// to support association admissibility checks (spec.md §4.6).
type EndpointInfo struct {
	Index        uint8
	SupportedCCs map[CommandClass]struct{}
}

// SupportsAnyCC reports whether the endpoint supports at least one of ccs.
func (e EndpointInfo) SupportsAnyCC(ccs map[CommandClass]struct{}) bool {
	for cc := range ccs {
		if _, ok := e.SupportedCCs[cc]; ok {
			return true
		}
	}
	return false
}

// SupportsCC reports whether the endpoint supports cc.
func (e EndpointInfo) SupportsCC(cc CommandClass) bool {
	_, ok := e.SupportedCCs[cc]
	return ok
}

// NodeValueStore is the minimal per-node value store contract Node depends
// on (spec.md §1's "Value store" external collaborator). The concrete
// implementation lives in package valuestore.
type NodeValueStore interface {
	Set(table, key, field string, value string) error
	Get(table, key, field string) (string, bool)
}

// Node is the controller's model of a participating network member
// (spec.md §6's "Node contract"). Interview-stage CC negotiation, wire
// encoding of CC payloads, and persistence format are non-goals (spec.md
// §1); Node exposes the generic capability surface (supportsCC et al.) the
// rest of the controller drives.
type Node struct {
	mu sync.RWMutex

	id             uint8
	status         NodeStatus
	interviewStage InterviewStage

	deviceClass DeviceClass

	supportedCCs  map[CommandClass]CCInfo
	controlledCCs map[CommandClass]CCInfo

	endpoints map[uint8]EndpointInfo // endpoint 0 is the root device

	isSecure          bool
	hasSUCReturnRoute bool

	deviceConfig *DeviceConfig

	valueDB NodeValueStore

	transport Transport

	listeners []func(Event)
}

// NewNode constructs a bare node with the given id, ready to be populated by
// the interview orchestrator or an inclusion/replace commit.
func NewNode(id uint8, t Transport, vdb NodeValueStore) *Node {
	return &Node{
		id:            id,
		supportedCCs:  make(map[CommandClass]CCInfo),
		controlledCCs: make(map[CommandClass]CCInfo),
		endpoints:     map[uint8]EndpointInfo{0: {Index: 0, SupportedCCs: make(map[CommandClass]struct{})}},
		valueDB:       vdb,
		transport:     t,
	}
}

// ID returns the node's id.
func (n *Node) ID() uint8 { n.mu.RLock(); defer n.mu.RUnlock(); return n.id }

// Status returns the cached liveness status.
func (n *Node) Status() NodeStatus { n.mu.RLock(); defer n.mu.RUnlock(); return n.status }

// MarkAsAlive records that the node has responded recently.
func (n *Node) MarkAsAlive() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = NodeStatusAlive
}

// MarkAsAsleep records that the node is a sleeping device awaiting a wake-up.
func (n *Node) MarkAsAsleep() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = NodeStatusAsleep
}

// MarkAsDead records that the node is known unreachable.
func (n *Node) MarkAsDead() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = NodeStatusDead
}

// InterviewStage returns how far the node's own interview progressed.
func (n *Node) InterviewStage() InterviewStage {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.interviewStage
}

// SetInterviewStage advances the node's own interview stage.
func (n *Node) SetInterviewStage(s InterviewStage) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.interviewStage = s
}

// DeviceClass returns the basic/generic/specific device class triple.
func (n *Node) DeviceClass() DeviceClass { n.mu.RLock(); defer n.mu.RUnlock(); return n.deviceClass }

// SetDeviceClass sets the device class triple, normally from inclusion context.
func (n *Node) SetDeviceClass(dc DeviceClass) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deviceClass = dc
}

// SupportsCC reports whether the node advertises support for cc.
func (n *Node) SupportsCC(cc CommandClass) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.supportedCCs[cc]
	return ok
}

// CCInfo returns the cached info for a supported CC, if any.
func (n *Node) CCInfo(cc CommandClass) (CCInfo, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	info, ok := n.supportedCCs[cc]
	return info, ok
}

// AddCC records support for a command class. Used during inclusion (from
// the NIF) and by the S0 bootstrap's "assume secure" fallback (spec.md
// §4.3 step 1).
func (n *Node) AddCC(cc CommandClass, info CCInfo) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.supportedCCs[cc] = info
	n.endpoints[0].SupportedCCs[cc] = struct{}{}
}

// RemoveCC drops a command class, e.g. when S0 bootstrap fails and Security
// must be un-advertised (spec.md §4.3).
func (n *Node) RemoveCC(cc CommandClass) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.supportedCCs, cc)
	delete(n.endpoints[0].SupportedCCs, cc)
}

// AddControlledCC records a command class the node can issue (not just receive).
func (n *Node) AddControlledCC(cc CommandClass, info CCInfo) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.controlledCCs[cc] = info
}

// SupportedCommandClasses returns a snapshot of the supported-CC set.
func (n *Node) SupportedCommandClasses() map[CommandClass]CCInfo {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[CommandClass]CCInfo, len(n.supportedCCs))
	for k, v := range n.supportedCCs {
		out[k] = v
	}
	return out
}

// IsZWavePlus reports whether the node advertises the Z-Wave Plus Info CC.
func (n *Node) IsZWavePlus() bool { return n.SupportsCC(CCZWavePlusInfo) }

// IsSecure reports the cached S0 bootstrap outcome.
func (n *Node) IsSecure() bool { n.mu.RLock(); defer n.mu.RUnlock(); return n.isSecure }

// SetSecure sets the S0 bootstrap outcome.
func (n *Node) SetSecure(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.isSecure = v
}

// HasSUCReturnRoute reports whether a SUC return route has been assigned.
func (n *Node) HasSUCReturnRoute() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.hasSUCReturnRoute
}

// SetHasSUCReturnRoute records whether a SUC return route has been assigned.
func (n *Node) SetHasSUCReturnRoute(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hasSUCReturnRoute = v
}

// DeviceConfig returns the device-config table entry, if one is loaded.
func (n *Node) DeviceConfig() *DeviceConfig { n.mu.RLock(); defer n.mu.RUnlock(); return n.deviceConfig }

// SetDeviceConfig installs the device-config table entry for this node.
func (n *Node) SetDeviceConfig(c *DeviceConfig) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deviceConfig = c
}

// Endpoint returns endpoint info by index. The root device is endpoint 0.
func (n *Node) Endpoint(index uint8) (EndpointInfo, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	e, ok := n.endpoints[index]
	return e, ok
}

// SetEndpoint installs or replaces endpoint info.
func (n *Node) SetEndpoint(e EndpointInfo) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.endpoints[e.Index] = e
}

// EndpointCount returns the number of known endpoints, including the root.
func (n *Node) EndpointCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.endpoints)
}

// ValueDB returns the node's per-node value store.
func (n *Node) ValueDB() NodeValueStore { n.mu.RLock(); defer n.mu.RUnlock(); return n.valueDB }

// SetValueDB installs the node's per-node value store (set once at
// interview/inclusion time).
func (n *Node) SetValueDB(vdb NodeValueStore) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.valueDB = vdb
}

// Transport returns the transport this node issues its own CC actions
// through (version query, security handshake, association queries, ...).
func (n *Node) Transport() Transport { n.mu.RLock(); defer n.mu.RUnlock(); return n.transport }

// AddListener registers a node-level listener. RemoveAllListeners (called on
// hard reset, spec.md §4.8) clears them.
func (n *Node) AddListener(fn func(Event)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

// RemoveAllListeners clears every node-level listener.
func (n *Node) RemoveAllListeners() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = nil
}

// Ping issues a no-op NOP/ping request and reports whether the node
// responded. Used by replace-failed-node and remove-failed-node to refuse
// operating on a node that is not actually failed (spec.md §4.2, §4.7).
func (n *Node) Ping(ctx context.Context) bool {
	t := n.Transport()
	if t == nil {
		return false
	}
	resp, err := t.SendMessage(ctx, FunctionTypePing, PingRequest{NodeID: n.ID()}, SendOptions{Expire: DefaultPingExpiry})
	if err != nil {
		return false
	}
	_, ok := resp.(PingResponse)
	return ok
}

// QueryNeighborsInternal asks the node to (re)discover its own neighbor list
// during heal phase 2 (spec.md §4.5). Non-goal: the wire format of the
// neighbor list itself; this returns only success/failure.
func (n *Node) QueryNeighborsInternal(ctx context.Context) error {
	t := n.Transport()
	if t == nil {
		return &DriverNotReadyError{}
	}
	_, err := t.SendMessage(ctx, FunctionTypeGetRoutingInfo, GetRoutingInfoRequest{NodeID: n.ID()}, SendOptions{CorrelationID: CorrelationIDFromContext(ctx)})
	return err
}

// Serialize produces the cache representation described in spec.md §6.
func (n *Node) Serialize() NodeCache {
	n.mu.RLock()
	defer n.mu.RUnlock()
	supported := make(map[CommandClass]CCInfo, len(n.supportedCCs))
	for k, v := range n.supportedCCs {
		supported[k] = v
	}
	return NodeCache{
		ID:                n.id,
		DeviceClass:       n.deviceClass,
		SupportedCCs:      supported,
		IsSecure:          n.isSecure,
		HasSUCReturnRoute: n.hasSUCReturnRoute,
	}
}

// Deserialize restores a node from cache, refusing a mismatched id
// (*InvalidCacheError, spec.md §6).
func Deserialize(key string, c NodeCache, t Transport, vdb NodeValueStore) (*Node, error) {
	if key != "" {
		if parsed, err := strconv.ParseUint(key, 10, 8); err == nil && uint8(parsed) != c.ID {
			return nil, &InvalidCacheError{Key: key, Serialized: c.ID}
		}
	}
	n := NewNode(c.ID, t, vdb)
	n.deviceClass = c.DeviceClass
	n.isSecure = c.IsSecure
	n.hasSUCReturnRoute = c.HasSUCReturnRoute
	for cc, info := range c.SupportedCCs {
		n.supportedCCs[cc] = info
		n.endpoints[0].SupportedCCs[cc] = struct{}{}
	}
	return n, nil
}

// NodeCache is the per-node cache representation (spec.md §6).
type NodeCache struct {
	ID                uint8
	DeviceClass       DeviceClass
	SupportedCCs      map[CommandClass]CCInfo
	IsSecure          bool
	HasSUCReturnRoute bool
}

// Cache is the top-level `{ nodes: { "<id>": <node-serialization>, ... } }`
// cache format (spec.md §6).
type Cache struct {
	Nodes map[string]NodeCache
}
