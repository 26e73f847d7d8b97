// Package inclusion implements the Inclusion/Exclusion state machines (C4),
// failed-node removal (C4.7), and hard reset (C4.8) — the controller's
// mutually-exclusive, long-running lifecycle operations (spec.md §4.2,
// §4.7, §4.8).
package inclusion

import (
	"context"
	"fmt"
	"sync"

	"github.com/zwave-network/zwcore/pkg/zwcore/association"
	"github.com/zwave-network/zwcore/pkg/zwcore/core"
	"github.com/zwave-network/zwcore/pkg/zwcore/lifeline"
	"github.com/zwave-network/zwcore/pkg/zwcore/logging"
	"github.com/zwave-network/zwcore/pkg/zwcore/security"
)

// ValueStoreFactory builds a per-node value store index for a freshly
// created node (spec.md §4.1's "per-node value-store index").
type ValueStoreFactory func(nodeID uint8) core.NodeValueStore

// Manager drives C4 against a node registry, identity cache, event bus, and
// transport, coordinating with the security, lifeline, and association
// components on commit.
type Manager struct {
	mu sync.Mutex

	registry  *core.Registry
	identity  *core.Identity
	bus       *core.EventBus
	transport core.Transport
	security  *security.Bootstrap
	lifeline  *lifeline.Bootstrap
	assoc     *association.Manager
	vdbFor    ValueStoreFactory

	inclusionActive bool
	exclusionActive bool
	healActiveFn    func() bool

	includeNonSecure bool
	includeController bool

	beginInclusionSignal *core.Signal
	stopInclusionSignal  *core.Signal
	beginExclusionSignal *core.Signal
	replaceFailedSignal  *core.Signal

	// *CorrelationID tags every event and transport request belonging to
	// the currently in-flight operation of that kind (spec.md §11). Set
	// when the operation begins, read by every handler/helper invoked over
	// its lifetime, cleared when it reaches a terminal state.
	inclusionCorrelationID     string
	exclusionCorrelationID     string
	replaceFailedCorrelationID string

	nodePendingInclusion *core.Node
	nodePendingExclusion *core.Node
	nodePendingReplace   *core.Node
}

// NewManager builds the inclusion/exclusion manager and registers its
// status-report handlers on transport.
func NewManager(
	registry *core.Registry,
	identity *core.Identity,
	bus *core.EventBus,
	transport core.Transport,
	sec *security.Bootstrap,
	ll *lifeline.Bootstrap,
	assoc *association.Manager,
	vdbFor ValueStoreFactory,
) *Manager {
	m := &Manager{
		registry:  registry,
		identity:  identity,
		bus:       bus,
		transport: transport,
		security:  sec,
		lifeline:  ll,
		assoc:     assoc,
		vdbFor:    vdbFor,
	}
	transport.RegisterRequestHandler(core.FunctionTypeAddNodeToNetwork, m.handleAddNodeStatus, false)
	transport.RegisterRequestHandler(core.FunctionTypeRemoveNodeFromNetwork, m.handleRemoveNodeStatus, false)
	transport.RegisterRequestHandler(core.FunctionTypeReplaceFailedNode, m.handleReplaceFailedStatus, false)
	return m
}

// SetHealActiveFunc wires a callback the controller uses to check whether a
// heal is in progress (spec.md §5's three-way cooperative lock). Optional;
// when unset, heal is treated as never active from this package's view.
func (m *Manager) SetHealActiveFunc(fn func() bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healActiveFn = fn
}

// healActive reports whether a network heal is in progress. Callers must
// hold m.mu. A nil healActiveFn (no heal engine wired) never blocks.
func (m *Manager) healActive() bool {
	if m.healActiveFn == nil {
		return false
	}
	return m.healActiveFn()
}

func (m *Manager) inclusionCorrelation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inclusionCorrelationID
}

func (m *Manager) exclusionCorrelation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exclusionCorrelationID
}

func (m *Manager) replaceFailedCorrelation() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaceFailedCorrelationID
}

// IsInclusionActive reports the inclusionActive flag.
func (m *Manager) IsInclusionActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inclusionActive
}

// IsExclusionActive reports the exclusionActive flag.
func (m *Manager) IsExclusionActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exclusionActive
}

// BeginInclusion implements beginInclusion(includeNonSecure) (spec.md §4.2).
// Returns a signal that resolves true once the stick acknowledges Ready,
// or false immediately if another operation is already active.
func (m *Manager) BeginInclusion(ctx context.Context, includeNonSecure bool) *core.Signal {
	m.mu.Lock()
	if m.inclusionActive || m.exclusionActive || m.healActive() {
		m.mu.Unlock()
		s := core.NewSignal()
		s.Resolve(false)
		return s
	}
	corrID := core.NewCorrelationID()
	m.includeNonSecure = includeNonSecure
	m.includeController = false
	m.inclusionCorrelationID = corrID
	s := core.NewSignal()
	m.beginInclusionSignal = s
	m.mu.Unlock()
	ctx = core.WithCorrelationID(ctx, corrID)

	if _, err := m.transport.SendMessage(ctx, core.FunctionTypeAddNodeToNetwork,
		core.AddNodeToNetworkRequest{NetworkWide: true}, core.SendOptions{CorrelationID: corrID}); err != nil {
		m.mu.Lock()
		m.beginInclusionSignal = nil
		m.inclusionCorrelationID = ""
		m.mu.Unlock()
		s.Reject(err)
	}
	return s
}

// StopInclusion implements stopInclusion. Idempotent: returns false if
// inclusion is not active.
func (m *Manager) StopInclusion(ctx context.Context) bool {
	m.mu.Lock()
	if !m.inclusionActive {
		m.mu.Unlock()
		return false
	}
	s := core.NewSignal()
	m.stopInclusionSignal = s
	m.mu.Unlock()

	m.stopInclusionInternal(ctx, m.inclusionCorrelation())
	return true
}

// stopInclusionInternal sends the stop request. corrID is passed explicitly
// rather than re-read from the manager, since some callers (the Failed status
// handler) invoke this after already clearing inclusionCorrelationID.
func (m *Manager) stopInclusionInternal(ctx context.Context, corrID string) {
	_, _ = m.transport.SendMessage(ctx, core.FunctionTypeAddNodeToNetwork,
		core.AddNodeToNetworkRequest{Stop: true}, core.SendOptions{CorrelationID: corrID})
}

// BeginExclusion implements beginExclusion (spec.md §4.2).
func (m *Manager) BeginExclusion(ctx context.Context) *core.Signal {
	m.mu.Lock()
	if m.inclusionActive || m.exclusionActive || m.healActive() {
		m.mu.Unlock()
		s := core.NewSignal()
		s.Resolve(false)
		return s
	}
	corrID := core.NewCorrelationID()
	m.exclusionCorrelationID = corrID
	s := core.NewSignal()
	m.beginExclusionSignal = s
	m.mu.Unlock()
	ctx = core.WithCorrelationID(ctx, corrID)

	if _, err := m.transport.SendMessage(ctx, core.FunctionTypeRemoveNodeFromNetwork,
		core.RemoveNodeFromNetworkRequest{}, core.SendOptions{CorrelationID: corrID}); err != nil {
		m.mu.Lock()
		m.beginExclusionSignal = nil
		m.exclusionCorrelationID = ""
		m.mu.Unlock()
		s.Reject(err)
	}
	return s
}

// StopExclusion implements stopExclusion. Idempotent.
func (m *Manager) StopExclusion(ctx context.Context) bool {
	m.mu.Lock()
	if !m.exclusionActive {
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()
	m.stopExclusionInternal(ctx, m.exclusionCorrelation())
	return true
}

// stopExclusionInternal sends the stop request. corrID is passed explicitly
// for the same reason as stopInclusionInternal's.
func (m *Manager) stopExclusionInternal(ctx context.Context, corrID string) {
	_, _ = m.transport.SendMessage(ctx, core.FunctionTypeRemoveNodeFromNetwork,
		core.RemoveNodeFromNetworkRequest{Stop: true}, core.SendOptions{CorrelationID: corrID})
}

func (m *Manager) handleAddNodeStatus(ctx context.Context, report any) core.HandlerResult {
	r, ok := report.(core.AddNodeStatusReport)
	if !ok {
		return core.HandlerNotHandled
	}

	switch r.Status {
	case core.AddNodeStatusReady:
		m.mu.Lock()
		m.inclusionActive = true
		sig := m.beginInclusionSignal
		secure := !m.includeNonSecure
		m.mu.Unlock()
		if sig != nil {
			sig.Resolve(true)
		}
		m.bus.Publish(core.Event{Kind: core.EventInclusionStarted, Secure: secure, CorrelationID: m.inclusionCorrelation()})

	case core.AddNodeStatusFailed:
		m.mu.Lock()
		sig := m.beginInclusionSignal
		m.beginInclusionSignal = nil
		corrID := m.inclusionCorrelationID
		m.inclusionCorrelationID = ""
		m.mu.Unlock()
		if sig != nil {
			sig.Reject(&core.InclusionFailedError{})
			m.stopInclusionInternal(ctx, corrID)
		} else {
			m.stopInclusionInternal(ctx, corrID)
			m.bus.Publish(core.Event{Kind: core.EventInclusionFailed, CorrelationID: corrID})
		}

	case core.AddNodeStatusAddingController:
		m.mu.Lock()
		m.includeController = true
		m.mu.Unlock()
		fallthrough

	case core.AddNodeStatusAddingSlave:
		node := core.NewNode(r.NewNodeID, m.transport, nil)
		node.SetDeviceClass(core.DeviceClass{Basic: r.Basic, Generic: r.Generic, Specific: r.Specific})
		for _, cc := range r.SupportedCCs {
			node.AddCC(cc, core.CCInfo{Version: 1})
		}
		for _, cc := range r.ControlledCCs {
			node.AddControlledCC(cc, core.CCInfo{Version: 1})
		}
		m.mu.Lock()
		m.nodePendingInclusion = node
		m.mu.Unlock()

	case core.AddNodeStatusProtocolDone:
		m.stopInclusionInternal(ctx, m.inclusionCorrelation())

	case core.AddNodeStatusDone:
		m.mu.Lock()
		pending := m.nodePendingInclusion
		m.nodePendingInclusion = nil
		m.inclusionActive = false
		includeController := m.includeController
		stopSig := m.stopInclusionSignal
		m.stopInclusionSignal = nil
		corrID := m.inclusionCorrelationID
		m.inclusionCorrelationID = ""
		m.mu.Unlock()

		if r.NewNodeID == core.BroadcastNodeID || pending == nil {
			logging.WithCorrelation(corrID).WithField("operation", "inclusion").Warn("Done with no pending node")
		} else {
			m.commitInclusion(ctx, pending, includeController, corrID)
		}
		if stopSig != nil {
			stopSig.Resolve(true)
		}

	default:
		return core.HandlerNotHandled
	}
	return core.HandlerHandled
}

func (m *Manager) commitInclusion(ctx context.Context, node *core.Node, includeController bool, corrID string) {
	ctx = core.WithCorrelationID(ctx, corrID)
	if m.vdbFor != nil {
		node.SetValueDB(m.vdbFor(node.ID()))
	}
	m.registry.Set(node)
	node.MarkAsAlive()

	m.assignSUCReturnRoute(ctx, node, corrID)

	m.mu.Lock()
	nonSecure := m.includeNonSecure
	m.mu.Unlock()
	if _, advertisesSecurity := node.CCInfo(core.CCSecurity); advertisesSecurity && !nonSecure && m.security != nil {
		m.security.SecureBootstrapS0(ctx, node, false, includeController)
	}
	if m.lifeline != nil {
		_ = m.lifeline.Run(ctx, node)
	}
	m.mu.Lock()
	m.includeController = false
	m.mu.Unlock()

	m.bus.Publish(core.Event{Kind: core.EventNodeAdded, Node: node, CorrelationID: corrID})
}

func (m *Manager) assignSUCReturnRoute(ctx context.Context, node *core.Node, corrID string) {
	resp, err := m.transport.SendMessage(ctx, core.FunctionTypeAssignSUCReturnRoute,
		core.AssignSUCReturnRouteRequest{NodeID: node.ID()}, core.SendOptions{CorrelationID: corrID})
	if err != nil {
		return
	}
	if r, ok := resp.(core.AssignSUCReturnRouteResponse); ok && r.OK {
		node.SetHasSUCReturnRoute(true)
	}
}

func (m *Manager) handleRemoveNodeStatus(ctx context.Context, report any) core.HandlerResult {
	r, ok := report.(core.RemoveNodeStatusReport)
	if !ok {
		return core.HandlerNotHandled
	}

	switch r.Status {
	case core.RemoveNodeStatusReady:
		m.mu.Lock()
		m.exclusionActive = true
		sig := m.beginExclusionSignal
		corrID := m.exclusionCorrelationID
		m.mu.Unlock()
		if sig != nil {
			sig.Resolve(true)
		}
		m.bus.Publish(core.Event{Kind: core.EventExclusionStarted, CorrelationID: corrID})

	case core.RemoveNodeStatusFailed:
		m.mu.Lock()
		m.exclusionActive = false
		sig := m.beginExclusionSignal
		m.beginExclusionSignal = nil
		corrID := m.exclusionCorrelationID
		m.exclusionCorrelationID = ""
		m.mu.Unlock()
		if sig != nil {
			sig.Reject(&core.ExclusionFailedError{})
			m.stopExclusionInternal(ctx, corrID)
		} else {
			m.stopExclusionInternal(ctx, corrID)
			m.bus.Publish(core.Event{Kind: core.EventExclusionFailed, CorrelationID: corrID})
		}

	case core.RemoveNodeStatusRemovingController, core.RemoveNodeStatusRemovingSlave:
		if node, ok := m.registry.Get(r.NodeID); ok {
			m.mu.Lock()
			m.nodePendingExclusion = node
			m.mu.Unlock()
		}

	case core.RemoveNodeStatusDone:
		m.mu.Lock()
		pending := m.nodePendingExclusion
		m.nodePendingExclusion = nil
		m.exclusionActive = false
		corrID := m.exclusionCorrelationID
		m.exclusionCorrelationID = ""
		m.mu.Unlock()

		m.bus.Publish(core.Event{Kind: core.EventExclusionStopped, CorrelationID: corrID})
		if pending != nil {
			m.bus.Publish(core.Event{Kind: core.EventNodeRemoved, Node: pending, Replaced: false, CorrelationID: corrID})
			m.registry.Delete(pending.ID())
			if m.assoc != nil {
				m.assoc.RemoveNodeFromAllAssociations(core.WithCorrelationID(ctx, corrID), pending.ID())
			}
		}

	default:
		return core.HandlerNotHandled
	}
	return core.HandlerHandled
}

// ReplaceFailedNode implements replaceFailedNode(nodeId) (spec.md §4.2
// step 3-5).
func (m *Manager) ReplaceFailedNode(ctx context.Context, nodeID uint8) (*core.Signal, error) {
	m.mu.Lock()
	if m.inclusionActive || m.exclusionActive {
		m.mu.Unlock()
		s := core.NewSignal()
		s.Resolve(false)
		return s, nil
	}
	m.mu.Unlock()

	node, err := m.registry.GetOrThrow(nodeID)
	if err != nil {
		return nil, err
	}
	if node.Ping(ctx) {
		return nil, &core.ReplaceFailedNodeOKError{NodeID: nodeID}
	}

	corrID := core.NewCorrelationID()
	ctx = core.WithCorrelationID(ctx, corrID)
	resp, err := m.transport.SendMessage(ctx, core.FunctionTypeReplaceFailedNode,
		core.ReplaceFailedNodeRequest{NodeID: nodeID}, core.SendOptions{CorrelationID: corrID})
	if err != nil {
		return nil, err
	}
	r, _ := resp.(core.ReplaceFailedNodeResponse)
	if !r.OK {
		return nil, &core.ReplaceFailedNodeFailedError{NodeID: nodeID, Message: decodeReplaceStartFlags(r.StartFlags)}
	}

	m.mu.Lock()
	m.nodePendingReplace = node
	m.replaceFailedCorrelationID = corrID
	s := core.NewSignal()
	m.replaceFailedSignal = s
	m.mu.Unlock()
	return s, nil
}

func decodeReplaceStartFlags(flags core.ReplaceFailedNodeStartFlag) string {
	msg := ""
	add := func(s string) {
		if msg != "" {
			msg += "; "
		}
		msg += s
	}
	if flags&core.ReplaceFailedStartNodeNotFound != 0 {
		add("node not found")
	}
	if flags&core.ReplaceFailedStartNodeRemoved != 0 {
		add("node already removed")
	}
	if flags&core.ReplaceFailedStartBusy != 0 {
		add("controller busy")
	}
	if flags&core.ReplaceFailedStartTransmitFailed != 0 {
		add("transmit failed")
	}
	if msg == "" {
		msg = "unknown failure"
	}
	return msg
}

func (m *Manager) handleReplaceFailedStatus(ctx context.Context, report any) core.HandlerResult {
	r, ok := report.(core.ReplaceFailedNodeStatusReport)
	if !ok {
		return core.HandlerNotHandled
	}

	m.mu.Lock()
	pending := m.nodePendingReplace
	sig := m.replaceFailedSignal
	corrID := m.replaceFailedCorrelationID
	m.mu.Unlock()
	if pending == nil {
		return core.HandlerNotHandled
	}
	ctx = core.WithCorrelationID(ctx, corrID)

	switch r.Status {
	case core.ReplaceFailedNodeStatusNodeOK:
		if sig != nil {
			sig.Reject(&core.ReplaceFailedNodeOKError{NodeID: pending.ID()})
		}
		m.bus.Publish(core.Event{Kind: core.EventInclusionFailed, CorrelationID: corrID})

	case core.ReplaceFailedNodeStatusReplaceFailed:
		if sig != nil {
			sig.Reject(&core.ReplaceFailedNodeFailedError{NodeID: pending.ID()})
		}
		m.bus.Publish(core.Event{Kind: core.EventInclusionFailed, CorrelationID: corrID})

	case core.ReplaceFailedNodeStatusReplace:
		m.mu.Lock()
		m.inclusionActive = true
		secure := !m.includeNonSecure
		m.mu.Unlock()
		m.bus.Publish(core.Event{Kind: core.EventInclusionStarted, Secure: secure, CorrelationID: corrID})
		if sig != nil {
			sig.Resolve(true)
		}

	case core.ReplaceFailedNodeStatusReplaceDone:
		m.bus.Publish(core.Event{Kind: core.EventInclusionStopped, CorrelationID: corrID})
		m.bus.Publish(core.Event{Kind: core.EventNodeRemoved, Node: pending, Replaced: true, CorrelationID: corrID})
		m.registry.Delete(pending.ID())

		newNode := core.NewNode(pending.ID(), m.transport, nil)
		if m.vdbFor != nil {
			newNode.SetValueDB(m.vdbFor(newNode.ID()))
		}
		newNode.SetDeviceClass(core.DeviceClass{Basic: r.Basic, Generic: r.Generic, Specific: r.Specific})
		for _, cc := range r.SupportedCCs {
			newNode.AddCC(cc, core.CCInfo{Version: 1})
		}
		for _, cc := range r.ControlledCCs {
			newNode.AddControlledCC(cc, core.CCInfo{Version: 1})
		}
		m.registry.Set(newNode)
		newNode.MarkAsAlive()
		m.assignSUCReturnRoute(ctx, newNode, corrID)
		if m.security != nil {
			m.security.SecureBootstrapS0(ctx, newNode, true, false)
		}
		if m.lifeline != nil {
			_ = m.lifeline.Run(ctx, newNode)
		}

		m.mu.Lock()
		m.inclusionActive = false
		m.nodePendingReplace = nil
		m.replaceFailedSignal = nil
		m.replaceFailedCorrelationID = ""
		m.mu.Unlock()

		m.bus.Publish(core.Event{Kind: core.EventNodeAdded, Node: newNode, CorrelationID: corrID})

	default:
		return core.HandlerNotHandled
	}
	return core.HandlerHandled
}

// RemoveFailedNode implements removeFailedNode(nodeId) (spec.md §4.7).
func (m *Manager) RemoveFailedNode(ctx context.Context, nodeID uint8) error {
	node, err := m.registry.GetOrThrow(nodeID)
	if err != nil {
		return err
	}
	if node.Ping(ctx) {
		return &core.RemoveFailedNodeOKError{NodeID: nodeID}
	}

	corrID := core.NewCorrelationID()
	ctx = core.WithCorrelationID(ctx, corrID)
	resp, err := m.transport.SendMessage(ctx, core.FunctionTypeRemoveFailedNode,
		core.RemoveFailedNodeRequest{NodeID: nodeID}, core.SendOptions{CorrelationID: corrID})
	if err != nil {
		return err
	}
	if r, ok := resp.(core.RemoveFailedNodeResponse); ok && r.HasStartFlags {
		return &core.RemoveFailedNodeFailedError{NodeID: nodeID, Message: decodeRemoveStartFlags(r.StartFlags)}
	}
	if r, ok := resp.(core.RemoveFailedNodeStatusReport); ok {
		return m.applyRemoveFailedStatus(ctx, node, r.Status, corrID)
	}
	return nil
}

func (m *Manager) applyRemoveFailedStatus(ctx context.Context, node *core.Node, status core.RemoveFailedNodeStatus, corrID string) error {
	switch status {
	case core.RemoveFailedNodeStatusOK:
		return &core.RemoveFailedNodeOKError{NodeID: node.ID()}
	case core.RemoveFailedNodeStatusNotRemoved:
		return &core.RemoveFailedNodeFailedError{NodeID: node.ID(), Message: "not removed"}
	case core.RemoveFailedNodeStatusRemoved:
		m.bus.Publish(core.Event{Kind: core.EventNodeRemoved, Node: node, Replaced: false, CorrelationID: corrID})
		m.registry.Delete(node.ID())
		return nil
	default:
		return fmt.Errorf("controller: unrecognized remove-failed-node status %d", status)
	}
}

func decodeRemoveStartFlags(flags core.RemoveFailedNodeStartFlag) string {
	msg := ""
	add := func(s string) {
		if msg != "" {
			msg += "; "
		}
		msg += s
	}
	if flags&core.RemoveFailedStartNodeNotFound != 0 {
		add("node not found")
	}
	if flags&core.RemoveFailedStartNotPrimary != 0 {
		add("controller is not primary")
	}
	if flags&core.RemoveFailedStartBusy != 0 {
		add("controller busy")
	}
	if msg == "" {
		msg = "unknown failure"
	}
	return msg
}

// HardReset implements C4.8: issue HardReset, wait for confirmation, then
// clear every node's listeners and empty the registry.
func (m *Manager) HardReset(ctx context.Context) error {
	done := make(chan error, 1)
	handler := func(ctx context.Context, report any) core.HandlerResult {
		if _, ok := report.(core.HardResetConfirmation); !ok {
			return core.HandlerNotHandled
		}
		for _, n := range m.registry.All() {
			n.RemoveAllListeners()
		}
		m.registry.Clear()
		done <- nil
		return core.HandlerHandled
	}
	m.transport.RegisterRequestHandler(core.FunctionTypeHardReset, handler, true)
	unregister := func() { m.transport.UnregisterRequestHandler(core.FunctionTypeHardReset) }

	corrID := core.NewCorrelationID()
	if _, err := m.transport.SendMessage(core.WithCorrelationID(ctx, corrID), core.FunctionTypeHardReset, core.HardResetRequest{}, core.SendOptions{CorrelationID: corrID}); err != nil {
		unregister()
		return err
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		unregister()
		return ctx.Err()
	}
}
