// Package association implements the Association Manager (C8): group
// metadata, cached destination queries, admissibility checks, and
// add/remove mutation with plain/multi-channel fallback (spec.md §4.6).
package association

import (
	"context"
	"fmt"
	"sort"

	"github.com/zwave-network/zwcore/pkg/zwcore/core"
)

// Group is the read model for one association group (spec.md §3's
// AssociationGroup).
type Group struct {
	MaxNodes     uint8
	IsLifeline   bool
	Label        string
	MultiChannel bool
	IssuedCCs    map[core.CommandClass]struct{}
}

// AGIGroupInfoGetRequest/Response query Association Group Information CC for
// one group's static metadata — a CC-specific query whose exact wire shape
// is a non-goal (spec.md §1); this carries only the fields the admissibility
// and group-listing logic needs.
type AGIGroupInfoGetRequest struct {
	NodeID  uint8
	GroupID uint8
}

type AGIGroupInfoGetResponse struct {
	Name      string
	IssuedCCs []core.CommandClass
}

const lifelineGroup uint8 = 1

// Manager implements C8 against a node registry and a device-config table.
type Manager struct {
	registry *core.Registry
	configs  *core.DeviceConfigTable
	ownID    uint8
}

// NewManager builds an association manager.
func NewManager(registry *core.Registry, configs *core.DeviceConfigTable, ownID uint8) *Manager {
	return &Manager{registry: registry, configs: configs, ownID: ownID}
}

// GetAssociationGroups implements getAssociationGroups(nodeId) (spec.md
// §4.6).
func (m *Manager) GetAssociationGroups(ctx context.Context, nodeID uint8) ([]Group, error) {
	node, err := m.registry.GetOrThrow(nodeID)
	if err != nil {
		return nil, err
	}
	_, hasAssoc := node.CCInfo(core.CCAssociation)
	_, hasMCAssoc := node.CCInfo(core.CCMultiChannelAssociation)
	if !hasAssoc && !hasMCAssoc {
		return nil, &core.CCNotSupportedError{NodeID: nodeID, CC: "Association"}
	}

	plainCount, mcCount := m.groupCounts(node)
	count := plainCount
	if mcCount > count {
		count = mcCount
	}

	_, hasAGI := node.CCInfo(core.CCAssociationGroupInfo)
	cfg := node.DeviceConfig()

	groups := make([]Group, count)
	for i := range groups {
		groupID := uint8(i + 1)
		var g Group
		if hasAGI {
			g = m.groupFromAGI(ctx, node, groupID)
		} else {
			g = m.groupFromConfig(cfg, groupID)
		}
		g.MaxNodes = m.resolveMaxNodes(cfg, groupID, groupID <= mcCount, groupID <= plainCount)
		if hasAGI {
			g.IsLifeline = groupID == lifelineGroup
		} else if cfgGroup, ok := cfg.Group(groupID); ok {
			g.IsLifeline = cfgGroup.IsLifeline
		} else {
			g.IsLifeline = groupID == lifelineGroup
		}
		if g.Label == "" {
			g.Label = fmt.Sprintf("Unnamed group %d", groupID)
		}
		groups[i] = g
	}
	return groups, nil
}

func (m *Manager) resolveMaxNodes(cfg *core.DeviceConfig, groupID uint8, inMCRange, inPlainRange bool) uint8 {
	if inMCRange {
		if g, ok := cfg.Group(groupID); ok && g.MultiChannel {
			return g.MaxNodes
		}
	}
	if inPlainRange {
		if g, ok := cfg.Group(groupID); ok {
			return g.MaxNodes
		}
	}
	if g, ok := cfg.Group(groupID); ok {
		return g.MaxNodes
	}
	return 1
}

func (m *Manager) groupFromAGI(ctx context.Context, node *core.Node, groupID uint8) Group {
	t := node.Transport()
	if t == nil {
		return Group{}
	}
	resp, err := t.SendMessage(ctx, core.FunctionTypeAssociationGroupInfoGet, AGIGroupInfoGetRequest{NodeID: node.ID(), GroupID: groupID}, core.SendOptions{})
	if err != nil {
		return Group{}
	}
	info, ok := resp.(AGIGroupInfoGetResponse)
	if !ok {
		return Group{}
	}
	issued := make(map[core.CommandClass]struct{}, len(info.IssuedCCs))
	for _, cc := range info.IssuedCCs {
		issued[cc] = struct{}{}
	}
	return Group{Label: info.Name, IssuedCCs: issued}
}

func (m *Manager) groupFromConfig(cfg *core.DeviceConfig, groupID uint8) Group {
	g, ok := cfg.Group(groupID)
	if !ok {
		return Group{}
	}
	return Group{Label: g.Label, MultiChannel: g.MultiChannel}
}

func (m *Manager) groupCounts(node *core.Node) (plain, multiChannel int) {
	cfg := node.DeviceConfig()
	if cfg == nil {
		return 1, 0
	}
	for id, g := range cfg.AssociationGroups {
		if int(id) > plain {
			plain = int(id)
		}
		if g.MultiChannel && int(id) > multiChannel {
			multiChannel = int(id)
		}
	}
	if plain == 0 {
		plain = 1
	}
	return plain, multiChannel
}

// GetAssociations implements getAssociations(nodeId): merges cached plain and
// multi-channel destinations per group, deduplicating by (nodeId, endpoint)
// (spec.md §4.6, testable property "association dedup").
func (m *Manager) GetAssociations(ctx context.Context, nodeID uint8) (map[uint8][]core.Association, error) {
	node, err := m.registry.GetOrThrow(nodeID)
	if err != nil {
		return nil, err
	}
	t := node.Transport()
	if t == nil {
		return nil, &core.DriverNotReadyError{}
	}

	groups, err := m.GetAssociationGroups(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	out := make(map[uint8][]core.Association, len(groups))
	for i := range groups {
		groupID := uint8(i + 1)
		plain, _ := t.SendMessage(ctx, core.FunctionTypeAssociationGet,
			core.AssociationGetRequest{NodeID: nodeID, GroupID: groupID}, core.SendOptions{})
		merged := map[string]core.Association{}
		if r, ok := plain.(core.AssociationGetResponse); ok {
			for _, a := range r.Targets {
				merged[dedupKey(a)] = a
			}
		}
		if _, hasMC := node.CCInfo(core.CCMultiChannelAssociation); hasMC {
			mc, _ := t.SendMessage(ctx, core.FunctionTypeMultiChannelAssociationGet,
				core.AssociationGetRequest{NodeID: nodeID, GroupID: groupID}, core.SendOptions{})
			if r, ok := mc.(core.AssociationGetResponse); ok {
				for _, a := range r.Targets {
					merged[dedupKey(a)] = a
				}
			}
		}
		dests := make([]core.Association, 0, len(merged))
		for _, a := range merged {
			dests = append(dests, a)
		}
		sort.Slice(dests, func(i, j int) bool { return dests[i].NodeID < dests[j].NodeID })
		out[groupID] = dests
	}
	return out, nil
}

func dedupKey(a core.Association) string {
	if a.Endpoint == nil {
		return fmt.Sprintf("%d", a.NodeID)
	}
	return fmt.Sprintf("%d:%d", a.NodeID, *a.Endpoint)
}

// IsAssociationAllowed implements isAssociationAllowed(nodeId, group, target)
// (spec.md §4.6).
func (m *Manager) IsAssociationAllowed(ctx context.Context, nodeID, groupID uint8, target core.Association) (bool, error) {
	node, err := m.registry.GetOrThrow(nodeID)
	if err != nil {
		return false, err
	}
	_, hasAssoc := node.CCInfo(core.CCAssociation)
	_, hasMCAssoc := node.CCInfo(core.CCMultiChannelAssociation)
	if !hasAssoc && !hasMCAssoc {
		return false, &core.CCNotSupportedError{NodeID: nodeID, CC: "Association"}
	}

	ep := uint8(0)
	if target.Endpoint != nil {
		ep = *target.Endpoint
	}

	var targetEndpoint core.EndpointInfo
	if target.NodeID == m.ownID {
		// the controller itself is always a valid target (lifeline).
	} else {
		targetNode, err := m.registry.GetOrThrow(target.NodeID)
		if err != nil {
			return false, err
		}
		e, ok := targetNode.Endpoint(ep)
		if !ok {
			return false, &core.EndpointNotFoundError{NodeID: target.NodeID, Endpoint: ep}
		}
		targetEndpoint = e
	}

	if groupID == lifelineGroup && target.NodeID == m.ownID {
		return true, nil
	}

	if _, hasAGI := node.CCInfo(core.CCAssociationGroupInfo); !hasAGI {
		return true, nil
	}

	groups, err := m.GetAssociationGroups(ctx, nodeID)
	if err != nil || int(groupID) > len(groups) {
		return true, nil
	}
	issued := groups[groupID-1].IssuedCCs
	if len(issued) == 0 {
		return true, nil
	}
	if target.NodeID == m.ownID {
		return true, nil
	}
	if _, issuesBasic := issued[core.CCBasic]; issuesBasic && targetEndpoint.SupportsAnyCC(actuatorCCs) {
		return true, nil
	}
	return targetEndpoint.SupportsAnyCC(issued), nil
}

// actuatorCCs lists command classes considered "actuator CCs" for the Basic
// CC fallback rule in spec.md §4.6 step 6.
var actuatorCCs = map[core.CommandClass]struct{}{
	core.CCSwitchBinary:      {},
	core.CCSwitchMultilevel:  {},
}

// groupIsMultiChannel reports whether groupID on node should be treated as a
// multi-channel group for mutation purposes (spec.md §4.6's
// addAssociations/removeAssociations rule).
func (m *Manager) groupIsMultiChannel(node *core.Node, groupID uint8) bool {
	_, hasMC := node.CCInfo(core.CCMultiChannelAssociation)
	if !hasMC {
		return false
	}
	_, mcCount := m.groupCounts(node)
	if int(groupID) > mcCount {
		return false
	}
	cfg := node.DeviceConfig()
	if cfg != nil {
		if g, ok := cfg.Group(groupID); ok && !g.MultiChannel {
			return false
		}
	}
	return true
}

// groupExistsAsMultiChannel reports whether groupID is defined in the
// multi-channel group range, used to suppress a spurious InvalidGroup from
// the plain-CC removal fallback (spec.md §9).
func (m *Manager) groupExistsAsMultiChannel(node *core.Node, groupID uint8) bool {
	_, mcCount := m.groupCounts(node)
	return int(groupID) <= mcCount
}

// AddAssociations implements addAssociations(nodeId, group, [targets])
// (spec.md §4.6).
func (m *Manager) AddAssociations(ctx context.Context, nodeID, groupID uint8, targets []core.Association) error {
	node, err := m.registry.GetOrThrow(nodeID)
	if err != nil {
		return err
	}
	plain, endpointCarrying := splitTargets(targets)
	if len(endpointCarrying) > 0 {
		if _, hasMC := node.CCInfo(core.CCMultiChannelAssociation); !hasMC {
			return &core.CCNotSupportedError{NodeID: nodeID, CC: "Multi Channel Association"}
		}
	}
	plainCount, mcCount := m.groupCounts(node)
	groupCount := plainCount
	if mcCount > groupCount {
		groupCount = mcCount
	}
	if groupID == 0 || groupID > uint8(groupCount) {
		return &core.AssociationInvalidGroupError{NodeID: nodeID, Group: groupID}
	}

	var disallowed []core.Association
	for _, target := range targets {
		ok, err := m.IsAssociationAllowed(ctx, nodeID, groupID, target)
		if err != nil {
			return err
		}
		if !ok {
			disallowed = append(disallowed, target)
		}
	}
	if len(disallowed) > 0 {
		return &core.AssociationNotAllowedError{NodeID: nodeID, Group: groupID, Message: disallowedMessage(disallowed)}
	}

	t := node.Transport()
	if t == nil {
		return &core.DriverNotReadyError{}
	}
	if m.groupIsMultiChannel(node, groupID) {
		if _, err := t.SendMessage(ctx, core.FunctionTypeMultiChannelAssociationSet,
			core.AssociationSetRequest{NodeID: nodeID, GroupID: groupID, Destinations: targets}, core.SendOptions{}); err != nil {
			return err
		}
	} else {
		if _, err := t.SendMessage(ctx, core.FunctionTypeAssociationSet,
			core.AssociationSetRequest{NodeID: nodeID, GroupID: groupID, Destinations: plain}, core.SendOptions{}); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAssociations implements removeAssociations(nodeId, group, [targets]).
// Multi-channel CC is attempted first, with a plain-CC fallback, matching
// spec.md §9's intentional ordering.
func (m *Manager) RemoveAssociations(ctx context.Context, nodeID, groupID uint8, targets []core.Association) error {
	node, err := m.registry.GetOrThrow(nodeID)
	if err != nil {
		return err
	}
	t := node.Transport()
	if t == nil {
		return &core.DriverNotReadyError{}
	}

	_, hasMC := node.CCInfo(core.CCMultiChannelAssociation)
	if hasMC {
		if _, err := t.SendMessage(ctx, core.FunctionTypeMultiChannelAssociationRemove,
			core.AssociationRemoveRequest{NodeID: nodeID, GroupID: groupID, Destinations: targets}, core.SendOptions{}); err != nil {
			return err
		}
	}

	plainCount, _ := m.groupCounts(node)
	if groupID > uint8(plainCount) {
		if m.groupExistsAsMultiChannel(node, groupID) {
			return nil
		}
		return &core.AssociationInvalidGroupError{NodeID: nodeID, Group: groupID}
	}
	plain, _ := splitTargets(targets)
	_, err = t.SendMessage(ctx, core.FunctionTypeAssociationRemove,
		core.AssociationRemoveRequest{NodeID: nodeID, GroupID: groupID, Destinations: plain}, core.SendOptions{})
	return err
}

// RemoveNodeFromAllAssociations implements removeNodeFromAllAssociations:
// concurrently strip removedID from every other node's associations
// (spec.md §4.6).
func (m *Manager) RemoveNodeFromAllAssociations(ctx context.Context, removedID uint8) {
	type result struct{}
	nodes := m.registry.All()
	ch := make(chan result, len(nodes))
	for _, n := range nodes {
		n := n
		go func() {
			defer func() { ch <- result{} }()
			if n.ID() == m.ownID || n.ID() == removedID {
				return
			}
			_, hasMC := n.CCInfo(core.CCMultiChannelAssociation)
			_, hasAssoc := n.CCInfo(core.CCAssociation)
			if !hasMC && !hasAssoc {
				return
			}
			groups, err := m.GetAssociationGroups(ctx, n.ID())
			if err != nil {
				return
			}
			target := core.NewAssociation(removedID)
			for i := range groups {
				groupID := uint8(i + 1)
				_ = m.RemoveAssociations(ctx, n.ID(), groupID, []core.Association{target})
			}
		}()
	}
	for range nodes {
		<-ch
	}
}

func splitTargets(targets []core.Association) (plain, endpointCarrying []core.Association) {
	for _, t := range targets {
		if t.Endpoint == nil {
			plain = append(plain, t)
		} else {
			endpointCarrying = append(endpointCarrying, t)
		}
	}
	return plain, endpointCarrying
}

func disallowedMessage(disallowed []core.Association) string {
	msg := "association not allowed for node(s):"
	for _, d := range disallowed {
		msg += fmt.Sprintf(" %d", d.NodeID)
	}
	return msg
}
