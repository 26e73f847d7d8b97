// Package heal implements the Routing & Heal Engine (C7): a four-phase
// per-node pipeline with bounded retries, and a network-wide heal that fans
// the per-node pipeline out concurrently with cooperative cancellation
// (spec.md §4.5).
package heal

import (
	"context"
	"sort"
	"sync"

	"github.com/zwave-network/zwcore/pkg/zwcore/association"
	"github.com/zwave-network/zwcore/pkg/zwcore/core"
	"github.com/zwave-network/zwcore/pkg/zwcore/logging"
)

// maxRetries bounds each phase's retry count (spec.md §4.5).
const maxRetries = 5

// maxReturnRoutes caps the return-route destination list (spec.md §4.5 step 4).
const maxReturnRoutes = 4

// Engine runs C7 against a node registry, an association manager (to compute
// return-route targets), and the shared event bus.
type Engine struct {
	mu       sync.Mutex
	registry *core.Registry
	assoc    *association.Manager
	bus      *core.EventBus
	ownID    uint8

	active        bool
	progress      map[uint8]core.HealStatus
	correlationID string
}

// NewEngine builds a heal engine.
func NewEngine(registry *core.Registry, assoc *association.Manager, bus *core.EventBus, ownID uint8) *Engine {
	return &Engine{registry: registry, assoc: assoc, bus: bus, ownID: ownID}
}

// IsActive reports whether a network heal is in progress (part of the
// cooperative inclusion/exclusion/heal lock, spec.md §5).
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// correlation returns the correlation id of the currently (or most recently)
// active heal run.
func (e *Engine) correlation() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.correlationID
}

// BeginHealingNetwork implements beginHealingNetwork (spec.md §4.5).
// Returns false without starting if a heal is already active.
func (e *Engine) BeginHealingNetwork(ctx context.Context, t core.Transport) bool {
	e.mu.Lock()
	if e.active {
		e.mu.Unlock()
		return false
	}
	e.active = true
	corrID := core.NewCorrelationID()
	e.correlationID = corrID
	progress := make(map[uint8]core.HealStatus)
	var toHeal []uint8
	for _, n := range e.registry.All() {
		if n.ID() == e.ownID {
			continue
		}
		if n.Status() == core.NodeStatusDead {
			progress[n.ID()] = core.HealSkipped
			continue
		}
		if n.Status() == core.NodeStatusAsleep && n.InterviewStage() <= core.InterviewStageProtocolInfo {
			progress[n.ID()] = core.HealSkipped
			continue
		}
		progress[n.ID()] = core.HealPending
		toHeal = append(toHeal, n.ID())
	}
	e.progress = progress
	e.mu.Unlock()

	go e.runNetworkHeal(core.WithCorrelationID(ctx, corrID), t, toHeal)
	return true
}

// StopHealingNetwork implements stopHealingNetwork (spec.md §4.5, §5).
func (e *Engine) StopHealingNetwork(t core.Transport) {
	e.mu.Lock()
	e.active = false
	e.mu.Unlock()

	t.RejectTransactions(func(functionType core.FunctionType, request any) bool {
		switch functionType {
		case core.FunctionTypeRequestNodeNeighborUpdate, core.FunctionTypeGetRoutingInfo,
			core.FunctionTypeDeleteReturnRoute, core.FunctionTypeAssignReturnRoute:
			return true
		default:
			return false
		}
	})
}

func (e *Engine) runNetworkHeal(ctx context.Context, t core.Transport, nodeIDs []uint8) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, 8)

	for _, id := range nodeIDs {
		id := id
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			node, ok := e.registry.Get(id)
			if !ok {
				e.recordResult(id, core.HealFailed)
				return
			}
			ok2 := e.healNodeInternal(ctx, t, node)
			if ok2 {
				e.recordResult(id, core.HealDone)
			} else {
				e.recordResult(id, core.HealFailed)
			}
		}()
	}
	wg.Wait()

	e.mu.Lock()
	stillActive := e.active
	e.active = false
	e.mu.Unlock()
	if stillActive {
		e.bus.Publish(core.Event{Kind: core.EventHealNetworkDone, HealSnapshot: e.snapshot(), CorrelationID: e.correlation()})
	}
}

func (e *Engine) recordResult(id uint8, status core.HealStatus) {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	e.progress[id] = status
	snap := core.SnapshotHeal(e.progress)
	corrID := e.correlationID
	e.mu.Unlock()

	e.bus.Publish(core.Event{Kind: core.EventHealNetworkProgress, HealSnapshot: snap, CorrelationID: corrID})
}

func (e *Engine) snapshot() map[uint8]core.HealStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return core.SnapshotHeal(e.progress)
}

// Progress returns a defensive copy of the current heal-progress map, the
// same snapshot shape published on the event bus (spec.md §4.5).
func (e *Engine) Progress() map[uint8]core.HealStatus {
	return e.snapshot()
}

// healNodeInternal implements the four-phase per-node pipeline.
func (e *Engine) healNodeInternal(ctx context.Context, t core.Transport, node *core.Node) bool {
	log := logging.WithNode(node.ID()).WithField("component", "heal")

	phases := []func(context.Context, core.Transport, *core.Node) error{
		e.phaseRefreshNeighbors,
		e.phaseRetrieveNeighbors,
		e.phaseDeleteReturnRoutes,
		e.phaseAssignReturnRoutes,
	}
	for _, phase := range phases {
		if !e.IsActive() {
			return false
		}
		ok := false
		for attempt := 0; attempt < maxRetries; attempt++ {
			if !e.IsActive() {
				return false
			}
			if err := phase(ctx, t, node); err != nil {
				log.WithField("attempt", attempt+1).Debug("heal phase attempt failed")
				continue
			}
			ok = true
			break
		}
		if !ok {
			return false
		}
	}
	return true
}

func (e *Engine) phaseRefreshNeighbors(ctx context.Context, t core.Transport, node *core.Node) error {
	resp, err := t.SendMessage(ctx, core.FunctionTypeRequestNodeNeighborUpdate,
		core.RequestNodeNeighborUpdateRequest{NodeID: node.ID()}, core.SendOptions{CorrelationID: core.CorrelationIDFromContext(ctx)})
	if err != nil {
		return err
	}
	r, ok := resp.(core.RequestNodeNeighborUpdateReport)
	if !ok || r.Status != core.NeighborUpdateDone {
		return &core.NodeTimeoutError{Step: "neighbor update"}
	}
	return nil
}

func (e *Engine) phaseRetrieveNeighbors(ctx context.Context, _ core.Transport, node *core.Node) error {
	return node.QueryNeighborsInternal(ctx)
}

func (e *Engine) phaseDeleteReturnRoutes(ctx context.Context, t core.Transport, node *core.Node) error {
	resp, err := t.SendMessage(ctx, core.FunctionTypeDeleteReturnRoute,
		core.DeleteReturnRouteRequest{NodeID: node.ID()}, core.SendOptions{CorrelationID: core.CorrelationIDFromContext(ctx)})
	if err != nil {
		return err
	}
	if r, ok := resp.(core.DeleteReturnRouteResponse); ok && !r.OK {
		return &core.NodeTimeoutError{Step: "delete return route"}
	}
	return nil
}

func (e *Engine) phaseAssignReturnRoutes(ctx context.Context, t core.Transport, node *core.Node) error {
	targets, err := e.computeReturnRouteTargets(ctx, node.ID())
	if err != nil {
		return err
	}
	for _, dest := range targets {
		ok := false
		for attempt := 0; attempt < maxRetries; attempt++ {
			resp, err := t.SendMessage(ctx, core.FunctionTypeAssignReturnRoute,
				core.AssignReturnRouteRequest{SourceNodeID: node.ID(), DestNodeID: dest}, core.SendOptions{CorrelationID: core.CorrelationIDFromContext(ctx)})
			if err == nil {
				if r, ok2 := resp.(core.AssignReturnRouteResponse); !ok2 || r.OK {
					ok = true
					break
				}
			}
		}
		if !ok {
			return &core.NodeTimeoutError{Step: "assign return route"}
		}
	}
	return nil
}

// computeReturnRouteTargets computes the union of association-target node
// ids across all groups, deduplicated and sorted, own id first, truncated to
// maxReturnRoutes (spec.md §4.5 step 4, testable property "return-route cap").
func (e *Engine) computeReturnRouteTargets(ctx context.Context, nodeID uint8) ([]uint8, error) {
	groups, err := e.assoc.GetAssociations(ctx, nodeID)
	if err != nil {
		return []uint8{e.ownID}, nil
	}
	set := map[uint8]struct{}{e.ownID: {}}
	for _, dests := range groups {
		for _, d := range dests {
			set[d.NodeID] = struct{}{}
		}
	}
	others := make([]uint8, 0, len(set))
	for id := range set {
		if id != e.ownID {
			others = append(others, id)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i] < others[j] })

	out := []uint8{e.ownID}
	out = append(out, others...)
	if len(out) > maxReturnRoutes {
		out = out[:maxReturnRoutes]
	}
	return out, nil
}
