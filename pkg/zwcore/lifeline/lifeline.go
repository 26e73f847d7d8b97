// Package lifeline implements the post-inclusion lifeline and wake-up
// bootstrap (C6): assigning the controller as association group 1 on
// newly-added Z-Wave-Plus nodes, and configuring wake-up (spec.md §4.4).
package lifeline

import (
	"context"

	"github.com/zwave-network/zwcore/pkg/zwcore/core"
	"github.com/zwave-network/zwcore/pkg/zwcore/logging"
)

// lifelineGroup is the conventional association group 1 (spec.md GLOSSARY).
const lifelineGroup uint8 = 1

// Bootstrap runs the C6 lifeline/wake-up bootstrap against a controller's
// own node id.
type Bootstrap struct {
	ownNodeID uint8
}

// NewBootstrap builds a lifeline bootstrapper for the controller's own node.
func NewBootstrap(ownNodeID uint8) *Bootstrap {
	return &Bootstrap{ownNodeID: ownNodeID}
}

// Run bootstraps lifeline and wake-up for node. Recoverable/transmission
// errors are logged at warn level and swallowed; other errors propagate, per
// spec.md §4.4.
func (b *Bootstrap) Run(ctx context.Context, node *core.Node) error {
	log := logging.WithNode(node.ID()).WithField("component", "lifeline")

	if node.IsZWavePlus() {
		_, hasAssoc := node.CCInfo(core.CCAssociation)
		_, hasMCAssoc := node.CCInfo(core.CCMultiChannelAssociation)
		if hasAssoc || hasMCAssoc {
			if err := b.assignLifeline(ctx, node, hasMCAssoc); err != nil {
				if recoverable(err) {
					log.WithField("error", err).Warn("lifeline association failed")
				} else {
					return err
				}
			} else if err := b.assignReturnRoute(ctx, node); err != nil {
				if recoverable(err) {
					log.WithField("error", err).Warn("lifeline return route failed")
				} else {
					return err
				}
			}
		}
	}

	if _, hasWakeUp := node.CCInfo(core.CCWakeUp); hasWakeUp {
		if err := b.bootstrapWakeUp(ctx, node); err != nil {
			if recoverable(err) {
				log.WithField("error", err).Warn("wake-up bootstrap failed")
			} else {
				return err
			}
		}
	}
	return nil
}

// assignLifeline adds the controller's own node id to group 1, preferring
// multi-channel with endpoint 0 when available (spec.md §4.4).
func (b *Bootstrap) assignLifeline(ctx context.Context, node *core.Node, multiChannel bool) error {
	t := node.Transport()
	if t == nil {
		return &core.DriverNotReadyError{}
	}
	ep := uint8(0)
	dest := core.NewEndpointAssociation(b.ownNodeID, ep)
	if !multiChannel {
		dest = core.NewAssociation(b.ownNodeID)
	}
	functionType := core.FunctionTypeAssociationSet
	if multiChannel {
		functionType = core.FunctionTypeMultiChannelAssociationSet
	}
	_, err := t.SendMessage(ctx, functionType, core.AssociationSetRequest{
		NodeID:       node.ID(),
		GroupID:      lifelineGroup,
		Destinations: []core.Association{dest},
	}, core.SendOptions{CorrelationID: core.CorrelationIDFromContext(ctx)})
	return err
}

func (b *Bootstrap) assignReturnRoute(ctx context.Context, node *core.Node) error {
	t := node.Transport()
	if t == nil {
		return &core.DriverNotReadyError{}
	}
	resp, err := t.SendMessage(ctx, core.FunctionTypeAssignSUCReturnRoute,
		core.AssignSUCReturnRouteRequest{NodeID: node.ID()}, core.SendOptions{CorrelationID: core.CorrelationIDFromContext(ctx)})
	if err != nil {
		return err
	}
	if r, ok := resp.(core.AssignSUCReturnRouteResponse); ok && r.OK {
		node.SetHasSUCReturnRoute(true)
	}
	return nil
}

// bootstrapWakeUp queries Version CC for the Wake-Up CC version (default to
// 1), registers it on the node, and runs the Wake-Up CC's interview
// (spec.md §4.4).
func (b *Bootstrap) bootstrapWakeUp(ctx context.Context, node *core.Node) error {
	t := node.Transport()
	if t == nil {
		return &core.DriverNotReadyError{}
	}
	corrID := core.CorrelationIDFromContext(ctx)
	version := 1
	resp, err := t.SendMessage(ctx, core.FunctionTypeVersionCCGet,
		core.VersionCCGetRequest{NodeID: node.ID(), CC: core.CCWakeUp}, core.SendOptions{CorrelationID: corrID})
	if err == nil {
		if v, ok := resp.(core.VersionCCGetResponse); ok && v.Version > 0 {
			version = v.Version
		}
	}
	node.AddCC(core.CCWakeUp, core.CCInfo{Version: version, IsSecure: node.IsSecure()})

	_, err = t.SendMessage(ctx, core.FunctionTypeWakeUpCCInterview,
		core.WakeUpCCInterviewRequest{NodeID: node.ID()}, core.SendOptions{CorrelationID: corrID})
	return err
}

// recoverable reports whether err is a category the bootstrap should log and
// swallow rather than propagate (spec.md §4.4: "recoverable and transmission
// errors").
func recoverable(err error) bool {
	switch err.(type) {
	case *core.DriverNotReadyError:
		return false
	default:
		return true
	}
}
