// Package interview implements the Interview Orchestrator (C3): a one-shot
// startup procedure that populates the identity cache and seeds the node
// registry from the stick (spec.md §4.1).
package interview

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/zwave-network/zwcore/pkg/zwcore/core"
	"github.com/zwave-network/zwcore/pkg/zwcore/logging"
)

// PerNodeStore builds the per-node value-store index handed to each freshly
// created Node, the product of batch-indexing the two value databases
// (spec.md §4.1).
type PerNodeStore func(nodeID uint8) core.NodeValueStore

// Hooks bundles the orchestrator's external collaborators: spec.md §4.1
// names `initValueDBs` and `restoreFromCache` as hooks supplied by the
// embedder rather than owned by the controller core.
type Hooks struct {
	InitValueDBs     func(ctx context.Context) (PerNodeStore, error)
	RestoreFromCache func(ctx context.Context) (core.Cache, error)
}

// Orchestrator runs the one-shot interview sequence.
type Orchestrator struct {
	transport core.Transport
	identity  *core.Identity
	registry  *core.Registry
	hooks     Hooks
	timeouts  core.Timeouts
}

// New builds an orchestrator. timeouts are the ack/byte values to push to
// the stick if the library type is not bridge and SetSerialApiTimeouts is
// supported.
func New(t core.Transport, identity *core.Identity, registry *core.Registry, hooks Hooks, timeouts core.Timeouts) *Orchestrator {
	return &Orchestrator{transport: t, identity: identity, registry: registry, hooks: hooks, timeouts: timeouts}
}

// Run executes the interview sequence once. Any transport error during
// queries 1-5 aborts the interview and leaves the identity cache not-ready
// (spec.md §4.1's failure semantics).
func (o *Orchestrator) Run(ctx context.Context) error {
	log := logging.WithOperation("interview")

	versionResp, err := o.transport.SendMessage(ctx, core.FunctionTypeGetControllerVersion, struct{}{}, core.SendOptions{})
	if err != nil {
		return err
	}
	v := versionResp.(core.ControllerVersionResponse)
	o.identity.SetLibraryVersion(v.LibraryVersion)
	o.identity.SetLibraryType(v.LibraryType)

	idsResp, err := o.transport.SendMessage(ctx, core.FunctionTypeGetControllerIDs, struct{}{}, core.SendOptions{})
	if err != nil {
		return err
	}
	ids := idsResp.(core.ControllerIDsResponse)
	o.identity.SetHomeID(ids.HomeID)
	o.identity.SetOwnNodeID(ids.OwnNodeID)

	capsResp, err := o.transport.SendMessage(ctx, core.FunctionTypeGetControllerCapabilities, struct{}{}, core.SendOptions{})
	if err != nil {
		return err
	}
	caps := capsResp.(core.ControllerCapabilitiesResponse)
	o.identity.MutateRoles(func(r *core.RoleFlags) {
		r.SetIsSecondary(caps.IsSecondary)
		r.SetIsUsingHomeIdFromOtherNetwork(caps.IsUsingHomeIdFromOtherNetwork)
		r.SetIsSISPresent(caps.IsSISPresent)
		r.SetWasRealPrimary(caps.WasRealPrimary)
		r.SetIsStaticUpdateController(caps.IsStaticUpdateController)
	})

	serialResp, err := o.transport.SendMessage(ctx, core.FunctionTypeSerialAPIGetCapabilities, struct{}{}, core.SendOptions{})
	if err != nil {
		return err
	}
	serial := serialResp.(core.SerialAPICapabilitiesResponse)
	o.identity.SetSerialAPIVersion(serial.SerialAPIVersion)
	o.identity.SetManufacturerTriple(serial.ManufacturerID, serial.ProductType, serial.ProductID)
	o.identity.SetSupportedFunctions(serial.SupportedFunctions)

	sucResp, err := o.transport.SendMessage(ctx, core.FunctionTypeGetSUCNodeID, struct{}{}, core.SendOptions{})
	if err != nil {
		return err
	}
	suc := sucResp.(core.GetSUCNodeIDResponse)
	o.identity.SetSUCNodeID(suc.SUCNodeID)

	o.identity.MarkReady()

	o.maybePromoteSUC(ctx, caps, suc.SUCNodeID, log)

	if err := o.seedRegistry(ctx); err != nil {
		return err
	}

	if v.LibraryType != core.LibraryTypeBridgeController {
		if supported, _ := o.identity.IsFunctionSupported(core.FunctionTypeSetSerialAPITimeouts); supported {
			_, err := o.transport.SendMessage(ctx, core.FunctionTypeSetSerialAPITimeouts,
				core.SetSerialAPITimeoutsRequest{Ack: o.timeouts.Ack, Byte: o.timeouts.Byte}, core.SendOptions{SupportCheck: true})
			if err != nil {
				log.WithError(err).Warn("failed to push serial api timeouts")
			}
		}
	}

	return nil
}

// maybePromoteSUC implements spec.md §4.1's self-promotion rule: a
// controller that is not secondary, is not already SUC, and sees neither a
// SUC nor an SIS in the network promotes itself. Failure is logged but
// never fails the interview.
func (o *Orchestrator) maybePromoteSUC(ctx context.Context, caps core.ControllerCapabilitiesResponse, sucNodeID uint8, log *logrus.Entry) {
	if caps.IsSecondary || caps.IsStaticUpdateController || caps.IsSISPresent || sucNodeID != 0 {
		return
	}
	_, err := o.transport.SendMessage(ctx, core.FunctionTypeSetSUCNodeID,
		core.SetSUCNodeIDRequest{SUCNodeID: o.identity.OwnNodeID(), EnableSUC: true, EnableSIS: true},
		core.SendOptions{SupportCheck: true})
	if err != nil {
		log.WithError(err).Warn("self-promotion to SUC/SIS failed")
		return
	}
	o.identity.SetSUCNodeID(o.identity.OwnNodeID())
	o.identity.MutateRoles(func(r *core.RoleFlags) { r.SetIsStaticUpdateController(true) })
}

// seedRegistry runs the rest of spec.md §4.1: initValueDBs, the node-id
// list, per-node creation, restoreFromCache, and writing the controller's
// own manufacturer/product metadata into its own value store.
func (o *Orchestrator) seedRegistry(ctx context.Context) error {
	perNodeStore, err := o.hooks.InitValueDBs(ctx)
	if err != nil {
		return err
	}

	initResp, err := o.transport.SendMessage(ctx, core.FunctionTypeGetSerialAPIInitData, struct{}{}, core.SendOptions{})
	if err != nil {
		return err
	}
	init := initResp.(core.GetSerialAPIInitDataResponse)

	cache, err := o.hooks.RestoreFromCache(ctx)
	if err != nil {
		return err
	}

	for _, id := range init.NodeIDs {
		vdb := perNodeStore(id)
		key := nodeKey(id)
		if cached, ok := cache.Nodes[key]; ok {
			n, err := core.Deserialize(key, cached, o.transport, vdb)
			if err != nil {
				return err
			}
			o.registry.Set(n)
			continue
		}
		o.registry.Set(core.NewNode(id, o.transport, vdb))
	}

	manufacturerID, productType, productID := o.identity.ManufacturerTriple()
	if own, ok := o.registry.Get(o.identity.OwnNodeID()); ok {
		vdb := own.ValueDB()
		if vdb != nil {
			_ = vdb.Set("meta", "manufacturer", "manufacturerId", uitoa(manufacturerID))
			_ = vdb.Set("meta", "manufacturer", "productType", uitoa(productType))
			_ = vdb.Set("meta", "manufacturer", "productId", uitoa(productID))
		}
	}

	return nil
}
