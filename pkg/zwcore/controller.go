// Package zwcore wires the controller-core components (C1-C9) into a single
// Controller, the module's top-level entry point (spec.md §2).
package zwcore

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zwave-network/zwcore/pkg/zwcore/association"
	"github.com/zwave-network/zwcore/pkg/zwcore/config"
	"github.com/zwave-network/zwcore/pkg/zwcore/core"
	"github.com/zwave-network/zwcore/pkg/zwcore/heal"
	"github.com/zwave-network/zwcore/pkg/zwcore/inclusion"
	"github.com/zwave-network/zwcore/pkg/zwcore/interview"
	"github.com/zwave-network/zwcore/pkg/zwcore/lifeline"
	"github.com/zwave-network/zwcore/pkg/zwcore/logging"
	"github.com/zwave-network/zwcore/pkg/zwcore/metrics"
	"github.com/zwave-network/zwcore/pkg/zwcore/security"
	"github.com/zwave-network/zwcore/pkg/zwcore/valuestore"
)

// Controller is the assembled controller core: registry, identity, event
// bus, and the C3-C8 components driven through one shared Transport.
type Controller struct {
	Registry  *core.Registry
	Identity  *core.Identity
	Events    *core.EventBus
	Transport core.Transport

	Security    *security.Bootstrap
	Lifeline    *lifeline.Bootstrap
	Association *association.Manager
	Heal        *heal.Engine
	Inclusion   *inclusion.Manager

	Metrics *metrics.Metrics

	settings    *config.Settings
	cachePath   string
	primaryDB   *valuestore.Store
	secondaryDB *valuestore.Store
}

// New assembles a Controller from settings and a transport. The transport is
// normally a real serial-API implementation; tests pass transport.NewFake().
func New(ctx context.Context, settings *config.Settings, t core.Transport, reg prometheus.Registerer) (*Controller, error) {
	if err := logging.SetLevel(settings.LogLevel); err != nil && settings.LogLevel != "" {
		logging.Logger.WithError(err).Warn("invalid log_level in settings, keeping default")
	}

	registry := core.NewRegistry()
	identity := core.NewIdentity()
	bus := core.NewEventBus()

	deviceConfigs, err := config.LoadDeviceConfigTable(settings.DeviceConfigDir)
	if err != nil {
		return nil, fmt.Errorf("loading device config table: %w", err)
	}

	var secMgr core.SecurityManager
	if settings.NetworkKeyHex != "" {
		nm, err := security.NewNetworkKeyManager(settings.NetworkKeyHex)
		if err != nil {
			return nil, fmt.Errorf("decoding network key: %w", err)
		}
		secMgr = nm
	}

	primaryDB := valuestore.Open(settings.GetValueStoreAddr(), "zwcore")
	secondaryDB := valuestore.Open(settings.GetValueStoreAddr(), "zwcore-meta")

	var m *metrics.Metrics
	if reg != nil {
		m = metrics.New(reg)
	}

	secBootstrap := security.NewBootstrap(secMgr)

	c := &Controller{
		Registry:    registry,
		Identity:    identity,
		Events:      bus,
		Transport:   t,
		Security:    secBootstrap,
		Metrics:     m,
		settings:    settings,
		cachePath:   config.DefaultSettingsPath() + ".cache.json",
		primaryDB:   primaryDB,
		secondaryDB: secondaryDB,
	}

	hooks := interview.Hooks{
		InitValueDBs: func(ctx context.Context) (interview.PerNodeStore, error) {
			return func(nodeID uint8) core.NodeValueStore {
				return valuestore.NewPair(valuestore.NewIndex(primaryDB, nodeID), valuestore.NewIndex(secondaryDB, nodeID))
			}, nil
		},
		RestoreFromCache: func(ctx context.Context) (core.Cache, error) {
			return interview.LoadCacheFile(c.cachePath)
		},
	}
	orch := interview.New(t, identity, registry, hooks, core.Timeouts{Ack: settings.GetAckTimeout(), Byte: settings.GetByteTimeout()})
	if err := orch.Run(ctx); err != nil {
		return nil, fmt.Errorf("interview: %w", err)
	}

	ownID := identity.OwnNodeID()
	assocMgr := association.NewManager(registry, deviceConfigs, ownID)
	c.Association = assocMgr
	c.Lifeline = lifeline.NewBootstrap(ownID)
	c.Heal = heal.NewEngine(registry, assocMgr, bus, ownID)
	c.Inclusion = inclusion.NewManager(registry, identity, bus, t, secBootstrap, c.Lifeline, assocMgr, func(nodeID uint8) core.NodeValueStore {
		return valuestore.NewPair(valuestore.NewIndex(primaryDB, nodeID), valuestore.NewIndex(secondaryDB, nodeID))
	})
	c.Inclusion.SetHealActiveFunc(c.Heal.IsActive)

	c.bindMetrics()

	return c, nil
}

// bindMetrics subscribes to the event bus to drive the Prometheus counters
// that don't have a natural call site in any one component (spec.md §4's
// cross-cutting observability).
func (c *Controller) bindMetrics() {
	if c.Metrics == nil {
		return
	}
	c.Events.Subscribe(func(ev core.Event) {
		switch ev.Kind {
		case core.EventNodeAdded:
			c.Metrics.RecordInclusion("done", 0)
		case core.EventInclusionFailed:
			c.Metrics.RecordInclusion("failed", 0)
		case core.EventNodeRemoved:
			if ev.Replaced {
				c.Metrics.RecordReplaceFailed("done")
			} else {
				c.Metrics.RecordExclusion("done")
			}
		case core.EventHealNetworkDone:
			counts := map[string]int{}
			for _, status := range ev.HealSnapshot {
				switch status {
				case core.HealDone:
					counts["done"]++
				case core.HealFailed:
					counts["failed"]++
				case core.HealSkipped:
					counts["skipped"]++
				default:
					counts["pending"]++
				}
			}
			for result, n := range counts {
				for i := 0; i < n; i++ {
					c.Metrics.RecordHealNode(result, 0)
				}
			}
		}
	})
}

// SaveCache persists the current node registry to the cache file, normally
// called on graceful shutdown.
func (c *Controller) SaveCache() error {
	return interview.SaveCacheFile(c.cachePath, c.Registry)
}

// BeginHealingNetwork starts a network heal, refusing if inclusion,
// exclusion, or another heal is already active (spec.md §5).
func (c *Controller) BeginHealingNetwork(ctx context.Context) bool {
	if c.Inclusion.IsInclusionActive() || c.Inclusion.IsExclusionActive() {
		return false
	}
	if c.Metrics != nil {
		c.Metrics.RecordHealNetworkStarted()
	}
	return c.Heal.BeginHealingNetwork(ctx, c.Transport)
}
