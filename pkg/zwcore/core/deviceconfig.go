package core

// DeviceConfig is one entry of the device-config table (spec.md §4.6): a
// manufacturer-supplied description of a product's association groups. The
// association manager reads it for group counts and, when the node lacks
// Association Group Info CC, for group labels, lifeline and max-node data;
// its admissibility check uses Association Group Info CC only.
type DeviceConfig struct {
	ManufacturerID uint16
	ProductType    uint16
	ProductID      uint16

	// AssociationGroups is keyed by group id (1-based, group 1 is the
	// lifeline group per spec.md §4.6).
	AssociationGroups map[uint8]AssociationGroupConfig
}

// AssociationGroupConfig describes one association group's static shape.
type AssociationGroupConfig struct {
	Label      string
	MaxNodes   uint8
	IsLifeline bool
	// MultiChannel reports whether this group accepts endpoint-qualified
	// (multi channel) destinations.
	MultiChannel bool
}

// Group looks up a group's config by id.
func (c *DeviceConfig) Group(groupID uint8) (AssociationGroupConfig, bool) {
	if c == nil {
		return AssociationGroupConfig{}, false
	}
	g, ok := c.AssociationGroups[groupID]
	return g, ok
}

// LifelineGroup returns the group id flagged as the lifeline, if any.
func (c *DeviceConfig) LifelineGroup() (uint8, bool) {
	if c == nil {
		return 0, false
	}
	for id, g := range c.AssociationGroups {
		if g.IsLifeline {
			return id, true
		}
	}
	return 0, false
}

// DeviceConfigTable resolves a node's DeviceConfig by manufacturer/product
// triple, grounded on spec.md §4.6's "device-config table" external
// collaborator.
type DeviceConfigTable struct {
	entries []DeviceConfig
}

// NewDeviceConfigTable builds a lookup table from loaded entries.
func NewDeviceConfigTable(entries []DeviceConfig) *DeviceConfigTable {
	return &DeviceConfigTable{entries: entries}
}

// Lookup finds the config matching the manufacturer/product/product-type
// triple reported during interview.
func (t *DeviceConfigTable) Lookup(manufacturerID, productType, productID uint16) (*DeviceConfig, bool) {
	if t == nil {
		return nil, false
	}
	for i := range t.entries {
		e := &t.entries[i]
		if e.ManufacturerID == manufacturerID && e.ProductType == productType && e.ProductID == productID {
			return e, true
		}
	}
	return nil, false
}
