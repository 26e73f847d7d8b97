package core

import "sync"

// LibraryType enumerates the Z-Wave library the stick reports running.
type LibraryType uint8

const (
	LibraryTypeUnknown LibraryType = iota
	LibraryTypeStaticController
	LibraryTypeController
	LibraryTypeEnhancedSlave
	LibraryTypeSlave
	LibraryTypeInstaller
	LibraryTypeRoutingSlave
	LibraryTypeBridgeController
	LibraryTypeDeviceUnderTest
	LibraryTypeAVRemote
	LibraryTypeEnhancedSmartSlave
)

// FunctionType identifies a serial-API function code.
type FunctionType uint8

// RoleFlags holds the controller role bits populated by the interview (C3).
// Each field is a pointer so the zero value ("unset") is distinguishable
// from an interviewed false, matching spec.md §3's "optional until interview
// completes".
type RoleFlags struct {
	IsSecondary                   *bool
	IsUsingHomeIdFromOtherNetwork *bool
	IsSISPresent                  *bool
	WasRealPrimary                *bool
	IsStaticUpdateController      *bool
	IsSlave                       *bool
	SupportsTimers                *bool
}

func boolPtr(b bool) *bool { return &b }

// The Set* methods each assign one role flag. Used by the interview orchestrator so the
// call sites read as a short ordered list rather than seven assignment
// statements.
func (r *RoleFlags) SetIsSecondary(v bool)                   { r.IsSecondary = boolPtr(v) }
func (r *RoleFlags) SetIsUsingHomeIdFromOtherNetwork(v bool) { r.IsUsingHomeIdFromOtherNetwork = boolPtr(v) }
func (r *RoleFlags) SetIsSISPresent(v bool)                  { r.IsSISPresent = boolPtr(v) }
func (r *RoleFlags) SetWasRealPrimary(v bool)                { r.WasRealPrimary = boolPtr(v) }
func (r *RoleFlags) SetIsStaticUpdateController(v bool)      { r.IsStaticUpdateController = boolPtr(v) }
func (r *RoleFlags) SetIsSlave(v bool)                       { r.IsSlave = boolPtr(v) }
func (r *RoleFlags) SetSupportsTimers(v bool)                { r.SupportsTimers = boolPtr(v) }

func flagTrue(p *bool) bool { return p != nil && *p }

// Identity is the controller's identity and capability cache (component C2).
//
// ready becomes true once the interview orchestrator (C3) finishes without
// error; IsFunctionSupported and the other capability queries raise
// *DriverNotReadyError while ready is false, per spec.md §4.1's failure
// semantics and §9's note on isFunctionSupported being called too early in
// the original source.
type Identity struct {
	mu sync.RWMutex

	ready bool

	homeID      uint32
	ownNodeID   uint8
	sucNodeID   uint8 // 0 = none
	libraryVer  string
	libraryType LibraryType

	serialAPIVersion string
	manufacturerID   uint16
	productType      uint16
	productID        uint16

	roles RoleFlags

	supportedFunctions map[FunctionType]struct{}
}

// NewIdentity returns an unready identity cache.
func NewIdentity() *Identity {
	return &Identity{supportedFunctions: make(map[FunctionType]struct{})}
}

// MarkReady flips the identity cache to ready. Called once, at the end of a
// successful interview.
func (id *Identity) MarkReady() {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.ready = true
}

// IsReady reports whether interview has completed successfully.
func (id *Identity) IsReady() bool {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.ready
}

func (id *Identity) SetHomeID(v uint32)            { id.mu.Lock(); defer id.mu.Unlock(); id.homeID = v }
func (id *Identity) SetOwnNodeID(v uint8)          { id.mu.Lock(); defer id.mu.Unlock(); id.ownNodeID = v }
func (id *Identity) SetSUCNodeID(v uint8)          { id.mu.Lock(); defer id.mu.Unlock(); id.sucNodeID = v }
func (id *Identity) SetLibraryVersion(v string)    { id.mu.Lock(); defer id.mu.Unlock(); id.libraryVer = v }
func (id *Identity) SetLibraryType(v LibraryType)  { id.mu.Lock(); defer id.mu.Unlock(); id.libraryType = v }
func (id *Identity) SetSerialAPIVersion(v string)  { id.mu.Lock(); defer id.mu.Unlock(); id.serialAPIVersion = v }

// SetManufacturerTriple sets the manufacturer/product-type/product id triple.
func (id *Identity) SetManufacturerTriple(manufacturerID, productType, productID uint16) {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.manufacturerID, id.productType, id.productID = manufacturerID, productType, productID
}

// HomeID returns the cached home id.
func (id *Identity) HomeID() uint32 { id.mu.RLock(); defer id.mu.RUnlock(); return id.homeID }

// OwnNodeID returns the controller's own node id.
func (id *Identity) OwnNodeID() uint8 { id.mu.RLock(); defer id.mu.RUnlock(); return id.ownNodeID }

// SUCNodeID returns the cached SUC node id, or 0 if there is none.
func (id *Identity) SUCNodeID() uint8 { id.mu.RLock(); defer id.mu.RUnlock(); return id.sucNodeID }

// LibraryVersion returns the cached library version string.
func (id *Identity) LibraryVersion() string { id.mu.RLock(); defer id.mu.RUnlock(); return id.libraryVer }

// Library returns the cached library type.
func (id *Identity) Library() LibraryType { id.mu.RLock(); defer id.mu.RUnlock(); return id.libraryType }

// SerialAPIVersion returns the cached serial API version string.
func (id *Identity) SerialAPIVersion() string {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.serialAPIVersion
}

// ManufacturerTriple returns the cached manufacturer/product-type/product id triple.
func (id *Identity) ManufacturerTriple() (manufacturerID, productType, productID uint16) {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.manufacturerID, id.productType, id.productID
}

// Roles returns a copy of the cached role flags.
func (id *Identity) Roles() RoleFlags {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.roles
}

// MutateRoles applies fn to the role flags under the write lock. The
// interview orchestrator uses this to batch several Set* calls atomically.
func (id *Identity) MutateRoles(fn func(*RoleFlags)) {
	id.mu.Lock()
	defer id.mu.Unlock()
	fn(&id.roles)
}

// IsSecondary reports the cached secondary-controller flag (false if unset).
func (id *Identity) IsSecondary() bool {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return flagTrue(id.roles.IsSecondary)
}

// IsStaticUpdateController reports the cached SUC flag (false if unset).
func (id *Identity) IsStaticUpdateController() bool {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return flagTrue(id.roles.IsStaticUpdateController)
}

// IsSISPresent reports the cached SIS-present flag (false if unset).
func (id *Identity) IsSISPresent() bool {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return flagTrue(id.roles.IsSISPresent)
}

// SetSupportedFunctions replaces the supported function-type set.
func (id *Identity) SetSupportedFunctions(fns []FunctionType) {
	id.mu.Lock()
	defer id.mu.Unlock()
	m := make(map[FunctionType]struct{}, len(fns))
	for _, f := range fns {
		m[f] = struct{}{}
	}
	id.supportedFunctions = m
}

// IsFunctionSupported is an O(1) amortized membership test over the
// supported-function-type set. Returns *DriverNotReadyError if interview has
// not completed, per spec.md §4.1 and §9.
func (id *Identity) IsFunctionSupported(fn FunctionType) (bool, error) {
	id.mu.RLock()
	defer id.mu.RUnlock()
	if !id.ready {
		return false, &DriverNotReadyError{}
	}
	_, ok := id.supportedFunctions[fn]
	return ok, nil
}
