package security

import (
	"encoding/hex"
	"fmt"
)

// NetworkKeyManager is the concrete core.SecurityManager backing the
// controller core's S0 bootstrap: a single pre-shared network key, hex
// decoded once at startup from configuration.
type NetworkKeyManager struct {
	key [16]byte
}

// NewNetworkKeyManager decodes a 32-character hex string into the 16-byte S0
// network key. Returns an error if the key is malformed.
func NewNetworkKeyManager(hexKey string) (*NetworkKeyManager, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, err
	}
	if len(raw) != 16 {
		return nil, fmt.Errorf("security: network key must be 32 hex characters, got %d", len(hexKey))
	}
	var m NetworkKeyManager
	copy(m.key[:], raw)
	return &m, nil
}

// NetworkKey implements core.SecurityManager.
func (m *NetworkKeyManager) NetworkKey() [16]byte { return m.key }
