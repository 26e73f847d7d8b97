package interview

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/zwave-network/zwcore/pkg/zwcore/core"
)

// cacheFile is the on-disk JSON shape of core.Cache (spec.md §6).
type cacheFile struct {
	Nodes map[string]core.NodeCache `json:"nodes"`
}

// LoadCacheFile reads a node cache from path. A missing file yields an empty
// cache, not an error — a fresh controller has no prior cache.
func LoadCacheFile(path string) (core.Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Cache{Nodes: map[string]core.NodeCache{}}, nil
		}
		return core.Cache{}, err
	}
	var f cacheFile
	if err := json.Unmarshal(data, &f); err != nil {
		return core.Cache{}, err
	}
	if f.Nodes == nil {
		f.Nodes = map[string]core.NodeCache{}
	}
	return core.Cache{Nodes: f.Nodes}, nil
}

// SaveCacheFile writes the registry's current node set to path as a cache
// file, for the next startup's restoreFromCache to pick up.
func SaveCacheFile(path string, registry *core.Registry) error {
	nodes := make(map[string]core.NodeCache, registry.Len())
	for _, n := range registry.All() {
		nodes[strconv.Itoa(int(n.ID()))] = n.Serialize()
	}
	data, err := json.MarshalIndent(cacheFile{Nodes: nodes}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
