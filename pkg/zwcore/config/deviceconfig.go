package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/zwave-network/zwcore/pkg/zwcore/core"
)

// deviceConfigFile is the on-disk YAML shape for one device-config table
// entry (spec.md §4.6's "device-config table" external collaborator).
type deviceConfigFile struct {
	ManufacturerID uint16                        `yaml:"manufacturer_id"`
	ProductType    uint16                        `yaml:"product_type"`
	ProductID      uint16                        `yaml:"product_id"`
	Associations   map[uint8]associationFileEntry `yaml:"associations"`
}

type associationFileEntry struct {
	Label        string `yaml:"label"`
	MaxNodes     uint8  `yaml:"max_nodes"`
	Lifeline     bool   `yaml:"lifeline,omitempty"`
	MultiChannel bool   `yaml:"multi_channel,omitempty"`
}

// LoadDeviceConfigTable reads every *.yaml file in dir and builds a
// core.DeviceConfigTable. A missing directory yields an empty table.
func LoadDeviceConfigTable(dir string) (*core.DeviceConfigTable, error) {
	if dir == "" {
		return core.NewDeviceConfigTable(nil), nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return core.NewDeviceConfigTable(nil), nil
		}
		return nil, err
	}

	var configs []core.DeviceConfig
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		var f deviceConfigFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, err
		}
		groups := make(map[uint8]core.AssociationGroupConfig, len(f.Associations))
		for id, a := range f.Associations {
			groups[id] = core.AssociationGroupConfig{
				Label:        a.Label,
				MaxNodes:     a.MaxNodes,
				IsLifeline:   a.Lifeline,
				MultiChannel: a.MultiChannel,
			}
		}
		configs = append(configs, core.DeviceConfig{
			ManufacturerID:    f.ManufacturerID,
			ProductType:       f.ProductType,
			ProductID:         f.ProductID,
			AssociationGroups: groups,
		})
	}
	return core.NewDeviceConfigTable(configs), nil
}
