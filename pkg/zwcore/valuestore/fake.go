package valuestore

import "github.com/zwave-network/zwcore/pkg/zwcore/core"

// Fake is an in-memory core.NodeValueStore used by component tests that
// don't need a real Redis instance.
type Fake struct {
	data map[string]map[string]string // "table:key" -> field -> value
}

var _ core.NodeValueStore = (*Fake)(nil)

// NewFake creates an empty fake value store.
func NewFake() *Fake {
	return &Fake{data: make(map[string]map[string]string)}
}

func (f *Fake) bucket(table, key string) map[string]string {
	k := table + ":" + key
	b, ok := f.data[k]
	if !ok {
		b = make(map[string]string)
		f.data[k] = b
	}
	return b
}

// Set implements core.NodeValueStore.
func (f *Fake) Set(table, key, field, value string) error {
	f.bucket(table, key)[field] = value
	return nil
}

// Get implements core.NodeValueStore.
func (f *Fake) Get(table, key, field string) (string, bool) {
	v, ok := f.bucket(table, key)[field]
	return v, ok
}
