package valuestore

import "github.com/zwave-network/zwcore/pkg/zwcore/core"

// Pair combines two per-node indexes into the single NodeValueStore the
// interview orchestrator hands each Node (spec.md §4.1's "batch-indexing the
// two value databases"): writes go to primary, reads fall back to secondary
// when primary has no answer.
type Pair struct {
	primary   *Index
	secondary *Index
}

var _ core.NodeValueStore = (*Pair)(nil)

// NewPair builds a two-database index for one node.
func NewPair(primary, secondary *Index) *Pair {
	return &Pair{primary: primary, secondary: secondary}
}

// Set implements core.NodeValueStore by writing through to primary.
func (p *Pair) Set(table, key, field, value string) error {
	return p.primary.Set(table, key, field, value)
}

// Get implements core.NodeValueStore, preferring primary and falling back to
// secondary on a miss.
func (p *Pair) Get(table, key, field string) (string, bool) {
	if v, ok := p.primary.Get(table, key, field); ok {
		return v, true
	}
	return p.secondary.Get(table, key, field)
}

// BatchIndexPair builds one Pair per node id across two Redis-backed stores.
func BatchIndexPair(primary, secondary *Store, nodeIDs []uint8) map[uint8]*Pair {
	out := make(map[uint8]*Pair, len(nodeIDs))
	for _, id := range nodeIDs {
		out[id] = NewPair(NewIndex(primary, id), NewIndex(secondary, id))
	}
	return out
}
