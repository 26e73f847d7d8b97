// Package valuestore implements the per-node value store external
// collaborator spec.md §1 describes: a key/value + metadata database with an
// index pre-computed per node (spec.md §4.1's "batch-indexing the two value
// databases").
package valuestore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/zwave-network/zwcore/pkg/zwcore/core"
)

// Store is a Redis-backed implementation of core.NodeValueStore, shared
// across every node and scoped per-node by a precomputed key prefix.
type Store struct {
	client *redis.Client
	prefix string
}

// New wraps an existing Redis client. prefix namespaces all keys this
// controller instance writes, so multiple controllers can share one Redis
// deployment.
func New(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

// Open dials Redis using addr (host:port) and returns a Store.
func Open(addr, prefix string) *Store {
	return New(redis.NewClient(&redis.Options{Addr: addr}), prefix)
}

func (s *Store) hashKey(table, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, table, key)
}

// Set stores field=value under (table, key) via a Redis hash, matching
// spec.md §1's "per-node key/value + metadata database".
func (s *Store) Set(table, key, field, value string) error {
	return s.client.HSet(context.Background(), s.hashKey(table, key), field, value).Err()
}

// Get reads field under (table, key). The bool reports whether the field
// existed; a Redis-level error is swallowed to "not found" since
// core.NodeValueStore has no error return for Get (spec.md §6's Node
// contract exposes valueDB as a plain getter/setter, not a fallible one).
func (s *Store) Get(table, key, field string) (string, bool) {
	v, err := s.client.HGet(context.Background(), s.hashKey(table, key), field).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

// Index is the per-node batch index spec.md §4.1 asks the interview
// orchestrator to compute: a NodeValueStore bound to a single node id,
// scoped by table-name prefixing so Set/Get never cross node boundaries.
type Index struct {
	store  *Store
	nodeID uint8
}

var _ core.NodeValueStore = (*Index)(nil)

// NewIndex batch-indexes store for a single node id.
func NewIndex(store *Store, nodeID uint8) *Index {
	return &Index{store: store, nodeID: nodeID}
}

func (ix *Index) scopedTable(table string) string {
	return fmt.Sprintf("node%d:%s", ix.nodeID, table)
}

// Set implements core.NodeValueStore.
func (ix *Index) Set(table, key, field, value string) error {
	return ix.store.Set(ix.scopedTable(table), key, field, value)
}

// Get implements core.NodeValueStore.
func (ix *Index) Get(table, key, field string) (string, bool) {
	return ix.store.Get(ix.scopedTable(table), key, field)
}

// BatchIndex builds one Index per node id.
func BatchIndex(store *Store, nodeIDs []uint8) map[uint8]*Index {
	out := make(map[uint8]*Index, len(nodeIDs))
	for _, id := range nodeIDs {
		out[id] = NewIndex(store, id)
	}
	return out
}
