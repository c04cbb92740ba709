package sync

import (
	"sync"
)

const shardCount = 32

// ShardedMap is a concurrent string-keyed map split across 32 shards.
// Instead of a single global lock, operations are distributed across shards
// based on a hash of the key, so unrelated keys rarely contend.
//
// Shard locks are only held for lookup, insert and delete. Values that need
// their own synchronization (per-client records) carry their own mutex, and
// callers must never acquire a shard lock while holding a value lock.
type ShardedMap[V any] struct {
	shards [shardCount]mapShard[V]
}

type mapShard[V any] struct {
	mu    sync.Mutex
	items map[string]V
}

// NewShardedMap creates an empty ShardedMap.
func NewShardedMap[V any]() *ShardedMap[V] {
	m := &ShardedMap[V]{}
	for i := range m.shards {
		m.shards[i].items = make(map[string]V)
	}
	return m
}

// GetOrCreate returns the value stored under key, inserting create() first
// when the key is absent. create runs under the shard lock and must be cheap.
func (m *ShardedMap[V]) GetOrCreate(key string, create func() V) V {
	shard := &m.shards[shardFor(key)]
	shard.mu.Lock()
	defer shard.mu.Unlock()

	if v, ok := shard.items[key]; ok {
		return v
	}
	v := create()
	shard.items[key] = v
	return v
}

// Get returns the value stored under key.
func (m *ShardedMap[V]) Get(key string) (V, bool) {
	shard := &m.shards[shardFor(key)]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	v, ok := shard.items[key]
	return v, ok
}

// Delete removes key. Deleting a missing key is a no-op.
func (m *ShardedMap[V]) Delete(key string) {
	shard := &m.shards[shardFor(key)]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	delete(shard.items, key)
}

// LoadAndDelete removes key and returns the value it held.
func (m *ShardedMap[V]) LoadAndDelete(key string) (V, bool) {
	shard := &m.shards[shardFor(key)]
	shard.mu.Lock()
	defer shard.mu.Unlock()
	v, ok := shard.items[key]
	if ok {
		delete(shard.items, key)
	}
	return v, ok
}

// Len returns the number of stored entries.
func (m *ShardedMap[V]) Len() int {
	n := 0
	for i := range m.shards {
		m.shards[i].mu.Lock()
		n += len(m.shards[i].items)
		m.shards[i].mu.Unlock()
	}
	return n
}

// Sweep visits every entry shard by shard while holding that shard's lock and
// deletes the entries for which remove returns true. It returns the number of
// deleted entries. remove may lock the value but must not touch the map.
func (m *ShardedMap[V]) Sweep(remove func(key string, v V) bool) int {
	removed := 0
	for i := range m.shards {
		shard := &m.shards[i]
		shard.mu.Lock()
		for key, v := range shard.items {
			if remove(key, v) {
				delete(shard.items, key)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// Range calls fn for every entry. fn runs under the shard lock.
func (m *ShardedMap[V]) Range(fn func(key string, v V)) {
	for i := range m.shards {
		shard := &m.shards[i]
		shard.mu.Lock()
		for key, v := range shard.items {
			fn(key, v)
		}
		shard.mu.Unlock()
	}
}

// shardFor returns the shard index for the given key.
// Empty keys default to shard 0.
func shardFor(key string) int {
	if key == "" {
		return 0
	}
	return int(hashString(key) % shardCount)
}

// hashString provides a simple hash for shard selection.
// Uses djb2-style hashing for good distribution.
func hashString(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}
