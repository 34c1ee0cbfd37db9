// Package syncutil provides keyed locking for request handlers.
package syncutil

import (
	"context"
	"hash/fnv"
)

const shardCount = 256

// KeyedMutex serializes work per string key over a fixed pool of
// channel-based locks. Waiters can bail out when their context ends,
// which a plain sync.Mutex cannot offer. Distinct keys may share a
// shard; that only costs extra waiting, never lost exclusion.
type KeyedMutex struct {
	shards [shardCount]chan struct{}
}

// NewKeyedMutex creates the lock pool with every shard unlocked.
func NewKeyedMutex() *KeyedMutex {
	m := &KeyedMutex{}
	for i := range m.shards {
		m.shards[i] = make(chan struct{}, 1)
		m.shards[i] <- struct{}{}
	}
	return m
}

// Lock acquires the lock covering key and returns its unlock function,
// which the caller must invoke. When ctx ends while waiting, Lock
// returns ctx.Err() and the lock is not held.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	shard := m.shards[shardIdx(key)]

	select {
	case <-shard:
		return func() { shard <- struct{}{} }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func shardIdx(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % shardCount
}
