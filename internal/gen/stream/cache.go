package stream

import (
	"math/bits"
	"sync"

	"terragen.ai/internal/gen/mathx"
)

const cacheShards = 256

type cell struct{ x, z int }

type cacheShard[T any] struct {
	mu sync.RWMutex
	m  map[cell]T
}

// tileCache is an append-only memo keyed by integral coordinate. Coordinates
// of one tile share a shard; distinct tiles spread over shards so concurrent
// workers on different chunks rarely contend. Racing inserts for the same
// cell keep the first value, which is fine because values are pure.
type tileCache[T any] struct {
	shift  uint
	shards [cacheShards]cacheShard[T]
}

func newTileCache[T any](tileSize int) *tileCache[T] {
	if tileSize < 1 {
		tileSize = 1
	}
	shift := uint(bits.Len(uint(tileSize - 1)))
	c := &tileCache[T]{shift: shift}
	for i := range c.shards {
		c.shards[i].m = make(map[cell]T)
	}
	return c
}

func (c *tileCache[T]) tileSize() int { return 1 << c.shift }

func (c *tileCache[T]) shard(x, z int) *cacheShard[T] {
	h := mathx.Hash2(0, x>>c.shift, z>>c.shift)
	return &c.shards[h%cacheShards]
}

func (c *tileCache[T]) get(x, z int, compute func() T) T {
	sh := c.shard(x, z)
	k := cell{x, z}
	sh.mu.RLock()
	v, ok := sh.m[k]
	sh.mu.RUnlock()
	if ok {
		return v
	}
	v = compute()
	sh.mu.Lock()
	if prev, ok := sh.m[k]; ok {
		v = prev
	} else {
		sh.m[k] = v
	}
	sh.mu.Unlock()
	return v
}

func (c *tileCache[T]) len() int {
	n := 0
	for i := range c.shards {
		c.shards[i].mu.RLock()
		n += len(c.shards[i].m)
		c.shards[i].mu.RUnlock()
	}
	return n
}

// memo caches a pure function per key.
type memo[K comparable, V any] struct {
	m sync.Map
}

func newMemo[K comparable, V any]() *memo[K, V] {
	return &memo[K, V]{}
}

func (m *memo[K, V]) get(k K, f func(K) V) V {
	if v, ok := m.m.Load(k); ok {
		return v.(V)
	}
	v, _ := m.m.LoadOrStore(k, f(k))
	return v.(V)
}
