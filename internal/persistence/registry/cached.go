package registry

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Cached fronts a backend with an in-memory snapshot cache. Concurrent
// misses for one region share a single backend load. Appends go to the
// backend first and then replace the cached snapshot.
type Cached struct {
	backend Registry
	group   singleflight.Group
	closed  atomic.Bool

	mu    sync.RWMutex
	cache map[RegionKey]*Snapshot
	// region locks order Append against Get-miss fills of the same region.
	locks [memShards]sync.Mutex
}

func NewCached(backend Registry) *Cached {
	return &Cached{backend: backend, cache: map[RegionKey]*Snapshot{}}
}

func (c *Cached) Backend() Registry { return c.backend }

func (c *Cached) lookup(k RegionKey) *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache[k]
}

func (c *Cached) Get(ctx context.Context, k RegionKey) (*Snapshot, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if s := c.lookup(k); s != nil {
		return s, nil
	}
	// The shared load ignores cancellation of the caller that started it;
	// each caller still returns on its own ctx.
	load := context.WithoutCancel(ctx)
	ch := c.group.DoChan(k.String(), func() (any, error) {
		mu := &c.locks[shardIndex(k, memShards)]
		mu.Lock()
		defer mu.Unlock()
		if s := c.lookup(k); s != nil {
			return s, nil
		}
		s, err := c.backend.Get(load, k)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[k] = s
		c.mu.Unlock()
		return s, nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cached) Append(ctx context.Context, k RegionKey, p Placement) error {
	mu := &c.locks[shardIndex(k, memShards)]
	mu.Lock()
	defer mu.Unlock()
	if err := c.backend.Append(ctx, k, p); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s := c.cache[k]; s != nil {
		c.cache[k] = s.with(p)
	}
	return nil
}

func (c *Cached) Close() error {
	c.closed.Store(true)
	return c.backend.Close()
}
