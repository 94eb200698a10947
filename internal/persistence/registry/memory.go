package registry

import (
	"context"
	"sync"
	"sync/atomic"
)

const memShards = 32

type memShard struct {
	mu      sync.RWMutex
	regions map[RegionKey]*Snapshot
}

// Memory keeps snapshots in process. Appends copy the region's snapshot and
// publish the new one under the shard lock.
type Memory struct {
	shards [memShards]memShard
	closed atomic.Bool
}

func NewMemory() *Memory {
	m := &Memory{}
	for i := range m.shards {
		m.shards[i].regions = map[RegionKey]*Snapshot{}
	}
	return m
}

func shardIndex(k RegionKey, n int) int {
	h := uint32(k.RX)*0x9e3779b1 ^ uint32(k.RZ)*0x85ebca6b
	return int(h % uint32(n))
}

func (m *Memory) Get(ctx context.Context, k RegionKey) (*Snapshot, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sh := &m.shards[shardIndex(k, memShards)]
	sh.mu.RLock()
	s := sh.regions[k]
	sh.mu.RUnlock()
	if s == nil {
		return newSnapshot(k, nil), nil
	}
	return s, nil
}

func (m *Memory) Append(ctx context.Context, k RegionKey, p Placement) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	sh := &m.shards[shardIndex(k, memShards)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	s := sh.regions[k]
	if s == nil {
		s = newSnapshot(k, nil)
	}
	sh.regions[k] = s.with(p)
	return nil
}

func (m *Memory) Close() error {
	m.closed.Store(true)
	return nil
}

// Regions lists the regions holding at least one placement.
func (m *Memory) Regions() []RegionKey {
	var out []RegionKey
	for i := range m.shards {
		m.shards[i].mu.RLock()
		for k := range m.shards[i].regions {
			out = append(out, k)
		}
		m.shards[i].mu.RUnlock()
	}
	return out
}
