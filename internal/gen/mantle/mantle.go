// Package mantle holds block writes that precede terrain fill (structure
// pieces that may cross chunk borders) and per-chunk "layer done" flags.
package mantle

import (
	"context"
	"sort"
	"sync"

	"terragen.ai/internal/gen/mathx"
)

const shardCount = 64

type ChunkKey struct {
	CX int
	CZ int
}

// Flag names a per-chunk layer that must run at most once.
type Flag uint8

const (
	FlagJigsaw Flag = iota + 1
)

// Write is one block placed at world coordinates.
type Write struct {
	X, Y, Z int
	Block   uint16
}

type blockPos struct{ x, y, z int }

type chunkData struct {
	writes map[blockPos]uint16
	flags  map[Flag]*flagState
}

type flagState struct {
	done chan struct{}
	err  error
}

type shard struct {
	mu     sync.Mutex
	chunks map[ChunkKey]*chunkData
}

// Mantle is safe for concurrent use. Locks are per shard, so unrelated
// chunks never contend.
type Mantle struct {
	shards [shardCount]shard
}

func New() *Mantle {
	m := &Mantle{}
	for i := range m.shards {
		m.shards[i].chunks = map[ChunkKey]*chunkData{}
	}
	return m
}

func (m *Mantle) shard(k ChunkKey) *shard {
	return &m.shards[mathx.Hash2(0, k.CX, k.CZ)%shardCount]
}

// chunk returns the data of k, creating it. Caller holds sh.mu.
func (sh *shard) chunk(k ChunkKey) *chunkData {
	c := sh.chunks[k]
	if c == nil {
		c = &chunkData{writes: map[blockPos]uint16{}, flags: map[Flag]*flagState{}}
		sh.chunks[k] = c
	}
	return c
}

func keyOf(x, z int) ChunkKey {
	return ChunkKey{CX: mathx.BlockToChunk(x), CZ: mathx.BlockToChunk(z)}
}

// Set records a block write. The first write to a position wins.
func (m *Mantle) Set(x, y, z int, b uint16) bool {
	k := keyOf(x, z)
	sh := m.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	c := sh.chunk(k)
	p := blockPos{x, y, z}
	if _, ok := c.writes[p]; ok {
		return false
	}
	c.writes[p] = b
	return true
}

// Claim records all writes or none. It fails when any position already
// holds a block. Within ws the first write to a position wins.
func (m *Mantle) Claim(ws []Write) bool {
	idx := m.lockFor(ws)
	defer m.unlock(idx)
	for _, w := range ws {
		k := keyOf(w.X, w.Z)
		if c := m.shard(k).chunks[k]; c != nil {
			if _, ok := c.writes[blockPos{w.X, w.Y, w.Z}]; ok {
				return false
			}
		}
	}
	for _, w := range ws {
		k := keyOf(w.X, w.Z)
		c := m.shard(k).chunk(k)
		p := blockPos{w.X, w.Y, w.Z}
		if _, ok := c.writes[p]; !ok {
			c.writes[p] = w.Block
		}
	}
	return true
}

// Release removes writes recorded by a successful Claim of ws.
func (m *Mantle) Release(ws []Write) {
	idx := m.lockFor(ws)
	defer m.unlock(idx)
	for _, w := range ws {
		k := keyOf(w.X, w.Z)
		sh := m.shard(k)
		c := sh.chunks[k]
		if c == nil {
			continue
		}
		p := blockPos{w.X, w.Y, w.Z}
		if b, ok := c.writes[p]; ok && b == w.Block {
			delete(c.writes, p)
		}
		if len(c.writes) == 0 && len(c.flags) == 0 {
			delete(sh.chunks, k)
		}
	}
}

// lockFor locks every shard touched by ws in ascending index order and
// returns the locked indices.
func (m *Mantle) lockFor(ws []Write) []int {
	seen := map[int]bool{}
	var idx []int
	for _, w := range ws {
		k := keyOf(w.X, w.Z)
		i := int(mathx.Hash2(0, k.CX, k.CZ) % shardCount)
		if !seen[i] {
			seen[i] = true
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	for _, i := range idx {
		m.shards[i].mu.Lock()
	}
	return idx
}

func (m *Mantle) unlock(idx []int) {
	for j := len(idx) - 1; j >= 0; j-- {
		m.shards[idx[j]].mu.Unlock()
	}
}

func (m *Mantle) Get(x, y, z int) (uint16, bool) {
	k := keyOf(x, z)
	sh := m.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	c := sh.chunks[k]
	if c == nil {
		return 0, false
	}
	b, ok := c.writes[blockPos{x, y, z}]
	return b, ok
}

// ChunkWrites returns the writes inside chunk k ordered by (y, z, x).
func (m *Mantle) ChunkWrites(k ChunkKey) []Write {
	sh := m.shard(k)
	sh.mu.Lock()
	c := sh.chunks[k]
	var out []Write
	if c != nil {
		out = make([]Write, 0, len(c.writes))
		for p, b := range c.writes {
			out = append(out, Write{X: p.x, Y: p.y, Z: p.z, Block: b})
		}
	}
	sh.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		return a.X < b.X
	})
	return out
}

// Once runs fn for (k, f) at most once to success. Concurrent callers wait
// for the running call and share its result; a failed call is forgotten so
// a later caller retries.
func (m *Mantle) Once(ctx context.Context, k ChunkKey, f Flag, fn func(context.Context) error) error {
	sh := m.shard(k)
	sh.mu.Lock()
	c := sh.chunk(k)
	st, running := c.flags[f]
	if !running {
		st = &flagState{done: make(chan struct{})}
		c.flags[f] = st
	}
	sh.mu.Unlock()

	if running {
		select {
		case <-st.done:
			return st.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	err := fn(ctx)
	if err != nil {
		sh.mu.Lock()
		delete(c.flags, f)
		sh.mu.Unlock()
	}
	st.err = err
	close(st.done)
	return err
}

// Done reports whether (k, f) has completed successfully.
func (m *Mantle) Done(k ChunkKey, f Flag) bool {
	sh := m.shard(k)
	sh.mu.Lock()
	c := sh.chunks[k]
	var st *flagState
	if c != nil {
		st = c.flags[f]
	}
	sh.mu.Unlock()
	if st == nil {
		return false
	}
	select {
	case <-st.done:
		return st.err == nil
	default:
		return false
	}
}

// Len is the number of chunks with mantle data.
func (m *Mantle) Len() int {
	n := 0
	for i := range m.shards {
		m.shards[i].mu.Lock()
		n += len(m.shards[i].chunks)
		m.shards[i].mu.Unlock()
	}
	return n
}

// DoneKeys lists the chunks whose flag f has completed, sorted by (CX, CZ).
func (m *Mantle) DoneKeys(f Flag) []ChunkKey {
	var out []ChunkKey
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.Lock()
		for k, c := range sh.chunks {
			if st := c.flags[f]; st != nil {
				select {
				case <-st.done:
					if st.err == nil {
						out = append(out, k)
					}
				default:
				}
			}
		}
		sh.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CX != out[j].CX {
			return out[i].CX < out[j].CX
		}
		return out[i].CZ < out[j].CZ
	})
	return out
}

// MarkDone records flag f of chunk k as completed without running anything.
func (m *Mantle) MarkDone(k ChunkKey, f Flag) {
	sh := m.shard(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	c := sh.chunk(k)
	if _, ok := c.flags[f]; ok {
		return
	}
	st := &flagState{done: make(chan struct{})}
	close(st.done)
	c.flags[f] = st
}

// Writes returns every recorded write, chunk by chunk in key order.
func (m *Mantle) Writes() []Write {
	var keys []ChunkKey
	for i := range m.shards {
		sh := &m.shards[i]
		sh.mu.Lock()
		for k, c := range sh.chunks {
			if len(c.writes) > 0 {
				keys = append(keys, k)
			}
		}
		sh.mu.Unlock()
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	var out []Write
	for _, k := range keys {
		out = append(out, m.ChunkWrites(k)...)
	}
	return out
}
