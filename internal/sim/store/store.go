// Package store generates and holds chunks: terrain fill from the
// evaluation graph, structure writes from the mantle, decorations, the
// biome container and post filters.
package store

import (
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"

	"terragen.ai/internal/gen/jigsaw"
	"terragen.ai/internal/gen/mantle"
	"terragen.ai/internal/gen/mathx"
	"terragen.ai/internal/gen/terrain"
)

type Config struct {
	Complex *terrain.Complex
	// Jigsaw may be nil, in which case no structures are placed.
	Jigsaw *jigsaw.Engine
	Logger *log.Logger
	// Reach is how many chunks around a chunk must have run their jigsaw
	// layer before the chunk is filled.
	Reach int
}

type entry struct {
	done chan struct{}
	ch   *Chunk
	err  error
}

// ChunkStore is safe for concurrent use. Concurrent Generate calls for the
// same chunk share one run and return the same *Chunk.
type ChunkStore struct {
	cx     *terrain.Complex
	jig    *jigsaw.Engine
	mantle *mantle.Mantle
	logger *log.Logger
	reach  int
	fluids map[uint16]bool

	mu     sync.Mutex
	chunks map[ChunkKey]*entry
}

func New(cfg Config) (*ChunkStore, error) {
	if cfg.Complex == nil {
		return nil, fmt.Errorf("store: nil complex")
	}
	s := &ChunkStore{
		cx:     cfg.Complex,
		jig:    cfg.Jigsaw,
		logger: cfg.Logger,
		reach:  cfg.Reach,
		chunks: map[ChunkKey]*entry{},
		fluids: map[uint16]bool{},
	}
	for _, w := range cfg.Complex.Dimension().FluidPalette.Blocks {
		s.fluids[cfg.Complex.Store().Blocks.ID(w.Key)] = true
	}
	if s.jig != nil {
		s.mantle = s.jig.Mantle()
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	if s.reach < 0 {
		s.reach = 0
	}
	return s, nil
}

// Generate returns chunk (cx,cz), generating it on first use. A failed or
// cancelled generation is not cached.
func (s *ChunkStore) Generate(ctx context.Context, cx, cz int) (*Chunk, error) {
	k := ChunkKey{CX: cx, CZ: cz}
	s.mu.Lock()
	e, ok := s.chunks[k]
	if !ok {
		e = &entry{done: make(chan struct{})}
		s.chunks[k] = e
	}
	s.mu.Unlock()

	if ok {
		select {
		case <-e.done:
			return e.ch, e.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ch, err := s.generate(ctx, cx, cz)
	if err != nil {
		s.mu.Lock()
		delete(s.chunks, k)
		s.mu.Unlock()
		err = fmt.Errorf("chunk (%d,%d): %w", cx, cz, err)
	}
	e.ch, e.err = ch, err
	close(e.done)
	return ch, err
}

// Get returns a chunk only if it has finished generating.
func (s *ChunkStore) Get(k ChunkKey) (*Chunk, bool) {
	s.mu.Lock()
	e, ok := s.chunks[k]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case <-e.done:
		return e.ch, e.err == nil
	default:
		return nil, false
	}
}

// Restore installs previously generated blocks for chunk (cx,cz) without
// regenerating them. The heightmap and biome container are rebuilt.
func (s *ChunkStore) Restore(cx, cz int, blocks []uint16) (*Chunk, error) {
	maxH := s.cx.Dimension().MaxHeight
	if len(blocks) != colArea*maxH {
		return nil, fmt.Errorf("restore chunk (%d,%d): %d blocks, want %d", cx, cz, len(blocks), colArea*maxH)
	}
	ch := newChunk(cx, cz, maxH)
	copy(ch.Blocks, blocks)
	s.finish(ch, false)
	e := &entry{done: make(chan struct{}), ch: ch}
	close(e.done)
	s.mu.Lock()
	s.chunks[ch.Key()] = e
	s.mu.Unlock()
	return ch, nil
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	s.mu.Lock()
	keys := make([]ChunkKey, 0, len(s.chunks))
	for k, e := range s.chunks {
		select {
		case <-e.done:
			if e.err == nil {
				keys = append(keys, k)
			}
		default:
		}
	}
	s.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// BlockAt returns the block at world coordinates, generating its chunk if
// needed.
func (s *ChunkStore) BlockAt(ctx context.Context, x, y, z int) (uint16, error) {
	ch, err := s.Generate(ctx, mathx.BlockToChunk(x), mathx.BlockToChunk(z))
	if err != nil {
		return 0, err
	}
	return ch.Get(mathx.BlockInChunk(x), y, mathx.BlockInChunk(z)), nil
}

func (s *ChunkStore) generate(ctx context.Context, cx, cz int) (*Chunk, error) {
	if s.jig != nil {
		for dx := -s.reach; dx <= s.reach; dx++ {
			for dz := -s.reach; dz <= s.reach; dz++ {
				if _, err := s.jig.GenerateLayer(ctx, cx+dx, cz+dz); err != nil {
					return nil, err
				}
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	maxH := s.cx.Dimension().MaxHeight
	ch := newChunk(cx, cz, maxH)
	col := make([]uint16, maxH)
	ox, oz := mathx.ChunkOrigin(cx), mathx.ChunkOrigin(cz)
	for z := 0; z < chunkSize; z++ {
		for x := 0; x < chunkSize; x++ {
			s.cx.FillColumn(ox+x, oz+z, col)
			for y, b := range col {
				ch.Blocks[ch.index(x, y, z)] = b
			}
		}
	}

	if s.mantle != nil {
		writes := s.mantle.ChunkWrites(mantle.ChunkKey{CX: cx, CZ: cz})
		for _, w := range writes {
			ch.set(mathx.BlockInChunk(w.X), w.Y, mathx.BlockInChunk(w.Z), w.Block)
		}
		if len(writes) > 0 {
			s.logger.Printf("store: chunk (%d,%d) %d structure blocks", cx, cz, len(writes))
		}
	}
	s.decorate(ch)
	s.finish(ch, true)
	return ch, nil
}

// decorate places surface stacks into air above each column, then hangs
// ceiling decorations under every solid block below the terrain surface
// that has air beneath it.
func (s *ChunkStore) decorate(ch *Chunk) {
	ox, oz := mathx.ChunkOrigin(ch.CX), mathx.ChunkOrigin(ch.CZ)
	for z := 0; z < chunkSize; z++ {
		for x := 0; x < chunkSize; x++ {
			if d, ok := s.cx.Decorate(ox+x, oz+z); ok {
				for i, b := range d.Blocks {
					y := d.Y + i
					if ch.Get(x, y, z) != 0 {
						break
					}
					ch.set(x, y, z, b)
				}
			}
			for y := min(ch.top(x, z), s.cx.HeightAt(ox+x, oz+z)) - 1; y > 0; y-- {
				above := ch.Get(x, y+1, z)
				if ch.Get(x, y, z) != 0 || above == 0 || s.fluids[above] {
					continue
				}
				d, ok := s.cx.CeilingDecoration(ox+x, y, oz+z)
				if !ok {
					continue
				}
				for i, b := range d.Blocks {
					if ch.Get(x, y-i, z) != 0 {
						break
					}
					ch.set(x, y-i, z, b)
				}
			}
		}
	}
}

func (s *ChunkStore) finish(ch *Chunk, post bool) {
	for z := 0; z < chunkSize; z++ {
		for x := 0; x < chunkSize; x++ {
			ch.Heightmap[x+z*chunkSize] = ch.top(x, z)
		}
	}
	if post {
		s.deleteFloatingNibs(ch)
	}
	ch.Biomes = buildBiomes(s.cx, ch)
	ch.hash = [32]byte{}
	_ = ch.Digest()
}

// Len is the number of finished chunks.
func (s *ChunkStore) Len() int { return len(s.LoadedChunkKeys()) }
