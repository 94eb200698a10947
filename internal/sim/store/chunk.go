package store

import (
	"crypto/sha256"
	"encoding/binary"

	"terragen.ai/internal/gen/mathx"
)

const (
	chunkSize = mathx.ChunkSize
	colArea   = chunkSize * chunkSize
)

type ChunkKey struct {
	CX int
	CZ int
}

// Chunk is a generated 16 x MaxHeight x 16 block column set. It is not
// modified after Generate returns it.
type Chunk struct {
	CX, CZ    int
	MaxHeight int
	// Blocks holds palette ids, x fastest, then z, then y.
	Blocks []uint16
	// Heightmap is the highest non-air y of each column (x + z*16), or -1.
	Heightmap [colArea]int
	Biomes    BiomeContainer

	hash [32]byte
}

func newChunk(cx, cz, maxHeight int) *Chunk {
	return &Chunk{CX: cx, CZ: cz, MaxHeight: maxHeight, Blocks: make([]uint16, colArea*maxHeight)}
}

func (c *Chunk) index(x, y, z int) int {
	return x + z*chunkSize + y*colArea
}

func (c *Chunk) Key() ChunkKey { return ChunkKey{CX: c.CX, CZ: c.CZ} }

// Get returns the block at chunk-local (x,z) and world y. Out of range y is
// air.
func (c *Chunk) Get(x, y, z int) uint16 {
	if y < 0 || y >= c.MaxHeight {
		return 0
	}
	return c.Blocks[c.index(x, y, z)]
}

func (c *Chunk) set(x, y, z int, b uint16) {
	if y < 0 || y >= c.MaxHeight {
		return
	}
	c.Blocks[c.index(x, y, z)] = b
}

func (c *Chunk) Height(x, z int) int { return c.Heightmap[x+z*chunkSize] }

func (c *Chunk) top(x, z int) int {
	for y := c.MaxHeight - 1; y >= 0; y-- {
		if c.Blocks[c.index(x, y, z)] != 0 {
			return y
		}
	}
	return -1
}

// Digest is the sha256 of the blocks as little-endian uint16s.
func (c *Chunk) Digest() [32]byte {
	if c.hash == ([32]byte{}) {
		c.hash = digestBlocks(c.Blocks)
	}
	return c.hash
}

func digestBlocks(blocks []uint16) [32]byte {
	h := sha256.New()
	buf := make([]byte, 2*len(blocks))
	for i, v := range blocks {
		binary.LittleEndian.PutUint16(buf[2*i:], v)
	}
	h.Write(buf)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
