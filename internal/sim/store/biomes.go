package store

import "terragen.ai/internal/gen/terrain"

const (
	quartShift = 2
	quartSize  = 1 << quartShift
	quartsXZ   = chunkSize / quartSize
)

// BiomeContainer records the biome of every 4x4x4 cell of a chunk. Keys is
// the palette in first-seen order; Cells index it as qx | qz<<2 | qy<<4.
type BiomeContainer struct {
	Keys  []string
	Cells []uint8
	quart int
}

// At returns the biome key at chunk-local block (x, y, z). y is clamped to
// the container's height.
func (b *BiomeContainer) At(x, y, z int) string {
	if len(b.Cells) == 0 {
		return ""
	}
	qy := min(max(y>>quartShift, 0), b.quart-1)
	i := (x >> quartShift) | (z>>quartShift)<<2 | qy<<4
	return b.Keys[b.Cells[i]]
}

func (b *BiomeContainer) keyIndex(key string) uint8 {
	for i, k := range b.Keys {
		if k == key {
			return uint8(i)
		}
	}
	b.Keys = append(b.Keys, key)
	return uint8(len(b.Keys) - 1)
}

// buildBiomes samples each cell centre. Cells that lie wholly below the
// terrain surface take the cave biome, the rest the surface biome.
func buildBiomes(c *terrain.Complex, ch *Chunk) BiomeContainer {
	quart := (ch.MaxHeight + quartSize - 1) / quartSize
	b := BiomeContainer{Cells: make([]uint8, quartsXZ*quartsXZ*quart), quart: quart}
	ox, oz := ch.CX*chunkSize, ch.CZ*chunkSize
	for qz := 0; qz < quartsXZ; qz++ {
		for qx := 0; qx < quartsXZ; qx++ {
			wx, wz := ox+qx*quartSize+quartSize/2, oz+qz*quartSize+quartSize/2
			h := c.HeightAt(wx, wz)
			surface := c.TrueBiome.GetInt(wx, wz).Key()
			cave := c.CaveBiome.GetInt(wx, wz).Key()
			for qy := 0; qy < quart; qy++ {
				key := surface
				if qy*quartSize+quartSize-1 < h {
					key = cave
				}
				b.Cells[qx|qz<<2|qy<<4] = b.keyIndex(key)
			}
		}
	}
	return b
}
