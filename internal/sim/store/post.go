package store

// deleteFloatingNibs removes single surface blocks that stick up more than
// one block above all four neighbours with air right below them. Neighbours
// outside the chunk are read from the terrain height.
func (s *ChunkStore) deleteFloatingNibs(ch *Chunk) {
	ox, oz := ch.CX*chunkSize, ch.CZ*chunkSize
	neighbour := func(x, z int) int {
		if x >= 0 && x < chunkSize && z >= 0 && z < chunkSize {
			return ch.Height(x, z)
		}
		return s.cx.HeightAt(ox+x, oz+z)
	}
	for z := 0; z < chunkSize; z++ {
		for x := 0; x < chunkSize; x++ {
			h := ch.Height(x, z)
			if h < 1 {
				continue
			}
			low := 0
			for _, d := range [4][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}} {
				if neighbour(x+d[0], z+d[1]) < h-1 {
					low++
				}
			}
			if low < 4 || ch.Get(x, h-1, z) != 0 {
				continue
			}
			ch.set(x, h, z, 0)
			ch.Heightmap[x+z*chunkSize] = ch.top(x, z)
		}
	}
}
