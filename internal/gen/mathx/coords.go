package mathx

const (
	ChunkShift  = 4
	RegionShift = 5

	ChunkSize  = 1 << ChunkShift
	RegionSize = 1 << RegionShift // chunks per region side
)

// Block -> chunk -> region conversions. Arithmetic shifts floor toward -inf,
// so negative coordinates land in the right tile.

func BlockToChunk(b int) int  { return b >> ChunkShift }
func ChunkToRegion(c int) int { return c >> RegionShift }
func BlockToRegion(b int) int { return b >> (ChunkShift + RegionShift) }
func ChunkOrigin(c int) int   { return c << ChunkShift }

// ChunkCenter is the block coordinate sampled for chunk-level attributes.
func ChunkCenter(c int) int { return (c << ChunkShift) + 8 }

func BlockInChunk(b int) int { return b & (ChunkSize - 1) }
