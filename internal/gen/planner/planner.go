// Package planner lays out structures in the mantle once the jigsaw engine
// has picked an anchor.
package planner

import (
	"io"
	"log"

	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/gen/mantle"
	"terragen.ai/internal/gen/rng"
	"terragen.ai/internal/gen/terrain"
	"terragen.ai/internal/persistence/registry"
)

// Footprint accepts an anchor when the terrain under the structure's
// footprint is flat and dry enough and no other structure already occupies
// any target block. Pieces are boxes relative to the anchor, whose Y is the
// surface block, rotated by a random quarter turn.
type Footprint struct {
	cx     *terrain.Complex
	mantle *mantle.Mantle
	logger *log.Logger
}

func NewFootprint(c *terrain.Complex, m *mantle.Mantle, logger *log.Logger) *Footprint {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Footprint{cx: c, mantle: m, logger: logger}
}

// rotate maps a local offset inside a w x d footprint by q quarter turns.
// Offsets inside the footprint stay inside the rotated footprint.
func rotate(dx, dz, w, d, q int) (int, int) {
	switch q & 3 {
	case 1:
		return d - 1 - dz, dx
	case 2:
		return w - 1 - dx, d - 1 - dz
	case 3:
		return dz, w - 1 - dx
	}
	return dx, dz
}

// Fits reports whether st, turned q quarter turns, can stand at a. Every
// footprint column must be within MaxSlope (0 = any) and, unless
// AllowWater, at or above fluid level.
func (f *Footprint) Fits(st *catalog.Structure, a registry.Anchor, q int) bool {
	fluid := f.cx.Dimension().FluidHeight
	for i := 0; i < st.Width; i++ {
		for j := 0; j < st.Depth; j++ {
			dx, dz := rotate(i, j, st.Width, st.Depth, q)
			x, z := a.X+dx, a.Z+dz
			if st.MaxSlope > 0 && f.cx.Slope.GetInt(x, z) > st.MaxSlope {
				return false
			}
			if !st.AllowWater && f.cx.HeightAt(x, z) < fluid {
				return false
			}
		}
	}
	return true
}

// Place lays st out at a and claims its blocks in the mantle in one step.
// It returns the claimed writes so a caller that cannot record the anchor
// can release them.
func (f *Footprint) Place(st *catalog.Structure, a registry.Anchor, r *rng.RNG) ([]mantle.Write, bool) {
	q := r.Int(4)
	if !f.Fits(st, a, q) {
		return nil, false
	}
	maxY := f.cx.Dimension().MaxHeight
	blocks := f.cx.Store().Blocks
	var writes []mantle.Write
	for _, pc := range st.Pieces {
		id := blocks.ID(pc.Block)
		for i := 0; i < pc.Size[0]; i++ {
			for k := 0; k < pc.Size[2]; k++ {
				dx, dz := rotate(pc.Offset[0]+i, pc.Offset[2]+k, st.Width, st.Depth, q)
				for j := 0; j < pc.Size[1]; j++ {
					y := a.Y + pc.Offset[1] + j
					if y < 0 || y >= maxY {
						continue
					}
					writes = append(writes, mantle.Write{X: a.X + dx, Y: y, Z: a.Z + dz, Block: id})
				}
			}
		}
	}
	if !f.mantle.Claim(writes) {
		return nil, false
	}
	f.logger.Printf("planner: %s at %d,%d,%d rot %d (%d blocks)", st.Key, a.X, a.Y, a.Z, q*90, len(writes))
	return writes, true
}

// Extent is the largest horizontal reach, in blocks, of any structure in
// the store measured from its anchor. Chunks further than this from a
// chunk can never write into it.
func Extent(s *catalog.Store) int {
	ext := 0
	for _, key := range s.StructureKeys() {
		st, err := s.Structure(key)
		if err != nil {
			continue
		}
		reach := 0
		for _, pc := range st.Pieces {
			for _, v := range []int{pc.Offset[0], pc.Offset[2], pc.Offset[0] + pc.Size[0], pc.Offset[2] + pc.Size[2]} {
				if v < 0 {
					v = -v
				}
				reach = max(reach, v)
			}
		}
		ext = max(ext, st.Width+st.Depth+reach)
	}
	return ext
}
