package terrain

import (
	"fmt"

	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/gen/mathx"
	"terragen.ai/internal/gen/noise"
	"terragen.ai/internal/gen/rng"
	"terragen.ai/internal/gen/stream"
)

type decorator struct {
	part     catalog.DecorationPart
	chance   float64
	blocks   *stream.Selector[uint16]
	src      noise.Source
	stackMin int
	stackMax int
}

func (c *Complex) buildDecorators(b *catalog.Biome) error {
	out := make([]decorator, 0, len(b.Decorators))
	for i, d := range b.Decorators {
		sel, err := c.blockSelector(d.Blocks)
		if err != nil {
			return fmt.Errorf("biome %s decorators[%d]: %w", b.Key, i, err)
		}
		salt := rng.SaltDecorator ^ mathx.HashString(b.Key) ^ uint64(i+1)<<40
		out = append(out, decorator{
			part:     d.Part,
			chance:   d.Chance,
			blocks:   sel,
			src:      noise.Bind(c.noise, rng.Seed(c.seed, salt), d.Style),
			stackMin: d.StackMin,
			stackMax: d.StackMax,
		})
	}
	c.decos[b.Key] = out
	return nil
}

// Decoration is a stack of identical blocks. Surface stacks grow up from Y;
// ceiling stacks hang down from Y.
type Decoration struct {
	Part   catalog.DecorationPart
	Biome  string
	Y      int
	Blocks []uint16
}

func (d *decorator) roll(r *rng.RNG, x, z float64) ([]uint16, bool) {
	if r.Float64() >= d.chance {
		return nil, false
	}
	n := r.Range(d.stackMin, d.stackMax)
	if n <= 0 {
		return nil, false
	}
	id := d.blocks.Pick(d.src.At(x, z))
	out := make([]uint16, n)
	for i := range out {
		out[i] = id
	}
	return out, true
}

// Decorate returns the surface decoration of column (x,z), if any. The first
// decorator of the true biome that fits the column and passes its chance
// wins.
func (c *Complex) Decorate(x, z int) (Decoration, bool) {
	if !c.dim.Decorates() {
		return Decoration{}, false
	}
	b := c.TrueBiome.GetInt(x, z)
	h := c.HeightAt(x, z)
	fluid := c.dim.FluidHeight
	for i := range c.decos[b.Key()] {
		d := &c.decos[b.Key()][i]
		var y int
		switch d.part {
		case catalog.PartNone:
			y = h + 1
		case catalog.PartShoreLine:
			if h < fluid || h > fluid+1 {
				continue
			}
			y = h + 1
		case catalog.PartSeaSurface:
			if h >= fluid {
				continue
			}
			y = fluid + 1
		default:
			continue
		}
		r := rng.At(c.seed, x, z, rng.SaltDecorator+uint64(i))
		blocks, ok := d.roll(&r, float64(x), float64(z))
		if !ok {
			continue
		}
		if room := c.dim.MaxHeight - y; room < len(blocks) {
			if room <= 0 {
				return Decoration{}, false
			}
			blocks = blocks[:room]
		}
		return Decoration{Part: d.part, Biome: b.Key(), Y: y, Blocks: blocks}, true
	}
	return Decoration{}, false
}

// CeilingDecoration returns what hangs below the solid block at y+1 of column
// (x,z). Ceiling decorators come from the cave biome.
func (c *Complex) CeilingDecoration(x, y, z int) (Decoration, bool) {
	if !c.dim.Decorates() || y < 0 {
		return Decoration{}, false
	}
	b := c.CaveBiome.GetInt(x, z)
	for i := range c.decos[b.Key()] {
		d := &c.decos[b.Key()][i]
		if d.part != catalog.PartCeiling {
			continue
		}
		r := rng.At3(c.seed, x, y, z, rng.SaltDecorator+uint64(i))
		blocks, ok := d.roll(&r, float64(x), float64(z))
		if !ok {
			continue
		}
		if len(blocks) > y+1 {
			blocks = blocks[:y+1]
		}
		return Decoration{Part: d.part, Biome: b.Key(), Y: y, Blocks: blocks}, true
	}
	return Decoration{}, false
}
