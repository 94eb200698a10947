package terrain

import (
	"fmt"
	"math"

	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/gen/mathx"
	"terragen.ai/internal/gen/noise"
	"terragen.ai/internal/gen/rng"
	"terragen.ai/internal/gen/stream"
)

// layer is one resolved palette band of a biome.
type layer struct {
	blocks *stream.Selector[uint16]
	src    noise.Source
	thick  noise.Source
	min    int
	max    int
}

func (c *Complex) blockSelector(ws []catalog.Weighted) (*stream.Selector[uint16], error) {
	ids := make([]uint16, len(ws))
	for i, w := range ws {
		ids[i] = c.store.Blocks.ID(w.Key)
	}
	weights, err := stream.RarityWeights(weightsOf(ws))
	if err != nil {
		return nil, err
	}
	return stream.NewSelector(ids, weights)
}

func (c *Complex) buildLayers(b *catalog.Biome) error {
	out := make([]layer, 0, len(b.Layers))
	for i, l := range b.Layers {
		sel, err := c.blockSelector(l.Blocks)
		if err != nil {
			return fmt.Errorf("biome %s layers[%d]: %w", b.Key, i, err)
		}
		salt := rng.SaltRock ^ mathx.HashString(b.Key) ^ uint64(i+1)<<32
		out = append(out, layer{
			blocks: sel,
			src:    noise.Bind(c.noise, rng.Seed(c.seed, salt), l.Style),
			thick:  noise.Bind(c.noise, rng.Seed(c.seed, salt^0x74686b), l.HeightStyle),
			min:    l.MinHeight,
			max:    l.MaxHeight,
		})
	}
	c.layers[b.Key] = out
	return nil
}

func (c *Complex) buildMaterials() error {
	d := c.dim
	rock, err := stream.SelectRarity(c.noiseStream(rng.SaltRock, d.RockPalette.Style), c.paletteIDs(d.RockPalette), weightsOf(d.RockPalette.Blocks))
	if err != nil {
		return fmt.Errorf("dimension %s rock_palette: %w", d.Key, err)
	}
	c.Rock = rock.Named("rock")
	fluid, err := stream.SelectRarity(c.noiseStream(rng.SaltFluid, d.FluidPalette.Style), c.paletteIDs(d.FluidPalette), weightsOf(d.FluidPalette.Blocks))
	if err != nil {
		return fmt.Errorf("dimension %s fluid_palette: %w", d.Key, err)
	}
	c.Fluid = fluid.Named("fluid")

	white := noise.Bind(c.noise, rng.Seed(c.seed, rng.SaltJigsaw), noise.Signature{Kind: noise.KindWhite})
	c.ChunkSeed = stream.Of2("chunk-seed", func(cx, cz float64) int64 {
		pert := int64(white.At(cx, cz) * (1 << 31))
		return int64(mathx.Hash2(c.seed+pert, int(cx), int(cz)))
	})

	c.Terrain = stream.Of3("terrain", func(x, y, z float64) uint16 {
		return c.Block(mathx.Floor(x), mathx.Floor(y), mathx.Floor(z))
	})
	return nil
}

func (c *Complex) paletteIDs(p catalog.Palette) []uint16 {
	ids := make([]uint16, len(p.Blocks))
	for i, w := range p.Blocks {
		ids[i] = c.store.Blocks.ID(w.Key)
	}
	return ids
}

// Column is the resolved surface of one block column.
type Column struct {
	X, Z   int
	Height int
	Biome  Biome
	// Thickness of each palette layer of Biome, top first.
	Thickness []int
}

func (c *Complex) Column(x, z int) Column {
	col := Column{X: x, Z: z, Height: c.HeightAt(x, z), Biome: c.TrueBiome.GetInt(x, z)}
	ls := c.layers[col.Biome.Key()]
	col.Thickness = make([]int, len(ls))
	fx, fz := float64(x), float64(z)
	for i, l := range ls {
		col.Thickness[i] = l.thick.Fit(l.min, l.max, fx, fz)
	}
	return col
}

// Block resolves the material at a 3D block coordinate: palette layers from
// the surface down, rock below them, fluid above the surface up to fluid
// level, air elsewhere.
func (c *Complex) Block(x, y, z int) uint16 {
	if y < 0 || y >= c.dim.MaxHeight {
		return 0
	}
	return c.blockIn(c.Column(x, z), y)
}

func (c *Complex) blockIn(col Column, y int) uint16 {
	fx, fy, fz := float64(col.X), float64(y), float64(col.Z)
	if y > col.Height {
		if y <= c.dim.FluidHeight {
			return c.Fluid.Get3(fx, fy, fz)
		}
		return 0
	}
	depth := col.Height - y
	ls := c.layers[col.Biome.Key()]
	for i, t := range col.Thickness {
		if depth < t {
			l := ls[i]
			return l.blocks.Pick(l.src.At3(fx, fy, fz))
		}
		depth -= t
	}
	return c.Rock.Get3(fx, fy, fz)
}

// FillColumn writes the blocks of column (x,z) for y in [0, len(out)) and
// returns the resolved column.
func (c *Complex) FillColumn(x, z int, out []uint16) Column {
	col := c.Column(x, z)
	top := len(out)
	if top > c.dim.MaxHeight {
		top = c.dim.MaxHeight
	}
	for y := 0; y < top; y++ {
		out[y] = c.blockIn(col, y)
	}
	for y := top; y < len(out); y++ {
		out[y] = 0
	}
	return col
}

// SurfaceY is the highest non-air y of a column after fluid, or -1.
func (c *Complex) SurfaceY(x, z int) int {
	h := c.HeightAt(x, z)
	y := int(math.Max(float64(h), float64(c.dim.FluidHeight)))
	if y >= c.dim.MaxHeight {
		y = c.dim.MaxHeight - 1
	}
	return y
}
