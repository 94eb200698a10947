package terrain

import (
	"math"

	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/gen/mathx"
	"terragen.ai/internal/gen/rng"
	"terragen.ai/internal/gen/stream"
)

// registerGenerator adds g to the height blend. A key already registered is
// ignored.
func (c *Complex) registerGenerator(g *catalog.Generator) {
	for _, have := range c.gens {
		if have.Key == g.Key {
			return
		}
	}
	c.gens = append(c.gens, g)
}

// contribution is one generator's share of the height: its own noise
// lerped between bounds interpolated from the surrounding base biomes.
func (c *Complex) contribution(g *catalog.Generator) stream.Stream[float64] {
	key := g.Key
	lo := stream.Interpolated(key+".min", g.Interpolation, g.InterpolationRadius, func(x, z float64) float64 {
		return c.BaseBiome.Get(x, z).GenLinkMin(key)
	})
	hi := stream.Interpolated(key+".max", g.Interpolation, g.InterpolationRadius, func(x, z float64) float64 {
		return c.BaseBiome.Get(x, z).GenLinkMax(key)
	})
	src := c.noiseStream(rng.SaltHeight^mathx.HashString(key), g.Style)
	return stream.Of2(key, func(x, z float64) float64 {
		return mathx.Lerp(lo.Get(x, z), hi.Get(x, z), src.Get(x, z))
	})
}

func (c *Complex) buildHeight() error {
	parts := make([]stream.Stream[float64], 0, len(c.gens))
	keys := make([]string, 0, len(c.gens))
	for _, g := range c.gens {
		parts = append(parts, c.contribution(g))
		keys = append(keys, g.Key)
	}

	overlay := make([]stream.Stream[float64], 0, len(c.dim.Overlay))
	for i, o := range c.dim.Overlay {
		src := c.noiseStream(rng.SaltHeight+uint64(i)+1, o.Style)
		lo, hi := o.Min, o.Max
		overlay = append(overlay, stream.Convert(src, func(v float64) float64 {
			return mathx.Lerp(lo, hi, v)
		}))
	}
	over := stream.Sum(overlay...).Named("overlay")

	fluid := float64(c.dim.FluidHeight)
	raw := stream.Of2("height-blend", func(x, z float64) float64 {
		h := fluid + over.Get(x, z)
		for i, p := range parts {
			v, err := stream.TryGet(p, x, z)
			if err != nil {
				c.logger.Printf("height: generator %s at (%g,%g): %v", keys[i], x, z, err)
				continue
			}
			h += v
		}
		return h
	})
	c.Height = stream.Round(raw).Cache2D(c.tile).Named("height")
	c.HeightFluid = stream.Max(c.Height, fluid).Named("height-fluid")
	c.Slope = stream.Slope(c.Height, 1).Named("slope")
	return nil
}

// HeightAt is the rounded terrain height of a block column.
func (c *Complex) HeightAt(x, z int) int {
	return int(math.Round(c.Height.GetInt(x, z)))
}
