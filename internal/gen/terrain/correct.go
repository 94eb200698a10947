package terrain

import (
	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/gen/mathx"
	"terragen.ai/internal/gen/noise"
	"terragen.ai/internal/gen/rng"
	"terragen.ai/internal/gen/stream"
)

func (c *Complex) buildCorrector() error {
	shore := map[*catalog.Region]func(x, z float64) float64{}
	for _, r := range c.store.Regions() {
		src := noise.Bind(c.noise, rng.Seed(c.seed, rng.SaltShoreBiome^mathx.HashString(r.Key)^0x5448), r.Shore.Style)
		lo, hi := r.Shore.Min, r.Shore.Max
		shore[r] = func(x, z float64) float64 { return mathx.Lerp(lo, hi, src.At(x, z)) }
	}
	c.ShoreThickness = stream.ConvertAware(c.Region, func(r *catalog.Region, x, z float64) float64 {
		return shore[r](x, z)
	}).Named("shore-thickness")

	c.TrueBiome = stream.ConvertAware(c.BaseBiome, c.Correct).Cache2D(c.tile).Named("true-biome")
	return nil
}

// Correct reconciles b with the height at (x,z). The checks run in order and
// the first that applies wins:
//
//	fluid-1 <= h <= fluid+shore  -> shore biome unless already shore
//	h > fluid+shore              -> land biome unless already land
//	h < fluid-1                  -> sea biome unless already aquatic
//
// Every replacement carries the category its band asks for, so correcting a
// corrected biome returns it unchanged.
func (c *Complex) Correct(b Biome, x, z float64) Biome {
	h := c.Height.Get(x, z)
	fluid := float64(c.dim.FluidHeight)
	sh := c.ShoreThickness.Get(x, z)
	switch classify(h, fluid, sh) {
	case catalog.CategoryShore:
		if b.Category != catalog.CategoryShore {
			return c.ShoreBiome.Get(x, z)
		}
	case catalog.CategoryLand:
		if b.Category != catalog.CategoryLand {
			return c.LandBiome.Get(x, z)
		}
	default:
		if !b.Category.Aquatic() {
			return c.SeaBiome.Get(x, z)
		}
	}
	return b
}

// classify returns the category a column of height h must have.
func classify(h, fluid, shore float64) catalog.Category {
	switch {
	case h >= fluid-1 && h <= fluid+shore:
		return catalog.CategoryShore
	case h > fluid+shore:
		return catalog.CategoryLand
	}
	return catalog.CategorySea
}
