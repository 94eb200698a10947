// Package terrain builds the per-session evaluation graph that derives region,
// biome, height, material and decoration for any world coordinate.
package terrain

import (
	"fmt"
	"io"
	"log"

	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/gen/mathx"
	"terragen.ai/internal/gen/noise"
	"terragen.ai/internal/gen/rng"
	"terragen.ai/internal/gen/stream"
)

const (
	defaultCacheTile = 64
	// maxChildDepth bounds child-biome subdivision.
	maxChildDepth = 4
)

// Biome is a resolved biome together with the category of the stream that
// produced it. The catalog record is shared and never modified.
type Biome struct {
	*catalog.Biome
	Category catalog.Category
}

func (b Biome) Key() string {
	if b.Biome == nil {
		return ""
	}
	return b.Biome.Key
}

func (b Biome) String() string { return b.Key() + "/" + b.Category.String() }

type Config struct {
	Seed   int64
	Store  *catalog.Store
	Noise  noise.Provider
	Logger *log.Logger
	// CacheTile is the tile edge, in blocks, of the 2D memo caches.
	CacheTile int
}

// Complex holds every stream of a generation session. Streams are built once
// in New and are safe for concurrent use.
type Complex struct {
	seed   int64
	store  *catalog.Store
	dim    *catalog.Dimension
	noise  noise.Provider
	logger *log.Logger
	tile   int

	children map[string]*childSelector
	layers   map[string][]layer
	decos    map[string][]decorator
	gens     []*catalog.Generator

	Region         stream.Stream[*catalog.Region]
	LandBiome      stream.Stream[Biome]
	SeaBiome       stream.Stream[Biome]
	ShoreBiome     stream.Stream[Biome]
	CaveBiome      stream.Stream[Biome]
	Bridge         stream.Stream[catalog.Category]
	BaseBiome      stream.Stream[Biome]
	Height         stream.Stream[float64]
	HeightFluid    stream.Stream[float64]
	Slope          stream.Stream[float64]
	ShoreThickness stream.Stream[float64]
	TrueBiome      stream.Stream[Biome]
	Rock           stream.Stream[uint16]
	Fluid          stream.Stream[uint16]
	// ChunkSeed is the per-chunk seed used by structure placement; sample
	// it with chunk coordinates.
	ChunkSeed stream.Stream[int64]
	Terrain   stream.Stream[uint16]
}

func New(cfg Config) (*Complex, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("terrain: nil catalog store")
	}
	c := &Complex{
		seed:     cfg.Seed,
		store:    cfg.Store,
		dim:      cfg.Store.Dimension(),
		noise:    cfg.Noise,
		logger:   cfg.Logger,
		tile:     cfg.CacheTile,
		children: map[string]*childSelector{},
		layers:   map[string][]layer{},
		decos:    map[string][]decorator{},
	}
	if c.noise == nil {
		c.noise = noise.NewProvider()
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard, "", 0)
	}
	if c.tile <= 0 {
		c.tile = defaultCacheTile
	}

	steps := []func() error{
		c.buildRegion,
		c.buildBiomeRecords,
		c.buildCategoryStreams,
		c.buildBase,
		c.buildHeight,
		c.buildCorrector,
		c.buildMaterials,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Complex) Seed() int64 { return c.seed }

func (c *Complex) Store() *catalog.Store { return c.store }

func (c *Complex) Dimension() *catalog.Dimension { return c.dim }

// Generators lists the registered height generators in registration order.
func (c *Complex) Generators() []*catalog.Generator { return c.gens }

func (c *Complex) noiseStream(salt uint64, sig noise.Signature) stream.Stream[float64] {
	return stream.FromNoise(noise.Bind(c.noise, rng.Seed(c.seed, salt), sig))
}

func weightsOf(ws []catalog.Weighted) []int {
	out := make([]int, len(ws))
	for i, w := range ws {
		out[i] = w.Rarity
	}
	return out
}

func (c *Complex) buildRegion() error {
	regions := c.store.Regions()
	sel, err := stream.SelectRarity(c.noiseStream(rng.SaltRegion, c.dim.RegionStyle), regions, weightsOf(c.dim.Regions))
	if err != nil {
		return fmt.Errorf("dimension %s regions: %w", c.dim.Key, err)
	}
	c.Region = sel.Zoom(c.dim.RegionZoom).Cache2D(c.tile).Named("region")
	return nil
}

// childSelector picks among a parent and its children.
type childSelector struct {
	sel    *stream.Selector[*catalog.Biome]
	src    noise.Source
	shrink float64
}

func (c *Complex) buildBiomeRecords() error {
	seen := map[string]bool{}
	for _, r := range c.store.Regions() {
		for _, b := range c.store.RegionBiomes(r) {
			if seen[b.Key] {
				continue
			}
			seen[b.Key] = true
			if err := c.buildChildren(b); err != nil {
				return err
			}
			if err := c.buildLayers(b); err != nil {
				return err
			}
			if err := c.buildDecorators(b); err != nil {
				return err
			}
			for _, l := range b.Generators {
				g, err := c.store.Generator(l.Generator)
				if err != nil {
					return fmt.Errorf("biome %s: %w", b.Key, err)
				}
				c.registerGenerator(g)
			}
		}
	}
	return nil
}

func (c *Complex) buildChildren(b *catalog.Biome) error {
	if len(b.Children) == 0 {
		return nil
	}
	cands := []*catalog.Biome{b}
	rarities := []int{1}
	for _, w := range b.Children {
		child, err := c.store.Biome(w.Key)
		if err != nil {
			return fmt.Errorf("biome %s children: %w", b.Key, err)
		}
		cands = append(cands, child)
		rarities = append(rarities, w.Rarity)
	}
	weights, err := stream.RarityWeights(rarities)
	if err != nil {
		return fmt.Errorf("biome %s children: %w", b.Key, err)
	}
	sel, err := stream.NewSelector(cands, weights)
	if err != nil {
		return fmt.Errorf("biome %s children: %w", b.Key, err)
	}
	seed := rng.Seed(c.seed, rng.SaltChildren^mathx.HashString(b.Key))
	c.children[b.Key] = &childSelector{
		sel:    sel,
		src:    noise.Bind(c.noise, seed, b.ChildStyle),
		shrink: b.ChildShrinkFactor,
	}
	return nil
}

// implode replaces b by one of its children, recursing into the chosen
// child. Each level samples at a finer scale. The parent standing, a biome
// without children, or the depth bound ends the recursion.
func (c *Complex) implode(b Biome, x, z float64) Biome {
	scale := 1.0
	for depth := 0; depth < maxChildDepth; depth++ {
		ch := c.children[b.Key()]
		if ch == nil {
			return b
		}
		scale *= ch.shrink
		picked := ch.sel.Pick(ch.src.At(x*scale, z*scale))
		if picked.Key == b.Key() {
			return b
		}
		b = Biome{Biome: picked, Category: b.Category}
	}
	return b
}

type categorySpec struct {
	cat   catalog.Category
	salt  uint64
	style noise.Signature
	out   *stream.Stream[Biome]
}

func (c *Complex) buildCategoryStreams() error {
	specs := []categorySpec{
		{catalog.CategoryLand, rng.SaltLandBiome, c.dim.LandBiomeStyle, &c.LandBiome},
		{catalog.CategorySea, rng.SaltSeaBiome, c.dim.SeaBiomeStyle, &c.SeaBiome},
		{catalog.CategoryShore, rng.SaltShoreBiome, c.dim.ShoreBiomeStyle, &c.ShoreBiome},
		{catalog.CategoryCave, rng.SaltCaveBiome, c.dim.CaveBiomeStyle, &c.CaveBiome},
	}
	for _, sp := range specs {
		subs := map[*catalog.Region]stream.Stream[Biome]{}
		for _, r := range c.store.Regions() {
			s, err := c.regionCategory(r, sp)
			if err != nil {
				return err
			}
			subs[r] = s
		}
		byRegion := stream.ConvertCached(c.Region, func(r *catalog.Region) stream.Stream[Biome] {
			return subs[r]
		})
		*sp.out = stream.ConvertAware(byRegion, func(s stream.Stream[Biome], x, z float64) Biome {
			return s.Get(x, z)
		}).Cache2D(c.tile).Named(sp.cat.String() + "-biome")
	}
	return nil
}

// regionCategory is the region-local selection over r's candidates of one
// category, followed by child subdivision.
func (c *Complex) regionCategory(r *catalog.Region, sp categorySpec) (stream.Stream[Biome], error) {
	ws := r.Biomes(sp.cat)
	cands := make([]Biome, len(ws))
	for i, w := range ws {
		b, err := c.store.Biome(w.Key)
		if err != nil {
			return stream.Stream[Biome]{}, fmt.Errorf("region %s %s biomes: %w", r.Key, sp.cat, err)
		}
		cands[i] = Biome{Biome: b, Category: sp.cat}
	}
	src := c.noiseStream(sp.salt^mathx.HashString(r.Key), sp.style)
	sel, err := stream.SelectRarity(src, cands, weightsOf(ws))
	if err != nil {
		return stream.Stream[Biome]{}, fmt.Errorf("region %s %s biomes: %w", r.Key, sp.cat, err)
	}
	return stream.ConvertAware(sel.Zoom(r.BiomeZoom(sp.cat)), c.implode).
		Named(r.Key + "." + sp.cat.String()), nil
}

// buildBase wires the continental land/sea partition and the base biome.
func (c *Complex) buildBase() error {
	land := c.dim.Land()
	c.Bridge = stream.Convert(c.noiseStream(rng.SaltContinental, c.dim.ContinentalStyle), func(v float64) catalog.Category {
		if v < land {
			return catalog.CategoryLand
		}
		return catalog.CategorySea
	}).Named("bridge")
	c.BaseBiome = stream.ConvertAware(c.Bridge, func(cat catalog.Category, x, z float64) Biome {
		if cat == catalog.CategoryLand {
			return c.LandBiome.Get(x, z)
		}
		return c.SeaBiome.Get(x, z)
	}).Cache2D(c.tile).Named("base-biome")
	return nil
}

// ChunkRNG returns the placement RNG of a chunk.
func (c *Complex) ChunkRNG(cx, cz int) rng.RNG {
	return rng.New(c.ChunkSeed.GetInt(cx, cz))
}
