package catalog

import (
	"fmt"
	"strings"

	"terragen.ai/internal/gen/noise"
	"terragen.ai/internal/gen/stream"
)

// Category classifies a resolved biome. It is assigned by the stream that
// produced the biome, never stored on the shared record.
type Category uint8

const (
	CategoryLand Category = iota
	CategorySea
	CategoryShore
	CategoryCave
	CategoryRiver
	CategoryLake
	CategoryDefer
)

var categoryNames = [...]string{"land", "sea", "shore", "cave", "river", "lake", "defer"}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", c)
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range categoryNames {
		if n == s {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("unknown biome category %q", s)
}

func (c Category) Aquatic() bool {
	return c == CategorySea || c == CategoryLake || c == CategoryRiver
}

// Weighted is a candidate key with a rarity (1-in-N relative chance).
type Weighted struct {
	Key    string `yaml:"key" json:"key"`
	Rarity int    `yaml:"rarity,omitempty" json:"rarity,omitempty"`
}

type Pos2 struct {
	X int `yaml:"x" json:"x"`
	Z int `yaml:"z" json:"z"`
}

type Dimension struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name,omitempty"`
	FluidHeight int      `yaml:"fluid_height"`
	MaxHeight   int      `yaml:"max_height,omitempty"`
	RegionZoom  float64  `yaml:"region_zoom,omitempty"`
	LandChance  *float64 `yaml:"land_chance,omitempty"`
	Decorate    *bool    `yaml:"decorate,omitempty"`

	Regions []Weighted `yaml:"regions"`

	RegionStyle      noise.Signature `yaml:"region_style"`
	ContinentalStyle noise.Signature `yaml:"continental_style"`
	LandBiomeStyle   noise.Signature `yaml:"land_biome_style"`
	SeaBiomeStyle    noise.Signature `yaml:"sea_biome_style"`
	ShoreBiomeStyle  noise.Signature `yaml:"shore_biome_style"`
	CaveBiomeStyle   noise.Signature `yaml:"cave_biome_style"`

	Overlay      []Overlay `yaml:"overlay,omitempty"`
	RockPalette  Palette   `yaml:"rock_palette"`
	FluidPalette Palette   `yaml:"fluid_palette"`

	Jigsaw     []Placement `yaml:"jigsaw,omitempty"`
	Stronghold *Stronghold `yaml:"stronghold,omitempty"`
}

// Land is the share of continental noise that is land. Unset means 0.5;
// an explicit 0 makes an all-sea dimension.
func (d *Dimension) Land() float64 {
	if d.LandChance == nil {
		return defaultLandChance
	}
	return *d.LandChance
}

func (d *Dimension) Decorates() bool {
	return d.Decorate == nil || *d.Decorate
}

// Overlay adds lerp(Min, Max, noise) to every height.
type Overlay struct {
	Style noise.Signature `yaml:"style"`
	Min   float64         `yaml:"min"`
	Max   float64         `yaml:"max"`
}

type Palette struct {
	Blocks []Weighted      `yaml:"blocks"`
	Style  noise.Signature `yaml:"style"`
}

type Stronghold struct {
	Structure string `yaml:"structure"`
	Positions []Pos2 `yaml:"positions,omitempty"`
	Count     int    `yaml:"count,omitempty"`
	Radius    int    `yaml:"radius,omitempty"`
}

type Region struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name,omitempty"`

	LandBiomes  []Weighted `yaml:"land_biomes"`
	SeaBiomes   []Weighted `yaml:"sea_biomes"`
	ShoreBiomes []Weighted `yaml:"shore_biomes"`
	CaveBiomes  []Weighted `yaml:"cave_biomes,omitempty"`

	LandBiomeZoom  float64 `yaml:"land_biome_zoom,omitempty"`
	SeaBiomeZoom   float64 `yaml:"sea_biome_zoom,omitempty"`
	ShoreBiomeZoom float64 `yaml:"shore_biome_zoom,omitempty"`
	CaveBiomeZoom  float64 `yaml:"cave_biome_zoom,omitempty"`

	Shore ShoreThickness `yaml:"shore"`

	Jigsaw []Placement `yaml:"jigsaw,omitempty"`
}

// ShoreThickness is the band above fluid level classified as shore:
// lerp(Min, Max, noise).
type ShoreThickness struct {
	Min   float64         `yaml:"min"`
	Max   float64         `yaml:"max"`
	Style noise.Signature `yaml:"style"`
}

func (r *Region) Biomes(c Category) []Weighted {
	switch c {
	case CategoryLand:
		return r.LandBiomes
	case CategorySea:
		return r.SeaBiomes
	case CategoryShore:
		return r.ShoreBiomes
	case CategoryCave:
		return r.CaveBiomes
	}
	return nil
}

func (r *Region) BiomeZoom(c Category) float64 {
	switch c {
	case CategoryLand:
		return r.LandBiomeZoom
	case CategorySea:
		return r.SeaBiomeZoom
	case CategoryShore:
		return r.ShoreBiomeZoom
	case CategoryCave:
		return r.CaveBiomeZoom
	}
	return 1
}

type Biome struct {
	Key        string `yaml:"key"`
	Name       string `yaml:"name,omitempty"`
	Derivative string `yaml:"derivative,omitempty"`

	Children          []Weighted      `yaml:"children,omitempty"`
	ChildShrinkFactor float64         `yaml:"child_shrink_factor,omitempty"`
	ChildStyle        noise.Signature `yaml:"child_style"`

	Generators []GeneratorLink `yaml:"generators,omitempty"`
	Layers     []PaletteLayer  `yaml:"layers,omitempty"`
	Decorators []Decorator     `yaml:"decorators,omitempty"`

	Jigsaw []Placement `yaml:"jigsaw,omitempty"`
}

// GeneratorLink is a biome's contribution bounds for one height generator.
type GeneratorLink struct {
	Generator string  `yaml:"generator"`
	Min       float64 `yaml:"min"`
	Max       float64 `yaml:"max"`
}

func (b *Biome) GenLinkMax(gen string) float64 {
	for _, l := range b.Generators {
		if l.Generator == gen {
			return l.Max
		}
	}
	return 0
}

func (b *Biome) GenLinkMin(gen string) float64 {
	for _, l := range b.Generators {
		if l.Generator == gen {
			return l.Min
		}
	}
	return 0
}

type Generator struct {
	Key                 string               `yaml:"key"`
	Style               noise.Signature      `yaml:"style"`
	Interpolation       stream.Interpolation `yaml:"interpolation,omitempty"`
	InterpolationRadius float64              `yaml:"interpolation_radius,omitempty"`
}

// PaletteLayer is one band of a biome's surface, top first.
type PaletteLayer struct {
	Blocks      []Weighted      `yaml:"blocks"`
	MinHeight   int             `yaml:"min_height"`
	MaxHeight   int             `yaml:"max_height"`
	Style       noise.Signature `yaml:"style"`
	HeightStyle noise.Signature `yaml:"height_style"`
}

type DecorationPart uint8

const (
	PartNone DecorationPart = iota
	PartShoreLine
	PartSeaSurface
	PartCeiling
)

var partNames = [...]string{"none", "shore_line", "sea_surface", "ceiling"}

func (p DecorationPart) String() string {
	if int(p) < len(partNames) {
		return partNames[p]
	}
	return fmt.Sprintf("part(%d)", p)
}

func (p DecorationPart) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *DecorationPart) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	if s == "" {
		*p = PartNone
		return nil
	}
	for i, n := range partNames {
		if n == s {
			*p = DecorationPart(i)
			return nil
		}
	}
	return fmt.Errorf("unknown decoration part %q", s)
}

type Decorator struct {
	Part     DecorationPart  `yaml:"part,omitempty"`
	Chance   float64         `yaml:"chance"`
	Blocks   []Weighted      `yaml:"blocks"`
	StackMin int             `yaml:"stack_min,omitempty"`
	StackMax int             `yaml:"stack_max,omitempty"`
	Style    noise.Signature `yaml:"style"`
}

type Structure struct {
	Key        string  `yaml:"key"`
	Width      int     `yaml:"width"`
	Depth      int     `yaml:"depth"`
	MaxSlope   float64 `yaml:"max_slope,omitempty"`
	AllowWater bool    `yaml:"allow_water,omitempty"`
	Pieces     []Piece `yaml:"pieces,omitempty"`
}

// Piece is an axis-aligned box of one block, relative to the anchor.
type Piece struct {
	Offset [3]int `yaml:"offset,flow"`
	Size   [3]int `yaml:"size,flow"`
	Block  string `yaml:"block"`
}

// Placement binds a structure to a biome, region or dimension.
type Placement struct {
	Structure string `yaml:"structure"`
	Rarity    int    `yaml:"rarity"`
	// MinDistance is the minimum separation in blocks from anchors of the
	// named structure types.
	MinDistance map[string]int `yaml:"min_distance,omitempty"`
}

func (p *Placement) MaxDistance() int {
	m := 0
	for _, d := range p.MinDistance {
		if d > m {
			m = d
		}
	}
	return m
}

// Pack is the full set of records a store is built from.
type Pack struct {
	Dimension  Dimension
	Regions    []Region
	Biomes     []Biome
	Generators []Generator
	Structures []Structure
}
