package catalog

import (
	"terragen.ai/internal/gen/noise"
	"terragen.ai/internal/gen/stream"
)

func simplex(zoom float64) noise.Signature {
	return noise.Signature{Kind: noise.KindSimplex, Zoom: zoom}
}

func fractal(kind noise.Kind, octaves int, zoom float64) noise.Signature {
	return noise.Signature{Kind: kind, Blend: noise.BlendFractal, Octaves: octaves, Zoom: zoom}
}

func w(key string, rarity int) Weighted { return Weighted{Key: key, Rarity: rarity} }

// Default is the built-in overworld pack used when no pack directory is
// given. It returns a fresh value on every call.
func Default() Pack {
	return Pack{
		Dimension: Dimension{
			Key:              "overworld",
			Name:             "Overworld",
			FluidHeight:      62,
			MaxHeight:        256,
			RegionZoom:       1,
			LandChance:       chance(0.55),
			Regions:          []Weighted{w("temperate", 1), w("arid", 2)},
			RegionStyle:      simplex(900),
			ContinentalStyle: fractal(noise.KindSimplex, 3, 1200),
			LandBiomeStyle:   simplex(300),
			SeaBiomeStyle:    simplex(400),
			ShoreBiomeStyle:  simplex(120),
			CaveBiomeStyle:   simplex(200),
			Overlay: []Overlay{
				{Style: fractal(noise.KindSimplex, 2, 700), Min: -6, Max: 6},
			},
			RockPalette: Palette{
				Blocks: []Weighted{w("STONE", 1), w("ANDESITE", 6), w("GRANITE", 8)},
				Style:  simplex(18),
			},
			FluidPalette: Palette{Blocks: []Weighted{w("WATER", 1)}},
			Jigsaw: []Placement{
				{Structure: "ruin", Rarity: 96, MinDistance: map[string]int{"ruin": 480}},
			},
			Stronghold: &Stronghold{Structure: "stronghold", Count: 3, Radius: 1500},
		},
		Regions: []Region{
			{
				Key:           "temperate",
				Name:          "Temperate",
				LandBiomes:    []Weighted{w("plains", 1), w("forest", 2)},
				SeaBiomes:     []Weighted{w("ocean", 1), w("deep_ocean", 3)},
				ShoreBiomes:   []Weighted{w("beach", 1)},
				CaveBiomes:    []Weighted{w("cave", 1)},
				LandBiomeZoom: 1,
				SeaBiomeZoom:  1.5,
				Shore:         ShoreThickness{Min: 1, Max: 4, Style: simplex(60)},
				Jigsaw: []Placement{
					{Structure: "tower", Rarity: 48, MinDistance: map[string]int{"tower": 320, "village": 96}},
				},
			},
			{
				Key:           "arid",
				Name:          "Arid",
				LandBiomes:    []Weighted{w("desert", 1), w("plains", 4)},
				SeaBiomes:     []Weighted{w("ocean", 1)},
				ShoreBiomes:   []Weighted{w("beach", 1)},
				LandBiomeZoom: 1.25,
				Shore:         ShoreThickness{Min: 0, Max: 2, Style: simplex(60)},
			},
		},
		Biomes: []Biome{
			{
				Key:  "plains",
				Name: "Plains",
				Generators: []GeneratorLink{
					{Generator: "base", Min: 0, Max: 10},
					{Generator: "detail", Min: -1, Max: 2},
				},
				Layers: []PaletteLayer{
					{Blocks: []Weighted{w("GRASS_BLOCK", 1)}, MinHeight: 1, MaxHeight: 1},
					{Blocks: []Weighted{w("DIRT", 1), w("COARSE_DIRT", 5)}, MinHeight: 2, MaxHeight: 4, Style: simplex(12), HeightStyle: simplex(20)},
				},
				Decorators: []Decorator{
					{Chance: 0.25, Blocks: []Weighted{w("SHORT_GRASS", 1), w("DANDELION", 8)}, Style: noise.Signature{Kind: noise.KindWhite}},
				},
				Jigsaw: []Placement{
					{Structure: "village", Rarity: 24, MinDistance: map[string]int{"village": 256, "tower": 96}},
				},
			},
			{
				Key:               "forest",
				Name:              "Forest",
				Children:          []Weighted{w("hills", 3)},
				ChildShrinkFactor: 1.5,
				ChildStyle:        simplex(80),
				Generators: []GeneratorLink{
					{Generator: "base", Min: 2, Max: 14},
					{Generator: "detail", Min: -2, Max: 3},
				},
				Layers: []PaletteLayer{
					{Blocks: []Weighted{w("GRASS_BLOCK", 1), w("PODZOL", 4)}, MinHeight: 1, MaxHeight: 1, Style: simplex(10)},
					{Blocks: []Weighted{w("DIRT", 1)}, MinHeight: 3, MaxHeight: 5, HeightStyle: simplex(20)},
				},
				Decorators: []Decorator{
					{Chance: 0.04, Blocks: []Weighted{w("OAK_LOG", 1), w("BIRCH_LOG", 3)}, StackMin: 4, StackMax: 6, Style: simplex(4)},
					{Chance: 0.2, Blocks: []Weighted{w("FERN", 1)}},
				},
			},
			{
				Key:  "hills",
				Name: "Hills",
				Generators: []GeneratorLink{
					{Generator: "base", Min: 6, Max: 20},
					{Generator: "mountain", Min: 0, Max: 24},
				},
				Layers: []PaletteLayer{
					{Blocks: []Weighted{w("GRASS_BLOCK", 1)}, MinHeight: 1, MaxHeight: 1},
					{Blocks: []Weighted{w("DIRT", 1), w("GRAVEL", 3)}, MinHeight: 1, MaxHeight: 3, Style: simplex(14)},
				},
			},
			{
				Key:  "desert",
				Name: "Desert",
				Generators: []GeneratorLink{
					{Generator: "base", Min: 1, Max: 8},
					{Generator: "detail", Min: 0, Max: 4},
				},
				Layers: []PaletteLayer{
					{Blocks: []Weighted{w("SAND", 1)}, MinHeight: 3, MaxHeight: 5, HeightStyle: simplex(30)},
					{Blocks: []Weighted{w("SANDSTONE", 1)}, MinHeight: 2, MaxHeight: 4, HeightStyle: simplex(30)},
				},
				Decorators: []Decorator{
					{Chance: 0.01, Blocks: []Weighted{w("CACTUS", 1)}, StackMin: 1, StackMax: 3},
					{Chance: 0.02, Blocks: []Weighted{w("DEAD_BUSH", 1)}},
				},
				Jigsaw: []Placement{
					{Structure: "ruin", Rarity: 20, MinDistance: map[string]int{"ruin": 160}},
				},
			},
			{
				Key:  "ocean",
				Name: "Ocean",
				Generators: []GeneratorLink{
					{Generator: "base", Min: -18, Max: -8},
					{Generator: "detail", Min: -1, Max: 1},
				},
				Layers: []PaletteLayer{
					{Blocks: []Weighted{w("GRAVEL", 1), w("SAND", 2)}, MinHeight: 1, MaxHeight: 3, Style: simplex(16)},
				},
				Decorators: []Decorator{
					{Part: PartSeaSurface, Chance: 0.002, Blocks: []Weighted{w("LILY_PAD", 1)}},
					{Chance: 0.15, Blocks: []Weighted{w("SEAGRASS", 1)}},
				},
			},
			{
				Key:  "deep_ocean",
				Name: "Deep Ocean",
				Generators: []GeneratorLink{
					{Generator: "base", Min: -36, Max: -20},
				},
				Layers: []PaletteLayer{
					{Blocks: []Weighted{w("GRAVEL", 1)}, MinHeight: 2, MaxHeight: 4},
				},
			},
			{
				Key:  "beach",
				Name: "Beach",
				Generators: []GeneratorLink{
					{Generator: "base", Min: -1, Max: 2},
				},
				Layers: []PaletteLayer{
					{Blocks: []Weighted{w("SAND", 1)}, MinHeight: 3, MaxHeight: 4},
				},
				Decorators: []Decorator{
					{Part: PartShoreLine, Chance: 0.05, Blocks: []Weighted{w("SUGAR_CANE", 1)}, StackMin: 1, StackMax: 3},
				},
			},
			{
				Key:  "cave",
				Name: "Cave",
				Layers: []PaletteLayer{
					{Blocks: []Weighted{w("STONE", 1), w("MOSSY_COBBLESTONE", 6)}, MinHeight: 1, MaxHeight: 1, Style: simplex(6)},
				},
				Decorators: []Decorator{
					{Part: PartCeiling, Chance: 0.08, Blocks: []Weighted{w("POINTED_DRIPSTONE", 1)}, StackMin: 1, StackMax: 2},
				},
			},
		},
		Generators: []Generator{
			{Key: "base", Style: fractal(noise.KindSimplex, 4, 220), Interpolation: stream.InterpBicubic, InterpolationRadius: 8},
			{Key: "detail", Style: fractal(noise.KindSimplex, 2, 32), Interpolation: stream.InterpBilinear, InterpolationRadius: 4},
			{Key: "mountain", Style: noise.Signature{Kind: noise.KindPerlin, Blend: noise.BlendRidged, Octaves: 3, Zoom: 260}, Interpolation: stream.InterpHermite, InterpolationRadius: 16},
		},
		Structures: []Structure{
			{
				Key: "village", Width: 16, Depth: 16, MaxSlope: 1.5,
				Pieces: []Piece{
					{Offset: [3]int{0, 0, 0}, Size: [3]int{16, 1, 16}, Block: "DIRT_PATH"},
					{Offset: [3]int{2, 1, 2}, Size: [3]int{5, 4, 5}, Block: "OAK_PLANKS"},
					{Offset: [3]int{9, 1, 9}, Size: [3]int{5, 4, 5}, Block: "OAK_PLANKS"},
				},
			},
			{
				Key: "ruin", Width: 7, Depth: 7, MaxSlope: 3, AllowWater: true,
				Pieces: []Piece{
					{Offset: [3]int{0, 0, 0}, Size: [3]int{7, 1, 7}, Block: "MOSSY_COBBLESTONE"},
					{Offset: [3]int{0, 1, 0}, Size: [3]int{1, 3, 1}, Block: "COBBLESTONE"},
					{Offset: [3]int{6, 1, 6}, Size: [3]int{1, 2, 1}, Block: "COBBLESTONE"},
				},
			},
			{
				Key: "tower", Width: 5, Depth: 5, MaxSlope: 2,
				Pieces: []Piece{
					{Offset: [3]int{0, 0, 0}, Size: [3]int{5, 12, 5}, Block: "STONE_BRICKS"},
				},
			},
			{
				Key: "stronghold", Width: 11, Depth: 11, AllowWater: true,
				Pieces: []Piece{
					{Offset: [3]int{0, -24, 0}, Size: [3]int{11, 7, 11}, Block: "STONE_BRICKS"},
					{Offset: [3]int{5, -17, 5}, Size: [3]int{1, 17, 1}, Block: "END_PORTAL_FRAME"},
				},
			},
		},
	}
}

func chance(v float64) *float64 { return &v }
