package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"terragen.ai/internal/gen/jigsaw"
	"terragen.ai/internal/gen/mantle"
	"terragen.ai/internal/gen/mathx"
	"terragen.ai/internal/gen/planner"
	"terragen.ai/internal/gen/stream"
	"terragen.ai/internal/gen/terrain"
	"terragen.ai/internal/pack"
	"terragen.ai/internal/persistence/registry"
)

type biomeOut struct {
	Key      string `json:"key"`
	Category string `json:"category"`
}

type report struct {
	X              int                 `json:"x"`
	Z              int                 `json:"z"`
	Chunk          [2]int              `json:"chunk"`
	Region         string              `json:"region"`
	TrueBiome      biomeOut            `json:"true_biome"`
	BaseBiome      biomeOut            `json:"base_biome"`
	CaveBiome      biomeOut            `json:"cave_biome"`
	Height         int                 `json:"height"`
	Slope          float64             `json:"slope"`
	ShoreThickness float64             `json:"shore_thickness"`
	Surface        string              `json:"surface"`
	Layers         []int               `json:"layers"`
	Decoration     *terrain.Decoration `json:"decoration,omitempty"`
	Guess          string              `json:"structure_guess,omitempty"`
}

func main() {
	var (
		packDir = flag.String("pack", "", "generator pack directory (empty: built-in default pack)")
		seed    = flag.Int64("seed", 1337, "world seed")
		x       = flag.Int("x", 0, "block x")
		z       = flag.Int("z", 0, "block z")
		graph   = flag.String("graph", "", "print the evaluation graph of a stream instead: "+strings.Join(streamNames(), "|"))
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[probe] ", log.LstdFlags|log.Lmicroseconds)

	cat, err := pack.Open(context.Background(), pack.Source{Dir: strings.TrimSpace(*packDir)})
	if err != nil {
		logger.Fatalf("open pack: %v", err)
	}
	cx, err := terrain.New(terrain.Config{Seed: *seed, Store: cat, Logger: logger})
	if err != nil {
		logger.Fatalf("terrain: %v", err)
	}

	if *graph != "" {
		n, ok := streamNodes(cx)[*graph]
		if !ok {
			logger.Fatalf("unknown stream %q", *graph)
		}
		fmt.Print(stream.Graph(n))
		fmt.Printf("depth %d\n", stream.Depth(n))
		return
	}

	m := mantle.New()
	jig, err := jigsaw.New(jigsaw.Config{
		Complex:  cx,
		Registry: registry.NewMemory(),
		Planner:  planner.NewFootprint(cx, m, logger),
		Mantle:   m,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatalf("jigsaw: %v", err)
	}

	fx, fz := float64(*x), float64(*z)
	col := cx.Column(*x, *z)
	out := report{
		X:              *x,
		Z:              *z,
		Chunk:          [2]int{mathx.BlockToChunk(*x), mathx.BlockToChunk(*z)},
		Region:         cx.Region.Get(fx, fz).Key,
		TrueBiome:      biomeOf(col.Biome),
		BaseBiome:      biomeOf(cx.BaseBiome.Get(fx, fz)),
		CaveBiome:      biomeOf(cx.CaveBiome.Get(fx, fz)),
		Height:         col.Height,
		Slope:          cx.Slope.Get(fx, fz),
		ShoreThickness: cx.ShoreThickness.Get(fx, fz),
		Surface:        cat.Blocks.Name(cx.Block(*x, col.Height, *z)),
		Layers:         col.Thickness,
	}
	if d, ok := cx.Decorate(*x, *z); ok {
		out.Decoration = &d
	}
	st, err := jig.Guess(out.Chunk[0], out.Chunk[1])
	if err != nil {
		logger.Fatalf("guess: %v", err)
	}
	if st != nil {
		out.Guess = st.Key
	}
	printJSON(out)
}

func biomeOf(b terrain.Biome) biomeOut {
	return biomeOut{Key: b.Key(), Category: b.Category.String()}
}

func streamNodes(cx *terrain.Complex) map[string]*stream.Node {
	return map[string]*stream.Node{
		"region":     cx.Region.Node(),
		"land":       cx.LandBiome.Node(),
		"sea":        cx.SeaBiome.Node(),
		"shore":      cx.ShoreBiome.Node(),
		"cave":       cx.CaveBiome.Node(),
		"bridge":     cx.Bridge.Node(),
		"base":       cx.BaseBiome.Node(),
		"height":     cx.Height.Node(),
		"slope":      cx.Slope.Node(),
		"true_biome": cx.TrueBiome.Node(),
		"rock":       cx.Rock.Node(),
		"fluid":      cx.Fluid.Node(),
		"terrain":    cx.Terrain.Node(),
	}
}

func streamNames() []string {
	names := []string{"region", "land", "sea", "shore", "cave", "bridge", "base", "height", "slope", "true_biome", "rock", "fluid", "terrain"}
	sort.Strings(names)
	return names
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
