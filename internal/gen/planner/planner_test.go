package planner

import (
	"sync"
	"testing"

	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/gen/mantle"
	"terragen.ai/internal/gen/noise"
	"terragen.ai/internal/gen/rng"
	"terragen.ai/internal/gen/terrain"
	"terragen.ai/internal/persistence/registry"
)

func one(key string) []catalog.Weighted { return []catalog.Weighted{{Key: key, Rarity: 1}} }

func newComplex(t *testing.T, lo, hi float64) *terrain.Complex {
	t.Helper()
	p := catalog.Pack{
		Dimension: catalog.Dimension{
			Key:          "flat",
			FluidHeight:  60,
			MaxHeight:    128,
			LandChance:   landChance(0.9),
			Regions:      one("r"),
			RockPalette:  catalog.Palette{Blocks: one("STONE")},
			FluidPalette: catalog.Palette{Blocks: one("WATER")},
		},
		Regions: []catalog.Region{{Key: "r", LandBiomes: one("land"), SeaBiomes: one("sea"), ShoreBiomes: one("shore")}},
		Biomes: []catalog.Biome{
			{Key: "land", Generators: []catalog.GeneratorLink{{Generator: "g", Min: lo, Max: hi}}},
			{Key: "sea"},
			{Key: "shore"},
		},
		Generators: []catalog.Generator{{Key: "g"}},
		Structures: []catalog.Structure{hut()},
	}
	s, err := catalog.NewStore(p)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	c, err := terrain.New(terrain.Config{Seed: 1, Store: s, Noise: noise.Constant{V: 0.5}})
	if err != nil {
		t.Fatalf("terrain.New: %v", err)
	}
	return c
}

func hut() catalog.Structure {
	return catalog.Structure{
		Key:   "hut",
		Width: 3,
		Depth: 5,
		Pieces: []catalog.Piece{
			{Offset: [3]int{0, 1, 0}, Size: [3]int{3, 2, 5}, Block: "OAK_PLANKS"},
		},
	}
}

func TestRotateStaysInFootprint(t *testing.T) {
	const w, d = 3, 5
	for q := 0; q < 4; q++ {
		rw, rd := w, d
		if q%2 == 1 {
			rw, rd = d, w
		}
		seen := map[[2]int]bool{}
		for i := 0; i < w; i++ {
			for j := 0; j < d; j++ {
				x, z := rotate(i, j, w, d, q)
				if x < 0 || x >= rw || z < 0 || z >= rd {
					t.Fatalf("q=%d: (%d,%d) -> (%d,%d) outside %dx%d", q, i, j, x, z, rw, rd)
				}
				seen[[2]int{x, z}] = true
			}
		}
		if len(seen) != w*d {
			t.Fatalf("q=%d: rotation is not a bijection", q)
		}
	}
}

func TestPlaceWritesPieces(t *testing.T) {
	c := newComplex(t, 0, 10)
	m := mantle.New()
	f := NewFootprint(c, m, nil)
	st := hut()
	r := rng.New(3)
	a := registry.Anchor{X: 10, Y: c.HeightAt(10, 20), Z: 20}
	if _, ok := f.Place(&st, a, &r); !ok {
		t.Fatalf("hut rejected on flat dry land")
	}
	plank := c.Store().Blocks.ID("OAK_PLANKS")
	n := 0
	for _, k := range []mantle.ChunkKey{{CX: 0, CZ: 1}, {CX: 1, CZ: 1}} {
		for _, w := range m.ChunkWrites(k) {
			if w.Block != plank || w.Y < a.Y+1 || w.Y > a.Y+2 {
				t.Fatalf("unexpected write %+v", w)
			}
			n++
		}
	}
	if n != 3*2*5 {
		t.Fatalf("wrote %d blocks, want 30", n)
	}

	r = rng.New(3)
	if _, ok := f.Place(&st, a, &r); ok {
		t.Fatalf("overlapping hut accepted")
	}
}

func TestRejectsWater(t *testing.T) {
	c := newComplex(t, -20, -20)
	f := NewFootprint(c, mantle.New(), nil)
	st := hut()
	r := rng.New(1)
	a := registry.Anchor{X: 0, Y: c.HeightAt(0, 0), Z: 0}
	if _, ok := f.Place(&st, a, &r); ok {
		t.Fatalf("hut placed under water")
	}
	st.AllowWater = true
	r = rng.New(1)
	if _, ok := f.Place(&st, a, &r); !ok {
		t.Fatalf("AllowWater hut rejected")
	}
}

func TestExtent(t *testing.T) {
	c := newComplex(t, 0, 10)
	if e := Extent(c.Store()); e != 3+5+5 {
		t.Fatalf("Extent = %d", e)
	}
}

func TestConcurrentOverlappingPlacements(t *testing.T) {
	c := newComplex(t, 0, 10)
	st := hut()
	for iter := 0; iter < 20; iter++ {
		m := mantle.New()
		f := NewFootprint(c, m, nil)
		var mu sync.Mutex
		var won [][]mantle.Write
		var wg sync.WaitGroup
		for i := 0; i < 3; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				r := rng.New(int64(i))
				a := registry.Anchor{X: 14 + i, Y: c.HeightAt(14+i, 14), Z: 14}
				if ws, ok := f.Place(&st, a, &r); ok {
					mu.Lock()
					won = append(won, ws)
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		// Every rotation of every footprint covers x=16, z=14..16, so one hut wins.
		if len(won) != 1 {
			t.Fatalf("%d overlapping huts placed", len(won))
		}
		if n := len(m.Writes()); n != len(won[0]) {
			t.Fatalf("mantle holds %d writes, winner claimed %d", n, len(won[0]))
		}
	}
}

func landChance(v float64) *float64 { return &v }
