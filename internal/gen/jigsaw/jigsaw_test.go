package jigsaw

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/gen/mantle"
	"terragen.ai/internal/gen/noise"
	"terragen.ai/internal/gen/planner"
	"terragen.ai/internal/gen/rng"
	"terragen.ai/internal/gen/terrain"
	"terragen.ai/internal/persistence/registry"
)

func one(key string) []catalog.Weighted { return []catalog.Weighted{{Key: key, Rarity: 1}} }

// testPack is a flat single-biome world (height 65 under constant noise)
// with structures A, B and S.
func testPack(biome []catalog.Placement) catalog.Pack {
	return catalog.Pack{
		Dimension: catalog.Dimension{
			Key:          "flat",
			FluidHeight:  60,
			MaxHeight:    128,
			LandChance:   landChance(0.9),
			Regions:      one("r"),
			RockPalette:  catalog.Palette{Blocks: one("STONE")},
			FluidPalette: catalog.Palette{Blocks: one("WATER")},
		},
		Regions: []catalog.Region{{
			Key:         "r",
			LandBiomes:  one("land"),
			SeaBiomes:   one("sea"),
			ShoreBiomes: one("shore"),
		}},
		Biomes: []catalog.Biome{
			{
				Key:        "land",
				Generators: []catalog.GeneratorLink{{Generator: "g", Min: 0, Max: 10}},
				Jigsaw:     biome,
			},
			{Key: "sea"},
			{Key: "shore"},
		},
		Generators: []catalog.Generator{{Key: "g"}},
		Structures: []catalog.Structure{
			{Key: "A", Width: 4, Depth: 4},
			{Key: "B", Width: 4, Depth: 4},
			{Key: "S", Width: 8, Depth: 8},
			{Key: "X", Width: 1, Depth: 1},
		},
	}
}

type recordingPlanner struct {
	mu     sync.Mutex
	calls  []string
	reject map[string]bool
}

func (p *recordingPlanner) Place(st *catalog.Structure, a registry.Anchor, r *rng.RNG) ([]mantle.Write, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, st.Key)
	return nil, !p.reject[st.Key]
}

func (p *recordingPlanner) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func newEngine(t *testing.T, seed int64, pack catalog.Pack, reg registry.Registry, pl Planner) *Engine {
	t.Helper()
	store, err := catalog.NewStore(pack)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	cx, err := terrain.New(terrain.Config{Seed: seed, Store: store, Noise: noise.Constant{V: 0.5}})
	if err != nil {
		t.Fatalf("terrain.New: %v", err)
	}
	e, err := New(Config{Complex: cx, Registry: reg, Planner: pl})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestAlwaysPlacesAtOrigin(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemory()
	pl := &recordingPlanner{}
	e := newEngine(t, 42, testPack([]catalog.Placement{{Structure: "A", Rarity: 1}}), reg, pl)

	res, err := e.GenerateLayer(ctx, 0, 0)
	if err != nil {
		t.Fatalf("GenerateLayer: %v", err)
	}
	if !res.Placed || res.Source != SourceBiome || res.Placement.Structure != "A" {
		t.Fatalf("unexpected result %+v", res)
	}
	a := res.Placement.Anchor
	if a.X < 0 || a.X > 14 || a.Z < 0 || a.Z > 14 || a.Y != 65 {
		t.Fatalf("anchor %+v outside chunk footprint", a)
	}
	s, err := reg.Get(ctx, registry.RegionKey{})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("region (0,0) has %d entries, want 1", s.Len())
	}

	again, err := e.GenerateLayer(ctx, 0, 0)
	if err != nil {
		t.Fatalf("GenerateLayer again: %v", err)
	}
	if !again.Done || again.Placed {
		t.Fatalf("second run = %+v", again)
	}
	if s, _ := reg.Get(ctx, registry.RegionKey{}); s.Len() != 1 {
		t.Fatalf("layer ran twice: %d entries", s.Len())
	}
}

func TestMutualDistance(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemory()
	pl := &recordingPlanner{}
	ea := newEngine(t, 42, testPack([]catalog.Placement{
		{Structure: "A", Rarity: 1, MinDistance: map[string]int{"B": 100}},
	}), reg, pl)
	if res, err := ea.GenerateLayer(ctx, 0, 0); err != nil || !res.Placed {
		t.Fatalf("placing A: %+v %v", res, err)
	}

	eb := newEngine(t, 42, testPack([]catalog.Placement{
		{Structure: "B", Rarity: 1, MinDistance: map[string]int{"A": 100}},
	}), reg, pl)
	near, err := eb.GenerateLayer(ctx, 1, 1)
	if err != nil {
		t.Fatalf("GenerateLayer(1,1): %v", err)
	}
	if near.Placed || near.Rejected != 1 {
		t.Fatalf("B placed 16 blocks from A: %+v", near)
	}
	far, err := eb.GenerateLayer(ctx, 50, 50)
	if err != nil {
		t.Fatalf("GenerateLayer(50,50): %v", err)
	}
	if !far.Placed || far.Placement.Structure != "B" {
		t.Fatalf("B not placed 800 blocks from A: %+v", far)
	}
	if got := RegionOf(far.Placement.Anchor); got != (registry.RegionKey{RX: 1, RZ: 1}) {
		t.Fatalf("anchor region = %v", got)
	}
}

func TestStrongholdOverride(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewMemory()
	pack := testPack([]catalog.Placement{
		{Structure: "A", Rarity: 1 << 30, MinDistance: map[string]int{"S": 5000}},
	})
	pack.Dimension.Stronghold = &catalog.Stronghold{
		Structure: "S",
		Positions: []catalog.Pos2{{X: 100, Z: -40}},
	}
	// An S anchor right next door would fail any distance check.
	_ = reg.Append(ctx, registry.RegionKey{}, registry.NewPlacement("S", registry.Anchor{X: 90, Z: -40}, 5, -3))
	e := newEngine(t, 7, pack, reg, &recordingPlanner{})

	res, err := e.GenerateLayer(ctx, 100>>4, -40>>4)
	if err != nil {
		t.Fatalf("GenerateLayer: %v", err)
	}
	if !res.Placed || res.Source != SourceStronghold || res.Placement.Structure != "S" {
		t.Fatalf("stronghold not placed: %+v", res)
	}
	if a := res.Placement.Anchor; a.X != 100 || a.Z != -40 {
		t.Fatalf("stronghold anchor = %+v", a)
	}
	st, err := e.Guess(100>>4, -40>>4)
	if err != nil || st == nil || st.Key != "S" {
		t.Fatalf("Guess = %v, %v", st, err)
	}
}

func TestDistanceMonotonic(t *testing.T) {
	ctx := context.Background()
	const n = 12
	var prev map[[2]int]bool
	for _, d := range []int{0, 40, 120, 400} {
		var md map[string]int
		if d > 0 {
			md = map[string]int{"X": d}
		}
		reg := registry.NewMemory()
		_ = reg.Append(ctx, registry.RegionKey{}, registry.NewPlacement("X", registry.Anchor{X: 96, Z: 96}, 6, 6))
		e := newEngine(t, 3, testPack([]catalog.Placement{{Structure: "A", Rarity: 1, MinDistance: md}}), reg, &recordingPlanner{})
		placed := map[[2]int]bool{}
		for cx := 0; cx < n; cx++ {
			for cz := 0; cz < n; cz++ {
				res, err := e.GenerateLayer(ctx, cx, cz)
				if err != nil {
					t.Fatalf("GenerateLayer: %v", err)
				}
				if res.Placed {
					placed[[2]int{cx, cz}] = true
				}
			}
		}
		if prev != nil {
			for k := range placed {
				if !prev[k] {
					t.Fatalf("distance %d placed at %v where a smaller distance did not", d, k)
				}
			}
		}
		switch d {
		case 0:
			if len(placed) != n*n {
				t.Fatalf("unconstrained placed %d of %d", len(placed), n*n)
			}
		case 400:
			if len(placed) != 0 {
				t.Fatalf("distance 400 placed %d chunks", len(placed))
			}
		}
		prev = placed
	}
}

func TestFallsThroughLists(t *testing.T) {
	ctx := context.Background()
	pack := testPack(nil)
	pack.Regions[0].Jigsaw = []catalog.Placement{{Structure: "B", Rarity: 1}}
	pack.Dimension.Jigsaw = []catalog.Placement{{Structure: "A", Rarity: 1}}
	pl := &recordingPlanner{}
	e := newEngine(t, 11, pack, registry.NewMemory(), pl)
	res, err := e.GenerateLayer(ctx, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceRegion || res.Placement.Structure != "B" {
		t.Fatalf("result %+v", res)
	}

	pl.reject = map[string]bool{"B": true}
	e = newEngine(t, 11, pack, registry.NewMemory(), pl)
	res, err = e.GenerateLayer(ctx, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if res.Source != SourceDimension || res.Placement.Structure != "A" || res.Rejected != 1 {
		t.Fatalf("after planner rejection: %+v", res)
	}
}

func TestGuessMatchesUnconstrainedPlacement(t *testing.T) {
	ctx := context.Background()
	pack := testPack([]catalog.Placement{{Structure: "A", Rarity: 4}, {Structure: "B", Rarity: 3}})
	pack.Dimension.Jigsaw = []catalog.Placement{{Structure: "X", Rarity: 2}}
	e := newEngine(t, 5, pack, registry.NewMemory(), &recordingPlanner{})
	for cx := -4; cx < 4; cx++ {
		for cz := -4; cz < 4; cz++ {
			g, err := e.Guess(cx, cz)
			if err != nil {
				t.Fatalf("Guess: %v", err)
			}
			res, err := e.GenerateLayer(ctx, cx, cz)
			if err != nil {
				t.Fatalf("GenerateLayer: %v", err)
			}
			want := ""
			if g != nil {
				want = g.Key
			}
			if res.Placement.Structure != want {
				t.Fatalf("chunk %d,%d: guess %q, placed %q", cx, cz, want, res.Placement.Structure)
			}
		}
	}
}

func TestConcurrentLayerRunsOnce(t *testing.T) {
	ctx := context.Background()
	pl := &recordingPlanner{}
	e := newEngine(t, 42, testPack([]catalog.Placement{{Structure: "A", Rarity: 1}}), registry.NewMemory(), pl)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.GenerateLayer(ctx, 9, -9); err != nil {
				t.Errorf("GenerateLayer: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := pl.count(); n != 1 {
		t.Fatalf("planner called %d times", n)
	}
}

func TestRegistryErrorSurfaces(t *testing.T) {
	reg := registry.NewMemory()
	e := newEngine(t, 42, testPack([]catalog.Placement{{Structure: "A", Rarity: 1}}), reg, &recordingPlanner{})
	_ = reg.Close()
	if _, err := e.GenerateLayer(context.Background(), 0, 0); err == nil {
		t.Fatalf("expected error from closed registry")
	}
}

// flakyRegistry fails the first Append.
type flakyRegistry struct {
	registry.Registry
	failed atomic.Bool
}

func (f *flakyRegistry) Append(ctx context.Context, k registry.RegionKey, p registry.Placement) error {
	if f.failed.CompareAndSwap(false, true) {
		return errors.New("transient")
	}
	return f.Registry.Append(ctx, k, p)
}

func TestFailedCommitReleasesBlocks(t *testing.T) {
	ctx := context.Background()
	pk := testPack([]catalog.Placement{{Structure: "A", Rarity: 1}})
	pk.Structures[0].Pieces = []catalog.Piece{{Offset: [3]int{0, 1, 0}, Size: [3]int{2, 2, 2}, Block: "OAK_PLANKS"}}
	store, err := catalog.NewStore(pk)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	cx, err := terrain.New(terrain.Config{Seed: 42, Store: store, Noise: noise.Constant{V: 0.5}})
	if err != nil {
		t.Fatalf("terrain.New: %v", err)
	}
	m := mantle.New()
	reg := &flakyRegistry{Registry: registry.NewMemory()}
	e, err := New(Config{Complex: cx, Registry: reg, Planner: planner.NewFootprint(cx, m, nil), Mantle: m})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := e.GenerateLayer(ctx, 0, 0); err == nil {
		t.Fatalf("expected the first commit to fail")
	}
	if ws := m.Writes(); len(ws) != 0 {
		t.Fatalf("failed commit left %d blocks in the mantle", len(ws))
	}

	res, err := e.GenerateLayer(ctx, 0, 0)
	if err != nil || !res.Placed {
		t.Fatalf("retry = %+v, %v", res, err)
	}
	if ws := m.Writes(); len(ws) != 8 {
		t.Fatalf("retry wrote %d blocks, want 8", len(ws))
	}
	s, err := reg.Get(ctx, RegionOf(res.Placement.Anchor))
	if err != nil || s.Len() != 1 {
		t.Fatalf("registry after retry: %v %v", s, err)
	}
}

func landChance(v float64) *float64 { return &v }
