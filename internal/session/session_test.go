package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/gen/mantle"
	"terragen.ai/internal/gen/noise"
	"terragen.ai/internal/persistence/registry"
	"terragen.ai/internal/persistence/snapshot"
)

func one(key string) []catalog.Weighted { return []catalog.Weighted{{Key: key, Rarity: 1}} }

func hutStore(t *testing.T) *catalog.Store {
	t.Helper()
	s, err := catalog.NewStore(catalog.Pack{
		Dimension: catalog.Dimension{
			Key:          "flat",
			FluidHeight:  60,
			MaxHeight:    96,
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
				Layers:     []catalog.PaletteLayer{{Blocks: one("GRASS_BLOCK"), MinHeight: 1, MaxHeight: 1}},
				Jigsaw:     []catalog.Placement{{Structure: "hut", Rarity: 1, MinDistance: map[string]int{"hut": 24}}},
			},
			{Key: "sea"},
			{Key: "shore"},
		},
		Generators: []catalog.Generator{{Key: "g"}},
		Structures: []catalog.Structure{{
			Key: "hut", Width: 3, Depth: 3,
			Pieces: []catalog.Piece{{Offset: [3]int{0, 1, 0}, Size: [3]int{3, 2, 3}, Block: "OAK_PLANKS"}},
		}},
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func open(t *testing.T, dir, kind string, seed int64) *Session {
	t.Helper()
	s, err := Open(context.Background(), Config{
		Catalog:  hutStore(t),
		DataDir:  dir,
		Seed:     seed,
		Registry: kind,
		Noise:    noise.Constant{V: 0.5},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

// placed sums the registry entries of the regions around the origin.
func placed(t *testing.T, reg registry.Registry) int {
	t.Helper()
	n := 0
	for rx := -1; rx <= 0; rx++ {
		for rz := -1; rz <= 0; rz++ {
			snap, err := reg.Get(context.Background(), registry.RegionKey{RX: rx, RZ: rz})
			if err != nil {
				t.Fatalf("registry Get: %v", err)
			}
			n += snap.Len()
		}
	}
	return n
}

func TestGenerateSaveResume(t *testing.T) {
	for _, kind := range []string{"sqlite", "leveldb", "memory"} {
		t.Run(kind, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			a := open(t, dir, kind, 11)
			var calls atomic.Int64
			if err := a.Generate(ctx, 1, 4, func(done, total int) {
				calls.Add(1)
				if total != 9 {
					t.Errorf("total = %d", total)
				}
			}); err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if calls.Load() != 9 {
				t.Fatalf("progress called %d times", calls.Load())
			}
			m := a.Metrics()
			want := placed(t, a.Reg)
			if m.Chunks != 9 || want == 0 || m.Placements != int64(want) {
				t.Fatalf("metrics %+v, registry %d", m, want)
			}
			digests := map[mantle.ChunkKey][32]byte{}
			for _, k := range a.Chunks.LoadedChunkKeys() {
				ch, _ := a.Chunks.Get(k)
				digests[mantle.ChunkKey{CX: k.CX, CZ: k.CZ}] = ch.Digest()
			}
			if err := a.Save(SnapshotPath(dir), 1); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if err := a.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			b := open(t, dir, kind, 11)
			defer b.Close()
			n, err := b.Resume(ctx, SnapshotPath(dir))
			if err != nil || n != 9 {
				t.Fatalf("Resume = %d, %v", n, err)
			}
			if got := placed(t, b.Reg); got != want {
				t.Fatalf("registry after resume = %d, want %d", got, want)
			}
			if !b.Mantle.Done(mantle.ChunkKey{}, mantle.FlagJigsaw) {
				t.Fatalf("structure layer of (0,0) not restored")
			}
			if err := b.Generate(ctx, 1, 4, nil); err != nil {
				t.Fatalf("Generate after resume: %v", err)
			}
			if got := placed(t, b.Reg); got != want || b.Metrics().Placements != 0 {
				t.Fatalf("resumed run placed again: %d", got)
			}
			for _, k := range b.Chunks.LoadedChunkKeys() {
				ch, _ := b.Chunks.Get(k)
				if ch.Digest() != digests[mantle.ChunkKey{CX: k.CX, CZ: k.CZ}] {
					t.Fatalf("chunk %v differs after resume", k)
				}
			}
		})
	}
}

func TestResumeRejectsOtherSeed(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := open(t, dir, "memory", 1)
	if err := a.Generate(ctx, 0, 1, nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := a.Save(SnapshotPath(dir), 0); err != nil {
		t.Fatalf("Save: %v", err)
	}
	a.Close()

	b := open(t, dir, "memory", 2)
	defer b.Close()
	if _, err := b.Resume(ctx, SnapshotPath(dir)); !errors.Is(err, snapshot.ErrMismatch) {
		t.Fatalf("Resume with other seed: %v", err)
	}
}

func TestResumeMissingSnapshot(t *testing.T) {
	s := open(t, t.TempDir(), "memory", 1)
	defer s.Close()
	if n, err := s.Resume(context.Background(), SnapshotPath(t.TempDir())); n != 0 || err != nil {
		t.Fatalf("Resume = %d, %v", n, err)
	}
}

func TestGenerateCancelled(t *testing.T) {
	s := open(t, t.TempDir(), "memory", 1)
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Generate(ctx, 2, 2, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("Generate on cancelled context: %v", err)
	}
}

func landChance(v float64) *float64 { return &v }
