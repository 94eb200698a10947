// Package session wires one generation run together: pack, evaluation
// graph, structure registry, mantle, placement engine, chunk store and the
// placement event log. It also saves and resumes runs through snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/gen/jigsaw"
	"terragen.ai/internal/gen/mantle"
	"terragen.ai/internal/gen/noise"
	"terragen.ai/internal/gen/planner"
	"terragen.ai/internal/gen/terrain"
	"terragen.ai/internal/pack"
	"terragen.ai/internal/persistence/archive"
	persistlog "terragen.ai/internal/persistence/log"
	"terragen.ai/internal/persistence/registry"
	"terragen.ai/internal/persistence/snapshot"
	"terragen.ai/internal/sim/store"
)

type Config struct {
	Pack pack.Source
	// Catalog, when set, is used instead of opening Pack.
	Catalog  *catalog.Store
	DataDir  string
	Seed     int64
	Registry string
	Noise    noise.Provider
	Logger   *log.Logger
}

type Metrics struct {
	Chunks       int
	Placements   int64
	MantleChunks int
	Uptime       time.Duration
}

type Session struct {
	cfg     Config
	logger  *log.Logger
	started time.Time

	Catalog *catalog.Store
	Complex *terrain.Complex
	Reg     registry.Registry
	Mantle  *mantle.Mantle
	Jigsaw  *jigsaw.Engine
	Chunks  *store.ChunkStore

	events *countingLog
}

// countingLog forwards placements to the event log and counts them.
type countingLog struct {
	out *persistlog.PlacementLogger
	n   atomic.Int64
}

func (c *countingLog) WritePlacement(ev jigsaw.Event) error {
	c.n.Add(1)
	return c.out.WritePlacement(ev)
}

func SnapshotPath(dataDir string) string {
	return filepath.Join(dataDir, "session.snap.zst")
}

func registryPath(dataDir, kind string) string {
	switch kind {
	case "sqlite":
		return filepath.Join(dataDir, "registry.sqlite")
	case "leveldb", "level":
		return filepath.Join(dataDir, "registry.ldb")
	}
	return ""
}

func Open(ctx context.Context, cfg Config) (*Session, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("session: empty data dir")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	s := &Session{cfg: cfg, logger: logger, started: time.Now(), Catalog: cfg.Catalog}
	if s.Catalog == nil {
		if cfg.Pack.CacheDir == "" {
			cfg.Pack.CacheDir = filepath.Join(cfg.DataDir, "packs")
		}
		cat, err := pack.Open(ctx, cfg.Pack)
		if err != nil {
			return nil, err
		}
		s.Catalog = cat
	}

	cx, err := terrain.New(terrain.Config{Seed: cfg.Seed, Store: s.Catalog, Noise: cfg.Noise, Logger: logger})
	if err != nil {
		return nil, err
	}
	s.Complex = cx

	reg, err := registry.Open(cfg.Registry, registryPath(cfg.DataDir, cfg.Registry))
	if err != nil {
		return nil, err
	}
	s.Reg = reg

	s.Mantle = mantle.New()
	s.events = &countingLog{out: persistlog.NewPlacementLogger(cfg.DataDir)}
	jig, err := jigsaw.New(jigsaw.Config{
		Complex:  cx,
		Registry: reg,
		Planner:  planner.NewFootprint(cx, s.Mantle, logger),
		Mantle:   s.Mantle,
		Events:   s.events,
		Logger:   logger,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.Jigsaw = jig

	reach := (planner.Extent(s.Catalog) + 15) / 16
	chunks, err := store.New(store.Config{Complex: cx, Jigsaw: jig, Logger: logger, Reach: reach})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.Chunks = chunks
	logger.Printf("session: seed=%d dimension=%s pack=%.12s registry=%s reach=%d",
		cfg.Seed, s.Catalog.Dimension().Key, s.Catalog.Digest, cfg.Registry, reach)
	return s, nil
}

// Resume restores chunks, finished structure layers and pending structure
// blocks from the snapshot at path. A missing file is not an error and
// restores nothing.
func (s *Session) Resume(ctx context.Context, path string) (int, error) {
	snap, err := snapshot.ReadSnapshot(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("resume: %w", err)
	}
	if err := snap.Header.Check(s.cfg.Seed, s.Catalog.Dimension().Key, s.Catalog.Digest); err != nil {
		return 0, fmt.Errorf("resume %s: %w", filepath.Base(path), err)
	}

	for _, k := range snap.Layers {
		s.Mantle.MarkDone(mantle.ChunkKey{CX: k.CX, CZ: k.CZ}, mantle.FlagJigsaw)
	}
	for _, w := range snap.Pending {
		s.Mantle.Set(w.X, w.Y, w.Z, w.Block)
	}
	if err := s.Chunks.ImportChunks(snap.Chunks); err != nil {
		return 0, fmt.Errorf("resume: %w", err)
	}
	if m, ok := s.Reg.(*registry.Memory); ok {
		n, err := ReplayPlacements(ctx, s.cfg.DataDir, s.cfg.Seed, m)
		if err != nil {
			return 0, err
		}
		s.logger.Printf("session: replayed %d placements into memory registry", n)
	}
	s.logger.Printf("session: resumed %d chunks, %d layers, %d pending blocks from %s",
		len(snap.Chunks), len(snap.Layers), len(snap.Pending), filepath.Base(path))
	return len(snap.Chunks), nil
}

// ReplayPlacements appends every placement logged under dataDir for seed to
// reg. A structure anchored twice at the same position is recorded once.
func ReplayPlacements(ctx context.Context, dataDir string, seed int64, reg registry.Registry) (int, error) {
	evs, err := persistlog.ReadPlacements(dataDir)
	if err != nil {
		return 0, fmt.Errorf("replay placements: %w", err)
	}
	type seenKey struct {
		structure string
		anchor    registry.Anchor
	}
	seen := map[seenKey]bool{}
	n := 0
	for _, ev := range evs {
		if ev.Seed != seed {
			continue
		}
		k := seenKey{ev.Placement.Structure, ev.Placement.Anchor}
		if seen[k] {
			continue
		}
		seen[k] = true
		if err := reg.Append(ctx, jigsaw.RegionOf(ev.Placement.Anchor), ev.Placement); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Generate fills the square of chunks within radius of the origin chunk
// using up to workers goroutines. Already generated chunks are skipped.
// progress, if set, is called after each chunk.
func (s *Session) Generate(ctx context.Context, radius, workers int, progress func(done, total int)) error {
	if workers <= 0 {
		workers = 1
	}
	var todo []store.ChunkKey
	for cz := -radius; cz <= radius; cz++ {
		for cx := -radius; cx <= radius; cx++ {
			k := store.ChunkKey{CX: cx, CZ: cz}
			if _, ok := s.Chunks.Get(k); !ok {
				todo = append(todo, k)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var done atomic.Int64
	for _, k := range todo {
		k := k
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if _, err := s.Chunks.Generate(gctx, k.CX, k.CZ); err != nil {
				return err
			}
			if progress != nil {
				progress(int(done.Add(1)), len(todo))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Save writes every finished chunk and the mantle state to path.
func (s *Session) Save(path string, radius int) error {
	snap := snapshot.SessionV1{
		Header: snapshot.Header{
			Seed:       s.cfg.Seed,
			Dimension:  s.Catalog.Dimension().Key,
			PackDigest: s.Catalog.Digest,
			Created:    time.Now().UTC(),
		},
		Radius:   radius,
		Registry: s.cfg.Registry,
		Chunks:   s.Chunks.ExportChunks(),
	}
	for _, k := range s.Mantle.DoneKeys(mantle.FlagJigsaw) {
		snap.Layers = append(snap.Layers, snapshot.ChunkKeyV1{CX: k.CX, CZ: k.CZ})
	}
	for _, w := range s.Mantle.Writes() {
		snap.Pending = append(snap.Pending, snapshot.WriteV1{X: w.X, Y: w.Y, Z: w.Z, Block: w.Block})
	}
	if archived, ok, err := archive.ArchiveSession(s.cfg.DataDir, path); err != nil {
		s.logger.Printf("session: %v", err)
	} else if ok {
		s.logger.Printf("session: previous snapshot archived to %s", archived)
	}
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.logger.Printf("session: saved %d chunks to %s", len(snap.Chunks), filepath.Base(path))
	return nil
}

func (s *Session) Metrics() Metrics {
	return Metrics{
		Chunks:       s.Chunks.Len(),
		Placements:   s.events.n.Load(),
		MantleChunks: s.Mantle.Len(),
		Uptime:       time.Since(s.started),
	}
}

func (s *Session) Close() error {
	var err error
	if s.events != nil {
		err = s.events.out.Close()
	}
	if s.Reg != nil {
		err = errors.Join(err, s.Reg.Close())
	}
	return err
}
