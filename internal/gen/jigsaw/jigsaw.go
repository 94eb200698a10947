// Package jigsaw decides, per chunk, whether a structure is anchored there.
// It records every committed anchor in the region registry so later
// distance checks see it; the multi-piece layout itself is left to a
// Planner.
package jigsaw

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/gen/mantle"
	"terragen.ai/internal/gen/mathx"
	"terragen.ai/internal/gen/rng"
	"terragen.ai/internal/gen/terrain"
	"terragen.ai/internal/persistence/registry"
)

// Planner lays out a structure at an anchor and claims its blocks in the
// engine's mantle. A false return means the structure does not fit there;
// the engine moves on to the next candidate. The returned writes are
// released again if the anchor cannot be recorded.
type Planner interface {
	Place(st *catalog.Structure, anchor registry.Anchor, r *rng.RNG) ([]mantle.Write, bool)
}

// Source names the candidate list a placement came from.
type Source string

const (
	SourceStronghold Source = "stronghold"
	SourceBiome      Source = "biome"
	SourceRegion     Source = "region"
	SourceDimension  Source = "dimension"
)

// Result is the outcome of one chunk's jigsaw layer.
type Result struct {
	ChunkX, ChunkZ int
	// Done is set when the layer had already been generated by an earlier
	// call; no other field is filled in then.
	Done      bool
	Placed    bool
	Source    Source
	Placement registry.Placement
	// Rejected counts candidates that passed the rarity gate but failed the
	// distance check or did not fit.
	Rejected int
}

// Event is one committed placement as written to the event log.
type Event struct {
	Time      time.Time          `json:"time"`
	Seed      int64              `json:"seed"`
	Source    Source             `json:"source"`
	Region    registry.RegionKey `json:"region"`
	Placement registry.Placement `json:"placement"`
}

// EventLog receives committed placements.
type EventLog interface {
	WritePlacement(Event) error
}

type Config struct {
	Complex  *terrain.Complex
	Registry registry.Registry
	Planner  Planner
	Mantle   *mantle.Mantle
	Events   EventLog
	Logger   *log.Logger
}

// Engine is safe for concurrent use by chunk workers.
type Engine struct {
	cx     *terrain.Complex
	store  *catalog.Store
	dim    *catalog.Dimension
	reg    registry.Registry
	plan   Planner
	mantle *mantle.Mantle
	events EventLog
	logger *log.Logger

	strongholds map[mantle.ChunkKey]catalog.Pos2
}

func New(cfg Config) (*Engine, error) {
	if cfg.Complex == nil || cfg.Registry == nil || cfg.Planner == nil {
		return nil, fmt.Errorf("jigsaw: complex, registry and planner are required")
	}
	e := &Engine{
		cx:     cfg.Complex,
		store:  cfg.Complex.Store(),
		dim:    cfg.Complex.Dimension(),
		reg:    cfg.Registry,
		plan:   cfg.Planner,
		mantle: cfg.Mantle,
		events: cfg.Events,
		logger: cfg.Logger,
	}
	if e.mantle == nil {
		e.mantle = mantle.New()
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard, "", 0)
	}
	e.strongholds = map[mantle.ChunkKey]catalog.Pos2{}
	if e.dim.Stronghold != nil {
		if _, err := e.store.Structure(e.dim.Stronghold.Structure); err != nil {
			return nil, fmt.Errorf("jigsaw: stronghold: %w", err)
		}
		for _, p := range e.dim.StrongholdPositions(cfg.Complex.Seed()) {
			k := mantle.ChunkKey{CX: mathx.BlockToChunk(p.X), CZ: mathx.BlockToChunk(p.Z)}
			if _, dup := e.strongholds[k]; !dup {
				e.strongholds[k] = p
			}
		}
	}
	return e, nil
}

func (e *Engine) Mantle() *mantle.Mantle { return e.mantle }

// GenerateLayer runs the jigsaw layer of chunk (cx,cz) once. Concurrent and
// repeated calls for the same chunk wait for and share the first run.
func (e *Engine) GenerateLayer(ctx context.Context, cx, cz int) (Result, error) {
	res := Result{ChunkX: cx, ChunkZ: cz, Done: true}
	err := e.mantle.Once(ctx, mantle.ChunkKey{CX: cx, CZ: cz}, mantle.FlagJigsaw, func(ctx context.Context) error {
		r, err := e.generate(ctx, cx, cz)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return Result{ChunkX: cx, ChunkZ: cz}, fmt.Errorf("jigsaw chunk (%d,%d): %w", cx, cz, err)
	}
	return res, nil
}

func (e *Engine) generate(ctx context.Context, cx, cz int) (Result, error) {
	res := Result{ChunkX: cx, ChunkZ: cz}
	r := e.cx.ChunkRNG(cx, cz)

	if pos, ok := e.strongholds[mantle.ChunkKey{CX: cx, CZ: cz}]; ok {
		st, err := e.store.Structure(e.dim.Stronghold.Structure)
		if err != nil {
			return res, err
		}
		a := registry.Anchor{X: pos.X, Y: e.cx.HeightAt(pos.X, pos.Z), Z: pos.Z}
		ws, ok := e.plan.Place(st, a, &r)
		if !ok {
			e.logger.Printf("jigsaw: stronghold %s does not fit at %d,%d", st.Key, a.X, a.Z)
			return res, nil
		}
		return e.commit(ctx, res, SourceStronghold, st, a, ws)
	}

	bx, bz := mathx.ChunkCenter(cx), mathx.ChunkCenter(cz)
	biome := e.cx.TrueBiome.GetInt(bx, bz)
	region := e.cx.Region.GetInt(bx, bz)
	lists := []struct {
		src Source
		ps  []catalog.Placement
	}{
		{SourceBiome, biome.Jigsaw},
		{SourceRegion, region.Jigsaw},
		{SourceDimension, e.dim.Jigsaw},
	}
	ev := newEvaluation(bx, bz)
	for _, l := range lists {
		for i := range l.ps {
			p := &l.ps[i]
			if r.Int(p.Rarity) != 0 {
				continue
			}
			near, err := e.tooClose(ctx, ev, p, cx, cz)
			if err != nil {
				return res, err
			}
			if near {
				res.Rejected++
				continue
			}
			st, err := e.store.Structure(p.Structure)
			if err != nil {
				return res, err
			}
			x := mathx.ChunkOrigin(cx) + r.Int(15)
			z := mathx.ChunkOrigin(cz) + r.Int(15)
			a := registry.Anchor{X: x, Y: e.cx.HeightAt(x, z), Z: z}
			ws, ok := e.plan.Place(st, a, &r)
			if !ok {
				res.Rejected++
				continue
			}
			return e.commit(ctx, res, l.src, st, a, ws)
		}
	}
	return res, nil
}

// commit records the anchor. On failure the planner's writes are released
// so a retry of the layer starts from the same mantle.
func (e *Engine) commit(ctx context.Context, res Result, src Source, st *catalog.Structure, a registry.Anchor, ws []mantle.Write) (Result, error) {
	p := registry.NewPlacement(st.Key, a, res.ChunkX, res.ChunkZ)
	k := RegionOf(a)
	if err := e.reg.Append(ctx, k, p); err != nil {
		e.mantle.Release(ws)
		return res, fmt.Errorf("record %s: %w", st.Key, err)
	}
	res.Placed = true
	res.Source = src
	res.Placement = p
	if e.events != nil {
		ev := Event{Time: time.Now().UTC(), Seed: e.cx.Seed(), Source: src, Region: k, Placement: p}
		if err := e.events.WritePlacement(ev); err != nil {
			e.logger.Printf("jigsaw: event log: %v", err)
		}
	}
	return res, nil
}

// RegionOf is the registry region holding an anchor.
func RegionOf(a registry.Anchor) registry.RegionKey {
	return registry.RegionKey{RX: mathx.BlockToRegion(a.X), RZ: mathx.BlockToRegion(a.Z)}
}

// Guess reports the structure chunk (cx,cz) would most likely get, without
// placing anything. It skips the distance check and assumes the planner
// accepts, so it can disagree with GenerateLayer.
func (e *Engine) Guess(cx, cz int) (*catalog.Structure, error) {
	if _, ok := e.strongholds[mantle.ChunkKey{CX: cx, CZ: cz}]; ok {
		return e.store.Structure(e.dim.Stronghold.Structure)
	}
	r := e.cx.ChunkRNG(cx, cz)
	bx, bz := mathx.ChunkCenter(cx), mathx.ChunkCenter(cz)
	for _, ps := range [][]catalog.Placement{
		e.cx.TrueBiome.GetInt(bx, bz).Jigsaw,
		e.cx.Region.GetInt(bx, bz).Jigsaw,
		e.dim.Jigsaw,
	} {
		for _, p := range ps {
			if r.Int(p.Rarity) == 0 {
				return e.store.Structure(p.Structure)
			}
		}
	}
	return nil, nil
}
