package jigsaw

import (
	"context"

	"terragen.ai/internal/gen/catalog"
	"terragen.ai/internal/gen/mathx"
	"terragen.ai/internal/persistence/registry"
)

// evaluation memoizes registry reads for one chunk evaluation. Each region
// is loaded at most once and every anchor's distance to the chunk centre is
// computed at most once, however many candidates are checked.
type evaluation struct {
	center  registry.Anchor
	loaded  map[registry.RegionKey]bool
	anchors map[string][]registry.Anchor
	dist    map[registry.Anchor]int64
}

func newEvaluation(bx, bz int) *evaluation {
	return &evaluation{
		center:  registry.Anchor{X: bx, Z: bz},
		loaded:  map[registry.RegionKey]bool{},
		anchors: map[string][]registry.Anchor{},
		dist:    map[registry.Anchor]int64{},
	}
}

func (ev *evaluation) distSq(a registry.Anchor) int64 {
	if d, ok := ev.dist[a]; ok {
		return d
	}
	d := ev.center.DistSq(a)
	ev.dist[a] = d
	return d
}

// load merges every region that can hold an anchor within rangeChunks of
// chunk (cx,cz).
func (e *Engine) load(ctx context.Context, ev *evaluation, cx, cz, rangeChunks int) error {
	r0x, r1x := mathx.ChunkToRegion(cx-rangeChunks), mathx.ChunkToRegion(cx+rangeChunks)
	r0z, r1z := mathx.ChunkToRegion(cz-rangeChunks), mathx.ChunkToRegion(cz+rangeChunks)
	for rx := r0x; rx <= r1x; rx++ {
		for rz := r0z; rz <= r1z; rz++ {
			k := registry.RegionKey{RX: rx, RZ: rz}
			if ev.loaded[k] {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := e.reg.Get(ctx, k)
			if err != nil {
				return err
			}
			ev.loaded[k] = true
			for _, pl := range s.Placements() {
				ev.anchors[pl.Structure] = append(ev.anchors[pl.Structure], pl.Anchor)
			}
		}
	}
	return nil
}

// tooClose reports whether an anchor of a constrained structure type lies
// within its minimum distance of the chunk centre.
func (e *Engine) tooClose(ctx context.Context, ev *evaluation, p *catalog.Placement, cx, cz int) (bool, error) {
	maxDist := p.MaxDistance()
	if maxDist <= 0 {
		return false, nil
	}
	rangeChunks := (maxDist + mathx.ChunkSize - 1) / mathx.ChunkSize
	if err := e.load(ctx, ev, cx, cz, rangeChunks); err != nil {
		return false, err
	}
	for key, d := range p.MinDistance {
		lim := int64(d) * int64(d)
		for _, a := range ev.anchors[key] {
			if ev.distSq(a) < lim {
				return true, nil
			}
		}
	}
	return false, nil
}
