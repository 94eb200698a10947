package catalog

import (
	"math"

	"terragen.ai/internal/gen/rng"
)

// StrongholdPositions lists the fixed stronghold anchors (block coordinates)
// for a seed: the explicit positions followed by Count positions spread on a
// ring of Radius blocks around the origin. The result is a pure function of
// the seed.
func (d *Dimension) StrongholdPositions(seed int64) []Pos2 {
	sh := d.Stronghold
	if sh == nil {
		return nil
	}
	out := append([]Pos2(nil), sh.Positions...)
	if sh.Count <= 0 {
		return out
	}
	r := rng.New(rng.Seed(seed, rng.SaltStronghold))
	start := r.Float64() * 2 * math.Pi
	step := 2 * math.Pi / float64(sh.Count)
	for i := 0; i < sh.Count; i++ {
		angle := start + step*float64(i) + (r.Float64()-0.5)*step*0.25
		dist := float64(sh.Radius) * (0.75 + r.Float64()*0.5)
		out = append(out, Pos2{
			X: int(math.Round(math.Cos(angle) * dist)),
			Z: int(math.Round(math.Sin(angle) * dist)),
		})
	}
	return out
}
