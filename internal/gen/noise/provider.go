package noise

import (
	"math"
	"sync"

	perlin "github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"

	"terragen.ai/internal/gen/mathx"
)

type backendKey struct {
	kind Kind
	seed int64
}

type backend interface {
	eval2(x, z float64) float64
	eval3(x, y, z float64) float64
}

// Default is the library-backed provider. Backends are built lazily per
// (kind, seed) and shared; all of them are read-only after construction.
type Default struct {
	backends sync.Map // backendKey -> backend
}

func NewProvider() *Default {
	return &Default{}
}

func (d *Default) Sample2(seed int64, sig Signature, x, z float64) float64 {
	x, z = zoom(sig, x), zoom(sig, z)
	b := d.backend(sig.Kind, seed)
	return blend(sig, func(o int, f float64) float64 {
		return b.eval2(x*f+float64(o)*31.7, z*f-float64(o)*17.3)
	})
}

func (d *Default) Sample3(seed int64, sig Signature, x, y, z float64) float64 {
	x, y, z = zoom(sig, x), zoom(sig, y), zoom(sig, z)
	b := d.backend(sig.Kind, seed)
	return blend(sig, func(o int, f float64) float64 {
		return b.eval3(x*f+float64(o)*31.7, y*f, z*f-float64(o)*17.3)
	})
}

func (d *Default) backend(kind Kind, seed int64) backend {
	k := backendKey{kind: kind, seed: seed}
	if b, ok := d.backends.Load(k); ok {
		return b.(backend)
	}
	var b backend
	switch kind {
	case KindSimplex:
		b = simplexBackend{n: opensimplex.NewNormalized(seed)}
	case KindPerlin:
		b = perlinBackend{p: perlin.NewPerlin(2, 2, 3, seed)}
	case KindCellular:
		b = cellularBackend{seed: seed}
	case KindFlat:
		b = flatBackend{}
	default:
		b = whiteBackend{seed: seed}
	}
	actual, _ := d.backends.LoadOrStore(k, b)
	return actual.(backend)
}

func zoom(sig Signature, v float64) float64 {
	if sig.Zoom <= 0 || sig.Zoom == 1 {
		return v
	}
	return v / sig.Zoom
}

func blend(sig Signature, octave func(o int, freq float64) float64) float64 {
	octaves := sig.Octaves
	if octaves <= 0 {
		octaves = 1
	}
	var v float64
	switch sig.Blend {
	case BlendFractal:
		amp, freq, norm := 1.0, 1.0, 0.0
		for o := 0; o < octaves; o++ {
			v += octave(o, freq) * amp
			norm += amp
			amp *= 0.5
			freq *= 2
		}
		v /= norm
	case BlendRidged:
		v = 1 - math.Abs(octave(0, 1)*2-1)
	case BlendBillow:
		v = math.Abs(octave(0, 1)*2 - 1)
	default:
		v = octave(0, 1)
	}
	return unit(v)
}

// unit clamps into [0,1).
func unit(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v >= 1 {
		return math.Nextafter(1, 0)
	}
	return v
}

type simplexBackend struct{ n opensimplex.Noise }

func (s simplexBackend) eval2(x, z float64) float64    { return s.n.Eval2(x, z) }
func (s simplexBackend) eval3(x, y, z float64) float64 { return s.n.Eval3(x, y, z) }

type perlinBackend struct{ p *perlin.Perlin }

// go-perlin returns roughly [-1,1]; rescale onto [0,1].
func (p perlinBackend) eval2(x, z float64) float64 {
	return mathx.Clamp((p.p.Noise2D(x, z)+1)/2, 0, 1)
}

func (p perlinBackend) eval3(x, y, z float64) float64 {
	return mathx.Clamp((p.p.Noise3D(x, y, z)+1)/2, 0, 1)
}

type whiteBackend struct{ seed int64 }

func (w whiteBackend) eval2(x, z float64) float64 {
	return hashUnit(mathx.Hash2(w.seed, mathx.Floor(x), mathx.Floor(z)))
}

func (w whiteBackend) eval3(x, y, z float64) float64 {
	return hashUnit(mathx.Hash3(w.seed, mathx.Floor(x), mathx.Floor(y), mathx.Floor(z)))
}

// cellularBackend returns the value of the nearest jittered feature point,
// giving flat-valued cells with organic borders.
type cellularBackend struct{ seed int64 }

func (c cellularBackend) eval2(x, z float64) float64 {
	cx, cz := mathx.Floor(x), mathx.Floor(z)
	best := math.MaxFloat64
	var bestHash uint64
	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			h := mathx.Hash2(c.seed, cx+dx, cz+dz)
			px := float64(cx+dx) + hashUnit(h)
			pz := float64(cz+dz) + hashUnit(mathx.Mix64(h))
			d := (px-x)*(px-x) + (pz-z)*(pz-z)
			if d < best {
				best = d
				bestHash = h
			}
		}
	}
	return hashUnit(mathx.Mix64(bestHash ^ 0x5bd1e995))
}

func (c cellularBackend) eval3(x, _, z float64) float64 { return c.eval2(x, z) }

type flatBackend struct{}

func (flatBackend) eval2(_, _ float64) float64    { return 0 }
func (flatBackend) eval3(_, _, _ float64) float64 { return 0 }

func hashUnit(h uint64) float64 {
	return float64(h>>11) / (1 << 53)
}

// Constant is a Provider returning V everywhere; handy for pinning a pipeline
// stage to a known value.
type Constant struct{ V float64 }

func (c Constant) Sample2(int64, Signature, float64, float64) float64          { return unit(c.V) }
func (c Constant) Sample3(int64, Signature, float64, float64, float64) float64 { return unit(c.V) }
