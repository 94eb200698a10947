// Package noise is the deterministic scalar noise capability used by the
// generator: given a seed, a signature and a coordinate it returns a value
// in [0,1).
package noise

import (
	"fmt"
	"strings"
)

type Kind uint8

const (
	KindWhite Kind = iota
	KindSimplex
	KindPerlin
	KindCellular
	KindFlat
)

var kindNames = [...]string{"white", "simplex", "perlin", "cellular", "flat"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range kindNames {
		if n == s {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown noise kind %q", s)
}

// Blend post-processes octaves of the base kind.
type Blend uint8

const (
	BlendNone Blend = iota
	BlendFractal
	BlendRidged
	BlendBillow
)

var blendNames = [...]string{"none", "fractal", "ridged", "billow"}

func (b Blend) String() string {
	if int(b) < len(blendNames) {
		return blendNames[b]
	}
	return fmt.Sprintf("blend(%d)", b)
}

func (b Blend) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *Blend) UnmarshalText(raw []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(raw)))
	if s == "" {
		*b = BlendNone
		return nil
	}
	for i, n := range blendNames {
		if n == s {
			*b = Blend(i)
			return nil
		}
	}
	return fmt.Errorf("unknown noise blend %q", s)
}

// Signature selects the noise function; Zoom divides the sampled coordinate.
type Signature struct {
	Kind    Kind    `yaml:"kind" json:"kind"`
	Blend   Blend   `yaml:"blend,omitempty" json:"blend,omitempty"`
	Octaves int     `yaml:"octaves,omitempty" json:"octaves,omitempty"`
	Zoom    float64 `yaml:"zoom,omitempty" json:"zoom,omitempty"`
}

func (s Signature) String() string {
	return fmt.Sprintf("%s/%s/o%d/z%g", s.Kind, s.Blend, s.Octaves, s.Zoom)
}

// Zoomed returns a copy with the zoom multiplied by f.
func (s Signature) Zoomed(f float64) Signature {
	if f <= 0 {
		return s
	}
	z := s.Zoom
	if z <= 0 {
		z = 1
	}
	s.Zoom = z * f
	return s
}

// Provider is safe for concurrent use and side-effect free.
type Provider interface {
	Sample2(seed int64, sig Signature, x, z float64) float64
	Sample3(seed int64, sig Signature, x, y, z float64) float64
}

// Source binds a provider to one seed and signature.
type Source struct {
	p    Provider
	seed int64
	sig  Signature
}

func Bind(p Provider, seed int64, sig Signature) Source {
	return Source{p: p, seed: seed, sig: sig}
}

func (s Source) At(x, z float64) float64 {
	return s.p.Sample2(s.seed, s.sig, x, z)
}

func (s Source) At3(x, y, z float64) float64 {
	return s.p.Sample3(s.seed, s.sig, x, y, z)
}

// Fit maps the noise at (x,z) onto the integer range [lo, hi].
func (s Source) Fit(lo, hi int, x, z float64) int {
	if hi <= lo {
		return lo
	}
	v := lo + int(s.At(x, z)*float64(hi-lo+1))
	if v > hi {
		v = hi
	}
	return v
}

func (s Source) Signature() Signature { return s.sig }
func (s Source) Seed() int64          { return s.seed }
