package stream

import (
	"fmt"
	"math"
	"strings"

	"terragen.ai/internal/gen/mathx"
)

// Interpolation smooths a lattice-sampled function. Every method returns the
// sample itself at lattice points.
type Interpolation uint8

const (
	InterpBilinear Interpolation = iota
	InterpNearest
	InterpHermite
	InterpBicubic
)

var interpNames = [...]string{"bilinear", "nearest", "hermite", "bicubic"}

func (i Interpolation) String() string {
	if int(i) < len(interpNames) {
		return interpNames[i]
	}
	return fmt.Sprintf("interp(%d)", i)
}

func (i Interpolation) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

func (i *Interpolation) UnmarshalText(b []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	if s == "" {
		*i = InterpBilinear
		return nil
	}
	for n, name := range interpNames {
		if name == s {
			*i = Interpolation(n)
			return nil
		}
	}
	return fmt.Errorf("unknown interpolation %q", s)
}

// Interpolate evaluates f on the lattice of spacing radius around (x,z) and
// blends.
func Interpolate(method Interpolation, radius, x, z float64, f func(x, z float64) float64) float64 {
	if radius <= 0 {
		return f(x, z)
	}
	gx := math.Floor(x/radius) * radius
	gz := math.Floor(z/radius) * radius
	tx := (x - gx) / radius
	tz := (z - gz) / radius

	switch method {
	case InterpNearest:
		if tx >= 0.5 {
			gx += radius
		}
		if tz >= 0.5 {
			gz += radius
		}
		return f(gx, gz)
	case InterpBicubic:
		var rows [4]float64
		for j := 0; j < 4; j++ {
			zz := gz + float64(j-1)*radius
			rows[j] = catmullRom(
				f(gx-radius, zz), f(gx, zz), f(gx+radius, zz), f(gx+2*radius, zz), tx)
		}
		return catmullRom(rows[0], rows[1], rows[2], rows[3], tz)
	case InterpHermite:
		tx = tx * tx * (3 - 2*tx)
		tz = tz * tz * (3 - 2*tz)
	}
	a := mathx.Lerp(f(gx, gz), f(gx+radius, gz), tx)
	b := mathx.Lerp(f(gx, gz+radius), f(gx+radius, gz+radius), tx)
	return mathx.Lerp(a, b, tz)
}

func catmullRom(p0, p1, p2, p3, t float64) float64 {
	if t == 0 {
		return p1
	}
	return p1 + 0.5*t*(p2-p0+t*(2*p0-5*p1+4*p2-p3+t*(3*(p1-p2)+p3-p0)))
}

// Interpolated wraps a lattice function as a stream.
func Interpolated(name string, method Interpolation, radius float64, f func(x, z float64) float64) Stream[float64] {
	n := newNode(KindInterpolate, fmt.Sprintf("%s r=%g", method, radius))
	n.Name = name
	return Stream[float64]{
		node: n,
		get2: func(x, z float64) float64 { return Interpolate(method, radius, x, z, f) },
	}
}
