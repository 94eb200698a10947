// Package stream implements lazy, composable functions of world coordinate.
//
// Every stream carries a Node describing how it was built (combinator kind
// and upstream nodes), so a generator's evaluation graph is an explicit DAG
// that can be inspected; evaluation itself runs through closures specialised
// per value type.
package stream

import (
	"fmt"
	"math"

	"terragen.ai/internal/gen/mathx"
	"terragen.ai/internal/gen/noise"
)

type Kind uint8

const (
	KindSource Kind = iota
	KindConst
	KindNoise
	KindConvert
	KindConvertAware
	KindConvertCached
	KindSelect
	KindZoom
	KindOffset
	KindCache
	KindInterpolate
	KindAdd
	KindMax
	KindRound
	KindSlope
	KindChunkCoords
)

var kindNames = [...]string{
	"source", "const", "noise", "convert", "convert-aware", "convert-cached",
	"select", "zoom", "offset", "cache", "interpolate", "add", "max", "round",
	"slope", "chunk-coords",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Node is one vertex of the evaluation graph.
type Node struct {
	Name   string
	Kind   Kind
	Detail string
	Inputs []*Node
}

func newNode(kind Kind, detail string, inputs ...*Node) *Node {
	return &Node{Kind: kind, Detail: detail, Inputs: inputs}
}

// Stream maps a coordinate to a value of type T. It is immutable once built;
// caches attached to it only memoize.
type Stream[T any] struct {
	node *Node
	get2 func(x, z float64) T
	get3 func(x, y, z float64) T
}

func (s Stream[T]) Get(x, z float64) T {
	return s.get2(x, z)
}

// Get3 samples a volumetric stream; 2D streams ignore y.
func (s Stream[T]) Get3(x, y, z float64) T {
	if s.get3 == nil {
		return s.get2(x, z)
	}
	return s.get3(x, y, z)
}

func (s Stream[T]) GetInt(x, z int) T {
	return s.get2(float64(x), float64(z))
}

func (s Stream[T]) Node() *Node { return s.node }

func (s Stream[T]) Valid() bool { return s.get2 != nil }

// Named labels the stream's node for graph dumps and diagnostics.
func (s Stream[T]) Named(name string) Stream[T] {
	n := *s.node
	n.Name = name
	s.node = &n
	return s
}

func Of2[T any](name string, f func(x, z float64) T) Stream[T] {
	n := newNode(KindSource, "")
	n.Name = name
	return Stream[T]{node: n, get2: f}
}

func Of3[T any](name string, f func(x, y, z float64) T) Stream[T] {
	n := newNode(KindSource, "3d")
	n.Name = name
	return Stream[T]{
		node: n,
		get2: func(x, z float64) T { return f(x, 0, z) },
		get3: f,
	}
}

func Const[T any](v T) Stream[T] {
	return Stream[T]{
		node: newNode(KindConst, fmt.Sprint(v)),
		get2: func(float64, float64) T { return v },
		get3: func(float64, float64, float64) T { return v },
	}
}

func FromNoise(src noise.Source) Stream[float64] {
	return Stream[float64]{
		node: newNode(KindNoise, src.Signature().String()),
		get2: src.At,
		get3: src.At3,
	}
}

func Convert[T, U any](s Stream[T], f func(T) U) Stream[U] {
	return Stream[U]{
		node: newNode(KindConvert, "", s.node),
		get2: func(x, z float64) U { return f(s.Get(x, z)) },
		get3: func(x, y, z float64) U { return f(s.Get3(x, y, z)) },
	}
}

// ConvertAware passes the upstream value together with the coordinate.
func ConvertAware[T, U any](s Stream[T], f func(v T, x, z float64) U) Stream[U] {
	return Stream[U]{
		node: newNode(KindConvertAware, "2d", s.node),
		get2: func(x, z float64) U { return f(s.Get(x, z), x, z) },
		get3: func(x, _, z float64) U { return f(s.Get(x, z), x, z) },
	}
}

func ConvertAware3[T, U any](s Stream[T], f func(v T, x, y, z float64) U) Stream[U] {
	return Stream[U]{
		node: newNode(KindConvertAware, "3d", s.node),
		get2: func(x, z float64) U { return f(s.Get3(x, 0, z), x, 0, z) },
		get3: func(x, y, z float64) U { return f(s.Get3(x, y, z), x, y, z) },
	}
}

// ConvertCached memoizes f per distinct upstream value. f must be pure.
func ConvertCached[T comparable, U any](s Stream[T], f func(T) U) Stream[U] {
	m := newMemo[T, U]()
	conv := func(v T) U { return m.get(v, f) }
	return Stream[U]{
		node: newNode(KindConvertCached, "", s.node),
		get2: func(x, z float64) U { return conv(s.Get(x, z)) },
		get3: func(x, y, z float64) U { return conv(s.Get3(x, y, z)) },
	}
}

// Zoom divides the queried coordinate by f before delegating, so features
// grow f times larger.
func (s Stream[T]) Zoom(f float64) Stream[T] {
	if f <= 0 || f == 1 {
		return s
	}
	return Stream[T]{
		node: newNode(KindZoom, fmt.Sprintf("x%g", f), s.node),
		get2: func(x, z float64) T { return s.Get(x/f, z/f) },
		get3: func(x, y, z float64) T { return s.Get3(x/f, y/f, z/f) },
	}
}

func (s Stream[T]) Offset(dx, dz float64) Stream[T] {
	return Stream[T]{
		node: newNode(KindOffset, fmt.Sprintf("%g,%g", dx, dz), s.node),
		get2: func(x, z float64) T { return s.Get(x+dx, z+dz) },
		get3: func(x, y, z float64) T { return s.Get3(x+dx, y, z+dz) },
	}
}

// BlockToChunk samples the upstream at the chunk coordinate containing the
// queried block.
func (s Stream[T]) BlockToChunk() Stream[T] {
	return Stream[T]{
		node: newNode(KindChunkCoords, "", s.node),
		get2: func(x, z float64) T {
			return s.GetInt(mathx.BlockToChunk(mathx.Floor(x)), mathx.BlockToChunk(mathx.Floor(z)))
		},
	}
}

// Cache2D memoizes integral coordinates in tiles of tileSize blocks.
// Non-integral queries bypass the cache.
func (s Stream[T]) Cache2D(tileSize int) Stream[T] {
	c := newTileCache[T](tileSize)
	return Stream[T]{
		node: newNode(KindCache, fmt.Sprintf("tile=%d", c.tileSize()), s.node),
		get2: func(x, z float64) T {
			ix, iz := math.Floor(x), math.Floor(z)
			if ix != x || iz != z {
				return s.Get(x, z)
			}
			return c.get(int(ix), int(iz), func() T { return s.Get(x, z) })
		},
		get3: s.get3,
	}
}

func Add(a, b Stream[float64]) Stream[float64] {
	return Stream[float64]{
		node: newNode(KindAdd, "", a.node, b.node),
		get2: func(x, z float64) float64 { return a.Get(x, z) + b.Get(x, z) },
		get3: func(x, y, z float64) float64 { return a.Get3(x, y, z) + b.Get3(x, y, z) },
	}
}

// Sum adds all parts; an empty sum is the constant 0.
func Sum(parts ...Stream[float64]) Stream[float64] {
	out := Const(0.0)
	for _, p := range parts {
		out = Add(out, p)
	}
	return out
}

func Max(s Stream[float64], floor float64) Stream[float64] {
	return Stream[float64]{
		node: newNode(KindMax, fmt.Sprint(floor), s.node),
		get2: func(x, z float64) float64 { return math.Max(s.Get(x, z), floor) },
	}
}

func Round(s Stream[float64]) Stream[float64] {
	return Stream[float64]{
		node: newNode(KindRound, "", s.node),
		get2: func(x, z float64) float64 { return math.Round(s.Get(x, z)) },
	}
}

// Slope is the central-difference gradient magnitude over the four
// neighbours at distance r.
func Slope(s Stream[float64], r float64) Stream[float64] {
	if r <= 0 {
		r = 1
	}
	return Stream[float64]{
		node: newNode(KindSlope, fmt.Sprintf("r=%g", r), s.node),
		get2: func(x, z float64) float64 {
			dx := (s.Get(x+r, z) - s.Get(x-r, z)) / (2 * r)
			dz := (s.Get(x, z+r) - s.Get(x, z-r)) / (2 * r)
			return math.Hypot(dx, dz)
		},
	}
}

// TryGet evaluates s, turning a panic raised anywhere upstream into an error.
func TryGet[T any](s Stream[T], x, z float64) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sample (%g,%g): %v", x, z, r)
		}
	}()
	return s.Get(x, z), nil
}
