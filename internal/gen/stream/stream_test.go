package stream

import (
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"terragen.ai/internal/gen/noise"
)

func TestConvertPreservesCoordinate(t *testing.T) {
	base := Of2("xz", func(x, z float64) float64 { return x*1000 + z })
	doubled := Convert(base, func(v float64) float64 { return v * 2 })
	if got := doubled.Get(3, 4); got != 6008 {
		t.Fatalf("Convert got %v", got)
	}
}

func TestConvertAwareSeesCoordinate(t *testing.T) {
	base := Const(10.0)
	aware := ConvertAware(base, func(v, x, z float64) float64 {
		if x < 0 {
			return -v
		}
		return v + z
	})
	if aware.Get(-1, 5) != -10 || aware.Get(1, 5) != 15 {
		t.Fatalf("ConvertAware branches wrong: %v %v", aware.Get(-1, 5), aware.Get(1, 5))
	}
}

func TestZoomScalesCoordinate(t *testing.T) {
	var gotX, gotZ float64
	base := Of2("coord", func(x, z float64) float64 { gotX, gotZ = x, z; return 0 })
	base.Zoom(4).Get(8, -12)
	if gotX != 2 || gotZ != -3 {
		t.Fatalf("Zoom(4) delegated (%v,%v)", gotX, gotZ)
	}
	if base.Zoom(1).Node() != base.Node() {
		t.Fatalf("Zoom(1) should be identity")
	}
}

func TestSelectWeightFidelity(t *testing.T) {
	cands := []string{"a", "b", "c"}
	sel, err := NewSelector(cands, []float64{1, 2, 7})
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	counts := map[string]int{}
	const n = 100000
	for i := 0; i < n; i++ {
		counts[sel.Pick((float64(i)+0.5)/n)]++
	}
	want := map[string]float64{"a": 0.1, "b": 0.2, "c": 0.7}
	for k, w := range want {
		got := float64(counts[k]) / n
		if math.Abs(got-w) > 0.005 {
			t.Fatalf("candidate %s frequency %.4f, want %.2f", k, got, w)
		}
	}
}

func TestSelectRarityWeightFidelityOverNoise(t *testing.T) {
	src := FromNoise(noise.Bind(noise.NewProvider(), 42, noise.Signature{Kind: noise.KindWhite}))
	s, err := SelectRarity(src, []string{"common", "rare"}, []int{1, 4})
	if err != nil {
		t.Fatalf("SelectRarity: %v", err)
	}
	counts := map[string]int{}
	for x := 0; x < 200; x++ {
		for z := 0; z < 200; z++ {
			counts[s.GetInt(x, z)]++
		}
	}
	frac := float64(counts["rare"]) / 40000
	if math.Abs(frac-0.2) > 0.02 {
		t.Fatalf("rare frequency %.3f, want ~0.2", frac)
	}
}

func TestSelectTiesFollowDeclarationOrder(t *testing.T) {
	sel, err := NewSelector([]string{"first", "second"}, []float64{1, 1})
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	if got := sel.Pick(0.4999); got != "first" {
		t.Fatalf("Pick below boundary = %s", got)
	}
	if got := sel.Pick(0.5); got != "second" {
		t.Fatalf("Pick at boundary = %s", got)
	}
	if got := sel.Pick(0); got != "first" {
		t.Fatalf("Pick(0) = %s", got)
	}
}

func TestSelectRejectsBadInput(t *testing.T) {
	if _, err := NewSelector[string](nil, nil); err == nil {
		t.Fatalf("expected error for empty candidates")
	}
	if _, err := RarityWeights([]int{1, 0}); err == nil {
		t.Fatalf("expected error for zero rarity")
	}
	if _, err := NewSelector([]int{1}, []float64{-1}); err == nil {
		t.Fatalf("expected error for negative weight")
	}
}

func TestCache2DMemoizesWithoutChangingOutput(t *testing.T) {
	var calls atomic.Int64
	base := Of2("counted", func(x, z float64) float64 {
		calls.Add(1)
		return x*31 + z
	})
	cached := base.Cache2D(16)
	for i := 0; i < 3; i++ {
		for x := -20; x < 20; x++ {
			if got := cached.GetInt(x, 7); got != float64(x*31+7) {
				t.Fatalf("cached value wrong at %d: %v", x, got)
			}
		}
	}
	if calls.Load() != 40 {
		t.Fatalf("expected 40 evaluations, got %d", calls.Load())
	}
	// fractional coordinates bypass the cache but stay correct
	if got := cached.Get(0.5, 0); got != 15.5 {
		t.Fatalf("fractional sample = %v", got)
	}
}

func TestCache2DConcurrentReaders(t *testing.T) {
	src := FromNoise(noise.Bind(noise.NewProvider(), 7, noise.Signature{Kind: noise.KindSimplex, Zoom: 30}))
	cached := src.Cache2D(32)
	want := make([]float64, 64*64)
	for i := range want {
		want[i] = src.GetInt(i%64, i/64)
	}
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := range want {
				j := (i + g*97) % len(want)
				if got := cached.GetInt(j%64, j/64); got != want[j] {
					t.Errorf("cell %d: %v != %v", j, got, want[j])
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestConvertCachedCallsOncePerValue(t *testing.T) {
	var calls atomic.Int64
	base := Of2("parity", func(x, _ float64) int { return int(x) % 2 })
	conv := ConvertCached(base, func(v int) string {
		calls.Add(1)
		if v == 0 {
			return "even"
		}
		return "odd"
	})
	for x := 0; x < 100; x++ {
		conv.GetInt(x, 0)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 conversions, got %d", calls.Load())
	}
}

func TestInterpolationExactAtLattice(t *testing.T) {
	f := func(x, z float64) float64 { return math.Sin(x*0.1) + z*0.01 }
	for _, m := range []Interpolation{InterpBilinear, InterpNearest, InterpHermite, InterpBicubic} {
		for _, p := range [][2]float64{{0, 0}, {8, 16}, {-24, 40}} {
			if got := Interpolate(m, 8, p[0], p[1], f); got != f(p[0], p[1]) {
				t.Fatalf("%s at lattice %v: %v != %v", m, p, got, f(p[0], p[1]))
			}
		}
	}
}

func TestBilinearConstantIsExact(t *testing.T) {
	got := Interpolate(InterpBilinear, 4, 1.3, 2.9, func(float64, float64) float64 { return 10 })
	if got != 10 {
		t.Fatalf("bilinear of constant = %v", got)
	}
	mid := Interpolate(InterpBilinear, 2, 1, 0, func(x, _ float64) float64 { return x })
	if mid != 1 {
		t.Fatalf("bilinear midpoint = %v", mid)
	}
}

func TestSlopeOfPlane(t *testing.T) {
	plane := Of2("plane", func(x, z float64) float64 { return 3*x + 4*z })
	if got := Slope(plane, 1).Get(10, 10); math.Abs(got-5) > 1e-9 {
		t.Fatalf("slope of 3x+4z = %v, want 5", got)
	}
}

func TestTryGetRecoversPanic(t *testing.T) {
	bad := Of2("bad", func(float64, float64) int { panic("boom") })
	if _, err := TryGet(Convert(bad, func(v int) int { return v }), 1, 2); err == nil {
		t.Fatalf("expected error from panicking upstream")
	}
	v, err := TryGet(Const(3), 0, 0)
	if err != nil || v != 3 {
		t.Fatalf("TryGet const: %v %v", v, err)
	}
}

func TestGraphListsSharedNodesOnce(t *testing.T) {
	h := Of2("height", func(x, z float64) float64 { return x })
	sum := Add(h, Convert(h, func(v float64) float64 { return -v })).Named("sum")
	g := Graph(sum.Node())
	if !strings.Contains(g, "sum <add>") || strings.Count(g, "height <source>") != 1 || !strings.Contains(g, "^") {
		t.Fatalf("unexpected graph:\n%s", g)
	}
	if Depth(sum.Node()) != 3 {
		t.Fatalf("depth = %d", Depth(sum.Node()))
	}
}

func TestBlockToChunk(t *testing.T) {
	s := Of2("chunk", func(x, z float64) [2]float64 { return [2]float64{x, z} }).BlockToChunk()
	if got := s.Get(-1, 33); got != [2]float64{-1, 2} {
		t.Fatalf("BlockToChunk = %v", got)
	}
}
