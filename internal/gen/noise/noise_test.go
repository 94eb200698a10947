package noise

import (
	"sync"
	"testing"
)

var allKinds = []Kind{KindWhite, KindSimplex, KindPerlin, KindCellular, KindFlat}

func TestSampleDeterministicAcrossProviders(t *testing.T) {
	a, b := NewProvider(), NewProvider()
	for _, k := range allKinds {
		sig := Signature{Kind: k, Zoom: 40}
		for i := 0; i < 200; i++ {
			x := float64(i)*3.7 - 300
			z := float64(i)*-5.3 + 120
			if a.Sample2(12345, sig, x, z) != b.Sample2(12345, sig, x, z) {
				t.Fatalf("%s: Sample2 not deterministic at (%f,%f)", k, x, z)
			}
			if a.Sample3(12345, sig, x, 4, z) != b.Sample3(12345, sig, x, 4, z) {
				t.Fatalf("%s: Sample3 not deterministic at (%f,%f)", k, x, z)
			}
		}
	}
}

func TestSampleRange(t *testing.T) {
	p := NewProvider()
	blends := []Blend{BlendNone, BlendFractal, BlendRidged, BlendBillow}
	for _, k := range allKinds {
		for _, bl := range blends {
			sig := Signature{Kind: k, Blend: bl, Octaves: 4, Zoom: 25}
			for i := 0; i < 2000; i++ {
				x := float64(i)*0.37*25 - 500
				z := float64(i)*0.53*25 - 500
				v := p.Sample2(42, sig, x, z)
				if v < 0 || v >= 1 {
					t.Fatalf("%s/%s: %f out of [0,1)", k, bl, v)
				}
			}
		}
	}
}

func TestSeedChangesOutput(t *testing.T) {
	p := NewProvider()
	sig := Signature{Kind: KindWhite}
	diff := 0
	for i := 0; i < 100; i++ {
		if p.Sample2(1, sig, float64(i), 0) != p.Sample2(2, sig, float64(i), 0) {
			diff++
		}
	}
	if diff < 90 {
		t.Fatalf("seed barely affects white noise: %d/100 differ", diff)
	}
}

func TestConcurrentSampling(t *testing.T) {
	p := NewProvider()
	sig := Signature{Kind: KindSimplex, Blend: BlendFractal, Octaves: 3, Zoom: 50}
	want := p.Sample2(9, sig, 17, 33)
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if got := p.Sample2(9, sig, 17, 33); got != want {
					t.Errorf("concurrent sample mismatch: %f != %f", got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestKindTextRoundTrip(t *testing.T) {
	for _, k := range allKinds {
		var got Kind
		if err := got.UnmarshalText([]byte(k.String())); err != nil || got != k {
			t.Fatalf("kind %s: got %s err=%v", k, got, err)
		}
	}
	var k Kind
	if err := k.UnmarshalText([]byte("voronoi-ish")); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestSourceFit(t *testing.T) {
	s := Bind(Constant{V: 0.5}, 1, Signature{})
	if got := s.Fit(0, 9, 0, 0); got != 5 {
		t.Fatalf("Fit(0,9) at 0.5 = %d, want 5", got)
	}
	s = Bind(Constant{V: 0.999999}, 1, Signature{})
	if got := s.Fit(2, 4, 0, 0); got != 4 {
		t.Fatalf("Fit upper bound = %d", got)
	}
	if got := s.Fit(3, 3, 0, 0); got != 3 {
		t.Fatalf("degenerate Fit = %d", got)
	}
}
