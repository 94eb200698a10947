package rng

import "testing"

func TestAtDeterministic(t *testing.T) {
	a := At(42, 10, -3, SaltJigsaw)
	b := At(42, 10, -3, SaltJigsaw)
	for i := 0; i < 64; i++ {
		if a.Uint64() != b.Uint64() {
			t.Fatalf("draw %d differs", i)
		}
	}
}

func TestAtSeparatesCoordinatesAndSalts(t *testing.T) {
	base := At(42, 0, 0, SaltJigsaw)
	if base.State() == At(42, 1, 0, SaltJigsaw).State() {
		t.Fatalf("x does not affect state")
	}
	if base.State() == At(42, 0, 0, SaltRegion).State() {
		t.Fatalf("salt does not affect state")
	}
	if base.State() == At(43, 0, 0, SaltJigsaw).State() {
		t.Fatalf("seed does not affect state")
	}
}

func TestIntBounds(t *testing.T) {
	r := New(7)
	seen := make([]int, 15)
	for i := 0; i < 15000; i++ {
		v := r.Int(15)
		if v < 0 || v >= 15 {
			t.Fatalf("Int(15)=%d out of range", v)
		}
		seen[v]++
	}
	for i, c := range seen {
		if c == 0 {
			t.Fatalf("value %d never drawn", i)
		}
	}
	if r.Int(1) != 0 {
		t.Fatalf("Int(1) must be 0")
	}
}

func TestFloat64Range(t *testing.T) {
	r := New(99)
	for i := 0; i < 10000; i++ {
		f := r.Float64()
		if f < 0 || f >= 1 {
			t.Fatalf("Float64=%f out of [0,1)", f)
		}
	}
}

func TestParallelDoesNotAdvanceParent(t *testing.T) {
	r := New(5)
	before := r.State()
	c := r.Parallel(1)
	if r.State() != before {
		t.Fatalf("parent advanced")
	}
	if c.State() == r.Parallel(2).State() {
		t.Fatalf("children with different salts collide")
	}
}

func TestCopyForksSequence(t *testing.T) {
	r := New(11)
	cp := r
	if r.Uint64() != cp.Uint64() {
		t.Fatalf("copy did not fork identical sequence")
	}
}
