package uf

import (
	"math"
	"testing"
)

func TestDeriveNetRemoval(t *testing.T) {
	fill, ufMl := Derive(2000, 200, 2300)
	if fill != 1800 {
		t.Fatalf("fill = %v, want 1800", fill)
	}
	if ufMl != 500 {
		t.Fatalf("uf = %v, want +500", ufMl)
	}
}

func TestDeriveNetRetention(t *testing.T) {
	fill, ufMl := Derive(2000, 0, 1800)
	if fill != 2000 {
		t.Fatalf("fill = %v, want 2000", fill)
	}
	if ufMl != -200 {
		t.Fatalf("uf = %v, want -200", ufMl)
	}
}

func TestDeriveIdentityHoldsExactly(t *testing.T) {
	cases := []struct {
		bag, leftover, drain float64
	}{
		{2000, 0, 2000},
		{2000, 200, 2300},
		{2500, 150, 2400},
		{1500, 1500, 0},
		{2000, 37.5, 2110.25},
	}
	for _, c := range cases {
		fill, ufMl := Derive(c.bag, c.leftover, c.drain)
		if fill+ufMl != c.drain {
			t.Fatalf("fill(%v) + uf(%v) != drain(%v) for %+v", fill, ufMl, c.drain, c)
		}
	}
}

func TestDeriveNoClamping(t *testing.T) {
	// Leftover exceeding the bag is invalid input; Derive still computes.
	fill, ufMl := Derive(2000, 2500, 1000)
	if fill != -500 {
		t.Fatalf("fill = %v, want -500", fill)
	}
	if ufMl != 1500 {
		t.Fatalf("uf = %v, want 1500", ufMl)
	}
}

func TestDerivePropagatesNaN(t *testing.T) {
	fill, ufMl := Derive(math.NaN(), 0, 2000)
	if !math.IsNaN(fill) || !math.IsNaN(ufMl) {
		t.Fatalf("expected NaN outputs, got fill=%v uf=%v", fill, ufMl)
	}
	if Known(ufMl) {
		t.Fatalf("NaN must not count as a known quantity")
	}
	if !Known(0) {
		t.Fatalf("zero is a known quantity")
	}
}
