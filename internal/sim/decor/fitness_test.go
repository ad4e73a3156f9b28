package decor

import (
	"math"
	"testing"
)

func TestAll_ProductAndVeto(t *testing.T) {
	f := All(Constant(0.5), Constant(0.4))
	if got := f(&Env{}); math.Abs(got-0.2) > 1e-12 {
		t.Fatalf("All product = %v, want 0.2", got)
	}
	f = All(Constant(0.5), Constant(0), Constant(0.9))
	if got := f(&Env{}); got != 0 {
		t.Fatalf("All with zero term = %v, want 0", got)
	}
}

func TestAny_Max(t *testing.T) {
	f := Any(Constant(0.2), Constant(0.7), Constant(0.1))
	if got := f(&Env{}); got != 0.7 {
		t.Fatalf("Any = %v, want 0.7", got)
	}
}

func TestEaseIn_LinearRamp(t *testing.T) {
	f := EaseIn(Elevation, 10, 20)
	cases := []struct{ h, want float64 }{
		{5, 0}, {10, 0}, {15, 0.5}, {20, 1}, {30, 1},
	}
	for _, c := range cases {
		if got := f(&Env{Height: c.h}); math.Abs(got-c.want) > 1e-12 {
			t.Fatalf("EaseIn(h=%v) = %v, want %v", c.h, got, c.want)
		}
	}
}

func TestEaseOut_MirrorsEaseIn(t *testing.T) {
	in := EaseIn(Slope, 0.2, 0.6)
	out := EaseOut(Slope, 0.2, 0.6)
	for s := 0.0; s <= 1.0; s += 0.1 {
		e := &Env{Slope: s}
		if got := in(e) + out(e); math.Abs(got-1) > 1e-12 {
			t.Fatalf("EaseIn+EaseOut at slope %v = %v, want 1", s, got)
		}
	}
}

func TestEaseIn_ReversedRange(t *testing.T) {
	// from > to gives the descending ramp.
	f := EaseIn(RiverDist, 50, 10)
	if got := f(&Env{RiverDistance: 50}); got != 0 {
		t.Fatalf("at from: %v, want 0", got)
	}
	if got := f(&Env{RiverDistance: 10}); got != 1 {
		t.Fatalf("at to: %v, want 1", got)
	}
	if got := f(&Env{RiverDistance: 30}); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("midpoint: %v, want 0.5", got)
	}
}

func TestInRange_HalfOpen(t *testing.T) {
	f := InRange(Progress, 0.25, 0.75)
	if f(&Env{Progress: 0.25}) != 1 {
		t.Fatalf("lo bound should be inside")
	}
	if f(&Env{Progress: 0.75}) != 0 {
		t.Fatalf("hi bound should be outside")
	}
	if f(&Env{Progress: 0.1}) != 0 || f(&Env{Progress: 0.9}) != 0 {
		t.Fatalf("outside values should be 0")
	}
}

func TestStep_Threshold(t *testing.T) {
	f := Step(Slope, 0.5, 1, 0)
	if f(&Env{Slope: 0.4}) != 1 || f(&Env{Slope: 0.5}) != 0 {
		t.Fatalf("step threshold misbehaves")
	}
}

func TestNoise_RemapClamps(t *testing.T) {
	e := &Env{noise: func(x, z float64) float64 { return 0.5 }}
	if got := Noise(0.01, 0, 1)(e); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("identity remap = %v", got)
	}
	// Widened range sharpens to plateaus; must clamp.
	if got := Noise(0.01, -1, 3)(e); got != 1 {
		t.Fatalf("sharpened remap = %v, want clamp to 1", got)
	}
	lowE := &Env{noise: func(x, z float64) float64 { return 0.1 }}
	if got := Noise(0.01, -1, 3)(lowE); math.Abs(got-0) > 1e-12 {
		t.Fatalf("low sample = %v, want clamp to 0", got)
	}
}

func TestNoise_NilFieldDefaults(t *testing.T) {
	// Envs built outside a run have no noise field; NoiseAt must not panic.
	if got := (&Env{}).NoiseAt(0.01); got != 0.5 {
		t.Fatalf("NoiseAt without field = %v, want 0.5", got)
	}
}
