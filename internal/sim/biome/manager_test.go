package biome

import (
	"math"
	"testing"
)

func testManager() *Manager {
	return NewManager(Config{Seed: 1337}, DefaultCatalog())
}

func TestMixture_WeightsSumToOne(t *testing.T) {
	m := testManager()
	m.EnsureWindow(-2000, 2000)
	for z := -1999.0; z < 2000; z += 13.7 {
		mix := m.Mixture(z)
		if len(mix) < 1 || len(mix) > 2 {
			t.Fatalf("mixture size %d at z=%v", len(mix), z)
		}
		sum := 0.0
		for _, e := range mix {
			if e.Weight < 0 || e.Weight > 1 {
				t.Fatalf("weight %v out of [0,1] at z=%v", e.Weight, z)
			}
			sum += e.Weight
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Fatalf("weights sum to %v at z=%v", sum, z)
		}
	}
}

func TestMixture_PureAtMidpoint(t *testing.T) {
	m := testManager()
	m.EnsureWindow(-500, 3000)
	for _, iv := range m.Intervals() {
		if iv.ZMax-iv.ZMin <= 2*m.cfg.HalfWidth {
			continue
		}
		mid := (iv.ZMin + iv.ZMax) / 2
		mix := m.Mixture(mid)
		if len(mix) != 1 || mix[0].Weight != 1.0 {
			t.Fatalf("midpoint of interval %d: %+v, want single weight 1.0", iv.Index, mix)
		}
	}
}

func TestMixture_FiftyFiftyAtBoundary(t *testing.T) {
	m := testManager()
	m.EnsureWindow(0, 2000)
	ivs := m.Intervals()
	for i := 1; i < len(ivs); i++ {
		mix := m.Mixture(ivs[i].ZMin)
		if len(mix) != 2 {
			t.Fatalf("boundary z=%v: %d entries, want 2", ivs[i].ZMin, len(mix))
		}
		if math.Abs(mix[0].Weight-0.5) > 1e-9 || math.Abs(mix[1].Weight-0.5) > 1e-9 {
			t.Fatalf("boundary weights %v/%v, want 0.5/0.5", mix[0].Weight, mix[1].Weight)
		}
	}
}

func TestMixture_LinearRampBothSides(t *testing.T) {
	m := testManager()
	m.EnsureWindow(0, 2000)
	ivs := m.Intervals()
	boundary := ivs[2].ZMin
	hw := m.cfg.HalfWidth
	for d := 1.0; d < hw; d += 3 {
		want := 0.5 + 0.5*(d/hw)
		// Below the boundary the home biome is ivs[1].
		mix := m.Mixture(boundary - d)
		if math.Abs(mix[0].Weight-want) > 1e-9 {
			t.Fatalf("d=%v below boundary: home weight %v, want %v", d, mix[0].Weight, want)
		}
		if mix[0].Def != ivs[1].Def || mix[1].Def != ivs[2].Def {
			t.Fatalf("d=%v below boundary: wrong biomes in mixture", d)
		}
		// Above it the home biome is ivs[2], same ramp value.
		mix = m.Mixture(boundary + d)
		if math.Abs(mix[0].Weight-want) > 1e-9 {
			t.Fatalf("d=%v above boundary: home weight %v, want %v", d, mix[0].Weight, want)
		}
		if mix[0].Def != ivs[2].Def || mix[1].Def != ivs[1].Def {
			t.Fatalf("d=%v above boundary: wrong biomes in mixture", d)
		}
	}
}

func TestEnsureWindow_Idempotent(t *testing.T) {
	m := testManager()
	m.EnsureWindow(0, 1000)
	before := m.Intervals()
	m.EnsureWindow(100, 900)
	m.EnsureWindow(0, 1000)
	after := m.Intervals()
	if len(before) != len(after) {
		t.Fatalf("re-ensure changed interval count: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("interval %d changed on re-ensure", i)
		}
	}
}

func TestEnsureWindow_OrderIndependent(t *testing.T) {
	a := testManager()
	a.EnsureWindow(-1500, 1500)

	b := testManager()
	b.EnsureWindow(0, 100)
	b.EnsureWindow(-700, 100)
	b.EnsureWindow(-700, 1500)
	b.EnsureWindow(-1500, 1500)

	ia, ib := a.Intervals(), b.Intervals()
	if len(ia) != len(ib) {
		t.Fatalf("interval counts differ: %d vs %d", len(ia), len(ib))
	}
	for i := range ia {
		if ia[i] != ib[i] {
			t.Fatalf("interval %d differs: %+v vs %+v", i, ia[i], ib[i])
		}
	}
}

func TestPrune_RoundTripKeepsBoundaries(t *testing.T) {
	m := testManager()
	m.EnsureWindow(0, 3000)

	type bounds struct{ lo, hi float64 }
	probe := map[float64]bounds{}
	for z := 600.0; z < 1400; z += 41 {
		lo, hi := m.Boundaries(z)
		probe[z] = bounds{lo, hi}
	}

	m.EnsureWindow(-2000, 5000)
	m.PruneWindow(500, 1500)
	for z, want := range probe {
		lo, hi := m.Boundaries(z)
		if lo != want.lo || hi != want.hi {
			t.Fatalf("boundaries at z=%v changed after prune: [%v,%v] vs [%v,%v]",
				z, lo, hi, want.lo, want.hi)
		}
	}
}

func TestPrune_DropsOutsideIntervals(t *testing.T) {
	m := testManager()
	m.EnsureWindow(-3000, 3000)
	n := len(m.Intervals())
	m.PruneWindow(0, 500)
	pruned := m.Intervals()
	if len(pruned) >= n {
		t.Fatalf("prune kept all %d intervals", n)
	}
	for _, iv := range pruned {
		if iv.ZMax <= 0 || iv.ZMin >= 500 {
			t.Fatalf("interval %+v survived prune to [0,500)", iv)
		}
	}
}

func TestBoundaries_OutsideWindowPanics(t *testing.T) {
	m := testManager()
	m.EnsureWindow(0, 500)
	defer func() {
		if recover() == nil {
			t.Fatalf("query outside window did not panic")
		}
	}()
	m.Boundaries(10_000)
}

func TestProgress_NormalizedWithinInterval(t *testing.T) {
	m := testManager()
	m.EnsureWindow(0, 1000)
	lo, hi := m.Boundaries(100)
	if p := m.Progress(lo); p != 0 {
		t.Fatalf("progress at zMin = %v, want 0", p)
	}
	mid := (lo + hi) / 2
	if p := m.Progress(mid); math.Abs(p-0.5) > 1e-9 {
		t.Fatalf("progress at midpoint = %v, want 0.5", p)
	}
}

func TestFogAt_BlendsScalarProperties(t *testing.T) {
	m := testManager()
	m.EnsureWindow(0, 2000)
	ivs := m.Intervals()
	// Find a boundary between biomes with different fog.
	for i := 1; i < len(ivs); i++ {
		a, b := ivs[i-1].Def, ivs[i].Def
		if a.FogDensity == b.FogDensity {
			continue
		}
		got := m.FogAt(ivs[i].ZMin)
		want := 0.5*a.FogDensity + 0.5*b.FogDensity
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("fog at boundary = %v, want %v", got, want)
		}
		return
	}
	t.Skip("no differing-fog boundary in window")
}
