package worldtest

import (
	"math"
	"testing"

	"longwater/internal/sim/world"
)

func TestWindowInvariantAfterSettle(t *testing.T) {
	h := NewHarness(t, nil)
	h.Settle(0, 60)

	mgr := h.W.Manager()
	lo, hi := mgr.Window(h.W.ObserverZ())
	active := mgr.ActiveIndices()
	want := hi - lo + 1
	if len(active) < want {
		t.Fatalf("active = %v, want at least %d chunks covering [%d, %d]", active, want, lo, hi)
	}
	for idx := lo; idx <= hi; idx++ {
		if _, ok := mgr.ChunkAt(idx); !ok {
			t.Fatalf("window index %d not active (active %v)", idx, active)
		}
	}
}

// Adjacent active chunks share exact boundaries so spans tile the axis
// without gaps or overlap.
func TestActiveChunksTileWithoutOverlap(t *testing.T) {
	h := NewHarness(t, nil)
	h.Settle(300, 60)

	mgr := h.W.Manager()
	idxs := mgr.ActiveIndices()
	if len(idxs) < 2 {
		t.Fatalf("need several active chunks, got %v", idxs)
	}
	for i := 0; i+1 < len(idxs); i++ {
		if idxs[i+1] != idxs[i]+1 {
			continue
		}
		a, _ := mgr.ChunkAt(idxs[i])
		b, _ := mgr.ChunkAt(idxs[i+1])
		if a.ZMax != b.ZMin {
			t.Fatalf("adjacent chunks %d/%d do not share a boundary: %v vs %v",
				idxs[i], idxs[i+1], a.ZMax, b.ZMin)
		}
	}
}

func TestTraversalEvictsBehind(t *testing.T) {
	h := NewHarness(t, nil)
	h.Settle(0, 60)
	h.Settle(2000, 120)

	mgr := h.W.Manager()
	lo, _ := mgr.Window(h.W.ObserverZ())
	for _, idx := range mgr.ActiveIndices() {
		if idx < lo-1 {
			t.Fatalf("chunk %d still active behind window start %d", idx, lo)
		}
	}
	if got := mgr.Stats().ChunksEvicted; got == 0 {
		t.Fatal("long traversal must evict chunks")
	}
}

func TestStatsAccounting(t *testing.T) {
	h := NewHarness(t, nil)
	h.Settle(0, 60)
	h.Settle(1500, 120)

	s := h.W.Stats()
	if s.Stream.ChunksBuilt == 0 {
		t.Fatal("no chunks built")
	}
	if s.Stream.PlacementsTotal == 0 {
		t.Fatal("no placements generated; catalog rules should fire in every biome")
	}
	if s.Stream.PlacementsLive > s.Stream.PlacementsTotal {
		t.Fatalf("live placements %d exceed total %d", s.Stream.PlacementsLive, s.Stream.PlacementsTotal)
	}
	if s.Segments == 0 {
		t.Fatal("corridor has no segments after settling")
	}
	if s.Tick == 0 {
		t.Fatal("tick did not advance")
	}
}

// Placements stay inside their chunk's span and carry a meaningful
// fitness.
func TestPlacementsWithinChunkSpans(t *testing.T) {
	h := NewHarness(t, nil)
	h.Settle(0, 60)

	mgr := h.W.Manager()
	checked := 0
	for _, idx := range mgr.ActiveIndices() {
		c, _ := mgr.ChunkAt(idx)
		for _, p := range c.Placements {
			if p.Z < c.ZMin || p.Z >= c.ZMax {
				t.Fatalf("placement %s at z=%v outside chunk span [%v, %v)", p.Species, p.Z, c.ZMin, c.ZMax)
			}
			if p.Fitness <= 0 || p.Fitness > 1 {
				t.Fatalf("placement fitness %v outside (0, 1]", p.Fitness)
			}
			checked++
		}
	}
	if checked == 0 {
		t.Fatal("no placements to check")
	}
}

func TestObserverDriftMovesWindow(t *testing.T) {
	h := NewHarness(t, func(cfg *world.Config) {
		cfg.ObserverSpeed = 64 * 30 // one chunk per tick at 30 Hz
	})
	h.W.StepOnce(&world.PoseUpdate{Z: 0, HasZ: true})

	startZ := h.W.ObserverZ()
	h.Step(10)
	if moved := h.W.ObserverZ() - startZ; math.Abs(moved-640) > 1 {
		t.Fatalf("observer moved %v, want ~640", moved)
	}
}

func TestAssetLatencyStillConverges(t *testing.T) {
	h := NewHarness(t, func(cfg *world.Config) {
		cfg.AssetLatencyTicks = 3
	})
	h.Settle(0, 120)

	if got := h.W.Stats().Stream.ChunksFailed; got != 0 {
		t.Fatalf("no failures expected with healthy loader, got %d", got)
	}
}

func TestAssetFailurePropagatesToStats(t *testing.T) {
	h := NewHarness(t, func(cfg *world.Config) {
		cfg.AssetLatencyTicks = 2
	})
	// Poison every catalog mesh so any chunk referencing assets fails.
	for _, id := range []string{
		"mesh/oak", "mesh/flower_patch", "mesh/grass_tuft",
		"mesh/pine", "mesh/fir", "mesh/fern", "mesh/rock_small",
		"mesh/birch", "mesh/shrub",
		"mesh/boulder", "mesh/scrub",
		"mesh/willow", "mesh/reed", "mesh/lily",
	} {
		h.W.Loader().FailWith(id, "storage offline")
	}

	h.MoveObserver(0)
	h.Step(60)
	if got := h.W.Stats().Stream.ChunksFailed; got == 0 {
		t.Fatal("poisoned assets must fail chunk builds")
	}
}
