// Package worldtest drives a world through its exported APIs only:
// StepOnce for ticks, PoseUpdate for observer movement, and the
// manager/stats accessors for assertions. Tests here are the black-box
// integration suite; unit tests live next to their packages.
package worldtest

import (
	"testing"
	"time"

	"longwater/internal/sim/world"
)

type Harness struct {
	T *testing.T
	W *world.World
}

func NewHarness(t *testing.T, mutate func(*world.Config)) *Harness {
	t.Helper()

	cfg := world.Config{
		ID:         "test-valley",
		Seed:       1337,
		TickRateHz: 30,
	}
	cfg.Terrain.Seed = cfg.Seed
	cfg.Terrain.Amplitude = 9
	cfg.Terrain.NoiseScale = 0.013
	cfg.Terrain.Octaves = 4
	cfg.Terrain.ValleyRise = 0.35
	cfg.Terrain.ValleyMax = 42
	cfg.Terrain.ChannelDepth = 6
	cfg.Terrain.River.BaseWidth = 30
	cfg.Terrain.River.WidthVar = 6
	cfg.Terrain.River.MeanderAmp = 40

	cfg.Biome.Seed = cfg.Seed
	cfg.Biome.MinSpan = 150
	cfg.Biome.MaxSpan = 260

	cfg.Stream.Seed = cfg.Seed
	cfg.Stream.ChunkSize = 64
	cfg.Stream.Back = 2
	cfg.Stream.Forward = 4
	cfg.Stream.MaxLoading = 3
	// Generous test budget so a settle pass converges in few frames.
	cfg.Stream.Budget = 50 * time.Millisecond
	cfg.Stream.HalfWidth = 120

	cfg.Corridor.Radius = 150
	cfg.Corridor.Step = 5
	cfg.Corridor.UpdateStep = 40

	cfg.ObserverSpeed = 0

	if mutate != nil {
		mutate(&cfg)
	}

	w, err := world.New(cfg, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return &Harness{T: t, W: w}
}

// Step runs n ticks with no pose input.
func (h *Harness) Step(n int) {
	h.T.Helper()
	for i := 0; i < n; i++ {
		h.W.StepOnce(nil)
	}
}

// MoveObserver teleports the observer and runs one tick.
func (h *Harness) MoveObserver(z float64) {
	h.T.Helper()
	h.W.StepOnce(&world.PoseUpdate{Z: z, HasZ: true})
}

// Settle moves the observer and ticks until nothing is loading and the
// desired window is fully active, failing after maxTicks.
func (h *Harness) Settle(z float64, maxTicks int) {
	h.T.Helper()
	h.MoveObserver(z)
	for i := 0; i < maxTicks; i++ {
		h.W.StepOnce(nil)
		mgr := h.W.Manager()
		if len(mgr.LoadingIndices()) != 0 {
			continue
		}
		lo, hi := mgr.Window(h.W.ObserverZ())
		done := true
		for idx := lo; idx <= hi; idx++ {
			if _, ok := mgr.ChunkAt(idx); !ok {
				done = false
				break
			}
		}
		if done {
			return
		}
	}
	h.T.Fatalf("window did not settle at z=%v within %d ticks (active %v, loading %v)",
		z, maxTicks, h.W.Manager().ActiveIndices(), h.W.Manager().LoadingIndices())
}

// Digest advances one tick and reports the resulting state digest.
func (h *Harness) Digest() string {
	h.T.Helper()
	_, d := h.W.StepOnce(nil)
	return d
}
