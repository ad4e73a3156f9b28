package worldtest

import (
	"testing"
	"time"

	"longwater/internal/sim/world"
)

// Two worlds with the same seed fed the same pose script must report
// identical state digests tick for tick.
func TestDeterminism_SamePoseScript(t *testing.T) {
	script := []world.PoseUpdate{
		{Z: 0, HasZ: true},
		{Speed: 40, HasSpeed: true},
		{},
		{},
		{Z: 500, HasZ: true},
		{},
		{Speed: 0, HasSpeed: true},
		{},
		{Z: -200, HasZ: true},
		{},
	}

	run := func() []string {
		// A budget far above real build cost keeps completion ticks
		// deterministic: every started build finishes the same tick.
		h := NewHarness(t, func(cfg *world.Config) {
			cfg.Stream.Budget = time.Second
		})
		var digests []string
		for i := range script {
			_, d := h.W.StepOnce(&script[i])
			// Let each pose settle a few ticks so builds land on
			// deterministic tick boundaries under the generous budget.
			for j := 0; j < 5; j++ {
				_, d = h.W.StepOnce(nil)
			}
			digests = append(digests, d)
		}
		return digests
	}

	a := run()
	b := run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("digest diverged at script step %d:\n  %s\n  %s", i, a[i], b[i])
		}
	}
}

func TestDeterminism_DifferentSeedsDiverge(t *testing.T) {
	digestAt := func(seed int64) string {
		h := NewHarness(t, func(cfg *world.Config) {
			cfg.Seed = seed
			cfg.Terrain.Seed = seed
			cfg.Biome.Seed = seed
			cfg.Stream.Seed = seed
		})
		h.Settle(0, 50)
		return h.Digest()
	}
	if digestAt(1337) == digestAt(7331) {
		t.Fatal("different seeds must not produce identical worlds")
	}
}
