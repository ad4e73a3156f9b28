package indexdb

import (
	"path/filepath"
	"testing"

	"longwater/internal/sim/world"
)

// Close drains the writer queue and commits, so tests write, close, and
// reopen the same file to query deterministically.
func TestIndexRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	events := []world.EventLogEntry{
		{Tick: 1, Kind: "chunk_active", Index: 0, ZMin: 0, ZMax: 64,
			Biomes: []string{"meadow"}, Placements: 12, Spawned: 2,
			BuildMillis: 1.5, BuildSteps: 7, Digest: "d0"},
		{Tick: 2, Kind: "chunk_active", Index: 1, ZMin: 64, ZMax: 128,
			Biomes: []string{"meadow", "pine_forest"}, Placements: 20, Spawned: 1,
			BuildMillis: 2.5, BuildSteps: 8, Digest: "d1"},
		{Tick: 5, Kind: "chunk_evicted", Index: 0, Placements: 12},
		{Tick: 6, Kind: "chunk_failed", Index: -3, Err: "load mesh/pine: timeout"},
		{Tick: 6, Kind: "corridor", WindowStart: -280, Segments: 120},
	}
	for _, e := range events {
		if err := idx.WriteEvent(e); err != nil {
			t.Fatalf("write event: %v", err)
		}
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	idx, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()

	sum, err := idx.Summarize()
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Builds != 2 || sum.Evictions != 1 || sum.Failures != 1 {
		t.Fatalf("summary = %+v, want 2 builds / 1 eviction / 1 failure", sum)
	}
	if sum.Placements != 32 {
		t.Fatalf("placements = %d, want 32", sum.Placements)
	}
	if sum.AvgBuildMs != 2.0 {
		t.Fatalf("avg build ms = %v, want 2.0", sum.AvgBuildMs)
	}

	builds, err := idx.RecentBuilds(10)
	if err != nil {
		t.Fatalf("recent builds: %v", err)
	}
	if len(builds) != 2 {
		t.Fatalf("got %d builds, want 2", len(builds))
	}
	if builds[0].ChunkIndex != 1 || builds[0].Tick != 2 {
		t.Fatalf("newest build = %+v, want chunk 1 at tick 2", builds[0])
	}
	if len(builds[0].Biomes) != 2 || builds[0].Biomes[1] != "pine_forest" {
		t.Fatalf("biomes = %v, want [meadow pine_forest]", builds[0].Biomes)
	}

	fails, err := idx.FailuresFor(-3)
	if err != nil {
		t.Fatalf("failures: %v", err)
	}
	if len(fails) != 1 || fails[0] != "load mesh/pine: timeout" {
		t.Fatalf("failures = %v", fails)
	}
}

func TestWriteAfterCloseIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := idx.WriteEvent(world.EventLogEntry{Tick: 1, Kind: "chunk_active"}); err != nil {
		t.Fatalf("write after close: %v", err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := OpenSQLite(""); err == nil {
		t.Fatal("empty path must error")
	}
}
