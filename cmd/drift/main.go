// drift drives a world offline: the observer travels downstream at a
// fixed speed for a number of ticks, printing periodic stats and the
// final state digest. Two runs with the same flags must print the same
// digest; use it to check determinism across builds and to profile
// chunk construction without a client.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	"longwater/internal/sim/world"
	"longwater/internal/tuning"
)

func main() {
	var (
		seed       = flag.Int64("seed", 1337, "world seed")
		ticks      = flag.Int("ticks", 3000, "ticks to simulate")
		speed      = flag.Float64("speed", 18, "observer speed (units/sec)")
		startZ     = flag.Float64("start_z", 0, "observer start position")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		every      = flag.Int("report_every", 300, "print stats every N ticks (0 to disable)")
		tracePath  = flag.String("trace", "", "write per-report JSONL.zst trace to this file (optional)")
		snapPath   = flag.String("snapshot", "", "write final resident state as zstd JSON to this file (optional)")
	)
	flag.Parse()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err, "(using defaults)")
		tune = tuning.Defaults()
	}

	w, err := world.New(world.ConfigFromTuning("drift", *seed, tune), nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "world:", err)
		os.Exit(1)
	}

	var trace *traceWriter
	if *tracePath != "" {
		trace, err = newTraceWriter(*tracePath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open trace:", err)
			os.Exit(1)
		}
		defer trace.Close()
	}

	_, digest := w.StepOnce(&world.PoseUpdate{
		Z: *startZ, HasZ: true,
		Speed: *speed, HasSpeed: true,
	})
	for i := 1; i < *ticks; i++ {
		_, digest = w.StepOnce(nil)
		if *every > 0 && (i+1)%*every == 0 {
			s := w.Stats()
			fmt.Printf("tick=%d z=%.1f active=%d loading=%d built=%d evicted=%d failed=%d placements=%d segments=%d\n",
				s.Tick, s.ObserverZ, len(s.Active), len(s.Loading),
				s.Stream.ChunksBuilt, s.Stream.ChunksEvicted, s.Stream.ChunksFailed,
				s.Stream.PlacementsLive, s.Segments)
			if trace != nil {
				if err := trace.Write(s); err != nil {
					fmt.Fprintln(os.Stderr, "trace:", err)
				}
			}
		}
	}

	s := w.Stats()
	fmt.Printf("done: ticks=%d z=%.1f built=%d evicted=%d failed=%d steps=%d entities_removed=%d\n",
		s.Tick, s.ObserverZ, s.Stream.ChunksBuilt, s.Stream.ChunksEvicted,
		s.Stream.ChunksFailed, s.Stream.BuildSteps, s.Stream.EntitiesRemoved)
	fmt.Printf("digest=%s\n", digest)

	if *snapPath != "" {
		if err := writeSnapshot(*snapPath, w, digest); err != nil {
			fmt.Fprintln(os.Stderr, "write snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot=%s\n", *snapPath)
	}
}

// residentSnapshot is the exported shape of everything currently
// streamed in: enough to diff two runs chunk by chunk.
type residentSnapshot struct {
	Tick      uint64          `json:"tick"`
	ObserverZ float64         `json:"observer_z"`
	Digest    string          `json:"digest"`
	Entities  int             `json:"entities"`
	Segments  int             `json:"segments"`
	Chunks    []residentChunk `json:"chunks"`
}

type residentChunk struct {
	Index      int      `json:"index"`
	ZMin       float64  `json:"z_min"`
	ZMax       float64  `json:"z_max"`
	Biomes     []string `json:"biomes"`
	Placements int      `json:"placements"`
	Spawned    int      `json:"spawned"`
	Digest     string   `json:"digest"`
}

func writeSnapshot(path string, w *world.World, digest string) error {
	s := w.Stats()
	snap := residentSnapshot{
		Tick:      s.Tick,
		ObserverZ: s.ObserverZ,
		Digest:    digest,
		Entities:  s.Entities,
		Segments:  s.Segments,
	}
	mgr := w.Manager()
	for _, idx := range mgr.ActiveIndices() {
		c, ok := mgr.ChunkAt(idx)
		if !ok {
			continue
		}
		biomes := make([]string, len(c.Biomes))
		for i, id := range c.Biomes {
			biomes[i] = string(id)
		}
		snap.Chunks = append(snap.Chunks, residentChunk{
			Index:      c.Index,
			ZMin:       c.ZMin,
			ZMax:       c.ZMax,
			Biomes:     biomes,
			Placements: len(c.Placements),
			Spawned:    c.Spawned,
			Digest:     c.Digest,
		})
	}

	tw, err := newTraceWriter(path)
	if err != nil {
		return err
	}
	if err := tw.Write(snap); err != nil {
		_ = tw.Close()
		return err
	}
	return tw.Close()
}

type traceWriter struct {
	f   *os.File
	enc *zstd.Encoder
}

func newTraceWriter(path string) (*traceWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &traceWriter{f: f, enc: enc}, nil
}

func (t *traceWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := t.enc.Write(b); err != nil {
		return err
	}
	_, err = t.enc.Write([]byte{'\n'})
	return err
}

func (t *traceWriter) Close() error {
	err := t.enc.Close()
	if cerr := t.f.Close(); err == nil {
		err = cerr
	}
	return err
}
