// Package world owns the single simulation goroutine: observer pose,
// tick loop, the streaming manager and its collaborators, viewer fanout,
// and the per-tick state digest.
//
// All state in this package must be accessed only from the world loop
// goroutine (Run or StepOnce); channels are the only way in.
package world

import (
	"fmt"
	"log"
	"sync/atomic"

	"longwater/internal/sim/assets"
	"longwater/internal/sim/biome"
	"longwater/internal/sim/collide"
	"longwater/internal/sim/entity"
	"longwater/internal/sim/stream"
	"longwater/internal/sim/terrain"
	"longwater/internal/tuning"
)

type Config struct {
	ID         string
	Seed       int64
	TickRateHz int

	Terrain  terrain.Config
	Biome    biome.Config
	Stream   stream.Config
	Corridor collide.Config

	AssetLatencyTicks int
	// ObserverSpeed is the default downstream drift in units/sec; viewers
	// may override it per WATCH message.
	ObserverSpeed float64
}

// ConfigFromTuning maps the tuning file onto a world config.
func ConfigFromTuning(id string, seed int64, t tuning.Tuning) Config {
	return Config{
		ID:         id,
		Seed:       seed,
		TickRateHz: t.TickRateHz,
		Terrain: terrain.Config{
			Seed:         seed,
			Amplitude:    t.Terrain.Amplitude,
			NoiseScale:   t.Terrain.NoiseScale,
			Octaves:      t.Terrain.Octaves,
			ValleyRise:   t.Terrain.ValleyRise,
			ValleyMax:    t.Terrain.ValleyMax,
			ChannelDepth: t.Terrain.ChannelDepth,
			River: terrain.RiverConfig{
				BaseWidth:    t.River.BaseWidth,
				WidthVar:     t.River.WidthVar,
				MeanderAmp:   t.River.MeanderAmp,
				MeanderScale: t.River.MeanderScale,
				WidthScale:   t.River.WidthScale,
			},
		},
		Biome: biome.Config{
			Seed:      seed,
			HalfWidth: t.Biome.HalfWidth,
			MinSpan:   t.Biome.MinSpan,
			MaxSpan:   t.Biome.MaxSpan,
		},
		Stream: stream.Config{
			Seed:           seed,
			ChunkSize:      t.ChunkSize,
			Back:           t.Window.Back,
			Forward:        t.Window.Forward,
			MaxLoading:     t.Window.MaxLoading,
			Budget:         t.Window.Budget(),
			CleanupMargin:  t.Window.CleanupMargin,
			HalfWidth:      t.Terrain.HalfWidth,
			BlendHalfWidth: t.Biome.HalfWidth,
			Decor:          t.Decor.Config(),
			DecorGridCell:  t.Decor.GridCell,
		},
		Corridor: collide.Config{
			Radius:     t.Collision.Radius,
			Step:       t.Collision.Step,
			UpdateStep: t.Collision.UpdateStep,
		},
		AssetLatencyTicks: t.Assets.LatencyTicks,
		ObserverSpeed:     t.ObserverSpeed,
	}
}

// EventLogEntry is one persisted stream event (JSONL row).
type EventLogEntry struct {
	Tick        uint64   `json:"tick"`
	Kind        string   `json:"kind"`
	Index       int      `json:"index,omitempty"`
	ZMin        float64  `json:"z_min,omitempty"`
	ZMax        float64  `json:"z_max,omitempty"`
	Biomes      []string `json:"biomes,omitempty"`
	Placements  int      `json:"placements,omitempty"`
	Spawned     int      `json:"spawned,omitempty"`
	BuildMillis float64  `json:"build_ms,omitempty"`
	BuildSteps  int      `json:"build_steps,omitempty"`
	Digest      string   `json:"digest,omitempty"`
	Err         string   `json:"err,omitempty"`
	WindowStart float64  `json:"window_start,omitempty"`
	Segments    int      `json:"segments,omitempty"`
}

// EventSink receives persisted stream events; a nil sink is skipped.
type EventSink interface {
	WriteEvent(EventLogEntry) error
}

type World struct {
	cfg Config
	log *log.Logger

	tick atomic.Uint64

	terrain  *terrain.Terrain
	biomes   *biome.Manager
	entities *entity.Registry
	loader   *assets.MemoryLoader
	gfx      *stream.TrackingGraphics
	phys     *collide.TrackingWorld
	corridor *collide.Corridor
	mgr      *stream.Manager

	observerZ float64
	observerV float64

	pose        chan PoseUpdate
	viewerJoin  chan viewerJoinReq
	viewerLeave chan string
	statsReq    chan chan Snapshot
	stop        chan struct{}

	viewers map[string]*viewer

	eventSink EventSink
}

// PoseUpdate moves the observer and/or changes its drift speed.
type PoseUpdate struct {
	Z        float64
	Speed    float64
	HasZ     bool
	HasSpeed bool
}

type viewer struct {
	id  string
	out chan []byte
}

type viewerJoinReq struct {
	ID  string
	Out chan []byte
}

func New(cfg Config, logger *log.Logger) (*World, error) {
	if cfg.TickRateHz <= 0 {
		return nil, fmt.Errorf("tick rate must be positive, got %d", cfg.TickRateHz)
	}
	w := &World{
		cfg:         cfg,
		log:         logger,
		terrain:     terrain.New(cfg.Terrain),
		biomes:      biome.NewManager(cfg.Biome, biome.DefaultCatalog()),
		entities:    entity.NewRegistry(),
		loader:      assets.NewMemoryLoader(cfg.AssetLatencyTicks),
		gfx:         stream.NewTrackingGraphics(),
		phys:        collide.NewTrackingWorld(),
		observerV:   cfg.ObserverSpeed,
		pose:        make(chan PoseUpdate, 16),
		viewerJoin:  make(chan viewerJoinReq, 4),
		viewerLeave: make(chan string, 4),
		statsReq:    make(chan chan Snapshot),
		stop:        make(chan struct{}),
		viewers:     map[string]*viewer{},
	}
	// Valley relief follows the blended biome amplitude. The streaming
	// manager guarantees biome coverage before any terrain sampling.
	w.terrain.AmplitudeAt = w.biomes.AmplitudeAt
	w.corridor = collide.NewCorridor(w.phys, w.terrain.River(), cfg.Corridor, logger)
	w.mgr = stream.NewManager(cfg.Stream, stream.Deps{
		Terrain:  w.terrain,
		Biomes:   w.biomes,
		Graphics: w.gfx,
		Corridor: w.corridor,
		Entities: w.entities,
		Assets:   w.loader,
		Log:      logger,
	})
	return w, nil
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int     { return w.cfg.TickRateHz }
func (w *World) Seed() int64         { return w.cfg.Seed }
func (w *World) ChunkSize() float64  { return w.cfg.Stream.ChunkSize }
func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// SetEventSink wires persistence; call before Run.
func (w *World) SetEventSink(s EventSink) { w.eventSink = s }

// Pose is the transport-facing observer input channel.
func (w *World) Pose() chan<- PoseUpdate { return w.pose }

// AttachViewer registers a viewer output channel under id. Safe to call
// from transport goroutines while Run is live.
func (w *World) AttachViewer(id string, out chan []byte) {
	w.viewerJoin <- viewerJoinReq{ID: id, Out: out}
}

// DetachViewer removes a viewer registered with AttachViewer.
func (w *World) DetachViewer(id string) {
	w.viewerLeave <- id
}
