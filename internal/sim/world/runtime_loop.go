package world

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"math"
	"time"

	"longwater/internal/protocol"
	"longwater/internal/sim/assets"
	"longwater/internal/sim/stream"
)

// Run drives the tick loop until ctx is cancelled or Stop is called.
// It is the only goroutine allowed to touch world state.
func (w *World) Run(ctx context.Context) {
	interval := time.Second / time.Duration(w.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logf("[world %s] loop started, %d Hz, seed %d", w.cfg.ID, w.cfg.TickRateHz, w.cfg.Seed)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			w.logf("[world %s] loop stopped: %v", w.cfg.ID, ctx.Err())
			return
		case <-w.stop:
			w.logf("[world %s] loop stopped", w.cfg.ID)
			return
		case p := <-w.pose:
			w.applyPose(p)
		case req := <-w.viewerJoin:
			w.handleViewerJoin(req)
		case id := <-w.viewerLeave:
			w.handleViewerLeave(id)
		case reply := <-w.statsReq:
			reply <- w.Stats()
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			w.stepInternal(dt)
		}
	}
}

// Stop ends a running loop. Idempotent is not required; call once.
func (w *World) Stop() { close(w.stop) }

// StepOnce advances exactly one tick at the nominal rate, applying pose
// first if non-nil. For tests and the offline driver; never call while
// Run is live.
func (w *World) StepOnce(pose *PoseUpdate) (tick uint64, digest string) {
	if pose != nil {
		w.applyPose(*pose)
	}
	w.stepInternal(time.Second / time.Duration(w.cfg.TickRateHz))
	return w.tick.Load(), w.stateDigest()
}

func (w *World) applyPose(p PoseUpdate) {
	if p.HasZ {
		w.observerZ = p.Z
	}
	if p.HasSpeed {
		w.observerV = p.Speed
	}
}

func (w *World) stepInternal(dt time.Duration) {
	// Drain any queued pose updates so a burst applies before this tick.
	for {
		select {
		case p := <-w.pose:
			w.applyPose(p)
			continue
		default:
		}
		break
	}

	w.observerZ += w.observerV * dt.Seconds()
	w.loader.Tick()
	w.mgr.Update(w.observerZ, dt)

	tick := w.tick.Add(1)

	for _, ev := range w.mgr.TakeEvents() {
		w.persistEvent(tick, ev)
		if msg := encodeEvent(tick, ev); msg != nil {
			w.broadcast(msg)
		}
	}

	w.broadcast(mustJSON(protocol.Tick{
		Type:      protocol.TypeTick,
		Tick:      tick,
		ObserverZ: w.observerZ,
		Speed:     w.observerV,
		Active:    w.mgr.ActiveIndices(),
		Loading:   w.mgr.LoadingIndices(),
	}))
}

func (w *World) persistEvent(tick uint64, ev stream.Event) {
	if w.eventSink == nil {
		return
	}
	biomes := make([]string, len(ev.Biomes))
	for i, id := range ev.Biomes {
		biomes[i] = string(id)
	}
	err := w.eventSink.WriteEvent(EventLogEntry{
		Tick:        tick,
		Kind:        string(ev.Kind),
		Index:       ev.Index,
		ZMin:        ev.ZMin,
		ZMax:        ev.ZMax,
		Biomes:      biomes,
		Placements:  ev.Placements,
		Spawned:     ev.Spawned,
		BuildMillis: ev.BuildMillis,
		BuildSteps:  ev.BuildSteps,
		Digest:      ev.Digest,
		Err:         ev.Err,
		WindowStart: ev.WindowStart,
		Segments:    ev.Segments,
	})
	if err != nil {
		w.logf("[world %s] event sink: %v", w.cfg.ID, err)
	}
}

func encodeEvent(tick uint64, ev stream.Event) []byte {
	switch ev.Kind {
	case stream.EventChunkActive:
		biomes := make([]string, len(ev.Biomes))
		for i, id := range ev.Biomes {
			biomes[i] = string(id)
		}
		return mustJSON(protocol.Chunk{
			Type:       protocol.TypeChunk,
			Tick:       tick,
			Index:      ev.Index,
			ZMin:       ev.ZMin,
			ZMax:       ev.ZMax,
			Biomes:     biomes,
			Placements: ev.Placements,
			Spawned:    ev.Spawned,
			Digest:     ev.Digest,
		})
	case stream.EventChunkEvicted:
		return mustJSON(protocol.Evict{
			Type:  protocol.TypeEvict,
			Tick:  tick,
			Index: ev.Index,
		})
	case stream.EventChunkFailed:
		return mustJSON(protocol.Evict{
			Type:   protocol.TypeEvict,
			Tick:   tick,
			Index:  ev.Index,
			Failed: true,
			Err:    ev.Err,
		})
	case stream.EventCorridor:
		return mustJSON(protocol.Corridor{
			Type:        protocol.TypeCorridor,
			Tick:        tick,
			WindowStart: ev.WindowStart,
			Segments:    ev.Segments,
		})
	}
	return nil
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// All protocol structs are marshalable; this means a programming error.
		panic(err)
	}
	return b
}

func (w *World) handleViewerJoin(req viewerJoinReq) {
	w.viewers[req.ID] = &viewer{id: req.ID, out: req.Out}
	w.logf("[world %s] viewer %s joined (%d total)", w.cfg.ID, req.ID, len(w.viewers))

	// Catch the newcomer up on everything already resident.
	tick := w.tick.Load()
	for _, idx := range w.mgr.ActiveIndices() {
		c, ok := w.mgr.ChunkAt(idx)
		if !ok {
			continue
		}
		biomes := make([]string, len(c.Biomes))
		for i, id := range c.Biomes {
			biomes[i] = string(id)
		}
		sendLatest(req.Out, mustJSON(protocol.Chunk{
			Type:       protocol.TypeChunk,
			Tick:       tick,
			Index:      c.Index,
			ZMin:       c.ZMin,
			ZMax:       c.ZMax,
			Biomes:     biomes,
			Placements: len(c.Placements),
			Spawned:    c.Spawned,
			Digest:     c.Digest,
		}))
	}
	if start, ok := w.corridor.WindowStart(); ok {
		sendLatest(req.Out, mustJSON(protocol.Corridor{
			Type:        protocol.TypeCorridor,
			Tick:        tick,
			WindowStart: start,
			Segments:    w.corridor.SegmentCount(),
		}))
	}
}

func (w *World) handleViewerLeave(id string) {
	if v, ok := w.viewers[id]; ok {
		delete(w.viewers, id)
		close(v.out)
		w.logf("[world %s] viewer %s left (%d total)", w.cfg.ID, id, len(w.viewers))
	}
}

func (w *World) broadcast(msg []byte) {
	for _, v := range w.viewers {
		sendLatest(v.out, msg)
	}
}

// sendLatest never blocks the world loop: when a viewer's channel is
// full, the oldest queued message is dropped to make room.
func sendLatest(out chan []byte, msg []byte) {
	select {
	case out <- msg:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- msg:
	default:
	}
}

// stateDigest folds the externally visible simulation state into a hash.
// Two worlds fed the same pose script must report identical digests.
func (w *World) stateDigest() string {
	h := sha256.New()
	var tmp [8]byte
	putU := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}
	putF := func(v float64) { putU(math.Float64bits(v)) }

	putU(w.tick.Load())
	putF(w.observerZ)

	for _, idx := range w.mgr.ActiveIndices() {
		c, _ := w.mgr.ChunkAt(idx)
		putU(uint64(int64(idx)))
		h.Write([]byte(c.Digest))
	}

	for _, e := range w.entities.All() {
		h.Write([]byte(e.ID))
		h.Write([]byte(e.Kind))
		putF(e.X)
		putF(e.Y)
		putF(e.Z)
	}

	for _, k := range w.corridor.Keys() {
		putU(uint64(int64(k)))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Snapshot is the /debug/stats payload.
type Snapshot struct {
	ID        string       `json:"id"`
	Tick      uint64       `json:"tick"`
	ObserverZ float64      `json:"observer_z"`
	Speed     float64      `json:"speed"`
	Viewers   int          `json:"viewers"`
	Active    []int        `json:"active"`
	Loading   []int        `json:"loading"`
	Segments  int          `json:"segments"`
	Assets    int          `json:"assets_ready"`
	Entities  int          `json:"entities"`
	Stream    stream.Stats `json:"stream"`
}

// Stats must only be called from the world goroutine (or while the loop
// is not running).
func (w *World) Stats() Snapshot {
	return Snapshot{
		ID:        w.cfg.ID,
		Tick:      w.tick.Load(),
		ObserverZ: w.observerZ,
		Speed:     w.observerV,
		Viewers:   len(w.viewers),
		Active:    w.mgr.ActiveIndices(),
		Loading:   w.mgr.LoadingIndices(),
		Segments:  w.corridor.SegmentCount(),
		Assets:    w.loader.ReadyCount(),
		Entities:  w.entities.Len(),
		Stream:    w.mgr.Stats(),
	}
}

// ObserverZ reports the current observer position; world goroutine only.
func (w *World) ObserverZ() float64 { return w.observerZ }

// Manager exposes the streaming manager for harness assertions; world
// goroutine only.
func (w *World) Manager() *stream.Manager { return w.mgr }

// Loader exposes the asset loader for harness fault injection; world
// goroutine only.
func (w *World) Loader() *assets.MemoryLoader { return w.loader }

// SnapshotAsync requests stats from a running loop. Blocks until the
// loop services the request or ctx expires.
func (w *World) SnapshotAsync(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case w.statsReq <- reply:
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (w *World) logf(format string, args ...any) {
	if w.log != nil {
		w.log.Printf(format, args...)
	}
}
