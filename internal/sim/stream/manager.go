// Package stream owns the set of active and loading chunks: it advances
// the desired window from the observer position, drives resumable chunk
// construction under a per-frame time budget, and prunes dependent state
// when chunks are evicted.
package stream

import (
	"log"
	"math"
	"sort"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"longwater/internal/sim/assets"
	"longwater/internal/sim/biome"
	"longwater/internal/sim/collide"
	"longwater/internal/sim/decor"
	"longwater/internal/sim/entity"
	"longwater/internal/sim/geo"
	"longwater/internal/sim/terrain"
)

type Config struct {
	Seed      int64
	ChunkSize float64

	// Window extent in chunks behind/ahead of the observer.
	Back, Forward int
	// MaxLoading caps concurrent in-flight constructions.
	MaxLoading int
	// Budget bounds chunk-construction work per Update call.
	Budget time.Duration
	// CleanupMargin widens the outer orphan-entity sweeps.
	CleanupMargin float64

	// HalfWidth is the world's x extent per side.
	HalfWidth float64
	// BlendHalfWidth mirrors the biome transition half-width; it pads the
	// ensured biome window so chunk-edge mixtures are always covered.
	BlendHalfWidth float64

	// FixedWindow pins the window to the observer's home-biome span
	// instead of following the observer (editor mode: no churn while
	// stationary).
	FixedWindow bool

	Decor         decor.Config
	DecorGridCell float64
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 64
	}
	if c.Back <= 0 {
		c.Back = 2
	}
	if c.Forward <= 0 {
		c.Forward = 4
	}
	if c.MaxLoading <= 0 {
		c.MaxLoading = 3
	}
	if c.Budget <= 0 {
		c.Budget = 4 * time.Millisecond
	}
	if c.CleanupMargin <= 0 {
		c.CleanupMargin = 128
	}
	if c.HalfWidth <= 0 {
		c.HalfWidth = 160
	}
	if c.BlendHalfWidth <= 0 {
		c.BlendHalfWidth = 25
	}
	if c.DecorGridCell <= 0 {
		c.DecorGridCell = 8
	}
	return c
}

// Deps are the collaborators the manager mutates through. All calls
// happen on the world loop; none of these are shared across goroutines.
type Deps struct {
	Terrain  *terrain.Terrain
	Biomes   *biome.Manager
	Graphics Graphics
	Corridor *collide.Corridor
	Entities *entity.Registry
	Assets   assets.Loader
	Log      *log.Logger
}

type Stats struct {
	ChunksBuilt     int
	ChunksEvicted   int
	ChunksFailed    int
	BuildSteps      int
	PlacementsLive  int
	PlacementsTotal int
	EntitiesRemoved int
	CleanupSweeps   int
}

type EventKind string

const (
	EventChunkActive  EventKind = "chunk_active"
	EventChunkEvicted EventKind = "chunk_evicted"
	EventChunkFailed  EventKind = "chunk_failed"
	EventCorridor     EventKind = "corridor"
)

// Event is one streamed lifecycle notification, drained per tick by the
// world and fanned out to viewers/persistence.
type Event struct {
	Kind EventKind

	Index      int
	ZMin, ZMax float64
	Biomes     []biome.ID
	Placements int
	Spawned    int

	BuildMillis float64
	BuildSteps  int
	Digest      string
	Err         string

	WindowStart float64
	Segments    int
}

type Manager struct {
	cfg  Config
	deps Deps

	active  map[int]*Chunk
	loading map[int]*builder

	grid     *decor.Grid
	samplers decor.Samplers

	events []Event
	stats  Stats

	lastCorridorStart float64
	haveCorridor      bool
}

func NewManager(cfg Config, deps Deps) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		cfg:     cfg,
		deps:    deps,
		active:  map[int]*Chunk{},
		loading: map[int]*builder{},
		grid:    decor.NewGrid(cfg.DecorGridCell),
	}
	noise := opensimplex.NewNormalized(cfg.Seed + 7)
	m.samplers = decor.Samplers{
		Terrain:  deps.Terrain,
		Progress: deps.Biomes.Progress,
		Noise:    noise.Eval2,
	}
	return m
}

// Update advances the window for this frame: ensure biome coverage,
// start/continue construction under the time budget, evict chunks that
// left the window, and refresh the collision corridor. Side effects only.
func (m *Manager) Update(observerZ float64, dt time.Duration) {
	_ = dt // reserved for future time-of-day coupling; budget is wall-clock

	lo, hi := m.desiredWindow(observerZ)

	// Biome coverage must precede any chunk construction so builders can
	// query mixtures anywhere in their padded span.
	size := m.cfg.ChunkSize
	pad := m.cfg.BlendHalfWidth + 8
	m.deps.Biomes.EnsureWindow(float64(lo)*size-pad, float64(hi+1)*size+pad)

	cur := geo.ChunkIndex(observerZ, size)
	m.startBuilds(cur, lo, hi)
	m.generate(m.cfg.Budget)

	if evicted := m.evict(lo, hi); evicted > 0 {
		m.cleanupOrphans()
		m.pruneBiomes()
	}

	m.deps.Corridor.Update(observerZ)
	if start, ok := m.deps.Corridor.WindowStart(); ok {
		if !m.haveCorridor || start != m.lastCorridorStart {
			m.haveCorridor = true
			m.lastCorridorStart = start
			m.events = append(m.events, Event{
				Kind:        EventCorridor,
				WindowStart: start,
				Segments:    m.deps.Corridor.SegmentCount(),
			})
		}
	}
}

func (m *Manager) desiredWindow(observerZ float64) (lo, hi int) {
	size := m.cfg.ChunkSize
	cur := geo.ChunkIndex(observerZ, size)
	if !m.cfg.FixedWindow {
		return cur - m.cfg.Back, cur + m.cfg.Forward
	}
	// Editor mode: the window spans the observer's home biome.
	m.deps.Biomes.EnsureWindow(observerZ-1, observerZ+1)
	bLo, bHi := m.deps.Biomes.Boundaries(observerZ)
	return geo.ChunkIndex(bLo, size), geo.ChunkIndex(bHi-1e-9, size)
}

// startBuilds begins construction for missing window indices, nearest
// to the observer first and expanding outward in both directions
// alternately, capped at MaxLoading concurrent in-flight builds.
func (m *Manager) startBuilds(cur, lo, hi int) {
	inflight := 0
	for _, b := range m.loading {
		if b.state != StateFailed {
			inflight++
		}
	}
	for _, idx := range windowOrder(cur, lo, hi) {
		if inflight >= m.cfg.MaxLoading {
			return
		}
		if _, ok := m.active[idx]; ok {
			continue
		}
		if _, ok := m.loading[idx]; ok {
			continue
		}
		m.loading[idx] = newBuilder(m, idx)
		inflight++
	}
}

// windowOrder yields cur, cur+1, cur-1, cur+2, cur-2, ... clipped to
// [lo, hi].
func windowOrder(cur, lo, hi int) []int {
	out := make([]int, 0, hi-lo+1)
	if cur >= lo && cur <= hi {
		out = append(out, cur)
	}
	for d := 1; ; d++ {
		fwd, back := cur+d, cur-d
		inFwd, inBack := fwd <= hi && fwd >= lo, back >= lo && back <= hi
		if !inFwd && !inBack {
			break
		}
		if inFwd {
			out = append(out, fwd)
		}
		if inBack {
			out = append(out, back)
		}
	}
	return out
}

// generate resumes non-waiting loading entries until the wall-clock
// budget is exhausted or everything is complete. Waiting entries are
// skipped without being charged, so no slow asset stalls the frame and
// no chunk blocks another.
func (m *Manager) generate(budget time.Duration) {
	start := time.Now()
	for {
		progressed := false
		for _, idx := range m.loadingOrder() {
			b, ok := m.loading[idx]
			if !ok || b.state == StateFailed || b.state == StateComplete {
				continue
			}
			if b.state == StateWaitingAsset {
				if !b.wait.Resolved() {
					continue
				}
				if err := b.wait.Err(); err != nil {
					b.fail(m, err)
					m.onFailed(b)
					progressed = true
					continue
				}
				b.wait = nil
			}
			b.stepOnce(m)
			m.stats.BuildSteps++
			progressed = true
			switch b.state {
			case StateComplete:
				m.promote(b)
			case StateFailed:
				m.onFailed(b)
			}
			if time.Since(start) >= budget {
				return
			}
		}
		if !progressed {
			return
		}
	}
}

func (m *Manager) loadingOrder() []int {
	idxs := make([]int, 0, len(m.loading))
	for idx := range m.loading {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	return idxs
}

func (m *Manager) promote(b *builder) {
	c := b.chunk
	delete(m.loading, c.Index)
	m.active[c.Index] = c
	m.stats.ChunksBuilt++
	m.stats.PlacementsTotal += len(c.Placements)
	m.events = append(m.events, Event{
		Kind:        EventChunkActive,
		Index:       c.Index,
		ZMin:        c.ZMin,
		ZMax:        c.ZMax,
		Biomes:      c.Biomes,
		Placements:  len(c.Placements),
		Spawned:     c.Spawned,
		BuildMillis: c.BuildMillis,
		BuildSteps:  c.BuildSteps,
		Digest:      c.Digest,
	})
}

// onFailed records a permanently failed chunk. The record stays resident
// (so the window does not thrash retrying it) until the index leaves the
// window, after which a revisit starts fresh.
func (m *Manager) onFailed(b *builder) {
	m.stats.ChunksFailed++
	m.logf("chunk %d failed: %v", b.chunk.Index, b.err)
	m.events = append(m.events, Event{
		Kind:  EventChunkFailed,
		Index: b.chunk.Index,
		ZMin:  b.chunk.ZMin,
		ZMax:  b.chunk.ZMax,
		Err:   b.err.Error(),
	})
}

// evict destroys active chunks strictly outside window +-1 hysteresis
// and drops failed records that left the window. Loading chunks are
// never cancelled; they finish and are evicted once active.
func (m *Manager) evict(lo, hi int) int {
	evictions := 0
	for idx, c := range m.active {
		if idx >= lo-1 && idx <= hi+1 {
			continue
		}
		m.destroyChunk(c)
		delete(m.active, idx)
		evictions++
	}
	for idx, b := range m.loading {
		if b.state == StateFailed && (idx < lo-1 || idx > hi+1) {
			delete(m.loading, idx)
		}
	}
	return evictions
}

func (m *Manager) destroyChunk(c *Chunk) {
	g := m.deps.Graphics
	for _, h := range []Handle{c.Ground, c.Water, c.DecorBatch} {
		if h == nil {
			continue
		}
		g.RemoveFromScene(h)
		g.Dispose(h)
	}
	m.grid.RemoveInRange(c.ZMin, c.ZMax)
	m.stats.ChunksEvicted++
	m.events = append(m.events, Event{
		Kind:       EventChunkEvicted,
		Index:      c.Index,
		ZMin:       c.ZMin,
		ZMax:       c.ZMax,
		Placements: len(c.Placements),
	})
}

// cleanupOrphans issues batched range deletions for entities in z ranges
// no resident chunk claims: beyond the window ends (plus margin) and
// inside any gap between non-contiguous resident indices. Runs only on
// frames with at least one eviction.
func (m *Manager) cleanupOrphans() {
	idxs := m.residentIndices()
	if len(idxs) == 0 {
		return
	}
	size := m.cfg.ChunkSize
	margin := m.cfg.CleanupMargin
	removed := 0
	removed += m.deps.Entities.RemoveInRange(math.Inf(-1), float64(idxs[0])*size-margin)
	removed += m.deps.Entities.RemoveInRange(float64(idxs[len(idxs)-1]+1)*size+margin, math.Inf(1))
	for i := 0; i+1 < len(idxs); i++ {
		if idxs[i+1] > idxs[i]+1 {
			removed += m.deps.Entities.RemoveInRange(float64(idxs[i]+1)*size, float64(idxs[i+1])*size)
		}
	}
	m.stats.EntitiesRemoved += removed
	m.stats.CleanupSweeps++
}

func (m *Manager) pruneBiomes() {
	idxs := m.residentIndices()
	if len(idxs) == 0 {
		return
	}
	size := m.cfg.ChunkSize
	pad := m.cfg.BlendHalfWidth + 8
	m.deps.Biomes.PruneWindow(float64(idxs[0])*size-pad, float64(idxs[len(idxs)-1]+1)*size+pad)
}

// residentIndices is the sorted union of Active and Loading indices.
func (m *Manager) residentIndices() []int {
	idxs := make([]int, 0, len(m.active)+len(m.loading))
	for idx := range m.active {
		idxs = append(idxs, idx)
	}
	for idx := range m.loading {
		if _, dup := m.active[idx]; !dup {
			idxs = append(idxs, idx)
		}
	}
	sort.Ints(idxs)
	return idxs
}

func (m *Manager) logf(format string, args ...any) {
	if m.deps.Log != nil {
		m.deps.Log.Printf(format, args...)
	}
}

// TakeEvents drains this frame's lifecycle events.
func (m *Manager) TakeEvents() []Event {
	ev := m.events
	m.events = nil
	return ev
}

func (m *Manager) Stats() Stats {
	s := m.stats
	s.PlacementsLive = m.grid.Len()
	return s
}

func (m *Manager) ActiveIndices() []int {
	idxs := make([]int, 0, len(m.active))
	for idx := range m.active {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	return idxs
}

func (m *Manager) LoadingIndices() []int {
	idxs := make([]int, 0, len(m.loading))
	for idx := range m.loading {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	return idxs
}

// LoadingState reports the build state for a loading index.
func (m *Manager) LoadingState(idx int) (BuildState, bool) {
	b, ok := m.loading[idx]
	if !ok {
		return 0, false
	}
	return b.state, true
}

func (m *Manager) ChunkAt(idx int) (*Chunk, bool) {
	c, ok := m.active[idx]
	return c, ok
}

func (m *Manager) ChunkSize() float64 { return m.cfg.ChunkSize }

// Window reports the desired index window for an observer position.
func (m *Manager) Window(observerZ float64) (lo, hi int) {
	return m.desiredWindow(observerZ)
}
