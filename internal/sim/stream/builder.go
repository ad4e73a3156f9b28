package stream

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"longwater/internal/sim/assets"
	"longwater/internal/sim/biome"
	"longwater/internal/sim/decor"
	"longwater/internal/sim/geo"
)

// BuildState is the chunk construction state machine:
// Requested -> Stepping -> (WaitingAsset)* -> Complete | Failed.
type BuildState int

const (
	StateRequested BuildState = iota
	StateStepping
	StateWaitingAsset
	StateComplete
	StateFailed
)

func (s BuildState) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StateStepping:
		return "stepping"
	case StateWaitingAsset:
		return "waiting_asset"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Chunk is one streamed unit of world along the traversal axis. The
// manager exclusively owns Active/Loading chunks; no other component
// retains references beyond a call.
type Chunk struct {
	Index      int
	ZMin, ZMax float64

	Biomes     []biome.ID
	Placements []*decor.Placement
	Spawned    int

	Ground, Water, DecorBatch Handle

	Digest      string
	BuildMillis float64
	BuildSteps  int
}

// Build phases, resumed one at a time by the budgeted scheduler. Decor
// additionally resumes per rule so a single step stays small.
const (
	phaseSample = iota
	phaseAssets
	phaseDecor
	phaseGeometry
	phaseSpawns
)

type builder struct {
	chunk *Chunk
	state BuildState
	wait  *assets.Pending
	err   error

	started  time.Time
	workedMS float64

	phase      int
	seed       int64
	contrib    []biome.Interval
	assetQueue []string
	assetIdx   int
	rules      []decor.Rule
	ruleIdx    int

	ground GroundMeshSpec
	water  WaterMeshSpec
}

func newBuilder(m *Manager, index int) *builder {
	size := m.cfg.ChunkSize
	c := &Chunk{
		Index: index,
		ZMin:  float64(index) * size,
		ZMax:  float64(index+1) * size,
	}
	b := &builder{
		chunk:   c,
		state:   StateRequested,
		started: time.Now(),
		seed:    int64(geo.Hash2(m.cfg.Seed, index, 0)),
	}

	// Contributing intervals: everything whose blend can reach into the
	// chunk span. The manager padded the biome window, so this never
	// queries outside coverage.
	pad := m.cfg.BlendHalfWidth
	for _, iv := range m.deps.Biomes.Intervals() {
		if iv.ZMax <= c.ZMin-pad || iv.ZMin >= c.ZMax+pad {
			continue
		}
		b.contrib = append(b.contrib, iv)
	}

	seenDef := map[*biome.Def]bool{}
	for _, iv := range b.contrib {
		if seenDef[iv.Def] {
			continue
		}
		seenDef[iv.Def] = true
		c.Biomes = append(c.Biomes, iv.Def.ID)
		b.assetQueue = append(b.assetQueue, iv.Def.Assets...)
		// Each biome's rules are gated by its blend weight at the sample
		// z, so a biome fading out through a transition places fewer and
		// fewer of its decorations. Rule names are namespaced per biome
		// to keep the per-rule RNG streams distinct.
		for _, rule := range iv.Def.Decor {
			b.rules = append(b.rules, wrapRuleForBiome(rule, iv.Def, m))
		}
	}
	return b
}

func wrapRuleForBiome(rule decor.Rule, def *biome.Def, m *Manager) decor.Rule {
	wrapped := decor.Rule{
		Name:    string(def.ID) + "/" + rule.Name,
		Members: make([]decor.Species, len(rule.Members)),
	}
	for i, sp := range rule.Members {
		fit := sp.Fit
		sp.Fit = func(e *decor.Env) float64 {
			w := m.deps.Biomes.WeightAt(def, e.Z)
			if w == 0 {
				return 0
			}
			return fit(e) * w
		}
		wrapped.Members[i] = sp
	}
	return wrapped
}

// stepOnce advances construction by one resumable step. It must never
// block: a pending asset load parks the builder in WaitingAsset instead.
func (b *builder) stepOnce(m *Manager) {
	stepStart := time.Now()
	defer func() {
		b.workedMS += float64(time.Since(stepStart).Microseconds()) / 1000.0
		b.chunk.BuildSteps++
	}()

	b.state = StateStepping
	switch b.phase {
	case phaseSample:
		b.sampleGeometry(m)
		b.phase = phaseAssets

	case phaseAssets:
		for b.assetIdx < len(b.assetQueue) {
			ready, pending := m.deps.Assets.EnsureLoaded(b.assetQueue[b.assetIdx])
			if ready {
				b.assetIdx++
				continue
			}
			if pending.Resolved() {
				if err := pending.Err(); err != nil {
					b.fail(m, err)
					return
				}
				b.assetIdx++
				continue
			}
			b.wait = pending
			b.state = StateWaitingAsset
			return
		}
		b.phase = phaseDecor

	case phaseDecor:
		if b.ruleIdx < len(b.rules) {
			region := decor.Region{
				MinX: -m.cfg.HalfWidth,
				MaxX: m.cfg.HalfWidth,
				MinZ: b.chunk.ZMin,
				MaxZ: b.chunk.ZMax,
			}
			placed := decor.Generate(
				b.rules[b.ruleIdx:b.ruleIdx+1], region, m.grid, m.samplers, m.cfg.Decor, b.seed)
			b.chunk.Placements = append(b.chunk.Placements, placed...)
			b.ruleIdx++
			return
		}
		b.phase = phaseGeometry

	case phaseGeometry:
		g := m.deps.Graphics
		b.chunk.Ground = g.CreateGroundMesh(b.ground)
		b.chunk.Water = g.CreateWaterMesh(b.water)
		b.chunk.DecorBatch = g.CreateDecorationBatch(DecorationBatchSpec{
			ChunkIndex: b.chunk.Index,
			Placements: b.chunk.Placements,
		})
		g.AddToScene(b.chunk.Ground)
		g.AddToScene(b.chunk.Water)
		g.AddToScene(b.chunk.DecorBatch)
		b.phase = phaseSpawns

	case phaseSpawns:
		b.spawnEntities(m)
		b.chunk.Digest = b.digest()
		b.chunk.BuildMillis = b.workedMS
		b.state = StateComplete
	}
}

func (b *builder) fail(m *Manager, err error) {
	b.err = err
	b.state = StateFailed
	// Release whatever the partial build already claimed. Geometry is
	// created after the last possible failure point, so only grid entries
	// need undoing here.
	if len(b.chunk.Placements) > 0 {
		m.grid.RemoveInRange(b.chunk.ZMin, b.chunk.ZMax)
		b.chunk.Placements = nil
	}
}

func (b *builder) sampleGeometry(m *Manager) {
	const xSamples = 9
	const zRows = 17
	c := b.chunk

	heights := make([][]float64, zRows)
	colors := make([][3]float64, zRows)
	centers := make([]float64, zRows)
	widths := make([]float64, zRows)
	for zi := 0; zi < zRows; zi++ {
		t := float64(zi) / float64(zRows-1)
		z := geo.Lerp(c.ZMin, c.ZMax, t)
		row := make([]float64, xSamples)
		for xi := 0; xi < xSamples; xi++ {
			x := geo.Lerp(-m.cfg.HalfWidth, m.cfg.HalfWidth, float64(xi)/float64(xSamples-1))
			row[xi] = m.deps.Terrain.Sample(x, z).Height
		}
		heights[zi] = row
		colors[zi] = m.deps.Biomes.GroundColorAt(z)
		centers[zi] = m.deps.Terrain.River().CenterAt(z)
		widths[zi] = m.deps.Terrain.River().WidthAt(z)
	}

	b.ground = GroundMeshSpec{
		ChunkIndex: c.Index,
		XMin:       -m.cfg.HalfWidth,
		XMax:       m.cfg.HalfWidth,
		ZMin:       c.ZMin,
		ZMax:       c.ZMax,
		Heights:    heights,
		Colors:     colors,
	}
	b.water = WaterMeshSpec{
		ChunkIndex: c.Index,
		ZMin:       c.ZMin,
		ZMax:       c.ZMax,
		CenterXs:   centers,
		Widths:     widths,
	}
}

func (b *builder) spawnEntities(m *Manager) {
	c := b.chunk
	span := c.ZMax - c.ZMin
	for _, iv := range b.contrib {
		lo := math.Max(c.ZMin, iv.ZMin)
		hi := math.Min(c.ZMax, iv.ZMax)
		if hi <= lo {
			continue
		}
		frac := (hi - lo) / span
		for li, layout := range iv.Def.Spawns {
			expected := layout.PerChunk * frac
			n := int(expected)
			h := geo.Hash2(b.seed, iv.Index, li)
			if geo.Unit(h) < expected-float64(n) {
				n++
			}
			for i := 0; i < n; i++ {
				x, y, z, ok := b.spawnPoint(m, lo, hi, iv.Index, li, i)
				if !ok {
					continue
				}
				m.deps.Entities.Add(layout.Kind, x, y, z)
				c.Spawned++
			}
		}
	}
}

// spawnPoint hashes a dry-land position inside [lo, hi); a handful of
// attempts is plenty at the valley's land/water ratio.
func (b *builder) spawnPoint(m *Manager, lo, hi float64, ivIndex, layoutIdx, i int) (x, y, z float64, ok bool) {
	for attempt := 0; attempt < 4; attempt++ {
		h := geo.Hash2(b.seed+int64(layoutIdx)*131, ivIndex*977+i, attempt)
		x = geo.Lerp(-m.cfg.HalfWidth, m.cfg.HalfWidth, geo.Unit(h))
		z = geo.Lerp(lo, hi, geo.Unit(geo.Hash1(int64(h), attempt)))
		s := m.deps.Terrain.Sample(x, z)
		if s.RiverDistance > 1 {
			return x, s.Height, z, true
		}
	}
	return 0, 0, 0, false
}

func (b *builder) digest() string {
	h := sha256.New()
	var tmp [8]byte
	put := func(v float64) {
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
		h.Write(tmp[:])
	}
	binary.LittleEndian.PutUint64(tmp[:], uint64(int64(b.chunk.Index)))
	h.Write(tmp[:])
	for _, id := range b.chunk.Biomes {
		h.Write([]byte(id))
	}
	for _, row := range b.ground.Heights {
		for _, v := range row {
			put(v)
		}
	}
	for _, p := range b.chunk.Placements {
		h.Write([]byte(p.Species))
		put(p.X)
		put(p.Y)
		put(p.Z)
		put(p.GroundRadius)
	}
	return hex.EncodeToString(h.Sum(nil))
}
