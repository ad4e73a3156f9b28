// Package biome maintains the lazily-extended sequence of biome
// intervals along the traversal axis and answers blended two-biome
// weightings near interval boundaries.
package biome

import (
	"fmt"

	"longwater/internal/sim/decor"
	"longwater/internal/sim/geo"
)

type ID string

// SpawnLayout describes the ambient entities a biome seeds per chunk.
type SpawnLayout struct {
	Kind     string
	PerChunk float64 // expected count per chunk, fractional allowed
}

// Def is one biome's generation parameter set. Defs are immutable after
// catalog construction; intervals share them by pointer.
type Def struct {
	ID ID

	FogDensity     float64
	GroundColor    [3]float64
	AmplitudeScale float64

	// Decor rules run in slice order (priority order) during placement.
	Decor []decor.Rule
	// Assets must be resident before this biome's decorations build.
	Assets []string

	Spawns []SpawnLayout
}

// Interval is a contiguous half-open [ZMin, ZMax) slice of the world
// tagged with its biome.
type Interval struct {
	Def        *Def
	ZMin, ZMax float64
	// index in the global interval sequence; interval 0 starts at z=0.
	Index int
}

// Weighted is one entry of a blend mixture.
type Weighted struct {
	Def    *Def
	Weight float64
}

type Config struct {
	Seed int64
	// HalfWidth is the transition half-width around interval boundaries.
	HalfWidth float64
	// Interval spans are drawn uniformly from [MinSpan, MaxSpan).
	MinSpan, MaxSpan float64
}

func (c Config) withDefaults() Config {
	if c.HalfWidth <= 0 {
		c.HalfWidth = 25
	}
	if c.MinSpan <= 0 {
		c.MinSpan = 220
	}
	if c.MaxSpan <= c.MinSpan {
		c.MaxSpan = c.MinSpan + 260
	}
	return c
}

// Manager owns the generated interval window. It is not safe for
// concurrent use; the world loop is its only caller.
type Manager struct {
	cfg  Config
	defs []*Def

	// intervals[i] holds global index lo+i; the sequence is contiguous,
	// ascending, and only ever grows or shrinks at the ends.
	intervals []Interval
	lo        int
	init      bool
}

func NewManager(cfg Config, defs []*Def) *Manager {
	if len(defs) == 0 {
		panic("biome: empty catalog")
	}
	return &Manager{cfg: cfg.withDefaults(), defs: defs}
}

// span and defFor are pure functions of the interval index, so the
// sequence is identical no matter in which order the window grew.
func (m *Manager) span(k int) float64 {
	u := geo.Unit(geo.Hash1(m.cfg.Seed, k))
	return m.cfg.MinSpan + u*(m.cfg.MaxSpan-m.cfg.MinSpan)
}

func (m *Manager) defFor(k int) *Def {
	return m.defs[geo.Hash1(m.cfg.Seed+1, k)%uint64(len(m.defs))]
}

// EnsureWindow extends the interval sequence until it covers
// [zMin, zMax]. Idempotent; only appends what is missing.
func (m *Manager) EnsureWindow(zMin, zMax float64) {
	if !m.init {
		// Interval 0 is anchored at z=0; walk from there.
		m.intervals = []Interval{{Def: m.defFor(0), ZMin: 0, ZMax: m.span(0), Index: 0}}
		m.lo = 0
		m.init = true
	}
	for m.intervals[len(m.intervals)-1].ZMax <= zMax {
		last := m.intervals[len(m.intervals)-1]
		k := last.Index + 1
		m.intervals = append(m.intervals, Interval{
			Def:   m.defFor(k),
			ZMin:  last.ZMax,
			ZMax:  last.ZMax + m.span(k),
			Index: k,
		})
	}
	for m.intervals[0].ZMin > zMin {
		first := m.intervals[0]
		k := first.Index - 1
		iv := Interval{
			Def:   m.defFor(k),
			ZMin:  first.ZMin - m.span(k),
			ZMax:  first.ZMin,
			Index: k,
		}
		m.intervals = append([]Interval{iv}, m.intervals...)
		m.lo = k
	}
}

// PruneWindow discards intervals entirely outside [zMin, zMax].
func (m *Manager) PruneWindow(zMin, zMax float64) {
	if !m.init {
		return
	}
	i := 0
	for i < len(m.intervals) && m.intervals[i].ZMax <= zMin {
		i++
	}
	j := len(m.intervals)
	for j > i && m.intervals[j-1].ZMin >= zMax {
		j--
	}
	if i >= j {
		// Whole window gone; next EnsureWindow re-anchors from index 0.
		m.intervals = nil
		m.init = false
		return
	}
	m.intervals = append([]Interval(nil), m.intervals[i:j]...)
	m.lo = m.intervals[0].Index
}

// home returns the interval containing z. Querying outside the ensured
// window is a programmer error: the streaming manager's contract is to
// ensure coverage before any chunk reads biome data.
func (m *Manager) home(z float64) *Interval {
	if m.init && len(m.intervals) > 0 {
		lo, hi := 0, len(m.intervals)-1
		if z >= m.intervals[0].ZMin && z < m.intervals[hi].ZMax {
			for lo <= hi {
				mid := (lo + hi) / 2
				iv := &m.intervals[mid]
				switch {
				case z < iv.ZMin:
					hi = mid - 1
				case z >= iv.ZMax:
					lo = mid + 1
				default:
					return iv
				}
			}
		}
	}
	panic(fmt.Sprintf("biome: query at z=%g outside ensured window", z))
}

// Boundaries returns the home interval's [ZMin, ZMax].
func (m *Manager) Boundaries(z float64) (zMin, zMax float64) {
	iv := m.home(z)
	return iv.ZMin, iv.ZMax
}

// HomeID returns the home biome's identifier.
func (m *Manager) HomeID(z float64) ID {
	return m.home(z).Def.ID
}

// Progress is the normalized position of z within its home interval.
func (m *Manager) Progress(z float64) float64 {
	iv := m.home(z)
	return (z - iv.ZMin) / (iv.ZMax - iv.ZMin)
}

// Mixture returns one or two weighted biomes summing to 1.0. Within
// HalfWidth of a boundary the home biome fades linearly toward a 50/50
// split at the boundary itself; past it the neighbor takes over.
func (m *Manager) Mixture(z float64) []Weighted {
	iv := m.home(z)
	dLow := z - iv.ZMin
	dHigh := iv.ZMax - z

	d := dLow
	neighborIdx := iv.Index - 1
	if dHigh < dLow {
		d = dHigh
		neighborIdx = iv.Index + 1
	}
	if d >= m.cfg.HalfWidth {
		return []Weighted{{Def: iv.Def, Weight: 1}}
	}
	pos := neighborIdx - m.lo
	if pos < 0 || pos >= len(m.intervals) {
		// No generated neighbor at the window's extreme end.
		return []Weighted{{Def: iv.Def, Weight: 1}}
	}
	w := 0.5 + 0.5*(d/m.cfg.HalfWidth)
	return []Weighted{
		{Def: iv.Def, Weight: w},
		{Def: m.intervals[pos].Def, Weight: 1 - w},
	}
}

// WeightAt returns the mixture weight of def at z, 0 when def is not in
// the mixture. Chunk construction uses it to thin a biome's placements
// through transitions.
func (m *Manager) WeightAt(def *Def, z float64) float64 {
	for _, e := range m.Mixture(z) {
		if e.Def == def {
			return e.Weight
		}
	}
	return 0
}

// Scalar biome properties are weighted sums over the mixture.

func (m *Manager) FogAt(z float64) float64 {
	v := 0.0
	for _, e := range m.Mixture(z) {
		v += e.Def.FogDensity * e.Weight
	}
	return v
}

func (m *Manager) AmplitudeAt(z float64) float64 {
	v := 0.0
	for _, e := range m.Mixture(z) {
		v += e.Def.AmplitudeScale * e.Weight
	}
	return v
}

func (m *Manager) GroundColorAt(z float64) [3]float64 {
	var c [3]float64
	for _, e := range m.Mixture(z) {
		for i := 0; i < 3; i++ {
			c[i] += e.Def.GroundColor[i] * e.Weight
		}
	}
	return c
}

// Window reports the ensured z range, or ok=false before first use.
func (m *Manager) Window() (zMin, zMax float64, ok bool) {
	if !m.init || len(m.intervals) == 0 {
		return 0, 0, false
	}
	return m.intervals[0].ZMin, m.intervals[len(m.intervals)-1].ZMax, true
}

// Intervals exposes a copy of the current window for digests and stream
// events; callers must not mutate the defs.
func (m *Manager) Intervals() []Interval {
	return append([]Interval(nil), m.intervals...)
}
