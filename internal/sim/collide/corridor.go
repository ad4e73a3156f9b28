package collide

import (
	"log"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// RiverLine is the spline geometry the corridor approximates: a
// centerline and width per z.
type RiverLine interface {
	CenterAt(z float64) float64
	WidthAt(z float64) float64
}

type Config struct {
	// Radius of corridor coverage around the observer, per side.
	Radius float64
	// Step is the z length of one segment pair.
	Step float64
	// UpdateStep throttles recomputation: the corridor rebuilds only when
	// the rounded window start crosses an UpdateStep boundary.
	UpdateStep float64
	FilterBits uint16
}

func (c Config) withDefaults() Config {
	if c.Radius <= 0 {
		c.Radius = 300
	}
	if c.Step <= 0 {
		c.Step = 5
	}
	if c.UpdateStep <= 0 {
		c.UpdateStep = 40
	}
	return c
}

type segment struct {
	body Body
}

// Corridor caches one segment pair per step-sized z key and, on window
// shifts, builds only missing keys and destroys only stale ones. The
// ghost-vertex continuity contract holds because each segment's shape
// depends only on its own key, never on its build batch.
type Corridor struct {
	phys  Physics
	river RiverLine
	cfg   Config
	log   *log.Logger

	segments    map[int]*segment
	haveWindow  bool
	windowStart float64
	// retry forces another pass when a build failed soft (locked world).
	retry bool
}

func NewCorridor(phys Physics, river RiverLine, cfg Config, logger *log.Logger) *Corridor {
	return &Corridor{
		phys:     phys,
		river:    river,
		cfg:      cfg.withDefaults(),
		log:      logger,
		segments: map[int]*segment{},
	}
}

// Update re-covers [observerZ-Radius, observerZ+Radius], throttled on
// the rounded window start.
func (c *Corridor) Update(observerZ float64) {
	start := math.Floor((observerZ-c.cfg.Radius)/c.cfg.UpdateStep) * c.cfg.UpdateStep
	if c.haveWindow && start == c.windowStart && !c.retry {
		return
	}
	c.haveWindow = true
	c.windowStart = start
	c.retry = false

	loKey := int(math.Floor((observerZ - c.cfg.Radius) / c.cfg.Step))
	count := int(math.Ceil(2 * c.cfg.Radius / c.cfg.Step))

	desired := make(map[int]struct{}, count)
	for k := loKey; k < loKey+count; k++ {
		desired[k] = struct{}{}
	}

	for k, seg := range c.segments {
		if _, keep := desired[k]; keep {
			continue
		}
		c.phys.DestroyBody(seg.body)
		delete(c.segments, k)
	}
	for k := range desired {
		if _, have := c.segments[k]; have {
			continue
		}
		if !c.buildSegment(k) {
			// Fail soft: the world refused the mutation mid-step. The key
			// stays missing and the next Update retries.
			c.retry = true
		}
	}
}

func (c *Corridor) buildSegment(key int) bool {
	step := c.cfg.Step
	zPrev := float64(key)*step - step
	zStart := float64(key) * step
	zEnd := zStart + step
	zNext := zEnd + step

	lPrev, rPrev := c.banksAt(zPrev)
	lStart, rStart := c.banksAt(zStart)
	lEnd, rEnd := c.banksAt(zEnd)
	lNext, rNext := c.banksAt(zNext)

	body, err := c.phys.CreateStaticBody()
	if err != nil {
		c.logf("segment %d: create body: %v", key, err)
		return false
	}

	left := EdgeShape{
		Start: mgl64.Vec2{lStart, zStart},
		End:   mgl64.Vec2{lEnd, zEnd},
		Prev:  mgl64.Vec2{lPrev, zPrev},
		Next:  mgl64.Vec2{lNext, zNext},
	}
	right := EdgeShape{
		Start: mgl64.Vec2{rStart, zStart},
		End:   mgl64.Vec2{rEnd, zEnd},
		Prev:  mgl64.Vec2{rPrev, zPrev},
		Next:  mgl64.Vec2{rNext, zNext},
	}
	if err := c.phys.CreateEdgeFixture(body, left, c.cfg.FilterBits); err != nil {
		c.logf("segment %d: left fixture: %v", key, err)
		c.phys.DestroyBody(body)
		return false
	}
	if err := c.phys.CreateEdgeFixture(body, right, c.cfg.FilterBits); err != nil {
		c.logf("segment %d: right fixture: %v", key, err)
		c.phys.DestroyBody(body)
		return false
	}

	c.segments[key] = &segment{body: body}
	return true
}

func (c *Corridor) banksAt(z float64) (left, right float64) {
	center := c.river.CenterAt(z)
	half := c.river.WidthAt(z) / 2
	return center - half, center + half
}

// Clear destroys every cached segment.
func (c *Corridor) Clear() {
	for k, seg := range c.segments {
		c.phys.DestroyBody(seg.body)
		delete(c.segments, k)
	}
	c.haveWindow = false
}

func (c *Corridor) SegmentCount() int { return len(c.segments) }

// WindowStart reports the rounded corridor start of the last rebuild.
func (c *Corridor) WindowStart() (float64, bool) {
	return c.windowStart, c.haveWindow
}

// Keys returns the cached segment keys in ascending order.
func (c *Corridor) Keys() []int {
	keys := make([]int, 0, len(c.segments))
	for k := range c.segments {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func (c *Corridor) logf(format string, args ...any) {
	if c.log != nil {
		c.log.Printf(format, args...)
	}
}
