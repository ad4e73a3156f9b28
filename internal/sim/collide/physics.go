// Package collide maintains the sliding corridor of static riverbank
// edge geometry around the observer.
package collide

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrWorldLocked is returned by a physics backend that cannot accept
// body mutations mid-step. Callers fail soft and retry next frame.
var ErrWorldLocked = errors.New("physics world locked mid-step")

// EdgeShape is a single edge with ghost neighbor vertices. Prev and Next
// exist only to give the edge chain correct tangents at segment joins.
type EdgeShape struct {
	Start, End mgl64.Vec2
	Prev, Next mgl64.Vec2
}

// Body is an opaque handle owned by the physics backend.
type Body any

// Physics is the backend contract the corridor consumes. Every call may
// be refused with ErrWorldLocked while the backend is mid-step.
type Physics interface {
	CreateStaticBody() (Body, error)
	DestroyBody(Body)
	CreateEdgeFixture(b Body, shape EdgeShape, filterBits uint16) error
	// QueryAABB returns the shapes of fixtures overlapping the region.
	QueryAABB(min, max mgl64.Vec2) []EdgeShape
	// RayCast returns the nearest hit fraction along from->to, ok=false
	// on a miss.
	RayCast(from, to mgl64.Vec2) (fraction float64, ok bool)
}

// TrackingWorld is the in-memory physics backend used headless and in
// tests. Setting Locked simulates a backend refusing mutations mid-step.
type TrackingWorld struct {
	Locked bool

	bodies map[*trackedBody]struct{}

	Created   int
	Destroyed int
}

type trackedBody struct {
	fixtures []trackedFixture
}

type trackedFixture struct {
	shape  EdgeShape
	filter uint16
}

func NewTrackingWorld() *TrackingWorld {
	return &TrackingWorld{bodies: map[*trackedBody]struct{}{}}
}

func (w *TrackingWorld) BodyCount() int { return len(w.bodies) }

func (w *TrackingWorld) FixtureCount() int {
	n := 0
	for b := range w.bodies {
		n += len(b.fixtures)
	}
	return n
}

func (w *TrackingWorld) CreateStaticBody() (Body, error) {
	if w.Locked {
		return nil, ErrWorldLocked
	}
	b := &trackedBody{}
	w.bodies[b] = struct{}{}
	w.Created++
	return b, nil
}

func (w *TrackingWorld) DestroyBody(b Body) {
	tb, ok := b.(*trackedBody)
	if !ok {
		return
	}
	if _, live := w.bodies[tb]; live {
		delete(w.bodies, tb)
		w.Destroyed++
	}
}

func (w *TrackingWorld) CreateEdgeFixture(b Body, shape EdgeShape, filterBits uint16) error {
	if w.Locked {
		return ErrWorldLocked
	}
	tb, ok := b.(*trackedBody)
	if !ok {
		return errors.New("foreign body handle")
	}
	tb.fixtures = append(tb.fixtures, trackedFixture{shape: shape, filter: filterBits})
	return nil
}

func (w *TrackingWorld) QueryAABB(min, max mgl64.Vec2) []EdgeShape {
	var out []EdgeShape
	for b := range w.bodies {
		for _, f := range b.fixtures {
			lo := mgl64.Vec2{
				math.Min(f.shape.Start.X(), f.shape.End.X()),
				math.Min(f.shape.Start.Y(), f.shape.End.Y()),
			}
			hi := mgl64.Vec2{
				math.Max(f.shape.Start.X(), f.shape.End.X()),
				math.Max(f.shape.Start.Y(), f.shape.End.Y()),
			}
			if hi.X() < min.X() || lo.X() > max.X() || hi.Y() < min.Y() || lo.Y() > max.Y() {
				continue
			}
			out = append(out, f.shape)
		}
	}
	return out
}

func (w *TrackingWorld) RayCast(from, to mgl64.Vec2) (float64, bool) {
	best := math.Inf(1)
	hit := false
	for b := range w.bodies {
		for _, f := range b.fixtures {
			if t, ok := segmentIntersect(from, to, f.shape.Start, f.shape.End); ok && t < best {
				best = t
				hit = true
			}
		}
	}
	if !hit {
		return 0, false
	}
	return best, true
}

// segmentIntersect returns the fraction along a->b where it crosses c->d.
func segmentIntersect(a, b, c, d mgl64.Vec2) (float64, bool) {
	r := b.Sub(a)
	s := d.Sub(c)
	denom := r.X()*s.Y() - r.Y()*s.X()
	if denom == 0 {
		return 0, false
	}
	ac := c.Sub(a)
	t := (ac.X()*s.Y() - ac.Y()*s.X()) / denom
	u := (ac.X()*r.Y() - ac.Y()*r.X()) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}
