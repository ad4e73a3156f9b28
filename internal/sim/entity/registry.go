// Package entity is the ambient entity registry: chunk construction
// spawns into it and the streaming manager's batched cleanup issues
// range deletions against it.
package entity

import (
	"fmt"
	"sort"
)

type Entity struct {
	ID      string
	Kind    string
	X, Y, Z float64
}

// Registry indexes entities by id. Single world-loop ownership, no
// locking.
type Registry struct {
	byID    map[string]*Entity
	nextNum uint64
}

func NewRegistry() *Registry {
	return &Registry{byID: map[string]*Entity{}}
}

func (r *Registry) Add(kind string, x, y, z float64) *Entity {
	r.nextNum++
	e := &Entity{
		ID:   fmt.Sprintf("E%06d", r.nextNum),
		Kind: kind,
		X:    x,
		Y:    y,
		Z:    z,
	}
	r.byID[e.ID] = e
	return e
}

func (r *Registry) Remove(id string) bool {
	if _, ok := r.byID[id]; !ok {
		return false
	}
	delete(r.byID, id)
	return true
}

func (r *Registry) Get(id string) *Entity { return r.byID[id] }

func (r *Registry) Len() int { return len(r.byID) }

// RemoveInRange deletes every entity with zMin <= z < zMax and returns
// the count. An empty range is a normal no-op.
func (r *Registry) RemoveInRange(zMin, zMax float64) int {
	removed := 0
	for id, e := range r.byID {
		if e.Z >= zMin && e.Z < zMax {
			delete(r.byID, id)
			removed++
		}
	}
	return removed
}

func (r *Registry) CountInRange(zMin, zMax float64) int {
	n := 0
	for _, e := range r.byID {
		if e.Z >= zMin && e.Z < zMax {
			n++
		}
	}
	return n
}

// All returns entities sorted by id, for digests and stream summaries.
func (r *Registry) All() []*Entity {
	out := make([]*Entity, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
