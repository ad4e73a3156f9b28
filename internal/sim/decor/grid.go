package decor

import "math"

type cellKey struct{ X, Z int }

// Grid is a uniform spatial hash over the horizontal plane. It answers
// the three independent proximity checks of the placement engine:
// ground-ground always, canopy-canopy when both placements carry a
// canopy, species-species only between placements of the same species.
type Grid struct {
	cellSize float64
	cells    map[cellKey][]*Placement
	count    int

	// maxReach is the largest radius inserted so far; it bounds how many
	// neighbor cells a collision query must visit.
	maxReach float64
}

func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = 8
	}
	return &Grid{
		cellSize: cellSize,
		cells:    map[cellKey][]*Placement{},
	}
}

func (g *Grid) Len() int { return g.count }

func (g *Grid) keyFor(x, z float64) cellKey {
	return cellKey{
		X: int(math.Floor(x / g.cellSize)),
		Z: int(math.Floor(z / g.cellSize)),
	}
}

func (g *Grid) Insert(p *Placement) {
	k := g.keyFor(p.X, p.Z)
	g.cells[k] = append(g.cells[k], p)
	g.count++
	for _, r := range [3]float64{p.GroundRadius, p.CanopyRadius, p.SpeciesRadius} {
		if r > g.maxReach {
			g.maxReach = r
		}
	}
}

// Collides reports whether a candidate at (x, z) with the given params
// violates minimum separation against any already-placed item, checking
// each radius class independently.
func (g *Grid) Collides(x, z float64, params Params, species string) bool {
	reach := params.GroundRadius
	if params.CanopyRadius > reach {
		reach = params.CanopyRadius
	}
	if params.SpeciesRadius > reach {
		reach = params.SpeciesRadius
	}
	reach += g.maxReach

	k0 := g.keyFor(x-reach, z-reach)
	k1 := g.keyFor(x+reach, z+reach)
	for cz := k0.Z; cz <= k1.Z; cz++ {
		for cx := k0.X; cx <= k1.X; cx++ {
			for _, p := range g.cells[cellKey{X: cx, Z: cz}] {
				dx := p.X - x
				dz := p.Z - z
				d2 := dx*dx + dz*dz
				if min := params.GroundRadius + p.GroundRadius; d2 < min*min {
					return true
				}
				if params.CanopyRadius > 0 && p.CanopyRadius > 0 {
					if min := params.CanopyRadius + p.CanopyRadius; d2 < min*min {
						return true
					}
				}
				if params.SpeciesRadius > 0 && p.SpeciesRadius > 0 && p.Species == species {
					if min := params.SpeciesRadius + p.SpeciesRadius; d2 < min*min {
						return true
					}
				}
			}
		}
	}
	return false
}

// RemoveInRange drops every placement with zMin <= z < zMax and returns
// how many were removed. Used when a chunk releases its decorations.
func (g *Grid) RemoveInRange(zMin, zMax float64) int {
	removed := 0
	for k, bucket := range g.cells {
		kept := bucket[:0]
		for _, p := range bucket {
			if p.Z >= zMin && p.Z < zMax {
				removed++
				continue
			}
			kept = append(kept, p)
		}
		if len(kept) == 0 {
			delete(g.cells, k)
		} else {
			g.cells[k] = kept
		}
	}
	g.count -= removed
	return removed
}
