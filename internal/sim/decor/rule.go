package decor

import "math/rand"

// RenderOptions are opaque to the placement engine; the graphics
// collaborator interprets them when batching decoration geometry.
type RenderOptions struct {
	Mesh  string
	Scale float64
	Tint  [3]float64
}

// Params are the concrete instance parameters a species generates once a
// candidate point has passed its fitness check. A zero canopy or species
// radius means the placement does not participate in that class.
type Params struct {
	GroundRadius  float64
	CanopyRadius  float64
	SpeciesRadius float64
	Render        RenderOptions
}

// Species couples a fitness function with an instance-parameter
// generator. Generate may draw from rng for per-instance variation but
// must not consult any state outside env and rng.
type Species struct {
	Name     string
	Fit      Fitness
	Generate func(e *Env, rng *rand.Rand) Params
}

// Rule is one priority slot of the placement pass. Members compete as a
// tier: the rule's fitness at a point is the member maximum, and the
// winner is the member that scored it. A single-species rule is the
// one-member case.
type Rule struct {
	Name    string
	Members []Species
}

// evaluate returns the tier fitness and winning member at env.
func (r *Rule) evaluate(e *Env) (float64, *Species) {
	best := 0.0
	var win *Species
	for i := range r.Members {
		v := r.Members[i].Fit(e)
		if v > best {
			best = v
			win = &r.Members[i]
		}
	}
	if best < 0 {
		best = 0
	}
	if best > 1 {
		best = 1
	}
	return best, win
}

// Placement is the immutable output record of the engine. Placements are
// appended per region and released en masse when their chunk dies.
type Placement struct {
	X, Y, Z float64

	GroundRadius  float64
	CanopyRadius  float64
	SpeciesRadius float64

	Fitness float64
	Species string
	Render  RenderOptions
}
