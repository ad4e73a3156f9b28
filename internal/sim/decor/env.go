// Package decor places static decorations (vegetation, rocks, props) with
// a seeded variable-radius Poisson-disk growth algorithm driven by
// declarative fitness rules over a local environment sample.
package decor

// Env is the local environment a fitness function sees at a candidate
// point. It is built once per candidate and never mutated by rules.
type Env struct {
	X, Z float64

	Height        float64
	Slope         float64
	RiverDistance float64
	// Progress is the normalized position inside the home biome, [0,1].
	Progress float64

	// noise is the engine's seeded 2D field, shared by every rule in a run.
	noise func(x, z float64) float64
}

// NoiseAt samples the run's seeded noise field at the env position,
// returning a value in [0,1].
func (e *Env) NoiseAt(scale float64) float64 {
	if e.noise == nil {
		return 0.5
	}
	return e.noise(e.X*scale, e.Z*scale)
}

// Field selects one scalar out of the environment; fitness primitives
// compose over fields rather than hard-coding a member each.
type Field func(*Env) float64

func Elevation(e *Env) float64 { return e.Height }
func Slope(e *Env) float64     { return e.Slope }
func RiverDist(e *Env) float64 { return e.RiverDistance }
func Progress(e *Env) float64  { return e.Progress }
