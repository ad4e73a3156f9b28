package decor

import (
	"math"
	"math/rand"

	"longwater/internal/sim/geo"
)

type Config struct {
	// SeedAttempts uniform candidates bootstrap each rule's active list.
	SeedAttempts int
	// MaxK bounds growth fan-out per parent; the effective fan-out is
	// scaled by the parent's fitness so marginal placements thin out.
	MaxK int
}

func (c Config) withDefaults() Config {
	if c.SeedAttempts <= 0 {
		c.SeedAttempts = 100
	}
	if c.MaxK <= 0 {
		c.MaxK = 30
	}
	return c
}

// Region is the half-open rectangle [MinX,MaxX) x [MinZ,MaxZ) a run
// covers. Growth candidates that land outside are rejected.
type Region struct {
	MinX, MinZ, MaxX, MaxZ float64
}

func (r Region) contains(x, z float64) bool {
	return x >= r.MinX && x < r.MaxX && z >= r.MinZ && z < r.MaxZ
}

// TerrainSampler is the ground-truth collaborator a run samples at each
// candidate point.
type TerrainSampler interface {
	Ground(x, z float64) (height, slope, riverDistance float64)
}

// Samplers bundles the environment inputs of a run.
type Samplers struct {
	Terrain TerrainSampler
	// Progress maps z onto the normalized position within its home biome.
	Progress func(z float64) float64
	// Noise is the shared seeded 2D field behind the Noise primitive,
	// returning values in [0,1]. World-seeded, so stands of vegetation
	// cross chunk borders without seams.
	Noise func(x, z float64) float64
}

// Generate runs the two-phase variable-radius Poisson-disk pass over the
// region, one independent pass per rule in priority order. Accepted
// placements are inserted into grid as they are produced, so later rules
// respect earlier rules' spacing.
func Generate(rules []Rule, region Region, grid *Grid, s Samplers, cfg Config, seed int64) []*Placement {
	cfg = cfg.withDefaults()
	var out []*Placement
	for ri := range rules {
		rule := &rules[ri]
		// Per-rule RNG stream: rules never perturb each other's draws,
		// and different species never starve each other's active lists.
		rng := rand.New(rand.NewSource(int64(geo.HashString(seed, rule.Name))))
		out = append(out, generateRule(rule, region, grid, s, cfg, rng)...)
	}
	return out
}

func generateRule(rule *Rule, region Region, grid *Grid, s Samplers, cfg Config, rng *rand.Rand) []*Placement {
	var manifest []*Placement
	var active []*Placement

	// Seeding: uniform candidates across the region.
	for i := 0; i < cfg.SeedAttempts; i++ {
		x := region.MinX + rng.Float64()*(region.MaxX-region.MinX)
		z := region.MinZ + rng.Float64()*(region.MaxZ-region.MinZ)
		if p := tryPlace(rule, x, z, region, grid, s, rng); p != nil {
			manifest = append(manifest, p)
			active = append(active, p)
		}
	}

	// Growth: expand around random active parents until every parent has
	// exhausted its fan-out (standard Poisson-disk termination).
	for len(active) > 0 {
		ai := rng.Intn(len(active))
		parent := active[ai]

		k := int(math.Floor(float64(cfg.MaxK) * parent.Fitness))
		if k < 1 {
			k = 1
		}

		accepted := false
		for attempt := 0; attempt < k && !accepted; attempt++ {
			angle := rng.Float64() * 2 * math.Pi
			sin, cos := math.Sincos(angle)
			// One candidate distance per radius class the parent has,
			// all at the same angle; the first that validates wins.
			for _, r := range [3]float64{parent.GroundRadius, parent.CanopyRadius, parent.SpeciesRadius} {
				if r <= 0 {
					continue
				}
				dist := r * (2 + 2*rng.Float64()) // annulus [2r, 4r)
				x := parent.X + dist*cos
				z := parent.Z + dist*sin
				if p := tryPlace(rule, x, z, region, grid, s, rng); p != nil {
					manifest = append(manifest, p)
					active = append(active, p)
					accepted = true
					break
				}
			}
		}
		if !accepted {
			// Parent cannot grow further; swap-pop it out.
			active[ai] = active[len(active)-1]
			active = active[:len(active)-1]
		}
	}

	return manifest
}

func tryPlace(rule *Rule, x, z float64, region Region, grid *Grid, s Samplers, rng *rand.Rand) *Placement {
	if !region.contains(x, z) {
		return nil
	}

	height, slope, riverDist := s.Terrain.Ground(x, z)
	env := Env{
		X:             x,
		Z:             z,
		Height:        height,
		Slope:         slope,
		RiverDistance: riverDist,
		noise:         s.Noise,
	}
	if s.Progress != nil {
		env.Progress = s.Progress(z)
	}

	fit, winner := rule.evaluate(&env)
	if fit <= 0 || winner == nil {
		return nil
	}
	// Fitness doubles as the acceptance probability.
	if rng.Float64() >= fit {
		return nil
	}

	params := winner.Generate(&env, rng)
	if grid.Collides(x, z, params, winner.Name) {
		return nil
	}

	p := &Placement{
		X:             x,
		Y:             height,
		Z:             z,
		GroundRadius:  params.GroundRadius,
		CanopyRadius:  params.CanopyRadius,
		SpeciesRadius: params.SpeciesRadius,
		Fitness:       fit,
		Species:       winner.Name,
		Render:        params.Render,
	}
	grid.Insert(p)
	return p
}
