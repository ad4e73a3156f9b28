package biome

import (
	"math/rand"

	"longwater/internal/sim/decor"
)

// DefaultCatalog is the stock biome set of the valley. Rules are listed
// in priority order: canopy trees claim space first, understory and
// props fill in around them.
func DefaultCatalog() []*Def {
	return []*Def{
		meadow(),
		pineForest(),
		birchGrove(),
		rockyScrub(),
		wetland(),
	}
}

// Shared eligibility: decorations stay out of the water and off sheer
// ground. Individual species tighten these further.
func onLand() decor.Fitness {
	return decor.EaseIn(decor.RiverDist, 1, 6)
}

func gentleGround(maxSlope float64) decor.Fitness {
	return decor.EaseOut(decor.Slope, maxSlope*0.6, maxSlope)
}

func treeParams(mesh string, ground, canopy, species float64, tint [3]float64) func(*decor.Env, *rand.Rand) decor.Params {
	return func(e *decor.Env, rng *rand.Rand) decor.Params {
		s := 0.85 + rng.Float64()*0.3
		return decor.Params{
			GroundRadius:  ground * s,
			CanopyRadius:  canopy * s,
			SpeciesRadius: species,
			Render:        decor.RenderOptions{Mesh: mesh, Scale: s, Tint: tint},
		}
	}
}

func propParams(mesh string, ground float64) func(*decor.Env, *rand.Rand) decor.Params {
	return func(e *decor.Env, rng *rand.Rand) decor.Params {
		s := 0.7 + rng.Float64()*0.6
		return decor.Params{
			GroundRadius: ground * s,
			Render:       decor.RenderOptions{Mesh: mesh, Scale: s},
		}
	}
}

func meadow() *Def {
	return &Def{
		ID:             "meadow",
		FogDensity:     0.004,
		GroundColor:    [3]float64{0.38, 0.55, 0.24},
		AmplitudeScale: 0.7,
		Assets:         []string{"mesh/oak", "mesh/flower_patch", "mesh/grass_tuft"},
		Decor: []decor.Rule{
			{Name: "lone_oaks", Members: []decor.Species{{
				Name: "oak",
				Fit: decor.All(
					onLand(),
					gentleGround(0.5),
					decor.Noise(0.008, -0.6, 1.2),
					decor.Constant(0.35),
				),
				Generate: treeParams("mesh/oak", 2.2, 7, 26, [3]float64{0.30, 0.44, 0.17}),
			}}},
			{Name: "flowers", Members: []decor.Species{
				{
					Name: "poppy",
					Fit: decor.All(
						onLand(),
						gentleGround(0.45),
						decor.InRange(decor.Progress, 0, 0.5),
						decor.Noise(0.02, 0, 1),
					),
					Generate: propParams("mesh/flower_patch", 0.8),
				},
				{
					Name: "cornflower",
					Fit: decor.All(
						onLand(),
						gentleGround(0.45),
						decor.InRange(decor.Progress, 0.5, 1),
						decor.Noise(0.02, 0, 1),
					),
					Generate: propParams("mesh/flower_patch", 0.8),
				},
			}},
			{Name: "grass", Members: []decor.Species{{
				Name:     "grass_tuft",
				Fit:      decor.All(onLand(), gentleGround(0.6), decor.Constant(0.8)),
				Generate: propParams("mesh/grass_tuft", 0.5),
			}}},
		},
		Spawns: []SpawnLayout{
			{Kind: "deer", PerChunk: 0.8},
			{Kind: "rabbit", PerChunk: 1.4},
		},
	}
}

func pineForest() *Def {
	return &Def{
		ID:             "pine_forest",
		FogDensity:     0.010,
		GroundColor:    [3]float64{0.22, 0.35, 0.18},
		AmplitudeScale: 1.1,
		Assets:         []string{"mesh/pine", "mesh/fir", "mesh/fern", "mesh/rock_small"},
		Decor: []decor.Rule{
			// Pine holds the valley floor, fir the higher slopes; the tier
			// splits them by elevation without an explicit border.
			{Name: "conifers", Members: []decor.Species{
				{
					Name: "pine",
					Fit: decor.All(
						onLand(),
						gentleGround(0.8),
						decor.EaseOut(decor.Elevation, 18, 34),
						decor.Noise(0.006, -0.3, 1.3),
					),
					Generate: treeParams("mesh/pine", 1.8, 5.5, 0, [3]float64{0.13, 0.27, 0.12}),
				},
				{
					Name: "fir",
					Fit: decor.All(
						onLand(),
						gentleGround(0.8),
						decor.EaseIn(decor.Elevation, 18, 34),
						decor.Noise(0.006, -0.3, 1.3),
					),
					Generate: treeParams("mesh/fir", 1.6, 5, 0, [3]float64{0.10, 0.23, 0.13}),
				},
			}},
			{Name: "ferns", Members: []decor.Species{{
				Name:     "fern",
				Fit:      decor.All(onLand(), gentleGround(0.7), decor.Constant(0.6)),
				Generate: propParams("mesh/fern", 0.7),
			}}},
			{Name: "forest_rocks", Members: []decor.Species{{
				Name:     "rock_small",
				Fit:      decor.All(onLand(), decor.Constant(0.15)),
				Generate: propParams("mesh/rock_small", 1.1),
			}}},
		},
		Spawns: []SpawnLayout{
			{Kind: "deer", PerChunk: 0.5},
			{Kind: "fox", PerChunk: 0.4},
		},
	}
}

func birchGrove() *Def {
	return &Def{
		ID:             "birch_grove",
		FogDensity:     0.006,
		GroundColor:    [3]float64{0.36, 0.50, 0.26},
		AmplitudeScale: 0.85,
		Assets:         []string{"mesh/birch", "mesh/shrub"},
		Decor: []decor.Rule{
			{Name: "birches", Members: []decor.Species{{
				Name: "birch",
				Fit: decor.All(
					onLand(),
					gentleGround(0.6),
					decor.Noise(0.01, -0.4, 1.4),
					decor.Constant(0.7),
				),
				// Tight species spacing gives the grove its open, even look.
				Generate: treeParams("mesh/birch", 1.3, 4, 9, [3]float64{0.45, 0.55, 0.25}),
			}}},
			{Name: "shrubs", Members: []decor.Species{{
				Name:     "shrub",
				Fit:      decor.All(onLand(), gentleGround(0.55), decor.Constant(0.5)),
				Generate: propParams("mesh/shrub", 0.9),
			}}},
		},
		Spawns: []SpawnLayout{
			{Kind: "rabbit", PerChunk: 1.0},
			{Kind: "songbird", PerChunk: 2.0},
		},
	}
}

func rockyScrub() *Def {
	return &Def{
		ID:             "rocky_scrub",
		FogDensity:     0.003,
		GroundColor:    [3]float64{0.48, 0.44, 0.36},
		AmplitudeScale: 1.4,
		Assets:         []string{"mesh/boulder", "mesh/rock_small", "mesh/scrub"},
		Decor: []decor.Rule{
			{Name: "boulders", Members: []decor.Species{{
				Name: "boulder",
				Fit: decor.All(
					onLand(),
					// Boulders prefer the steeper ground everything else avoids.
					decor.EaseIn(decor.Slope, 0.15, 0.5),
					decor.Noise(0.012, -0.2, 1.1),
				),
				Generate: func(e *decor.Env, rng *rand.Rand) decor.Params {
					s := 1.0 + rng.Float64()*1.5
					return decor.Params{
						GroundRadius:  2.0 * s,
						SpeciesRadius: 14,
						Render:        decor.RenderOptions{Mesh: "mesh/boulder", Scale: s},
					}
				},
			}}},
			{Name: "scree", Members: []decor.Species{{
				Name:     "rock_small",
				Fit:      decor.All(onLand(), decor.Constant(0.45)),
				Generate: propParams("mesh/rock_small", 1.0),
			}}},
			{Name: "scrub", Members: []decor.Species{{
				Name:     "scrub",
				Fit:      decor.All(onLand(), gentleGround(0.7), decor.Constant(0.35)),
				Generate: propParams("mesh/scrub", 0.8),
			}}},
		},
		Spawns: []SpawnLayout{
			{Kind: "goat", PerChunk: 0.6},
		},
	}
}

func wetland() *Def {
	return &Def{
		ID:             "wetland",
		FogDensity:     0.016,
		GroundColor:    [3]float64{0.30, 0.42, 0.28},
		AmplitudeScale: 0.45,
		Assets:         []string{"mesh/willow", "mesh/reed", "mesh/lily"},
		Decor: []decor.Rule{
			{Name: "willows", Members: []decor.Species{{
				Name: "willow",
				Fit: decor.All(
					// Willows hug the bank and give up quickly inland.
					decor.EaseIn(decor.RiverDist, 0, 3),
					decor.EaseOut(decor.RiverDist, 14, 40),
					gentleGround(0.5),
				),
				Generate: treeParams("mesh/willow", 2.4, 8, 22, [3]float64{0.28, 0.40, 0.20}),
			}}},
			{Name: "reeds", Members: []decor.Species{{
				Name: "reed",
				Fit: decor.All(
					decor.EaseOut(decor.RiverDist, 2, 10),
					decor.Step(decor.RiverDist, 0, 0, 1),
					decor.Constant(0.9),
				),
				Generate: propParams("mesh/reed", 0.5),
			}}},
		},
		Spawns: []SpawnLayout{
			{Kind: "heron", PerChunk: 0.7},
			{Kind: "frog", PerChunk: 1.6},
		},
	}
}
