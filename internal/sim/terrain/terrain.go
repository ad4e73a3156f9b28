// Package terrain provides the deterministic samplers the generation
// pipeline reads: a valley heightfield carved around a meandering river,
// plus the river centerline/width geometry the collision corridor follows.
package terrain

import (
	"math"

	"github.com/aquilax/go-perlin"
	opensimplex "github.com/ojrac/opensimplex-go"

	"longwater/internal/sim/geo"
)

type Config struct {
	Seed int64

	// Relief of the valley walls away from the river.
	Amplitude  float64
	NoiseScale float64
	Octaves    int

	// Valley cross-section: height climbs ValleyRise per unit of distance
	// from the bank, capped at ValleyMax. The channel drops to -ChannelDepth
	// at the centerline.
	ValleyRise   float64
	ValleyMax    float64
	ChannelDepth float64

	River RiverConfig
}

type Sample struct {
	Height float64
	Slope  float64
	// Signed distance to the nearer bank: 0 at the bank, positive on
	// land, negative over water.
	RiverDistance float64
}

type Terrain struct {
	cfg    Config
	relief opensimplex.Noise
	river  *River

	// AmplitudeAt scales relief per z (biome-blended). Nil means 1.0.
	// River geometry deliberately ignores it so collision sampling never
	// depends on biome window state.
	AmplitudeAt func(z float64) float64
}

func New(cfg Config) *Terrain {
	if cfg.Octaves <= 0 {
		cfg.Octaves = 4
	}
	return &Terrain{
		cfg:    cfg,
		relief: opensimplex.NewNormalized(cfg.Seed),
		river:  NewRiver(cfg.Seed+1, cfg.River),
	}
}

func (t *Terrain) River() *River { return t.river }

func (t *Terrain) Sample(x, z float64) Sample {
	h, rd := t.heightAt(x, z)
	// Central differences. The step is coarse on purpose: placement rules
	// care about hillside steepness, not noise-octave jitter.
	const eps = 0.75
	hxp, _ := t.heightAt(x+eps, z)
	hxm, _ := t.heightAt(x-eps, z)
	hzp, _ := t.heightAt(x, z+eps)
	hzm, _ := t.heightAt(x, z-eps)
	dhdx := (hxp - hxm) / (2 * eps)
	dhdz := (hzp - hzm) / (2 * eps)
	return Sample{
		Height:        h,
		Slope:         math.Sqrt(dhdx*dhdx + dhdz*dhdz),
		RiverDistance: rd,
	}
}

// Ground satisfies the placement engine's terrain sampler contract.
func (t *Terrain) Ground(x, z float64) (height, slope, riverDistance float64) {
	s := t.Sample(x, z)
	return s.Height, s.Slope, s.RiverDistance
}

func (t *Terrain) heightAt(x, z float64) (height, riverDistance float64) {
	c := t.river.CenterAt(z)
	w := t.river.WidthAt(z)
	half := w / 2
	rd := math.Abs(x-c) - half

	if rd < 0 {
		// Inside the channel: linear drop to -ChannelDepth at the centerline.
		return t.cfg.ChannelDepth * rd / half, rd
	}

	base := math.Min(t.cfg.ValleyMax, rd*t.cfg.ValleyRise)

	amp := t.cfg.Amplitude
	if t.AmplitudeAt != nil {
		amp *= t.AmplitudeAt(z)
	}
	// Fade relief in near the bank so the waterline stays clean.
	const bankFade = 12.0
	fade := geo.Clamp01(rd / bankFade)
	return base + t.fbm(x, z)*amp*fade, rd
}

func (t *Terrain) fbm(x, z float64) float64 {
	total := 0.0
	amp := 1.0
	norm := 0.0
	freq := t.cfg.NoiseScale
	for i := 0; i < t.cfg.Octaves; i++ {
		// Normalized noise is [0,1]; recenter to [-1,1].
		total += (t.relief.Eval2(x*freq, z*freq)*2 - 1) * amp
		norm += amp
		amp *= 0.5
		freq *= 2
	}
	return total / norm
}

// River is the centerline/width spline both the heightfield and the
// collision corridor sample.
type RiverConfig struct {
	BaseWidth    float64
	WidthVar     float64
	MeanderAmp   float64
	MeanderScale float64
	WidthScale   float64
}

type River struct {
	cfg RiverConfig
	p   *perlin.Perlin
}

func NewRiver(seed int64, cfg RiverConfig) *River {
	if cfg.MeanderScale == 0 {
		cfg.MeanderScale = 0.0015
	}
	if cfg.WidthScale == 0 {
		cfg.WidthScale = 0.004
	}
	return &River{cfg: cfg, p: perlin.NewPerlin(2, 2, 3, seed)}
}

func (r *River) CenterAt(z float64) float64 {
	if r.cfg.MeanderAmp == 0 {
		return 0
	}
	return r.cfg.MeanderAmp * r.p.Noise1D(z*r.cfg.MeanderScale)
}

func (r *River) WidthAt(z float64) float64 {
	w := r.cfg.BaseWidth
	if r.cfg.WidthVar != 0 {
		// Offset keeps the width stream decorrelated from the meander.
		w += r.cfg.WidthVar * r.p.Noise1D(z*r.cfg.WidthScale+4096)
	}
	return math.Max(w, 4)
}

// Banks returns the left and right bank x coordinates at z.
func (r *River) Banks(z float64) (left, right float64) {
	c := r.CenterAt(z)
	half := r.WidthAt(z) / 2
	return c - half, c + half
}
