package decor

// Fitness scores a candidate point in [0,1]: 0 means ineligible, and any
// positive value doubles as the Bernoulli acceptance probability.
type Fitness func(*Env) float64

func Constant(v float64) Fitness {
	return func(*Env) float64 { return v }
}

// Step is a hard threshold: below the cut returns lo, at or above hi.
func Step(f Field, threshold, below, above float64) Fitness {
	return func(e *Env) float64 {
		if f(e) < threshold {
			return below
		}
		return above
	}
}

// InRange gates on a half-open interval [lo, hi).
func InRange(f Field, lo, hi float64) Fitness {
	return func(e *Env) float64 {
		v := f(e)
		if v < lo || v >= hi {
			return 0
		}
		return 1
	}
}

// EaseIn ramps linearly from 0 at `from` to 1 at `to`; clamped outside.
// from > to is allowed and produces the mirrored ramp.
func EaseIn(f Field, from, to float64) Fitness {
	return func(e *Env) float64 {
		return ramp(f(e), from, to)
	}
}

// EaseOut ramps linearly from 1 at `from` to 0 at `to`; clamped outside.
func EaseOut(f Field, from, to float64) Fitness {
	return func(e *Env) float64 {
		return 1 - ramp(f(e), from, to)
	}
}

func ramp(v, from, to float64) float64 {
	if from == to {
		if v < from {
			return 0
		}
		return 1
	}
	t := (v - from) / (to - from)
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

// Noise samples the run's seeded 2D noise field, remapped from [0,1]
// onto [lo, hi] and clamped to [0,1] after remapping. A [lo,hi] wider
// than [0,1] sharpens the field into plateaus, which is how clustered
// stands (groves, scree fields) are expressed.
func Noise(scale, lo, hi float64) Fitness {
	return func(e *Env) float64 {
		v := lo + e.NoiseAt(scale)*(hi-lo)
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
}

// All multiplies sub-fitnesses: an AND of probabilities. Any zero term
// vetoes the candidate.
func All(fs ...Fitness) Fitness {
	return func(e *Env) float64 {
		p := 1.0
		for _, f := range fs {
			p *= f(e)
			if p == 0 {
				return 0
			}
		}
		return p
	}
}

// Any takes the max of sub-fitnesses: an OR of conditions.
func Any(fs ...Fitness) Fitness {
	return func(e *Env) float64 {
		best := 0.0
		for _, f := range fs {
			if v := f(e); v > best {
				best = v
			}
		}
		return best
	}
}
