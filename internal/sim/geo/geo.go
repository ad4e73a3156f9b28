package geo

import "math"

// ChunkIndex maps a world z coordinate onto the integer chunk index
// for the given chunk size. Negative coordinates floor toward -inf.
func ChunkIndex(z, size float64) int {
	return int(math.Floor(z / size))
}

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func AbsInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
