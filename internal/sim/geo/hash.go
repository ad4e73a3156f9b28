package geo

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash1 hashes a single lattice coordinate under a seed.
func Hash1(seed int64, k int) uint64 {
	uk := uint64(uint32(int32(k)))
	return mix64(uint64(seed) ^ (uk * 0x9e3779b97f4a7c15))
}

// Hash2 hashes a 2D lattice coordinate under a seed.
func Hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	return mix64(uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9))
}

// HashString folds a label into a seed so that per-rule RNG streams
// never collide across rules sharing one chunk seed.
func HashString(seed int64, s string) uint64 {
	v := uint64(seed)
	for i := 0; i < len(s); i++ {
		v = (v ^ uint64(s[i])) * 0x100000001b3
	}
	return mix64(v)
}

// Unit maps a hash onto [0,1).
func Unit(h uint64) float64 {
	return float64(h>>11) / float64(1<<53)
}
