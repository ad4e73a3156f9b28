package geo

import "testing"

func TestChunkIndex_NegativeFloors(t *testing.T) {
	cases := []struct {
		z    float64
		want int
	}{
		{0, 0},
		{63.9, 0},
		{64, 1},
		{-0.1, -1},
		{-64, -1},
		{-64.1, -2},
	}
	for _, c := range cases {
		if got := ChunkIndex(c.z, 64); got != c.want {
			t.Fatalf("ChunkIndex(%v): got %d want %d", c.z, got, c.want)
		}
	}
}

func TestHash2_SeedAndCoordSensitive(t *testing.T) {
	a := Hash2(1, 10, 20)
	if a != Hash2(1, 10, 20) {
		t.Fatalf("Hash2 not stable")
	}
	if a == Hash2(2, 10, 20) {
		t.Fatalf("Hash2 ignores seed")
	}
	if a == Hash2(1, 20, 10) {
		t.Fatalf("Hash2 symmetric in x/z")
	}
}

func TestUnit_Range(t *testing.T) {
	for k := -100; k < 100; k++ {
		u := Unit(Hash1(42, k))
		if u < 0 || u >= 1 {
			t.Fatalf("Unit out of [0,1): %v", u)
		}
	}
}

func TestHashString_DistinctLabels(t *testing.T) {
	if HashString(7, "pine") == HashString(7, "birch") {
		t.Fatalf("label collision")
	}
	if HashString(7, "pine") == HashString(8, "pine") {
		t.Fatalf("seed ignored")
	}
}
