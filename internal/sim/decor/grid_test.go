package decor

import "testing"

func TestGrid_GroundCollision(t *testing.T) {
	g := NewGrid(8)
	g.Insert(&Placement{X: 0, Z: 0, GroundRadius: 2, Species: "pine"})

	if !g.Collides(3, 0, Params{GroundRadius: 2}, "rock") {
		t.Fatalf("distance 3 < 2+2 should collide")
	}
	if g.Collides(4.01, 0, Params{GroundRadius: 2}, "rock") {
		t.Fatalf("distance 4.01 >= 2+2 should not collide")
	}
}

func TestGrid_CanopyOnlyWhenBothHaveIt(t *testing.T) {
	g := NewGrid(8)
	g.Insert(&Placement{X: 0, Z: 0, GroundRadius: 1, CanopyRadius: 6, Species: "pine"})

	// Candidate without a canopy only checks ground.
	if g.Collides(8, 0, Params{GroundRadius: 1}, "rock") {
		t.Fatalf("no-canopy candidate should pass at distance 8")
	}
	// Candidate with a canopy collides through the canopy class.
	if !g.Collides(8, 0, Params{GroundRadius: 1, CanopyRadius: 6}, "birch") {
		t.Fatalf("canopy candidate should collide at distance 8 < 6+6")
	}
}

func TestGrid_SpeciesClassSameSpeciesOnly(t *testing.T) {
	g := NewGrid(8)
	g.Insert(&Placement{X: 0, Z: 0, GroundRadius: 1, SpeciesRadius: 10, Species: "pine"})

	if g.Collides(12, 0, Params{GroundRadius: 1, SpeciesRadius: 10}, "birch") {
		t.Fatalf("different species must not hit the species class")
	}
	if !g.Collides(12, 0, Params{GroundRadius: 1, SpeciesRadius: 10}, "pine") {
		t.Fatalf("same species should collide at 12 < 10+10")
	}
}

func TestGrid_CrossCellQuery(t *testing.T) {
	// Radii far larger than the cell size must still be found.
	g := NewGrid(4)
	g.Insert(&Placement{X: 0, Z: 0, GroundRadius: 20, Species: "boulder"})
	if !g.Collides(30, 0, Params{GroundRadius: 15}, "boulder2") {
		t.Fatalf("distance 30 < 20+15 should collide across cells")
	}
}

func TestGrid_RemoveInRange(t *testing.T) {
	g := NewGrid(8)
	for z := 0.0; z < 100; z += 10 {
		g.Insert(&Placement{X: 1, Z: z, GroundRadius: 1, Species: "s"})
	}
	if g.Len() != 10 {
		t.Fatalf("Len = %d, want 10", g.Len())
	}
	removed := g.RemoveInRange(20, 60) // z in {20,30,40,50}
	if removed != 4 {
		t.Fatalf("removed = %d, want 4", removed)
	}
	if g.Len() != 6 {
		t.Fatalf("Len after remove = %d, want 6", g.Len())
	}
	if g.Collides(1, 30, Params{GroundRadius: 1}, "s2") {
		t.Fatalf("removed placement still collides")
	}
	if !g.Collides(1, 70, Params{GroundRadius: 1}, "s2") {
		t.Fatalf("surviving placement lost")
	}
}
