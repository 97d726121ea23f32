package grid

import (
	"testing"

	"github.com/mohammed-shakir/geocoin-engine/internal/core/model"
)

func TestCellForPoint_Canonicalization(t *testing.T) {
	r := NewRegistry(1e-4)

	a := r.CellForPoint(36.9895, -122.0628)
	b := r.CellForPoint(36.9895, -122.0628)
	if a != b {
		t.Fatalf("same point must return the same *Cell instance")
	}

	// Two distinct points inside the same tile share the instance.
	c := r.CellForPoint(36.98951, -122.06271)
	d := r.CellForPoint(36.98959, -122.06279)
	if c != d {
		t.Fatalf("points flooring to the same (i,j) must share the instance: %v vs %v", c.ID(), d.ID())
	}
}

func TestCellForPoint_NegativeCoordinatesFloor(t *testing.T) {
	r := NewRegistry(1e-4)

	cases := []struct {
		lat, lng float64
		wantI    int
		wantJ    int
	}{
		{0, 0, 0, 0},
		{-0.00005, -0.00005, -1, -1}, // truncation toward zero would give (0,0)
		{-0.0001, -0.0001, -1, -1},
		{-0.00011, 0.00011, -2, 1},
		{0.00025, -0.00025, 2, -3},
	}
	for _, tc := range cases {
		got := r.CellForPoint(tc.lat, tc.lng).ID()
		want := model.CellID{I: tc.wantI, J: tc.wantJ}
		if got != want {
			t.Errorf("CellForPoint(%v,%v)=%v want %v", tc.lat, tc.lng, got, want)
		}
	}
}

func TestCanonicalize_DistinctNegativePairs(t *testing.T) {
	r := NewRegistry(1e-4)

	// A formatted-string key like "1-2" vs "-12" could collide; the
	// composite key must not.
	a := r.Canonicalize(1, -2)
	b := r.Canonicalize(-1, 2)
	if a == b {
		t.Fatalf("distinct coordinates canonicalized to the same cell")
	}
	if a != r.Canonicalize(1, -2) {
		t.Fatalf("canonicalize not stable for negative coordinates")
	}
}

func TestCellsNear_RowMajorOrder(t *testing.T) {
	r := NewRegistry(1e-4)
	origin := r.Canonicalize(10, -5)

	cells := r.CellsNear(origin, 1)
	if len(cells) != 9 {
		t.Fatalf("len=%d want 9", len(cells))
	}
	want := []model.CellID{
		{I: 9, J: -6}, {I: 9, J: -5}, {I: 9, J: -4},
		{I: 10, J: -6}, {I: 10, J: -5}, {I: 10, J: -4},
		{I: 11, J: -6}, {I: 11, J: -5}, {I: 11, J: -4},
	}
	for i, c := range cells {
		if c.ID() != want[i] {
			t.Fatalf("cells[%d]=%v want %v", i, c.ID(), want[i])
		}
	}
}

func TestCellsNear_RadiusZero(t *testing.T) {
	r := NewRegistry(1e-4)
	origin := r.Canonicalize(3, 4)

	cells := r.CellsNear(origin, 0)
	if len(cells) != 1 || cells[0] != origin {
		t.Fatalf("radius 0 must return exactly the origin, got %d cells", len(cells))
	}
}

func TestCellsNear_SizeGrowsQuadratically(t *testing.T) {
	r := NewRegistry(1e-4)
	origin := r.Canonicalize(0, 0)

	for radius := 0; radius <= 4; radius++ {
		side := 2*radius + 1
		if got := len(r.CellsNear(origin, radius)); got != side*side {
			t.Fatalf("radius %d: len=%d want %d", radius, got, side*side)
		}
	}
}

func TestChebyshev(t *testing.T) {
	cases := []struct {
		a, b model.CellID
		want int
	}{
		{model.CellID{I: 0, J: 0}, model.CellID{I: 0, J: 0}, 0},
		{model.CellID{I: 0, J: 0}, model.CellID{I: 3, J: 1}, 3},
		{model.CellID{I: -2, J: 5}, model.CellID{I: 1, J: 9}, 4},
		{model.CellID{I: -3, J: -3}, model.CellID{I: 3, J: 3}, 6},
	}
	for _, tc := range cases {
		if got := Chebyshev(tc.a, tc.b); got != tc.want {
			t.Errorf("Chebyshev(%v,%v)=%d want %d", tc.a, tc.b, got, tc.want)
		}
		if got := Chebyshev(tc.b, tc.a); got != tc.want {
			t.Errorf("Chebyshev must be symmetric for %v,%v", tc.a, tc.b)
		}
	}
}

func TestCenter_RoundTripsIntoSameCell(t *testing.T) {
	r := NewRegistry(1e-4)
	for _, id := range []model.CellID{{I: 0, J: 0}, {I: -7, J: 12}, {I: 369894, J: -1220628}} {
		c := r.Canonicalize(id.I, id.J)
		center := r.Center(c)
		if back := r.CellForPoint(center.Lat, center.Lng); back != c {
			t.Errorf("center of %v resolves to %v", id, back.ID())
		}
	}
}
