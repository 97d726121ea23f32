// Package grid converts continuous geographic coordinates to discrete
// cells and canonicalizes them flyweight style: equal grid coordinates
// always resolve to the same *Cell instance within one registry, so
// downstream code can use cells as map keys and compare by identity.
package grid

import (
	"math"

	"github.com/mohammed-shakir/geocoin-engine/internal/core/model"
)

// DefaultTileSize is the edge length of a cell in degrees.
const DefaultTileSize = 1e-4

// Cell is a discrete grid square. Instances are owned by a Registry and
// live for its lifetime.
type Cell struct {
	id model.CellID
}

func (c *Cell) ID() model.CellID { return c.id }

func (c *Cell) I() int { return c.id.I }

func (c *Cell) J() int { return c.id.J }

func (c *Cell) String() string { return c.id.String() }

// Registry owns the canonical cell instances for one game session.
// Cells are created lazily on first lookup and never deleted.
type Registry struct {
	tileSize float64
	cells    map[model.CellID]*Cell
}

func NewRegistry(tileSize float64) *Registry {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	return &Registry{
		tileSize: tileSize,
		cells:    make(map[model.CellID]*Cell),
	}
}

func (r *Registry) TileSize() float64 { return r.tileSize }

// CellForPoint resolves the cell containing a geographic point.
// math.Floor, not integer truncation: grid coordinates go negative in
// the southern and western hemispheres and must still round down.
func (r *Registry) CellForPoint(lat, lng float64) *Cell {
	i := int(math.Floor(lat / r.tileSize))
	j := int(math.Floor(lng / r.tileSize))
	return r.Canonicalize(i, j)
}

// Canonicalize returns the unique cell instance for (i, j), creating it
// on first lookup.
func (r *Registry) Canonicalize(i, j int) *Cell {
	id := model.CellID{I: i, J: j}
	if c, ok := r.cells[id]; ok {
		return c
	}
	c := &Cell{id: id}
	r.cells[id] = c
	return c
}

// CellsNear returns the (2·radius+1)² square neighborhood around origin
// in row-major order: i ascending outer, j ascending inner. Radius 0
// yields only the origin cell.
func (r *Registry) CellsNear(origin *Cell, radius int) []*Cell {
	if radius < 0 {
		radius = 0
	}
	side := 2*radius + 1
	out := make([]*Cell, 0, side*side)
	for di := -radius; di <= radius; di++ {
		for dj := -radius; dj <= radius; dj++ {
			out = append(out, r.Canonicalize(origin.id.I+di, origin.id.J+dj))
		}
	}
	return out
}

// Center returns the geographic center of a cell under this registry's
// tile size.
func (r *Registry) Center(c *Cell) model.Coordinates {
	return model.Coordinates{
		Lat: (float64(c.id.I) + 0.5) * r.tileSize,
		Lng: (float64(c.id.J) + 0.5) * r.tileSize,
	}
}

// Size reports how many cells have been canonicalized so far.
func (r *Registry) Size() int { return len(r.cells) }

// Chebyshev is the grid distance between two cells: the number of moves
// a king would need. Matches the square visibility window shape, so a
// cell is in a window of radius R exactly when Chebyshev <= R.
func Chebyshev(a, b model.CellID) int {
	di := abs(a.I - b.I)
	dj := abs(a.J - b.J)
	if di > dj {
		return di
	}
	return dj
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
