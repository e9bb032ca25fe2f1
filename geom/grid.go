/*package geom provides a periodic cubic lattice which lets the rest of the
pipeline reason about 1D slices as if they were 3D grids, along with the
wavenumbers of the lattice's Fourier modes.
*/
package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGridSize is returned when a grid cannot be built or transformed
// at the requested size.
var ErrInvalidGridSize = errors.New("invalid grid size")

// Vec is a point or displacement in box coordinates.
type Vec [3]float64

// Grid is a periodic Cells x Cells x Cells lattice of width BoxWidth. Index
// ordering is x-major: idx = x + y*Cells + z*Cells^2.
type Grid struct {
	Cells    int
	BoxWidth float64

	Length, Area, Volume int
}

// NewGrid returns a new Grid instance.
func NewGrid(cells int, boxWidth float64) (*Grid, error) {
	if cells < 2 {
		return nil, fmt.Errorf(
			"%w: need at least 2 cells on a side, but got %d",
			ErrInvalidGridSize, cells,
		)
	} else if !(boxWidth > 0) || math.IsInf(boxWidth, 0) {
		return nil, fmt.Errorf(
			"%w: box width must be positive and finite, but is %g",
			ErrInvalidGridSize, boxWidth,
		)
	}

	g := &Grid{}
	g.Init(cells, boxWidth)
	return g, nil
}

// Init initializes a Grid instance. It does no validation.
func (g *Grid) Init(cells int, boxWidth float64) {
	g.Cells = cells
	g.BoxWidth = boxWidth

	g.Length = cells
	g.Area = cells * cells
	g.Volume = cells * cells * cells
}

// CellWidth returns the width of a single cell.
func (g *Grid) CellWidth() float64 { return g.BoxWidth / float64(g.Cells) }

// Idx returns the grid index corresponding to a set of coordinates.
func (g *Grid) Idx(x, y, z int) int {
	return x + y*g.Length + z*g.Area
}

// WrapIdx returns the grid index of a set of coordinates which may lie
// outside the grid.
func (g *Grid) WrapIdx(x, y, z int) int {
	return g.Idx(pMod(x, g.Cells), pMod(y, g.Cells), pMod(z, g.Cells))
}

// Coords returns the x, y, z coordinates of a point from its grid index.
func (g *Grid) Coords(idx int) (x, y, z int) {
	x = idx % g.Length
	y = (idx % g.Area) / g.Length
	z = idx / g.Area
	return x, y, z
}

// CellCenter returns the Lagrangian position of the center of a cell.
func (g *Grid) CellCenter(idx int) Vec {
	x, y, z := g.Coords(idx)
	dx := g.CellWidth()
	return Vec{
		(float64(x) + 0.5) * dx,
		(float64(y) + 0.5) * dx,
		(float64(z) + 0.5) * dx,
	}
}

// Wrap returns the position inside [0, BoxWidth) which is equivalent to x
// under periodic boundary conditions.
func (g *Grid) Wrap(x float64) float64 {
	L := g.BoxWidth
	m := math.Mod(x, L)
	if m < 0 {
		m += L
	}
	// m + L can round up to exactly L for tiny negative m.
	if m >= L {
		m = 0
	}
	return m
}

// pMod computes the positive modulo x % y.
func pMod(x, y int) int {
	m := x % y
	if m < 0 {
		m += y
	}
	return m
}
