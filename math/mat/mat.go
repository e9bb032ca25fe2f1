/*package mat contains routines for small symmetric matrices. Everything here
is written for the 3x3 case because that's all the deformation tensor needs,
and it is evaluated once per grid cell, so nothing allocates.
*/
package mat

import (
	"math"
)

// Component indices into a Sym3.
const (
	XX = iota
	YY
	ZZ
	XY
	XZ
	YZ
)

// Sym3 is a symmetric 3x3 matrix stored as its six independent components.
type Sym3 [6]float64

// At returns the (i, j) element.
func (m *Sym3) At(i, j int) float64 {
	if i == j {
		return m[i]
	}
	switch i + j {
	case 1:
		return m[XY]
	case 2:
		return m[XZ]
	default:
		return m[YZ]
	}
}

// Trace returns the trace of the matrix.
func (m *Sym3) Trace() float64 { return m[XX] + m[YY] + m[ZZ] }

// Determinant returns the determinant of the matrix.
func (m *Sym3) Determinant() float64 {
	return m[XX]*(m[YY]*m[ZZ]-m[YZ]*m[YZ]) -
		m[XY]*(m[XY]*m[ZZ]-m[YZ]*m[XZ]) +
		m[XZ]*(m[XY]*m[YZ]-m[YY]*m[XZ])
}

// Minors returns the sum of the principal 2x2 minors, which equals
// l1 l2 + l1 l3 + l2 l3 for eigenvalues l1, l2, l3.
func (m *Sym3) Minors() float64 {
	return m[XX]*m[YY] + m[XX]*m[ZZ] + m[YY]*m[ZZ] -
		m[XY]*m[XY] - m[XZ]*m[XZ] - m[YZ]*m[YZ]
}

// Eigenvalues returns the eigenvalues of the matrix sorted so that
// vals[0] >= vals[1] >= vals[2].
//
// The eigenvalue furthest from the other two comes from the closed-form
// trigonometric solution of the characteristic cubic, where it is accurate to
// rounding. The remaining pair is found from the 2x2 block orthogonal to its
// eigenvector, which keeps full precision when the pair is nearly degenerate.
func (m *Sym3) Eigenvalues() (vals [3]float64) {
	off := m[XY]*m[XY] + m[XZ]*m[XZ] + m[YZ]*m[YZ]
	if off == 0 {
		vals = [3]float64{m[XX], m[YY], m[ZZ]}
		sort3(&vals)
		return vals
	}

	q := m.Trace() / 3
	dx, dy, dz := m[XX]-q, m[YY]-q, m[ZZ]-q
	p := math.Sqrt((dx*dx + dy*dy + dz*dz + 2*off) / 6)

	b := Sym3{dx / p, dy / p, dz / p, m[XY] / p, m[XZ] / p, m[YZ] / p}
	r := b.Determinant() / 2
	if r <= -1 {
		r = -1
	} else if r >= 1 {
		r = 1
	}
	phi := math.Acos(r) / 3

	vals[0] = q + 2*p*math.Cos(phi)
	vals[2] = q + 2*p*math.Cos(phi+2*math.Pi/3)
	vals[1] = 3*q - vals[0] - vals[2]

	isolated := vals[0]
	if r < 0 {
		isolated = vals[2]
	}
	if lo, hi, ok := m.deflate(isolated); ok {
		vals = [3]float64{isolated, lo, hi}
	}

	sort3(&vals)
	return vals
}

// deflate returns the two eigenvalues of m other than lam, where lam is a
// simple eigenvalue. ok is false if no eigenvector of lam could be found.
func (m *Sym3) deflate(lam float64) (lo, hi float64, ok bool) {
	var rows [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			rows[i][j] = m.At(i, j)
		}
		rows[i][i] -= lam
	}

	// The eigenvector is orthogonal to every row of m - lam I.
	u, norm := [3]float64{}, 0.0
	for _, pair := range [3][2]int{{0, 1}, {0, 2}, {1, 2}} {
		c := cross(rows[pair[0]], rows[pair[1]])
		if n := dot(c, c); n > norm {
			u, norm = c, n
		}
	}
	if norm == 0 {
		return 0, 0, false
	}
	u = scale(u, 1/math.Sqrt(norm))

	// Start from the axis least aligned with u.
	axis := [3]float64{}
	k := 0
	for i := 1; i < 3; i++ {
		if math.Abs(u[i]) < math.Abs(u[k]) {
			k = i
		}
	}
	axis[k] = 1
	e1 := sub(axis, scale(u, u[k]))
	e1 = scale(e1, 1/math.Sqrt(dot(e1, e1)))
	e2 := cross(u, e1)

	me1, me2 := m.mul(e1), m.mul(e2)
	a, c, od := dot(e1, me1), dot(e2, me2), dot(e1, me2)

	mid, rad := (a+c)/2, math.Hypot((a-c)/2, od)
	return mid - rad, mid + rad, true
}

func (m *Sym3) mul(v [3]float64) [3]float64 {
	return [3]float64{
		m[XX]*v[0] + m[XY]*v[1] + m[XZ]*v[2],
		m[XY]*v[0] + m[YY]*v[1] + m[YZ]*v[2],
		m[XZ]*v[0] + m[YZ]*v[1] + m[ZZ]*v[2],
	}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func scale(a [3]float64, s float64) [3]float64 {
	return [3]float64{a[0] * s, a[1] * s, a[2] * s}
}

func sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func sort3(v *[3]float64) {
	if v[0] < v[1] {
		v[0], v[1] = v[1], v[0]
	}
	if v[1] < v[2] {
		v[1], v[2] = v[2], v[1]
	}
	if v[0] < v[1] {
		v[0], v[1] = v[1], v[0]
	}
}
