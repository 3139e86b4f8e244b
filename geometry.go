package shogicam

import (
	"fmt"
	"image"
	"math"

	"github.com/golang/geo/r2"
)

// minQuadArea is the smallest outline, in square pixels, that can carry a board.
const minQuadArea = 1.0

// Quad is a board outline in continuous image coordinates, where pixel (x, y) covers
// [x, x+1) × [y, y+1). Points run clockwise on screen: top-left, top-right,
// bottom-right, bottom-left.
type Quad [4]r2.Point

// QuadFromRect returns the outline of a rectangle, e.g. the full frame of an image.
func QuadFromRect(r image.Rectangle) Quad {
	return Quad{
		{X: float64(r.Min.X), Y: float64(r.Min.Y)},
		{X: float64(r.Max.X), Y: float64(r.Min.Y)},
		{X: float64(r.Max.X), Y: float64(r.Max.Y)},
		{X: float64(r.Min.X), Y: float64(r.Max.Y)},
	}
}

// signedArea is positive for clockwise-on-screen outlines.
func (q Quad) signedArea() float64 {
	a := 0.0
	for i := range 4 {
		a += q[i].Cross(q[(i+1)%4])
	}
	return a / 2
}

// Area returns the enclosed area in square pixels.
func (q Quad) Area() float64 {
	return math.Abs(q.signedArea())
}

// Validate reports whether q is a finite, non-degenerate, convex quadrilateral in
// the expected corner order. Failures wrap ErrDegenerateGeometry.
func (q Quad) Validate() error {
	for i, p := range q {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return fmt.Errorf("%w: corner %d is not finite", ErrDegenerateGeometry, i)
		}
	}

	area := q.signedArea()
	if math.Abs(area) < minQuadArea {
		return fmt.Errorf("%w: area %.3f too small", ErrDegenerateGeometry, area)
	}
	if area < 0 {
		return fmt.Errorf("%w: corners are not clockwise", ErrDegenerateGeometry)
	}

	// every turn must go the same way, which also rules out self-intersection
	for i := range 4 {
		e0 := q[(i+1)%4].Sub(q[i])
		e1 := q[(i+2)%4].Sub(q[(i+1)%4])
		if e0.Norm() == 0 {
			return fmt.Errorf("%w: corners %d and %d coincide", ErrDegenerateGeometry, i, (i+1)%4)
		}
		if e0.Cross(e1) <= 1e-9*e0.Norm()*e1.Norm() {
			return fmt.Errorf("%w: not convex at corner %d", ErrDegenerateGeometry, (i+1)%4)
		}
	}
	return nil
}

// Scale multiplies every coordinate by f.
func (q Quad) Scale(f float64) Quad {
	var out Quad
	for i, p := range q {
		out[i] = p.Mul(f)
	}
	return out
}

// Centroid is the mean of the four corners.
func (q Quad) Centroid() r2.Point {
	c := r2.Point{}
	for _, p := range q {
		c = c.Add(p)
	}
	return c.Mul(0.25)
}

// Points rounds the corners to pixel positions, e.g. for drawing.
func (q Quad) Points() []image.Point {
	out := make([]image.Point, 4)
	for i, p := range q {
		out[i] = image.Point{X: int(math.Round(p.X)), Y: int(math.Round(p.Y))}
	}
	return out
}

// sideLengths returns the top, right, bottom and left edge lengths.
func (q Quad) sideLengths() (top, right, bottom, left float64) {
	return q[1].Sub(q[0]).Norm(), q[2].Sub(q[1]).Norm(), q[3].Sub(q[2]).Norm(), q[0].Sub(q[3]).Norm()
}

// within reports whether every corner lies inside r grown by margin pixels.
func (q Quad) within(r image.Rectangle, margin float64) bool {
	for _, p := range q {
		if p.X < float64(r.Min.X)-margin || p.X > float64(r.Max.X)+margin ||
			p.Y < float64(r.Min.Y)-margin || p.Y > float64(r.Max.Y)+margin {
			return false
		}
	}
	return true
}
