package shogicam

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r2"
	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"
)

// Homography is a projective mapping between two planes, kept together with its inverse.
type Homography struct {
	fwd, inv [9]float64
}

// NewHomography computes the homography taking src[i] to dst[i]. Both point sets are
// normalized (centroid at the origin, mean distance √2) before solving, which keeps
// the 8×8 system well conditioned for pixel-sized coordinates.
func NewHomography(src, dst Quad) (*Homography, error) {
	ts, err := normalization(src)
	if err != nil {
		return nil, err
	}
	td, err := normalization(dst)
	if err != nil {
		return nil, err
	}

	var ns, nd Quad
	for i := range 4 {
		ns[i] = applyMatrix(ts, src[i])
		nd[i] = applyMatrix(td, dst[i])
	}

	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := range 4 {
		X, Y := ns[i].X, ns[i].Y
		x, y := nd[i].X, nd[i].Y
		r := 2 * i
		// x = (h0 X + h1 Y + h2) / (h6 X + h7 Y + 1)
		a.SetRow(r, []float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x})
		b.SetVec(r, x)
		// y = (h3 X + h4 Y + h5) / (h6 X + h7 Y + 1)
		a.SetRow(r+1, []float64{0, 0, 0, X, Y, 1, -X * y, -Y * y})
		b.SetVec(r+1, y)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateGeometry, err)
	}

	hn := mat.NewDense(3, 3, []float64{
		h.AtVec(0), h.AtVec(1), h.AtVec(2),
		h.AtVec(3), h.AtVec(4), h.AtVec(5),
		h.AtVec(6), h.AtVec(7), 1,
	})

	// undo the normalization: H = Td⁻¹ · Hn · Ts
	var tdInv, tmp, full mat.Dense
	if err := tdInv.Inverse(matrixDense(td)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateGeometry, err)
	}
	tmp.Mul(hn, matrixDense(ts))
	full.Mul(&tdInv, &tmp)

	var inverse mat.Dense
	if err := inverse.Inverse(&full); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDegenerateGeometry, err)
	}

	hg := &Homography{
		fwd: normalizeScale(denseArray(&full)),
		inv: normalizeScale(denseArray(&inverse)),
	}
	if !finiteArray(hg.fwd) || !finiteArray(hg.inv) {
		return nil, fmt.Errorf("%w: non-finite transform", ErrDegenerateGeometry)
	}
	return hg, nil
}

// Apply maps p from the source plane to the destination plane.
func (h *Homography) Apply(p r2.Point) r2.Point {
	return applyMatrix(h.fwd, p)
}

// ApplyInverse maps p from the destination plane back to the source plane.
func (h *Homography) ApplyInverse(p r2.Point) r2.Point {
	return applyMatrix(h.inv, p)
}

// Matrix returns the row-major forward matrix, scaled so the last entry is 1 when possible.
func (h *Homography) Matrix() [9]float64 {
	return h.fwd
}

// MapQuad maps every corner of q through the forward transform.
func (h *Homography) MapQuad(q Quad) Quad {
	var out Quad
	for i, p := range q {
		out[i] = h.Apply(p)
	}
	return out
}

func applyMatrix(m [9]float64, p r2.Point) r2.Point {
	w := m[6]*p.X + m[7]*p.Y + m[8]
	if math.Abs(w) < 1e-12 {
		return r2.Point{X: math.NaN(), Y: math.NaN()}
	}
	return r2.Point{
		X: (m[0]*p.X + m[1]*p.Y + m[2]) / w,
		Y: (m[3]*p.X + m[4]*p.Y + m[5]) / w,
	}
}

func normalization(q Quad) ([9]float64, error) {
	c := q.Centroid()
	mean := 0.0
	for _, p := range q {
		mean += p.Sub(c).Norm()
	}
	mean /= 4
	if mean < 1e-9 || math.IsNaN(mean) || math.IsInf(mean, 0) {
		return [9]float64{}, fmt.Errorf("%w: corners collapse to a point", ErrDegenerateGeometry)
	}
	s := math.Sqrt2 / mean
	return [9]float64{
		s, 0, -s * c.X,
		0, s, -s * c.Y,
		0, 0, 1,
	}, nil
}

func matrixDense(m [9]float64) *mat.Dense {
	return mat.NewDense(3, 3, m[:])
}

func denseArray(d *mat.Dense) [9]float64 {
	var out [9]float64
	for r := range 3 {
		for c := range 3 {
			out[r*3+c] = d.At(r, c)
		}
	}
	return out
}

func normalizeScale(m [9]float64) [9]float64 {
	if math.Abs(m[8]) < 1e-12 {
		return m
	}
	s := m[8]
	for i := range m {
		m[i] /= s
	}
	return m
}

func finiteArray(m [9]float64) bool {
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// toRGBA returns img as an *image.RGBA anchored at the origin, copying only when needed.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// sampleBilinear reads src at a continuous position. Pixel centres sit at half-integer
// coordinates; positions past the border clamp to the nearest edge pixel.
func sampleBilinear(src *image.RGBA, x, y float64) color.RGBA {
	b := src.Rect
	x -= 0.5
	y -= 0.5
	x0f := math.Floor(x)
	y0f := math.Floor(y)
	fx := x - x0f
	fy := y - y0f

	x0 := clampInt(int(x0f), b.Min.X, b.Max.X-1)
	x1 := clampInt(int(x0f)+1, b.Min.X, b.Max.X-1)
	y0 := clampInt(int(y0f), b.Min.Y, b.Max.Y-1)
	y1 := clampInt(int(y0f)+1, b.Min.Y, b.Max.Y-1)

	p00 := src.PixOffset(x0, y0)
	p10 := src.PixOffset(x1, y0)
	p01 := src.PixOffset(x0, y1)
	p11 := src.PixOffset(x1, y1)

	var out [4]uint8
	for c := range 4 {
		top := lerp(float64(src.Pix[p00+c]), float64(src.Pix[p10+c]), fx)
		bottom := lerp(float64(src.Pix[p01+c]), float64(src.Pix[p11+c]), fx)
		v := lerp(top, bottom, fy)
		out[c] = uint8(math.Max(0, math.Min(255, math.Round(v))))
	}
	return color.RGBA{R: out[0], G: out[1], B: out[2], A: out[3]}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
