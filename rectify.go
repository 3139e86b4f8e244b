package shogicam

import (
	"fmt"
	"image"

	"github.com/golang/geo/r2"
)

// DefaultBoardSize is the side of the canonical board image: nine cells of 64 pixels.
const DefaultBoardSize = 9 * 64

// Rectifier warps a board outline onto a fixed-size, axis-aligned square.
type Rectifier struct {
	size int
}

// NewRectifier returns a rectifier producing size×size images. size must be a positive
// multiple of 9 so cell boundaries fall on whole pixels.
func NewRectifier(size int) (*Rectifier, error) {
	if size <= 0 || size%9 != 0 {
		return nil, fmt.Errorf("board size %d must be a positive multiple of 9", size)
	}
	return &Rectifier{size: size}, nil
}

// Size is the side of the canonical image in pixels.
func (r *Rectifier) Size() int {
	return r.size
}

// Target is the canonical square the corners are mapped onto.
func (r *Rectifier) Target() Quad {
	return QuadFromRect(image.Rect(0, 0, r.size, r.size))
}

// Transform returns the homography from photograph coordinates to canonical coordinates.
func (r *Rectifier) Transform(corners Quad) (*Homography, error) {
	if err := corners.Validate(); err != nil {
		return nil, err
	}
	return NewHomography(corners, r.Target())
}

// Rectify resamples the region inside corners into the canonical square image.
// An unusable outline is a caller error and comes back wrapping ErrDegenerateGeometry.
func (r *Rectifier) Rectify(img image.Image, corners Quad) (*image.RGBA, error) {
	h, err := r.Transform(corners)
	if err != nil {
		return nil, err
	}

	src := toRGBA(img)
	// corners are in img's coordinate space; src is anchored at the origin
	off := r2.Point{X: float64(img.Bounds().Min.X), Y: float64(img.Bounds().Min.Y)}

	out := image.NewRGBA(image.Rect(0, 0, r.size, r.size))
	for y := range r.size {
		for x := range r.size {
			p := h.ApplyInverse(r2.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}).Sub(off)
			c := sampleBilinear(src, p.X, p.Y)
			i := out.PixOffset(x, y)
			out.Pix[i+0] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
			out.Pix[i+3] = c.A
		}
	}
	return out, nil
}
