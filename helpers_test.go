package shogicam

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/golang/geo/r2"
)

// Synthetic boards: every piece is a coloured square whose red channel encodes its
// kind, with a black band on the side it points to. stubModel reads them back.

var (
	woodColor       = color.RGBA{210, 170, 90, 255}
	lineColor       = color.RGBA{30, 30, 30, 255}
	backgroundColor = color.RGBA{40, 40, 40, 255}
	bandColor       = color.RGBA{0, 0, 0, 255}
)

func kindColor(k Kind) color.RGBA {
	return color.RGBA{uint8(20 + 15*int(k)), 40, 200, 255}
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// renderCell draws one cell as seen from sente's seat.
func renderCell(dst *image.RGBA, origin image.Point, s int, l Label) {
	cell := image.Rect(0, 0, s, s).Add(origin)
	fillRect(dst, cell, woodColor)

	if !l.IsEmpty() {
		fillRect(dst, image.Rect(s/5, s/5, 4*s/5, 4*s/5).Add(origin), kindColor(l.Kind))
		band := image.Rect(s/5, s*22/100, 4*s/5, s*33/100)
		if l.Side == Gote {
			band = image.Rect(s/5, s*67/100, 4*s/5, s*78/100)
		}
		fillRect(dst, band.Add(origin), bandColor)
	}

	// two-pixel grid lines where neighbouring cells meet
	fillRect(dst, image.Rect(0, 0, s, 1).Add(origin), lineColor)
	fillRect(dst, image.Rect(0, s-1, s, s).Add(origin), lineColor)
	fillRect(dst, image.Rect(0, 0, 1, s).Add(origin), lineColor)
	fillRect(dst, image.Rect(s-1, 0, s, s).Add(origin), lineColor)
}

// renderBoard draws b in the canonical sente view.
func renderBoard(b *Board, size int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	s := size / 9
	for row := range 9 {
		for col := range 9 {
			renderCell(img, image.Pt(col*s, row*s), s, b.Cells[row][col])
		}
	}
	return img
}

// warpBoard places a canonical board image at corners of a w×h photograph.
func warpBoard(board *image.RGBA, corners Quad, w, h int) *image.RGBA {
	photo := image.NewRGBA(image.Rect(0, 0, w, h))
	fillRect(photo, photo.Bounds(), backgroundColor)

	hom, err := NewHomography(QuadFromRect(board.Bounds()), corners)
	if err != nil {
		panic(err)
	}
	size := float64(board.Bounds().Dx())
	for y := range h {
		for x := range w {
			p := hom.ApplyInverse(r2.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			if p.X < 0 || p.Y < 0 || p.X >= size || p.Y >= size {
				continue
			}
			photo.SetRGBA(x, y, sampleBilinear(board, p.X, p.Y))
		}
	}
	return photo
}

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fillRect(img, img.Bounds(), c)
	return img
}

// testBoard is a position using every kind for both sides.
func testBoard() *Board {
	b := StartingPosition()
	b.Cells[4][0] = Piece(PromotedPawn, Sente)
	b.Cells[4][1] = Piece(PromotedLance, Gote)
	b.Cells[4][2] = Piece(PromotedKnight, Sente)
	b.Cells[4][3] = Piece(PromotedSilver, Gote)
	b.Cells[4][5] = Piece(Horse, Sente)
	b.Cells[4][6] = Piece(Dragon, Gote)
	b.Cells[3][8] = Piece(Horse, Gote)
	b.Cells[5][8] = Piece(Dragon, Sente)
	b.Cells[3][0] = Piece(PromotedSilver, Sente)
	b.Cells[5][0] = Piece(PromotedKnight, Gote)
	b.Cells[3][4] = Piece(PromotedLance, Sente)
	b.Cells[5][4] = Piece(PromotedPawn, Gote)
	return b
}

// stubModel decodes renderCell's encoding from NHWC input.
type stubModel struct {
	shape   Shape
	classes int

	mu      sync.Mutex
	batches []int
}

func newStubModel(size int) *stubModel {
	return &stubModel{shape: Shape{Height: size, Width: size, Channels: 3}, classes: NumClasses}
}

func (m *stubModel) InputShape() Shape { return m.shape }

func (m *stubModel) NumClasses() int { return m.classes }

func (m *stubModel) Predict(ctx context.Context, input []float32, n int) ([]float32, error) {
	m.mu.Lock()
	m.batches = append(m.batches, n)
	m.mu.Unlock()

	per := m.shape.size()
	if len(input) != n*per {
		return nil, fmt.Errorf("input has %d values, want %d", len(input), n*per)
	}

	out := make([]float32, n*m.classes)
	for i := range n {
		img := input[i*per : (i+1)*per]
		class := m.decode(img)
		out[i*m.classes+int(class)] = 1
	}
	return out, nil
}

func (m *stubModel) pixel(img []float32, x, y int) (r, g, b float32) {
	i := (y*m.shape.Width + x) * m.shape.Channels
	return img[i] * 255, img[i+1] * 255, img[i+2] * 255
}

func (m *stubModel) decode(img []float32) ClassIndex {
	s := m.shape.Width
	r, _, b := m.pixel(img, s/2, s/2)
	if b < 150 {
		return EmptyClass
	}
	k := Kind((r - 20 + 7) / 15)
	if k < Pawn || k > Dragon {
		return EmptyClass
	}

	brightness := func(y int) float32 {
		r, g, b := m.pixel(img, s/2, y)
		return r + g + b
	}
	side := Sente
	if brightness(s*27/100) > brightness(s*72/100) {
		side = Gote
	}
	c, err := Encode(Piece(k, side))
	if err != nil {
		panic(err)
	}
	return c
}

func (m *stubModel) batchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batches...)
}

func (m *stubModel) Close() error { return nil }
