package shogicam

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	markColor = color.RGBA{255, 0, 0, 255}
	gridColor = color.RGBA{0, 0, 0, 255}
	senteText = color.RGBA{0, 0, 255, 255}
	goteText  = color.RGBA{255, 0, 0, 255}
)

// DrawCorners copies img and marks the outline's corners and sides.
func DrawCorners(img image.Image, corners Quad) *image.RGBA {
	dst := cloneRGBA(img)

	pts := corners.Points()
	for i, p := range pts {
		q := pts[(i+1)%4]
		drawLine(dst, p, q, markColor)
		drawCircle(dst, p.X, p.Y, 10, markColor)
		drawCross(dst, p.X, p.Y, 15, markColor)
	}
	return dst
}

// DrawAnalysis renders the rectified board with its grid and each cell's label, as
// seen in the photograph.
func DrawAnalysis(a *Analysis) *image.RGBA {
	b := a.Rectified.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), a.Rectified, b.Min, draw.Src)

	size := b.Dx()
	cell := size / 9
	for i := 0; i <= 9; i++ {
		at := min(i*cell, size-1)
		for j := range size {
			dst.Set(at, j, gridColor)
			dst.Set(j, at, gridColor)
		}
	}

	for row := range 9 {
		for col := range 9 {
			rank, file := row+1, 9-col
			if a.Orientation == FarSide {
				rank, file = 9-row, col+1
			}
			l := a.Board.Cells[rank-1][9-file]
			if l.IsEmpty() {
				continue
			}
			c := senteText
			if l.Side == Gote {
				c = goteText
			}
			name := l.String()
			drawString(dst, col*cell+cell/2-len(name)*7/2, row*cell+cell/2+4, name, c)
		}
	}
	return dst
}

// cloneRGBA copies img keeping its bounds.
func cloneRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}

func drawString(dst *image.RGBA, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

func drawLine(img *image.RGBA, a, b image.Point, c color.Color) {
	steps := max(abs(b.X-a.X), abs(b.Y-a.Y))
	for i := 0; i <= steps; i++ {
		t := 0.0
		if steps > 0 {
			t = float64(i) / float64(steps)
		}
		x := int(math.Round(lerp(float64(a.X), float64(b.X), t)))
		y := int(math.Round(lerp(float64(a.Y), float64(b.Y), t)))
		if (image.Point{x, y}).In(img.Bounds()) {
			img.Set(x, y, c)
		}
	}
}

func drawCircle(img *image.RGBA, cx, cy, radius int, c color.Color) {
	for angle := 0.0; angle < 360; angle += 1 {
		x := cx + int(float64(radius)*math.Cos(angle*math.Pi/180))
		y := cy + int(float64(radius)*math.Sin(angle*math.Pi/180))
		if (image.Point{x, y}).In(img.Bounds()) {
			img.Set(x, y, c)
		}
	}
}

func drawCross(img *image.RGBA, cx, cy, size int, c color.Color) {
	for d := -size; d <= size; d++ {
		if p := (image.Point{cx + d, cy}); p.In(img.Bounds()) {
			img.Set(p.X, p.Y, c)
		}
		if p := (image.Point{cx, cy + d}); p.In(img.Bounds()) {
			img.Set(p.X, p.Y, c)
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
