package shogicam

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestCellIndex(t *testing.T) {
	test.That(t, CellIndex(9, 1), test.ShouldEqual, 0)
	test.That(t, CellIndex(1, 1), test.ShouldEqual, 8)
	test.That(t, CellIndex(9, 2), test.ShouldEqual, 9)
	test.That(t, CellIndex(1, 9), test.ShouldEqual, 80)
}

func TestSegmentNearSide(t *testing.T) {
	b := testBoard()
	board := renderBoard(b, DefaultBoardSize)

	cells, err := Segmenter{}.Segment(board, NearSide)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(cells), test.ShouldEqual, 81)

	for i, c := range cells {
		test.That(t, CellIndex(c.File, c.Rank), test.ShouldEqual, i)
		test.That(t, c.Image.Bounds().Dx(), test.ShouldEqual, 64)
		test.That(t, c.Image.Bounds().Dy(), test.ShouldEqual, 64)
	}

	// rank 1, file 9 is the top-left cell
	test.That(t, cells[0].File, test.ShouldEqual, 9)
	test.That(t, cells[0].Rank, test.ShouldEqual, 1)
	test.That(t, sameColor(cells[0].Image.At(32, 32), kindColor(Lance)), test.ShouldBeTrue)

	// sente's king on 5i
	king := cells[CellIndex(5, 9)]
	test.That(t, sameColor(king.Image.At(32, 32), kindColor(King)), test.ShouldBeTrue)
	test.That(t, sameColor(king.Image.At(32, 17), bandColor), test.ShouldBeTrue)
}

func TestSegmentFarSide(t *testing.T) {
	board := renderBoard(StartingPosition(), DefaultBoardSize)

	cells, err := Segmenter{}.Segment(board, FarSide)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(cells), test.ShouldEqual, 81)

	// from gote's seat the top-left cell is 1i, and the image's top rank is rank 9
	c := cells[CellIndex(1, 9)]
	test.That(t, c.File, test.ShouldEqual, 1)
	test.That(t, c.Rank, test.ShouldEqual, 9)
	test.That(t, sameColor(c.Image.At(32, 32), kindColor(Lance)), test.ShouldBeTrue)

	// the cell is turned around: gote's band, drawn at the bottom, is now on top
	test.That(t, sameColor(c.Image.At(32, 17), bandColor), test.ShouldBeTrue)
	test.That(t, sameColor(c.Image.At(32, 46), kindColor(Lance)), test.ShouldBeTrue)
}

func TestSegmentRejectsBadBoards(t *testing.T) {
	_, err := Segmenter{}.Segment(image.NewRGBA(image.Rect(0, 0, 90, 99)), NearSide)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Segmenter{}.Segment(image.NewRGBA(image.Rect(0, 0, 100, 100)), NearSide)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Segmenter{}.Segment(image.NewRGBA(image.Rect(0, 0, 90, 90)), Orientation(7))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseOrientation(t *testing.T) {
	for in, want := range map[string]Orientation{"": NearSide, "sente": NearSide, "Near": NearSide, "gote": FarSide, " far ": FarSide} {
		o, err := ParseOrientation(in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, o, test.ShouldEqual, want)
	}
	_, err := ParseOrientation("sideways")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, FarSide.String(), test.ShouldEqual, "gote")
}

func sameColor(a, b color.Color) bool {
	r1, g1, b1, _ := a.RGBA()
	r2, g2, b2, _ := b.RGBA()
	return r1 == r2 && g1 == g2 && b1 == b2
}
