package shogicam

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// Orientation records which side of the table a photograph was taken from.
type Orientation int

const (
	// NearSide is a photograph from sente's seat: rank 1 at the far edge, file 9 on the left.
	NearSide Orientation = iota
	// FarSide is a photograph from gote's seat, so the board appears rotated 180°.
	FarSide
)

func (o Orientation) String() string {
	if o == FarSide {
		return "gote"
	}
	return "sente"
}

// ParseOrientation accepts "sente"/"near" (also "") and "gote"/"far".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sente", "near":
		return NearSide, nil
	case "gote", "far":
		return FarSide, nil
	}
	return NearSide, fmt.Errorf("unknown orientation %q (want sente or gote)", s)
}

// Cell is one grid square cut from the canonical board image.
type Cell struct {
	File  int // 1..9, counted from sente's right
	Rank  int // 1..9, counted from gote's back rank
	Image image.Image
}

// CellIndex is the position of (file, rank) in segmenter output and in board order:
// rank-major from rank 1, and from file 9 down to file 1 within a rank.
func CellIndex(file, rank int) int {
	return (rank-1)*9 + (9 - file)
}

// Segmenter cuts a canonical board image into its 81 cells.
type Segmenter struct{}

// Segment returns the 81 cells of board in canonical order regardless of orientation.
// For FarSide photographs every cell is also rotated 180° so pieces face the way they
// would when seen from sente's seat.
func (Segmenter) Segment(board image.Image, orientation Orientation) ([]Cell, error) {
	b := board.Bounds()
	if b.Dx() != b.Dy() {
		return nil, fmt.Errorf("board image %dx%d is not square", b.Dx(), b.Dy())
	}
	if b.Dx() == 0 || b.Dx()%9 != 0 {
		return nil, fmt.Errorf("board size %d is not a positive multiple of 9", b.Dx())
	}
	if orientation != NearSide && orientation != FarSide {
		return nil, fmt.Errorf("unknown orientation %d", int(orientation))
	}
	size := b.Dx() / 9

	cells := make([]Cell, 81)
	for row := range 9 {
		for col := range 9 {
			rect := image.Rect(col*size, row*size, (col+1)*size, (row+1)*size).Add(b.Min)
			var img image.Image = imaging.Crop(board, rect)

			rank, file := row+1, 9-col
			if orientation == FarSide {
				rank, file = 9-row, col+1
				img = imaging.Rotate180(img)
			}
			cells[CellIndex(file, rank)] = Cell{File: file, Rank: rank, Image: img}
		}
	}
	return cells, nil
}
