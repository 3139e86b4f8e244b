package shogicam

import (
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestStartingPosition(t *testing.T) {
	b := StartingPosition()
	test.That(t, b.SFEN(), test.ShouldEqual, "lnsgkgsnl/1r5b1/ppppppppp/9/9/9/PPPPPPPPP/1B5R1/LNSGKGSNL")

	l, err := b.At(5, 9)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l, test.ShouldResemble, Piece(King, Sente))

	l, err = b.At(8, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l, test.ShouldResemble, Piece(Rook, Gote))

	l, err = b.At(2, 8)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l, test.ShouldResemble, Piece(Rook, Sente))

	_, err = b.At(0, 5)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = b.At(5, 10)
	test.That(t, err, test.ShouldNotBeNil)

	// the starting position looks the same from either side
	test.That(t, b.Flip().Cells, test.ShouldResemble, b.Cells)
}

func TestBoardString(t *testing.T) {
	rows := StartingPosition().Rows()
	test.That(t, len(rows), test.ShouldEqual, 9)
	test.That(t, rows[0], test.ShouldEqual, "-KY -KE -GI -KI -OU -KI -GI -KE -KY")
	test.That(t, rows[4], test.ShouldEqual, strings.TrimSuffix(strings.Repeat(" *  ", 9), " "))

	lines := strings.Split(StartingPosition().String(), "\n")
	test.That(t, lines, test.ShouldResemble, rows)
}

func TestBoardSFENPromoted(t *testing.T) {
	b := &Board{}
	b.Cells[0][0] = Piece(Dragon, Gote)
	b.Cells[0][8] = Piece(PromotedPawn, Sente)
	b.Cells[8][4] = Piece(King, Sente)
	test.That(t, b.SFEN(), test.ShouldEqual, "+r7+P/9/9/9/9/9/9/9/4K4")

	labels := b.Labels()
	test.That(t, len(labels), test.ShouldEqual, 81)
	round, err := boardFromLabels(labels, 0.5)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, round.Cells, test.ShouldResemble, b.Cells)

	_, err = boardFromLabels(labels[:80], 0.5)
	test.That(t, err, test.ShouldNotBeNil)
}
