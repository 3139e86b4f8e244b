package shogicam

import (
	"fmt"
	"strconv"
	"strings"
)

// Board is the recognised position, viewed from sente: Cells[row][col] is rank row+1,
// file 9-col.
type Board struct {
	Cells [9][9]Label
	// Score is the corner detector's confidence, or 1 for caller-supplied corners.
	Score float64
}

// StartingPosition returns the standard initial setup.
func StartingPosition() *Board {
	b := &Board{Score: 1}
	back := [9]Kind{Lance, Knight, Silver, Gold, King, Gold, Silver, Knight, Lance}
	for col, k := range back {
		b.Cells[0][col] = Piece(k, Gote)
		b.Cells[8][col] = Piece(k, Sente)
	}
	for col := range 9 {
		b.Cells[2][col] = Piece(Pawn, Gote)
		b.Cells[6][col] = Piece(Pawn, Sente)
	}
	// gote's rook sits on file 8, bishop on file 2; sente's mirror that
	b.Cells[1][1] = Piece(Rook, Gote)
	b.Cells[1][7] = Piece(Bishop, Gote)
	b.Cells[7][1] = Piece(Bishop, Sente)
	b.Cells[7][7] = Piece(Rook, Sente)
	return b
}

// boardFromLabels lays out 81 labels in cell order.
func boardFromLabels(labels []Label, score float64) (*Board, error) {
	if len(labels) != 81 {
		return nil, fmt.Errorf("need 81 labels, got %d", len(labels))
	}
	b := &Board{Score: score}
	for i, l := range labels {
		b.Cells[i/9][i%9] = l
	}
	return b, nil
}

// At returns the label on (file, rank), both 1..9.
func (b *Board) At(file, rank int) (Label, error) {
	if file < 1 || file > 9 || rank < 1 || rank > 9 {
		return Empty, fmt.Errorf("no square %d%d", file, rank)
	}
	return b.Cells[rank-1][9-file], nil
}

// Labels returns the 81 labels in cell order.
func (b *Board) Labels() []Label {
	out := make([]Label, 0, 81)
	for _, row := range b.Cells {
		out = append(out, row[:]...)
	}
	return out
}

// Rows renders each rank as space separated labels, rank 1 first.
func (b *Board) Rows() []string {
	rows := make([]string, 9)
	for r, row := range b.Cells {
		names := make([]string, 9)
		for c, l := range row {
			names[c] = l.String()
		}
		rows[r] = strings.Join(names, " ")
	}
	return rows
}

func (b *Board) String() string {
	return strings.Join(b.Rows(), "\n")
}

// SFEN returns the piece placement field of an SFEN record.
func (b *Board) SFEN() string {
	var sb strings.Builder
	for r, row := range b.Cells {
		if r > 0 {
			sb.WriteByte('/')
		}
		run := 0
		for _, l := range row {
			if l.IsEmpty() {
				run++
				continue
			}
			if run > 0 {
				sb.WriteString(strconv.Itoa(run))
				run = 0
			}
			sb.WriteString(l.SFEN())
		}
		if run > 0 {
			sb.WriteString(strconv.Itoa(run))
		}
	}
	return sb.String()
}

// Flip returns the position as seen from the other side: rotated 180° with every
// piece changing owner.
func (b *Board) Flip() *Board {
	out := &Board{Score: b.Score}
	for r := range 9 {
		for c := range 9 {
			out.Cells[8-r][8-c] = b.Cells[r][c].Flip()
		}
	}
	return out
}
