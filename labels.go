package shogicam

import (
	"fmt"
	"strings"
)

// Side is the owner of a piece.
type Side int

const (
	Sente Side = iota
	Gote
)

func (s Side) String() string {
	if s == Gote {
		return "gote"
	}
	return "sente"
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == Sente {
		return Gote
	}
	return Sente
}

// Kind is a piece type, promoted kinds included. The zero Kind is no piece.
type Kind int

const (
	NoKind Kind = iota
	Pawn
	Lance
	Knight
	Silver
	Gold
	Bishop
	Rook
	King
	PromotedPawn
	PromotedLance
	PromotedKnight
	PromotedSilver
	Horse
	Dragon
)

// numKinds counts the real piece kinds, NoKind excluded. Kept untyped so it mixes
// with both Kind and ClassIndex.
const numKinds = 14

var kindCSA = [...]string{"", "FU", "KY", "KE", "GI", "KI", "KA", "HI", "OU", "TO", "NY", "NK", "NG", "UM", "RY"}

var kindKanji = [...]string{"", "歩", "香", "桂", "銀", "金", "角", "飛", "玉", "と", "杏", "圭", "全", "馬", "龍"}

// kindSFEN holds the sente letter; promoted kinds carry a leading '+'.
var kindSFEN = [...]string{"", "P", "L", "N", "S", "G", "B", "R", "K", "+P", "+L", "+N", "+S", "+B", "+R"}

func (k Kind) valid() bool {
	return k > NoKind && k <= Dragon
}

// CSA is the two-letter CSA code, e.g. "FU".
func (k Kind) CSA() string {
	if !k.valid() {
		return ""
	}
	return kindCSA[k]
}

func (k Kind) String() string {
	return k.CSA()
}

// Label is the content of one board cell: empty, or a piece kind and its owner.
type Label struct {
	Kind Kind
	Side Side
}

// Empty is the label of a cell without a piece.
var Empty = Label{}

// Piece builds the label for a piece of kind k owned by side.
func Piece(k Kind, side Side) Label {
	return Label{Kind: k, Side: side}
}

// IsEmpty reports whether the cell holds no piece.
func (l Label) IsEmpty() bool {
	return l.Kind == NoKind
}

// Flip swaps the owner of a piece; empty cells stay empty.
func (l Label) Flip() Label {
	if l.IsEmpty() {
		return l
	}
	return Label{Kind: l.Kind, Side: l.Side.Opponent()}
}

// String renders CSA notation: "+FU" for a sente pawn, "-HI" for a gote rook, " * " for empty.
func (l Label) String() string {
	if l.IsEmpty() {
		return " * "
	}
	if l.Side == Gote {
		return "-" + l.Kind.CSA()
	}
	return "+" + l.Kind.CSA()
}

// Kanji renders the label the way a printed diagram does, gote pieces prefixed with "v".
func (l Label) Kanji() string {
	if l.IsEmpty() {
		return " ・"
	}
	if l.Side == Gote {
		return "v" + kindKanji[l.Kind]
	}
	return " " + kindKanji[l.Kind]
}

// SFEN renders the piece letter; gote pieces are lower case.
func (l Label) SFEN() string {
	if l.IsEmpty() {
		return ""
	}
	s := kindSFEN[l.Kind]
	if l.Side == Gote {
		return strings.ToLower(s)
	}
	return s
}

// ParseLabel reads CSA notation as produced by Label.String. "*" and " * " are empty.
func ParseLabel(s string) (Label, error) {
	t := strings.TrimSpace(s)
	if t == "*" || t == "" {
		return Empty, nil
	}
	if len(t) != 3 {
		return Empty, fmt.Errorf("bad label %q", s)
	}
	var side Side
	switch t[0] {
	case '+':
		side = Sente
	case '-':
		side = Gote
	default:
		return Empty, fmt.Errorf("bad label %q: side must be + or -", s)
	}
	code := strings.ToUpper(t[1:])
	for k := Pawn; k <= Dragon; k++ {
		if kindCSA[k] == code {
			return Piece(k, side), nil
		}
	}
	return Empty, fmt.Errorf("bad label %q: unknown piece %s", s, code)
}

// ClassIndex is a classifier output class. It only has meaning through the fixed
// vocabulary below, which the model's output layer is trained against.
type ClassIndex int

const (
	// NumClasses is the vocabulary size: every kind for both sides plus empty.
	NumClasses = 2*numKinds + 1

	// EmptyClass is reserved for empty cells and shared by no piece.
	EmptyClass ClassIndex = NumClasses - 1
)

// Encode returns the class index of l. Sente pieces occupy 0..13 and gote pieces
// 14..27, both in Kind order; EmptyClass is last.
func Encode(l Label) (ClassIndex, error) {
	if l.IsEmpty() {
		return EmptyClass, nil
	}
	if !l.Kind.valid() {
		return 0, fmt.Errorf("unknown piece kind %d", int(l.Kind))
	}
	idx := ClassIndex(l.Kind - Pawn)
	switch l.Side {
	case Sente:
	case Gote:
		idx += numKinds
	default:
		return 0, fmt.Errorf("unknown side %d", int(l.Side))
	}
	return idx, nil
}

// Decode returns the label for class index c.
func Decode(c ClassIndex) (Label, error) {
	switch {
	case c == EmptyClass:
		return Empty, nil
	case c >= 0 && c < numKinds:
		return Piece(Pawn+Kind(c), Sente), nil
	case c >= numKinds && c < 2*numKinds:
		return Piece(Pawn+Kind(c-numKinds), Gote), nil
	}
	return Empty, fmt.Errorf("class index %d outside vocabulary of %d", int(c), NumClasses)
}

// Labels lists the vocabulary in class index order.
func Labels() []Label {
	out := make([]Label, NumClasses)
	for i := range out {
		l, err := Decode(ClassIndex(i))
		if err != nil {
			panic(err)
		}
		out[i] = l
	}
	return out
}
