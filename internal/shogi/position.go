package shogi

import "strings"

// Board geometry. Squares are indexed rank-major from gote's back rank:
// square = rank*9 + file, rank 0..8 top to bottom, file 0..8 left to right
// as seen from sente.
const (
	NumFiles   = 9
	NumRanks   = 9
	NumSquares = NumFiles * NumRanks
)

// Square identifies one of the 81 board squares.
type Square int

// MakeSquare builds a square from rank and file indexes (0..8 each).
func MakeSquare(rank, file int) Square {
	return Square(rank*NumFiles + file)
}

// Rank returns the rank index (0 = gote's back rank).
func (sq Square) Rank() int { return int(sq) / NumFiles }

// File returns the file index (0 = leftmost from sente's view).
func (sq Square) File() int { return int(sq) % NumFiles }

// Position is a full shogi position: board squares, pieces in hand for
// both sides, the side to move, and the repetition (sennichite) counter.
// It carries no history; callers that need undo keep their own copies.
type Position struct {
	Squares    [NumSquares]Piece
	Hands      [2][HandKinds + 1]uint8 // indexed by PieceType Pawn..Rook
	SideToMove Color
	Repetition uint8 // times this position has occurred before
}

// NewPosition returns the hirate (even game) starting position.
func NewPosition() *Position {
	p := &Position{SideToMove: Sente}

	backRank := [NumFiles]PieceType{
		Lance, Knight, Silver, Gold, King, Gold, Silver, Knight, Lance,
	}
	for f := 0; f < NumFiles; f++ {
		p.Squares[MakeSquare(0, f)] = MakePiece(Gote, backRank[f])
		p.Squares[MakeSquare(8, f)] = MakePiece(Sente, backRank[f])
		p.Squares[MakeSquare(2, f)] = MakePiece(Gote, Pawn)
		p.Squares[MakeSquare(6, f)] = MakePiece(Sente, Pawn)
	}

	// Rook on 2b/8h (second file from the right for the owner),
	// bishop on 8b/2h.
	p.Squares[MakeSquare(1, 1)] = MakePiece(Gote, Rook)
	p.Squares[MakeSquare(1, 7)] = MakePiece(Gote, Bishop)
	p.Squares[MakeSquare(7, 1)] = MakePiece(Sente, Bishop)
	p.Squares[MakeSquare(7, 7)] = MakePiece(Sente, Rook)

	return p
}

// PieceAt returns the piece on sq, NoPiece if empty.
func (p *Position) PieceAt(sq Square) Piece {
	return p.Squares[sq]
}

// PlacePiece puts pc on sq, overwriting whatever was there.
func (p *Position) PlacePiece(sq Square, pc Piece) {
	p.Squares[sq] = pc
}

// RemovePiece clears sq and returns the piece that occupied it.
func (p *Position) RemovePiece(sq Square) Piece {
	pc := p.Squares[sq]
	p.Squares[sq] = NoPiece
	return pc
}

// HandCount returns how many pieces of the given kind c holds in hand.
// Promoted kinds are counted under their demoted form.
func (p *Position) HandCount(c Color, pt PieceType) int {
	pt = pt.Demoted()
	if pt == NoPieceType || pt > Rook {
		return 0
	}
	return int(p.Hands[c][pt])
}

// AddToHand adds one piece of the given kind to c's hand. Promoted
// pieces are demoted first, kings are ignored.
func (p *Position) AddToHand(c Color, pt PieceType) {
	pt = pt.Demoted()
	if pt == NoPieceType || pt > Rook {
		return
	}
	p.Hands[c][pt]++
}

// RemoveFromHand removes one piece of the given kind from c's hand.
// Removing from an empty hand slot is a no-op.
func (p *Position) RemoveFromHand(c Color, pt PieceType) {
	pt = pt.Demoted()
	if pt == NoPieceType || pt > Rook {
		return
	}
	if p.Hands[c][pt] > 0 {
		p.Hands[c][pt]--
	}
}

// Clone returns an independent copy of the position.
func (p *Position) Clone() *Position {
	cp := *p
	return &cp
}

// String renders the board for debugging: ranks top to bottom, hands and
// side to move below.
func (p *Position) String() string {
	var sb strings.Builder
	for r := 0; r < NumRanks; r++ {
		for f := 0; f < NumFiles; f++ {
			if f > 0 {
				sb.WriteByte(' ')
			}
			pc := p.Squares[MakeSquare(r, f)]
			s := pc.String()
			if len(s) == 1 {
				sb.WriteByte(' ')
			}
			sb.WriteString(s)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("side: ")
	sb.WriteString(p.SideToMove.String())
	sb.WriteByte('\n')
	return sb.String()
}
