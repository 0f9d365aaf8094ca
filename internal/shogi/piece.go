package shogi

// Color represents the side a piece belongs to (and the side to move).
type Color uint8

const (
	Sente Color = iota // Black, moves first
	Gote               // White
)

// Flip returns the opposite color.
func (c Color) Flip() Color {
	return c ^ 1
}

func (c Color) String() string {
	if c == Sente {
		return "sente"
	}
	return "gote"
}

// PieceType identifies the kind of piece, including promoted kinds.
type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Lance
	Knight
	Silver
	Gold
	Bishop
	Rook
	King
	PromotedPawn // Tokin
	PromotedLance
	PromotedKnight
	PromotedSilver
	Horse  // Promoted bishop
	Dragon // Promoted rook

	NumPieceTypes
)

// HandKinds is the number of droppable piece kinds (Pawn..Rook).
// Kings and promoted pieces never appear in hand.
const HandKinds = 7

var pieceTypeNames = [NumPieceTypes]string{
	"-", "P", "L", "N", "S", "G", "B", "R", "K",
	"+P", "+L", "+N", "+S", "+B", "+R",
}

func (pt PieceType) String() string {
	if pt >= NumPieceTypes {
		return "?"
	}
	return pieceTypeNames[pt]
}

// IsPromoted reports whether pt is a promoted piece kind.
func (pt PieceType) IsPromoted() bool {
	return pt >= PromotedPawn
}

// Demoted returns the base kind of a promoted piece; captured pieces
// enter the opponent's hand in demoted form.
func (pt PieceType) Demoted() PieceType {
	switch pt {
	case PromotedPawn:
		return Pawn
	case PromotedLance:
		return Lance
	case PromotedKnight:
		return Knight
	case PromotedSilver:
		return Silver
	case Horse:
		return Bishop
	case Dragon:
		return Rook
	}
	return pt
}

// Promoted returns the promoted kind of pt, or pt itself if it cannot
// promote (gold, king, already promoted).
func (pt PieceType) Promoted() PieceType {
	switch pt {
	case Pawn:
		return PromotedPawn
	case Lance:
		return PromotedLance
	case Knight:
		return PromotedKnight
	case Silver:
		return PromotedSilver
	case Bishop:
		return Horse
	case Rook:
		return Dragon
	}
	return pt
}

// Piece packs a color and piece type into one byte.
// The zero value is the empty square.
type Piece uint8

// NoPiece is the empty square marker.
const NoPiece Piece = 0

// MakePiece builds a Piece from a color and type.
func MakePiece(c Color, pt PieceType) Piece {
	if pt == NoPieceType {
		return NoPiece
	}
	return Piece(uint8(c)<<4 | uint8(pt))
}

// Color returns the owning side. Only meaningful for non-empty pieces.
func (p Piece) Color() Color {
	return Color(p >> 4)
}

// Type returns the piece kind, NoPieceType for an empty square.
func (p Piece) Type() PieceType {
	return PieceType(p & 0x0F)
}

// IsEmpty reports whether p is the empty square marker.
func (p Piece) IsEmpty() bool {
	return p == NoPiece
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "."
	}
	s := p.Type().String()
	if p.Color() == Gote {
		// Lowercase marks gote pieces in board dumps.
		b := []byte(s)
		b[len(b)-1] |= 0x20
		return string(b)
	}
	return s
}
