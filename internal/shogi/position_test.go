package shogi

import "testing"

func TestStartingPosition(t *testing.T) {
	p := NewPosition()

	if p.SideToMove != Sente {
		t.Error("Sente must move first")
	}

	// 40 pieces on the board, none in hand.
	pieces := 0
	for sq := Square(0); sq < NumSquares; sq++ {
		if !p.PieceAt(sq).IsEmpty() {
			pieces++
		}
	}
	if pieces != 40 {
		t.Errorf("Expected 40 pieces in the starting position, got %d", pieces)
	}

	for c := Sente; c <= Gote; c++ {
		for pt := Pawn; pt <= Rook; pt++ {
			if n := p.HandCount(c, pt); n != 0 {
				t.Errorf("Expected empty %v hand, got %d x %v", c, n, pt)
			}
		}
	}

	// Kings on the middle file of each back rank.
	if p.PieceAt(MakeSquare(0, 4)) != MakePiece(Gote, King) {
		t.Error("Gote king misplaced")
	}
	if p.PieceAt(MakeSquare(8, 4)) != MakePiece(Sente, King) {
		t.Error("Sente king misplaced")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := NewPosition()
	q := p.Clone()

	q.RemovePiece(MakeSquare(6, 0))
	q.AddToHand(Gote, Pawn)

	if p.PieceAt(MakeSquare(6, 0)).IsEmpty() {
		t.Error("Mutating the clone changed the original board")
	}
	if p.HandCount(Gote, Pawn) != 0 {
		t.Error("Mutating the clone changed the original hand")
	}
}

func TestPromoteDemoteRoundTrip(t *testing.T) {
	for pt := Pawn; pt <= Rook; pt++ {
		if pt == Gold {
			if pt.Promoted() != Gold {
				t.Error("Gold must not promote")
			}
			continue
		}
		if got := pt.Promoted().Demoted(); got != pt {
			t.Errorf("Demoted(Promoted(%v)) = %v", pt, got)
		}
	}
}
