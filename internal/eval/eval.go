// Package eval implements the classical material evaluator for shogi
// positions. Scores are in centipawns from the side to move's point of
// view, the convention the search and cache layers expect.
package eval

import (
	"github.com/yukawa/shogiplay/internal/shogi"
)

// Material values (centipawns, roughly YSS-derived)
const (
	PawnValue   = 100
	LanceValue  = 430
	KnightValue = 450
	SilverValue = 640
	GoldValue   = 690
	BishopValue = 890
	RookValue   = 1040
)

// Piece values by type for quick lookup; kings carry no material value.
var pieceValues = [shogi.NumPieceTypes]int32{
	0,
	PawnValue, LanceValue, KnightValue, SilverValue, GoldValue,
	BishopValue, RookValue, 0,
	530,  // tokin
	480,  // promoted lance
	500,  // promoted knight
	670,  // promoted silver
	1150, // horse
	1300, // dragon
}

// Pieces in hand are worth slightly more than on the board: they can be
// dropped anywhere.
var handValues = [shogi.HandKinds + 1]int32{
	0,
	PawnValue + 15,
	LanceValue + 20,
	KnightValue + 20,
	SilverValue + 30,
	GoldValue + 30,
	BishopValue + 50,
	RookValue + 60,
}

const tempoBonus = 20

// Evaluator scores positions without search. It is deterministic, total,
// and safe for concurrent use; the prefetch path relies on all three.
type Evaluator struct{}

// New returns a material evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate returns the static score of the position from the side to
// move's perspective.
func (e *Evaluator) Evaluate(p *shogi.Position) int32 {
	var sente, gote int32

	for sq := shogi.Square(0); sq < shogi.NumSquares; sq++ {
		pc := p.PieceAt(sq)
		if pc.IsEmpty() {
			continue
		}
		if pc.Color() == shogi.Sente {
			sente += pieceValues[pc.Type()]
		} else {
			gote += pieceValues[pc.Type()]
		}
	}

	for pt := shogi.Pawn; pt <= shogi.Rook; pt++ {
		sente += int32(p.HandCount(shogi.Sente, pt)) * handValues[pt]
		gote += int32(p.HandCount(shogi.Gote, pt)) * handValues[pt]
	}

	score := sente - gote
	if p.SideToMove == shogi.Gote {
		score = -score
	}
	return score + tempoBonus
}
