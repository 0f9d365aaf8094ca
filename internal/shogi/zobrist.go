package shogi

// Zobrist hash keys for position hashing.
// Uses a PRNG with a fixed seed so fingerprints are reproducible across
// runs and builds.

const maxHandCount = 18 // at most 18 pawns of one color in hand

var (
	zobristPiece      [2][NumPieceTypes][NumSquares]uint64
	zobristHand       [2][HandKinds + 1][maxHandCount + 1]uint64
	zobristSideToMove uint64
	zobristRepetition [4]uint64
)

func init() {
	initZobrist()
}

// Simple PRNG for reproducible Zobrist keys
type prng struct {
	state uint64
}

func newPRNG(seed uint64) *prng {
	return &prng{state: seed}
}

// xorshift64* algorithm
func (p *prng) next() uint64 {
	p.state ^= p.state >> 12
	p.state ^= p.state << 25
	p.state ^= p.state >> 27
	return p.state * 0x2545F4914F6CDD1D
}

func initZobrist() {
	rng := newPRNG(0x5C1E78A9D4B20F37) // Fixed seed

	// Piece-on-square keys
	for c := Sente; c <= Gote; c++ {
		for pt := Pawn; pt < NumPieceTypes; pt++ {
			for sq := Square(0); sq < NumSquares; sq++ {
				zobristPiece[c][pt][sq] = rng.next()
			}
		}
	}

	// Hand-count keys: one key per (color, kind, count). The count with
	// zero pieces contributes nothing so its key stays 0.
	for c := Sente; c <= Gote; c++ {
		for pt := Pawn; pt <= Rook; pt++ {
			for n := 1; n <= maxHandCount; n++ {
				zobristHand[c][pt][n] = rng.next()
			}
		}
	}

	// Side to move key (XOR when gote to move)
	zobristSideToMove = rng.next()

	// Repetition state keys; state 0 (no repetition) contributes nothing.
	for i := 1; i < len(zobristRepetition); i++ {
		zobristRepetition[i] = rng.next()
	}
}

// HashPosition computes the 64-bit fingerprint of a position from the
// board, both hands, the side to move, and the repetition state. It is a
// pure function: equal positions always produce equal fingerprints.
func HashPosition(p *Position) uint64 {
	var h uint64

	for sq := Square(0); sq < NumSquares; sq++ {
		pc := p.Squares[sq]
		if pc.IsEmpty() {
			continue
		}
		h ^= zobristPiece[pc.Color()][pc.Type()][sq]
	}

	for c := Sente; c <= Gote; c++ {
		for pt := Pawn; pt <= Rook; pt++ {
			n := p.Hands[c][pt]
			if n == 0 {
				continue
			}
			if n > maxHandCount {
				n = maxHandCount
			}
			h ^= zobristHand[c][pt][n]
		}
	}

	if p.SideToMove == Gote {
		h ^= zobristSideToMove
	}

	h ^= zobristRepetition[p.Repetition&3]

	return h
}
