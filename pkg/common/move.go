package common

import "strings"

// Move packs from/to squares, the moving piece, the captured piece, a
// promotion piece and a castling flag into a single int32, the same
// from/to/piece layout as the teacher engine with one extra bit added
// above the promotion field. The king's "to" square for a castling move
// is always FileC or FileG regardless of where the Chess960 rook or even
// the king itself started, so file-delta alone cannot distinguish a
// castle from an ordinary king step once the king's home file isn't e;
// the explicit flag bit makes IsCastling unambiguous in both variants.
type Move int32

const MoveEmpty = Move(0)

const castleFlag = 1 << 21

func makeMove(from, to, movingPiece, capturedPiece int) Move {
	return Move(from ^ (to << 6) ^ (movingPiece << 12) ^ (capturedPiece << 15))
}

func makePawnMove(from, to, capturedPiece, promotion int) Move {
	return Move(from ^ (to << 6) ^ (Pawn << 12) ^ (capturedPiece << 15) ^ (promotion << 18))
}

func makeCastleMove(from, to int) Move {
	return Move(from^(to<<6)^(King<<12)) | castleFlag
}

func (m Move) From() int {
	return int(m & 63)
}

func (m Move) To() int {
	return int((m >> 6) & 63)
}

func (m Move) MovingPiece() int {
	return int((m >> 12) & 7)
}

func (m Move) CapturedPiece() int {
	return int((m >> 15) & 7)
}

func (m Move) Promotion() int {
	return int((m >> 18) & 7)
}

// IsCastling reports whether m is a castling move, carried as an explicit
// bit rather than inferred from file distance since a Chess960 king's home
// file can put an ordinary one-square king step and a castle at the same
// file delta.
func (m Move) IsCastling() bool {
	return m&castleFlag != 0
}

func (m Move) String() string {
	if m == MoveEmpty {
		return "0000"
	}
	var sPromotion = ""
	if m.Promotion() != Empty {
		sPromotion = string("nbrq"[m.Promotion()-Knight])
	}
	return SquareName(m.From()) + SquareName(m.To()) + sPromotion
}

// UCIString renders m using the protocol's castling convention: the
// standard two-square king move in orthodox chess, or the Chess960
// "king moves to the rook's own square" convention when chess960 is true.
func (m Move) UCIString(pos *Position, chess960 bool) string {
	if chess960 && m.IsCastling() {
		kingSide := File(m.To()) == FileG
		rookFile := pos.RookFileQ
		if kingSide {
			rookFile = pos.RookFileK
		}
		rookSq := MakeSquare(rookFile, Rank(m.From()))
		return SquareName(m.From()) + SquareName(rookSq)
	}
	return m.String()
}

func (p *Position) MakeMoveLAN(lan string) (Position, bool) {
	var ml = GenerateLegalMoves(p)
	for _, mv := range ml {
		if strings.EqualFold(mv.String(), lan) || strings.EqualFold(mv.UCIString(p, true), lan) {
			var newPosition = Position{}
			if p.MakeMove(mv, &newPosition) {
				return newPosition, true
			}
			return Position{}, false
		}
	}
	return Position{}, false
}

