package order

import "github.com/corvid-engine/corvid/pkg/common"

// seeValues are centipawn piece values for static-exchange comparisons.
// Callers pass thresholds on the same centipawn scale (search's SEE
// pruning and ProbCut margins), so the units matter, not only the order.
// The king's value is large enough that no exchange can make up for it.
var seeValues = [7]int{
	common.Empty:  0,
	common.Pawn:   100,
	common.Knight: 300,
	common.Bishop: 300,
	common.Rook:   500,
	common.Queen:  900,
	common.King:   20000,
}

// SeeGE reports whether the static exchange evaluation of m is at least
// threshold, resolving the capture sequence on the destination square by
// repeatedly bringing in the least valuable attacker of whichever side is
// to move, exactly the Ethereal-style swap algorithm the teacher ported.
func SeeGE(pos *common.Position, m common.Move, threshold int) bool {
	var from = m.From()
	var to = m.To()

	if m.IsCastling() {
		return 0 >= threshold
	}

	var nextVictim = seeValues[m.MovingPiece()]
	var balance = seeValues[m.CapturedPiece()] - threshold

	if m.Promotion() != common.Empty {
		nextVictim = seeValues[m.Promotion()]
		balance += seeValues[m.Promotion()] - seeValues[common.Pawn]
	}

	if balance < 0 {
		return false
	}

	balance -= nextVictim
	if balance >= 0 {
		return true
	}

	var occupied = (pos.White | pos.Black) &^ common.SquareMask[from] &^ common.SquareMask[to]
	if m.CapturedPiece() == common.Pawn && to == pos.EpSquare {
		occupied &^= common.SquareMask[to+epCaptureOffset(pos.WhiteMove, to)]
	}

	var attackers = computeAttackers(pos, to, occupied)

	var white = !pos.WhiteMove
	for {
		var ownAttackers = attackers & pos.PiecesByColor(white)
		if ownAttackers == 0 {
			break
		}

		var sq, piece, ok = getLeastValuableAttacker(pos, ownAttackers, occupied)
		if !ok {
			break
		}

		occupied &^= common.SquareMask[sq]
		attackers &^= common.SquareMask[sq]
		attackers |= newXrayAttackers(pos, to, occupied)

		balance = -balance - 1 - seeValues[piece]
		white = !white

		if balance >= 0 {
			if piece == common.King && (attackers&pos.PiecesByColor(white)) != 0 {
				white = !white
			}
			break
		}
	}

	return white != pos.WhiteMove
}

func epCaptureOffset(whiteToMove bool, to int) int {
	if whiteToMove {
		return -8
	}
	return 8
}

func computeAttackers(pos *common.Position, sq int, occupied uint64) uint64 {
	return (common.PawnAttacks(sq, false) & pos.Pawns & pos.White) |
		(common.PawnAttacks(sq, true) & pos.Pawns & pos.Black) |
		(common.KnightAttacks[sq] & pos.Knights) |
		(common.BishopAttacks(sq, occupied) & (pos.Bishops | pos.Queens)) |
		(common.RookAttacks(sq, occupied) & (pos.Rooks | pos.Queens)) |
		(common.KingAttacks[sq] & pos.Kings)
}

func newXrayAttackers(pos *common.Position, sq int, occupied uint64) uint64 {
	return (common.BishopAttacks(sq, occupied) & (pos.Bishops | pos.Queens) & occupied) |
		(common.RookAttacks(sq, occupied) & (pos.Rooks | pos.Queens) & occupied)
}

func getLeastValuableAttacker(pos *common.Position, attackers uint64, occupied uint64) (sq int, piece int, ok bool) {
	attackers &= occupied
	if attackers == 0 {
		return 0, 0, false
	}
	var best = -1
	var bestValue = 1 << 30
	for bb := attackers; bb != 0; bb &= bb - 1 {
		var s = common.FirstOne(bb)
		var p = pos.WhatPiece(s)
		if seeValues[p] < bestValue {
			bestValue = seeValues[p]
			best = s
		}
	}
	return best, pos.WhatPiece(best), true
}

// SeeGEZero is the common threshold=0 case used throughout move ordering.
func SeeGEZero(pos *common.Position, m common.Move) bool {
	return SeeGE(pos, m, 0)
}
