package nnue

import "github.com/corvid-engine/corvid/pkg/common"

const (
	clipMin = 0
	clipMax = 127 << 6 // matches the int16 quantization scale used for FeatureWeights/HiddenBias
)

func clippedRelu(v int16) int32 {
	var x = int32(v)
	if x < clipMin {
		return clipMin
	}
	if x > clipMax {
		return clipMax
	}
	return x
}

// Phase maps material on the board to one of sixteen output buckets,
// heavier material (more queens, rooks, minors and pawns) indexing a
// higher bucket and bare-king endings indexing the bottom of the range.
func Phase(pos *common.Position) int {
	var queens = common.PopCount(pos.Queens)
	var rooks = common.PopCount(pos.Rooks)
	var bishops = common.PopCount(pos.Bishops)
	var knights = common.PopCount(pos.Knights)
	var pawns = common.PopCount(pos.Pawns)

	var score = queens*8 + rooks*4 + bishops*2 + knights*2 + pawns
	const phaseLow = 2 // all-but-kings endgame floor before bucket 0 saturates
	var phase = score - phaseLow
	if phase < 0 {
		phase = 0
	}
	if phase > PhaseBuckets-1 {
		phase = PhaseBuckets - 1
	}
	return phase
}

// Evaluator wraps a Network with the push/pop accumulator stack the
// search uses to keep evaluation incremental across the search tree: each
// ply pushes a new frame derived from the previous one by applying the
// move's feature deltas, and Pop discards it on unmake.
type Evaluator struct {
	net   *Network
	stack []Accumulator
}

func NewEvaluator(net *Network) *Evaluator {
	return &Evaluator{net: net, stack: make([]Accumulator, 1, 256)}
}

// Reset seeds the bottom of the stack from pos, discarding any pushed
// frames. Called whenever the search starts from a new root position.
func (e *Evaluator) Reset(pos *common.Position) {
	e.stack = e.stack[:1]
	e.stack[0].Refresh(e.net, pos)
}

func (e *Evaluator) top() *Accumulator {
	return &e.stack[len(e.stack)-1]
}

// MakeMove pushes a new accumulator frame built from the move just played
// on prev (the position before the move) to next (the position after).
// Castling moves both the king and the rook in one atomic step, so it
// applies both deltas directly rather than refreshing from scratch; every
// other move is a plain remove/add pair.
func (e *Evaluator) MakeMove(prev, next *common.Position, m common.Move) {
	var frame = e.top().Clone()
	e.stack = append(e.stack, frame)
	var cur = e.top()
	var white = prev.WhiteMove

	if m.IsCastling() {
		var kingFrom, kingTo = m.From(), m.To()
		var rank = common.Rank(kingFrom)
		var kingSide = common.File(kingTo) == common.FileG
		var rookFrom, rookTo int
		if kingSide {
			rookFrom = common.MakeSquare(prev.RookFileK, rank)
			rookTo = common.MakeSquare(common.FileF, rank)
		} else {
			rookFrom = common.MakeSquare(prev.RookFileQ, rank)
			rookTo = common.MakeSquare(common.FileD, rank)
		}
		cur.MovePiece(e.net, common.King, white, kingFrom, kingTo)
		cur.MovePiece(e.net, common.Rook, white, rookFrom, rookTo)
		return
	}

	var from, to = m.From(), m.To()
	var movingPiece = m.MovingPiece()
	var capturedPiece = m.CapturedPiece()

	if capturedPiece != common.Empty {
		var captureSq = to
		if capturedPiece == common.Pawn && to == prev.EpSquare {
			if white {
				captureSq = to - 8
			} else {
				captureSq = to + 8
			}
		}
		cur.removePiece(e.net, capturedPiece, !white, captureSq)
	}

	if m.Promotion() != common.Empty {
		cur.removePiece(e.net, common.Pawn, white, from)
		cur.addPiece(e.net, m.Promotion(), white, to)
		return
	}

	cur.MovePiece(e.net, movingPiece, white, from, to)
}

// MakeNullMove pushes a frame identical to the top one: passing the move
// changes the side to move but touches no piece, so there is no feature
// delta to apply, only a frame for the matching UnmakeMove to pop.
func (e *Evaluator) MakeNullMove() {
	e.stack = append(e.stack, e.top().Clone())
}

// UnmakeMove pops the most recently pushed frame.
func (e *Evaluator) UnmakeMove() {
	e.stack = e.stack[:len(e.stack)-1]
}

// Evaluate returns the evaluation in centipawns from the perspective of
// the side to move in pos, reading the top accumulator frame and routing
// it through the output head selected by the current phase bucket.
func (e *Evaluator) Evaluate(pos *common.Position) int {
	var acc = e.top()
	var bucket = Phase(pos)
	var weights = &e.net.OutputWeights[bucket]

	var stm, other *[HiddenSize]int16
	if pos.WhiteMove {
		stm, other = &acc.White, &acc.Black
	} else {
		stm, other = &acc.Black, &acc.White
	}

	var sum = int64(e.net.OutputBias[bucket])
	for i := 0; i < HiddenSize; i++ {
		sum += int64(clippedRelu(stm[i])) * int64(weights[i])
		sum += int64(clippedRelu(other[i])) * int64(weights[HiddenSize+i])
	}

	const outputScale = 16 * 64 // hidden quantization (64) times output weight quantization (16)
	return int(sum / outputScale)
}

// EvaluateFresh computes the same value as Evaluate without touching the
// accumulator stack, used by the ±1cp fidelity test to check the
// incremental path against a from-scratch recomputation.
func (e *Evaluator) EvaluateFresh(pos *common.Position) int {
	var acc = Accumulator{}
	acc.Refresh(e.net, pos)
	var saved = e.stack
	e.stack = []Accumulator{acc}
	var v = e.Evaluate(pos)
	e.stack = saved
	return v
}
