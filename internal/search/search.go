// Package search implements the engine's negamax/PVS search: iterative
// deepening with aspiration windows (driven by internal/engine), and
// inside each call to alphaBeta the full complement of pruning and
// extension techniques the specification calls for — mate-distance
// pruning, transposition-table cutoffs, reverse futility pruning,
// null-move pruning, internal iterative deepening, ProbCut, singular
// extensions, late-move pruning and reductions, and a quiescence search
// gated by static exchange evaluation.
package search

import (
	"github.com/corvid-engine/corvid/internal/order"
	"github.com/corvid-engine/corvid/internal/tt"
	"github.com/corvid-engine/corvid/pkg/common"
)

// SetRootPosition seeds height 0 of the stack and resets the incremental
// evaluator, done once per call to "go".
func (t *Thread) SetRootPosition(pos common.Position) {
	t.stack[0].position = pos
	t.stack[0].excludedMove = common.MoveEmpty
	t.Evaluator.Reset(&pos)
	t.Nodes = 0
	t.SelDepth = 0
}

// SearchDepth runs one iteration of iterative deepening at depth,
// widening an aspiration window around prevScore exponentially on each
// fail until the true score is bracketed, then returns it along with the
// deepest principal variation found.
func (t *Thread) SearchDepth(depth int, prevScore int) (int, []common.Move) {
	if depth <= 2 || prevScore <= -valueWin || prevScore >= valueWin {
		var score = t.alphaBeta(0, depth, -valueInfinity, valueInfinity, true)
		return score, t.stack[0].pv
	}

	var delta = 15
	var alpha = max(-valueInfinity, prevScore-delta)
	var beta = min(valueInfinity, prevScore+delta)

	for {
		var score = t.alphaBeta(0, depth, alpha, beta, true)
		if score <= alpha {
			beta = (alpha + beta) / 2
			alpha = max(-valueInfinity, score-delta)
		} else if score >= beta {
			beta = min(valueInfinity, score+delta)
		} else {
			return score, t.stack[0].pv
		}
		delta += delta / 2
	}
}

func (t *Thread) assignPV(height int, m common.Move) {
	var child = t.stack[height+1].pv
	var pv = make([]common.Move, 0, len(child)+1)
	pv = append(pv, m)
	pv = append(pv, child...)
	t.stack[height].pv = pv
}

func (t *Thread) alphaBeta(height, depth, alpha, beta int, pvNode bool) int {
	if depth <= 0 {
		return t.quiescence(height, alpha, beta)
	}

	t.stack[height].pv = nil
	if height > t.SelDepth {
		t.SelDepth = height
	}

	var p = &t.stack[height].position
	var rootNode = height == 0
	var inCheck = p.IsCheck()

	if !rootNode {
		if t.isDraw(height) {
			return valueDraw
		}

		// Mate-distance pruning: no line through this node can beat a
		// mate already guaranteed above, or be worse than one already
		// guaranteed below.
		alpha = max(alpha, lossIn(height))
		beta = min(beta, winIn(height+1))
		if alpha >= beta {
			return alpha
		}
	}

	var excludedMove = t.stack[height].excludedMove
	var ttHit, ttEntry = false, tt.Entry{}
	var ttMove = common.MoveEmpty
	if excludedMove == common.MoveEmpty {
		ttEntry, ttHit = t.TT.Probe(p.Key)
		if ttHit {
			ttMove = ttEntry.Move
			var ttScore = tt.ValueFromTT(ttEntry.Score, height)
			if !rootNode && !pvNode && ttEntry.Depth >= depth {
				if (ttEntry.Bound&tt.BoundLower != 0 && ttScore >= beta) ||
					(ttEntry.Bound&tt.BoundUpper != 0 && ttScore <= alpha) ||
					ttEntry.Bound == tt.BoundExact {
					return ttScore
				}
			}
		}
	}

	if inCheck {
		t.stack[height].staticEval = -valueInfinity
	} else if ttHit {
		t.stack[height].staticEval = ttEntry.Eval
	} else {
		t.stack[height].staticEval = t.Evaluator.Evaluate(p)
	}
	var staticEval = t.stack[height].staticEval

	var improving = !inCheck && height >= 2 && staticEval > t.stack[height-2].staticEval
	t.stack[height].improving = improving

	if !rootNode && !inCheck && !pvNode && excludedMove == common.MoveEmpty {
		// Reverse futility pruning: if we're already comfortably above
		// beta by more than a pawn times depth, assume a quiet move
		// drops us back down to roughly staticEval and cut immediately.
		if depth < 9 && staticEval-85*depth >= beta && staticEval < valueWin {
			return staticEval
		}

		// Null-move pruning, guarded against zugzwang in late endgames
		// where passing is not actually a reasonable lower bound.
		if depth >= 3 && staticEval >= beta && !isLateEndgame(p) && hasNonPawnMaterial(p) {
			var reduction = 4 + depth/6
			if d := (staticEval - beta) / 200; d < 2 {
				reduction += d
			} else {
				reduction += 2
			}
			t.MakeNullMove(height)
			var nullScore = -t.alphaBeta(height+1, depth-reduction, -beta, -beta+1, false)
			t.UnmakeMove()
			if nullScore >= beta {
				if nullScore >= valueWin {
					nullScore = beta
				}
				return nullScore
			}
		}

		// ProbCut: a shallow search restricted to winning captures,
		// looking for a quick refutation well above beta.
		if depth >= 5 {
			var probBeta = min(valueWin-1, beta+150)
			var qit = order.NewQIterator(p, false)
			for {
				m, ok := qit.Next()
				if !ok {
					break
				}
				if !order.SeeGE(p, m, probBeta-staticEval) {
					continue
				}
				if !t.MakeMove(height, m) {
					continue
				}
				var score = -t.alphaBeta(height+1, depth-4, -probBeta, -probBeta+1, false)
				t.UnmakeMove()
				if score >= probBeta {
					return score
				}
			}
		}
	}

	// Internal iterative deepening: without a hash move to try first,
	// spend a shallow presearch finding one before the full-depth loop.
	if pvNode && depth >= 5 && ttMove == common.MoveEmpty {
		t.alphaBeta(height, depth-2, alpha, beta, true)
		if e, ok := t.TT.Probe(p.Key); ok {
			ttMove = e.Move
		}
	}

	var cont1 = t.stack[height].contKey
	var cont2 order.ContKey
	if height >= 2 {
		cont2 = t.stack[height-2].contKey
	}

	var killer1, killer2 = t.stack[height].killers.Get()
	var it = order.NewIterator(p, ttMove, killer1, killer2, t.History, cont1, cont2)

	var bestScore = -valueInfinity
	var bestMove = common.MoveEmpty
	var movesSearched = 0
	var legalMoves = 0
	var singularExtension = 0

	if depth >= 6 && ttHit && ttEntry.Depth >= depth-3 && ttMove != excludedMove &&
		(ttEntry.Bound&tt.BoundLower != 0) {
		var singularBeta = max(-valueInfinity, ttEntry.Score-depth)
		t.stack[height].excludedMove = ttMove
		var score = t.alphaBeta(height, depth/2, singularBeta-1, singularBeta, false)
		t.stack[height].excludedMove = common.MoveEmpty
		if score < singularBeta {
			singularExtension = 1
		}
	}

	for {
		m, ok := it.Next()
		if !ok {
			break
		}
		if m == excludedMove {
			continue
		}

		movesSearched++
		var quiet = !isCaptureOrPromotion(m)

		if !rootNode && bestScore > valueLoss && depth <= 8 {
			// Late move pruning: once enough quiet moves have been tried
			// without success at shallow depth, stop looking at more.
			if quiet && movesSearched > 3+depth*depth {
				it.SkipQuiets()
				continue
			}
			// SEE pruning: a quiet move that loses enough material at
			// shallow depth is not worth trying.
			if quiet && !order.SeeGE(p, m, -(20*depth*depth)) {
				continue
			}
		}

		if !t.MakeMove(height, m) {
			continue
		}
		legalMoves++

		var extension = singularExtension
		if t.stack[height+1].position.IsCheck() {
			extension = max(extension, 1)
		}
		if pvNode && depth >= 4 && legalMoves == 1 {
			extension = max(extension, 1)
		}

		var newDepth = depth - 1 + extension
		var score int

		if legalMoves > 1 {
			var reduction = 0
			if depth >= 3 && legalMoves >= 4 && quiet {
				reduction = t.Reductions.Lmr(depth, movesSearched)
				if pvNode {
					reduction--
				}
				if improving {
					reduction--
				}
				if m == killer1 || m == killer2 {
					reduction--
				}
				reduction = max(0, reduction)
			}
			score = -t.alphaBeta(height+1, max(1, newDepth-reduction), -alpha-1, -alpha, false)
			if score > alpha && reduction > 0 {
				score = -t.alphaBeta(height+1, newDepth, -alpha-1, -alpha, false)
			}
			if score > alpha && score < beta {
				score = -t.alphaBeta(height+1, newDepth, -beta, -alpha, true)
			}
		} else {
			score = -t.alphaBeta(height+1, newDepth, -beta, -alpha, pvNode)
		}

		t.UnmakeMove()

		if score > bestScore {
			bestScore = score
			bestMove = m
			if score > alpha {
				alpha = score
				t.assignPV(height, m)
				if score >= beta {
					break
				}
			}
		}
	}

	if legalMoves == 0 {
		if excludedMove != common.MoveEmpty {
			return alpha
		}
		if inCheck {
			return lossIn(height)
		}
		return valueDraw
	}

	if bestScore >= beta && !isCaptureOrPromotion(bestMove) {
		t.stack[height].killers.Update(bestMove)
		t.History.Update(p.WhiteMove, bestMove, quietsOf(it), depth, cont1, cont2)
	}

	if excludedMove == common.MoveEmpty {
		var bound = tt.BoundUpper
		if bestScore >= beta {
			bound = tt.BoundLower
		} else if bestMove != common.MoveEmpty && bestScore > alpha {
			bound = tt.BoundExact
		}
		t.TT.Store(p.Key, bestMove, tt.ValueToTT(bestScore, height), depth, bound, pvNode, staticEval)
	}

	return bestScore
}

func quietsOf(it *order.Iterator) []common.Move {
	return it.QuietsSearched()
}

func (t *Thread) quiescence(height, alpha, beta int) int {
	if height > t.SelDepth {
		t.SelDepth = height
	}

	var p = &t.stack[height].position
	var inCheck = p.IsCheck()

	var staticEval int
	var ttEntry, ttHit = t.TT.Probe(p.Key)
	if inCheck {
		staticEval = -valueInfinity
	} else if ttHit {
		staticEval = ttEntry.Eval
	} else {
		staticEval = t.Evaluator.Evaluate(p)
	}
	t.stack[height].staticEval = staticEval

	var bestScore = staticEval
	if !inCheck {
		if bestScore >= beta {
			return bestScore
		}
		if bestScore > alpha {
			alpha = bestScore
		}
	} else {
		bestScore = -valueInfinity
	}

	var it = order.NewQIterator(p, inCheck)
	for {
		m, ok := it.Next()
		if !ok {
			break
		}
		if !inCheck && !order.SeeGEZero(p, m) {
			continue
		}
		if !t.MakeMove(height, m) {
			continue
		}
		var score = -t.quiescence(height+1, -beta, -alpha)
		t.UnmakeMove()

		if score > bestScore {
			bestScore = score
			if score > alpha {
				alpha = score
				t.assignPV(height, m)
				if score >= beta {
					break
				}
			}
		}
	}

	if inCheck && bestScore == -valueInfinity {
		return lossIn(height)
	}
	return bestScore
}

func isLateEndgame(p *common.Position) bool {
	var side = p.PiecesByColor(p.WhiteMove)
	if (p.Rooks|p.Queens)&side != 0 {
		return false
	}
	return common.PopCount((p.Knights|p.Bishops)&side) <= 1
}

func hasNonPawnMaterial(p *common.Position) bool {
	var side = p.PiecesByColor(p.WhiteMove)
	return (p.Knights|p.Bishops|p.Rooks|p.Queens)&side != 0
}
