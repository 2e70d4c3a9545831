// Package order implements move ordering: a staged iterator that yields a
// transposition-table move first, then winning captures by MVV-LVA, then
// killers, then quiet moves by history score, then losing captures.
// Promotions are scored by MVV-LVA with the promoted piece counted as
// material gained, so an underpromotion sorts below the same move
// promoting to a queen but is not otherwise moved to the end of its stage.
package order

import "github.com/corvid-engine/corvid/pkg/common"

const sortKeyImportant = 100000

// sortKeyBadCapture sits below every possible quiet-move history score (the
// main plus two continuation tables cap out at 3*historyMax in either
// direction) so losing captures always sort strictly after quiets instead
// of interleaving with them.
const sortKeyBadCapture = -3*historyMax - sortKeyImportant

var sortPieceValues = [7]int{
	common.Empty:  0,
	common.Pawn:   100,
	common.Knight: 300,
	common.Bishop: 300,
	common.Rook:   500,
	common.Queen:  900,
	// The king is only ever the moving piece here; 1000 keeps a winning
	// king capture (at worst 8*100-1000) above the killer keys.
	common.King: 1000,
}

func mvvlva(m common.Move) int {
	var victim = sortPieceValues[m.CapturedPiece()]
	var promo = sortPieceValues[m.Promotion()]
	return 8*(victim+promo) - sortPieceValues[m.MovingPiece()]
}

// Stage identifies the ordering bucket a move currently belongs to, mainly
// useful for diagnostics and late-move-pruning decisions in the caller.
type Stage int

const (
	StageHash Stage = iota
	StageGoodCapture
	StageKiller
	StageQuiet
	StageBadCapture
	StageDone
)

// Iterator yields moves from a position one at a time in search order. It
// owns a scratch buffer of (move, score) pairs and does a lazy partial
// sort: the first pick is a single max-scan, every later pick a full
// insertion sort of the remaining tail, so positions that cut off early
// (the common case) never pay for sorting moves nobody looks at.
type Iterator struct {
	pos      *common.Position
	moves    []common.OrderedMove
	index    int
	stage    Stage
	hashMove common.Move
	killer1  common.Move
	killer2  common.Move
	hist     *History
	white    bool
	cont1    ContKey
	cont2    ContKey

	quietsSeen []common.Move
	skipQuiets bool
}

// NewIterator builds a full staged iterator for the main search: it
// generates all pseudo-legal moves up front and scores them according to
// hash move, SEE-signed captures, killers, and history.
func NewIterator(pos *common.Position, hashMove common.Move, killer1, killer2 common.Move, hist *History, cont1, cont2 ContKey) *Iterator {
	var buffer [common.MaxMoves]common.Move
	var ml = common.GenerateMoves(buffer[:], pos)

	var it = &Iterator{
		pos:      pos,
		hashMove: hashMove,
		killer1:  killer1,
		killer2:  killer2,
		hist:     hist,
		white:    pos.WhiteMove,
		cont1:    cont1,
		cont2:    cont2,
	}
	it.moves = make([]common.OrderedMove, len(ml))
	for i, m := range ml {
		it.moves[i] = common.OrderedMove{Move: m, Key: it.score(m)}
	}
	return it
}

func (it *Iterator) score(m common.Move) int {
	switch {
	case m == it.hashMove:
		return 2 * sortKeyImportant
	case m.CapturedPiece() != common.Empty || m.Promotion() != common.Empty:
		if SeeGEZero(it.pos, m) {
			return sortKeyImportant + 1000 + mvvlva(m)
		}
		return sortKeyBadCapture + mvvlva(m)
	case m == it.killer1:
		return sortKeyImportant + 1
	case m == it.killer2:
		return sortKeyImportant
	default:
		return it.hist.ReadTotal(m, it.white, it.cont1, it.cont2)
	}
}

// SkipQuiets tells the iterator to stop returning quiet moves, used after
// late-move pruning has decided the position is hopeless for further
// quiet tries.
func (it *Iterator) SkipQuiets() {
	it.skipQuiets = true
}

// QuietsSearched returns every quiet move the iterator has yielded so far,
// used to apply history penalties to moves tried-and-rejected before the
// one that caused a cutoff.
func (it *Iterator) QuietsSearched() []common.Move {
	return it.quietsSeen
}

func isQuiet(m common.Move) bool {
	return m.CapturedPiece() == common.Empty && m.Promotion() == common.Empty
}

// Next returns the next move in search order, or (MoveEmpty, false) once
// exhausted.
func (it *Iterator) Next() (common.Move, bool) {
	for {
		if it.index >= len(it.moves) {
			return common.MoveEmpty, false
		}

		if it.index == 0 {
			moveToTop(it.moves)
		} else {
			sortMoves(it.moves[it.index:])
		}

		var om = it.moves[it.index]
		it.index++

		if it.skipQuiets && isQuiet(om.Move) && om.Move != it.hashMove {
			continue
		}
		if isQuiet(om.Move) {
			it.quietsSeen = append(it.quietsSeen, om.Move)
		}
		return om.Move, true
	}
}

// moveToTop finds the best-scoring move among ml and swaps it to index 0,
// a single linear pass that avoids sorting moves that will never be
// looked at after an early cutoff.
func moveToTop(ml []common.OrderedMove) {
	if len(ml) == 0 {
		return
	}
	var best = 0
	for i := 1; i < len(ml); i++ {
		if ml[i].Key > ml[best].Key {
			best = i
		}
	}
	ml[0], ml[best] = ml[best], ml[0]
}

// sortMoves insertion-sorts ml[0:] descending by Key, fine for the short
// tails this is called on since the whole list is rarely more than ~40
// moves long.
func sortMoves(ml []common.OrderedMove) {
	for i := 1; i < len(ml); i++ {
		var v = ml[i]
		var j = i - 1
		for j >= 0 && ml[j].Key < v.Key {
			ml[j+1] = ml[j]
			j--
		}
		ml[j+1] = v
	}
}

// QIterator yields quiescence-search candidates: captures and promotions
// only, or every evasion when the side to move is in check.
type QIterator struct {
	moves []common.OrderedMove
	index int
}

func NewQIterator(pos *common.Position, inCheck bool) *QIterator {
	var buffer [common.MaxMoves]common.Move
	var ml []common.Move
	if inCheck {
		ml = common.GenerateMoves(buffer[:], pos)
	} else {
		ml = common.GenerateCaptures(buffer[:], pos, false)
	}
	var it = &QIterator{moves: make([]common.OrderedMove, len(ml))}
	for i, m := range ml {
		it.moves[i] = common.OrderedMove{Move: m, Key: sortKeyImportant + mvvlva(m)}
	}
	return it
}

func (it *QIterator) Next() (common.Move, bool) {
	if it.index >= len(it.moves) {
		return common.MoveEmpty, false
	}
	if it.index == 0 {
		moveToTop(it.moves)
	} else {
		sortMoves(it.moves[it.index:])
	}
	var om = it.moves[it.index]
	it.index++
	return om.Move, true
}
