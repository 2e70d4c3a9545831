package search

import (
	"errors"

	"github.com/corvid-engine/corvid/internal/order"
	"github.com/corvid-engine/corvid/internal/tt"
	"github.com/corvid-engine/corvid/pkg/common"
)

// ErrSearchTimeout is panicked from deep inside alphaBeta/quiescence once
// the coordinator's context is done and recovered in the coordinator's
// per-worker goroutine, the same panic/recover shortcut the teacher uses
// to unwind an arbitrarily deep recursion in one step instead of
// threading a stop check through every return value.
var ErrSearchTimeout = errors.New("search: timeout")

// Evaluator is the incremental position evaluator a Thread drives through
// the search tree. internal/nnue.Evaluator is the production
// implementation; tests substitute a trivial material counter.
type Evaluator interface {
	Reset(pos *common.Position)
	MakeMove(prev, next *common.Position, m common.Move)
	MakeNullMove()
	UnmakeMove()
	Evaluate(pos *common.Position) int
}

type frame struct {
	position     common.Position
	killers      order.Killers
	staticEval   int
	improving    bool
	pv           []common.Move
	contKey      order.ContKey
	excludedMove common.Move
}

// StopSignal is polled periodically rather than on every node, matching
// the coordinator's every-~2048-nodes cadence, so the atomic load's cost
// is amortized across a batch of nodes.
type StopSignal interface {
	Stopped() bool
}

// Thread carries all per-goroutine search state: its own history and
// killer tables, its own node count, and its own height-indexed stack of
// frames. A Table and a StopSignal are shared across every thread in a
// LazySMP pool.
type Thread struct {
	Index     int
	TT        *tt.Table
	Stop      StopSignal
	Evaluator Evaluator
	History    *order.History
	Reductions *ReductionTable

	Nodes    int64
	SelDepth int

	RootPosition  common.Position
	HistoryKeys   map[uint64]int

	stack [maxHeight + 2]frame
}

func NewThread(index int, table *tt.Table, stop StopSignal, evaluator Evaluator, reductions *ReductionTable) *Thread {
	return &Thread{
		Index:      index,
		TT:         table,
		Stop:       stop,
		Evaluator:  evaluator,
		History:    order.NewHistory(),
		Reductions: reductions,
	}
}

func (t *Thread) incNodes() {
	t.Nodes++
	if t.Nodes&2047 == 0 && t.Stop.Stopped() {
		panic(ErrSearchTimeout)
	}
}

// MakeMove plays m from the frame at height into the frame at height+1,
// updating both the board and the incremental evaluator.
func (t *Thread) MakeMove(height int, m common.Move) bool {
	var src = &t.stack[height].position
	var dst = &t.stack[height+1].position
	if !src.MakeMove(m, dst) {
		return false
	}
	t.Evaluator.MakeMove(src, dst, m)
	t.stack[height+1].contKey = order.MakeContKey(m.MovingPiece(), src.WhiteMove, m.To())
	t.incNodes()
	return true
}

func (t *Thread) UnmakeMove() {
	t.Evaluator.UnmakeMove()
}

func (t *Thread) MakeNullMove(height int) {
	var src = &t.stack[height].position
	var dst = &t.stack[height+1].position
	src.MakeNullMove(dst)
	t.Evaluator.MakeNullMove()
	t.stack[height+1].contKey = order.ContKey{}
	t.incNodes()
}

// isDraw detects the two position-only draw conditions (fifty-move rule,
// insufficient material) and then repetition, delegated to isRepeat since
// it needs the search stack and the root-position history table both.
func (t *Thread) isDraw(height int) bool {
	var p = &t.stack[height].position
	if p.Rule50 >= 100 {
		return true
	}
	if isInsufficientMaterial(p) {
		return true
	}
	return t.isRepeat(height)
}

func isInsufficientMaterial(p *common.Position) bool {
	if p.Pawns != 0 || p.Rooks != 0 || p.Queens != 0 {
		return false
	}
	var minorCount = common.PopCount(p.Knights | p.Bishops)
	return minorCount <= 1
}

// isRepeat walks the in-tree stack first (cheap, catches the common case
// of a repetition found during this very search) and falls back to the
// root's pre-search history table for repetitions that started before
// the search root.
func (t *Thread) isRepeat(height int) bool {
	var p = &t.stack[height].position
	for h := height - 2; h >= 0; h -= 2 {
		if p.Rule50 < height-h {
			break
		}
		if p.IsRepetition(&t.stack[h].position) {
			return true
		}
	}
	if p.Rule50 >= height {
		if t.HistoryKeys[p.Key] >= 1 {
			return true
		}
	}
	return false
}

func isCaptureOrPromotion(m common.Move) bool {
	return m.CapturedPiece() != common.Empty || m.Promotion() != common.Empty
}
