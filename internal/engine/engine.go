// Package engine is the search coordinator: it owns the shared
// transposition table, spins up a LazySMP pool of internal/search
// threads per "go" command, drives iterative deepening with aspiration
// windows on each thread independently, merges their results, and
// reports progress back to whatever protocol front end is driving it.
package engine

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corvid-engine/corvid/internal/nnue"
	"github.com/corvid-engine/corvid/internal/search"
	"github.com/corvid-engine/corvid/internal/tt"
	"github.com/corvid-engine/corvid/pkg/common"
)

const (
	DefaultHashMB         = 64
	DefaultThreads        = 1
	DefaultMoveOverheadMs = 300
)

// Engine holds everything that must survive across successive "go"
// commands: the transposition table (cleared only on ucinewgame or a
// Hash-size change), the loaded network, and the configured thread
// count.
type Engine struct {
	Hash           int
	Threads        int
	MoveOverheadMs int

	table *tt.Table
	net   *nnue.Network

	mu sync.Mutex
}

func NewEngine(net *nnue.Network) *Engine {
	return &Engine{
		Hash:           DefaultHashMB,
		Threads:        DefaultThreads,
		MoveOverheadMs: DefaultMoveOverheadMs,
		net:            net,
		table:          tt.New(DefaultHashMB),
	}
}

// Prepare allocates the transposition table only if there is none yet;
// a Hash option change is applied eagerly by ResizeHash, and changing
// Threads alone never pays for a fresh table.
func (e *Engine) Prepare() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.table == nil {
		e.table = tt.New(e.Hash)
	}
}

// ResizeHash replaces the table outright; called from the UCI front end
// when the user sets the Hash option.
func (e *Engine) ResizeHash(mb int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Hash = mb
	e.table = tt.New(mb)
}

func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.table != nil {
		e.table.Clear()
	}
}

// mainLine is thread 0's reported line after its most recently completed
// depth; the other LazySMP threads never write here, they only diversify
// the shared TT.
type mainLine struct {
	depth    int
	score    int
	pv       []common.Move
	nodes    int64
	selDepth int
}

// Search runs iterative deepening across e.Threads LazySMP workers on the
// given position history (the last position is the one to search; the
// earlier ones seed the repetition table) until the time manager or an
// explicit Stop cancels it, reporting progress through params.Progress
// after each completed depth.
func (e *Engine) Search(ctx context.Context, params common.SearchParams) common.SearchInfo {
	e.Prepare()

	var positions = params.Positions
	var root = positions[len(positions)-1]

	var overhead = time.Duration(e.MoveOverheadMs) * time.Millisecond
	var tm = newTimeManager(ctx, params.Limits, root.WhiteMove, overhead)
	defer tm.Close()

	e.table.NewSearch()

	var historyKeys = buildRepetitionTable(positions)

	var result mainLine
	var resultMu sync.Mutex
	var threadNodes = make([]int64, e.Threads)
	if len(threadNodes) == 0 {
		threadNodes = make([]int64, 1)
	}

	var numThreads = e.Threads
	if numThreads < 1 {
		numThreads = 1
	}

	var group errgroup.Group

	for i := 0; i < numThreads; i++ {
		var index = i
		group.Go(func() error {
			defer func() {
				// Matches the teacher's panic/recover boundary: a worker
				// that panics with ErrSearchTimeout exits cleanly instead
				// of tearing down the whole pool.
				if r := recover(); r != nil {
					if r != search.ErrSearchTimeout {
						panic(r)
					}
				}
			}()

			var evaluator = nnue.NewEvaluator(e.net)
			var thread = search.NewThread(index, e.table, tm, evaluator, reductions)
			thread.HistoryKeys = historyKeys
			thread.SetRootPosition(root)

			var prevScore = 0
			for depth := 1; depth <= maxSearchDepth; depth++ {
				var score, pv = thread.SearchDepth(depth, prevScore)
				prevScore = score

				resultMu.Lock()
				threadNodes[index] = thread.Nodes
				var nodes int64
				for _, n := range threadNodes {
					nodes += n
				}
				// Thread 0 is the coordinator: its line is the only one
				// ever reported as the bestmove, and only its iterations
				// drive the early-exit decisions (mate stability, depth
				// limit, projected-time abort). Other threads exist only
				// to diversify the shared TT.
				if index == 0 {
					result = mainLine{depth: depth, score: score, pv: pv, nodes: nodes, selDepth: thread.SelDepth}
					if params.Progress != nil {
						params.Progress(common.SearchInfo{
							Score:    newUciScore(score),
							Depth:    depth,
							SelDepth: thread.SelDepth,
							Nodes:    nodes,
							Time:     nowFunc().Sub(tm.started).Milliseconds(),
							Hashfull: e.table.HashfullPerMille(),
							MainLine: pv,
						})
					}
				}
				resultMu.Unlock()

				tm.OnNodesChanged(nodes)
				if index == 0 {
					tm.OnIterationComplete(depth, score, mateDistance(score))
				}

				if tm.Stopped() {
					return nil
				}
			}
			return nil
		})
	}

	_ = group.Wait()

	resultMu.Lock()
	defer resultMu.Unlock()
	return common.SearchInfo{
		Score:    newUciScore(result.score),
		Depth:    result.depth,
		SelDepth: result.selDepth,
		Nodes:    result.nodes,
		Time:     nowFunc().Sub(tm.started).Milliseconds(),
		Hashfull: e.table.HashfullPerMille(),
		MainLine: result.pv,
	}
}

const maxSearchDepth = 127

var reductions = search.NewReductionTable()

// buildRepetitionTable walks the supplied position history backward from
// the root, counting key occurrences since the last irreversible move
// (Rule50 reset); this is consulted by every search thread as the
// fallback for repetitions that started before the search tree, since
// the in-tree stack alone cannot see them.
func buildRepetitionTable(positions []common.Position) map[uint64]int {
	var keys = make(map[uint64]int)
	for i := len(positions) - 1; i >= 0; i-- {
		keys[positions[i].Key]++
		if positions[i].Rule50 == 0 {
			break
		}
	}
	return keys
}

func mateDistance(score int) int {
	switch {
	case score >= tt.ValueWin:
		return tt.ValueMate - score
	case score <= tt.ValueLoss:
		return tt.ValueMate + score
	default:
		return 0
	}
}

func newUciScore(v int) common.UciScore {
	if v >= tt.ValueWin {
		return common.UciScore{Mate: (tt.ValueMate - v + 1) / 2}
	}
	if v <= tt.ValueLoss {
		return common.UciScore{Mate: -(tt.ValueMate + v + 1) / 2}
	}
	return common.UciScore{Centipawns: v}
}
