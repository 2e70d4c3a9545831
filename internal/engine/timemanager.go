package engine

import (
	"context"
	"time"

	"github.com/corvid-engine/corvid/pkg/common"
)

const (
	defaultMovesToGo = 40
	minTimeLimit     = time.Millisecond
)

// timeManager derives soft and hard search budgets from the remaining
// clock, watches iteration results for an early-exit opportunity (a
// stable mate score, a depth limit, a node limit), and owns the
// context.Context the search goroutines poll to know when to stop.
type timeManager struct {
	ctx    context.Context
	cancel context.CancelFunc

	softLimit time.Duration
	hardLimit time.Duration
	started   time.Time

	nodesLimit int64
	depthLimit int

	lastElapsed time.Duration
}

func newTimeManager(parent context.Context, limits common.LimitsType, whiteToMove bool, moveOverhead time.Duration) *timeManager {
	var tm = &timeManager{started: nowFunc()}

	if limits.Infinite || limits.Ponder {
		tm.ctx, tm.cancel = context.WithCancel(parent)
		return tm
	}

	if limits.MoveTime > 0 {
		tm.softLimit = time.Duration(limits.MoveTime) * time.Millisecond
		tm.hardLimit = tm.softLimit
	} else {
		var main = limits.WhiteTime
		var inc = limits.WhiteIncrement
		if !whiteToMove {
			main = limits.BlackTime
			inc = limits.BlackIncrement
		}
		tm.softLimit, tm.hardLimit = calcLimits(main, inc, limits.MovesToGo, moveOverhead)
	}

	tm.nodesLimit = int64(limits.Nodes)
	tm.depthLimit = limits.Depth

	if tm.hardLimit > 0 {
		tm.ctx, tm.cancel = context.WithDeadline(parent, tm.started.Add(tm.hardLimit))
	} else {
		tm.ctx, tm.cancel = context.WithCancel(parent)
	}
	return tm
}

func calcLimits(mainMs, incMs, movesToGo int, moveOverhead time.Duration) (soft, hard time.Duration) {
	var main = time.Duration(mainMs) * time.Millisecond
	var inc = time.Duration(incMs) * time.Millisecond

	if movesToGo <= 0 {
		var ideal = main/35 + inc/2
		soft = ideal * 7 / 10
		hard = ideal * 21 / 10
	} else {
		var ideal = main/time.Duration(movesToGo+1) + inc
		soft = ideal * 7 / 10
		hard = ideal * 21 / 10
	}

	soft = limitDuration(soft-moveOverhead, minTimeLimit, main)
	hard = limitDuration(hard-moveOverhead, minTimeLimit, main)
	return
}

func limitDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if hi > 0 && d > hi {
		return hi
	}
	return d
}

// Context is polled by every search goroutine through the StopSignal
// adapter, not read directly: each worker calls Stopped(), which checks
// ctx.Err() without blocking.
func (tm *timeManager) Context() context.Context {
	return tm.ctx
}

func (tm *timeManager) Stopped() bool {
	return tm.ctx.Err() != nil
}

func (tm *timeManager) Close() {
	tm.cancel()
}

// OnNodesChanged cancels the search the moment the aggregate node count
// (summed across every LazySMP thread) crosses the configured node
// limit.
func (tm *timeManager) OnNodesChanged(nodes int64) {
	if tm.nodesLimit > 0 && nodes >= tm.nodesLimit {
		tm.cancel()
	}
}

// OnIterationComplete is called by the coordinator after every completed
// depth with the current best line, and decides whether iterative
// deepening should stop: depth limit reached, a mate found with enough
// margin that spending more time on it is pointless, or the soft time
// budget elapsed.
func (tm *timeManager) OnIterationComplete(depth int, score int, mateDistance int) {
	if tm.depthLimit > 0 && depth >= tm.depthLimit {
		tm.cancel()
		return
	}
	// A forced mate found with enough spare depth behind it is stable:
	// searching deeper will not change the verdict, only the exact mate
	// distance, so stop spending the rest of the budget on it.
	if mateDistance > 0 && depth >= mateDistance+5 {
		tm.cancel()
		return
	}
	var elapsed = nowFunc().Sub(tm.started)
	if tm.softLimit > 0 && elapsed >= tm.softLimit {
		tm.cancel()
		return
	}

	// Project the next iteration's wall time as 2.4x the one just
	// finished; if that projection would blow through the hard limit,
	// stop now rather than starting an iteration we'd abandon partway.
	var thisIter = elapsed - tm.lastElapsed
	tm.lastElapsed = elapsed
	if tm.hardLimit > 0 && thisIter > 0 {
		var projected = elapsed + thisIter*12/5
		if projected > tm.hardLimit {
			tm.cancel()
		}
	}
}

// nowFunc is indirected so tests can fake elapsed time if ever needed;
// production code always uses the real clock.
var nowFunc = time.Now
