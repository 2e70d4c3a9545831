package order

import (
	"testing"

	"github.com/corvid-engine/corvid/pkg/common"
)

func moveFromTo(from, to int) common.Move {
	var buffer [common.MaxMoves]common.Move
	var pos, _ = common.NewPositionFromFEN(common.InitialPositionFen, false)
	for _, m := range common.GenerateMoves(buffer[:], &pos) {
		if m.From() == from && m.To() == to {
			return m
		}
	}
	return common.MoveEmpty
}

// White and black quiet moves sharing the same from/to squares must not
// pollute each other's ordering statistics: this is the property the
// side-indexed main table exists to preserve.
func TestHistoryIsSplitBySideToMove(t *testing.T) {
	var h = NewHistory()
	var m = moveFromTo(common.SquareE2, common.SquareE4)

	h.Update(true, m, []common.Move{m}, 6, ContKey{}, ContKey{})

	var whiteScore = h.ReadTotal(m, true, ContKey{}, ContKey{})
	var blackScore = h.ReadTotal(m, false, ContKey{}, ContKey{})

	if whiteScore == 0 {
		t.Fatal("expected a nonzero history score for white after a cutoff update")
	}
	if blackScore != 0 {
		t.Errorf("black's history score for the same from/to squares changed: got %d, want 0", blackScore)
	}
}

func TestHistoryUpdateRewardsCutoffMoveAndPenalizesEarlierQuiets(t *testing.T) {
	var h = NewHistory()
	var tried = moveFromTo(common.SquareD2, common.SquareD4)
	var cutoff = moveFromTo(common.SquareE2, common.SquareE4)

	h.Update(true, cutoff, []common.Move{tried, cutoff}, 6, ContKey{}, ContKey{})

	var triedScore = h.ReadTotal(tried, true, ContKey{}, ContKey{})
	var cutoffScore = h.ReadTotal(cutoff, true, ContKey{}, ContKey{})

	if cutoffScore <= triedScore {
		t.Errorf("cutoff move score %d should exceed penalized earlier quiet score %d", cutoffScore, triedScore)
	}
	if triedScore >= 0 {
		t.Errorf("quiet move tried before the cutoff should be penalized negative, got %d", triedScore)
	}
}

func TestHistoryContinuationTablesContributeToTotal(t *testing.T) {
	var h = NewHistory()
	var m = moveFromTo(common.SquareE2, common.SquareE4)
	var cont1 = MakeContKey(common.Knight, true, common.SquareF3)

	var before = h.ReadTotal(m, true, cont1, ContKey{})
	h.Update(true, m, []common.Move{m}, 6, cont1, ContKey{})
	var withCont = h.ReadTotal(m, true, cont1, ContKey{})
	var withoutCont = h.ReadTotal(m, true, ContKey{}, ContKey{})

	if withCont <= before {
		t.Fatalf("expected continuation-table update to raise the scored total")
	}
	if withCont <= withoutCont {
		t.Errorf("reading with the matching continuation key (%d) should exceed reading without it (%d)", withCont, withoutCont)
	}
}

func TestHistoryClearResetsAllTables(t *testing.T) {
	var h = NewHistory()
	var m = moveFromTo(common.SquareE2, common.SquareE4)
	h.Update(true, m, []common.Move{m}, 6, ContKey{}, ContKey{})
	h.Clear()
	if got := h.ReadTotal(m, true, ContKey{}, ContKey{}); got != 0 {
		t.Errorf("ReadTotal after Clear = %d, want 0", got)
	}
}

func TestKillersUpdateShiftsSlotsAndIgnoresDuplicates(t *testing.T) {
	var k Killers
	var m1 = moveFromTo(common.SquareE2, common.SquareE4)
	var m2 = moveFromTo(common.SquareD2, common.SquareD4)

	k.Update(m1)
	k.Update(m2)
	var s1, s2 = k.Get()
	if s1 != m2 || s2 != m1 {
		t.Errorf("Get() = (%v, %v), want (%v, %v)", s1, s2, m2, m1)
	}

	k.Update(m2)
	s1, s2 = k.Get()
	if s1 != m2 || s2 != m1 {
		t.Errorf("re-inserting the first slot's move should be a no-op, got (%v, %v)", s1, s2)
	}
}

func TestKillersClearEmptiesBothSlots(t *testing.T) {
	var k Killers
	k.Update(moveFromTo(common.SquareE2, common.SquareE4))
	k.Clear()
	var s1, s2 = k.Get()
	if s1 != common.MoveEmpty || s2 != common.MoveEmpty {
		t.Errorf("Get() after Clear = (%v, %v), want (MoveEmpty, MoveEmpty)", s1, s2)
	}
}
