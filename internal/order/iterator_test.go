package order

import (
	"testing"

	"github.com/corvid-engine/corvid/pkg/common"
)

func findMoveIn(t *testing.T, pos *common.Position, from, to int) common.Move {
	t.Helper()
	var buffer [common.MaxMoves]common.Move
	for _, m := range common.GenerateMoves(buffer[:], pos) {
		if m.From() == from && m.To() == to {
			return m
		}
	}
	t.Fatalf("no pseudo-legal move %s-%s", common.SquareName(from), common.SquareName(to))
	return common.MoveEmpty
}

// The transposition-table move must always be yielded first, ahead of any
// capture, regardless of its material value.
func TestIteratorYieldsHashMoveFirst(t *testing.T) {
	var pos, err = common.NewPositionFromFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -", false)
	if err != nil {
		t.Fatal(err)
	}
	var hashMove = findMoveIn(t, &pos, common.SquareE2, common.SquareA6)
	var it = NewIterator(&pos, hashMove, common.MoveEmpty, common.MoveEmpty, NewHistory(), ContKey{}, ContKey{})
	var first, ok = it.Next()
	if !ok {
		t.Fatal("iterator yielded nothing")
	}
	if first != hashMove {
		t.Errorf("first move = %v, want hash move %v", first, hashMove)
	}
}

// A killer move must be yielded ahead of ordinary quiet moves, but behind
// winning captures.
func TestIteratorOrdersKillerAboveQuietsBelowGoodCaptures(t *testing.T) {
	var pos, err = common.NewPositionFromFEN(common.InitialPositionFen, false)
	if err != nil {
		t.Fatal(err)
	}
	var killer = findMoveIn(t, &pos, common.SquareG1, common.SquareF3)
	var quiet = findMoveIn(t, &pos, common.SquareA2, common.SquareA3)

	var it = NewIterator(&pos, common.MoveEmpty, killer, common.MoveEmpty, NewHistory(), ContKey{}, ContKey{})
	var seenKiller, seenQuiet = -1, -1
	for i := 0; ; i++ {
		var m, ok = it.Next()
		if !ok {
			break
		}
		if m == killer {
			seenKiller = i
		}
		if m == quiet {
			seenQuiet = i
		}
	}
	if seenKiller < 0 || seenQuiet < 0 {
		t.Fatal("expected both the killer and the quiet move to be yielded")
	}
	if seenKiller >= seenQuiet {
		t.Errorf("killer yielded at index %d, quiet at %d; killer should come first", seenKiller, seenQuiet)
	}
}

// SkipQuiets must still let the hash move through even if it is quiet,
// since the caller relies on the hash move always being tried.
func TestIteratorSkipQuietsStillYieldsHashMove(t *testing.T) {
	var pos, err = common.NewPositionFromFEN(common.InitialPositionFen, false)
	if err != nil {
		t.Fatal(err)
	}
	var hashMove = findMoveIn(t, &pos, common.SquareA2, common.SquareA3)

	var it = NewIterator(&pos, hashMove, common.MoveEmpty, common.MoveEmpty, NewHistory(), ContKey{}, ContKey{})
	it.SkipQuiets()

	var sawHashMove = false
	for {
		var m, ok = it.Next()
		if !ok {
			break
		}
		if m == hashMove {
			sawHashMove = true
		}
		if isQuiet(m) && m != hashMove {
			t.Errorf("SkipQuiets still yielded a non-hash quiet move %v", m)
		}
	}
	if !sawHashMove {
		t.Error("SkipQuiets suppressed the hash move itself")
	}
}

// QuietsSearched must record every quiet move yielded so far, used to
// apply history penalties after a cutoff.
func TestIteratorQuietsSearchedTracksYieldedQuiets(t *testing.T) {
	var pos, err = common.NewPositionFromFEN(common.InitialPositionFen, false)
	if err != nil {
		t.Fatal(err)
	}
	var it = NewIterator(&pos, common.MoveEmpty, common.MoveEmpty, common.MoveEmpty, NewHistory(), ContKey{}, ContKey{})
	var quietCount = 0
	for i := 0; i < 5; i++ {
		var m, ok = it.Next()
		if !ok {
			break
		}
		if isQuiet(m) {
			quietCount++
		}
	}
	if len(it.QuietsSearched()) != quietCount {
		t.Errorf("QuietsSearched() has %d entries, want %d", len(it.QuietsSearched()), quietCount)
	}
}

// The quiescence iterator in a quiet (non-check) position must only
// produce captures and promotions, never quiet moves.
func TestQIteratorOnlyYieldsCapturesWhenNotInCheck(t *testing.T) {
	var pos, err = common.NewPositionFromFEN("r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq -", false)
	if err != nil {
		t.Fatal(err)
	}
	var it = NewQIterator(&pos, false)
	var sawAny = false
	for {
		var m, ok = it.Next()
		if !ok {
			break
		}
		sawAny = true
		if isQuiet(m) {
			t.Errorf("quiescence iterator yielded a non-capture, non-promotion move %v", m)
		}
	}
	if !sawAny {
		t.Fatal("expected at least one capture in this position")
	}
}

// When in check, the quiescence iterator must fall back to every legal
// evasion, including quiet ones, since standing pat is not an option.
func TestQIteratorYieldsQuietEvasionsWhenInCheck(t *testing.T) {
	var pos, err = common.NewPositionFromFEN("4k3/8/8/8/8/8/4r3/4K3 w - - 0 1", false)
	if err != nil {
		t.Fatal(err)
	}
	var it = NewQIterator(&pos, true)
	var sawQuiet = false
	for {
		var m, ok = it.Next()
		if !ok {
			break
		}
		if isQuiet(m) {
			sawQuiet = true
		}
	}
	if !sawQuiet {
		t.Error("expected at least one quiet evasion to be yielded while in check")
	}
}
