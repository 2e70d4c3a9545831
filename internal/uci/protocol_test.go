package uci

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/corvid-engine/corvid/pkg/common"
)

// fakeEngine stubs internal/engine.Engine so protocol command parsing can
// be exercised without a real search.
type fakeEngine struct {
	prepared    bool
	cleared     bool
	resizedTo   int
	lastParams  common.SearchParams
	searchReply common.SearchInfo
}

func (f *fakeEngine) Prepare()        { f.prepared = true }
func (f *fakeEngine) Clear()          { f.cleared = true }
func (f *fakeEngine) ResizeHash(mb int) { f.resizedTo = mb }

func (f *fakeEngine) Search(ctx context.Context, params common.SearchParams) common.SearchInfo {
	f.lastParams = params
	return f.searchReply
}

func newTestProtocol() (*Protocol, *fakeEngine) {
	var eng = &fakeEngine{}
	var threads, hash, overhead = 1, 64, 300
	var p = New("corvid", "test", "0", eng, EngineControls{
		Threads:        &threads,
		HashMB:         &hash,
		MoveOverheadMs: &overhead,
	}, zerolog.Nop())
	return p, eng
}

func TestPositionCommandStartpos(t *testing.T) {
	var p, _ = newTestProtocol()
	if err := p.positionCommand([]string{"startpos"}); err != nil {
		t.Fatal(err)
	}
	if p.rootPosition().Key != mustTestPos(t, common.InitialPositionFen).Key {
		t.Error("startpos should load the initial position")
	}
}

func TestPositionCommandFenWithoutMoves(t *testing.T) {
	var p, _ = newTestProtocol()
	var fen = "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"
	if err := p.positionCommand(append([]string{"fen"}, fenFields(fen)...)); err != nil {
		t.Fatal(err)
	}
	if p.rootPosition().Key != mustTestPos(t, fen).Key {
		t.Error("fen without moves should load exactly that position")
	}
}

func TestPositionCommandFenWithMoves(t *testing.T) {
	var p, _ = newTestProtocol()
	var fields = append([]string{"startpos", "moves"}, "e2e4", "e7e5")
	if err := p.positionCommand(fields); err != nil {
		t.Fatal(err)
	}
	if len(p.positions) != 3 {
		t.Errorf("len(positions) = %d, want 3 (root + 2 played moves)", len(p.positions))
	}
}

func TestPositionCommandRejectsIllegalMoveAndPreservesPriorState(t *testing.T) {
	var p, _ = newTestProtocol()
	if err := p.positionCommand([]string{"startpos"}); err != nil {
		t.Fatal(err)
	}
	var before = p.positions
	if err := p.positionCommand([]string{"startpos", "moves", "e2e5"}); err == nil {
		t.Fatal("expected an error for an illegal move in the position command")
	}
	if len(p.positions) != len(before) {
		t.Error("a rejected position command must not mutate the previously loaded position")
	}
}

func TestPositionCommandUnknownTokenErrors(t *testing.T) {
	var p, _ = newTestProtocol()
	if err := p.positionCommand([]string{"bogus"}); err == nil {
		t.Error("expected an error for an unrecognized position token")
	}
}

func TestSetOptionCommandDispatchesByName(t *testing.T) {
	p, eng := newTestProtocol()
	if err := p.setOptionCommand([]string{"name", "Hash", "value", "128"}); err != nil {
		t.Fatal(err)
	}
	if eng.resizedTo != 128 {
		t.Errorf("ResizeHash called with %d, want 128", eng.resizedTo)
	}
}

func TestSetOptionCommandUnknownNameIsIgnoredNotError(t *testing.T) {
	var p, _ = newTestProtocol()
	if err := p.setOptionCommand([]string{"name", "Nonexistent", "value", "1"}); err != nil {
		t.Errorf("unknown option should be logged and ignored, not returned as an error: %v", err)
	}
}

func TestSetOptionCommandMissingNameErrors(t *testing.T) {
	var p, _ = newTestProtocol()
	if err := p.setOptionCommand([]string{"value", "128"}); err == nil {
		t.Error("expected an error when setoption has no name token")
	}
}

func TestSetOptionCommandMultiWordName(t *testing.T) {
	p, eng := newTestProtocol()
	if err := p.setOptionCommand([]string{"name", "Move", "Overhead", "value", "500"}); err != nil {
		t.Fatal(err)
	}
	_ = eng
}

func TestIsReadyCommandCallsPrepareAndPrintsReadyok(t *testing.T) {
	p, eng := newTestProtocol()
	if err := p.isReadyCommand(); err != nil {
		t.Fatal(err)
	}
	if !eng.prepared {
		t.Error("isready should call Engine.Prepare")
	}
}

func TestUciNewGameCommandCallsClear(t *testing.T) {
	p, eng := newTestProtocol()
	if err := p.uciNewGameCommand(); err != nil {
		t.Fatal(err)
	}
	if !eng.cleared {
		t.Error("ucinewgame should call Engine.Clear")
	}
}

func TestParseLimitsReadsAllFields(t *testing.T) {
	var limits = parseLimits([]string{"wtime", "60000", "btime", "59000", "winc", "1000", "binc", "1000", "movestogo", "20", "depth", "10", "nodes", "500000", "movetime", "3000"})
	if limits.WhiteTime != 60000 || limits.BlackTime != 59000 {
		t.Errorf("wtime/btime = %d/%d, want 60000/59000", limits.WhiteTime, limits.BlackTime)
	}
	if limits.WhiteIncrement != 1000 || limits.BlackIncrement != 1000 {
		t.Errorf("winc/binc = %d/%d, want 1000/1000", limits.WhiteIncrement, limits.BlackIncrement)
	}
	if limits.MovesToGo != 20 {
		t.Errorf("movestogo = %d, want 20", limits.MovesToGo)
	}
	if limits.Depth != 10 {
		t.Errorf("depth = %d, want 10", limits.Depth)
	}
	if limits.Nodes != 500000 {
		t.Errorf("nodes = %d, want 500000", limits.Nodes)
	}
	if limits.MoveTime != 3000 {
		t.Errorf("movetime = %d, want 3000", limits.MoveTime)
	}
}

func TestParseLimitsInfiniteAndPonderFlags(t *testing.T) {
	var limits = parseLimits([]string{"infinite"})
	if !limits.Infinite {
		t.Error("expected Infinite=true")
	}
	limits = parseLimits([]string{"ponder"})
	if !limits.Ponder {
		t.Error("expected Ponder=true")
	}
}

func TestSearchInfoToUciRendersCentipawnScore(t *testing.T) {
	var p, _ = newTestProtocol()
	var si = common.SearchInfo{
		Depth: 5, SelDepth: 7,
		Score: common.UciScore{Centipawns: 42},
		Nodes: 1000, Time: 500, Hashfull: 10,
	}
	var out = p.searchInfoToUci(si)
	if !strings.Contains(out, "score cp 42") {
		t.Errorf("searchInfoToUci output %q missing centipawn score", out)
	}
	if !strings.Contains(out, "depth 5 seldepth 7") {
		t.Errorf("searchInfoToUci output %q missing depth/seldepth", out)
	}
}

func TestSearchInfoToUciRendersMateScore(t *testing.T) {
	var p, _ = newTestProtocol()
	var si = common.SearchInfo{Score: common.UciScore{Mate: 3}}
	var out = p.searchInfoToUci(si)
	if !strings.Contains(out, "score mate 3") {
		t.Errorf("searchInfoToUci output %q missing mate score", out)
	}
}

func TestBestMoveToUciIncludesPonderMove(t *testing.T) {
	var p, _ = newTestProtocol()
	p.positions = []common.Position{mustTestPos(t, common.InitialPositionFen)}
	var e2e4 = findTestMove(t, p.rootPosition(), common.SquareE2, common.SquareE4)
	var next common.Position
	p.rootPosition().MakeMove(e2e4, &next)
	var e7e5 = findTestMove(t, &next, common.SquareE7, common.SquareE5)

	var si = common.SearchInfo{MainLine: []common.Move{e2e4, e7e5}}
	var out = p.bestMoveToUci(si)
	if !strings.Contains(out, "bestmove e2e4") || !strings.Contains(out, "ponder e7e5") {
		t.Errorf("bestMoveToUci output %q, want bestmove e2e4 ponder e7e5", out)
	}
}

func TestBestMoveToUciWithoutPonderMove(t *testing.T) {
	var p, _ = newTestProtocol()
	p.positions = []common.Position{mustTestPos(t, common.InitialPositionFen)}
	var e2e4 = findTestMove(t, p.rootPosition(), common.SquareE2, common.SquareE4)
	var si = common.SearchInfo{MainLine: []common.Move{e2e4}}
	var out = p.bestMoveToUci(si)
	if out != "bestmove e2e4" {
		t.Errorf("bestMoveToUci output = %q, want %q", out, "bestmove e2e4")
	}
}

func TestIndexOfFindsToken(t *testing.T) {
	if got := indexOf([]string{"name", "Hash", "value", "1"}, "value"); got != 2 {
		t.Errorf("indexOf = %d, want 2", got)
	}
	if got := indexOf([]string{"a", "b"}, "c"); got != -1 {
		t.Errorf("indexOf for missing token = %d, want -1", got)
	}
}

func TestAtoiNextParsesIntegerAtOffset(t *testing.T) {
	var v, next = atoiNext([]string{"depth", "12"}, 0)
	if v != 12 || next != 1 {
		t.Errorf("atoiNext = (%d, %d), want (12, 1)", v, next)
	}
}

func TestAtoiNextReturnsZeroWhenFieldMissing(t *testing.T) {
	var v, next = atoiNext([]string{"depth"}, 0)
	if v != 0 || next != 0 {
		t.Errorf("atoiNext at end of fields = (%d, %d), want (0, 0)", v, next)
	}
}

func mustTestPos(t *testing.T, fen string) common.Position {
	t.Helper()
	var pos, err = common.NewPositionFromFEN(fen, false)
	if err != nil {
		t.Fatalf("NewPositionFromFEN(%q): %v", fen, err)
	}
	return pos
}

func findTestMove(t *testing.T, pos *common.Position, from, to int) common.Move {
	t.Helper()
	for _, m := range common.GenerateLegalMoves(pos) {
		if m.From() == from && m.To() == to {
			return m
		}
	}
	t.Fatalf("no legal move %s-%s", common.SquareName(from), common.SquareName(to))
	return common.MoveEmpty
}

func fenFields(fen string) []string {
	return strings.Fields(fen)
}
