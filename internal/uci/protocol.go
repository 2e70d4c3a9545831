// Package uci is the engine-protocol front end: it reads UCI commands
// from stdin, drives the search coordinator, and renders results back
// onto stdout in UCI's wire format, translating castling moves to the
// Chess960 "king moves to rook's square" convention when UCI_Chess960 is
// set.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/corvid-engine/corvid/pkg/common"
)

// Engine is the subset of internal/engine.Engine the protocol front end
// depends on, kept narrow so tests can substitute a fake coordinator.
type Engine interface {
	Prepare()
	Clear()
	Search(ctx context.Context, params common.SearchParams) common.SearchInfo
	ResizeHash(mb int)
}

// EngineControls groups the mutable knobs setoption can reach without
// widening the Engine interface with setters every caller would need to
// stub.
type EngineControls struct {
	Threads        *int
	HashMB         *int
	MoveOverheadMs *int
}

type Protocol struct {
	name, author, version string
	engine                 Engine
	controls               EngineControls
	options                []Option
	logger                 zerolog.Logger

	chess960 bool

	positions    []common.Position
	thinking     bool
	engineOutput chan common.SearchInfo
	cancel       context.CancelFunc
}

func New(name, author, version string, eng Engine, controls EngineControls, logger zerolog.Logger) *Protocol {
	var initPosition, err = common.NewPositionFromFEN(common.InitialPositionFen, false)
	if err != nil {
		panic(err)
	}
	var p = &Protocol{
		name:      name,
		author:    author,
		version:   version,
		engine:    eng,
		controls:  controls,
		logger:    logger,
		positions: []common.Position{initPosition},
	}
	p.options = p.buildOptions()
	return p
}

func (p *Protocol) buildOptions() []Option {
	var threads = 1
	if p.controls.Threads != nil {
		threads = *p.controls.Threads
	}
	var hash = 64
	if p.controls.HashMB != nil {
		hash = *p.controls.HashMB
	}
	var moveOverhead = 300
	if p.controls.MoveOverheadMs != nil {
		moveOverhead = *p.controls.MoveOverheadMs
	}
	return []Option{
		NewSpinOption("Hash", &hash, 1, 65536, func(v int) {
			p.engine.ResizeHash(v)
		}),
		NewSpinOption("Threads", &threads, 1, 256, func(v int) {
			if p.controls.Threads != nil {
				*p.controls.Threads = v
			}
		}),
		NewSpinOption("Move Overhead", &moveOverhead, 0, 10000, func(v int) {
			if p.controls.MoveOverheadMs != nil {
				*p.controls.MoveOverheadMs = v
			}
		}),
		NewSpinOption("MultiPV", new(int), 1, 1, nil),
		NewCheckOption("UCI_Chess960", &p.chess960, func(v bool) {
			p.chess960 = v
		}),
	}
}

// Run blocks, reading commands from stdin until "quit" or EOF, reporting
// handler errors to the logger rather than aborting the loop: a
// malformed or unsupported line should never bring the process down.
func (p *Protocol) Run() {
	var commands = make(chan string)
	go func() {
		defer close(commands)
		readCommands(commands)
	}()

	var lastResult common.SearchInfo
	for {
		select {
		case si, ok := <-p.engineOutput:
			if ok {
				fmt.Println(p.searchInfoToUci(si))
				lastResult = si
			} else {
				if len(lastResult.MainLine) != 0 {
					fmt.Println(p.bestMoveToUci(lastResult))
				} else {
					fmt.Println("bestmove 0000")
				}
				p.thinking = false
				p.cancel = nil
				p.engineOutput = nil
				lastResult = common.SearchInfo{}
			}
		case line, ok := <-commands:
			if !ok {
				return
			}
			if err := p.handle(line); err != nil {
				p.logger.Warn().Err(err).Str("line", line).Msg("uci command failed")
			}
		}
	}
}

func readCommands(commands chan<- string) {
	var scanner = bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var line = scanner.Text()
		if line == "quit" {
			return
		}
		if strings.TrimSpace(line) != "" {
			commands <- line
		}
	}
}

func (p *Protocol) handle(line string) error {
	var fields = strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	var name = fields[0]
	fields = fields[1:]

	if p.thinking {
		if name == "stop" {
			p.cancel()
			return nil
		}
		if name == "quit" {
			p.cancel()
			return nil
		}
		return errors.New("search in progress")
	}

	switch name {
	case "uci":
		return p.uciCommand()
	case "setoption":
		return p.setOptionCommand(fields)
	case "isready":
		return p.isReadyCommand()
	case "position":
		return p.positionCommand(fields)
	case "go":
		return p.goCommand(fields)
	case "ucinewgame":
		return p.uciNewGameCommand()
	case "stop":
		return nil
	case "ponderhit":
		return nil
	default:
		return fmt.Errorf("unrecognized command %q", name)
	}
}

func (p *Protocol) uciCommand() error {
	fmt.Printf("id name %s %s\n", p.name, p.version)
	fmt.Printf("id author %s\n", p.author)
	for _, o := range p.options {
		fmt.Println(o.UciString())
	}
	fmt.Println("uciok")
	return nil
}

func (p *Protocol) setOptionCommand(fields []string) error {
	var nameIdx = indexOf(fields, "name")
	var valueIdx = indexOf(fields, "value")
	if nameIdx == -1 {
		return errors.New("malformed setoption: missing name")
	}
	var nameEnd = len(fields)
	if valueIdx != -1 {
		nameEnd = valueIdx
	}
	var optName = strings.Join(fields[nameIdx+1:nameEnd], " ")
	var optValue = ""
	if valueIdx != -1 {
		optValue = strings.Join(fields[valueIdx+1:], " ")
	}
	for _, o := range p.options {
		if strings.EqualFold(o.UciName(), optName) {
			return o.Set(optValue)
		}
	}
	p.logger.Warn().Str("option", optName).Msg("unknown uci option, ignoring")
	return nil
}

func (p *Protocol) isReadyCommand() error {
	p.engine.Prepare()
	fmt.Println("readyok")
	return nil
}

func (p *Protocol) positionCommand(fields []string) error {
	if len(fields) == 0 {
		return errors.New("malformed position command")
	}
	var fen string
	var movesIdx = indexOf(fields, "moves")
	switch fields[0] {
	case "startpos":
		fen = common.InitialPositionFen
	case "fen":
		if movesIdx == -1 {
			fen = strings.Join(fields[1:], " ")
		} else {
			fen = strings.Join(fields[1:movesIdx], " ")
		}
	default:
		return errors.New("unknown position token")
	}

	var pos, err = common.NewPositionFromFEN(fen, p.chess960)
	if err != nil {
		// An illegal position or move aborts the update and preserves
		// whatever position was already loaded, never half-applies it.
		return err
	}

	var positions = []common.Position{pos}
	if movesIdx >= 0 {
		for _, lan := range fields[movesIdx+1:] {
			var next, ok = positions[len(positions)-1].MakeMoveLAN(lan)
			if !ok {
				return fmt.Errorf("illegal move %q in position command", lan)
			}
			positions = append(positions, next)
		}
	}
	p.positions = positions
	return nil
}

func (p *Protocol) goCommand(fields []string) error {
	var limits = parseLimits(fields)
	var ctx, cancel = context.WithCancel(context.Background())
	p.cancel = cancel
	p.thinking = true
	p.engineOutput = make(chan common.SearchInfo, 4)

	var positions = p.positions
	go func() {
		var result = p.engine.Search(ctx, common.SearchParams{
			Positions: positions,
			Limits:    limits,
			Progress: func(si common.SearchInfo) {
				select {
				case p.engineOutput <- si:
				default:
				}
			},
		})
		p.engineOutput <- result
		close(p.engineOutput)
	}()
	return nil
}

func (p *Protocol) uciNewGameCommand() error {
	p.engine.Clear()
	return nil
}

func (p *Protocol) rootPosition() *common.Position {
	return &p.positions[len(p.positions)-1]
}

func (p *Protocol) bestMoveToUci(si common.SearchInfo) string {
	var root = p.rootPosition()
	var best = si.MainLine[0].UCIString(root, p.chess960)
	if len(si.MainLine) > 1 {
		var next common.Position
		if root.MakeMove(si.MainLine[0], &next) {
			return fmt.Sprintf("bestmove %s ponder %s", best, si.MainLine[1].UCIString(&next, p.chess960))
		}
	}
	return "bestmove " + best
}

func (p *Protocol) searchInfoToUci(si common.SearchInfo) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "info depth %d seldepth %d", si.Depth, si.SelDepth)
	if si.Score.Mate != 0 {
		fmt.Fprintf(&sb, " score mate %d", si.Score.Mate)
	} else {
		fmt.Fprintf(&sb, " score cp %d", si.Score.Centipawns)
	}
	var timeMs = si.Time
	if timeMs <= 0 {
		timeMs = 1
	}
	var nps = si.Nodes * 1000 / timeMs
	fmt.Fprintf(&sb, " nodes %d time %d nps %d hashfull %d", si.Nodes, si.Time, nps, si.Hashfull)
	if len(si.MainLine) != 0 {
		sb.WriteString(" pv")
		var cur = *p.rootPosition()
		for _, m := range si.MainLine {
			sb.WriteString(" ")
			sb.WriteString(m.UCIString(&cur, p.chess960))
			var next common.Position
			if !cur.MakeMove(m, &next) {
				break
			}
			cur = next
		}
	}
	return sb.String()
}

func parseLimits(fields []string) (result common.LimitsType) {
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "ponder":
			result.Ponder = true
		case "infinite":
			result.Infinite = true
		case "wtime":
			result.WhiteTime, i = atoiNext(fields, i)
		case "btime":
			result.BlackTime, i = atoiNext(fields, i)
		case "winc":
			result.WhiteIncrement, i = atoiNext(fields, i)
		case "binc":
			result.BlackIncrement, i = atoiNext(fields, i)
		case "movestogo":
			result.MovesToGo, i = atoiNext(fields, i)
		case "depth":
			result.Depth, i = atoiNext(fields, i)
		case "nodes":
			result.Nodes, i = atoiNext(fields, i)
		case "mate":
			result.Mate, i = atoiNext(fields, i)
		case "movetime":
			result.MoveTime, i = atoiNext(fields, i)
		}
	}
	return
}

func atoiNext(fields []string, i int) (int, int) {
	if i+1 >= len(fields) {
		return 0, i
	}
	var v, _ = strconv.Atoi(fields[i+1])
	return v, i + 1
}

func indexOf(fields []string, value string) int {
	for i, f := range fields {
		if f == value {
			return i
		}
	}
	return -1
}
