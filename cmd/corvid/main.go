// Command corvid is the engine's process entry point: it loads the
// quantized evaluator weights, wires the search coordinator to the UCI
// front end, and runs the protocol loop on stdin/stdout until "quit".
package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"

	"github.com/corvid-engine/corvid/internal/engine"
	"github.com/corvid-engine/corvid/internal/nnue"
	"github.com/corvid-engine/corvid/internal/uci"
)

const (
	engineName    = "Corvid"
	engineAuthor  = "corvid-engine"
	engineVersion = "1.0"
)

func main() {
	var weightsPath = flag.String("weights", "corvid.nnue", "path to the quantized evaluator weights artifact")
	var logLevel = flag.String("loglevel", "info", "zerolog level: debug, info, warn, error")
	flag.Parse()

	var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if level, err := zerolog.ParseLevel(*logLevel); err == nil {
		logger = logger.Level(level)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("fatal error during startup")
			os.Exit(1)
		}
	}()

	var net, err = nnue.Load(*weightsPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *weightsPath).Msg("failed to load evaluator weights")
	}

	var eng = engine.NewEngine(net)

	var protocol = uci.New(engineName, engineAuthor, engineVersion, eng, uci.EngineControls{
		Threads:        &eng.Threads,
		HashMB:         &eng.Hash,
		MoveOverheadMs: &eng.MoveOverheadMs,
	}, logger)

	protocol.Run()
}
