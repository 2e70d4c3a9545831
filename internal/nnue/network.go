// Package nnue implements the engine's evaluator: a small perspective
// network with an incrementally maintained accumulator and sixteen
// phase-bucketed output heads, one per value of the material-based phase
// index described in the evaluation specification.
package nnue

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

const (
	InputFeatures = 768 // 64 squares * 6 piece types * 2 colors
	HiddenSize    = 384
	PhaseBuckets  = 16

	magicHeader    = 0x43564e4e // "CVNN"
	formatVersion1 = 1
)

// Network holds the quantized weights loaded from an artifact file. All
// arithmetic downstream is fixed-point: feature weights and the hidden
// bias are int16, the per-bucket output weights and bias are int32 to
// give the final dot-product enough headroom before the descale shift.
type Network struct {
	FeatureWeights [InputFeatures][HiddenSize]int16
	HiddenBias     [HiddenSize]int16

	OutputWeights [PhaseBuckets][2 * HiddenSize]int32
	OutputBias    [PhaseBuckets]int32
}

// Load reads a quantized weights artifact. A malformed or missing file is
// fatal at startup: there is no sane fallback evaluator to run instead.
func Load(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("nnue: open weights: %w", err)
	}
	defer f.Close()
	return loadFrom(bufio.NewReader(f))
}

func loadFrom(r io.Reader) (*Network, error) {
	var header struct {
		Magic   uint32
		Version uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("nnue: read header: %w", err)
	}
	if header.Magic != magicHeader {
		return nil, fmt.Errorf("nnue: bad magic %#x", header.Magic)
	}
	if header.Version != formatVersion1 {
		return nil, fmt.Errorf("nnue: unsupported version %d", header.Version)
	}

	var net = &Network{}
	if err := binary.Read(r, binary.LittleEndian, &net.FeatureWeights); err != nil {
		return nil, fmt.Errorf("nnue: read feature weights: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &net.HiddenBias); err != nil {
		return nil, fmt.Errorf("nnue: read hidden bias: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &net.OutputWeights); err != nil {
		return nil, fmt.Errorf("nnue: read output weights: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &net.OutputBias); err != nil {
		return nil, fmt.Errorf("nnue: read output bias: %w", err)
	}
	return net, nil
}
