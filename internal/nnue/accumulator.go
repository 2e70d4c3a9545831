package nnue

import "github.com/corvid-engine/corvid/pkg/common"

// Accumulator holds the hidden-layer pre-activation sums for both
// perspectives. White and Black are maintained relative to the side they
// name, with weights shared between them by mirroring the square and
// flipping the color bit when computing a feature index for Black's
// accumulator, so a single learned weight table serves both sides.
type Accumulator struct {
	White [HiddenSize]int16
	Black [HiddenSize]int16
}

// featureIndex returns the column of FeatureWeights a piece of the given
// type and color sitting on sq contributes to the named perspective.
func featureIndex(pieceType int, pieceWhite bool, sq int, perspectiveWhite bool) int {
	var relSq = sq
	var relColor = pieceWhite
	if !perspectiveWhite {
		relSq = common.FlipSquare(sq)
		relColor = !pieceWhite
	}
	var colorBit = 0
	if relColor {
		colorBit = 1
	}
	return (pieceType-common.Pawn)*128 + colorBit*64 + relSq
}

// Refresh recomputes the accumulator from scratch by walking every piece
// on the board. Used to seed the root accumulator at the start of a
// search and by EvaluateFresh's from-scratch fidelity check; every move
// made during search, castling included, updates the accumulator
// incrementally instead.
func (a *Accumulator) Refresh(net *Network, pos *common.Position) {
	copy(a.White[:], net.HiddenBias[:])
	copy(a.Black[:], net.HiddenBias[:])

	for sq := 0; sq < 64; sq++ {
		var pieceType = pos.WhatPiece(sq)
		if pieceType == common.Empty {
			continue
		}
		var side = common.SquareMask[sq]&pos.White != 0
		a.addPiece(net, pieceType, side, sq)
	}
}

func (a *Accumulator) addPiece(net *Network, pieceType int, side bool, sq int) {
	var wIdx = featureIndex(pieceType, side, sq, true)
	var bIdx = featureIndex(pieceType, side, sq, false)
	var wRow = &net.FeatureWeights[wIdx]
	var bRow = &net.FeatureWeights[bIdx]
	for i := 0; i < HiddenSize; i++ {
		a.White[i] += wRow[i]
		a.Black[i] += bRow[i]
	}
}

func (a *Accumulator) removePiece(net *Network, pieceType int, side bool, sq int) {
	var wIdx = featureIndex(pieceType, side, sq, true)
	var bIdx = featureIndex(pieceType, side, sq, false)
	var wRow = &net.FeatureWeights[wIdx]
	var bRow = &net.FeatureWeights[bIdx]
	for i := 0; i < HiddenSize; i++ {
		a.White[i] -= wRow[i]
		a.Black[i] -= bRow[i]
	}
}

// MovePiece is a remove-then-add shorthand for the common case of a piece
// sliding from one square to another without being captured or promoted.
func (a *Accumulator) MovePiece(net *Network, pieceType int, side bool, from, to int) {
	a.removePiece(net, pieceType, side, from)
	a.addPiece(net, pieceType, side, to)
}

// Clone copies the accumulator by value, used when pushing a new stack
// frame before applying a move's feature deltas.
func (a Accumulator) Clone() Accumulator {
	return a
}
