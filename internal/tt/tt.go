// Package tt implements the engine's shared transposition table: a single
// flat array of clusters, probed and updated by every search goroutine
// concurrently with no locks. Each slot is validated on read with an
// XOR checksum in the style of the "lockless hashing" technique described
// on chessprogramming.org (Crafty, and later Stockfish's earlier releases,
// used the same trick before Stockfish moved to a lock-protected layout):
// instead of guarding the two halves of a slot with a mutex, the writer
// stores data XOR key instead of key, so a reader who observes one half
// updated and the other half stale recomputes a key that will not match
// the position it was probing and simply treats the slot as a miss.
package tt

import (
	"sync/atomic"

	"github.com/corvid-engine/corvid/pkg/common"
)

// Bound tags which side of the window a stored score is valid for.
type Bound uint8

const (
	BoundNone  Bound = 0
	BoundLower Bound = 1
	BoundUpper Bound = 2
	BoundExact Bound = BoundLower | BoundUpper
)

const clusterSize = 3

// entry is one lockless slot: 24 bytes, three atomically-updated 64-bit
// words. checksum holds key XOR data XOR meta so a probe can recompute the
// original key from the two payload words and compare it against the key
// being probed.
type entry struct {
	checksum atomic.Uint64
	data     atomic.Uint64 // move22 | score16 | depth8 | bound2 | pv1
	meta     atomic.Uint64 // eval16 | generation8
}

const (
	dataMoveBits  = 22 // from6 | to6 | movingPiece3 | capturedPiece3 | promotion3 | castleFlag1
	dataScoreBits = 16
	dataDepthBits = 8

	dataMoveShift  = 0
	dataScoreShift = dataMoveShift + dataMoveBits
	dataDepthShift = dataScoreShift + dataScoreBits
	dataBoundShift = dataDepthShift + dataDepthBits
	dataPvShift    = dataBoundShift + 2

	metaEvalShift = 0
	metaGenShift  = 16
)

func packData(move common.Move, score int, depth int, bound Bound, pv bool) uint64 {
	var d = uint64(move) & (1<<dataMoveBits - 1)
	d |= uint64(uint16(int16(score))) << dataScoreShift
	d |= uint64(uint8(int8(depth))) << dataDepthShift
	d |= uint64(bound) << dataBoundShift
	if pv {
		d |= 1 << dataPvShift
	}
	return d
}

func unpackData(d uint64) (move common.Move, score int, depth int, bound Bound, pv bool) {
	move = common.Move(d>>dataMoveShift) & (1<<dataMoveBits - 1)
	score = int(int16(uint16(d >> dataScoreShift)))
	depth = int(int8(uint8(d >> dataDepthShift)))
	bound = Bound((d >> dataBoundShift) & 3)
	pv = (d>>dataPvShift)&1 != 0
	return
}

func packMeta(eval int, generation uint8) uint64 {
	return uint64(uint16(int16(eval)))<<metaEvalShift | uint64(generation)<<metaGenShift
}

func unpackMeta(m uint64) (eval int, generation uint8) {
	eval = int(int16(uint16(m >> metaEvalShift)))
	generation = uint8(m >> metaGenShift)
	return
}

// Entry is the decoded, by-value result of a probe.
type Entry struct {
	Move       common.Move
	Score      int
	Depth      int
	Bound      Bound
	Pv         bool
	Eval       int
	Generation uint8
}

// Table is the shared lock-free transposition table. It must be created
// with New and is safe for concurrent Probe/Store from any number of
// search goroutines.
type Table struct {
	clusters   []cluster
	mask       uint64
	generation atomic.Uint32
}

type cluster [clusterSize]entry

// roundPowerOfTwo rounds n down to the nearest power of two, mirroring the
// teacher's sizing rule so a Hash option size in MiB always yields a table
// whose cluster count is mask-indexable.
func roundPowerOfTwo(n int) int {
	var result = 1
	for result*2 <= n {
		result *= 2
	}
	return result
}

// New builds a table sized to approximately sizeMB megabytes.
func New(sizeMB int) *Table {
	if sizeMB < 1 {
		sizeMB = 1
	}
	var bytesPerCluster = int(unsafeSizeofCluster())
	var numClusters = roundPowerOfTwo(sizeMB * 1024 * 1024 / bytesPerCluster)
	if numClusters < 1 {
		numClusters = 1
	}
	return &Table{
		clusters: make([]cluster, numClusters),
		mask:     uint64(numClusters - 1),
	}
}

// unsafeSizeofCluster avoids importing unsafe just for a constant: every
// entry is exactly three uint64-backed atomics, so the size is fixed.
func unsafeSizeofCluster() uintptr {
	return clusterSize * 3 * 8
}

// Generation reports the current search generation, advanced once per
// "go" command so the replacement policy can tell stale slots from fresh
// ones without clearing the table.
func (t *Table) Generation() uint8 {
	return uint8(t.generation.Load())
}

// NewSearch bumps the generation counter, aging every existing slot by one
// without touching the underlying memory.
func (t *Table) NewSearch() {
	t.generation.Add(1)
}

// Clear zeroes every slot and resets the generation counter. Used on
// ucinewgame; a Hash option change allocates a new table instead.
func (t *Table) Clear() {
	for i := range t.clusters {
		for j := range t.clusters[i] {
			t.clusters[i][j].checksum.Store(0)
			t.clusters[i][j].data.Store(0)
			t.clusters[i][j].meta.Store(0)
		}
	}
	t.generation.Store(0)
}

// HashfullPerMille estimates table occupancy in the UCI "hashfull" sense
// by sampling the first 1000 clusters for slots written at the current
// generation.
func (t *Table) HashfullPerMille() int {
	var sampleSize = len(t.clusters)
	if sampleSize > 1000 {
		sampleSize = 1000
	}
	if sampleSize == 0 {
		return 0
	}
	var gen = t.Generation()
	var used = 0
	for i := 0; i < sampleSize; i++ {
		for j := 0; j < clusterSize; j++ {
			var meta = t.clusters[i][j].meta.Load()
			if meta == 0 {
				continue
			}
			var _, slotGen = unpackMeta(meta)
			if slotGen == gen {
				used++
			}
		}
	}
	return used * 1000 / (sampleSize * clusterSize)
}

func (t *Table) clusterFor(key uint64) *cluster {
	return &t.clusters[key&t.mask]
}

// Probe looks up key. ok is false both on a genuine miss and on a torn
// read the checksum caught; callers treat the two identically.
func (t *Table) Probe(key uint64) (Entry, bool) {
	var c = t.clusterFor(key)
	for i := range c {
		var e = &c[i]
		var checksum = e.checksum.Load()
		var data = e.data.Load()
		var meta = e.meta.Load()
		if checksum^data^meta != key {
			continue
		}
		var move, score, depth, bound, pv = unpackData(data)
		var eval, generation = unpackMeta(meta)
		return Entry{
			Move:       move,
			Score:      score,
			Depth:      depth,
			Bound:      bound,
			Pv:         pv,
			Eval:       eval,
			Generation: generation,
		}, true
	}
	return Entry{}, false
}

// Store writes a result into key's cluster, replacing whichever slot is
// either the same position (an update), empty, or otherwise least
// valuable under depth-preferred aging: among occupied, non-matching
// slots, the table evicts the one minimizing depth - 8*((genNow-genSlot)
// mod 256), so a deep entry from a couple of generations ago still beats
// a shallow entry from the current one.
func (t *Table) Store(key uint64, move common.Move, score int, depth int, bound Bound, pv bool, eval int) {
	var c = t.clusterFor(key)
	var genNow = t.Generation()

	var victim = 0
	var victimScore = 1 << 30
	for i := range c {
		var e = &c[i]
		var checksum = e.checksum.Load()
		var data = e.data.Load()
		var meta = e.meta.Load()

		if checksum == 0 && data == 0 && meta == 0 {
			victim = i
			break
		}

		if checksum^data^meta == key {
			// Same position: an empty move from a shallow re-search
			// should not clobber a deeper slot's remembered hash move.
			if move == common.MoveEmpty {
				prevMove, _, _, _, _ := unpackData(data)
				move = prevMove
			}
			victim = i
			break
		}

		var _, _, slotDepth, _, _ = unpackData(data)
		var _, slotGen = unpackMeta(meta)
		var age = int(uint8(int(genNow) - int(slotGen)))
		var replaceScore = slotDepth - 8*age
		if replaceScore < victimScore {
			victimScore = replaceScore
			victim = i
		}
	}

	var e = &c[victim]
	var data = packData(move, score, depth, bound, pv)
	var meta = packMeta(eval, genNow)
	e.data.Store(data)
	e.meta.Store(meta)
	e.checksum.Store(key ^ data ^ meta)
}

// ValueToTT and ValueFromTT cross the boundary between the search stack's
// height-relative mate scores and the table's absolute ones: a mate score
// found five plies from the current node is stored as "mate in five from
// the position", not "mate in five from wherever it is probed next".
func ValueToTT(v, height int) int {
	switch {
	case v >= ValueWin:
		return v + height
	case v <= ValueLoss:
		return v - height
	default:
		return v
	}
}

func ValueFromTT(v, height int) int {
	switch {
	case v >= ValueWin:
		return v - height
	case v <= ValueLoss:
		return v + height
	default:
		return v
	}
}

const (
	MaxHeight     = 127
	ValueDraw     = 0
	ValueMate     = 30000
	ValueInfinity = 30001
	ValueWin      = ValueMate - 2*MaxHeight
	ValueLoss     = -ValueWin
)

// WinIn and LossIn express "mate found at `height` plies from the root" in
// the engine's root-relative score space.
func WinIn(height int) int  { return ValueMate - height }
func LossIn(height int) int { return -ValueMate + height }
