package search

import "math"

// ReductionTable precomputes the late-move-reduction amount for every
// (depth, moveNumber) pair once at startup, the same table-lookup
// approach the teacher uses rather than calling math.Log from inside the
// search loop. One table is shared read-only across every search thread.
type ReductionTable struct {
	table [64][64]int
}

func NewReductionTable() *ReductionTable {
	var r = &ReductionTable{}
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			r.table[d][m] = int(lirp(math.Log(float64(d))*math.Log(float64(m)),
				math.Log(5)*math.Log(22), math.Log(63)*math.Log(63), 3, 8))
		}
	}
	return r
}

func lirp(x, x0, x1, y0, y1 float64) float64 {
	if x1 == x0 {
		return y0
	}
	var t = (x - x0) / (x1 - x0)
	var y = y0 + t*(y1-y0)
	if y < y0 {
		return y0
	}
	if y > y1 {
		return y1
	}
	return y
}

// Lmr returns the base reduction for a move searched at depth with
// moveNumber-th position in the ordering (1-indexed), in full plies.
func (r *ReductionTable) Lmr(depth, moveNumber int) int {
	return r.table[min(depth, 63)][min(moveNumber, 63)]
}
