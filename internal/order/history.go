package order

import "github.com/corvid-engine/corvid/pkg/common"

// historyMax bounds the exponential moving average below so it never
// overflows an int16, matching spec's +-16384 saturation requirement.
const historyMax = 1 << 14

// History holds per-thread quiet-move ordering statistics: a from/to main
// table plus two continuation tables indexed by the piece that moved to a
// square one and two plies ago. All three are updated together on a
// cutoff and summed together when scoring a candidate quiet move.
type History struct {
	main [2][64][64]int16
	cont [2][14][64][64]int16
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Clear() {
	*h = History{}
}

// ContKey identifies the "piece that just landed on this square" half of a
// continuation-history lookup; it is captured from the stack so the next
// ply's quiet moves can be scored against what immediately preceded them.
type ContKey struct {
	Piece int
	Side  bool
	To    int
}

func MakeContKey(piece int, side bool, to int) ContKey {
	return ContKey{Piece: piece, Side: side, To: to}
}

func (k ContKey) valid() bool { return k.Piece != common.Empty }

func contIndex(k ContKey) int {
	return common.MakePiece(k.Piece, k.Side)
}

func sideIndex(white bool) int {
	if white {
		return 0
	}
	return 1
}

// ReadTotal scores move m for the side to move, summing the main history
// table with up to two continuation-history tables keyed by what moved
// one and two plies earlier.
func (h *History) ReadTotal(m common.Move, white bool, cont1, cont2 ContKey) int {
	var total = int(h.main[sideIndex(white)][m.From()][m.To()])
	if cont1.valid() {
		total += int(h.cont[0][contIndex(cont1)][m.From()][m.To()])
	}
	if cont2.valid() {
		total += int(h.cont[1][contIndex(cont2)][m.From()][m.To()])
	}
	return total
}

func updateHistory(v *int16, depth int, good bool) {
	var bonus = depth * depth
	if bonus > 400 {
		bonus = 400
	}
	var newVal = -historyMax
	if good {
		newVal = historyMax
	}
	*v += int16((newVal - int(*v)) * bonus / 512)
}

// Update rewards the move that caused a beta cutoff and penalizes every
// quiet move tried before it, the classic relative-history update.
func (h *History) Update(white bool, bestMove common.Move, quietsSearched []common.Move, depth int, cont1, cont2 ContKey) {
	for _, m := range quietsSearched {
		var good = m == bestMove
		updateHistory(&h.main[sideIndex(white)][m.From()][m.To()], depth, good)
		if cont1.valid() {
			updateHistory(&h.cont[0][contIndex(cont1)][m.From()][m.To()], depth, good)
		}
		if cont2.valid() {
			updateHistory(&h.cont[1][contIndex(cont2)][m.From()][m.To()], depth, good)
		}
		if good {
			break
		}
	}
}

// Killers holds the two highest-priority quiet refutations recorded at a
// given search height.
type Killers struct {
	slots [2]common.Move
}

func (k *Killers) Get() (common.Move, common.Move) {
	return k.slots[0], k.slots[1]
}

func (k *Killers) Update(m common.Move) {
	if k.slots[0] == m {
		return
	}
	k.slots[1] = k.slots[0]
	k.slots[0] = m
}

func (k *Killers) Clear() {
	k.slots[0] = common.MoveEmpty
	k.slots[1] = common.MoveEmpty
}
