package search

import "github.com/corvid-engine/corvid/internal/tt"

// These mirror internal/tt's mate-score constants so search code can use
// short, search-flavored names without importing tt everywhere a score is
// touched.
const (
	maxHeight     = tt.MaxHeight
	valueDraw     = tt.ValueDraw
	valueMate     = tt.ValueMate
	valueInfinity = tt.ValueInfinity
	valueWin      = tt.ValueWin
	valueLoss     = tt.ValueLoss
)

func winIn(height int) int  { return tt.WinIn(height) }
func lossIn(height int) int { return tt.LossIn(height) }

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
