package lines

import (
	"level-engine/internal/market"
	"level-engine/internal/ta"
)

// Pivot is a significant swing point in the analyzed window. Index is
// relative to the start of the window passed to the drawer.
type Pivot struct {
	Index int
	Price float64
}

const (
	pivotSpacing  = 5
	maxPivotsKept = 10
)

// ExtractPivots peak-detects swing highs and lows over the window with
// prominence at least half the ATR and a minimum five-bar spacing. At most
// the ten most recent pivots per side are returned, most-recent-first.
func ExtractPivots(candles []market.Candle, atr float64) (highs, lows []Pivot) {
	if len(candles) < 3 || atr <= 0 {
		return nil, nil
	}

	minProminence := 0.5 * atr

	for _, p := range ta.FindPeaks(ta.Highs(candles), minProminence, pivotSpacing) {
		highs = append(highs, Pivot{Index: p.Index, Price: p.Value})
	}
	for _, p := range ta.FindTroughs(ta.Lows(candles), minProminence, pivotSpacing) {
		lows = append(lows, Pivot{Index: p.Index, Price: p.Value})
	}

	return recentFirst(highs), recentFirst(lows)
}

// recentFirst reverses into most-recent-first order and trims to the cap
func recentFirst(pivots []Pivot) []Pivot {
	out := make([]Pivot, 0, len(pivots))
	for i := len(pivots) - 1; i >= 0; i-- {
		out = append(out, pivots[i])
		if len(out) >= maxPivotsKept {
			break
		}
	}
	return out
}
