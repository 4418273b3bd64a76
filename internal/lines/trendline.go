package lines

import (
	"math"

	"level-engine/internal/market"
)

const (
	minTouches         = 2
	maxViolationRatio  = 0.30
	touchATRFraction   = 0.3
	pairLookahead      = 5
	recencyBonusWindow = 20
	recencyBonus       = 20.0
)

// BestTrendLine fits candidate lines through same-side pivot pairs within a
// five-pivot lookahead window and returns the highest-scoring valid line,
// or nil when none passes the touch and violation constraints.
func BestTrendLine(candles []market.Candle, pivots []Pivot, atr float64, role Role) *TrendLine {
	if len(pivots) < 2 || atr <= 0 {
		return nil
	}

	var best *TrendLine
	for i := 0; i < len(pivots); i++ {
		for j := i + 1; j <= i+pairLookahead && j < len(pivots); j++ {
			line := fitLine(candles, pivots[i], pivots[j], atr, role)
			if line == nil {
				continue
			}
			if best == nil || line.Score > best.Score {
				best = line
			}
		}
	}

	return best
}

// fitLine builds the line through two pivots and validates it against the
// series from the earlier pivot onward
func fitLine(candles []market.Candle, a, b Pivot, atr float64, role Role) *TrendLine {
	first, second := a, b
	if first.Index > second.Index {
		first, second = second, first
	}
	if first.Index == second.Index {
		return nil
	}

	slope := (second.Price - first.Price) / float64(second.Index-first.Index)
	intercept := first.Price - slope*float64(first.Index)
	tolerance := touchATRFraction * atr

	line := &TrendLine{
		X1:        first.Index,
		Y1:        first.Price,
		X2:        second.Index,
		Y2:        second.Price,
		Slope:     slope,
		Intercept: intercept,
		Role:      role,
	}

	for i := first.Index; i < len(candles); i++ {
		expected := line.ValueAt(i)

		var observed float64
		if role == RoleResistance {
			observed = candles[i].High
		} else {
			observed = candles[i].Low
		}
		if math.Abs(observed-expected) <= tolerance {
			line.Touches++
		}

		// A close beyond the line by more than tolerance is a violation
		if role == RoleResistance && candles[i].Close > expected+tolerance {
			line.Violations++
		} else if role == RoleSupport && candles[i].Close < expected-tolerance {
			line.Violations++
		}
	}

	if line.Touches < minTouches {
		return nil
	}
	if float64(line.Violations) > maxViolationRatio*float64(line.Touches) {
		return nil
	}

	line.Score = 10*float64(line.Touches) - 5*float64(line.Violations) +
		float64(len(candles)-1-first.Index)/10
	if second.Index >= len(candles)-recencyBonusWindow {
		line.Score += recencyBonus
	}

	return line
}
