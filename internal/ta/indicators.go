package ta

import (
	"math"

	"level-engine/internal/market"
)

// ============================================================================
// SERIES HELPERS
// ============================================================================

// Closes extracts closing prices from candles
func Closes(candles []market.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Highs extracts high prices from candles
func Highs(candles []market.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.High
	}
	return out
}

// Lows extracts low prices from candles
func Lows(candles []market.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Low
	}
	return out
}

// SMA calculates the simple moving average of the last period values
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}

	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}

	return sum / float64(period)
}

// StdDev calculates the population standard deviation of the last period values
func StdDev(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}

	mean := SMA(values, period)
	sumSq := 0.0
	for i := len(values) - period; i < len(values); i++ {
		diff := values[i] - mean
		sumSq += diff * diff
	}

	return math.Sqrt(sumSq / float64(period))
}

// ============================================================================
// ATR (Average True Range)
// ============================================================================

// ATR calculates the Average True Range over the given period
func ATR(candles []market.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 0
	}

	trSum := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		tr := TrueRange(candles[i], candles[i-1])
		trSum += tr
	}

	return trSum / float64(period)
}

// TrueRange calculates the true range of a candle given its predecessor
func TrueRange(current, previous market.Candle) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}

// ============================================================================
// PEAK DETECTION
// ============================================================================

// Peak is a local maximum with its measured prominence
type Peak struct {
	Index      int
	Value      float64
	Prominence float64
}

// FindPeaks detects local maxima whose prominence is at least minProminence,
// enforcing a minimum index spacing between retained peaks. Higher peaks win
// when two candidates are closer than minSpacing.
func FindPeaks(values []float64, minProminence float64, minSpacing int) []Peak {
	if len(values) < 3 {
		return nil
	}

	var peaks []Peak
	for i := 1; i < len(values)-1; i++ {
		if values[i] < values[i-1] || values[i] < values[i+1] {
			continue
		}
		// Plateau handling: only take the first bar of a flat top
		if values[i] == values[i-1] {
			continue
		}

		prom := prominence(values, i)
		if prom >= minProminence {
			peaks = append(peaks, Peak{Index: i, Value: values[i], Prominence: prom})
		}
	}

	if minSpacing <= 1 || len(peaks) <= 1 {
		return peaks
	}

	return enforceSpacing(peaks, minSpacing)
}

// FindTroughs detects local minima by peak-finding the negated series
func FindTroughs(values []float64, minProminence float64, minSpacing int) []Peak {
	inverted := make([]float64, len(values))
	for i, v := range values {
		inverted[i] = -v
	}

	troughs := FindPeaks(inverted, minProminence, minSpacing)
	for i := range troughs {
		troughs[i].Value = -troughs[i].Value
	}
	return troughs
}

// prominence measures how far the peak rises above the highest of the two
// minima separating it from taller terrain on each side
func prominence(values []float64, idx int) float64 {
	peak := values[idx]

	leftMin := peak
	for i := idx - 1; i >= 0; i-- {
		if values[i] > peak {
			break
		}
		if values[i] < leftMin {
			leftMin = values[i]
		}
	}

	rightMin := peak
	for i := idx + 1; i < len(values); i++ {
		if values[i] > peak {
			break
		}
		if values[i] < rightMin {
			rightMin = values[i]
		}
	}

	return peak - math.Max(leftMin, rightMin)
}

// enforceSpacing drops the weaker of any two peaks closer than minSpacing
func enforceSpacing(peaks []Peak, minSpacing int) []Peak {
	kept := make([]Peak, 0, len(peaks))
	for _, p := range peaks {
		if len(kept) == 0 {
			kept = append(kept, p)
			continue
		}
		last := &kept[len(kept)-1]
		if p.Index-last.Index < minSpacing {
			if p.Value > last.Value {
				*last = p
			}
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// ============================================================================
// VOLUME
// ============================================================================

// VolumeZScore calculates the z-score of the candle at index against the
// trailing lookback window ending at that index (exclusive).
func VolumeZScore(candles []market.Candle, index, lookback int) float64 {
	start := index - lookback
	if start < 0 {
		start = 0
	}
	if index-start < 2 {
		return 0
	}

	window := make([]float64, 0, index-start)
	for i := start; i < index; i++ {
		window = append(window, candles[i].Volume)
	}

	mean := SMA(window, len(window))
	sd := StdDev(window, len(window))
	if sd == 0 {
		return 0
	}

	return (candles[index].Volume - mean) / sd
}

// ============================================================================
// VWAP
// ============================================================================

// CumulativeVWAP returns the running volume-weighted average price at each bar
func CumulativeVWAP(candles []market.Candle) []float64 {
	vwap := make([]float64, len(candles))
	cumPV := 0.0
	cumVol := 0.0

	for i, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		cumPV += typical * c.Volume
		cumVol += c.Volume
		if cumVol > 0 {
			vwap[i] = cumPV / cumVol
		} else {
			vwap[i] = typical
		}
	}

	return vwap
}
