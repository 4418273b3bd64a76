package levels

import (
	"level-engine/internal/market"
	"level-engine/internal/ta"
)

// MinBars is the minimum candle count required for level detection. Shorter
// series produce an insufficient-data outcome, not an error.
const MinBars = 30

// AdaptiveParams holds detection parameters derived from price magnitude,
// market cap and realized volatility. A single static threshold misprices
// BTC and a micro-cap token identically, so these adapt per call.
type AdaptiveParams struct {
	ThresholdPct float64 // baseline merge threshold as a fraction of price
	VolumeBins   int     // bin count for the volume profile
	FractalOrder int     // confirmation bars each side of a fractal
}

// Tolerances holds the dynamic relative tolerances for one detection call
type Tolerances struct {
	MergeThreshold      float64 `json:"merge_threshold"`
	TouchTolerance      float64 `json:"touch_tolerance"`
	ConfluenceThreshold float64 `json:"confluence_threshold"`
}

// MinDistance returns the minimum absolute distance a candidate must keep
// from the current price to count as a level on one side.
func (t Tolerances) MinDistance(currentPrice float64) float64 {
	return currentPrice * t.TouchTolerance
}

// priceTier maps a price magnitude band to base parameters
type priceTier struct {
	maxPrice     float64
	thresholdPct float64
	volumeBins   int
	fractalOrder int
}

// Five tiers from sub-cent tokens to BTC-priced assets
var priceTiers = []priceTier{
	{maxPrice: 0.1, thresholdPct: 0.040, volumeBins: 50, fractalOrder: 3},
	{maxPrice: 1, thresholdPct: 0.030, volumeBins: 60, fractalOrder: 3},
	{maxPrice: 100, thresholdPct: 0.020, volumeBins: 80, fractalOrder: 4},
	{maxPrice: 10000, thresholdPct: 0.010, volumeBins: 100, fractalOrder: 4},
	{maxPrice: 0, thresholdPct: 0.005, volumeBins: 120, fractalOrder: 5}, // >10k
}

// SelectAdaptiveParams derives detection parameters from the current price,
// optional market cap (0 = unknown) and the candle series' realized
// volatility. Requires len(candles) >= MinBars for the volatility pass;
// with fewer bars only the price tier applies.
func SelectAdaptiveParams(currentPrice, marketCap float64, candles []market.Candle) AdaptiveParams {
	params := tierParams(currentPrice)

	// Large caps cluster tighter; micro caps need wider tolerance
	if marketCap > 100e9 {
		params.ThresholdPct *= 0.7
	} else if marketCap > 0 && marketCap < 100e6 {
		params.ThresholdPct *= 1.3
	}

	if len(candles) >= 15 && currentPrice > 0 {
		atrPct := ta.ATR(candles, 14) / currentPrice
		if atrPct > 0.10 {
			// High volatility: widen the threshold, loosen fractal confirmation
			params.ThresholdPct *= 1.5
			if params.FractalOrder > 2 {
				params.FractalOrder--
			}
		} else if atrPct > 0 && atrPct < 0.02 {
			params.ThresholdPct *= 0.8
			params.FractalOrder++
		}
	}

	return params
}

func tierParams(price float64) AdaptiveParams {
	for _, tier := range priceTiers {
		if tier.maxPrice > 0 && price < tier.maxPrice {
			return AdaptiveParams{
				ThresholdPct: tier.thresholdPct,
				VolumeBins:   tier.volumeBins,
				FractalOrder: tier.fractalOrder,
			}
		}
	}
	last := priceTiers[len(priceTiers)-1]
	return AdaptiveParams{
		ThresholdPct: last.thresholdPct,
		VolumeBins:   last.volumeBins,
		FractalOrder: last.fractalOrder,
	}
}

// Base tolerances blended with the volatility multiplier
const (
	baseMergeThreshold      = 0.008
	baseTouchTolerance      = 0.005
	baseConfluenceThreshold = 0.003
)

// DynamicTolerances computes per-call tolerances from recent 20-bar range
// and ATR, each relative to price, blended with fixed bases through a
// multiplier clamped to [0.5, 2.5].
func DynamicTolerances(candles []market.Candle, currentPrice float64) Tolerances {
	tol := Tolerances{
		MergeThreshold:      baseMergeThreshold,
		TouchTolerance:      baseTouchTolerance,
		ConfluenceThreshold: baseConfluenceThreshold,
	}
	if currentPrice <= 0 || len(candles) < 21 {
		return tol
	}

	window := candles[len(candles)-20:]
	high := window[0].High
	low := window[0].Low
	for _, c := range window[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}

	rangePct := (high - low) / currentPrice
	atrPct := ta.ATR(candles, 14) / currentPrice

	// Reference magnitudes: a 4% 20-bar range and 1.5% ATR map to 1.0
	multiplier := (rangePct/0.04 + atrPct/0.015) / 2
	multiplier = clamp(multiplier, 0.5, 2.5)

	tol.MergeThreshold *= multiplier
	tol.TouchTolerance *= multiplier
	tol.ConfluenceThreshold *= multiplier
	return tol
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
