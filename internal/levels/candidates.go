package levels

import (
	"math"

	"github.com/rs/zerolog"

	"level-engine/internal/market"
	"level-engine/internal/ta"
)

// Generator computes raw level candidates through five independent lenses:
// market profile, fractals, order flow, swing/volume spikes and VWAP bands.
// Lenses are side-effect-free; a lens with insufficient input simply
// contributes nothing.
type Generator struct {
	params AdaptiveParams
	tol    Tolerances
	logger zerolog.Logger
}

// NewGenerator creates a candidate generator for one detection call
func NewGenerator(params AdaptiveParams, tol Tolerances, logger zerolog.Logger) *Generator {
	return &Generator{
		params: params,
		tol:    tol,
		logger: logger.With().Str("component", "LevelCandidateGenerator").Logger(),
	}
}

// Generate runs all lenses and returns candidates split by side, each at
// least MinDistance away from the current price.
func (g *Generator) Generate(candles []market.Candle, currentPrice float64, book *market.OrderBook, profile *VolumeProfile) (supports, resistances []Candidate) {
	var all []Candidate
	all = append(all, g.marketProfileCandidates(profile)...)
	all = append(all, g.fractalCandidates(candles)...)
	all = append(all, g.orderFlowCandidates(book)...)
	all = append(all, g.swingVolumeCandidates(candles)...)
	all = append(all, g.vwapBandCandidates(candles)...)

	minDist := g.tol.MinDistance(currentPrice)
	for _, cand := range all {
		if cand.Price <= 0 || math.IsNaN(cand.Price) || math.IsInf(cand.Price, 0) {
			continue
		}
		if cand.Price <= currentPrice-minDist {
			supports = append(supports, cand)
		} else if cand.Price >= currentPrice+minDist {
			resistances = append(resistances, cand)
		}
	}

	g.logger.Debug().
		Int("raw", len(all)).
		Int("supports", len(supports)).
		Int("resistances", len(resistances)).
		Msg("candidates generated")

	return supports, resistances
}

// marketProfileCandidates proposes the POC, the value area bounds and up to
// six secondary profile peaks
func (g *Generator) marketProfileCandidates(profile *VolumeProfile) []Candidate {
	if profile == nil {
		return nil
	}

	poc := profile.POC()
	vaLow, vaHigh := profile.ValueArea(0.70)

	cands := []Candidate{
		{Price: poc.Center(), Weight: 1.2, Source: SourcePOC},
		{Price: vaHigh, Weight: 0.9, Source: SourceValueAreaHigh},
		{Price: vaLow, Weight: 0.9, Source: SourceValueAreaLow},
	}

	pocVol := poc.Volume
	for _, peak := range profile.Peaks(0.25, 6) {
		weight := 0.8
		if pocVol > 0 {
			weight = 0.8 * (peak.Volume / pocVol)
		}
		cands = append(cands, Candidate{
			Price:  peak.Center(),
			Weight: weight,
			Source: SourceProfilePeak,
		})
	}

	return cands
}

// fractalCandidates proposes the 5 most recent confirmed fractal highs and
// lows, weight rising linearly toward the most recent
func (g *Generator) fractalCandidates(candles []market.Candle) []Candidate {
	order := g.params.FractalOrder
	if len(candles) < 2*order+1 {
		return nil
	}

	var highs, lows []float64
	for i := order; i < len(candles)-order; i++ {
		isHigh := true
		isLow := true
		for j := i - order; j <= i+order; j++ {
			if j == i {
				continue
			}
			if candles[j].High >= candles[i].High {
				isHigh = false
			}
			if candles[j].Low <= candles[i].Low {
				isLow = false
			}
			if !isHigh && !isLow {
				break
			}
		}
		if isHigh {
			highs = append(highs, candles[i].High)
		}
		if isLow {
			lows = append(lows, candles[i].Low)
		}
	}

	return append(recentFractals(highs, 5), recentFractals(lows, 5)...)
}

// recentFractals keeps the last n fractal prices, weighting 0.5..0.85 from
// oldest to newest of the retained set
func recentFractals(prices []float64, n int) []Candidate {
	if len(prices) > n {
		prices = prices[len(prices)-n:]
	}
	if len(prices) == 0 {
		return nil
	}

	cands := make([]Candidate, len(prices))
	for i, p := range prices {
		weight := 0.5
		if len(prices) > 1 {
			weight = 0.5 + 0.35*float64(i)/float64(len(prices)-1)
		}
		cands[i] = Candidate{Price: p, Weight: weight, Source: SourceFractal}
	}
	return cands
}

// orderFlowCandidates flags book levels whose notional exceeds twice the
// mean of their side. A missing book degrades gracefully.
func (g *Generator) orderFlowCandidates(book *market.OrderBook) []Candidate {
	if book.IsEmpty() {
		return nil
	}

	var cands []Candidate
	cands = append(cands, flagLargeLevels(book.Bids)...)
	cands = append(cands, flagLargeLevels(book.Asks)...)
	return cands
}

func flagLargeLevels(side []market.BookLevel) []Candidate {
	if len(side) == 0 {
		return nil
	}

	total := 0.0
	for _, lvl := range side {
		total += lvl.Notional()
	}
	mean := total / float64(len(side))
	if mean == 0 {
		return nil
	}

	var cands []Candidate
	for _, lvl := range side {
		if lvl.Notional() > 2*mean {
			cands = append(cands, Candidate{
				Price:  lvl.Price,
				Weight: 0.7,
				Source: SourceOrderFlow,
			})
		}
	}
	return cands
}

// swingVolumeCandidates peak-detects swing highs/lows with ATR-derived
// prominence and flags the high/low of volume-spike bars (z-score > 1.5
// over a 120-bar lookback)
func (g *Generator) swingVolumeCandidates(candles []market.Candle) []Candidate {
	if len(candles) < 15 {
		return nil
	}

	atr := ta.ATR(candles, 14)
	var cands []Candidate

	for _, peak := range ta.FindPeaks(ta.Highs(candles), atr, 3) {
		cands = append(cands, Candidate{Price: peak.Value, Weight: 0.65, Source: SourceSwing})
	}
	for _, trough := range ta.FindTroughs(ta.Lows(candles), atr, 3) {
		cands = append(cands, Candidate{Price: trough.Value, Weight: 0.65, Source: SourceSwing})
	}

	for i := 1; i < len(candles); i++ {
		if ta.VolumeZScore(candles, i, 120) > 1.5 {
			cands = append(cands,
				Candidate{Price: candles[i].High, Weight: 0.55, Source: SourceVolumeSpike},
				Candidate{Price: candles[i].Low, Weight: 0.55, Source: SourceVolumeSpike},
			)
		}
	}

	return cands
}

// vwapBandCandidates proposes cumulative VWAP +/- 1 and 2 standard
// deviations of (close - VWAP) over a 30-bar window
func (g *Generator) vwapBandCandidates(candles []market.Candle) []Candidate {
	if len(candles) < 30 {
		return nil
	}

	vwap := ta.CumulativeVWAP(candles)
	deviations := make([]float64, len(candles))
	for i, c := range candles {
		deviations[i] = c.Close - vwap[i]
	}

	sd := ta.StdDev(deviations, 30)
	if sd == 0 {
		return nil
	}

	last := vwap[len(vwap)-1]
	return []Candidate{
		{Price: last + sd, Weight: 0.6, Source: SourceVWAPBand},
		{Price: last - sd, Weight: 0.6, Source: SourceVWAPBand},
		{Price: last + 2*sd, Weight: 0.6, Source: SourceVWAPBand},
		{Price: last - 2*sd, Weight: 0.6, Source: SourceVWAPBand},
	}
}
