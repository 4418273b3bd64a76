package levels

import (
	"math"
	"sort"

	"level-engine/internal/market"
)

// MaxLevelsPerSide caps the number of merged levels reported per side
const MaxLevelsPerSide = 3

// minClusterStrength is the floor below which a merged cluster is discarded
const minClusterStrength = 0.3

// Merger clusters nearby candidates and scores them. The same strength
// function scores AI-proposed levels so both sources stay commensurable.
type Merger struct {
	tol     Tolerances
	profile *VolumeProfile
}

// NewMerger creates a merger bound to one detection call's tolerances and
// volume profile. profile may be nil; the volume component then scores zero.
func NewMerger(tol Tolerances, profile *VolumeProfile) *Merger {
	return &Merger{tol: tol, profile: profile}
}

// Merge clusters candidates for one side, scores each cluster and returns
// at most MaxLevelsPerSide levels ordered by descending strength. An empty
// candidate list yields an empty result, not an error.
func (m *Merger) Merge(cands []Candidate, candles []market.Candle, currentPrice float64, side Side) []Level {
	if len(cands) == 0 {
		return nil
	}

	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	// Single-link clustering: one sorted walk, grouping any candidate within
	// mergeThreshold of the running cluster's last price
	var clusters [][]Candidate
	current := []Candidate{sorted[0]}
	for _, cand := range sorted[1:] {
		last := current[len(current)-1].Price
		if last > 0 && (cand.Price-last)/last <= m.tol.MergeThreshold {
			current = append(current, cand)
		} else {
			clusters = append(clusters, current)
			current = []Candidate{cand}
		}
	}
	clusters = append(clusters, current)

	levels := make([]Level, 0, len(clusters))
	for _, cluster := range clusters {
		price := weightedCentroid(cluster)
		strength := m.Strength(price, candles, currentPrice, side)
		if strength < minClusterStrength {
			continue
		}
		levels = append(levels, Level{Price: price, Strength: strength})
	}

	sort.Slice(levels, func(i, j int) bool { return levels[i].Strength > levels[j].Strength })
	if len(levels) > MaxLevelsPerSide {
		levels = levels[:MaxLevelsPerSide]
	}

	return levels
}

// FallbackLevel returns the 50-bar extreme for a side so callers always get
// at least one level per side.
func (m *Merger) FallbackLevel(candles []market.Candle, currentPrice float64, side Side) Level {
	window := candles
	if len(window) > 50 {
		window = window[len(window)-50:]
	}

	var price float64
	if side == SideSupport {
		price = window[0].Low
		for _, c := range window[1:] {
			if c.Low < price {
				price = c.Low
			}
		}
	} else {
		price = window[0].High
		for _, c := range window[1:] {
			if c.High > price {
				price = c.High
			}
		}
	}

	return Level{Price: price, Strength: m.Strength(price, candles, currentPrice, side)}
}

// Strength scores a price level in [0, 1]:
//
//	40% touch count/quality against closes (cap 5, time decay favors recent)
//	30% volume-profile concentration at the level
//	20% proximity, full score at 1-5% from current price
//	10% historical bounce count (cap 3)
func (m *Merger) Strength(price float64, candles []market.Candle, currentPrice float64, side Side) float64 {
	if price <= 0 || len(candles) == 0 {
		return 0
	}

	touch := m.touchScore(price, candles)
	volume := m.profile.VolumeNear(price, price*m.tol.TouchTolerance)
	proximity := proximityScore(price, currentPrice)
	bounce := m.bounceScore(price, candles, side)

	return 0.4*touch + 0.3*volume + 0.2*proximity + 0.1*bounce
}

func (m *Merger) touchScore(price float64, candles []market.Candle) float64 {
	tolerance := price * m.tol.TouchTolerance
	if tolerance == 0 {
		return 0
	}

	n := len(candles)
	total := 0.0
	for i, c := range candles {
		dist := math.Abs(c.Close - price)
		if dist > tolerance {
			continue
		}
		quality := 1 - dist/tolerance
		decay := 1.0
		if n > 1 {
			decay = 0.5 + 0.5*float64(i)/float64(n-1)
		}
		total += quality * decay
	}

	if total > 5 {
		total = 5
	}
	return total / 5
}

// proximityScore peaks when the level sits 1-5% from current price and
// tapers linearly outside that band, reaching zero at 15%
func proximityScore(price, currentPrice float64) float64 {
	if currentPrice <= 0 {
		return 0
	}
	dist := math.Abs(price-currentPrice) / currentPrice

	switch {
	case dist < 0.01:
		return dist / 0.01
	case dist <= 0.05:
		return 1
	case dist < 0.15:
		return 1 - (dist-0.05)/0.10
	default:
		return 0
	}
}

// bounceScore counts valid rejections: price touched the level within
// tolerance then closed back on the defended side
func (m *Merger) bounceScore(price float64, candles []market.Candle, side Side) float64 {
	tolerance := price * m.tol.TouchTolerance
	bounces := 0

	for _, c := range candles {
		if side == SideSupport {
			if c.Low <= price+tolerance && c.Low >= price-tolerance && c.Close > price {
				bounces++
			}
		} else {
			if c.High >= price-tolerance && c.High <= price+tolerance && c.Close < price {
				bounces++
			}
		}
		if bounces >= 3 {
			break
		}
	}

	return float64(bounces) / 3
}

func weightedCentroid(cluster []Candidate) float64 {
	sumW := 0.0
	sumPW := 0.0
	for _, cand := range cluster {
		w := cand.Weight
		if w <= 0 {
			w = 0.1
		}
		sumW += w
		sumPW += cand.Price * w
	}
	if sumW == 0 {
		return cluster[0].Price
	}
	return sumPW / sumW
}
