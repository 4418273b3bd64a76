package levels

import (
	"level-engine/internal/market"
	"level-engine/internal/ta"
)

// ProfileBin is one price bucket in a volume profile
type ProfileBin struct {
	Low    float64
	High   float64
	Volume float64
}

// Center returns the midpoint price of the bin
func (b ProfileBin) Center() float64 {
	return (b.Low + b.High) / 2
}

// VolumeProfile is a TPO-style histogram of traded volume by price. Each
// candle's volume is spread across every bin its high-low range overlaps.
type VolumeProfile struct {
	Bins        []ProfileBin
	BinSize     float64
	PriceLow    float64
	PriceHigh   float64
	TotalVolume float64
}

// BuildVolumeProfile distributes candle volume over numBins price buckets
// spanning the observed low-high range. Returns nil when the series is empty
// or has no price range.
func BuildVolumeProfile(candles []market.Candle, numBins int) *VolumeProfile {
	if len(candles) == 0 || numBins <= 0 {
		return nil
	}

	low := candles[0].Low
	high := candles[0].High
	for _, c := range candles[1:] {
		if c.Low < low {
			low = c.Low
		}
		if c.High > high {
			high = c.High
		}
	}
	if high <= low {
		return nil
	}

	binSize := (high - low) / float64(numBins)
	profile := &VolumeProfile{
		Bins:      make([]ProfileBin, numBins),
		BinSize:   binSize,
		PriceLow:  low,
		PriceHigh: high,
	}
	for i := range profile.Bins {
		profile.Bins[i].Low = low + float64(i)*binSize
		profile.Bins[i].High = profile.Bins[i].Low + binSize
	}

	for _, c := range candles {
		span := c.High - c.Low
		first := profile.binIndex(c.Low)
		last := profile.binIndex(c.High)
		if span <= 0 || first == last {
			profile.Bins[first].Volume += c.Volume
		} else {
			// Spread volume proportionally to the overlap with each bin
			for i := first; i <= last; i++ {
				bin := &profile.Bins[i]
				overlap := minFloat(c.High, bin.High) - maxFloat(c.Low, bin.Low)
				if overlap > 0 {
					bin.Volume += c.Volume * overlap / span
				}
			}
		}
		profile.TotalVolume += c.Volume
	}

	return profile
}

func (vp *VolumeProfile) binIndex(price float64) int {
	idx := int((price - vp.PriceLow) / vp.BinSize)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(vp.Bins) {
		idx = len(vp.Bins) - 1
	}
	return idx
}

// POC returns the Point of Control: the bin with the highest volume
func (vp *VolumeProfile) POC() ProfileBin {
	best := 0
	for i, bin := range vp.Bins {
		if bin.Volume > vp.Bins[best].Volume {
			best = i
		}
	}
	return vp.Bins[best]
}

// ValueArea returns the low/high bounds of the minimal bin set covering the
// given fraction of total volume, accumulated in descending-volume order.
func (vp *VolumeProfile) ValueArea(fraction float64) (low, high float64) {
	type indexed struct {
		idx int
		vol float64
	}
	order := make([]indexed, len(vp.Bins))
	for i, bin := range vp.Bins {
		order[i] = indexed{idx: i, vol: bin.Volume}
	}
	// Selection by descending volume; bin counts are small (<=120)
	for i := 0; i < len(order); i++ {
		best := i
		for j := i + 1; j < len(order); j++ {
			if order[j].vol > order[best].vol {
				best = j
			}
		}
		order[i], order[best] = order[best], order[i]
	}

	target := vp.TotalVolume * fraction
	accumulated := 0.0
	minIdx, maxIdx := -1, -1
	for _, entry := range order {
		accumulated += entry.vol
		if minIdx == -1 || entry.idx < minIdx {
			minIdx = entry.idx
		}
		if entry.idx > maxIdx {
			maxIdx = entry.idx
		}
		if accumulated >= target {
			break
		}
	}
	if minIdx == -1 {
		return vp.PriceLow, vp.PriceHigh
	}

	return vp.Bins[minIdx].Low, vp.Bins[maxIdx].High
}

// Peaks returns local maxima of the profile whose prominence is at least
// minProminenceFrac of the tallest bin, excluding the POC itself, capped at
// maxPeaks, tallest first.
func (vp *VolumeProfile) Peaks(minProminenceFrac float64, maxPeaks int) []ProfileBin {
	volumes := make([]float64, len(vp.Bins))
	for i, bin := range vp.Bins {
		volumes[i] = bin.Volume
	}

	pocVol := vp.POC().Volume
	peaks := ta.FindPeaks(volumes, pocVol*minProminenceFrac, 2)

	// Sort tallest-first so the cap keeps the dominant structures
	for i := 0; i < len(peaks); i++ {
		best := i
		for j := i + 1; j < len(peaks); j++ {
			if peaks[j].Value > peaks[best].Value {
				best = j
			}
		}
		peaks[i], peaks[best] = peaks[best], peaks[i]
	}

	pocIdx := vp.binIndex(vp.POC().Center())
	out := make([]ProfileBin, 0, maxPeaks)
	for _, p := range peaks {
		if p.Index == pocIdx {
			continue
		}
		out = append(out, vp.Bins[p.Index])
		if len(out) >= maxPeaks {
			break
		}
	}

	return out
}

// VolumeNear returns the fraction of the tallest bin's volume concentrated
// within tolerance of the given price. Used as the volume component of the
// level strength score.
func (vp *VolumeProfile) VolumeNear(price, tolerance float64) float64 {
	if vp == nil || len(vp.Bins) == 0 {
		return 0
	}

	maxVol := vp.POC().Volume
	if maxVol == 0 {
		return 0
	}

	total := 0.0
	for _, bin := range vp.Bins {
		if bin.High >= price-tolerance && bin.Low <= price+tolerance {
			total += bin.Volume
		}
	}

	score := total / maxVol
	if score > 1 {
		score = 1
	}
	return score
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
