package lines

import (
	"math"
	"sort"

	"level-engine/internal/market"
)

const (
	zoneBins           = 50
	zonePercentile     = 0.80
	maxVolumeZones     = 2
	maxAIZonesPerSide  = 3
	aiZoneATRHalfWidth = 0.25
)

// VolumeZones builds a 50-bin volume histogram over the observed range,
// merges adjacent bins in the top-20th volume percentile into contiguous
// zones and keeps the top two by aggregated volume share.
func VolumeZones(candles []market.Candle, currentPrice float64) []Zone {
	if len(candles) == 0 {
		return nil
	}

	low := candles[0].Low
	high := candles[0].High
	totalVolume := 0.0
	for _, c := range candles {
		if c.Low < low {
			low = c.Low
		}
		if c.High > high {
			high = c.High
		}
		totalVolume += c.Volume
	}
	if high <= low || totalVolume == 0 {
		return nil
	}

	binSize := (high - low) / zoneBins
	volumes := make([]float64, zoneBins)
	for _, c := range candles {
		center := (c.High + c.Low) / 2
		idx := int((center - low) / binSize)
		if idx >= zoneBins {
			idx = zoneBins - 1
		}
		volumes[idx] += c.Volume
	}

	threshold := percentile(volumes, zonePercentile)

	var zones []Zone
	i := 0
	for i < zoneBins {
		if volumes[i] < threshold || volumes[i] == 0 {
			i++
			continue
		}
		// Merge the contiguous run of above-threshold bins into one zone
		start := i
		zoneVolume := 0.0
		for i < zoneBins && volumes[i] >= threshold && volumes[i] > 0 {
			zoneVolume += volumes[i]
			i++
		}

		zone := Zone{
			PriceMin: low + float64(start)*binSize,
			PriceMax: low + float64(i)*binSize,
			Strength: zoneVolume / totalVolume,
			Source:   ZoneSourceVolume,
		}
		if (zone.PriceMin+zone.PriceMax)/2 < currentPrice {
			zone.Role = RoleSupport
		} else {
			zone.Role = RoleResistance
		}
		zones = append(zones, zone)
	}

	sort.Slice(zones, func(a, b int) bool { return zones[a].Strength > zones[b].Strength })
	if len(zones) > maxVolumeZones {
		zones = zones[:maxVolumeZones]
	}
	return zones
}

// AIZones converts externally supplied AI key levels into zones, up to three
// per side, each spanning half an ATR around the level. AI zones coexist
// with volume zones; rendering distinguishes them by source tag.
func AIZones(aiSupports, aiResistances []float64, currentPrice, atr float64) []Zone {
	halfWidth := aiZoneATRHalfWidth * atr
	var zones []Zone

	added := 0
	for _, price := range aiSupports {
		if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			continue
		}
		if price >= currentPrice || added >= maxAIZonesPerSide {
			continue
		}
		zones = append(zones, Zone{
			PriceMin: price - halfWidth,
			PriceMax: price + halfWidth,
			Strength: 0.5,
			Role:     RoleSupport,
			Source:   ZoneSourceAI,
		})
		added++
	}

	added = 0
	for _, price := range aiResistances {
		if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			continue
		}
		if price <= currentPrice || added >= maxAIZonesPerSide {
			continue
		}
		zones = append(zones, Zone{
			PriceMin: price - halfWidth,
			PriceMax: price + halfWidth,
			Strength: 0.5,
			Role:     RoleResistance,
			Source:   ZoneSourceAI,
		})
		added++
	}

	return zones
}

func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	idx := int(p * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
