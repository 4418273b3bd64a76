package lines

import "math"

const (
	maxSlopeDivergence = 0.30
	maxWidthDrift      = 0.30
)

// FitChannel validates an upper/lower trendline pair as a channel: slopes
// must diverge by at most 30% of their average magnitude and the channel
// width must not drift more than 30% between its start and end. Returns nil
// when the pair does not form a valid channel.
func FitChannel(upper, lower *TrendLine, atr float64, lastIndex int) *Channel {
	if upper == nil || lower == nil {
		return nil
	}

	avgMag := (math.Abs(upper.Slope) + math.Abs(lower.Slope)) / 2
	if avgMag > 0 {
		if math.Abs(upper.Slope-lower.Slope) > maxSlopeDivergence*avgMag {
			return nil
		}
	}

	start := upper.X1
	if lower.X1 > start {
		start = lower.X1
	}
	startWidth := upper.ValueAt(start) - lower.ValueAt(start)
	endWidth := upper.ValueAt(lastIndex) - lower.ValueAt(lastIndex)
	if startWidth <= 0 || endWidth <= 0 {
		return nil
	}
	if math.Abs(endWidth-startWidth) > maxWidthDrift*startWidth {
		return nil
	}

	return &Channel{
		Upper: *upper,
		Lower: *lower,
		Type:  classifyChannel(upper, lower, atr, start, lastIndex),
	}
}

// classifyChannel labels the channel by the price travelled along its mean
// slope over the analyzed span, measured against a tenth of the ATR
func classifyChannel(upper, lower *TrendLine, atr float64, start, lastIndex int) ChannelType {
	avgSlope := (upper.Slope + lower.Slope) / 2
	travel := avgSlope * float64(lastIndex-start)
	threshold := 0.1 * atr

	switch {
	case travel > threshold:
		return ChannelAscending
	case travel < -threshold:
		return ChannelDescending
	default:
		return ChannelHorizontal
	}
}
