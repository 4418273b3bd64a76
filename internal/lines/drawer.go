package lines

import (
	"github.com/rs/zerolog"

	"level-engine/internal/market"
	"level-engine/internal/ta"
)

// DefaultLookback is the window of recent bars analyzed for pivots/lines
const DefaultLookback = 100

// Drawer turns pivot points into validated trendlines, channels and
// volume zones. Stateless; safe for concurrent use across symbols.
type Drawer struct {
	lookback int
	logger   zerolog.Logger
}

// NewDrawer creates a drawer. lookback <= 0 selects the default window.
func NewDrawer(lookback int, logger zerolog.Logger) *Drawer {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Drawer{
		lookback: lookback,
		logger:   logger.With().Str("component", "AuxiliaryLineDrawer").Logger(),
	}
}

// Input bundles one drawing call. ATR <= 0 is computed from the candles.
// The AI level hints are optional and only contribute zones.
type Input struct {
	Candles       []market.Candle
	CurrentPrice  float64
	ATR           float64
	AISupports    []float64
	AIResistances []float64
}

// Draw produces annotations for one symbol. A valid channel suppresses
// standalone trendlines; without a channel at most one trendline (the
// higher-scoring side) is kept to avoid visual clutter.
func (d *Drawer) Draw(in Input) Annotations {
	var out Annotations
	if len(in.Candles) < 3 {
		return out
	}

	window := in.Candles
	if len(window) > d.lookback {
		window = window[len(window)-d.lookback:]
	}

	atr := in.ATR
	if atr <= 0 {
		atr = ta.ATR(window, 14)
	}
	if atr <= 0 {
		return out
	}

	highs, lows := ExtractPivots(window, atr)
	upper := BestTrendLine(window, highs, atr, RoleResistance)
	lower := BestTrendLine(window, lows, atr, RoleSupport)

	if channel := FitChannel(upper, lower, atr, len(window)-1); channel != nil {
		out.Channels = append(out.Channels, *channel)
	} else if line := higherScoring(upper, lower); line != nil {
		out.TrendLines = append(out.TrendLines, *line)
	}

	out.Zones = VolumeZones(window, in.CurrentPrice)
	out.Zones = append(out.Zones, AIZones(in.AISupports, in.AIResistances, in.CurrentPrice, atr)...)

	d.logger.Debug().
		Int("trendlines", len(out.TrendLines)).
		Int("channels", len(out.Channels)).
		Int("zones", len(out.Zones)).
		Msg("annotations drawn")

	return out
}

func higherScoring(a, b *TrendLine) *TrendLine {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case a.Score >= b.Score:
		return a
	default:
		return b
	}
}
