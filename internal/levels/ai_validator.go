package levels

import (
	"math"
	"sort"

	"github.com/rs/zerolog"

	"level-engine/internal/market"
)

// aiLeadConfidence is the hard cutoff between AI-led and quant-led level
// selection. No hysteresis: the validator is pure per call and carries no
// cross-call state.
const aiLeadConfidence = 0.5

// AIValidation is the outcome of arbitrating externally supplied AI levels
// against the quantitative strength function
type AIValidation struct {
	Supports    []Level
	Resistances []Level
	Confidence  float64
	Led         bool
}

// AIValidator scores AI-proposed levels with the same strength function the
// merger uses, so AI and quant levels remain commensurable. AI input is an
// untrusted hint: wrong-side and malformed entries are silently dropped.
type AIValidator struct {
	merger *Merger
	logger zerolog.Logger
}

// NewAIValidator creates a validator sharing the merger's strength scoring
func NewAIValidator(merger *Merger, logger zerolog.Logger) *AIValidator {
	return &AIValidator{
		merger: merger,
		logger: logger.With().Str("component", "AILevelValidator").Logger(),
	}
}

// Validate filters and scores AI level proposals. Confidence is the mean
// strength of all survivors, zero when none survive. Led reports whether
// the engine should use the AI levels as primary.
func (v *AIValidator) Validate(aiSupports, aiResistances []float64, candles []market.Candle, currentPrice float64) AIValidation {
	result := AIValidation{
		Supports:    v.score(aiSupports, candles, currentPrice, SideSupport),
		Resistances: v.score(aiResistances, candles, currentPrice, SideResistance),
	}

	count := len(result.Supports) + len(result.Resistances)
	if count > 0 {
		sum := 0.0
		for _, lvl := range result.Supports {
			sum += lvl.Strength
		}
		for _, lvl := range result.Resistances {
			sum += lvl.Strength
		}
		result.Confidence = sum / float64(count)
	}

	result.Led = result.Confidence >= aiLeadConfidence && count > 0

	v.logger.Debug().
		Int("validated", count).
		Float64("confidence", result.Confidence).
		Bool("ai_led", result.Led).
		Msg("ai levels validated")

	return result
}

func (v *AIValidator) score(prices []float64, candles []market.Candle, currentPrice float64, side Side) []Level {
	var out []Level
	for _, price := range prices {
		if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
			continue
		}
		if side == SideSupport && price >= currentPrice {
			continue
		}
		if side == SideResistance && price <= currentPrice {
			continue
		}
		out = append(out, Level{
			Price:    price,
			Strength: v.merger.Strength(price, candles, currentPrice, side),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	if len(out) > MaxLevelsPerSide {
		out = out[:MaxLevelsPerSide]
	}
	return out
}
