package ai

import (
	"context"
	"fmt"
	"strings"

	"level-engine/internal/market"
)

// MarketAnalysis is the structured opinion returned by the AI collaborator.
// Key levels are hints, not a contract: the level engine re-scores them and
// silently drops anything malformed.
type MarketAnalysis struct {
	Direction  string  `json:"direction"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	KeyLevels  struct {
		Support    []float64 `json:"support"`
		Resistance []float64 `json:"resistance"`
	} `json:"key_levels"`
}

// Analyzer is the engine's boundary to the external AI collaborator
type Analyzer interface {
	// AnalyzeMarket asks for a structured market opinion including key levels
	AnalyzeMarket(ctx context.Context, symbol string, candles []market.Candle, currentPrice float64) (*MarketAnalysis, error)

	// AnalyzeSignal asks for a free-form analysis of one tracked signal
	AnalyzeSignal(ctx context.Context, symbol, description string) (string, error)
}

// buildMarketPrompt summarizes the candle series for the model. Only the
// last few bars are spelled out; the model does not need the full series.
func buildMarketPrompt(symbol string, candles []market.Candle, currentPrice float64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze %s at price %.8g using the recent candles below.\n", symbol, currentPrice)
	sb.WriteString("Respond with JSON only: {\"direction\", \"confidence\", \"reasoning\", \"key_levels\": {\"support\": [], \"resistance\": []}}\n\nRecent candles (open high low close volume):\n")

	start := 0
	if len(candles) > 30 {
		start = len(candles) - 30
	}
	for _, c := range candles[start:] {
		fmt.Fprintf(&sb, "%.8g %.8g %.8g %.8g %.4g\n", c.Open, c.High, c.Low, c.Close, c.Volume)
	}

	return sb.String()
}
