package levels

import (
	"math"
	"testing"

	"github.com/rs/zerolog"

	"level-engine/internal/market"
)

// btcBounceScenario builds 60 hourly-style candles oscillating between
// 65000 and 69000 with three clean bounces off 65000
func btcBounceScenario() []market.Candle {
	var candles []market.Candle
	for cycle := 0; cycle < 3; cycle++ {
		// Descend 69000 -> 65000 over 10 bars
		for i := 0; i < 10; i++ {
			price := 69000 - float64(i)*400
			candles = append(candles, market.Candle{
				Open:   price + 200,
				High:   price + 400,
				Low:    price - 200,
				Close:  price,
				Volume: 100 + float64(i)*10,
			})
		}
		// Bounce bar: low tags 65000, close defends it
		candles = append(candles, market.Candle{
			Open:   65200,
			High:   65500,
			Low:    65000,
			Close:  65100,
			Volume: 400,
		})
		// Ascend back toward 69000 over 9 bars
		for i := 1; i < 10; i++ {
			price := 65000 + float64(i)*400
			candles = append(candles, market.Candle{
				Open:   price - 200,
				High:   price + 200,
				Low:    price - 400,
				Close:  price,
				Volume: 100,
			})
		}
	}
	return candles
}

// TestFindKeyLevelsInsufficient tests the short-series outcome
func TestFindKeyLevelsInsufficient(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	result := engine.FindKeyLevels(Input{
		Candles:      btcBounceScenario()[:20],
		CurrentPrice: 67000,
	})

	if result.Outcome != OutcomeInsufficient {
		t.Errorf("Expected insufficient outcome for 20 bars, got %v", result.Outcome)
	}

	result = engine.FindKeyLevels(Input{Candles: btcBounceScenario(), CurrentPrice: 0})
	if result.Outcome != OutcomeInsufficient {
		t.Error("Expected insufficient outcome for zero price")
	}
}

// TestFindKeyLevelsSides tests side correctness, caps and the fallback
// guarantee on a realistic oscillating series
func TestFindKeyLevelsSides(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	currentPrice := 67000.0

	result := engine.FindKeyLevels(Input{
		Candles:      btcBounceScenario(),
		CurrentPrice: currentPrice,
	})

	if result.Outcome != OutcomeOK {
		t.Fatal("Expected OK outcome")
	}
	if len(result.Supports) == 0 || len(result.Resistances) == 0 {
		t.Fatal("Both sides must be non-empty")
	}
	if len(result.Supports) > MaxLevelsPerSide || len(result.Resistances) > MaxLevelsPerSide {
		t.Errorf("Expected at most %d levels per side, got %d supports and %d resistances",
			MaxLevelsPerSide, len(result.Supports), len(result.Resistances))
	}

	for _, lvl := range result.Supports {
		if lvl.Price >= currentPrice {
			t.Errorf("Support %f must be below current price %f", lvl.Price, currentPrice)
		}
	}
	for _, lvl := range result.Resistances {
		if lvl.Price <= currentPrice {
			t.Errorf("Resistance %f must be above current price %f", lvl.Price, currentPrice)
		}
	}

	if result.Metadata.Source != SourceQuant {
		t.Errorf("Expected quant source without AI input, got %s", result.Metadata.Source)
	}
	if len(result.Metadata.SupportStrengths) != len(result.Supports) {
		t.Error("Support strengths must mirror the supports")
	}
}

// TestFindKeyLevelsThreeBounceSupport tests that a triple-tested level
// scores as a strong support
func TestFindKeyLevelsThreeBounceSupport(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	result := engine.FindKeyLevels(Input{
		Candles:      btcBounceScenario(),
		CurrentPrice: 67000,
	})

	if result.Outcome != OutcomeOK {
		t.Fatal("Expected OK outcome")
	}

	found := false
	for _, lvl := range result.Supports {
		if math.Abs(lvl.Price-65000)/65000 < 0.02 {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Expected a support near 65000, got %v", result.Supports)
	}

	if result.Metadata.SupportStrengths[0] <= 0.5 {
		t.Errorf("Expected the strongest support above 0.5 after three bounces, got %f",
			result.Metadata.SupportStrengths[0])
	}
}

// TestFindKeyLevelsIdempotent tests that identical input yields identical output
func TestFindKeyLevelsIdempotent(t *testing.T) {
	engine := NewEngine(zerolog.Nop())
	in := Input{Candles: btcBounceScenario(), CurrentPrice: 67000}

	first := engine.FindKeyLevels(in)
	second := engine.FindKeyLevels(in)

	if len(first.Supports) != len(second.Supports) || len(first.Resistances) != len(second.Resistances) {
		t.Fatal("Repeated calls must agree on level counts")
	}
	for i := range first.Supports {
		if first.Supports[i] != second.Supports[i] {
			t.Errorf("Support %d differs between runs: %v vs %v", i, first.Supports[i], second.Supports[i])
		}
	}
	for i := range first.Resistances {
		if first.Resistances[i] != second.Resistances[i] {
			t.Errorf("Resistance %d differs between runs: %v vs %v", i, first.Resistances[i], second.Resistances[i])
		}
	}
}

// TestFindKeyLevelsAILed tests the switch to AI-led selection when the AI
// proposes well-supported prices
func TestFindKeyLevelsAILed(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	result := engine.FindKeyLevels(Input{
		Candles:       btcBounceScenario(),
		CurrentPrice:  67000,
		AISupports:    []float64{65000},
		AIResistances: []float64{69000},
	})

	if result.Metadata.Source != SourceAILed {
		t.Fatalf("Expected AI-led source for well-tested AI levels, got %s (confidence %f)",
			result.Metadata.Source, result.Metadata.AIConfidence)
	}
	if result.Metadata.AIConfidence < 0.5 {
		t.Errorf("Expected confidence at least 0.5, got %f", result.Metadata.AIConfidence)
	}

	found := false
	for _, lvl := range result.Supports {
		if lvl.Price == 65000 {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected the validated AI support 65000 in %v", result.Supports)
	}
}

// TestFindKeyLevelsQuantFallbackOnWeakAI tests that implausible AI levels
// leave the quant pipeline in charge
func TestFindKeyLevelsQuantFallbackOnWeakAI(t *testing.T) {
	engine := NewEngine(zerolog.Nop())

	result := engine.FindKeyLevels(Input{
		Candles:       btcBounceScenario(),
		CurrentPrice:  67000,
		AISupports:    []float64{30000}, // never traded, 55% away
		AIResistances: []float64{150000},
	})

	if result.Metadata.Source != SourceQuant {
		t.Errorf("Expected quant source for implausible AI levels, got %s (confidence %f)",
			result.Metadata.Source, result.Metadata.AIConfidence)
	}
	if result.Metadata.AIConfidence >= 0.5 {
		t.Errorf("Expected low confidence for implausible levels, got %f", result.Metadata.AIConfidence)
	}
}
