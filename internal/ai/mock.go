package ai

import (
	"context"
	"fmt"

	"level-engine/internal/market"
)

// MockAnalyzer returns canned analyses for development and tests
type MockAnalyzer struct {
	// FailAnalyze forces AnalyzeSignal to return an error
	FailAnalyze bool
}

// NewMockAnalyzer creates a mock AI collaborator
func NewMockAnalyzer() *MockAnalyzer {
	return &MockAnalyzer{}
}

// AnalyzeMarket returns a neutral opinion with levels bracketing price
func (m *MockAnalyzer) AnalyzeMarket(_ context.Context, symbol string, _ []market.Candle, currentPrice float64) (*MarketAnalysis, error) {
	analysis := &MarketAnalysis{
		Direction:  "neutral",
		Confidence: 0.5,
		Reasoning:  fmt.Sprintf("Simulated analysis for %s", symbol),
	}
	analysis.KeyLevels.Support = []float64{currentPrice * 0.97}
	analysis.KeyLevels.Resistance = []float64{currentPrice * 1.03}
	return analysis, nil
}

// AnalyzeSignal returns a canned assessment
func (m *MockAnalyzer) AnalyzeSignal(_ context.Context, symbol, _ string) (string, error) {
	if m.FailAnalyze {
		return "", fmt.Errorf("simulated analysis failure for %s", symbol)
	}
	return fmt.Sprintf("Simulated signal assessment for %s: no strong edge detected.", symbol), nil
}
