package levels

import (
	"math"
	"testing"

	"level-engine/internal/market"
)

// flatCandles returns n identical candles with a tiny range around price
func flatCandles(n int, price float64) []market.Candle {
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = market.Candle{
			Open:   price,
			High:   price * 1.0005,
			Low:    price * 0.9995,
			Close:  price,
			Volume: 100,
		}
	}
	return candles
}

// TestSelectAdaptiveParamsTiers tests the price magnitude tiers
func TestSelectAdaptiveParamsTiers(t *testing.T) {
	tests := []struct {
		price        float64
		thresholdPct float64
		volumeBins   int
		fractalOrder int
	}{
		{0.05, 0.040, 50, 3},
		{0.50, 0.030, 60, 3},
		{50, 0.020, 80, 4},
		{3500, 0.010, 100, 4},
		{67000, 0.005, 120, 5},
	}

	for _, tt := range tests {
		// No candles: only the tier applies
		params := SelectAdaptiveParams(tt.price, 0, nil)

		if math.Abs(params.ThresholdPct-tt.thresholdPct) > 1e-9 {
			t.Errorf("price %f: expected threshold %f, got %f", tt.price, tt.thresholdPct, params.ThresholdPct)
		}
		if params.VolumeBins != tt.volumeBins {
			t.Errorf("price %f: expected %d bins, got %d", tt.price, tt.volumeBins, params.VolumeBins)
		}
		if params.FractalOrder != tt.fractalOrder {
			t.Errorf("price %f: expected fractal order %d, got %d", tt.price, tt.fractalOrder, params.FractalOrder)
		}
	}
}

// TestSelectAdaptiveParamsMarketCap tests the market cap adjustment
func TestSelectAdaptiveParamsMarketCap(t *testing.T) {
	base := SelectAdaptiveParams(50, 0, nil)

	large := SelectAdaptiveParams(50, 200e9, nil)
	if math.Abs(large.ThresholdPct-base.ThresholdPct*0.7) > 1e-9 {
		t.Errorf("Expected large cap threshold %f, got %f", base.ThresholdPct*0.7, large.ThresholdPct)
	}

	micro := SelectAdaptiveParams(50, 50e6, nil)
	if math.Abs(micro.ThresholdPct-base.ThresholdPct*1.3) > 1e-9 {
		t.Errorf("Expected micro cap threshold %f, got %f", base.ThresholdPct*1.3, micro.ThresholdPct)
	}
}

// TestSelectAdaptiveParamsVolatility tests the ATR adjustment
func TestSelectAdaptiveParamsVolatility(t *testing.T) {
	// Wide candles: ATR well above 10% of price
	volatile := make([]market.Candle, 30)
	for i := range volatile {
		volatile[i] = market.Candle{Open: 100, High: 115, Low: 85, Close: 100, Volume: 100}
	}

	params := SelectAdaptiveParams(100, 0, volatile)
	// Tier base for price 100 is 1%, widened by 1.5x
	if math.Abs(params.ThresholdPct-0.015) > 1e-9 {
		t.Errorf("Expected widened threshold 0.015, got %f", params.ThresholdPct)
	}
	if params.FractalOrder != 3 {
		t.Errorf("Expected fractal order loosened to 3, got %d", params.FractalOrder)
	}

	// Flat candles: ATR below 2% of price tightens the threshold
	calm := SelectAdaptiveParams(100, 0, flatCandles(30, 100))
	if math.Abs(calm.ThresholdPct-0.008) > 1e-9 {
		t.Errorf("Expected tightened threshold 0.008, got %f", calm.ThresholdPct)
	}
	if calm.FractalOrder != 5 {
		t.Errorf("Expected fractal order raised to 5, got %d", calm.FractalOrder)
	}
}

// TestDynamicTolerancesClamp tests the multiplier floor and ceiling
func TestDynamicTolerancesClamp(t *testing.T) {
	// Near-zero range: multiplier clamps at 0.5
	tol := DynamicTolerances(flatCandles(30, 100), 100)
	if math.Abs(tol.MergeThreshold-0.004) > 1e-6 {
		t.Errorf("Expected floor merge threshold 0.004, got %f", tol.MergeThreshold)
	}
	if math.Abs(tol.TouchTolerance-0.0025) > 1e-6 {
		t.Errorf("Expected floor touch tolerance 0.0025, got %f", tol.TouchTolerance)
	}

	// Huge range: multiplier clamps at 2.5
	wild := make([]market.Candle, 30)
	for i := range wild {
		wild[i] = market.Candle{Open: 100, High: 150, Low: 50, Close: 100, Volume: 100}
	}
	tol = DynamicTolerances(wild, 100)
	if math.Abs(tol.MergeThreshold-0.02) > 1e-6 {
		t.Errorf("Expected ceiling merge threshold 0.02, got %f", tol.MergeThreshold)
	}
}

// TestDynamicTolerancesShortSeries tests base tolerances for short input
func TestDynamicTolerancesShortSeries(t *testing.T) {
	tol := DynamicTolerances(flatCandles(10, 100), 100)

	if tol.MergeThreshold != 0.008 || tol.TouchTolerance != 0.005 || tol.ConfluenceThreshold != 0.003 {
		t.Errorf("Expected base tolerances for short series, got %+v", tol)
	}
}

// TestMinDistance tests the absolute distance derivation
func TestMinDistance(t *testing.T) {
	tol := Tolerances{TouchTolerance: 0.005}

	if got := tol.MinDistance(67000); math.Abs(got-335) > 1e-9 {
		t.Errorf("Expected min distance 335, got %f", got)
	}
}
