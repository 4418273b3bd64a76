package ta

import (
	"math"
	"testing"

	"level-engine/internal/market"
)

// TestSMA tests simple moving average over the trailing window
func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	if got := SMA(values, 3); got != 4 {
		t.Errorf("Expected SMA 4, got %f", got)
	}

	if got := SMA(values, 10); got != 0 {
		t.Errorf("Expected 0 for insufficient data, got %f", got)
	}
}

// TestStdDev tests population standard deviation
func TestStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	got := StdDev(values, len(values))
	if math.Abs(got-2.0) > 1e-9 {
		t.Errorf("Expected StdDev 2.0, got %f", got)
	}
}

// TestATR tests the average true range against hand-computed candles
func TestATR(t *testing.T) {
	candles := []market.Candle{
		{Open: 100, High: 102, Low: 98, Close: 100},
		{Open: 100, High: 104, Low: 100, Close: 103}, // TR = 4
		{Open: 103, High: 105, Low: 101, Close: 102}, // TR = 4
	}

	got := ATR(candles, 2)
	if math.Abs(got-4.0) > 1e-9 {
		t.Errorf("Expected ATR 4.0, got %f", got)
	}
}

// TestTrueRangeGaps tests that gaps against the prior close widen the range
func TestTrueRangeGaps(t *testing.T) {
	prev := market.Candle{High: 100, Low: 98, Close: 99}
	current := market.Candle{High: 106, Low: 104, Close: 105}

	// Gap up: range is high minus prior close, not high minus low
	got := TrueRange(current, prev)
	if math.Abs(got-7.0) > 1e-9 {
		t.Errorf("Expected true range 7.0, got %f", got)
	}
}

// TestFindPeaks tests prominence filtering and spacing enforcement
func TestFindPeaks(t *testing.T) {
	// One tall peak at index 3, one shallow bump at index 7
	values := []float64{1, 2, 3, 10, 3, 2, 1, 2, 1.5, 1}

	peaks := FindPeaks(values, 5.0, 1)
	if len(peaks) != 1 {
		t.Fatalf("Expected 1 peak above prominence 5, got %d", len(peaks))
	}
	if peaks[0].Index != 3 {
		t.Errorf("Expected peak at index 3, got %d", peaks[0].Index)
	}

	// Lowering prominence admits the bump too
	peaks = FindPeaks(values, 0.3, 1)
	if len(peaks) != 2 {
		t.Fatalf("Expected 2 peaks at low prominence, got %d", len(peaks))
	}
}

// TestFindPeaksSpacing tests that the taller of two close peaks survives
func TestFindPeaksSpacing(t *testing.T) {
	values := []float64{1, 5, 1, 8, 1}

	peaks := FindPeaks(values, 1.0, 5)
	if len(peaks) != 1 {
		t.Fatalf("Expected 1 peak after spacing, got %d", len(peaks))
	}
	if peaks[0].Value != 8 {
		t.Errorf("Expected the taller peak to survive, got %f", peaks[0].Value)
	}
}

// TestFindTroughs tests local minimum detection via the negated series
func TestFindTroughs(t *testing.T) {
	values := []float64{10, 8, 2, 8, 10}

	troughs := FindTroughs(values, 3.0, 1)
	if len(troughs) != 1 {
		t.Fatalf("Expected 1 trough, got %d", len(troughs))
	}
	if troughs[0].Index != 2 || troughs[0].Value != 2 {
		t.Errorf("Expected trough value 2 at index 2, got %f at %d", troughs[0].Value, troughs[0].Index)
	}
}

// TestVolumeZScore tests that a volume spike scores well above the window
func TestVolumeZScore(t *testing.T) {
	candles := make([]market.Candle, 21)
	for i := range candles {
		candles[i] = market.Candle{Volume: 100}
	}
	candles[10].Volume = 110
	candles[20].Volume = 500

	z := VolumeZScore(candles, 20, 20)
	if z < 3 {
		t.Errorf("Expected strong z-score for 5x volume, got %f", z)
	}

	// Flat window has zero deviation
	if z := VolumeZScore(candles[:10], 9, 9); z != 0 {
		t.Errorf("Expected 0 z-score for flat volume, got %f", z)
	}
}

// TestCumulativeVWAP tests the running VWAP against a two-bar example
func TestCumulativeVWAP(t *testing.T) {
	candles := []market.Candle{
		{High: 12, Low: 8, Close: 10, Volume: 100}, // typical 10
		{High: 22, Low: 18, Close: 20, Volume: 100}, // typical 20
	}

	vwap := CumulativeVWAP(candles)
	if math.Abs(vwap[0]-10) > 1e-9 {
		t.Errorf("Expected first VWAP 10, got %f", vwap[0])
	}
	if math.Abs(vwap[1]-15) > 1e-9 {
		t.Errorf("Expected second VWAP 15, got %f", vwap[1])
	}
}
