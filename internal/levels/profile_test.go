package levels

import (
	"testing"

	"level-engine/internal/market"
)

// TestBuildVolumeProfilePOC tests that the heaviest traded region wins
func TestBuildVolumeProfilePOC(t *testing.T) {
	candles := []market.Candle{
		{High: 101, Low: 99, Close: 100, Volume: 1000},
		{High: 101, Low: 99, Close: 100, Volume: 1000},
		{High: 101, Low: 99, Close: 100, Volume: 1000},
		{High: 110, Low: 108, Close: 109, Volume: 50},
		{High: 92, Low: 90, Close: 91, Volume: 50},
	}

	profile := BuildVolumeProfile(candles, 20)
	if profile == nil {
		t.Fatal("Expected a profile, got nil")
	}

	poc := profile.POC()
	if poc.Center() < 99 || poc.Center() > 101 {
		t.Errorf("Expected POC near 100, got %f", poc.Center())
	}
}

// TestBuildVolumeProfileEmpty tests degenerate inputs
func TestBuildVolumeProfileEmpty(t *testing.T) {
	if profile := BuildVolumeProfile(nil, 20); profile != nil {
		t.Error("Expected nil profile for empty candles")
	}

	// No price range at all
	flat := []market.Candle{
		{High: 100, Low: 100, Close: 100, Volume: 10},
		{High: 100, Low: 100, Close: 100, Volume: 10},
	}
	if profile := BuildVolumeProfile(flat, 20); profile != nil {
		t.Error("Expected nil profile for zero-range candles")
	}
}

// TestVolumeConserved tests that spreading preserves total volume
func TestVolumeConserved(t *testing.T) {
	candles := []market.Candle{
		{High: 105, Low: 95, Close: 100, Volume: 300},
		{High: 110, Low: 100, Close: 105, Volume: 200},
	}

	profile := BuildVolumeProfile(candles, 10)
	if profile == nil {
		t.Fatal("Expected a profile, got nil")
	}

	binTotal := 0.0
	for _, bin := range profile.Bins {
		binTotal += bin.Volume
	}

	if diff := binTotal - profile.TotalVolume; diff > 1 || diff < -1 {
		t.Errorf("Bin volume %f should match total %f", binTotal, profile.TotalVolume)
	}
}

// TestValueArea tests that the value area brackets the POC
func TestValueArea(t *testing.T) {
	candles := []market.Candle{
		{High: 101, Low: 99, Close: 100, Volume: 1000},
		{High: 101, Low: 99, Close: 100, Volume: 1000},
		{High: 110, Low: 108, Close: 109, Volume: 100},
		{High: 92, Low: 90, Close: 91, Volume: 100},
	}

	profile := BuildVolumeProfile(candles, 20)
	low, high := profile.ValueArea(0.70)

	poc := profile.POC().Center()
	if poc < low || poc > high {
		t.Errorf("POC %f should sit inside value area [%f, %f]", poc, low, high)
	}
	if low > 99 || high < 101 {
		t.Errorf("Value area [%f, %f] should contain the heavy region", low, high)
	}
}

// TestPeaksExcludePOC tests that secondary peaks never include the POC bin
func TestPeaksExcludePOC(t *testing.T) {
	// Heavy cluster at 100, secondary cluster at 120
	var candles []market.Candle
	for i := 0; i < 5; i++ {
		candles = append(candles, market.Candle{High: 101, Low: 99, Close: 100, Volume: 1000})
	}
	for i := 0; i < 3; i++ {
		candles = append(candles, market.Candle{High: 121, Low: 119, Close: 120, Volume: 600})
	}
	candles = append(candles, market.Candle{High: 130, Low: 90, Close: 110, Volume: 10})

	profile := BuildVolumeProfile(candles, 40)
	poc := profile.POC()

	for _, peak := range profile.Peaks(0.25, 3) {
		if peak.Low == poc.Low && peak.High == poc.High {
			t.Error("Peaks should exclude the POC bin")
		}
	}
}

// TestVolumeNear tests the volume concentration score
func TestVolumeNear(t *testing.T) {
	candles := []market.Candle{
		{High: 101, Low: 99, Close: 100, Volume: 1000},
		{High: 111, Low: 109, Close: 110, Volume: 10},
	}

	profile := BuildVolumeProfile(candles, 12)

	heavy := profile.VolumeNear(100, 2)
	light := profile.VolumeNear(110, 0.5)
	if heavy <= light {
		t.Errorf("Expected more volume near 100 (%f) than near 110 (%f)", heavy, light)
	}

	var nilProfile *VolumeProfile
	if got := nilProfile.VolumeNear(100, 2); got != 0 {
		t.Errorf("Expected 0 for nil profile, got %f", got)
	}
}
