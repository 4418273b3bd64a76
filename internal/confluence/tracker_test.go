package confluence

import (
	"testing"

	"github.com/rs/zerolog"
)

func newTestTracker() *Tracker {
	return NewTracker(DefaultConfig(), NewMemoryCooldownStore(), zerolog.Nop())
}

func sig(symbol string, kind Kind, tsSeconds int64) Signal {
	return Signal{
		Symbol:    symbol,
		Kind:      kind,
		Price:     67000,
		MessageID: tsSeconds,
		Timestamp: tsSeconds * 1000,
	}
}

// TestTrackFiresOnBothKinds tests the basic alpha+fomo confluence
func TestTrackFiresOnBothKinds(t *testing.T) {
	tracker := newTestTracker()

	if tracker.Track(sig("BTCUSDT", KindAlpha, 1000)) {
		t.Error("A single alpha signal must not fire")
	}

	// Fomo one hour later, well inside the two-hour window
	if !tracker.Track(sig("BTCUSDT", KindFOMO, 1000+3600)) {
		t.Error("Expected confluence when both kinds land inside the window")
	}
}

// TestTrackSingleKindNeverFires tests that repeats of one kind do nothing
func TestTrackSingleKindNeverFires(t *testing.T) {
	tracker := newTestTracker()

	for i := int64(0); i < 10; i++ {
		if tracker.Track(sig("BTCUSDT", KindAlpha, 1000+i*60)) {
			t.Fatal("Repeated alpha signals alone must never fire")
		}
	}
}

// TestTrackWindowExpiry tests that stale signals do not pair
func TestTrackWindowExpiry(t *testing.T) {
	tracker := newTestTracker()

	tracker.Track(sig("BTCUSDT", KindAlpha, 1000))

	// Fomo arrives 3 hours later: the alpha has aged out of the 2h window
	if tracker.Track(sig("BTCUSDT", KindFOMO, 1000+3*3600)) {
		t.Error("Expected no confluence when the gap exceeds the window")
	}

	// A fresh alpha now pairs with the still-live fomo
	if !tracker.Track(sig("BTCUSDT", KindAlpha, 1000+3*3600+60)) {
		t.Error("Expected confluence with the fresh signal pair")
	}
}

// TestTrackCooldown tests that a fired symbol stays quiet for the cooldown
func TestTrackCooldown(t *testing.T) {
	tracker := newTestTracker()

	tracker.Track(sig("BTCUSDT", KindAlpha, 1000))
	if !tracker.Track(sig("BTCUSDT", KindFOMO, 1100)) {
		t.Fatal("Expected the first confluence to fire")
	}

	// Another pair 30 minutes later: blocked by the 1h cooldown
	if tracker.Track(sig("BTCUSDT", KindAlpha, 1000+1800)) {
		t.Error("Expected cooldown to suppress the refire")
	}
	if tracker.Track(sig("BTCUSDT", KindFOMO, 1000+1801)) {
		t.Error("Expected cooldown to suppress the refire")
	}

	// Past the cooldown the next pair fires again
	if !tracker.Track(sig("BTCUSDT", KindAlpha, 1100+3700)) {
		t.Error("Expected a fresh confluence after the cooldown elapsed")
	}
}

// TestTrackSymbolsIndependent tests per-symbol isolation
func TestTrackSymbolsIndependent(t *testing.T) {
	tracker := newTestTracker()

	tracker.Track(sig("BTCUSDT", KindAlpha, 1000))
	tracker.Track(sig("BTCUSDT", KindFOMO, 1100))

	// ETH has its own window and cooldown
	tracker.Track(sig("ETHUSDT", KindAlpha, 1200))
	if !tracker.Track(sig("ETHUSDT", KindFOMO, 1300)) {
		t.Error("Expected an independent confluence per symbol")
	}
}

// TestMemoryCooldownStore tests the in-process store
func TestMemoryCooldownStore(t *testing.T) {
	store := NewMemoryCooldownStore()

	if _, ok := store.LastFired("BTCUSDT"); ok {
		t.Error("Expected no record before marking")
	}

	store.MarkFired("BTCUSDT", 5000)
	ts, ok := store.LastFired("BTCUSDT")
	if !ok || ts != 5000 {
		t.Errorf("Expected last fired 5000, got %d (ok=%v)", ts, ok)
	}
}
