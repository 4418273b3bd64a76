package confluence

import (
	"sync"

	"github.com/rs/zerolog"
)

// Kind identifies a signal stream
type Kind string

const (
	KindAlpha Kind = "alpha"
	KindFOMO  Kind = "fomo"
)

// Signal is one typed signal observation. Timestamp is unix milliseconds.
type Signal struct {
	Symbol    string  `json:"symbol"`
	Kind      Kind    `json:"kind"`
	Price     float64 `json:"price"`
	MessageID int64   `json:"message_id"`
	Timestamp int64   `json:"timestamp_ms"`
}

// Config holds the tracker's window and cooldown. The required kind pair is
// a business rule, not a count: confluence means exactly these two streams
// agreeing, so generalizing means widening the state machine.
type Config struct {
	WindowSeconds   int64
	CooldownSeconds int64
	RequiredKinds   [2]Kind
}

// DefaultConfig returns the production window and cooldown
func DefaultConfig() Config {
	return Config{
		WindowSeconds:   7200,
		CooldownSeconds: 3600,
		RequiredKinds:   [2]Kind{KindAlpha, KindFOMO},
	}
}

// Tracker maintains a rolling per-symbol window of typed signals and raises
// a one-shot confluence when both required kinds co-occur within the window
// outside the cooldown. Single global lock: signals arrive at human/event
// timescale.
type Tracker struct {
	cfg    Config
	store  CooldownStore
	logger zerolog.Logger

	mu      sync.Mutex
	signals map[string]map[Kind][]Signal
}

// NewTracker creates a tracker backed by the given cooldown store
func NewTracker(cfg Config, store CooldownStore, logger zerolog.Logger) *Tracker {
	if cfg.WindowSeconds <= 0 {
		cfg.WindowSeconds = 7200
	}
	if cfg.CooldownSeconds <= 0 {
		cfg.CooldownSeconds = 3600
	}
	if cfg.RequiredKinds[0] == "" || cfg.RequiredKinds[1] == "" {
		cfg.RequiredKinds = [2]Kind{KindAlpha, KindFOMO}
	}
	return &Tracker{
		cfg:     cfg,
		store:   store,
		logger:  logger.With().Str("component", "SignalConfluenceTracker").Logger(),
		signals: make(map[string]map[Kind][]Signal),
	}
}

// Track records a signal and reports whether confluence fired. The cooldown
// record is updated before returning so concurrent callers cannot double-fire.
func (t *Tracker) Track(sig Signal) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	bySymbol, ok := t.signals[sig.Symbol]
	if !ok {
		bySymbol = make(map[Kind][]Signal)
		t.signals[sig.Symbol] = bySymbol
	}

	// Prune both kind lists to the window ending at the new timestamp
	windowMs := t.cfg.WindowSeconds * 1000
	for _, kind := range t.cfg.RequiredKinds {
		bySymbol[kind] = pruneOld(bySymbol[kind], sig.Timestamp-windowMs)
	}

	bySymbol[sig.Kind] = append(bySymbol[sig.Kind], sig)

	first := latest(bySymbol[t.cfg.RequiredKinds[0]])
	second := latest(bySymbol[t.cfg.RequiredKinds[1]])
	if first == nil || second == nil {
		return false
	}

	gap := first.Timestamp - second.Timestamp
	if gap < 0 {
		gap = -gap
	}
	if gap > windowMs {
		return false
	}

	if lastFired, ok := t.store.LastFired(sig.Symbol); ok {
		if sig.Timestamp-lastFired <= t.cfg.CooldownSeconds*1000 {
			return false
		}
	}

	// Mark before any downstream side effect
	t.store.MarkFired(sig.Symbol, sig.Timestamp)

	t.logger.Info().
		Str("symbol", sig.Symbol).
		Float64("price", sig.Price).
		Int64("message_id", sig.MessageID).
		Msg("signal confluence detected")

	return true
}

func pruneOld(sigs []Signal, cutoff int64) []Signal {
	kept := sigs[:0]
	for _, s := range sigs {
		if s.Timestamp >= cutoff {
			kept = append(kept, s)
		}
	}
	return kept
}

func latest(sigs []Signal) *Signal {
	if len(sigs) == 0 {
		return nil
	}
	best := &sigs[0]
	for i := 1; i < len(sigs); i++ {
		if sigs[i].Timestamp > best.Timestamp {
			best = &sigs[i]
		}
	}
	return best
}
