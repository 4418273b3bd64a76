package confluence

import "sync"

// CooldownStore records the last confluence firing per symbol. Constructed
// once by the composition root and passed to the tracker by reference; the
// record for a symbol is overwritten on each firing and never torn down.
type CooldownStore interface {
	LastFired(symbol string) (int64, bool)
	MarkFired(symbol string, timestampMs int64)
}

// MemoryCooldownStore is the in-process store. Growth is bounded by the
// universe of traded symbols.
type MemoryCooldownStore struct {
	mu    sync.RWMutex
	fired map[string]int64
}

// NewMemoryCooldownStore creates an empty in-memory cooldown store
func NewMemoryCooldownStore() *MemoryCooldownStore {
	return &MemoryCooldownStore{fired: make(map[string]int64)}
}

// LastFired returns the last firing timestamp for a symbol
func (s *MemoryCooldownStore) LastFired(symbol string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.fired[symbol]
	return ts, ok
}

// MarkFired records a firing for a symbol
func (s *MemoryCooldownStore) MarkFired(symbol string, timestampMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fired[symbol] = timestampMs
}
