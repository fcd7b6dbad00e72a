package price

import (
	"sync"

	"github.com/shopspring/decimal"
)

type entryState int

const (
	statePending entryState = iota
	stateResolved
	stateUnavailable
)

type storeEntry struct {
	state entryState
	price decimal.Decimal
}

// Store maps price keys to prices. A key is reserved as pending when its
// lookup is dispatched and resolved when the answer arrives, so one key is
// never looked up twice.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]storeEntry
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[Key]storeEntry)}
}

// Reserve marks key as pending and reports true when it was absent. A false
// result means a lookup was already dispatched or answered.
func (s *Store) Reserve(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		return false
	}
	s.entries[key] = storeEntry{state: statePending}
	return true
}

// Resolve stores the price for key, replacing a pending entry or an older price.
func (s *Store) Resolve(key Key, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = storeEntry{state: stateResolved, price: price}
}

// MarkUnavailable records that the source has no price for key.
func (s *Store) MarkUnavailable(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && e.state == stateResolved {
		return
	}
	s.entries[key] = storeEntry{state: stateUnavailable}
}

// Get returns the resolved price for key.
func (s *Store) Get(key Key) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || e.state != stateResolved {
		return decimal.Zero, false
	}
	return e.price, true
}

// Pending reports whether key is reserved and still unanswered.
func (s *Store) Pending(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	return ok && e.state == statePending
}

// NearestPrevious returns the price resolved at the highest block height at or
// below key, skipping pending and unavailable heights. Only height keys have
// predecessors; height zero is never considered.
func (s *Store) NearestPrevious(key Key) (decimal.Decimal, bool) {
	height, ok := key.Height()
	if !ok || height == 0 {
		return decimal.Zero, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[key]; ok && e.state == stateResolved {
		return e.price, true
	}

	var (
		best      uint64
		bestPrice decimal.Decimal
		found     bool
	)
	for k, e := range s.entries {
		h, ok := k.Height()
		if !ok || e.state != stateResolved || h == 0 || h > height {
			continue
		}
		if !found || h > best {
			best, bestPrice, found = h, e.price, true
		}
	}
	return bestPrice, found
}

// Len returns the number of keys in the store in any state.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
