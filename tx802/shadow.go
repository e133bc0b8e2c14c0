package tx802

import "sync"

// ShadowStore holds the engine's belief about the device's edit buffer.
// The hardware offers no read-back, so this model is authoritative: it
// is created once per session, initialized through Reset, and mutated
// only by the dispatcher. Snapshots are value copies, safe to hand to
// concurrent readers such as a UI.
type ShadowStore struct {
	mu   sync.RWMutex
	perf Performance
}

// NewShadowStore starts from the fixed known-good default state.
func NewShadowStore() *ShadowStore {
	return &ShadowStore{perf: DefaultPerformance()}
}

// Snapshot returns a point-in-time copy of the current performance.
func (s *ShadowStore) Snapshot() Performance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.perf
}

// apply runs the mutation against a working copy and commits it only if
// both the mutation and the link chain invariant hold. A rejected
// mutation leaves the store untouched.
func (s *ShadowStore) apply(fn func(*Performance) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.perf
	if err := fn(&work); err != nil {
		return err
	}
	if err := validateLinks(&work); err != nil {
		return err
	}
	s.perf = work
	return nil
}
