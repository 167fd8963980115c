package pose

import "sync"

// Slot holds the most recent estimate. The producer overwrites it every
// cycle; readers take a reference and use it without holding the lock.
type Slot struct {
	mu      sync.Mutex
	latest  *Estimate
	version uint64
}

// Store replaces the latest estimate. A nil estimate means the subject is
// not currently visible.
func (s *Slot) Store(e *Estimate) {
	s.mu.Lock()
	s.latest = e
	s.version++
	s.mu.Unlock()
}

// Load returns the latest estimate (nil when none) and its version
func (s *Slot) Load() (*Estimate, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.version
}

// Version returns the number of Store calls so far
func (s *Slot) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}
