package sparse

import "sync"

// SharedState is the handle shared by a Root and every view derived from it.
// Borrows never wait: a conflicting borrow fails with ErrStateAlreadyBorrowed.
type SharedState struct {
	mu    sync.RWMutex
	state *State
}

// NewSharedState wraps state for shared use.
func NewSharedState(state *State) *SharedState {
	return &SharedState{state: state}
}

// Read runs fn with a shared borrow of the state.
func (s *SharedState) Read(fn func(*State) error) error {
	if !s.mu.TryRLock() {
		return ErrStateAlreadyBorrowed
	}
	defer s.mu.RUnlock()
	return fn(s.state)
}

// Write runs fn with the exclusive borrow of the state.
func (s *SharedState) Write(fn func(*State) error) error {
	if !s.mu.TryLock() {
		return ErrStateAlreadyBorrowed
	}
	defer s.mu.Unlock()
	return fn(s.state)
}
