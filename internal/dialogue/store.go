package dialogue

import "sync"

// Store holds dialogue state per conversation. Each conversation has its own
// lock, so events for the same conversation are processed one at a time while
// different conversations proceed concurrently.
type Store struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

type entry struct {
	mu    sync.Mutex
	state State
}

// NewStore returns an empty dialogue store.
func NewStore() *Store {
	return &Store{entries: make(map[int64]*entry)}
}

func (s *Store) entryFor(convID int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[convID]
	if !ok {
		e = &entry{}
		s.entries[convID] = e
	}
	return e
}

// With runs fn under the conversation's lock, handing it the current state
// and storing the state it returns. Returning nil resets the conversation to
// idle. Entries are kept after reset; an idle entry is just a nil state.
func (s *Store) With(convID int64, fn func(current State) State) {
	e := s.entryFor(convID)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = fn(e.state)
}

// Get returns the current state of a conversation, nil meaning idle.
func (s *Store) Get(convID int64) State {
	s.mu.Lock()
	e, ok := s.entries[convID]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// InProgress reports whether the conversation has a non-idle state.
func (s *Store) InProgress(convID int64) bool {
	return s.Get(convID) != nil
}
