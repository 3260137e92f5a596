// Store: the single owner of game state.
package engine

import (
	"sync"

	"github.com/talgya/alt-history/internal/game"
)

// Listener observes a committed transition. It runs on the dispatching
// goroutine after the store lock is released, so it may dispatch.
type Listener func(prev, next game.State)

// Store owns the game state. Dispatch is the only way to change it.
type Store struct {
	reducer *game.Reducer

	mu    sync.Mutex
	state game.State

	subMu     sync.Mutex
	listeners map[int]Listener
	nextSub   int
}

// NewStore creates a store holding initial.
func NewStore(r *game.Reducer, initial game.State) *Store {
	return &Store{
		reducer:   r,
		state:     initial,
		listeners: make(map[int]Listener),
	}
}

// State returns a copy of the current state.
func (s *Store) State() game.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch applies a and returns the resulting state.
func (s *Store) Dispatch(a game.Action) game.State {
	return s.DispatchAll(a)
}

// DispatchAll applies actions in order as one transition. Listeners see a
// single (prev, next) pair.
func (s *Store) DispatchAll(actions ...game.Action) game.State {
	return s.Update(func(game.State) []game.Action { return actions })
}

// Update calls plan with the current state and applies the actions it
// returns as one transition. plan runs under the store lock, so nothing
// can land between the read and the write; it must not call back into
// the store. An empty plan leaves the state untouched and notifies no one.
func (s *Store) Update(plan func(game.State) []game.Action) game.State {
	s.mu.Lock()
	prev := s.state
	actions := plan(prev.Clone())
	if len(actions) == 0 {
		s.mu.Unlock()
		return prev.Clone()
	}
	next := prev
	for _, a := range actions {
		next = s.reducer.Reduce(next, a)
	}
	s.state = next
	s.mu.Unlock()

	for _, l := range s.snapshotListeners() {
		l(prev.Clone(), next.Clone())
	}
	return next.Clone()
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) snapshotListeners() []Listener {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	out := make([]Listener, 0, len(s.listeners))
	for i := 0; i < s.nextSub; i++ {
		if l, ok := s.listeners[i]; ok {
			out = append(out, l)
		}
	}
	return out
}
