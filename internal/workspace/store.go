package workspace

import (
	"context"
	"fmt"
	"sync"
)

// Persister stores a committed state.
type Persister interface {
	Save(ctx context.Context, state State) error
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(ctx context.Context, state State) error

func (f PersisterFunc) Save(ctx context.Context, state State) error {
	return f(ctx, state)
}

// Store owns one user's State. Dispatch is serialized; readers get copies.
type Store struct {
	mu        sync.Mutex
	state     State
	persister Persister
}

// NewStore creates a store starting from initial. persister may be nil.
func NewStore(initial State, persister Persister) *Store {
	return &Store{state: initial.Clone(), persister: persister}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Dispatch reduces actions in order and commits the result as one revision.
// If any action fails, or persisting fails, nothing is committed.
func (s *Store) Dispatch(ctx context.Context, actions ...Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(actions) == 0 {
		return s.state.Clone(), nil
	}

	next := s.state
	for _, action := range actions {
		var err error
		next, err = Reduce(next, action)
		if err != nil {
			return s.state.Clone(), err
		}
	}
	next.Revision = s.state.Revision + 1

	if s.persister != nil {
		if err := s.persister.Save(ctx, next); err != nil {
			return s.state.Clone(), fmt.Errorf("persist workspace: %w", err)
		}
	}

	s.state = next
	return next.Clone(), nil
}
