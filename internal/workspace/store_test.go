package workspace

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPersister struct {
	mu     sync.Mutex
	saved  []State
	failOn int
}

func (p *recordingPersister) Save(_ context.Context, state State) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn > 0 && len(p.saved)+1 == p.failOn {
		p.failOn = 0
		return errors.New("disk full")
	}
	p.saved = append(p.saved, state.Clone())
	return nil
}

func TestStore_DispatchCommitsAndPersists(t *testing.T) {
	persister := &recordingPersister{}
	store := NewStore(Empty(1), persister)

	state, err := store.Dispatch(context.Background(),
		SaveIdea{Idea: SavedIdea{ID: "i1", Title: "Idea"}},
		CreateProject{Project: Project{ID: "p1", IdeaID: "i1"}},
	)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Revision)
	assert.Len(t, state.Ideas, 1)
	assert.Len(t, state.Projects, 1)

	require.Len(t, persister.saved, 1)
	assert.Equal(t, 1, persister.saved[0].Revision)
}

func TestStore_DispatchIsAtomic(t *testing.T) {
	persister := &recordingPersister{}
	store := NewStore(Empty(1), persister)

	_, err := store.Dispatch(context.Background(),
		SaveIdea{Idea: SavedIdea{ID: "i1", Title: "Idea"}},
		MoveProject{ProjectID: "missing", Stage: StagePilot},
	)
	require.ErrorIs(t, err, ErrNotFound)

	state := store.State()
	assert.Empty(t, state.Ideas)
	assert.Equal(t, 0, state.Revision)
	assert.Empty(t, persister.saved)
}

func TestStore_DispatchRejectsPointerAction(t *testing.T) {
	store := NewStore(Empty(1), nil)

	_, err := store.Dispatch(context.Background(),
		SaveIdea{Idea: SavedIdea{ID: "i1", Title: "Idea"}},
		&CreateProject{Project: Project{ID: "p1", IdeaID: "i1"}},
	)
	require.ErrorIs(t, err, ErrInvalidAction)
	assert.Empty(t, store.State().Ideas)
	assert.Zero(t, store.State().Revision)
}

func TestStore_PersistFailureLeavesStateUnchanged(t *testing.T) {
	store := NewStore(Empty(1), &recordingPersister{failOn: 1})

	_, err := store.Dispatch(context.Background(), SaveIdea{Idea: SavedIdea{ID: "i1", Title: "Idea"}})
	require.Error(t, err)
	assert.Empty(t, store.State().Ideas)

	_, err = store.Dispatch(context.Background(), SaveIdea{Idea: SavedIdea{ID: "i1", Title: "Idea"}})
	require.NoError(t, err)
	assert.Len(t, store.State().Ideas, 1)
}

func TestStore_StateReturnsCopy(t *testing.T) {
	store := NewStore(Empty(1), nil)
	_, err := store.Dispatch(context.Background(), SaveIdea{Idea: SavedIdea{ID: "i1", Title: "Idea", Literature: []string{"L"}}})
	require.NoError(t, err)

	state := store.State()
	state.Ideas[0].Literature[0] = "changed"
	state.Ideas = nil

	fresh := store.State()
	require.Len(t, fresh.Ideas, 1)
	assert.Equal(t, "L", fresh.Ideas[0].Literature[0])
}

func TestStore_ConcurrentDispatch(t *testing.T) {
	persister := &recordingPersister{}
	store := NewStore(Empty(1), persister)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Dispatch(context.Background(), SaveIdea{Idea: SavedIdea{ID: fmt.Sprintf("i%d", i), Title: "Idea"}})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	state := store.State()
	assert.Len(t, state.Ideas, n)
	assert.Equal(t, n, state.Revision)
	assert.Len(t, persister.saved, n)
}

func TestPersisterFunc(t *testing.T) {
	var got int
	store := NewStore(Empty(1), PersisterFunc(func(_ context.Context, s State) error {
		got = s.Revision
		return nil
	}))
	_, err := store.Dispatch(context.Background(), SaveIdea{Idea: SavedIdea{ID: "i1", Title: "Idea"}})
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}
