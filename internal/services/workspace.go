package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
	"github.com/Conceptual-Machines/ideaforge-api/internal/workspace"
)

// WorkspaceService hands out one workspace.Store per user, loaded from and
// persisted to the workspace_snapshots table.
type WorkspaceService struct {
	db    *gorm.DB
	now   func() time.Time
	newID func() string

	mu     sync.Mutex
	stores map[uint]*workspace.Store
}

func NewWorkspaceService(db *gorm.DB) *WorkspaceService {
	return &WorkspaceService{
		db:     db,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		stores: make(map[uint]*workspace.Store),
	}
}

// Store returns the user's store, loading it on first use.
func (s *WorkspaceService) Store(ctx context.Context, userID uint) (*workspace.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if store, ok := s.stores[userID]; ok {
		return store, nil
	}

	initial, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	store := workspace.NewStore(initial, &snapshotPersister{db: s.db})
	s.stores[userID] = store
	return store, nil
}

func (s *WorkspaceService) load(ctx context.Context, userID uint) (workspace.State, error) {
	var snap models.WorkspaceSnapshot
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return workspace.Empty(userID), nil
	}
	if err != nil {
		return workspace.State{}, fmt.Errorf("load workspace: %w", err)
	}

	state := workspace.Empty(userID)
	if err := json.Unmarshal([]byte(snap.State), &state); err != nil {
		return workspace.State{}, fmt.Errorf("decode workspace snapshot: %w", err)
	}
	state.UserID = userID
	state.Revision = snap.Revision
	if state.Ideas == nil {
		state.Ideas = []workspace.SavedIdea{}
	}
	if state.Projects == nil {
		state.Projects = []workspace.Project{}
	}
	return state, nil
}

// State returns the user's current workspace.
func (s *WorkspaceService) State(ctx context.Context, userID uint) (workspace.State, error) {
	store, err := s.Store(ctx, userID)
	if err != nil {
		return workspace.State{}, err
	}
	return store.State(), nil
}

// Dispatch applies actions to the user's workspace.
func (s *WorkspaceService) Dispatch(ctx context.Context, userID uint, actions ...workspace.Action) (workspace.State, error) {
	store, err := s.Store(ctx, userID)
	if err != nil {
		return workspace.State{}, err
	}
	return store.Dispatch(ctx, actions...)
}

// SaveIdea keeps a generated idea and returns its new id.
func (s *WorkspaceService) SaveIdea(ctx context.Context, userID uint, topic string, idea generation.Idea) (string, workspace.State, error) {
	id := s.newID()
	state, err := s.Dispatch(ctx, userID, workspace.SaveIdea{
		Idea: workspace.IdeaFromGeneration(id, topic, idea, s.now()),
	})
	return id, state, err
}

func (s *WorkspaceService) RemoveIdea(ctx context.Context, userID uint, ideaID string) (workspace.State, error) {
	return s.Dispatch(ctx, userID, workspace.RemoveIdea{IdeaID: ideaID})
}

// NewProject describes a project to create. Title and Description default to
// the linked idea's.
type NewProject struct {
	IdeaID      string
	Title       string
	Description string
	Stage       workspace.Stage
}

func (s *WorkspaceService) CreateProject(ctx context.Context, userID uint, in NewProject) (string, workspace.State, error) {
	id := s.newID()
	now := s.now()
	state, err := s.Dispatch(ctx, userID, workspace.CreateProject{Project: workspace.Project{
		ID:          id,
		IdeaID:      in.IdeaID,
		Title:       in.Title,
		Description: in.Description,
		Stage:       in.Stage,
		CreatedAt:   now,
		UpdatedAt:   now,
	}})
	return id, state, err
}

func (s *WorkspaceService) MoveProject(ctx context.Context, userID uint, projectID string, stage workspace.Stage) (workspace.State, error) {
	return s.Dispatch(ctx, userID, workspace.MoveProject{ProjectID: projectID, Stage: stage, At: s.now()})
}

func (s *WorkspaceService) UpdateStrategy(ctx context.Context, userID uint, projectID string, strategy workspace.Strategy) (workspace.State, error) {
	return s.Dispatch(ctx, userID, workspace.UpdateStrategy{ProjectID: projectID, Strategy: strategy, At: s.now()})
}

func (s *WorkspaceService) AttachResult(ctx context.Context, userID uint, projectID string, result generation.Result) (workspace.State, error) {
	return s.Dispatch(ctx, userID, workspace.AttachResult{ProjectID: projectID, Result: result, At: s.now()})
}

func (s *WorkspaceService) DeleteProject(ctx context.Context, userID uint, projectID string) (workspace.State, error) {
	return s.Dispatch(ctx, userID, workspace.DeleteProject{ProjectID: projectID})
}

// Forget drops the cached store of a user, e.g. after account deletion.
func (s *WorkspaceService) Forget(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stores, userID)
}

type snapshotPersister struct {
	db *gorm.DB
}

func (p *snapshotPersister) Save(ctx context.Context, state workspace.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	snap := models.WorkspaceSnapshot{
		UserID:   state.UserID,
		Revision: state.Revision,
		State:    string(data),
	}
	return p.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"revision", "state", "updated_at"}),
	}).Create(&snap).Error
}
