package workspace

import (
	"time"

	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
)

// ActionType keys the reducer table.
type ActionType string

const (
	ActionSaveIdea       ActionType = "idea/save"
	ActionRemoveIdea     ActionType = "idea/remove"
	ActionCreateProject  ActionType = "project/create"
	ActionMoveProject    ActionType = "project/move"
	ActionUpdateStrategy ActionType = "project/strategy"
	ActionAttachResult   ActionType = "project/attach"
	ActionDeleteProject  ActionType = "project/delete"
)

// Action is a request to change State. Actions carry every id and timestamp
// they need so reducers stay deterministic.
type Action interface {
	Type() ActionType
}

type SaveIdea struct {
	Idea SavedIdea
}

type RemoveIdea struct {
	IdeaID string
}

type CreateProject struct {
	Project Project
}

type MoveProject struct {
	ProjectID string
	Stage     Stage
	At        time.Time
}

type UpdateStrategy struct {
	ProjectID string
	Strategy  Strategy
	At        time.Time
}

// AttachResult stores a generation result on a project. Literature analyses,
// research questions, experiment designs and critiques can be attached.
type AttachResult struct {
	ProjectID string
	Result    generation.Result
	At        time.Time
}

type DeleteProject struct {
	ProjectID string
}

func (SaveIdea) Type() ActionType       { return ActionSaveIdea }
func (RemoveIdea) Type() ActionType     { return ActionRemoveIdea }
func (CreateProject) Type() ActionType  { return ActionCreateProject }
func (MoveProject) Type() ActionType    { return ActionMoveProject }
func (UpdateStrategy) Type() ActionType { return ActionUpdateStrategy }
func (AttachResult) Type() ActionType   { return ActionAttachResult }
func (DeleteProject) Type() ActionType  { return ActionDeleteProject }
