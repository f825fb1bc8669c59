// Package workspace holds a user's saved ideas and R&D pipeline projects.
//
// State is only changed by dispatching actions through a Store; every change
// goes through Reduce, which never mutates its input.
package workspace

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrInvalidStage      = errors.New("invalid pipeline stage")
	ErrInvalidAction     = errors.New("invalid action")
	ErrUnsupportedResult = errors.New("result cannot be attached to a project")
)

// Stage is a pipeline column.
type Stage string

const (
	StageIdeation   Stage = "ideation"
	StageLiterature Stage = "literature"
	StageProposal   Stage = "proposal"
	StageExperiment Stage = "experiment"
	StagePilot      Stage = "pilot"
	StageLaunched   Stage = "launched"
)

// Stages lists the pipeline columns left to right.
var Stages = []Stage{StageIdeation, StageLiterature, StageProposal, StageExperiment, StagePilot, StageLaunched}

func ParseStage(s string) (Stage, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, stage := range Stages {
		if string(stage) == s {
			return stage, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
}

// SavedIdea is a generated idea the user chose to keep.
type SavedIdea struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic,omitempty"`
	Title      string    `json:"title"`
	Overview   string    `json:"overview"`
	GapScore   int       `json:"gapScore"`
	Literature []string  `json:"literature"`
	Industrial bool      `json:"industrial"`
	SavedAt    time.Time `json:"savedAt"`
}

// IdeaFromGeneration converts a generated idea.
func IdeaFromGeneration(id, topic string, idea generation.Idea, at time.Time) SavedIdea {
	return SavedIdea{
		ID:         id,
		Topic:      topic,
		Title:      idea.Title,
		Overview:   idea.Overview,
		GapScore:   idea.GapScore,
		Literature: copyStrings(idea.Literature),
		Industrial: idea.Industrial,
		SavedAt:    at,
	}
}

// Strategy is the free-form plan edited on a project.
type Strategy struct {
	Summary    string    `json:"summary"`
	Objectives []string  `json:"objectives"`
	Milestones []string  `json:"milestones"`
	Risks      []string  `json:"risks"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Project is a card on the pipeline board.
type Project struct {
	ID          string                          `json:"id"`
	IdeaID      string                          `json:"ideaId,omitempty"`
	Title       string                          `json:"title"`
	Description string                          `json:"description,omitempty"`
	Stage       Stage                           `json:"stage"`
	Strategy    *Strategy                       `json:"strategy,omitempty"`
	Literature  []generation.LiteratureAnalysis `json:"literature,omitempty"`
	Questions   []string                        `json:"questions,omitempty"`
	Designs     []generation.ExperimentDesign   `json:"designs,omitempty"`
	Critique    *generation.RedTeamAnalysis     `json:"critique,omitempty"`
	CreatedAt   time.Time                       `json:"createdAt"`
	UpdatedAt   time.Time                       `json:"updatedAt"`
}

// State is the whole workspace of one user.
type State struct {
	UserID   uint        `json:"userId"`
	Revision int         `json:"revision"`
	Ideas    []SavedIdea `json:"ideas"`
	Projects []Project   `json:"projects"`
}

// Empty returns the initial state for a user.
func Empty(userID uint) State {
	return State{UserID: userID, Ideas: []SavedIdea{}, Projects: []Project{}}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Ideas = make([]SavedIdea, len(s.Ideas))
	for i, idea := range s.Ideas {
		idea.Literature = copyStrings(idea.Literature)
		out.Ideas[i] = idea
	}
	out.Projects = make([]Project, len(s.Projects))
	for i, p := range s.Projects {
		out.Projects[i] = p.clone()
	}
	return out
}

func (p Project) clone() Project {
	out := p
	if p.Strategy != nil {
		st := *p.Strategy
		st.Objectives = copyStrings(st.Objectives)
		st.Milestones = copyStrings(st.Milestones)
		st.Risks = copyStrings(st.Risks)
		out.Strategy = &st
	}
	out.Literature = copySlice(p.Literature)
	out.Questions = copyStrings(p.Questions)
	out.Designs = copySlice(p.Designs)
	if p.Critique != nil {
		c := generation.RedTeamAnalysis{
			Weaknesses:  copyStrings(p.Critique.Weaknesses),
			Assumptions: copyStrings(p.Critique.Assumptions),
			Questions:   copyStrings(p.Critique.Questions),
		}
		out.Critique = &c
	}
	return out
}

// Idea finds a saved idea by id.
func (s State) Idea(id string) (SavedIdea, bool) {
	for _, idea := range s.Ideas {
		if idea.ID == id {
			return idea, true
		}
	}
	return SavedIdea{}, false
}

// Project finds a project by id.
func (s State) Project(id string) (Project, bool) {
	if i := s.projectIndex(id); i >= 0 {
		return s.Projects[i], true
	}
	return Project{}, false
}

func (s State) ideaIndex(id string) int {
	for i := range s.Ideas {
		if s.Ideas[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) projectIndex(id string) int {
	for i := range s.Projects {
		if s.Projects[i].ID == id {
			return i
		}
	}
	return -1
}

func copyStrings(s []string) []string {
	return copySlice(s)
}

// copySlice preserves the nil/empty distinction so JSON output is stable.
func copySlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}
