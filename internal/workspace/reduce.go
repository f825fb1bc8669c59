package workspace

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
)

type reducer func(State, Action) (State, error)

var reducers = map[ActionType]reducer{
	ActionSaveIdea:       reduceSaveIdea,
	ActionRemoveIdea:     reduceRemoveIdea,
	ActionCreateProject:  reduceCreateProject,
	ActionMoveProject:    reduceMoveProject,
	ActionUpdateStrategy: reduceUpdateStrategy,
	ActionAttachResult:   reduceAttachResult,
	ActionDeleteProject:  reduceDeleteProject,
}

// Reduce applies action to state and returns the new state. The input state is
// never modified; on error the returned state is the input unchanged.
func Reduce(state State, action Action) (State, error) {
	if action == nil {
		return state, fmt.Errorf("%w: nil action", ErrInvalidAction)
	}
	if v := reflect.ValueOf(action); v.Kind() == reflect.Pointer {
		return state, fmt.Errorf("%w: pointer action %T", ErrInvalidAction, action)
	}
	r, ok := reducers[action.Type()]
	if !ok {
		return state, fmt.Errorf("%w: unknown type %q", ErrInvalidAction, action.Type())
	}
	next, err := r(state.Clone(), action)
	if err != nil {
		return state, err
	}
	return next, nil
}

// actionAs narrows a to the concrete value type its Type() promised.
func actionAs[T Action](a Action) (T, error) {
	act, ok := a.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %T for %s", ErrInvalidAction, a, zero.Type())
	}
	return act, nil
}

func reduceSaveIdea(s State, a Action) (State, error) {
	act, err := actionAs[SaveIdea](a)
	if err != nil {
		return s, err
	}
	if act.Idea.ID == "" || strings.TrimSpace(act.Idea.Title) == "" {
		return s, fmt.Errorf("%w: idea needs an id and a title", ErrInvalidAction)
	}
	if s.ideaIndex(act.Idea.ID) >= 0 {
		return s, fmt.Errorf("idea %s: %w", act.Idea.ID, ErrDuplicate)
	}
	idea := act.Idea
	idea.Literature = copyStrings(idea.Literature)
	s.Ideas = append(s.Ideas, idea)
	return s, nil
}

func reduceRemoveIdea(s State, a Action) (State, error) {
	act, err := actionAs[RemoveIdea](a)
	if err != nil {
		return s, err
	}
	i := s.ideaIndex(act.IdeaID)
	if i < 0 {
		return s, fmt.Errorf("idea %s: %w", act.IdeaID, ErrNotFound)
	}
	s.Ideas = append(s.Ideas[:i], s.Ideas[i+1:]...)
	// Projects keep their content but lose the link.
	for j := range s.Projects {
		if s.Projects[j].IdeaID == act.IdeaID {
			s.Projects[j].IdeaID = ""
		}
	}
	return s, nil
}

func reduceCreateProject(s State, a Action) (State, error) {
	act, err := actionAs[CreateProject](a)
	if err != nil {
		return s, err
	}
	p := act.Project.clone()
	if p.ID == "" {
		return s, fmt.Errorf("%w: project needs an id", ErrInvalidAction)
	}
	if s.projectIndex(p.ID) >= 0 {
		return s, fmt.Errorf("project %s: %w", p.ID, ErrDuplicate)
	}
	if p.IdeaID != "" {
		idea, ok := s.Idea(p.IdeaID)
		if !ok {
			return s, fmt.Errorf("idea %s: %w", p.IdeaID, ErrNotFound)
		}
		if p.Title == "" {
			p.Title = idea.Title
		}
		if p.Description == "" {
			p.Description = idea.Overview
		}
	}
	if strings.TrimSpace(p.Title) == "" {
		return s, fmt.Errorf("%w: project needs a title", ErrInvalidAction)
	}
	if p.Stage == "" {
		p.Stage = StageIdeation
	} else if _, err := ParseStage(string(p.Stage)); err != nil {
		return s, err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	s.Projects = append(s.Projects, p)
	return s, nil
}

func reduceMoveProject(s State, a Action) (State, error) {
	act, err := actionAs[MoveProject](a)
	if err != nil {
		return s, err
	}
	stage, err := ParseStage(string(act.Stage))
	if err != nil {
		return s, err
	}
	i := s.projectIndex(act.ProjectID)
	if i < 0 {
		return s, fmt.Errorf("project %s: %w", act.ProjectID, ErrNotFound)
	}
	s.Projects[i].Stage = stage
	s.Projects[i].UpdatedAt = act.At
	return s, nil
}

func reduceUpdateStrategy(s State, a Action) (State, error) {
	act, err := actionAs[UpdateStrategy](a)
	if err != nil {
		return s, err
	}
	i := s.projectIndex(act.ProjectID)
	if i < 0 {
		return s, fmt.Errorf("project %s: %w", act.ProjectID, ErrNotFound)
	}
	st := act.Strategy
	st.Objectives = copyStrings(st.Objectives)
	st.Milestones = copyStrings(st.Milestones)
	st.Risks = copyStrings(st.Risks)
	st.UpdatedAt = act.At
	s.Projects[i].Strategy = &st
	s.Projects[i].UpdatedAt = act.At
	return s, nil
}

func reduceAttachResult(s State, a Action) (State, error) {
	act, err := actionAs[AttachResult](a)
	if err != nil {
		return s, err
	}
	i := s.projectIndex(act.ProjectID)
	if i < 0 {
		return s, fmt.Errorf("project %s: %w", act.ProjectID, ErrNotFound)
	}
	p := &s.Projects[i]

	switch r := act.Result.(type) {
	case generation.LiteratureList:
		p.Literature = copySlice([]generation.LiteratureAnalysis(r))
	case generation.QuestionList:
		p.Questions = copyStrings([]string(r))
	case generation.DesignList:
		p.Designs = copySlice([]generation.ExperimentDesign(r))
	case *generation.RedTeamAnalysis:
		if r == nil {
			return s, fmt.Errorf("%w: nil critique", ErrUnsupportedResult)
		}
		p.Critique = &generation.RedTeamAnalysis{
			Weaknesses:  copyStrings(r.Weaknesses),
			Assumptions: copyStrings(r.Assumptions),
			Questions:   copyStrings(r.Questions),
		}
	default:
		return s, fmt.Errorf("%w: %T", ErrUnsupportedResult, act.Result)
	}
	p.UpdatedAt = act.At
	return s, nil
}

func reduceDeleteProject(s State, a Action) (State, error) {
	act, err := actionAs[DeleteProject](a)
	if err != nil {
		return s, err
	}
	i := s.projectIndex(act.ProjectID)
	if i < 0 {
		return s, fmt.Errorf("project %s: %w", act.ProjectID, ErrNotFound)
	}
	s.Projects = append(s.Projects[:i], s.Projects[i+1:]...)
	return s, nil
}
