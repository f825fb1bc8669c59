package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
	"github.com/Conceptual-Machines/ideaforge-api/internal/middleware"
	"github.com/Conceptual-Machines/ideaforge-api/internal/services"
	"github.com/Conceptual-Machines/ideaforge-api/internal/workspace"
)

type WorkspaceHandler struct {
	workspaces *services.WorkspaceService
}

func NewWorkspaceHandler(workspaces *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces}
}

type SaveIdeaRequest struct {
	Topic string          `json:"topic"`
	Idea  generation.Idea `json:"idea" binding:"required"`
}

type CreateProjectRequest struct {
	IdeaID      string `json:"idea_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Stage       string `json:"stage"`
}

type MoveProjectRequest struct {
	Stage string `json:"stage" binding:"required"`
}

type StrategyRequest struct {
	Summary    string   `json:"summary"`
	Objectives []string `json:"objectives"`
	Milestones []string `json:"milestones"`
	Risks      []string `json:"risks"`
}

// AttachRequest carries a generation result to store on a project. Operation
// accepts the same names as the generate endpoints.
type AttachRequest struct {
	Operation string          `json:"operation" binding:"required"`
	Result    json.RawMessage `json:"result" binding:"required"`
}

// GetWorkspace returns ideas, projects and the pipeline board.
func (h *WorkspaceHandler) GetWorkspace(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	state, err := h.workspaces.State(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"workspace": state,
		"board":     workspace.Board(state.Projects),
	})
}

func (h *WorkspaceHandler) SaveIdea(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req SaveIdeaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, state, err := h.workspaces.SaveIdea(c.Request.Context(), userID, strings.TrimSpace(req.Topic), req.Idea)
	if err != nil {
		h.fail(c, err)
		return
	}
	idea, _ := state.Idea(id)
	c.JSON(http.StatusCreated, gin.H{"idea": idea, "revision": state.Revision})
}

func (h *WorkspaceHandler) RemoveIdea(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	state, err := h.workspaces.RemoveIdea(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revision": state.Revision})
}

// IdeaMatrix groups saved ideas by gap score and industrial focus.
func (h *WorkspaceHandler) IdeaMatrix(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	state, err := h.workspaces.State(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matrix": workspace.Matrix(state.Ideas)})
}

func (h *WorkspaceHandler) CreateProject(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var stage workspace.Stage
	if req.Stage != "" {
		parsed, err := workspace.ParseStage(req.Stage)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		stage = parsed
	}

	id, state, err := h.workspaces.CreateProject(c.Request.Context(), userID, services.NewProject{
		IdeaID:      strings.TrimSpace(req.IdeaID),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Stage:       stage,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	project, _ := state.Project(id)
	c.JSON(http.StatusCreated, gin.H{"project": project, "revision": state.Revision})
}

// ListProjects returns all projects, or one stage when ?stage= is given.
func (h *WorkspaceHandler) ListProjects(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	state, err := h.workspaces.State(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}

	projects := state.Projects
	if raw := c.Query("stage"); raw != "" {
		stage, err := workspace.ParseStage(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		projects = workspace.ByStage(projects, stage)
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects, "counts": workspace.StageCounts(state.Projects)})
}

func (h *WorkspaceHandler) MoveProject(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req MoveProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stage, err := workspace.ParseStage(req.Stage)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.respondWithProject(c, c.Param("id"), func(projectID string) (workspace.State, error) {
		return h.workspaces.MoveProject(c.Request.Context(), userID, projectID, stage)
	})
}

func (h *WorkspaceHandler) UpdateStrategy(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req StrategyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	strategy := workspace.Strategy{
		Summary:    strings.TrimSpace(req.Summary),
		Objectives: nonEmpty(req.Objectives),
		Milestones: nonEmpty(req.Milestones),
		Risks:      nonEmpty(req.Risks),
	}
	h.respondWithProject(c, c.Param("id"), func(projectID string) (workspace.State, error) {
		return h.workspaces.UpdateStrategy(c.Request.Context(), userID, projectID, strategy)
	})
}

// AttachResult stores a literature, questions, designs or critique result on a project.
func (h *WorkspaceHandler) AttachResult(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	var req AttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := decodeAttachment(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.respondWithProject(c, c.Param("id"), func(projectID string) (workspace.State, error) {
		return h.workspaces.AttachResult(c.Request.Context(), userID, projectID, result)
	})
}

func (h *WorkspaceHandler) DeleteProject(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	state, err := h.workspaces.DeleteProject(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"revision": state.Revision})
}

func (h *WorkspaceHandler) respondWithProject(c *gin.Context, projectID string, apply func(string) (workspace.State, error)) {
	state, err := apply(projectID)
	if err != nil {
		h.fail(c, err)
		return
	}
	project, _ := state.Project(projectID)
	c.JSON(http.StatusOK, gin.H{"project": project, "revision": state.Revision})
}

func (h *WorkspaceHandler) fail(c *gin.Context, err error) {
	status := statusForWorkspaceError(err)
	if status == http.StatusInternalServerError {
		logger.Error("Workspace update failed", err, logger.WithContext(c))
		c.JSON(status, gin.H{"error": "Failed to update workspace"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusForWorkspaceError(err error) int {
	switch {
	case errors.Is(err, workspace.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workspace.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, workspace.ErrInvalidStage),
		errors.Is(err, workspace.ErrInvalidAction),
		errors.Is(err, workspace.ErrUnsupportedResult):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeAttachment(req AttachRequest) (generation.Result, error) {
	op, err := generation.ParseOperation(req.Operation)
	if err != nil {
		return nil, err
	}

	var result generation.Result
	switch op {
	case generation.OpAnalyzeLiterature:
		var v generation.LiteratureList
		err = json.Unmarshal(req.Result, &v)
		result = v
	case generation.OpResearchQuestions:
		var v generation.QuestionList
		err = json.Unmarshal(req.Result, &v)
		result = v
	case generation.OpExperimentDesigns:
		var v generation.DesignList
		err = json.Unmarshal(req.Result, &v)
		result = v
	case generation.OpCritiqueProposal:
		v := &generation.RedTeamAnalysis{}
		err = json.Unmarshal(req.Result, v)
		result = v
	default:
		return nil, fmt.Errorf("%w: %s", workspace.ErrUnsupportedResult, op)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s result: %w", op.Alias(), err)
	}
	return result, nil
}

func requireUserID(c *gin.Context) (uint, bool) {
	userID, exists := middleware.GetCurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return 0, false
	}
	return userID, true
}
