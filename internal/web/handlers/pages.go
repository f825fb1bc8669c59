package handlers

import (
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/Conceptual-Machines/ideaforge-api/internal/config"
	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
	"github.com/Conceptual-Machines/ideaforge-api/internal/middleware"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
	"github.com/Conceptual-Machines/ideaforge-api/internal/services"
	"github.com/Conceptual-Machines/ideaforge-api/internal/web/templates"
	"github.com/Conceptual-Machines/ideaforge-api/internal/workspace"
)

type WebHandler struct {
	cfg            *config.Config
	creditsService *services.CreditsService
	workspaces     *services.WorkspaceService
}

func NewWebHandler(cfg *config.Config, credits *services.CreditsService, workspaces *services.WorkspaceService) *WebHandler {
	return &WebHandler{
		cfg:            cfg,
		creditsService: credits,
		workspaces:     workspaces,
	}
}

func render(c *gin.Context, status int, component templ.Component) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(c.Request.Context(), c.Writer); err != nil {
		logger.Error("Failed to render page", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render template"})
	}
}

// Home renders the landing page
func (h *WebHandler) Home(c *gin.Context) {
	_, signedIn := middleware.GetCurrentUser(c)
	render(c, http.StatusOK, templates.Landing(signedIn))
}

// Pricing renders the plan list
func (h *WebHandler) Pricing(c *gin.Context) {
	current := ""
	if user, ok := middleware.GetCurrentUser(c); ok {
		current = user.Plan
	}
	render(c, http.StatusOK, templates.Pricing(models.Plans, current))
}

// Login renders the login page, or sends signed-in users to the dashboard
func (h *WebHandler) Login(c *gin.Context) {
	if _, exists := middleware.GetCurrentUser(c); exists {
		c.Redirect(http.StatusTemporaryRedirect, "/dashboard")
		return
	}
	render(c, http.StatusOK, templates.Login(templates.LoginData{
		Error:         c.Query("error"),
		GoogleEnabled: h.cfg.GoogleClientID != "",
		GitHubEnabled: h.cfg.GitHubClientID != "",
	}))
}

// Dashboard renders the user dashboard. Credits, usage and workspace are
// loaded concurrently; a failed usage query degrades to empty stats.
func (h *WebHandler) Dashboard(c *gin.Context) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		c.Redirect(http.StatusTemporaryRedirect, "/login")
		return
	}

	var (
		credits *models.UserCredits
		stats   *services.UsageStats
		state   workspace.State
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		var err error
		credits, err = h.creditsService.GetUserCredits(user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = h.creditsService.GetUserUsageStats(user.ID, time.Time{}, time.Time{})
		if err != nil {
			logger.Warn("Dashboard stats unavailable", logger.Fields{"user_id": user.ID, "error": err.Error()})
			stats = &services.UsageStats{}
		}
		return nil
	})
	g.Go(func() error {
		var err error
		state, err = h.workspaces.State(ctx, user.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Error("Failed to load dashboard", err, logger.Fields{"user_id": user.ID})
		c.String(http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	unlimited := models.HasUnlimitedCredits(user.Role)
	data := templates.DashboardData{
		Email:            user.Email,
		Name:             user.Name,
		Role:             user.Role,
		Plan:             user.Plan,
		Credits:          credits.Credits,
		Unlimited:        unlimited,
		Low:              models.IsLowBalance(user.Role, credits.Credits),
		TotalRequests:    stats.TotalRequests,
		FailedRequests:   stats.FailedRequests,
		TotalTokens:      stats.TotalTokensUsed,
		TotalCreditsUsed: stats.TotalCreditsUsed,
		AvgDurationMS:    stats.AvgDurationMS,
	}

	counts := workspace.StageCounts(state.Projects)
	for _, stage := range workspace.Stages {
		data.Stages = append(data.Stages, templates.StageCount{Stage: string(stage), Count: counts[stage]})
	}
	for _, idea := range state.Ideas {
		data.Ideas = append(data.Ideas, templates.IdeaRow{
			Title:      idea.Title,
			Topic:      idea.Topic,
			GapScore:   idea.GapScore,
			Industrial: idea.Industrial,
			Quadrant:   string(workspace.QuadrantOf(idea)),
		})
	}

	render(c, http.StatusOK, templates.Dashboard(data))
}
