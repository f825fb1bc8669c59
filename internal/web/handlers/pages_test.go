package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/ideaforge-api/internal/config"
	"github.com/Conceptual-Machines/ideaforge-api/internal/database"
	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
	"github.com/Conceptual-Machines/ideaforge-api/internal/middleware"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
	"github.com/Conceptual-Machines/ideaforge-api/internal/services"
)

type pagesFixture struct {
	db         *gorm.DB
	workspaces *services.WorkspaceService
	handler    *WebHandler
}

func newPagesFixture(t *testing.T) *pagesFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.Connect(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	workspaces := services.NewWorkspaceService(db)
	cfg := &config.Config{GoogleClientID: "google-id"}
	return &pagesFixture{
		db:         db,
		workspaces: workspaces,
		handler:    NewWebHandler(cfg, services.NewCreditsService(db), workspaces),
	}
}

func (f *pagesFixture) get(user *models.User, path string, h gin.HandlerFunc) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET(path, func(c *gin.Context) {
		if user != nil {
			middleware.SetCurrentUser(c, user)
		}
		c.Next()
	}, h)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestDashboard_RendersWorkspace(t *testing.T) {
	f := newPagesFixture(t)
	user := &models.User{Email: "ada@example.org", Name: "Ada", Role: models.RoleUser, Plan: models.PlanPro, IsActive: true}
	require.NoError(t, f.db.Create(user).Error)
	require.NoError(t, f.db.Create(&models.UserCredits{UserID: user.ID, Credits: 42}).Error)

	ctx := context.Background()
	_, _, err := f.workspaces.SaveIdea(ctx, user.ID, "batteries", generation.Idea{Title: "Sodium anodes", GapScore: 9, Industrial: true})
	require.NoError(t, err)
	_, _, err = f.workspaces.CreateProject(ctx, user.ID, services.NewProject{Title: "Grid storage"})
	require.NoError(t, err)

	w := f.get(user, "/dashboard", f.handler.Dashboard)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	html := w.Body.String()
	assert.Contains(t, html, "Welcome, Ada")
	assert.Contains(t, html, "42")
	assert.Contains(t, html, "Sodium anodes")
	assert.Contains(t, html, "frontier")
	assert.Contains(t, html, `<span class="stage">ideation</span><span class="count">1</span>`)
	assert.NotContains(t, html, "Running low")
}

func TestDashboard_RedirectsAnonymous(t *testing.T) {
	f := newPagesFixture(t)

	w := f.get(nil, "/dashboard", f.handler.Dashboard)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestLogin_Page(t *testing.T) {
	f := newPagesFixture(t)

	w := f.get(nil, "/login", f.handler.Login)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/auth/google")
	assert.NotContains(t, w.Body.String(), "/api/auth/github")

	w = f.get(&models.User{ID: 1}, "/login", f.handler.Login)
	assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
}

func TestPricing_Page(t *testing.T) {
	f := newPagesFixture(t)

	w := f.get(&models.User{ID: 1, Plan: models.PlanStarter}, "/pricing", f.handler.Pricing)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Current plan")
}
