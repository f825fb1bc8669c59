package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/ideaforge-api/internal/database"
	"github.com/Conceptual-Machines/ideaforge-api/internal/generation"
	"github.com/Conceptual-Machines/ideaforge-api/internal/middleware"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func createUser(t *testing.T, db *gorm.DB, email, role string, credits int) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: "Test", Role: role, Plan: models.PlanStarter, IsActive: true}
	require.NoError(t, user.HashPassword("password123"))
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.UserCredits{UserID: user.ID, Credits: credits}).Error)
	return user
}

// asUser attaches user the way the auth middleware would.
func asUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetCurrentUser(c, user)
		c.Next()
	}
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// fakeGenerator returns a canned result or error and records the last request.
type fakeGenerator struct {
	result generation.Result
	err    error
	calls  int
	last   generation.Request
	onRun  func()
}

func (g *fakeGenerator) Run(_ context.Context, req generation.Request) (generation.Result, error) {
	g.calls++
	g.last = req
	if g.onRun != nil {
		g.onRun()
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func (g *fakeGenerator) ModelFor(op generation.Operation) string {
	if op == generation.OpCritiqueProposal {
		return generation.DefaultProModel
	}
	return generation.DefaultFastModel
}
