package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
	"github.com/Conceptual-Machines/ideaforge-api/internal/services"
)

func setupUserRouter(t *testing.T, db *gorm.DB, user *models.User) *gin.Engine {
	t.Helper()
	handler := NewUserHandler(services.NewCreditsService(db))
	router := gin.New()
	group := router.Group("/api/v1/user", asUser(user))
	group.GET("/profile", handler.GetProfile)
	group.GET("/credits", handler.GetCredits)
	group.GET("/usage/stats", handler.GetUsageStats)
	group.GET("/usage/history", handler.GetUsageHistory)
	return router
}

func TestGetCredits(t *testing.T) {
	tests := []struct {
		name      string
		role      string
		credits   int
		unlimited bool
		low       bool
	}{
		{name: "low balance", role: models.RoleUser, credits: 5, low: true},
		{name: "just below threshold", role: models.RoleUser, credits: models.LowCreditThreshold - 1, low: true},
		{name: "at threshold", role: models.RoleUser, credits: models.LowCreditThreshold},
		{name: "unlimited role", role: models.RoleBeta, credits: 0, unlimited: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			user := createUser(t, db, "ada@example.org", tt.role, tt.credits)
			router := setupUserRouter(t, db, user)

			w := doJSON(t, router, http.MethodGet, "/api/v1/user/credits", nil)
			require.Equal(t, http.StatusOK, w.Code)
			body := decode(t, w)
			assert.Equal(t, float64(tt.credits), body["credits"])
			assert.Equal(t, tt.unlimited, body["unlimited"])
			assert.Equal(t, tt.low, body["low"])
		})
	}
}

func TestGetUsageHistory_Pagination(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "ada@example.org", models.RoleUser, 5)
	credits := services.NewCreditsService(db)
	for i := 0; i < 5; i++ {
		require.NoError(t, credits.LogUsage(&models.UsageLog{
			UserID:    user.ID,
			Operation: "generate_ideas",
			Model:     "gemini-2.5-flash",
			Success:   true,
			RequestID: fmt.Sprintf("req-%d", i),
		}))
	}
	router := setupUserRouter(t, db, user)

	tests := []struct {
		query     string
		wantLogs  int
		wantPage  float64
		wantSize  float64
		wantPages float64
	}{
		{query: "?page=1&page_size=2", wantLogs: 2, wantPage: 1, wantSize: 2, wantPages: 3},
		{query: "?page=3&page_size=2", wantLogs: 1, wantPage: 3, wantSize: 2, wantPages: 3},
		{query: "?page=0&page_size=-4", wantLogs: 5, wantPage: 1, wantSize: float64(defaultHistoryPageSize), wantPages: 1},
		{query: "?page_size=100000", wantLogs: 5, wantPage: 1, wantSize: maxHistoryPageSize, wantPages: 1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := doJSON(t, router, http.MethodGet, "/api/v1/user/usage/history"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)
			body := decode(t, w)
			assert.Len(t, body["logs"], tt.wantLogs)
			pagination := body["pagination"].(map[string]any)
			assert.Equal(t, tt.wantPage, pagination["page"])
			assert.Equal(t, tt.wantSize, pagination["page_size"])
			assert.Equal(t, float64(5), pagination["total_count"])
			assert.Equal(t, tt.wantPages, pagination["total_pages"])
		})
	}
}

func TestGetUsageStats_Window(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "ada@example.org", models.RoleUser, 5)
	router := setupUserRouter(t, db, user)

	tests := []struct {
		query      string
		wantStatus int
	}{
		{query: "", wantStatus: http.StatusOK},
		{query: "?from=2026-01-01T00:00:00Z&to=2026-02-01T00:00:00Z", wantStatus: http.StatusOK},
		{query: "?from=yesterday", wantStatus: http.StatusBadRequest},
		{query: "?from=2026-02-01T00:00:00Z&to=2026-01-01T00:00:00Z", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := doJSON(t, router, http.MethodGet, "/api/v1/user/usage/stats"+tt.query, nil)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}
