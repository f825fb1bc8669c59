package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/ideaforge-api/internal/middleware"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
	"github.com/Conceptual-Machines/ideaforge-api/internal/services"
)

const (
	defaultHistoryPageSize = 20
	maxHistoryPageSize     = 100
	defaultStatsWindowDays = 30
)

type UserHandler struct {
	creditsService *services.CreditsService
}

func NewUserHandler(credits *services.CreditsService) *UserHandler {
	return &UserHandler{creditsService: credits}
}

// GetProfile returns the current user's profile
func (h *UserHandler) GetProfile(c *gin.Context) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	credits, err := h.creditsService.GetUserCredits(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get credits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":           user.ID,
			"email":        user.Email,
			"name":         user.Name,
			"organization": user.Organization,
			"role":         user.Role,
			"plan":         user.Plan,
			"is_active":    user.IsActive,
			"created_at":   user.CreatedAt,
		},
		"credits":   credits.Credits,
		"unlimited": models.HasUnlimitedCredits(user.Role),
	})
}

// GetCredits returns the current user's credit balance
func (h *UserHandler) GetCredits(c *gin.Context) {
	user, exists := middleware.GetCurrentUser(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	credits, err := h.creditsService.GetUserCredits(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get credits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"credits":    credits.Credits,
		"unlimited":  models.HasUnlimitedCredits(user.Role),
		"low":        models.IsLowBalance(user.Role, credits.Credits),
		"updated_at": credits.UpdatedAt,
	})
}

// GetUsageStats returns usage statistics for the current user. The window
// defaults to the last 30 days; malformed bounds are rejected.
func (h *UserHandler) GetUsageStats(c *gin.Context) {
	userID, exists := middleware.GetCurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	now := time.Now()
	from, ok := parseTimeQuery(c, "from", now.AddDate(0, 0, -defaultStatsWindowDays))
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to", now)
	if !ok {
		return
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'to' must not be before 'from'"})
		return
	}

	stats, err := h.creditsService.GetUserUsageStats(userID, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get usage stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": stats,
		"period": gin.H{
			"from": from.Format(time.RFC3339),
			"to":   to.Format(time.RFC3339),
		},
	})
}

// GetUsageHistory returns paginated usage history
func (h *UserHandler) GetUsageHistory(c *gin.Context) {
	userID, exists := middleware.GetCurrentUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page := positiveIntQuery(c, "page", 1)
	pageSize := positiveIntQuery(c, "page_size", defaultHistoryPageSize)
	if pageSize > maxHistoryPageSize {
		pageSize = maxHistoryPageSize
	}

	logs, totalCount, err := h.creditsService.GetUsageHistory(userID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get usage history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs": logs,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total_count": totalCount,
			"total_pages": (totalCount + int64(pageSize) - 1) / int64(pageSize),
		},
	})
}

func parseTimeQuery(c *gin.Context, key string, fallback time.Time) (time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'" + key + "' must be an RFC3339 timestamp"})
		return time.Time{}, false
	}
	return parsed, true
}

func positiveIntQuery(c *gin.Context, key string, fallback int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
