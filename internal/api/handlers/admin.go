package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
	"github.com/Conceptual-Machines/ideaforge-api/internal/services"
)

const (
	activeStatusTrue  = "true"
	maxUsageLogsLimit = 50
)

type AdminHandler struct {
	db         *gorm.DB
	workspaces *services.WorkspaceService
}

func NewAdminHandler(db *gorm.DB, workspaces *services.WorkspaceService) *AdminHandler {
	return &AdminHandler{db: db, workspaces: workspaces}
}

// UserWithCredits is a user row with its balance attached.
type UserWithCredits struct {
	models.User
	Credits int `json:"credits"`
}

// ListUsers returns all users with their credits
func (h *AdminHandler) ListUsers(c *gin.Context) {
	query := h.db.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if isActive := c.Query("is_active"); isActive != "" {
		query = query.Where("is_active = ?", isActive == activeStatusTrue)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}

	ids := make([]uint, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	var balances []models.UserCredits
	if len(ids) > 0 {
		if err := h.db.Where("user_id IN ?", ids).Find(&balances).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch credits"})
			return
		}
	}
	byUser := make(map[uint]int, len(balances))
	for _, b := range balances {
		byUser[b.UserID] = b.Credits
	}

	result := make([]UserWithCredits, 0, len(users))
	for _, u := range users {
		result = append(result, UserWithCredits{User: u, Credits: byUser[u.ID]})
	}
	c.JSON(http.StatusOK, gin.H{"users": result})
}

func parseUserID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return 0, false
	}
	return uint(id), true
}

func (h *AdminHandler) findUser(c *gin.Context, userID uint) (*models.User, bool) {
	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
		}
		return nil, false
	}
	return &user, true
}

// UpdateUserRole updates a user's role
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req struct {
		Role string `json:"role" binding:"required,oneof=admin beta user"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, ok := h.findUser(c, userID)
	if !ok {
		return
	}
	user.Role = req.Role
	if err := h.db.Model(user).Update("role", req.Role).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role updated successfully", "user": user})
}

// ToggleUserActive toggles a user's active status
func (h *AdminHandler) ToggleUserActive(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	user, ok := h.findUser(c, userID)
	if !ok {
		return
	}

	user.IsActive = !user.IsActive
	if err := h.db.Model(user).Update("is_active", user.IsActive).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User status updated", "user": user})
}

// UpdateUserCredits sets, adds to or subtracts from a balance. Subtraction
// stops at zero.
func (h *AdminHandler) UpdateUserCredits(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	var req struct {
		Credits int    `json:"credits" binding:"min=0"`
		Action  string `json:"action" binding:"required,oneof=set add subtract"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, ok := h.findUser(c, userID); !ok {
		return
	}

	var credits models.UserCredits
	err := h.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&credits).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			credits = models.UserCredits{UserID: userID}
		} else if err != nil {
			return err
		}

		switch req.Action {
		case "set":
			credits.Credits = req.Credits
		case "add":
			credits.Credits += req.Credits
		case "subtract":
			credits.Credits = max(credits.Credits-req.Credits, 0)
		}
		return tx.Save(&credits).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update credits"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Credits updated successfully", "credits": credits})
}

// GetUserDetails returns detailed info about a specific user
func (h *AdminHandler) GetUserDetails(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	user, ok := h.findUser(c, userID)
	if !ok {
		return
	}

	var credits models.UserCredits
	h.db.Where("user_id = ?", userID).First(&credits)

	var usageLogs []models.UsageLog
	h.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(maxUsageLogsLimit).Find(&usageLogs)

	c.JSON(http.StatusOK, gin.H{
		"user":       user,
		"credits":    credits.Credits,
		"usage_logs": usageLogs,
	})
}

// DeleteUser permanently deletes a user and all associated data
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	user, ok := h.findUser(c, userID)
	if !ok {
		return
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.UserCredits{},
			&models.UsageLog{},
			&models.OAuthProvider{},
			&models.WorkspaceSnapshot{},
		} {
			if err := tx.Unscoped().Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Unscoped().Delete(user).Error
	})
	if err != nil {
		logger.Error("Failed to delete user", err, logger.Fields{"user_id": userID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	if h.workspaces != nil {
		h.workspaces.Forget(userID)
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
