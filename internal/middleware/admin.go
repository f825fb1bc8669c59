package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
)

// AdminRequired ensures the user has admin role
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := GetCurrentUser(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		if user.Role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// DemoUser attaches a fixed account to every request. Used when AUTH_MODE=none
// so the dashboard and API can be explored without signing in.
func DemoUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetCurrentUser(c, user)
		c.Next()
	}
}
