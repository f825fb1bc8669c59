package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/ideaforge-api/internal/auth"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
)

const (
	bearerPrefix = "Bearer"

	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"

	contextUserKey   = "user"
	contextUserIDKey = "user_id"
)

// tokenFromRequest reads the bearer token, falling back to the access cookie for web users.
func tokenFromRequest(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == bearerPrefix {
			return strings.TrimSpace(parts[1])
		}
	}
	token, _ := c.Cookie(AccessTokenCookie)
	return token
}

func loadUser(db *gorm.DB, issuer *auth.TokenIssuer, tokenString string) (*models.User, int, string) {
	claims, err := issuer.Verify(tokenString, auth.TokenTypeAccess)
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid or expired token"
	}

	var user models.User
	if err := db.First(&user, claims.UserID).Error; err != nil {
		return nil, http.StatusUnauthorized, "User not found"
	}
	if !user.IsActive {
		return nil, http.StatusForbidden, "Account is disabled"
	}
	return &user, 0, ""
}

// JWTAuth middleware validates access tokens and attaches the user to the context
func JWTAuth(db *gorm.DB, issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		// DemoUser may already have attached an account.
		if _, exists := GetCurrentUser(c); exists {
			c.Next()
			return
		}

		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		user, status, msg := loadUser(db, issuer, tokenString)
		if user == nil {
			c.JSON(status, gin.H{"error": msg})
			c.Abort()
			return
		}

		SetCurrentUser(c, user)
		c.Next()
	}
}

// OptionalJWTAuth is like JWTAuth but never aborts; pages use it to render
// signed-in and anonymous variants.
func OptionalJWTAuth(db *gorm.DB, issuer *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := GetCurrentUser(c); exists {
			c.Next()
			return
		}

		tokenString := tokenFromRequest(c)
		if tokenString == "" {
			c.Next()
			return
		}

		if user, _, _ := loadUser(db, issuer, tokenString); user != nil {
			SetCurrentUser(c, user)
		}
		c.Next()
	}
}

// SetCurrentUser attaches user to the request context
func SetCurrentUser(c *gin.Context, user *models.User) {
	c.Set(contextUserKey, *user)
	c.Set(contextUserIDKey, user.ID)
}

// GetCurrentUser retrieves the user from context
func GetCurrentUser(c *gin.Context) (*models.User, bool) {
	userVal, exists := c.Get(contextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := userVal.(models.User)
	return &user, ok
}

// GetCurrentUserID retrieves the user ID from context
func GetCurrentUserID(c *gin.Context) (uint, bool) {
	userIDVal, exists := c.Get(contextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDVal.(uint)
	return userID, ok
}
