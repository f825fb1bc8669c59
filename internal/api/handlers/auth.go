package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/ideaforge-api/internal/auth"
	"github.com/Conceptual-Machines/ideaforge-api/internal/config"
	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
	"github.com/Conceptual-Machines/ideaforge-api/internal/middleware"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
	"github.com/Conceptual-Machines/ideaforge-api/internal/services"
)

const (
	forwardedProtoHTTPS = "https"
)

var errEmailTaken = errors.New("user with this email already exists")

// WelcomeMailer sends the welcome mail after registration.
type WelcomeMailer interface {
	SendWelcomeEmail(user *models.User, credits int) error
}

type AuthHandler struct {
	db      *gorm.DB
	cfg     *config.Config
	issuer  *auth.TokenIssuer
	credits *services.CreditsService
	mailer  WelcomeMailer
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config, issuer *auth.TokenIssuer, credits *services.CreditsService, mailer WelcomeMailer) *AuthHandler {
	return &AuthHandler{
		db:      db,
		cfg:     cfg,
		issuer:  issuer,
		credits: credits,
		mailer:  mailer,
	}
}

type RegisterRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=8"`
	Name         string `json:"name"`
	Organization string `json:"organization"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"` // seconds
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// createUserWithCredits creates a user and their initial credits in a transaction
func createUserWithCredits(db *gorm.DB, credits *services.CreditsService, user *models.User, link *models.OAuthProvider) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errEmailTaken
		}

		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if err := credits.CreateInitialCredits(tx, user); err != nil {
			return fmt.Errorf("failed to create user credits: %w", err)
		}
		if link != nil {
			link.UserID = user.ID
			if err := tx.Create(link).Error; err != nil {
				return fmt.Errorf("failed to link %s account: %w", link.Provider, err)
			}
		}
		return nil
	})
}

// Register creates a new user account
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := models.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		Organization: strings.TrimSpace(req.Organization),
		Role:         models.RoleUser,
		Plan:         models.PlanStarter,
		IsActive:     true,
	}
	if err := user.HashPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	if err := createUserWithCredits(h.db, h.credits, &user, nil); err != nil {
		if errors.Is(err, errEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "User with this email already exists"})
			return
		}
		logger.Error("Registration failed", err, logger.WithContext(c))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	if h.mailer != nil {
		if err := h.mailer.SendWelcomeEmail(&user, models.GetInitialCreditsForRole(user.Role)); err != nil {
			// Registration already succeeded.
			logger.Error("Failed to send welcome email", err, logger.Fields{"user_id": user.ID})
		}
	}

	h.respondWithTokens(c, http.StatusCreated, &user)
}

// Login authenticates a user and returns tokens
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		return
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := h.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		logger.Warn("Failed to record login time", logger.Fields{"user_id": user.ID, "error": err.Error()})
	}

	h.respondWithTokens(c, http.StatusOK, &user)
}

// Refresh generates new tokens using a refresh token from the body or cookie
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.RefreshToken == "" {
		req.RefreshToken, _ = c.Cookie(middleware.RefreshTokenCookie)
	}
	if req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token is required"})
		return
	}

	claims, err := h.issuer.Verify(req.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	var user models.User
	if err := h.db.First(&user, claims.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		return
	}

	h.respondWithTokens(c, http.StatusOK, &user)
}

// Logout clears authentication cookies
func (h *AuthHandler) Logout(c *gin.Context) {
	// Cookies may have been set with either secure flag.
	for _, secure := range []bool{false, true} {
		c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", h.cfg.CookieDomain, secure, true)
		c.SetCookie(middleware.RefreshTokenCookie, "", -1, "/", h.cfg.CookieDomain, secure, true)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func (h *AuthHandler) respondWithTokens(c *gin.Context, status int, user *models.User) {
	pair, err := h.issuer.IssuePair(user)
	if err != nil {
		logger.Error("Failed to issue tokens", err, logger.Fields{"user_id": user.ID})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}

	setAuthCookies(c, h.cfg.CookieDomain, pair)

	c.JSON(status, AuthResponse{
		User:         *user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	})
}

// setAuthCookies sets HTTP-only cookies for web users. The secure flag follows
// the request scheme, including behind a TLS-terminating proxy.
func setAuthCookies(c *gin.Context, domain string, pair *auth.TokenPair) {
	isHTTPS := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == forwardedProtoHTTPS
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessTokenCookie, pair.AccessToken, int(auth.AccessTokenDuration.Seconds()), "/", domain, isHTTPS, true)
	c.SetCookie(middleware.RefreshTokenCookie, pair.RefreshToken, int(auth.RefreshTokenDuration.Seconds()), "/", domain, isHTTPS, true)
}
