package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/ideaforge-api/internal/auth"
	"github.com/Conceptual-Machines/ideaforge-api/internal/config"
	"github.com/Conceptual-Machines/ideaforge-api/internal/logger"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
	"github.com/Conceptual-Machines/ideaforge-api/internal/services"
)

const (
	providerGoogle = "google"
	providerGitHub = "github"
)

type OAuthHandler struct {
	db      *gorm.DB
	cfg     *config.Config
	issuer  *auth.TokenIssuer
	credits *services.CreditsService
}

// NewOAuthHandler registers the Google and GitHub providers that have credentials configured.
func NewOAuthHandler(db *gorm.DB, cfg *config.Config, issuer *auth.TokenIssuer, credits *services.CreditsService) *OAuthHandler {
	store := sessions.NewCookieStore([]byte(cfg.JWTSecret))
	store.Options.HttpOnly = true
	store.Options.Secure = cfg.IsProduction()
	gothic.Store = store

	var providers []goth.Provider
	if cfg.GoogleClientID != "" {
		providers = append(providers, google.New(
			cfg.GoogleClientID,
			cfg.GoogleClientSecret,
			cfg.BaseURL+"/api/auth/google/callback",
			"email", "profile",
		))
	}
	if cfg.GitHubClientID != "" {
		providers = append(providers, github.New(
			cfg.GitHubClientID,
			cfg.GitHubClientSecret,
			cfg.BaseURL+"/api/auth/github/callback",
			"user:email",
		))
	}
	goth.UseProviders(providers...)

	return &OAuthHandler{db: db, cfg: cfg, issuer: issuer, credits: credits}
}

func supportedProvider(c *gin.Context) (string, bool) {
	provider := c.Param("provider")
	if provider != providerGoogle && provider != providerGitHub {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported provider"})
		return "", false
	}
	if _, err := goth.GetProvider(provider); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s sign-in is not configured", provider)})
		return "", false
	}

	// gothic reads the provider from the query string.
	q := c.Request.URL.Query()
	q.Set("provider", provider)
	c.Request.URL.RawQuery = q.Encode()
	return provider, true
}

// BeginAuth redirects user to OAuth provider login
func (h *OAuthHandler) BeginAuth(c *gin.Context) {
	if _, ok := supportedProvider(c); !ok {
		return
	}
	gothic.BeginAuthHandler(c.Writer, c.Request)
}

// Callback handles OAuth provider callback
func (h *OAuthHandler) Callback(c *gin.Context) {
	provider, ok := supportedProvider(c)
	if !ok {
		return
	}

	gothUser, err := gothic.CompleteUserAuth(c.Writer, c.Request)
	if err != nil {
		logger.Warn("OAuth authentication failed", logger.Fields{"provider": provider, "error": err.Error()})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "OAuth authentication failed"})
		return
	}

	user, isNew, err := h.findOrCreateOAuthUser(&gothUser)
	if err != nil {
		logger.Error("OAuth user provisioning failed", err, logger.Fields{"provider": provider})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}
	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is disabled"})
		return
	}

	pair, err := h.issuer.IssuePair(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}
	setAuthCookies(c, h.cfg.CookieDomain, pair)

	redirect := url.Values{}
	redirect.Set("is_new", fmt.Sprint(isNew))
	c.Redirect(http.StatusTemporaryRedirect, "/dashboard?"+redirect.Encode())
}

// findOrCreateOAuthUser resolves the account for a provider identity. An
// existing email/password account with the same address is linked rather than duplicated.
func (h *OAuthHandler) findOrCreateOAuthUser(gothUser *goth.User) (*models.User, bool, error) {
	var link models.OAuthProvider
	err := h.db.Where("provider = ? AND provider_user_id = ?", gothUser.Provider, gothUser.UserID).
		Preload("User").
		First(&link).Error
	if err == nil {
		return &link.User, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	email := strings.ToLower(strings.TrimSpace(gothUser.Email))
	if email == "" {
		return nil, false, fmt.Errorf("%s did not return an email address", gothUser.Provider)
	}

	var existing models.User
	err = h.db.Where("email = ?", email).First(&existing).Error
	switch {
	case err == nil:
		link = models.OAuthProvider{
			UserID:         existing.ID,
			Provider:       gothUser.Provider,
			ProviderUserID: gothUser.UserID,
		}
		if err := h.db.Create(&link).Error; err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, err
	}

	user := models.User{
		Email:    email,
		Name:     gothUser.Name,
		Role:     models.RoleUser,
		Plan:     models.PlanStarter,
		IsActive: true,
	}
	link = models.OAuthProvider{Provider: gothUser.Provider, ProviderUserID: gothUser.UserID}
	if err := createUserWithCredits(h.db, h.credits, &user, &link); err != nil {
		return nil, false, err
	}
	return &user, true, nil
}
