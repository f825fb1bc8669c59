package config

import (
	"os"
	"strings"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	AuthModeJWT  = "jwt"
	AuthModeNone = "none"

	defaultFastModel = "gemini-2.5-flash"
	defaultProModel  = "gemini-2.5-pro"
)

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string
	BaseURL     string // Public URL used for OAuth callbacks and email links
	CORSOrigins string // Comma separated; empty allows any origin without credentials

	// Database
	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseURL    string

	// Auth
	JWTSecret    string
	CookieDomain string
	// Auth mode
	// - "jwt": bearer/cookie JWT auth (default)
	// - "none": demo mode, every request runs as the seeded demo user
	AuthMode string

	// OAuth providers
	GoogleClientID     string
	GoogleClientSecret string
	GitHubClientID     string
	GitHubClientSecret string

	// LLM API Keys
	GeminiAPIKey string // Google Gemini API key
	OpenAIAPIKey string // OpenAI API key, used for gpt-* models

	// Generation models
	FastModel string // Default model for most generation operations
	ProModel  string // Higher-capability model used for proposal critique

	// Email (SES)
	AWSRegion   string
	SenderEmail string
	SalesEmail  string // Recipient for demo requests

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse
}

func Load() *Config {
	return &Config{
		Environment:        getEnv("ENVIRONMENT", "development"),
		Port:               getEnv("PORT", "8080"),
		BaseURL:            getEnv("BASE_URL", "http://localhost:8080"),
		CORSOrigins:        getEnv("CORS_ORIGINS", ""),
		DatabaseDriver:     getEnv("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:        getEnv("DATABASE_URL", "ideaforge.db"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		CookieDomain:       getEnv("COOKIE_DOMAIN", ""),
		AuthMode:           getEnv("AUTH_MODE", AuthModeJWT),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GitHubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		FastModel:          getEnv("GEMINI_FAST_MODEL", defaultFastModel),
		ProModel:           getEnv("GEMINI_PRO_MODEL", defaultProModel),
		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		SenderEmail:        getEnv("SENDER_EMAIL", "no-reply@ideaforge.app"),
		SalesEmail:         getEnv("SALES_EMAIL", ""),
		SentryDSN:          getEnv("SENTRY_DSN", ""),
		LangfusePublicKey:  getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey:  getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:       getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:    getEnv("LANGFUSE_ENABLED", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

// IsDemoMode returns true when requests run as the seeded demo user
func (c *Config) IsDemoMode() bool {
	return c.AuthMode == AuthModeNone
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// APIKeyFor returns the credential for the given LLM provider.
// It is read on every call so a rotated key takes effect without a restart.
func (c *Config) APIKeyFor(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderGemini:
		return strings.TrimSpace(c.GeminiAPIKey)
	case ProviderOpenAI:
		return strings.TrimSpace(c.OpenAIAPIKey)
	default:
		return ""
	}
}
