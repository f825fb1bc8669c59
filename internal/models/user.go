package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	Password     string         `gorm:"not null" json:"-"`
	Name         string         `json:"name"`
	Organization string         `json:"organization,omitempty"`
	Role         string         `gorm:"default:'user';index" json:"role"` // "admin", "beta", "user"
	Plan         string         `gorm:"default:'starter'" json:"plan"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
}

// HashPassword hashes the user's password using bcrypt
func (u *User) HashPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password.
// OAuth-only accounts have no password and never match.
func (u *User) CheckPassword(password string) bool {
	if u.Password == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// UserCredits tracks the generation credit balance of a user
type UserCredits struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uint           `gorm:"not null;uniqueIndex" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"-"`
	Credits   int            `gorm:"default:0;not null" json:"credits"`
}

// UsageLog records one generation call and what it cost
type UsageLog struct {
	ID             uint      `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UserID         uint      `gorm:"not null;index" json:"user_id"`
	User           User      `gorm:"foreignKey:UserID" json:"-"`
	Operation      string    `gorm:"not null;index" json:"operation"`
	Model          string    `gorm:"not null" json:"model"`
	Provider       string    `json:"provider"`
	Success        bool      `gorm:"not null" json:"success"`
	ErrorKind      string    `json:"error_kind,omitempty"`
	TotalTokens    int       `gorm:"not null;default:0" json:"total_tokens"`
	InputTokens    int       `gorm:"not null;default:0" json:"input_tokens"`
	OutputTokens   int       `gorm:"not null;default:0" json:"output_tokens"`
	CreditsCharged int       `gorm:"not null;default:0" json:"credits_charged"`
	DurationMS     int       `gorm:"not null;default:0" json:"duration_ms"`
	RequestID      string    `gorm:"index" json:"request_id"`
}

// OAuthProvider links a social login identity to a user
type OAuthProvider struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
	UserID         uint           `gorm:"not null;index" json:"user_id"`
	User           User           `gorm:"foreignKey:UserID" json:"-"`
	Provider       string         `gorm:"not null;index;uniqueIndex:idx_provider_user" json:"provider"` // "google", "github"
	ProviderUserID string         `gorm:"not null;uniqueIndex:idx_provider_user" json:"provider_user_id"`
}
