package models

import "time"

// WorkspaceSnapshot stores the serialized workspace state of one user.
type WorkspaceSnapshot struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Revision  int       `gorm:"not null;default:0" json:"revision"`
	State     string    `gorm:"type:text;not null" json:"-"`
}

// DemoRequest is a sales lead captured from the marketing site.
type DemoRequest struct {
	ID           string    `gorm:"primarykey;size:36" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"not null;index" json:"email"`
	Organization string    `json:"organization"`
	TeamSize     string    `json:"team_size,omitempty"`
	Message      string    `gorm:"type:text" json:"message,omitempty"`
	Notified     bool      `gorm:"default:false" json:"notified"`
}
