package services

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/ideaforge-api/internal/database"
	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, email, role string, credits int) *models.User {
	t.Helper()
	user := &models.User{Email: email, Name: "Test", Role: role, IsActive: true}
	require.NoError(t, user.HashPassword("password123"))
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.UserCredits{UserID: user.ID, Credits: credits}).Error)
	return user
}
