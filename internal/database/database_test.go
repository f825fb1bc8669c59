package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conceptual-Machines/ideaforge-api/internal/models"
)

func TestConnectAndMigrateSQLite(t *testing.T) {
	db, err := Connect(DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []any{&models.User{}, &models.UsageLog{}, &models.WorkspaceSnapshot{}, &models.DemoRequest{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}

func TestConnectUnsupportedDriver(t *testing.T) {
	_, err := Connect("oracle", "dsn")
	assert.Error(t, err)
}

func TestEnsureDemoUserIsIdempotent(t *testing.T) {
	db, err := Connect(DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	first, err := EnsureDemoUser(db)
	require.NoError(t, err)
	second, err := EnsureDemoUser(db)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, models.HasUnlimitedCredits(first.Role))

	var count int64
	require.NoError(t, db.Model(&models.UserCredits{}).Where("user_id = ?", first.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
