package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/groupe-jds/doku-seal/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database that lives for the duration of t.
// The pool holds a single connection so every query sees the same memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.SetupModels(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	return db
}
