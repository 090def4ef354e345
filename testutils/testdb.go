package testutils

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm/logger"

	"taskboard-app/taskboard/database"
)

// SetupTestDB opens a real SQLite store in a per-test temp dir and runs the
// full migration chain. The file is removed with the test's temp dir.
func SetupTestDB(t *testing.T) *database.Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.DB.Logger = db.DB.Logger.LogMode(logger.Silent)

	if err := database.NewMigrator(db.DB, database.Migrations).MigrateToLatest(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(db.Close)
	return db
}
