// Package dbtest opens a migrated SQLite database for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"quiz-api/pkg/database"
)

// Open returns a fresh file-backed database under t.TempDir.
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(&database.Config{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
