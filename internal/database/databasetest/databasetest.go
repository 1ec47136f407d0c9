// Package databasetest opens migrated in-memory SQLite databases for tests.
package databasetest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Shimizu-Technology/learnsmart-api/internal/database"
	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
)

var seq atomic.Int64

// New returns a fresh, fully migrated database that is closed when the
// test ends. Every call gets its own in-memory database.
func New(t testing.TB) *database.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := database.New(database.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.RunMigrations(logger.NewNop()); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
