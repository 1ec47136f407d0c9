// migrate.go handles database migration using golang-migrate.
//
// Migrations are SQL files embedded from migrations/<driver>/. Each
// migration has an "up" (apply) and "down" (rollback) file. The migrate
// library tracks which migrations have been applied in a schema_migrations
// table.
package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/Shimizu-Technology/learnsmart-api/internal/logger"
)

//go:embed migrations
var migrationFiles embed.FS

// RunMigrations applies all pending database migrations.
// This is called at application startup to ensure the schema is up to date.
func (db *DB) RunMigrations(log *logger.Logger) error {
	var (
		driver migratedb.Driver
		err    error
	)
	switch db.driver {
	case DriverPostgres:
		driver, err = postgres.WithInstance(db.DB.DB, &postgres.Config{})
	case DriverSQLite:
		driver, err = sqlite.WithInstance(db.DB.DB, &sqlite.Config{})
	default:
		err = fmt.Errorf("no migrations for driver %q", db.driver)
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	src, err := iofs.New(migrationFiles, "migrations/"+db.driver)
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	// Go Pattern: m.Close() would also close our *sql.DB, which the rest of
	// the application keeps using, so the migrator is simply dropped.
	m, err := migrate.NewWithInstance("iofs", src, db.driver, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	// Run all pending migrations
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("📦 Database: no new migrations to apply")
	} else {
		version, dirty, _ := m.Version()
		log.Info("📦 Database migrated", "version", version, "dirty", dirty)
	}

	return nil
}
