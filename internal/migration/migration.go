// Package migration applies the embedded schema for the configured dialect.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations
var embeddedMigrations embed.FS

// Run applies every pending migration for the dialect of conn. The schema
// provides the foreign keys, cascades and checks the services rely on.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunDialect(sqlDB, conn.Dialector.Name())
}

// RunDialect applies migrations on a raw handle. dialect is one of the gorm
// dialector names: sqlite, postgres, mysql.
func RunDialect(db *sql.DB, dialect string) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, "migrations/"+dialect)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source for %s: %w", dialect, err)
	}

	driver, err := driverFor(db, dialect)
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, dialect, driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	// migrator.Close would close the shared *sql.DB.
	return nil
}

// Version reports the applied schema version.
func Version(conn *gorm.DB) (uint, bool, error) {
	var row struct {
		Version uint
		Dirty   bool
	}
	err := conn.Raw(`SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&row).Error
	if err != nil {
		return 0, false, err
	}
	return row.Version, row.Dirty, nil
}

func driverFor(db *sql.DB, dialect string) (database.Driver, error) {
	switch dialect {
	case "sqlite":
		return sqlite3.WithInstance(db, &sqlite3.Config{})
	case "postgres":
		return postgres.WithInstance(db, &postgres.Config{})
	case "mysql":
		return mysql.WithInstance(db, &mysql.Config{})
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
}
