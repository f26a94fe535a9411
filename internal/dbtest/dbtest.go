// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/invoicely/internal/migration"
	"github.com/smallbiznis/invoicely/pkg/db"
	"gorm.io/gorm"
)

var seq atomic.Int64

// Open returns a private, fully migrated SQLite database that is closed when
// the test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := db.SQLiteDSN(fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1)))

	conn, err := db.Open(sqlite.Open(dsn), db.Options{})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := migration.Run(conn); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	t.Cleanup(func() { Close(conn) })
	return conn
}

// Close releases the underlying connection. Calls after the first are no-ops.
func Close(conn *gorm.DB) {
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
