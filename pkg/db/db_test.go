package db

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/invoicely/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "app.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", SQLiteDSN("app.db"))
	assert.Equal(t, "file:x?mode=memory&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", SQLiteDSN("file:x?mode=memory"))
	assert.True(t, strings.HasPrefix(SQLiteDSN(""), "invoicely.db?"))
}

func TestDialectSelection(t *testing.T) {
	d, err := Dialect(config.Config{DBType: "sqlite", DBPath: "x.db"})
	require.NoError(t, err)
	assert.Equal(t, TypeSQLite, d.Name())

	d, err = Dialect(config.Config{DBType: "postgres"})
	require.NoError(t, err)
	assert.Equal(t, TypePostgres, d.Name())

	d, err = Dialect(config.Config{DBType: "mysql"})
	require.NoError(t, err)
	assert.Equal(t, TypeMySQL, d.Name())

	_, err = Dialect(config.Config{DBType: "oracle"})
	assert.Error(t, err)
}

func TestOpenSQLiteEnforcesForeignKeys(t *testing.T) {
	dsn := SQLiteDSN(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	conn, err := Open(sqlite.Open(dsn), Options{})
	require.NoError(t, err)

	var enabled int
	require.NoError(t, conn.Raw("PRAGMA foreign_keys").Scan(&enabled).Error)
	assert.Equal(t, 1, enabled)

	require.NoError(t, conn.Exec("CREATE TABLE parent (id INTEGER PRIMARY KEY)").Error)
	require.NoError(t, conn.Exec("CREATE TABLE child (id INTEGER PRIMARY KEY, parent_id INTEGER NOT NULL REFERENCES parent(id))").Error)
	require.NoError(t, conn.Exec("CREATE UNIQUE INDEX ux_parent ON parent(id)").Error)

	err = conn.Exec("INSERT INTO child (id, parent_id) VALUES (1, 99)").Error
	assert.True(t, IsForeignKeyErr(err), "got %v", err)

	require.NoError(t, conn.Exec("INSERT INTO parent (id) VALUES (1)").Error)
	err = conn.Exec("INSERT INTO parent (id) VALUES (1)").Error
	assert.True(t, IsDuplicateKeyErr(err), "got %v", err)
}

func TestErrorClassifiers(t *testing.T) {
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(errors.New(`ERROR: duplicate key value violates unique constraint "ux_invoice_number" (SQLSTATE 23505)`)))
	assert.False(t, IsDuplicateKeyErr(errors.New("connection refused")))

	assert.False(t, IsForeignKeyErr(nil))
	assert.True(t, IsForeignKeyErr(errors.New("Error 1451: Cannot delete or update a parent row")))
}
