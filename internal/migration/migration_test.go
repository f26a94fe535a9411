package migration_test

import (
	"testing"

	"github.com/smallbiznis/invoicely/internal/dbtest"
	"github.com/smallbiznis/invoicely/internal/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)

	version, dirty, err := migration.Version(conn)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	require.NoError(t, migration.Run(conn))
	version, _, err = migration.Version(conn)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestSchemaEnforcesInvariants(t *testing.T) {
	conn := dbtest.Open(t)

	require.NoError(t, conn.Exec(`INSERT INTO partner (id, name, kind, created_utc, updated_utc) VALUES (1, 'A', 'customer', 0, 0)`).Error)
	assert.Error(t, conn.Exec(`INSERT INTO partner (id, name, kind, created_utc, updated_utc) VALUES (2, 'B', 'reseller', 0, 0)`).Error)

	require.NoError(t, conn.Exec(`INSERT INTO invoice (id, number, partner_id, direction, created_utc) VALUES (10, 'INV-1', 1, 'sale', 0)`).Error)
	assert.Error(t, conn.Exec(`INSERT INTO invoice (id, number, partner_id, direction, created_utc) VALUES (11, 'INV-2', 1, 'refund', 0)`).Error)
	assert.Error(t, conn.Exec(`INSERT INTO invoice (id, number, partner_id, direction, created_utc) VALUES (12, 'INV-1', 1, 'sale', 0)`).Error)
	assert.Error(t, conn.Exec(`INSERT INTO invoice (id, number, partner_id, direction, created_utc) VALUES (13, 'INV-3', 99, 'sale', 0)`).Error)

	assert.Error(t, conn.Exec(`INSERT INTO invoice_item (id, invoice_id, qty, unit_price_cents, vat_rate) VALUES (20, 10, 0, 100, 27)`).Error)
	assert.Error(t, conn.Exec(`INSERT INTO invoice_item (id, invoice_id, qty, unit_price_cents, vat_rate) VALUES (21, 10, 1, -1, 27)`).Error)
	assert.Error(t, conn.Exec(`INSERT INTO invoice_item (id, invoice_id, qty, unit_price_cents, vat_rate) VALUES (22, 10, 1, 100, 101)`).Error)
	require.NoError(t, conn.Exec(`INSERT INTO invoice_item (id, invoice_id, qty, unit_price_cents, vat_rate) VALUES (23, 10, 1, 100, 0)`).Error)

	require.NoError(t, conn.Exec(`DELETE FROM invoice WHERE id = 10`).Error)
	var items int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM invoice_item`).Scan(&items).Error)
	assert.Zero(t, items)
}
