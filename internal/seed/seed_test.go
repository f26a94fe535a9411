package seed_test

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/internal/dbtest"
	"github.com/smallbiznis/invoicely/internal/seed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEnsureDefaultsSeedsOnce(t *testing.T) {
	conn := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	res, err := seed.EnsureDefaults(context.Background(), conn, node, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, seed.Result{Products: 5, Partners: 3}, res)

	res, err = seed.EnsureDefaults(context.Background(), conn, node, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, seed.Result{}, res)

	var vat int32
	require.NoError(t, conn.Raw(`SELECT vat_rate FROM product WHERE sku = ?`, "SKU002").Scan(&vat).Error)
	assert.Equal(t, int32(18), vat)

	var suppliers int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM partner WHERE kind = 'supplier'`).Scan(&suppliers).Error)
	assert.Equal(t, int64(1), suppliers)
}
