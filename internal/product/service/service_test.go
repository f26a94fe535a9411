package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/internal/apperror"
	auditrepository "github.com/smallbiznis/invoicely/internal/audit/repository"
	auditservice "github.com/smallbiznis/invoicely/internal/audit/service"
	"github.com/smallbiznis/invoicely/internal/clock"
	"github.com/smallbiznis/invoicely/internal/config"
	"github.com/smallbiznis/invoicely/internal/dbtest"
	"github.com/smallbiznis/invoicely/internal/product/domain"
	"github.com/smallbiznis/invoicely/internal/product/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC))

	audit := auditservice.NewService(auditservice.Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: auditrepository.Provide(),
	})
	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Repo:     repository.Provide(),
		Audit:    audit,
		Business: config.StaticBusinessConfig(config.DefaultBusinessConfig()),
	})
	return svc, conn
}

func rate(v int32) *int32 { return &v }

func TestCreateProductNormalizesAndDefaultsRate(t *testing.T) {
	svc, _ := newTestService(t)

	p, err := svc.Create(context.Background(), domain.CreateRequest{SKU: " sku-001 ", Name: "Kenyér 1kg", UnitPriceCents: 69900})
	require.NoError(t, err)
	assert.Equal(t, "SKU-001", p.SKU)
	assert.Equal(t, int32(27), p.VATRate)

	zero, err := svc.Create(context.Background(), domain.CreateRequest{SKU: "BOOK_1", Name: "Könyv", UnitPriceCents: 0, VATRate: rate(0)})
	require.NoError(t, err)
	assert.Equal(t, int32(0), zero.VATRate)
}

func TestCreateProductValidation(t *testing.T) {
	svc, conn := newTestService(t)

	tests := []struct {
		name string
		req  domain.CreateRequest
		want error
	}{
		{"short sku", domain.CreateRequest{SKU: "ab", Name: "x"}, domain.ErrInvalidSKU},
		{"sku with space", domain.CreateRequest{SKU: "SKU 1", Name: "x"}, domain.ErrInvalidSKU},
		{"empty name", domain.CreateRequest{SKU: "SKU1", Name: " "}, domain.ErrInvalidName},
		{"negative price", domain.CreateRequest{SKU: "SKU1", Name: "x", UnitPriceCents: -1}, domain.ErrInvalidPrice},
		{"rate above 100", domain.CreateRequest{SKU: "SKU1", Name: "x", VATRate: rate(101)}, domain.ErrInvalidVATRate},
		{"negative rate", domain.CreateRequest{SKU: "SKU1", Name: "x", VATRate: rate(-5)}, domain.ErrInvalidVATRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, apperror.IsValidation(err))
		})
	}

	var count int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM product`).Scan(&count).Error)
	assert.Zero(t, count)
}

func TestDuplicateSKUIsConflict(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateRequest{SKU: "SKU002", Name: "Tej 1l", UnitPriceCents: 39900, VATRate: rate(18)})
	require.NoError(t, err)
	other, err := svc.Create(ctx, domain.CreateRequest{SKU: "SKU003", Name: "Kolbász", UnitPriceCents: 299900})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{SKU: "sku002", Name: "Tej 2l", UnitPriceCents: 1})
	assert.ErrorIs(t, err, domain.ErrDuplicateSKU)
	assert.True(t, apperror.IsConflict(err))

	dup := "SKU002"
	_, err = svc.Update(ctx, domain.UpdateRequest{ID: other.ID.String(), SKU: &dup})
	assert.ErrorIs(t, err, domain.ErrDuplicateSKU)
}

func TestUpdateProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, domain.CreateRequest{SKU: "SKU004", Name: "Kakaóscsiga", UnitPriceCents: 34900})
	require.NoError(t, err)

	price := int64(37900)
	updated, err := svc.Update(ctx, domain.UpdateRequest{ID: p.ID.String(), UnitPriceCents: &price, VATRate: rate(18)})
	require.NoError(t, err)
	assert.Equal(t, int64(37900), updated.UnitPriceCents)
	assert.Equal(t, int32(18), updated.VATRate)
	assert.Equal(t, "SKU004", updated.SKU)

	negative := int64(-1)
	_, err = svc.Update(ctx, domain.UpdateRequest{ID: p.ID.String(), UnitPriceCents: &negative})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	got, err := svc.Get(ctx, p.ID.String())
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	_, err = svc.Get(ctx, "12345")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteProductInUseIsRejected(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, domain.CreateRequest{SKU: "SKU005", Name: "Rostos üdítő 1l", UnitPriceCents: 59900})
	require.NoError(t, err)

	require.NoError(t, conn.Exec(`INSERT INTO partner (id, name, kind, created_utc, updated_utc) VALUES (1, 'P', 'customer', 0, 0)`).Error)
	require.NoError(t, conn.Exec(`INSERT INTO invoice (id, number, partner_id, direction, created_utc, notes) VALUES (2, 'INV-1', 1, 'sale', 0, '')`).Error)
	require.NoError(t, conn.Exec(`INSERT INTO invoice_item (id, invoice_id, product_id, description, qty, unit_price_cents, vat_rate) VALUES (3, 2, ?, '', 1, 59900, 27)`, p.ID).Error)

	err = svc.Delete(ctx, p.ID.String())
	assert.ErrorIs(t, err, domain.ErrProductInUse)
	assert.True(t, apperror.IsConflict(err))

	require.NoError(t, conn.Exec(`DELETE FROM invoice WHERE id = 2`).Error)
	require.NoError(t, svc.Delete(ctx, p.ID.String()))
	assert.ErrorIs(t, svc.Delete(ctx, p.ID.String()), domain.ErrNotFound)
}

func TestListProductsSearchesNameAndSKU(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, req := range []domain.CreateRequest{
		{SKU: "MILK-1", Name: "Tej 1l", UnitPriceCents: 39900},
		{SKU: "BREAD-1", Name: "Kenyér", UnitPriceCents: 69900},
		{SKU: "MILK-2", Name: "Tej 2l", UnitPriceCents: 69900},
	} {
		_, err := svc.Create(ctx, req)
		require.NoError(t, err)
	}

	res, err := svc.List(ctx, domain.ListRequest{Query: "milk"})
	require.NoError(t, err)
	assert.Len(t, res.Products, 2)
	assert.False(t, res.HasMore)

	req := domain.ListRequest{}
	req.PageSize = 2
	page, err := svc.List(ctx, req)
	require.NoError(t, err)
	assert.Len(t, page.Products, 2)
	assert.True(t, page.HasMore)

	req.PageToken = "not-base64!"
	_, err = svc.List(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
