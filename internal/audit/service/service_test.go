package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/internal/apperror"
	auditdomain "github.com/smallbiznis/invoicely/internal/audit/domain"
	"github.com/smallbiznis/invoicely/internal/audit/repository"
	"github.com/smallbiznis/invoicely/internal/clock"
	"github.com/smallbiznis/invoicely/internal/dbtest"
	obscontext "github.com/smallbiznis/invoicely/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	conn := dbtest.Open(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	}).(*Service)
	return svc, conn, clk
}

func TestRecordStoresContextAndMasksMetadata(t *testing.T) {
	svc, conn, clk := newTestService(t)
	ctx := obscontext.WithRequestID(context.Background(), "req-9")
	ctx = obscontext.WithCorrelationID(ctx, "corr-9")

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Record(ctx, tx, auditdomain.Entry{
			Action:     "partner.created",
			TargetType: "partner",
			TargetID:   snowflake.ID(42),
			Metadata:   map[string]any{"name": "Teszt Kft.", "tax_id": "12345678-1-42"},
		})
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{TargetType: "partner"})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	got := resp.AuditLogs[0]
	assert.Equal(t, "partner.created", got.Action)
	assert.Equal(t, "42", got.TargetID)
	assert.Equal(t, "req-9", got.RequestID)
	assert.Equal(t, "corr-9", got.CorrelationID)
	assert.Equal(t, clk.Now().Unix(), got.CreatedUTC)
	assert.Equal(t, "Teszt Kft.", got.Metadata["name"])
	assert.Equal(t, "****1-42", got.Metadata["tax_id"])
}

func TestRecordRollsBackWithTransaction(t *testing.T) {
	svc, conn, _ := newTestService(t)

	_ = conn.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Record(context.Background(), tx, auditdomain.Entry{Action: "invoice.deleted", TargetType: "invoice", TargetID: 7}))
		return assert.AnError
	})

	resp, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.AuditLogs)
}

func TestRecordRequiresAction(t *testing.T) {
	svc, _, _ := newTestService(t)
	err := svc.Record(context.Background(), nil, auditdomain.Entry{Action: "  "})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
	assert.True(t, apperror.IsValidation(err))
}

func TestListPaginatesNewestFirst(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, nil, auditdomain.Entry{Action: "product.updated", TargetType: "product", TargetID: snowflake.ID(i + 1)}))
		clk.Advance(time.Minute)
	}

	req := auditdomain.ListAuditLogRequest{}
	req.PageSize = 2
	first, err := svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "3", first.AuditLogs[0].TargetID)

	req.PageToken = first.NextPageToken
	second, err := svc.List(ctx, req)
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)
	assert.Equal(t, "1", second.AuditLogs[0].TargetID)

	req.PageToken = "%%%"
	_, err = svc.List(ctx, req)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)

	from, to := int64(10), int64(5)
	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{From: &from, To: &to})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
