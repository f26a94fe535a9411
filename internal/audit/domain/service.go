package domain

import (
	"context"

	"github.com/smallbiznis/invoicely/internal/apperror"
	"github.com/smallbiznis/invoicely/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	From       *int64
	To         *int64
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// Record writes entry using db, which is normally the caller's open
	// transaction so the log commits or rolls back with the change itself.
	Record(ctx context.Context, db *gorm.DB, entry Entry) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidAction    = apperror.NewValidation("action", "invalid_action")
	ErrInvalidTimeRange = apperror.NewValidation("from", "invalid_time_range")
	ErrInvalidPageToken = apperror.NewValidation("page_token", "invalid_page_token")
)
