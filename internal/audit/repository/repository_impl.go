package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/invoicely/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (
			id, action, target_type, target_id, metadata, request_id, correlation_id, created_utc
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Metadata,
		entry.RequestID,
		entry.CorrelationID,
		entry.CreatedUTC,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog
	stmt := db.WithContext(ctx).Model(&domain.AuditLog{})

	if action := strings.TrimSpace(filter.Action); action != "" {
		stmt = stmt.Where("action = ?", action)
	}
	if targetType := strings.TrimSpace(filter.TargetType); targetType != "" {
		stmt = stmt.Where("target_type = ?", targetType)
	}
	if targetID := strings.TrimSpace(filter.TargetID); targetID != "" {
		stmt = stmt.Where("target_id = ?", targetID)
	}
	if filter.From != nil {
		stmt = stmt.Where("created_utc >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("created_utc <= ?", *filter.To)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_utc < ? OR (created_utc = ? AND id < ?))",
			filter.Cursor.CreatedUTC,
			filter.Cursor.CreatedUTC,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_utc desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
