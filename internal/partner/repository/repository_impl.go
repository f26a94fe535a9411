package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/internal/partner/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const partnerColumns = `id, name, kind, tax_id, address, created_utc, updated_utc`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, partner *domain.Partner) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO partner (`+partnerColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		partner.ID,
		partner.Name,
		partner.Kind,
		partner.TaxID,
		partner.Address,
		partner.CreatedUTC,
		partner.UpdatedUTC,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, partner *domain.Partner) error {
	if partner == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE partner SET name = ?, tax_id = ?, address = ?, updated_utc = ? WHERE id = ?`,
		partner.Name,
		partner.TaxID,
		partner.Address,
		partner.UpdatedUTC,
		partner.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM partner WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Partner, error) {
	var partner domain.Partner
	err := db.WithContext(ctx).Raw(
		`SELECT `+partnerColumns+` FROM partner WHERE id = ?`,
		id,
	).Scan(&partner).Error
	if err != nil {
		return nil, err
	}
	if partner.ID == 0 {
		return nil, nil
	}
	return &partner, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListPartnerFilter) ([]*domain.Partner, error) {
	var partners []*domain.Partner
	stmt := db.WithContext(ctx).Model(&domain.Partner{})
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("id > ?", filter.Cursor.ID)
	}
	stmt = stmt.Order("id asc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Find(&partners).Error; err != nil {
		return nil, err
	}
	return partners, nil
}

func (r *repo) CountInvoices(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(1) FROM invoice WHERE partner_id = ?`, id).Scan(&count).Error
	return count, err
}
