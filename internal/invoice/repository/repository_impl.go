package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/internal/invoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const (
	invoiceColumns = `id, number, partner_id, direction, created_utc, notes`
	itemColumns    = `id, invoice_id, product_id, description, qty, unit_price_cents, vat_rate`
)

// likeEscaper escapes LIKE wildcards with '!', which every dialect accepts
// as an ESCAPE character without string-literal quirks.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (r *repo) InsertInvoice(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoice (`+invoiceColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.Number,
		invoice.PartnerID,
		invoice.Direction,
		invoice.CreatedUTC,
		invoice.Notes,
	).Error
}

// UpdateInvoice rewrites the mutable header columns. created_utc is set once.
func (r *repo) UpdateInvoice(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	if invoice == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE invoice SET number = ?, partner_id = ?, direction = ?, notes = ? WHERE id = ?`,
		invoice.Number,
		invoice.PartnerID,
		invoice.Direction,
		invoice.Notes,
		invoice.ID,
	).Error
}

func (r *repo) DeleteInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM invoice WHERE id = ?`, id)
	return res.RowsAffected, res.Error
}

func (r *repo) FindInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return r.findInvoice(ctx, db, `SELECT `+invoiceColumns+` FROM invoice WHERE id = ?`, id)
}

func (r *repo) FindInvoiceByNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Invoice, error) {
	return r.findInvoice(ctx, db, `SELECT `+invoiceColumns+` FROM invoice WHERE number = ?`, number)
}

func (r *repo) findInvoice(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Invoice, error) {
	var invoice domain.Invoice
	if err := db.WithContext(ctx).Raw(query, arg).Scan(&invoice).Error; err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) ListInvoices(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})

	if filter.PartnerID != 0 {
		stmt = stmt.Where("partner_id = ?", filter.PartnerID)
	}
	if filter.Direction != "" {
		stmt = stmt.Where("direction = ?", filter.Direction)
	}
	if number := strings.TrimSpace(filter.Number); number != "" {
		stmt = stmt.Where("LOWER(number) LIKE ?", "%"+strings.ToLower(number)+"%")
	}
	if filter.CreatedFrom != nil {
		stmt = stmt.Where("created_utc >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		stmt = stmt.Where("created_utc <= ?", *filter.CreatedTo)
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
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// ListNumbersWithPrefix returns every invoice number starting with prefix.
func (r *repo) ListNumbersWithPrefix(ctx context.Context, db *gorm.DB, prefix string) ([]string, error) {
	var numbers []string
	err := db.WithContext(ctx).Raw(
		`SELECT number FROM invoice WHERE number LIKE ? ESCAPE '!'`,
		likeEscaper.Replace(prefix)+"%",
	).Scan(&numbers).Error
	return numbers, err
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, item *domain.InvoiceItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoice_item (`+itemColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.InvoiceID,
		item.ProductID,
		item.Description,
		item.Quantity,
		item.UnitPriceCents,
		item.VATRate,
	).Error
}

func (r *repo) UpdateItem(ctx context.Context, db *gorm.DB, item *domain.InvoiceItem) error {
	if item == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE invoice_item SET product_id = ?, description = ?, qty = ?, unit_price_cents = ?, vat_rate = ? WHERE id = ?`,
		item.ProductID,
		item.Description,
		item.Quantity,
		item.UnitPriceCents,
		item.VATRate,
		item.ID,
	).Error
}

func (r *repo) DeleteItem(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM invoice_item WHERE id = ?`, id).Error
}

func (r *repo) DeleteItemsByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM invoice_item WHERE invoice_id = ?`, invoiceID)
	return res.RowsAffected, res.Error
}

func (r *repo) FindItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.InvoiceItem, error) {
	var item domain.InvoiceItem
	err := db.WithContext(ctx).Raw(
		`SELECT `+itemColumns+` FROM invoice_item WHERE id = ?`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

// ListItems returns the items of the given invoices in entry order.
func (r *repo) ListItems(ctx context.Context, db *gorm.DB, invoiceIDs ...snowflake.ID) ([]domain.InvoiceItem, error) {
	items := []domain.InvoiceItem{}
	if len(invoiceIDs) == 0 {
		return items, nil
	}
	err := db.WithContext(ctx).Raw(
		`SELECT `+itemColumns+` FROM invoice_item WHERE invoice_id IN ? ORDER BY invoice_id, id`,
		invoiceIDs,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
