package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Cursor struct {
	ID         snowflake.ID
	CreatedUTC int64
}

type ListFilter struct {
	PartnerID   snowflake.ID
	Direction   Direction
	Number      string
	CreatedFrom *int64
	CreatedTo   *int64
	Cursor      *Cursor
	Limit       int
}

type Repository interface {
	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	UpdateInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	DeleteInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindInvoiceByNumber(ctx context.Context, db *gorm.DB, number string) (*Invoice, error)
	ListInvoices(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Invoice, error)
	ListNumbersWithPrefix(ctx context.Context, db *gorm.DB, prefix string) ([]string, error)

	InsertItem(ctx context.Context, db *gorm.DB, item *InvoiceItem) error
	UpdateItem(ctx context.Context, db *gorm.DB, item *InvoiceItem) error
	DeleteItem(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	DeleteItemsByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (int64, error)
	FindItem(ctx context.Context, db *gorm.DB, id snowflake.ID) (*InvoiceItem, error)
	ListItems(ctx context.Context, db *gorm.DB, invoiceIDs ...snowflake.ID) ([]InvoiceItem, error)
}
