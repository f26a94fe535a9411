package domain

import (
	"context"

	"github.com/smallbiznis/invoicely/internal/apperror"
	"github.com/smallbiznis/invoicely/internal/money"
	"github.com/smallbiznis/invoicely/internal/vat"
	"github.com/smallbiznis/invoicely/pkg/db/pagination"
)

type CreateInvoiceRequest struct {
	Number    string `json:"number"`
	PartnerID string `json:"partner_id" binding:"required"`
	Direction string `json:"direction" binding:"required"`
	Notes     string `json:"notes"`
}

// UpdateInvoiceRequest patches the header. Nil fields are left unchanged.
type UpdateInvoiceRequest struct {
	ID        string  `json:"-"`
	Number    *string `json:"number"`
	PartnerID *string `json:"partner_id"`
	Direction *string `json:"direction"`
	Notes     *string `json:"notes"`
}

// AddItemRequest adds a line. With a product, omitted price and rate are
// copied from it and an empty description takes the product name.
type AddItemRequest struct {
	InvoiceID      string  `json:"-"`
	ProductID      *string `json:"product_id"`
	Description    string  `json:"description"`
	Quantity       int64   `json:"quantity"`
	UnitPriceCents *int64  `json:"unit_price_cents"`
	VATRate        *int32  `json:"vat_rate"`
}

// UpdateItemRequest patches a line. Nil fields are left unchanged. A new
// ProductID re-copies price and rate unless they are sent too; an empty one
// unlinks the product.
type UpdateItemRequest struct {
	ItemID         string  `json:"-"`
	ProductID      *string `json:"product_id"`
	Description    *string `json:"description"`
	Quantity       *int64  `json:"quantity"`
	UnitPriceCents *int64  `json:"unit_price_cents"`
	VATRate        *int32  `json:"vat_rate"`
}

type ListInvoiceRequest struct {
	pagination.Pagination
	PartnerID   string `form:"partner_id"`
	Direction   string `form:"direction"`
	Number      string `form:"number"`
	CreatedFrom *int64 `form:"created_from"`
	CreatedTo   *int64 `form:"created_to"`
}

// ItemLine is an item together with its derived totals.
type ItemLine struct {
	InvoiceItem
	Totals money.Totals `json:"totals"`
}

// InvoiceDetail is the read model: header, ordered lines and breakdown.
type InvoiceDetail struct {
	Invoice
	Items     []ItemLine    `json:"items"`
	Breakdown vat.Breakdown `json:"vat_breakdown"`
}

type InvoiceSummary struct {
	Invoice
	Totals money.Totals `json:"totals"`
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []InvoiceSummary `json:"invoices"`
}

// Service is the only writer of invoices and their items. Each mutation
// runs in a single transaction and leaves no partial state on failure.
type Service interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (InvoiceDetail, error)
	UpdateInvoice(ctx context.Context, req UpdateInvoiceRequest) (InvoiceDetail, error)
	DeleteInvoice(ctx context.Context, id string) error
	AddItem(ctx context.Context, req AddItemRequest) (ItemLine, error)
	UpdateItem(ctx context.Context, req UpdateItemRequest) (ItemLine, error)
	RemoveItem(ctx context.Context, itemID string) error
	GetInvoice(ctx context.Context, id string) (InvoiceDetail, error)
	ListInvoices(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	GetVATBreakdown(ctx context.Context, id string) (vat.Breakdown, error)
	SuggestNumber(ctx context.Context) (string, error)
}

var (
	ErrInvalidID           = apperror.NewValidation("id", "invalid_id")
	ErrInvalidNumber       = apperror.NewValidation("number", "invalid_number")
	ErrInvalidDirection    = apperror.NewValidation("direction", "invalid_direction")
	ErrInvalidPartnerID    = apperror.NewValidation("partner_id", "invalid_partner_id")
	ErrPartnerNotFound     = apperror.NewValidation("partner_id", "partner_not_found")
	ErrInvalidProductID    = apperror.NewValidation("product_id", "invalid_product_id")
	ErrProductNotFound     = apperror.NewValidation("product_id", "product_not_found")
	ErrInvalidQuantity     = apperror.NewValidation("quantity", "invalid_quantity")
	ErrInvalidUnitPrice    = apperror.NewValidation("unit_price_cents", "invalid_unit_price")
	ErrInvalidVATRate      = apperror.NewValidation("vat_rate", "invalid_vat_rate")
	ErrUnitPriceRequired   = apperror.NewValidation("unit_price_cents", "unit_price_required")
	ErrDescriptionRequired = apperror.NewValidation("description", "description_required")
	ErrAmountTooLarge      = apperror.NewValidation("quantity", "amount_too_large")
	ErrInvalidPageToken    = apperror.NewValidation("page_token", "invalid_page_token")
	ErrInvalidTimeRange    = apperror.NewValidation("created_from", "invalid_time_range")
	ErrNotFound            = apperror.NewNotFound("invoice")
	ErrItemNotFound        = apperror.NewNotFound("invoice_item")
	ErrDuplicateNumber     = apperror.NewConflict("number", "duplicate_number")
)
