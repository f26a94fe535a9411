package domain

import (
	"context"

	"github.com/smallbiznis/invoicely/internal/apperror"
	"github.com/smallbiznis/invoicely/pkg/db/pagination"
)

type CreateRequest struct {
	SKU            string `json:"sku" binding:"required"`
	Name           string `json:"name" binding:"required"`
	UnitPriceCents int64  `json:"unit_price_cents" binding:"gte=0"`
	// VATRate falls back to the configured default when nil.
	VATRate *int32 `json:"vat_rate" binding:"omitempty,gte=0,lte=100"`
}

type UpdateRequest struct {
	ID             string  `json:"-"`
	SKU            *string `json:"sku"`
	Name           *string `json:"name"`
	UnitPriceCents *int64  `json:"unit_price_cents"`
	VATRate        *int32  `json:"vat_rate"`
}

type ListRequest struct {
	pagination.Pagination
	Query string `form:"q"`
}

type ListFilter struct {
	Query  string
	Cursor *Cursor
	Limit  int
}

type ListResponse struct {
	pagination.PageInfo
	Products []Product `json:"products"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (Product, error)
	Update(ctx context.Context, req UpdateRequest) (Product, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidID        = apperror.NewValidation("id", "invalid_id")
	ErrInvalidSKU       = apperror.NewValidation("sku", "invalid_sku")
	ErrInvalidName      = apperror.NewValidation("name", "invalid_name")
	ErrInvalidPrice     = apperror.NewValidation("unit_price_cents", "invalid_unit_price")
	ErrInvalidVATRate   = apperror.NewValidation("vat_rate", "invalid_vat_rate")
	ErrInvalidPageToken = apperror.NewValidation("page_token", "invalid_page_token")
	ErrNotFound         = apperror.NewNotFound("product")
	ErrDuplicateSKU     = apperror.NewConflict("sku", "duplicate_sku")
	ErrProductInUse     = apperror.NewConflict("product", "product_in_use")
)
