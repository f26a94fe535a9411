package domain

import (
	"context"

	"github.com/smallbiznis/invoicely/internal/apperror"
	"github.com/smallbiznis/invoicely/pkg/db/pagination"
)

type CreatePartnerRequest struct {
	Name    string  `json:"name" binding:"required"`
	Kind    string  `json:"kind" binding:"required,oneof=customer supplier"`
	TaxID   *string `json:"tax_id"`
	Address *string `json:"address"`
}

// UpdatePartnerRequest patches a partner. Nil fields are left unchanged.
type UpdatePartnerRequest struct {
	ID      string  `json:"-"`
	Name    *string `json:"name"`
	Kind    *string `json:"kind"`
	TaxID   *string `json:"tax_id"`
	Address *string `json:"address"`
}

type ListPartnerRequest struct {
	pagination.Pagination
	Kind string `form:"kind"`
	Name string `form:"name"`
}

type ListPartnerFilter struct {
	Kind   Kind
	Name   string
	Cursor *Cursor
	Limit  int
}

type ListPartnerResponse struct {
	pagination.PageInfo
	Partners []Partner `json:"partners"`
}

type Service interface {
	Create(ctx context.Context, req CreatePartnerRequest) (Partner, error)
	Update(ctx context.Context, req UpdatePartnerRequest) (Partner, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Partner, error)
	List(ctx context.Context, req ListPartnerRequest) (ListPartnerResponse, error)
}

var (
	ErrInvalidID        = apperror.NewValidation("id", "invalid_id")
	ErrInvalidName      = apperror.NewValidation("name", "invalid_name")
	ErrInvalidKind      = apperror.NewValidation("kind", "invalid_kind")
	ErrInvalidTaxID     = apperror.NewValidation("tax_id", "invalid_tax_id")
	ErrKindImmutable    = apperror.NewValidation("kind", "kind_immutable")
	ErrInvalidPageToken = apperror.NewValidation("page_token", "invalid_page_token")
	ErrNotFound         = apperror.NewNotFound("partner")
	ErrPartnerInUse     = apperror.NewConflict("partner", "partner_in_use")
)
