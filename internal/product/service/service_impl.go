package service

import (
	"context"
	"regexp"
	"slices"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/internal/apperror"
	auditdomain "github.com/smallbiznis/invoicely/internal/audit/domain"
	"github.com/smallbiznis/invoicely/internal/clock"
	"github.com/smallbiznis/invoicely/internal/config"
	"github.com/smallbiznis/invoicely/internal/money"
	"github.com/smallbiznis/invoicely/internal/product/domain"
	"github.com/smallbiznis/invoicely/pkg/db"
	"github.com/smallbiznis/invoicely/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var skuPattern = regexp.MustCompile(`^[A-Z0-9_-]{3,64}$`)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Audit    auditdomain.Service
	Business *config.BusinessConfigHolder
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	genID    *snowflake.Node
	clock    clock.Clock
	audit    auditdomain.Service
	business *config.BusinessConfigHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("product.service"),
		repo:     p.Repo,
		genID:    p.GenID,
		clock:    p.Clock,
		audit:    p.Audit,
		business: p.Business,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Product, error) {
	sku, err := normalizeSKU(req.SKU)
	if err != nil {
		return domain.Product{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Product{}, domain.ErrInvalidName
	}

	if req.UnitPriceCents < 0 {
		return domain.Product{}, domain.ErrInvalidPrice
	}

	rate := s.business.Get().DefaultVATRate
	if req.VATRate != nil {
		rate = *req.VATRate
	}
	if err := s.checkRate(rate); err != nil {
		return domain.Product{}, err
	}

	now := s.clock.Now().Unix()
	p := domain.Product{
		ID:             s.genID.Generate(),
		SKU:            sku,
		Name:           name,
		UnitPriceCents: req.UnitPriceCents,
		VATRate:        rate,
		CreatedUTC:     now,
		UpdatedUTC:     now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindBySKU(ctx, tx, sku)
		if err != nil {
			return apperror.Storage("product.find_sku", err)
		}
		if existing != nil {
			return domain.ErrDuplicateSKU
		}
		if err := s.repo.Insert(ctx, tx, &p); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateSKU
			}
			return apperror.Storage("product.insert", err)
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "product.created",
			TargetType: "product",
			TargetID:   p.ID,
			Metadata:   productMetadata(p),
		})
	})
	if err != nil {
		return domain.Product{}, apperror.Storage("product.create", err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	productID, err := parseID(id)
	if err != nil {
		return domain.Product{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, productID)
	if err != nil {
		return domain.Product{}, apperror.Storage("product.find", err)
	}
	if item == nil {
		return domain.Product{}, domain.ErrNotFound
	}
	return *item, nil
}

// Update edits a catalogue entry. Lines already on invoices keep the price
// and rate they captured when they were added.
func (s *Service) Update(ctx context.Context, req domain.UpdateRequest) (domain.Product, error) {
	productID, err := parseID(req.ID)
	if err != nil {
		return domain.Product{}, err
	}

	var updated domain.Product
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, productID)
		if err != nil {
			return apperror.Storage("product.find", err)
		}
		if item == nil {
			return domain.ErrNotFound
		}

		if req.SKU != nil {
			sku, err := normalizeSKU(*req.SKU)
			if err != nil {
				return err
			}
			if sku != item.SKU {
				existing, err := s.repo.FindBySKU(ctx, tx, sku)
				if err != nil {
					return apperror.Storage("product.find_sku", err)
				}
				if existing != nil {
					return domain.ErrDuplicateSKU
				}
			}
			item.SKU = sku
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			item.Name = name
		}
		if req.UnitPriceCents != nil {
			if *req.UnitPriceCents < 0 {
				return domain.ErrInvalidPrice
			}
			item.UnitPriceCents = *req.UnitPriceCents
		}
		if req.VATRate != nil {
			if err := s.checkRate(*req.VATRate); err != nil {
				return err
			}
			item.VATRate = *req.VATRate
		}

		item.UpdatedUTC = s.clock.Now().Unix()
		if err := s.repo.Update(ctx, tx, item); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateSKU
			}
			return apperror.Storage("product.update", err)
		}
		updated = *item
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "product.updated",
			TargetType: "product",
			TargetID:   item.ID,
			Metadata:   productMetadata(*item),
		})
	})
	if err != nil {
		return domain.Product{}, apperror.Storage("product.update", err)
	}
	return updated, nil
}

// Delete removes a product that no invoice line references.
func (s *Service) Delete(ctx context.Context, id string) error {
	productID, err := parseID(id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindByID(ctx, tx, productID)
		if err != nil {
			return apperror.Storage("product.find", err)
		}
		if item == nil {
			return domain.ErrNotFound
		}

		refs, err := s.repo.CountItems(ctx, tx, productID)
		if err != nil {
			return apperror.Storage("product.count_items", err)
		}
		if refs > 0 {
			return domain.ErrProductInUse
		}

		if err := s.repo.Delete(ctx, tx, productID); err != nil {
			if db.IsForeignKeyErr(err) {
				return domain.ErrProductInUse
			}
			return apperror.Storage("product.delete", err)
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "product.deleted",
			TargetType: "product",
			TargetID:   productID,
			Metadata:   map[string]any{"sku": item.SKU},
		})
	})
	if err != nil {
		return apperror.Storage("product.delete", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	filter := domain.ListFilter{
		Query: strings.TrimSpace(req.Query),
		Limit: pagination.Size(req.PageSize),
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		filter.Cursor = &domain.Cursor{ID: id}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, apperror.Storage("product.list", err)
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(p *domain.Product) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: p.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		products = append(products, *item)
	}
	return domain.ListResponse{PageInfo: pageInfo, Products: products}, nil
}

func (s *Service) checkRate(rate int32) error {
	if !money.ValidRate(rate) {
		return domain.ErrInvalidVATRate
	}
	if known := s.business.Get().VATRates; len(known) > 0 && !slices.Contains(known, rate) {
		s.log.Warn("product vat rate outside configured rates", zap.Int32("vat_rate", rate), zap.Int32s("configured", known))
	}
	return nil
}

func normalizeSKU(value string) (string, error) {
	sku := strings.ToUpper(strings.TrimSpace(value))
	if !skuPattern.MatchString(sku) {
		return "", domain.ErrInvalidSKU
	}
	return sku, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func productMetadata(p domain.Product) map[string]any {
	return map[string]any{
		"sku":              p.SKU,
		"name":             p.Name,
		"unit_price_cents": p.UnitPriceCents,
		"vat_rate":         p.VATRate,
	}
}
