package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/internal/apperror"
	auditdomain "github.com/smallbiznis/invoicely/internal/audit/domain"
	"github.com/smallbiznis/invoicely/internal/clock"
	"github.com/smallbiznis/invoicely/internal/partner/domain"
	"github.com/smallbiznis/invoicely/pkg/db"
	"github.com/smallbiznis/invoicely/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// taxIDPattern matches the 11 digits of a Hungarian adószám once spaces
// and hyphens are removed: 8 digits, VAT code, county code.
var taxIDPattern = regexp.MustCompile(`^\d{11}$`)

var taxIDSeparators = strings.NewReplacer(" ", "", "-", "")

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Audit auditdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	audit auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("partner.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePartnerRequest) (domain.Partner, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Partner{}, domain.ErrInvalidName
	}

	kind := domain.Kind(strings.ToLower(strings.TrimSpace(req.Kind)))
	if !kind.Valid() {
		return domain.Partner{}, domain.ErrInvalidKind
	}

	taxID, err := normalizeTaxID(req.TaxID)
	if err != nil {
		return domain.Partner{}, err
	}

	now := s.clock.Now().Unix()
	partner := domain.Partner{
		ID:         s.genID.Generate(),
		Name:       name,
		Kind:       kind,
		TaxID:      taxID,
		Address:    optionalText(req.Address),
		CreatedUTC: now,
		UpdatedUTC: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &partner); err != nil {
			return apperror.Storage("partner.insert", err)
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "partner.created",
			TargetType: "partner",
			TargetID:   partner.ID,
			Metadata:   partnerMetadata(partner),
		})
	})
	if err != nil {
		return domain.Partner{}, apperror.Storage("partner.create", err)
	}
	return partner, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePartnerRequest) (domain.Partner, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Partner{}, err
	}

	var updated domain.Partner
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		partner, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return apperror.Storage("partner.find", err)
		}
		if partner == nil {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			partner.Name = name
		}
		if req.Kind != nil {
			kind := domain.Kind(strings.ToLower(strings.TrimSpace(*req.Kind)))
			if !kind.Valid() {
				return domain.ErrInvalidKind
			}
			if kind != partner.Kind {
				return domain.ErrKindImmutable
			}
		}
		if req.TaxID != nil {
			taxID, err := normalizeTaxID(req.TaxID)
			if err != nil {
				return err
			}
			partner.TaxID = taxID
		}
		if req.Address != nil {
			partner.Address = optionalText(req.Address)
		}

		partner.UpdatedUTC = s.clock.Now().Unix()
		if err := s.repo.Update(ctx, tx, partner); err != nil {
			return apperror.Storage("partner.update", err)
		}
		updated = *partner
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "partner.updated",
			TargetType: "partner",
			TargetID:   partner.ID,
			Metadata:   partnerMetadata(*partner),
		})
	})
	if err != nil {
		return domain.Partner{}, apperror.Storage("partner.update", err)
	}
	return updated, nil
}

// Delete removes a partner that no invoice references.
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := s.parseID(rawID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		partner, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return apperror.Storage("partner.find", err)
		}
		if partner == nil {
			return domain.ErrNotFound
		}

		refs, err := s.repo.CountInvoices(ctx, tx, id)
		if err != nil {
			return apperror.Storage("partner.count_invoices", err)
		}
		if refs > 0 {
			return domain.ErrPartnerInUse
		}

		if err := s.repo.Delete(ctx, tx, id); err != nil {
			if db.IsForeignKeyErr(err) {
				return domain.ErrPartnerInUse
			}
			return apperror.Storage("partner.delete", err)
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "partner.deleted",
			TargetType: "partner",
			TargetID:   id,
			Metadata:   map[string]any{"name": partner.Name},
		})
	})
	if err != nil {
		s.log.Debug("partner delete rejected", zap.String("partner_id", id.String()), zap.Error(err))
		return apperror.Storage("partner.delete", err)
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, rawID string) (domain.Partner, error) {
	id, err := s.parseID(rawID)
	if err != nil {
		return domain.Partner{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Partner{}, apperror.Storage("partner.find", err)
	}
	if item == nil {
		return domain.Partner{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPartnerRequest) (domain.ListPartnerResponse, error) {
	filter := domain.ListPartnerFilter{
		Name:  strings.TrimSpace(req.Name),
		Limit: pagination.Size(req.PageSize),
	}
	if kind := strings.TrimSpace(req.Kind); kind != "" {
		filter.Kind = domain.Kind(strings.ToLower(kind))
		if !filter.Kind.Valid() {
			return domain.ListPartnerResponse{}, domain.ErrInvalidKind
		}
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return domain.ListPartnerResponse{}, domain.ErrInvalidPageToken
	}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return domain.ListPartnerResponse{}, domain.ErrInvalidPageToken
		}
		filter.Cursor = &domain.Cursor{ID: id}
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListPartnerResponse{}, apperror.Storage("partner.list", err)
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, filter.Limit, func(p *domain.Partner) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: p.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})

	partners := make([]domain.Partner, 0, len(items))
	for _, item := range items {
		partners = append(partners, *item)
	}
	return domain.ListPartnerResponse{PageInfo: pageInfo, Partners: partners}, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func normalizeTaxID(value *string) (*string, error) {
	taxID := optionalText(value)
	if taxID == nil {
		return nil, nil
	}
	digits := taxIDSeparators.Replace(*taxID)
	if !taxIDPattern.MatchString(digits) {
		return nil, domain.ErrInvalidTaxID
	}
	formatted := digits[:8] + "-" + digits[8:9] + "-" + digits[9:]
	return &formatted, nil
}

func optionalText(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func partnerMetadata(p domain.Partner) map[string]any {
	return map[string]any{
		"name":    p.Name,
		"kind":    string(p.Kind),
		"tax_id":  p.TaxID,
		"address": p.Address,
	}
}
