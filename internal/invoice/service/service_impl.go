package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/internal/apperror"
	auditdomain "github.com/smallbiznis/invoicely/internal/audit/domain"
	"github.com/smallbiznis/invoicely/internal/clock"
	"github.com/smallbiznis/invoicely/internal/config"
	invoicedomain "github.com/smallbiznis/invoicely/internal/invoice/domain"
	"github.com/smallbiznis/invoicely/internal/invoice/format"
	"github.com/smallbiznis/invoicely/internal/observability/logger"
	"github.com/smallbiznis/invoicely/internal/observability/metrics"
	partnerdomain "github.com/smallbiznis/invoicely/internal/partner/domain"
	productdomain "github.com/smallbiznis/invoicely/internal/product/domain"
	"github.com/smallbiznis/invoicely/internal/vat"
	"github.com/smallbiznis/invoicely/pkg/db"
	"github.com/smallbiznis/invoicely/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxNumberProbes bounds the search for a free invoice number.
const maxNumberProbes = 1000

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     invoicedomain.Repository
	Partners partnerdomain.Repository
	Products productdomain.Repository
	Audit    auditdomain.Service
	Business *config.BusinessConfigHolder
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     invoicedomain.Repository
	partners partnerdomain.Repository
	products productdomain.Repository
	audit    auditdomain.Service
	business *config.BusinessConfigHolder
	metrics  *metrics.Metrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		partners: p.Partners,
		products: p.Products,
		audit:    p.Audit,
		business: p.Business,
		metrics:  p.Metrics,
	}
}

func (s *Service) CreateInvoice(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (detail invoicedomain.InvoiceDetail, err error) {
	defer func() { s.observe(ctx, "invoice.create", err) }()

	partnerID, err := parseID(req.PartnerID, invoicedomain.ErrInvalidPartnerID)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}

	inv, err := invoicedomain.NewInvoice(
		s.genID.Generate(),
		req.Number,
		partnerID,
		req.Direction,
		req.Notes,
		s.clock.Now().Unix(),
	)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ensurePartner(ctx, tx, inv.PartnerID); err != nil {
			return err
		}
		if err := s.ensureNumberFree(ctx, tx, inv.Number, 0); err != nil {
			return err
		}

		if err := s.repo.InsertInvoice(ctx, tx, inv); err != nil {
			return classifyWriteErr("invoice.insert", err)
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "invoice.created",
			TargetType: "invoice",
			TargetID:   inv.ID,
			Metadata: map[string]any{
				"number":     inv.Number,
				"partner_id": inv.PartnerID.String(),
				"direction":  string(inv.Direction),
			},
		})
	})
	if err != nil {
		return invoicedomain.InvoiceDetail{}, apperror.Storage("invoice.create", err)
	}

	return buildDetail(inv)
}

// UpdateInvoice re-validates the whole header, not only the changed fields.
func (s *Service) UpdateInvoice(ctx context.Context, req invoicedomain.UpdateInvoiceRequest) (detail invoicedomain.InvoiceDetail, err error) {
	defer func() { s.observe(ctx, "invoice.update", err) }()

	id, err := parseID(req.ID, invoicedomain.ErrInvalidID)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.loadInvoice(ctx, tx, id)
		if err != nil {
			return err
		}
		previousNumber := inv.Number

		if req.Number != nil {
			inv.Number = strings.TrimSpace(*req.Number)
		}
		if req.PartnerID != nil {
			partnerID, err := parseID(*req.PartnerID, invoicedomain.ErrInvalidPartnerID)
			if err != nil {
				return err
			}
			inv.PartnerID = partnerID
		}
		if req.Direction != nil {
			inv.Direction = invoicedomain.Direction(*req.Direction)
		}
		if req.Notes != nil {
			inv.Notes = strings.TrimSpace(*req.Notes)
		}

		if _, err := invoicedomain.NewInvoice(inv.ID, inv.Number, inv.PartnerID, string(inv.Direction), inv.Notes, inv.CreatedUTC); err != nil {
			return err
		}
		if err := s.ensurePartner(ctx, tx, inv.PartnerID); err != nil {
			return err
		}
		if err := s.ensureNumberFree(ctx, tx, inv.Number, inv.ID); err != nil {
			return err
		}

		if err := s.repo.UpdateInvoice(ctx, tx, inv); err != nil {
			return classifyWriteErr("invoice.update", err)
		}
		if err := s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "invoice.updated",
			TargetType: "invoice",
			TargetID:   inv.ID,
			Metadata: map[string]any{
				"number":          inv.Number,
				"previous_number": previousNumber,
				"partner_id":      inv.PartnerID.String(),
				"direction":       string(inv.Direction),
			},
		}); err != nil {
			return err
		}

		detail, err = buildDetail(inv)
		return err
	})
	if err != nil {
		return invoicedomain.InvoiceDetail{}, apperror.Storage("invoice.update", err)
	}
	return detail, nil
}

// DeleteInvoice removes the invoice and all of its items in one transaction.
func (s *Service) DeleteInvoice(ctx context.Context, rawID string) (err error) {
	defer func() { s.observe(ctx, "invoice.delete", err) }()

	id, err := parseID(rawID, invoicedomain.ErrInvalidID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.repo.FindInvoice(ctx, tx, id)
		if err != nil {
			return apperror.Storage("invoice.find", err)
		}
		if inv == nil {
			return invoicedomain.ErrNotFound
		}

		removed, err := s.repo.DeleteItemsByInvoice(ctx, tx, id)
		if err != nil {
			return apperror.Storage("invoice_item.delete_all", err)
		}
		affected, err := s.repo.DeleteInvoice(ctx, tx, id)
		if err != nil {
			return apperror.Storage("invoice.delete", err)
		}
		if affected == 0 {
			return invoicedomain.ErrNotFound
		}

		return s.audit.Record(ctx, tx, auditdomain.Entry{
			Action:     "invoice.deleted",
			TargetType: "invoice",
			TargetID:   id,
			Metadata: map[string]any{
				"number":        inv.Number,
				"items_deleted": removed,
			},
		})
	})
	if err != nil {
		return apperror.Storage("invoice.delete", err)
	}
	return nil
}

func (s *Service) AddItem(ctx context.Context, req invoicedomain.AddItemRequest) (line invoicedomain.ItemLine, err error) {
	defer func() { s.observe(ctx, "invoice_item.add", err) }()

	invoiceID, err := parseID(req.InvoiceID, invoicedomain.ErrInvalidID)
	if err != nil {
		return invoicedomain.ItemLine{}, err
	}

	var productID *snowflake.ID
	if req.ProductID != nil && strings.TrimSpace(*req.ProductID) != "" {
		id, err := parseID(*req.ProductID, invoicedomain.ErrInvalidProductID)
		if err != nil {
			return invoicedomain.ItemLine{}, err
		}
		productID = &id
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.loadInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}

		item := invoicedomain.InvoiceItem{
			ID:          s.genID.Generate(),
			ProductID:   productID,
			Description: req.Description,
			Quantity:    req.Quantity,
			VATRate:     s.business.Get().DefaultVATRate,
		}

		if productID != nil {
			product, err := s.products.FindByID(ctx, tx, *productID)
			if err != nil {
				return apperror.Storage("product.find", err)
			}
			if product == nil {
				return invoicedomain.ErrProductNotFound
			}
			item.UnitPriceCents = product.UnitPriceCents
			item.VATRate = product.VATRate
			if strings.TrimSpace(item.Description) == "" {
				item.Description = product.Name
			}
		} else if req.UnitPriceCents == nil {
			return invoicedomain.ErrUnitPriceRequired
		}
		if req.UnitPriceCents != nil {
			item.UnitPriceCents = *req.UnitPriceCents
		}
		if req.VATRate != nil {
			item.VATRate = *req.VATRate
		}

		added, err := inv.AddItem(item)
		if err != nil {
			return err
		}
		if err := s.repo.InsertItem(ctx, tx, added); err != nil {
			return classifyWriteErr("invoice_item.insert", err)
		}

		line, err = s.recordItemChange(ctx, tx, "invoice_item.added", inv, *added)
		return err
	})
	if err != nil {
		return invoicedomain.ItemLine{}, apperror.Storage("invoice_item.add", err)
	}
	return line, nil
}

func (s *Service) UpdateItem(ctx context.Context, req invoicedomain.UpdateItemRequest) (line invoicedomain.ItemLine, err error) {
	defer func() { s.observe(ctx, "invoice_item.update", err) }()

	itemID, err := parseID(req.ItemID, invoicedomain.ErrInvalidID)
	if err != nil {
		return invoicedomain.ItemLine{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindItem(ctx, tx, itemID)
		if err != nil {
			return apperror.Storage("invoice_item.find", err)
		}
		if item == nil {
			return invoicedomain.ErrItemNotFound
		}

		if req.ProductID != nil {
			if err := s.relinkProduct(ctx, tx, item, *req.ProductID, req); err != nil {
				return err
			}
		}
		if req.Description != nil {
			item.Description = strings.TrimSpace(*req.Description)
		}
		if req.Quantity != nil {
			item.Quantity = *req.Quantity
		}
		if req.UnitPriceCents != nil {
			item.UnitPriceCents = *req.UnitPriceCents
		}
		if req.VATRate != nil {
			item.VATRate = *req.VATRate
		}

		if err := invoicedomain.ValidateLine(item.Quantity, item.UnitPriceCents, item.VATRate); err != nil {
			return err
		}
		if item.ProductID == nil && item.Description == "" {
			return invoicedomain.ErrDescriptionRequired
		}

		if err := s.repo.UpdateItem(ctx, tx, item); err != nil {
			return classifyWriteErr("invoice_item.update", err)
		}

		inv, err := s.loadInvoice(ctx, tx, item.InvoiceID)
		if err != nil {
			return err
		}
		line, err = s.recordItemChange(ctx, tx, "invoice_item.updated", inv, *item)
		return err
	})
	if err != nil {
		return invoicedomain.ItemLine{}, apperror.Storage("invoice_item.update", err)
	}
	return line, nil
}

// relinkProduct points item at another catalogue product, or at none when
// rawID is empty. A newly linked product supplies price and rate unless the
// request sets them.
func (s *Service) relinkProduct(ctx context.Context, tx *gorm.DB, item *invoicedomain.InvoiceItem, rawID string, req invoicedomain.UpdateItemRequest) error {
	if strings.TrimSpace(rawID) == "" {
		item.ProductID = nil
		return nil
	}
	id, err := parseID(rawID, invoicedomain.ErrInvalidProductID)
	if err != nil {
		return err
	}
	if item.ProductID != nil && *item.ProductID == id {
		return nil
	}

	product, err := s.products.FindByID(ctx, tx, id)
	if err != nil {
		return apperror.Storage("product.find", err)
	}
	if product == nil {
		return invoicedomain.ErrProductNotFound
	}
	item.ProductID = &id
	if req.UnitPriceCents == nil {
		item.UnitPriceCents = product.UnitPriceCents
	}
	if req.VATRate == nil {
		item.VATRate = product.VATRate
	}
	if req.Description == nil && item.Description == "" {
		item.Description = product.Name
	}
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, rawID string) (err error) {
	defer func() { s.observe(ctx, "invoice_item.remove", err) }()

	itemID, err := parseID(rawID, invoicedomain.ErrInvalidID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := s.repo.FindItem(ctx, tx, itemID)
		if err != nil {
			return apperror.Storage("invoice_item.find", err)
		}
		if item == nil {
			return invoicedomain.ErrItemNotFound
		}

		inv, err := s.loadInvoice(ctx, tx, item.InvoiceID)
		if err != nil {
			return err
		}
		if err := inv.RemoveItem(item.ID); err != nil {
			return err
		}
		if err := s.repo.DeleteItem(ctx, tx, item.ID); err != nil {
			return apperror.Storage("invoice_item.delete", err)
		}

		_, err = s.recordItemChange(ctx, tx, "invoice_item.removed", inv, *item)
		return err
	})
	if err != nil {
		return apperror.Storage("invoice_item.remove", err)
	}
	return nil
}

func (s *Service) GetInvoice(ctx context.Context, rawID string) (detail invoicedomain.InvoiceDetail, err error) {
	defer func() { s.observe(ctx, "invoice.get", err) }()

	id, err := parseID(rawID, invoicedomain.ErrInvalidID)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	inv, err := s.loadInvoice(ctx, s.db, id)
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	return buildDetail(inv)
}

// GetVATBreakdown derives the breakdown from the stored lines on every call.
func (s *Service) GetVATBreakdown(ctx context.Context, rawID string) (breakdown vat.Breakdown, err error) {
	defer func() { s.observe(ctx, "invoice.vat_breakdown", err) }()

	id, err := parseID(rawID, invoicedomain.ErrInvalidID)
	if err != nil {
		return vat.Breakdown{}, err
	}
	inv, err := s.loadInvoice(ctx, s.db, id)
	if err != nil {
		return vat.Breakdown{}, err
	}
	return inv.Breakdown()
}

func (s *Service) ListInvoices(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	filter := invoicedomain.ListFilter{
		Number:      strings.TrimSpace(req.Number),
		CreatedFrom: req.CreatedFrom,
		CreatedTo:   req.CreatedTo,
		Limit:       pagination.Size(req.PageSize),
	}
	if raw := strings.TrimSpace(req.PartnerID); raw != "" {
		id, err := parseID(raw, invoicedomain.ErrInvalidPartnerID)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, err
		}
		filter.PartnerID = id
	}
	if raw := strings.TrimSpace(req.Direction); raw != "" {
		d, err := invoicedomain.ParseDirection(raw)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, err
		}
		filter.Direction = d
	}
	if req.CreatedFrom != nil && req.CreatedTo != nil && *req.CreatedFrom > *req.CreatedTo {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidTimeRange
	}

	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
	}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return invoicedomain.ListInvoiceResponse{}, invoicedomain.ErrInvalidPageToken
		}
		filter.Cursor = &invoicedomain.Cursor{ID: id, CreatedUTC: cursor.CreatedAt}
	}

	invoices, err := s.repo.ListInvoices(ctx, s.db, filter)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, apperror.Storage("invoice.list", err)
	}
	invoices, pageInfo := pagination.BuildCursorPageInfo(invoices, filter.Limit, func(inv *invoicedomain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: inv.ID.String(), CreatedAt: inv.CreatedUTC})
		if err != nil {
			return ""
		}
		return token
	})

	ids := make([]snowflake.ID, 0, len(invoices))
	for _, inv := range invoices {
		ids = append(ids, inv.ID)
	}
	items, err := s.repo.ListItems(ctx, s.db, ids...)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, apperror.Storage("invoice_item.list", err)
	}
	byInvoice := make(map[snowflake.ID][]invoicedomain.InvoiceItem, len(invoices))
	for _, item := range items {
		byInvoice[item.InvoiceID] = append(byInvoice[item.InvoiceID], item)
	}

	summaries := make([]invoicedomain.InvoiceSummary, 0, len(invoices))
	for _, inv := range invoices {
		inv.Items = byInvoice[inv.ID]
		breakdown, err := inv.Breakdown()
		if err != nil {
			s.log.Error("invoice totals inconsistent", zap.String("invoice_id", inv.ID.String()), zap.Error(err))
			return invoicedomain.ListInvoiceResponse{}, err
		}
		summaries = append(summaries, invoicedomain.InvoiceSummary{Invoice: *inv, Totals: breakdown.Totals})
	}

	return invoicedomain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: summaries}, nil
}

// SuggestNumber proposes the number after the highest sequence already issued
// under the current template. It is a hint only: creating an invoice still
// requires an explicit number.
func (s *Service) SuggestNumber(ctx context.Context) (string, error) {
	cfg := s.business.Get()
	now := s.clock.Now()

	next := int64(1)
	probes := int64(maxNumberProbes)
	head, tail, ok := format.SequenceBounds(cfg.InvoiceNumberTemplate, cfg.InvoiceNumberPrefix, now)
	if !ok {
		probes = 1
	} else {
		numbers, err := s.repo.ListNumbersWithPrefix(ctx, s.db, head)
		if err != nil {
			return "", apperror.Storage("invoice.list_numbers", err)
		}
		for _, number := range numbers {
			if seq, ok := format.ParseSequence(number, head, tail); ok && seq >= next {
				next = seq + 1
			}
		}
	}

	for seq := next; seq < next+probes; seq++ {
		number, err := format.FormatInvoiceNumber(cfg.InvoiceNumberTemplate, cfg.InvoiceNumberPrefix, now, seq)
		if err != nil {
			return "", apperror.Internal("invalid_number_template", err)
		}
		existing, err := s.repo.FindInvoiceByNumber(ctx, s.db, number)
		if err != nil {
			return "", apperror.Storage("invoice.find_number", err)
		}
		if existing == nil {
			return number, nil
		}
	}
	return "", apperror.Internal("invoice_number_exhausted",
		fmt.Errorf("no free number within %d probes from sequence %d", probes, next))
}

func (s *Service) loadInvoice(ctx context.Context, tx *gorm.DB, id snowflake.ID) (*invoicedomain.Invoice, error) {
	inv, err := s.repo.FindInvoice(ctx, tx, id)
	if err != nil {
		return nil, apperror.Storage("invoice.find", err)
	}
	if inv == nil {
		return nil, invoicedomain.ErrNotFound
	}
	items, err := s.repo.ListItems(ctx, tx, id)
	if err != nil {
		return nil, apperror.Storage("invoice_item.list", err)
	}
	inv.Items = items
	return inv, nil
}

func (s *Service) ensurePartner(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	partner, err := s.partners.FindByID(ctx, tx, id)
	if err != nil {
		return apperror.Storage("partner.find", err)
	}
	if partner == nil {
		return invoicedomain.ErrPartnerNotFound
	}
	return nil
}

// ensureNumberFree rejects number when another invoice than self holds it.
func (s *Service) ensureNumberFree(ctx context.Context, tx *gorm.DB, number string, self snowflake.ID) error {
	existing, err := s.repo.FindInvoiceByNumber(ctx, tx, number)
	if err != nil {
		return apperror.Storage("invoice.find_number", err)
	}
	if existing != nil && existing.ID != self {
		return invoicedomain.ErrDuplicateNumber
	}
	return nil
}

// recordItemChange re-derives the invoice totals after a line change and
// writes them to the audit trail. The totals themselves are never stored.
func (s *Service) recordItemChange(ctx context.Context, tx *gorm.DB, action string, inv *invoicedomain.Invoice, item invoicedomain.InvoiceItem) (invoicedomain.ItemLine, error) {
	lineTotals, err := item.LineTotal()
	if err != nil {
		return invoicedomain.ItemLine{}, apperror.Internal("invoice_line_invalid", err)
	}
	breakdown, err := inv.Breakdown()
	if err != nil {
		return invoicedomain.ItemLine{}, err
	}

	err = s.audit.Record(ctx, tx, auditdomain.Entry{
		Action:     action,
		TargetType: "invoice",
		TargetID:   inv.ID,
		Metadata: map[string]any{
			"item_id":          item.ID.String(),
			"quantity":         item.Quantity,
			"unit_price_cents": item.UnitPriceCents,
			"vat_rate":         item.VATRate,
			"invoice_net":      breakdown.Totals.Net,
			"invoice_vat":      breakdown.Totals.VAT,
			"invoice_gross":    breakdown.Totals.Gross,
		},
	})
	if err != nil {
		return invoicedomain.ItemLine{}, err
	}
	return invoicedomain.ItemLine{InvoiceItem: item, Totals: lineTotals}, nil
}

func (s *Service) observe(ctx context.Context, op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperror.KindOf(err))
	}
	s.metrics.RecordOperation(op, outcome)

	if err == nil {
		return
	}
	switch apperror.KindOf(err) {
	case apperror.KindStorage, apperror.KindInternal:
		logger.WithContext(ctx, s.log).Error("invoice operation failed", zap.String("operation", op), zap.Error(err))
	}
}

func buildDetail(inv *invoicedomain.Invoice) (invoicedomain.InvoiceDetail, error) {
	breakdown, err := inv.Breakdown()
	if err != nil {
		return invoicedomain.InvoiceDetail{}, err
	}
	lines := make([]invoicedomain.ItemLine, 0, len(inv.Items))
	for _, item := range inv.Items {
		totals, err := item.LineTotal()
		if err != nil {
			return invoicedomain.InvoiceDetail{}, apperror.Internal("invoice_line_invalid", err)
		}
		lines = append(lines, invoicedomain.ItemLine{InvoiceItem: item, Totals: totals})
	}
	return invoicedomain.InvoiceDetail{Invoice: *inv, Items: lines, Breakdown: breakdown}, nil
}

// classifyWriteErr maps constraint violations that slipped past validation.
// Only the invoice table has a unique key besides its primary key.
func classifyWriteErr(op string, err error) error {
	switch {
	case db.IsDuplicateKeyErr(err) && strings.HasPrefix(op, "invoice."):
		return invoicedomain.ErrDuplicateNumber
	case db.IsDuplicateKeyErr(err):
		return apperror.NewConflict(op, "duplicate_key")
	case db.IsForeignKeyErr(err):
		return apperror.NewConflict(op, "reference_violation")
	default:
		return apperror.Storage(op, err)
	}
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, invalid
	}
	return id, nil
}
