// Package domain holds the invoice graph and the rules that keep it consistent.
package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicely/internal/money"
	"github.com/smallbiznis/invoicely/internal/vat"
)

// Direction tells whether an invoice was issued (sale) or received (purchase).
type Direction string

const (
	DirectionSale     Direction = "sale"
	DirectionPurchase Direction = "purchase"
)

func (d Direction) Valid() bool {
	return d == DirectionSale || d == DirectionPurchase
}

// ParseDirection accepts exactly "sale" or "purchase".
func ParseDirection(value string) (Direction, error) {
	d := Direction(value)
	if !d.Valid() {
		return "", ErrInvalidDirection
	}
	return d, nil
}

type Invoice struct {
	ID         snowflake.ID `json:"id" gorm:"column:id;primaryKey"`
	Number     string       `json:"number" gorm:"column:number"`
	PartnerID  snowflake.ID `json:"partner_id" gorm:"column:partner_id"`
	Direction  Direction    `json:"direction" gorm:"column:direction"`
	CreatedUTC int64        `json:"created_utc" gorm:"column:created_utc"`
	Notes      string       `json:"notes" gorm:"column:notes"`

	// Items are kept in entry order.
	Items []InvoiceItem `json:"-" gorm:"-"`
}

func (Invoice) TableName() string { return "invoice" }

type InvoiceItem struct {
	ID             snowflake.ID  `json:"id" gorm:"column:id;primaryKey"`
	InvoiceID      snowflake.ID  `json:"invoice_id" gorm:"column:invoice_id"`
	ProductID      *snowflake.ID `json:"product_id" gorm:"column:product_id"`
	Description    string        `json:"description" gorm:"column:description"`
	Quantity       int64         `json:"quantity" gorm:"column:qty"`
	UnitPriceCents int64         `json:"unit_price_cents" gorm:"column:unit_price_cents"`
	VATRate        int32         `json:"vat_rate" gorm:"column:vat_rate"`
}

func (InvoiceItem) TableName() string { return "invoice_item" }

// NewInvoice validates an invoice header. Partner existence and number
// uniqueness need the store and are checked by the lifecycle service.
func NewInvoice(id snowflake.ID, number string, partnerID snowflake.ID, direction string, notes string, createdUTC int64) (*Invoice, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, ErrInvalidNumber
	}
	if partnerID <= 0 {
		return nil, ErrPartnerNotFound
	}
	d, err := ParseDirection(direction)
	if err != nil {
		return nil, err
	}
	return &Invoice{
		ID:         id,
		Number:     number,
		PartnerID:  partnerID,
		Direction:  d,
		CreatedUTC: createdUTC,
		Notes:      strings.TrimSpace(notes),
		Items:      []InvoiceItem{},
	}, nil
}

// ValidateLine checks the per-line invariants shared by add and edit.
func ValidateLine(quantity, unitPrice int64, rate int32) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if unitPrice < 0 {
		return ErrInvalidUnitPrice
	}
	if !money.ValidRate(rate) {
		return ErrInvalidVATRate
	}
	if _, err := money.Line(quantity, unitPrice, rate); err != nil {
		return ErrAmountTooLarge
	}
	return nil
}

// AddItem validates item and appends it to the invoice.
func (inv *Invoice) AddItem(item InvoiceItem) (*InvoiceItem, error) {
	if err := ValidateLine(item.Quantity, item.UnitPriceCents, item.VATRate); err != nil {
		return nil, err
	}
	item.Description = strings.TrimSpace(item.Description)
	if item.ProductID == nil && item.Description == "" {
		return nil, ErrDescriptionRequired
	}
	item.InvoiceID = inv.ID
	inv.Items = append(inv.Items, item)
	return &inv.Items[len(inv.Items)-1], nil
}

// RemoveItem drops one line, failing when it does not belong to inv.
func (inv *Invoice) RemoveItem(itemID snowflake.ID) error {
	for i := range inv.Items {
		if inv.Items[i].ID == itemID {
			inv.Items = append(inv.Items[:i], inv.Items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

// LineTotal returns net, vat and gross of one line.
func (it InvoiceItem) LineTotal() (money.Totals, error) {
	return money.Line(it.Quantity, it.UnitPriceCents, it.VATRate)
}

// Breakdown derives the per-rate VAT breakdown. Totals are never stored.
func (inv *Invoice) Breakdown() (vat.Breakdown, error) {
	lines := make([]vat.Line, 0, len(inv.Items))
	for _, it := range inv.Items {
		lines = append(lines, vat.Line{Quantity: it.Quantity, UnitPrice: it.UnitPriceCents, Rate: it.VATRate})
	}
	return vat.Compute(lines)
}
