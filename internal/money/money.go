// Package money holds the integer-cents arithmetic used for invoice lines.
//
// Amounts are int64 minor units. VAT is rounded half-up once per line and
// gross is always net plus the rounded VAT, never rounded independently.
package money

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MinRate = 0
	MaxRate = 100
)

var (
	ErrNegativeAmount = errors.New("negative_amount")
	ErrInvalidRate    = errors.New("invalid_rate")
	ErrInvalidQty     = errors.New("invalid_quantity")
	ErrOverflow       = errors.New("amount_overflow")
	ErrInvalidFormat  = errors.New("invalid_amount_format")
)

// Totals is a net/vat/gross triple in minor units.
type Totals struct {
	Net   int64 `json:"net"`
	VAT   int64 `json:"vat"`
	Gross int64 `json:"gross"`
}

// Add returns the elementwise sum, failing on overflow.
func (t Totals) Add(o Totals) (Totals, error) {
	net, err := addChecked(t.Net, o.Net)
	if err != nil {
		return Totals{}, err
	}
	vat, err := addChecked(t.VAT, o.VAT)
	if err != nil {
		return Totals{}, err
	}
	gross, err := addChecked(t.Gross, o.Gross)
	if err != nil {
		return Totals{}, err
	}
	return Totals{Net: net, VAT: vat, Gross: gross}, nil
}

// Negative reports whether any component is below zero.
func (t Totals) Negative() bool {
	return t.Net < 0 || t.VAT < 0 || t.Gross < 0
}

// Balanced reports whether net + vat == gross.
func (t Totals) Balanced() bool {
	return t.Net+t.VAT == t.Gross
}

// ValidRate reports whether rate is an integer percentage in [0,100].
func ValidRate(rate int32) bool {
	return rate >= MinRate && rate <= MaxRate
}

// Net multiplies quantity by unit price.
func Net(quantity, unitPrice int64) (int64, error) {
	if quantity < 1 {
		return 0, ErrInvalidQty
	}
	if unitPrice < 0 {
		return 0, ErrNegativeAmount
	}
	if unitPrice != 0 && quantity > math.MaxInt64/unitPrice {
		return 0, ErrOverflow
	}
	return quantity * unitPrice, nil
}

// VAT computes round-half-up(net * rate / 100) in integer arithmetic.
func VAT(net int64, rate int32) (int64, error) {
	if net < 0 {
		return 0, ErrNegativeAmount
	}
	if !ValidRate(rate) {
		return 0, ErrInvalidRate
	}
	if net > (math.MaxInt64-50)/MaxRate {
		return 0, ErrOverflow
	}
	return (net*int64(rate) + 50) / 100, nil
}

// Line returns the totals of a single line.
func Line(quantity, unitPrice int64, rate int32) (Totals, error) {
	net, err := Net(quantity, unitPrice)
	if err != nil {
		return Totals{}, err
	}
	vat, err := VAT(net, rate)
	if err != nil {
		return Totals{}, err
	}
	gross, err := addChecked(net, vat)
	if err != nil {
		return Totals{}, err
	}
	return Totals{Net: net, VAT: vat, Gross: gross}, nil
}

// ParseCents converts a decimal major-unit string ("12.345") to cents,
// rounding half away from zero.
func ParseCents(value string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return 0, ErrInvalidFormat
	}
	if d.IsNegative() {
		return 0, ErrNegativeAmount
	}
	cents := d.Shift(2).Round(0)
	if !cents.IsInteger() || cents.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
		return 0, ErrOverflow
	}
	return cents.IntPart(), nil
}

// Format renders cents as a fixed two-decimal major-unit amount with an
// optional currency suffix.
func Format(cents int64, currency string) string {
	out := decimal.New(cents, -2).StringFixed(2)
	if currency = strings.TrimSpace(currency); currency != "" {
		out += " " + currency
	}
	return out
}

func addChecked(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrOverflow
	}
	return a + b, nil
}
