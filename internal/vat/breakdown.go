// Package vat aggregates invoice lines into a per-rate tax breakdown.
//
// Compute is pure: it reads only its input and always yields the same
// breakdown for the same lines.
package vat

import (
	"fmt"
	"sort"

	"github.com/smallbiznis/invoicely/internal/apperror"
	"github.com/smallbiznis/invoicely/internal/money"
)

// ErrInconsistent marks a breakdown that violates its own invariants.
// It indicates corrupted input or a bug, never bad user input.
var ErrInconsistent = &apperror.Error{Kind: apperror.KindInternal, Code: "vat_breakdown_inconsistent"}

// Line is the minimal view of an invoice item the engine needs.
type Line struct {
	Quantity  int64
	UnitPrice int64
	Rate      int32
}

// RateBucket accumulates all lines that share one VAT rate.
type RateBucket struct {
	Rate int32 `json:"rate"`
	money.Totals
}

// Breakdown is the per-rate grouping plus grand totals.
type Breakdown struct {
	PerRate []RateBucket `json:"per_rate"`
	Totals  money.Totals `json:"totals"`
}

// Compute groups lines by their own VAT rate, sorted ascending, and sums the
// buckets into grand totals. The grand totals are cross-checked against an
// independent sum of the line totals.
func Compute(lines []Line) (Breakdown, error) {
	out := Breakdown{PerRate: []RateBucket{}}
	if len(lines) == 0 {
		return out, nil
	}

	buckets := make(map[int32]money.Totals)
	var lineSum money.Totals
	for i, l := range lines {
		if l.Quantity < 1 || l.UnitPrice < 0 || !money.ValidRate(l.Rate) {
			return Breakdown{}, inconsistent("line %d: qty=%d unit_price=%d rate=%d", i, l.Quantity, l.UnitPrice, l.Rate)
		}
		totals, err := money.Line(l.Quantity, l.UnitPrice, l.Rate)
		if err != nil {
			return Breakdown{}, inconsistent("line %d: %v", i, err)
		}

		bucket, err := buckets[l.Rate].Add(totals)
		if err != nil {
			return Breakdown{}, inconsistent("rate %d: %v", l.Rate, err)
		}
		buckets[l.Rate] = bucket

		if lineSum, err = lineSum.Add(totals); err != nil {
			return Breakdown{}, inconsistent("line sum: %v", err)
		}
	}

	rates := make([]int32, 0, len(buckets))
	for rate := range buckets {
		rates = append(rates, rate)
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i] < rates[j] })

	var grand money.Totals
	for _, rate := range rates {
		bucket := buckets[rate]
		out.PerRate = append(out.PerRate, RateBucket{Rate: rate, Totals: bucket})
		var err error
		if grand, err = grand.Add(bucket); err != nil {
			return Breakdown{}, inconsistent("grand total: %v", err)
		}
	}
	out.Totals = grand

	if err := out.Verify(lineSum); err != nil {
		return Breakdown{}, err
	}
	return out, nil
}

// Verify checks the breakdown against an independently computed line sum.
func (b Breakdown) Verify(lineSum money.Totals) error {
	if b.Totals != lineSum {
		return inconsistent("bucket totals %+v differ from line totals %+v", b.Totals, lineSum)
	}
	if b.Totals.Negative() || !b.Totals.Balanced() {
		return inconsistent("grand totals %+v", b.Totals)
	}
	for _, bucket := range b.PerRate {
		if bucket.Negative() || !bucket.Balanced() {
			return inconsistent("rate %d totals %+v", bucket.Rate, bucket.Totals)
		}
	}
	return nil
}

// Bucket returns the bucket for rate, if present.
func (b Breakdown) Bucket(rate int32) (RateBucket, bool) {
	for _, bucket := range b.PerRate {
		if bucket.Rate == rate {
			return bucket, true
		}
	}
	return RateBucket{}, false
}

func inconsistent(format string, args ...any) error {
	return &apperror.Error{
		Kind: ErrInconsistent.Kind,
		Code: ErrInconsistent.Code,
		Err:  fmt.Errorf(format, args...),
	}
}
