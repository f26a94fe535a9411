package vat

import (
	"errors"
	"testing"

	"github.com/smallbiznis/invoicely/internal/apperror"
	"github.com/smallbiznis/invoicely/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeMixedRates(t *testing.T) {
	lines := []Line{
		{Quantity: 1, UnitPrice: 8000, Rate: 27},
		{Quantity: 1, UnitPrice: 750, Rate: 5},
		{Quantity: 1, UnitPrice: 500, Rate: 18},
	}

	got, err := Compute(lines)
	require.NoError(t, err)

	require.Len(t, got.PerRate, 3)
	assert.Equal(t, RateBucket{Rate: 5, Totals: money.Totals{Net: 750, VAT: 38, Gross: 788}}, got.PerRate[0])
	assert.Equal(t, RateBucket{Rate: 18, Totals: money.Totals{Net: 500, VAT: 90, Gross: 590}}, got.PerRate[1])
	assert.Equal(t, RateBucket{Rate: 27, Totals: money.Totals{Net: 8000, VAT: 2160, Gross: 10160}}, got.PerRate[2])
	assert.Equal(t, money.Totals{Net: 9250, VAT: 2288, Gross: 11538}, got.Totals)
}

func TestComputeEmpty(t *testing.T) {
	got, err := Compute(nil)
	require.NoError(t, err)
	assert.Empty(t, got.PerRate)
	assert.NotNil(t, got.PerRate)
	assert.Equal(t, money.Totals{}, got.Totals)
}

func TestComputeAccumulatesDuplicateRates(t *testing.T) {
	got, err := Compute([]Line{
		{Quantity: 2, UnitPrice: 375, Rate: 5},
		{Quantity: 1, UnitPrice: 750, Rate: 5},
	})
	require.NoError(t, err)

	require.Len(t, got.PerRate, 1)
	// Each line is rounded on its own: 37.5 -> 38 twice.
	assert.Equal(t, money.Totals{Net: 1500, VAT: 76, Gross: 1576}, got.PerRate[0].Totals)
}

func TestComputeKeepsZeroRateBucket(t *testing.T) {
	got, err := Compute([]Line{
		{Quantity: 3, UnitPrice: 100, Rate: 0},
		{Quantity: 1, UnitPrice: 100, Rate: 27},
	})
	require.NoError(t, err)

	bucket, ok := got.Bucket(0)
	require.True(t, ok)
	assert.Equal(t, money.Totals{Net: 300, VAT: 0, Gross: 300}, bucket.Totals)
	assert.Equal(t, int32(0), got.PerRate[0].Rate)
}

func TestComputeMatchesLineSum(t *testing.T) {
	var lines []Line
	var sum money.Totals
	for i := int64(1); i <= 40; i++ {
		l := Line{Quantity: i%5 + 1, UnitPrice: i * 137, Rate: []int32{0, 5, 18, 27}[i%4]}
		lines = append(lines, l)
		lt, err := money.Line(l.Quantity, l.UnitPrice, l.Rate)
		require.NoError(t, err)
		sum, err = sum.Add(lt)
		require.NoError(t, err)
	}

	got, err := Compute(lines)
	require.NoError(t, err)
	assert.Equal(t, sum, got.Totals)
	assert.True(t, got.Totals.Balanced())

	again, err := Compute(lines)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestComputeRejectsCorruptLines(t *testing.T) {
	for _, l := range []Line{
		{Quantity: 0, UnitPrice: 100, Rate: 5},
		{Quantity: 1, UnitPrice: -100, Rate: 5},
		{Quantity: 1, UnitPrice: 100, Rate: 150},
	} {
		_, err := Compute([]Line{l})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInconsistent))
		assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
		assert.False(t, apperror.IsValidation(err))
	}
}

func TestVerifyDetectsDrift(t *testing.T) {
	b := Breakdown{
		PerRate: []RateBucket{{Rate: 5, Totals: money.Totals{Net: 100, VAT: 5, Gross: 105}}},
		Totals:  money.Totals{Net: 100, VAT: 5, Gross: 105},
	}
	assert.NoError(t, b.Verify(money.Totals{Net: 100, VAT: 5, Gross: 105}))
	assert.ErrorIs(t, b.Verify(money.Totals{Net: 100, VAT: 6, Gross: 106}), ErrInconsistent)

	b.Totals.Gross = 104
	assert.ErrorIs(t, b.Verify(b.Totals), ErrInconsistent)
}
