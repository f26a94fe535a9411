package money

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVATRoundsHalfUp(t *testing.T) {
	cases := []struct {
		name string
		net  int64
		rate int32
		want int64
	}{
		{name: "exact half rounds up", net: 750, rate: 5, want: 38},
		{name: "below half rounds down", net: 749, rate: 5, want: 37},
		{name: "whole result", net: 500, rate: 18, want: 90},
		{name: "standard rate", net: 8000, rate: 27, want: 2160},
		{name: "zero rate", net: 12345, rate: 0, want: 0},
		{name: "full rate", net: 12345, rate: 100, want: 12345},
		{name: "one cent at half", net: 10, rate: 5, want: 1},
		{name: "zero net", net: 0, rate: 27, want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := VAT(tc.net, tc.rate)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestVATRejectsBadInput(t *testing.T) {
	_, err := VAT(-1, 5)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = VAT(100, 101)
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = VAT(100, -1)
	assert.ErrorIs(t, err, ErrInvalidRate)

	_, err = VAT(math.MaxInt64, 27)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestLineIsBalanced(t *testing.T) {
	for qty := int64(1); qty <= 7; qty++ {
		for _, price := range []int64{0, 1, 33, 999, 69900} {
			for _, rate := range []int32{0, 5, 18, 27, 100} {
				line, err := Line(qty, price, rate)
				require.NoError(t, err)
				assert.True(t, line.Balanced(), "qty=%d price=%d rate=%d", qty, price, rate)
				assert.Equal(t, qty*price, line.Net)
			}
		}
	}
}

func TestLineRejectsQuantityBelowOne(t *testing.T) {
	_, err := Line(0, 100, 27)
	assert.ErrorIs(t, err, ErrInvalidQty)

	_, err = Line(-3, 100, 27)
	assert.ErrorIs(t, err, ErrInvalidQty)

	_, err = Line(1, -100, 27)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = Line(math.MaxInt64, 2, 27)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestTotalsAdd(t *testing.T) {
	sum, err := Totals{Net: 750, VAT: 38, Gross: 788}.Add(Totals{Net: 500, VAT: 90, Gross: 590})
	require.NoError(t, err)
	assert.Equal(t, Totals{Net: 1250, VAT: 128, Gross: 1378}, sum)

	_, err = Totals{Net: math.MaxInt64}.Add(Totals{Net: 1})
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestParseCents(t *testing.T) {
	got, err := ParseCents("699.00")
	require.NoError(t, err)
	assert.Equal(t, int64(69900), got)

	got, err = ParseCents(" 0.125 ")
	require.NoError(t, err)
	assert.Equal(t, int64(13), got)

	got, err = ParseCents("12")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), got)

	_, err = ParseCents("-1.00")
	assert.ErrorIs(t, err, ErrNegativeAmount)

	_, err = ParseCents("abc")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "115.38 HUF", Format(11538, "HUF"))
	assert.Equal(t, "0.05", Format(5, ""))
	assert.Equal(t, "699.00 HUF", Format(69900, " HUF "))
}
