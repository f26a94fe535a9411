package main

import (
	"bytes"
	"testing"

	"github.com/smallbiznis/invoicely/internal/money"
	"github.com/smallbiznis/invoicely/internal/vat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBreakdown(t *testing.T) {
	b, err := vat.Compute([]vat.Line{
		{Quantity: 1, UnitPrice: 750, Rate: 5},
		{Quantity: 1, UnitPrice: 500, Rate: 18},
		{Quantity: 1, UnitPrice: 8000, Rate: 27},
	})
	require.NoError(t, err)

	var out bytes.Buffer
	printBreakdown(&out, "INV-2024-00001", b, "HUF")

	text := out.String()
	assert.Contains(t, text, "Invoice INV-2024-00001")
	assert.Contains(t, text, "27%")
	assert.Contains(t, text, money.Format(11538, "HUF"))
	assert.Contains(t, text, money.Format(2288, "HUF"))
}
