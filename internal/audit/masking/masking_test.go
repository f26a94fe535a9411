package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "", MaskValue("  "))
	assert.Equal(t, "****", MaskValue("1-42"))
	assert.Equal(t, "****1-42", MaskValue("12345678-1-42"))
	assert.Equal(t, "****s u.", MaskValue("7626 Pécs u."))
}

func TestMaskMetadata(t *testing.T) {
	taxID := "87654321-2-13"
	out := MaskMetadata(map[string]any{
		"name":   "Teszt Kft.",
		"tax_id": &taxID,
		"":       "dropped",
		"before": map[string]any{"address": "1111 Bp, Fő u. 1.", "kind": "customer"},
		"qty":    3,
	})

	assert.Equal(t, "Teszt Kft.", out["name"])
	assert.Equal(t, "****2-13", out["tax_id"])
	assert.NotContains(t, out, "")
	assert.Equal(t, map[string]any{"address": "****. 1.", "kind": "customer"}, out["before"])
	assert.Equal(t, 3, out["qty"])
}
