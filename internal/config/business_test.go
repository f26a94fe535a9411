package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBusinessConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "business.yml")
	content := `business:
  default_vat_rate: 18
  vat_rates: [0, 5, 18]
  currency: eur
  invoice_number_prefix: SZ
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	holder, err := NewBusinessConfigHolderFromFile(path, zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, int32(18), cfg.DefaultVATRate)
	assert.Equal(t, []int32{0, 5, 18}, cfg.VATRates)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, "SZ", cfg.InvoiceNumberPrefix)
	assert.Equal(t, DefaultBusinessConfig().InvoiceNumberTemplate, cfg.InvoiceNumberTemplate)
}

func TestBusinessConfigMergesDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "business.yml")
	content := `business:
  default_vat_rate: 27
  currency: HUF
  invoice_number_prefix: INV
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	holder, err := NewBusinessConfigHolderFromFile(path, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DefaultBusinessConfig(), holder.Get())
}

func TestBusinessConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "business.yml")
	content := `business:
  default_vat_rate: 27
  vat_rates: [0, 5, 18, 27]
  currency: HUF
  invoice_number_prefix: INV
  invoice_number_template: "{PREFIX}-{YYYY}-{SEQ5}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("INVOICELY_BUSINESS_CURRENCY", "eur")
	t.Setenv("INVOICELY_BUSINESS_DEFAULT_VAT_RATE", "18")
	t.Setenv("INVOICELY_BUSINESS_VAT_RATES", "0,9,18")

	holder, err := NewBusinessConfigHolderFromFile(path, zap.NewNop())
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, int32(18), cfg.DefaultVATRate)
	assert.Equal(t, []int32{0, 9, 18}, cfg.VATRates)
	assert.Equal(t, "INV", cfg.InvoiceNumberPrefix)
}

func TestBusinessConfigRejectsBadRateList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "business.yml")
	require.NoError(t, os.WriteFile(path, []byte("business:\n  vat_rates: [5, abc]\n"), 0o600))

	_, err := NewBusinessConfigHolderFromFile(path, zap.NewNop())
	assert.Error(t, err)
}

func TestBusinessConfigRejectsOutOfRangeRate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "business.yml")
	require.NoError(t, os.WriteFile(path, []byte("business:\n  default_vat_rate: 120\n"), 0o600))

	_, err := NewBusinessConfigHolderFromFile(path, zap.NewNop())
	assert.Error(t, err)
}

func TestStaticBusinessConfig(t *testing.T) {
	holder := StaticBusinessConfig(DefaultBusinessConfig())
	assert.Equal(t, int32(27), holder.Get().DefaultVATRate)
	assert.Equal(t, "HUF", holder.Get().Currency)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "SQLite")
	t.Setenv("RATE_LIMIT_RPS", "not-a-number")

	cfg := Load()
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, float64(10), cfg.RateLimitRPS)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.IsProduction())
}
