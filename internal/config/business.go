package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BusinessConfig carries the invoicing defaults that may change at runtime.
type BusinessConfig struct {
	DefaultVATRate        int32   `mapstructure:"default_vat_rate" json:"default_vat_rate"`
	VATRates              []int32 `mapstructure:"vat_rates" json:"vat_rates"`
	Currency              string  `mapstructure:"currency" json:"currency"`
	InvoiceNumberPrefix   string  `mapstructure:"invoice_number_prefix" json:"invoice_number_prefix"`
	InvoiceNumberTemplate string  `mapstructure:"invoice_number_template" json:"invoice_number_template"`
}

func DefaultBusinessConfig() BusinessConfig {
	return BusinessConfig{
		DefaultVATRate:        27,
		VATRates:              []int32{0, 5, 18, 27},
		Currency:              "HUF",
		InvoiceNumberPrefix:   "INV",
		InvoiceNumberTemplate: "{PREFIX}-{YYYY}-{SEQ5}",
	}
}

type BusinessConfigHolder struct {
	current atomic.Value // holds BusinessConfig
}

// NewBusinessConfigHolder loads business.yml from the usual locations,
// falling back to defaults, and reloads it whenever the file changes.
func NewBusinessConfigHolder(log *zap.Logger) (*BusinessConfigHolder, error) {
	v := viper.New()
	v.SetConfigName("business")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/invoicely")
	v.AddConfigPath(".")
	return newBusinessConfigHolder(v, log)
}

// NewBusinessConfigHolderFromFile loads business settings from an explicit path.
func NewBusinessConfigHolderFromFile(path string, log *zap.Logger) (*BusinessConfigHolder, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return newBusinessConfigHolder(v, log)
}

// StaticBusinessConfig returns a holder that never reloads.
func StaticBusinessConfig(cfg BusinessConfig) *BusinessConfigHolder {
	holder := &BusinessConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func newBusinessConfigHolder(v *viper.Viper, log *zap.Logger) (*BusinessConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("business.config")

	defaults := DefaultBusinessConfig()
	v.SetDefault("business.default_vat_rate", defaults.DefaultVATRate)
	v.SetDefault("business.vat_rates", defaults.VATRates)
	v.SetDefault("business.currency", defaults.Currency)
	v.SetDefault("business.invoice_number_prefix", defaults.InvoiceNumberPrefix)
	v.SetDefault("business.invoice_number_template", defaults.InvoiceNumberTemplate)

	v.SetEnvPrefix("INVOICELY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	cfg, err := decodeBusinessConfig(v)
	if err != nil {
		return nil, err
	}

	holder := &BusinessConfigHolder{}
	holder.current.Store(cfg)

	if watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeBusinessConfig(v)
			if err != nil {
				log.Warn("invalid business config ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("business config reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *BusinessConfigHolder) Get() BusinessConfig {
	return h.current.Load().(BusinessConfig)
}

// decodeBusinessConfig reads every key through viper so file values, env
// overrides and defaults are merged per key.
func decodeBusinessConfig(v *viper.Viper) (BusinessConfig, error) {
	rates, err := parseRates(v.GetStringSlice("business.vat_rates"))
	if err != nil {
		return BusinessConfig{}, err
	}
	cfg := BusinessConfig{
		DefaultVATRate:        v.GetInt32("business.default_vat_rate"),
		VATRates:              rates,
		Currency:              strings.ToUpper(strings.TrimSpace(v.GetString("business.currency"))),
		InvoiceNumberPrefix:   strings.TrimSpace(v.GetString("business.invoice_number_prefix")),
		InvoiceNumberTemplate: strings.TrimSpace(v.GetString("business.invoice_number_template")),
	}
	if err := cfg.Validate(); err != nil {
		return BusinessConfig{}, err
	}
	return cfg, nil
}

// parseRates accepts list items as well as a single "0,5,18" env value.
func parseRates(values []string) ([]int32, error) {
	var out []int32
	for _, value := range values {
		for _, field := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' }) {
			rate, err := strconv.ParseInt(field, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("business.vat_rates: invalid rate %q", field)
			}
			out = append(out, int32(rate))
		}
	}
	return out, nil
}

func (c BusinessConfig) Validate() error {
	if c.DefaultVATRate < 0 || c.DefaultVATRate > 100 {
		return fmt.Errorf("business.default_vat_rate out of range: %d", c.DefaultVATRate)
	}
	for _, rate := range c.VATRates {
		if rate < 0 || rate > 100 {
			return fmt.Errorf("business.vat_rates contains %d", rate)
		}
	}
	if c.Currency == "" {
		return errors.New("business.currency cannot be empty")
	}
	if c.InvoiceNumberTemplate == "" {
		return errors.New("business.invoice_number_template cannot be empty")
	}
	return nil
}
