// Package seed loads the starter catalogue and partners into an empty store.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type product struct {
	SKU     string
	Name    string
	Price   int64
	VATRate int32
}

type partner struct {
	Name    string
	Kind    string
	TaxID   string
	Address string
}

var defaultProducts = []product{
	{SKU: "SKU001", Name: "Kenyér 1kg", Price: 69900, VATRate: 5},
	{SKU: "SKU002", Name: "Tej 1l", Price: 39900, VATRate: 18},
	{SKU: "SKU003", Name: "Kolbász 1kg", Price: 299900, VATRate: 27},
	{SKU: "SKU004", Name: "Kakaóscsiga", Price: 34900, VATRate: 27},
	{SKU: "SKU005", Name: "Rostos üdítő 1l", Price: 59900, VATRate: 27},
}

var defaultPartners = []partner{
	{Name: "Lakossági Vevő", Kind: "customer"},
	{Name: "Teszt Kft.", Kind: "customer", TaxID: "12345678-1-42", Address: "1111 Bp, Fő u. 1."},
	{Name: "Minta Beszállító Zrt.", Kind: "supplier", TaxID: "87654321-2-13", Address: "7626 Pécs, Utca 2."},
}

// Result reports how many rows a seed run inserted.
type Result struct {
	Products int
	Partners int
}

// EnsureDefaults inserts the starter products and partners. Each table is
// only seeded while it is empty, so repeated runs are no-ops.
func EnsureDefaults(ctx context.Context, db *gorm.DB, node *snowflake.Node, log *zap.Logger) (Result, error) {
	if db == nil {
		return Result{}, errors.New("seed database handle is required")
	}
	if node == nil {
		return Result{}, errors.New("seed id generator is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	var res Result
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC().Unix()

		n, err := ensureProductsTx(ctx, tx, node, now)
		if err != nil {
			return err
		}
		res.Products = n

		n, err = ensurePartnersTx(ctx, tx, node, now)
		if err != nil {
			return err
		}
		res.Partners = n
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if res.Products > 0 || res.Partners > 0 {
		log.Info("seeded default data", zap.Int("products", res.Products), zap.Int("partners", res.Partners))
	}
	return res, nil
}

func ensureProductsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, now int64) (int, error) {
	empty, err := tableEmpty(ctx, tx, "product")
	if err != nil || !empty {
		return 0, err
	}
	for _, p := range defaultProducts {
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO product (id, sku, name, unit_price_cents, vat_rate, created_utc, updated_utc)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			node.Generate().Int64(), p.SKU, p.Name, p.Price, p.VATRate, now, now,
		).Error; err != nil {
			return 0, err
		}
	}
	return len(defaultProducts), nil
}

func ensurePartnersTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, now int64) (int, error) {
	empty, err := tableEmpty(ctx, tx, "partner")
	if err != nil || !empty {
		return 0, err
	}
	for _, p := range defaultPartners {
		if err := tx.WithContext(ctx).Exec(
			`INSERT INTO partner (id, name, kind, tax_id, address, created_utc, updated_utc)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			node.Generate().Int64(), p.Name, p.Kind, nullable(p.TaxID), nullable(p.Address), now, now,
		).Error; err != nil {
			return 0, err
		}
	}
	return len(defaultPartners), nil
}

func tableEmpty(ctx context.Context, tx *gorm.DB, table string) (bool, error) {
	var count int64
	if err := tx.WithContext(ctx).Raw(`SELECT COUNT(1) FROM ` + table).Scan(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

func nullable(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
