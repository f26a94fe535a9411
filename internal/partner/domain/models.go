package domain

import (
	"github.com/bwmarrin/snowflake"
)

// Kind fixes the direction of every invoice issued to or received from a
// partner, so it cannot change after creation.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindSupplier Kind = "supplier"
)

func (k Kind) Valid() bool {
	return k == KindCustomer || k == KindSupplier
}

type Partner struct {
	ID         snowflake.ID `json:"id" gorm:"column:id;primaryKey"`
	Name       string       `json:"name" gorm:"column:name"`
	Kind       Kind         `json:"kind" gorm:"column:kind"`
	TaxID      *string      `json:"tax_id,omitempty" gorm:"column:tax_id"`
	Address    *string      `json:"address,omitempty" gorm:"column:address"`
	CreatedUTC int64        `json:"created_utc" gorm:"column:created_utc"`
	UpdatedUTC int64        `json:"updated_utc" gorm:"column:updated_utc"`
}

func (Partner) TableName() string { return "partner" }

type Cursor struct {
	ID snowflake.ID
}
