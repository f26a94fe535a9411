package domain

import "github.com/bwmarrin/snowflake"

type Product struct {
	ID             snowflake.ID `json:"id" gorm:"column:id;primaryKey"`
	SKU            string       `json:"sku" gorm:"column:sku"`
	Name           string       `json:"name" gorm:"column:name"`
	UnitPriceCents int64        `json:"unit_price_cents" gorm:"column:unit_price_cents"`
	VATRate        int32        `json:"vat_rate" gorm:"column:vat_rate"`
	CreatedUTC     int64        `json:"created_utc" gorm:"column:created_utc"`
	UpdatedUTC     int64        `json:"updated_utc" gorm:"column:updated_utc"`
}

func (Product) TableName() string { return "product" }

type Cursor struct {
	ID snowflake.ID
}
