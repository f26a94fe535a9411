package domain

import (
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// AuditLog is one recorded mutation.
type AuditLog struct {
	ID            snowflake.ID      `json:"id" gorm:"column:id;primaryKey"`
	Action        string            `json:"action" gorm:"column:action"`
	TargetType    string            `json:"target_type" gorm:"column:target_type"`
	TargetID      string            `json:"target_id" gorm:"column:target_id"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" gorm:"column:metadata"`
	RequestID     string            `json:"request_id,omitempty" gorm:"column:request_id"`
	CorrelationID string            `json:"correlation_id,omitempty" gorm:"column:correlation_id"`
	CreatedUTC    int64             `json:"created_utc" gorm:"column:created_utc"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// Entry describes a mutation to record.
type Entry struct {
	Action     string
	TargetType string
	TargetID   snowflake.ID
	Metadata   map[string]any
}

type Cursor struct {
	ID         snowflake.ID
	CreatedUTC int64
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	From       *int64
	To         *int64
	Cursor     *Cursor
	Limit      int
}
