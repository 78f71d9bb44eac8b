package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// KnowledgeAuditLog is the append-only per-event audit trail
// (created / applied / skipped, with reasons and before/after values).
type KnowledgeAuditLog struct {
	Id              uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	KnowledgeBaseId uuid.UUID         `gorm:"type:uuid;not null;index"`
	EventId         uuid.UUID         `gorm:"type:uuid;not null;index"`
	Action          string            `gorm:"type:varchar(20);not null"` // created | applied | skipped
	Field           *string           `gorm:"type:varchar(100)"`
	Reason          string            `gorm:"type:text"`
	PreviousValue   datatypes.JSON    `gorm:"type:jsonb"`
	NewValue        datatypes.JSON    `gorm:"type:jsonb"`
	Details         datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt       time.Time         `gorm:"autoCreateTime;index"`
}

func (KnowledgeAuditLog) TableName() string {
	return "knowledge_audit_logs"
}
