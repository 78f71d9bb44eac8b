package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	AuditActionCreated = "created"
	AuditActionApplied = "applied"
	AuditActionSkipped = "skipped"
)

type KnowledgeAuditLog struct {
	Id              uuid.UUID
	KnowledgeBaseId uuid.UUID
	EventId         uuid.UUID
	Action          string
	Field           *string
	Reason          string
	PreviousValue   interface{}
	NewValue        interface{}
	Details         map[string]interface{}
	CreatedAt       time.Time
}
