package dto

import (
	"github.com/google/uuid"
)

// RecordAuditMessage is published on the in-process recorder channel for one
// audit-trail row. Recording is fire-and-forget: a lost audit row never fails
// the pipeline operation that produced it.
type RecordAuditMessage struct {
	KnowledgeBaseId uuid.UUID              `json:"knowledge_base_id"`
	EventId         *uuid.UUID             `json:"event_id,omitempty"`
	Action          string                 `json:"action"`
	Field           string                 `json:"field,omitempty"`
	Reason          string                 `json:"reason"`
	PreviousValue   interface{}            `json:"previous_value,omitempty"`
	NewValue        interface{}            `json:"new_value,omitempty"`
	Details         map[string]interface{} `json:"details,omitempty"`
}

// RecordMetricsMessage appends one metrics record into the knowledge base's
// extractedKnowledge side channel.
type RecordMetricsMessage struct {
	KnowledgeBaseId uuid.UUID              `json:"knowledge_base_id"`
	MetricType      string                 `json:"metric_type"`
	Record          map[string]interface{} `json:"record"`
}
