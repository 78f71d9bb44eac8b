package dto

import (
	"github.com/google/uuid"
)

type ApplyLearningEventsRequest struct {
	KnowledgeBaseId uuid.UUID `json:"knowledge_base_id" validate:"required"`
	MinConfidence   int       `json:"min_confidence" validate:"omitempty,min=1,max=100"`
	BatchSize       int       `json:"batch_size" validate:"omitempty,min=1,max=500"`
	Categories      []string  `json:"categories"`
	TriggeredBy     string    `json:"triggered_by"`
}

// FieldUpdateSummary records one accepted field write during an apply run.
type FieldUpdateSummary struct {
	Field      string    `json:"field"`
	Strategy   string    `json:"strategy"`
	Reason     string    `json:"reason"`
	EventId    uuid.UUID `json:"event_id"`
	Confidence int       `json:"confidence"`
}

type ApplyLearningEventsResponse struct {
	Success           bool                 `json:"success"`
	Processed         int                  `json:"processed"`
	Applied           int                  `json:"applied"`
	Skipped           int                  `json:"skipped"`
	FieldsUpdated     []FieldUpdateSummary `json:"fields_updated"`
	EnrichmentVersion int                  `json:"enrichment_version"`
	Errors            []string             `json:"errors"`
	ProcessingTimeMs  int64                `json:"processing_time_ms"`
}
