package dto

import (
	"time"

	"github.com/google/uuid"
)

// InsightPayload is one raw extracted claim submitted for recording.
type InsightPayload struct {
	Insight    string                 `json:"insight" validate:"required"`
	Category   string                 `json:"category" validate:"required"`
	Confidence int                    `json:"confidence" validate:"omitempty,min=1,max=100"`
	Metadata   map[string]interface{} `json:"metadata"`
}

type CreateLearningEventsRequest struct {
	KnowledgeBaseId uuid.UUID        `json:"knowledge_base_id" validate:"required"`
	EventType       string           `json:"event_type" validate:"required"`
	Insights        []InsightPayload `json:"insights" validate:"required,min=1,dive"`
	SourceIds       []string         `json:"source_ids" validate:"required,min=1"`
	TriggeredBy     string           `json:"triggered_by"`
}

// CreatedEventSummary describes one persisted event in creation order.
type CreatedEventSummary struct {
	Id         uuid.UUID `json:"id"`
	Category   string    `json:"category"`
	Confidence int       `json:"confidence"`
}

// SkippedInsightSummary explains why a submitted insight was not persisted.
type SkippedInsightSummary struct {
	Insight string  `json:"insight"`
	Reason  string  `json:"reason"`
	Method  string  `json:"method,omitempty"`
	Score   float64 `json:"score,omitempty"`
}

type CreateLearningEventsResponse struct {
	Created []CreatedEventSummary   `json:"created"`
	Skipped []SkippedInsightSummary `json:"skipped"`
}

type LearningEventResponse struct {
	Id              uuid.UUID              `json:"id"`
	KnowledgeBaseId uuid.UUID              `json:"knowledge_base_id"`
	EventType       string                 `json:"event_type"`
	Category        string                 `json:"category"`
	Insight         string                 `json:"insight"`
	Confidence      int                    `json:"confidence"`
	Metadata        map[string]interface{} `json:"metadata"`
	Applied         bool                   `json:"applied"`
	AppliedAt       *time.Time             `json:"applied_at"`
	AppliedToFields []string               `json:"applied_to_fields"`
	CreatedAt       time.Time              `json:"created_at"`
}

type ListLearningEventsRequest struct {
	KnowledgeBaseId uuid.UUID `json:"knowledge_base_id" validate:"required"`
	UnappliedOnly   bool      `json:"unapplied_only"`
	Categories      []string  `json:"categories"`
	MinConfidence   int       `json:"min_confidence" validate:"omitempty,min=1,max=100"`
	Page            int       `json:"page" validate:"omitempty,min=1"`
	PageSize        int       `json:"page_size" validate:"omitempty,min=1,max=200"`
}

type ListLearningEventsResponse struct {
	Events []LearningEventResponse `json:"events"`
	Total  int64                   `json:"total"`
}
