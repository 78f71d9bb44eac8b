package entity

import (
	"time"

	"github.com/google/uuid"
)

// LearningEvent is the domain view of one extracted candidate fact.
// Embedding is nil when generation failed or has not been backfilled yet.
type LearningEvent struct {
	Id              uuid.UUID
	KnowledgeBaseId uuid.UUID
	EventType       string
	Category        string
	Insight         string
	Confidence      int
	Metadata        map[string]interface{}
	Embedding       []float32
	EmbeddingModel  *string
	SourceIds       []string
	TriggeredBy     *string
	Applied         bool
	AppliedAt       *time.Time
	AppliedToFields []string
	CreatedAt       time.Time
}

// HasEmbedding reports whether a stored vector is available for semantic
// comparison.
func (e *LearningEvent) HasEmbedding() bool {
	return len(e.Embedding) > 0
}
