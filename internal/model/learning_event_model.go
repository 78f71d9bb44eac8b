package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// LearningEvent is the append-only record of one extracted candidate fact.
// Rows are never deleted; the only mutation after insert is the apply-state
// transition (applied/applied_at/applied_to_fields).
type LearningEvent struct {
	Id              uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	KnowledgeBaseId uuid.UUID                   `gorm:"type:uuid;not null;index:idx_learning_events_kb_applied;uniqueIndex:uq_learning_events_kb_insight"`
	EventType       string                      `gorm:"type:varchar(100);not null"`
	Category        string                      `gorm:"type:varchar(100);not null;index"`
	Insight         string                      `gorm:"type:text;not null"`
	InsightHash     string                      `gorm:"type:varchar(64);not null;uniqueIndex:uq_learning_events_kb_insight"` // sha256 of normalized insight text, backs insert conflict-skip
	Confidence      int                         `gorm:"not null"`
	Metadata        datatypes.JSONMap           `gorm:"type:jsonb"`
	Embedding       *pgvector.Vector            `gorm:"type:vector(768)"` // nomic-embed-text / text-embedding-004 use 768 dimensions
	EmbeddingModel  *string                     `gorm:"type:varchar(100)"`
	SourceIds       datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	TriggeredBy     *string                     `gorm:"type:varchar(255)"`
	Applied         bool                        `gorm:"not null;default:false;index:idx_learning_events_kb_applied"`
	AppliedAt       *time.Time
	AppliedToFields datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	CreatedAt       time.Time                   `gorm:"autoCreateTime;index"`
}

func (LearningEvent) TableName() string {
	return "learning_events"
}
