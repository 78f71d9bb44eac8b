package contract

import (
	"context"
	"time"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/repository/specification"

	"github.com/google/uuid"
)

type LearningEventRepository interface {
	Create(ctx context.Context, event *entity.LearningEvent) error
	// CreateBulk inserts valid events in one statement with conflict-skip
	// semantics: rows colliding on (knowledge_base_id, insight_hash) are
	// silently dropped. Returns the entities that were actually inserted,
	// with their generated ids populated.
	CreateBulk(ctx context.Context, events []*entity.LearningEvent) ([]*entity.LearningEvent, error)
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.LearningEvent, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.LearningEvent, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// UpdateEmbedding backfills a computed vector onto an existing event.
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32, embeddingModel string) error
	// MarkApplied flips the one-way apply state for the given ids in bulk.
	MarkApplied(ctx context.Context, ids []uuid.UUID, appliedAt time.Time, appliedToFields map[uuid.UUID][]string) error
}
