package contract

import (
	"context"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/repository/specification"
)

type KnowledgeBaseRepository interface {
	// Upsert creates the knowledge base on first write, keyed by
	// organization id.
	Upsert(ctx context.Context, kb *entity.KnowledgeBase) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeBase, error)
	// UpdateVersioned persists the record only if the stored optimistic
	// version still matches expectedVersion; reports whether the write
	// happened. Callers bump Version/EnrichmentVersion before calling.
	UpdateVersioned(ctx context.Context, kb *entity.KnowledgeBase, expectedVersion int) (bool, error)
}
