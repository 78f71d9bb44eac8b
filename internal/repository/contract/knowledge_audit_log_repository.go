package contract

import (
	"context"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/repository/specification"
)

type KnowledgeAuditLogRepository interface {
	Create(ctx context.Context, log *entity.KnowledgeAuditLog) error
	CreateBulk(ctx context.Context, logs []*entity.KnowledgeAuditLog) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeAuditLog, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
