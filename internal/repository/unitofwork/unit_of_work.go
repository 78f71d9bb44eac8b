package unitofwork

import (
	"context"

	"org-knowledge-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	LearningEventRepository() contract.LearningEventRepository
	KnowledgeBaseRepository() contract.KnowledgeBaseRepository
	KnowledgeAuditLogRepository() contract.KnowledgeAuditLogRepository
}
