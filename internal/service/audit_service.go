package service

import (
	"context"
	"fmt"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/repository/specification"
	"org-knowledge-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// IAuditService exposes the audit trail for inspection: per knowledge base
// or drilled down to a single learning event's lifecycle.
type IAuditService interface {
	ListByKnowledgeBase(ctx context.Context, knowledgeBaseId uuid.UUID, limit, offset int) ([]*entity.KnowledgeAuditLog, int64, error)
	ListByEvent(ctx context.Context, eventId uuid.UUID) ([]*entity.KnowledgeAuditLog, error)
}

type auditService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewAuditService(uowFactory unitofwork.RepositoryFactory) IAuditService {
	return &auditService{uowFactory: uowFactory}
}

func (s *auditService) ListByKnowledgeBase(ctx context.Context, knowledgeBaseId uuid.UUID, limit, offset int) ([]*entity.KnowledgeAuditLog, int64, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.KnowledgeAuditLogRepository()

	filter := specification.ByKnowledgeBaseID{KnowledgeBaseID: knowledgeBaseId}
	total, err := repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit records: %w", err)
	}

	logs, err := repo.FindAll(ctx,
		filter,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit records: %w", err)
	}
	return logs, total, nil
}

func (s *auditService) ListByEvent(ctx context.Context, eventId uuid.UUID) ([]*entity.KnowledgeAuditLog, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	logs, err := uow.KnowledgeAuditLogRepository().FindAll(ctx,
		specification.ByEventID{EventID: eventId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records for event: %w", err)
	}
	return logs, nil
}
