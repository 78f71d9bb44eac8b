package service

import (
	"context"
	"fmt"
	"time"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/repository/specification"
	"org-knowledge-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// IKnowledgeBaseService manages the one mutable knowledge record per
// organization. Creation is upsert-on-first-write; the record is never
// deleted by this subsystem.
type IKnowledgeBaseService interface {
	GetOrCreate(ctx context.Context, organizationId uuid.UUID) (*entity.KnowledgeBase, error)
	Show(ctx context.Context, id uuid.UUID) (*entity.KnowledgeBase, error)
	ShowByOrganization(ctx context.Context, organizationId uuid.UUID) (*entity.KnowledgeBase, error)
}

type knowledgeBaseService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewKnowledgeBaseService(uowFactory unitofwork.RepositoryFactory) IKnowledgeBaseService {
	return &knowledgeBaseService{uowFactory: uowFactory}
}

func (s *knowledgeBaseService) GetOrCreate(ctx context.Context, organizationId uuid.UUID) (*entity.KnowledgeBase, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.KnowledgeBaseRepository()

	existing, err := repo.FindOne(ctx, specification.ByOrganizationID{OrganizationID: organizationId})
	if err != nil {
		return nil, fmt.Errorf("failed to look up knowledge base: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	kb := &entity.KnowledgeBase{
		Id:             uuid.New(),
		OrganizationId: organizationId,
		CreatedAt:      time.Now(),
	}
	if err := repo.Upsert(ctx, kb); err != nil {
		return nil, fmt.Errorf("failed to create knowledge base: %w", err)
	}

	// Upsert skips on conflict, so a concurrent creator may have won; read
	// back the stored row either way.
	stored, err := repo.FindOne(ctx, specification.ByOrganizationID{OrganizationID: organizationId})
	if err != nil {
		return nil, fmt.Errorf("failed to reload knowledge base: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("knowledge base missing after upsert for organization %s", organizationId)
	}
	return stored, nil
}

func (s *knowledgeBaseService) Show(ctx context.Context, id uuid.UUID) (*entity.KnowledgeBase, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	kb, err := uow.KnowledgeBaseRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	return kb, nil
}

func (s *knowledgeBaseService) ShowByOrganization(ctx context.Context, organizationId uuid.UUID) (*entity.KnowledgeBase, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	kb, err := uow.KnowledgeBaseRepository().FindOne(ctx, specification.ByOrganizationID{OrganizationID: organizationId})
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	return kb, nil
}
