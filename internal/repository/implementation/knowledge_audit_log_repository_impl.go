package implementation

import (
	"context"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/mapper"
	"org-knowledge-be/internal/model"
	"org-knowledge-be/internal/repository/contract"
	"org-knowledge-be/internal/repository/specification"

	"gorm.io/gorm"
)

type KnowledgeAuditLogRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KnowledgeAuditLogMapper
}

func NewKnowledgeAuditLogRepository(db *gorm.DB) contract.KnowledgeAuditLogRepository {
	return &KnowledgeAuditLogRepositoryImpl{
		db:     db,
		mapper: mapper.NewKnowledgeAuditLogMapper(),
	}
}

func (r *KnowledgeAuditLogRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *KnowledgeAuditLogRepositoryImpl) Create(ctx context.Context, log *entity.KnowledgeAuditLog) error {
	m := r.mapper.ToModel(log)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*log = *r.mapper.ToEntity(m)
	return nil
}

func (r *KnowledgeAuditLogRepositoryImpl) CreateBulk(ctx context.Context, logs []*entity.KnowledgeAuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	models := make([]*model.KnowledgeAuditLog, len(logs))
	for i, l := range logs {
		models[i] = r.mapper.ToModel(l)
	}
	return r.db.WithContext(ctx).Create(&models).Error
}

func (r *KnowledgeAuditLogRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeAuditLog, error) {
	var models []*model.KnowledgeAuditLog
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *KnowledgeAuditLogRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.KnowledgeAuditLog{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
