package implementation

import (
	"context"
	"errors"
	"time"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/mapper"
	"org-knowledge-be/internal/model"
	"org-knowledge-be/internal/repository/contract"
	"org-knowledge-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LearningEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.LearningEventMapper
}

func NewLearningEventRepository(db *gorm.DB) contract.LearningEventRepository {
	return &LearningEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewLearningEventMapper(),
	}
}

func (r *LearningEventRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *LearningEventRepositoryImpl) Create(ctx context.Context, event *entity.LearningEvent) error {
	m := r.mapper.ToModel(event)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*event = *r.mapper.ToEntity(m)
	return nil
}

// CreateBulk inserts with ON CONFLICT DO NOTHING on
// (knowledge_base_id, insight_hash). Ids are generated client-side so the
// outcome can be reconciled per row afterwards: a conflicted row keeps the
// pre-existing id in storage, so its stored id differs from the one
// generated here. Inserted entities (the caller's pointers, ids assigned)
// are returned; conflicted ones are left out.
func (r *LearningEventRepositoryImpl) CreateBulk(ctx context.Context, events []*entity.LearningEvent) ([]*entity.LearningEvent, error) {
	if len(events) == 0 {
		return nil, nil
	}

	models := make([]*model.LearningEvent, len(events))
	hashes := make([]string, len(events))
	kbSet := map[uuid.UUID]struct{}{}
	for i, e := range events {
		m := r.mapper.ToModel(e)
		m.Id = uuid.New()
		models[i] = m
		hashes[i] = m.InsightHash
		kbSet[m.KnowledgeBaseId] = struct{}{}
	}
	kbIds := make([]uuid.UUID, 0, len(kbSet))
	for id := range kbSet {
		kbIds = append(kbIds, id)
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "knowledge_base_id"}, {Name: "insight_hash"}},
			DoNothing: true,
		}).
		Create(&models).Error
	if err != nil {
		return nil, err
	}

	var stored []*model.LearningEvent
	err = r.db.WithContext(ctx).
		Where("knowledge_base_id IN ? AND insight_hash IN ?", kbIds, hashes).
		Find(&stored).Error
	if err != nil {
		return nil, err
	}
	storedIds := make(map[string]uuid.UUID, len(stored))
	for _, m := range stored {
		storedIds[m.KnowledgeBaseId.String()+"/"+m.InsightHash] = m.Id
	}

	var inserted []*entity.LearningEvent
	for i, m := range models {
		if storedIds[m.KnowledgeBaseId.String()+"/"+m.InsightHash] != m.Id {
			continue // an identical insight already existed, insert was skipped
		}
		events[i].Id = m.Id
		inserted = append(inserted, events[i])
	}
	return inserted, nil
}

func (r *LearningEventRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.LearningEvent, error) {
	var m model.LearningEvent
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *LearningEventRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.LearningEvent, error) {
	var models []*model.LearningEvent
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *LearningEventRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.LearningEvent{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LearningEventRepositoryImpl) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32, embeddingModel string) error {
	v := pgvector.NewVector(embedding)
	return r.db.WithContext(ctx).
		Model(&model.LearningEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"embedding":       v,
			"embedding_model": embeddingModel,
		}).Error
}

// MarkApplied flips apply-state for a batch in one transaction. Events that
// were already applied are left untouched (the transition is one-way).
func (r *LearningEventRepositoryImpl) MarkApplied(ctx context.Context, ids []uuid.UUID, appliedAt time.Time, appliedToFields map[uuid.UUID][]string) error {
	if len(ids) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			fields := appliedToFields[id]
			err := tx.Model(&model.LearningEvent{}).
				Where("id = ? AND applied = ?", id, false).
				Updates(map[string]interface{}{
					"applied":           true,
					"applied_at":        appliedAt,
					"applied_to_fields": toJSONStringArray(fields),
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
