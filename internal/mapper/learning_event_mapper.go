package mapper

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type LearningEventMapper struct{}

func NewLearningEventMapper() *LearningEventMapper {
	return &LearningEventMapper{}
}

// InsightHash fingerprints the insight text for the per-knowledge-base unique
// index. Case and surrounding/repeated whitespace are not significant.
func InsightHash(insight string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(insight), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

func (m *LearningEventMapper) ToEntity(e *model.LearningEvent) *entity.LearningEvent {
	if e == nil {
		return nil
	}

	var embedding []float32
	if e.Embedding != nil {
		embedding = e.Embedding.Slice()
	}

	return &entity.LearningEvent{
		Id:              e.Id,
		KnowledgeBaseId: e.KnowledgeBaseId,
		EventType:       e.EventType,
		Category:        e.Category,
		Insight:         e.Insight,
		Confidence:      e.Confidence,
		Metadata:        map[string]interface{}(e.Metadata),
		Embedding:       embedding,
		EmbeddingModel:  e.EmbeddingModel,
		SourceIds:       []string(e.SourceIds),
		TriggeredBy:     e.TriggeredBy,
		Applied:         e.Applied,
		AppliedAt:       e.AppliedAt,
		AppliedToFields: []string(e.AppliedToFields),
		CreatedAt:       e.CreatedAt,
	}
}

func (m *LearningEventMapper) ToModel(e *entity.LearningEvent) *model.LearningEvent {
	if e == nil {
		return nil
	}

	var embedding *pgvector.Vector
	if len(e.Embedding) > 0 {
		v := pgvector.NewVector(e.Embedding)
		embedding = &v
	}

	return &model.LearningEvent{
		Id:              e.Id,
		KnowledgeBaseId: e.KnowledgeBaseId,
		EventType:       e.EventType,
		Category:        e.Category,
		Insight:         e.Insight,
		InsightHash:     InsightHash(e.Insight),
		Confidence:      e.Confidence,
		Metadata:        datatypes.JSONMap(e.Metadata),
		Embedding:       embedding,
		EmbeddingModel:  e.EmbeddingModel,
		SourceIds:       datatypes.JSONSlice[string](e.SourceIds),
		TriggeredBy:     e.TriggeredBy,
		Applied:         e.Applied,
		AppliedAt:       e.AppliedAt,
		AppliedToFields: datatypes.JSONSlice[string](e.AppliedToFields),
		CreatedAt:       e.CreatedAt,
	}
}

func (m *LearningEventMapper) ToEntities(models []*model.LearningEvent) []*entity.LearningEvent {
	entities := make([]*entity.LearningEvent, len(models))
	for i, e := range models {
		entities[i] = m.ToEntity(e)
	}
	return entities
}

func (m *LearningEventMapper) ToModels(events []*entity.LearningEvent) []*model.LearningEvent {
	models := make([]*model.LearningEvent, len(events))
	for i, e := range events {
		models[i] = m.ToModel(e)
	}
	return models
}
