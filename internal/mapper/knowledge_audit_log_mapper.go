package mapper

import (
	"encoding/json"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/model"

	"gorm.io/datatypes"
)

type KnowledgeAuditLogMapper struct{}

func NewKnowledgeAuditLogMapper() *KnowledgeAuditLogMapper {
	return &KnowledgeAuditLogMapper{}
}

func (m *KnowledgeAuditLogMapper) ToEntity(a *model.KnowledgeAuditLog) *entity.KnowledgeAuditLog {
	if a == nil {
		return nil
	}

	return &entity.KnowledgeAuditLog{
		Id:              a.Id,
		KnowledgeBaseId: a.KnowledgeBaseId,
		EventId:         a.EventId,
		Action:          a.Action,
		Field:           a.Field,
		Reason:          a.Reason,
		PreviousValue:   unmarshalJSON(a.PreviousValue),
		NewValue:        unmarshalJSON(a.NewValue),
		Details:         map[string]interface{}(a.Details),
		CreatedAt:       a.CreatedAt,
	}
}

func (m *KnowledgeAuditLogMapper) ToModel(a *entity.KnowledgeAuditLog) *model.KnowledgeAuditLog {
	if a == nil {
		return nil
	}

	return &model.KnowledgeAuditLog{
		Id:              a.Id,
		KnowledgeBaseId: a.KnowledgeBaseId,
		EventId:         a.EventId,
		Action:          a.Action,
		Field:           a.Field,
		Reason:          a.Reason,
		PreviousValue:   marshalJSON(a.PreviousValue),
		NewValue:        marshalJSON(a.NewValue),
		Details:         datatypes.JSONMap(a.Details),
		CreatedAt:       a.CreatedAt,
	}
}

func (m *KnowledgeAuditLogMapper) ToEntities(models []*model.KnowledgeAuditLog) []*entity.KnowledgeAuditLog {
	entities := make([]*entity.KnowledgeAuditLog, len(models))
	for i, a := range models {
		entities[i] = m.ToEntity(a)
	}
	return entities
}

func marshalJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

func unmarshalJSON(raw datatypes.JSON) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}
