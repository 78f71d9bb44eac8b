package mapper

import (
	"time"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/model"

	"gorm.io/datatypes"
)

type KnowledgeBaseMapper struct{}

func NewKnowledgeBaseMapper() *KnowledgeBaseMapper {
	return &KnowledgeBaseMapper{}
}

func (m *KnowledgeBaseMapper) ToEntity(kb *model.KnowledgeBase) *entity.KnowledgeBase {
	if kb == nil {
		return nil
	}

	var updatedAt *time.Time
	if !kb.UpdatedAt.IsZero() {
		t := kb.UpdatedAt
		updatedAt = &t
	}

	return &entity.KnowledgeBase{
		Id:                 kb.Id,
		OrganizationId:     kb.OrganizationId,
		CompanyName:        kb.CompanyName,
		Industry:           kb.Industry,
		CompanySize:        kb.CompanySize,
		BusinessModel:      kb.BusinessModel,
		MissionStatement:   kb.MissionStatement,
		TargetCustomer:     kb.TargetCustomer,
		CustomerPain:       kb.CustomerPain,
		MarketPosition:     kb.MarketPosition,
		BiggestBottleNeck:  kb.BiggestBottleNeck,
		CoreServices:       []string(kb.CoreServices),
		ToolStack:          []string(kb.ToolStack),
		BrandVoice:         kb.BrandVoice,
		ComplianceNotes:    kb.ComplianceNotes,
		ProofPoints:        []string(kb.ProofPoints),
		ExtractedKnowledge: map[string]interface{}(kb.ExtractedKnowledge),
		EnrichmentVersion:  kb.EnrichmentVersion,
		Version:            kb.Version,
		LastEnrichedAt:     kb.LastEnrichedAt,
		CreatedAt:          kb.CreatedAt,
		UpdatedAt:          updatedAt,
	}
}

func (m *KnowledgeBaseMapper) ToModel(kb *entity.KnowledgeBase) *model.KnowledgeBase {
	if kb == nil {
		return nil
	}

	var updatedAt time.Time
	if kb.UpdatedAt != nil {
		updatedAt = *kb.UpdatedAt
	}

	return &model.KnowledgeBase{
		Id:                 kb.Id,
		OrganizationId:     kb.OrganizationId,
		CompanyName:        kb.CompanyName,
		Industry:           kb.Industry,
		CompanySize:        kb.CompanySize,
		BusinessModel:      kb.BusinessModel,
		MissionStatement:   kb.MissionStatement,
		TargetCustomer:     kb.TargetCustomer,
		CustomerPain:       kb.CustomerPain,
		MarketPosition:     kb.MarketPosition,
		BiggestBottleNeck:  kb.BiggestBottleNeck,
		CoreServices:       datatypes.JSONSlice[string](kb.CoreServices),
		ToolStack:          datatypes.JSONSlice[string](kb.ToolStack),
		BrandVoice:         kb.BrandVoice,
		ComplianceNotes:    kb.ComplianceNotes,
		ProofPoints:        datatypes.JSONSlice[string](kb.ProofPoints),
		ExtractedKnowledge: datatypes.JSONMap(kb.ExtractedKnowledge),
		EnrichmentVersion:  kb.EnrichmentVersion,
		Version:            kb.Version,
		LastEnrichedAt:     kb.LastEnrichedAt,
		CreatedAt:          kb.CreatedAt,
		UpdatedAt:          updatedAt,
	}
}
