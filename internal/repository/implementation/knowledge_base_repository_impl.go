package implementation

import (
	"context"
	"errors"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/mapper"
	"org-knowledge-be/internal/model"
	"org-knowledge-be/internal/repository/contract"
	"org-knowledge-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type KnowledgeBaseRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KnowledgeBaseMapper
}

func NewKnowledgeBaseRepository(db *gorm.DB) contract.KnowledgeBaseRepository {
	return &KnowledgeBaseRepositoryImpl{
		db:     db,
		mapper: mapper.NewKnowledgeBaseMapper(),
	}
}

func (r *KnowledgeBaseRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Upsert creates the record on first write for an organization. A concurrent
// first write is tolerated: the conflict is skipped and the surviving row is
// loaded back into kb.
func (r *KnowledgeBaseRepositoryImpl) Upsert(ctx context.Context, kb *entity.KnowledgeBase) error {
	m := r.mapper.ToModel(kb)
	m.Id = uuid.Nil

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}},
			DoNothing: true,
		}).
		Create(m).Error
	if err != nil {
		return err
	}

	if m.Id == uuid.Nil {
		existing, err := r.FindOne(ctx, specification.ByOrganizationID{OrganizationID: kb.OrganizationId})
		if err != nil {
			return err
		}
		if existing == nil {
			return errors.New("knowledge base upsert conflict but row not found")
		}
		*kb = *existing
		return nil
	}

	*kb = *r.mapper.ToEntity(m)
	return nil
}

func (r *KnowledgeBaseRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeBase, error) {
	var m model.KnowledgeBase
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

// UpdateVersioned is the compare-and-swap write used by the application
// engine: the update lands only when the stored version still matches what
// the engine read, so interleaved apply runs cannot clobber each other.
func (r *KnowledgeBaseRepositoryImpl) UpdateVersioned(ctx context.Context, kb *entity.KnowledgeBase, expectedVersion int) (bool, error) {
	m := r.mapper.ToModel(kb)

	res := r.db.WithContext(ctx).
		Model(&model.KnowledgeBase{}).
		Where("id = ? AND version = ?", m.Id, expectedVersion).
		Updates(map[string]interface{}{
			"company_name":        m.CompanyName,
			"industry":            m.Industry,
			"company_size":        m.CompanySize,
			"business_model":      m.BusinessModel,
			"mission_statement":   m.MissionStatement,
			"target_customer":     m.TargetCustomer,
			"customer_pain":       m.CustomerPain,
			"market_position":     m.MarketPosition,
			"biggest_bottle_neck": m.BiggestBottleNeck,
			"core_services":       m.CoreServices,
			"tool_stack":          m.ToolStack,
			"brand_voice":         m.BrandVoice,
			"compliance_notes":    m.ComplianceNotes,
			"proof_points":        m.ProofPoints,
			"extracted_knowledge": datatypes.JSONMap(m.ExtractedKnowledge),
			"enrichment_version":  m.EnrichmentVersion,
			"version":             m.Version,
			"last_enriched_at":    m.LastEnrichedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
