package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// KnowledgeBase is the single mutable profile record per organization,
// incrementally enriched by the application engine. Structured facts live in
// named columns; everything else accumulates inside the ExtractedKnowledge
// document (category buckets, fieldHistory, metrics).
type KnowledgeBase struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrganizationId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`

	// Business identity
	CompanyName      string `gorm:"type:varchar(255)"`
	Industry         string `gorm:"type:varchar(255)"`
	CompanySize      string `gorm:"type:varchar(100)"`
	BusinessModel    string `gorm:"type:text"`
	MissionStatement string `gorm:"type:text"`

	// Customer / market
	TargetCustomer string `gorm:"type:text"`
	CustomerPain   string `gorm:"type:text"`
	MarketPosition string `gorm:"type:text"`

	// Operations
	BiggestBottleNeck string                      `gorm:"type:text"`
	CoreServices      datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	ToolStack         datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	// Brand / voice
	BrandVoice string `gorm:"type:text"`

	// Compliance & proof
	ComplianceNotes string                      `gorm:"type:text"`
	ProofPoints     datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	// Open-ended accumulation: category buckets, fieldHistory, metrics.
	ExtractedKnowledge datatypes.JSONMap `gorm:"type:jsonb"`

	EnrichmentVersion int `gorm:"not null;default:0"`
	Version           int `gorm:"not null;default:0"`
	LastEnrichedAt    *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (KnowledgeBase) TableName() string {
	return "knowledge_bases"
}
