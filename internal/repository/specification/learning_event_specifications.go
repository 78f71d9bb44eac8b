package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByKnowledgeBaseID struct {
	KnowledgeBaseID uuid.UUID
}

func (s ByKnowledgeBaseID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("knowledge_base_id = ?", s.KnowledgeBaseID)
}

// ByCategories bounds the duplicate-comparison window to the categories
// present in an incoming batch.
type ByCategories struct {
	Categories []string
}

func (s ByCategories) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("category IN ?", s.Categories)
}

type Unapplied struct{}

func (s Unapplied) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("applied = ?", false)
}

type MinConfidence struct {
	Min int
}

func (s MinConfidence) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("confidence >= ?", s.Min)
}

type CreatedAfter struct {
	After time.Time
}

func (s CreatedAfter) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("created_at >= ?", s.After)
}

// CreatedAfterCursor implements keyset pagination over (created_at, id) so
// page loops never skip or repeat rows even with equal timestamps.
type CreatedAfterCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func (s CreatedAfterCursor) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("(created_at, id) > (?, ?)", s.CreatedAt, s.ID)
}

type BySourceID struct {
	SourceID string
}

func (s BySourceID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("source_ids @> ?", `["`+s.SourceID+`"]`)
}

type ByEventID struct {
	EventID uuid.UUID
}

func (s ByEventID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("event_id = ?", s.EventID)
}

type ByOrganizationID struct {
	OrganizationID uuid.UUID
}

func (s ByOrganizationID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("organization_id = ?", s.OrganizationID)
}
