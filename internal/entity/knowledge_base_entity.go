package entity

import (
	"time"

	"github.com/google/uuid"
)

type KnowledgeBase struct {
	Id             uuid.UUID
	OrganizationId uuid.UUID

	CompanyName      string
	Industry         string
	CompanySize      string
	BusinessModel    string
	MissionStatement string

	TargetCustomer string
	CustomerPain   string
	MarketPosition string

	BiggestBottleNeck string
	CoreServices      []string
	ToolStack         []string

	BrandVoice string

	ComplianceNotes string
	ProofPoints     []string

	ExtractedKnowledge map[string]interface{}

	EnrichmentVersion int
	Version           int
	LastEnrichedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt *time.Time
}

// ScalarField returns the current value of a named scalar field, with ok
// reporting whether the name is a known scalar column.
func (kb *KnowledgeBase) ScalarField(name string) (string, bool) {
	switch name {
	case "companyName":
		return kb.CompanyName, true
	case "industry":
		return kb.Industry, true
	case "companySize":
		return kb.CompanySize, true
	case "businessModel":
		return kb.BusinessModel, true
	case "missionStatement":
		return kb.MissionStatement, true
	case "targetCustomer":
		return kb.TargetCustomer, true
	case "customerPain":
		return kb.CustomerPain, true
	case "marketPosition":
		return kb.MarketPosition, true
	case "biggestBottleNeck":
		return kb.BiggestBottleNeck, true
	case "brandVoice":
		return kb.BrandVoice, true
	case "complianceNotes":
		return kb.ComplianceNotes, true
	}
	return "", false
}

// SetScalarField writes a named scalar field. Returns false for unknown names.
func (kb *KnowledgeBase) SetScalarField(name, value string) bool {
	switch name {
	case "companyName":
		kb.CompanyName = value
	case "industry":
		kb.Industry = value
	case "companySize":
		kb.CompanySize = value
	case "businessModel":
		kb.BusinessModel = value
	case "missionStatement":
		kb.MissionStatement = value
	case "targetCustomer":
		kb.TargetCustomer = value
	case "customerPain":
		kb.CustomerPain = value
	case "marketPosition":
		kb.MarketPosition = value
	case "biggestBottleNeck":
		kb.BiggestBottleNeck = value
	case "brandVoice":
		kb.BrandVoice = value
	case "complianceNotes":
		kb.ComplianceNotes = value
	default:
		return false
	}
	return true
}
