package fieldmap

import "strings"

// Category is the domain bucket assigned by the extractor. The set is open:
// unknown values fall through to a generated insights bucket, so no event is
// ever unroutable on category alone.
type Category string

const (
	CategoryBusinessContext     Category = "business_context"
	CategoryWorkflowPatterns    Category = "workflow_patterns"
	CategoryProcessOptimization Category = "process_optimization"
	CategoryServicePatterns     Category = "service_patterns"
	CategoryRiskManagement      Category = "risk_management"
	CategorySkillRequirements   Category = "skill_requirements"
	CategoryHiringPatterns      Category = "hiring_patterns"
	CategoryWorkflowNeeds       Category = "workflow_needs"
)

// BucketKey derives the extractedKnowledge key for a category's fallback
// bucket: snake_case category -> camelCase + "Insights"
// (e.g. "business_context" -> "businessContextInsights").
func (c Category) BucketKey() string {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(string(c))), "_")
	if len(parts) == 0 || parts[0] == "" {
		return "generalInsights"
	}
	var sb strings.Builder
	sb.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		sb.WriteString(strings.ToUpper(p[:1]))
		sb.WriteString(p[1:])
	}
	sb.WriteString("Insights")
	return sb.String()
}
