// Package fieldmap routes a learning event onto a knowledge-base target:
// a named scalar column, the tool stack, or an extractedKnowledge bucket.
// Scalar writes go through the conflict policy; tool-stack and bucket
// targets are always additive.
package fieldmap

import (
	"strings"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/pkg/conflict"
)

type Kind string

const (
	KindScalar    Kind = "scalar"
	KindToolStack Kind = "toolStack"
	KindBucket    Kind = "bucket"
)

const FieldToolStack = "toolStack"

// Mapping is the resolved target for one event. Exactly one of ScalarValue,
// Tools, or Item is populated, matching Kind.
type Mapping struct {
	Field string
	Kind  Kind

	ScalarValue string
	Tools       []string
	Item        map[string]interface{}

	ShouldApply  bool
	Strategy     conflict.Strategy
	Reason       string
	TrackHistory bool
}

// Resolve dispatches on the event's category and decides where, and whether,
// its insight lands on the knowledge base. Returns nil only for events with
// no usable insight text.
func Resolve(event *entity.LearningEvent, kb *entity.KnowledgeBase, highConfidence int) *Mapping {
	if event == nil || strings.TrimSpace(event.Insight) == "" {
		return nil
	}

	switch Category(event.Category) {
	case CategoryBusinessContext:
		if v := metadataString(event, "bottleneck"); v != "" {
			return resolveScalar(kb, "biggestBottleNeck", v, event.Confidence, highConfidence)
		}
		if v := metadataString(event, "companyStage"); v != "" {
			return resolveBucket(event, "companyStages")
		}
		return resolveBucket(event, CategoryBusinessContext.BucketKey())

	case CategoryWorkflowPatterns:
		if m := resolveToolStack(event, kb); m != nil {
			return m
		}
		return resolveBucket(event, CategoryWorkflowPatterns.BucketKey())

	case CategoryWorkflowNeeds:
		return resolveBucket(event, "implicitNeeds")

	case CategoryProcessOptimization:
		if v := metadataString(event, "taskCluster"); v != "" {
			return resolveBucket(event, "taskClusters")
		}
		if v := metadataString(event, "painPoint"); v != "" {
			return resolveBucket(event, "painPoints")
		}
		if v := metadataString(event, "bottleneck"); v != "" {
			return resolveBucket(event, "painPoints")
		}
		return resolveBucket(event, CategoryProcessOptimization.BucketKey())

	case CategoryRiskManagement:
		return resolveBucket(event, "identifiedRisks")

	case CategoryServicePatterns:
		return resolveBucket(event, "servicePatterns")

	default:
		return resolveBucket(event, Category(event.Category).BucketKey())
	}
}

func resolveScalar(kb *entity.KnowledgeBase, field, value string, confidence, highConfidence int) *Mapping {
	current := ""
	if kb != nil {
		current, _ = kb.ScalarField(field)
	}
	res := conflict.Resolve(current, value, confidence, field, highConfidence)
	return &Mapping{
		Field:        field,
		Kind:         KindScalar,
		ScalarValue:  value,
		ShouldApply:  res.ShouldApply,
		Strategy:     res.Strategy,
		Reason:       res.Reason,
		TrackHistory: res.TrackHistory,
	}
}

func resolveToolStack(event *entity.LearningEvent, kb *entity.KnowledgeBase) *Mapping {
	tools := ExtractTools(event)
	if len(tools) == 0 {
		return nil
	}

	var existing []string
	if kb != nil {
		existing = kb.ToolStack
	}
	_, added := MergeToolStack(existing, tools)
	if len(added) == 0 {
		return &Mapping{
			Field:       FieldToolStack,
			Kind:        KindToolStack,
			ShouldApply: false,
			Strategy:    conflict.StrategyKeep,
			Reason:      "extracted tools already present in stack",
		}
	}

	return &Mapping{
		Field:       FieldToolStack,
		Kind:        KindToolStack,
		Tools:       added,
		ShouldApply: true,
		Strategy:    conflict.StrategyMerge,
		Reason:      "tool stack merges additively",
	}
}

func resolveBucket(event *entity.LearningEvent, key string) *Mapping {
	return &Mapping{
		Field:       key,
		Kind:        KindBucket,
		Item:        bucketItem(event),
		ShouldApply: true,
		Strategy:    conflict.StrategyAppend,
		Reason:      "appended to " + key,
	}
}

// bucketItem builds the structured entry appended into an extractedKnowledge
// bucket. Selected metadata hints travel with the insight so downstream
// readers keep the extractor's context.
func bucketItem(event *entity.LearningEvent) map[string]interface{} {
	item := map[string]interface{}{
		"insight":    event.Insight,
		"confidence": event.Confidence,
		"eventId":    event.Id.String(),
		"recordedAt": event.CreatedAt,
	}
	for _, hint := range []string{"evidence", "sourceSection", "companyStage", "taskCluster", "painPoint", "risk"} {
		if v := metadataString(event, hint); v != "" {
			item[hint] = v
		}
	}
	return item
}

func metadataString(event *entity.LearningEvent, key string) string {
	if event.Metadata == nil {
		return ""
	}
	v, ok := event.Metadata[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}
