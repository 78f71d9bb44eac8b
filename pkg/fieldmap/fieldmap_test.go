package fieldmap

import (
	"testing"
	"time"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/pkg/conflict"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newEvent(category, insight string, confidence int, metadata map[string]interface{}) *entity.LearningEvent {
	return &entity.LearningEvent{
		Id:         uuid.New(),
		Category:   category,
		Insight:    insight,
		Confidence: confidence,
		Metadata:   metadata,
		CreatedAt:  time.Now(),
	}
}

func TestResolveBottleneckScalar(t *testing.T) {
	ev := newEvent("business_context", "Hiring is the main constraint", 95,
		map[string]interface{}{"bottleneck": "hiring senior engineers"})
	kb := &entity.KnowledgeBase{}

	m := Resolve(ev, kb, conflict.DefaultHighConfidence)
	assert.NotNil(t, m)
	assert.Equal(t, KindScalar, m.Kind)
	assert.Equal(t, "biggestBottleNeck", m.Field)
	assert.Equal(t, "hiring senior engineers", m.ScalarValue)
	assert.True(t, m.ShouldApply)
	assert.Equal(t, conflict.StrategyReplace, m.Strategy)
}

func TestResolveScalarRespectsConflictPolicy(t *testing.T) {
	kb := &entity.KnowledgeBase{BiggestBottleNeck: "manual invoicing"}

	low := newEvent("business_context", "something else is the bottleneck", 60,
		map[string]interface{}{"bottleneck": "slow deployments"})
	m := Resolve(low, kb, conflict.DefaultHighConfidence)
	assert.Equal(t, KindScalar, m.Kind)
	assert.False(t, m.ShouldApply)
	assert.Equal(t, conflict.StrategyKeep, m.Strategy)

	high := newEvent("business_context", "deployments are the bottleneck", 95,
		map[string]interface{}{"bottleneck": "slow deployments"})
	m = Resolve(high, kb, conflict.DefaultHighConfidence)
	assert.True(t, m.ShouldApply)
	assert.True(t, m.TrackHistory)
}

func TestResolveToolStackFromMetadata(t *testing.T) {
	ev := newEvent("workflow_patterns", "We use HubSpot for email", 85,
		map[string]interface{}{"newTool": "HubSpot"})
	kb := &entity.KnowledgeBase{ToolStack: []string{"Slack"}}

	m := Resolve(ev, kb, conflict.DefaultHighConfidence)
	assert.Equal(t, KindToolStack, m.Kind)
	assert.Equal(t, "toolStack", m.Field)
	assert.True(t, m.ShouldApply)
	assert.Equal(t, []string{"HubSpot"}, m.Tools)
	assert.Equal(t, conflict.StrategyMerge, m.Strategy)
}

func TestResolveToolStackAlreadyPresent(t *testing.T) {
	ev := newEvent("workflow_patterns", "slack.com handles all our chat", 85,
		map[string]interface{}{"newTool": "slack.com"})
	kb := &entity.KnowledgeBase{ToolStack: []string{"Slack"}}

	m := Resolve(ev, kb, conflict.DefaultHighConfidence)
	assert.Equal(t, KindToolStack, m.Kind)
	assert.False(t, m.ShouldApply)
}

func TestResolveToolStackFromTextScan(t *testing.T) {
	ev := newEvent("workflow_patterns", "Projects are tracked in Asana and Notion", 80, nil)
	m := Resolve(ev, &entity.KnowledgeBase{}, conflict.DefaultHighConfidence)
	assert.Equal(t, KindToolStack, m.Kind)
	assert.Contains(t, m.Tools, "Asana")
	assert.Contains(t, m.Tools, "Notion")
}

func TestResolveBucketFallbacks(t *testing.T) {
	tests := []struct {
		category string
		metadata map[string]interface{}
		wantKey  string
	}{
		{category: "workflow_needs", wantKey: "implicitNeeds"},
		{category: "risk_management", wantKey: "identifiedRisks"},
		{category: "service_patterns", wantKey: "servicePatterns"},
		{category: "process_optimization", metadata: map[string]interface{}{"painPoint": "handoffs"}, wantKey: "painPoints"},
		{category: "process_optimization", metadata: map[string]interface{}{"taskCluster": "reporting"}, wantKey: "taskClusters"},
		{category: "process_optimization", wantKey: "processOptimizationInsights"},
		{category: "business_context", metadata: map[string]interface{}{"companyStage": "series A"}, wantKey: "companyStages"},
		{category: "hiring_patterns", wantKey: "hiringPatternsInsights"},
		{category: "totally_new_category", wantKey: "totallyNewCategoryInsights"},
	}
	for _, tt := range tests {
		t.Run(tt.category+"/"+tt.wantKey, func(t *testing.T) {
			ev := newEvent(tt.category, "an observation about the business", 75, tt.metadata)
			m := Resolve(ev, &entity.KnowledgeBase{}, conflict.DefaultHighConfidence)
			assert.NotNil(t, m)
			assert.Equal(t, KindBucket, m.Kind)
			assert.Equal(t, tt.wantKey, m.Field)
			assert.True(t, m.ShouldApply)
			assert.Equal(t, conflict.StrategyAppend, m.Strategy)
			assert.Equal(t, ev.Insight, m.Item["insight"])
			assert.Equal(t, 75, m.Item["confidence"])
		})
	}
}

func TestResolveNilForBlankInsight(t *testing.T) {
	ev := newEvent("business_context", "   ", 75, nil)
	assert.Nil(t, Resolve(ev, &entity.KnowledgeBase{}, conflict.DefaultHighConfidence))
}

func TestNormalizeToolName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Slack", "slack"},
		{"slack.com", "slack"},
		{"HubSpot,", "hubspot"},
		{"  Notion.so  ", "notion.so"}, // .so is not a stripped suffix
		{"monday.app", "monday"},
		{"Jira.", "jira"},
	}
	for _, tt := range tests {
		if got := NormalizeToolName(tt.in); got != tt.want {
			t.Errorf("NormalizeToolName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMergeToolStack(t *testing.T) {
	merged, added := MergeToolStack([]string{"Slack", "Asana"}, []string{"slack.com", "Jira"})
	assert.Equal(t, []string{"Slack", "Asana", "Jira"}, merged)
	assert.Equal(t, []string{"Jira"}, added)

	slackCount := 0
	for _, tool := range merged {
		if NormalizeToolName(tool) == "slack" {
			slackCount++
		}
	}
	assert.Equal(t, 1, slackCount, "stack must keep exactly one Slack-equivalent entry")
}

func TestExtractToolsDedupesWithinEvent(t *testing.T) {
	ev := newEvent("workflow_patterns", "irrelevant", 80, map[string]interface{}{
		"newTool": "HubSpot",
		"tools":   []interface{}{"hubspot.com", "Figma"},
	})
	tools := ExtractTools(ev)
	assert.Len(t, tools, 2)
	assert.Equal(t, "HubSpot", tools[0])
	assert.Equal(t, "Figma", tools[1])
}
