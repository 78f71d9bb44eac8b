package service

import (
	"context"
	"testing"
	"time"

	"org-knowledge-be/internal/constant"
	"org-knowledge-be/internal/dto"
	"org-knowledge-be/internal/entity"
	"org-knowledge-be/pkg/similarity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newLearningEventFixture(embedder *stubEmbedder) (*fakeStore, *capturingPublisher, ILearningEventService) {
	store := newFakeStore()
	factory := newFakeFactory(store)
	pub := &capturingPublisher{}

	simSvc := similarity.NewService(
		embedder,
		similarity.Config{SemanticThreshold: 0.85, LexicalThreshold: 0.85},
		nopLogger{},
		nil,
	)
	svc := NewLearningEventService(factory, simSvc, embedder, pub, nil, 70, nopLogger{})
	return store, pub, svc
}

func TestCreateLearningEvents(t *testing.T) {
	store, pub, svc := newLearningEventFixture(&stubEmbedder{})
	kbId := uuid.New()

	resp, err := svc.Create(context.Background(), &dto.CreateLearningEventsRequest{
		KnowledgeBaseId: kbId,
		EventType:       "call_analysis",
		Insights: []dto.InsightPayload{
			{Insight: "We use HubSpot for email", Category: "workflow_patterns", Confidence: 85},
			{Insight: "Hiring is the biggest constraint", Category: "business_context"},
			{Insight: "   ", Category: "business_context"},
		},
		SourceIds:   []string{"call-123"},
		TriggeredBy: "extraction-worker",
	})
	assert.NoError(t, err)
	assert.Len(t, resp.Created, 2)
	assert.Len(t, resp.Skipped, 1)
	assert.Equal(t, "missing insight text or category", resp.Skipped[0].Reason)

	assert.Len(t, store.events, 2)
	for _, ev := range store.events {
		assert.Equal(t, kbId, ev.KnowledgeBaseId)
		assert.Equal(t, "call_analysis", ev.EventType)
		assert.False(t, ev.Applied)
		assert.NotEqual(t, uuid.Nil, ev.Id)
		assert.Equal(t, []string{"call-123"}, ev.SourceIds)
	}
	// Omitted confidence defaults to 70.
	assert.Equal(t, 85, store.events[0].Confidence)
	assert.Equal(t, 70, store.events[1].Confidence)

	// One audit row per created event plus one extraction metrics record.
	assert.Len(t, pub.byTopic(constant.TopicRecordAudit), 2)
	assert.Len(t, pub.byTopic(constant.TopicRecordMetrics), 1)
}

func TestCreateLearningEventsDuplicateSuppression(t *testing.T) {
	_, _, svc := newLearningEventFixture(&stubEmbedder{})
	kbId := uuid.New()

	first, err := svc.Create(context.Background(), &dto.CreateLearningEventsRequest{
		KnowledgeBaseId: kbId,
		EventType:       "call_analysis",
		Insights: []dto.InsightPayload{
			{Insight: "We use HubSpot for email", Category: "workflow_patterns", Confidence: 85},
		},
		SourceIds: []string{"call-1"},
	})
	assert.NoError(t, err)
	assert.Len(t, first.Created, 1)

	// Near-identical phrasing lands in the same category within the window.
	second, err := svc.Create(context.Background(), &dto.CreateLearningEventsRequest{
		KnowledgeBaseId: kbId,
		EventType:       "call_analysis",
		Insights: []dto.InsightPayload{
			{Insight: "we use hubspot for email!", Category: "workflow_patterns", Confidence: 90},
		},
		SourceIds: []string{"call-2"},
	})
	assert.NoError(t, err)
	assert.Empty(t, second.Created)
	assert.Len(t, second.Skipped, 1)
	assert.Equal(t, "duplicate of existing insight", second.Skipped[0].Reason)
	assert.Equal(t, "string", second.Skipped[0].Method)
}

func TestCreateLearningEventsWithinBatchDedup(t *testing.T) {
	store, _, svc := newLearningEventFixture(&stubEmbedder{})

	resp, err := svc.Create(context.Background(), &dto.CreateLearningEventsRequest{
		KnowledgeBaseId: uuid.New(),
		EventType:       "call_analysis",
		Insights: []dto.InsightPayload{
			{Insight: "Reporting is fully manual today", Category: "process_optimization", Confidence: 80},
			{Insight: "reporting is fully manual today", Category: "process_optimization", Confidence: 75},
		},
		SourceIds: []string{"call-1"},
	})
	assert.NoError(t, err)
	assert.Len(t, resp.Created, 1)
	assert.Len(t, resp.Skipped, 1)
	assert.Len(t, store.events, 1)
}

func TestCreateLearningEventsSameCategoryOnlyDedup(t *testing.T) {
	store, _, svc := newLearningEventFixture(&stubEmbedder{})
	kbId := uuid.New()

	resp, err := svc.Create(context.Background(), &dto.CreateLearningEventsRequest{
		KnowledgeBaseId: kbId,
		EventType:       "call_analysis",
		Insights: []dto.InsightPayload{
			{Insight: "Team velocity drops every quarter end", Category: "process_optimization", Confidence: 80},
			{Insight: "Team velocity drops every quarter end badly", Category: "risk_management", Confidence: 80},
		},
		SourceIds: []string{"call-1"},
	})
	assert.NoError(t, err)
	// Similar text in a different category is a distinct claim.
	assert.Len(t, resp.Created, 2)
	assert.Len(t, store.events, 2)
}

func TestCreateLearningEventsSemanticDedup(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"Emails are sent through HubSpot": {1, 0, 0},
	}}
	_, _, svc := newLearningEventFixture(embedder)
	kbId := uuid.New()

	_, err := svc.Create(context.Background(), &dto.CreateLearningEventsRequest{
		KnowledgeBaseId: kbId,
		EventType:       "call_analysis",
		Insights: []dto.InsightPayload{
			{Insight: "Emails are sent through HubSpot", Category: "workflow_patterns", Confidence: 85},
		},
		SourceIds: []string{"call-1"},
	})
	assert.NoError(t, err)

	// Different wording but an (artificially) identical vector.
	embedder.vectors["The team relies on HubSpot to send outbound email"] = []float32{1, 0, 0}
	resp, err := svc.Create(context.Background(), &dto.CreateLearningEventsRequest{
		KnowledgeBaseId: kbId,
		EventType:       "call_analysis",
		Insights: []dto.InsightPayload{
			{Insight: "The team relies on HubSpot to send outbound email", Category: "workflow_patterns", Confidence: 85},
		},
		SourceIds: []string{"call-2"},
	})
	assert.NoError(t, err)
	assert.Empty(t, resp.Created)
	assert.Len(t, resp.Skipped, 1)
	assert.Equal(t, "semantic", resp.Skipped[0].Method)
}

func TestCreateLearningEventsEmbeddingOutage(t *testing.T) {
	store, _, svc := newLearningEventFixture(&stubEmbedder{failAll: true})
	kbId := uuid.New()

	resp, err := svc.Create(context.Background(), &dto.CreateLearningEventsRequest{
		KnowledgeBaseId: kbId,
		EventType:       "call_analysis",
		Insights: []dto.InsightPayload{
			{Insight: "Customer onboarding takes two weeks", Category: "service_patterns", Confidence: 80},
			{Insight: "customer onboarding takes two weeks", Category: "service_patterns", Confidence: 80},
		},
		SourceIds: []string{"call-1"},
	})
	assert.NoError(t, err, "a total embedding outage must not abort creation")
	assert.Len(t, resp.Created, 1)
	assert.Len(t, resp.Skipped, 1)
	assert.Len(t, store.events, 1)
	assert.Nil(t, store.events[0].Embedding)
}

func TestCreateLearningEventsInsertConflictOutsideDedupWindow(t *testing.T) {
	store, _, svc := newLearningEventFixture(&stubEmbedder{})
	kbId := uuid.New()

	// An identical insight recorded before the dedup window escapes the
	// pre-insert similarity check, so the unique index is what stops it.
	stale := &entity.LearningEvent{
		Id:              uuid.New(),
		KnowledgeBaseId: kbId,
		EventType:       "call_analysis",
		Category:        "workflow_patterns",
		Insight:         "We use HubSpot for email",
		Confidence:      80,
		CreatedAt:       time.Now().AddDate(0, 0, -(constant.DedupWindowDays + 10)),
	}
	store.events = append(store.events, stale)

	resp, err := svc.Create(context.Background(), &dto.CreateLearningEventsRequest{
		KnowledgeBaseId: kbId,
		EventType:       "call_analysis",
		Insights: []dto.InsightPayload{
			{Insight: "we use HubSpot for email", Category: "workflow_patterns", Confidence: 85},
			{Insight: "Invoices are reconciled by hand", Category: "process_optimization", Confidence: 85},
		},
		SourceIds: []string{"call-9"},
	})
	assert.NoError(t, err)

	// The colliding row is reported skipped, the other inserts, and the
	// created id belongs to the surviving insight, not the collided one.
	assert.Len(t, resp.Created, 1)
	assert.Len(t, resp.Skipped, 1)
	assert.Equal(t, "identical insight already recorded", resp.Skipped[0].Reason)
	assert.Equal(t, "we use HubSpot for email", resp.Skipped[0].Insight)

	assert.Equal(t, "process_optimization", resp.Created[0].Category)
	assert.NotEqual(t, stale.Id, resp.Created[0].Id)
	var survivor *entity.LearningEvent
	for _, ev := range store.events {
		if ev.Insight == "Invoices are reconciled by hand" {
			survivor = ev
		}
	}
	assert.NotNil(t, survivor)
	assert.Equal(t, survivor.Id, resp.Created[0].Id)
	assert.Len(t, store.events, 2)
}

func TestCreateLearningEventsRejectsInvalidRequest(t *testing.T) {
	_, _, svc := newLearningEventFixture(&stubEmbedder{})

	_, err := svc.Create(context.Background(), &dto.CreateLearningEventsRequest{
		EventType: "call_analysis",
		Insights:  []dto.InsightPayload{{Insight: "x", Category: "y"}},
		SourceIds: []string{"call-1"},
	})
	assert.Error(t, err, "missing knowledge base id must fail the whole call")

	_, err = svc.Create(context.Background(), &dto.CreateLearningEventsRequest{
		KnowledgeBaseId: uuid.New(),
		EventType:       "call_analysis",
		SourceIds:       []string{"call-1"},
	})
	assert.Error(t, err, "empty insights list must fail the whole call")

	_, err = svc.Create(context.Background(), &dto.CreateLearningEventsRequest{
		KnowledgeBaseId: uuid.New(),
		EventType:       "call_analysis",
		Insights:        []dto.InsightPayload{{Insight: "x", Category: "y"}},
	})
	assert.Error(t, err, "missing source ids must fail the whole call")
}

func TestListLearningEvents(t *testing.T) {
	store, _, svc := newLearningEventFixture(&stubEmbedder{})
	kbId := uuid.New()

	_, err := svc.Create(context.Background(), &dto.CreateLearningEventsRequest{
		KnowledgeBaseId: kbId,
		EventType:       "call_analysis",
		Insights: []dto.InsightPayload{
			{Insight: "First claim about workflows", Category: "workflow_patterns", Confidence: 90},
			{Insight: "Second claim about risks", Category: "risk_management", Confidence: 60},
		},
		SourceIds: []string{"call-1"},
	})
	assert.NoError(t, err)
	assert.Len(t, store.events, 2)

	resp, err := svc.List(context.Background(), &dto.ListLearningEventsRequest{
		KnowledgeBaseId: kbId,
		MinConfidence:   80,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
	assert.Len(t, resp.Events, 1)
	assert.Equal(t, "workflow_patterns", resp.Events[0].Category)
}
