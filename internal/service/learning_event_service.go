package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"org-knowledge-be/internal/constant"
	"org-knowledge-be/internal/dto"
	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/pkg/logger"
	"org-knowledge-be/internal/repository/specification"
	"org-knowledge-be/internal/repository/unitofwork"
	"org-knowledge-be/pkg/embedding"
	"org-knowledge-be/pkg/events"
	pktNats "org-knowledge-be/pkg/nats"
	"org-knowledge-be/pkg/similarity"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type ILearningEventService interface {
	Create(ctx context.Context, req *dto.CreateLearningEventsRequest) (*dto.CreateLearningEventsResponse, error)
	List(ctx context.Context, req *dto.ListLearningEventsRequest) (*dto.ListLearningEventsResponse, error)
}

type learningEventService struct {
	uowFactory        unitofwork.RepositoryFactory
	validate          *validator.Validate
	similarityService *similarity.Service
	embeddingProvider embedding.Provider
	publisherService  IPublisherService
	eventPublisher    *pktNats.Publisher
	defaultConfidence int
	log               logger.ILogger
}

func NewLearningEventService(
	uowFactory unitofwork.RepositoryFactory,
	similarityService *similarity.Service,
	embeddingProvider embedding.Provider,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	defaultConfidence int,
	log logger.ILogger,
) ILearningEventService {
	if defaultConfidence <= 0 || defaultConfidence > 100 {
		defaultConfidence = 70
	}
	return &learningEventService{
		uowFactory:        uowFactory,
		validate:          validator.New(),
		similarityService: similarityService,
		embeddingProvider: embeddingProvider,
		publisherService:  publisherService,
		eventPublisher:    eventPublisher,
		defaultConfidence: defaultConfidence,
		log:               log,
	}
}

// Create validates, deduplicates and persists a batch of extracted insights.
// Per-insight problems (blank text, duplicates) are collected as skips; only
// request-level validation or storage failures error the whole call.
func (s *learningEventService) Create(ctx context.Context, req *dto.CreateLearningEventsRequest) (*dto.CreateLearningEventsResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid create request: %w", err)
	}

	ctx, span := tracer.Start(ctx, "LearningEventService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("knowledge_base_id", req.KnowledgeBaseId.String()))

	resp := &dto.CreateLearningEventsResponse{}
	now := time.Now()

	// Per-insight validation pass. Invalid entries become skips, the batch
	// continues.
	type candidate struct {
		payload   dto.InsightPayload
		embedding []float32
	}
	var candidates []candidate
	categorySet := map[string]struct{}{}
	for _, ins := range req.Insights {
		text := strings.TrimSpace(ins.Insight)
		cat := strings.TrimSpace(ins.Category)
		if text == "" || cat == "" {
			resp.Skipped = append(resp.Skipped, dto.SkippedInsightSummary{
				Insight: ins.Insight,
				Reason:  "missing insight text or category",
			})
			continue
		}

		conf := ins.Confidence
		if conf == 0 {
			conf = s.defaultConfidence
		}
		if conf < 1 {
			conf = 1
		}
		if conf > 100 {
			conf = 100
		}

		candidates = append(candidates, candidate{payload: dto.InsightPayload{
			Insight:    text,
			Category:   cat,
			Confidence: conf,
			Metadata:   ins.Metadata,
		}})
		categorySet[cat] = struct{}{}
	}

	if len(candidates) == 0 {
		return resp, nil
	}

	// Batch-embed every candidate up front. A total failure downgrades the
	// whole batch to string similarity instead of aborting.
	embeddingModel := ""
	if s.embeddingProvider != nil {
		texts := make([]string, len(candidates))
		for i, c := range candidates {
			texts[i] = c.payload.Insight
		}
		results, err := s.embeddingProvider.GenerateBatch(ctx, texts)
		if err != nil {
			s.log.Warn("LearningEventService", "batch embedding failed, using string similarity only", map[string]interface{}{
				"knowledgeBaseId": req.KnowledgeBaseId,
				"count":           len(texts),
				"error":           err.Error(),
			})
		} else {
			for i, res := range results {
				if res == nil {
					continue
				}
				candidates[i].embedding = res.Values
				embeddingModel = res.Model
			}
		}
	}

	categories := make([]string, 0, len(categorySet))
	for c := range categorySet {
		categories = append(categories, c)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	eventRepo := uow.LearningEventRepository()

	recent, err := eventRepo.FindAll(ctx,
		specification.ByKnowledgeBaseID{KnowledgeBaseID: req.KnowledgeBaseId},
		specification.ByCategories{Categories: categories},
		specification.CreatedAfter{After: now.AddDate(0, 0, -constant.DedupWindowDays)},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load dedup window: %w", err)
	}

	recentByCategory := map[string][]*entity.LearningEvent{}
	for _, ev := range recent {
		recentByCategory[ev.Category] = append(recentByCategory[ev.Category], ev)
	}

	var toInsert []*entity.LearningEvent
	for _, c := range candidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		dup := s.findDuplicate(ctx, recentByCategory[c.payload.Category], c.payload.Insight, c.embedding)
		if dup != nil {
			resp.Skipped = append(resp.Skipped, dto.SkippedInsightSummary{
				Insight: c.payload.Insight,
				Reason:  "duplicate of existing insight",
				Method:  string(dup.Method),
				Score:   dup.Score,
			})
			continue
		}

		ev := &entity.LearningEvent{
			KnowledgeBaseId: req.KnowledgeBaseId,
			EventType:       req.EventType,
			Category:        c.payload.Category,
			Insight:         c.payload.Insight,
			Confidence:      c.payload.Confidence,
			Metadata:        c.payload.Metadata,
			Embedding:       c.embedding,
			SourceIds:       req.SourceIds,
			CreatedAt:       now,
		}
		if len(c.embedding) > 0 && embeddingModel != "" {
			m := embeddingModel
			ev.EmbeddingModel = &m
		}
		if req.TriggeredBy != "" {
			t := req.TriggeredBy
			ev.TriggeredBy = &t
		}
		toInsert = append(toInsert, ev)

		// Later candidates in the same batch dedupe against this one too.
		recentByCategory[c.payload.Category] = append(recentByCategory[c.payload.Category], ev)
	}

	var inserted []*entity.LearningEvent
	if len(toInsert) > 0 {
		inserted, err = eventRepo.CreateBulk(ctx, toInsert)
		if err != nil {
			return nil, fmt.Errorf("failed to persist learning events: %w", err)
		}
	}

	insertedSet := map[*entity.LearningEvent]struct{}{}
	for _, ev := range inserted {
		insertedSet[ev] = struct{}{}
	}
	for _, ev := range toInsert {
		if _, ok := insertedSet[ev]; !ok {
			// Lost an insert race on (knowledge base, insight hash).
			resp.Skipped = append(resp.Skipped, dto.SkippedInsightSummary{
				Insight: ev.Insight,
				Reason:  "identical insight already recorded",
			})
		}
	}

	for _, ev := range inserted {
		resp.Created = append(resp.Created, dto.CreatedEventSummary{
			Id:         ev.Id,
			Category:   ev.Category,
			Confidence: ev.Confidence,
		})
	}

	s.recordCreation(ctx, req, inserted, len(resp.Skipped))
	s.publishCreatedEvent(ctx, req.KnowledgeBaseId, inserted)

	return resp, nil
}

func (s *learningEventService) findDuplicate(ctx context.Context, pool []*entity.LearningEvent, text string, candidateEmbedding []float32) *similarity.Decision {
	for _, existing := range pool {
		decision := s.similarityService.IsDuplicate(ctx, existing, text, candidateEmbedding)
		if decision.IsDuplicate {
			return &decision
		}
	}
	return nil
}

// recordCreation fires the per-event audit rows and one extraction-metrics
// record. Failures are logged and swallowed.
func (s *learningEventService) recordCreation(ctx context.Context, req *dto.CreateLearningEventsRequest, created []*entity.LearningEvent, skipped int) {
	if s.publisherService == nil {
		return
	}

	byCategory := map[string]int{}
	totalConfidence := 0
	for _, ev := range created {
		byCategory[ev.Category]++
		totalConfidence += ev.Confidence

		id := ev.Id
		msg := dto.RecordAuditMessage{
			KnowledgeBaseId: req.KnowledgeBaseId,
			EventId:         &id,
			Action:          entity.AuditActionCreated,
			Reason:          "insight recorded from " + req.EventType,
			NewValue:        ev.Insight,
			Details: map[string]interface{}{
				"category":   ev.Category,
				"confidence": ev.Confidence,
			},
		}
		if err := s.publisherService.Publish(ctx, constant.TopicRecordAudit, msg); err != nil {
			s.log.Warn("LearningEventService", "failed to publish audit record", map[string]interface{}{
				"eventId": ev.Id,
				"error":   err.Error(),
			})
		}
	}

	avgConfidence := 0.0
	if len(created) > 0 {
		avgConfidence = float64(totalConfidence) / float64(len(created))
	}
	metrics := dto.RecordMetricsMessage{
		KnowledgeBaseId: req.KnowledgeBaseId,
		MetricType:      constant.MetricTypeExtraction,
		Record: map[string]interface{}{
			"eventsCreated":     len(created),
			"duplicatesSkipped": skipped,
			"byCategory":        byCategory,
			"avgConfidence":     avgConfidence,
			"eventType":         req.EventType,
		},
	}
	if err := s.publisherService.Publish(ctx, constant.TopicRecordMetrics, metrics); err != nil {
		s.log.Warn("LearningEventService", "failed to publish extraction metrics", map[string]interface{}{
			"knowledgeBaseId": req.KnowledgeBaseId,
			"error":           err.Error(),
		})
	}
}

func (s *learningEventService) publishCreatedEvent(ctx context.Context, knowledgeBaseId uuid.UUID, created []*entity.LearningEvent) {
	if s.eventPublisher == nil || len(created) == 0 {
		return
	}

	ids := make([]string, len(created))
	for i, ev := range created {
		ids[i] = ev.Id.String()
	}
	evt := events.NewBaseEvent(constant.EventLearningEventsCreated, map[string]interface{}{
		"knowledge_base_id": knowledgeBaseId.String(),
		"event_ids":         ids,
		"count":             len(created),
	})
	// Downstream notification is auxiliary; the events are already durable.
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.log.Warn("LearningEventService", "failed to publish created event", map[string]interface{}{
			"knowledgeBaseId": knowledgeBaseId,
			"error":           err.Error(),
		})
	}
}

func (s *learningEventService) List(ctx context.Context, req *dto.ListLearningEventsRequest) (*dto.ListLearningEventsResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid list request: %w", err)
	}

	specs := []specification.Specification{
		specification.ByKnowledgeBaseID{KnowledgeBaseID: req.KnowledgeBaseId},
	}
	if req.UnappliedOnly {
		specs = append(specs, specification.Unapplied{})
	}
	if len(req.Categories) > 0 {
		specs = append(specs, specification.ByCategories{Categories: req.Categories})
	}
	if req.MinConfidence > 0 {
		specs = append(specs, specification.MinConfidence{Min: req.MinConfidence})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	repo := uow.LearningEventRepository()

	total, err := repo.Count(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("failed to count learning events: %w", err)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	specs = append(specs,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: pageSize, Offset: (page - 1) * pageSize},
	)

	eventsFound, err := repo.FindAll(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list learning events: %w", err)
	}

	resp := &dto.ListLearningEventsResponse{Total: total}
	for _, ev := range eventsFound {
		resp.Events = append(resp.Events, dto.LearningEventResponse{
			Id:              ev.Id,
			KnowledgeBaseId: ev.KnowledgeBaseId,
			EventType:       ev.EventType,
			Category:        ev.Category,
			Insight:         ev.Insight,
			Confidence:      ev.Confidence,
			Metadata:        ev.Metadata,
			Applied:         ev.Applied,
			AppliedAt:       ev.AppliedAt,
			AppliedToFields: ev.AppliedToFields,
			CreatedAt:       ev.CreatedAt,
		})
	}
	return resp, nil
}

// Backfill persists an on-demand embedding computed during dedup onto the
// stored event. Wired into the similarity service as its BackfillFunc.
func NewEmbeddingBackfill(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) similarity.BackfillFunc {
	return func(eventId uuid.UUID, values []float32, model string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		uow := uowFactory.NewUnitOfWork(ctx)
		if err := uow.LearningEventRepository().UpdateEmbedding(ctx, eventId, values, model); err != nil {
			log.Warn("LearningEventService", "embedding backfill failed", map[string]interface{}{
				"eventId": eventId,
				"error":   err.Error(),
			})
		}
	}
}
