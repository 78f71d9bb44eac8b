package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"org-knowledge-be/internal/config"
	"org-knowledge-be/internal/constant"
	"org-knowledge-be/internal/dto"
	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/pkg/keyedmutex"
	"org-knowledge-be/internal/pkg/logger"
	"org-knowledge-be/internal/repository/contract"
	"org-knowledge-be/internal/repository/specification"
	"org-knowledge-be/internal/repository/unitofwork"
	"org-knowledge-be/pkg/decay"
	"org-knowledge-be/pkg/events"
	"org-knowledge-be/pkg/fieldmap"
	pktNats "org-knowledge-be/pkg/nats"
	"org-knowledge-be/pkg/priority"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("org-knowledge-be/internal/service")

// IEnrichmentService is the application engine: it drains unapplied learning
// events into the knowledge base under decay, priority, mapping and conflict
// policy, with one versioned write per page.
type IEnrichmentService interface {
	Apply(ctx context.Context, req *dto.ApplyLearningEventsRequest) (*dto.ApplyLearningEventsResponse, error)
}

type enrichmentService struct {
	uowFactory       unitofwork.RepositoryFactory
	validate         *validator.Validate
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	redisClient      *redis.Client
	localLocks       *keyedmutex.KeyedMutex
	cfg              config.EnrichmentConfig
	log              logger.ILogger
}

func NewEnrichmentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	redisClient *redis.Client,
	cfg config.EnrichmentConfig,
	log logger.ILogger,
) IEnrichmentService {
	return &enrichmentService{
		uowFactory:       uowFactory,
		validate:         validator.New(),
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		redisClient:      redisClient,
		localLocks:       keyedmutex.New(),
		cfg:              cfg,
		log:              log,
	}
}

const applyLockTTL = 5 * time.Minute

// eventOutcome accumulates per-event results across a run.
type eventOutcome struct {
	event  *entity.LearningEvent
	fields []string
	reason string
}

func (s *enrichmentService) Apply(ctx context.Context, req *dto.ApplyLearningEventsRequest) (*dto.ApplyLearningEventsResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid apply request: %w", err)
	}

	ctx, span := tracer.Start(ctx, "EnrichmentService.Apply")
	defer span.End()
	span.SetAttributes(attribute.String("knowledge_base_id", req.KnowledgeBaseId.String()))

	minConfidence := req.MinConfidence
	if minConfidence <= 0 {
		minConfidence = constant.DefaultMinConfidence
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = constant.DefaultApplyBatchSize
	}
	decayCfg := decay.Config{
		GracePeriodDays: s.cfg.Decay.GracePeriodDays,
		RatePerDay:      s.cfg.Decay.RatePerDay,
	}

	start := time.Now()
	resp := &dto.ApplyLearningEventsResponse{Success: true}

	release, ok, err := s.acquireLock(ctx, req.KnowledgeBaseId)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire apply lock: %w", err)
	}
	if !ok {
		resp.Success = false
		resp.Errors = append(resp.Errors, "an apply run for this knowledge base is already in progress")
		return resp, nil
	}
	defer release()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	kbRepo := uow.KnowledgeBaseRepository()
	eventRepo := uow.LearningEventRepository()

	kb, err := kbRepo.FindOne(ctx, specification.ByID{ID: req.KnowledgeBaseId})
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	if kb == nil {
		resp.Success = false
		resp.Errors = append(resp.Errors, "knowledge base not found")
		return resp, nil
	}

	var (
		applied       []eventOutcome
		skippedCount  int
		conflictTally = map[string]int{}
		cursorAt      time.Time
		cursorId      uuid.UUID
	)

	for {
		if err := ctx.Err(); err != nil {
			resp.Success = false
			resp.Errors = append(resp.Errors, "run cancelled: "+err.Error())
			break
		}

		specs := []specification.Specification{
			specification.ByKnowledgeBaseID{KnowledgeBaseID: req.KnowledgeBaseId},
			specification.Unapplied{},
			specification.MinConfidence{Min: minConfidence},
			specification.CreatedAfterCursor{CreatedAt: cursorAt, ID: cursorId},
			specification.OrderBy{Field: "created_at"},
			specification.OrderBy{Field: "id"},
			specification.Limit{Limit: batchSize},
		}
		if len(req.Categories) > 0 {
			specs = append(specs, specification.ByCategories{Categories: req.Categories})
		}

		page, err := eventRepo.FindAll(ctx, specs...)
		if err != nil {
			resp.Success = false
			resp.Errors = append(resp.Errors, "failed to load events page: "+err.Error())
			break
		}
		if len(page) == 0 {
			break
		}
		last := page[len(page)-1]
		cursorAt, cursorId = last.CreatedAt, last.Id
		resp.Processed += len(page)

		// Decay filter. Excluded events stay unapplied and get a skip-audit
		// with their decay stats.
		survivors := make([]*entity.LearningEvent, 0, len(page))
		for _, ev := range page {
			info := decay.GetDecayInfo(ev.Confidence, ev.CreatedAt, decayCfg)
			if info.AdjustedConfidence >= minConfidence {
				survivors = append(survivors, ev)
				continue
			}
			skippedCount++
			s.recordAudit(ctx, dto.RecordAuditMessage{
				KnowledgeBaseId: req.KnowledgeBaseId,
				EventId:         idPtr(ev.Id),
				Action:          entity.AuditActionSkipped,
				Reason:          "confidence decayed below threshold",
				Details: map[string]interface{}{
					"originalConfidence": info.OriginalConfidence,
					"adjustedConfidence": info.AdjustedConfidence,
					"ageInDays":          info.AgeInDays,
					"decayPercentage":    info.DecayPercentage,
				},
			})
		}

		pageApplied, pageSkipped, err := s.applyPage(ctx, kbRepo, &kb, priority.SortEvents(survivors), resp, conflictTally)
		if err != nil {
			resp.Success = false
			resp.Errors = append(resp.Errors, err.Error())
			break
		}
		applied = append(applied, pageApplied...)
		skippedCount += pageSkipped

		if len(page) < batchSize {
			break
		}
	}

	if len(applied) > 0 {
		now := time.Now()
		ids := make([]uuid.UUID, 0, len(applied))
		fieldsById := make(map[uuid.UUID][]string, len(applied))
		for _, out := range applied {
			ids = append(ids, out.event.Id)
			fieldsById[out.event.Id] = out.fields
		}
		if err := eventRepo.MarkApplied(ctx, ids, now, fieldsById); err != nil {
			resp.Success = false
			resp.Errors = append(resp.Errors, "failed to mark events applied: "+err.Error())
		} else {
			resp.Applied = len(applied)
			for _, out := range applied {
				s.recordAudit(ctx, dto.RecordAuditMessage{
					KnowledgeBaseId: req.KnowledgeBaseId,
					EventId:         idPtr(out.event.Id),
					Action:          entity.AuditActionApplied,
					Field:           strings.Join(out.fields, ","),
					Reason:          out.reason,
					Details: map[string]interface{}{
						"confidence": out.event.Confidence,
						"category":   out.event.Category,
					},
				})
			}
		}
	}
	resp.Skipped = skippedCount
	resp.EnrichmentVersion = kb.EnrichmentVersion
	resp.ProcessingTimeMs = time.Since(start).Milliseconds()

	s.recordRunMetrics(ctx, req.KnowledgeBaseId, resp, applied, conflictTally)
	s.publishEnrichedEvent(ctx, kb, resp)

	return resp, nil
}

// applyPage resolves one page of sorted events against the current knowledge
// base and performs at most one versioned write. On a CAS miss the page is
// re-resolved against a fresh load, so decisions always reflect the stored
// state. The caller's kb pointer is replaced with the post-write state.
func (s *enrichmentService) applyPage(
	ctx context.Context,
	kbRepo contract.KnowledgeBaseRepository,
	kbRef **entity.KnowledgeBase,
	sorted []*entity.LearningEvent,
	resp *dto.ApplyLearningEventsResponse,
	conflictTally map[string]int,
) ([]eventOutcome, int, error) {
	if len(sorted) == 0 {
		return nil, 0, nil
	}

	for attempt := 0; attempt < 3; attempt++ {
		kb := *kbRef
		applied, skipped, updates, changed := s.resolvePage(ctx, kb, sorted, conflictTally)

		if !changed {
			resp.FieldsUpdated = append(resp.FieldsUpdated, updates...)
			return applied, skipped, nil
		}

		expected := kb.Version
		kb.EnrichmentVersion++
		kb.Version++
		now := time.Now()
		kb.LastEnrichedAt = &now

		ok, err := kbRepo.UpdateVersioned(ctx, kb, expected)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to write knowledge base: %w", err)
		}
		if ok {
			// Reload so the next page resolves against stored values.
			fresh, err := kbRepo.FindOne(ctx, specification.ByID{ID: kb.Id})
			if err == nil && fresh != nil {
				*kbRef = fresh
			}
			resp.FieldsUpdated = append(resp.FieldsUpdated, updates...)
			return applied, skipped, nil
		}

		// Version moved underneath us; re-resolve against fresh state.
		fresh, err := kbRepo.FindOne(ctx, specification.ByID{ID: kb.Id})
		if err != nil {
			return nil, 0, fmt.Errorf("failed to reload knowledge base: %w", err)
		}
		if fresh == nil {
			return nil, 0, fmt.Errorf("knowledge base disappeared mid-run")
		}
		*kbRef = fresh
	}
	return nil, 0, fmt.Errorf("knowledge base write kept losing version races, aborting run")
}

type scalarGroupEntry struct {
	event   *entity.LearningEvent
	mapping *fieldmap.Mapping
}

// resolvePage mutates kb in memory according to the policy chain and reports
// which events applied, which were kept back, and whether anything changed.
func (s *enrichmentService) resolvePage(
	ctx context.Context,
	kb *entity.KnowledgeBase,
	sorted []*entity.LearningEvent,
	conflictTally map[string]int,
) (applied []eventOutcome, skipped int, updates []dto.FieldUpdateSummary, changed bool) {
	scalarGroups := map[string][]scalarGroupEntry{}

	for _, ev := range sorted {
		m := fieldmap.Resolve(ev, kb, s.cfg.Confidence.High)
		if m == nil {
			skipped++
			s.recordAudit(ctx, dto.RecordAuditMessage{
				KnowledgeBaseId: kb.Id,
				EventId:         idPtr(ev.Id),
				Action:          entity.AuditActionSkipped,
				Reason:          "no field mapping resolved",
			})
			continue
		}
		conflictTally[string(m.Strategy)]++

		switch m.Kind {
		case fieldmap.KindScalar:
			// Scalar writes resolve as a group: the highest-confidence
			// applicable event wins the write, every event in a written
			// group is retired together.
			scalarGroups[m.Field] = append(scalarGroups[m.Field], scalarGroupEntry{event: ev, mapping: m})

		case fieldmap.KindToolStack:
			if !m.ShouldApply {
				// Stack already holds these tools; the claim is satisfied.
				applied = append(applied, eventOutcome{event: ev, fields: []string{fieldmap.FieldToolStack}, reason: m.Reason})
				continue
			}
			merged, added := fieldmap.MergeToolStack(kb.ToolStack, m.Tools)
			if len(added) > 0 {
				kb.ToolStack = merged
				changed = true
				updates = append(updates, dto.FieldUpdateSummary{
					Field:      fieldmap.FieldToolStack,
					Strategy:   string(m.Strategy),
					Reason:     m.Reason,
					EventId:    ev.Id,
					Confidence: ev.Confidence,
				})
			}
			applied = append(applied, eventOutcome{event: ev, fields: []string{fieldmap.FieldToolStack}, reason: m.Reason})

		case fieldmap.KindBucket:
			if appendBucketItem(kb, m.Field, m.Item) {
				changed = true
				updates = append(updates, dto.FieldUpdateSummary{
					Field:      m.Field,
					Strategy:   string(m.Strategy),
					Reason:     m.Reason,
					EventId:    ev.Id,
					Confidence: ev.Confidence,
				})
			}
			applied = append(applied, eventOutcome{event: ev, fields: []string{m.Field}, reason: m.Reason})
		}
	}

	for field, group := range scalarGroups {
		var winner *scalarGroupEntry
		for i := range group {
			if !group[i].mapping.ShouldApply {
				continue
			}
			if winner == nil || group[i].event.Confidence > winner.event.Confidence {
				winner = &group[i]
			}
		}

		if winner == nil {
			// Nothing in the group cleared the conflict policy; all events
			// stay unapplied for a future, more confident run.
			for _, entry := range group {
				skipped++
				s.recordAudit(ctx, dto.RecordAuditMessage{
					KnowledgeBaseId: kb.Id,
					EventId:         idPtr(entry.event.Id),
					Action:          entity.AuditActionSkipped,
					Field:           field,
					Reason:          entry.mapping.Reason,
				})
			}
			continue
		}

		previous, _ := kb.ScalarField(field)
		if winner.mapping.TrackHistory {
			appendFieldHistory(kb, field, previous, winner.mapping.ScalarValue, winner.event.Id, winner.event.Confidence)
		}
		kb.SetScalarField(field, winner.mapping.ScalarValue)
		changed = true

		for _, entry := range group {
			applied = append(applied, eventOutcome{event: entry.event, fields: []string{field}, reason: entry.mapping.Reason})
			updates = append(updates, dto.FieldUpdateSummary{
				Field:      field,
				Strategy:   string(winner.mapping.Strategy),
				Reason:     entry.mapping.Reason,
				EventId:    entry.event.Id,
				Confidence: entry.event.Confidence,
			})
		}
		if winner.mapping.TrackHistory {
			s.recordAudit(ctx, dto.RecordAuditMessage{
				KnowledgeBaseId: kb.Id,
				EventId:         idPtr(winner.event.Id),
				Action:          entity.AuditActionApplied,
				Field:           field,
				Reason:          winner.mapping.Reason,
				PreviousValue:   previous,
				NewValue:        winner.mapping.ScalarValue,
			})
		}
	}

	return applied, skipped, updates, changed
}

// appendBucketItem appends an item into an extractedKnowledge bucket with
// item-level dedup on the case-folded insight text. Reports whether the
// bucket actually grew.
func appendBucketItem(kb *entity.KnowledgeBase, key string, item map[string]interface{}) bool {
	if kb.ExtractedKnowledge == nil {
		kb.ExtractedKnowledge = map[string]interface{}{}
	}

	list, _ := kb.ExtractedKnowledge[key].([]interface{})
	newInsight, _ := item["insight"].(string)
	for _, existing := range list {
		obj, ok := existing.(map[string]interface{})
		if !ok {
			continue
		}
		if s, ok := obj["insight"].(string); ok &&
			strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(newInsight)) {
			return false
		}
	}

	kb.ExtractedKnowledge[key] = append(list, item)
	return true
}

// appendFieldHistory logs a prior->new transition for an overwritten scalar,
// keeping only the newest entries per field.
func appendFieldHistory(kb *entity.KnowledgeBase, field, previous, next string, eventId uuid.UUID, confidence int) {
	if kb.ExtractedKnowledge == nil {
		kb.ExtractedKnowledge = map[string]interface{}{}
	}
	history, _ := kb.ExtractedKnowledge["fieldHistory"].(map[string]interface{})
	if history == nil {
		history = map[string]interface{}{}
	}
	entries, _ := history[field].([]interface{})
	entries = append(entries, map[string]interface{}{
		"previousValue": previous,
		"newValue":      next,
		"eventId":       eventId.String(),
		"confidence":    confidence,
		"changedAt":     time.Now().UTC().Format(time.RFC3339),
	})
	if len(entries) > constant.MaxFieldHistoryEntries {
		entries = entries[len(entries)-constant.MaxFieldHistoryEntries:]
	}
	history[field] = entries
	kb.ExtractedKnowledge["fieldHistory"] = history
}

func (s *enrichmentService) recordAudit(ctx context.Context, msg dto.RecordAuditMessage) {
	if s.publisherService == nil {
		return
	}
	if err := s.publisherService.Publish(ctx, constant.TopicRecordAudit, msg); err != nil {
		s.log.Warn("EnrichmentService", "failed to publish audit record", map[string]interface{}{
			"knowledgeBaseId": msg.KnowledgeBaseId,
			"error":           err.Error(),
		})
	}
}

// recordRunMetrics emits the application-metrics record and a quality
// snapshot (conflict tally + confidence histogram over applied events).
func (s *enrichmentService) recordRunMetrics(
	ctx context.Context,
	knowledgeBaseId uuid.UUID,
	resp *dto.ApplyLearningEventsResponse,
	applied []eventOutcome,
	conflictTally map[string]int,
) {
	if s.publisherService == nil {
		return
	}

	fieldSet := map[string]struct{}{}
	for _, u := range resp.FieldsUpdated {
		fieldSet[u.Field] = struct{}{}
	}
	fields := make([]string, 0, len(fieldSet))
	for f := range fieldSet {
		fields = append(fields, f)
	}

	totalConfidence := 0
	histogram := map[string]int{}
	for _, out := range applied {
		totalConfidence += out.event.Confidence
		switch {
		case out.event.Confidence >= 90:
			histogram["90-100"]++
		case out.event.Confidence >= 80:
			histogram["80-89"]++
		case out.event.Confidence >= 70:
			histogram["70-79"]++
		default:
			histogram["<70"]++
		}
	}
	avgConfidence := 0.0
	if len(applied) > 0 {
		avgConfidence = float64(totalConfidence) / float64(len(applied))
	}

	appMetrics := dto.RecordMetricsMessage{
		KnowledgeBaseId: knowledgeBaseId,
		MetricType:      constant.MetricTypeApplication,
		Record: map[string]interface{}{
			"eventsProcessed":  resp.Processed,
			"eventsApplied":    resp.Applied,
			"eventsSkipped":    resp.Skipped,
			"fieldsUpdated":    fields,
			"avgConfidence":    avgConfidence,
			"processingTimeMs": resp.ProcessingTimeMs,
		},
	}
	if err := s.publisherService.Publish(ctx, constant.TopicRecordMetrics, appMetrics); err != nil {
		s.log.Warn("EnrichmentService", "failed to publish application metrics", map[string]interface{}{
			"knowledgeBaseId": knowledgeBaseId,
			"error":           err.Error(),
		})
	}

	tally := make(map[string]interface{}, len(conflictTally))
	for k, v := range conflictTally {
		tally[k] = v
	}
	qualityMetrics := dto.RecordMetricsMessage{
		KnowledgeBaseId: knowledgeBaseId,
		MetricType:      constant.MetricTypeQuality,
		Record: map[string]interface{}{
			"conflictOutcomes":    tally,
			"confidenceHistogram": histogram,
		},
	}
	if err := s.publisherService.Publish(ctx, constant.TopicRecordMetrics, qualityMetrics); err != nil {
		s.log.Warn("EnrichmentService", "failed to publish quality metrics", map[string]interface{}{
			"knowledgeBaseId": knowledgeBaseId,
			"error":           err.Error(),
		})
	}
}

func (s *enrichmentService) publishEnrichedEvent(ctx context.Context, kb *entity.KnowledgeBase, resp *dto.ApplyLearningEventsResponse) {
	if s.eventPublisher == nil || resp.Applied == 0 {
		return
	}
	evt := events.NewBaseEvent(constant.EventKnowledgeBaseEnriched, map[string]interface{}{
		"knowledge_base_id":  kb.Id.String(),
		"organization_id":    kb.OrganizationId.String(),
		"events_applied":     resp.Applied,
		"enrichment_version": resp.EnrichmentVersion,
	})
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.log.Warn("EnrichmentService", "failed to publish enriched event", map[string]interface{}{
			"knowledgeBaseId": kb.Id,
			"error":           err.Error(),
		})
	}
}

// acquireLock serializes apply runs per knowledge base: Redis when
// configured (covers multiple processes), an in-process keyed mutex
// otherwise.
func (s *enrichmentService) acquireLock(ctx context.Context, knowledgeBaseId uuid.UUID) (release func(), ok bool, err error) {
	key := "knowledge:apply:" + knowledgeBaseId.String()

	if s.redisClient != nil {
		acquired, err := s.redisClient.SetNX(ctx, key, "1", applyLockTTL).Result()
		if err != nil {
			return nil, false, err
		}
		if !acquired {
			return nil, false, nil
		}
		return func() {
			delCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.redisClient.Del(delCtx, key).Err(); err != nil {
				s.log.Warn("EnrichmentService", "failed to release apply lock", map[string]interface{}{
					"key":   key,
					"error": err.Error(),
				})
			}
		}, true, nil
	}

	if !s.localLocks.TryLock(key) {
		return nil, false, nil
	}
	return func() { s.localLocks.Unlock(key) }, true, nil
}

func idPtr(id uuid.UUID) *uuid.UUID {
	return &id
}
