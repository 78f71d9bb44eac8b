package service

import (
	"context"
	"encoding/json"
	"time"

	"org-knowledge-be/internal/constant"
	"org-knowledge-be/internal/dto"
	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/pkg/logger"
	"org-knowledge-be/internal/repository/specification"
	"org-knowledge-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// IRecorderService drains the recorder topics: audit rows into the audit log
// table, metric records into the knowledge base's extractedKnowledge side
// channel. It is the consumer half of the fire-and-forget recording channel.
type IRecorderService interface {
	Consume(ctx context.Context) error
}

type recorderService struct {
	pubSub     *gochannel.GoChannel
	uowFactory unitofwork.RepositoryFactory
	log        logger.ILogger
}

func NewRecorderService(
	pubSub *gochannel.GoChannel,
	uowFactory unitofwork.RepositoryFactory,
	log logger.ILogger,
) IRecorderService {
	return &recorderService{
		pubSub:     pubSub,
		uowFactory: uowFactory,
		log:        log,
	}
}

func (rs *recorderService) Consume(ctx context.Context) error {
	auditMessages, err := rs.pubSub.Subscribe(ctx, constant.TopicRecordAudit)
	if err != nil {
		return err
	}
	metricMessages, err := rs.pubSub.Subscribe(ctx, constant.TopicRecordMetrics)
	if err != nil {
		return err
	}

	go func() {
		for msg := range auditMessages {
			rs.processAudit(ctx, msg)
		}
	}()
	go func() {
		for msg := range metricMessages {
			rs.processMetrics(ctx, msg)
		}
	}()

	return nil
}

func (rs *recorderService) processAudit(ctx context.Context, msg *message.Message) {
	var payload dto.RecordAuditMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		rs.log.Error("RecorderService", "failed to unmarshal audit message", map[string]interface{}{
			"error": err.Error(),
		})
		// Malformed payloads can never succeed on retry.
		msg.Ack()
		return
	}

	eventId := uuid.Nil
	if payload.EventId != nil {
		eventId = *payload.EventId
	}
	var field *string
	if payload.Field != "" {
		f := payload.Field
		field = &f
	}

	uow := rs.uowFactory.NewUnitOfWork(ctx)
	err := uow.KnowledgeAuditLogRepository().Create(ctx, &entity.KnowledgeAuditLog{
		Id:              uuid.New(),
		KnowledgeBaseId: payload.KnowledgeBaseId,
		EventId:         eventId,
		Action:          payload.Action,
		Field:           field,
		Reason:          payload.Reason,
		PreviousValue:   payload.PreviousValue,
		NewValue:        payload.NewValue,
		Details:         payload.Details,
		CreatedAt:       time.Now(),
	})
	if err != nil {
		rs.log.Error("RecorderService", "failed to persist audit record", map[string]interface{}{
			"knowledgeBaseId": payload.KnowledgeBaseId,
			"error":           err.Error(),
		})
		msg.Nack()
		return
	}
	msg.Ack()
}

func (rs *recorderService) processMetrics(ctx context.Context, msg *message.Message) {
	var payload dto.RecordMetricsMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		rs.log.Error("RecorderService", "failed to unmarshal metrics message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	if err := rs.appendMetric(ctx, payload); err != nil {
		rs.log.Error("RecorderService", "failed to append metric record", map[string]interface{}{
			"knowledgeBaseId": payload.KnowledgeBaseId,
			"metricType":      payload.MetricType,
			"error":           err.Error(),
		})
		msg.Nack()
		return
	}
	msg.Ack()
}

// appendMetric retries the optimistic write a few times: metric appends race
// with enrichment runs touching the same row, and losing a CAS round is
// normal there.
func (rs *recorderService) appendMetric(ctx context.Context, payload dto.RecordMetricsMessage) error {
	uow := rs.uowFactory.NewUnitOfWork(ctx)
	repo := uow.KnowledgeBaseRepository()

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		kb, err := repo.FindOne(ctx, specification.ByID{ID: payload.KnowledgeBaseId})
		if err != nil {
			return err
		}
		if kb == nil {
			// Knowledge base deleted; nothing to record against.
			return nil
		}

		AppendMetricRecord(kb, payload.MetricType, payload.Record)

		expected := kb.Version
		kb.Version++
		ok, err := repo.UpdateVersioned(ctx, kb, expected)
		if err != nil {
			lastErr = err
			continue
		}
		if ok {
			return nil
		}
		lastErr = nil
	}
	if lastErr != nil {
		return lastErr
	}
	rs.log.Warn("RecorderService", "metric append lost CAS race repeatedly, dropping record", map[string]interface{}{
		"knowledgeBaseId": payload.KnowledgeBaseId,
		"metricType":      payload.MetricType,
	})
	return nil
}

// AppendMetricRecord pushes a record onto extractedKnowledge.metrics.<type>,
// stamping it and evicting the oldest entries past the retention cap.
func AppendMetricRecord(kb *entity.KnowledgeBase, metricType string, record map[string]interface{}) {
	if kb.ExtractedKnowledge == nil {
		kb.ExtractedKnowledge = map[string]interface{}{}
	}

	metrics, _ := kb.ExtractedKnowledge["metrics"].(map[string]interface{})
	if metrics == nil {
		metrics = map[string]interface{}{}
	}

	list := toInterfaceSlice(metrics[metricType])

	stamped := make(map[string]interface{}, len(record)+1)
	for k, v := range record {
		stamped[k] = v
	}
	stamped["recordedAt"] = time.Now().UTC().Format(time.RFC3339)

	list = append(list, stamped)
	if len(list) > constant.MaxMetricEntries {
		list = list[len(list)-constant.MaxMetricEntries:]
	}

	metrics[metricType] = list
	kb.ExtractedKnowledge["metrics"] = metrics
}

func toInterfaceSlice(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case nil:
		return nil
	}
	return nil
}
