package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/mapper"
	"org-knowledge-be/internal/repository/contract"
	"org-knowledge-be/internal/repository/specification"
	"org-knowledge-be/internal/repository/unitofwork"
	"org-knowledge-be/pkg/embedding"

	"github.com/google/uuid"
)

// In-memory doubles for the persistence layer. They interpret the same
// specification values the GORM implementations translate to SQL, so service
// tests exercise the real query composition.

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type capturedMessage struct {
	topic   string
	payload interface{}
}

type capturingPublisher struct {
	mu       sync.Mutex
	messages []capturedMessage
}

func (p *capturingPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, capturedMessage{topic: topic, payload: payload})
	return nil
}

func (p *capturingPublisher) byTopic(topic string) []capturedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []capturedMessage
	for _, m := range p.messages {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

type fakeStore struct {
	mu     sync.Mutex
	events []*entity.LearningEvent
	kbs    map[uuid.UUID]*entity.KnowledgeBase
	audits []*entity.KnowledgeAuditLog
}

func newFakeStore() *fakeStore {
	return &fakeStore{kbs: map[uuid.UUID]*entity.KnowledgeBase{}}
}

type fakeFactory struct{ store *fakeStore }

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

func newFakeFactory(store *fakeStore) unitofwork.RepositoryFactory {
	return &fakeFactory{store: store}
}

type fakeUow struct{ store *fakeStore }

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) LearningEventRepository() contract.LearningEventRepository {
	return &fakeEventRepo{store: u.store}
}
func (u *fakeUow) KnowledgeBaseRepository() contract.KnowledgeBaseRepository {
	return &fakeKBRepo{store: u.store}
}
func (u *fakeUow) KnowledgeAuditLogRepository() contract.KnowledgeAuditLogRepository {
	return &fakeAuditRepo{store: u.store}
}

// --- learning event repository ---

type fakeEventRepo struct{ store *fakeStore }

func (r *fakeEventRepo) Create(ctx context.Context, ev *entity.LearningEvent) error {
	inserted, err := r.CreateBulk(ctx, []*entity.LearningEvent{ev})
	if err != nil {
		return err
	}
	if len(inserted) == 0 {
		return fmt.Errorf("duplicate insight")
	}
	return nil
}

func (r *fakeEventRepo) CreateBulk(ctx context.Context, events []*entity.LearningEvent) ([]*entity.LearningEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing := map[string]struct{}{}
	for _, ev := range r.store.events {
		existing[ev.KnowledgeBaseId.String()+"/"+mapper.InsightHash(ev.Insight)] = struct{}{}
	}

	var inserted []*entity.LearningEvent
	for _, ev := range events {
		key := ev.KnowledgeBaseId.String() + "/" + mapper.InsightHash(ev.Insight)
		if _, dup := existing[key]; dup {
			continue
		}
		existing[key] = struct{}{}
		ev.Id = uuid.New()
		r.store.events = append(r.store.events, ev)
		inserted = append(inserted, ev)
	}
	return inserted, nil
}

func (r *fakeEventRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.LearningEvent, error) {
	all, err := r.FindAll(ctx, specs...)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[0], nil
}

func (r *fakeEventRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.LearningEvent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var out []*entity.LearningEvent
	for _, ev := range r.store.events {
		if eventMatches(ev, specs) {
			out = append(out, ev)
		}
	}
	applyOrdering(out, specs)
	return applyLimits(out, specs), nil
}

func (r *fakeEventRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, ev := range r.store.events {
		if eventMatches(ev, specs) {
			n++
		}
	}
	return n, nil
}

func (r *fakeEventRepo) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32, embeddingModel string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, ev := range r.store.events {
		if ev.Id == id {
			ev.Embedding = embedding
			ev.EmbeddingModel = &embeddingModel
			return nil
		}
	}
	return nil
}

func (r *fakeEventRepo) MarkApplied(ctx context.Context, ids []uuid.UUID, appliedAt time.Time, appliedToFields map[uuid.UUID][]string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	idSet := map[uuid.UUID]struct{}{}
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	for _, ev := range r.store.events {
		if _, ok := idSet[ev.Id]; !ok || ev.Applied {
			continue
		}
		ev.Applied = true
		at := appliedAt
		ev.AppliedAt = &at
		ev.AppliedToFields = appliedToFields[ev.Id]
	}
	return nil
}

func eventMatches(ev *entity.LearningEvent, specs []specification.Specification) bool {
	for _, s := range specs {
		switch spec := s.(type) {
		case specification.ByID:
			if ev.Id != spec.ID {
				return false
			}
		case specification.ByIDs:
			found := false
			for _, id := range spec.IDs {
				if ev.Id == id {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case specification.ByKnowledgeBaseID:
			if ev.KnowledgeBaseId != spec.KnowledgeBaseID {
				return false
			}
		case specification.ByCategories:
			found := false
			for _, c := range spec.Categories {
				if ev.Category == c {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case specification.Unapplied:
			if ev.Applied {
				return false
			}
		case specification.MinConfidence:
			if ev.Confidence < spec.Min {
				return false
			}
		case specification.CreatedAfter:
			if ev.CreatedAt.Before(spec.After) {
				return false
			}
		case specification.CreatedAfterCursor:
			if !ev.CreatedAt.After(spec.CreatedAt) {
				if !ev.CreatedAt.Equal(spec.CreatedAt) || strings.Compare(ev.Id.String(), spec.ID.String()) <= 0 {
					return false
				}
			}
		case specification.BySourceID:
			found := false
			for _, sid := range ev.SourceIds {
				if sid == spec.SourceID {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

func applyOrdering(events []*entity.LearningEvent, specs []specification.Specification) {
	var orders []specification.OrderBy
	for _, s := range specs {
		if o, ok := s.(specification.OrderBy); ok {
			orders = append(orders, o)
		}
	}
	if len(orders) == 0 {
		return
	}
	sort.SliceStable(events, func(i, j int) bool {
		for _, o := range orders {
			var cmp int
			switch o.Field {
			case "created_at":
				switch {
				case events[i].CreatedAt.Before(events[j].CreatedAt):
					cmp = -1
				case events[i].CreatedAt.After(events[j].CreatedAt):
					cmp = 1
				}
			case "id":
				cmp = strings.Compare(events[i].Id.String(), events[j].Id.String())
			case "confidence":
				cmp = events[i].Confidence - events[j].Confidence
			}
			if cmp == 0 {
				continue
			}
			if o.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func applyLimits(events []*entity.LearningEvent, specs []specification.Specification) []*entity.LearningEvent {
	for _, s := range specs {
		switch spec := s.(type) {
		case specification.Limit:
			if len(events) > spec.Limit {
				events = events[:spec.Limit]
			}
		case specification.Pagination:
			if spec.Offset >= len(events) {
				return nil
			}
			events = events[spec.Offset:]
			if len(events) > spec.Limit {
				events = events[:spec.Limit]
			}
		}
	}
	return events
}

// --- knowledge base repository ---

type fakeKBRepo struct{ store *fakeStore }

func (r *fakeKBRepo) Upsert(ctx context.Context, kb *entity.KnowledgeBase) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.kbs {
		if existing.OrganizationId == kb.OrganizationId {
			return nil
		}
	}
	clone := cloneKB(kb)
	r.store.kbs[clone.Id] = clone
	return nil
}

func (r *fakeKBRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeBase, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, kb := range r.store.kbs {
		if kbMatches(kb, specs) {
			return cloneKB(kb), nil
		}
	}
	return nil, nil
}

func (r *fakeKBRepo) UpdateVersioned(ctx context.Context, kb *entity.KnowledgeBase, expectedVersion int) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.kbs[kb.Id]
	if !ok || stored.Version != expectedVersion {
		return false, nil
	}
	r.store.kbs[kb.Id] = cloneKB(kb)
	return true, nil
}

func kbMatches(kb *entity.KnowledgeBase, specs []specification.Specification) bool {
	for _, s := range specs {
		switch spec := s.(type) {
		case specification.ByID:
			if kb.Id != spec.ID {
				return false
			}
		case specification.ByOrganizationID:
			if kb.OrganizationId != spec.OrganizationID {
				return false
			}
		}
	}
	return true
}

func cloneKB(kb *entity.KnowledgeBase) *entity.KnowledgeBase {
	clone := *kb
	clone.CoreServices = append([]string(nil), kb.CoreServices...)
	clone.ToolStack = append([]string(nil), kb.ToolStack...)
	clone.ProofPoints = append([]string(nil), kb.ProofPoints...)
	if kb.ExtractedKnowledge != nil {
		clone.ExtractedKnowledge = deepCopyMap(kb.ExtractedKnowledge)
	}
	return &clone
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case map[string]interface{}:
			out[k] = deepCopyMap(t)
		case []interface{}:
			cp := make([]interface{}, len(t))
			copy(cp, t)
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}

// --- audit repository ---

type fakeAuditRepo struct{ store *fakeStore }

func (r *fakeAuditRepo) Create(ctx context.Context, log *entity.KnowledgeAuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.audits = append(r.store.audits, log)
	return nil
}

func (r *fakeAuditRepo) CreateBulk(ctx context.Context, logs []*entity.KnowledgeAuditLog) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.audits = append(r.store.audits, logs...)
	return nil
}

func (r *fakeAuditRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeAuditLog, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.KnowledgeAuditLog
	for _, l := range r.store.audits {
		if auditMatches(l, specs) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func auditMatches(l *entity.KnowledgeAuditLog, specs []specification.Specification) bool {
	for _, s := range specs {
		switch spec := s.(type) {
		case specification.ByKnowledgeBaseID:
			if l.KnowledgeBaseId != spec.KnowledgeBaseID {
				return false
			}
		case specification.ByEventID:
			if l.EventId != spec.EventID {
				return false
			}
		}
	}
	return true
}

// --- embedding provider ---

// stubEmbedder returns fixed vectors per text; unknown texts get nil results
// (forcing the lexical path). failAll simulates a provider outage.
type stubEmbedder struct {
	vectors map[string][]float32
	failAll bool
}

func (s *stubEmbedder) Generate(ctx context.Context, text string) (*embedding.Result, error) {
	if s.failAll {
		return nil, fmt.Errorf("embedding provider unavailable")
	}
	if v, ok := s.vectors[text]; ok {
		return &embedding.Result{Values: v, Model: "stub-model"}, nil
	}
	return nil, fmt.Errorf("no vector for text")
}

func (s *stubEmbedder) GenerateBatch(ctx context.Context, texts []string) ([]*embedding.Result, error) {
	if s.failAll {
		return nil, fmt.Errorf("embedding provider unavailable")
	}
	results := make([]*embedding.Result, len(texts))
	for i, text := range texts {
		if v, ok := s.vectors[text]; ok {
			results[i] = &embedding.Result{Values: v, Model: "stub-model"}
		}
	}
	return results, nil
}
