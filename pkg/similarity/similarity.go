// Package similarity decides whether two insight strings denote the same
// fact: cosine similarity over embeddings when both sides have (or can get)
// a vector, a lexical measure otherwise. Embedding trouble never blocks the
// decision, it only degrades the method.
package similarity

import (
	"context"
	"math"

	"org-knowledge-be/internal/entity"
	"org-knowledge-be/internal/pkg/logger"
	"org-knowledge-be/pkg/embedding"

	"github.com/google/uuid"
)

type Method string

const (
	MethodSemantic Method = "semantic"
	MethodString   Method = "string"
)

type Decision struct {
	IsDuplicate bool
	Method      Method
	Score       float64
}

type Config struct {
	SemanticThreshold float64
	LexicalThreshold  float64
}

func DefaultConfig() Config {
	return Config{
		SemanticThreshold: 0.85,
		LexicalThreshold:  0.85,
	}
}

// BackfillFunc persists an on-demand embedding onto a stored event.
// Implementations are fire-and-forget; failures must be handled internally.
type BackfillFunc func(eventId uuid.UUID, values []float32, model string)

type Service struct {
	provider embedding.Provider // nil disables the semantic path
	cfg      Config
	log      logger.ILogger
	backfill BackfillFunc // optional
}

func NewService(provider embedding.Provider, cfg Config, log logger.ILogger, backfill BackfillFunc) *Service {
	if cfg.SemanticThreshold <= 0 {
		cfg.SemanticThreshold = DefaultConfig().SemanticThreshold
	}
	if cfg.LexicalThreshold <= 0 {
		cfg.LexicalThreshold = DefaultConfig().LexicalThreshold
	}
	return &Service{
		provider: provider,
		cfg:      cfg,
		log:      log,
		backfill: backfill,
	}
}

// IsDuplicate compares a stored event against a candidate insight. The
// candidate's embedding, if already computed by the caller's batch pass, is
// supplied directly; a missing embedding on the stored event is computed on
// demand and backfilled asynchronously.
func (s *Service) IsDuplicate(ctx context.Context, existing *entity.LearningEvent, candidateText string, candidateEmbedding []float32) Decision {
	existingEmbedding := existing.Embedding

	if len(existingEmbedding) == 0 && s.provider != nil {
		if res, err := s.provider.Generate(ctx, existing.Insight); err == nil && res != nil {
			existingEmbedding = res.Values
			if s.backfill != nil {
				go s.backfill(existing.Id, res.Values, res.Model)
			}
		} else if err != nil && s.log != nil {
			s.log.Warn("SimilarityService", "on-demand embedding failed, falling back to string similarity", map[string]interface{}{
				"eventId": existing.Id,
				"error":   err.Error(),
			})
		}
	}

	if len(existingEmbedding) > 0 && len(candidateEmbedding) > 0 {
		score := CosineSimilarity(existingEmbedding, candidateEmbedding)
		return Decision{
			IsDuplicate: score >= s.cfg.SemanticThreshold,
			Method:      MethodSemantic,
			Score:       score,
		}
	}

	score := LexicalSimilarity(existing.Insight, candidateText)
	return Decision{
		IsDuplicate: score >= s.cfg.LexicalThreshold,
		Method:      MethodString,
		Score:       score,
	}
}

// CosineSimilarity computes cosine similarity between two vectors,
// returning 0 for mismatched or zero-magnitude inputs.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}
