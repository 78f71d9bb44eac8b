package bootstrap

import (
	"log"
	"time"

	"org-knowledge-be/internal/config"
	"org-knowledge-be/internal/pkg/logger"
	"org-knowledge-be/internal/repository/unitofwork"
	"org-knowledge-be/internal/service"
	"org-knowledge-be/pkg/embedding"
	pktNats "org-knowledge-be/pkg/nats"
	"org-knowledge-be/pkg/similarity"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	KnowledgeBaseService service.IKnowledgeBaseService
	LearningEventService service.ILearningEventService
	EnrichmentService    service.IEnrichmentService
	AuditService         service.IAuditService

	// Background services, run by main.go.
	RecorderService service.IRecorderService

	NatsSubscriber *pktNats.Subscriber
	Logger         logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus (in-process channel for the recorder)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Embedding provider, wrapped with a short-lived cache
	var embeddingProvider embedding.Provider
	if cfg.Ai.EmbeddingProvider == "gemini" && cfg.Ai.GeminiApiKey != "" {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiApiKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	} else {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	}
	embeddingProvider = embedding.NewCachedProvider(embeddingProvider, 5*time.Minute)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsSub = nil
	}

	var redisClient *redis.Client
	if cfg.App.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Invalid REDIS_URL, apply locking falls back to in-process mutex: %v", err)
		} else {
			redisClient = redis.NewClient(opts)
		}
	}

	// 5. Services
	publisherService := service.NewPublisherService(pubSub)
	recorderService := service.NewRecorderService(pubSub, uowFactory, sysLogger)

	similarityService := similarity.NewService(
		embeddingProvider,
		similarity.Config{
			SemanticThreshold: cfg.Enrichment.Similarity.SemanticThreshold,
			LexicalThreshold:  cfg.Enrichment.Similarity.LexicalThreshold,
		},
		sysLogger,
		service.NewEmbeddingBackfill(uowFactory, sysLogger),
	)

	knowledgeBaseService := service.NewKnowledgeBaseService(uowFactory)
	learningEventService := service.NewLearningEventService(
		uowFactory,
		similarityService,
		embeddingProvider,
		publisherService,
		natsPub,
		cfg.Enrichment.Confidence.Default,
		sysLogger,
	)
	enrichmentService := service.NewEnrichmentService(
		uowFactory,
		publisherService,
		natsPub,
		redisClient,
		cfg.Enrichment,
		sysLogger,
	)
	auditService := service.NewAuditService(uowFactory)

	return &Container{
		KnowledgeBaseService: knowledgeBaseService,
		LearningEventService: learningEventService,
		EnrichmentService:    enrichmentService,
		AuditService:         auditService,
		RecorderService:      recorderService,
		NatsSubscriber:       natsSub,
		Logger:               sysLogger,
	}
}
