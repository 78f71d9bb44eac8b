package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"org-knowledge-be/internal/bootstrap"
	"org-knowledge-be/internal/config"
	"org-knowledge-be/internal/constant"
	"org-knowledge-be/internal/dto"
	"org-knowledge-be/internal/tracer"
	"org-knowledge-be/pkg/database"
	"org-knowledge-be/pkg/events"

	"github.com/google/uuid"
)

// The enrichment worker drains the recorder channel and applies learning
// events whenever a creation batch lands on the bus.
func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Start the recorder (audit + metrics consumer)
	log.Println("Background: starting recorder service...")
	if err := container.RecorderService.Consume(ctx); err != nil {
		log.Panicf("Unable to start recorder service: %v", err)
	}

	// 5. Apply on every creation batch
	if container.NatsSubscriber != nil {
		err := container.NatsSubscriber.Subscribe(
			constant.EventLearningEventsCreated,
			"enrichment-worker",
			func(ctx context.Context, evt events.Event) error {
				raw, _ := evt.Payload()["knowledge_base_id"].(string)
				kbId, err := uuid.Parse(raw)
				if err != nil {
					log.Printf("Ignoring event with bad knowledge_base_id %q: %v", raw, err)
					return nil
				}

				resp, err := container.EnrichmentService.Apply(ctx, &dto.ApplyLearningEventsRequest{
					KnowledgeBaseId: kbId,
					TriggeredBy:     "enrichment-worker",
				})
				if err != nil {
					return err
				}
				log.Printf("Apply run for %s: processed=%d applied=%d skipped=%d version=%d",
					kbId, resp.Processed, resp.Applied, resp.Skipped, resp.EnrichmentVersion)
				return nil
			},
		)
		if err != nil {
			log.Printf("[WARN] Failed to subscribe to %s: %v", constant.EventLearningEventsCreated, err)
		}
	} else {
		log.Println("[WARN] NATS unavailable; worker only drains the recorder channel")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("Shutting down enrichment worker")
}
