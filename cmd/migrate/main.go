package main

import (
	"log"

	"org-knowledge-be/internal/config"
	"org-knowledge-be/internal/model"
	"org-knowledge-be/pkg/database"
)

func main() {
	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// Embedding columns need pgvector before the tables exist.
	if err := gormDB.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		log.Panicf("Unable to create vector extension: %v", err)
	}

	err = gormDB.AutoMigrate(
		&model.KnowledgeBase{},
		&model.LearningEvent{},
		&model.KnowledgeAuditLog{},
	)
	if err != nil {
		log.Panicf("Migration failed: %v", err)
	}

	log.Println("Migration completed")
}
