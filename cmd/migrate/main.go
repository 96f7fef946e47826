package main

import (
	"log"

	"medirag-be/internal/config"
	"medirag-be/internal/model"
	"medirag-be/pkg/database"
)

func main() {
	cfg := config.Load()

	gormDB, err := database.NewGormDB(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// pgvector must be installed before the vector column can migrate.
	if err := gormDB.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		log.Panicf("Unable to create vector extension: %v", err)
	}

	if err := gormDB.AutoMigrate(
		&model.ConversationTurn{},
		&model.DocumentChunk{},
		&model.WorkflowMetadata{},
	); err != nil {
		log.Panicf("Migration failed: %v", err)
	}

	log.Println("Migration completed")
}
