package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type DocumentChunk struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChunkId   string    `gorm:"index"`
	Content   string
	Source    string
	Embedding pgvector.Vector `gorm:"type:vector(1536)"`
	CreatedAt time.Time
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
