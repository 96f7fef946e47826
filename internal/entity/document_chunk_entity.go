package entity

import (
	"time"

	"github.com/google/uuid"
)

// DocumentChunk is one embedded slice of a source document in the
// vector table the retrieval stage searches against.
type DocumentChunk struct {
	Id        uuid.UUID
	ChunkId   string // stable source identifier, used for dedup and citation
	Content   string
	Source    string
	Embedding []float32
	CreatedAt time.Time
}
