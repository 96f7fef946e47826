package contract

import (
	"context"

	"medirag-be/internal/entity"
)

// ScoredDocumentChunk pairs a chunk with its cosine similarity to a query.
type ScoredDocumentChunk struct {
	Chunk      *entity.DocumentChunk
	Similarity float64
}

// DocumentChunkRepository is the vector table the retrieval stage
// searches. The similarity backend itself is a black box; this contract
// is its binding point.
type DocumentChunkRepository interface {
	Create(ctx context.Context, chunk *entity.DocumentChunk) error
	CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error
	Count(ctx context.Context) (int64, error)
	// SearchSimilarWithScore returns the limit nearest chunks by cosine
	// distance, best first.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int) ([]*ScoredDocumentChunk, error)
}
