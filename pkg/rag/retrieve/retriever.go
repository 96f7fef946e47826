package retrieve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medirag-be/internal/repository/contract"
	"medirag-be/pkg/embedding"
	"medirag-be/pkg/workflow"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const DefaultTopK = 5

// Retriever embeds the current question and pulls the nearest document
// chunks from the vector store. Query embeddings are cached so the
// rewrite loop does not re-embed an unchanged question.
type Retriever struct {
	embedder       embedding.Provider
	chunks         contract.DocumentChunkRepository
	embeddingCache *gocache.Cache
	logger         *zap.Logger
	topK           int
}

func NewRetriever(embedder embedding.Provider, chunks contract.DocumentChunkRepository, logger *zap.Logger, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		embedder:       embedder,
		chunks:         chunks,
		embeddingCache: gocache.New(15*time.Minute, 30*time.Minute),
		logger:         logger,
		topK:           topK,
	}
}

func (r *Retriever) Execute(ctx context.Context, state *workflow.State) (*workflow.State, error) {
	question := strings.TrimSpace(state.Question)

	vector, err := r.embedQuery(ctx, question)
	if err != nil {
		r.logger.Warn("query embedding failed, continuing with empty context", zap.Error(err))
		return clearRetrieval(state), nil
	}

	scored, err := r.chunks.SearchSimilarWithScore(ctx, vector, r.topK)
	if err != nil {
		r.logger.Warn("similarity search failed, continuing with empty context", zap.Error(err))
		return clearRetrieval(state), nil
	}

	var (
		docs         []workflow.Document
		contextParts []string
		sources      []string
		seenChunkIds = make(map[string]bool)
	)
	for i, result := range scored {
		n := i + 1
		docs = append(docs, workflow.Document{
			Content: result.Chunk.Content,
			Metadata: map[string]string{
				"chunk_id": result.Chunk.ChunkId,
				"source":   result.Chunk.Source,
			},
			Score: result.Similarity,
		})
		contextParts = append(contextParts,
			fmt.Sprintf("[문서 %d] (관련도: %.2f)\n%s", n, result.Similarity, result.Chunk.Content))
		if !seenChunkIds[result.Chunk.ChunkId] {
			sources = append(sources, fmt.Sprintf("[%d] %s", n, result.Chunk.ChunkId))
			seenChunkIds[result.Chunk.ChunkId] = true
		}
	}

	state.RetrievedDocs = docs
	state.Context = strings.Join(contextParts, "\n\n")
	state.Sources = sources

	r.logger.Info("documents retrieved",
		zap.Int("count", len(docs)),
		zap.Int("rewrite_count", state.RewriteCount))

	return state, nil
}

func (r *Retriever) embedQuery(ctx context.Context, question string) ([]float32, error) {
	if cached, ok := r.embeddingCache.Get(question); ok {
		return cached.([]float32), nil
	}
	vector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, err
	}
	r.embeddingCache.Set(question, vector, gocache.DefaultExpiration)
	return vector, nil
}

func clearRetrieval(state *workflow.State) *workflow.State {
	state.RetrievedDocs = nil
	state.Context = ""
	state.Sources = nil
	return state
}
