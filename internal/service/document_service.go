package service

import (
	"context"

	"medirag-be/internal/dto"
	"medirag-be/internal/entity"
	"medirag-be/internal/repository/contract"
	"medirag-be/pkg/embedding"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type IDocumentService interface {
	Ingest(ctx context.Context, req *dto.IngestDocumentsRequest) (*dto.IngestDocumentsResponse, error)
}

type documentService struct {
	chunks   contract.DocumentChunkRepository
	embedder embedding.Provider
	logger   *zap.Logger
}

func NewDocumentService(chunks contract.DocumentChunkRepository, embedder embedding.Provider, logger *zap.Logger) IDocumentService {
	return &documentService{chunks: chunks, embedder: embedder, logger: logger}
}

func (s *documentService) Ingest(ctx context.Context, req *dto.IngestDocumentsRequest) (*dto.IngestDocumentsResponse, error) {
	entities := make([]*entity.DocumentChunk, 0, len(req.Chunks))
	for _, chunk := range req.Chunks {
		vector, err := s.embedder.Embed(ctx, chunk.Content)
		if err != nil {
			s.logger.Error("chunk embedding failed",
				zap.String("chunk_id", chunk.ChunkId), zap.Error(err))
			return nil, err
		}
		entities = append(entities, &entity.DocumentChunk{
			Id:        uuid.New(),
			ChunkId:   chunk.ChunkId,
			Content:   chunk.Content,
			Source:    chunk.Source,
			Embedding: vector,
		})
	}

	if err := s.chunks.CreateBulk(ctx, entities); err != nil {
		return nil, err
	}

	s.logger.Info("document chunks ingested", zap.Int("count", len(entities)))
	return &dto.IngestDocumentsResponse{Ingested: len(entities)}, nil
}
