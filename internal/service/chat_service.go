package service

import (
	"context"

	"medirag-be/internal/dto"
	"medirag-be/pkg/rag/pipeline"

	"go.uber.org/zap"
)

type IChatService interface {
	Send(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
}

type chatService struct {
	runner *pipeline.Runner
	logger *zap.Logger
}

func NewChatService(runner *pipeline.Runner, logger *zap.Logger) IChatService {
	return &chatService{runner: runner, logger: logger}
}

func (s *chatService) Send(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	result, err := s.runner.RunTurn(ctx, req.Question)
	if err != nil {
		// A partial answer still goes back to the caller.
		if result != nil && result.FinalAnswer != "" {
			s.logger.Warn("turn failed with partial answer", zap.Error(err))
			return toChatResponse(result), nil
		}
		return nil, err
	}
	return toChatResponse(result), nil
}

func toChatResponse(result *pipeline.TurnResult) *dto.SendChatResponse {
	res := &dto.SendChatResponse{FinalAnswer: result.FinalAnswer}
	if result.Structured != nil {
		res.Structured = &dto.StructuredAnswerDTO{
			Answer:         result.Structured.Answer,
			References:     result.Structured.References,
			LLMScore:       result.Structured.LLMScore,
			RelevanceScore: result.Structured.RelevanceScore,
			Type:           result.Structured.Type,
		}
	}
	return res
}
