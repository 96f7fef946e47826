package bootstrap

import (
	"log"

	"medirag-be/internal/config"
	"medirag-be/internal/controller"
	appLogger "medirag-be/internal/pkg/logger"
	"medirag-be/internal/repository/implementation"
	"medirag-be/internal/service"
	"medirag-be/pkg/embedding"
	"medirag-be/pkg/llm/factory"
	"medirag-be/pkg/memory"
	"medirag-be/pkg/rag/pipeline"
	"medirag-be/pkg/search/tavily"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController

	// Background services (exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Shared infrastructure
	Runner *pipeline.Runner
	Logger *zap.Logger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	zapLogger := appLogger.New(cfg.App.LogFilePath, cfg.App.Environment == "production")

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))

	// 2. AI providers
	llmBaseURL := cfg.Ai.LLMBaseURL
	if cfg.Ai.LLMProvider == "ollama" {
		llmBaseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, llmBaseURL, cfg.Keys.OpenAI)
	if err != nil {
		log.Panicf("Unable to create LLM provider: %v", err)
	}

	var embedder embedding.Provider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		embedder = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)
	default:
		embedder = embedding.NewOpenAIProvider(cfg.Keys.OpenAI, cfg.Ai.LLMBaseURL, cfg.Ai.EmbeddingModel)
	}

	searchClient := tavily.NewClient(cfg.Keys.Tavily)

	// 3. Repositories
	turnRepo := implementation.NewConversationTurnRepository(db)
	counterRepo := implementation.NewTurnCounterRepository(db)
	chunkRepo := implementation.NewDocumentChunkRepository(db)

	// 4. Memory service
	extractor := memory.NewExtractor(llmProvider, zapLogger)
	memoryService := memory.NewService(turnRepo, counterRepo, extractor, pubSub, zapLogger, cfg.Workflow.MemoryReadLimit)

	// 5. Workflow
	runner := pipeline.NewDefaultRunner(pipeline.Deps{
		LLM:        llmProvider,
		Embedder:   embedder,
		Chunks:     chunkRepo,
		Search:     searchClient,
		Memory:     memoryService,
		Logger:     zapLogger,
		MaxSteps:   cfg.Workflow.MaxSteps,
		TopK:       cfg.Workflow.RetrievalTopK,
		WebResults: cfg.Workflow.WebSearchResults,
	})

	// 6. Services
	chatService := service.NewChatService(runner, zapLogger)
	documentService := service.NewDocumentService(chunkRepo, embedder, zapLogger)
	consumerService := service.NewConsumerService(pubSub, memoryService, zapLogger)

	// 7. Controllers
	return &Container{
		ChatController:     controller.NewChatController(chatService),
		DocumentController: controller.NewDocumentController(documentService),
		ConsumerService:    consumerService,
		Runner:             runner,
		Logger:             zapLogger,
	}
}
