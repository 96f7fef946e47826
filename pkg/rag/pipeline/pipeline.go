package pipeline

import (
	"context"

	"medirag-be/internal/repository/contract"
	"medirag-be/pkg/embedding"
	"medirag-be/pkg/llm"
	"medirag-be/pkg/memory"
	"medirag-be/pkg/rag/answer"
	"medirag-be/pkg/rag/classify"
	"medirag-be/pkg/rag/evaluate"
	"medirag-be/pkg/rag/medcheck"
	"medirag-be/pkg/rag/retrieve"
	"medirag-be/pkg/rag/rewrite"
	"medirag-be/pkg/rag/websearch"
	"medirag-be/pkg/search/tavily"
	"medirag-be/pkg/workflow"

	"go.uber.org/zap"
)

// Deps carries everything the default stage set needs. Zero limits
// select the stage defaults.
type Deps struct {
	LLM        llm.LLMProvider
	Embedder   embedding.Provider
	Chunks     contract.DocumentChunkRepository
	Search     tavily.Searcher
	Memory     *memory.Service
	Logger     *zap.Logger
	MaxSteps   int
	TopK       int
	WebResults int
}

// Stage names used by the routing tables.
const (
	NodeClassifier    = "classifier"
	NodeMemoryRead    = "memory_read"
	NodeMemoryWrite   = "memory_write"
	NodeMedicalCheck  = "medical_check"
	NodeWebSearch     = "web_search"
	NodeRetrieval     = "retrieval"
	NodeEvaluateChunk = "evaluate_chunk"
	NodeRewriteQuery  = "rewrite_query"
	NodeGenerate      = "generate_answer"
)

// TurnResult is what a caller gets back for one question.
type TurnResult struct {
	FinalAnswer string                     `json:"final_answer"`
	Structured  *workflow.StructuredAnswer `json:"structured_answer,omitempty"`
}

// Runner wires the stages into the medical answering workflow and
// executes it one turn at a time.
type Runner struct {
	graph    *workflow.Graph
	logger   *zap.Logger
	maxSteps int
}

// Stages collects the stage implementations the runner routes between.
// Each field satisfies workflow.Stage.
type Stages struct {
	Classifier   workflow.Stage
	MedicalCheck workflow.Stage
	WebSearch    workflow.Stage
	Retrieval    workflow.Stage
	Evaluate     workflow.Stage
	Rewrite      workflow.Stage
	Generate     workflow.Stage
}

func NewRunner(stages Stages, mem *memory.Service, logger *zap.Logger, maxSteps int) *Runner {
	if maxSteps <= 0 {
		maxSteps = workflow.DefaultMaxSteps
	}

	graph := workflow.NewGraph()
	graph.Register(NodeClassifier, stages.Classifier)
	graph.Register(NodeMemoryRead, workflow.StageFunc(func(ctx context.Context, state *workflow.State) (*workflow.State, error) {
		state.History = mem.Read(ctx)
		return state, nil
	}))
	graph.Register(NodeMedicalCheck, stages.MedicalCheck)
	graph.Register(NodeWebSearch, stages.WebSearch)
	graph.Register(NodeRetrieval, stages.Retrieval)
	graph.Register(NodeEvaluateChunk, stages.Evaluate)
	graph.Register(NodeRewriteQuery, stages.Rewrite)
	graph.Register(NodeGenerate, stages.Generate)
	graph.Register(NodeMemoryWrite, workflow.StageFunc(func(ctx context.Context, state *workflow.State) (*workflow.State, error) {
		return state, mem.Write(ctx, state)
	}))

	graph.SetEntry(NodeClassifier)

	// An empty question is answered by the classifier itself and never
	// touches the store.
	graph.AddConditionalEdge(NodeClassifier, func(state *workflow.State) string {
		if state.FinalAnswer != "" {
			return workflow.End
		}
		return NodeMemoryRead
	}, map[string]string{
		workflow.End:   workflow.End,
		NodeMemoryRead: NodeMemoryRead,
	})

	graph.AddConditionalEdge(NodeMemoryRead, func(state *workflow.State) string {
		if state.ConversationType == workflow.TypeMedical {
			return NodeMedicalCheck
		}
		return NodeGenerate
	}, map[string]string{
		NodeMedicalCheck: NodeMedicalCheck,
		NodeGenerate:     NodeGenerate,
	})

	graph.AddConditionalEdge(NodeMedicalCheck, func(state *workflow.State) string {
		if state.IsTerminology {
			return NodeWebSearch
		}
		return NodeRetrieval
	}, map[string]string{
		NodeWebSearch: NodeWebSearch,
		NodeRetrieval: NodeRetrieval,
	})

	graph.AddEdge(NodeWebSearch, NodeEvaluateChunk)
	graph.AddEdge(NodeRetrieval, NodeEvaluateChunk)
	graph.AddConditionalEdge(NodeEvaluateChunk, evaluate.Route, map[string]string{
		NodeGenerate:     NodeGenerate,
		NodeRewriteQuery: NodeRewriteQuery,
	})
	graph.AddEdge(NodeRewriteQuery, NodeRetrieval)

	graph.AddConditionalEdge(NodeGenerate, func(state *workflow.State) string {
		if state.HasAnswer() {
			return NodeMemoryWrite
		}
		return workflow.End
	}, map[string]string{
		NodeMemoryWrite: NodeMemoryWrite,
		workflow.End:    workflow.End,
	})
	graph.AddEdge(NodeMemoryWrite, workflow.End)

	return &Runner{graph: graph, logger: logger, maxSteps: maxSteps}
}

// NewDefaultRunner builds the runner from the concrete stage
// implementations.
func NewDefaultRunner(deps Deps) *Runner {
	stages := Stages{
		Classifier:   classify.NewClassifier(deps.LLM, deps.Logger),
		MedicalCheck: medcheck.NewChecker(deps.LLM, deps.Logger),
		WebSearch:    websearch.NewSearcher(deps.Search, deps.Logger, deps.WebResults),
		Retrieval:    retrieve.NewRetriever(deps.Embedder, deps.Chunks, deps.Logger, deps.TopK),
		Evaluate:     evaluate.NewEvaluator(deps.LLM, deps.Logger),
		Rewrite:      rewrite.NewRewriter(deps.LLM, deps.Logger),
		Generate:     answer.NewGenerator(deps.LLM, deps.Logger),
	}
	return NewRunner(stages, deps.Memory, deps.Logger, deps.MaxSteps)
}

// RunTurn executes one full question/answer cycle. On failure the
// partially computed answer, when present, is still returned beside
// the error.
func (r *Runner) RunTurn(ctx context.Context, question string) (*TurnResult, error) {
	state, err := r.graph.Run(ctx, workflow.NewState(question), r.maxSteps)
	if state == nil {
		return nil, err
	}
	if err != nil {
		r.logger.Error("workflow turn failed", zap.Error(err))
		return &TurnResult{FinalAnswer: state.FinalAnswer, Structured: state.Structured}, err
	}
	return &TurnResult{FinalAnswer: state.FinalAnswer, Structured: state.Structured}, nil
}
