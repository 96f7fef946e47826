package evaluate

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"medirag-be/pkg/llm"
	"medirag-be/pkg/rag"
	"medirag-be/pkg/workflow"

	"go.uber.org/zap"
)

// Relevance defaults when the judgment text carries no usable score.
const (
	defaultHighScore = 0.80
	defaultLowScore  = 0.30
)

const evaluatePromptTemplate = `질문: %s

검색된 컨텍스트:
---
%s
---

위 컨텍스트가 질문에 답변하기에 충분히 관련성이 있는지 평가하세요.

다음 형식으로만 답변하세요:
관련성: [높음/낮음]
점수: [0.0-1.0 사이의 숫자]
이유: [간단한 설명]`

// Evaluator scores the retrieved context against the question and
// decides whether the pipeline answers, rewrites, or gives up.
type Evaluator struct {
	provider llm.LLMProvider
	logger   *zap.Logger
}

func NewEvaluator(provider llm.LLMProvider, logger *zap.Logger) *Evaluator {
	return &Evaluator{provider: provider, logger: logger}
}

func (e *Evaluator) Execute(ctx context.Context, state *workflow.State) (*workflow.State, error) {
	question := strings.TrimSpace(state.Question)

	if question == "" || state.Context == "" {
		state.IsRelevant = false
		state.RelevanceScore = 0.0
		state.EvaluationNote = ""
		e.markExhausted(state)
		return state, nil
	}

	prompt := fmt.Sprintf(evaluatePromptTemplate, question, state.Context)
	result, err := e.provider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		e.logger.Warn("relevance evaluation failed, treating context as irrelevant", zap.Error(err))
		state.IsRelevant = false
		state.RelevanceScore = 0.0
		state.EvaluationNote = ""
		e.markExhausted(state)
		return state, nil
	}

	if strings.Contains(result, "높음") {
		state.IsRelevant = true
		state.RelevanceScore = defaultHighScore
	} else {
		state.IsRelevant = false
		state.RelevanceScore = defaultLowScore
	}
	if score, ok := parseScore(result); ok {
		state.RelevanceScore = score
	}
	state.EvaluationNote = result

	e.logger.Info("context evaluated",
		zap.Bool("is_relevant", state.IsRelevant),
		zap.Float64("relevance_score", state.RelevanceScore))

	e.markExhausted(state)
	return state, nil
}

// markExhausted pre-populates the give-up answer once the single
// allowed rewrite has already been spent, so the generator can
// short-circuit instead of prompting against irrelevant context.
func (e *Evaluator) markExhausted(state *workflow.State) {
	if state.IsRelevant || state.RewriteCount < 1 {
		return
	}
	message := rag.NoDocumentsFound
	answerType := workflow.AnswerTypeInternal
	if state.IsTerminology {
		message = rag.NoInfoFound
		answerType = workflow.AnswerTypeExternal
	}
	state.Structured = &workflow.StructuredAnswer{
		Answer:         message,
		References:     []string{},
		LLMScore:       0.0,
		RelevanceScore: 0.0,
		Type:           answerType,
	}
}

// parseScore pulls the numeric score off a "점수:" line.
func parseScore(result string) (float64, bool) {
	_, after, found := strings.Cut(result, "점수:")
	if !found {
		return 0, false
	}
	line := after
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.Trim(strings.TrimSpace(line), "[]")
	score, err := strconv.ParseFloat(line, 64)
	if err != nil {
		return 0, false
	}
	return math.Round(score*100) / 100, true
}

// Route picks the next stage after evaluation.
func Route(state *workflow.State) string {
	if state.IsRelevant {
		return "generate_answer"
	}
	if state.RewriteCount >= 1 {
		return "generate_answer"
	}
	return "rewrite_query"
}
