package rewrite

import (
	"context"
	"fmt"
	"strings"

	"medirag-be/pkg/llm"
	"medirag-be/pkg/workflow"

	"go.uber.org/zap"
)

const rewritePromptTemplate = `원래 질문: %s
%s%s
위 질문을 더 명확하고 정보 검색에 적합하도록 재작성해주세요.
재작성 시 다음을 고려하세요:
1. 핵심 키워드를 명확히
2. 모호한 표현을 구체화
3. 검색 엔진이 이해하기 쉬운 형태로
4. 원래 질문의 주제를 벗어나지 마세요

재작성된 질문만 출력하세요.`

// Rewriter reformulates the question after a failed relevance check.
// The rewrite counter advances even when the model call fails so the
// evaluator cannot send the pipeline around the loop again.
type Rewriter struct {
	provider llm.LLMProvider
	logger   *zap.Logger
}

func NewRewriter(provider llm.LLMProvider, logger *zap.Logger) *Rewriter {
	return &Rewriter{provider: provider, logger: logger}
}

func (r *Rewriter) Execute(ctx context.Context, state *workflow.State) (*workflow.State, error) {
	question := strings.TrimSpace(state.Question)
	state.RewriteCount++

	if question == "" {
		return state, nil
	}

	var evaluationPart string
	if state.EvaluationNote != "" {
		evaluationPart = fmt.Sprintf("\n이전 검색 평가 결과: %s\n", state.EvaluationNote)
	}
	var historyPart string
	if state.IsFollowUp && state.HistoryBundle().LastConversation != "" {
		historyPart = fmt.Sprintf("\n직전 대화: %s\n", state.HistoryBundle().LastConversation)
	}

	prompt := fmt.Sprintf(rewritePromptTemplate, question, evaluationPart, historyPart)
	rewritten, err := r.provider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		r.logger.Warn("question rewrite failed, retrying with original question", zap.Error(err))
		return state, nil
	}

	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return state, nil
	}

	state.RewrittenQuestion = rewritten
	state.Question = rewritten

	r.logger.Info("question rewritten",
		zap.String("rewritten_question", rewritten),
		zap.Int("rewrite_count", state.RewriteCount))

	return state, nil
}
