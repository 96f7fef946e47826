package medcheck

import (
	"context"
	"fmt"
	"strings"

	"medirag-be/pkg/llm"
	"medirag-be/pkg/workflow"

	"go.uber.org/zap"
)

const terminologyPromptTemplate = `사용자의 질문:
---
%s
---
이 질문이 의학 용어나 질병명의 '정의', '뜻', '의미'를 묻는 질문입니까?

예시:
- "당뇨병이 뭐야?" → 용어 질문
- "고혈압의 정의는?" → 용어 질문
- "당뇨병 치료 방법은?" → 용어 질문 아님
- "두통이 있을 때 어떻게 해야 해?" → 용어 질문 아님

'용어 질문' 또는 '일반 질문' 중 하나만 출력하세요.`

// Checker decides whether a medical question asks for the definition
// of a term. Terminology questions go to web search, everything else
// to document retrieval.
type Checker struct {
	provider llm.LLMProvider
	logger   *zap.Logger
}

func NewChecker(provider llm.LLMProvider, logger *zap.Logger) *Checker {
	return &Checker{provider: provider, logger: logger}
}

func (c *Checker) Execute(ctx context.Context, state *workflow.State) (*workflow.State, error) {
	question := strings.TrimSpace(state.Question)

	prompt := fmt.Sprintf(terminologyPromptTemplate, question)
	result, err := c.provider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		c.logger.Warn("terminology check failed, treating as general question", zap.Error(err))
		state.IsTerminology = false
		return state, nil
	}

	state.IsTerminology = strings.Contains(result, "용어")

	c.logger.Info("terminology check done", zap.Bool("is_terminology", state.IsTerminology))

	return state, nil
}
