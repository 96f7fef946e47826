package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"medirag-be/pkg/llm"
	"medirag-be/pkg/rag"
	"medirag-be/pkg/workflow"

	"go.uber.org/zap"
)

const classifyPromptTemplate = `사용자의 질문:
---
%s
---

이 질문을 다음 3가지 중 하나로 분류하세요:

1. **의학 관련**: 의학, 건강, 질병, 증상, 치료, 약물, 진단 등과 관련된 질문
2. **신상정보**: 사용자가 자신의 이름, 나이, 거주지, 직업, 성별, 취미, 가족관계 등 개인정보를 알려주거나 물어보는 경우
3. **일반 잡담**: 위 두 가지에 해당하지 않는 일반적인 대화나 질문

또한 질문에 대명사("이러한", "그것", "저것", "이", "그", "저" 등)나 생략된 주어가 있어
직전 대화에 이어지는 후속 질문으로 보이는지 판단하세요.

다음 JSON 형식으로만 출력하세요:
{"category": "의학 관련" | "신상정보" | "일반 잡담", "follow_up": true | false}`

type classification struct {
	Category string `json:"category"`
	FollowUp bool   `json:"follow_up"`
}

// Classifier decides how a question enters the pipeline. It is the
// entry stage, so it only sees the raw question; conversation history
// is not loaded yet.
type Classifier struct {
	provider llm.LLMProvider
	logger   *zap.Logger
}

func NewClassifier(provider llm.LLMProvider, logger *zap.Logger) *Classifier {
	return &Classifier{provider: provider, logger: logger}
}

func (c *Classifier) Execute(ctx context.Context, state *workflow.State) (*workflow.State, error) {
	question := strings.TrimSpace(state.Question)

	if state.OriginalQuestion == "" {
		state.OriginalQuestion = state.Question
	}

	if question == "" {
		state.ConversationType = workflow.TypeNonMedical
		state.FinalAnswer = rag.NonMedicalGuidance
		c.logger.Info("classifier short-circuit on empty question")
		return state, nil
	}

	prompt := fmt.Sprintf(classifyPromptTemplate, question)
	raw, err := c.provider.Generate(ctx, prompt,
		llm.WithTemperature(0.0),
		llm.WithJSONMode(),
	)
	if err != nil {
		// Fail open toward the main pipeline.
		c.logger.Warn("classification call failed, defaulting to medical", zap.Error(err))
		state.ConversationType = workflow.TypeMedical
		return state, nil
	}

	var result classification
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.Warn("malformed classification output, defaulting to medical",
			zap.String("raw", raw), zap.Error(err))
		state.ConversationType = workflow.TypeMedical
		return state, nil
	}

	switch {
	case strings.Contains(result.Category, "의학"):
		state.ConversationType = workflow.TypeMedical
	case strings.Contains(result.Category, "신상"):
		state.ConversationType = workflow.TypeUserInfo
	default:
		state.ConversationType = workflow.TypeNonMedical
	}
	state.IsFollowUp = result.FollowUp

	c.logger.Info("question classified",
		zap.String("conversation_type", state.ConversationType),
		zap.Bool("is_follow_up", state.IsFollowUp))

	return state, nil
}
