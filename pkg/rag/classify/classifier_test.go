package classify

import (
	"context"
	"testing"

	"medirag-be/pkg/llm"
	"medirag-be/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticLLM struct {
	response string
	err      error
	calls    int
}

func (s *staticLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return s.response, s.err
}

func (s *staticLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	s.calls++
	return s.response, s.err
}

func TestEmptyQuestionShortCircuits(t *testing.T) {
	provider := &staticLLM{response: `{"category": "의학 관련", "follow_up": false}`}
	c := NewClassifier(provider, zap.NewNop())

	state, err := c.Execute(context.Background(), workflow.NewState("   "))
	require.NoError(t, err)
	assert.Equal(t, workflow.TypeNonMedical, state.ConversationType)
	assert.Equal(t, "의학과 관련된 질문이 아닙니다. 의학과 관련된 질문을 주세요.", state.FinalAnswer)
	assert.Zero(t, provider.calls)
}

func TestMedicalQuestion(t *testing.T) {
	c := NewClassifier(&staticLLM{response: `{"category": "의학 관련", "follow_up": false}`}, zap.NewNop())

	state, err := c.Execute(context.Background(), workflow.NewState("당뇨병이 뭐야?"))
	require.NoError(t, err)
	assert.Equal(t, workflow.TypeMedical, state.ConversationType)
	assert.False(t, state.IsFollowUp)
	assert.Equal(t, "당뇨병이 뭐야?", state.OriginalQuestion)
	assert.Empty(t, state.FinalAnswer)
}

func TestFollowUpQuestion(t *testing.T) {
	c := NewClassifier(&staticLLM{response: `{"category": "의학 관련", "follow_up": true}`}, zap.NewNop())

	state, err := c.Execute(context.Background(), workflow.NewState("그것의 부작용은?"))
	require.NoError(t, err)
	assert.Equal(t, workflow.TypeMedical, state.ConversationType)
	assert.True(t, state.IsFollowUp)
}

func TestUserInfoQuestion(t *testing.T) {
	c := NewClassifier(&staticLLM{response: `{"category": "신상정보", "follow_up": false}`}, zap.NewNop())

	state, err := c.Execute(context.Background(), workflow.NewState("내 이름은 홍길동이야"))
	require.NoError(t, err)
	assert.Equal(t, workflow.TypeUserInfo, state.ConversationType)
}

func TestNonMedicalQuestion(t *testing.T) {
	c := NewClassifier(&staticLLM{response: `{"category": "일반 잡담", "follow_up": false}`}, zap.NewNop())

	state, err := c.Execute(context.Background(), workflow.NewState("오늘 날씨 어때?"))
	require.NoError(t, err)
	assert.Equal(t, workflow.TypeNonMedical, state.ConversationType)
	// Routing, not the classifier, decides what to answer.
	assert.Empty(t, state.FinalAnswer)
}

func TestMalformedOutputFailsOpenToMedical(t *testing.T) {
	c := NewClassifier(&staticLLM{response: "의학 관련"}, zap.NewNop())

	state, err := c.Execute(context.Background(), workflow.NewState("두통이 심해요"))
	require.NoError(t, err)
	assert.Equal(t, workflow.TypeMedical, state.ConversationType)
}

func TestProviderFailureFailsOpenToMedical(t *testing.T) {
	c := NewClassifier(&staticLLM{err: assert.AnError}, zap.NewNop())

	state, err := c.Execute(context.Background(), workflow.NewState("두통이 심해요"))
	require.NoError(t, err)
	assert.Equal(t, workflow.TypeMedical, state.ConversationType)
}
