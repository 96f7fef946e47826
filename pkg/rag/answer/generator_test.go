package answer

import (
	"context"
	"strings"
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
	prompts  []string
}

func (s *staticLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	return s.response, s.err
}

func (s *staticLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, s.err
}

func TestReconcileCitationsRenumbersDensely(t *testing.T) {
	sources := []string{"[1] chunk_a", "[2] chunk_b", "[3] chunk_c"}
	text := "당뇨병은 혈당 조절 장애입니다[3]. 인슐린 치료가 쓰입니다[1]. 다시 강조하면[3] 혈당 관리가 핵심입니다."

	answer, refs := ReconcileCitations(text, sources)

	assert.Equal(t, "당뇨병은 혈당 조절 장애입니다[1]. 인슐린 치료가 쓰입니다[2]. 다시 강조하면[1] 혈당 관리가 핵심입니다.", answer)
	assert.Equal(t, []string{"[1] chunk_c", "[2] chunk_a"}, refs)
}

func TestReconcileCitationsStripsInvalidMarkers(t *testing.T) {
	sources := []string{"[1] chunk_a"}
	text := "근거는 이렇습니다[1]. 없는 출처 인용[7]."

	answer, refs := ReconcileCitations(text, sources)

	assert.Equal(t, "근거는 이렇습니다[1]. 없는 출처 인용.", answer)
	assert.Equal(t, []string{"[1] chunk_a"}, refs)
}

func TestReconcileCitationsRoundTrip(t *testing.T) {
	sources := []string{"[1] a", "[2] b", "[3] c", "[4] d", "[5] e"}
	text := "첫 근거[4] 둘째[2] 셋째[5] 그리고 범위 밖[9]."

	answer, refs := ReconcileCitations(text, sources)

	// Every marker left in the text is exactly 1..len(refs).
	for i := range refs {
		assert.Contains(t, answer, refsMarker(i+1))
		assert.True(t, strings.HasPrefix(refs[i], refsMarker(i+1)))
	}
	assert.NotContains(t, answer, "[9]")
	assert.Len(t, refs, 3)
}

func refsMarker(n int) string {
	return "[" + string(rune('0'+n)) + "]"
}

func TestLLMScoreFormula(t *testing.T) {
	long := strings.Repeat("가", 120)
	medium := strings.Repeat("가", 80)
	short := strings.Repeat("가", 20)

	assert.Equal(t, 0.85, llmScore(long, 0.85))
	assert.Equal(t, 0.75, llmScore(medium, 0.85))
	assert.Equal(t, 0.65, llmScore(short, 0.85))

	// Zero relevance starts from the 0.70 floor.
	assert.Equal(t, 0.70, llmScore(long, 0.0))
	assert.Equal(t, 0.50, llmScore(short, 0.0))
}

func TestUserInfoAnswerComesFromHistory(t *testing.T) {
	provider := &staticLLM{response: "홍길동님이시죠!"}
	g := NewGenerator(provider, zap.NewNop())

	state := workflow.NewState("내 이름이 뭐야?")
	state.ConversationType = workflow.TypeUserInfo
	state.History = &workflow.History{
		LastConversation: "사용자가 이름을 알려주었고 기억하겠다고 답함",
		Facts:            []string{"이름: 홍길동"},
		AllFacts:         []string{"이름: 홍길동"},
		Count:            1,
	}

	state, err := g.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "홍길동님이시죠!", state.FinalAnswer)
	require.NotNil(t, state.Structured)
	assert.Equal(t, 1.0, state.Structured.LLMScore)
	assert.Equal(t, 1.0, state.Structured.RelevanceScore)
	assert.Empty(t, state.Structured.References)

	// The facts reached the prompt.
	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "이름: 홍길동")
}

func TestNonMedicalAnswerIsFixedGuidance(t *testing.T) {
	g := NewGenerator(&staticLLM{response: "무시되어야 함"}, zap.NewNop())

	state := workflow.NewState("오늘 날씨 어때?")
	state.ConversationType = workflow.TypeNonMedical

	state, err := g.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "의학과 관련된 질문이 아닙니다. 의학과 관련된 질문을 주세요.", state.FinalAnswer)
	assert.Nil(t, state.Structured)
}

func TestEmptyContextProducesNotFoundAnswer(t *testing.T) {
	g := NewGenerator(&staticLLM{}, zap.NewNop())

	state := workflow.NewState("두통 치료법")
	state.ConversationType = workflow.TypeMedical

	state, err := g.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "죄송합니다. 관련 문서를 찾을 수 없습니다.", state.FinalAnswer)
	require.NotNil(t, state.Structured)
	assert.Equal(t, 0.0, state.Structured.LLMScore)
	assert.Equal(t, workflow.AnswerTypeInternal, state.Structured.Type)
}

func TestEmptyContextTerminologyVariant(t *testing.T) {
	g := NewGenerator(&staticLLM{}, zap.NewNop())

	state := workflow.NewState("당뇨병이 뭐야?")
	state.ConversationType = workflow.TypeMedical
	state.IsTerminology = true

	state, err := g.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "죄송합니다. 관련 정보를 찾을 수 없습니다.", state.FinalAnswer)
	assert.Equal(t, workflow.AnswerTypeExternal, state.Structured.Type)
}

func TestPrepopulatedAnswerShortCircuits(t *testing.T) {
	provider := &staticLLM{response: "호출되면 안 됨"}
	g := NewGenerator(provider, zap.NewNop())

	state := workflow.NewState("당뇨병 치료 방법")
	state.ConversationType = workflow.TypeMedical
	state.Context = "엉뚱한 문서"
	state.Structured = &workflow.StructuredAnswer{
		Answer: "죄송합니다. 관련 문서를 찾을 수 없습니다.",
		Type:   workflow.AnswerTypeInternal,
	}

	state, err := g.Execute(context.Background(), state)
	require.NoError(t, err)
	assert.Equal(t, "죄송합니다. 관련 문서를 찾을 수 없습니다.", state.FinalAnswer)
	assert.Empty(t, provider.prompts)
}

func TestMedicalAnswerBuildsStructuredResult(t *testing.T) {
	long := strings.Repeat("당뇨병은 혈당 조절에 문제가 생기는 만성 질환입니다. ", 5)
	provider := &staticLLM{response: long + "[2]"}
	g := NewGenerator(provider, zap.NewNop())

	state := workflow.NewState("당뇨병 치료 방법")
	state.ConversationType = workflow.TypeMedical
	state.Context = "[문서 1] (관련도: 0.91)\n...\n\n[문서 2] (관련도: 0.88)\n..."
	state.Sources = []string{"[1] chunk_a", "[2] chunk_b"}
	state.RelevanceScore = 0.85
	state.IsRelevant = true

	state, err := g.Execute(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, state.Structured)
	assert.Equal(t, []string{"[1] chunk_b"}, state.Structured.References)
	assert.Equal(t, 0.85, state.Structured.RelevanceScore)
	assert.Equal(t, 0.85, state.Structured.LLMScore)
	assert.Equal(t, workflow.AnswerTypeInternal, state.Structured.Type)
	assert.Contains(t, state.FinalAnswer, "📚 참고문서:")
	assert.Contains(t, state.FinalAnswer, "- [1] chunk_b")
}
