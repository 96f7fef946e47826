package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"medirag-be/internal/entity"
	"medirag-be/internal/repository/contract"
	"medirag-be/pkg/embedding"
	"medirag-be/pkg/llm"
	"medirag-be/pkg/memory"
	"medirag-be/pkg/search/tavily"
	"medirag-be/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedLLM routes each prompt to a canned response by matching on
// the prompt templates' fixed phrases.
type scriptedLLM struct {
	classification string
	terminology    string
	evaluation     string
	rewritten      string
	answer         string
	extraction     string
}

var _ llm.LLMProvider = &scriptedLLM{}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	if len(history) == 0 {
		return "", nil
	}
	return s.Generate(ctx, history[len(history)-1].Content, opts...)
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	switch {
	case strings.Contains(prompt, "3가지 중 하나로 분류"):
		return s.classification, nil
	case strings.Contains(prompt, "'정의', '뜻', '의미'"):
		return s.terminology, nil
	case strings.Contains(prompt, "관련성이 있는지 평가"):
		return s.evaluation, nil
	case strings.Contains(prompt, "재작성된 질문만 출력"):
		return s.rewritten, nil
	case strings.Contains(prompt, "question_summary"):
		return s.extraction, nil
	default:
		return s.answer, nil
	}
}

type fakeEmbedder struct{}

var _ embedding.Provider = fakeEmbedder{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeChunkRepo struct {
	results []*contract.ScoredDocumentChunk
	queries int
}

var _ contract.DocumentChunkRepository = &fakeChunkRepo{}

func (f *fakeChunkRepo) Create(ctx context.Context, chunk *entity.DocumentChunk) error { return nil }
func (f *fakeChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	return nil
}
func (f *fakeChunkRepo) Count(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeChunkRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int) ([]*contract.ScoredDocumentChunk, error) {
	f.queries++
	return f.results, nil
}

type fakeSearcher struct {
	results []tavily.Result
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int) ([]tavily.Result, error) {
	return f.results, nil
}

type fakeTurnRepo struct {
	rows   []*entity.ConversationTurn
	nextId int64
	reads  int
}

var _ contract.ConversationTurnRepository = &fakeTurnRepo{}

func (f *fakeTurnRepo) Create(ctx context.Context, turn *entity.ConversationTurn) error {
	f.nextId++
	turn.Id = f.nextId
	copied := *turn
	f.rows = append(f.rows, &copied)
	return nil
}

func (f *fakeTurnRepo) FindRecent(ctx context.Context, limit int) ([]*entity.ConversationTurn, error) {
	f.reads++
	out := make([]*entity.ConversationTurn, 0, limit)
	for i := len(f.rows) - 1; i >= 0 && len(out) < limit; i-- {
		copied := *f.rows[i]
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeTurnRepo) IncrementAccess(ctx context.Context, ids []int64) error { return nil }
func (f *fakeTurnRepo) Count(ctx context.Context) (int64, error)               { return int64(len(f.rows)), nil }
func (f *fakeTurnRepo) DeleteStaleUnused(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeCounter struct{ value int64 }

var _ contract.TurnCounterRepository = &fakeCounter{}

func (f *fakeCounter) Increment(ctx context.Context) (int64, error) {
	f.value++
	return f.value, nil
}
func (f *fakeCounter) Current(ctx context.Context) (int64, error) { return f.value, nil }

type testPipeline struct {
	runner    *Runner
	turnRepo  *fakeTurnRepo
	chunkRepo *fakeChunkRepo
}

func newTestPipeline(script *scriptedLLM, chunks []*contract.ScoredDocumentChunk, web []tavily.Result) *testPipeline {
	logger := zap.NewNop()
	turnRepo := &fakeTurnRepo{}
	chunkRepo := &fakeChunkRepo{results: chunks}
	mem := memory.NewService(turnRepo, &fakeCounter{}, memory.NewExtractor(script, logger), nil, logger, memory.DefaultReadLimit)

	runner := NewDefaultRunner(Deps{
		LLM:      script,
		Embedder: fakeEmbedder{},
		Chunks:   chunkRepo,
		Search:   &fakeSearcher{results: web},
		Memory:   mem,
		Logger:   logger,
	})
	return &testPipeline{runner: runner, turnRepo: turnRepo, chunkRepo: chunkRepo}
}

func diabetesChunks() []*contract.ScoredDocumentChunk {
	return []*contract.ScoredDocumentChunk{
		{
			Chunk: &entity.DocumentChunk{
				ChunkId: "chunk_dm_01",
				Content: "당뇨병 치료는 생활 습관 개선과 약물 치료를 병행합니다.",
				Source:  "내과학 교과서",
			},
			Similarity: 0.91,
		},
	}
}

func TestEmptyQuestionNeverTouchesStore(t *testing.T) {
	p := newTestPipeline(&scriptedLLM{}, nil, nil)

	result, err := p.runner.RunTurn(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, "의학과 관련된 질문이 아닙니다. 의학과 관련된 질문을 주세요.", result.FinalAnswer)
	assert.Nil(t, result.Structured)
	assert.Zero(t, p.turnRepo.reads)
	assert.Empty(t, p.turnRepo.rows)
}

func TestTerminologyQuestionGoesThroughWebSearch(t *testing.T) {
	longAnswer := strings.Repeat("당뇨병은 인슐린 분비나 작용의 장애로 혈당이 높아지는 만성 질환입니다. ", 3)
	script := &scriptedLLM{
		classification: `{"category": "의학 관련", "follow_up": false}`,
		terminology:    "용어 질문",
		evaluation:     "관련성: 높음\n점수: 0.85\n이유: 정의가 직접 설명됨",
		answer:         longAnswer + "[1]",
		extraction:     `{"question_summary": "당뇨병 정의 질문", "answer_summary": "정의 설명", "facts": []}`,
	}
	web := []tavily.Result{{Title: "당뇨병", URL: "https://example.org/dm", Content: "당뇨병 정의 설명", Score: 0.9}}
	p := newTestPipeline(script, nil, web)

	result, err := p.runner.RunTurn(context.Background(), "당뇨병이 뭐야?")
	require.NoError(t, err)
	require.NotNil(t, result.Structured)
	assert.Equal(t, workflow.AnswerTypeExternal, result.Structured.Type)
	assert.Equal(t, []string{"[1] https://example.org/dm"}, result.Structured.References)
	assert.Equal(t, 0.85, result.Structured.RelevanceScore)
	assert.Contains(t, result.FinalAnswer, "📚 참고문서:")

	// The vector store was never queried on the web path.
	assert.Zero(t, p.chunkRepo.queries)
	// The turn was persisted.
	require.Len(t, p.turnRepo.rows, 1)
	assert.Equal(t, workflow.TypeMedical, p.turnRepo.rows[0].ConversationType)
}

func TestGeneralMedicalQuestionUsesRetrieval(t *testing.T) {
	longAnswer := strings.Repeat("당뇨병 치료는 생활 습관 개선과 약물 치료를 병행합니다. ", 4)
	script := &scriptedLLM{
		classification: `{"category": "의학 관련", "follow_up": false}`,
		terminology:    "일반 질문",
		evaluation:     "관련성: 높음\n점수: 0.91\n이유: 치료법이 문서에 있음",
		answer:         longAnswer + "[1]",
		extraction:     `{"question_summary": "당뇨병 치료 질문", "answer_summary": "치료법 설명", "facts": []}`,
	}
	p := newTestPipeline(script, diabetesChunks(), nil)

	result, err := p.runner.RunTurn(context.Background(), "당뇨병 치료 방법은?")
	require.NoError(t, err)
	require.NotNil(t, result.Structured)
	assert.Equal(t, workflow.AnswerTypeInternal, result.Structured.Type)
	assert.Equal(t, []string{"[1] chunk_dm_01"}, result.Structured.References)
	assert.Equal(t, 1, p.chunkRepo.queries)
	require.Len(t, p.turnRepo.rows, 1)
}

func TestIrrelevantContextRetriesOnceThenGivesUp(t *testing.T) {
	script := &scriptedLLM{
		classification: `{"category": "의학 관련", "follow_up": false}`,
		terminology:    "일반 질문",
		evaluation:     "관련성: 낮음\n이유: 주제가 다름",
		rewritten:      "희귀 질환 XYZ 치료 프로토콜",
	}
	p := newTestPipeline(script, diabetesChunks(), nil)

	result, err := p.runner.RunTurn(context.Background(), "희귀 질환 XYZ는 어떻게 치료해?")
	require.NoError(t, err)
	assert.Equal(t, "죄송합니다. 관련 문서를 찾을 수 없습니다.", result.FinalAnswer)
	require.NotNil(t, result.Structured)
	assert.Equal(t, 0.0, result.Structured.LLMScore)
	assert.Empty(t, result.Structured.References)

	// Retrieval ran exactly twice: once before and once after the rewrite.
	assert.Equal(t, 2, p.chunkRepo.queries)
	// Give-up answers are not persisted.
	assert.Empty(t, p.turnRepo.rows)
}

func TestUserInfoTurnRoundTrip(t *testing.T) {
	introduce := &scriptedLLM{
		classification: `{"category": "신상정보", "follow_up": false}`,
		answer:         "네, 홍길동님! 기억하겠습니다.",
		extraction:     `{"question_summary": "사용자(홍길동) 이름 소개", "answer_summary": "기억하겠다고 응답", "facts": ["이름: 홍길동"]}`,
	}
	p := newTestPipeline(introduce, nil, nil)

	result, err := p.runner.RunTurn(context.Background(), "내 이름은 홍길동이야")
	require.NoError(t, err)
	assert.Contains(t, result.FinalAnswer, "홍길동")
	require.Len(t, p.turnRepo.rows, 1)
	assert.Equal(t, []string{"이름: 홍길동"}, p.turnRepo.rows[0].Facts)

	// A later turn asking the name answers from the stored fact.
	recall := &scriptedLLM{
		classification: `{"category": "신상정보", "follow_up": true}`,
		answer:         "홍길동님이십니다!",
		extraction:     `{"question_summary": "이름 확인 질문", "answer_summary": "이름을 알려줌", "facts": ["이름: 홍길동"]}`,
	}
	p2 := &testPipeline{turnRepo: p.turnRepo, chunkRepo: p.chunkRepo}
	logger := zap.NewNop()
	mem := memory.NewService(p.turnRepo, &fakeCounter{}, memory.NewExtractor(recall, logger), nil, logger, memory.DefaultReadLimit)
	p2.runner = NewDefaultRunner(Deps{
		LLM:      recall,
		Embedder: fakeEmbedder{},
		Chunks:   p.chunkRepo,
		Search:   &fakeSearcher{},
		Memory:   mem,
		Logger:   logger,
	})

	result, err = p2.runner.RunTurn(context.Background(), "내 이름이 뭐야?")
	require.NoError(t, err)
	assert.Contains(t, result.FinalAnswer, "홍길동")
	require.NotNil(t, result.Structured)
	assert.Equal(t, 1.0, result.Structured.LLMScore)
}

func TestNonMedicalQuestionGetsGuidance(t *testing.T) {
	script := &scriptedLLM{
		classification: `{"category": "일반 잡담", "follow_up": false}`,
		extraction:     `{"question_summary": "잡담", "answer_summary": "안내", "facts": []}`,
	}
	p := newTestPipeline(script, nil, nil)

	result, err := p.runner.RunTurn(context.Background(), "오늘 날씨 어때?")
	require.NoError(t, err)
	assert.Equal(t, "의학과 관련된 질문이 아닙니다. 의학과 관련된 질문을 주세요.", result.FinalAnswer)
	// Guidance answers with no extracted facts are not persisted.
	assert.Empty(t, p.turnRepo.rows)
}
