package answer

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"medirag-be/pkg/llm"
	"medirag-be/pkg/rag"
	"medirag-be/pkg/workflow"

	"go.uber.org/zap"
)

const userInfoPromptTemplate = `%s사용자 질문: %s

위 질문에 대해 대화 이력과 사용자 정보만을 근거로 친절하고 자연스럽게 답변해주세요.

중요 작성 규칙:
- 사용자 정보(이름, 나이, 취미 등)가 있으면 그대로 활용하세요
- 사용자가 새로운 정보를 알려주는 경우 짧게 기억하겠다고 답하세요 (예: "네, 기억하겠습니다!")
- 대화 이력에 없는 내용은 추측하지 마세요
- 짧고 간단하게 1-2문장으로 답변하세요`

const webAnswerPromptTemplate = `%s사용자 질문: %s

검색된 정보:
%s

위 정보를 바탕으로 사용자 질문에 대해 정확하고 자연스럽게 답변해주세요.
핵심 내용을 먼저 설명하고, 필요한 경우 상세 설명을 이어서 작성하세요.

중요 작성 규칙:
- 검색 결과에 있는 정보만 사용하세요
- 질문에 대명사("이러한", "그것", "저것" 등)가 있으면 **직전 대화**를 우선 참고하세요
- 근거로 사용한 출처의 번호를 해당 문장 끝에 [1], [2] 형식으로 표기하세요
- 의학 정보는 신중하게 전달하세요
- 긴 문서들은 간단하게 요약하여 중요 정보들만 전달해주세요
- 번호 목록 없이 자연스러운 문장으로 작성하세요`

const ragAnswerPromptTemplate = `%s사용자 질문: %s

관련 문서:
%s

위 문서를 근거로 사용자 질문에 대해 정확하고 자연스럽게 답변해주세요.
핵심 내용을 먼저 설명하고, 필요한 경우 상세 설명과 주의사항을 이어서 작성하세요.

중요 작성 규칙:
- 문서에 있는 정보만 사용하세요
- 질문에 대명사("이러한", "그것", "저것" 등)가 있으면 **직전 대화**를 우선 참고하세요
- 근거로 사용한 문서의 번호를 해당 문장 끝에 [1], [2] 형식으로 표기하세요
- 의학 정보는 신중하고 정확하게 전달하세요
- 추측하지 말고 문서 내용에 충실하세요
- 번호 목록 없이 자연스러운 문장으로 작성하세요`

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// Generator produces the final answer for every conversation type and
// finishes the medical paths with a citation integrity pass.
type Generator struct {
	provider llm.LLMProvider
	logger   *zap.Logger
}

func NewGenerator(provider llm.LLMProvider, logger *zap.Logger) *Generator {
	return &Generator{provider: provider, logger: logger}
}

func (g *Generator) Execute(ctx context.Context, state *workflow.State) (*workflow.State, error) {
	switch state.ConversationType {
	case workflow.TypeUserInfo:
		return g.answerFromHistory(ctx, state)
	case workflow.TypeNonMedical:
		state.FinalAnswer = rag.NonMedicalGuidance
		return state, nil
	}

	// The evaluator sets the give-up answer once the rewrite budget is
	// spent; nothing is left to generate.
	if state.Structured != nil {
		state.FinalAnswer = state.Structured.Answer
		return state, nil
	}

	if state.Context == "" {
		return g.answerNotFound(state), nil
	}

	return g.answerFromContext(ctx, state)
}

func (g *Generator) answerFromHistory(ctx context.Context, state *workflow.State) (*workflow.State, error) {
	prompt := fmt.Sprintf(userInfoPromptTemplate, historyContext(state), state.Question)
	text, err := g.provider.Generate(ctx, prompt, llm.WithTemperature(0.3))
	if err != nil {
		g.logger.Warn("user info answer failed", zap.Error(err))
		state.FinalAnswer = "네, 알겠습니다!"
	} else {
		state.FinalAnswer = strings.TrimSpace(text)
	}

	state.Structured = &workflow.StructuredAnswer{
		Answer:         state.FinalAnswer,
		References:     []string{},
		LLMScore:       1.0,
		RelevanceScore: 1.0,
		Type:           workflow.AnswerTypeInternal,
	}
	return state, nil
}

func (g *Generator) answerNotFound(state *workflow.State) *workflow.State {
	message := rag.NoDocumentsFound
	answerType := workflow.AnswerTypeInternal
	if state.IsTerminology {
		message = rag.NoInfoFound
		answerType = workflow.AnswerTypeExternal
	}
	state.FinalAnswer = message
	state.Structured = &workflow.StructuredAnswer{
		Answer:         message,
		References:     []string{},
		LLMScore:       0.0,
		RelevanceScore: 0.0,
		Type:           answerType,
	}
	return state
}

func (g *Generator) answerFromContext(ctx context.Context, state *workflow.State) (*workflow.State, error) {
	template := ragAnswerPromptTemplate
	answerType := workflow.AnswerTypeInternal
	if state.IsTerminology {
		template = webAnswerPromptTemplate
		answerType = workflow.AnswerTypeExternal
	}

	prompt := fmt.Sprintf(template, historyContext(state), state.Question, state.Context)
	text, err := g.provider.Generate(ctx, prompt, llm.WithTemperature(0.2))
	if err != nil {
		g.logger.Warn("answer generation failed", zap.Error(err))
		return g.answerNotFound(state), nil
	}

	answer, references := ReconcileCitations(strings.TrimSpace(text), state.Sources)
	score := llmScore(answer, state.RelevanceScore)

	state.Structured = &workflow.StructuredAnswer{
		Answer:         answer,
		References:     references,
		LLMScore:       score,
		RelevanceScore: math.Round(state.RelevanceScore*100) / 100,
		Type:           answerType,
	}

	state.FinalAnswer = answer
	if len(references) > 0 {
		var appendix strings.Builder
		appendix.WriteString("\n\n📚 참고문서:\n")
		for i, ref := range references {
			if i > 0 {
				appendix.WriteByte('\n')
			}
			appendix.WriteString("- " + ref)
		}
		state.FinalAnswer = answer + appendix.String()
	}

	g.logger.Info("answer generated",
		zap.Int("references", len(references)),
		zap.Float64("llm_score", score))

	return state, nil
}

// historyContext renders the conversation bundle as a prompt prefix,
// preferring the immediately preceding exchange.
func historyContext(state *workflow.State) string {
	bundle := state.HistoryBundle()
	var b strings.Builder
	if bundle.LastConversation != "" {
		fmt.Fprintf(&b, "직전 대화:\n%s\n\n", bundle.LastConversation)
	}
	if bundle.Summary != "" && utf8.RuneCountInString(bundle.Summary) > utf8.RuneCountInString(bundle.LastConversation) {
		fmt.Fprintf(&b, "이전 대화 이력 (참고):\n%s\n\n", bundle.Summary)
	}
	if len(bundle.AllFacts) > 0 {
		fmt.Fprintf(&b, "사용자 정보:\n%s\n\n", strings.Join(bundle.AllFacts, ", "))
	}
	return b.String()
}

// ReconcileCitations renumbers the citation markers actually used in
// the answer densely from 1 and filters sources down to that subset.
// Markers with no matching source are stripped.
func ReconcileCitations(answer string, sources []string) (string, []string) {
	payloads := sourcePayloads(sources)

	var (
		order     []int
		renumber  = make(map[int]int)
		rewritten = citationPattern.ReplaceAllStringFunc(answer, func(marker string) string {
			num, err := strconv.Atoi(strings.Trim(marker, "[]"))
			if err != nil {
				return marker
			}
			payload, ok := payloads[num]
			if !ok || payload == "" {
				return ""
			}
			if _, seen := renumber[num]; !seen {
				renumber[num] = len(order) + 1
				order = append(order, num)
			}
			return fmt.Sprintf("[%d]", renumber[num])
		})
	)

	references := make([]string, 0, len(order))
	for _, num := range order {
		references = append(references, fmt.Sprintf("[%d] %s", renumber[num], payloads[num]))
	}
	return rewritten, references
}

// sourcePayloads maps the leading "[n]" of each source label to the
// rest of the label.
func sourcePayloads(sources []string) map[int]string {
	payloads := make(map[int]string, len(sources))
	for _, src := range sources {
		match := citationPattern.FindStringSubmatch(src)
		if match == nil || !strings.HasPrefix(src, match[0]) {
			continue
		}
		num, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		payloads[num] = strings.TrimSpace(strings.TrimPrefix(src, match[0]))
	}
	return payloads
}

// llmScore derives the answer confidence from the relevance score and
// a penalty for very short answers.
func llmScore(answer string, relevanceScore float64) float64 {
	base := relevanceScore
	if base <= 0 {
		base = 0.70
	}

	var penalty float64
	switch length := utf8.RuneCountInString(answer); {
	case length < 50:
		penalty = 0.20
	case length < 100:
		penalty = 0.10
	}

	score := base - penalty
	score = math.Max(0.0, math.Min(1.0, score))
	return math.Round(score*100) / 100
}
