package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"medirag-be/pkg/llm"

	"go.uber.org/zap"
)

// Extraction is what the write path keeps from one finished turn besides
// the raw texts.
type Extraction struct {
	QuestionSummary string   `json:"question_summary"`
	AnswerSummary   string   `json:"answer_summary"`
	Facts           []string `json:"facts"`
}

// Extractor produces turn summaries and atomic facts with one JSON-mode
// LLM call. It never fails: malformed or unavailable model output
// degrades to naive truncation of the raw texts.
type Extractor struct {
	provider llm.LLMProvider
	logger   *zap.Logger
}

func NewExtractor(provider llm.LLMProvider, logger *zap.Logger) *Extractor {
	return &Extractor{provider: provider, logger: logger}
}

const extractPromptTemplate = `다음 대화를 분석하여 JSON 형식으로 출력하세요.

질문: %s

답변: %s

다음 정보를 추출하세요:
1. question_summary: 질문 의도를 1-2문장으로 요약
   - 사용자가 자신의 이름, 나이, 특징, 취미 등을 언급하면 반드시 포함하세요
2. answer_summary: 답변 핵심을 1-2문장으로 요약
3. facts: 사용자와 관련된 사실 정보를 추출
   - 사용자 정보: 이름, 나이, 성별, 직업, 취미 등
   - 의학 정보: 진단명, 수치, 날짜, 증상 등
   - 예: ["이름: 홍길동", "당뇨병 진단", "HbA1c 7.2%%"]

출력 형식 (JSON):
{"question_summary": "...", "answer_summary": "...", "facts": ["사실1", "사실2"]}

정보가 없는 항목은 빈 배열([]) 또는 빈 문자열로 출력하세요.
출처 정보는 제외하세요.`

// Extract summarizes one question/answer pair and pulls out atomic facts.
func (e *Extractor) Extract(ctx context.Context, question, answer string) *Extraction {
	prompt := fmt.Sprintf(extractPromptTemplate, question, answer)

	raw, err := e.provider.Generate(ctx, prompt, llm.WithJSONMode(), llm.WithTemperature(0.0))
	if err != nil {
		e.logger.Warn("turn extraction failed, falling back to truncation", zap.Error(err))
		return fallbackExtraction(question, answer)
	}

	var out Extraction
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		e.logger.Warn("turn extraction returned malformed JSON", zap.Error(err))
		return fallbackExtraction(question, answer)
	}
	if out.Facts == nil {
		out.Facts = []string{}
	}
	if out.QuestionSummary == "" && out.AnswerSummary == "" {
		return fallbackExtraction(question, answer)
	}
	return &out
}

func fallbackExtraction(question, answer string) *Extraction {
	return &Extraction{
		QuestionSummary: truncate(question, 100),
		AnswerSummary:   truncate(answer, 200),
		Facts:           []string{},
	}
}

func truncate(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "..."
}
