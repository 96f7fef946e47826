package mapper

import (
	"encoding/json"

	"medirag-be/internal/entity"
	"medirag-be/internal/model"

	"gorm.io/datatypes"
)

type ConversationTurnMapper struct{}

func NewConversationTurnMapper() *ConversationTurnMapper {
	return &ConversationTurnMapper{}
}

func (m *ConversationTurnMapper) ToEntity(t *model.ConversationTurn) *entity.ConversationTurn {
	if t == nil {
		return nil
	}

	facts := []string{}
	if len(t.Facts) > 0 {
		// Malformed rows degrade to an empty fact list rather than failing the read.
		_ = json.Unmarshal(t.Facts, &facts)
	}

	return &entity.ConversationTurn{
		Id:                t.Id,
		CreatedAt:         t.CreatedAt,
		OriginalQuestion:  t.OriginalQuestion,
		RewrittenQuestion: t.RewrittenQuestion,
		AnswerText:        t.AnswerText,
		QuestionSummary:   t.QuestionSummary,
		AnswerSummary:     t.AnswerSummary,
		Facts:             facts,
		ConversationType:  t.ConversationType,
		AccessCount:       t.AccessCount,
	}
}

func (m *ConversationTurnMapper) ToModel(t *entity.ConversationTurn) *model.ConversationTurn {
	if t == nil {
		return nil
	}

	facts := t.Facts
	if facts == nil {
		facts = []string{}
	}
	factsJson, err := json.Marshal(facts)
	if err != nil {
		factsJson = []byte("[]")
	}

	return &model.ConversationTurn{
		Id:                t.Id,
		CreatedAt:         t.CreatedAt,
		OriginalQuestion:  t.OriginalQuestion,
		RewrittenQuestion: t.RewrittenQuestion,
		AnswerText:        t.AnswerText,
		QuestionSummary:   t.QuestionSummary,
		AnswerSummary:     t.AnswerSummary,
		Facts:             datatypes.JSON(factsJson),
		ConversationType:  t.ConversationType,
		AccessCount:       t.AccessCount,
	}
}

func (m *ConversationTurnMapper) ToEntities(models []*model.ConversationTurn) []*entity.ConversationTurn {
	entities := make([]*entity.ConversationTurn, len(models))
	for i, t := range models {
		entities[i] = m.ToEntity(t)
	}
	return entities
}
