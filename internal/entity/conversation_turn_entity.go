package entity

import (
	"time"
)

// ConversationTurn is one persisted question/answer exchange. It is
// created once per completed turn; only AccessCount is ever updated
// afterwards, and rows are removed only by the maintenance sweep.
type ConversationTurn struct {
	Id                int64
	CreatedAt         time.Time
	OriginalQuestion  string
	RewrittenQuestion *string
	AnswerText        string
	QuestionSummary   string
	AnswerSummary     string
	Facts             []string
	ConversationType  string // medical | user_info | non_medical
	AccessCount       int
}
