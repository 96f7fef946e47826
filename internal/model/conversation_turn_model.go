package model

import (
	"time"

	"gorm.io/datatypes"
)

type ConversationTurn struct {
	Id                int64 `gorm:"primaryKey;autoIncrement"`
	CreatedAt         time.Time
	OriginalQuestion  string
	RewrittenQuestion *string
	AnswerText        string
	QuestionSummary   string
	AnswerSummary     string
	Facts             datatypes.JSON
	ConversationType  string `gorm:"index"`
	AccessCount       int    `gorm:"default:0"`
}

func (ConversationTurn) TableName() string {
	return "conversation_turns"
}
