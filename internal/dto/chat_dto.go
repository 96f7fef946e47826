package dto

type SendChatRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type StructuredAnswerDTO struct {
	Answer         string   `json:"answer"`
	References     []string `json:"references"`
	LLMScore       float64  `json:"llm_score"`
	RelevanceScore float64  `json:"relevance_score"`
	Type           string   `json:"type"`
}

type SendChatResponse struct {
	FinalAnswer string               `json:"final_answer"`
	Structured  *StructuredAnswerDTO `json:"structured_answer,omitempty"`
}
