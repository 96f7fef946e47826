package workflow

// Conversation type values assigned by the classifier stage.
const (
	TypeMedical    = "medical"
	TypeUserInfo   = "user_info"
	TypeNonMedical = "non_medical"
)

// Answer type values carried by StructuredAnswer.Type.
const (
	AnswerTypeInternal = "internal" // answered from the document store
	AnswerTypeExternal = "external" // answered from web search
)

// Document is one retrieved evidence block.
type Document struct {
	Content  string
	Metadata map[string]string
	Score    float64
}

// StructuredAnswer is the machine-readable answer object returned to callers.
type StructuredAnswer struct {
	Answer         string   `json:"answer"`
	References     []string `json:"references"`
	LLMScore       float64  `json:"llm_score"`
	RelevanceScore float64  `json:"relevance_score"`
	Type           string   `json:"type"`
}

// History is the structured memory bundle loaded at the start of a turn.
// Summaries are ordered oldest to newest; LastConversation is the most
// recent one, separated out because follow-up resolution prefers it.
type History struct {
	Summary          string
	LastConversation string
	Facts            []string // facts of the last conversation only
	AllFacts         []string // facts across every loaded conversation
	Count            int
}

// EmptyHistory is the neutral bundle used when nothing could be loaded.
func EmptyHistory() *History {
	return &History{Facts: []string{}, AllFacts: []string{}}
}

// State is the pipeline state threaded through every stage of one turn.
// Each stage owns it exclusively while executing and hands it to the next.
type State struct {
	Question         string
	OriginalQuestion string

	ConversationType string
	IsTerminology    bool
	IsFollowUp       bool

	RetrievedDocs []Document
	Context       string
	Sources       []string

	IsRelevant     bool
	RelevanceScore float64
	EvaluationNote string
	RewriteCount   int

	RewrittenQuestion string

	History *History

	FinalAnswer string
	Structured  *StructuredAnswer
}

// NewState builds the initial state for a turn.
func NewState(question string) *State {
	return &State{
		Question: question,
		History:  EmptyHistory(),
	}
}

// HistoryBundle returns the history, substituting the neutral bundle so
// stages never have to nil-check.
func (s *State) HistoryBundle() *History {
	if s.History == nil {
		return EmptyHistory()
	}
	return s.History
}

// HasAnswer reports whether any stage produced an answer for this turn.
func (s *State) HasAnswer() bool {
	if s.FinalAnswer != "" {
		return true
	}
	return s.Structured != nil && s.Structured.Answer != ""
}
