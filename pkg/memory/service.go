package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"medirag-be/internal/entity"
	"medirag-be/internal/repository/contract"
	"medirag-be/pkg/events"
	"medirag-be/pkg/workflow"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

const (
	// DefaultReadLimit is how many recent turns a read loads.
	DefaultReadLimit = 5
	// TransformInterval is the number of completed writes between sweeps.
	TransformInterval = 20
	// RetentionDays is how long an unread turn survives before the sweep
	// may remove it. Turns read at least once are kept regardless of age.
	RetentionDays = 30
)

// Answers matching any of these phrases are failure messages and are not
// worth remembering.
var skipPhrases = []string{
	"관련 정보를 찾을 수 없습니다",
	"관련 문서를 찾을 수 없습니다",
}

// Service is the single owner of the conversation store. Read, Write and
// Transform are its three independent operations; no workflow node
// performs more than one of them.
type Service struct {
	turns     contract.ConversationTurnRepository
	counter   contract.TurnCounterRepository
	extractor *Extractor
	publisher message.Publisher
	logger    *zap.Logger
	readLimit int
}

func NewService(
	turns contract.ConversationTurnRepository,
	counter contract.TurnCounterRepository,
	extractor *Extractor,
	publisher message.Publisher,
	logger *zap.Logger,
	readLimit int,
) *Service {
	if readLimit <= 0 {
		readLimit = DefaultReadLimit
	}
	return &Service{
		turns:     turns,
		counter:   counter,
		extractor: extractor,
		publisher: publisher,
		logger:    logger,
		readLimit: readLimit,
	}
}

// Read loads the most recent turns into a structured history bundle and
// bumps each loaded turn's access count by exactly 1. Read never fails:
// any store error degrades to the neutral bundle.
func (s *Service) Read(ctx context.Context) *workflow.History {
	rows, err := s.turns.FindRecent(ctx, s.readLimit)
	if err != nil {
		s.logger.Warn("memory read failed, continuing with empty history", zap.Error(err))
		return workflow.EmptyHistory()
	}
	if len(rows) == 0 {
		return workflow.EmptyHistory()
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.Id
	}
	if err := s.turns.IncrementAccess(ctx, ids); err != nil {
		// Access tracking is best effort; the bundle is still usable.
		s.logger.Warn("access count update failed", zap.Error(err))
	}

	// rows are newest first; the bundle wants oldest to newest.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	history := &workflow.History{
		Facts:    []string{},
		AllFacts: []string{},
		Count:    len(rows),
	}
	summaries := make([]string, 0, len(rows))
	for idx, row := range rows {
		summary := turnSummary(row)
		summaries = append(summaries, fmt.Sprintf("[대화 %d] %s", idx+1, summary))
		history.AllFacts = append(history.AllFacts, row.Facts...)
		if idx == len(rows)-1 {
			history.LastConversation = summary
			history.Facts = append(history.Facts, row.Facts...)
		}
	}
	history.Summary = strings.Join(summaries, "\n\n")

	s.logger.Debug("memory loaded",
		zap.Int("conversations", history.Count),
		zap.Int("last_facts", len(history.Facts)),
		zap.Int("all_facts", len(history.AllFacts)))

	return history
}

func turnSummary(row *entity.ConversationTurn) string {
	parts := make([]string, 0, 2)
	if row.QuestionSummary != "" {
		parts = append(parts, row.QuestionSummary)
	}
	if row.AnswerSummary != "" {
		parts = append(parts, row.AnswerSummary)
	}
	if len(parts) == 0 {
		return truncate(row.OriginalQuestion, 100)
	}
	return strings.Join(parts, " ")
}

// Write decides whether the finished turn is worth persisting and, when
// it is, stores it with an extracted summary and fact list. It then
// advances the persisted turn counter and emits a maintenance trigger on
// every TransformInterval-th write.
func (s *Service) Write(ctx context.Context, state *workflow.State) error {
	answer := answerText(state)
	if answer == "" {
		s.logger.Debug("memory write skipped: no answer")
		return nil
	}
	for _, phrase := range skipPhrases {
		if strings.Contains(answer, phrase) {
			s.logger.Debug("memory write skipped: failure message")
			return nil
		}
	}

	question := state.OriginalQuestion
	if question == "" {
		question = state.Question
	}

	extracted := s.extractor.Extract(ctx, question, answer)

	// Medical turns are always kept; other turns only earn a row when at
	// least one fact was extracted.
	if state.ConversationType != workflow.TypeMedical && len(extracted.Facts) == 0 {
		s.logger.Debug("memory write skipped: nothing to remember",
			zap.String("conversation_type", state.ConversationType))
		return nil
	}

	turn := &entity.ConversationTurn{
		CreatedAt:        time.Now(),
		OriginalQuestion: question,
		AnswerText:       answer,
		QuestionSummary:  extracted.QuestionSummary,
		AnswerSummary:    extracted.AnswerSummary,
		Facts:            extracted.Facts,
		ConversationType: state.ConversationType,
	}
	if state.RewrittenQuestion != "" {
		rq := state.RewrittenQuestion
		turn.RewrittenQuestion = &rq
	}

	if err := s.turns.Create(ctx, turn); err != nil {
		return fmt.Errorf("persist turn: %w", err)
	}

	count, err := s.counter.Increment(ctx)
	if err != nil {
		// The turn itself is stored; a lost counter tick only delays the
		// next sweep.
		s.logger.Warn("turn counter increment failed", zap.Error(err))
		return nil
	}

	s.logger.Info("turn persisted",
		zap.Int64("turn_id", turn.Id),
		zap.Int64("turn_count", count),
		zap.Int("facts", len(extracted.Facts)))

	if count%TransformInterval == 0 {
		s.triggerMaintenance(count)
	}
	return nil
}

func answerText(state *workflow.State) string {
	if state.Structured != nil && state.Structured.Answer != "" {
		return state.Structured.Answer
	}
	return state.FinalAnswer
}

func (s *Service) triggerMaintenance(count int64) {
	if s.publisher == nil {
		// No event bus wired (tests, CLI): sweep inline.
		if _, err := s.Transform(context.Background()); err != nil {
			s.logger.Warn("maintenance sweep failed", zap.Error(err))
		}
		return
	}

	payload, err := json.Marshal(events.MemoryMaintenanceMessage{TurnCount: count})
	if err != nil {
		s.logger.Warn("maintenance event marshal failed", zap.Error(err))
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.publisher.Publish(events.TopicMemoryMaintenance, msg); err != nil {
		s.logger.Warn("maintenance event publish failed", zap.Error(err))
	}
}

// Transform is the maintenance sweep: it deletes turns older than
// RetentionDays that were never read. Running it twice in a row deletes
// nothing the second time.
func (s *Service) Transform(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -RetentionDays)
	deleted, err := s.turns.DeleteStaleUnused(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("maintenance sweep: %w", err)
	}
	if deleted > 0 {
		s.logger.Info("maintenance sweep removed stale turns", zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
