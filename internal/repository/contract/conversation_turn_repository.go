package contract

import (
	"context"
	"time"

	"medirag-be/internal/entity"
)

// ConversationTurnRepository is the durable conversation store. All
// mutation of turns goes through the memory service, never stage code.
type ConversationTurnRepository interface {
	Create(ctx context.Context, turn *entity.ConversationTurn) error
	// FindRecent returns up to limit turns, newest first.
	FindRecent(ctx context.Context, limit int) ([]*entity.ConversationTurn, error)
	// IncrementAccess bumps access_count by 1 for every given id.
	IncrementAccess(ctx context.Context, ids []int64) error
	Count(ctx context.Context) (int64, error)
	// DeleteStaleUnused removes turns created before cutoff that were
	// never read (access_count = 0) and reports how many were removed.
	DeleteStaleUnused(ctx context.Context, cutoff time.Time) (int64, error)
}
