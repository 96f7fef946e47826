package contract

import "context"

// TurnCounterRepository is the process-wide turn counter persisted in the
// workflow_metadata table. Increment must be atomic so concurrent turns
// cannot observe the same value.
type TurnCounterRepository interface {
	// Increment adds one to the counter and returns the new value.
	Increment(ctx context.Context) (int64, error)
	Current(ctx context.Context) (int64, error)
}
