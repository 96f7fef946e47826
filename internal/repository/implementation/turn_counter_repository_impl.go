package implementation

import (
	"context"

	"medirag-be/internal/model"
	"medirag-be/internal/repository/contract"

	"gorm.io/gorm"
)

const turnCountKey = "turn_count"

type TurnCounterRepositoryImpl struct {
	db *gorm.DB
}

func NewTurnCounterRepository(db *gorm.DB) contract.TurnCounterRepository {
	return &TurnCounterRepositoryImpl{db: db}
}

// Increment performs an atomic upsert-and-fetch so two concurrent turns
// never read the same counter value.
func (r *TurnCounterRepositoryImpl) Increment(ctx context.Context) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO workflow_metadata (key, value)
		VALUES (?, 1)
		ON CONFLICT (key) DO UPDATE SET value = workflow_metadata.value + 1
		RETURNING value
	`, turnCountKey).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (r *TurnCounterRepositoryImpl) Current(ctx context.Context) (int64, error) {
	var m model.WorkflowMetadata
	err := r.db.WithContext(ctx).Where("key = ?", turnCountKey).First(&m).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return m.Value, nil
}
