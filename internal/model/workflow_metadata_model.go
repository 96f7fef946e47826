package model

// WorkflowMetadata is a single-row key/value table; its only current key
// is the turn counter that schedules the memory maintenance sweep.
type WorkflowMetadata struct {
	Key   string `gorm:"primaryKey"`
	Value int64
}

func (WorkflowMetadata) TableName() string {
	return "workflow_metadata"
}
