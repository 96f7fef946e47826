package events

// TopicMemoryMaintenance carries maintenance triggers emitted by the
// memory service when the persisted turn counter crosses a sweep interval.
const TopicMemoryMaintenance = "MEMORY_MAINTENANCE"

// MemoryMaintenanceMessage is the payload published on
// TopicMemoryMaintenance.
type MemoryMaintenanceMessage struct {
	TurnCount int64 `json:"turn_count"`
}
