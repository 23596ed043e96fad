package system

import "time"

// System is a game logic processor driven once per host tick.
type System interface {
	// Name identifies the system; it must be unique within a Manager.
	Name() string
	// Priority defines execution order; higher runs first.
	Priority() Priority
	// Update advances the system by deltaTime.
	Update(deltaTime time.Duration) error
}

// Priority defines execution order priority
type Priority uint16

// System priorities
const (
	PriorityLowest  Priority = 100
	PriorityLow     Priority = 500
	PriorityNormal  Priority = 600
	PriorityHigh    Priority = 1000
	PriorityHighest Priority = 1300
)

// Metrics provides runtime metrics for a system
type Metrics struct {
	ExecutionCount       uint64
	TotalExecutionTime   time.Duration
	AverageExecutionTime time.Duration
	MaxExecutionTime     time.Duration
	ErrorCount           uint64
	LastError            error
}
