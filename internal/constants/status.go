package constants

// TaskStatus represents the lifecycle state of an evolution task.
// Status values use snake_case for JSON serialization compatibility.
type TaskStatus string

// Task status constants. The state machine is:
//
//	Initialized → InProgress
//	InProgress  → Completed, Failed
//
// Completed and Failed are terminal.
const (
	// TaskStatusInitialized indicates the task is registered but the loop has not started.
	TaskStatusInitialized TaskStatus = "initialized"

	// TaskStatusInProgress indicates the evolve loop owns the task.
	TaskStatusInProgress TaskStatus = "in_progress"

	// TaskStatusCompleted indicates the task finished and results are available.
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusFailed indicates the task stopped on an unrecovered error.
	TaskStatusFailed TaskStatus = "failed"
)

// String returns the string representation of the TaskStatus.
func (s TaskStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions are possible from s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}
