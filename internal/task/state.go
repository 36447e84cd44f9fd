// Package task owns the task lifecycle: the state machine, the engine that
// runs the evolve loop for each task, and the snapshot store for finished
// tasks.
//
// Import rules:
//   - CAN import: internal/agent, internal/blueprint, internal/diff,
//     internal/evaluator, internal/prompts, internal/residue and the base packages
//   - MUST NOT import: internal/cli, internal/server, internal/ai
package task

import (
	"fmt"
	"slices"
	"time"

	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// ValidTransitions defines all allowed status transitions.
//
//	Initialized → InProgress, Failed
//	InProgress  → Completed, Failed
//
//nolint:gochecknoglobals // read-only lookup table
var ValidTransitions = map[constants.TaskStatus][]constants.TaskStatus{
	constants.TaskStatusInitialized: {constants.TaskStatusInProgress, constants.TaskStatusFailed},
	constants.TaskStatusInProgress:  {constants.TaskStatusCompleted, constants.TaskStatusFailed},
}

// IsValidTransition checks if moving from one status to another is allowed.
func IsValidTransition(from, to constants.TaskStatus) bool {
	return slices.Contains(ValidTransitions[from], to)
}

// IsTerminalStatus returns true for statuses with no outgoing transitions.
func IsTerminalStatus(status constants.TaskStatus) bool {
	return status.IsTerminal()
}

// Transition validates and applies a status change, recording it in the
// task's history and refreshing UpdatedAt.
func Transition(task *domain.Task, to constants.TaskStatus, reason string, now time.Time) error {
	if task == nil {
		return fmt.Errorf("%w: task is nil", evoerrors.ErrInvalidTransition)
	}
	from := task.Status
	if !IsValidTransition(from, to) {
		return fmt.Errorf("%w: cannot transition from %s to %s", evoerrors.ErrInvalidTransition, from, to)
	}

	task.Transitions = append(task.Transitions, domain.Transition{
		FromStatus: from,
		ToStatus:   to,
		Timestamp:  now,
		Reason:     reason,
	})
	task.Status = to
	task.UpdatedAt = now
	return nil
}
