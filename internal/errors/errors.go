// Package errors provides centralized error handling for evo.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
var (
	// ErrTaskNotFound indicates that no task is registered under the given id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrBlueprintNotFound indicates that a blueprint name could not be resolved
	// in the blueprint registry.
	ErrBlueprintNotFound = errors.New("blueprint not found")

	// ErrBlueprintInvalid indicates that a blueprint definition failed validation
	// (empty name, empty agent sequence, unknown evaluator).
	ErrBlueprintInvalid = errors.New("invalid blueprint")

	// ErrBlueprintFileMissing indicates that a blueprint file does not exist.
	ErrBlueprintFileMissing = errors.New("blueprint file not found")

	// ErrBlueprintParse indicates that a blueprint file is not valid YAML or JSON.
	ErrBlueprintParse = errors.New("failed to parse blueprint file")

	// ErrStageNotFound indicates that a blueprint has no entry for a stage role.
	ErrStageNotFound = errors.New("stage not defined in blueprint")

	// ErrTemplateVariableMissing indicates that a prompt template requires a
	// variable the caller did not supply. Fatal for the active task.
	ErrTemplateVariableMissing = errors.New("required template variable missing")

	// ErrTemplateNotFound indicates that no prompt template exists for an id.
	ErrTemplateNotFound = errors.New("prompt template not found")

	// ErrTemplateExecution indicates that rendering an embedded template failed.
	ErrTemplateExecution = errors.New("template execution failed")

	// ErrAgentInvocation indicates that an agent failed to generate a response.
	// The engine recovers once through a fallback agent.
	ErrAgentInvocation = errors.New("agent invocation failed")

	// ErrAgentNotFound indicates that no agent constructor is registered for a name.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrAgentUnavailable indicates that an agent is registered but disabled
	// or could not be constructed.
	ErrAgentUnavailable = errors.New("agent unavailable")

	// ErrNoAgentsAvailable indicates that the selector exhausted every strategy,
	// including the default fallback agent.
	ErrNoAgentsAvailable = errors.New("no agents available")

	// ErrCLINotFound indicates that an agent CLI binary is not installed.
	ErrCLINotFound = errors.New("agent CLI not found")

	// ErrEmptyResponse indicates that an agent returned no output.
	ErrEmptyResponse = errors.New("agent returned empty response")

	// ErrDiffApplication indicates that a proposed transformation could not be
	// applied cleanly. Non-fatal: the iteration keeps the unmodified artifact.
	ErrDiffApplication = errors.New("diff could not be applied")

	// ErrNoDiff indicates that a response contained no recognizable transformation.
	ErrNoDiff = errors.New("no transformation found in response")

	// ErrEvaluator indicates that an evaluator failed. Non-fatal: the evaluator
	// contributes a zero score with an error annotation.
	ErrEvaluator = errors.New("evaluator failed")

	// ErrEvaluatorNotFound indicates that an evaluator name is not in the catalog.
	ErrEvaluatorNotFound = errors.New("evaluator not found")

	// ErrEvaluatorOutput indicates that a command evaluator printed output
	// that could not be decoded into a score.
	ErrEvaluatorOutput = errors.New("invalid evaluator output")

	// ErrInvalidTransition indicates an attempt to move a task between states
	// the state machine does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrPRCreation indicates that the pull request collaborator failed.
	// Recorded on the task results, never fatal.
	ErrPRCreation = errors.New("pull request creation failed")

	// ErrGitHubOperation indicates that a gh CLI call failed.
	ErrGitHubOperation = errors.New("github operation failed")

	// ErrPRTargetMissing indicates that create_pr was requested without a target file path.
	ErrPRTargetMissing = errors.New("pull request target path not set")

	// ErrLockTimeout indicates that a snapshot file lock could not be acquired in time.
	ErrLockTimeout = errors.New("lock acquisition timeout")

	// ErrSnapshotCorrupted indicates that a task snapshot file could not be decoded.
	ErrSnapshotCorrupted = errors.New("task snapshot corrupted")

	// ErrEmptyValue indicates that a required value is empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrInvalidInput indicates a malformed request from a caller (CLI or HTTP).
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidOutputFormat indicates an unsupported --output value.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrTaskFailed indicates that a task awaited by the CLI ended in failure.
	ErrTaskFailed = errors.New("task failed")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalidEngine indicates an invalid engine configuration value.
	ErrConfigInvalidEngine = errors.New("invalid engine configuration")

	// ErrConfigInvalidAgents indicates an invalid agents configuration value.
	ErrConfigInvalidAgents = errors.New("invalid agents configuration")

	// ErrConfigInvalidServer indicates an invalid server configuration value.
	ErrConfigInvalidServer = errors.New("invalid server configuration")

	// ErrConfigInvalidResidue indicates an invalid residue configuration value.
	ErrConfigInvalidResidue = errors.New("invalid residue configuration")
)

// ExitCode2Error wraps an error to indicate exit code 2 should be used.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps an error to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

// Error implements the error interface.
func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error checks if an error should result in exit code 2.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}

// IsNotFound reports whether err is one of the not-found sentinels that are
// surfaced to callers without mutating any task.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTaskNotFound) || errors.Is(err, ErrBlueprintNotFound)
}

// IsRecoverable reports whether err belongs to a class the evolve loop
// absorbs without failing the task.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrDiffApplication) ||
		errors.Is(err, ErrNoDiff) ||
		errors.Is(err, ErrEvaluator) ||
		errors.Is(err, ErrPRCreation)
}
