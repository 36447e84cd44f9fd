// Package constants provides centralized constant values used throughout evo.
// This package is the single source of truth for shared constants and MUST NOT
// import any other internal packages.
package constants

import "time"

// Directory and file names used by evo for configuration and state.
const (
	// EvoHome is the hidden directory name where evo stores its data.
	// It is created in the user's home directory and, optionally, in a project root.
	EvoHome = ".evo"

	// ConfigFileName is the name of the YAML configuration file inside EvoHome.
	ConfigFileName = "config.yaml"

	// TasksDir is the directory where terminal task snapshots are written.
	TasksDir = "tasks"

	// LogsDir is the directory where log files are stored.
	LogsDir = "logs"

	// CLILogFileName is the rotating log file written by the CLI.
	CLILogFileName = "evo.log"

	// TaskFileSuffix is appended to a task id to form its snapshot file name.
	TaskFileSuffix = ".json"

	// EnvPrefix is the prefix for environment variable overrides (EVO_ENGINE_MAX_ITERATIONS).
	EnvPrefix = "EVO"

	// HomeEnvVar overrides the location of EvoHome for logs.
	HomeEnvVar = "EVO_HOME"
)

// Log rotation settings for the CLI log file.
const (
	LogMaxSizeMB  = 10
	LogMaxBackups = 5
	LogMaxAgeDays = 30
	LogCompress   = true
)

// Evolve loop defaults applied when neither a blueprint nor the caller supplies a value.
const (
	// DefaultMaxIterations bounds the evolve loop when no blueprint is attached.
	DefaultMaxIterations = 3

	// DefaultConvergenceThreshold is the score delta below which the loop stops.
	DefaultConvergenceThreshold = 0.01

	// DefaultLanguage is the artifact language assumed when the task does not name one.
	DefaultLanguage = "python"

	// DefaultDomain is the residue domain used for tasks without a blueprint.
	DefaultDomain = "general"

	// DefaultFallbackAgent is the agent used when every selection strategy fails.
	DefaultFallbackAgent = "claude"

	// DefaultPromptTokenBudget caps the size of variable sections injected into prompts.
	DefaultPromptTokenBudget = 6000

	// DefaultResidueLimit is how many residue patterns are injected per prompt.
	DefaultResidueLimit = 5

	// DefaultResidueCacheSize is the LRU capacity of the residue relevance cache.
	DefaultResidueCacheSize = 256

	// DefaultSpeedupCap is the speedup at which the speedup evaluator saturates at 1.0.
	DefaultSpeedupCap = 10.0
)

// Progress checkpoints reported by the evolve loop.
const (
	// ProgressPreparation is reported when the loop enters preparation.
	ProgressPreparation = 5

	// ProgressIterationBase is the progress floor for the first iteration.
	ProgressIterationBase = 10

	// ProgressIterationSpan is the share of progress spread across iterations.
	ProgressIterationSpan = 80

	// ProgressFinalization is reported when the loop enters finalization.
	ProgressFinalization = 90

	// ProgressComplete is reported only when a task completes.
	ProgressComplete = 100
)

// Stage labels written to Task.Stage outside of iterations.
const (
	StagePreparation  = "preparation"
	StageFinalization = "finalization"
	StageCompleted    = "completed"
	StageError        = "error"

	// StageIterationPrefix is joined with the 1-based iteration number (iteration_2).
	StageIterationPrefix = "iteration_"
)

// Timeout configurations for external calls.
const (
	// DefaultAITimeout bounds a single agent CLI invocation. The engine itself
	// never imposes a timeout; this belongs to the agent adapters.
	DefaultAITimeout = 10 * time.Minute

	// DefaultEvaluatorTimeout bounds a command evaluator run.
	DefaultEvaluatorTimeout = 2 * time.Minute

	// DefaultPRTimeout bounds the gh invocation used for pull requests.
	DefaultPRTimeout = 2 * time.Minute

	// StatusPollInterval is how often `evo run` polls a task while waiting.
	StatusPollInterval = 500 * time.Millisecond

	// ShutdownTimeout bounds graceful HTTP server shutdown.
	ShutdownTimeout = 10 * time.Second
)

// Retry configuration for transient agent failures.
const (
	// MaxRetryAttempts is the maximum number of attempts for a transient CLI error.
	MaxRetryAttempts = 3

	// InitialBackoff is the delay before the first retry, doubled on every attempt.
	InitialBackoff = 1 * time.Second
)

// File locking for the snapshot store.
const (
	// LockTimeout is how long the store waits for a snapshot file lock.
	LockTimeout = 5 * time.Second

	// LockRetryInterval is the delay between lock attempts.
	LockRetryInterval = 50 * time.Millisecond
)

// PR description limits.
const (
	// MaxInsightLength truncates each reflection excerpt in a PR description.
	MaxInsightLength = 200

	// PRBranchPrefix is prefixed to the task id to form the default PR branch.
	PRBranchPrefix = "evo-"

	// PRTitlePrefix is prefixed to the goal to form the PR title.
	PRTitlePrefix = "Evolution: "
)

// TaskSchemaVersion is the version of the task snapshot JSON schema.
const TaskSchemaVersion = "1.0"
