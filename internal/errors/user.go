package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinels to user-facing text. A slice keeps the
// lookup order deterministic for wrapped errors.
//
//nolint:gochecknoglobals // Pre-built mapping
var errorInfoEntries = []errorEntry{
	{
		err: ErrTaskNotFound,
		info: ErrorInfo{
			Message: "No task exists with that id.",
			Action:  "Check the id returned by 'evo run' or POST /v1/tasks.",
		},
	},
	{
		err: ErrBlueprintNotFound,
		info: ErrorInfo{
			Message: "The requested blueprint is not registered.",
			Action:  "Run 'evo blueprints' to list available blueprints.",
		},
	},
	{
		err: ErrBlueprintInvalid,
		info: ErrorInfo{
			Message: "A blueprint definition is invalid.",
			Action:  "Fix the blueprint file listed under blueprints in your config.",
		},
	},
	{
		err: ErrTemplateVariableMissing,
		info: ErrorInfo{
			Message: "A blueprint prompt needs a variable that was not provided.",
			Action:  "Declare a default for the variable in the blueprint or pass it in the task options.",
		},
	},
	{
		err: ErrAgentInvocation,
		info: ErrorInfo{
			Message: "The agent and its fallback both failed to respond.",
			Action:  "Check that the agent CLIs are installed and authenticated.",
		},
	},
	{
		err: ErrCLINotFound,
		info: ErrorInfo{
			Message: "An agent CLI is not installed.",
			Action:  "Install the CLI or disable the agent under agents in your config.",
		},
	},
	{
		err: ErrNoAgentsAvailable,
		info: ErrorInfo{
			Message: "No agent could be constructed for this stage.",
			Action:  "Enable at least one agent in your config.",
		},
	},
	{
		err: ErrPRCreation,
		info: ErrorInfo{
			Message: "The evolution finished but the pull request could not be created.",
			Action:  "Check 'gh auth status' and the repository option.",
		},
	},
	{
		err: ErrLockTimeout,
		info: ErrorInfo{
			Message: "Another evo process is writing the same task snapshot.",
			Action:  "Wait for it to finish and retry.",
		},
	},
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "Unsupported output format.",
			Action:  "Use --output text or --output json.",
		},
	},
	{
		err: ErrConfigInvalidEngine,
		info: ErrorInfo{
			Message: "The engine section of the configuration is invalid.",
			Action:  "Check engine.max_iterations and engine.convergence_threshold.",
		},
	},
}

//nolint:gochecknoglobals // Built once from errorInfoEntries
var errorInfoMap = buildErrorInfoMap()

func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo tries a direct lookup first and walks the chain for wrapped errors.
func getErrorInfo(err error) ErrorInfo {
	if info, ok := errorInfoMap[err]; ok {
		return info
	}
	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}
	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for err, or err's own text
// when it matches no known sentinel.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns the user-friendly message and a suggested action.
// The action is empty for errors without a clear remedy.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
