package domain

import "time"

// AIRequest is a single prompt sent to an agent backend.
//
// Example JSON representation:
//
//	{
//	    "agent": "claude",
//	    "prompt": "Optimize the following algorithm...",
//	    "model": "sonnet",
//	    "timeout": 600000000000
//	}
type AIRequest struct {
	// Agent selects the backend. Empty means the runner's own kind.
	Agent AgentKind `json:"agent,omitempty"`

	// Prompt is the full rendered prompt text.
	Prompt string `json:"prompt"`

	// SystemPrompt is prepended by backends that support a separate system role.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Model overrides the kind's configured model.
	Model string `json:"model,omitempty"`

	// Temperature is forwarded to backends that accept it. Zero means backend default.
	Temperature float64 `json:"temperature,omitempty"`

	// Timeout overrides the configured per-call timeout.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// AIResult is the response of a single backend call.
//
// Example JSON representation:
//
//	{
//	    "success": true,
//	    "output": "```python\n...\n```\nReflection: ...",
//	    "model": "sonnet",
//	    "duration_ms": 45000
//	}
type AIResult struct {
	// Success reports whether the backend considered the call successful.
	Success bool `json:"success"`

	// Output is the text produced by the model.
	Output string `json:"output"`

	// Model is the model that actually served the request.
	Model string `json:"model,omitempty"`

	// DurationMs is the wall time of the call in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// Error carries a backend-reported error message.
	Error string `json:"error,omitempty"`
}
