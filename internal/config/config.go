// Package config loads evo configuration from defaults, YAML files,
// EVO_* environment variables and CLI flag overrides.
package config

import "time"

// Config is the complete evo configuration.
//
// Example YAML:
//
//	agents:
//	  default_agent: claude
//	  timeout: 10m
//	  claude:
//	    model: opus
//	engine:
//	  max_iterations: 4
//	blueprints:
//	  refactor: .evo/blueprints/refactor.yaml
type Config struct {
	// Agents configures the generation agent backends.
	Agents AgentsConfig `yaml:"agents" mapstructure:"agents"`

	// Ollama configures the local model server used by mistral and llama.
	Ollama OllamaConfig `yaml:"ollama" mapstructure:"ollama"`

	// Engine configures the evolve loop defaults.
	Engine EngineConfig `yaml:"engine" mapstructure:"engine"`

	// Residue configures the residue registry.
	Residue ResidueConfig `yaml:"residue" mapstructure:"residue"`

	// Evaluators configures the built-in evaluators.
	Evaluators EvaluatorsConfig `yaml:"evaluators" mapstructure:"evaluators"`

	// Blueprints maps blueprint names to YAML or JSON files.
	// Relative paths are resolved against the working directory.
	Blueprints map[string]string `yaml:"blueprints" mapstructure:"blueprints"`

	// Server configures `evo serve`.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Store configures terminal task snapshots.
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// PR configures pull request creation.
	PR PRConfig `yaml:"pr" mapstructure:"pr"`
}

// AgentsConfig configures the agent backends.
type AgentsConfig struct {
	// DefaultAgent is used when every selection strategy fails.
	DefaultAgent string `yaml:"default_agent" mapstructure:"default_agent"`

	// Timeout bounds a single agent call. The engine imposes no timeout of its own.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// MaxRetries is how many times a transient CLI failure is attempted.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries"`

	Claude  AgentConfig `yaml:"claude" mapstructure:"claude"`
	GPT     AgentConfig `yaml:"gpt" mapstructure:"gpt"`
	Gemini  AgentConfig `yaml:"gemini" mapstructure:"gemini"`
	Mistral AgentConfig `yaml:"mistral" mapstructure:"mistral"`
	Llama   AgentConfig `yaml:"llama" mapstructure:"llama"`
}

// AgentConfig configures one agent kind.
type AgentConfig struct {
	// Enabled controls whether the factory may construct the agent.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Command overrides the CLI binary. Ignored for Ollama-backed kinds.
	Command string `yaml:"command" mapstructure:"command"`

	// Model overrides the kind's default model.
	Model string `yaml:"model" mapstructure:"model"`
}

// OllamaConfig configures the Ollama client.
type OllamaConfig struct {
	// Host is the Ollama server URL. Empty uses OLLAMA_HOST or the library default.
	Host string `yaml:"host" mapstructure:"host"`
}

// EngineConfig configures evolve loop defaults.
type EngineConfig struct {
	// MaxIterations applies to tasks without a blueprint.
	MaxIterations int `yaml:"max_iterations" mapstructure:"max_iterations"`

	// ConvergenceThreshold applies to tasks without a blueprint.
	ConvergenceThreshold float64 `yaml:"convergence_threshold" mapstructure:"convergence_threshold"`

	// Language is assumed when a task does not name one.
	Language string `yaml:"language" mapstructure:"language"`

	// PromptTokenBudget caps the token size of each variable section in a prompt.
	PromptTokenBudget int `yaml:"prompt_token_budget" mapstructure:"prompt_token_budget"`

	// StructuredReflections asks the iteration's agent to critique its own
	// reflection and stores the parsed result in the reflection metadata.
	StructuredReflections bool `yaml:"structured_reflections" mapstructure:"structured_reflections"`
}

// ResidueConfig configures residue retrieval.
type ResidueConfig struct {
	// CacheSize is the LRU capacity for relevance queries.
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"`

	// RelevanceLimit is how many patterns are injected per prompt.
	RelevanceLimit int `yaml:"relevance_limit" mapstructure:"relevance_limit"`
}

// EvaluatorsConfig configures built-in evaluators.
type EvaluatorsConfig struct {
	// Timeout bounds each command evaluator run.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	// SpeedupCap is the speedup at which the speedup evaluator saturates.
	SpeedupCap float64 `yaml:"speedup_cap" mapstructure:"speedup_cap"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr  string `yaml:"addr" mapstructure:"addr"`
	Debug bool   `yaml:"debug" mapstructure:"debug"`
}

// StoreConfig configures task snapshots.
type StoreConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`

	// Dir overrides ~/.evo/tasks.
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// PRConfig configures the gh-based pull request collaborator.
type PRConfig struct {
	Remote     string        `yaml:"remote" mapstructure:"remote"`
	BaseBranch string        `yaml:"base_branch" mapstructure:"base_branch"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Agent returns the configuration for a kind by name.
func (c *AgentsConfig) Agent(name string) (AgentConfig, bool) {
	switch name {
	case "claude":
		return c.Claude, true
	case "gpt":
		return c.GPT, true
	case "gemini":
		return c.Gemini, true
	case "mistral":
		return c.Mistral, true
	case "llama":
		return c.Llama, true
	}
	return AgentConfig{}, false
}
