package config

import (
	"github.com/mrz1836/evo/internal/constants"
)

// DefaultConfig returns the configuration used when no file or env var overrides a value.
func DefaultConfig() *Config {
	return &Config{
		Agents: AgentsConfig{
			DefaultAgent: constants.DefaultFallbackAgent,
			Timeout:      constants.DefaultAITimeout,
			MaxRetries:   constants.MaxRetryAttempts,
			Claude:       AgentConfig{Enabled: true, Command: "claude", Model: "sonnet"},
			GPT:          AgentConfig{Enabled: true, Command: "codex", Model: "gpt-5-codex"},
			Gemini:       AgentConfig{Enabled: true, Command: "gemini", Model: "gemini-2.5-pro"},
			// Local models are opt-in; they need a running Ollama server.
			Mistral: AgentConfig{Model: "mistral"},
			Llama:   AgentConfig{Model: "llama3.1"},
		},
		Engine: EngineConfig{
			MaxIterations:        constants.DefaultMaxIterations,
			ConvergenceThreshold: constants.DefaultConvergenceThreshold,
			Language:             constants.DefaultLanguage,
			PromptTokenBudget:    constants.DefaultPromptTokenBudget,
		},
		Residue: ResidueConfig{
			CacheSize:      constants.DefaultResidueCacheSize,
			RelevanceLimit: constants.DefaultResidueLimit,
		},
		Evaluators: EvaluatorsConfig{
			Timeout:    constants.DefaultEvaluatorTimeout,
			SpeedupCap: constants.DefaultSpeedupCap,
		},
		Server: ServerConfig{Addr: "127.0.0.1:8080"},
		Store:  StoreConfig{Enabled: true},
		PR: PRConfig{
			Remote:     "origin",
			BaseBranch: "main",
			Timeout:    constants.DefaultPRTimeout,
		},
	}
}
