// Package domain provides shared domain types for the evo orchestration engine.
package domain

// AgentKind identifies one of the fixed generation agent families.
// The selector only needs the kind's capability tags and a Generate entry point.
type AgentKind string

// Agent kinds known to the capability tables.
const (
	// AgentClaude is served by the Claude Code CLI.
	AgentClaude AgentKind = "claude"

	// AgentGPT is served by the Codex CLI.
	AgentGPT AgentKind = "gpt"

	// AgentGemini is served by the Gemini CLI.
	AgentGemini AgentKind = "gemini"

	// AgentMistral is served by a local Ollama model.
	AgentMistral AgentKind = "mistral"

	// AgentLlama is served by a local Ollama model.
	AgentLlama AgentKind = "llama"
)

// AgentKinds returns every kind in capability-table order. Ranking ties
// in the selector are broken by this order.
func AgentKinds() []AgentKind {
	return []AgentKind{AgentClaude, AgentGemini, AgentGPT, AgentMistral, AgentLlama}
}

// String returns the string representation of the AgentKind.
func (k AgentKind) String() string {
	return string(k)
}

// IsValid checks if the kind is recognized.
func (k AgentKind) IsValid() bool {
	switch k {
	case AgentClaude, AgentGPT, AgentGemini, AgentMistral, AgentLlama:
		return true
	}
	return false
}

// IsLocal reports whether the kind runs on a local Ollama server.
func (k AgentKind) IsLocal() bool {
	return k == AgentMistral || k == AgentLlama
}

// DefaultModel returns the default model for this kind.
func (k AgentKind) DefaultModel() string {
	switch k {
	case AgentClaude:
		return "sonnet"
	case AgentGPT:
		return "gpt-5-codex"
	case AgentGemini:
		return "gemini-2.5-pro"
	case AgentMistral:
		return "mistral"
	case AgentLlama:
		return "llama3.1"
	default:
		return ""
	}
}

// APIKeyEnvVar returns the environment variable the kind's CLI reads its key from.
// Local kinds have none.
func (k AgentKind) APIKeyEnvVar() string {
	switch k {
	case AgentClaude:
		return "ANTHROPIC_API_KEY"
	case AgentGPT:
		return "OPENAI_API_KEY"
	case AgentGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// Capability is a tag describing something an agent is good at.
type Capability string

// Capability tags consulted by the selector.
const (
	CapCodeGeneration     Capability = "code_generation"
	CapCodeAnalysis       Capability = "code_analysis"
	CapAlgorithmKnowledge Capability = "algorithm_knowledge"
	CapCritique           Capability = "critique"
	CapSynthesis          Capability = "synthesis"
	CapVerification       Capability = "verification"
	CapCreativity         Capability = "creativity"
	CapInnovation         Capability = "innovation"
	CapCoherenceAnalysis  Capability = "coherence_analysis"
	CapEdgeCaseAnalysis   Capability = "edge_case_analysis"
	CapTestGeneration     Capability = "test_generation"
	CapContextHandling    Capability = "context_handling"
)

// CapabilitySet is an ordered, duplicate-free list of capabilities.
type CapabilitySet []Capability

// Has reports whether c is in the set.
func (s CapabilitySet) Has(c Capability) bool {
	for _, have := range s {
		if have == c {
			return true
		}
	}
	return false
}

// Count returns how many of required are present in s.
func (s CapabilitySet) Count(required CapabilitySet) int {
	n := 0
	for _, c := range required {
		if s.Has(c) {
			n++
		}
	}
	return n
}

// Intersects reports whether s and other share at least one capability.
func (s CapabilitySet) Intersects(other CapabilitySet) bool {
	return s.Count(other) > 0
}
