package agent

import (
	"github.com/mrz1836/evo/internal/domain"
)

//nolint:gochecknoglobals // static capability tables
var (
	agentCapabilities = map[domain.AgentKind]domain.CapabilitySet{
		domain.AgentClaude: {
			domain.CapCodeGeneration, domain.CapCodeAnalysis, domain.CapAlgorithmKnowledge,
			domain.CapCritique, domain.CapSynthesis, domain.CapVerification,
			domain.CapCreativity, domain.CapInnovation, domain.CapCoherenceAnalysis,
			domain.CapEdgeCaseAnalysis,
		},
		domain.AgentGemini: {
			domain.CapCodeGeneration, domain.CapAlgorithmKnowledge, domain.CapTestGeneration,
			domain.CapVerification, domain.CapContextHandling, domain.CapEdgeCaseAnalysis,
		},
		domain.AgentGPT: {
			domain.CapCodeGeneration, domain.CapCodeAnalysis, domain.CapCreativity,
			domain.CapInnovation, domain.CapTestGeneration, domain.CapSynthesis,
		},
		domain.AgentMistral: {
			domain.CapCodeGeneration, domain.CapAlgorithmKnowledge, domain.CapCodeAnalysis,
		},
		domain.AgentLlama: {
			domain.CapCodeGeneration, domain.CapCodeAnalysis,
		},
	}

	stageCapabilities = map[string]domain.CapabilitySet{
		"initial_optimization": {domain.CapCodeGeneration, domain.CapAlgorithmKnowledge},
		"code_review":          {domain.CapCodeAnalysis, domain.CapCritique},
		"edge_case_testing":    {domain.CapCreativity, domain.CapTestGeneration},
		"final_synthesis":      {domain.CapCodeGeneration, domain.CapSynthesis},
		"iteration_1":          {domain.CapCodeGeneration, domain.CapAlgorithmKnowledge},
		"iteration_2":          {domain.CapCodeAnalysis, domain.CapCritique},
		"iteration_3":          {domain.CapCreativity, domain.CapInnovation},
		"iteration_4":          {domain.CapCodeGeneration, domain.CapSynthesis},
		"iteration_5":          {domain.CapCodeAnalysis, domain.CapVerification},
	}

	stagePreferences = map[string][]domain.AgentKind{
		"initial_optimization": {domain.AgentGemini, domain.AgentClaude, domain.AgentGPT},
		"code_review":          {domain.AgentClaude, domain.AgentGPT, domain.AgentGemini},
		"edge_case_testing":    {domain.AgentGPT, domain.AgentClaude, domain.AgentGemini},
		"final_synthesis":      {domain.AgentClaude, domain.AgentGPT, domain.AgentGemini},
		"iteration_1":          {domain.AgentGemini, domain.AgentClaude, domain.AgentGPT},
		"iteration_2":          {domain.AgentClaude, domain.AgentGPT, domain.AgentGemini},
		"iteration_3":          {domain.AgentGPT, domain.AgentClaude, domain.AgentGemini},
		"iteration_4":          {domain.AgentClaude, domain.AgentGemini, domain.AgentGPT},
		"iteration_5":          {domain.AgentClaude, domain.AgentGPT, domain.AgentGemini},
	}
)

// CapabilitiesOf returns the fixed capability tags of kind.
func CapabilitiesOf(kind domain.AgentKind) domain.CapabilitySet {
	return append(domain.CapabilitySet(nil), agentCapabilities[kind]...)
}

// RequiredCapabilities returns what a stage needs. Unknown stages need code generation.
func RequiredCapabilities(stage string) domain.CapabilitySet {
	if caps, ok := stageCapabilities[stage]; ok {
		return append(domain.CapabilitySet(nil), caps...)
	}
	return domain.CapabilitySet{domain.CapCodeGeneration}
}

// StagePreferences returns the preferred agent order for stage, if any.
func StagePreferences(stage string) []domain.AgentKind {
	return append([]domain.AgentKind(nil), stagePreferences[stage]...)
}
