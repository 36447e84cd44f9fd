// Package agent provides the generation agents the evolve loop invokes and
// the selector that picks one for each stage.
package agent

import (
	"context"
	"time"

	"github.com/mrz1836/evo/internal/domain"
	"github.com/mrz1836/evo/internal/prompts"
)

// RawReflectionKey holds the unparsed reflection when structured extraction fails.
const RawReflectionKey = "raw_reflection"

// Agent turns prompts into text.
type Agent interface {
	Name() string
	Kind() domain.AgentKind
	Capabilities() domain.CapabilitySet

	// Generate returns the model's response to prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Reflect asks the agent to critique text. It never fails: when no
	// structured result can be extracted it returns {"raw_reflection": ...}.
	Reflect(ctx context.Context, text string, opts ReflectOptions) map[string]any
}

// ChunkFunc receives streamed output in generation order.
type ChunkFunc func(chunk string) error

// Streamer is implemented by agents that can stream their output.
type Streamer interface {
	Stream(ctx context.Context, prompt string, onChunk ChunkFunc, opts GenerateOptions) error
}

// GenerateOptions tune a single generation.
type GenerateOptions struct {
	SystemPrompt string
	Model        string
	Temperature  float64
	Timeout      time.Duration
}

// ReflectOptions tune a reflection.
type ReflectOptions struct {
	GenerateOptions

	// Type selects the reflection prompt. Empty means general.
	Type prompts.ReflectionType
}
