// Package ai provides the backends behind evo's generation agents: CLI
// runners for hosted models and an Ollama runner for local ones.
//
// Timeout and retry policy for a single call lives here. The evolve loop
// never imposes a timeout of its own.
package ai

import (
	"context"

	"github.com/mrz1836/evo/internal/domain"
)

// Runner executes a single prompt against a backend.
type Runner interface {
	Run(ctx context.Context, req *domain.AIRequest) (*domain.AIResult, error)
}

// ChunkFunc receives output in generation order. Returning an error aborts the stream.
type ChunkFunc func(chunk string) error

// StreamRunner is implemented by runners that can deliver output incrementally.
type StreamRunner interface {
	Runner
	Stream(ctx context.Context, req *domain.AIRequest, onChunk ChunkFunc) (*domain.AIResult, error)
}
