package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"

	"github.com/mrz1836/evo/internal/config"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/logging"
)

// OllamaGenerator is the subset of *api.Client the runner uses.
type OllamaGenerator interface {
	Generate(ctx context.Context, req *api.GenerateRequest, fn api.GenerateResponseFunc) error
}

// OllamaRunner serves local model kinds (mistral, llama) through an Ollama server.
// Generation always streams; Run simply collects the chunks.
type OllamaRunner struct {
	base   BaseRunner
	client OllamaGenerator
	model  string
	logger zerolog.Logger
}

// NewOllamaClient builds an Ollama API client for host, falling back to
// OLLAMA_HOST and the library default when host is empty.
func NewOllamaClient(host string) (*api.Client, error) {
	if host == "" {
		return api.ClientFromEnvironment()
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid ollama host %q: %w", evoerrors.ErrAgentUnavailable, host, err)
	}
	return api.NewClient(base, http.DefaultClient), nil
}

// NewOllamaRunner returns a runner for a local kind.
func NewOllamaRunner(kind domain.AgentKind, client OllamaGenerator, agentCfg config.AgentConfig, agents *config.AgentsConfig, logger zerolog.Logger) (*OllamaRunner, error) {
	if !kind.IsLocal() {
		return nil, fmt.Errorf("%w: %s is not a local model kind", evoerrors.ErrAgentUnavailable, kind)
	}
	if client == nil {
		return nil, fmt.Errorf("%w: %s: no ollama client", evoerrors.ErrAgentUnavailable, kind)
	}
	model := agentCfg.Model
	if model == "" {
		model = kind.DefaultModel()
	}
	return &OllamaRunner{
		base: BaseRunner{
			Kind:       kind,
			Timeout:    agents.Timeout,
			MaxRetries: 1,
			Logger:     logger,
		},
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

var _ StreamRunner = (*OllamaRunner)(nil)

// Run generates a complete response.
func (r *OllamaRunner) Run(ctx context.Context, req *domain.AIRequest) (*domain.AIResult, error) {
	return r.Stream(ctx, req, nil)
}

// Stream generates a response, passing each chunk to onChunk in order.
func (r *OllamaRunner) Stream(ctx context.Context, req *domain.AIRequest, onChunk ChunkFunc) (*domain.AIResult, error) {
	return r.base.RunWithTimeout(ctx, req, func(ctx context.Context, req *domain.AIRequest) (*domain.AIResult, error) {
		model := req.Model
		if model == "" {
			model = r.model
		}
		stream := true
		genReq := &api.GenerateRequest{
			Model:  model,
			Prompt: req.Prompt,
			System: req.SystemPrompt,
			Stream: &stream,
		}
		if req.Temperature > 0 {
			genReq.Options = map[string]any{"temperature": req.Temperature}
		}

		r.logger.Debug().
			Str("agent", r.base.Kind.String()).
			Str("model", model).
			Str("prompt_preview", logging.Preview(req.Prompt)).
			Msg("invoking ollama")

		var out strings.Builder
		err := r.client.Generate(ctx, genReq, func(resp api.GenerateResponse) error {
			if resp.Response == "" {
				return nil
			}
			out.WriteString(resp.Response)
			if onChunk != nil {
				return onChunk(resp.Response)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", evoerrors.ErrAgentInvocation, r.base.Kind, err)
		}

		text := strings.TrimSpace(out.String())
		if text == "" {
			return nil, fmt.Errorf("%w: %w: %s", evoerrors.ErrAgentInvocation, evoerrors.ErrEmptyResponse, r.base.Kind)
		}
		return &domain.AIResult{Success: true, Output: text, Model: model}, nil
	})
}
