package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// ExecuteFunc performs one backend attempt.
type ExecuteFunc func(ctx context.Context, req *domain.AIRequest) (*domain.AIResult, error)

// BaseRunner holds the timeout and retry policy shared by all runners.
type BaseRunner struct {
	Kind       domain.AgentKind
	Timeout    time.Duration
	MaxRetries int
	Logger     zerolog.Logger
}

// ResolveTimeout picks the request timeout, then the configured one, then the default.
func (b *BaseRunner) ResolveTimeout(req *domain.AIRequest) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	if b.Timeout > 0 {
		return b.Timeout
	}
	return constants.DefaultAITimeout
}

// RunWithTimeout runs execute under the resolved timeout, retrying transient
// failures with exponential backoff.
func (b *BaseRunner) RunWithTimeout(ctx context.Context, req *domain.AIRequest, execute ExecuteFunc) (*domain.AIResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithTimeout(ctx, b.ResolveTimeout(req))
	defer cancel()

	attempts := b.MaxRetries
	if attempts < 1 {
		attempts = constants.MaxRetryAttempts
	}

	var lastErr error
	backoff := constants.InitialBackoff
	for attempt := 1; attempt <= attempts; attempt++ {
		start := time.Now()
		result, err := execute(runCtx, req)
		if err == nil {
			result.DurationMs = time.Since(start).Milliseconds()
			if attempt > 1 {
				b.Logger.Info().Str("agent", b.Kind.String()).Int("attempt", attempt).Msg("agent call succeeded after retry")
			}
			return result, nil
		}
		if runCtx.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %w", evoerrors.ErrAgentInvocation, b.Kind, runCtx.Err())
		}
		if !isRetryable(err) {
			return nil, err
		}

		lastErr = err
		if attempt < attempts {
			b.Logger.Warn().
				Err(err).
				Str("agent", b.Kind.String()).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("agent call failed, retrying")
			select {
			case <-runCtx.Done():
				return nil, fmt.Errorf("%w: %s: %w", evoerrors.ErrAgentInvocation, b.Kind, runCtx.Err())
			case <-timeAfter(backoff):
				backoff *= 2
			}
		}
	}

	return nil, fmt.Errorf("%w: %s: max retries exceeded: %w", evoerrors.ErrAgentInvocation, b.Kind, lastErr)
}
