package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// timeAfter is replaced in tests to skip backoff sleeps.
//
//nolint:gochecknoglobals // test seam
var timeAfter = time.After

// isRetryable reports whether a backend error is worth another attempt.
// Cancellation, missing binaries, auth and empty responses are permanent.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, evoerrors.ErrCLINotFound) || errors.Is(err, evoerrors.ErrEmptyResponse) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, permanent := range []string{"authentication", "api key", "unauthorized", "model not found", "invalid argument"} {
		if strings.Contains(msg, permanent) {
			return false
		}
	}
	return true
}
