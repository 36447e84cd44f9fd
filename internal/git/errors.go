package git

import (
	"context"
	"errors"
	"strings"
)

// PRErrorType classifies gh failures for retry handling.
type PRErrorType int

const (
	// PRErrorNone indicates no error occurred.
	PRErrorNone PRErrorType = iota
	// PRErrorAuth indicates authentication failed - don't retry.
	PRErrorAuth
	// PRErrorRateLimit indicates rate limited - retry with backoff.
	PRErrorRateLimit
	// PRErrorNetwork indicates a network issue - retry with backoff.
	PRErrorNetwork
	// PRErrorNotFound indicates the repository or branch is missing - don't retry.
	PRErrorNotFound
	// PRErrorOther indicates an unknown error.
	PRErrorOther
)

// String returns a string representation of the error type.
func (t PRErrorType) String() string {
	switch t {
	case PRErrorNone:
		return "none"
	case PRErrorAuth:
		return "auth"
	case PRErrorRateLimit:
		return "rate_limit"
	case PRErrorNetwork:
		return "network"
	case PRErrorNotFound:
		return "not_found"
	case PRErrorOther:
		return "other"
	}
	return "other"
}

//nolint:gochecknoglobals // read-only pattern tables
var (
	rateLimitPatterns = []string{"rate limit", "too many requests", "abuse detection"}
	authPatterns      = []string{"authentication", "not logged in", "gh auth login", "bad credentials", "permission denied", "http 401"}
	networkPatterns   = []string{"could not resolve host", "connection refused", "connection reset", "timed out", "timeout", "network is unreachable", "tls handshake"}
	notFoundPatterns  = []string{"not found", "http 404", "could not resolve to a repository"}
)

// ClassifyGHError classifies a gh error. Rate limits are checked before
// authentication because GitHub reports both with HTTP 403.
func ClassifyGHError(err error) PRErrorType {
	if err == nil {
		return PRErrorNone
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return PRErrorNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, rateLimitPatterns):
		return PRErrorRateLimit
	case containsAny(msg, authPatterns):
		return PRErrorAuth
	case containsAny(msg, networkPatterns):
		return PRErrorNetwork
	case containsAny(msg, notFoundPatterns):
		return PRErrorNotFound
	}
	return PRErrorOther
}

// shouldRetryPR reports whether a failure of type t may succeed on retry.
// Unknown gh errors are retried since they are often transient.
func shouldRetryPR(t PRErrorType) bool {
	return t == PRErrorNetwork || t == PRErrorRateLimit || t == PRErrorOther
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
