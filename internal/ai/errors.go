package ai

import (
	"fmt"
	"strings"

	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// CLIInfo describes a backend CLI for error messages.
type CLIInfo struct {
	Name        string
	InstallHint string
	EnvVar      string
}

// WrapCLIExecutionError classifies a failed CLI run. Every result wraps
// ErrAgentInvocation; a missing binary additionally wraps ErrCLINotFound.
func WrapCLIExecutionError(info CLIInfo, err error, stderr []byte) error {
	stderrStr := strings.TrimSpace(string(stderr))

	if strings.Contains(err.Error(), "executable file not found") ||
		strings.Contains(stderrStr, "command not found") {
		return fmt.Errorf("%w: %w: %s (%s)", evoerrors.ErrAgentInvocation, evoerrors.ErrCLINotFound, info.Name, info.InstallHint)
	}

	lower := strings.ToLower(stderrStr)
	if strings.Contains(lower, "api key") || strings.Contains(lower, "authentication") ||
		(info.EnvVar != "" && strings.Contains(stderrStr, info.EnvVar)) {
		return fmt.Errorf("%w: %s authentication error: %s", evoerrors.ErrAgentInvocation, info.Name, stderrStr)
	}

	if stderrStr != "" {
		return fmt.Errorf("%w: %s: %s", evoerrors.ErrAgentInvocation, info.Name, stderrStr)
	}
	return fmt.Errorf("%w: %s: %s", evoerrors.ErrAgentInvocation, info.Name, err.Error())
}
