// Package git opens pull requests for evolved artifacts by driving the git
// and gh command line tools in a working copy.
//
// Import rules:
//   - CAN import: internal/ai (command execution), internal/constants,
//     internal/domain, internal/errors
//   - MUST NOT import: internal/task, internal/cli
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/mrz1836/evo/internal/ai"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

// Runner executes git and gh in a working directory.
type Runner struct {
	workDir  string
	executor ai.CommandExecutor
}

// NewRunner returns a runner for workDir. A nil executor runs real processes.
func NewRunner(workDir string, executor ai.CommandExecutor) *Runner {
	if executor == nil {
		executor = &ai.DefaultExecutor{}
	}
	return &Runner{workDir: workDir, executor: executor}
}

// Git runs a git subcommand and returns its trimmed stdout. Errors wrap
// ErrGitHubOperation and include stderr.
func (r *Runner) Git(ctx context.Context, args ...string) (string, error) {
	return r.run(ctx, "git", args...)
}

// GH runs a gh subcommand and returns its trimmed stdout.
func (r *Runner) GH(ctx context.Context, args ...string) (string, error) {
	return r.run(ctx, "gh", args...)
}

func (r *Runner) run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //#nosec G204 -- args are constructed internally
	cmd.Dir = r.workDir

	stdout, stderr, err := r.executor.Execute(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		sub := ""
		if len(args) > 0 {
			sub = args[0]
		}
		if msg := strings.TrimSpace(string(stderr)); msg != "" {
			return "", fmt.Errorf("%s %s failed: %s: %w", name, sub, msg, evoerrors.ErrGitHubOperation)
		}
		return "", fmt.Errorf("%s %s failed: %w: %w", name, sub, err, evoerrors.ErrGitHubOperation)
	}
	return strings.TrimSpace(string(stdout)), nil
}
