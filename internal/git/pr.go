package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/evo/internal/ai"
	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/domain"
	evoerrors "github.com/mrz1836/evo/internal/errors"
)

const artifactPerm = 0o644

var prURLPattern = regexp.MustCompile(`https://github\.com/[^/\s]+/[^/\s]+/pull/\d+`)

// PRCreator commits an evolved artifact to a new branch of the working copy,
// pushes it and opens a pull request with gh. The working copy is returned
// to its original branch afterwards. Calls are serialized because they share
// one HEAD and index.
type PRCreator struct {
	mu sync.Mutex

	runner     *Runner
	workDir    string
	remote     string
	baseBranch string
	timeout    time.Duration
	retry      RetryConfig
	logger     zerolog.Logger
}

// PROption configures a PRCreator.
type PROption func(*PRCreator)

// WithExecutor replaces the process executor.
func WithExecutor(e ai.CommandExecutor) PROption {
	return func(c *PRCreator) { c.runner = NewRunner(c.workDir, e) }
}

// WithRemote sets the remote pushed to. Default origin.
func WithRemote(remote string) PROption {
	return func(c *PRCreator) { c.remote = remote }
}

// WithBaseBranch sets the branch the pull request targets. Default main.
func WithBaseBranch(branch string) PROption {
	return func(c *PRCreator) { c.baseBranch = branch }
}

// WithTimeout bounds the whole operation.
func WithTimeout(d time.Duration) PROption {
	return func(c *PRCreator) { c.timeout = d }
}

// WithRetryConfig sets the retry policy for gh pr create.
func WithRetryConfig(cfg RetryConfig) PROption {
	return func(c *PRCreator) { c.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) PROption {
	return func(c *PRCreator) { c.logger = logger.With().Str("component", "pr").Logger() }
}

// NewPRCreator returns a creator operating on the git working copy at workDir.
func NewPRCreator(workDir string, opts ...PROption) *PRCreator {
	c := &PRCreator{
		workDir:    workDir,
		remote:     "origin",
		baseBranch: "main",
		timeout:    constants.DefaultPRTimeout,
		retry:      DefaultRetryConfig(),
		logger:     zerolog.Nop(),
	}
	c.runner = NewRunner(workDir, nil)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create implements the engine's pull request collaborator and returns the
// pull request URL.
func (c *PRCreator) Create(ctx context.Context, req domain.PRRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", fmt.Errorf("%w: %w", evoerrors.ErrPRCreation, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prior, err := snapshotFile(c.targetPath(req))
	if err != nil {
		return "", fmt.Errorf("%w: %w", evoerrors.ErrPRCreation, err)
	}
	original, err := c.runner.Git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("%w: %w", evoerrors.ErrPRCreation, err)
	}
	if _, err := c.runner.Git(ctx, "checkout", "-b", req.Branch); err != nil {
		return "", fmt.Errorf("%w: %w", evoerrors.ErrPRCreation, err)
	}

	url, committed, err := c.publish(ctx, req)
	c.restore(context.WithoutCancel(ctx), req, original, prior, committed, err != nil)
	if err != nil {
		return "", err
	}
	return url, nil
}

// publish commits, pushes and opens the pull request on the new branch.
// committed reports whether the artifact commit exists.
func (c *PRCreator) publish(ctx context.Context, req domain.PRRequest) (string, bool, error) {
	if err := c.commit(ctx, req); err != nil {
		return "", false, fmt.Errorf("%w: %w", evoerrors.ErrPRCreation, err)
	}
	if _, err := c.runner.Git(ctx, "push", "--set-upstream", c.remote, req.Branch); err != nil {
		return "", true, fmt.Errorf("%w: %w", evoerrors.ErrPRCreation, err)
	}

	url, attempts, err := ExecuteWithRetry(ctx, c.retry, RetryOperation[string]{
		Attempt: func(ctx context.Context, attempt int) (string, error) {
			return c.openPR(ctx, req, attempt)
		},
		ShouldRetry: func(err error) bool { return shouldRetryPR(ClassifyGHError(err)) },
		OnRetryWait: func(attempt int, delay time.Duration) {
			c.logger.Info().Int("next_attempt", attempt+1).Dur("delay", delay).Msg("retrying PR creation")
		},
	})
	if err != nil {
		return "", true, fmt.Errorf("%w after %d attempt(s) (%s): %w", evoerrors.ErrPRCreation, attempts, ClassifyGHError(err), err)
	}
	return url, true, nil
}

// restore puts the working copy back on original with the target file as it
// was before Create. A failed attempt also deletes the local branch.
func (c *PRCreator) restore(ctx context.Context, req domain.PRRequest, original string, prior fileSnapshot, committed, failed bool) {
	target := c.targetPath(req)
	if !committed {
		c.gitBestEffort(ctx, "reset", "-q", "--", req.Path)
		c.restoreFile(target, prior)
	}
	c.gitBestEffort(ctx, "checkout", original)
	if committed {
		c.restoreFile(target, prior)
	}
	if failed {
		c.gitBestEffort(ctx, "branch", "-D", req.Branch)
	}
}

func (c *PRCreator) gitBestEffort(ctx context.Context, args ...string) {
	if _, err := c.runner.Git(ctx, args...); err != nil {
		c.logger.Warn().Err(err).Strs("args", args).Msg("failed to restore working copy")
	}
}

func (c *PRCreator) restoreFile(target string, prior fileSnapshot) {
	if err := prior.restore(target); err != nil {
		c.logger.Warn().Err(err).Str("path", target).Msg("failed to restore artifact file")
	}
}

func (c *PRCreator) targetPath(req domain.PRRequest) string {
	return filepath.Join(c.workDir, filepath.FromSlash(req.Path))
}

// fileSnapshot is a file's content before Create touched it.
type fileSnapshot struct {
	existed bool
	content []byte
}

func snapshotFile(path string) (fileSnapshot, error) {
	content, err := os.ReadFile(path) //#nosec G304 -- path validated to stay inside the working copy
	switch {
	case err == nil:
		return fileSnapshot{existed: true, content: content}, nil
	case os.IsNotExist(err):
		return fileSnapshot{}, nil
	default:
		return fileSnapshot{}, fmt.Errorf("failed to read artifact target: %w", err)
	}
}

func (s fileSnapshot) restore(path string) error {
	if !s.existed {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return os.WriteFile(path, s.content, artifactPerm) //#nosec G306 -- restoring a source file
}

func (c *PRCreator) commit(ctx context.Context, req domain.PRRequest) error {
	target := c.targetPath(req)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := os.WriteFile(target, []byte(req.Artifact), artifactPerm); err != nil { //#nosec G306 -- committed source file
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if _, err := c.runner.Git(ctx, "add", "--", req.Path); err != nil {
		return err
	}
	_, err := c.runner.Git(ctx, "commit", "-m", req.Title)
	return err
}

func (c *PRCreator) openPR(ctx context.Context, req domain.PRRequest, attempt int) (string, error) {
	c.logger.Info().
		Int("attempt", attempt).
		Str("title", req.Title).
		Str("base", c.baseBranch).
		Str("head", req.Branch).
		Msg("creating pull request")

	args := []string{
		"pr", "create",
		"--title", req.Title,
		"--body", req.Body,
		"--base", c.baseBranch,
		"--head", req.Branch,
	}
	if req.Repository != "" {
		args = append(args, "--repo", req.Repository)
	}

	out, err := c.runner.GH(ctx, args...)
	if err != nil {
		c.logger.Warn().Err(err).Int("attempt", attempt).Str("error_type", ClassifyGHError(err).String()).Msg("PR creation failed")
		return "", err
	}

	url := ParsePRURL(out)
	if url == "" {
		return "", fmt.Errorf("failed to parse PR URL from gh output [%s]: %w", out, evoerrors.ErrGitHubOperation)
	}
	c.logger.Info().Int("attempt", attempt).Str("pr_url", url).Msg("pull request created")
	return url, nil
}

// ParsePRURL extracts the pull request URL gh prints on success.
func ParsePRURL(output string) string {
	return prURLPattern.FindString(output)
}

func validateRequest(req domain.PRRequest) error {
	switch {
	case strings.TrimSpace(req.Path) == "":
		return evoerrors.ErrPRTargetMissing
	case filepath.IsAbs(req.Path) || strings.HasPrefix(filepath.Clean(filepath.FromSlash(req.Path)), ".."):
		return fmt.Errorf("%w: path %q escapes the working copy", evoerrors.ErrInvalidInput, req.Path)
	case req.Branch == "":
		return fmt.Errorf("branch %w", evoerrors.ErrEmptyValue)
	case req.Title == "":
		return fmt.Errorf("title %w", evoerrors.ErrEmptyValue)
	case req.Body == "":
		return fmt.Errorf("body %w", evoerrors.ErrEmptyValue)
	}
	return nil
}
