package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/evo/internal/blueprint"
	"github.com/mrz1836/evo/internal/config"
	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/diff"
	"github.com/mrz1836/evo/internal/domain"
	"github.com/mrz1836/evo/internal/errors"
	"github.com/mrz1836/evo/internal/prompts"
	"github.com/mrz1836/evo/internal/task"
)

// runOptions holds the flags of `evo run`.
type runOptions struct {
	ArtifactPath    string
	Goal            string
	Blueprint       string
	Language        string
	MaxIterations   int
	PreferredAgents []string
	Variables       map[string]string
	CreatePR        bool
	Repository      string
	Branch          string
	Path            string
	ShowDiff        bool
	OutFile         string
}

// AddRunCommand adds the run command to the root command.
func AddRunCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newRunCmd(flags))
}

func newRunCmd(flags *GlobalFlags) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evolve an artifact toward a goal",
		Long: `Start an evolution task for an artifact and wait for it to finish.

The artifact is read from --artifact ("-" reads stdin). Progress is printed
as the task moves through its stages; the evolved artifact, its metrics and
the agents' reflections are printed at the end.

Examples:
  evo run --artifact fib.py --goal "make it iterative"
  evo run --artifact sort.py --goal "reduce allocations" --blueprint algorithm_optimization
  evo run --artifact fib.py --goal "faster" --diff --out fib.evolved.py
  evo run --artifact src/fib.py --goal "faster" --create-pr --repository acme/app`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), flags, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ArtifactPath, "artifact", "a", "", "file holding the artifact to evolve (- for stdin)")
	cmd.Flags().StringVarP(&opts.Goal, "goal", "g", "", "what the evolution should achieve")
	cmd.Flags().StringVarP(&opts.Blueprint, "blueprint", "b", "", "blueprint to follow")
	cmd.Flags().StringVar(&opts.Language, "language", "", "artifact language used in prompts")
	cmd.Flags().IntVar(&opts.MaxIterations, "max-iterations", 0, "override the iteration bound")
	cmd.Flags().StringSliceVar(&opts.PreferredAgents, "preferred-agent", nil, "agent to prefer (repeatable)")
	cmd.Flags().StringToStringVar(&opts.Variables, "var", nil, "extra prompt variable key=value (repeatable)")
	cmd.Flags().BoolVar(&opts.CreatePR, "create-pr", false, "open a pull request with the evolved artifact")
	cmd.Flags().StringVar(&opts.Repository, "repository", "", "repository for the pull request (owner/name)")
	cmd.Flags().StringVar(&opts.Branch, "branch", "", "pull request branch (default evo-<task id>)")
	cmd.Flags().StringVar(&opts.Path, "path", "", "repository path the evolved artifact is written to (default --artifact)")
	cmd.Flags().BoolVar(&opts.ShowDiff, "diff", false, "print a unified diff of the evolved artifact")
	cmd.Flags().StringVar(&opts.OutFile, "out", "", "write the evolved artifact to this file")
	_ = cmd.MarkFlagRequired("artifact")
	_ = cmd.MarkFlagRequired("goal")

	return cmd
}

func runRun(ctx context.Context, w io.Writer, stdin io.Reader, flags *GlobalFlags, opts *runOptions) error {
	logger := GetLogger()
	checkNoColor()
	out := NewOutput(w, flags.Output)

	req, err := opts.startRequest(stdin)
	if err != nil {
		return err
	}

	factory := NewServiceFactory(logger, nil)
	cfg, err := factory.LoadConfig(ctx, config.Overrides{})
	if err != nil {
		return err
	}
	svc, err := factory.Build(ctx, cfg)
	if err != nil {
		return err
	}

	onStatus := func(s domain.StatusSnapshot) {
		if flags.Quiet {
			return
		}
		out.Info(out.Status(s.ID, s.Status, s.Stage, s.Progress))
	}
	t, err := startAndWait(ctx, svc.Engine, req, constants.StatusPollInterval, onStatus)
	if err != nil {
		return err
	}
	return reportRun(out, t, svc.Blueprints, opts)
}

// startRequest reads the artifact and turns the flags into a StartRequest.
func (o *runOptions) startRequest(stdin io.Reader) (task.StartRequest, error) {
	artifact, err := readArtifact(o.ArtifactPath, stdin)
	if err != nil {
		return task.StartRequest{}, err
	}

	path := o.Path
	if path == "" && o.CreatePR && o.ArtifactPath != "-" && !filepath.IsAbs(o.ArtifactPath) {
		path = filepath.ToSlash(filepath.Clean(o.ArtifactPath))
	}

	return task.StartRequest{
		Artifact:  artifact,
		Goal:      o.Goal,
		Blueprint: o.Blueprint,
		Options: domain.TaskOptions{
			Language:        o.Language,
			PreferredAgents: o.PreferredAgents,
			CreatePR:        o.CreatePR,
			MaxIterations:   o.MaxIterations,
			Repository:      o.Repository,
			Branch:          o.Branch,
			Path:            path,
			Variables:       o.Variables,
		},
	}, nil
}

func readArtifact(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) //nolint:gosec // user-supplied artifact path
	}
	if err != nil {
		return "", errors.NewExitCode2Error(fmt.Errorf("%w: failed to read artifact %q: %w", errors.ErrInvalidInput, path, err))
	}
	if len(data) == 0 {
		return "", errors.NewExitCode2Error(fmt.Errorf("%w: artifact %q is empty", errors.ErrInvalidInput, path))
	}
	return string(data), nil
}

// taskRunner is the part of task.Engine `evo run` drives.
type taskRunner interface {
	Start(ctx context.Context, req task.StartRequest) (string, error)
	GetStatus(id string) (domain.StatusSnapshot, error)
	GetTask(id string) (*domain.Task, error)
}

// startAndWait starts a task and polls its status every interval until it
// is terminal. onStatus sees every distinct stage/progress pair.
func startAndWait(ctx context.Context, eng taskRunner, req task.StartRequest, interval time.Duration, onStatus func(domain.StatusSnapshot)) (*domain.Task, error) {
	id, err := eng.Start(ctx, req)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NewExitCode2Error(err)
		}
		return nil, err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last domain.StatusSnapshot
	for {
		s, err := eng.GetStatus(id)
		if err != nil {
			return nil, err
		}
		if s.Stage != last.Stage || s.Progress != last.Progress || s.Status != last.Status {
			onStatus(s)
			last = s
		}
		if task.IsTerminalStatus(s.Status) {
			return eng.GetTask(id)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// runReport is the JSON form of a finished run.
type runReport struct {
	TaskID  string               `json:"task_id"`
	Status  constants.TaskStatus `json:"status"`
	Error   string               `json:"error,omitempty"`
	Results *domain.TaskResults  `json:"results,omitempty"`
	Diff    *diff.Stats          `json:"diff,omitempty"`
}

// reportRun prints t and writes --out. A failed task is returned as ErrTaskFailed.
func reportRun(out *Output, t *domain.Task, blueprints *blueprint.Registry, opts *runOptions) error {
	if t.Status == constants.TaskStatusFailed {
		if out.IsJSON() {
			_ = out.JSON(runReport{TaskID: t.ID, Status: t.Status, Error: t.Error})
		}
		return fmt.Errorf("%w: %s", errors.ErrTaskFailed, t.Error)
	}

	results := t.Results
	stats := diff.Compare(t.Artifact, results.Artifact)

	if opts.OutFile != "" {
		if err := os.WriteFile(opts.OutFile, []byte(results.Artifact), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.OutFile, err)
		}
	}

	if out.IsJSON() {
		return out.JSON(runReport{TaskID: t.ID, Status: t.Status, Results: results, Diff: &stats})
	}

	var bpName, bpVersion string
	if t.Blueprint != "" {
		if bp, err := blueprints.Get(t.Blueprint); err == nil {
			bpName, bpVersion = bp.Name(), bp.Version()
		}
	}
	summary, err := prompts.RenderPRDescription(prompts.NewPRDescriptionData(
		t, results.Metrics, results.Reflections, bpName, bpVersion, t.UpdatedAt))
	if err != nil {
		return err
	}
	out.Raw(renderMarkdown(summary))

	out.Info(fmt.Sprintf("%d iterations, best score %.4f, %s", results.Iterations, results.BestScore, stats))
	if opts.ShowDiff {
		name := filepath.Base(opts.ArtifactPath)
		if opts.ArtifactPath == "-" {
			name = "artifact"
		}
		out.Raw(diff.Unified(t.Artifact, results.Artifact, name, hasColorSupport()))
	}
	if opts.OutFile != "" {
		out.Success("evolved artifact written to " + opts.OutFile)
	}
	if results.PR != nil {
		if results.PR.URL != "" {
			out.Success("pull request: " + results.PR.URL)
		} else {
			out.Warning("pull request not created: " + results.PR.Error)
		}
	}
	return nil
}
