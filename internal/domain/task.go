package domain

import (
	"time"

	"github.com/mrz1836/evo/internal/constants"
)

// Task is one evolution run: an artifact, a goal, and the state the evolve
// loop drives it through. Only the engine's loop goroutine for the task
// mutates it; everyone else works on copies returned by Clone.
//
// Example JSON representation:
//
//	{
//	    "id": "6f1c1e0a-3f7e-4a43-a4a4-0f8d2d3c9b10",
//	    "artifact": "def fib(n): ...",
//	    "goal": "Make fib run in linear time",
//	    "blueprint": "algorithm_optimization",
//	    "options": {"language": "python", "max_iterations": 4},
//	    "status": "in_progress",
//	    "stage": "iteration_2",
//	    "progress": 50,
//	    "guidance_history": [{"timestamp": "...", "text": "keep it recursive"}],
//	    "created_at": "2026-01-02T10:00:00Z",
//	    "updated_at": "2026-01-02T10:03:00Z",
//	    "schema_version": "1.0"
//	}
type Task struct {
	ID string `json:"id"`

	// Artifact is the original artifact. Never modified after creation.
	Artifact string `json:"artifact"`

	Goal string `json:"goal"`

	// Blueprint names a registered blueprint. Empty means generic sequencing.
	Blueprint string `json:"blueprint,omitempty"`

	Options TaskOptions `json:"options"`

	Status constants.TaskStatus `json:"status"`

	// Stage is a free-text label: preparation, iteration_N, finalization, completed, error.
	Stage string `json:"stage"`

	// Progress is 0-100 and never decreases.
	Progress int `json:"progress"`

	// GuidanceHistory is append-only and may grow while the loop runs.
	GuidanceHistory []GuidanceEntry `json:"guidance_history,omitempty"`

	// Results is set only when Status is completed.
	Results *TaskResults `json:"results,omitempty"`

	// Error is set only when Status is failed.
	Error string `json:"error,omitempty"`

	Transitions []Transition `json:"transitions,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SchemaVersion string `json:"schema_version"`
}

// TaskOptions are the caller-supplied knobs recognized by the engine.
type TaskOptions struct {
	// Language of the artifact, used in prompts. Defaults to python.
	Language string `json:"language,omitempty" mapstructure:"language"`

	// PreferredAgents is consulted by the selector after the blueprint.
	PreferredAgents []string `json:"preferred_agents,omitempty" mapstructure:"preferred_agents"`

	// CreatePR asks the engine to open a pull request after finalization.
	CreatePR bool `json:"create_pr,omitempty" mapstructure:"create_pr"`

	// MaxIterations overrides the blueprint or default bound when positive.
	MaxIterations int `json:"max_iterations,omitempty" mapstructure:"max_iterations"`

	// Repository, Branch and Path describe the pull request target.
	Repository string `json:"repository,omitempty" mapstructure:"repository"`
	Branch     string `json:"branch,omitempty" mapstructure:"branch"`
	Path       string `json:"path,omitempty" mapstructure:"path"`

	// Variables are extra prompt variables, available to blueprint templates.
	Variables map[string]string `json:"variables,omitempty" mapstructure:"variables"`
}

// GuidanceEntry is one piece of human guidance appended to a running task.
type GuidanceEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// TaskResults is the output of a completed task.
type TaskResults struct {
	// Artifact is the best-scoring artifact seen across iterations.
	Artifact string `json:"artifact"`

	// Metrics is the detailed evaluation of Artifact against the original.
	Metrics EvaluationResult `json:"metrics"`

	Reflections []Reflection `json:"reflections"`

	// Iterations is how many iterations ran before convergence or the bound.
	Iterations int `json:"iterations"`

	// BestScore is the highest per-iteration score observed.
	BestScore float64 `json:"best_score"`

	// PR is set when a pull request was requested, whether or not it succeeded.
	PR *PRReference `json:"pr,omitempty"`
}

// PRReference records the outcome of the pull request step.
type PRReference struct {
	URL    string `json:"url,omitempty"`
	Branch string `json:"branch,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Transition records a status change.
type Transition struct {
	FromStatus constants.TaskStatus `json:"from_status"`
	ToStatus   constants.TaskStatus `json:"to_status"`
	Timestamp  time.Time            `json:"timestamp"`
	Reason     string               `json:"reason,omitempty"`
}

// StatusSnapshot is the read-only view returned by status queries.
type StatusSnapshot struct {
	ID        string               `json:"id"`
	Status    constants.TaskStatus `json:"status"`
	Stage     string               `json:"stage"`
	Progress  int                  `json:"progress"`
	Error     string               `json:"error,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// ResultsView is returned by result queries. Completed is false, and Message
// explains why, until the task has completed.
type ResultsView struct {
	StatusSnapshot

	Completed bool         `json:"completed"`
	Message   string       `json:"message,omitempty"`
	Results   *TaskResults `json:"results,omitempty"`
}

// GuidanceAck acknowledges a guidance submission.
type GuidanceAck struct {
	StatusSnapshot

	GuidanceAcknowledged bool `json:"guidance_acknowledged"`
	GuidanceCount        int  `json:"guidance_count"`
}

// Snapshot returns the status view of t.
func (t *Task) Snapshot() StatusSnapshot {
	return StatusSnapshot{
		ID:        t.ID,
		Status:    t.Status,
		Stage:     t.Stage,
		Progress:  t.Progress,
		Error:     t.Error,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// Clone returns a deep copy of t that shares no mutable state with it.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Options = t.Options.clone()
	if t.GuidanceHistory != nil {
		c.GuidanceHistory = append([]GuidanceEntry(nil), t.GuidanceHistory...)
	}
	if t.Transitions != nil {
		c.Transitions = append([]Transition(nil), t.Transitions...)
	}
	if t.Results != nil {
		r := *t.Results
		r.Metrics = t.Results.Metrics.Clone()
		r.Reflections = make([]Reflection, len(t.Results.Reflections))
		for i, ref := range t.Results.Reflections {
			r.Reflections[i] = ref.Clone()
		}
		if t.Results.PR != nil {
			pr := *t.Results.PR
			r.PR = &pr
		}
		c.Results = &r
	}
	return &c
}

func (o TaskOptions) clone() TaskOptions {
	c := o
	if o.PreferredAgents != nil {
		c.PreferredAgents = append([]string(nil), o.PreferredAgents...)
	}
	if o.Variables != nil {
		c.Variables = make(map[string]string, len(o.Variables))
		for k, v := range o.Variables {
			c.Variables[k] = v
		}
	}
	return c
}

// PRRequest is what the engine hands the pull request collaborator.
type PRRequest struct {
	// Repository is OWNER/REPO. Empty means the repository of the working directory.
	Repository string `json:"repository,omitempty"`
	Branch     string `json:"branch"`
	Title      string `json:"title"`
	Body       string `json:"body"`

	// Artifact is the evolved content and Baseline the original.
	Artifact string `json:"artifact"`
	Baseline string `json:"baseline"`

	// Path is the repository file Artifact is written to.
	Path string `json:"path,omitempty"`
}
