package prompts

import (
	"fmt"
	"sort"
	"time"

	"github.com/mrz1836/evo/internal/constants"
	"github.com/mrz1836/evo/internal/domain"
)

// MetricRow is one line of the PR metrics table.
type MetricRow struct {
	Name        string
	Value       string
	Improvement string
}

// Insight is the excerpt of one reflection.
type Insight struct {
	Stage string
	Text  string
}

// PRDescriptionData feeds the PR description template.
type PRDescriptionData struct {
	Goal             string
	Metrics          []MetricRow
	Insights         []Insight
	TaskID           string
	Created          string
	Completed        string
	BlueprintName    string
	BlueprintVersion string
}

// PRTitle returns the pull request title for goal.
func PRTitle(goal string) string {
	return constants.PRTitlePrefix + goal
}

// PRBranch returns the default branch name for a task.
func PRBranch(taskID string) string {
	return constants.PRBranchPrefix + taskID
}

// NewPRDescriptionData collects the description inputs from a finished task.
// Metrics are listed with the overall score first, then by name.
func NewPRDescriptionData(task *domain.Task, metrics domain.EvaluationResult, reflections []domain.Reflection, bpName, bpVersion string, completed time.Time) PRDescriptionData {
	data := PRDescriptionData{
		Goal:             task.Goal,
		TaskID:           task.ID,
		Created:          task.CreatedAt.Format(time.RFC3339),
		Completed:        completed.Format(time.RFC3339),
		BlueprintName:    bpName,
		BlueprintVersion: bpVersion,
	}

	data.Metrics = append(data.Metrics, MetricRow{
		Name:        "score",
		Value:       fmt.Sprintf("%.4f", metrics.Score),
		Improvement: improvement(metrics.Improvements, "score"),
	})
	names := make([]string, 0, len(metrics.Metrics))
	for name := range metrics.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		data.Metrics = append(data.Metrics, MetricRow{
			Name:        name,
			Value:       fmt.Sprintf("%.4f", metrics.Metrics[name]),
			Improvement: improvement(metrics.Improvements, name),
		})
	}

	for _, r := range reflections {
		data.Insights = append(data.Insights, Insight{
			Stage: r.Stage,
			Text:  FirstParagraph(r.Content, constants.MaxInsightLength),
		})
	}
	return data
}

func improvement(improvements map[string]string, name string) string {
	if v, ok := improvements[name]; ok && v != "" {
		return v
	}
	return "N/A"
}

// RenderPRDescription renders the markdown PR body.
func RenderPRDescription(data PRDescriptionData) (string, error) {
	return globalRegistry.executePR(data)
}
