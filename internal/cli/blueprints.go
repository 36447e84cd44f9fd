package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mrz1836/evo/internal/blueprint"
	"github.com/mrz1836/evo/internal/config"
)

// AddBlueprintsCommand adds the blueprints command to the root command.
func AddBlueprintsCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(newBlueprintsCmd(flags))
}

// blueprintSummary is the JSON form of a registered blueprint.
type blueprintSummary struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Domain        string   `json:"domain"`
	Description   string   `json:"description,omitempty"`
	Stages        []string `json:"stages"`
	Agents        []string `json:"agents"`
	MaxIterations int      `json:"max_iterations"`
}

func newBlueprintsCmd(flags *GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "blueprints",
		Short: "List registered blueprints",
		Long: `List the built-in blueprints and those configured under 'blueprints'
in .evo/config.yaml or ~/.evo/config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			factory := NewServiceFactory(GetLogger(), nil)
			cfg, err := factory.LoadConfig(cmd.Context(), config.Overrides{})
			if err != nil {
				return err
			}
			reg, err := factory.Blueprints(cfg, factory.Catalog(cfg))
			if err != nil {
				return err
			}
			return listBlueprints(NewOutput(cmd.OutOrStdout(), flags.Output), cmd.OutOrStdout(), reg)
		},
	}
}

func summarize(bp blueprint.Blueprint) blueprintSummary {
	s := blueprintSummary{
		Name:          bp.Name(),
		Version:       bp.Version(),
		Domain:        bp.Domain(),
		Description:   bp.Description(),
		MaxIterations: bp.EvolutionParameters().MaxIterations,
	}
	for _, st := range bp.AgentSequence() {
		s.Stages = append(s.Stages, st.Role)
		s.Agents = append(s.Agents, st.Agent)
	}
	return s
}

func listBlueprints(out *Output, w io.Writer, reg *blueprint.Registry) error {
	list := reg.List()
	summaries := make([]blueprintSummary, 0, len(list))
	for _, bp := range list {
		summaries = append(summaries, summarize(bp))
	}
	if out.IsJSON() {
		return out.JSON(summaries)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tVERSION\tDOMAIN\tITERATIONS\tSTAGES")
	for _, s := range summaries {
		stages := make([]string, len(s.Stages))
		for i := range s.Stages {
			stages[i] = s.Stages[i] + "(" + s.Agents[i] + ")"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.Name, s.Version, s.Domain, s.MaxIterations, strings.Join(stages, " → "))
	}
	return tw.Flush()
}
