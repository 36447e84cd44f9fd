package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// versionReport is the JSON form of `evo version`.
type versionReport struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// AddVersionCommand adds the version command to the root command.
func AddVersionCommand(root *cobra.Command, flags *GlobalFlags, info BuildInfo) {
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := NewOutput(cmd.OutOrStdout(), flags.Output)
			if out.IsJSON() {
				report := versionReport{
					Version:   info.Version,
					Commit:    info.Commit,
					Date:      info.Date,
					GoVersion: runtime.Version(),
					Platform:  runtime.GOOS + "/" + runtime.GOARCH,
				}
				if report.Version == "" {
					report.Version = "dev"
				}
				return out.JSON(report)
			}
			out.Raw(fmt.Sprintf("evo %s %s %s/%s\n", formatVersion(info), runtime.Version(), runtime.GOOS, runtime.GOARCH))
			return nil
		},
	})
}
