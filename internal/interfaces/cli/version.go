package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/turtacn/MultiNLU/pkg/client"
)

// BuildInfo is the output of the version command.
type BuildInfo struct {
	Version    string `json:"version"`
	Commit     string `json:"commit"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
	SDKVersion string `json:"sdk_version"`
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("multinlu %s (commit %s, built %s, %s, sdk %s)",
		b.Version, b.Commit, b.BuildDate, b.GoVersion, b.SDKVersion)
}

// NewVersionCmd prints build information.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return PrintResult(cmd, BuildInfo{
				Version:    Version,
				Commit:     GitCommit,
				BuildDate:  BuildDate,
				GoVersion:  runtime.Version(),
				SDKVersion: client.Version,
			})
		},
	}
}

//Personal.AI order the ending
