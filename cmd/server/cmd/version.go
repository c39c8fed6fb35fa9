package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/localhub/server/internal/api"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"

	versionShort bool
)

// newVersionCmd prints the same document GET /version serves, so scripts can
// compare a binary against a running server.
func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := api.NewBuildInfo(Version, GitCommit, BuildDate)
			if versionShort {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info.Version)
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
	cmd.Flags().BoolVar(&versionShort, "short", false, "print only the version")
	return cmd
}
