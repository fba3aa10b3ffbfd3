package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unbekanntes-pferd/dcadmin/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, version.Full())
			if !version.IsDev() {
				fmt.Fprintf(out, "commit: %s\nbuilt:  %s\n", version.Commit, version.Date)
			}
			return nil
		},
	}
}
