package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/unbekanntes-pferd/dcadmin/internal/output"
)

// NewGroupsCmd creates the groups command group.
func NewGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List and export groups",
	}

	cmd.AddCommand(
		newGroupsListCmd(),
		newGroupsExportCmd(),
	)

	return cmd
}

func newGroupsListCmd() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			list, err := app.Resources.Groups(cmd.Context(), flags.params())
			if err != nil {
				return err
			}

			return app.OK(list.Items,
				output.WithSummary(pageSummary(len(list.Items), list.Range.Total, "groups")),
				rangeMeta(list.Range))
		},
	}

	flags.register(cmd, true)

	return cmd
}

func newGroupsExportCmd() *cobra.Command {
	var flags listFlags
	var path string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all matching groups with their role flags as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			params := flags.params()
			if err := params.Validate(); err != nil {
				return err
			}

			return runExport(cmd, path, "groups", func(ctx context.Context, w io.Writer) (int, error) {
				return app.Exporter.Groups(ctx, w, params)
			})
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&path, "output", "o", "", "CSV file to write (- for stdout)")

	return cmd
}
