package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/unbekanntes-pferd/dcadmin/internal/output"
)

// NewUsersCmd creates the users command group.
func NewUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List and export users",
	}

	cmd.AddCommand(
		newUsersListCmd(),
		newUsersExportCmd(),
	)

	return cmd
}

func newUsersListCmd() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			list, err := app.Resources.Users(cmd.Context(), flags.params())
			if err != nil {
				return err
			}

			return app.OK(list.Items,
				output.WithSummary(pageSummary(len(list.Items), list.Range.Total, "users")),
				rangeMeta(list.Range))
		},
	}

	flags.register(cmd, true)

	return cmd
}

func newUsersExportCmd() *cobra.Command {
	var flags listFlags
	var path string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all matching users as CSV",
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

			return runExport(cmd, path, "users", func(ctx context.Context, w io.Writer) (int, error) {
				return app.Exporter.Users(ctx, w, params)
			})
		},
	}

	flags.register(cmd, true)
	cmd.Flags().StringVarP(&path, "output", "o", "", "CSV file to write (- for stdout)")

	return cmd
}
