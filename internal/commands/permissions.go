package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/unbekanntes-pferd/dcadmin/internal/output"
)

// NewPermissionsCmd creates the permissions command group.
func NewPermissionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permissions",
		Short: "Audit room permissions",
		Long: `Audit room permissions.

Each room is listed with the users holding permissions on it. Filters use the
audit fields, e.g. userId:eq:42 or nodeName:cn:finance.`,
	}

	cmd.AddCommand(
		newPermissionsListCmd(),
		newPermissionsExportCmd(),
	)

	return cmd
}

func newPermissionsListCmd() *cobra.Command {
	var flags listFlags
	var flat bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List room permissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			nodes, err := app.Resources.Permissions(cmd.Context(), flags.params())
			if err != nil {
				return err
			}

			if flat {
				rows := nodes.Flatten()
				return app.OK(rows, output.WithSummary(pageSummary(len(rows), uint64(len(rows)), "permission entries")))
			}
			return app.OK(nodes, output.WithSummary(pageSummary(len(nodes), uint64(len(nodes)), "rooms")))
		},
	}

	flags.register(cmd, true)
	cmd.Flags().BoolVar(&flat, "flat", false, "One row per room and user")

	return cmd
}

func newPermissionsExportCmd() *cobra.Command {
	var flags listFlags
	var all bool
	var path string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export room permissions as CSV",
		Long: `Export room permissions as CSV, one row per room and user.

With --all the audit is fetched per user for every user of the tenant.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if all && (flags.filter != "" || flags.sort != "") {
				return output.ErrUsage("--all cannot be combined with --filter or --sort")
			}
			params := flags.params()
			if err := params.Validate(); err != nil {
				return err
			}

			return runExport(cmd, path, "permission entries", func(ctx context.Context, w io.Writer) (int, error) {
				if all {
					return app.Exporter.AllUserPermissions(ctx, w)
				}
				return app.Exporter.Permissions(ctx, w, params)
			})
		},
	}

	flags.register(cmd, true)
	cmd.Flags().BoolVar(&all, "all", false, "Audit every user")
	cmd.Flags().StringVarP(&path, "output", "o", "", "CSV file to write (- for stdout)")

	return cmd
}
