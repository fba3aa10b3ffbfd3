package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/unbekanntes-pferd/dcadmin/internal/dracoon"
	"github.com/unbekanntes-pferd/dcadmin/internal/output"
	"github.com/unbekanntes-pferd/dcadmin/internal/resources"
)

// NewEventsCmd creates the events command group.
func NewEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Query the audit event log",
		Long: `Query the audit event log.

Dates accept ` + resources.DateLayout + `, RFC 3339, YYYY-MM-DD or a relative
form: now, today, yesterday, a weekday, this/last week, this/last month,
-N (days), N hours/days/weeks ago.
Status is "success" or "failure".`,
	}

	cmd.AddCommand(
		newEventsListCmd(),
		newEventsOperationsCmd(),
		newEventsExportCmd(),
	)

	return cmd
}

// eventFlags are the event log filters.
type eventFlags struct {
	userID    int64
	operation int64
	from      string
	to        string
	status    string
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.userID, "user-id", 0, "Only events of this user")
	cmd.Flags().Int64Var(&f.operation, "operation", 0, "Only events of this operation type (see events operations)")
	cmd.Flags().StringVar(&f.from, "from", "", "Earliest event time")
	cmd.Flags().StringVar(&f.to, "to", "", "Latest event time")
	cmd.Flags().StringVar(&f.status, "status", "", "Only successful or failed operations: success|failure")
}

func (f *eventFlags) params(cmd *cobra.Command) (resources.EventListParams, error) {
	p := resources.EventListParams{FromDate: f.from, ToDate: f.to}
	if cmd.Flags().Changed("user-id") {
		id := f.userID
		p.UserID = &id
	}
	if cmd.Flags().Changed("operation") {
		op := f.operation
		p.OperationType = &op
	}
	if f.status != "" {
		status, err := parseEventStatus(f.status)
		if err != nil {
			return p, err
		}
		p.Status = &status
	}
	return p, nil
}

func parseEventStatus(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "0":
		return int(dracoon.EventStatusSuccess), nil
	case "failure", "2":
		return int(dracoon.EventStatusFailure), nil
	default:
		return 0, output.ErrUsageHint(fmt.Sprintf("invalid status %q", s), "Use success or failure")
	}
}

func newEventsListCmd() *cobra.Command {
	var filters eventFlags
	var offset, limit uint64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			params, err := filters.params(cmd)
			if err != nil {
				return err
			}
			params.Offset, params.Limit = offset, limit

			list, err := app.Resources.Events(cmd.Context(), params)
			if err != nil {
				return err
			}

			return app.OK(list.Events,
				output.WithSummary(pageSummary(len(list.Events), list.Range.Total, "events")),
				rangeMeta(list.Range))
		},
	}

	filters.register(cmd)
	cmd.Flags().Uint64Var(&offset, "offset", 0, "Skip this many events")
	cmd.Flags().Uint64Var(&limit, "limit", 0, "Return at most this many events")

	return cmd
}

func newEventsOperationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "List event operation types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			ops, err := app.Resources.OperationTypes(cmd.Context())
			if err != nil {
				return err
			}

			return app.OK(ops.Operations,
				output.WithSummary(fmt.Sprintf("%d operation types", len(ops.Operations))))
		},
	}
}

func newEventsExportCmd() *cobra.Command {
	var filters eventFlags
	var path string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export all matching events as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			params, err := filters.params(cmd)
			if err != nil {
				return err
			}
			if err := params.Validate(); err != nil {
				return err
			}

			return runExport(cmd, path, "events", func(ctx context.Context, w io.Writer) (int, error) {
				return app.Exporter.Events(ctx, w, params)
			})
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVarP(&path, "output", "o", "", "CSV file to write (- for stdout)")

	return cmd
}
